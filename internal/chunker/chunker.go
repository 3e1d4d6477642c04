package chunker

import (
	"fmt"
	"strings"
)

// Piece is one chunk of a page, ready for embedding and storage.
type Piece struct {
	Content    string
	PageNumber int
	Label      string
}

// Chunk splits one page's text into overlapping windows of at most chunkSize
// runes. A window that ends before the end of the text is truncated at the
// last period or newline when that break sits past 75% of chunkSize; the
// cursor then resumes right after the break with no overlap. Otherwise the
// full window is kept and the cursor steps back by overlap so the tail is
// duplicated into the next chunk. Whitespace-only windows are dropped.
//
// Labels number chunks within the page: "Page N Chunk K".
func Chunk(pageText string, pageNumber, chunkSize, overlap int) ([]Piece, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap %d must be in [0, chunk size %d)", overlap, chunkSize)
	}

	text := []rune(pageText)
	breakThreshold := (chunkSize * 3) / 4

	pieces := make([]Piece, 0, len(text)/chunkSize+1)
	start := 0
	for start < len(text) {
		end := start + chunkSize
		if end >= len(text) {
			// Remainder of the page, emit and stop.
			appendPiece(&pieces, text[start:], pageNumber)
			break
		}

		window := text[start:end]
		split := lastBreak(window)
		if split > breakThreshold {
			appendPiece(&pieces, window[:split+1], pageNumber)
			start += split + 1
			continue
		}
		appendPiece(&pieces, window, pageNumber)
		start += chunkSize - overlap
	}
	return pieces, nil
}

// lastBreak returns the index of the last period or newline in window, or -1.
func lastBreak(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == '.' || window[i] == '\n' {
			return i
		}
	}
	return -1
}

func appendPiece(pieces *[]Piece, content []rune, pageNumber int) {
	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return
	}
	*pieces = append(*pieces, Piece{
		Content:    trimmed,
		PageNumber: pageNumber,
		Label:      fmt.Sprintf("Page %d Chunk %d", pageNumber, len(*pieces)+1),
	})
}
