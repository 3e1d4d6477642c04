package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkRejectsBadConfig(t *testing.T) {
	_, err := Chunk("some text", 1, 0, 0)
	require.Error(t, err)

	_, err = Chunk("some text", 1, 100, 100)
	require.Error(t, err)

	_, err = Chunk("some text", 1, 100, 150)
	require.Error(t, err)

	_, err = Chunk("some text", 1, 100, -1)
	require.Error(t, err)
}

func TestChunkShortTextYieldsSingleChunk(t *testing.T) {
	pieces, err := Chunk("a short page", 3, 500, 100)
	require.NoError(t, err)
	require.Len(t, pieces, 1)
	require.Equal(t, "a short page", pieces[0].Content)
	require.Equal(t, 3, pieces[0].PageNumber)
	require.Equal(t, "Page 3 Chunk 1", pieces[0].Label)
}

func TestChunkEmptyAndWhitespacePagesDropped(t *testing.T) {
	pieces, err := Chunk("", 1, 500, 100)
	require.NoError(t, err)
	require.Empty(t, pieces)

	pieces, err = Chunk("   \n\t  ", 1, 500, 100)
	require.NoError(t, err)
	require.Empty(t, pieces)
}

func TestChunkWindowingWithoutBreaks(t *testing.T) {
	// 1300 runes, no period or newline: windows advance by size-overlap=400,
	// so cursors sit at 0, 400, 800 and the last window is the remainder.
	text := strings.Repeat("a", 1300)
	pieces, err := Chunk(text, 1, 500, 100)
	require.NoError(t, err)
	require.Len(t, pieces, 3)
	for _, p := range pieces {
		require.LessOrEqual(t, len(p.Content), 500)
	}
	require.Equal(t, "Page 1 Chunk 1", pieces[0].Label)
	require.Equal(t, "Page 1 Chunk 3", pieces[2].Label)
}

func TestChunkNaturalBreakPastThreshold(t *testing.T) {
	// Period at index 450 is past 75% of 500, so the first chunk is cut there
	// and the cursor resumes right after it with no overlap duplication.
	text := strings.Repeat("a", 450) + "." + strings.Repeat("b", 200)
	pieces, err := Chunk(text, 1, 500, 100)
	require.NoError(t, err)
	require.Len(t, pieces, 2)
	require.Equal(t, strings.Repeat("a", 450)+".", pieces[0].Content)
	require.Equal(t, strings.Repeat("b", 200), pieces[1].Content)
	// No gap and no duplication at a natural break.
	require.Equal(t, text, pieces[0].Content+pieces[1].Content)
}

func TestChunkBreakBeforeThresholdKeepsFullWindow(t *testing.T) {
	// The only period is at index 100, before the 375-rune threshold, so the
	// full window is kept and the trailing overlap is duplicated.
	text := strings.Repeat("a", 100) + "." + strings.Repeat("b", 600)
	pieces, err := Chunk(text, 1, 500, 100)
	require.NoError(t, err)
	require.Len(t, pieces, 2)
	require.Len(t, pieces[0].Content, 500)
	require.Equal(t, pieces[0].Content[400:], pieces[1].Content[:100])
}

func TestChunkDeterminism(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 60)
	first, err := Chunk(text, 2, 500, 100)
	require.NoError(t, err)
	second, err := Chunk(text, 2, 500, 100)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.NotEmpty(t, first)
}

func TestChunkCoverageNoGaps(t *testing.T) {
	// Break-free text: rejoining chunks minus the duplicated overlap prefix of
	// every follow-up chunk reproduces the page exactly.
	text := strings.Repeat("abcdefghij", 173) // 1730 runes
	pieces, err := Chunk(text, 1, 500, 100)
	require.NoError(t, err)
	require.True(t, len(pieces) > 1)

	var rebuilt strings.Builder
	rebuilt.WriteString(pieces[0].Content)
	for _, p := range pieces[1:] {
		rebuilt.WriteString(p.Content[100:])
	}
	require.Equal(t, text, rebuilt.String())
}

func TestChunkThreePageDocumentCounts(t *testing.T) {
	// Spec scenario: 3 pages of known length with size=500 overlap=100. Each
	// break-free 1300-rune page yields exactly 3 chunks.
	page := strings.Repeat("x", 1300)
	total := 0
	for pageNum := 1; pageNum <= 3; pageNum++ {
		pieces, err := Chunk(page, pageNum, 500, 100)
		require.NoError(t, err)
		require.Len(t, pieces, 3)
		for _, p := range pieces {
			require.LessOrEqual(t, len(p.Content), 500)
			require.Equal(t, pageNum, p.PageNumber)
		}
		total += len(pieces)
	}
	require.Equal(t, 9, total)
}
