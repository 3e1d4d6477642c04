package util

import "testing"

func TestSanitizeTextRemovesNulAndControls(t *testing.T) {
	in := "ab\x00cd\x01\x02\n\txy"
	out := SanitizeText(in)
	if out != "abcd\n\txy" {
		t.Fatalf("unexpected sanitized output: %q", out)
	}
}

func TestDisplaySnippetTruncates(t *testing.T) {
	in := "Hello\x00   world \n\t again"
	out := DisplaySnippet(in, 11)
	if out != "Hello world..." {
		t.Fatalf("unexpected snippet: %q", out)
	}
}

func TestDisplaySnippetRestoresWordBoundaries(t *testing.T) {
	out := DisplaySnippet("deepLearning for2024", 100)
	if out != "deep Learning for 2024" {
		t.Fatalf("unexpected snippet: %q", out)
	}
}
