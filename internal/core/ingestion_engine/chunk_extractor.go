package ingestion_engine

import (
	"strings"
	"unicode/utf8"
)

// boundarySlack is how far past the configured size a chunk may run to finish
// at a natural boundary instead of cutting a word in half.
const boundarySlack = 80

// chunk is the internal representation passed through the pipeline.
//
// Pos:   stable, zero-based position of the chunk in the run.
// Start: byte offset of the chunk inside the concatenated text.
// Text:  chunk content.
type chunk struct {
	Pos   int
	Start int
	Text  string
}

// splitText splits text into overlapping windows. Start offsets advance by
// size-overlap; only the window end is snapped forward to the nearest
// paragraph, sentence or word boundary within boundarySlack, so a chunk may
// slightly exceed size. Both cut points are kept on rune boundaries, and the
// next start is capped at the previous end so a backed-off hard cut never
// leaves bytes out of every chunk. Empty input yields no chunks.
func splitText(text string, size, overlap int) []chunk {
	if len(text) == 0 || size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	stride := size - overlap

	var out []chunk
	for start := 0; start < len(text); {
		end := start + size
		if end > len(text) {
			end = len(text)
		} else {
			end = snapForward(text, start, end)
		}
		out = append(out, chunk{Pos: len(out), Start: start, Text: text[start:end]})
		if end >= len(text) {
			break
		}

		next := start + stride
		if next > end {
			next = end
		}
		for next > start && !utf8.RuneStart(text[next]) {
			next--
		}
		if next <= start {
			// Window narrower than one rune; move past it rather than loop.
			next = start + 1
			for next < len(text) && !utf8.RuneStart(text[next]) {
				next++
			}
		}
		start = next
	}
	return out
}

// snapForward moves end to the closest natural split point at or after it:
// paragraph break first, then sentence end, then whitespace, then a hard cut
// at a rune boundary.
func snapForward(text string, start, end int) int {
	if end >= len(text) {
		return len(text)
	}
	if isBreak(text[end]) || isBreak(text[end-1]) {
		return end
	}

	limit := end + boundarySlack
	if limit > len(text) {
		limit = len(text)
	}
	window := text[end:limit]

	if i := strings.Index(window, "\n\n"); i >= 0 {
		return end + i
	}
	if i := strings.IndexAny(window, ".!?"); i >= 0 {
		return end + i + 1
	}
	if i := strings.IndexAny(window, " \t\n"); i >= 0 {
		return end + i
	}

	// Hard cut; back off to a rune boundary so we never split UTF-8 mid-rune.
	for end > start && !utf8.RuneStart(text[end]) {
		end--
	}
	if end <= start {
		// A single rune wider than the window; cut after it instead.
		end = start + 1
		for end < len(text) && !utf8.RuneStart(text[end]) {
			end++
		}
	}
	return end
}

func isBreak(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
