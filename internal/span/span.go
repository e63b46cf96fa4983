// Package span resolves citation ranges against document text.
package span

import "trustcite/api/internal/qa"

// Range is a normalized half-open [Start, End) interval within the document.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Parts is a document split into the text before, inside, and after a
// highlighted citation span.
type Parts struct {
	Before    string `json:"before"`
	Highlight string `json:"highlight"`
	After     string `json:"after"`
	Range     *Range `json:"range,omitempty"`
}

// Resolve splits text around the citation's span. Backend ranges are not
// trusted: start and end are clamped to [0, len(text)] independently and
// reordered, so inverted or out-of-range citations still yield a well-formed
// slice. A nil citation returns the whole text as Before with no Range.
func Resolve(text string, c *qa.Citation) Parts {
	if c == nil {
		return Parts{Before: text}
	}

	start := clamp(c.Start, 0, len(text))
	end := clamp(c.End, 0, len(text))
	if start > end {
		start, end = end, start
	}

	return Parts{
		Before:    text[:start],
		Highlight: text[start:end],
		After:     text[end:],
		Range:     &Range{Start: start, End: end},
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
