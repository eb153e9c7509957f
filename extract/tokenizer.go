package extract

import (
	"strings"

	"github.com/invoicelens/invoice-scan/dto"
)

// Tokenize normalizes a raw recognized-text block into an ordered line
// sequence. Blank lines are collapsed and surrounding whitespace is trimmed,
// but interior tab and multi-space runs are kept because the line-item
// detector needs them as column separators. Empty input yields an empty
// slice, never an error.
//
// When the recognizer supplied per-line hints, each normalized line is
// matched against them in order and picks up its vertical position.
func Tokenize(raw string, hints []dto.LineHint) []dto.Line {
	var lines []dto.Line
	hintIdx := 0

	for _, part := range strings.Split(raw, "\n") {
		text := strings.Trim(part, " \t\r")
		if text == "" {
			continue
		}

		line := dto.Line{Index: len(lines), Text: text}
		if y, ok := matchHint(text, hints, &hintIdx); ok {
			line.YPos = &y
		}
		lines = append(lines, line)
	}

	return lines
}

// matchHint advances through the hint list looking for the hint whose text
// corresponds to the given line. Hints arrive in the same top-to-bottom order
// as the text, so the scan never backtracks.
func matchHint(text string, hints []dto.LineHint, idx *int) (float64, bool) {
	for i := *idx; i < len(hints); i++ {
		if normalizeForHint(hints[i].Text) == normalizeForHint(text) {
			*idx = i + 1
			return hints[i].Y, true
		}
	}
	return 0, false
}

func normalizeForHint(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
