package views

import "strings"

// strippedRanges lists codepoints that break tcell's cell-width
// accounting: emoji modifiers and joiners that glue several codepoints
// into one glyph. Dropping them collapses the sequence to its base
// character, which renders at a predictable width.
var strippedRanges = [...]struct{ lo, hi rune }{
	{0x200D, 0x200D},   // zero width joiner
	{0xFE00, 0xFE0F},   // variation selectors
	{0x1F3FB, 0x1F3FF}, // skin tone modifiers
	{0xE0100, 0xE01EF}, // variation selectors supplement
}

func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !stripped(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stripped(r rune) bool {
	for _, rr := range strippedRanges {
		if r >= rr.lo && r <= rr.hi {
			return true
		}
	}
	return false
}
