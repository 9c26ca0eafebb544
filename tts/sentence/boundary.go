// Package sentence splits text into speakable segments.
package sentence

import (
	"strings"
	"unicode"
)

// abbreviations lists words whose trailing period does not end a sentence.
var abbreviations = makeAbbreviationMap()

// isTerminator reports whether r can end a sentence.
func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '…', '。', '！', '？':
		return true
	}
	return false
}

// isFullWidthTerminator reports whether r ends a sentence without needing
// whitespace after it.
func isFullWidthTerminator(r rune) bool {
	return r == '。' || r == '！' || r == '？'
}

// isCloser reports whether r closes a quotation or bracket.
func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '»', '”', '’', '」', '』':
		return true
	}
	return false
}

// isSentenceEnd checks if the terminator at pos really ends a sentence.
func isSentenceEnd(runes []rune, pos int) bool {
	if pos < 0 || pos >= len(runes) || !isTerminator(runes[pos]) {
		return false
	}

	punct := runes[pos]
	if isFullWidthTerminator(punct) {
		return true
	}

	if punct == '.' {
		// Ellipsis
		if pos+1 < len(runes) && runes[pos+1] == '.' {
			return false
		}

		// Decimal number
		if pos > 0 && pos+1 < len(runes) && unicode.IsDigit(runes[pos-1]) && unicode.IsDigit(runes[pos+1]) {
			return false
		}

		start := pos - 1
		for start >= 0 && !unicode.IsSpace(runes[start]) {
			start--
		}
		word := strings.ToLower(string(runes[start+1 : pos+1]))
		bare := strings.TrimSuffix(word, ".")

		if abbreviations[bare] || abbreviations[word] {
			return false
		}

		// Multi-part abbreviations like "Ph.D." or "U.S." and trailing
		// ellipses.
		if strings.Count(word, ".") > 1 {
			return false
		}

		// Initials such as "J. R. R. Tolkien".
		if len([]rune(bare)) == 1 && unicode.IsUpper(runes[pos-1]) {
			return false
		}
	}

	next := pos + 1
	for next < len(runes) && isCloser(runes[next]) {
		next++
	}
	if next >= len(runes) {
		return true
	}

	if !unicode.IsSpace(runes[next]) {
		return false
	}
	for next < len(runes) && unicode.IsSpace(runes[next]) {
		next++
	}
	if next >= len(runes) {
		return true
	}

	if unicode.IsUpper(runes[next]) || unicode.IsDigit(runes[next]) || !unicode.IsLetter(runes[next]) {
		return true
	}

	// Be lenient with exclamation and question marks.
	return punct != '.'
}

// isSentenceCut reports whether a segment may end just before index c with
// a complete sentence.
func isSentenceCut(runes []rune, c int) bool {
	if c <= 0 || c > len(runes) {
		return false
	}

	i := c - 1
	if isFullWidthTerminator(runes[i]) {
		return isSentenceEnd(runes, i)
	}

	if !unicode.IsSpace(runes[i]) {
		return false
	}
	if c < len(runes) && unicode.IsSpace(runes[c]) {
		// Keep the whole whitespace run in the preceding segment.
		return false
	}

	for i >= 0 && unicode.IsSpace(runes[i]) {
		i--
	}
	for i >= 0 && isCloser(runes[i]) {
		i--
	}
	return i >= 0 && isSentenceEnd(runes, i)
}

// isSpaceCut reports whether index c is just past a whitespace run.
func isSpaceCut(runes []rune, c int) bool {
	if c <= 0 || c > len(runes) {
		return false
	}
	if !unicode.IsSpace(runes[c-1]) {
		return false
	}
	return c == len(runes) || !unicode.IsSpace(runes[c])
}

// makeAbbreviationMap creates a map of common abbreviations.
func makeAbbreviationMap() map[string]bool {
	abbrevs := []string{
		"mr", "mrs", "ms", "dr", "prof", "sr", "jr",
		"ph.d", "m.d", "b.a", "m.a", "b.s",
		"llc", "inc", "ltd", "co", "corp",
		"i.e", "e.g", "etc", "vs", "cf", "al",
		"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept", "oct", "nov", "dec",
		"mon", "tue", "wed", "thu", "fri", "sat", "sun",
		"st", "rd", "ave", "blvd", "ln", "ct",
		"u.s", "u.k", "u.n", "e.u", "n.y", "l.a",
		"ft", "lbs", "oz", "kg", "km", "cm", "mm", "mi", "yd",
		"hr", "hrs", "min", "mins", "sec", "secs", "no", "vol", "fig",
	}

	m := make(map[string]bool, len(abbrevs)*2)
	for _, abbrev := range abbrevs {
		m[abbrev] = true
		if !strings.Contains(abbrev, ".") {
			m[abbrev+"."] = true
		}
	}
	return m
}
