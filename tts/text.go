package tts

import (
	"strings"
	"unicode/utf8"
)

// DecodeText decodes buf as UTF-8. Any malformed sequence fails the whole
// call with ErrInvalidText; nothing is substituted and nothing is dropped.
// A correctly encoded U+FFFD in the input is kept as text.
func DecodeText(buf []byte) (string, error) {
	var out strings.Builder
	out.Grow(len(buf))

	for i := 0; i < len(buf); {
		r, size := utf8.DecodeRune(buf[i:])
		if r == utf8.RuneError && size <= 1 {
			// size 0 only happens on empty input, size 1 marks an invalid
			// byte. A real U+FFFD decodes with size 3.
			return "", ErrInvalidText
		}
		out.WriteRune(r)
		i += size
	}

	return out.String(), nil
}
