package sentence

// DefaultSoftLimit is the preferred segment length in characters.
const DefaultSoftLimit = 512

// Split breaks text into segments no longer than max characters, preferring
// to cut at sentence ends once a segment has reached soft characters.
// Lengths are counted in runes.
//
// Text that already fits in max is returned unchanged as a single segment.
// Longer text is cut at the first sentence end, or failing that the first
// whitespace, at or past soft characters into each segment. Only a
// remainder longer than max is cut earlier, or hard at max when it has no
// boundary at all. Segments are contiguous: joining them yields text
// exactly, and whitespace at a cut stays with the preceding segment. A soft
// limit of zero or less means DefaultSoftLimit and is clamped to max. A max
// of zero or less means no limit.
func Split(text string, soft, max int) []string {
	if max <= 0 {
		return []string{text}
	}

	runes := []rune(text)
	if len(runes) <= max {
		return []string{text}
	}

	if soft <= 0 {
		soft = DefaultSoftLimit
	}
	if soft > max {
		soft = max
	}

	segments := make([]string, 0, len(runes)/soft+1)
	start := 0
	for len(runes)-start > soft {
		cut, ok := findCut(runes, start, soft, max)
		if !ok {
			if len(runes)-start <= max {
				break
			}
			cut = start + max
		}
		segments = append(segments, string(runes[start:cut]))
		start = cut
	}
	segments = append(segments, string(runes[start:]))

	return segments
}

// findCut picks a boundary ending the segment that begins at start. A
// found cut is in (start, start+max] and leaves a non-empty remainder.
// Boundaries before the soft limit are only considered when the remainder
// is longer than max.
func findCut(runes []rune, start, soft, max int) (int, bool) {
	from := start + soft
	limit := min(start+max, len(runes)-1)

	// Next boundary at or past the soft limit.
	for c := from; c <= limit; c++ {
		if isSentenceCut(runes, c) {
			return c, true
		}
	}
	for c := from; c <= limit; c++ {
		if isSpaceCut(runes, c) {
			return c, true
		}
	}

	if len(runes)-start <= max {
		return 0, false
	}

	// Last boundary before the soft limit.
	for c := from - 1; c > start; c-- {
		if isSentenceCut(runes, c) {
			return c, true
		}
	}
	for c := from - 1; c > start; c-- {
		if isSpaceCut(runes, c) {
			return c, true
		}
	}

	return 0, false
}
