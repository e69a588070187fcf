package chunk

import "unicode/utf8"

// Split slices text into segments of at most maxBytes bytes. Boundaries do
// not respect word or sentence breaks but snap back to the nearest rune start
// so a multi-byte character is never torn across two segments. Segments
// concatenate back to the exact input; the last segment may be shorter.
func Split(text string, maxBytes int) []string {
	if text == "" || maxBytes <= 0 {
		return nil
	}
	segments := make([]string, 0, (len(text)+maxBytes-1)/maxBytes)
	for i := 0; i < len(text); {
		end := i + maxBytes
		if end >= len(text) {
			segments = append(segments, text[i:])
			break
		}
		for end > i && !utf8.RuneStart(text[end]) {
			end--
		}
		// Invalid UTF-8 can walk the boundary all the way back; cut at the
		// raw offset then so the segment is never empty.
		if end == i {
			end = i + maxBytes
		}
		segments = append(segments, text[i:end])
		i = end
	}
	return segments
}
