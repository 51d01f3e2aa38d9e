package identity

import "unicode"

// TitleCase applies the normalization rule from spec.md §4.3/§4.1: each
// whitespace-separated token has its first rune upper-cased and every
// remaining rune lower-cased. Whitespace runs (including non-ASCII space)
// are preserved verbatim so the transform is reversible on structure,
// just not on case.
//
//	"the GREAT gatsby" -> "The Great Gatsby"
//	"naïve  café"       -> "Naïve  Café"
func TitleCase(name string) string {
	runes := []rune(name)
	out := make([]rune, len(runes))

	atTokenStart := true
	for i, r := range runes {
		switch {
		case unicode.IsSpace(r):
			out[i] = r
			atTokenStart = true
		case atTokenStart:
			out[i] = unicode.ToUpper(r)
			atTokenStart = false
		default:
			out[i] = unicode.ToLower(r)
		}
	}

	return string(out)
}
