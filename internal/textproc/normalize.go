// Package textproc applies the optional preprocessing done to both texts before encoding.
package textproc

import "strings"

// Options selects which transforms Normalize applies.
type Options struct {
	Lowercase        bool `json:"lowercase" yaml:"lowercase"`
	StripPunctuation bool `json:"strip_punctuation" yaml:"strip_punctuation"`
}

// asciiPunctuation is the set stripped by StripPunctuation: !"#$%&'()*+,-./:;<=>?@[\]^_`{|}~
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Normalize lowercases and/or removes ASCII punctuation, then trims surrounding whitespace.
// It is pure and idempotent: Normalize(Normalize(s, o), o) == Normalize(s, o).
func Normalize(text string, opts Options) string {
	if opts.Lowercase {
		text = strings.ToLower(text)
	}
	if opts.StripPunctuation {
		text = strings.Map(func(r rune) rune {
			if IsPunctuation(r) {
				return -1
			}
			return r
		}, text)
	}
	return strings.TrimSpace(text)
}

// IsPunctuation reports whether r is removed by StripPunctuation.
func IsPunctuation(r rune) bool {
	return r < 0x80 && strings.ContainsRune(asciiPunctuation, r)
}
