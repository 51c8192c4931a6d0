// Package lang provides language detection, text normalization, and the
// fingerprinting primitives used by the similarity cache and the mapping
// resolver.
package lang

import (
	"unicode"

	"github.com/itsarapong/satang/internal/model"
)

// Detect resolves an input's language by script. Any rune in the Thai
// Unicode block makes the text Thai; everything else is treated as English.
func Detect(text string) model.Language {
	for _, r := range text {
		if unicode.In(r, unicode.Thai) {
			return model.LanguageThai
		}
	}
	return model.LanguageEnglish
}

// Resolve returns the declared language of an input, running script
// detection when the tag is "auto" or missing.
func Resolve(in model.TextInput) model.Language {
	switch in.Language {
	case model.LanguageEnglish, model.LanguageThai:
		return in.Language
	default:
		return Detect(in.Text)
	}
}
