package extract

import (
	"regexp"
	"strings"

	"github.com/itsarapong/satang/internal/model"
)

var capTokenRe = regexp.MustCompile(`^[A-Z][a-z]+$`)

// merchantStopWords are capitalized tokens that are never merchants.
var merchantStopWords = map[string]bool{
	"baht":      true,
	"thb":       true,
	"usd":       true,
	"the":       true,
	"today":     true,
	"yesterday": true,
	"paid":      true,
	"bought":    true,
	"cash":      true,
	"card":      true,
}

// extractMerchant collects merchant candidates from the brand list, the
// positional rules, and (for English) the capitalized-token heuristic,
// then keeps the highest-confidence one. Ties go to the longer name.
func (e *Extractor) extractMerchant(language model.Language, text string) (model.Field[string], bool) {
	var best model.Field[string]
	bestLen := -1
	found := false

	record := func(name string, conf float64) {
		name = strings.TrimSpace(strings.Trim(name, ".,!?"))
		if name == "" {
			return
		}
		n := len([]rune(name))
		if !found || conf > best.Confidence ||
			(conf == best.Confidence && n > bestLen) {
			best = model.Field[string]{Value: name, Confidence: conf, Source: model.SourcePattern}
			bestLen = n
			found = true
		}
	}

	lowered := strings.ToLower(text)
	for _, b := range e.brands[language] {
		var matched bool
		if b.re != nil {
			matched = b.re.MatchString(lowered)
		} else {
			matched = strings.Contains(text, b.token)
		}
		if matched {
			record(b.canonical, brandConfidence)
		}
	}

	for _, c := range e.merchants[language] {
		if m := c.re.FindStringSubmatch(text); m != nil {
			record(m[1], c.rule.Confidence)
		}
	}

	if language == model.LanguageEnglish {
		if name, ok := capitalizedToken(text); ok {
			record(name, capitalizedConfidence)
		}
	}

	return best, found
}

// capitalizedToken picks the first non-leading capitalized word as a
// merchant guess. The leading token is skipped since sentence case is not
// a signal there.
func capitalizedToken(text string) (string, bool) {
	tokens := strings.Fields(text)
	for i, tok := range tokens {
		if i == 0 {
			continue
		}
		trimmed := strings.Trim(tok, `.,!?()[]"'`)
		if capTokenRe.MatchString(trimmed) && !merchantStopWords[strings.ToLower(trimmed)] {
			return trimmed, true
		}
	}
	return "", false
}
