// Package extract implements the deterministic rule-based field extractor.
// It turns a natural-language spending message into a structured result
// with per-field confidences, using ordered per-language rule tables.
package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/itsarapong/satang/internal/common"
	"github.com/itsarapong/satang/internal/lang"
	"github.com/itsarapong/satang/internal/model"
)

// Placeholder values for fields no rule matched.
const (
	UnknownMerchant       = "Unknown"
	UncategorizedCategory = "Uncategorized"
)

// Fixed confidences not tied to a single table rule.
const (
	placeholderConfidence = 0.1
	descriptionConfidence = 0.8
	currencyConfidence    = 0.95
	defaultCurrencyConf   = 0.5
	hintConfidence        = 0.5
	brandConfidence       = 0.85
	capitalizedConfidence = 0.6
)

type compiledAmountRule struct {
	re   *regexp.Regexp
	rule amountRule
}

type compiledMerchantRule struct {
	re   *regexp.Regexp
	rule merchantRule
}

// compiledKeyword matches via regex for English (word boundaries) and via
// substring search for Thai, where re is nil.
type compiledKeyword struct {
	re   *regexp.Regexp
	rule keywordRule
}

type compiledBrand struct {
	re        *regexp.Regexp
	token     string
	canonical string
}

// Extractor applies the per-language rule tables to produce a local
// extraction. All regexes are compiled once; safe for concurrent use.
type Extractor struct {
	amounts    map[model.Language][]compiledAmountRule
	merchants  map[model.Language][]compiledMerchantRule
	brands     map[model.Language][]compiledBrand
	categories map[model.Language][]compiledKeyword
	payments   map[model.Language][]compiledKeyword
}

// New compiles the rule tables into an Extractor.
func New() *Extractor {
	e := &Extractor{
		amounts:    make(map[model.Language][]compiledAmountRule, len(amountRules)),
		merchants:  make(map[model.Language][]compiledMerchantRule, len(merchantRules)),
		brands:     make(map[model.Language][]compiledBrand, len(knownBrands)),
		categories: make(map[model.Language][]compiledKeyword, len(categoryKeywords)),
		payments:   make(map[model.Language][]compiledKeyword, len(paymentKeywords)),
	}

	for language, rules := range amountRules {
		compiled := make([]compiledAmountRule, 0, len(rules))
		for _, r := range rules {
			compiled = append(compiled, compiledAmountRule{re: regexp.MustCompile(r.Regex), rule: r})
		}
		e.amounts[language] = compiled
	}

	for language, rules := range merchantRules {
		compiled := make([]compiledMerchantRule, 0, len(rules))
		for _, r := range rules {
			compiled = append(compiled, compiledMerchantRule{re: regexp.MustCompile(r.Regex), rule: r})
		}
		e.merchants[language] = compiled
	}

	for language, brands := range knownBrands {
		compiled := make([]compiledBrand, 0, len(brands))
		for token, canonical := range brands {
			cb := compiledBrand{token: token, canonical: canonical}
			if language == model.LanguageEnglish {
				cb.re = regexp.MustCompile(`\b` + regexp.QuoteMeta(token) + `\b`)
			}
			compiled = append(compiled, cb)
		}
		e.brands[language] = compiled
	}

	e.categories = compileKeywords(categoryKeywords)
	e.payments = compileKeywords(paymentKeywords)

	return e
}

func compileKeywords(tables map[model.Language][]keywordRule) map[model.Language][]compiledKeyword {
	out := make(map[model.Language][]compiledKeyword, len(tables))
	for language, rules := range tables {
		compiled := make([]compiledKeyword, 0, len(rules))
		for _, r := range rules {
			ck := compiledKeyword{rule: r}
			if language == model.LanguageEnglish {
				ck.re = regexp.MustCompile(`\b` + regexp.QuoteMeta(r.Keyword) + `\b`)
			}
			compiled = append(compiled, ck)
		}
		out[language] = compiled
	}
	return out
}

// Extract produces a pattern-provenance result for the input. It fails
// only when no numeric token can be read as an amount; every other field
// falls back to a low-confidence placeholder.
func (e *Extractor) Extract(_ context.Context, in model.TextInput) (model.ExtractionResult, error) {
	if err := in.Validate(); err != nil {
		return model.ExtractionResult{}, fmt.Errorf("%w: %v", common.ErrUnparsableInput, err)
	}

	language := lang.Resolve(in)
	text := strings.TrimSpace(in.Text)

	result := model.ExtractionResult{
		ProcessedAt:   time.Now(),
		Method:        model.MethodLocal,
		Language:      language,
		SchemaVersion: model.SchemaVersion,
		Merchant:      model.Field[string]{Value: UnknownMerchant, Confidence: placeholderConfidence, Source: model.SourcePattern},
		Category:      model.Field[string]{Value: UncategorizedCategory, Confidence: placeholderConfidence, Source: model.SourcePattern},
		PaymentMethod: model.Field[model.PaymentMethod]{Value: model.PaymentUnknown, Confidence: placeholderConfidence, Source: model.SourcePattern},
		Description:   model.Field[string]{Value: cleanDescription(text), Confidence: descriptionConfidence, Source: model.SourcePattern},
	}

	amount, currency, err := e.extractAmount(language, text)
	if err != nil {
		return model.ExtractionResult{}, fmt.Errorf("%w: %v", common.ErrUnparsableInput, err)
	}
	result.Amount = amount
	result.Currency = currency

	if rule, ok := e.matchKeywords(e.categories[language], text); ok {
		result.Category = model.Field[string]{Value: rule.Value, Confidence: rule.Confidence, Source: model.SourcePattern}
	} else if hint := strings.TrimSpace(in.Hints.PreviousCategory); hint != "" {
		result.Category = model.Field[string]{Value: hint, Confidence: hintConfidence, Source: model.SourcePattern}
	}

	if rule, ok := e.matchKeywords(e.payments[language], text); ok {
		result.PaymentMethod = model.Field[model.PaymentMethod]{Value: model.PaymentMethod(rule.Value), Confidence: rule.Confidence, Source: model.SourcePattern}
	}

	if merchant, ok := e.extractMerchant(language, text); ok {
		result.Merchant = merchant
	}

	return result, nil
}

// extractAmount evaluates every amount rule and keeps the best candidate.
// Ties in confidence go to the longer numeric literal.
func (e *Extractor) extractAmount(language model.Language, text string) (model.Field[float64], model.Field[string], error) {
	var (
		best         float64
		bestConf     float64
		bestLen      int
		bestCurrency string
		found        bool
	)

	for _, c := range e.amounts[language] {
		for _, m := range c.re.FindAllStringSubmatch(text, -1) {
			value, err := parseAmount(m[1])
			if err != nil {
				continue
			}
			matchLen := len(m[1])
			if !found || c.rule.Confidence > bestConf ||
				(c.rule.Confidence == bestConf && matchLen > bestLen) {
				found = true
				best = value
				bestConf = c.rule.Confidence
				bestLen = matchLen
				bestCurrency = c.rule.Currency
			}
		}
	}

	if !found {
		return model.Field[float64]{}, model.Field[string]{}, fmt.Errorf("no numeric token in %q", text)
	}

	amount := model.Field[float64]{Value: best, Confidence: bestConf, Source: model.SourcePattern}

	// An amount with no currency marker defaults to THB at low confidence.
	currency := model.Field[string]{Value: "THB", Confidence: defaultCurrencyConf, Source: model.SourcePattern}
	if bestCurrency != "" {
		currency = model.Field[string]{Value: bestCurrency, Confidence: currencyConfidence, Source: model.SourcePattern}
	}

	return amount, currency, nil
}

// matchKeywords returns the best-matching keyword rule for the text.
// Higher confidence wins; equal confidence goes to the longer keyword.
func (e *Extractor) matchKeywords(rules []compiledKeyword, text string) (keywordRule, bool) {
	lowered := strings.ToLower(text)

	var best keywordRule
	bestLen := -1
	found := false

	for _, c := range rules {
		var matched bool
		if c.re != nil {
			matched = c.re.MatchString(lowered)
		} else {
			matched = strings.Contains(text, c.rule.Keyword)
		}
		if !matched {
			continue
		}

		kwLen := len([]rune(c.rule.Keyword))
		if !found || c.rule.Confidence > best.Confidence ||
			(c.rule.Confidence == best.Confidence && kwLen > bestLen) {
			best = c.rule
			bestLen = kwLen
			found = true
		}
	}

	return best, found
}

func cleanDescription(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
