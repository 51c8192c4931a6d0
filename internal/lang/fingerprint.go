package lang

import (
	"strings"
	"unicode"
)

// currencyTokens are dropped from fingerprints so that "coffee 100 baht"
// and "Coffee, 100 THB." share one fingerprint. The currency itself is
// preserved on the extraction result, not in the cache key.
var currencyTokens = map[string]struct{}{
	"baht":    {},
	"thb":     {},
	"บาท":     {},
	"usd":     {},
	"dollar":  {},
	"dollars": {},
	"euro":    {},
	"euros":   {},
	"eur":     {},
}

// Fingerprint is the normalized signature of an input text. Key is the
// canonical string form used for exact-match lookups; Tokens is the set
// used for similarity scoring.
type Fingerprint struct {
	Tokens map[string]struct{}
	Key    string
}

// NewFingerprint derives a fingerprint from raw input text.
func NewFingerprint(text string) Fingerprint {
	toks := tokenize(Normalize(text))

	filtered := toks[:0]
	set := make(map[string]struct{}, len(toks))
	for _, tok := range toks {
		if _, drop := currencyTokens[tok]; drop {
			continue
		}
		filtered = append(filtered, tok)
		set[tok] = struct{}{}
	}

	return Fingerprint{
		Key:    strings.Join(filtered, " "),
		Tokens: set,
	}
}

// Tokens returns the normalized tokens of text in input order, currency
// words included. Resolvers use it to look up vocabulary per token.
func Tokens(text string) []string {
	return tokenize(Normalize(text))
}

// tokenize splits normalized text on whitespace and on letter/digit
// boundaries, so "150บาท" and "coffee100" each yield two tokens.
func tokenize(s string) []string {
	var toks []string
	var cur strings.Builder
	var curDigit bool

	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}

	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsDigit(r) != curDigit && cur.Len() > 0:
			flush()
			curDigit = unicode.IsDigit(r)
			cur.WriteRune(r)
		default:
			curDigit = unicode.IsDigit(r)
			cur.WriteRune(r)
		}
	}
	flush()

	return toks
}

// Jaccard returns the token-set similarity of two fingerprints in [0,1].
// Two empty token sets are treated as identical.
func Jaccard(a, b Fingerprint) float64 {
	if len(a.Tokens) == 0 && len(b.Tokens) == 0 {
		return 1
	}
	if len(a.Tokens) == 0 || len(b.Tokens) == 0 {
		return 0
	}

	inter := 0
	for tok := range a.Tokens {
		if _, ok := b.Tokens[tok]; ok {
			inter++
		}
	}
	union := len(a.Tokens) + len(b.Tokens) - inter

	return float64(inter) / float64(union)
}
