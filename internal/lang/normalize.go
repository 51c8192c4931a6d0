package lang

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// chainPool hands out fresh transformer chains; transform.Chain values are
// stateful and must not be shared across goroutines.
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			cases.Fold(),                       // unicode case folding
			runes.Remove(runes.In(unicode.Mn)), // strip combining marks, incl. Thai tone marks
			runes.Remove(runes.In(unicode.Cf)), // strip format chars ZWJ ZWNJ FEFF
			width.Fold,                         // map fullwidth forms to ASCII
		)
	},
}

// Normalize produces the canonical form of input text used for
// fingerprinting: NFKC, case-folded, combining marks and format runes
// stripped, width-folded, symbols and punctuation replaced by spaces,
// whitespace collapsed. Extraction always runs on the raw text; this form
// exists only so near-duplicate inputs land on the same fingerprint.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ToValidUTF8(s, "")

	tr := chainPool.Get().(transform.Transformer)
	ns, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)

	return collapseSpaces(stripSymbols(ns))
}

// stripSymbols keeps letters and digits and turns everything else into a
// token boundary, so "coffee,฿100." splits the same way as "coffee 100".
func stripSymbols(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// collapseSpaces converts whitespace runs to a single space and trims.
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inWS := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inWS = true
			continue
		}
		if inWS && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inWS = false
		b.WriteRune(r)
	}
	return b.String()
}
