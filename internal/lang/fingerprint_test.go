package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "splits on punctuation", text: "Coffee, 100 THB.", want: []string{"coffee", "100", "thb"}},
		{name: "splits digit to letter boundary", text: "150บาท", want: []string{"150", "บาท"}},
		{name: "splits letter to digit boundary", text: "coffee100", want: []string{"coffee", "100"}},
		{name: "keeps currency words", text: "coffee 100 baht", want: []string{"coffee", "100", "baht"}},
		{name: "empty", text: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokens(tt.text))
		})
	}
}

func TestNewFingerprint(t *testing.T) {
	t.Run("drops currency words", func(t *testing.T) {
		fp := NewFingerprint("coffee 100 baht")
		assert.Equal(t, "coffee 100", fp.Key)
		assert.NotContains(t, fp.Tokens, "baht")
		assert.Contains(t, fp.Tokens, "coffee")
		assert.Contains(t, fp.Tokens, "100")
	})

	t.Run("near duplicates share a key", func(t *testing.T) {
		a := NewFingerprint("coffee 100 baht")
		b := NewFingerprint("Coffee, 100 THB.")
		assert.Equal(t, a.Key, b.Key)
	})

	t.Run("thai currency word dropped", func(t *testing.T) {
		fp := NewFingerprint("กาแฟ 150 บาท")
		assert.Equal(t, "กาแฟ 150", fp.Key)
	})

	t.Run("attached currency suffix dropped", func(t *testing.T) {
		// "150บาท" tokenizes into "150" and "บาท" before filtering.
		fp := NewFingerprint("กาแฟ 150บาท")
		assert.Equal(t, "กาแฟ 150", fp.Key)
	})
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{name: "identical", a: "coffee 100", b: "coffee 100", want: 1},
		{name: "identical after normalization", a: "coffee 100 baht", b: "Coffee, 100 THB.", want: 1},
		{name: "disjoint", a: "coffee", b: "taxi", want: 0},
		{name: "partial overlap", a: "iced coffee 100", b: "iced coffee 120", want: 0.5},
		{name: "one extra token", a: "iced coffee 100 starbucks", b: "iced coffee 100 starbucks please", want: 0.8},
		{name: "both empty", a: "", b: "", want: 1},
		{name: "one empty", a: "", b: "coffee", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Jaccard(NewFingerprint(tt.a), NewFingerprint(tt.b))
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
