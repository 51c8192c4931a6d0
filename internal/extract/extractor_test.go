package extract

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsarapong/satang/internal/common"
	"github.com/itsarapong/satang/internal/model"
)

func TestExtractScenarios(t *testing.T) {
	e := New()
	ctx := context.Background()

	tests := []struct {
		name         string
		text         string
		wantLanguage model.Language
		wantAmount   float64
		wantCurrency string
		wantCategory string
		wantMerchant string
		wantPayment  model.PaymentMethod
	}{
		{
			name:         "english coffee at known brand",
			text:         "coffee 100 baht at Starbucks",
			wantLanguage: model.LanguageEnglish,
			wantAmount:   100,
			wantCurrency: "THB",
			wantCategory: "Food & Dining",
			wantMerchant: "Starbucks",
			wantPayment:  model.PaymentUnknown,
		},
		{
			name:         "dollar lunch on card",
			text:         "$25.50 lunch with credit card",
			wantLanguage: model.LanguageEnglish,
			wantAmount:   25.50,
			wantCurrency: "USD",
			wantCategory: "Food & Dining",
			wantMerchant: UnknownMerchant,
			wantPayment:  model.PaymentCard,
		},
		{
			name:         "groceries with thousands separator",
			text:         "Bought groceries 1,250 baht at Big C",
			wantLanguage: model.LanguageEnglish,
			wantAmount:   1250,
			wantCurrency: "THB",
			wantCategory: "Groceries",
			wantMerchant: "Big C",
			wantPayment:  model.PaymentUnknown,
		},
		{
			name:         "thai coffee",
			text:         "กาแฟ 150 บาท",
			wantLanguage: model.LanguageThai,
			wantAmount:   150,
			wantCurrency: "THB",
			wantCategory: "Food & Dining",
			wantMerchant: UnknownMerchant,
			wantPayment:  model.PaymentUnknown,
		},
		{
			name:         "thai verb-prefixed coffee",
			text:         "ซื้อกาแฟ 150 บาท",
			wantLanguage: model.LanguageThai,
			wantAmount:   150,
			wantCurrency: "THB",
			wantCategory: "Food & Dining",
			wantMerchant: UnknownMerchant,
			wantPayment:  model.PaymentUnknown,
		},
		{
			name:         "thai numerals",
			text:         "ข้าว ๕๐ บาท",
			wantLanguage: model.LanguageThai,
			wantAmount:   50,
			wantCurrency: "THB",
			wantCategory: "Food & Dining",
			wantMerchant: UnknownMerchant,
			wantPayment:  model.PaymentUnknown,
		},
		{
			name:         "thai brand with transfer",
			text:         "เซเว่น 89 โอนจ่าย",
			wantLanguage: model.LanguageThai,
			wantAmount:   89,
			wantCurrency: "THB",
			wantCategory: UncategorizedCategory,
			wantMerchant: "7-Eleven",
			wantPayment:  model.PaymentTransfer,
		},
		{
			name:         "thai locative merchant",
			text:         "ก๋วยเตี๋ยว 60 ที่ร้านป้า",
			wantLanguage: model.LanguageThai,
			wantAmount:   60,
			wantCurrency: "THB",
			wantCategory: "Food & Dining",
			wantMerchant: "ป้า",
			wantPayment:  model.PaymentUnknown,
		},
		{
			name:         "thai taxi in cash",
			text:         "แท็กซี่ 80 จ่ายเงินสด",
			wantLanguage: model.LanguageThai,
			wantAmount:   80,
			wantCurrency: "THB",
			wantCategory: "Transportation",
			wantMerchant: UnknownMerchant,
			wantPayment:  model.PaymentCash,
		},
		{
			name:         "promptpay keyword",
			text:         "paid 120 promptpay for taxi",
			wantLanguage: model.LanguageEnglish,
			wantAmount:   120,
			wantCurrency: "THB",
			wantCategory: "Transportation",
			wantMerchant: UnknownMerchant,
			wantPayment:  model.PaymentPromptPay,
		},
		{
			name:         "ambiguous bare number",
			text:         "thing 50",
			wantLanguage: model.LanguageEnglish,
			wantAmount:   50,
			wantCurrency: "THB",
			wantCategory: UncategorizedCategory,
			wantMerchant: UnknownMerchant,
			wantPayment:  model.PaymentUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := e.Extract(ctx, model.TextInput{Text: tt.text, Language: model.LanguageAuto})
			require.NoError(t, err)

			assert.Equal(t, tt.wantLanguage, result.Language)
			assert.InDelta(t, tt.wantAmount, result.Amount.Value, 1e-9)
			assert.Equal(t, tt.wantCurrency, result.Currency.Value)
			assert.Equal(t, tt.wantCategory, result.Category.Value)
			assert.Equal(t, tt.wantMerchant, result.Merchant.Value)
			assert.Equal(t, tt.wantPayment, result.PaymentMethod.Value)
			assert.Equal(t, model.MethodLocal, result.Method)
		})
	}
}

func TestExtractAmountSelection(t *testing.T) {
	e := New()
	ctx := context.Background()

	t.Run("currency-adjacent number beats bare number", func(t *testing.T) {
		result, err := e.Extract(ctx, model.TextInput{Text: "2 coffees 100 baht"})
		require.NoError(t, err)
		assert.InDelta(t, 100, result.Amount.Value, 1e-9)
		assert.InDelta(t, 0.9, result.Amount.Confidence, 1e-9)
	})

	t.Run("confidence tie goes to the longer literal", func(t *testing.T) {
		result, err := e.Extract(ctx, model.TextInput{Text: "bought 12 eggs for 1200"})
		require.NoError(t, err)
		assert.InDelta(t, 1200, result.Amount.Value, 1e-9)
	})

	t.Run("decimal with thousands separator", func(t *testing.T) {
		result, err := e.Extract(ctx, model.TextInput{Text: "1,500.75 baht dinner"})
		require.NoError(t, err)
		assert.InDelta(t, 1500.75, result.Amount.Value, 1e-9)
	})

	t.Run("thb prefix", func(t *testing.T) {
		result, err := e.Extract(ctx, model.TextInput{Text: "THB 350 taxi"})
		require.NoError(t, err)
		assert.InDelta(t, 350, result.Amount.Value, 1e-9)
		assert.Equal(t, "THB", result.Currency.Value)
		assert.InDelta(t, 0.85, result.Amount.Confidence, 1e-9)
	})

	t.Run("bare number defaults to THB at low confidence", func(t *testing.T) {
		result, err := e.Extract(ctx, model.TextInput{Text: "coffee 100"})
		require.NoError(t, err)
		assert.Equal(t, "THB", result.Currency.Value)
		assert.InDelta(t, 0.5, result.Currency.Confidence, 1e-9)
		assert.InDelta(t, 0.6, result.Amount.Confidence, 1e-9)
	})

	t.Run("baht symbol", func(t *testing.T) {
		result, err := e.Extract(ctx, model.TextInput{Text: "latte ฿120"})
		require.NoError(t, err)
		assert.InDelta(t, 120, result.Amount.Value, 1e-9)
		assert.Equal(t, "THB", result.Currency.Value)
		assert.InDelta(t, 0.95, result.Currency.Confidence, 1e-9)
	})
}

func TestExtractErrors(t *testing.T) {
	e := New()
	ctx := context.Background()

	tests := []struct {
		name  string
		input model.TextInput
	}{
		{name: "no numeric token", input: model.TextInput{Text: "no numbers here"}},
		{name: "zero amount rejected", input: model.TextInput{Text: "0 baht"}},
		{name: "phone-sized number rejected", input: model.TextInput{Text: "call 0812345678"}},
		{name: "empty text", input: model.TextInput{Text: ""}},
		{name: "unsupported language", input: model.TextInput{Text: "coffee 100", Language: "fr"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(ctx, tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrUnparsableInput)
		})
	}
}

func TestExtractMerchant(t *testing.T) {
	e := New()
	ctx := context.Background()

	t.Run("multi-word positional merchant", func(t *testing.T) {
		result, err := e.Extract(ctx, model.TextInput{Text: "dinner at Som Tam Paradise 400 baht"})
		require.NoError(t, err)
		assert.Equal(t, "Som Tam Paradise", result.Merchant.Value)
		assert.InDelta(t, 0.8, result.Merchant.Confidence, 1e-9)
	})

	t.Run("brand canonicalizes a lowercase mention", func(t *testing.T) {
		result, err := e.Extract(ctx, model.TextInput{Text: "coffee at starbucks 100"})
		require.NoError(t, err)
		assert.Equal(t, "Starbucks", result.Merchant.Value)
		assert.InDelta(t, 0.85, result.Merchant.Confidence, 1e-9)
	})

	t.Run("numeric brand alias", func(t *testing.T) {
		result, err := e.Extract(ctx, model.TextInput{Text: "7-11 run 250 baht"})
		require.NoError(t, err)
		assert.Equal(t, "7-Eleven", result.Merchant.Value)
	})

	t.Run("capitalized token heuristic", func(t *testing.T) {
		result, err := e.Extract(ctx, model.TextInput{Text: "bought Nike shoes 2500 baht"})
		require.NoError(t, err)
		assert.Equal(t, "Nike", result.Merchant.Value)
		assert.InDelta(t, 0.6, result.Merchant.Confidence, 1e-9)
	})

	t.Run("leading token is never a merchant", func(t *testing.T) {
		result, err := e.Extract(ctx, model.TextInput{Text: "Foodland run 900"})
		require.NoError(t, err)
		assert.Equal(t, UnknownMerchant, result.Merchant.Value)
	})

	t.Run("capitalized stop words are skipped", func(t *testing.T) {
		result, err := e.Extract(ctx, model.TextInput{Text: "paid 300 baht Today"})
		require.NoError(t, err)
		assert.Equal(t, UnknownMerchant, result.Merchant.Value)
	})

	t.Run("trailing punctuation trimmed", func(t *testing.T) {
		result, err := e.Extract(ctx, model.TextInput{Text: "lunch at Sizzler. 350 baht"})
		require.NoError(t, err)
		assert.Equal(t, "Sizzler", result.Merchant.Value)
	})
}

func TestExtractKeywords(t *testing.T) {
	e := New()
	ctx := context.Background()

	t.Run("keyword match is case-insensitive", func(t *testing.T) {
		result, err := e.Extract(ctx, model.TextInput{Text: "COFFEE 100"})
		require.NoError(t, err)
		assert.Equal(t, "Food & Dining", result.Category.Value)
	})

	t.Run("english keywords respect word boundaries", func(t *testing.T) {
		result, err := e.Extract(ctx, model.TextInput{Text: "scoffee 100"})
		require.NoError(t, err)
		assert.Equal(t, UncategorizedCategory, result.Category.Value)
	})

	t.Run("longer keyword wins at higher confidence", func(t *testing.T) {
		result, err := e.Extract(ctx, model.TextInput{Text: "electric bill 900"})
		require.NoError(t, err)
		assert.Equal(t, "Bills & Utilities", result.Category.Value)
		assert.InDelta(t, 0.75, result.Category.Confidence, 1e-9)
	})

	t.Run("specific payment phrase beats generic keyword", func(t *testing.T) {
		result, err := e.Extract(ctx, model.TextInput{Text: "paid with credit card 500"})
		require.NoError(t, err)
		assert.Equal(t, model.PaymentCard, result.PaymentMethod.Value)
		assert.InDelta(t, 0.9, result.PaymentMethod.Confidence, 1e-9)
	})

	t.Run("category hint fills the gap", func(t *testing.T) {
		result, err := e.Extract(ctx, model.TextInput{
			Text:  "the usual 300",
			Hints: model.InputHints{PreviousCategory: "Food & Dining"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Food & Dining", result.Category.Value)
		assert.InDelta(t, 0.5, result.Category.Confidence, 1e-9)
	})

	t.Run("matched keyword outranks the hint", func(t *testing.T) {
		result, err := e.Extract(ctx, model.TextInput{
			Text:  "coffee 300",
			Hints: model.InputHints{PreviousCategory: "Transportation"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Food & Dining", result.Category.Value)
	})
}

func TestExtractEnvelope(t *testing.T) {
	e := New()
	ctx := context.Background()

	before := time.Now()
	result, err := e.Extract(ctx, model.TextInput{Text: "  random   stuff  42 "})
	require.NoError(t, err)

	assert.Equal(t, model.MethodLocal, result.Method)
	assert.Equal(t, model.SchemaVersion, result.SchemaVersion)
	assert.False(t, result.ProcessedAt.Before(before))

	assert.Equal(t, "random stuff 42", result.Description.Value)
	assert.InDelta(t, 0.8, result.Description.Confidence, 1e-9)

	// Unmatched fields carry low-confidence placeholders.
	assert.Equal(t, UnknownMerchant, result.Merchant.Value)
	assert.InDelta(t, 0.1, result.Merchant.Confidence, 1e-9)
	assert.Equal(t, UncategorizedCategory, result.Category.Value)
	assert.Equal(t, model.PaymentUnknown, result.PaymentMethod.Value)

	for _, source := range []model.Provenance{
		result.Amount.Source, result.Currency.Source, result.Merchant.Source,
		result.Category.Source, result.PaymentMethod.Source, result.Description.Source,
	} {
		assert.Equal(t, model.SourcePattern, source)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    float64
		wantErr bool
	}{
		{name: "plain integer", raw: "100", want: 100},
		{name: "decimal", raw: "45.50", want: 45.50},
		{name: "thousands separators", raw: "1,250,000", want: 1250000},
		{name: "thai numerals", raw: "๑๕๐", want: 150},
		{name: "mixed thai and arabic", raw: "๕0", want: 50},
		{name: "zero rejected", raw: "0", wantErr: true},
		{name: "too large rejected", raw: "999999999", wantErr: true},
		{name: "empty rejected", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAmount(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
