package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/itsarapong/satang/internal/model"
)

// fieldView is the JSON projection of one extracted field.
type fieldView struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source,omitempty"`
}

// ResultView is the JSON projection of an extraction result.
type ResultView struct {
	ProcessedAt   time.Time `json:"processed_at"`
	Amount        fieldView `json:"amount"`
	Currency      fieldView `json:"currency"`
	Merchant      fieldView `json:"merchant"`
	Category      fieldView `json:"category"`
	PaymentMethod fieldView `json:"payment_method"`
	Description   fieldView `json:"description"`
	Method        string    `json:"method"`
	Language      string    `json:"language"`
	Level         string    `json:"confidence_level"`
	Confidence    float64   `json:"confidence"`
	SchemaVersion int       `json:"schema_version"`
}

// NewResultView converts a result for JSON output.
func NewResultView(result model.ExtractionResult) ResultView {
	return ResultView{
		ProcessedAt:   result.ProcessedAt,
		Amount:        fieldView{Value: result.Amount.Value, Confidence: result.Amount.Confidence, Source: string(result.Amount.Source)},
		Currency:      fieldView{Value: result.Currency.Value, Confidence: result.Currency.Confidence, Source: string(result.Currency.Source)},
		Merchant:      fieldView{Value: result.Merchant.Value, Confidence: result.Merchant.Confidence, Source: string(result.Merchant.Source)},
		Category:      fieldView{Value: result.Category.Value, Confidence: result.Category.Confidence, Source: string(result.Category.Source)},
		PaymentMethod: fieldView{Value: string(result.PaymentMethod.Value), Confidence: result.PaymentMethod.Confidence, Source: string(result.PaymentMethod.Source)},
		Description:   fieldView{Value: result.Description.Value, Confidence: result.Description.Confidence, Source: string(result.Description.Source)},
		Method:        string(result.Method),
		Language:      string(result.Language),
		Level:         string(result.Level()),
		Confidence:    result.Confidence,
		SchemaVersion: result.SchemaVersion,
	}
}

// ResultJSON renders a result as indented JSON.
func ResultJSON(result model.ExtractionResult) ([]byte, error) {
	return json.MarshalIndent(NewResultView(result), "", "  ")
}

// RenderResult renders a result as a styled card.
func RenderResult(result model.ExtractionResult) string {
	var b strings.Builder

	amount := fmt.Sprintf("%.2f %s", result.Amount.Value, result.Currency.Value)
	b.WriteString(fmt.Sprintf("%-13s %s\n", "Amount:", BoldStyle.Render(amount)))

	merchant := result.Merchant.Value
	if merchant == "" || merchant == "Unknown" {
		merchant = SubtleStyle.Render("(unknown)")
	}
	b.WriteString(fmt.Sprintf("%-13s %s\n", "Merchant:", merchant))
	b.WriteString(fmt.Sprintf("%-13s %s\n", "Category:", result.Category.Value))

	payment := string(result.PaymentMethod.Value)
	if result.PaymentMethod.Value == model.PaymentUnknown {
		payment = SubtleStyle.Render("(unknown)")
	}
	b.WriteString(fmt.Sprintf("%-13s %s\n", "Payment:", payment))
	b.WriteString(fmt.Sprintf("%-13s %s\n", "Description:", SubtleStyle.Render(result.Description.Value)))

	level := result.Level()
	confidence := confidenceStyle(level).Render(fmt.Sprintf("%.2f (%s)", result.Confidence, level))
	method := string(result.Method)
	if result.Method == model.MethodAIFallback {
		method = RobotIcon + " " + method
	}
	b.WriteString(fmt.Sprintf("\n%-13s %s\n", "Confidence:", confidence))
	b.WriteString(SubtleStyle.Render(fmt.Sprintf("%-13s %s · %s", "", method, result.Language)))

	return RenderBox(CoinIcon+" Spending", b.String())
}

// RenderMappings renders mappings as an aligned table.
func RenderMappings(mappings []model.CategoryMapping) string {
	if len(mappings) == 0 {
		return InfoStyle.Render("No mappings found. Use 'satang mappings add' to create one.")
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		TableHeaderStyle.Render("KEY"),
		TableHeaderStyle.Render("LANG"),
		TableHeaderStyle.Render("KIND"),
		TableHeaderStyle.Render("CATEGORY"),
		TableHeaderStyle.Render("MERCHANT"),
		TableHeaderStyle.Render("CONF"),
		TableHeaderStyle.Render("USES"))

	for _, m := range mappings {
		merchant := m.TargetMerchant
		if merchant == "" {
			merchant = "-"
		}
		key := m.Key
		if m.Status == model.MappingDeprecated {
			key = SubtleStyle.Render(key)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2f\t%d\n",
			key, m.Language, m.Kind, m.TargetCategory, merchant, m.Confidence, m.UseCount)
	}

	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// RenderCandidates renders pending mapping candidates as a table.
func RenderCandidates(candidates []model.MappingCandidate) string {
	if len(candidates) == 0 {
		return InfoStyle.Render("No pending candidates.")
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		TableHeaderStyle.Render("ID"),
		TableHeaderStyle.Render("KEY"),
		TableHeaderStyle.Render("LANG"),
		TableHeaderStyle.Render("KIND"),
		TableHeaderStyle.Render("CATEGORY"),
		TableHeaderStyle.Render("SEEN"),
		TableHeaderStyle.Render("CONF"))

	for _, c := range candidates {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%.2f\n",
			ShortID(c.ID), c.Key, c.Language, c.Kind, c.SuggestedCategory, c.Occurrences, c.AvgConfidence)
	}

	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// ShortID abbreviates a candidate ID for display. Commands accept the
// abbreviated form back as a prefix.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// BatchSummary aggregates the outcome of one batch run.
type BatchSummary struct {
	Methods map[model.ProcessingMethod]int
	Elapsed time.Duration
	Total   int
	Failed  int
}

// RenderBatchSummary renders the closing line of a batch run.
func RenderBatchSummary(s BatchSummary) string {
	parsed := s.Total - s.Failed

	head := fmt.Sprintf("%s Processed %d of %d in %s", ChartIcon, parsed, s.Total, s.Elapsed.Round(time.Millisecond))
	if s.Failed > 0 {
		head += " " + ErrorStyle.Render(fmt.Sprintf("(%d failed)", s.Failed))
	}

	var methods []string
	for _, m := range []model.ProcessingMethod{model.MethodLocal, model.MethodAIFallback, model.MethodCacheHit} {
		if n := s.Methods[m]; n > 0 {
			methods = append(methods, fmt.Sprintf("%s %d", m, n))
		}
	}
	if len(methods) > 0 {
		head += "\n" + SubtleStyle.Render(strings.Join(methods, " · "))
	}

	return head
}

func confidenceStyle(level model.ConfidenceLevel) lipgloss.Style {
	switch level {
	case model.ConfidenceHigh:
		return SuccessStyle
	case model.ConfidenceMedium:
		return WarningStyle
	default:
		return ErrorStyle
	}
}
