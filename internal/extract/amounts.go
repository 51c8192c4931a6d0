package extract

import (
	"fmt"
	"strconv"
	"strings"
)

// Amounts outside this range are treated as noise (phone numbers, order
// IDs) rather than spending amounts.
const (
	minSaneAmount = 0.01
	maxSaneAmount = 10_000_000
)

var thaiDigits = strings.NewReplacer(
	"๐", "0",
	"๑", "1",
	"๒", "2",
	"๓", "3",
	"๔", "4",
	"๕", "5",
	"๖", "6",
	"๗", "7",
	"๘", "8",
	"๙", "9",
)

// parseAmount converts a matched numeric literal to a float64, handling
// thousands separators and Thai digits.
func parseAmount(raw string) (float64, error) {
	cleaned := thaiDigits.Replace(raw)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, fmt.Errorf("empty amount literal")
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
	}

	if value < minSaneAmount || value > maxSaneAmount {
		return 0, fmt.Errorf("amount %v outside sane range", value)
	}

	return value, nil
}
