package settlement

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseAmountCents resolves a metadata amount whose units are not tagged.
// All-digit strings are read as minor units ("4999" is 49.99); anything with
// a decimal point is read as major units ("49.99" is also 49.99). Values like
// "500.5" are read as major units, which is a documented guess.
func parseAmountCents(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if isAllDigits(s) {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return 0, false
		}
		return d.IntPart(), true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), true
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
