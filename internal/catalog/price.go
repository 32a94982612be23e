package catalog

import (
	"strconv"
	"strings"
)

var priceReplacer = strings.NewReplacer(",", "", "원", "")

// ParsePrice turns a raw price like "12,345원" into 12345. The unknown sentinel,
// empty strings and anything else that isn't a plain integer yield (0, false).
func ParsePrice(raw string) (int, bool) {
	cleaned := strings.TrimSpace(priceReplacer.Replace(raw))
	if cleaned == "" {
		return 0, false
	}
	value, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, false
	}
	return value, true
}

// VAT is the 10% value added tax on a price, rounded down.
func VAT(price int) int {
	return price / 10
}
