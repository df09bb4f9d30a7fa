package rates

import (
	"strings"

	"github.com/rs/xid"
	"github.com/shopspring/decimal"
)

// Static fiat rates against the settlement asset (1 unit == 1 USD).
// Placeholder table, not a live feed.
var fiatRates = map[string]decimal.Decimal{
	"USD": decimal.NewFromFloat(1.0),
	"INR": decimal.NewFromFloat(0.012),
	"EUR": decimal.NewFromFloat(1.1),
	"GBP": decimal.NewFromFloat(1.27),
}

// ConvertFiat converts a fiat amount into the settlement asset, returned
// as a two-decimal string. Unknown currencies fall back to 1:1.
func ConvertFiat(amount decimal.Decimal, currency string) string {
	rate, ok := fiatRates[strings.ToUpper(currency)]
	if !ok {
		rate = decimal.NewFromFloat(1.0)
	}
	return amount.Mul(rate).StringFixed(2)
}

// NewSessionId generates a payment session id in the pay_xxx format.
func NewSessionId() string {
	return "pay_" + xid.New().String()
}
