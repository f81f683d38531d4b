package analytics

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const currencyPrefix = "Rs. "

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders an amount as "Rs. 1,234" with at most two decimals.
func FormatAmount(amount float64) string {
	return currencyPrefix + amountPrinter.Sprint(number.Decimal(amount, number.MaxFractionDigits(2)))
}
