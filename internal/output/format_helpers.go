package output

import (
	"strconv"
	"strings"

	"github.com/sdickey2024/fin-plan-shared/pkg/decimal"
	stddec "github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatCurrency formats an amount as USD with 2 decimals.
func FormatCurrency(amount float64) string { return decimal.NewMoney(amount).Format() }

// FormatPercentage formats a fraction as a percentage with 2 decimals.
func FormatPercentage(fraction float64) string {
	return stddec.NewFromFloat(fraction).Shift(2).StringFixed(2) + "%"
}

// groupedCurrency formats an amount as USD with thousands separators.
func groupedCurrency(p *message.Printer, amount float64) string {
	m := decimal.NewMoney(amount)
	if m.IsNegative() {
		return p.Sprintf("-$%.2f", -m.Float64())
	}
	return p.Sprintf("$%.2f", m.Float64())
}

func newPrinter() *message.Printer { return message.NewPrinter(language.English) }

func cellMoney(v float64) string { return decimal.NewMoney(v).String() }

func cellRate(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

func cellAge(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func intToString(i int) string { return strconv.Itoa(i) }

func boolToString(b bool) string { return strconv.FormatBool(b) }

// fileStem makes a combination name safe for use in a file name.
func fileStem(name string) string {
	if name == "" {
		return "run"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
