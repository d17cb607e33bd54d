package currency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Code string

const (
	USD Code = "USD"
	INR Code = "INR"
)

// ParseCode accepts USD or INR in any case.
func ParseCode(s string) (Code, error) {
	switch Code(strings.ToUpper(strings.TrimSpace(s))) {
	case USD:
		return USD, nil
	case INR:
		return INR, nil
	}
	return "", fmt.Errorf("unsupported currency %q", s)
}

// ToUSD converts an amount entered in code into dollars. Amounts are stored in USD.
func ToUSD(amount float64, code Code, usdToINR float64) float64 {
	if code != INR || usdToINR <= 0 {
		return amount
	}
	return decimal.NewFromFloat(amount).
		Div(decimal.NewFromFloat(usdToINR)).
		Round(2).
		InexactFloat64()
}

func ToINR(usd float64, usdToINR float64) float64 {
	return decimal.NewFromFloat(usd).Mul(decimal.NewFromFloat(usdToINR)).Round(2).InexactFloat64()
}

// FormatUSD renders amount like $1,234.56.
func FormatUSD(amount float64) string {
	return format("$", amount, groupThousands)
}

// FormatINR renders amount in the Indian system, like ₹1,23,456.78.
func FormatINR(amount float64) string {
	return format("₹", amount, groupIndian)
}

func format(symbol string, amount float64, group func(string) string) string {
	fixed := decimal.NewFromFloat(amount).StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + symbol + group(whole) + "." + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// groupIndian keeps the last three digits together and groups the rest in pairs.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var b strings.Builder
	lead := len(head) % 2
	if lead > 0 {
		b.WriteString(head[:lead])
	}
	for i := lead; i < len(head); i += 2 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(head[i : i+2])
	}
	b.WriteByte(',')
	b.WriteString(tail)
	return b.String()
}
