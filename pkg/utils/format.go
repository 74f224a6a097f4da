// Package utils provides shared formatting helpers.
package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatIndianCurrency formats a rupee amount with Indian digit grouping
// (lakhs, crores), e.g. ₹4,90,000.00.
func FormatIndianCurrency(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "₹-"
	}

	str := fmt.Sprintf("%.2f", math.Abs(amount))
	parts := strings.Split(str, ".")
	result := "₹" + formatIndianNumber(parts[0]) + "." + parts[1]
	if amount < 0 && str != "0.00" {
		result = "-" + result
	}
	return result
}

// formatIndianNumber groups an integer string as 1,00,00,000.
func formatIndianNumber(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	// First group of 3 from right
	result := s[n-3:]
	s = s[:n-3]

	// Then groups of 2
	for len(s) > 0 {
		if len(s) >= 2 {
			result = s[len(s)-2:] + "," + result
			s = s[:len(s)-2]
		} else {
			result = s + "," + result
			s = ""
		}
	}

	return result
}

// FormatPercent formats a percentage without sign.
func FormatPercent(value float64) string {
	return fmt.Sprintf("%.2f%%", value)
}

// FormatDrift formats a signed percentage drift.
func FormatDrift(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatQuantity formats a share count with Indian grouping.
func FormatQuantity(qty int64) string {
	if qty < 0 {
		return "-" + formatIndianNumber(fmt.Sprintf("%d", -qty))
	}
	return formatIndianNumber(fmt.Sprintf("%d", qty))
}

// FormatCompact formats large amounts in lakhs (L) or crores (Cr).
func FormatCompact(amount float64) string {
	switch abs := math.Abs(amount); {
	case abs >= 10000000:
		return fmt.Sprintf("%.2f Cr", amount/10000000)
	case abs >= 100000:
		return fmt.Sprintf("%.2f L", amount/100000)
	}
	return FormatIndianCurrency(amount)
}
