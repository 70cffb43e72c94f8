// Package report renders the competitor analysis into a PDF document and an
// optional companion workbook.
package report

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const notAvailable = "N/A"

var printer = message.NewPrinter(language.English)

// Thousands formats n with comma group separators.
func Thousands(n int64) string {
	return printer.Sprintf("%d", n)
}

// Percent formats a rate with two decimals and a percent sign.
func Percent(f float64) string {
	return fmt.Sprintf("%.2f%%", f)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
