package mapper

import (
	"fmt"
	"strconv"
	"strings"
)

// monthTable maps month names and abbreviations to two-digit numbers.
var monthTable = map[string]string{
	"jan": "01", "january": "01",
	"feb": "02", "february": "02",
	"mar": "03", "march": "03",
	"apr": "04", "april": "04",
	"may": "05",
	"jun": "06", "june": "06",
	"jul": "07", "july": "07",
	"aug": "08", "august": "08",
	"sep": "09", "september": "09",
	"oct": "10", "october": "10",
	"nov": "11", "november": "11",
	"dec": "12", "december": "12",
}

// monthNumber converts a month name, abbreviation, or numeric string to a
// two-digit month number. Returns "" when the month cannot be resolved.
func monthNumber(month string) string {
	month = strings.ToLower(strings.TrimSpace(month))
	if month == "" {
		return ""
	}
	if n, err := strconv.Atoi(month); err == nil {
		if n < 1 || n > 12 {
			return ""
		}
		return fmt.Sprintf("%02d", n)
	}
	return monthTable[month]
}

// formatDate renders the most granular date string the parts allow:
// "YYYY", "YYYY-MM", or "YYYY-MM-DD". A missing or unresolvable month
// truncates the date to year precision; a missing day truncates to month
// precision. A zero year yields "".
func formatDate(year int, month string, day int) string {
	if year == 0 {
		return ""
	}
	date := strconv.Itoa(year)

	mm := monthNumber(month)
	if mm == "" {
		return date
	}
	date += "-" + mm

	if day <= 0 || day > 31 {
		return date
	}
	return fmt.Sprintf("%s-%02d", date, day)
}
