package statement

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// parseAmount converts a cell like "₹1,234.50" or "1,234.50 Cr" to a decimal.
// Everything except digits, sign and decimal point is discarded first.
// Empty or unparsable cells are treated as zero.
func parseAmount(s string) decimal.Decimal {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '-' || r == '.' {
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DefaultDateLayouts are the date formats tried, in order, when applying a
// date range filter.
func DefaultDateLayouts() []string {
	return []string{
		"02-Jan-2006",
		"02 Jan 2006",
		"02/01/2006",
		"02-01-2006",
		"2006-01-02",
		"02-Jan-06",
		"02 Jan 06",
		"02/01/06",
		"02-01-06",
		"Jan 02, 2006",
		"02-Jan-2006 15:04",
		"02/01/2006 15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z07:00",
	}
}

// Excel serial dates between 1954 and 2119; anything outside is more likely
// a reference number than a date.
const (
	minSerialDate = 20000
	maxSerialDate = 80000
)

// parseDate tries each layout in turn, then falls back to Excel serial
// date numbers. The second result is false when nothing matched.
func parseDate(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= minSerialDate && serial <= maxSerialDate {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// DateRange is an inclusive calendar-day range. A zero Start or End leaves
// that side open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Contains compares calendar days only; time of day is ignored.
func (r DateRange) Contains(t time.Time) bool {
	day := dayOf(t)
	if !r.Start.IsZero() && day.Before(dayOf(r.Start)) {
		return false
	}
	if !r.End.IsZero() && day.After(dayOf(r.End)) {
		return false
	}
	return true
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
