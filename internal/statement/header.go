package statement

import (
	"errors"
	"strings"
)

// ErrHeaderNotFound is returned when no row of the grid looks like the
// transaction table header. Nothing below the header can be interpreted
// without it, so the whole parse fails.
var ErrHeaderNotFound = errors.New("statement header row not found")

// DefaultHeaderMarkers are the tokens that identify the header row.
// A marker prefixed with "=" must equal the whole cell; this keeps a bare
// "Date" header recognisable without matching metadata lines such as
// "Statement Date : 01/04/2024".
func DefaultHeaderMarkers() []string {
	return []string{"transaction date", "txn date", "tran date", "posting date", "value date", "=date"}
}

// HeaderMatcher locates the header row of a statement grid.
type HeaderMatcher struct {
	// Markers are matched case-insensitively against the first or second
	// cell of a row: as substrings, or as whole cells when prefixed by "=".
	Markers []string
}

// NewHeaderMatcher returns a matcher for the given markers. Empty or blank
// markers are dropped; if nothing remains, the defaults are used.
func NewHeaderMatcher(markers []string) HeaderMatcher {
	var cleaned []string
	for _, m := range markers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			cleaned = append(cleaned, m)
		}
	}
	if len(cleaned) == 0 {
		cleaned = DefaultHeaderMarkers()
	}
	return HeaderMatcher{Markers: cleaned}
}

// Matches reports whether a single cell contains a header marker.
func (m HeaderMatcher) Matches(cell string) bool {
	cell = strings.ToLower(strings.TrimSpace(cell))
	if cell == "" {
		return false
	}
	for _, marker := range m.Markers {
		if exact, ok := strings.CutPrefix(marker, "="); ok {
			if cell == exact {
				return true
			}
			continue
		}
		if strings.Contains(cell, marker) {
			return true
		}
	}
	return false
}

// IsHeaderRow reports whether the row's first or second cell holds a marker.
func (m HeaderMatcher) IsHeaderRow(row []string) bool {
	for i := 0; i < 2 && i < len(row); i++ {
		if m.Matches(row[i]) {
			return true
		}
	}
	return false
}

// Locate returns the index of the first header row, scanning top-down.
func (m HeaderMatcher) Locate(grid Grid) (int, error) {
	for i, row := range grid {
		if m.IsHeaderRow(row) {
			return i, nil
		}
	}
	return -1, ErrHeaderNotFound
}

// =============================================================================
// COLUMN LAYOUT
// =============================================================================

// Columns maps the fields the parser needs to column indices.
// A value of -1 means the column is absent.
type Columns struct {
	Date        int `json:"date"`
	ValueDate   int `json:"valueDate"`
	Particulars int `json:"particulars"`
	Debit       int `json:"debit"`
	Credit      int `json:"credit"`
	Balance     int `json:"balance"`

	// Detected is true when the layout came from header names rather than
	// the positional fallback.
	Detected bool `json:"detected"`
}

// DefaultColumns is the positional layout used when header names are not
// recognised: date, value date, particulars, debit, credit, balance.
func DefaultColumns() Columns {
	return Columns{
		Date:        0,
		ValueDate:   1,
		Particulars: 2,
		Debit:       3,
		Credit:      4,
		Balance:     5,
	}
}

// DetectColumns maps header cell names to fields. Date, particulars and
// credit must all be found for the detected layout to be used; otherwise
// the positional default applies.
func DetectColumns(header []string) Columns {
	cols := Columns{Date: -1, ValueDate: -1, Particulars: -1, Debit: -1, Credit: -1, Balance: -1}

	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}

		switch {
		case strings.Contains(name, "value") && containsAny(name, "date", "dt"):
			setFirst(&cols.ValueDate, i)
		case strings.Contains(name, "date"):
			setFirst(&cols.Date, i)
		case containsAny(name, "particular", "narration", "description", "details", "remarks"):
			setFirst(&cols.Particulars, i)
		case containsAny(name, "withdraw", "debit") || isShortCode(name, "dr"):
			setFirst(&cols.Debit, i)
		case containsAny(name, "deposit", "credit") || isShortCode(name, "cr"):
			setFirst(&cols.Credit, i)
		case strings.Contains(name, "balance"):
			setFirst(&cols.Balance, i)
		}
	}

	if cols.Date < 0 || cols.Particulars < 0 || cols.Credit < 0 {
		return DefaultColumns()
	}

	cols.Detected = true
	return cols
}

func setFirst(dst *int, i int) {
	if *dst < 0 {
		*dst = i
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// isShortCode matches abbreviations like "Dr", "Dr." or "(Cr)".
func isShortCode(name, code string) bool {
	return strings.Trim(name, " .()") == code
}
