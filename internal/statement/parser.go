// =============================================================================
// Statement Order Replay - Statement Parser
// =============================================================================
//
// This module turns a raw statement grid into normalized Transactions.
//
// PARSING PIPELINE:
//   1. Locate the header row (first row whose first or second cell carries a
//      header marker). No header means no result at all.
//   2. Detect the column layout from the header names.
//   3. For every row after the header:
//      a. Skip rows that are too short or miss date/particulars (footers).
//      b. Filter: real date cell, positive credit, merchant keyword, date range.
//      c. Decompose the credit amount into an order composition.
//   4. Return transactions in source row order.
//
// =============================================================================

package statement

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ginjaninja78/statement-order-replay/internal/logging"
	"github.com/ginjaninja78/statement-order-replay/internal/menu"
	"github.com/ginjaninja78/statement-order-replay/internal/types"
)

// =============================================================================
// OPTIONS
// =============================================================================

// MatchMode selects how the merchant keyword is compared with the narration.
type MatchMode string

const (
	// MatchSuffix requires the narration to end with the keyword.
	MatchSuffix MatchMode = "suffix"

	// MatchContains requires the keyword anywhere in the narration.
	MatchContains MatchMode = "contains"
)

// ParseMatchMode validates a match mode name. Empty selects MatchSuffix.
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchSuffix:
		return MatchSuffix, nil
	case MatchContains:
		return MatchContains, nil
	default:
		return "", fmt.Errorf("unknown merchant match mode %q (want suffix or contains)", s)
	}
}

// Options controls header detection, filtering and decomposition.
type Options struct {
	// HeaderMarkers identify the header row. Empty uses DefaultHeaderMarkers.
	HeaderMarkers []string

	// MinColumns is the minimum number of cells a data row must have.
	// Default: 5 (date, particulars, debit, credit, balance).
	MinColumns int

	// MerchantKeyword is matched against the narration. Empty matches all rows.
	MerchantKeyword string

	// MatchMode selects suffix or substring matching. Default: suffix.
	MatchMode MatchMode

	// CaseSensitive makes the merchant match case-sensitive.
	CaseSensitive bool

	// DateRange restricts transactions to an inclusive day range.
	// Rows whose date cannot be parsed are kept.
	DateRange DateRange

	// DateLayouts are tried in order when parsing dates for the range filter.
	DateLayouts []string

	// Prices is the menu used for decomposition. Zero value uses the default menu.
	Prices menu.PriceTable

	// NewID generates transaction ids. Default: random UUIDs.
	NewID func() string

	// Logger receives debug output about skipped rows.
	Logger logging.Logger
}

func (o *Options) applyDefaults() {
	if o.MinColumns <= 0 {
		o.MinColumns = 5
	}
	if o.MatchMode == "" {
		o.MatchMode = MatchSuffix
	}
	if len(o.DateLayouts) == 0 {
		o.DateLayouts = DefaultDateLayouts()
	}
	if o.Prices == (menu.PriceTable{}) {
		o.Prices = menu.DefaultPriceTable()
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
}

// =============================================================================
// RESULT
// =============================================================================

// Stats counts what happened to the rows below the header.
type Stats struct {
	// RowsScanned is the number of rows after the header row.
	RowsScanned int `json:"rowsScanned"`

	// Skipped rows were structurally unusable (short, missing date or particulars).
	Skipped int `json:"skipped"`

	// Filtered rows were well-formed but did not pass the filters.
	Filtered int `json:"filtered"`

	// UnparsedDates counts accepted rows whose date could not be parsed while
	// a date range was active.
	UnparsedDates int `json:"unparsedDates"`

	// Accepted rows became transactions.
	Accepted int `json:"accepted"`
}

// Result is the outcome of parsing one statement.
type Result struct {
	Transactions []types.Transaction `json:"transactions"`

	// HeaderRow is the 0-based index of the header row in the grid.
	HeaderRow int `json:"headerRow"`

	Columns Columns `json:"columns"`
	Stats   Stats   `json:"stats"`
}

// =============================================================================
// PARSER
// =============================================================================

// Parser converts statement grids into transactions.
// A Parser is safe for concurrent use if its Options.NewID is.
type Parser struct {
	opts    Options
	matcher HeaderMatcher
}

// NewParser creates a parser with the given options.
func NewParser(opts Options) *Parser {
	opts.applyDefaults()
	return &Parser{
		opts:    opts,
		matcher: NewHeaderMatcher(opts.HeaderMarkers),
	}
}

// Parse extracts the merchant's credit transactions from a grid.
//
// RETURNS:
//   - The transactions in source row order, with layout and row statistics.
//   - ErrHeaderNotFound if the grid has no header row. No partial result is
//     returned in that case.
func (p *Parser) Parse(grid Grid) (*Result, error) {
	headerRow, err := p.matcher.Locate(grid)
	if err != nil {
		return nil, err
	}

	cols := DetectColumns(grid[headerRow])
	result := &Result{
		Transactions: []types.Transaction{},
		HeaderRow:    headerRow,
		Columns:      cols,
	}

	p.opts.Logger.Debug("located statement header",
		"row", headerRow+1,
		"detected", cols.Detected,
		"date", cols.Date,
		"particulars", cols.Particulars,
		"credit", cols.Credit,
	)

	for i := headerRow + 1; i < len(grid); i++ {
		result.Stats.RowsScanned++

		row := grid[i]
		date := grid.cell(i, cols.Date)
		details := grid.cell(i, cols.Particulars)

		if len(row) < p.opts.MinColumns || date == "" || details == "" {
			result.Stats.Skipped++
			p.opts.Logger.Debug("skipping row", "row", i+1, "cells", len(row))
			continue
		}

		txn, ok, unparsedDate := p.parseRow(grid, i, cols)
		if !ok {
			result.Stats.Filtered++
			continue
		}
		if unparsedDate {
			result.Stats.UnparsedDates++
		}

		result.Transactions = append(result.Transactions, txn)
		result.Stats.Accepted++
	}

	return result, nil
}

// parseRow applies the filters to one well-formed row and, if it passes,
// builds the transaction. The third result reports that the date range was
// active but the date could not be parsed.
func (p *Parser) parseRow(grid Grid, i int, cols Columns) (types.Transaction, bool, bool) {
	date := grid.cell(i, cols.Date)
	details := grid.cell(i, cols.Particulars)

	// A repeated header (page breaks in some exports) is not a transaction.
	if p.matcher.Matches(date) {
		return types.Transaction{}, false, false
	}

	credit := parseAmount(grid.cell(i, cols.Credit))
	if !credit.IsPositive() {
		return types.Transaction{}, false, false
	}

	if !p.matchesMerchant(details) {
		return types.Transaction{}, false, false
	}

	unparsed := false
	if !p.opts.DateRange.IsZero() {
		when, ok := parseDate(date, p.opts.DateLayouts)
		switch {
		case !ok:
			unparsed = true
		case !p.opts.DateRange.Contains(when):
			return types.Transaction{}, false, false
		}
	}

	breakdown := menu.Decompose(credit, p.opts.Prices)

	return types.Transaction{
		ID:           p.opts.NewID(),
		Date:         date,
		ValueDate:    grid.cell(i, cols.ValueDate),
		Details:      details,
		PaidAmount:   credit,
		Composition:  breakdown.Composition,
		ExpectedCost: breakdown.ExpectedCost,
		Adjustment:   breakdown.Adjustment,
		Status:       types.StatusSuccess,
		SourceRow:    i + 1,
	}, true, unparsed
}

// matchesMerchant applies the configured keyword predicate.
func (p *Parser) matchesMerchant(details string) bool {
	keyword := strings.TrimSpace(p.opts.MerchantKeyword)
	if keyword == "" {
		return true
	}

	details = strings.TrimSpace(details)
	if !p.opts.CaseSensitive {
		details = strings.ToLower(details)
		keyword = strings.ToLower(keyword)
	}

	if p.opts.MatchMode == MatchContains {
		return strings.Contains(details, keyword)
	}
	return strings.HasSuffix(details, keyword)
}

// Parse is a convenience wrapper around NewParser(opts).Parse(grid).
func Parse(grid Grid, opts Options) (*Result, error) {
	return NewParser(opts).Parse(grid)
}

// ParseFile reads a statement file and parses it.
func ParseFile(path, sheet string, opts Options) (*Result, error) {
	grid, err := ReadGrid(path, sheet)
	if err != nil {
		return nil, err
	}

	result, err := Parse(grid, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return result, nil
}
