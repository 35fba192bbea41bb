package statement

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestReadGridFrom_CSV(t *testing.T) {
	input := "\ufeffBank Statement\n" +
		"Date,Value Date,Particulars,Debit,Credit,Balance\n" +
		"01/04/2024,01/04/2024,\"UPI/1,2/SHAMBHU\",,180.00,1180.00\n" +
		"Total,,,,180.00\n"

	grid, err := ReadGridFrom(strings.NewReader(input), "statement.CSV", "")
	if err != nil {
		t.Fatalf("ReadGridFrom() error = %v", err)
	}

	if len(grid) != 4 {
		t.Fatalf("got %d rows, want 4", len(grid))
	}
	if grid[0][0] != "Bank Statement" {
		t.Errorf("BOM not stripped: %q", grid[0][0])
	}
	if len(grid[0]) != 1 || len(grid[3]) != 5 {
		t.Errorf("ragged rows not preserved: %d, %d cells", len(grid[0]), len(grid[3]))
	}
	if got := grid[2][2]; got != "UPI/1,2/SHAMBHU" {
		t.Errorf("quoted cell = %q", got)
	}
}

func TestReadGridFrom_Workbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]interface{}{
		{"HDFC Bank"},
		{"Date", "Narration", "Chq./Ref.No.", "Value Dt", "Withdrawal Amt.", "Deposit Amt.", "Closing Balance"},
		{"01/04/24", "UPI-SHAMBHU", "0000123", "01/04/24", "", "250", "1250"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}

	grid, err := ReadGridFrom(bytes.NewReader(buf.Bytes()), "statement.xlsx", "")
	if err != nil {
		t.Fatalf("ReadGridFrom() error = %v", err)
	}
	if len(grid) != 3 {
		t.Fatalf("got %d rows, want 3", len(grid))
	}

	result, err := Parse(grid, Options{MerchantKeyword: "SHAMBHU"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := Columns{Date: 0, ValueDate: 3, Particulars: 1, Debit: 4, Credit: 5, Balance: 6, Detected: true}
	if result.Columns != want {
		t.Errorf("Columns = %+v, want %+v", result.Columns, want)
	}
	if len(result.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(result.Transactions))
	}
	if got := result.Transactions[0].PaidAmount.String(); got != "250" {
		t.Errorf("PaidAmount = %s, want 250", got)
	}
}

func TestReadGridFrom_UnsupportedFormat(t *testing.T) {
	_, err := ReadGridFrom(strings.NewReader("%PDF-1.4"), "statement.pdf", "")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseFile_WrapsHeaderError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, []byte("nothing,here\n1,2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := ParseFile(path, "", Options{})
	if !errors.Is(err, ErrHeaderNotFound) {
		t.Fatalf("expected ErrHeaderNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "empty.csv") {
		t.Errorf("error %q does not name the file", err)
	}
}
