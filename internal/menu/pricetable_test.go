package menu

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPriceTableValidate(t *testing.T) {
	tests := []struct {
		name    string
		table   PriceTable
		wantErr bool
	}{
		{"default table", DefaultPriceTable(), false},
		{"water equals packing", NewPriceTable(89, 49, 5, 5), false},
		{"half above full", NewPriceTable(49, 89, 10, 5), true},
		{"zero price", NewPriceTable(89, 49, 10, 0), true},
		{"negative price", NewPriceTable(89, -49, 10, 5), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCompositionCost(t *testing.T) {
	c := Composition{FullPlate: 2, HalfPlate: 1, Water: 3, Packing: 1}
	got := c.Cost(DefaultPriceTable())
	want := decimal.NewFromInt(2*89 + 49 + 3*10 + 5)
	if !got.Equal(want) {
		t.Errorf("got %s, want %s", got, want)
	}
	if c.Items() != 7 {
		t.Errorf("items: got %d, want 7", c.Items())
	}
}

func TestCheapest(t *testing.T) {
	if got := DefaultPriceTable().Cheapest(); !got.Equal(decimal.NewFromInt(5)) {
		t.Errorf("got %s, want 5", got)
	}
}

func TestParseItemKind(t *testing.T) {
	tests := []struct {
		input   string
		want    ItemKind
		wantErr bool
	}{
		{"full_plate", FullPlate, false},
		{"fullPlate", FullPlate, false},
		{"Half Plate", HalfPlate, false},
		{"water", Water, false},
		{"packing-charges", Packing, false},
		{"dessert", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseItemKind(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
