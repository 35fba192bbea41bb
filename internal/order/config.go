// =============================================================================
// Statement Order Replay - Order Document Configuration
// =============================================================================
//
// Everything the builder needs to know about the point of sale lives in an
// explicit Config value: menu prices, tax components, the product catalogue
// and the register the orders are booked against. Nothing here carries
// credentials; those belong to the remote client.
//
// =============================================================================

package order

import (
	"fmt"
	"time"

	"github.com/ginjaninja78/statement-order-replay/internal/menu"
	"github.com/shopspring/decimal"
)

// =============================================================================
// TAXES
// =============================================================================

// TaxComponent is one tax applied to every line, such as SGST or CGST.
type TaxComponent struct {
	ID   int             `json:"id"`
	Name string          `json:"name"`
	Code string          `json:"code"`
	Rate decimal.Decimal `json:"rate"`
}

// TaxConfig lists the tax components applied to each line.
type TaxConfig struct {
	Components []TaxComponent

	// Inclusive means menu prices already contain tax. The builder then
	// backs the tax out so that the document total matches the menu price.
	Inclusive bool
}

// DefaultTaxConfig is the 5% GST split into two co-equal 2.5% components.
func DefaultTaxConfig() TaxConfig {
	half := decimal.RequireFromString("0.025")
	return TaxConfig{
		Components: []TaxComponent{
			{ID: 10315, Name: "SGST", Code: "SGST", Rate: half},
			{ID: 10316, Name: "CGST", Code: "CGST", Rate: half},
		},
	}
}

// TotalRate is the sum of all component rates.
func (t TaxConfig) TotalRate() decimal.Decimal {
	total := decimal.Zero
	for _, c := range t.Components {
		total = total.Add(c.Rate)
	}
	return total
}

// =============================================================================
// CATALOGUE
// =============================================================================

// Product is the POS catalogue entry a menu item is booked as.
type Product struct {
	ProductID  int    `json:"productId" yaml:"product_id"`
	VariantID  int    `json:"variantId" yaml:"variant_id"`
	Name       string `json:"name" yaml:"name"`
	Code       string `json:"code" yaml:"code"`
	SKU        string `json:"sku" yaml:"sku"`
	CategoryID int    `json:"categoryId" yaml:"category_id"`
	FoodType   string `json:"foodType,omitempty" yaml:"food_type"`

	// Modifier is optional; zero ModifierID means the product has none.
	ModifierID      int    `json:"modifierId,omitempty" yaml:"modifier_id"`
	ModifierName    string `json:"modifierName,omitempty" yaml:"modifier_name"`
	ModifierGroupID int    `json:"modifierGroupId,omitempty" yaml:"modifier_group_id"`
}

// Catalogue maps menu items to POS products.
type Catalogue map[menu.ItemKind]Product

// DefaultCatalogue returns the stall's catalogue entries.
func DefaultCatalogue() Catalogue {
	return Catalogue{
		menu.FullPlate: {
			ProductID: 1339679, VariantID: 1336765, Name: "Stall Litti Chokha",
			Code: "1040", SKU: "1040", CategoryID: 194536, FoodType: "veg",
			ModifierID: 680845, ModifierName: "Full", ModifierGroupID: 249016,
		},
		menu.HalfPlate: {
			ProductID: 1339680, VariantID: 1336766, Name: "Stall Litti Chokha Half",
			Code: "1041", SKU: "1041", CategoryID: 194536, FoodType: "veg",
			ModifierID: 680846, ModifierName: "Half", ModifierGroupID: 249016,
		},
		menu.Water: {
			ProductID: 1339681, VariantID: 1336767, Name: "Water Bottle",
			Code: "1042", SKU: "1042", CategoryID: 194537, FoodType: "veg",
		},
		menu.Packing: {
			ProductID: 1339682, VariantID: 1336768, Name: "Packing Charges",
			Code: "1043", SKU: "1043", CategoryID: 194538, FoodType: "veg",
		},
	}
}

// =============================================================================
// REGISTER
// =============================================================================

// Register identifies where orders are booked and who books them.
type Register struct {
	CompanyID    int    `yaml:"company_id"`
	LocationID   int    `yaml:"location_id"`
	LocationName string `yaml:"location_name"`
	RegisterID   int    `yaml:"register_id"`
	RegisterName string `yaml:"register_name"`
	CashierID    int    `yaml:"cashier_id"`
	CashierName  string `yaml:"cashier_name"`
}

// Cashier returns the register's cashier as an Actor.
func (r Register) Cashier() Actor {
	return Actor{ID: r.CashierID, Name: r.CashierName}
}

// =============================================================================
// BUILDER CONFIG
// =============================================================================

// Config is the complete input to a Builder besides the transaction.
type Config struct {
	Prices    menu.PriceTable
	Tax       TaxConfig
	Catalogue Catalogue
	Register  Register

	// NumberPrefix is prepended to the sequential order number, e.g. "2/".
	NumberPrefix string

	// Location is the business time zone. Nil means UTC.
	Location *time.Location

	// Meta is passed through to every document unchanged (table layout,
	// order sub-type and similar vendor fields).
	Meta map[string]interface{}
}

// DefaultMeta is the takeaway table layout used when none is configured.
func DefaultMeta(tableID int) map[string]interface{} {
	return map[string]interface{}{
		"mode":          "restaurant",
		"sub_type":      "takeaway",
		"sub_type_text": "Takeaway",
		"table": map[string]interface{}{
			"id":         tableID,
			"name":       "Takeaway",
			"floor_name": "Take away",
			"name_text":  "Take away / Takeaway",
			"x":          5,
			"y":          5,
			"cover":      1,
			"details": map[string]interface{}{
				"size":        1,
				"type":        "ellipse",
				"orientation": "default",
			},
		},
	}
}

// Validate checks that the config can price and describe every menu item.
func (c Config) Validate() error {
	if err := c.Prices.Validate(); err != nil {
		return fmt.Errorf("invalid price table: %w", err)
	}

	for _, tc := range c.Tax.Components {
		if tc.Rate.IsNegative() {
			return fmt.Errorf("tax component %s has negative rate %s", tc.Code, tc.Rate)
		}
	}

	for _, kind := range menu.Kinds() {
		p, ok := c.Catalogue[kind]
		if !ok {
			return fmt.Errorf("catalogue has no product for %s", kind)
		}
		if p.Name == "" {
			return fmt.Errorf("catalogue product for %s has no name", kind)
		}
	}

	return nil
}
