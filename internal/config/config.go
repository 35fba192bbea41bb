// =============================================================================
// Statement Order Replay - Configuration Module
// =============================================================================
//
// This module loads the application configuration and converts it into the
// option structs of the processing packages.
//
// CONFIGURATION SOURCES:
//   1. Main Config (config.yaml): statement filters, menu, tax, catalogue,
//      POS endpoints, automation service, pacing and server settings.
//   2. Secrets: POS_AUTH_TOKEN, AUTOMATION_USERNAME and AUTOMATION_PASSWORD
//      are never read from the YAML file. They come from the environment or
//      a .env file; a variable set in the environment wins over .env.
//
// LOADING SEQUENCE:
//   read YAML -> apply defaults -> load secrets -> validate
//
// Secrets are only checked by ValidateReplay, so commands that never call
// the POS (parse, dry runs) work without them.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/ginjaninja78/statement-order-replay/internal/automation"
	"github.com/ginjaninja78/statement-order-replay/internal/logging"
	"github.com/ginjaninja78/statement-order-replay/internal/menu"
	"github.com/ginjaninja78/statement-order-replay/internal/order"
	"github.com/ginjaninja78/statement-order-replay/internal/posclient"
	"github.com/ginjaninja78/statement-order-replay/internal/replay"
	"github.com/ginjaninja78/statement-order-replay/internal/statement"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Environment variables holding secrets.
const (
	EnvPOSAuthToken       = "POS_AUTH_TOKEN"
	EnvAutomationUsername = "AUTOMATION_USERNAME"
	EnvAutomationPassword = "AUTOMATION_PASSWORD"
)

// DefaultEnvFile is the .env file read by LoadMainConfig.
const DefaultEnvFile = ".env"

// dateLayout is the format of statement.start_date and statement.end_date.
const dateLayout = "2006-01-02"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	Statement  StatementConfig  `yaml:"statement"`
	Menu       MenuConfig       `yaml:"menu"`
	Tax        TaxConfig        `yaml:"tax"`
	POS        POSConfig        `yaml:"pos"`
	Automation AutomationConfig `yaml:"automation"`
	Pacing     PacingConfig     `yaml:"pacing"`
	Server     ServerConfig     `yaml:"server"`

	// Catalogue maps item kinds (full_plate, half_plate, water, packing) to
	// POS products. Kinds left out use the built-in catalogue entry.
	Catalogue map[string]order.Product `yaml:"catalogue"`

	// OutputDir receives replay result files and error logs.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`
}

// =============================================================================
// SECTION STRUCTURES
// =============================================================================

// StatementConfig controls how statements are read and filtered.
type StatementConfig struct {
	// MerchantKeyword selects the merchant's credits by narration.
	// Empty keeps every credit row.
	MerchantKeyword string `yaml:"merchant_keyword"`

	// MatchMode is "suffix" (narration ends with the keyword) or "contains".
	// Default: "suffix"
	MatchMode string `yaml:"match_mode"`

	// CaseSensitive makes the merchant match case-sensitive.
	// Default: false
	CaseSensitive bool `yaml:"case_sensitive"`

	// StartDate and EndDate bound the statement dates, inclusive, as
	// YYYY-MM-DD. Either may be empty.
	StartDate string `yaml:"start_date"`
	EndDate   string `yaml:"end_date"`

	// Sheet is the worksheet to read from workbooks. Default: first sheet.
	Sheet string `yaml:"sheet"`

	// HeaderMarkers override the tokens that identify the header row.
	HeaderMarkers []string `yaml:"header_markers"`

	// MinColumns is the minimum cell count of a data row.
	// Default: 5
	MinColumns int `yaml:"min_columns"`

	// DateLayouts are Go time layouts tried when parsing statement dates.
	// Default: common Indian bank formats.
	DateLayouts []string `yaml:"date_layouts"`
}

// MenuConfig holds the unit price of each menu item.
// Default: 89 / 49 / 10 / 5
type MenuConfig struct {
	FullPlate float64 `yaml:"full_plate"`
	HalfPlate float64 `yaml:"half_plate"`
	Water     float64 `yaml:"water"`
	Packing   float64 `yaml:"packing"`
}

// TaxConfig lists the tax components applied to every line.
// Default: SGST 2.5% + CGST 2.5%, exclusive.
type TaxConfig struct {
	// Inclusive means menu prices already include tax.
	Inclusive bool `yaml:"inclusive"`

	Components []TaxComponentConfig `yaml:"components"`
}

// TaxComponentConfig is one tax, with Rate as a fraction (0.025 = 2.5%).
type TaxComponentConfig struct {
	ID   int     `yaml:"id"`
	Name string  `yaml:"name"`
	Code string  `yaml:"code"`
	Rate float64 `yaml:"rate"`
}

// POSConfig describes the POS backend and the register orders are booked on.
type POSConfig struct {
	// BaseURL is the sales API root. Bills are created at BaseURL + "/bills".
	BaseURL string `yaml:"base_url"`

	// SettleURL is the full URL settlements are posted to.
	SettleURL string `yaml:"settle_url"`

	// ClientHeader is sent as X-Client. Default: "Web-1.100.24"
	ClientHeader string `yaml:"client_header"`

	// Language is sent as X-Prime-Language. Default: "en"
	Language string `yaml:"language"`

	// Timeout bounds each POS call. Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	Register order.Register `yaml:"register"`

	// NumberPrefix is prepended to sequential order numbers, e.g. "2/".
	NumberPrefix string `yaml:"number_prefix"`

	// TimeZone is the IANA zone of the business day. Default: "Asia/Kolkata"
	TimeZone string `yaml:"time_zone"`

	// TableID is the takeaway table orders are booked against.
	TableID int `yaml:"table_id"`

	// AuthToken is read from POS_AUTH_TOKEN.
	AuthToken string `yaml:"-"`
}

// AutomationConfig describes the browser automation service.
type AutomationConfig struct {
	// ServiceURL is the automation endpoint.
	// Default: "http://localhost:3001/api/automation"
	ServiceURL string `yaml:"service_url"`

	// PortalURL is the POS web portal the browser logs into.
	PortalURL string `yaml:"portal_url"`

	// ShowBrowser runs the browser with a visible window.
	// Default: false (headless)
	ShowBrowser bool `yaml:"show_browser"`

	// Timeout bounds one browser session. Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// Username and Password are read from AUTOMATION_USERNAME and
	// AUTOMATION_PASSWORD.
	Username string `yaml:"-"`
	Password string `yaml:"-"`
}

// PacingConfig controls batch replay.
type PacingConfig struct {
	// Mode is "api" or "automation". Default: "api"
	Mode string `yaml:"mode"`

	// Delay is the minimum gap between successive orders. Default: 2s
	Delay time.Duration `yaml:"delay"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	// Addr is the listen address. Default: ":8080"
	Addr string `yaml:"addr"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file, with secrets
// from the environment and ./.env.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	return Load(configPath, DefaultEnvFile)
}

// Load is LoadMainConfig with an explicit .env path. An empty envFile, or
// one that does not exist, reads secrets from the environment only.
func Load(configPath, envFile string) (*MainConfig, error) {
	// Read the configuration file.
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse the YAML.
	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return finish(&config, envFile)
}

// Default returns the built-in configuration, with secrets from the
// environment and envFile. Used when no config file exists.
func Default(envFile string) (*MainConfig, error) {
	return finish(&MainConfig{}, envFile)
}

func finish(config *MainConfig, envFile string) (*MainConfig, error) {
	// Apply default values.
	applyMainConfigDefaults(config)

	if err := loadSecrets(config, envFile); err != nil {
		return nil, err
	}

	// Validate the configuration.
	if err := validateMainConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	// Statement defaults.
	if config.Statement.MatchMode == "" {
		config.Statement.MatchMode = string(statement.MatchSuffix)
	}
	if config.Statement.MinColumns == 0 {
		config.Statement.MinColumns = 5
	}

	// Menu defaults. A partially configured menu keeps its own prices.
	if config.Menu == (MenuConfig{}) {
		def := menu.DefaultPriceTable()
		config.Menu = MenuConfig{
			FullPlate: def.FullPlate.InexactFloat64(),
			HalfPlate: def.HalfPlate.InexactFloat64(),
			Water:     def.Water.InexactFloat64(),
			Packing:   def.Packing.InexactFloat64(),
		}
	}

	// Tax defaults.
	if len(config.Tax.Components) == 0 {
		for _, tc := range order.DefaultTaxConfig().Components {
			config.Tax.Components = append(config.Tax.Components, TaxComponentConfig{
				ID:   tc.ID,
				Name: tc.Name,
				Code: tc.Code,
				Rate: tc.Rate.InexactFloat64(),
			})
		}
	}

	// Catalogue defaults, per kind.
	if config.Catalogue == nil {
		config.Catalogue = make(map[string]order.Product)
	}
	for kind, product := range order.DefaultCatalogue() {
		if _, ok := lookupProduct(config.Catalogue, kind); !ok {
			config.Catalogue[string(kind)] = product
		}
	}

	// POS defaults.
	if config.POS.ClientHeader == "" {
		config.POS.ClientHeader = "Web-1.100.24"
	}
	if config.POS.Language == "" {
		config.POS.Language = "en"
	}
	if config.POS.Timeout == 0 {
		config.POS.Timeout = 30 * time.Second
	}
	if config.POS.TimeZone == "" {
		config.POS.TimeZone = "Asia/Kolkata"
	}
	if config.POS.Register.LocationName == "" {
		config.POS.Register.LocationName = "Stall"
	}
	if config.POS.Register.RegisterName == "" {
		config.POS.Register.RegisterName = config.POS.Register.LocationName + " - POS"
	}
	if config.POS.Register.CashierName == "" {
		config.POS.Register.CashierName = "Cashier"
	}

	// Automation defaults.
	if config.Automation.ServiceURL == "" {
		config.Automation.ServiceURL = "http://localhost:3001/api/automation"
	}
	if config.Automation.Timeout == 0 {
		config.Automation.Timeout = 60 * time.Second
	}

	// Pacing defaults.
	if config.Pacing.Mode == "" {
		config.Pacing.Mode = string(replay.ModeAPI)
	}
	if config.Pacing.Delay == 0 {
		config.Pacing.Delay = 2 * time.Second
	}

	// Server defaults.
	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
}

// loadSecrets fills the credential fields. Values from envFile act as
// defaults beneath the process environment.
func loadSecrets(config *MainConfig, envFile string) error {
	v := viper.New()
	v.AutomaticEnv()

	if envFile != "" {
		values, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read %s: %w", envFile, err)
		}
		for key, value := range values {
			v.SetDefault(key, value)
		}
	}

	config.POS.AuthToken = v.GetString(EnvPOSAuthToken)
	config.Automation.Username = v.GetString(EnvAutomationUsername)
	config.Automation.Password = v.GetString(EnvAutomationPassword)
	return nil
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", config.LogLevel)
	}

	if _, err := statement.ParseMatchMode(config.Statement.MatchMode); err != nil {
		return fmt.Errorf("statement.match_mode: %w", err)
	}
	if _, err := config.dateRange(); err != nil {
		return err
	}
	if config.Statement.MinColumns < 1 {
		return fmt.Errorf("statement.min_columns must be positive, got %d", config.Statement.MinColumns)
	}

	for key := range config.Catalogue {
		if _, err := menu.ParseItemKind(key); err != nil {
			return fmt.Errorf("catalogue: %w", err)
		}
	}

	if _, err := config.OrderConfig(); err != nil {
		return err
	}

	if _, err := replay.ParseMode(config.Pacing.Mode); err != nil {
		return fmt.Errorf("pacing.mode: %w", err)
	}
	if config.Pacing.Delay < 0 {
		return fmt.Errorf("pacing.delay must not be negative, got %s", config.Pacing.Delay)
	}

	return nil
}

// ValidateReplay checks that everything needed to replay in mode is
// configured, including secrets.
func (c *MainConfig) ValidateReplay(mode replay.Mode) error {
	var missing []string

	switch mode {
	case replay.ModeAutomation:
		if c.Automation.ServiceURL == "" {
			missing = append(missing, "automation.service_url")
		}
		if c.Automation.PortalURL == "" {
			missing = append(missing, "automation.portal_url")
		}
		if c.Automation.Username == "" {
			missing = append(missing, EnvAutomationUsername)
		}
		if c.Automation.Password == "" {
			missing = append(missing, EnvAutomationPassword)
		}
	default:
		if c.POS.BaseURL == "" {
			missing = append(missing, "pos.base_url")
		}
		if c.POS.SettleURL == "" {
			missing = append(missing, "pos.settle_url")
		}
		if c.POS.AuthToken == "" {
			missing = append(missing, EnvPOSAuthToken)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%s replay requires %s", mode, strings.Join(missing, ", "))
	}
	return nil
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// StatementOptions returns the parser options for this configuration.
func (c *MainConfig) StatementOptions(logger logging.Logger) (statement.Options, error) {
	mode, err := statement.ParseMatchMode(c.Statement.MatchMode)
	if err != nil {
		return statement.Options{}, err
	}
	dates, err := c.dateRange()
	if err != nil {
		return statement.Options{}, err
	}

	return statement.Options{
		HeaderMarkers:   c.Statement.HeaderMarkers,
		MinColumns:      c.Statement.MinColumns,
		MerchantKeyword: c.Statement.MerchantKeyword,
		MatchMode:       mode,
		CaseSensitive:   c.Statement.CaseSensitive,
		DateRange:       dates,
		DateLayouts:     c.Statement.DateLayouts,
		Prices:          c.PriceTable(),
		Logger:          logger,
	}, nil
}

// PriceTable returns the configured menu prices.
func (c *MainConfig) PriceTable() menu.PriceTable {
	return menu.NewPriceTable(c.Menu.FullPlate, c.Menu.HalfPlate, c.Menu.Water, c.Menu.Packing)
}

// OrderConfig returns the document builder configuration.
func (c *MainConfig) OrderConfig() (order.Config, error) {
	loc, err := time.LoadLocation(c.POS.TimeZone)
	if err != nil {
		return order.Config{}, fmt.Errorf("pos.time_zone: %w", err)
	}

	tax := order.TaxConfig{Inclusive: c.Tax.Inclusive}
	for _, tc := range c.Tax.Components {
		tax.Components = append(tax.Components, order.TaxComponent{
			ID:   tc.ID,
			Name: tc.Name,
			Code: tc.Code,
			Rate: decimal.NewFromFloat(tc.Rate),
		})
	}

	catalogue := make(order.Catalogue, len(menu.Kinds()))
	for _, kind := range menu.Kinds() {
		if product, ok := lookupProduct(c.Catalogue, kind); ok {
			catalogue[kind] = product
		}
	}

	cfg := order.Config{
		Prices:       c.PriceTable(),
		Tax:          tax,
		Catalogue:    catalogue,
		Register:     c.POS.Register,
		NumberPrefix: c.POS.NumberPrefix,
		Location:     loc,
		Meta:         order.DefaultMeta(c.POS.TableID),
	}
	if err := cfg.Validate(); err != nil {
		return order.Config{}, err
	}
	return cfg, nil
}

// ClientConfig returns the POS client configuration.
func (c *MainConfig) ClientConfig() posclient.Config {
	return posclient.Config{
		BaseURL:      c.POS.BaseURL,
		SettleURL:    c.POS.SettleURL,
		AuthToken:    c.POS.AuthToken,
		ClientHeader: c.POS.ClientHeader,
		Language:     c.POS.Language,
		Timeout:      c.POS.Timeout,
	}
}

// ReplayConfig returns the runner configuration for mode. An empty mode
// uses pacing.mode.
func (c *MainConfig) ReplayConfig(mode string) (replay.Config, error) {
	if mode == "" {
		mode = c.Pacing.Mode
	}
	m, err := replay.ParseMode(mode)
	if err != nil {
		return replay.Config{}, err
	}

	return replay.Config{
		Mode:    m,
		Delay:   c.Pacing.Delay,
		Settler: c.POS.Register.Cashier(),
		Credentials: automation.Credentials{
			PortalURL: c.Automation.PortalURL,
			Username:  c.Automation.Username,
			Password:  c.Automation.Password,
		},
		Headless:          !c.Automation.ShowBrowser,
		AutomationTimeout: c.Automation.Timeout,
	}, nil
}

// dateRange parses the configured statement date bounds.
func (c *MainConfig) dateRange() (statement.DateRange, error) {
	var r statement.DateRange
	var err error

	if c.Statement.StartDate != "" {
		if r.Start, err = time.Parse(dateLayout, c.Statement.StartDate); err != nil {
			return r, fmt.Errorf("statement.start_date must be YYYY-MM-DD, got %q", c.Statement.StartDate)
		}
	}
	if c.Statement.EndDate != "" {
		if r.End, err = time.Parse(dateLayout, c.Statement.EndDate); err != nil {
			return r, fmt.Errorf("statement.end_date must be YYYY-MM-DD, got %q", c.Statement.EndDate)
		}
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return r, fmt.Errorf("statement.end_date %s is before start_date %s", c.Statement.EndDate, c.Statement.StartDate)
	}
	return r, nil
}

// lookupProduct finds the catalogue entry for kind under any of the names
// menu.ParseItemKind accepts.
func lookupProduct(catalogue map[string]order.Product, kind menu.ItemKind) (order.Product, bool) {
	for key, product := range catalogue {
		if k, err := menu.ParseItemKind(key); err == nil && k == kind {
			return product, true
		}
	}
	return order.Product{}, false
}
