// Package config loads server configuration from RECEIPT_ environment
// variables, flags and YAML files.
package config

import (
	"slices"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"go.uber.org/zap/zapcore"

	"github.com/thereceipt/parcel-receipt/internal/store"
)

// DefaultFiles are tried in order; missing files are skipped.
var DefaultFiles = []string{"receipt.yaml", "/etc/parcel-receipt/receipt.yaml"}

// Config holds the complete application configuration.
type Config struct {
	Addr     string        `default:"0.0.0.0:12212" usage:"API server listen address" yaml:"addr"`
	Headless bool          `default:"false" usage:"Run without the terminal UI" yaml:"headless"`
	Log      LogConfig     `yaml:"log"`
	Receipt  ReceiptConfig `yaml:"receipt"`
	Store    StoreConfig   `yaml:"store"`
	Printers []string      `usage:"Printer targets such as counter=network://10.0.0.5:9100" yaml:"printers"`
	Print    PrintConfig   `yaml:"print"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `default:"info" usage:"Log level (debug, info, warn, error)" yaml:"level"`
	Dev   bool   `default:"false" usage:"Human-readable console logs" yaml:"dev"`
}

// ReceiptConfig controls receipt numbering and appearance.
type ReceiptConfig struct {
	Prefix     string `default:"S36" usage:"Receipt number prefix" yaml:"prefix"`
	Title      string `usage:"Receipt title (language default when empty)" yaml:"title"`
	ShopName   string `usage:"Shop name printed under the title" yaml:"shop_name"`
	PaperWidth string `default:"80mm" usage:"Paper width: 58mm, 80mm or 112mm" yaml:"paper_width"`
	Language   string `default:"th" usage:"Label language: th or en" yaml:"language"`
	Logo       string `usage:"Logo image printed at the top" yaml:"logo"`
	Font       string `usage:"TrueType font file" yaml:"font"`
	QRCode     bool   `default:"false" usage:"Print the receipt number as a QR code" yaml:"qr_code"`
	Template   string `usage:"Custom .receipt layout file" yaml:"template"`
	Timezone   string `default:"Asia/Bangkok" usage:"Timezone that decides the receipt date" yaml:"timezone"`
}

// StoreConfig selects where the receipt counter is persisted.
type StoreConfig struct {
	Driver      string `default:"file" usage:"Counter store: memory, file or postgres" yaml:"driver"`
	Path        string `usage:"Counter file (next to the executable when empty)" yaml:"path"`
	DatabaseURL string `usage:"PostgreSQL connection URL for the postgres driver" yaml:"database_url"`
	Key         string `default:"receiptCounter" usage:"Storage key of the counter record" yaml:"key"`
}

// PrintConfig controls the print queue.
type PrintConfig struct {
	Retries    int           `default:"3" usage:"Attempts before a print job fails" yaml:"retries"`
	RetryDelay time.Duration `default:"1s" usage:"Wait between print attempts" yaml:"retry_delay"`
}

// Load reads configuration from DefaultFiles, RECEIPT_ environment variables
// and args, in increasing priority.
func Load(args []string) (*Config, error) {
	return load(DefaultFiles, args)
}

func load(files, args []string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "RECEIPT",
		Files:     files,
		Args:      args,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
			".yml":  aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values aconfig cannot.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}

	drivers := []string{store.DriverMemory, store.DriverFile, store.DriverPostgres}
	if !slices.Contains(drivers, c.Store.Driver) {
		return errors.Errorf("store.driver must be one of %s, got %q", strings.Join(drivers, ", "), c.Store.Driver)
	}
	if c.Store.Driver == store.DriverPostgres && c.Store.DatabaseURL == "" {
		return errors.New("store.database_url is required for the postgres driver")
	}

	if !slices.Contains([]string{"58mm", "80mm", "112mm"}, c.Receipt.PaperWidth) {
		return errors.Errorf("receipt.paper_width must be 58mm, 80mm or 112mm, got %q", c.Receipt.PaperWidth)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Print.Retries < 1 {
		return errors.Errorf("print.retries must be at least 1, got %d", c.Print.Retries)
	}
	return nil
}

// Location returns the configured timezone. Empty means the local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Receipt.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Receipt.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "receipt.timezone %q", c.Receipt.Timezone)
	}
	return loc, nil
}
