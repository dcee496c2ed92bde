package config

import (
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Catalog   CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	Impact    ImpactConfig    `yaml:"impact" mapstructure:"impact"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Selection SelectionConfig `yaml:"selection" mapstructure:"selection"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CatalogConfig locates the catalog table and sale point reference data.
type CatalogConfig struct {
	Source     string `yaml:"source" mapstructure:"source"`
	Delimiter  string `yaml:"delimiter" mapstructure:"delimiter"`
	Charset    string `yaml:"charset" mapstructure:"charset"`
	Sheet      string `yaml:"sheet" mapstructure:"sheet"`
	SalePoints string `yaml:"sale_points" mapstructure:"sale_points"`
}

// DelimiterRune returns the configured delimiter, defaulting to a comma.
func (c CatalogConfig) DelimiterRune() rune {
	if c.Delimiter == "" {
		return ','
	}
	if c.Delimiter == `\t` {
		return '\t'
	}
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}

// ImpactConfig locates per-entry impact records.
type ImpactConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// FetchConfig configures outbound downloads.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`

	// Per-host circuit breaker. A zero threshold disables it.
	BreakerThreshold int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// SelectionConfig bounds user choices.
type SelectionConfig struct {
	MaxSugarLevel int `yaml:"max_sugar_level" mapstructure:"max_sugar_level"`
}

// PricingConfig holds the hidden cost rates per customization.
type PricingConfig struct {
	Caffeine      float64        `yaml:"caffeine" mapstructure:"caffeine"`
	SugarPerLevel float64        `yaml:"sugar_per_level" mapstructure:"sugar_per_level"`
	Milk          MilkRateConfig `yaml:"milk" mapstructure:"milk"`
}

// MilkRateConfig holds the hidden cost of each milk type.
type MilkRateConfig struct {
	Cow            float64 `yaml:"cow" mapstructure:"cow"`
	Almond         float64 `yaml:"almond" mapstructure:"almond"`
	Soy            float64 `yaml:"soy" mapstructure:"soy"`
	LactoseFreeCow float64 `yaml:"clf" mapstructure:"clf"`
	Oat            float64 `yaml:"oat" mapstructure:"oat"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	CORSOrigins    []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RequestTimeout int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TRUEPRICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("catalog.source", "data/catalog.csv")
	v.SetDefault("catalog.delimiter", ",")
	v.SetDefault("catalog.charset", "utf-8")
	v.SetDefault("catalog.sheet", "")
	v.SetDefault("catalog.sale_points", "")
	v.SetDefault("impact.base_url", "data/impacts")
	v.SetDefault("impact.cache_ttl_hours", 24)
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_attempts", 1)
	v.SetDefault("fetch.rate_per_sec", 10)
	v.SetDefault("fetch.user_agent", "trueprice/1.0")
	v.SetDefault("fetch.breaker_threshold", 5)
	v.SetDefault("fetch.breaker_reset_secs", 30)
	v.SetDefault("selection.max_sugar_level", 5)
	v.SetDefault("pricing.caffeine", 0.50)
	v.SetDefault("pricing.sugar_per_level", 0.10)
	v.SetDefault("pricing.milk.cow", 0.30)
	v.SetDefault("pricing.milk.almond", 0.30)
	v.SetDefault("pricing.milk.soy", 0.30)
	v.SetDefault("pricing.milk.clf", 0.30)
	v.SetDefault("pricing.milk.oat", 0.30)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "trueprice.db")
	v.SetDefault("store.max_conns", 0)
	v.SetDefault("store.min_conns", 0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.request_timeout_secs", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "catalog":
		errs = append(errs, c.validateCatalog()...)
	case "quote":
		errs = append(errs, c.validateCatalog()...)
		errs = append(errs, c.validatePricing()...)
	case "serve":
		errs = append(errs, c.validateCatalog()...)
		errs = append(errs, c.validatePricing()...)
		errs = append(errs, c.validateStore()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	case "cache":
		errs = append(errs, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Selection.MaxSugarLevel < 1 || c.Selection.MaxSugarLevel > 20 {
		errs = append(errs, "selection.max_sugar_level must be between 1 and 20")
	}
	if c.Fetch.MaxAttempts < 1 {
		errs = append(errs, "fetch.max_attempts must be >= 1")
	}
	if c.Fetch.BreakerThreshold < 0 {
		errs = append(errs, "fetch.breaker_threshold must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateCatalog() []string {
	var errs []string
	if c.Catalog.Source == "" {
		errs = append(errs, "catalog.source is required")
	}
	if utf8.RuneCountInString(c.Catalog.Delimiter) > 1 && c.Catalog.Delimiter != `\t` {
		errs = append(errs, "catalog.delimiter must be a single character")
	}
	if c.Impact.BaseURL == "" {
		errs = append(errs, "impact.base_url is required")
	}
	return errs
}

func (c *Config) validatePricing() []string {
	p := c.Pricing
	for _, v := range []float64{p.Caffeine, p.SugarPerLevel, p.Milk.Cow, p.Milk.Almond, p.Milk.Soy, p.Milk.LactoseFreeCow, p.Milk.Oat} {
		if v < 0 {
			return []string{"pricing rates must be >= 0"}
		}
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch strings.ToLower(c.Store.Driver) {
	case "sqlite", "postgres", "postgresql", "pgx":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
