package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App            AppConfig            `mapstructure:"app"`
	Server         ServerConfig         `mapstructure:"server"`
	Log            LogConfig            `mapstructure:"log"`
	DB             DBConfig             `mapstructure:"db"`
	Cron           CronConfig           `mapstructure:"cron"`
	TokenLedger    TokenLedgerConfig    `mapstructure:"token_ledger"`
	PaymentLedger  PaymentLedgerConfig  `mapstructure:"payment_ledger"`
	Registry       RegistryConfig       `mapstructure:"registry"`
	Marketplace    MarketplaceConfig    `mapstructure:"marketplace"`
	ListingSync    ListingSyncConfig    `mapstructure:"listing_sync"`
	RegistryStream RegistryStreamConfig `mapstructure:"registry_stream"`
	Reconcile      ReconcileConfig      `mapstructure:"reconcile"`
	Notify         NotifyConfig         `mapstructure:"notify"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ListingSync string `mapstructure:"listing_sync"`
}

type TokenLedgerConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PaymentLedgerConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RegistryConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MarketplaceConfig struct {
	// Spender is the marketplace contract principal named in ledger approvals.
	Spender     string        `mapstructure:"spender"`
	ApprovalTTL time.Duration `mapstructure:"approval_ttl"`
}

type ListingSyncConfig struct {
	PageLimit int  `mapstructure:"page_limit"`
	MaxPages  int  `mapstructure:"max_pages"`
	Resume    bool `mapstructure:"resume"`
}

type RegistryStreamConfig struct {
	URL string `mapstructure:"url"`
}

type ReconcileConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	ScanInterval time.Duration `mapstructure:"scan_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

type NotifyConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("IPM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.listing_sync", "@every 5m")
	v.SetDefault("token_ledger.base_url", "http://localhost:4943/ledger/ip721")
	v.SetDefault("token_ledger.timeout", "15s")
	v.SetDefault("payment_ledger.base_url", "http://localhost:4943/ledger/payment")
	v.SetDefault("payment_ledger.timeout", "15s")
	v.SetDefault("registry.base_url", "http://localhost:4943/registry")
	v.SetDefault("registry.timeout", "15s")
	v.SetDefault("marketplace.spender", "")
	v.SetDefault("marketplace.approval_ttl", "0s")
	v.SetDefault("listing_sync.page_limit", 200)
	v.SetDefault("listing_sync.max_pages", 10)
	v.SetDefault("listing_sync.resume", true)
	v.SetDefault("registry_stream.url", "")
	v.SetDefault("reconcile.enabled", true)
	v.SetDefault("reconcile.scan_interval", "1m")
	v.SetDefault("reconcile.batch_size", 50)
	v.SetDefault("notify.base_url", "")
	v.SetDefault("notify.api_key", "")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
