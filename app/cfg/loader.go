package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Miniflux server configuration
	ServerURL string `long:"server-url" env:"MINIFLUX_SERVER_URL" description:"Miniflux server URL (e.g., https://reader.example.com)"`
	APIToken  string `long:"api-token" env:"MINIFLUX_API_TOKEN" description:"Miniflux API token"`
	Username  string `long:"username" env:"MINIFLUX_USERNAME" description:"Miniflux username (basic auth)"`
	Password  string `long:"password" env:"MINIFLUX_PASSWORD" description:"Miniflux password (basic auth)"`

	// Accounts registry
	Account      string `long:"account" env:"ACCOUNT" description:"Named account from the accounts file"`
	AccountsFile string `long:"accounts-file" env:"ACCOUNTS_FILE" default:"./accounts.yml" description:"Path to the accounts registry file"`

	// Application configuration
	DBPath       string `long:"db-path" env:"DB_PATH" default:"./minikyu.db" description:"Path to the SQLite database file"`
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	SyncInterval int    `long:"sync-interval" env:"SYNC_INTERVAL" default:"300" description:"Background sync interval in seconds (0 disables the scheduler)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Minikyu/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		ServerURL:    raw.ServerURL,
		APIToken:     raw.APIToken,
		Username:     raw.Username,
		Password:     raw.Password,
		Account:      raw.Account,
		AccountsFile: raw.AccountsFile,
		DBPath:       raw.DBPath,
		Port:         raw.Port,
		SyncInterval: raw.SyncInterval,
		APIAccessKey: raw.APIAccessKey,
		UserAgent:    raw.UserAgent,
		Timezone:     raw.Timezone,
		Debug:        raw.Debug,
		Version:      GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
