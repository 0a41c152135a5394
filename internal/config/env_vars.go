package config

import (
	"fmt"
	"strings"
	"time"
)

// settings is the raw environment, parsed once by New.
type settings struct {
	Port          string `env:"PORT" envDefault:"8080"`
	AppName       string `env:"APP_NAME" envDefault:"Tenant Notes"`
	Env           string `env:"ENV" envDefault:"DEV"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	SeedDemoData  string `env:"SEED_DEMO_DATA"`
	DatabaseURL   string `env:"DATABASE_URL"`
	SessionSecret string `env:"SESSION_SECRET"`

	MaxSessionAge      time.Duration `env:"MAX_SESSION_AGE" envDefault:"24h"`
	LoginRatePerSecond float64       `env:"LOGIN_RATE_PER_SECOND" envDefault:"5"`
	LoginBurst         int           `env:"LOGIN_BURST" envDefault:"10"`
	AllowedOrigins     []string      `env:"ALLOWED_ORIGINS" envSeparator:","`

	generatedSecret bool
}

type EnvVars struct {
	s *settings
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.s.Port
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.s.AppName
}

func (e EnvVars) GetEnv() string {
	if e.s.Env == "" {
		return "DEV"
	}
	return strings.ToUpper(e.s.Env)
}

func (e EnvVars) GetLogLevel() string {
	return e.s.LogLevel
}

// GetSeedDemoData reports whether the demo tenants are loaded at startup.
// Unset means "only in DEV".
func (e EnvVars) GetSeedDemoData() bool {
	switch strings.ToLower(e.s.SeedDemoData) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return e.GetEnv() == "DEV"
}

type Store struct {
	s *settings
}

var _ StoreConfig = Store{}

// GetDatabaseURL returns the Postgres DSN; empty selects the in-memory store.
func (st Store) GetDatabaseURL() string {
	return st.s.DatabaseURL
}
