package config

import (
	"crypto/rand"
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	CorsConfig
	SecurityConfig
	StoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetSeedDemoData() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type StoreConfig interface {
	GetDatabaseURL() string
}

type mainConfig struct {
	EnvVars
	Cors
	Security
	Store
}

// New reads the configuration from the environment. A .env file in the working
// directory is loaded first when present.
func New() (Config, error) {
	_ = godotenv.Load()

	s := settings{}
	if err := env.Parse(&s); err != nil {
		return nil, fmt.Errorf("[config.New] env.Parse: %w", err)
	}

	if s.SessionSecret == "" {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("[config.New] generating session secret: %w", err)
		}
		s.SessionSecret = string(secret)
		s.generatedSecret = true
	}

	return mainConfig{
		EnvVars:  EnvVars{s: &s},
		Cors:     Cors{s: &s},
		Security: Security{s: &s},
		Store:    Store{s: &s},
	}, nil
}
