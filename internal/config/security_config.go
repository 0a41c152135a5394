package config

import "time"

type SecurityConfig interface {
	GetSessionSecret() []byte
	GetSessionSecretGenerated() bool
	GetMaxSessionAge() time.Duration
	GetLoginRatePerSecond() float64
	GetLoginBurst() int
}

type Security struct {
	s *settings
}

var _ SecurityConfig = Security{}

// GetSessionSecret returns the HMAC key for session tokens.
func (sc Security) GetSessionSecret() []byte {
	return []byte(sc.s.SessionSecret)
}

// GetSessionSecretGenerated is true when SESSION_SECRET was unset and a random
// key was generated; sessions then do not survive a restart.
func (sc Security) GetSessionSecretGenerated() bool {
	return sc.s.generatedSecret
}

func (sc Security) GetMaxSessionAge() time.Duration {
	return sc.s.MaxSessionAge
}

func (sc Security) GetLoginRatePerSecond() float64 {
	return sc.s.LoginRatePerSecond
}

func (sc Security) GetLoginBurst() int {
	return sc.s.LoginBurst
}
