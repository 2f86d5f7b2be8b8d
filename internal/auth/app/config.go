package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Challenge store drivers selectable through AUTH_CHALLENGE_STORE.
const (
	ChallengeStoreMemory = "memory"
	ChallengeStoreSQLite = "sqlite"
)

// minSecretLen matches the HS256 key floor enforced by jwtx.
const minSecretLen = 32

type Config struct {
	Issuer string `env:"AUTH_ISSUER" envDefault:"liftlog-auth"`

	AccessSecret  string `env:"AUTH_ACCESS_SECRET"`
	RefreshSecret string `env:"AUTH_REFRESH_SECRET"`

	// ProviderToken is the identity provider's bot token; the signed-payload
	// verification key is derived from it.
	ProviderToken        string        `env:"AUTH_PROVIDER_TOKEN"`
	SignedPayloadMaxAge  time.Duration `env:"AUTH_SIGNED_PAYLOAD_MAX_AGE" envDefault:"0s"`
	AccessTTL            time.Duration `env:"AUTH_ACCESS_TTL"             envDefault:"1h"`
	RefreshTTL           time.Duration `env:"AUTH_REFRESH_TTL"            envDefault:"720h"`
	ChallengeTTL         time.Duration `env:"AUTH_CHALLENGE_TTL"          envDefault:"5m"`
	RegistrationTTL      time.Duration `env:"AUTH_REGISTRATION_TTL"       envDefault:"15m"`
	ChallengeStore       string        `env:"AUTH_CHALLENGE_STORE"        envDefault:"memory"`
	DatabaseFile         string        `env:"AUTH_DATABASE_FILE"          envDefault:"auth.db"`
	CookieSecureOverride bool          `env:"AUTH_COOKIE_SECURE"`

	Env                  string        `env:"ENV"                   envDefault:"dev"`
	LogLevel             string        `env:"LOG_LEVEL"             envDefault:"info"`
	LogFormat            string        `env:"LOG_FORMAT"            envDefault:"json"`
	Port                 int           `env:"PORT"                  envDefault:"8080"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1m"`
}

// LoadConfig reads the configuration from the environment and validates it.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first configuration problem that would stop the
// service from issuing tokens safely.
func (c Config) Validate() error {
	switch {
	case c.AccessSecret == "":
		return errors.New("config: AUTH_ACCESS_SECRET is required")
	case c.RefreshSecret == "":
		return errors.New("config: AUTH_REFRESH_SECRET is required")
	case len(c.AccessSecret) < minSecretLen:
		return fmt.Errorf("config: AUTH_ACCESS_SECRET must be at least %d bytes", minSecretLen)
	case len(c.RefreshSecret) < minSecretLen:
		return fmt.Errorf("config: AUTH_REFRESH_SECRET must be at least %d bytes", minSecretLen)
	case c.AccessSecret == c.RefreshSecret:
		return errors.New("config: AUTH_ACCESS_SECRET and AUTH_REFRESH_SECRET must differ")
	case c.ProviderToken == "":
		return errors.New("config: AUTH_PROVIDER_TOKEN is required")
	}

	switch c.ChallengeStore {
	case ChallengeStoreMemory, ChallengeStoreSQLite:
	default:
		return fmt.Errorf("config: unknown AUTH_CHALLENGE_STORE %q", c.ChallengeStore)
	}

	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("config: token lifetimes must be positive")
	}
	if c.ChallengeTTL <= 0 || c.RegistrationTTL <= 0 {
		return errors.New("config: challenge and registration lifetimes must be positive")
	}
	if c.SignedPayloadMaxAge < 0 {
		return errors.New("config: AUTH_SIGNED_PAYLOAD_MAX_AGE must not be negative")
	}
	return nil
}

// CookieSecure reports whether the refresh cookie carries the Secure
// attribute. Production always sets it.
func (c Config) CookieSecure() bool {
	return c.Env == "prod" || c.CookieSecureOverride
}
