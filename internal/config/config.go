package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Selection policy names accepted in CLINIC_SELECTION_POLICY.
const (
	PolicyLeastLoaded = "least-loaded"
	PolicyRandom      = "random"
)

type Config struct {
	Env             string `mapstructure:"ENV"`
	DataDir         string `mapstructure:"CLINIC_DATA_DIR"`
	Passphrase      string `mapstructure:"CLINIC_PASSPHRASE"`
	KDFSalt         string `mapstructure:"CLINIC_KDF_SALT"`
	SelectionPolicy string `mapstructure:"CLINIC_SELECTION_POLICY"`
	OpeningHour     int    `mapstructure:"CLINIC_OPENING_HOUR"`
	ClosingHour     int    `mapstructure:"CLINIC_CLOSING_HOUR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("CLINIC_DATA_DIR", "./data")
	v.SetDefault("CLINIC_KDF_SALT", "clinic-at-rest")
	v.SetDefault("CLINIC_SELECTION_POLICY", PolicyLeastLoaded)
	v.SetDefault("CLINIC_OPENING_HOUR", 8)
	v.SetDefault("CLINIC_CLOSING_HOUR", 17)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("ENV")
	v.BindEnv("CLINIC_DATA_DIR")
	v.BindEnv("CLINIC_PASSPHRASE")
	v.BindEnv("CLINIC_KDF_SALT")
	v.BindEnv("CLINIC_SELECTION_POLICY")
	v.BindEnv("CLINIC_OPENING_HOUR")
	v.BindEnv("CLINIC_CLOSING_HOUR")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is safe to run with. The passphrase
// has no default: records are encrypted at rest and a silently defaulted key
// would lock a clinic out of its own data the first time the default changed.
func (c *Config) Validate() error {
	if c.Passphrase == "" {
		return fmt.Errorf("CLINIC_PASSPHRASE is required")
	}
	switch c.SelectionPolicy {
	case PolicyLeastLoaded, PolicyRandom:
	default:
		return fmt.Errorf("CLINIC_SELECTION_POLICY must be %q or %q, got %q",
			PolicyLeastLoaded, PolicyRandom, c.SelectionPolicy)
	}
	if c.OpeningHour < 0 || c.ClosingHour > 24 || c.OpeningHour >= c.ClosingHour {
		return fmt.Errorf("working hours %d-%d are invalid", c.OpeningHour, c.ClosingHour)
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}
