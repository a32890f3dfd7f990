// Package config loads the command line configuration from flags, the
// environment (JOSE_*) and an optional jose.yaml file.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jose-engine/jose/internal/logging"
	"github.com/jose-engine/jose/pkg/jwa"
)

// EnvPrefix prefixes every environment variable, e.g. JOSE_ALGORITHM.
const EnvPrefix = "JOSE"

// Config holds the settings shared by the jose commands.
type Config struct {
	LogLevel  string `mapstructure:"log_level" default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" default:"console" validate:"oneof=json console"`

	Algorithm string `mapstructure:"algorithm" default:"RS256" validate:"required,algorithm"`
	Type      string `mapstructure:"type" default:"JWT"`
	AllowNone bool   `mapstructure:"allow_none"`

	KeyFile  string `mapstructure:"key_file"`
	JWKSFile string `mapstructure:"jwks_file"`
	JWKSURL  string `mapstructure:"jwks_url" validate:"omitempty,url"`

	HTTPTimeout time.Duration `mapstructure:"http_timeout" default:"10s" validate:"gt=0"`
}

// Default returns a Config holding only default values.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic("failed to set config defaults: " + err.Error())
	}
	return cfg
}

// Keys returns the configuration keys in declaration order.
func Keys() []string {
	t := reflect.TypeOf(Config{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		keys = append(keys, t.Field(i).Tag.Get("mapstructure"))
	}
	return keys
}

// Load reads configuration into a Config. Values come, from highest to
// lowest precedence, from flags bound to v, JOSE_* environment variables,
// the config file and the struct defaults. When configFile is empty,
// jose.yaml is searched for in the working directory and in
// $HOME/.config/jose; a missing file is not an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("jose")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/jose")
	}

	cfg := Default()

	for _, key := range Keys() {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %q: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("algorithm", func(fl validator.FieldLevel) bool {
		return jwa.Supported(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Logging returns the logger settings.
func (c *Config) Logging() logging.Config {
	return logging.Config{Level: c.LogLevel, Format: c.LogFormat}
}
