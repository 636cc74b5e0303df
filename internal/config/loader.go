package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/edgard/tgcollector/internal/errs"
)

// LoadOptions points the loader at optional files. Empty fields use the defaults:
// ".env" and "config.yaml" in the working directory, both optional.
type LoadOptions struct {
	// ConfigFile is an optional YAML/JSON/TOML file read under the environment.
	ConfigFile string
	// EnvFile is a dotenv file whose values never override the real environment.
	EnvFile string
}

// Load loads and validates configuration from, in increasing precedence:
// 1. Default values
// 2. config.yaml (or LoadOptions.ConfigFile)
// 3. The .env file
// 4. Environment variables
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := gotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errs.NewConfigError("failed to read env file "+envFile, err)
	}

	// Checked up front so a malformed id names the variable instead of a decode path.
	if raw := strings.TrimSpace(os.Getenv("TELEGRAM_API_ID")); raw != "" {
		if _, err := strconv.Atoi(raw); err != nil {
			return nil, errs.NewConfigError("TELEGRAM_API_ID must be an integer", err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, errs.NewConfigError("failed to read config file", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errs.NewConfigError("failed to parse config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errs.NewConfigError("invalid configuration", err)
	}

	return cfg, nil
}

// MustDefault returns the configuration built purely from defaults. It is used
// by tests and commands that only need a database location.
func MustDefault() *Config {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		panic(fmt.Sprintf("config defaults do not decode: %v", err))
	}
	return cfg
}
