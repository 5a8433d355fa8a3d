package cli

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds CLI defaults read from the environment. Flags set on the
// command line take precedence.
type Config struct {
	Format   string `env:"ACTIONKIT_FORMAT" envDefault:"text"`
	Verbose  bool   `env:"ACTIONKIT_VERBOSE"`
	LogLevel string `env:"ACTIONKIT_LOG_LEVEL" envDefault:"warn"`
}

// LoadConfig reads Config from the process environment.
func LoadConfig() (Config, error) {
	return parseConfig(env.Options{})
}

// LoadConfigFrom reads Config from the given variables instead of the
// process environment.
func LoadConfigFrom(environ map[string]string) (Config, error) {
	return parseConfig(env.Options{Environment: environ})
}

func parseConfig(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
