// Package config loads guildscript settings from a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/guildscript/internal/manager"
	"github.com/roach88/guildscript/internal/surface"
)

// Config holds process-wide settings. Zero-valued fields in a file keep
// their defaults.
type Config struct {
	// Database is the SQLite path, or ":memory:".
	Database string `yaml:"database" validate:"required"`

	// Group is the name of the published grouping command.
	Group string `yaml:"group" validate:"required,max=32"`

	// ExecutionTimeout bounds one guest call. Zero disables the bound.
	ExecutionTimeout time.Duration `yaml:"execution_timeout" validate:"gte=0"`

	MaxCommands   int           `yaml:"max_commands" validate:"gte=1"`
	SweepInterval time.Duration `yaml:"sweep_interval" validate:"gt=0"`

	// PublishLog receives one JSON line per publish or retract.
	// Empty discards them; "-" writes to stdout.
	PublishLog string `yaml:"publish_log"`

	Format   string `yaml:"format" validate:"oneof=text json"`
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Database:         "guildscript.db",
		Group:            surface.DefaultGroup,
		ExecutionTimeout: 5 * time.Second,
		MaxCommands:      manager.DefaultMaxCommands,
		SweepInterval:    manager.DefaultSweepInterval,
		Format:           "text",
		LogLevel:         "info",
	}
}

var validate = validator.New()

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML settings over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s failed %q", yamlKey(fe.Field()), fe.ActualTag())
		if fe.Param() != "" {
			msgs[i] += fmt.Sprintf(" (%s)", fe.Param())
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// SlogLevel maps LogLevel to a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var yamlKeys = map[string]string{
	"Database":         "database",
	"Group":            "group",
	"ExecutionTimeout": "execution_timeout",
	"MaxCommands":      "max_commands",
	"SweepInterval":    "sweep_interval",
	"PublishLog":       "publish_log",
	"Format":           "format",
	"LogLevel":         "log_level",
}

func yamlKey(field string) string {
	if k, ok := yamlKeys[field]; ok {
		return k
	}
	return field
}
