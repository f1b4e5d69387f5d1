package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"interpcore/pkg/execctx"
)

// Format is a config file encoding.
type Format int

const (
	FormatTOML Format = iota
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	default:
		return "toml"
	}
}

// ParseFormat parses "toml" or "yaml"/"yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "toml", "":
		return FormatTOML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return FormatTOML, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// DetectFormat picks the format from a file extension, defaulting to TOML.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

const (
	EnvLogLevel = "INTERPCORE_LOG_LEVEL"
	EnvPolicy   = "INTERPCORE_POLICY"
)

var (
	ErrUnknownFormat = errors.New("unknown config format")
	ErrInvalid       = errors.New("invalid config")
)

type Log struct {
	Level   string `toml:"level" yaml:"level"`
	NoColor bool   `toml:"no_color" yaml:"no_color"`
}

type Cache struct {
	Statistics bool `toml:"statistics" yaml:"statistics"`
}

type Context struct {
	// Policy is what accessors of a disposed context do: strict or permissive.
	Policy string `toml:"policy" yaml:"policy"`
}

type Interpreter struct {
	MaxDepth int `toml:"max_depth" yaml:"max_depth"`
}

type Workload struct {
	Workers    int `toml:"workers" yaml:"workers"`
	Iterations int `toml:"iterations" yaml:"iterations"`
	// Churn is how many iterations pass between command redefinitions.
	Churn int `toml:"churn" yaml:"churn"`
}

// Config is the effective configuration of the interpcore CLI.
type Config struct {
	Log         Log         `toml:"log" yaml:"log"`
	Cache       Cache       `toml:"cache" yaml:"cache"`
	Context     Context     `toml:"context" yaml:"context"`
	Interpreter Interpreter `toml:"interpreter" yaml:"interpreter"`
	Workload    Workload    `toml:"workload" yaml:"workload"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log:         Log{Level: "warn"},
		Cache:       Cache{Statistics: true},
		Context:     Context{Policy: execctx.Strict.String()},
		Interpreter: Interpreter{MaxDepth: 1000},
		Workload:    Workload{Workers: 4, Iterations: 1000, Churn: 100},
	}
}

// Load reads path over the defaults, then applies environment overrides. An
// empty path yields the defaults with overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := cfg.decode(data, DetectFormat(path)); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		log.Debug("config loaded", "file", path, "format", DetectFormat(path))
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes data in the given format over the defaults.
func Parse(data []byte, format Format) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(data, format); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

func (c *Config) decode(data []byte, format Format) error {
	switch format {
	case FormatYAML:
		return yaml.Unmarshal(data, c)
	default:
		_, err := toml.Decode(string(data), c)
		return err
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvPolicy); ok && v != "" {
		c.Context.Policy = v
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level)
	}
	if _, err := execctx.ParsePolicy(c.Context.Policy); err != nil {
		return fmt.Errorf("%w: context.policy: %w", ErrInvalid, err)
	}
	if c.Interpreter.MaxDepth < 1 {
		return fmt.Errorf("%w: interpreter.max_depth must be positive", ErrInvalid)
	}
	if c.Workload.Workers < 1 {
		return fmt.Errorf("%w: workload.workers must be positive", ErrInvalid)
	}
	if c.Workload.Iterations < 0 {
		return fmt.Errorf("%w: workload.iterations must not be negative", ErrInvalid)
	}
	if c.Workload.Churn < 0 {
		return fmt.Errorf("%w: workload.churn must not be negative", ErrInvalid)
	}

	return nil
}

// Policy returns the parsed disposed policy.
func (c *Config) Policy() execctx.Policy {
	p, _ := execctx.ParsePolicy(c.Context.Policy)
	return p
}

// Encode writes the configuration in the given format.
func (c *Config) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	default:
		return toml.NewEncoder(w).Encode(c)
	}
}
