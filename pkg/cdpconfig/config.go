// Package cdpconfig loads and validates CascadeDP's process configuration.
package cdpconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Sentinel validation errors.
var (
	ErrInvalidStepInterval  = errors.New("system step interval must be positive")
	ErrInvalidMaxDepth      = errors.New("system max depth must be positive")
	ErrInvalidLogLevel      = errors.New("logging level must be one of debug, info, warn, error")
	ErrInvalidLogFormat     = errors.New("logging format must be one of json, text")
	ErrInvalidCheckpointDir = errors.New("checkpoint directory must not be empty when checkpointing is enabled")
	ErrInvalidCompression   = errors.New("checkpoint compression threshold must not be negative")
	ErrInvalidMCPAddr       = errors.New("mcp address must not be empty when mcp is enabled")
	ErrSchemaValidation     = errors.New("config document failed schema validation")
)

// Default configuration values.
const (
	defaultStepInterval         = 100 * time.Millisecond
	defaultMaxDepth             = 64
	defaultLogLevel             = "info"
	defaultLogFormat            = "json"
	defaultCheckpointDir        = "./checkpoints"
	defaultCompressionThreshold = 1000
	defaultMCPAddr              = "stdio"
	defaultCheckpointEnabled    = false
	defaultMCPEnabled           = false
	envPrefix                   = "CASCADEDP"
)

// Config holds all process-wide configuration for CascadeDP.
type Config struct {
	System     SystemConfig     `mapstructure:"system"     yaml:"system"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint" yaml:"checkpoint"`
	MCP        MCPConfig        `mapstructure:"mcp"        yaml:"mcp"`
}

// SystemConfig governs the step loop driving the root cascade.
type SystemConfig struct {
	StepInterval time.Duration `mapstructure:"step_interval" yaml:"step_interval"`
	MaxDepth     int           `mapstructure:"max_depth"     yaml:"max_depth"`
}

// LoggingConfig governs the structured logger built in pkg/observability.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// CheckpointConfig governs pkg/checkpoint's hibernate/boot snapshots.
type CheckpointConfig struct {
	Dir                  string `mapstructure:"dir"                   yaml:"dir"`
	CompressionThreshold int    `mapstructure:"compression_threshold" yaml:"compression_threshold"`
	Enabled              bool   `mapstructure:"enabled"               yaml:"enabled"`
}

// MCPConfig governs pkg/mcp's read-only tree server.
type MCPConfig struct {
	Addr    string `mapstructure:"addr"    yaml:"addr"`
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
}

// configSchema is the JSON schema the loaded document must satisfy before
// it is bound into a Config, catching type and range errors earlier and
// with clearer messages than mapstructure's best-effort coercion.
const configSchema = `{
  "type": "object",
  "properties": {
    "system": {
      "type": "object",
      "properties": {
        "step_interval": {"type": "string"},
        "max_depth": {"type": "integer", "minimum": 1}
      }
    },
    "logging": {
      "type": "object",
      "properties": {
        "level": {"type": "string", "enum": ["debug", "info", "warn", "error"]},
        "format": {"type": "string", "enum": ["json", "text"]}
      }
    },
    "checkpoint": {
      "type": "object",
      "properties": {
        "dir": {"type": "string"},
        "compression_threshold": {"type": "integer", "minimum": 0},
        "enabled": {"type": "boolean"}
      }
    },
    "mcp": {
      "type": "object",
      "properties": {
        "addr": {"type": "string"},
        "enabled": {"type": "boolean"}
      }
    }
  }
}`

// Load reads configuration from configPath (a YAML file) and the
// CASCADEDP-prefixed environment, validating the raw document against
// configSchema before binding it into a Config and running semantic
// validation.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("cascadedp")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/cascadedp")
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := validateSchema(v.AllSettings()); err != nil {
		return nil, err
	}

	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// validateSchema re-marshals settings to JSON and checks it against
// configSchema, since viper's settings map may carry YAML-specific scalar
// types gojsonschema does not accept directly.
func validateSchema(settings map[string]any) error {
	asYAML, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal config for schema check: %w", err)
	}

	var generic any

	if err := yaml.Unmarshal(asYAML, &generic); err != nil {
		return fmt.Errorf("re-parse config for schema check: %w", err)
	}

	asJSON, err := json.Marshal(generic)
	if err != nil {
		return fmt.Errorf("marshal config as json for schema check: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(configSchema)
	docLoader := gojsonschema.NewBytesLoader(asJSON)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("run schema validation: %w", err)
	}

	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}

		return fmt.Errorf("%w: %s", ErrSchemaValidation, strings.Join(msgs, "; "))
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("system.step_interval", defaultStepInterval.String())
	v.SetDefault("system.max_depth", defaultMaxDepth)
	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.format", defaultLogFormat)
	v.SetDefault("checkpoint.dir", defaultCheckpointDir)
	v.SetDefault("checkpoint.compression_threshold", defaultCompressionThreshold)
	v.SetDefault("checkpoint.enabled", defaultCheckpointEnabled)
	v.SetDefault("mcp.addr", defaultMCPAddr)
	v.SetDefault("mcp.enabled", defaultMCPEnabled)
}

func validate(cfg *Config) error {
	if cfg.System.StepInterval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidStepInterval, cfg.System.StepInterval)
	}

	if cfg.System.MaxDepth <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxDepth, cfg.System.MaxDepth)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, cfg.Logging.Level)
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, cfg.Logging.Format)
	}

	if cfg.Checkpoint.Enabled && strings.TrimSpace(cfg.Checkpoint.Dir) == "" {
		return ErrInvalidCheckpointDir
	}

	if cfg.Checkpoint.CompressionThreshold < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCompression, cfg.Checkpoint.CompressionThreshold)
	}

	if cfg.MCP.Enabled && strings.TrimSpace(cfg.MCP.Addr) == "" {
		return ErrInvalidMCPAddr
	}

	return nil
}

// Dump renders cfg back to YAML.
func Dump(cfg *Config) (string, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(cfg); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}

	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("close config encoder: %w", err)
	}

	return buf.String(), nil
}
