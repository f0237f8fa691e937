// Package config loads safegate CLI configuration with the precedence
// defaults < user file < project file < environment < flags.
//
// The decision core itself is deliberately configuration-free; everything
// here shapes the CLI surface (output format, log level) or extends the
// pattern library. Extensions are append-only: a config file can teach the
// gate about more risky patterns or more read-only verbs, but can never
// remove a built-in pattern.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/safegate/safegate/internal/policy"
)

// Config is the full safegate configuration.
type Config struct {
	Output   OutputConfig   `mapstructure:"output"`
	Log      LogConfig      `mapstructure:"log"`
	Patterns PatternsConfig `mapstructure:"patterns"`
}

// OutputConfig controls result formatting.
type OutputConfig struct {
	// Format is the default output format: text, json, or yaml.
	Format string `mapstructure:"format"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	// Level is the log level: debug, info, warn, error, fatal.
	Level string `mapstructure:"level"`
}

// PatternsConfig carries append-only extensions to the pattern library.
type PatternsConfig struct {
	ReadActions    []string `mapstructure:"read_actions"`
	WriteActions   []string `mapstructure:"write_actions"`
	ExecuteActions []string `mapstructure:"execute_actions"`
	Destructive    []string `mapstructure:"destructive"`
	CriticalFiles  []string `mapstructure:"critical_files"`
	RootScopes     []string `mapstructure:"root_scopes"`
}

// Extensions converts the pattern config into library extensions.
func (c Config) Extensions() policy.Extensions {
	return policy.Extensions{
		ReadActions:    c.Patterns.ReadActions,
		WriteActions:   c.Patterns.WriteActions,
		ExecuteActions: c.Patterns.ExecuteActions,
		Destructive:    c.Patterns.Destructive,
		CriticalFiles:  c.Patterns.CriticalFiles,
		RootScopes:     c.Patterns.RootScopes,
	}
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Output: OutputConfig{Format: "json"},
		Log:    LogConfig{Level: "warn"},
	}
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("output.format", def.Output.Format)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("patterns.read_actions", []string{})
	v.SetDefault("patterns.write_actions", []string{})
	v.SetDefault("patterns.execute_actions", []string{})
	v.SetDefault("patterns.destructive", []string{})
	v.SetDefault("patterns.critical_files", []string{})
	v.SetDefault("patterns.root_scopes", []string{})
}

// LoadOptions configures Load.
type LoadOptions struct {
	// ProjectDir is the project directory. Empty means the current
	// working directory.
	ProjectDir string
	// ConfigFile overrides the project config path entirely.
	ConfigFile string
	// FlagOverrides are dotted-key values from CLI flags, highest
	// precedence.
	FlagOverrides map[string]any
}

// Load reads configuration with full precedence and validates it.
func Load(opts LoadOptions) (Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v)

	userPath, projectPath := ConfigPaths(opts.ProjectDir, opts.ConfigFile)
	if err := mergeConfigFile(v, userPath); err != nil {
		return Config{}, err
	}
	if err := mergeConfigFile(v, projectPath); err != nil {
		return Config{}, err
	}

	// Environment overrides, bound explicitly so the supported surface is
	// visible here.
	bindEnv(v, "output.format", "SAFEGATE_OUTPUT_FORMAT")
	bindEnv(v, "log.level", "SAFEGATE_LOG_LEVEL")

	for key, value := range opts.FlagOverrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func bindEnv(v *viper.Viper, key, env string) {
	if value := os.Getenv(env); value != "" {
		v.Set(key, value)
	}
}

// ConfigPaths returns the user and project config file paths. A non-empty
// override replaces the project path.
func ConfigPaths(projectDir, override string) (user, project string) {
	home, err := os.UserHomeDir()
	if err == nil {
		user = filepath.Join(home, ".safegate", "config.toml")
	}
	project = projectConfigPath(projectDir, override)
	return user, project
}

func projectConfigPath(projectDir, override string) string {
	if override != "" {
		return override
	}
	return filepath.Join(projectDir, ".safegate", "config.toml")
}

// mergeConfigFile merges a TOML file into the viper instance. A missing
// file is a no-op; an unreadable or malformed one is an error.
func mergeConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat config %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}

	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("merge config %s: %w", path, err)
	}
	return nil
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true,
	"error": true, "fatal": true,
}

// Validate checks a loaded configuration.
func Validate(cfg Config) error {
	var problems []string

	switch cfg.Output.Format {
	case "text", "json", "yaml":
	default:
		problems = append(problems, fmt.Sprintf("output.format %q (must be text, json, or yaml)", cfg.Output.Format))
	}

	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		problems = append(problems, fmt.Sprintf("log.level %q", cfg.Log.Level))
	}

	for _, p := range cfg.Patterns.Destructive {
		if _, err := regexp.Compile("(?i)" + p); err != nil {
			problems = append(problems, fmt.Sprintf("patterns.destructive %q: %v", p, err))
		}
	}
	for _, p := range cfg.Patterns.RootScopes {
		if _, err := regexp.Compile("(?i)" + p); err != nil {
			problems = append(problems, fmt.Sprintf("patterns.root_scopes %q: %v", p, err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// knownKeys maps settable dotted keys to value kinds for ParseValue.
type valueKind int

const (
	kindString valueKind = iota
	kindStringSlice
)

var knownKeys = map[string]valueKind{
	"output.format":            kindString,
	"log.level":                kindString,
	"patterns.read_actions":    kindStringSlice,
	"patterns.write_actions":   kindStringSlice,
	"patterns.execute_actions": kindStringSlice,
	"patterns.destructive":     kindStringSlice,
	"patterns.critical_files":  kindStringSlice,
	"patterns.root_scopes":     kindStringSlice,
}

// ParseValue converts a raw CLI string into the typed value for a known
// config key.
func ParseValue(key, raw string) (any, error) {
	kind, ok := knownKeys[key]
	if !ok {
		return nil, fmt.Errorf("unsupported config key %q", key)
	}
	return parseValueByKind(raw, kind)
}

func parseValueByKind(raw string, kind valueKind) (any, error) {
	switch kind {
	case kindString:
		return raw, nil
	case kindStringSlice:
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value kind %d", kind)
	}
}

// GetValue resolves a dotted key against a loaded config.
func GetValue(cfg Config, key string) (any, bool) {
	switch key {
	case "output":
		return cfg.Output, true
	case "output.format":
		return cfg.Output.Format, true
	case "log":
		return cfg.Log, true
	case "log.level":
		return cfg.Log.Level, true
	case "patterns":
		return cfg.Patterns, true
	case "patterns.read_actions":
		return cfg.Patterns.ReadActions, true
	case "patterns.write_actions":
		return cfg.Patterns.WriteActions, true
	case "patterns.execute_actions":
		return cfg.Patterns.ExecuteActions, true
	case "patterns.destructive":
		return cfg.Patterns.Destructive, true
	case "patterns.critical_files":
		return cfg.Patterns.CriticalFiles, true
	case "patterns.root_scopes":
		return cfg.Patterns.RootScopes, true
	}
	return nil, false
}

// WriteValue sets a dotted key in a TOML config file, creating the file and
// parent directories if needed. Existing unrelated keys are preserved.
func WriteValue(path, key string, value any) error {
	if path == "" {
		return fmt.Errorf("config path is required")
	}

	doc := map[string]any{}
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("decode config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	segments := strings.Split(key, ".")
	node := doc
	for _, seg := range segments[:len(segments)-1] {
		child, ok := node[seg]
		if !ok {
			next := map[string]any{}
			node[seg] = next
			node = next
			continue
		}
		table, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("config key %s: %q is not a table", key, seg)
		}
		node = table
	}
	node[segments[len(segments)-1]] = value

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(doc); err != nil {
		return fmt.Errorf("encode config %s: %w", path, err)
	}
	return nil
}
