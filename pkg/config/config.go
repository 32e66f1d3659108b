package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds all configuration for the application
type Config struct {
	Workspace  string     `koanf:"workspace"`
	DB         string     `koanf:"db"`
	Port       int        `koanf:"port"`
	Workers    int        `koanf:"workers"`
	Verbosity  string     `koanf:"verbosity"`
	VerboseCnt int        `koanf:"verbose"`
	JSON       bool       `koanf:"json"`
	LogFile    string     `koanf:"log_file"`
	Fetch      Fetch      `koanf:"fetch"`
	Collect    Collect    `koanf:"collect"`
	Thresholds Thresholds `koanf:"thresholds"`
	DeadCode   DeadCode   `koanf:"deadcode"`
	Neo4j      Neo4j      `koanf:"neo4j"`
	Watch      Watch      `koanf:"watch"`
}

// Fetch configures where remote repositories are cloned
type Fetch struct {
	Dir string `koanf:"dir"`
}

// Collect configures source discovery
type Collect struct {
	Ignore     []string `koanf:"ignore"`
	Extensions []string `koanf:"extensions"`
}

// Thresholds configures the architecture note rules
type Thresholds struct {
	MaxFileLines  int `koanf:"max_file_lines"`
	MaxComplexity int `koanf:"max_complexity"`
	MaxFanIn      int `koanf:"max_fan_in"`
}

// DeadCode configures entry-point exemptions
type DeadCode struct {
	EntryPoints    []string `koanf:"entry_points"`
	ExemptExported bool     `koanf:"exempt_exported"`
	ExemptTests    bool     `koanf:"exempt_tests"`
}

// Neo4j configures the optional graph export. Export is disabled when URI is empty.
type Neo4j struct {
	URI      string `koanf:"uri"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
}

// Watch configures the debounce window of watch mode
type Watch struct {
	QuietMs   int `koanf:"quiet_ms"`
	MaxWaitMs int `koanf:"max_wait_ms"`
}

// QuietPeriod returns the debounce quiet period
func (w Watch) QuietPeriod() time.Duration {
	return time.Duration(w.QuietMs) * time.Millisecond
}

// MaxWait returns the maximum time events are held back
func (w Watch) MaxWait() time.Duration {
	return time.Duration(w.MaxWaitMs) * time.Millisecond
}

// DefaultIgnore lists the directories skipped by source discovery
var DefaultIgnore = []string{"vendor/", "target/", "node_modules/", ".git/", "build/", "dist/"}

// Defaults returns the default configuration values as a nested koanf map
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"workspace": ".",
		"db":        filepath.Join(os.TempDir(), "archscope.db"),
		"port":      8080,
		"workers":   runtime.GOMAXPROCS(0),
		"verbosity": "",
		"verbose":   0,
		"json":      false,
		"log_file":  "",
		"fetch": map[string]interface{}{
			"dir": filepath.Join(os.TempDir(), "archscope-workspaces"),
		},
		"collect": map[string]interface{}{
			"ignore":     DefaultIgnore,
			"extensions": []string{},
		},
		"thresholds": map[string]interface{}{
			"max_file_lines": 500,
			"max_complexity": 10,
			"max_fan_in":     8,
		},
		"deadcode": map[string]interface{}{
			"entry_points":    []string{"main", "init"},
			"exempt_exported": true,
			"exempt_tests":    true,
		},
		"neo4j": map[string]interface{}{
			"uri":      "",
			"user":     "neo4j",
			"password": "",
		},
		"watch": map[string]interface{}{
			"quiet_ms":    500,
			"max_wait_ms": 5000,
		},
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional) - archscope.toml or archscope.yaml, or --config
	if err := loadConfigFile(k, f); err != nil {
		return nil, err
	}

	// 3. Environment Variables
	// Prefix: ARCHSCOPE_ (e.g., ARCHSCOPE_PORT=9090, ARCHSCOPE_NEO4J_URI=bolt://...)
	if err := k.Load(env.Provider("ARCHSCOPE_", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, with dashes mapped to the underscores of the file keys (--log-file -> log_file)
	if f != nil {
		flags := posflag.ProviderWithFlag(f, ".", k, func(fl *pflag.Flag) (string, interface{}) {
			return strings.ReplaceAll(fl.Name, "-", "_"), posflag.FlagVal(f, fl)
		})
		if err := k.Load(flags, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	return &cfg, nil
}

// loadConfigFile loads an explicit --config file, or the first default file found.
// A missing default file is not an error; a missing explicit file is.
func loadConfigFile(k *koanf.Koanf, f *pflag.FlagSet) error {
	if f != nil {
		if path, err := f.GetString("config"); err == nil && path != "" {
			if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
				return fmt.Errorf("failed to load config file %s: %w", path, err)
			}
			return nil
		}
	}

	for _, path := range []string{"archscope.toml", "archscope.yaml", "archscope.yml"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			return fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		return nil
	}
	return nil
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	default:
		return toml.Parser()
	}
}

// envKey maps ARCHSCOPE_THRESHOLDS_MAX__FAN__IN style names to koanf paths.
// A single underscore separates sections; a double underscore is a literal underscore.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, "ARCHSCOPE_"))
	s = strings.ReplaceAll(s, "__", "\x00")
	s = strings.ReplaceAll(s, "_", ".")
	return strings.ReplaceAll(s, "\x00", "_")
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
