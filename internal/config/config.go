// Package config manages bridge configuration from defaults, an optional
// config file, and environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig defines how to launch one analysis server.
type ServerConfig struct {
	// Command is the executable to run.
	Command string `mapstructure:"command"`

	// Args are command-line arguments.
	Args []string `mapstructure:"args"`

	// Env are additional KEY=VALUE environment entries.
	Env []string `mapstructure:"env"`

	// LanguageIDs this server handles, e.g. ["go"].
	LanguageIDs []string `mapstructure:"languages"`

	// InitializationOptions are passed through on the handshake.
	InitializationOptions map[string]any `mapstructure:"initializationOptions"`
}

// Config is the bridge's full configuration.
type Config struct {
	// Servers maps a language id to its server launch configuration.
	Servers map[string]ServerConfig `mapstructure:"servers"`

	// DebounceDelay coalesces rapid document changes into one sync.
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`

	// ControlAddr is the loopback address the serve command binds its
	// lifecycle control endpoint to. Port 0 picks an ephemeral one.
	ControlAddr string `mapstructure:"controlAddr"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"logLevel"`
}

// DefaultControlAddr is where the serve daemon listens for lifecycle
// commands unless configured otherwise.
const DefaultControlAddr = "127.0.0.1:7689"

// DefaultServers is the curated table of well-known analysis servers.
func DefaultServers() map[string]ServerConfig {
	return map[string]ServerConfig{
		"go": {
			Command:     "gopls",
			Args:        []string{"serve"},
			LanguageIDs: []string{"go"},
		},
		"rust": {
			Command:     "rust-analyzer",
			LanguageIDs: []string{"rust"},
		},
		"typescript": {
			Command:     "typescript-language-server",
			Args:        []string{"--stdio"},
			LanguageIDs: []string{"typescript", "typescriptreact", "javascript", "javascriptreact"},
		},
		"python": {
			Command:     "pylsp",
			LanguageIDs: []string{"python"},
		},
		"c": {
			Command:     "clangd",
			LanguageIDs: []string{"c", "cpp"},
		},
	}
}

// Load reads configuration from the given file path (optional), the
// environment, and built-in defaults, lowest priority first.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("langbridge")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("langbridge")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/langbridge")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Configured servers extend the defaults rather than replacing them.
	merged := DefaultServers()
	for lang, sc := range cfg.Servers {
		merged[lang] = sc
	}
	cfg.Servers = merged

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debounceDelay", 300*time.Millisecond)
	v.SetDefault("controlAddr", DefaultControlAddr)
	v.SetDefault("logLevel", "info")
}

// Validate rejects configurations the bridge cannot run with.
func (c *Config) Validate() error {
	for lang, sc := range c.Servers {
		if sc.Command == "" {
			return fmt.Errorf("server %q: command is required", lang)
		}
	}
	if c.DebounceDelay < 0 {
		return fmt.Errorf("debounceDelay must not be negative")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if !strings.HasPrefix(c.ControlAddr, "127.0.0.1:") && !strings.HasPrefix(c.ControlAddr, "localhost:") {
		return fmt.Errorf("control endpoint must bind loopback, got %q", c.ControlAddr)
	}
	return nil
}

// ServerForLanguage finds the server configuration handling a language id.
func (c *Config) ServerForLanguage(languageID string) (ServerConfig, bool) {
	if sc, ok := c.Servers[languageID]; ok {
		return sc, true
	}
	for _, sc := range c.Servers {
		for _, id := range sc.LanguageIDs {
			if id == languageID {
				return sc, true
			}
		}
	}
	return ServerConfig{}, false
}
