// Package config handles configuration parsing for truerand.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/acolita/truerand/internal/ports"
	"gopkg.in/yaml.v3"
)

// Source kinds.
const (
	KindDevice = "device" // local device node, explicit or discovered
	KindOS     = "os"     // kernel CSPRNG via crypto/rand
	KindRemote = "remote" // device node on another host, read over SFTP
)

// DefaultConfigPath returns the default config file path:
// $XDG_CONFIG_HOME/truerand/config.yaml or ~/.config/truerand/config.yaml
func DefaultConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "truerand", "config.yaml")
}

// Config represents the top-level configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Logging LoggingConfig `yaml:"logging"`
}

// SourceConfig selects and tunes the entropy source.
type SourceConfig struct {
	Kind       string        `yaml:"kind"`       // "device", "os" or "remote"
	Device     string        `yaml:"device"`     // explicit device path; empty means discover
	Candidates []string      `yaml:"candidates"` // doublestar patterns tried in order
	Timeout    time.Duration `yaml:"timeout"`    // per-draw timeout; 0 blocks forever
	Remote     RemoteConfig  `yaml:"remote"`
}

// RemoteConfig defines an entropy device on another host.
type RemoteConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	User           string        `yaml:"user"`
	KeyPath        string        `yaml:"key_path"`
	PassphraseEnv  string        `yaml:"passphrase_env"` // env var containing key passphrase
	PasswordEnv    string        `yaml:"password_env"`   // env var containing SSH password
	UseAgent       bool          `yaml:"use_agent"`
	UseKeyring     bool          `yaml:"use_keyring"` // look the password up in the OS keyring first
	KnownHosts     string        `yaml:"known_hosts"`
	Device         string        `yaml:"device"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level    string `yaml:"level"`    // "debug", "info", "warn", "error"
	Sanitize bool   `yaml:"sanitize"` // redact credentials from logs
}

// DefaultCandidates are the device patterns tried when no device is set.
var DefaultCandidates = []string{"/dev/hwrng", "/dev/random"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Kind:       KindDevice,
			Candidates: append([]string(nil), DefaultCandidates...),
			Remote: RemoteConfig{
				Port:           22,
				Device:         "/dev/random",
				ConnectTimeout: 30 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Sanitize: true,
		},
	}
}

// Load loads configuration from a YAML file.
// An optional FileSystem can be passed for testing; if omitted, the real OS is used.
func Load(path string, fsys ...ports.FileSystem) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	var data []byte
	var err error
	if len(fsys) > 0 && fsys[0] != nil {
		data, err = fsys[0].ReadFile(path)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration and fills in derived defaults.
func (c *Config) Validate() error {
	c.Source.Kind = strings.ToLower(c.Source.Kind)
	switch c.Source.Kind {
	case "":
		c.Source.Kind = KindDevice
	case KindDevice, KindOS:
	case KindRemote:
		r := &c.Source.Remote
		if r.Host == "" {
			return fmt.Errorf("source.remote.host is required for remote sources")
		}
		if r.User == "" {
			return fmt.Errorf("source.remote.user is required for remote sources")
		}
		if r.Port == 0 {
			r.Port = 22
		}
		if r.Port < 0 || r.Port > 65535 {
			return fmt.Errorf("source.remote.port %d out of range", r.Port)
		}
		if r.Device == "" {
			r.Device = "/dev/random"
		}
	default:
		return fmt.Errorf("unknown source kind %q (want device, os or remote)", c.Source.Kind)
	}

	if c.Source.Timeout < 0 {
		return fmt.Errorf("source.timeout must not be negative")
	}
	if c.Source.Kind == KindDevice && c.Source.Device == "" && len(c.Source.Candidates) == 0 {
		c.Source.Candidates = append([]string(nil), DefaultCandidates...)
	}

	return nil
}

// UsesKeyring reports whether opening this source reads the OS keyring.
func (s SourceConfig) UsesKeyring() bool {
	return s.Kind == KindRemote && s.Remote.UseKeyring
}

// SameSource reports whether two configs select the same entropy source.
// Sources are opened once, so a difference needs a restart to take effect.
func (c *Config) SameSource(other *Config) bool {
	a, b := c.Source, other.Source
	if a.Kind != b.Kind || a.Device != b.Device || a.Remote != b.Remote {
		return false
	}
	if len(a.Candidates) != len(b.Candidates) {
		return false
	}
	for i := range a.Candidates {
		if a.Candidates[i] != b.Candidates[i] {
			return false
		}
	}
	return true
}
