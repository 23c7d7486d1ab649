// Package config loads and validates polycephaly configuration.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides,
// e.g. POLYCEPHALY_LOGGING_LEVEL=debug.
const EnvPrefix = "POLYCEPHALY"

// Config holds all configuration for a polycephaly host
type Config struct {
	Messenger MessengerConfig `mapstructure:"messenger" yaml:"messenger"`
	Process   ProcessConfig   `mapstructure:"process" yaml:"process"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Processes []ProcessSpec   `mapstructure:"processes" yaml:"processes"`
}

// MessengerConfig controls routing and delivery
type MessengerConfig struct {
	// MainProcess names the relay hub. It must appear in processes (default: "main")
	MainProcess string `mapstructure:"main_process" yaml:"main_process"`
	// PutTimeoutMs bounds every blocking put made by send and relay (default: 5000)
	PutTimeoutMs int `mapstructure:"put_timeout_ms" yaml:"put_timeout_ms"`
	// MailboxSize is the default mailbox capacity (default: 100)
	MailboxSize int `mapstructure:"mailbox_size" yaml:"mailbox_size"`
	// DeadLetterSize is how many failed envelopes are kept for inspection (default: 256)
	DeadLetterSize int `mapstructure:"dead_letter_size" yaml:"dead_letter_size"`
}

// ProcessConfig controls the life-cycle loop shared by every process
type ProcessConfig struct {
	// TickIntervalMs is how long a loop waits on an empty mailbox (default: 50)
	TickIntervalMs int `mapstructure:"tick_interval_ms" yaml:"tick_interval_ms"`
	// JanitorIntervalMs is how often finished child threads are reclaimed (default: 1000)
	JanitorIntervalMs int `mapstructure:"janitor_interval_ms" yaml:"janitor_interval_ms"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is the directory for polycephaly.log. Empty logs to stderr.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxSizeMB rolls polycephaly.log over at this size; 0 disables rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is how many rolled-over files are kept (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Compress gzips rolled-over files (default: false)
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// ProcessSpec describes one named process
type ProcessSpec struct {
	// Name is the process and mailbox name, lower-case
	Name string `mapstructure:"name" yaml:"name"`
	// MailboxSize overrides messenger.mailbox_size when positive
	MailboxSize int `mapstructure:"mailbox_size" yaml:"mailbox_size,omitempty"`
	// HeartbeatIntervalMs enables a heartbeat thread sending to Peers when positive
	HeartbeatIntervalMs int `mapstructure:"heartbeat_interval_ms" yaml:"heartbeat_interval_ms,omitempty"`
	// Peers are the processes heartbeats are sent to
	Peers []string `mapstructure:"peers" yaml:"peers,omitempty"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Messenger: MessengerConfig{
			MainProcess:    "main",
			PutTimeoutMs:   5000,
			MailboxSize:    100,
			DeadLetterSize: 256,
		},
		Process: ProcessConfig{
			TickIntervalMs:    50,
			JanitorIntervalMs: 1000,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Dir:        "", // stderr
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
		Processes: []ProcessSpec{
			{Name: "main"},
			{Name: "worker-a", HeartbeatIntervalMs: 2000, Peers: []string{"worker-b"}},
			{Name: "worker-b", HeartbeatIntervalMs: 2000, Peers: []string{"worker-a"}},
		},
	}
}

// PutTimeout returns the put timeout as a time.Duration
func (c *MessengerConfig) PutTimeout() time.Duration {
	return time.Duration(c.PutTimeoutMs) * time.Millisecond
}

// TickInterval returns the tick interval as a time.Duration
func (c *ProcessConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// JanitorInterval returns the janitor interval as a time.Duration
func (c *ProcessConfig) JanitorInterval() time.Duration {
	return time.Duration(c.JanitorIntervalMs) * time.Millisecond
}

// HeartbeatInterval returns the heartbeat interval as a time.Duration (0 means disabled)
func (p *ProcessSpec) HeartbeatInterval() time.Duration {
	return time.Duration(p.HeartbeatIntervalMs) * time.Millisecond
}

// FindProcess returns the process entry named name, or nil.
func (c *Config) FindProcess(name string) *ProcessSpec {
	for i := range c.Processes {
		if c.Processes[i].Name == name {
			return &c.Processes[i]
		}
	}
	return nil
}

// SetDefaults registers default values and environment overrides with viper
func SetDefaults() {
	defaults := Default()

	// Messenger defaults
	viper.SetDefault("messenger.main_process", defaults.Messenger.MainProcess)
	viper.SetDefault("messenger.put_timeout_ms", defaults.Messenger.PutTimeoutMs)
	viper.SetDefault("messenger.mailbox_size", defaults.Messenger.MailboxSize)
	viper.SetDefault("messenger.dead_letter_size", defaults.Messenger.DeadLetterSize)

	// Process loop defaults
	viper.SetDefault("process.tick_interval_ms", defaults.Process.TickIntervalMs)
	viper.SetDefault("process.janitor_interval_ms", defaults.Process.JanitorIntervalMs)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	// Process topology
	viper.SetDefault("processes", defaults.Processes)

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.normalize()

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// normalize lower-cases every process name reference.
func (c *Config) normalize() {
	c.Messenger.MainProcess = strings.ToLower(strings.TrimSpace(c.Messenger.MainProcess))
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	for i := range c.Processes {
		p := &c.Processes[i]
		p.Name = strings.ToLower(strings.TrimSpace(p.Name))
		for j, peer := range p.Peers {
			p.Peers[j] = strings.ToLower(strings.TrimSpace(peer))
		}
	}
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "polycephaly")
	}
	// Fall back to ~/.config/polycephaly
	home, err := os.UserHomeDir()
	if err != nil {
		return ".polycephaly"
	}
	return filepath.Join(home, ".config", "polycephaly")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
