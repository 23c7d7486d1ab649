package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default messenger config
	if cfg.Messenger.MainProcess != "main" {
		t.Errorf("Messenger.MainProcess = %q, want %q", cfg.Messenger.MainProcess, "main")
	}
	if cfg.Messenger.PutTimeoutMs != 5000 {
		t.Errorf("Messenger.PutTimeoutMs = %d, want 5000", cfg.Messenger.PutTimeoutMs)
	}
	if cfg.Messenger.MailboxSize != 100 {
		t.Errorf("Messenger.MailboxSize = %d, want 100", cfg.Messenger.MailboxSize)
	}
	if cfg.Messenger.DeadLetterSize != 256 {
		t.Errorf("Messenger.DeadLetterSize = %d, want 256", cfg.Messenger.DeadLetterSize)
	}

	// Verify default process loop config
	if cfg.Process.TickIntervalMs != 50 {
		t.Errorf("Process.TickIntervalMs = %d, want 50", cfg.Process.TickIntervalMs)
	}
	if cfg.Process.JanitorIntervalMs != 1000 {
		t.Errorf("Process.JanitorIntervalMs = %d, want 1000", cfg.Process.JanitorIntervalMs)
	}

	// Verify default logging config
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Dir != "" {
		t.Errorf("Logging.Dir = %q, want empty", cfg.Logging.Dir)
	}
	if cfg.Logging.MaxSizeMB != 10 || cfg.Logging.MaxBackups != 3 || cfg.Logging.Compress {
		t.Errorf("Logging rotation = %d/%d/%v, want 10/3/false",
			cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups, cfg.Logging.Compress)
	}

	// Verify default topology
	if len(cfg.Processes) != 3 {
		t.Fatalf("len(Processes) = %d, want 3", len(cfg.Processes))
	}
	if p := cfg.FindProcess("worker-a"); p == nil || p.HeartbeatIntervalMs != 2000 || len(p.Peers) != 1 || p.Peers[0] != "worker-b" {
		t.Errorf("worker-a = %+v, want heartbeat 2000 to worker-b", p)
	}
}

func TestDurations(t *testing.T) {
	cfg := Default()

	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"put timeout", cfg.Messenger.PutTimeout(), 5 * time.Second},
		{"tick interval", cfg.Process.TickInterval(), 50 * time.Millisecond},
		{"janitor interval", cfg.Process.JanitorInterval(), time.Second},
		{"heartbeat interval", cfg.FindProcess("worker-b").HeartbeatInterval(), 2 * time.Second},
		{"heartbeat disabled", cfg.FindProcess("main").HeartbeatInterval(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestConfig_FindProcess(t *testing.T) {
	cfg := Default()

	if cfg.FindProcess("main") == nil {
		t.Error("Process(main) should exist")
	}
	if cfg.FindProcess("nobody") != nil {
		t.Error("Process(nobody) should be nil")
	}

	// Returned pointer aliases the slice element
	cfg.FindProcess("main").MailboxSize = 7
	if cfg.Processes[0].MailboxSize != 7 {
		t.Errorf("MailboxSize = %d, want 7", cfg.Processes[0].MailboxSize)
	}
}

func TestConfigDir(t *testing.T) {
	// Test with XDG_CONFIG_HOME set
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		result := ConfigDir()
		expected := "/custom/config/polycephaly"
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})

	// Test without XDG_CONFIG_HOME
	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		result := ConfigDir()

		// Should be based on home directory
		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".config", "polycephaly")
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	result := ConfigFile()
	expected := "/custom/config/polycephaly/config.yaml"
	if result != expected {
		t.Errorf("ConfigFile() = %q, want %q", result, expected)
	}
}

func TestGet(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	// Set defaults in viper first (normally done by cmd init)
	SetDefaults()

	// Get() should return defaults when no config file exists
	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}
	if cfg.Messenger.MainProcess != "main" {
		t.Errorf("Get().Messenger.MainProcess = %q, want %q", cfg.Messenger.MainProcess, "main")
	}
	if len(cfg.Processes) != 3 {
		t.Errorf("len(Get().Processes) = %d, want 3", len(cfg.Processes))
	}
}

func TestLoad_FromFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	content := `
messenger:
  main_process: Hub
  put_timeout_ms: 250
logging:
  level: DEBUG
processes:
  - name: hub
  - name: Alpha
    heartbeat_interval_ms: 100
    peers: [Beta]
  - name: beta
    mailbox_size: 4
`
	viper.SetConfigType("yaml")
	if err := viper.ReadConfig(strings.NewReader(content)); err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Messenger.MainProcess != "hub" {
		t.Errorf("MainProcess = %q, want hub", cfg.Messenger.MainProcess)
	}
	if cfg.Messenger.PutTimeoutMs != 250 {
		t.Errorf("PutTimeoutMs = %d, want 250", cfg.Messenger.PutTimeoutMs)
	}
	// Unset keys keep their defaults
	if cfg.Messenger.MailboxSize != 100 {
		t.Errorf("MailboxSize = %d, want 100", cfg.Messenger.MailboxSize)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}

	alpha := cfg.FindProcess("alpha")
	if alpha == nil {
		t.Fatal("process alpha missing after normalization")
	}
	if alpha.Peers[0] != "beta" {
		t.Errorf("alpha peers = %v, want [beta]", alpha.Peers)
	}
	if cfg.FindProcess("beta").MailboxSize != 4 {
		t.Errorf("beta MailboxSize = %d, want 4", cfg.FindProcess("beta").MailboxSize)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("POLYCEPHALY_PROCESS_TICK_INTERVAL_MS", "75")

	SetDefaults()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Process.TickIntervalMs != 75 {
		t.Errorf("TickIntervalMs = %d, want 75", cfg.Process.TickIntervalMs)
	}
}

func TestLoad_Invalid(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("messenger.main_process", "ghost")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail when main process is not configured")
	}

	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("error type = %T, want ValidationErrors", err)
	}
	if len(verrs) != 1 || verrs[0].Field != "messenger.main_process" {
		t.Errorf("errors = %v, want one messenger.main_process error", verrs)
	}

	// Get falls back to defaults
	if got := Get().Messenger.MainProcess; got != "main" {
		t.Errorf("Get() MainProcess = %q, want main", got)
	}
}
