package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/webstone-core/internal/auth"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "webstone.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9443
  tls:
    enabled: true
    cert_file: "/etc/webstone/cert.pem"
    key_file: "/etc/webstone/key.pem"
    key_passphrase: "secret"
websocket:
  auth_timeout: 5
database:
  path: "/tmp/webstone.db"
mqtt:
  enabled: true
  topic_prefix: "ws"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9443 {
		t.Errorf("Server.Port = %d, want 9443", cfg.Server.Port)
	}
	if !cfg.Server.TLS.Enabled || cfg.Server.TLS.KeyPassphrase != "secret" {
		t.Errorf("Server.TLS = %+v", cfg.Server.TLS)
	}
	if cfg.AuthTimeout() != 5*time.Second {
		t.Errorf("AuthTimeout() = %v, want 5s", cfg.AuthTimeout())
	}
	if cfg.MQTT.TopicPrefix != "ws" {
		t.Errorf("MQTT.TopicPrefix = %q", cfg.MQTT.TopicPrefix)
	}
	// Untouched sections keep their defaults.
	if cfg.WebSocket.Path != "/" || cfg.WebSocket.SendBuffer != 256 {
		t.Errorf("WebSocket = %+v", cfg.WebSocket)
	}
	if cfg.SaveInterval() != 30*time.Second {
		t.Errorf("SaveInterval() = %v, want 30s", cfg.SaveInterval())
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Server.Port != 4321 {
		t.Errorf("default port = %d, want 4321", cfg.Server.Port)
	}
	if cfg.Security.PassphraseHash != "" {
		t.Error("default passphrase hash should be empty (open server)")
	}
	if cfg.AuthTimeout() != 15*time.Second {
		t.Errorf("default AuthTimeout() = %v, want 15s", cfg.AuthTimeout())
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(*testing.T) string { return "/nonexistent/webstone.yaml" }},
		{"invalid yaml", func(t *testing.T) string { return writeConfig(t, "server: [port: ") }},
		{"validation failure", func(t *testing.T) string { return writeConfig(t, "server:\n  port: 0\n") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.path(t)); err == nil {
				t.Error("Load() expected error, got nil")
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	hash, err := auth.HashPassphrase("letmein")
	if err != nil {
		t.Fatalf("HashPassphrase() error = %v", err)
	}
	t.Setenv("WEBSTONE_PASSPHRASE_HASH", hash)
	t.Setenv("WEBSTONE_DATABASE_PATH", "/var/lib/webstone/state.db")
	t.Setenv("WEBSTONE_SERVER_PORT", "5000")
	t.Setenv("WEBSTONE_MQTT_PASSWORD", "broker-secret")
	t.Setenv("WEBSTONE_INFLUXDB_TOKEN", "influx-token")

	cfg, err := Load(writeConfig(t, "server:\n  port: 4000\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Security.PassphraseHash != hash {
		t.Error("passphrase hash not overridden")
	}
	if cfg.Database.Path != "/var/lib/webstone/state.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want env value 5000", cfg.Server.Port)
	}
	if cfg.MQTT.Auth.Password != "broker-secret" || cfg.InfluxDB.Token != "influx-token" {
		t.Error("secrets not overridden")
	}
}

func TestLoad_BadPortEnv(t *testing.T) {
	t.Setenv("WEBSTONE_SERVER_PORT", "forty-two")
	if _, err := Load(""); err == nil {
		t.Error("Load() expected error for non-numeric WEBSTONE_SERVER_PORT")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"port too low", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"tls without files", func(c *Config) { c.Server.TLS.Enabled = true }, "server.tls.cert_file"},
		{"bad passphrase hash", func(c *Config) { c.Security.PassphraseHash = "plaintext" }, "security.passphrase_hash"},
		{"relative ws path", func(c *Config) { c.WebSocket.Path = "ws" }, "websocket.path"},
		{"zero auth timeout", func(c *Config) { c.WebSocket.AuthTimeout = 0 }, "websocket.auth_timeout"},
		{"zero send buffer", func(c *Config) { c.WebSocket.SendBuffer = 0 }, "websocket.send_buffer"},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"invalid qos", func(c *Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
		{"mqtt without prefix", func(c *Config) { c.MQTT.Enabled = true; c.MQTT.TopicPrefix = "" }, "mqtt.topic_prefix"},
		{"influx without url", func(c *Config) { c.InfluxDB.Enabled = true }, "influxdb.url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.Port = 0
	cfg.Database.Path = ""
	cfg.MQTT.QoS = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	if n := strings.Count(err.Error(), "; "); n != 2 {
		t.Errorf("Validate() joined %d separators, want 2: %v", n, err)
	}
}
