package config

import (
	"os"
	"path/filepath"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/letterbox_test")
	t.Setenv("RABBITMQ_URL", "amqp://localhost:5672")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("server_port = %s, want 8080", cfg.ServerPort)
	}
	if cfg.RateLimit != "10-S" {
		t.Errorf("rate_limit = %s, want 10-S", cfg.RateLimit)
	}
	if cfg.RabbitMQPrefetch != 1 {
		t.Errorf("prefetch = %d, want 1", cfg.RabbitMQPrefetch)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("RABBITMQ_URL", "amqp://localhost:5672")
	t.Setenv("LETTERBOX_CONFIG", "")

	if _, err := Load(); err == nil {
		t.Error("Load should fail without DATABASE_URL")
	}
}

func TestLoadRequiresRabbitMQURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/letterbox_test")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("LETTERBOX_CONFIG", "")

	if _, err := Load(); err == nil {
		t.Error("Load should fail without RABBITMQ_URL")
	}
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := []byte("database_url: postgres://file-host/letterbox\nrabbitmq_url: amqp://file-host:5672\nserver_port: \"9090\"\nrate_limit: 50-M\n")
	if err := os.WriteFile(path, contents, 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("LETTERBOX_CONFIG", path)
	t.Setenv("DATABASE_URL", "postgres://env-host/letterbox")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("RATE_LIMIT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Environment wins over the file
	if cfg.DatabaseURL != "postgres://env-host/letterbox" {
		t.Errorf("database_url = %s, want env value", cfg.DatabaseURL)
	}
	// File wins over built-in defaults
	if cfg.ServerPort != "9090" {
		t.Errorf("server_port = %s, want 9090 from file", cfg.ServerPort)
	}
	if cfg.RateLimit != "50-M" {
		t.Errorf("rate_limit = %s, want 50-M from file", cfg.RateLimit)
	}
	if cfg.RabbitMQURL != "amqp://file-host:5672" {
		t.Errorf("rabbitmq_url = %s, want file value", cfg.RabbitMQURL)
	}
}
