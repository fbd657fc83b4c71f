package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadWithPath(writeEnvFile(t, ""))
	if err != nil {
		t.Fatalf("LoadWithPath failed: %v", err)
	}

	if cfg.App.Name != "finice-auth" {
		t.Errorf("App.Name = %s, want finice-auth", cfg.App.Name)
	}
	if cfg.App.Environment != "development" {
		t.Errorf("App.Environment = %s, want development", cfg.App.Environment)
	}
	// the log level must be a value zap can parse, not the environment name
	if cfg.App.LogLevel != "info" {
		t.Errorf("App.LogLevel = %s, want info", cfg.App.LogLevel)
	}
	if cfg.Auth.LockoutThreshold != 5 {
		t.Errorf("Auth.LockoutThreshold = %d, want 5", cfg.Auth.LockoutThreshold)
	}
	if cfg.Auth.RefreshTokenTTL <= cfg.JWT.AccessTokenTTL {
		t.Error("refresh TTL must exceed access TTL by default")
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	cfg, err := LoadWithPath(writeEnvFile(t, "APP_LOG_LEVEL=debug\nSERVER_PORT=9000\n"))
	if err != nil {
		t.Fatalf("LoadWithPath failed: %v", err)
	}

	if cfg.App.LogLevel != "debug" {
		t.Errorf("App.LogLevel = %s, want debug", cfg.App.LogLevel)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
}

func TestLoad_RejectsInvalidLogLevel(t *testing.T) {
	// environment names are not log levels
	if _, err := LoadWithPath(writeEnvFile(t, "APP_LOG_LEVEL=production\n")); err == nil {
		t.Error("expected validation to reject a non-level log level")
	}
}

func TestLoad_RejectsDevSecretInProduction(t *testing.T) {
	if _, err := LoadWithPath(writeEnvFile(t, "APP_ENVIRONMENT=production\n")); err == nil {
		t.Error("expected validation to reject the dev JWT secret in production")
	}
}
