package config

import (
	"os"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func clearEnv() {
	envVars := []string{
		"SERVER_ADDR", "SERVER_PORT", "DB_HOST", "DB_PORT", "DB_USER",
		"DB_PASSWORD", "DB_NAME", "DB_SSLMODE", "SESSION_TTL",
		"VERIFICATION_TOKEN_TTL", "RESET_TOKEN_TTL", "MAX_LOGIN_ATTEMPTS",
		"LOCKOUT_DURATION", "CLEANUP_INTERVAL", "ARGON2_TIME_COST",
		"ARGON2_MEMORY_KIB", "SMTP_HOST", "SIGNING_SECRET",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv()
	os.Setenv("SIGNING_SECRET", testSecret)
	defer os.Unsetenv("SIGNING_SECRET")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerAddr != "0.0.0.0" {
		t.Errorf("ServerAddr = %q, want %q", cfg.ServerAddr, "0.0.0.0")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want %v", cfg.SessionTTL, 24*time.Hour)
	}
	if cfg.VerificationTokenTTL != 24*time.Hour {
		t.Errorf("VerificationTokenTTL = %v, want %v", cfg.VerificationTokenTTL, 24*time.Hour)
	}
	if cfg.ResetTokenTTL != time.Hour {
		t.Errorf("ResetTokenTTL = %v, want %v", cfg.ResetTokenTTL, time.Hour)
	}
	if cfg.MaxLoginAttempts != 5 {
		t.Errorf("MaxLoginAttempts = %d, want %d", cfg.MaxLoginAttempts, 5)
	}
	if cfg.LockoutDuration != 30*time.Minute {
		t.Errorf("LockoutDuration = %v, want %v", cfg.LockoutDuration, 30*time.Minute)
	}
	if cfg.CleanupInterval != time.Hour {
		t.Errorf("CleanupInterval = %v, want %v", cfg.CleanupInterval, time.Hour)
	}
	if cfg.Argon2TimeCost != 2 || cfg.Argon2MemoryKiB != 65536 || cfg.Argon2Threads != 1 {
		t.Errorf("argon2 defaults = t=%d m=%d p=%d, want t=2 m=65536 p=1",
			cfg.Argon2TimeCost, cfg.Argon2MemoryKiB, cfg.Argon2Threads)
	}
	if cfg.HasSMTP() {
		t.Error("HasSMTP should be false without SMTP_HOST")
	}
}

func TestLoad_RequiredSigningSecret(t *testing.T) {
	clearEnv()

	if _, err := Load(); err == nil {
		t.Error("Load should fail when SIGNING_SECRET is not set")
	}

	os.Setenv("SIGNING_SECRET", "too-short")
	defer os.Unsetenv("SIGNING_SECRET")
	if _, err := Load(); err == nil {
		t.Error("Load should fail when SIGNING_SECRET is too short")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv()
	os.Setenv("SIGNING_SECRET", testSecret)
	os.Setenv("SERVER_PORT", "9090")
	os.Setenv("SESSION_TTL", "1h")
	os.Setenv("MAX_LOGIN_ATTEMPTS", "3")
	os.Setenv("LOCKOUT_DURATION", "15m")
	os.Setenv("SMTP_HOST", "mail.example.com")
	defer clearEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerPort != 9090 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 9090)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("SessionTTL = %v, want %v", cfg.SessionTTL, time.Hour)
	}
	if cfg.MaxLoginAttempts != 3 {
		t.Errorf("MaxLoginAttempts = %d, want %d", cfg.MaxLoginAttempts, 3)
	}
	if cfg.LockoutDuration != 15*time.Minute {
		t.Errorf("LockoutDuration = %v, want %v", cfg.LockoutDuration, 15*time.Minute)
	}
	if !cfg.HasSMTP() {
		t.Error("HasSMTP should be true with SMTP_HOST set")
	}
}
