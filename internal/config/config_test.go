package config

import (
	"testing"
	"time"
)

func setEnv(t *testing.T, values map[string]string) {
	t.Helper()
	for _, key := range []string{"TELEGRAM_TOKEN", "DATABASE_URL", "REPORT_TIME", "TZ_NAME", "LOG_LEVEL", "LOG_FILE"} {
		t.Setenv(key, values[key])
	}
}

func TestLoadDefaults(t *testing.T) {
	setEnv(t, map[string]string{"TELEGRAM_TOKEN": "token"})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DatabaseURL != "task_calendar.db" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.ReportTime != "08:00" {
		t.Errorf("ReportTime = %q", cfg.ReportTime)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.LogFile != "" {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
	if cfg.Location != time.Local {
		t.Errorf("Location = %v, want Local", cfg.Location)
	}
}

func TestLoadOverrides(t *testing.T) {
	setEnv(t, map[string]string{
		"TELEGRAM_TOKEN": " token ",
		"DATABASE_URL":   "postgres://localhost/tasks",
		"REPORT_TIME":    "21:30",
		"TZ_NAME":        "UTC",
		"LOG_LEVEL":      "debug",
		"LOG_FILE":       "logs/app.log",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TelegramToken != "token" {
		t.Errorf("TelegramToken = %q", cfg.TelegramToken)
	}
	if cfg.DatabaseURL != "postgres://localhost/tasks" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.ReportTime != "21:30" || cfg.LogLevel != "debug" || cfg.LogFile != "logs/app.log" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Location.String() != "UTC" {
		t.Errorf("Location = %v", cfg.Location)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	setEnv(t, nil)

	if _, err := Load(); err == nil {
		t.Fatal("expected error without TELEGRAM_TOKEN")
	}
}

func TestLoadRejectsUnknownLocation(t *testing.T) {
	setEnv(t, map[string]string{"TELEGRAM_TOKEN": "token", "TZ_NAME": "Mars/Olympus"})

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown location")
	}
}
