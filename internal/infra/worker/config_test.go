package worker

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

var globalTestMetrics = NewWorkerMetrics()

var workerEnvKeys = []string{
	"CRON_SCHEDULE",
	"WORKER_TIMEZONE",
	"SYNC_TIMEOUT",
	"FETCH_TIMEOUT",
	"EMPTY_FETCH_CONFIRMATIONS",
	"WORKER_HEALTH_PORT",
	"METRICS_PORT",
}

// clearWorkerEnv blanks every worker key for the duration of the test.
func clearWorkerEnv(t *testing.T) {
	t.Helper()
	for _, key := range workerEnvKeys {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.CronSchedule != "0 * * * *" {
		t.Errorf("Expected CronSchedule '0 * * * *', got '%s'", config.CronSchedule)
	}
	if config.Timezone != "UTC" {
		t.Errorf("Expected Timezone 'UTC', got '%s'", config.Timezone)
	}
	if config.SyncTimeout != 30*time.Minute {
		t.Errorf("Expected SyncTimeout 30m, got %v", config.SyncTimeout)
	}
	if config.FetchTimeout != 30*time.Second {
		t.Errorf("Expected FetchTimeout 30s, got %v", config.FetchTimeout)
	}
	if config.EmptyFetchConfirmations != 3 {
		t.Errorf("Expected EmptyFetchConfirmations 3, got %d", config.EmptyFetchConfirmations)
	}
	if config.HealthPort != 9091 || config.MetricsPort != 9090 {
		t.Errorf("Expected ports 9091/9090, got %d/%d", config.HealthPort, config.MetricsPort)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got error: %v", err)
	}
}

func TestWorkerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *WorkerConfig)
		wantErr string
	}{
		{name: "valid custom", mutate: func(c *WorkerConfig) {
			c.CronSchedule = "*/15 6-22 * * 1-5"
			c.Timezone = "Europe/Warsaw"
			c.EmptyFetchConfirmations = 1
		}},
		{name: "invalid cron", mutate: func(c *WorkerConfig) { c.CronSchedule = "every hour" }, wantErr: "cron schedule"},
		{name: "empty cron", mutate: func(c *WorkerConfig) { c.CronSchedule = "" }, wantErr: "cron schedule"},
		{name: "invalid timezone", mutate: func(c *WorkerConfig) { c.Timezone = "Mars/Olympus" }, wantErr: "timezone"},
		{name: "sync timeout too short", mutate: func(c *WorkerConfig) { c.SyncTimeout = 30 * time.Second }, wantErr: "sync timeout"},
		{name: "fetch timeout zero", mutate: func(c *WorkerConfig) { c.FetchTimeout = 0 }, wantErr: "fetch timeout"},
		{name: "confirmations zero", mutate: func(c *WorkerConfig) { c.EmptyFetchConfirmations = 0 }, wantErr: "empty fetch confirmations"},
		{name: "privileged health port", mutate: func(c *WorkerConfig) { c.HealthPort = 80 }, wantErr: "health port"},
		{name: "metrics port too high", mutate: func(c *WorkerConfig) { c.MetricsPort = 70000 }, wantErr: "metrics port"},
		{name: "same ports", mutate: func(c *WorkerConfig) { c.MetricsPort = c.HealthPort }, wantErr: "must differ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)

			err := config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected valid config, got error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestWorkerConfig_Validate_MultipleErrors(t *testing.T) {
	config := DefaultConfig()
	config.CronSchedule = "invalid"
	config.Timezone = "Invalid/Zone"
	config.HealthPort = 0

	err := config.Validate()
	if err == nil {
		t.Fatal("Expected validation error, got nil")
	}
	for _, want := range []string{"cron schedule", "timezone", "health port"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected error to mention %q, got: %v", want, err)
		}
	}
}

func TestLoadConfigFromEnv_AllEnvVarsValid(t *testing.T) {
	clearWorkerEnv(t)
	t.Setenv("CRON_SCHEDULE", "*/30 * * * *")
	t.Setenv("WORKER_TIMEZONE", "Europe/Warsaw")
	t.Setenv("SYNC_TIMEOUT", "1h")
	t.Setenv("FETCH_TIMEOUT", "10s")
	t.Setenv("EMPTY_FETCH_CONFIRMATIONS", "5")
	t.Setenv("WORKER_HEALTH_PORT", "8081")
	t.Setenv("METRICS_PORT", "8082")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	config, err := LoadConfigFromEnv(logger, globalTestMetrics)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := WorkerConfig{
		CronSchedule:            "*/30 * * * *",
		Timezone:                "Europe/Warsaw",
		SyncTimeout:             time.Hour,
		FetchTimeout:            10 * time.Second,
		EmptyFetchConfirmations: 5,
		HealthPort:              8081,
		MetricsPort:             8082,
	}
	if *config != want {
		t.Errorf("Expected %+v, got %+v", want, *config)
	}
	if buf.Len() > 0 {
		t.Errorf("Expected no warnings, got: %s", buf.String())
	}
}

func TestLoadConfigFromEnv_MissingEnvVars(t *testing.T) {
	clearWorkerEnv(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	config, err := LoadConfigFromEnv(logger, globalTestMetrics)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if *config != DefaultConfig() {
		t.Errorf("Expected defaults, got %+v", *config)
	}
	if buf.Len() > 0 {
		t.Errorf("Expected no warnings, got: %s", buf.String())
	}
}

func TestLoadConfigFromEnv_InvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		key   string
		value string
		field string
		check func(c *WorkerConfig) bool
	}{
		{"CRON_SCHEDULE", "invalid cron", "CronSchedule", func(c *WorkerConfig) bool { return c.CronSchedule == "0 * * * *" }},
		{"WORKER_TIMEZONE", "Invalid/Timezone", "Timezone", func(c *WorkerConfig) bool { return c.Timezone == "UTC" }},
		{"SYNC_TIMEOUT", "10s", "SyncTimeout", func(c *WorkerConfig) bool { return c.SyncTimeout == 30*time.Minute }},
		{"FETCH_TIMEOUT", "soon", "FetchTimeout", func(c *WorkerConfig) bool { return c.FetchTimeout == 30*time.Second }},
		{"EMPTY_FETCH_CONFIRMATIONS", "0", "EmptyFetchConfirmations", func(c *WorkerConfig) bool { return c.EmptyFetchConfirmations == 3 }},
		{"WORKER_HEALTH_PORT", "80", "HealthPort", func(c *WorkerConfig) bool { return c.HealthPort == 9091 }},
		{"METRICS_PORT", "abc", "MetricsPort", func(c *WorkerConfig) bool { return c.MetricsPort == 9090 }},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearWorkerEnv(t)
			t.Setenv(tt.key, tt.value)

			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			config, err := LoadConfigFromEnv(logger, globalTestMetrics)
			if err != nil {
				t.Fatalf("Expected no error (fail-open), got: %v", err)
			}
			if !tt.check(config) {
				t.Errorf("Expected default for %s, got %+v", tt.field, *config)
			}

			logOutput := buf.String()
			if !strings.Contains(logOutput, "Configuration fallback applied") {
				t.Errorf("Expected fallback warning, got: %s", logOutput)
			}
			if !strings.Contains(logOutput, tt.field) {
				t.Errorf("Expected warning to mention %s, got: %s", tt.field, logOutput)
			}
		})
	}
}

func TestLoadConfigFromEnv_PartiallyValid(t *testing.T) {
	clearWorkerEnv(t)
	t.Setenv("CRON_SCHEDULE", "0 6 * * *")
	t.Setenv("WORKER_TIMEZONE", "Invalid/Zone")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	config, _ := LoadConfigFromEnv(logger, globalTestMetrics)

	if config.CronSchedule != "0 6 * * *" {
		t.Errorf("Expected valid CronSchedule to be kept, got '%s'", config.CronSchedule)
	}
	if config.Timezone != "UTC" {
		t.Errorf("Expected default Timezone, got '%s'", config.Timezone)
	}
	if strings.Count(buf.String(), "Configuration fallback applied") != 1 {
		t.Errorf("Expected exactly one fallback warning, got: %s", buf.String())
	}
}
