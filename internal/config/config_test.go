package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SERVICE_JWT_SECRET", "test-secret-32-characters-long!")
	t.Setenv("DB_PASSWORD", "test")
}

func TestServerConfig_Timeouts_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	tests := []struct {
		name     string
		actual   time.Duration
		expected time.Duration
	}{
		{"ReadTimeout", cfg.Server.ReadTimeout, 15 * time.Second},
		{"WriteTimeout", cfg.Server.WriteTimeout, 15 * time.Second},
		{"IdleTimeout", cfg.Server.IdleTimeout, 60 * time.Second},
	}

	for _, tt := range tests {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}
}

func TestServerConfig_Timeouts_CustomValues(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_READ_TIMEOUT", "30s")
	t.Setenv("SERVER_WRITE_TIMEOUT", "45s")
	t.Setenv("SERVER_IDLE_TIMEOUT", "120s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("ReadTimeout: got %v, want 30s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 45*time.Second {
		t.Errorf("WriteTimeout: got %v, want 45s", cfg.Server.WriteTimeout)
	}
	if cfg.Server.IdleTimeout != 120*time.Second {
		t.Errorf("IdleTimeout: got %v, want 120s", cfg.Server.IdleTimeout)
	}
}

func TestDeviceConfig_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if !reflect.DeepEqual(cfg.Devices.MatchingAttributes, DefaultMatchingAttributes) {
		t.Errorf("MatchingAttributes: got %v, want %v", cfg.Devices.MatchingAttributes, DefaultMatchingAttributes)
	}
	if cfg.Devices.LoginThrottleMinutes != 0 {
		t.Errorf("LoginThrottleMinutes: got %d, want 0", cfg.Devices.LoginThrottleMinutes)
	}
	if cfg.Devices.LoginColumn != "email" {
		t.Errorf("LoginColumn: got %q, want email", cfg.Devices.LoginColumn)
	}
	if !cfg.Database.MigrateOnStart {
		t.Error("MigrateOnStart: got false, want true")
	}
}

func TestDeviceConfig_CustomValues(t *testing.T) {
	setRequired(t)
	t.Setenv("DEVICE_MATCHING_ATTRIBUTES", "ip, platform,platform_version , browser")
	t.Setenv("LOGIN_THROTTLE_MINUTES", "15")
	t.Setenv("LOGIN_COLUMN", "Name")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	want := []string{"ip", "platform", "platform_version", "browser"}
	if !reflect.DeepEqual(cfg.Devices.MatchingAttributes, want) {
		t.Errorf("MatchingAttributes: got %v, want %v", cfg.Devices.MatchingAttributes, want)
	}
	if cfg.Devices.LoginThrottleMinutes != 15 {
		t.Errorf("LoginThrottleMinutes: got %d, want 15", cfg.Devices.LoginThrottleMinutes)
	}
	if cfg.Devices.LoginColumn != "name" {
		t.Errorf("LoginColumn: got %q, want name", cfg.Devices.LoginColumn)
	}
	if len(cfg.Events.KafkaBrokers) != 2 {
		t.Errorf("KafkaBrokers: got %v, want 2 brokers", cfg.Events.KafkaBrokers)
	}
}

func TestDeviceConfig_EmptyAttributeList(t *testing.T) {
	setRequired(t)
	t.Setenv("DEVICE_MATCHING_ATTRIBUTES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Devices.MatchingAttributes == nil || len(cfg.Devices.MatchingAttributes) != 0 {
		t.Errorf("MatchingAttributes: got %#v, want empty list", cfg.Devices.MatchingAttributes)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing service secret",
			env:     map[string]string{"DB_PASSWORD": "test"},
			wantErr: "SERVICE_JWT_SECRET is required",
		},
		{
			name:    "missing db password",
			env:     map[string]string{"SERVICE_JWT_SECRET": "test-secret-32-characters-long!"},
			wantErr: "DB_PASSWORD is required",
		},
		{
			name: "short secret in production",
			env: map[string]string{
				"DB_PASSWORD":        "test",
				"SERVICE_JWT_SECRET": "only-twenty-chars!!!",
				"ENV":                "production",
			},
			wantErr: "at least 32 characters",
		},
		{
			name: "unsupported login column",
			env: map[string]string{
				"DB_PASSWORD":        "test",
				"SERVICE_JWT_SECRET": "test-secret-32-characters-long!",
				"LOGIN_COLUMN":       "password_hash",
			},
			wantErr: "LOGIN_COLUMN",
		},
		{
			name: "negative throttle",
			env: map[string]string{
				"DB_PASSWORD":            "test",
				"SERVICE_JWT_SECRET":     "test-secret-32-characters-long!",
				"LOGIN_THROTTLE_MINUTES": "-5",
			},
			wantErr: "LOGIN_THROTTLE_MINUTES",
		},
		{
			name: "notification without sender",
			env: map[string]string{
				"DB_PASSWORD":        "test",
				"SERVICE_JWT_SECRET": "test-secret-32-characters-long!",
				"NOTIFY_NEW_DEVICE":  "true",
			},
			wantErr: "EMAIL_FROM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_PASSWORD", "")
			t.Setenv("SERVICE_JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatalf("Load() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}
