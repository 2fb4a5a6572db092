package config

import (
	"os"
	"testing"
	"time"
)

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		shouldSet bool
		wantPanic bool
	}{
		{
			name:      "variable set",
			key:       "TEST_VAR",
			value:     "test_value",
			shouldSet: true,
			wantPanic: false,
		},
		{
			name:      "variable not set",
			key:       "TEST_VAR_MISSING",
			shouldSet: false,
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnv() should have panicked")
					}
				}()
			}

			result := requireEnv(tt.key)
			if !tt.wantPanic && result != tt.value {
				t.Errorf("requireEnv() = %v, want %v", result, tt.value)
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{
			name:     "valid duration",
			key:      "TEST_DURATION",
			value:    "5s",
			def:      1 * time.Second,
			expected: 5 * time.Second,
		},
		{
			name:     "invalid duration uses default",
			key:      "TEST_DURATION_INVALID",
			value:    "invalid",
			def:      10 * time.Second,
			expected: 10 * time.Second,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_DURATION_MISSING",
			value:    "",
			def:      15 * time.Second,
			expected: 15 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustDuration(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      bool
		expected bool
	}{
		{
			name:     "true value",
			key:      "TEST_BOOL",
			value:    "true",
			def:      false,
			expected: true,
		},
		{
			name:     "false value",
			key:      "TEST_BOOL_FALSE",
			value:    "false",
			def:      true,
			expected: false,
		},
		{
			name:     "invalid value uses default",
			key:      "TEST_BOOL_INVALID",
			value:    "invalid",
			def:      true,
			expected: true,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_BOOL_MISSING",
			value:    "",
			def:      false,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustBool(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestDefaultHosts(t *testing.T) {
	tests := []struct {
		name       string
		listenAddr string
		expected   []string
	}{
		{"loopback", "127.0.0.1:8787", []string{"127.0.0.1:8787", "localhost:8787"}},
		{"all interfaces", ":9000", []string{"localhost:9000", "127.0.0.1:9000"}},
		{"named host", "box.lan:8787", []string{"box.lan:8787"}},
		{"no port", "garbage", []string{"garbage"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := defaultHosts(tt.listenAddr)
			if len(result) != len(tt.expected) {
				t.Fatalf("defaultHosts() = %v, want %v", result, tt.expected)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("defaultHosts()[%d] = %v, want %v", i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestParseList(t *testing.T) {
	def := []string{"fallback"}

	if got := parseList("", def); len(got) != 1 || got[0] != "fallback" {
		t.Errorf("parseList(empty) = %v, want default", got)
	}
	if got := parseList(" , ", def); len(got) != 1 || got[0] != "fallback" {
		t.Errorf("parseList(blank items) = %v, want default", got)
	}
	got := parseList(`"a", 'b' ,c`, def)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("parseList() = %v, want [a b c]", got)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("MARKSYNC_JWT_SECRET", "s3cret")
	t.Setenv("MARKSYNC_REDIS_ADDR", "localhost:6379")
	t.Setenv("MARKSYNC_POLL_INTERVAL", "500ms")
	t.Setenv("MARKSYNC_TOKEN_FILE", "/tmp/marksync-token")
	t.Setenv("MARKSYNC_LOG_LEVEL", "warn")

	cfg := Load()

	if cfg.ListenAddr != "127.0.0.1:8787" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.TokenFile != "/tmp/marksync-token" {
		t.Errorf("TokenFile = %q", cfg.TokenFile)
	}
	if cfg.TokenExpiry != 30*24*time.Hour {
		t.Errorf("TokenExpiry = %v", cfg.TokenExpiry)
	}
	if len(cfg.AllowedCIDRS) != 2 || len(cfg.AllowedHosts) != 2 {
		t.Errorf("unexpected access defaults: hosts=%v cidrs=%v", cfg.AllowedHosts, cfg.AllowedCIDRS)
	}
}

func TestLoadPanics(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing jwt secret",
			env:  map[string]string{"MARKSYNC_REDIS_ADDR": "localhost:6379"},
		},
		{
			name: "missing redis addr",
			env:  map[string]string{"MARKSYNC_JWT_SECRET": "s"},
		},
		{
			name: "password required but empty",
			env: map[string]string{
				"MARKSYNC_JWT_SECRET":              "s",
				"MARKSYNC_REDIS_ADDR":              "localhost:6379",
				"MARKSYNC_REDIS_PASSWORD_REQUIRED": "true",
			},
		},
		{
			name: "invalid client network",
			env: map[string]string{
				"MARKSYNC_JWT_SECRET":    "s",
				"MARKSYNC_REDIS_ADDR":    "localhost:6379",
				"MARKSYNC_ALLOWED_CIDRS": "10.0.0.0/8, not-a-network",
			},
		},
		{
			name: "non-positive poll interval",
			env: map[string]string{
				"MARKSYNC_JWT_SECRET":    "s",
				"MARKSYNC_REDIS_ADDR":    "localhost:6379",
				"MARKSYNC_POLL_INTERVAL": "0s",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"MARKSYNC_JWT_SECRET", "MARKSYNC_REDIS_ADDR", "MARKSYNC_REDIS_PASSWORD_REQUIRED", "MARKSYNC_POLL_INTERVAL", "MARKSYNC_ALLOWED_CIDRS"} {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			defer func() {
				if r := recover(); r == nil {
					t.Errorf("Load() should have panicked")
				}
			}()
			Load()
		})
	}
}
