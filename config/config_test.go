package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("PORT", "")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("NOTIFY_MAX_ATTEMPTS", "")
	t.Setenv("REMINDER_SPEC", "")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8000" {
		t.Errorf("port = %s", cfg.Port)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("token ttl = %s", cfg.TokenTTL)
	}
	if cfg.NotifyMaxAttempts != 5 {
		t.Errorf("max attempts = %d", cfg.NotifyMaxAttempts)
	}
	if cfg.ReminderSpec != "0 18 * * *" {
		t.Errorf("reminder spec = %q", cfg.ReminderSpec)
	}
}

func TestFromEnvValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": "", "STORE_DRIVER": "memory"}},
		{"postgres without url", map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": "postgres", "DATABASE_URL": ""}},
		{"mongo without uri", map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": "mongo", "MONGO_URI": ""}},
		{"unknown driver", map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": "sqlite"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := FromEnv(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("SEED_DEFAULTS", "true")
	t.Setenv("NOTIFY_MAX_ATTEMPTS", "0")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StoreDriver != "memory" || cfg.TokenTTL != 2*time.Hour || !cfg.SeedDefaults {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.NotifyMaxAttempts != 1 {
		t.Errorf("max attempts should be clamped to 1, got %d", cfg.NotifyMaxAttempts)
	}
}
