package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "file")
	t.Setenv("DISPATCH_DELAY", "1s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DispatchDelay != MinDispatchDelay {
		t.Fatalf("dispatch delay: got=%v want=%v", cfg.DispatchDelay, MinDispatchDelay)
	}
	if cfg.MaxAttendees != 7 {
		t.Fatalf("max attendees: got=%d want=7", cfg.MaxAttendees)
	}
	if cfg.LLM.Timeout != 5*time.Second {
		t.Fatalf("llm timeout: got=%v", cfg.LLM.Timeout)
	}
	if got := cfg.GuestFilePath(); got != "data/guests.json" {
		t.Fatalf("guest file path: got=%q", got)
	}
}

func TestLoadConfigRequiresDatabaseURLForPostgres(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mongo")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
