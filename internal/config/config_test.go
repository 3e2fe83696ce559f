package config

import "testing"

func TestLoadWithOptions_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("METRICS_ADDR", "")
	t.Setenv("AUDIT_WINDOW_DAYS", "")
	t.Setenv("BATCH_WORKERS", "")

	cfg, err := LoadWithOptions(LoadOptions{RequireDatabaseURL: false})
	if err != nil {
		t.Fatalf("LoadWithOptions() error = %v", err)
	}
	if cfg.HTTPAddr != defaultHTTPAddr {
		t.Fatalf("HTTPAddr = %s, want %s", cfg.HTTPAddr, defaultHTTPAddr)
	}
	if cfg.AuditWindowDays != defaultAuditWindowDays {
		t.Fatalf("AuditWindowDays = %d, want %d", cfg.AuditWindowDays, defaultAuditWindowDays)
	}
	if cfg.BatchWorkers != defaultBatchWorkers {
		t.Fatalf("BatchWorkers = %d, want %d", cfg.BatchWorkers, defaultBatchWorkers)
	}
	if !cfg.PersistResults {
		t.Fatal("PersistResults = false, want true by default")
	}
}

func TestLoadWithOptions_ParsesOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("AUDIT_WINDOW_DAYS", "30")
	t.Setenv("BATCH_WORKERS", "16")
	t.Setenv("PERSIST_RESULTS", "0")

	cfg, err := LoadWithOptions(LoadOptions{RequireDatabaseURL: false})
	if err != nil {
		t.Fatalf("LoadWithOptions() error = %v", err)
	}
	if cfg.AuditWindowDays != 30 {
		t.Fatalf("AuditWindowDays = %d, want 30", cfg.AuditWindowDays)
	}
	if cfg.BatchWorkers != 16 {
		t.Fatalf("BatchWorkers = %d, want 16", cfg.BatchWorkers)
	}
	if cfg.PersistResults {
		t.Fatal("PersistResults = true, want false")
	}
}

func TestLoadWithOptions_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadWithOptions(LoadOptions{RequireDatabaseURL: true}); err == nil {
		t.Fatal("LoadWithOptions() accepted empty DATABASE_URL with RequireDatabaseURL")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/saasxray")
	cfg, err := LoadWithOptions(LoadOptions{RequireDatabaseURL: true})
	if err != nil {
		t.Fatalf("LoadWithOptions() error = %v", err)
	}
	if cfg.DatabaseURL == "" {
		t.Fatal("DatabaseURL not loaded")
	}
}

func TestGetenvIntDefaultRejectsInvalid(t *testing.T) {
	t.Setenv("BATCH_WORKERS", "not-a-number")
	if got := getenvIntDefault("BATCH_WORKERS", defaultBatchWorkers); got != defaultBatchWorkers {
		t.Fatalf("getenvIntDefault = %d, want default %d", got, defaultBatchWorkers)
	}
	t.Setenv("BATCH_WORKERS", "0")
	if got := getenvIntDefault("BATCH_WORKERS", defaultBatchWorkers); got != defaultBatchWorkers {
		t.Fatalf("getenvIntDefault(0) = %d, want default %d", got, defaultBatchWorkers)
	}
}
