package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/iwvelando/contract-forecast/internal/snapshot"
	"github.com/iwvelando/contract-forecast/internal/store"
	"go.uber.org/zap"
)

func TestOpenSourceNothingConfigured(t *testing.T) {
	if _, err := OpenSource(context.Background(), nil, "", DatabaseConfig{Driver: "sqlite"}); !errors.Is(err, ErrNoSource) {
		t.Fatalf("expected ErrNoSource, got %v", err)
	}
}

func TestOpenSourceSnapshotTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "P-1.yaml"), []byte("projectId: P-1\ncostCodes: []\n"), 0600); err != nil {
		t.Fatalf("failed to write snapshot: %v", err)
	}

	src, err := OpenSource(context.Background(), zap.NewNop(), dir, DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("OpenSource() error = %v", err)
	}
	defer func() {
		_ = src.Close()
	}()

	if src.Store != nil {
		t.Fatal("expected no database to be opened")
	}
	if _, ok := src.Loader.(*snapshot.FileLoader); !ok {
		t.Fatalf("expected a file loader, got %T", src.Loader)
	}
	snap, err := src.Loader.Load(context.Background(), "P-1", true)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap.ProjectID != "P-1" {
		t.Errorf("expected project P-1, got %s", snap.ProjectID)
	}
}

func TestOpenSourceDatabase(t *testing.T) {
	ctx := context.Background()
	src, err := OpenSource(ctx, zap.NewNop(), "", DatabaseConfig{Driver: "sqlite", DSN: ":memory:", Migrate: true})
	if err != nil {
		t.Fatalf("OpenSource() error = %v", err)
	}
	defer func() {
		_ = src.Close()
	}()

	if _, ok := src.Loader.(*store.Store); !ok || src.Store == nil {
		t.Fatalf("expected a database store, got %T", src.Loader)
	}
	if _, err := src.Loader.Load(ctx, "P-404", true); !errors.Is(err, snapshot.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound from migrated database, got %v", err)
	}
}

func TestOpenSourceBadDriver(t *testing.T) {
	if _, err := OpenSource(context.Background(), nil, "", DatabaseConfig{Driver: "mysql", DSN: "x"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestInitializeLogger(t *testing.T) {
	tests := []struct {
		name      string
		config    LoggingConfig
		override  string
		wantError bool
	}{
		{name: "Defaults"},
		{name: "Console debug", config: LoggingConfig{Level: "debug", Format: "console"}},
		{name: "Override wins", config: LoggingConfig{Level: "bogus"}, override: "warn"},
		{name: "Invalid level", config: LoggingConfig{Level: "loud"}, wantError: true},
		{name: "Invalid format", config: LoggingConfig{Format: "xml"}, wantError: true},
		{name: "Output file", config: LoggingConfig{OutputFile: filepath.Join(t.TempDir(), "logs", "forecast.log")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := InitializeLogger(tt.config, tt.override)
			if tt.wantError {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("InitializeLogger() error = %v", err)
			}
			_ = logger.Sync()
		})
	}
}
