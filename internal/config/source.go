package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/iwvelando/contract-forecast/internal/snapshot"
	"github.com/iwvelando/contract-forecast/internal/store"
	"go.uber.org/zap"
)

// ErrNoSource is returned when neither a snapshot path nor a database is
// configured.
var ErrNoSource = errors.New("no snapshot path or database configured")

// Source is an opened project record source. Store is nil for snapshot files.
type Source struct {
	Loader snapshot.Loader
	Store  *store.Store
}

// Close releases the database connection, if any.
func (s *Source) Close() error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.Close()
}

// OpenSource selects where project records are read from. A snapshot path
// takes precedence over the database.
func OpenSource(ctx context.Context, logger *zap.Logger, snapshotPath string, db DatabaseConfig) (*Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if snapshotPath != "" {
		logger.Debug("reading project snapshots from files",
			zap.String("op", "config.OpenSource"),
			zap.String("path", snapshotPath),
		)
		return &Source{Loader: snapshot.NewFileLoader(snapshotPath)}, nil
	}
	if db.DSN == "" {
		return nil, ErrNoSource
	}

	conn, err := store.Open(db.Driver, db.DSN)
	if err != nil {
		return nil, err
	}
	st := store.New(conn, db.Driver, store.WithLogger(logger), store.WithPeriod(db.Period))
	if db.Migrate {
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	logger.Debug("reading project records from database",
		zap.String("op", "config.OpenSource"),
		zap.String("driver", db.Driver),
		zap.String("period", db.Period),
	)
	return &Source{Loader: st, Store: st}, nil
}
