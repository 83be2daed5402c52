package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	_ "modernc.org/sqlite"

	"github.com/rbaliyan/stag"
	"github.com/rbaliyan/stag/file"
	"github.com/rbaliyan/stag/memory"
	"github.com/rbaliyan/stag/mongodb"
	"github.com/rbaliyan/stag/multi"
	stagotel "github.com/rbaliyan/stag/otel"
	"github.com/rbaliyan/stag/postgres"
	"github.com/rbaliyan/stag/sqlite"
)

const defaultManifestDir = ".stag/manifests"

// errUnknownBackend is returned for a manifest backend name stag does not know.
var errUnknownBackend = errors.New("unknown manifest backend")

// openStore builds and connects the manifest store selected by ms. A nil
// store with a no-op closer is returned for the "none" backend.
//
// Backends that notify about publishes by other processes drop the
// affected entries from cache.
func openStore(ctx context.Context, ms stag.ManifestSettings, ts stag.TelemetrySettings, cache *stag.LookupCache, logger *slog.Logger) (stag.ManifestStore, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	store, err := backend(ms, cache, logger, &closers)
	if err != nil || store == nil {
		closeAll()
		return nil, func() {}, err
	}

	if ms.Fallback != nil {
		fallback, err := backend(*ms.Fallback, cache, logger, &closers)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		if fallback != nil {
			store = multi.NewStore([]stag.ManifestStore{store, fallback})
		}
	}

	if ts.Traces || ts.Metrics {
		wrapped, err := stagotel.WrapStore(store,
			stagotel.WithTelemetry(ts),
			stagotel.WithBackendName(strings.ToLower(ms.Backend)),
		)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		store = wrapped
	}

	if err := store.Connect(ctx); err != nil {
		closeAll()
		return nil, func() {}, err
	}
	closers = append(closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			logger.Warn("failed to close manifest store", "error", err)
		}
	})

	logger.Debug("manifest store ready", "backend", ms.Backend, "fallback", ms.Fallback != nil)
	return store, closeAll, nil
}

// backend creates one unconnected store. Connections it opens are closed
// through closers.
func backend(ms stag.ManifestSettings, cache *stag.LookupCache, logger *slog.Logger, closers *[]func()) (stag.ManifestStore, error) {
	switch strings.ToLower(ms.Backend) {
	case "", "none":
		return nil, nil

	case "memory":
		return memory.NewStore(), nil

	case "file":
		dir := ms.Dir
		if dir == "" {
			dir = defaultManifestDir
		}
		return file.NewStore(dir, file.WithStoreFormat(ms.Format), file.WithLogger(logger)), nil

	case "sqlite":
		if ms.DSN == "" {
			return nil, fmt.Errorf("sqlite manifest backend needs a dsn")
		}
		db, err := sql.Open("sqlite", ms.DSN)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, func() { db.Close() })
		opts := []sqlite.Option{sqlite.WithLogger(logger)}
		if ms.Table != "" {
			opts = append(opts, sqlite.WithTable(ms.Table))
		}
		return sqlite.NewStore(db, opts...), nil

	case "postgres", "postgresql":
		if ms.DSN == "" {
			return nil, fmt.Errorf("postgres manifest backend needs a dsn")
		}
		db, err := sql.Open("postgres", ms.DSN)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, func() { db.Close() })
		listener := pq.NewListener(ms.DSN, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
			if err != nil {
				logger.Debug("postgres listener event", "event", ev, "error", err)
			}
		})
		*closers = append(*closers, func() { listener.Close() })
		opts := []postgres.Option{
			postgres.WithLogger(logger),
			postgres.WithOnPublish(invalidate(cache)),
		}
		if ms.Table != "" {
			opts = append(opts, postgres.WithTable(ms.Table))
		}
		return postgres.NewStore(db, listener, opts...), nil

	case "mongodb", "mongo":
		if ms.DSN == "" {
			return nil, fmt.Errorf("mongodb manifest backend needs a dsn")
		}
		client, err := mongo.Connect(options.Client().ApplyURI(ms.DSN))
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			client.Disconnect(ctx)
		})
		opts := []mongodb.Option{
			mongodb.WithLogger(logger),
			mongodb.WithOnPublish(invalidate(cache)),
		}
		if ms.Database != "" {
			opts = append(opts, mongodb.WithDatabase(ms.Database))
		}
		if ms.Collection != "" {
			opts = append(opts, mongodb.WithCollection(ms.Collection))
		}
		return mongodb.NewStore(client, opts...), nil

	default:
		return nil, fmt.Errorf("%w %q", errUnknownBackend, ms.Backend)
	}
}

// invalidate returns a publish callback dropping the published types from
// cache. A nil type list means publishes may have been missed.
func invalidate(cache *stag.LookupCache) func(factory string, types []stag.TypeID) {
	return func(factory string, types []stag.TypeID) {
		if types == nil {
			cache.Purge()
			return
		}
		for _, id := range types {
			cache.Forget(id)
		}
	}
}
