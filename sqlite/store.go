// Package sqlite provides a SQLite-backed manifest store, suited to a build
// cache shared by the packages of one repository.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/rbaliyan/stag"
)

// validIdentifier matches valid SQLite identifiers (alphanumeric and underscore, not starting with digit).
var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Store is a SQLite manifest store.
// The store does not manage the database connection lifecycle - the caller
// is responsible for creating and closing the connection.
//
// Two tables are used: <table> holds one row per factory and <table>_types
// one row per provided type.
type Store struct {
	db     *sql.DB
	closed atomic.Bool
	logger *slog.Logger

	cfg Config
}

// Config holds SQLite store configuration.
type Config struct {
	// Table is the base table name.
	Table string

	// EnableWAL enables WAL journal mode for better concurrent read performance.
	EnableWAL bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Table:     "stag_manifests",
		EnableWAL: true,
	}
}

// Option configures the SQLite store.
type Option func(*Store)

// WithConfig sets the store configuration.
func WithConfig(cfg Config) Option {
	return func(s *Store) {
		if cfg.Table != "" {
			s.cfg.Table = cfg.Table
		}
		s.cfg.EnableWAL = cfg.EnableWAL
	}
}

// WithTable sets the base table name.
func WithTable(name string) Option {
	return func(s *Store) {
		s.cfg.Table = name
	}
}

// WithWAL enables or disables WAL journal mode.
func WithWAL(enable bool) Option {
	return func(s *Store) {
		s.cfg.EnableWAL = enable
	}
}

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a new SQLite store with the provided database connection.
func NewStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		cfg:    DefaultConfig(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Compile-time interface checks
var (
	_ stag.ManifestStore = (*Store)(nil)
	_ stag.HealthChecker = (*Store)(nil)
)

// Connect initializes the store (enables WAL mode and creates schema).
// The database connection must already be established.
func (s *Store) Connect(ctx context.Context) error {
	if s.db == nil {
		return stag.WrapStoreError("connect", "sqlite", "", fmt.Errorf("db is nil"))
	}

	// Validate table name to prevent SQL injection
	if !validIdentifier.MatchString(s.cfg.Table) {
		return stag.WrapStoreError("connect", "sqlite", "", fmt.Errorf("invalid table name: %q", s.cfg.Table))
	}

	if s.cfg.EnableWAL {
		if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			return stag.WrapStoreError("connect", "sqlite", "", err)
		}
	}

	if err := s.createSchema(ctx); err != nil {
		return stag.WrapStoreError("create_schema", "sqlite", "", err)
	}

	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	t := s.cfg.Table
	stmts := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				factory TEXT PRIMARY KEY,
				generated_at TEXT NOT NULL
			)
		`, t),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s_types (
				type_id TEXT PRIMARY KEY,
				factory TEXT NOT NULL REFERENCES %s(factory) ON DELETE CASCADE
			)
		`, t, t),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_types_factory ON %s_types(factory)`, t, t),
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close marks the store closed.
// It does NOT close the database connection - that is the caller's responsibility.
func (s *Store) Close(ctx context.Context) error {
	s.closed.Store(true)
	return nil
}

// Publish replaces the manifest of m.Factory in one transaction.
func (s *Store) Publish(ctx context.Context, m stag.Manifest) error {
	if s.closed.Load() {
		return stag.ErrStoreClosed
	}
	if err := stag.ValidateManifest(m); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stag.WrapStoreError("publish", "sqlite", m.Factory, err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("failed to rollback transaction", "error", rbErr)
		}
	}()

	t := s.cfg.Table
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s_types WHERE factory = ?`, t), m.Factory); err != nil {
		return stag.WrapStoreError("publish", "sqlite", m.Factory, err)
	}

	upsert := fmt.Sprintf(`
		INSERT INTO %s (factory, generated_at) VALUES (?, ?)
		ON CONFLICT (factory) DO UPDATE SET generated_at = excluded.generated_at
	`, t)
	if _, err := tx.ExecContext(ctx, upsert, m.Factory, m.GeneratedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return stag.WrapStoreError("publish", "sqlite", m.Factory, err)
	}

	insert, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s_types (type_id, factory) VALUES (?, ?)`, t))
	if err != nil {
		return stag.WrapStoreError("publish", "sqlite", m.Factory, err)
	}
	defer insert.Close()

	for _, id := range m.Types {
		if _, err := insert.ExecContext(ctx, id.String(), m.Factory); err != nil {
			return stag.WrapStoreError("publish", "sqlite", id.String(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return stag.WrapStoreError("publish", "sqlite", m.Factory, err)
	}
	return nil
}

// Lookup returns the factory whose manifest lists id.
func (s *Store) Lookup(ctx context.Context, id stag.TypeID) (string, error) {
	if s.closed.Load() {
		return "", stag.ErrStoreClosed
	}

	var factory string
	query := fmt.Sprintf(`SELECT factory FROM %s_types WHERE type_id = ?`, s.cfg.Table)
	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(&factory)
	if errors.Is(err, sql.ErrNoRows) {
		return "", stag.ErrNotFound
	}
	if err != nil {
		return "", stag.WrapStoreError("lookup", "sqlite", id.String(), err)
	}
	return factory, nil
}

// List returns all manifests sorted by factory.
func (s *Store) List(ctx context.Context) ([]stag.Manifest, error) {
	if s.closed.Load() {
		return nil, stag.ErrStoreClosed
	}

	t := s.cfg.Table
	query := fmt.Sprintf(`
		SELECT f.factory, f.generated_at, t.type_id
		FROM %s f LEFT JOIN %s_types t ON t.factory = f.factory
		ORDER BY f.factory, t.type_id
	`, t, t)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, stag.WrapStoreError("list", "sqlite", "", err)
	}
	defer rows.Close()

	var out []stag.Manifest
	for rows.Next() {
		var (
			factory, generatedAt string
			typeID               sql.NullString
		)
		if err := rows.Scan(&factory, &generatedAt, &typeID); err != nil {
			return nil, stag.WrapStoreError("list", "sqlite", "", err)
		}
		if len(out) == 0 || out[len(out)-1].Factory != factory {
			at, err := time.Parse(time.RFC3339Nano, generatedAt)
			if err != nil {
				s.logger.Warn("invalid manifest timestamp", "factory", factory, "value", generatedAt)
			}
			out = append(out, stag.Manifest{Factory: factory, GeneratedAt: at})
		}
		if typeID.Valid {
			last := &out[len(out)-1]
			last.Types = append(last.Types, stag.TypeID(typeID.String))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, stag.WrapStoreError("list", "sqlite", "", err)
	}
	return out, nil
}

// Health performs a health check on the store.
func (s *Store) Health(ctx context.Context) error {
	if s.closed.Load() {
		return stag.ErrStoreClosed
	}
	return s.db.PingContext(ctx)
}
