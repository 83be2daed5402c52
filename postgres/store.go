// Package postgres provides a PostgreSQL-backed manifest store with
// LISTEN/NOTIFY publish notifications.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"

	"github.com/lib/pq"

	"github.com/rbaliyan/stag"
	"github.com/rbaliyan/stag/codec"
)

// validIdentifier matches valid PostgreSQL identifiers (alphanumeric and underscore, not starting with digit)
var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// maxNotifyPayload keeps NOTIFY payloads under the 8000 byte server limit.
const maxNotifyPayload = 7900

// Store is a PostgreSQL manifest store implementation.
// Each manifest is one row; provided types are kept in a text[] column
// with a GIN index for lookups.
// The store does not manage the database connection lifecycle - the
// integrating application is responsible for creating and closing the
// connection and listener.
type Store struct {
	db       *sql.DB
	listener *pq.Listener
	closed   atomic.Bool

	stopListen chan struct{}
	listenWg   sync.WaitGroup
	onPublish  func(factory string, types []stag.TypeID)
	logger     *slog.Logger

	cfg Config
}

// Config holds PostgreSQL store configuration.
type Config struct {
	// Table is the table name for manifests.
	Table string

	// NotifyChannel is the PostgreSQL NOTIFY channel name.
	NotifyChannel string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Table:         "stag_manifests",
		NotifyChannel: "stag_manifests",
	}
}

// notifyPayload is the JSON structure sent via NOTIFY.
// Types is omitted when the list does not fit the payload limit.
type notifyPayload struct {
	Factory string        `json:"factory"`
	Types   []stag.TypeID `json:"types,omitempty"`
}

// Option configures the PostgreSQL store.
type Option func(*Store)

// WithConfig sets the store configuration.
func WithConfig(cfg Config) Option {
	return func(s *Store) {
		if cfg.Table != "" {
			s.cfg.Table = cfg.Table
		}
		if cfg.NotifyChannel != "" {
			s.cfg.NotifyChannel = cfg.NotifyChannel
		}
	}
}

// WithTable sets the table name.
func WithTable(name string) Option {
	return func(s *Store) {
		s.cfg.Table = name
	}
}

// WithNotifyChannel sets the NOTIFY channel name.
func WithNotifyChannel(name string) Option {
	return func(s *Store) {
		s.cfg.NotifyChannel = name
	}
}

// WithOnPublish sets a callback invoked for every manifest published
// through the channel, including by other processes. types is nil when
// the payload was too large to carry the type list; callers should then
// drop everything they cached.
// The callback runs on the listener goroutine, so it should be fast.
func WithOnPublish(fn func(factory string, types []stag.TypeID)) Option {
	return func(s *Store) {
		s.onPublish = fn
	}
}

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a new PostgreSQL store with the provided database
// connection and listener. Pass a nil listener to disable notifications.
func NewStore(db *sql.DB, listener *pq.Listener, opts ...Option) *Store {
	s := &Store{
		db:         db,
		listener:   listener,
		cfg:        DefaultConfig(),
		stopListen: make(chan struct{}),
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

func (s *Store) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func (s *Store) table() string {
	return pq.QuoteIdentifier(s.cfg.Table)
}

// Connect initializes the store (creates schema and starts the notification listener).
// The database connection must already be established.
func (s *Store) Connect(ctx context.Context) error {
	if s.db == nil {
		return stag.WrapStoreError("connect", "postgres", "", fmt.Errorf("db is nil"))
	}

	// Validate table name and notify channel to prevent SQL injection
	if !validIdentifier.MatchString(s.cfg.Table) {
		return stag.WrapStoreError("connect", "postgres", "", fmt.Errorf("invalid table name: %q", s.cfg.Table))
	}
	if !validIdentifier.MatchString(s.cfg.NotifyChannel) {
		return stag.WrapStoreError("connect", "postgres", "", fmt.Errorf("invalid notify channel: %q", s.cfg.NotifyChannel))
	}

	if err := s.createSchema(ctx); err != nil {
		return stag.WrapStoreError("create_schema", "postgres", "", err)
	}

	if s.listener != nil && s.onPublish != nil {
		if err := s.listener.Listen(s.cfg.NotifyChannel); err != nil {
			return stag.WrapStoreError("listen", "postgres", "", err)
		}
		s.listenWg.Add(1)
		go s.listenNotifications()
	}

	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			factory TEXT PRIMARY KEY,
			types TEXT[] NOT NULL DEFAULT '{}',
			generated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_%s_types ON %s USING GIN (types);
	`, s.table(), s.cfg.Table, s.table())

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close stops the notification listener.
// It does NOT close the database connection or listener - that is the caller's responsibility.
func (s *Store) Close(ctx context.Context) error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	close(s.stopListen)
	s.listenWg.Wait()
	return nil
}

// Publish replaces the manifest of m.Factory and notifies listeners when
// the transaction commits.
func (s *Store) Publish(ctx context.Context, m stag.Manifest) error {
	if s.closed.Load() {
		return stag.ErrStoreClosed
	}
	if err := stag.ValidateManifest(m); err != nil {
		return err
	}

	types := make([]string, len(m.Types))
	for i, id := range m.Types {
		types[i] = id.String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stag.WrapStoreError("publish", "postgres", m.Factory, err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.log().Error("failed to rollback transaction", "error", rbErr)
		}
	}()

	query := fmt.Sprintf(`
		INSERT INTO %s (factory, types, generated_at) VALUES ($1, $2, $3)
		ON CONFLICT (factory) DO UPDATE SET
			types = EXCLUDED.types,
			generated_at = EXCLUDED.generated_at
	`, s.table())
	if _, err := tx.ExecContext(ctx, query, m.Factory, pq.Array(types), m.GeneratedAt.UTC()); err != nil {
		return stag.WrapStoreError("publish", "postgres", m.Factory, err)
	}

	payload, err := notification(m)
	if err != nil {
		return stag.WrapStoreError("publish", "postgres", m.Factory, err)
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, s.cfg.NotifyChannel, payload); err != nil {
		return stag.WrapStoreError("notify", "postgres", m.Factory, err)
	}

	if err := tx.Commit(); err != nil {
		return stag.WrapStoreError("publish", "postgres", m.Factory, err)
	}
	return nil
}

// notification encodes the NOTIFY payload of m.
func notification(m stag.Manifest) (string, error) {
	c := codec.JSON()
	data, err := c.Encode(notifyPayload{Factory: m.Factory, Types: m.Types})
	if err != nil {
		return "", err
	}
	if len(data) > maxNotifyPayload {
		data, err = c.Encode(notifyPayload{Factory: m.Factory})
		if err != nil {
			return "", err
		}
	}
	return string(data), nil
}

// Lookup returns the factory whose manifest lists id.
func (s *Store) Lookup(ctx context.Context, id stag.TypeID) (string, error) {
	if s.closed.Load() {
		return "", stag.ErrStoreClosed
	}

	var factory string
	query := fmt.Sprintf(`SELECT factory FROM %s WHERE types @> ARRAY[$1]::text[] LIMIT 1`, s.table())
	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(&factory)
	if errors.Is(err, sql.ErrNoRows) {
		return "", stag.ErrNotFound
	}
	if err != nil {
		return "", stag.WrapStoreError("lookup", "postgres", id.String(), err)
	}
	return factory, nil
}

// List returns all manifests sorted by factory.
func (s *Store) List(ctx context.Context) ([]stag.Manifest, error) {
	if s.closed.Load() {
		return nil, stag.ErrStoreClosed
	}

	query := fmt.Sprintf(`SELECT factory, types, generated_at FROM %s ORDER BY factory`, s.table())
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, stag.WrapStoreError("list", "postgres", "", err)
	}
	defer rows.Close()

	var out []stag.Manifest
	for rows.Next() {
		var (
			m     stag.Manifest
			types []string
		)
		if err := rows.Scan(&m.Factory, pq.Array(&types), &m.GeneratedAt); err != nil {
			return nil, stag.WrapStoreError("list", "postgres", "", err)
		}
		for _, t := range types {
			m.Types = append(m.Types, stag.TypeID(t))
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, stag.WrapStoreError("list", "postgres", "", err)
	}
	stag.SortManifests(out)
	return out, nil
}

// Health performs a health check on the store.
func (s *Store) Health(ctx context.Context) error {
	if s.closed.Load() {
		return stag.ErrStoreClosed
	}
	return s.db.PingContext(ctx)
}

// listenNotifications processes LISTEN/NOTIFY events.
func (s *Store) listenNotifications() {
	defer s.listenWg.Done()

	for {
		select {
		case <-s.stopListen:
			return
		case n := <-s.listener.Notify:
			if n == nil {
				// Reconnect event - pq.Listener sends nil on reconnection.
				// Notifications may have been missed.
				s.log().Info("postgres: listener reconnected to database")
				s.onPublish("", nil)
				continue
			}

			var payload notifyPayload
			if err := codec.JSON().Decode([]byte(n.Extra), &payload); err != nil {
				s.log().Warn("failed to decode notification payload", "error", err)
				continue
			}
			s.onPublish(payload.Factory, payload.Types)
		}
	}
}
