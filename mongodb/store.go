// Package mongodb provides a MongoDB-backed manifest store with change
// stream publish notifications.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/rbaliyan/stag"
)

// Store is a MongoDB manifest store implementation.
// Each manifest is one document keyed by factory.
// The store does not manage the MongoDB client lifecycle - the integrating
// application is responsible for creating and closing the client.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	closed     atomic.Bool

	stopWatch chan struct{}
	watchWg   sync.WaitGroup
	onPublish func(factory string, types []stag.TypeID)

	cfg Config
}

// Config holds MongoDB store configuration.
type Config struct {
	// Database is the database name.
	Database string

	// Collection is the collection name for manifests.
	Collection string

	// ReconnectBackoff is the wait time before reconnecting change stream.
	ReconnectBackoff time.Duration

	// AutoCreateIndexes controls whether indexes are created automatically on Connect.
	// Default is true. Set to false if you want to manage indexes manually.
	AutoCreateIndexes bool

	// Logger is the logger for the store. If nil, uses slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Database:          "stag",
		Collection:        "manifests",
		ReconnectBackoff:  5 * time.Second,
		AutoCreateIndexes: true,
	}
}

// mongoManifest is the MongoDB document structure.
type mongoManifest struct {
	Factory     string    `bson:"_id"`
	Types       []string  `bson:"types"`
	GeneratedAt time.Time `bson:"generated_at"`
}

func (d *mongoManifest) toManifest() stag.Manifest {
	m := stag.Manifest{Factory: d.Factory, GeneratedAt: d.GeneratedAt.UTC()}
	for _, t := range d.Types {
		m.Types = append(m.Types, stag.TypeID(t))
	}
	return m
}

// Option configures the MongoDB store.
type Option func(*Store)

// WithConfig sets the store configuration.
func WithConfig(cfg Config) Option {
	return func(s *Store) {
		if cfg.Database != "" {
			s.cfg.Database = cfg.Database
		}
		if cfg.Collection != "" {
			s.cfg.Collection = cfg.Collection
		}
		if cfg.ReconnectBackoff > 0 {
			s.cfg.ReconnectBackoff = cfg.ReconnectBackoff
		}
		// Boolean fields need explicit handling
		s.cfg.AutoCreateIndexes = cfg.AutoCreateIndexes
		if cfg.Logger != nil {
			s.cfg.Logger = cfg.Logger
		}
	}
}

// WithDatabase sets the database name.
func WithDatabase(name string) Option {
	return func(s *Store) {
		s.cfg.Database = name
	}
}

// WithCollection sets the collection name.
func WithCollection(name string) Option {
	return func(s *Store) {
		s.cfg.Collection = name
	}
}

// WithAutoCreateIndexes controls whether indexes are created automatically on Connect.
func WithAutoCreateIndexes(enabled bool) Option {
	return func(s *Store) {
		s.cfg.AutoCreateIndexes = enabled
	}
}

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.cfg.Logger = logger
	}
}

// WithOnPublish sets a callback invoked for every manifest inserted or
// replaced in the collection, including by other processes.
// Change streams require a replica set or sharded cluster; on a
// standalone server the watcher keeps retrying with backoff.
func WithOnPublish(fn func(factory string, types []stag.TypeID)) Option {
	return func(s *Store) {
		s.onPublish = fn
	}
}

// NewStore creates a new MongoDB store with the provided client.
// The client must already be connected.
func NewStore(client *mongo.Client, opts ...Option) *Store {
	s := &Store{
		client:    client,
		cfg:       DefaultConfig(),
		stopWatch: make(chan struct{}),
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

func (s *Store) logger() *slog.Logger {
	if s.cfg.Logger != nil {
		return s.cfg.Logger
	}
	return slog.Default()
}

// Connect initializes the store (optionally creates indexes and starts the change stream listener).
func (s *Store) Connect(ctx context.Context) error {
	if s.client == nil {
		return stag.WrapStoreError("connect", "mongodb", "", fmt.Errorf("client is nil"))
	}

	s.collection = s.client.Database(s.cfg.Database).Collection(s.cfg.Collection)

	if s.cfg.AutoCreateIndexes {
		if err := s.EnsureIndexes(ctx); err != nil {
			return stag.WrapStoreError("create_indexes", "mongodb", "", err)
		}
	}

	if s.onPublish != nil {
		s.watchWg.Add(1)
		go s.watchChangeStream()
	}

	s.logger().Info("mongodb store connected",
		"database", s.cfg.Database,
		"collection", s.cfg.Collection,
	)
	return nil
}

// EnsureIndexes creates the multikey index on types used by Lookup.
// This is called automatically during Connect if AutoCreateIndexes is true (default).
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if s.collection == nil {
		return fmt.Errorf("collection not initialized, call Connect first")
	}

	name, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "types", Value: 1}},
	})
	if err != nil {
		return err
	}

	s.logger().Debug("indexes ensured", "collection", s.cfg.Collection, "index", name)
	return nil
}

// Close stops the change stream listener.
// It does NOT close the MongoDB client - that is the caller's responsibility.
func (s *Store) Close(ctx context.Context) error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	close(s.stopWatch)
	s.watchWg.Wait()
	return nil
}

// Publish replaces the manifest of m.Factory.
func (s *Store) Publish(ctx context.Context, m stag.Manifest) error {
	if s.closed.Load() {
		return stag.ErrStoreClosed
	}
	if err := stag.ValidateManifest(m); err != nil {
		return err
	}

	doc := mongoManifest{
		Factory:     m.Factory,
		Types:       make([]string, len(m.Types)),
		GeneratedAt: m.GeneratedAt.UTC(),
	}
	for i, id := range m.Types {
		doc.Types[i] = id.String()
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": m.Factory}, doc, opts); err != nil {
		return stag.WrapStoreError("publish", "mongodb", m.Factory, err)
	}
	return nil
}

// Lookup returns the factory whose manifest lists id.
func (s *Store) Lookup(ctx context.Context, id stag.TypeID) (string, error) {
	if s.closed.Load() {
		return "", stag.ErrStoreClosed
	}

	var doc mongoManifest
	opts := options.FindOne().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}})
	err := s.collection.FindOne(ctx, bson.M{"types": id.String()}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", stag.ErrNotFound
	}
	if err != nil {
		return "", stag.WrapStoreError("lookup", "mongodb", id.String(), err)
	}
	return doc.Factory, nil
}

// List returns all manifests sorted by factory.
func (s *Store) List(ctx context.Context) ([]stag.Manifest, error) {
	if s.closed.Load() {
		return nil, stag.ErrStoreClosed
	}

	cursor, err := s.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, stag.WrapStoreError("list", "mongodb", "", err)
	}
	defer cursor.Close(ctx)

	var out []stag.Manifest
	for cursor.Next(ctx) {
		var doc mongoManifest
		if err := cursor.Decode(&doc); err != nil {
			return nil, stag.WrapStoreError("list", "mongodb", "", err)
		}
		out = append(out, doc.toManifest())
	}
	if err := cursor.Err(); err != nil {
		return nil, stag.WrapStoreError("list", "mongodb", "", err)
	}
	stag.SortManifests(out)
	return out, nil
}

// Health performs a health check on the store.
func (s *Store) Health(ctx context.Context) error {
	if s.closed.Load() {
		return stag.ErrStoreClosed
	}
	return s.client.Ping(ctx, nil)
}

// changeEvent is the subset of a change stream event the watcher reads.
type changeEvent struct {
	OperationType string         `bson:"operationType"`
	FullDocument  *mongoManifest `bson:"fullDocument"`
}

func (s *Store) watchChangeStream() {
	defer s.watchWg.Done()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"operationType": bson.M{"$in": bson.A{"insert", "replace", "update"}}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	// All per-iteration watch contexts derive from doneCtx.
	doneCtx, doneCancel := context.WithCancel(context.Background())
	go func() {
		<-s.stopWatch
		doneCancel()
	}()

	for {
		select {
		case <-doneCtx.Done():
			return
		default:
		}

		watchCtx, watchCancel := context.WithCancel(doneCtx)

		stream, err := s.collection.Watch(watchCtx, pipeline, opts)
		if err != nil {
			watchCancel()
			s.logger().Debug("change stream unavailable", "error", err)
			select {
			case <-doneCtx.Done():
				return
			case <-time.After(s.cfg.ReconnectBackoff):
				continue
			}
		}

		s.processChangeStream(watchCtx, stream)
		_ = stream.Close(watchCtx)
		watchCancel()
	}
}

func (s *Store) processChangeStream(ctx context.Context, stream *mongo.ChangeStream) {
	for stream.Next(ctx) {
		var ev changeEvent
		if err := stream.Decode(&ev); err != nil {
			s.logger().Warn("failed to decode change event", "error", err)
			continue
		}
		if ev.FullDocument == nil {
			continue
		}
		m := ev.FullDocument.toManifest()
		s.onPublish(m.Factory, m.Types)
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		s.logger().Warn("change stream error", "error", err)
	}
}
