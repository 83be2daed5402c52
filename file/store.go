package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rbaliyan/stag"
	"github.com/rbaliyan/stag/codec"
)

// ErrNotConnected is returned when the store is used before Connect.
var ErrNotConnected = errors.New("file: store not connected")

// Store implements stag.ManifestStore over a directory holding one
// manifest file per factory. The file name is the escaped factory path
// plus the codec extension:
//
//	manifests/
//	  example.com%2Fgeo.json
//	  example.com%2Fpay.yaml
//
// Lookups are served from an index built on Connect. A lookup miss
// rescans the directory so that manifests written by other processes
// are picked up.
type Store struct {
	dir  string
	opts storeOptions

	mu        sync.RWMutex
	manifests map[string]stag.Manifest // factory -> manifest
	index     map[stag.TypeID]string   // type -> factory
	connected atomic.Bool
	closed    atomic.Bool
}

// Compile-time interface checks.
var (
	_ stag.ManifestStore = (*Store)(nil)
	_ stag.HealthChecker = (*Store)(nil)
)

// NewStore creates a Store for dir. The directory is created on Connect.
func NewStore(dir string, opts ...StoreOption) *Store {
	o := storeOptions{
		format: "json",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Store{
		dir:       dir,
		opts:      o,
		manifests: make(map[string]stag.Manifest),
		index:     make(map[stag.TypeID]string),
	}
}

// Connect creates the directory if needed and reads the manifests in it.
func (s *Store) Connect(ctx context.Context) error {
	if s.closed.Load() {
		return stag.ErrStoreClosed
	}
	if codec.Get(s.opts.format) == nil {
		return fmt.Errorf("file: unknown format %q", s.opts.format)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return stag.WrapStoreError("connect", "file", s.dir, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.scanLocked(); err != nil {
		return stag.WrapStoreError("connect", "file", s.dir, err)
	}
	s.connected.Store(true)
	return nil
}

// Close releases resources.
func (s *Store) Close(ctx context.Context) error {
	if s.closed.Swap(true) {
		return nil
	}
	s.mu.Lock()
	s.manifests = make(map[string]stag.Manifest)
	s.index = make(map[stag.TypeID]string)
	s.mu.Unlock()
	return nil
}

// Publish writes the manifest file of m.Factory, replacing any file of the
// same factory in another format.
func (s *Store) Publish(ctx context.Context, m stag.Manifest) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := stag.ValidateManifest(m); err != nil {
		return err
	}

	c := codec.Get(s.opts.format)
	data, err := c.Encode(m)
	if err != nil {
		return stag.WrapStoreError("publish", "file", m.Factory, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, fileName(m.Factory, c))
	if err := writeAtomic(path, data); err != nil {
		return stag.WrapStoreError("publish", "file", m.Factory, err)
	}
	s.removeOtherFormatsLocked(m.Factory, path)
	s.putLocked(m)
	return nil
}

// Lookup returns the factory whose manifest lists id.
func (s *Store) Lookup(ctx context.Context, id stag.TypeID) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}

	s.mu.RLock()
	factory, ok := s.index[id]
	s.mu.RUnlock()
	if ok {
		return factory, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.scanLocked(); err != nil {
		return "", stag.WrapStoreError("lookup", "file", id.String(), err)
	}
	if factory, ok := s.index[id]; ok {
		return factory, nil
	}
	return "", stag.ErrNotFound
}

// List returns all manifests sorted by factory.
func (s *Store) List(ctx context.Context) ([]stag.Manifest, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]stag.Manifest, 0, len(s.manifests))
	for _, m := range s.manifests {
		m.Types = append([]stag.TypeID(nil), m.Types...)
		out = append(out, m)
	}
	stag.SortManifests(out)
	return out, nil
}

// Health returns nil if the directory is readable.
func (s *Store) Health(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := os.Stat(s.dir); err != nil {
		return stag.WrapStoreError("health", "file", s.dir, err)
	}
	return nil
}

func (s *Store) ready() error {
	if s.closed.Load() {
		return stag.ErrStoreClosed
	}
	if !s.connected.Load() {
		return ErrNotConnected
	}
	return nil
}

// scanLocked rebuilds the in-memory view from the directory.
// Files that cannot be decoded are logged and skipped.
func (s *Store) scanLocked() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}

	manifests := make(map[string]stag.Manifest)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		c := codec.ForPath(e.Name())
		if c == nil {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var m stag.Manifest
		if err := c.Decode(data, &m); err != nil {
			s.opts.logger.Warn("skipping unreadable manifest", "path", path, "error", err)
			continue
		}
		if err := stag.ValidateManifest(m); err != nil {
			s.opts.logger.Warn("skipping invalid manifest", "path", path, "error", err)
			continue
		}
		manifests[m.Factory] = m
	}

	s.manifests = make(map[string]stag.Manifest, len(manifests))
	s.index = make(map[stag.TypeID]string)
	for _, m := range manifests {
		s.putLocked(m)
	}
	return nil
}

func (s *Store) putLocked(m stag.Manifest) {
	if old, ok := s.manifests[m.Factory]; ok {
		for _, id := range old.Types {
			delete(s.index, id)
		}
	}
	m.Types = append([]stag.TypeID(nil), m.Types...)
	s.manifests[m.Factory] = m
	for _, id := range m.Types {
		s.index[id] = m.Factory
	}
}

// removeOtherFormatsLocked deletes files of factory written with another codec.
func (s *Store) removeOtherFormatsLocked(factory, keep string) {
	for _, name := range codec.Names() {
		c := codec.Get(name)
		for _, ext := range c.Extensions() {
			path := filepath.Join(s.dir, url.QueryEscape(factory)+ext)
			if path == keep {
				continue
			}
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				s.opts.logger.Warn("failed to remove stale manifest", "path", path, "error", err)
			}
		}
	}
}

// fileName escapes the factory path so that it is a single path element.
func fileName(factory string, c codec.Codec) string {
	return url.QueryEscape(factory) + c.Extensions()[0]
}

// writeAtomic writes data to a temporary file and renames it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+"-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
