package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rbaliyan/stag"
)

func geoManifest(types ...string) stag.Manifest {
	m := stag.Manifest{Factory: "example.com/geo", GeneratedAt: time.Unix(1700000000, 0).UTC()}
	for _, name := range types {
		m.Types = append(m.Types, stag.NewTypeID("example.com/geo", name))
	}
	return m
}

func TestStore_PublishLookup(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	_ = store.Connect(ctx)
	defer store.Close(ctx)

	if err := store.Publish(ctx, geoManifest("Point", "Wrapper")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	factory, err := store.Lookup(ctx, "example.com/geo.Point")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if factory != "example.com/geo" {
		t.Errorf("factory = %q, want %q", factory, "example.com/geo")
	}

	if _, err := store.Lookup(ctx, "example.com/geo.Line"); !stag.IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_PublishReplaces(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Publish(ctx, geoManifest("Point", "Wrapper")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := store.Publish(ctx, geoManifest("Point")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if _, err := store.Lookup(ctx, "example.com/geo.Wrapper"); !stag.IsNotFound(err) {
		t.Errorf("expected removed type to be gone, got %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || len(list[0].Types) != 1 {
		t.Errorf("unexpected manifests %+v", list)
	}
}

func TestStore_PublishInvalid(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	tests := []struct {
		name string
		m    stag.Manifest
	}{
		{"empty factory", stag.Manifest{}},
		{"foreign type", stag.Manifest{Factory: "example.com/geo", Types: []stag.TypeID{"example.com/pay.Money"}}},
		{"bad type", stag.Manifest{Factory: "example.com/geo", Types: []stag.TypeID{"example.com/geo.1x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Publish(ctx, tt.m); !errors.Is(err, stag.ErrInvalidManifest) {
				t.Errorf("expected ErrInvalidManifest, got %v", err)
			}
		})
	}
}

func TestStore_ListSorted(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_ = store.Publish(ctx, stag.Manifest{Factory: "example.com/pay", Types: []stag.TypeID{"example.com/pay.Money"}})
	_ = store.Publish(ctx, geoManifest("Wrapper", "Point"))

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].Factory != "example.com/geo" || list[1].Factory != "example.com/pay" {
		t.Fatalf("unexpected order %+v", list)
	}
	if list[0].Types[0] != "example.com/geo.Point" {
		t.Errorf("types not sorted: %v", list[0].Types)
	}

	// Returned slices are copies
	list[0].Types[0] = "example.com/geo.Changed"
	again, _ := store.List(ctx)
	if again[0].Types[0] != "example.com/geo.Point" {
		t.Error("List exposed internal state")
	}
}

func TestStore_Closed(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	_ = store.Close(ctx)

	if err := store.Publish(ctx, geoManifest("Point")); !errors.Is(err, stag.ErrStoreClosed) {
		t.Errorf("Publish: expected ErrStoreClosed, got %v", err)
	}
	if _, err := store.Lookup(ctx, "example.com/geo.Point"); !errors.Is(err, stag.ErrStoreClosed) {
		t.Errorf("Lookup: expected ErrStoreClosed, got %v", err)
	}
	if err := store.Health(ctx); !errors.Is(err, stag.ErrStoreClosed) {
		t.Errorf("Health: expected ErrStoreClosed, got %v", err)
	}
}

func TestStore_Concurrent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Publish(ctx, geoManifest("Point"))
		}()
		go func() {
			defer wg.Done()
			_, _ = store.Lookup(ctx, "example.com/geo.Point")
		}()
	}
	wg.Wait()

	if _, err := store.Lookup(ctx, "example.com/geo.Point"); err != nil {
		t.Errorf("Lookup failed: %v", err)
	}
}
