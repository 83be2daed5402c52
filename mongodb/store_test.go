package mongodb_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/rbaliyan/stag"
	"github.com/rbaliyan/stag/mongodb"
)

func getMongoURI() string {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	return uri
}

func skipIfNoMongo(t *testing.T, opts ...mongodb.Option) *mongodb.Store {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Create MongoDB client (app's responsibility)
	client, err := mongo.Connect(options.Client().ApplyURI(getMongoURI()))
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		t.Skipf("MongoDB not available: %v", err)
	}

	collection := fmt.Sprintf("manifests_%d", time.Now().UnixNano())
	opts = append([]mongodb.Option{
		mongodb.WithDatabase("stag_test"),
		mongodb.WithCollection(collection),
	}, opts...)
	store := mongodb.NewStore(client, opts...)

	if err := store.Connect(ctx); err != nil {
		client.Disconnect(ctx)
		t.Skipf("Store connect failed: %v", err)
	}

	t.Cleanup(func() {
		ctx := context.Background()
		store.Close(ctx)
		client.Database("stag_test").Collection(collection).Drop(ctx)
		client.Disconnect(ctx)
	})
	return store
}

func manifest(factory string, names ...string) stag.Manifest {
	m := stag.Manifest{Factory: factory, GeneratedAt: time.Now().UTC().Truncate(time.Millisecond)}
	for _, n := range names {
		m.Types = append(m.Types, stag.NewTypeID(factory, n))
	}
	return m
}

func TestMongoDBStore_PublishLookup(t *testing.T) {
	store := skipIfNoMongo(t)
	ctx := context.Background()

	if err := store.Publish(ctx, manifest("example.com/pay", "Money", "Rate")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	factory, err := store.Lookup(ctx, "example.com/pay.Money")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if factory != "example.com/pay" {
		t.Errorf("Expected example.com/pay, got %s", factory)
	}

	if _, err := store.Lookup(ctx, "example.com/pay.Invoice"); !stag.IsNotFound(err) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMongoDBStore_PublishReplaces(t *testing.T) {
	store := skipIfNoMongo(t)
	ctx := context.Background()

	if err := store.Publish(ctx, manifest("example.com/pay", "Money", "Rate")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := store.Publish(ctx, manifest("example.com/pay", "Money")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if _, err := store.Lookup(ctx, "example.com/pay.Rate"); !stag.IsNotFound(err) {
		t.Errorf("Rate should be gone after replace, got %v", err)
	}
}

func TestMongoDBStore_List(t *testing.T) {
	store := skipIfNoMongo(t)
	ctx := context.Background()

	pay := manifest("example.com/pay", "Rate", "Money")
	for _, m := range []stag.Manifest{pay, manifest("example.com/geo")} {
		if err := store.Publish(ctx, m); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 manifests, got %d", len(list))
	}
	if list[0].Factory != "example.com/geo" || list[1].Factory != "example.com/pay" {
		t.Errorf("unexpected order %+v", list)
	}
	if list[1].Types[0] != "example.com/pay.Money" {
		t.Errorf("types not sorted: %v", list[1].Types)
	}
	if !list[1].GeneratedAt.Equal(pay.GeneratedAt) {
		t.Errorf("GeneratedAt = %v, want %v", list[1].GeneratedAt, pay.GeneratedAt)
	}
}

func TestMongoDBStore_InvalidManifest(t *testing.T) {
	store := skipIfNoMongo(t)

	err := store.Publish(context.Background(), stag.Manifest{Factory: "example.com/pay", Types: []stag.TypeID{"example.com/geo.Point"}})
	if !errors.Is(err, stag.ErrInvalidManifest) {
		t.Errorf("Expected ErrInvalidManifest, got %v", err)
	}
}

func TestMongoDBStore_Closed(t *testing.T) {
	store := skipIfNoMongo(t)
	ctx := context.Background()

	if err := store.Health(ctx); err != nil {
		t.Errorf("Health check failed: %v", err)
	}

	store.Close(ctx)
	if err := store.Publish(ctx, manifest("example.com/pay")); !errors.Is(err, stag.ErrStoreClosed) {
		t.Errorf("Expected ErrStoreClosed, got %v", err)
	}
	if err := store.Health(ctx); !errors.Is(err, stag.ErrStoreClosed) {
		t.Errorf("Expected ErrStoreClosed, got %v", err)
	}
}

func TestMongoDBStore_Concurrent(t *testing.T) {
	store := skipIfNoMongo(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f := fmt.Sprintf("example.com/pkg%d", i)
			if err := store.Publish(ctx, manifest(f, "T")); err != nil {
				t.Errorf("Publish failed: %v", err)
			}
			if got, err := store.Lookup(ctx, stag.NewTypeID(f, "T")); err != nil || got != f {
				t.Errorf("Lookup = %q, %v", got, err)
			}
		}(i)
	}
	wg.Wait()
}

func TestMongoDBStore_NilClient(t *testing.T) {
	store := mongodb.NewStore(nil)
	if err := store.Connect(context.Background()); err == nil {
		t.Error("Expected error for nil client")
	}
}
