package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rbaliyan/stag"
	"github.com/rbaliyan/stag/file"
	"github.com/rbaliyan/stag/multi"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFlagsOverrideSettings(t *testing.T) {
	f, patterns, err := parseFlags([]string{
		"-config", "../../file/testdata/stag.yaml",
		"-out", "gen2",
		"-manifest", "memory",
		"-v",
		"./geo", "./pay",
	}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}
	if len(patterns) != 2 || patterns[0] != "./geo" {
		t.Errorf("patterns = %v", patterns)
	}

	s, err := f.settings()
	if err != nil {
		t.Fatalf("settings failed: %v", err)
	}
	if s.Generate.Output != "gen2" || s.Generate.Package != "geo" {
		t.Errorf("unexpected generate settings %+v", s.Generate)
	}
	if s.Manifest.Backend != "memory" || s.Manifest.Table != "stag_manifests" {
		t.Errorf("unexpected manifest settings %+v", s.Manifest)
	}
	if s.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", s.Log.Level)
	}
}

func TestFlagsDefaults(t *testing.T) {
	f, patterns, err := parseFlags(nil, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}
	if len(patterns) != 0 {
		t.Errorf("patterns = %v", patterns)
	}
	s, err := f.settings()
	if err != nil {
		t.Fatalf("settings failed: %v", err)
	}
	if s.Manifest.Backend != "none" {
		t.Errorf("Backend = %q, want none", s.Manifest.Backend)
	}
}

func TestRunUsage(t *testing.T) {
	var stderr bytes.Buffer
	if code := run(context.Background(), []string{"-nope"}, &stderr); code != exitUsage {
		t.Errorf("exit code = %d, want %d", code, exitUsage)
	}
	if code := run(context.Background(), []string{"-h"}, &stderr); code != exitOK {
		t.Errorf("-h exit code = %d, want %d", code, exitOK)
	}
	if !strings.Contains(stderr.String(), "usage: stag") {
		t.Errorf("usage not printed: %q", stderr.String())
	}

	stderr.Reset()
	if code := run(context.Background(), []string{"-config", "missing.yaml"}, &stderr); code != exitUsage {
		t.Errorf("missing config exit code = %d, want %d", code, exitUsage)
	}
}

func TestOutputDir(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "out")
	tests := []struct {
		pkgDir, out, want string
	}{
		{"/src/geo", "", "/src/geo"},
		{"/src/geo", "gen", filepath.Join("/src/geo", "gen")},
		{"/src/geo", abs, abs},
	}
	for _, tt := range tests {
		if got := outputDir(tt.pkgDir, tt.out); got != tt.want {
			t.Errorf("outputDir(%q, %q) = %q, want %q", tt.pkgDir, tt.out, got, tt.want)
		}
	}
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name     string
		settings stag.ManifestSettings
		wantNil  bool
	}{
		{"none", stag.ManifestSettings{Backend: "none"}, true},
		{"empty", stag.ManifestSettings{}, true},
		{"memory", stag.ManifestSettings{Backend: "memory"}, false},
		{"file", stag.ManifestSettings{Backend: "file", Dir: filepath.Join(dir, "manifests"), Format: "yaml"}, false},
		{"sqlite", stag.ManifestSettings{Backend: "sqlite", DSN: "file:" + filepath.Join(dir, "stag.db"), Table: "manifests"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, closeStore, err := openStore(ctx, tt.settings, stag.TelemetrySettings{}, stag.NewLookupCache(8), quietLogger())
			if err != nil {
				t.Fatalf("openStore failed: %v", err)
			}
			defer closeStore()

			if tt.wantNil {
				if store != nil {
					t.Errorf("expected nil store, got %T", store)
				}
				return
			}

			m := stag.Manifest{Factory: "example.com/pay", Types: []stag.TypeID{"example.com/pay.Money"}}
			if err := store.Publish(ctx, m); err != nil {
				t.Fatalf("Publish failed: %v", err)
			}
			if f, err := store.Lookup(ctx, "example.com/pay.Money"); err != nil || f != "example.com/pay" {
				t.Errorf("Lookup = %q, %v", f, err)
			}
		})
	}
}

func TestOpenStoreErrors(t *testing.T) {
	tests := []struct {
		name     string
		settings stag.ManifestSettings
	}{
		{"unknown", stag.ManifestSettings{Backend: "etcd"}},
		{"sqlite without dsn", stag.ManifestSettings{Backend: "sqlite"}},
		{"postgres without dsn", stag.ManifestSettings{Backend: "postgres"}},
		{"mongodb without dsn", stag.ManifestSettings{Backend: "mongodb"}},
		{"bad fallback", stag.ManifestSettings{Backend: "memory", Fallback: &stag.ManifestSettings{Backend: "etcd"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, closeStore, err := openStore(context.Background(), tt.settings, stag.TelemetrySettings{}, stag.NewLookupCache(8), quietLogger())
			closeStore()
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}

	_, closeStore, err := openStore(context.Background(), stag.ManifestSettings{Backend: "etcd"}, stag.TelemetrySettings{}, nil, quietLogger())
	closeStore()
	if !errors.Is(err, errUnknownBackend) {
		t.Errorf("expected errUnknownBackend, got %v", err)
	}
}

func TestOpenStoreFallback(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "manifests")

	// A manifest checked in by another build.
	seed := file.NewStore(dir)
	if err := seed.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := seed.Publish(ctx, stag.Manifest{Factory: "example.com/pay", Types: []stag.TypeID{"example.com/pay.Money"}}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	store, closeStore, err := openStore(ctx, stag.ManifestSettings{
		Backend:  "memory",
		Fallback: &stag.ManifestSettings{Backend: "file", Dir: dir},
	}, stag.TelemetrySettings{Traces: true, Metrics: true}, stag.NewLookupCache(8), quietLogger())
	if err != nil {
		t.Fatalf("openStore failed: %v", err)
	}
	defer closeStore()

	if f, err := store.Lookup(ctx, "example.com/pay.Money"); err != nil || f != "example.com/pay" {
		t.Errorf("Lookup through fallback = %q, %v", f, err)
	}

	type unwrapper interface{ Unwrap() stag.ManifestStore }
	u, ok := store.(unwrapper)
	if !ok {
		t.Fatalf("expected instrumented store, got %T", store)
	}
	if _, ok := u.Unwrap().(*multi.Store); !ok {
		t.Errorf("expected multi.Store inside, got %T", u.Unwrap())
	}
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	cache := stag.NewLookupCache(8)
	store, closeStore, err := openStore(ctx, stag.ManifestSettings{Backend: "memory"}, stag.TelemetrySettings{}, cache, quietLogger())
	if err != nil {
		t.Fatalf("openStore failed: %v", err)
	}
	defer closeStore()

	// Prime the cache with a miss through a generator run.
	gen, err := stag.New(stag.WithManifestStore(store), stag.WithSharedLookupCache(cache),
		stag.WithOutputDir(t.TempDir()), stag.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := gen.Run(ctx, []stag.Declaration{{
		ID: "example.com/shop.Order",
		Fields: []stag.DeclaredField{
			{Name: "Total", Tag: stag.FieldTag{Key: "total"}, Type: stag.NamedRef("example.com/pay.Money", true), Exported: true},
		},
	}}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if cache.Stats().Size == 0 {
		t.Fatal("expected a cached miss")
	}

	invalidate(cache)("example.com/pay", []stag.TypeID{"example.com/pay.Money"})
	if cache.Stats().Size != 0 {
		t.Errorf("Forget did not drop the miss: %+v", cache.Stats())
	}
}

func TestRunGeneratesPackage(t *testing.T) {
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go command not available")
	}

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "go.mod"), "module example.com/shop\n\ngo 1.24\n")
	writeFile(t, filepath.Join(dir, "order", "order.go"), `package order

type Item struct {
	Name  string  `+"`stag:\"name\"`"+`
	Count int     `+"`stag:\"count\"`"+`
	Price float64 `+"`stag:\"price\"`"+`
}

type Order struct {
	ID    int64 `+"`stag:\"id\"`"+`
	First *Item `+"`stag:\"first\"`"+`
}
`)
	manifests := filepath.Join(dir, "manifests")

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"-C", dir, "-manifest", "file", "-dir", manifests, "./..."}, &stderr)
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr.String())
	}

	parse, err := os.ReadFile(filepath.Join(dir, "order", stag.DefaultParseFile))
	if err != nil {
		t.Fatalf("parse file not written: %v", err)
	}
	for _, want := range []string{"package order", "func WriteItem(", "func ParseOrder("} {
		if !strings.Contains(string(parse), want) {
			t.Errorf("parse file missing %q", want)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "order", stag.DefaultAdapterFile)); err != nil {
		t.Errorf("adapter file not written: %v", err)
	}

	store := file.NewStore(manifests)
	ctx := context.Background()
	if err := store.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if f, err := store.Lookup(ctx, "example.com/shop/order.Item"); err != nil || f != "example.com/shop/order" {
		t.Errorf("manifest lookup = %q, %v", f, err)
	}
}

func TestRunResolvesEarlierPackages(t *testing.T) {
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go command not available")
	}

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "go.mod"), "module example.com/shop\n\ngo 1.24\n")
	writeFile(t, filepath.Join(dir, "pay", "pay.go"), `package pay

type Money struct {
	Amount int64 `+"`stag:\"amount\"`"+`
}
`)
	writeFile(t, filepath.Join(dir, "order", "order.go"), `package order

import "example.com/shop/pay"

type Order struct {
	Total *pay.Money `+"`stag:\"total\"`"+`
}
`)

	// No manifest store: pay is resolved because it is generated first.
	var stderr bytes.Buffer
	if code := run(context.Background(), []string{"-C", dir, "./order", "./pay"}, &stderr); code != exitOK {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr.String())
	}

	adapters, err := os.ReadFile(filepath.Join(dir, "order", stag.DefaultAdapterFile))
	if err != nil {
		t.Fatalf("adapter file not written: %v", err)
	}
	if !strings.Contains(string(adapters), "stagAdapters.Merge(pay.Adapters())") {
		t.Errorf("order adapters do not merge pay:\n%s", adapters)
	}
	parse, err := os.ReadFile(filepath.Join(dir, "order", stag.DefaultParseFile))
	if err != nil {
		t.Fatalf("parse file not written: %v", err)
	}
	if !strings.Contains(string(parse), `WriteField("example.com/shop/pay.Money", "total", w, obj.Total)`) {
		t.Errorf("order does not dispatch pay.Money:\n%s", parse)
	}
}

func TestRunRejectsNameCollision(t *testing.T) {
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go command not available")
	}

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "go.mod"), "module example.com/shop\n\ngo 1.24\n")
	writeFile(t, filepath.Join(dir, "geo", "geo.go"), `package geo

type Point struct {
	X int `+"`stag:\"x\"`"+`
}

// PointAdapter is hand-written and clashes with the generated codec type.
type PointAdapter struct{}
`)

	var stderr bytes.Buffer
	if code := run(context.Background(), []string{"-C", dir, "./geo"}, &stderr); code != exitFailed {
		t.Fatalf("exit code = %d, want %d, stderr:\n%s", code, exitFailed, stderr.String())
	}
	if !strings.Contains(stderr.String(), "PointAdapter") {
		t.Errorf("stderr does not name the collision:\n%s", stderr.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "geo", stag.DefaultParseFile)); !os.IsNotExist(err) {
		t.Errorf("parse file written despite the collision: %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
