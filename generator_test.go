package stag_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rbaliyan/stag"
	"github.com/rbaliyan/stag/memory"
)

func field(name, key string, ref stag.TypeRef) stag.DeclaredField {
	return stag.DeclaredField{Name: name, Tag: stag.FieldTag{Key: key}, Type: ref, Exported: true}
}

func geoDeclarations() []stag.Declaration {
	return []stag.Declaration{
		{
			ID: "example.com/geo.Wrapper",
			Fields: []stag.DeclaredField{
				field("Label", "label", stag.BasicRef("string")),
				field("Origin", "origin", stag.NamedRef("example.com/geo.Point", true)),
				field("Price", "price", stag.NamedRef("example.com/pay.Money", true)),
			},
		},
		{
			ID: "example.com/geo.Point",
			Fields: []stag.DeclaredField{
				field("X", "", stag.BasicRef("int")),
				field("Y", "y", stag.BasicRef("int")),
			},
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	return string(data)
}

func TestGeneratorRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := memory.NewStore()
	_ = store.Publish(ctx, stag.Manifest{Factory: "example.com/pay", Types: []stag.TypeID{"example.com/pay.Money"}})

	gen, err := stag.New(
		stag.WithOutputDir(dir),
		stag.WithManifestStore(store),
		stag.WithLogger(quietLogger()),
		stag.WithClock(func() time.Time { return time.Unix(1700000000, 0) }),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	res, err := gen.Run(ctx, geoDeclarations())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Package != "example.com/geo" || res.Types != 2 {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Fields[stag.KindLocal] != 1 || res.Fields[stag.KindExternal] != 1 || res.Fields[stag.KindInt] != 2 {
		t.Errorf("unexpected field counts %v", res.Fields)
	}
	if len(res.External) != 1 || res.External[0].Factory != "example.com/pay" {
		t.Errorf("unexpected external adapters %+v", res.External)
	}
	if !res.Published {
		t.Error("expected manifest to be published")
	}
	if len(res.Files) != 2 {
		t.Fatalf("expected 2 files, got %v", res.Files)
	}

	parse := readFile(t, filepath.Join(dir, stag.DefaultParseFile))
	for _, want := range []string{
		"// Code generated by stag. DO NOT EDIT.",
		"package geo",
		"func WriteWrapper(w *jsonio.Writer, obj *Wrapper) error {",
		"func ParsePoint(r *jsonio.Reader) (*Point, error) {",
		`case "X":`,
		`WriteField("example.com/pay.Money", "price", w, obj.Price)`,
		`ReadFrom("example.com/pay.Money", r).(type)`,
	} {
		if !strings.Contains(parse, want) {
			t.Errorf("parse file missing %q", want)
		}
	}

	adapters := readFile(t, filepath.Join(dir, stag.DefaultAdapterFile))
	for _, want := range []string{
		`stagAdapters.Register("example.com/geo.Wrapper", WrapperAdapter{})`,
		`stagAdapters.Merge(pay.Adapters())`,
		`"example.com/pay"`,
		"type PointAdapter struct{}",
	} {
		if !strings.Contains(adapters, want) {
			t.Errorf("adapter file missing %q", want)
		}
	}

	list, _ := store.List(ctx)
	if len(list) != 2 || list[0].Factory != "example.com/geo" || len(list[0].Types) != 2 {
		t.Errorf("unexpected manifests %+v", list)
	}
	if !list[0].GeneratedAt.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("unexpected timestamp %v", list[0].GeneratedAt)
	}
}

func TestGeneratorRunOnce(t *testing.T) {
	ctx := context.Background()
	gen, err := stag.New(stag.WithOutputDir(t.TempDir()), stag.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := gen.Run(ctx, geoDeclarations()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	res, err := gen.Run(ctx, geoDeclarations())
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if !res.Skipped {
		t.Error("expected second Run to be skipped")
	}
}

func TestGeneratorUnresolvedExternal(t *testing.T) {
	dir := t.TempDir()
	gen, _ := stag.New(stag.WithOutputDir(dir), stag.WithLogger(quietLogger()))

	res, err := gen.Run(context.Background(), geoDeclarations())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.External) != 0 || res.Published {
		t.Errorf("unexpected result %+v", res)
	}

	// The field is still dispatched by identity.
	parse := readFile(t, filepath.Join(dir, stag.DefaultParseFile))
	if !strings.Contains(parse, `WriteField("example.com/pay.Money"`) {
		t.Error("expected dispatch for unresolved type")
	}
	adapters := readFile(t, filepath.Join(dir, stag.DefaultAdapterFile))
	if strings.Contains(adapters, "Merge(") {
		t.Error("did not expect a merged factory")
	}
}

func TestGeneratorInvalidField(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*stag.DeclaredField)
	}{
		{"unexported", func(f *stag.DeclaredField) { f.Exported = false }},
		{"embedded", func(f *stag.DeclaredField) { f.Embedded = true }},
		{"unsupported", func(f *stag.DeclaredField) { f.Unsupported = "slice types are not supported" }},
		{"tag option", func(f *stag.DeclaredField) { f.Tag.Options = []string{"inline"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			decls := geoDeclarations()
			tt.mutate(&decls[1].Fields[1])

			gen, _ := stag.New(stag.WithOutputDir(dir), stag.WithLogger(quietLogger()))
			_, err := gen.Run(context.Background(), decls)
			if !stag.IsInvalidField(err) {
				t.Fatalf("expected ErrInvalidField, got %v", err)
			}

			var fe *stag.FieldError
			if !errors.As(err, &fe) || fe.Field != "Y" || fe.Type != "example.com/geo.Point" {
				t.Errorf("error does not name field and type: %v", err)
			}

			entries, _ := os.ReadDir(dir)
			if len(entries) != 0 {
				t.Errorf("expected no output, found %d files", len(entries))
			}
		})
	}
}

func TestGeneratorDuplicateKey(t *testing.T) {
	decls := geoDeclarations()
	decls[1].Fields[1].Tag.Key = "X"

	gen, _ := stag.New(stag.WithOutputDir(t.TempDir()), stag.WithLogger(quietLogger()))
	_, err := gen.Run(context.Background(), decls)
	if !stag.IsInvalidField(err) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}
}

func TestGeneratorMixedPackages(t *testing.T) {
	decls := append(geoDeclarations(), stag.Declaration{ID: "example.com/pay.Money"})

	gen, _ := stag.New(stag.WithOutputDir(t.TempDir()), stag.WithLogger(quietLogger()))
	_, err := gen.Run(context.Background(), decls)
	if !errors.Is(err, stag.ErrMixedPackages) {
		t.Fatalf("expected ErrMixedPackages, got %v", err)
	}
}

func TestGeneratorOutputError(t *testing.T) {
	// The output "directory" is a regular file, so nothing can be written.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	gen, _ := stag.New(stag.WithOutputDir(blocker), stag.WithLogger(quietLogger()))
	_, err := gen.Run(context.Background(), geoDeclarations())
	if !stag.IsOutput(err) {
		t.Fatalf("expected ErrOutput, got %v", err)
	}
	var oe *stag.OutputError
	if !errors.As(err, &oe) || !strings.HasPrefix(oe.Path, blocker) {
		t.Errorf("unexpected error %v", err)
	}
}

func TestGeneratorCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dir := t.TempDir()

	gen, _ := stag.New(stag.WithOutputDir(dir), stag.WithLogger(quietLogger()))
	if _, err := gen.Run(ctx, geoDeclarations()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no output, found %d files", len(entries))
	}
}

func TestGeneratorNoDeclarations(t *testing.T) {
	dir := t.TempDir()
	gen, _ := stag.New(stag.WithOutputDir(dir), stag.WithLogger(quietLogger()))

	res, err := gen.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Types != 0 || len(res.Files) != 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestGeneratorPackageName(t *testing.T) {
	dir := t.TempDir()
	gen, _ := stag.New(
		stag.WithOutputDir(dir),
		stag.WithPackageName("geo_test"),
		stag.WithFileNames("codec.go", "registry.go"),
		stag.WithLogger(quietLogger()),
	)

	if _, err := gen.Run(context.Background(), geoDeclarations()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(readFile(t, filepath.Join(dir, "codec.go")), "package geo_test") {
		t.Error("package name override not applied")
	}
	if _, err := os.Stat(filepath.Join(dir, "registry.go")); err != nil {
		t.Errorf("adapter file not renamed: %v", err)
	}
}

func TestGeneratorNameCollision(t *testing.T) {
	one := func(name string) stag.Declaration {
		return stag.Declaration{
			ID:     stag.NewTypeID("example.com/geo", name),
			Fields: []stag.DeclaredField{field("Name", "name", stag.BasicRef("string"))},
		}
	}

	tests := []struct {
		name     string
		decls    []stag.Declaration
		reserved []string
		reason   string
	}{
		{"type Field", []stag.Declaration{one("Field")}, nil, "WriteField"},
		{"type To", []stag.Declaration{one("To")}, nil, "WriteTo"},
		{"type named like a helper", []stag.Declaration{one("Adapters")}, nil, "Adapters"},
		{"adapter type declared", []stag.Declaration{one("Point"), one("PointAdapter")}, nil, "PointAdapter"},
		{"write func declared", []stag.Declaration{one("Point"), one("WritePoint")}, nil, "WritePoint"},
		{"hand-written adapter type", []stag.Declaration{one("Point")}, []string{"Point", "PointAdapter"}, "PointAdapter"},
		{"hand-written helper", []stag.Declaration{one("Point")}, []string{"ReadFrom"}, "ReadFrom"},
		{"hand-written registry var", []stag.Declaration{one("Point")}, []string{"stagAdapters"}, "stagAdapters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			gen, _ := stag.New(
				stag.WithOutputDir(dir),
				stag.WithReservedNames(tt.reserved...),
				stag.WithLogger(quietLogger()),
			)
			_, err := gen.Run(context.Background(), tt.decls)
			if !errors.Is(err, stag.ErrInvalidType) {
				t.Fatalf("expected ErrInvalidType, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.reason) {
				t.Errorf("error %q does not mention %s", err, tt.reason)
			}
			if entries, _ := os.ReadDir(dir); len(entries) != 0 {
				t.Errorf("expected no output, found %d files", len(entries))
			}
		})
	}
}

func TestGeneratorReservedNamesWithoutCollision(t *testing.T) {
	gen, _ := stag.New(
		stag.WithOutputDir(t.TempDir()),
		stag.WithReservedNames("Point", "Wrapper", "Distance", "adapters"),
		stag.WithLogger(quietLogger()),
	)
	if _, err := gen.Run(context.Background(), geoDeclarations()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestGeneratorKnownAdapters(t *testing.T) {
	dir := t.TempDir()
	gen, _ := stag.New(
		stag.WithOutputDir(dir),
		stag.WithExternalAdapters(stag.ExternalAdapterInfo{ID: "example.com/pay.Money", Factory: "example.com/pay"}),
		stag.WithLogger(quietLogger()),
	)

	res, err := gen.Run(context.Background(), geoDeclarations())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := stag.ExternalAdapterInfo{ID: "example.com/pay.Money", Factory: "example.com/pay"}
	if len(res.External) != 1 || res.External[0] != want {
		t.Errorf("External = %+v, want %+v", res.External, want)
	}
	if res.Published {
		t.Error("nothing should be published without a store")
	}

	adapters := readFile(t, filepath.Join(dir, stag.DefaultAdapterFile))
	if !strings.Contains(adapters, "stagAdapters.Merge(pay.Adapters())") {
		t.Errorf("expected pay adapters to be merged:\n%s", adapters)
	}
}
