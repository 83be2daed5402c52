// Package stag generates reflection-free JSON codecs for Go structs.
//
// A struct takes part when at least one of its fields carries a stag tag:
//
//	type Point struct {
//	    X int `stag:"x"`
//	    Y int `stag:"y"`
//	}
//
//	type Wrapper struct {
//	    Label  string `stag:"label"`
//	    Origin *Point `stag:"origin"`
//	}
//
// For each package the generator writes two files. stag_parse.go holds a
// WriteT and a ParseT procedure per type, built on the token stream of
// package jsonio. stag_adapters.go holds the package's dispatch registry
// (package adapter) with one forwarding codec per type, plus the Register,
// ReadFrom, WriteTo, WriteField and Adapters functions.
//
// # Value kinds
//
// Every tagged field is classified once all types of the package are known:
//
//   - int64, float64, bool, int and string are read and written directly
//   - a type generated in the same run is coded by calling its procedures
//   - any other named type is coded through the adapter registry by its
//     identity, "<import path>.<Name>"
//
// Strings are omitted when empty and pointers when nil. Members holding
// JSON null and unknown members are skipped when parsing.
//
// # External types
//
// After a successful run the generator publishes a Manifest listing the
// package's types to a ManifestStore. Later runs in other packages look up
// field types there and merge the registries of the listed packages into
// their own, so codecs compose across packages.
//
// # Running
//
// The cmd/stag tool loads packages with golang.org/x/tools/go/packages and
// runs one Generator per package:
//
//	//go:generate go run github.com/rbaliyan/stag/cmd/stag .
package stag
