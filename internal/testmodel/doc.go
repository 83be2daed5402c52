// Package testmodel holds packages whose stag codecs are checked in, so
// that the runtime behaviour of generated code is covered by ordinary
// tests.
//
// The stag_*.go files are the generator's output for these packages. The
// note package is left without codecs so that geo has an unresolved field.
package testmodel

//go:generate go run ../../cmd/stag -manifest memory ./money ./geo
