// Package geo declares the shapes used by the generated codec tests. It
// covers every value kind: scalars, same-package types by value and by
// pointer, types with codecs generated in money, and a type from note that
// has no codec.
package geo

import (
	"github.com/rbaliyan/stag/internal/testmodel/money"
	"github.com/rbaliyan/stag/internal/testmodel/note"
)

// Point is a position. X has an empty tag and is keyed by its field name.
type Point struct {
	X int `stag:""`
	Y int `stag:"y"`
}

// Wrapper places a labelled, priced item.
type Wrapper struct {
	Label   string       `stag:"label"`
	Origin  *Point       `stag:"origin"`
	Corner  Point        `stag:"corner"`
	Price   *money.Money `stag:"price"`
	Fee     money.Money  `stag:"fee"`
	Scale   float64      `stag:"scale"`
	Visible bool         `stag:"visible"`
	Count   int64        `stag:"count"`
	Remark  *note.Remark `stag:"remark"`

	// Cache is not serialised.
	Cache string
}
