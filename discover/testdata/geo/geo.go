package geo

import "github.com/rbaliyan/stag/discover/testdata/pay"

type Point struct {
	X int `stag:""`
	Y int `stag:"y"`
	Z int
}

type Wrapper struct {
	Label  string     `stag:"label"`
	Origin *Point     `stag:"origin"`
	Corner Point      `stag:"corner"`
	Price  *pay.Money `stag:"price"`
	Scale  float64    `stag:"scale"`
	Note   string     `stag:"-"`
}

type Untagged struct {
	A int
}

type Labels = []string

type Broken struct {
	Tags   Labels         `stag:"tags"`
	Counts map[string]int `stag:"counts"`
	Size   *int           `stag:"size"`
	Err    error          `stag:"err"`
	hidden int            `stag:"hidden"`
}

type Box[T any] struct {
	Value T `stag:"value"`
}
