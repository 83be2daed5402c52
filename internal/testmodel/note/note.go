// Package note declares a type with no generated codec. Fields of this
// type stay unresolved in packages that use it.
package note

// Remark is a free text annotation.
type Remark struct {
	Text string `stag:"text"`
}
