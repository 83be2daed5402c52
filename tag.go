package stag

import "strings"

// TagName is the struct tag that marks a field for JSON coding.
const TagName = "stag"

// FieldTag is a parsed stag struct tag.
//
//	X int    `stag:""`       // key "X"
//	Y int    `stag:"y"`      // key "y"
//	Z string `stag:"-"`      // not coded
type FieldTag struct {
	// Key is the JSON key override. Empty means the field name is used.
	Key string

	// Options are the comma separated words after the key. No options are
	// defined yet, so any option is rejected by ValidateDeclaration.
	Options []string
}

// ParseFieldTag splits a stag tag value into key and options.
// ok is false for "-", which excludes the field.
func ParseFieldTag(raw string) (tag FieldTag, ok bool) {
	if raw == "-" {
		return FieldTag{}, false
	}
	parts := strings.Split(raw, ",")
	tag.Key = strings.TrimSpace(parts[0])
	for _, opt := range parts[1:] {
		if opt = strings.TrimSpace(opt); opt != "" {
			tag.Options = append(tag.Options, opt)
		}
	}
	return tag, true
}

// JSONKey returns the key a field named name is coded under.
// An empty override falls back to the field name, so the key is never empty.
func (t FieldTag) JSONKey(name string) string {
	if t.Key == "" {
		return name
	}
	return t.Key
}
