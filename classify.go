package stag

// Classify returns the value kind of a field declared with type t.
//
// The five basic types map to their scalar kinds, a named type with a
// local codec maps to KindLocal and every other type maps to KindExternal.
// Classification is total: unknown types are routed through dispatch and
// resolved at run time.
func (r *Registry) Classify(t TypeRef) ValueKind {
	if t.Basic != "" && !t.Pointer {
		if kind, ok := basicKinds[t.Basic]; ok {
			return kind
		}
	}
	if t.ID != "" && r.IsSupported(t.ID) {
		return KindLocal
	}
	return KindExternal
}

// classifyAll assigns a kind to every field of every supported type and
// sets HasNested. It must run after all types of the run are registered so
// that forward references resolve to KindLocal.
func (r *Registry) classifyAll() {
	for _, cls := range r.Classes() {
		cls.HasNested = false
		for i := range cls.Fields {
			f := &cls.Fields[i]
			f.Kind = r.Classify(f.Type)
			if f.Kind == KindLocal {
				cls.HasNested = true
			}
		}
	}
}

// externalTypes returns the distinct named types of KindExternal fields in
// discovery order.
func (r *Registry) externalTypes() []TypeID {
	seen := make(map[TypeID]struct{})
	var ids []TypeID
	for _, cls := range r.Classes() {
		for _, f := range cls.Fields {
			if f.Kind != KindExternal || f.Type.ID == "" {
				continue
			}
			if _, ok := seen[f.Type.ID]; ok {
				continue
			}
			seen[f.Type.ID] = struct{}{}
			ids = append(ids, f.Type.ID)
		}
	}
	return ids
}
