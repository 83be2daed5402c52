package ir

import "testing"

func TestScalarMethod(t *testing.T) {
	tests := map[Scalar]string{
		Int64:   "Int64",
		Float64: "Float64",
		Bool:    "Bool",
		Int:     "Int",
		String:  "String",
	}
	for s, want := range tests {
		if got := s.Method(); got != want {
			t.Errorf("Method(%d) = %q, want %q", s, got, want)
		}
	}
}

func TestWalk(t *testing.T) {
	ops := []Op{
		&BeginObject{},
		&NilInstance{Body: []Op{&EndObject{}}},
		&IfNotNull{Field: "Label", Body: []Op{
			&WriteName{Key: "label"},
			&WriteScalar{Field: "Label", Scalar: String},
		}},
		&ReadLoop{Cases: []Case{
			{Key: "x", Assign: &ReadScalar{Field: "X", Scalar: Int}},
		}},
		&Return{},
	}

	var kinds []OpKind
	Walk(ops, func(op Op) bool {
		kinds = append(kinds, op.Kind())
		return true
	})
	want := []OpKind{
		OpBeginObject, OpNilInstance, OpEndObject, OpIfNotNull, OpWriteName,
		OpWriteScalar, OpReadLoop, OpReadScalar, OpReturn,
	}
	if len(kinds) != len(want) {
		t.Fatalf("visited %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("visit %d = %d, want %d", i, kinds[i], want[i])
		}
	}
}

func TestWalkStops(t *testing.T) {
	ops := []Op{
		&IfNotNull{Body: []Op{&WriteName{Key: "a"}, &WriteName{Key: "b"}}},
		&Return{},
	}

	visited := 0
	done := Walk(ops, func(op Op) bool {
		visited++
		return op.Kind() != OpWriteName
	})
	if done {
		t.Error("expected Walk to report an early stop")
	}
	if visited != 2 {
		t.Errorf("visited %d ops, want 2", visited)
	}
}

func TestFileFunc(t *testing.T) {
	f := &File{Funcs: []Func{{Name: "WritePoint"}, {Name: "ParsePoint", Dir: Parse}}}
	fn, ok := f.Func("ParsePoint")
	if !ok || fn.Dir != Parse {
		t.Errorf("unexpected lookup %+v, %v", fn, ok)
	}
	if _, ok := f.Func("WriteLine"); ok {
		t.Error("unexpected procedure")
	}
}
