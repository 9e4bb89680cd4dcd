package object

import "testing"

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{0, "0"},
		{42, "42"},
		{-7, "-7"},
		{3.0, "3"},
		{3.5, "3.5"},
		{-0.25, "-0.25"},
		{1e6, "1000000"},
		{1e20, "1e+20"},
		{1.0 / 3.0, "0.333333333333333"},
	}

	for i, tt := range tests {
		if got := FormatNumber(tt.value); got != tt.want {
			t.Fatalf("tests[%d] - FormatNumber(%v): expected %q, got %q", i, tt.value, tt.want, got)
		}
	}
}

func TestInspectDisplayForms(t *testing.T) {
	tests := []struct {
		obj  Object
		want string
	}{
		{&Number{Value: 2}, "2"},
		{&String{Value: "hi"}, `"hi"`},
		{&String{Value: "a\nb\t\"c\"\\"}, `"a\nb\t\"c\"\\"`},
		{&Nil{}, "nil"},
		{&Function{}, "[function]"},
		{&List{}, "[]"},
		{&List{Elements: []Object{
			&Number{Value: 1},
			&String{Value: "two"},
			&Nil{},
			&List{Elements: []Object{&Number{Value: 3}}},
		}}, `[1, "two", nil, [3]]`},
	}

	for i, tt := range tests {
		if got := tt.obj.Inspect(); got != tt.want {
			t.Fatalf("tests[%d] - expected %q, got %q", i, tt.want, got)
		}
	}
}

// Print differs from Inspect for top-level strings: unquoted, unescaped.
func TestPrintForm(t *testing.T) {
	if got := Print(&String{Value: "a\nb"}); got != "a\nb" {
		t.Fatalf("expected raw string, got %q", got)
	}
	if got := Print(&Number{Value: 2.5}); got != "2.5" {
		t.Fatalf("got %q", got)
	}
	if got := Print(&Nil{}); got != "nil" {
		t.Fatalf("got %q", got)
	}
	if got := Print(&List{Elements: []Object{&String{Value: "q"}}}); got != `["q"]` {
		t.Fatalf("got %q", got)
	}
}

func TestEnvironmentSnapshotRestore(t *testing.T) {
	env := NewEnvironment()
	env.Set("a", &Number{Value: 1})
	shared := &List{Elements: []Object{&Number{Value: 1}}}
	env.Set("l", shared)

	snap := env.Snapshot()

	env.Set("a", &Number{Value: 99})
	env.Set("b", &Number{Value: 2})
	// Mutation through the shared handle is not rolled back by Restore.
	shared.Elements = append(shared.Elements, &Number{Value: 2})

	env.Restore(snap)

	a, ok := env.Get("a")
	if !ok {
		t.Fatal("a missing after restore")
	}
	if a.(*Number).Value != 1 {
		t.Fatalf("a = %v, expected 1", a.(*Number).Value)
	}
	if _, ok := env.Get("b"); ok {
		t.Fatal("b should be gone after restore")
	}
	l, _ := env.Get("l")
	if len(l.(*List).Elements) != 2 {
		t.Fatalf("shared list should keep its mutation, got %d elements", len(l.(*List).Elements))
	}
}
