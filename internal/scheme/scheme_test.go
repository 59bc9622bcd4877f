package scheme

import (
	"errors"
	"reflect"
	"strconv"
	"testing"

	"github.com/nomadatlas/mapcore/internal/render"
)

// eval interprets the small expression subset the compiler emits, against a
// feature property bag, the way the renderer would.
func eval(t *testing.T, e render.Expr, props map[string]any) any {
	t.Helper()
	op, ok := e[0].(string)
	if !ok {
		t.Fatalf("expression head %v is not an operator", e[0])
	}
	switch op {
	case "case":
		for i := 1; i+1 < len(e); i += 2 {
			if evalBool(t, e[i], props) {
				return evalValue(t, e[i+1], props)
			}
		}
		return evalValue(t, e[len(e)-1], props)
	case "any":
		for _, arg := range e[1:] {
			if evalBool(t, arg, props) {
				return true
			}
		}
		return false
	case "==":
		return looseEqual(evalValue(t, e[1], props), evalValue(t, e[2], props))
	case "get":
		return props[e[1].(string)]
	default:
		t.Fatalf("unsupported operator %q", op)
		return nil
	}
}

func evalValue(t *testing.T, v any, props map[string]any) any {
	switch x := v.(type) {
	case render.Expr:
		return eval(t, x, props)
	case []any:
		return eval(t, render.Expr(x), props)
	default:
		return v
	}
}

func evalBool(t *testing.T, v any, props map[string]any) bool {
	b, ok := evalValue(t, v, props).(bool)
	return ok && b
}

// looseEqual matches renderer equality: numbers compare by value regardless
// of integer width, strings compare strictly.
func looseEqual(a, b any) bool {
	af, aNum := asNumber(a)
	bf, bNum := asNumber(b)
	if aNum && bNum {
		return af == bf
	}
	return a == b
}

func asNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// colorFor runs a compiled scheme against a single property value.
func colorFor(t *testing.T, s Scheme, value any) string {
	t.Helper()
	props := map[string]any{}
	if value != nil {
		props[s.Field] = value
	}
	c, ok := eval(t, s.Compile(), props).(string)
	if !ok {
		t.Fatalf("scheme %q produced a non-color result", s.Name)
	}
	return c
}

func TestNumberAndStringCodesMatchIdentically(t *testing.T) {
	for _, name := range Names() {
		s := MustLookup(name)
		for _, e := range s.Entries {
			asInt := colorFor(t, s, e.Code)
			asFloat := colorFor(t, s, float64(e.Code))
			asString := colorFor(t, s, strconv.Itoa(e.Code))
			if asInt != e.Color || asFloat != e.Color || asString != e.Color {
				t.Fatalf("scheme %q code %d: int=%q float=%q string=%q, want %q",
					name, e.Code, asInt, asFloat, asString, e.Color)
			}
		}
	}
}

func TestUnknownNullAndAbsentResolveToDefault(t *testing.T) {
	for _, name := range Names() {
		s := MustLookup(name)
		cases := map[string]any{
			"unknown code":   99,
			"unknown string": "99",
			"baseline":       0,
			"null":           nil,
			"absent":         nil,
		}
		for label, v := range cases {
			got := colorFor(t, s, v)
			if got != s.Default {
				t.Fatalf("scheme %q %s: got %q, want default %q", name, label, got, s.Default)
			}
		}
	}
}

func TestDocumentMandatoryCode(t *testing.T) {
	s := MustLookup(Document)
	want := s.Entries[0].Color // code 2, mandatory
	if got := colorFor(t, s, 2); got != want {
		t.Fatalf("numeric 2: got %q, want %q", got, want)
	}
	if got := colorFor(t, s, "2"); got != want {
		t.Fatalf("string \"2\": got %q, want %q", got, want)
	}
}

func TestLookupUnknownScheme(t *testing.T) {
	_, err := Lookup("sentiment")
	if !errors.Is(err, ErrInvalidScheme) {
		t.Fatalf("err=%v, want ErrInvalidScheme", err)
	}
}

func TestDarkenPreservesConditions(t *testing.T) {
	s := MustLookup(Status)
	base := s.Compile()
	dark := Darken(base)

	if len(dark) != len(base) {
		t.Fatalf("len=%d, want %d", len(dark), len(base))
	}
	// Odd positions after "case" hold the conditions; they must not change.
	for i := 1; i+1 < len(base); i += 2 {
		if !reflect.DeepEqual(dark[i], base[i]) {
			t.Fatalf("condition %d changed: %v != %v", i, dark[i], base[i])
		}
	}
	// Every color literal must change, and stay a valid hex color.
	for i := 2; i < len(base); i += 2 {
		b, d := base[i].(string), dark[i].(string)
		if b == d {
			t.Fatalf("color %q not darkened", b)
		}
		if d[0] != '#' || len(d) != 7 {
			t.Fatalf("darkened color %q is not #rrggbb", d)
		}
	}
}

func TestDarkenIsDeterministic(t *testing.T) {
	s := MustLookup(Zones)
	a := Darken(s.Compile())
	b := Darken(s.Compile())
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("darken not deterministic: %v != %v", a, b)
	}
}

func TestDarkenLeavesNonColorStringsAlone(t *testing.T) {
	expr := render.Expr{"case", render.Expr{"==", render.Expr{"get", "status"}, "2"}, "#ffffff", "#000000"}
	dark := Darken(expr)
	cond := dark[1].(render.Expr)
	if cond[2] != "2" {
		t.Fatalf("string code mutated to %v", cond[2])
	}
	if dark[3] != "#000000" {
		t.Fatalf("black should darken to itself, got %v", dark[3])
	}
}
