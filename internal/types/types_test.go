package types

import (
	"testing"

	"stc/internal/symbols"
)

func TestUnionIsOrderIndependent(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	a := in.StringLiteral("a")
	one := in.NumberLiteral(1)

	u1 := in.UnionOf(a, one, b.Null)
	u2 := in.UnionOf(b.Null, one, a)
	u3 := in.UnionOf(in.UnionOf(one, a), b.Null, a)
	if u1 != u2 || u1 != u3 {
		t.Fatalf("union identity differs: %d %d %d", u1, u2, u3)
	}
	if got := len(in.Members(u1)); got != 3 {
		t.Fatalf("members = %d, want 3", got)
	}
}

func TestUnionNormalization(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	a := in.StringLiteral("a")

	cases := []struct {
		name string
		got  TypeID
		want TypeID
	}{
		{"empty", in.Union(nil), b.Never},
		{"single", in.UnionOf(a), a},
		{"never dropped", in.UnionOf(a, b.Never), a},
		{"any absorbs", in.UnionOf(a, b.Any, b.Unknown), b.Any},
		{"unknown absorbs", in.UnionOf(a, b.Unknown), b.Unknown},
		{"literal absorbed by primitive", in.UnionOf(a, b.String), b.String},
		{"fresh with regular", in.UnionOf(in.Fresh(a), a), a},
		{"booleans", in.UnionOf(b.True, b.False), b.Boolean},
		{"fresh booleans", in.UnionOf(b.FreshTrue, b.False, b.True), b.Boolean},
		{"undefined under void", in.UnionOf(b.Void, b.Undefined), b.Void},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("%s: got %d (%s), want %d", tc.name, tc.got, in.Kind(tc.got), tc.want)
		}
	}
	if in.Flags(b.Boolean)&FlagBoolean == 0 {
		t.Fatalf("boolean union lacks FlagBoolean")
	}
}

func TestUnionWithoutStrictNullChecks(t *testing.T) {
	in := NewInterner()
	in.StrictNullChecks = false
	b := in.Builtins()
	if got := in.UnionOf(b.String, b.Null, b.Undefined); got != b.String {
		t.Fatalf("string|null|undefined = %d, want string", got)
	}
	if got := in.UnionOf(b.Null); got != b.Null {
		t.Fatalf("lone null = %d, want null", got)
	}
}

func TestIntersectionNormalization(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	a := in.StringLiteral("a")
	obj := in.CreateObjectType([]Prop{{Name: "x", Type: b.Number}}, nil, nil, nil)

	cases := []struct {
		name string
		got  TypeID
		want TypeID
	}{
		{"empty", in.Intersection(nil), b.Unknown},
		{"any absorbs", in.IntersectionOf(obj, b.Any), b.Any},
		{"never wins over any", in.IntersectionOf(b.Any, b.Never, obj), b.Never},
		{"unknown dropped", in.IntersectionOf(obj, b.Unknown), obj},
		{"disjoint primitives", in.IntersectionOf(b.String, b.Number), b.Never},
		{"two literals", in.IntersectionOf(a, in.StringLiteral("b")), b.Never},
		{"literal keeps itself", in.IntersectionOf(b.String, a), a},
		{"null and object", in.IntersectionOf(b.Null, obj), b.Never},
		{"primitive and object keyword", in.IntersectionOf(b.Number, b.Object), b.Never},
		{"distributes", in.IntersectionOf(in.UnionOf(a, b.Number), b.String), a},
		{"true and boolean", in.IntersectionOf(b.True, b.Boolean), b.True},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("%s: got %d (%s), want %d", tc.name, tc.got, in.Kind(tc.got), tc.want)
		}
	}
}

func TestIntersectionOfObjectsIsInterned(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	x := in.CreateObjectType([]Prop{{Name: "x", Type: b.Number}}, nil, nil, nil)
	y := in.CreateObjectType([]Prop{{Name: "y", Type: b.String}}, nil, nil, nil)
	i1 := in.IntersectionOf(x, y)
	i2 := in.IntersectionOf(x, in.IntersectionOf(y, x))
	if in.Kind(i1) != KindIntersection || i1 != i2 {
		t.Fatalf("intersection identity: %d %d", i1, i2)
	}
}

func TestObjectShapesAreInternedByContent(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	s1 := &Shape{Props: []Prop{{Name: "x", Type: b.Number}, {Name: "y", Type: b.String, Decl: 7}}}
	s2 := &Shape{Props: []Prop{{Name: "y", Type: b.String}, {Name: "x", Type: b.Number}}}
	o1 := in.Object(s1, 0, symbols.SymbolID(3))
	o2 := in.Object(s2, 0, symbols.SymbolID(9))
	if o1 != o2 {
		t.Fatalf("same shape produced %d and %d", o1, o2)
	}
	if got := in.Shape(o1).Props[0].Name; got != "x" {
		t.Fatalf("first creation order lost: %q", got)
	}
	opt := in.Object(&Shape{Props: []Prop{{Name: "x", Type: b.Number, Flags: PropOptional}}}, 0, 0)
	plain := in.Object(&Shape{Props: []Prop{{Name: "x", Type: b.Number}}}, 0, 0)
	if opt == plain {
		t.Fatalf("optional flag ignored by interning")
	}
	if in.Object(&Shape{}, 0, 0) != b.EmptyObject {
		t.Fatalf("empty shape is not the builtin {}")
	}
}

func TestDuplicateIndexSignaturePanics(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for duplicate index key")
		}
	}()
	in.CreateObjectType(nil, nil, nil, []IndexInfo{{Key: b.String, Type: b.Number}, {Key: b.String, Type: b.String}})
}

func TestFreshAndRegularLiterals(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	hi := in.StringLiteral("hi")
	fresh := in.Fresh(hi)
	if fresh == hi || !in.IsFresh(fresh) || in.IsFresh(hi) {
		t.Fatalf("fresh twin not distinct")
	}
	if in.Fresh(fresh) != fresh || in.Regular(fresh) != hi || in.Regular(hi) != hi {
		t.Fatalf("fresh/regular round trip broken")
	}
	if in.BaseOfLiteral(fresh) != b.String {
		t.Fatalf("base of string literal is not string")
	}
	if in.BaseOfLiteral(in.UnionOf(in.NumberLiteral(1), in.NumberLiteral(2))) != b.Number {
		t.Fatalf("1|2 widened is not number")
	}
	if in.BaseOfLiteral(b.FreshTrue) != b.Boolean {
		t.Fatalf("base of true is not boolean")
	}
	u := in.UnionOf(fresh, in.NumberLiteral(3))
	if in.Regular(u) != in.UnionOf(hi, in.NumberLiteral(3)) {
		t.Fatalf("Regular does not map over unions")
	}
}

func TestReferenceNormalizesToTarget(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	box := in.Interface(symbols.SymbolID(1), 0)
	tp := in.TypeParameter(symbols.SymbolID(2), 0)
	info, _ := in.InterfaceInfo(box)
	info.TypeParams = []TypeID{tp}

	if in.Reference(box, []TypeID{tp}) != box {
		t.Fatalf("self reference not normalized")
	}
	r1 := in.Reference(box, []TypeID{b.String})
	r2 := in.Reference(box, []TypeID{b.String})
	if r1 != r2 || in.Kind(r1) != KindReference {
		t.Fatalf("references not interned")
	}
	if in.Marker(0, 0) == in.Marker(0, 0) {
		t.Fatalf("markers must be unique")
	}
}

func TestSyntheticSignaturesAreShared(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	sig := Signature{Params: []Param{{Name: "x", Type: b.Number}}, Return: b.String, MinArgs: 1}
	s1 := in.InternSignature(sig)
	s2 := in.InternSignature(sig)
	if s1 != s2 {
		t.Fatalf("synthetic signatures differ")
	}
	f1 := in.CreateObjectType(nil, []SignatureID{s1}, nil, nil)
	f2 := in.CreateObjectType(nil, []SignatureID{s2}, nil, nil)
	if f1 != f2 {
		t.Fatalf("function types differ")
	}
	if in.NewSignature(sig) == s1 {
		t.Fatalf("NewSignature must allocate")
	}
}
