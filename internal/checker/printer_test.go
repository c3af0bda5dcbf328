package checker

import (
	"math"
	"testing"

	"stc/internal/ast"
)

func TestTypeToString(t *testing.T) {
	str := func(b *ast.Builder) ast.NodeID { return b.Keyword(ast.KindStringKeyword) }
	num := func(b *ast.Builder) ast.NodeID { return b.Keyword(ast.KindNumberKeyword) }
	cases := []struct {
		want string
		typ  func(b *ast.Builder) ast.NodeID
	}{
		{"string[]", func(b *ast.Builder) ast.NodeID { return b.ArrayOf(str(b)) }},
		{"(string | number)[]", func(b *ast.Builder) ast.NodeID { return b.ArrayOf(b.Union(str(b), num(b))) }},
		{"string | undefined", func(b *ast.Builder) ast.NodeID {
			return b.Union(b.Keyword(ast.KindUndefinedKeyword), str(b))
		}},
		{"[string, number]", func(b *ast.Builder) ast.NodeID { return b.Tuple(str(b), num(b)) }},
		{"boolean", func(b *ast.Builder) ast.NodeID { return b.Keyword(ast.KindBooleanKeyword) }},
		{`"a"`, func(b *ast.Builder) ast.NodeID { return b.LitType(b.Str("a")) }},
		{"{ a: string; b?: number; }", func(b *ast.Builder) ast.NodeID {
			return b.TypeLit(b.PropSig(0, b.Ident("a"), str(b)), b.PropSig(ast.FlagOptional, b.Ident("b"), num(b)))
		}},
		{"(x: number) => string", func(b *ast.Builder) ast.NodeID {
			return b.FuncType(nil, []ast.NodeID{b.Param(0, b.Ident("x"), num(b), ast.NoNodeID)}, str(b))
		}},
		{"{}", func(b *ast.Builder) ast.NodeID { return b.TypeLit() }},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
				return []ast.NodeID{letStmt(b, ast.FlagLet, "v", tc.typ(b), ast.NoNodeID)}
			})
			f.wantText(f.typeOf("v"), tc.want)
		})
	}
}

func TestTypeToStringNamedTypes(t *testing.T) {
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		tp := b.TypeParam(0, b.Ident("T"), ast.NoNodeID, ast.NoNodeID)
		return []ast.NodeID{
			b.Interface(0, b.Ident("Box"), []ast.NodeID{tp}, nil, prop(b, "value", b.TypeRef(b.Ident("T")))),
			letStmt(b, ast.FlagLet, "boxed", b.TypeRef(b.Ident("Box"), b.Keyword(ast.KindStringKeyword)), ast.NoNodeID),
			b.Class(0, b.Ident("C"), nil, ast.NoNodeID, nil),
			b.Enum(0, b.Ident("Color"), b.EnumMember(b.Ident("Red"), ast.NoNodeID), b.EnumMember(b.Ident("Green"), ast.NoNodeID)),
		}
	})
	f.wantCodes()
	f.wantText(f.typeOf("boxed"), "Box<string>")
	f.wantText(f.declared("Box"), "Box<T>")
	f.wantText(f.typeOf("C"), "typeof C")
	f.wantText(f.declared("C"), "C")
	f.wantText(f.typeOf("Color"), "typeof Color")
	f.wantText(f.declared("Color"), "Color")
}

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{1, "1"},
		{-2.5, "-2.5"},
		{1e21, "1e+21"},
		{123456789, "123456789"},
		{0.000001, "0.000001"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
	}
	for _, tc := range cases {
		if got := formatNumber(tc.in); got != tc.want {
			t.Fatalf("formatNumber(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsNumericName(t *testing.T) {
	for name, want := range map[string]bool{"0": true, "12": true, "1.5": true, "01": false, "x": false, "": false, "1e3": false} {
		if got := isNumericName(name); got != want {
			t.Fatalf("isNumericName(%q) = %v, want %v", name, got, want)
		}
	}
}
