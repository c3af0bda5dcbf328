package types

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"fortio.org/safecast"

	"stc/internal/symbols"
)

// Builtins stores TypeIDs of the intrinsic types.
type Builtins struct {
	Any          TypeID
	Error        TypeID
	Unknown      TypeID
	Never        TypeID
	Void         TypeID
	Undefined    TypeID
	Null         TypeID
	String       TypeID
	Number       TypeID
	Object       TypeID // `object`
	False        TypeID
	True         TypeID
	FreshFalse   TypeID
	FreshTrue    TypeID
	Boolean      TypeID
	EmptyObject  TypeID // `{}`
	NeverArray   TypeID // type of `[]`
	EmptyStr     TypeID
	Zero         TypeID
}

// Interner provides stable TypeIDs by keying structural descriptors.
// StrictNullChecks controls whether unions keep null and undefined.
type Interner struct {
	StrictNullChecks bool

	types      []Type
	index      map[typeKey]TypeID
	builtins   Builtins
	literals   []LiteralInfo
	lists      [][]TypeID
	objects    []ObjectInfo
	interfaces []InterfaceInfo
	refs       []ReferenceInfo
	params     []TypeParamInfo
	accesses   []AccessInfo
	deferred   []DeferredInfo
	aliases    map[TypeID]AliasInfo
	sigs       []Signature
	sigIndex   map[string]SignatureID
}

type typeKey struct {
	Kind  Kind
	Flags Flags
	Sym   symbols.SymbolID
	A, B  uint32
	List  string
}

// NewInterner constructs an interner seeded with the intrinsic types.
func NewInterner() *Interner {
	in := &Interner{
		StrictNullChecks: true,
		types:            make([]Type, 1, 256),
		index:            make(map[typeKey]TypeID, 256),
		literals:         make([]LiteralInfo, 1, 64),
		lists:            make([][]TypeID, 1, 64),
		objects:          make([]ObjectInfo, 1, 64),
		interfaces:       make([]InterfaceInfo, 1, 16),
		refs:             make([]ReferenceInfo, 1, 16),
		params:           make([]TypeParamInfo, 1, 16),
		accesses:         make([]AccessInfo, 1),
		deferred:         make([]DeferredInfo, 1),
		aliases:          make(map[TypeID]AliasInfo),
		sigs:             make([]Signature, 1, 64),
		sigIndex:         make(map[string]SignatureID),
	}
	b := &in.builtins
	b.Any = in.intrinsic(KindAny, 0)
	b.Error = in.intrinsic(KindAny, FlagError)
	b.Unknown = in.intrinsic(KindUnknown, 0)
	b.Never = in.intrinsic(KindNever, 0)
	b.Void = in.intrinsic(KindVoid, 0)
	b.Undefined = in.intrinsic(KindUndefined, 0)
	b.Null = in.intrinsic(KindNull, 0)
	b.String = in.intrinsic(KindString, 0)
	b.Number = in.intrinsic(KindNumber, 0)
	b.Object = in.intrinsic(KindNonPrimitive, 0)
	b.False = in.BooleanLiteral(false)
	b.True = in.BooleanLiteral(true)
	b.FreshFalse = in.Fresh(b.False)
	b.FreshTrue = in.Fresh(b.True)
	b.Boolean = in.internList(KindUnion, FlagBoolean, []TypeID{b.False, b.True})
	b.EmptyObject = in.Object(&Shape{}, 0, symbols.NoSymbolID)
	b.NeverArray = in.Array(b.Never)
	b.EmptyStr = in.StringLiteral("")
	b.Zero = in.NumberLiteral(0)
	return in
}

// Builtins returns TypeIDs for the intrinsic types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

func (in *Interner) intrinsic(kind Kind, flags Flags) TypeID {
	return in.intern(typeKey{Kind: kind, Flags: flags}, Type{Kind: kind, Flags: flags})
}

func (in *Interner) intern(key typeKey, t Type) TypeID {
	if id, ok := in.index[key]; ok {
		return id
	}
	id := in.internRaw(t)
	in.index[key] = id
	return id
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	in.types = append(in.types, t)
	return TypeID(n)
}

func slot(n int, what string) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("%s overflow: %w", what, err))
	}
	return v
}

// Len returns the number of types allocated so far.
func (in *Interner) Len() int { return len(in.types) - 1 }

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("types: invalid TypeID %d", id))
	}
	return tt
}

// Kind is a shorthand for the kind of id (KindInvalid when unknown).
func (in *Interner) Kind(id TypeID) Kind {
	tt, _ := in.Lookup(id)
	return tt.Kind
}

// Flags returns the flags of id.
func (in *Interner) Flags(id TypeID) Flags {
	tt, _ := in.Lookup(id)
	return tt.Flags
}

// Symbol returns the originating symbol of id.
func (in *Interner) Symbol(id TypeID) symbols.SymbolID {
	tt, _ := in.Lookup(id)
	return tt.Symbol
}

func encodeIDs(ids []TypeID) string {
	buf := make([]byte, 0, 4*len(ids))
	for _, id := range ids {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(id))
	}
	return string(buf)
}

func (in *Interner) internList(kind Kind, flags Flags, ids []TypeID) TypeID {
	key := typeKey{Kind: kind, List: encodeIDs(ids)}
	if id, ok := in.index[key]; ok {
		return id
	}
	in.lists = append(in.lists, slices.Clone(ids))
	t := Type{Kind: kind, Flags: flags, Payload: slot(len(in.lists)-1, "type list")}
	id := in.internRaw(t)
	in.index[key] = id
	return id
}

// Members returns the constituents of a union, intersection or tuple.
func (in *Interner) Members(id TypeID) []TypeID {
	tt, ok := in.Lookup(id)
	if !ok {
		return nil
	}
	switch tt.Kind {
	case KindUnion, KindIntersection, KindTuple:
		return in.lists[tt.Payload]
	}
	return nil
}

// --- literals ---

func (in *Interner) literal(kind Kind, flags Flags, sym symbols.SymbolID, info LiteralInfo) TypeID {
	key := typeKey{Kind: kind, Flags: flags, Sym: sym}
	switch kind {
	case KindStringLiteral:
		key.List = info.Str
	case KindNumberLiteral:
		bits := math.Float64bits(info.Num)
		key.A, key.B = uint32(bits>>32), uint32(bits)
	case KindBooleanLiteral:
		if info.Bool {
			key.A = 1
		}
	}
	if id, ok := in.index[key]; ok {
		return id
	}
	in.literals = append(in.literals, info)
	p := slot(len(in.literals)-1, "literal")
	id := in.internRaw(Type{Kind: kind, Flags: flags, Symbol: sym, Payload: p})
	in.index[key] = id
	lit := &in.literals[p]
	if flags&FlagFresh == 0 {
		lit.Regular = id
	} else {
		lit.Fresh = id
	}
	return id
}

// StringLiteral returns the regular literal type for s.
func (in *Interner) StringLiteral(s string) TypeID {
	return in.literal(KindStringLiteral, 0, symbols.NoSymbolID, LiteralInfo{Str: s})
}

// NumberLiteral returns the regular literal type for v.
func (in *Interner) NumberLiteral(v float64) TypeID {
	return in.literal(KindNumberLiteral, 0, symbols.NoSymbolID, LiteralInfo{Num: v})
}

// BooleanLiteral returns the regular `true` or `false` type.
func (in *Interner) BooleanLiteral(v bool) TypeID {
	if v && in.builtins.True != NoTypeID {
		return in.builtins.True
	}
	if !v && in.builtins.False != NoTypeID {
		return in.builtins.False
	}
	return in.literal(KindBooleanLiteral, 0, symbols.NoSymbolID, LiteralInfo{Bool: v})
}

// EnumLiteral returns the literal type of enum member sym with the given
// value: a number literal unless str is non-nil.
func (in *Interner) EnumLiteral(sym symbols.SymbolID, num float64, str *string) TypeID {
	if str != nil {
		return in.literal(KindStringLiteral, FlagEnumLiteral, sym, LiteralInfo{Str: *str})
	}
	return in.literal(KindNumberLiteral, FlagEnumLiteral, sym, LiteralInfo{Num: num})
}

// Literal returns the literal info of a literal type.
func (in *Interner) Literal(id TypeID) (*LiteralInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || !tt.Kind.IsLiteral() {
		return nil, false
	}
	return &in.literals[tt.Payload], true
}

// Fresh returns the fresh twin of a regular literal; other types are returned as is.
func (in *Interner) Fresh(id TypeID) TypeID {
	tt, ok := in.Lookup(id)
	if !ok || !tt.Kind.IsLiteral() || tt.Flags&FlagFresh != 0 {
		return id
	}
	lit := in.literals[tt.Payload]
	if lit.Fresh != NoTypeID {
		return lit.Fresh
	}
	fresh := in.literal(tt.Kind, tt.Flags|FlagFresh, tt.Symbol, LiteralInfo{Str: lit.Str, Num: lit.Num, Bool: lit.Bool, Regular: id})
	in.literals[tt.Payload].Fresh = fresh
	return fresh
}

// Regular strips literal freshness, including inside unions, and drops the
// fresh marker of object literal types.
func (in *Interner) Regular(id TypeID) TypeID {
	tt, ok := in.Lookup(id)
	if !ok || tt.Flags&FlagFresh == 0 {
		if ok && tt.Kind == KindUnion {
			members := in.Members(id)
			changed := false
			out := make([]TypeID, len(members))
			for i, m := range members {
				out[i] = in.Regular(m)
				changed = changed || out[i] != m
			}
			if changed {
				return in.Union(out)
			}
		}
		return id
	}
	if tt.Kind.IsLiteral() {
		return in.literals[tt.Payload].Regular
	}
	if tt.Kind == KindObject {
		info := in.objects[tt.Payload]
		return in.Object(info.Shape, tt.Flags&^FlagFresh, tt.Symbol)
	}
	return id
}

// IsFresh reports a fresh literal or fresh object literal type.
func (in *Interner) IsFresh(id TypeID) bool {
	return in.Flags(id)&FlagFresh != 0
}

// --- aliases ---

// SetAlias records the alias id was written through. The first alias wins.
func (in *Interner) SetAlias(id TypeID, sym symbols.SymbolID, args []TypeID) {
	if _, ok := in.aliases[id]; ok || id == NoTypeID {
		return
	}
	in.aliases[id] = AliasInfo{Symbol: sym, Args: slices.Clone(args)}
}

// Alias returns the alias recorded for id.
func (in *Interner) Alias(id TypeID) (AliasInfo, bool) {
	a, ok := in.aliases[id]
	return a, ok
}
