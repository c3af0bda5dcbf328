package types

import (
	"fmt"

	"stc/internal/ast"
	"stc/internal/symbols"
)

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates the closed set of type variants.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindAny
	KindUnknown
	KindNever
	KindVoid
	KindUndefined
	KindNull
	KindString
	KindNumber
	KindNonPrimitive // `object`
	KindStringLiteral
	KindNumberLiteral
	KindBooleanLiteral
	KindUnion
	KindIntersection
	KindObject    // structural shape, or a lazily resolved anonymous type
	KindInterface // declared type of an interface or class, one per symbol
	KindReference // instantiation of a generic interface or class
	KindArray
	KindTuple
	KindTypeParameter
	KindIndex         // keyof T for a generic T
	KindIndexedAccess // T[K] that cannot be resolved yet
	KindConditional
	KindMapped
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindAny:
		return "any"
	case KindUnknown:
		return "unknown"
	case KindNever:
		return "never"
	case KindVoid:
		return "void"
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindNonPrimitive:
		return "object"
	case KindStringLiteral:
		return "string-literal"
	case KindNumberLiteral:
		return "number-literal"
	case KindBooleanLiteral:
		return "boolean-literal"
	case KindUnion:
		return "union"
	case KindIntersection:
		return "intersection"
	case KindObject:
		return "object-type"
	case KindInterface:
		return "interface"
	case KindReference:
		return "reference"
	case KindArray:
		return "array"
	case KindTuple:
		return "tuple"
	case KindTypeParameter:
		return "type-parameter"
	case KindIndex:
		return "index"
	case KindIndexedAccess:
		return "indexed-access"
	case KindConditional:
		return "conditional"
	case KindMapped:
		return "mapped"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// IsLiteral reports the unit literal kinds.
func (k Kind) IsLiteral() bool {
	return k == KindStringLiteral || k == KindNumberLiteral || k == KindBooleanLiteral
}

// IsPrimitive reports kinds whose values are not objects.
func (k Kind) IsPrimitive() bool {
	switch k {
	case KindString, KindNumber, KindStringLiteral, KindNumberLiteral, KindBooleanLiteral,
		KindVoid, KindUndefined, KindNull:
		return true
	}
	return false
}

// IsObjectLike reports kinds with members.
func (k Kind) IsObjectLike() bool {
	switch k {
	case KindObject, KindInterface, KindReference, KindArray, KindTuple, KindMapped:
		return true
	}
	return false
}

// IsGeneric reports kinds whose meaning depends on an unresolved type parameter.
func (k Kind) IsGeneric() bool {
	switch k {
	case KindTypeParameter, KindIndex, KindIndexedAccess, KindConditional:
		return true
	}
	return false
}

// Flags refine a type beyond its kind.
type Flags uint16

const (
	FlagFresh         Flags = 1 << iota // fresh literal or fresh object literal
	FlagEnumLiteral                     // literal of an enum member; Symbol is the member
	FlagBoolean                         // the `boolean` union
	FlagError                           // the error type (an any)
	FlagObjectLiteral                   // object type written as an object literal expression
	FlagClass                           // interface type declared by a class
	FlagAnonymous                       // lazily resolved anonymous type
	FlagInstantiated                    // produced by instantiation
	FlagArrayLiteral                    // tuple-like array literal context
	FlagThis                            // the polymorphic this type parameter
)

// Type is a compact descriptor; kind-specific data lives in side tables
// addressed by Payload.
type Type struct {
	Kind    Kind
	Flags   Flags
	Symbol  symbols.SymbolID
	Payload uint32
}

// MapperID identifies an interned type mapper owned by the checker. Zero is
// the identity mapper.
type MapperID uint32

// LiteralInfo holds the value of a unit literal and its freshness twins.
type LiteralInfo struct {
	Str     string
	Num     float64
	Bool    bool
	Regular TypeID
	Fresh   TypeID
}

// PropFlags mark property modifiers.
type PropFlags uint8

const (
	PropOptional PropFlags = 1 << iota
	PropReadonly
	PropMethod
)

// Prop is one named member of a shape. Decl is the declaring symbol, kept for
// diagnostics; it does not take part in identity.
type Prop struct {
	Name  string
	Type  TypeID
	Flags PropFlags
	Decl  symbols.SymbolID
}

func (p Prop) Optional() bool { return p.Flags&PropOptional != 0 }

// IndexInfo is an index signature: `[key: Key]: Type`.
type IndexInfo struct {
	Key      TypeID
	Type     TypeID
	Readonly bool
}

// Shape is the resolved structure of an object type.
type Shape struct {
	Props      []Prop
	Calls      []SignatureID
	Constructs []SignatureID
	Indexes    []IndexInfo
}

// Prop returns the property named name.
func (s *Shape) Prop(name string) (Prop, bool) {
	if s == nil {
		return Prop{}, false
	}
	for _, p := range s.Props {
		if p.Name == name {
			return p, true
		}
	}
	return Prop{}, false
}

// Index returns the index signature whose key type is key.
func (s *Shape) Index(key TypeID) (IndexInfo, bool) {
	if s == nil {
		return IndexInfo{}, false
	}
	for _, ix := range s.Indexes {
		if ix.Key == key {
			return ix, true
		}
	}
	return IndexInfo{}, false
}

// IsEmpty reports a shape with no members at all.
func (s *Shape) IsEmpty() bool {
	return s == nil || len(s.Props) == 0 && len(s.Calls) == 0 && len(s.Constructs) == 0 && len(s.Indexes) == 0
}

// ObjectInfo backs KindObject types. Shape is nil for lazy anonymous types
// whose members the checker resolves from Type.Symbol under Mapper.
type ObjectInfo struct {
	Shape  *Shape
	Mapper MapperID
}

// InterfaceInfo backs KindInterface types.
type InterfaceInfo struct {
	TypeParams []TypeID // outer and local type parameters, in order
	Local      int      // number of trailing local type parameters
	This       TypeID   // polymorphic this type parameter
}

// ReferenceInfo backs KindReference types.
type ReferenceInfo struct {
	Target TypeID
	Args   []TypeID
}

// TypeParamInfo backs KindTypeParameter types. Constraints are resolved by
// the checker and cached there.
type TypeParamInfo struct {
	Index int // position among its declaration's type parameters; -1 for markers
}

// AccessInfo backs KindIndexedAccess types.
type AccessInfo struct {
	Object TypeID
	Index  TypeID
}

// DeferredInfo backs conditional and mapped types: the declaring node plus
// the mapper applied so far.
type DeferredInfo struct {
	Decl   ast.NodeID // ConditionalType or MappedType node
	Mapper MapperID
	Check  TypeID // conditional: instantiated check type
}

// AliasInfo records the alias a type was written through, for printing.
type AliasInfo struct {
	Symbol symbols.SymbolID
	Args   []TypeID
}
