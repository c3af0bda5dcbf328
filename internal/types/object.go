package types

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"slices"

	"stc/internal/ast"
	"stc/internal/symbols"
)

// Object interns a resolved object type. Identity depends only on the shape
// content and the flags; sym and the declaring symbols of properties are
// taken from the first construction.
func (in *Interner) Object(shape *Shape, flags Flags, sym symbols.SymbolID) TypeID {
	if shape == nil {
		shape = &Shape{}
	}
	key := typeKey{Kind: KindObject, Flags: flags, List: shapeKey(shape)}
	if id, ok := in.index[key]; ok {
		return id
	}
	in.objects = append(in.objects, ObjectInfo{Shape: cloneShape(shape)})
	p := slot(len(in.objects)-1, "object")
	id := in.internRaw(Type{Kind: KindObject, Flags: flags, Symbol: sym, Payload: p})
	in.index[key] = id
	return id
}

// CreateObjectType builds an object type from its members.
func (in *Interner) CreateObjectType(props []Prop, calls, constructs []SignatureID, indexes []IndexInfo) TypeID {
	return in.Object(&Shape{Props: props, Calls: calls, Constructs: constructs, Indexes: indexes}, 0, symbols.NoSymbolID)
}

func cloneShape(s *Shape) *Shape {
	seen := make(map[TypeID]struct{}, len(s.Indexes))
	for _, ix := range s.Indexes {
		if _, dup := seen[ix.Key]; dup {
			panic(fmt.Sprintf("types: duplicate index signature for key type %d", ix.Key))
		}
		seen[ix.Key] = struct{}{}
	}
	return &Shape{
		Props:      slices.Clone(s.Props),
		Calls:      slices.Clone(s.Calls),
		Constructs: slices.Clone(s.Constructs),
		Indexes:    slices.Clone(s.Indexes),
	}
}

// shapeKey encodes a shape independent of property order.
func shapeKey(s *Shape) string {
	props := slices.Clone(s.Props)
	slices.SortFunc(props, func(a, b Prop) int { return cmp.Compare(a.Name, b.Name) })
	buf := make([]byte, 0, 8*len(props)+16)
	for _, p := range props {
		buf = append(buf, p.Name...)
		buf = append(buf, 0, byte(p.Flags))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(p.Type))
	}
	buf = append(buf, 0xff)
	for _, c := range s.Calls {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(c))
	}
	buf = append(buf, 0xfe)
	for _, c := range s.Constructs {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(c))
	}
	buf = append(buf, 0xfd)
	indexes := slices.Clone(s.Indexes)
	slices.SortFunc(indexes, func(a, b IndexInfo) int { return cmp.Compare(a.Key, b.Key) })
	for _, ix := range indexes {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(ix.Key))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(ix.Type))
		if ix.Readonly {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}
	return string(buf)
}

// FreshObject returns the fresh twin of an object literal type.
func (in *Interner) FreshObject(id TypeID) TypeID {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindObject || tt.Flags&FlagFresh != 0 {
		return id
	}
	info := in.objects[tt.Payload]
	if info.Shape == nil {
		return id
	}
	return in.Object(info.Shape, tt.Flags|FlagFresh|FlagObjectLiteral, tt.Symbol)
}

// Lazy returns the anonymous object type declared by sym (a type literal,
// function or class symbol) seen through mapper. Its members are resolved on
// demand by the checker.
func (in *Interner) Lazy(sym symbols.SymbolID, mapper MapperID, flags Flags) TypeID {
	key := typeKey{Kind: KindObject, Flags: flags | FlagAnonymous, Sym: sym, A: uint32(mapper)}
	if id, ok := in.index[key]; ok {
		return id
	}
	in.objects = append(in.objects, ObjectInfo{Mapper: mapper})
	p := slot(len(in.objects)-1, "object")
	id := in.internRaw(Type{Kind: KindObject, Flags: flags | FlagAnonymous, Symbol: sym, Payload: p})
	in.index[key] = id
	return id
}

// ObjectInfo returns the payload of a KindObject type.
func (in *Interner) ObjectInfo(id TypeID) (*ObjectInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindObject {
		return nil, false
	}
	return &in.objects[tt.Payload], true
}

// Shape returns the resolved shape of a non-lazy object type.
func (in *Interner) Shape(id TypeID) *Shape {
	info, ok := in.ObjectInfo(id)
	if !ok {
		return nil
	}
	return info.Shape
}

// --- interfaces and references ---

// Interface returns the declared type of an interface or class symbol.
func (in *Interner) Interface(sym symbols.SymbolID, flags Flags) TypeID {
	key := typeKey{Kind: KindInterface, Sym: sym}
	if id, ok := in.index[key]; ok {
		return id
	}
	in.interfaces = append(in.interfaces, InterfaceInfo{})
	p := slot(len(in.interfaces)-1, "interface")
	id := in.internRaw(Type{Kind: KindInterface, Flags: flags, Symbol: sym, Payload: p})
	in.index[key] = id
	return id
}

// InterfaceInfo returns the payload of a KindInterface type.
func (in *Interner) InterfaceInfo(id TypeID) (*InterfaceInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindInterface {
		return nil, false
	}
	return &in.interfaces[tt.Payload], true
}

// Reference instantiates the generic interface target with args. Passing the
// target's own type parameters yields the target itself.
func (in *Interner) Reference(target TypeID, args []TypeID) TypeID {
	info, ok := in.InterfaceInfo(target)
	if !ok {
		panic(fmt.Sprintf("types: reference target %d is not an interface", target))
	}
	if len(args) == 0 || slices.Equal(args, info.TypeParams) {
		return target
	}
	key := typeKey{Kind: KindReference, A: uint32(target), List: encodeIDs(args)}
	if id, ok := in.index[key]; ok {
		return id
	}
	in.refs = append(in.refs, ReferenceInfo{Target: target, Args: slices.Clone(args)})
	p := slot(len(in.refs)-1, "reference")
	tt := in.MustLookup(target)
	id := in.internRaw(Type{Kind: KindReference, Flags: tt.Flags &^ FlagInstantiated, Symbol: tt.Symbol, Payload: p})
	in.index[key] = id
	return id
}

// ReferenceInfo returns the payload of a KindReference type.
func (in *Interner) ReferenceInfo(id TypeID) (*ReferenceInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindReference {
		return nil, false
	}
	return &in.refs[tt.Payload], true
}

// Array returns T[].
func (in *Interner) Array(elem TypeID) TypeID {
	return in.intern(typeKey{Kind: KindArray, A: uint32(elem)}, Type{Kind: KindArray, Payload: uint32(elem)})
}

// ArrayElem returns the element type of an array type.
func (in *Interner) ArrayElem(id TypeID) (TypeID, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindArray {
		return NoTypeID, false
	}
	return TypeID(tt.Payload), true
}

// Tuple returns [elems...].
func (in *Interner) Tuple(elems []TypeID) TypeID {
	return in.internList(KindTuple, 0, elems)
}

// --- type parameters ---

// TypeParameter returns the type parameter declared by sym.
func (in *Interner) TypeParameter(sym symbols.SymbolID, index int) TypeID {
	key := typeKey{Kind: KindTypeParameter, Sym: sym}
	if id, ok := in.index[key]; ok {
		return id
	}
	in.params = append(in.params, TypeParamInfo{Index: index})
	p := slot(len(in.params)-1, "type parameter")
	id := in.internRaw(Type{Kind: KindTypeParameter, Symbol: sym, Payload: p})
	in.index[key] = id
	return id
}

// Marker allocates a unique anonymous type parameter, used to measure
// variance and as the polymorphic this type.
func (in *Interner) Marker(sym symbols.SymbolID, flags Flags) TypeID {
	in.params = append(in.params, TypeParamInfo{Index: -1})
	p := slot(len(in.params)-1, "type parameter")
	return in.internRaw(Type{Kind: KindTypeParameter, Flags: flags, Symbol: sym, Payload: p})
}

// TypeParamInfo returns the payload of a KindTypeParameter type.
func (in *Interner) TypeParamInfo(id TypeID) (*TypeParamInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindTypeParameter {
		return nil, false
	}
	return &in.params[tt.Payload], true
}

// --- generic operators ---

// Index returns the deferred `keyof T` for a generic T.
func (in *Interner) Index(t TypeID) TypeID {
	return in.intern(typeKey{Kind: KindIndex, A: uint32(t)}, Type{Kind: KindIndex, Payload: uint32(t)})
}

// IndexTarget returns T of `keyof T`.
func (in *Interner) IndexTarget(id TypeID) (TypeID, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindIndex {
		return NoTypeID, false
	}
	return TypeID(tt.Payload), true
}

// IndexedAccess returns the deferred `T[K]`.
func (in *Interner) IndexedAccess(object, index TypeID) TypeID {
	key := typeKey{Kind: KindIndexedAccess, A: uint32(object), B: uint32(index)}
	if id, ok := in.index[key]; ok {
		return id
	}
	in.accesses = append(in.accesses, AccessInfo{Object: object, Index: index})
	p := slot(len(in.accesses)-1, "indexed access")
	id := in.internRaw(Type{Kind: KindIndexedAccess, Payload: p})
	in.index[key] = id
	return id
}

// AccessInfo returns the payload of a KindIndexedAccess type.
func (in *Interner) AccessInfo(id TypeID) (*AccessInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindIndexedAccess {
		return nil, false
	}
	return &in.accesses[tt.Payload], true
}

func (in *Interner) deferredType(kind Kind, decl ast.NodeID, mapper MapperID, check TypeID) TypeID {
	key := typeKey{Kind: kind, A: uint32(decl), B: uint32(mapper)}
	if id, ok := in.index[key]; ok {
		return id
	}
	in.deferred = append(in.deferred, DeferredInfo{Decl: decl, Mapper: mapper, Check: check})
	p := slot(len(in.deferred)-1, "deferred type")
	id := in.internRaw(Type{Kind: kind, Payload: p})
	in.index[key] = id
	return id
}

// Conditional returns the deferred conditional type declared at decl under
// mapper.
func (in *Interner) Conditional(decl ast.NodeID, mapper MapperID, check TypeID) TypeID {
	return in.deferredType(KindConditional, decl, mapper, check)
}

// Mapped returns the mapped type declared at decl under mapper.
func (in *Interner) Mapped(decl ast.NodeID, mapper MapperID) TypeID {
	return in.deferredType(KindMapped, decl, mapper, NoTypeID)
}

// DeferredInfo returns the payload of a conditional or mapped type.
func (in *Interner) DeferredInfo(id TypeID) (*DeferredInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || (tt.Kind != KindConditional && tt.Kind != KindMapped) {
		return nil, false
	}
	return &in.deferred[tt.Payload], true
}
