package types

import (
	"encoding/binary"
	"slices"

	"stc/internal/ast"
	"stc/internal/symbols"
)

// SignatureID addresses a signature in the interner's signature arena.
type SignatureID uint32

const NoSignatureID SignatureID = 0

func (id SignatureID) IsValid() bool { return id != NoSignatureID }

// SigFlags describe a signature.
type SigFlags uint8

const (
	SigConstruct SigFlags = 1 << iota
	SigRest                // last parameter is a rest parameter
	SigMethod              // declared as a method; parameters are compared bivariantly
	SigAbstract
)

// Param is one parameter of a signature.
type Param struct {
	Name     string
	Type     TypeID
	Optional bool
	Rest     bool
	Symbol   symbols.SymbolID
}

// PredicateKind is the form of a type predicate return annotation.
type PredicateKind uint8

const (
	PredicateNone     PredicateKind = iota
	PredicateIs                     // x is T
	PredicateAssertIs               // asserts x is T
	PredicateAssert                 // asserts x
	PredicateThis                   // this is T
)

// Predicate is a resolved type predicate. Param is the parameter index.
type Predicate struct {
	Kind  PredicateKind
	Param int
	Type  TypeID
}

// Signature is a callable shape. Return is NoTypeID while the return type is
// still to be resolved from Decl; the checker keeps the resolved value in its
// signature links. Target and Mapper are set on instantiations.
type Signature struct {
	Decl       ast.NodeID
	TypeParams []TypeID
	This       TypeID
	Params     []Param
	Return     TypeID
	Predicate  Predicate
	MinArgs    int
	Flags      SigFlags
	Target     SignatureID
	Mapper     MapperID
}

// HasRest reports a trailing rest parameter.
func (s *Signature) HasRest() bool { return s.Flags&SigRest != 0 }

// ParamCount excludes the rest parameter.
func (s *Signature) ParamCount() int {
	if s.HasRest() {
		return len(s.Params) - 1
	}
	return len(s.Params)
}

// NewSignature allocates a fresh signature. Declared signatures and
// instantiations get distinct identities.
func (in *Interner) NewSignature(sig Signature) SignatureID {
	sig.TypeParams = slices.Clone(sig.TypeParams)
	sig.Params = slices.Clone(sig.Params)
	in.sigs = append(in.sigs, sig)
	return SignatureID(slot(len(in.sigs)-1, "signature"))
}

// InternSignature returns a shared signature for synthetic shapes (no
// declaration, no type parameters), so that identical synthetic shapes
// produce identical object types.
func (in *Interner) InternSignature(sig Signature) SignatureID {
	if sig.Decl.IsValid() || len(sig.TypeParams) != 0 || sig.Target.IsValid() {
		return in.NewSignature(sig)
	}
	key := signatureKey(&sig)
	if id, ok := in.sigIndex[key]; ok {
		return id
	}
	id := in.NewSignature(sig)
	in.sigIndex[key] = id
	return id
}

func signatureKey(sig *Signature) string {
	buf := make([]byte, 0, 16+12*len(sig.Params))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(sig.This))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(sig.Return))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(sig.Predicate.Type))
	buf = append(buf, byte(sig.Predicate.Kind), byte(sig.Predicate.Param), byte(sig.Flags), byte(sig.MinArgs))
	for _, p := range sig.Params {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(p.Type))
		var f byte
		if p.Optional {
			f |= 1
		}
		if p.Rest {
			f |= 2
		}
		buf = append(buf, f)
		buf = append(buf, p.Name...)
		buf = append(buf, 0)
	}
	return string(buf)
}

// Signature returns the signature stored under id.
func (in *Interner) Signature(id SignatureID) *Signature {
	if !id.IsValid() || int(id) >= len(in.sigs) {
		return nil
	}
	return &in.sigs[id]
}

// SignatureCount is the number of allocated signatures.
func (in *Interner) SignatureCount() int { return len(in.sigs) - 1 }
