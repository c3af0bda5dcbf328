package symbols

import "strings"

// SymbolFlags is the set of declaration kinds merged into one symbol.
type SymbolFlags uint32

const (
	FunctionScopedVariable SymbolFlags = 1 << iota // var, parameter
	BlockScopedVariable                            // let, const
	Property
	EnumMember
	Function
	Class
	Interface
	ConstEnum
	RegularEnum
	ValueModule     // namespace with values
	NamespaceModule // namespace with types only
	TypeLiteral
	ObjectLiteral
	Method
	Constructor
	Signature // call, construct and index signatures
	TypeParameter
	TypeAlias
	Alias // import binding
	Optional
	Transient // created by the checker (merged, instantiated, synthetic)
	Readonly
	Static
	Const // const variable, never reassigned
)

const (
	None SymbolFlags = 0

	Enum      = RegularEnum | ConstEnum
	Variable  = FunctionScopedVariable | BlockScopedVariable
	Value     = Variable | Property | EnumMember | ObjectLiteral | Function | Class | Enum | ValueModule | Method
	Type      = Class | Interface | Enum | EnumMember | TypeLiteral | TypeParameter | TypeAlias
	Namespace = ValueModule | NamespaceModule | Enum
	Module    = ValueModule | NamespaceModule

	FunctionScopedVariableExcludes = Value &^ FunctionScopedVariable
	BlockScopedVariableExcludes    = Value
	ParameterExcludes              = Value
	PropertyExcludes               = None
	EnumMemberExcludes             = Value | Type
	FunctionExcludes               = Value &^ (Function | ValueModule | Class)
	ClassExcludes                  = (Value | Type) &^ (ValueModule | Interface | Function)
	InterfaceExcludes              = Type &^ (Interface | Class)
	RegularEnumExcludes            = (Value | Type) &^ (RegularEnum | ValueModule)
	ConstEnumExcludes              = (Value | Type) &^ ConstEnum
	ValueModuleExcludes            = Value &^ (Function | Class | RegularEnum | ValueModule)
	NamespaceModuleExcludes        = None
	MethodExcludes                 = Value &^ Method
	TypeParameterExcludes          = Type &^ TypeParameter
	TypeAliasExcludes              = Type
	AliasExcludes                  = Alias

	// ModuleMember flags are the kinds a namespace or module may export.
	ModuleMember = Variable | Function | Class | Interface | Enum | Module | TypeAlias | Alias
	// HasMembers marks symbols that own a member table.
	HasMembers = Class | Interface | TypeLiteral | ObjectLiteral
	HasExports = Class | Enum | Module
)

var flagNames = []struct {
	flag SymbolFlags
	name string
}{
	{FunctionScopedVariable, "var"},
	{BlockScopedVariable, "let"},
	{Property, "property"},
	{EnumMember, "enum-member"},
	{Function, "function"},
	{Class, "class"},
	{Interface, "interface"},
	{ConstEnum, "const-enum"},
	{RegularEnum, "enum"},
	{ValueModule, "namespace"},
	{NamespaceModule, "type-namespace"},
	{TypeLiteral, "type-literal"},
	{ObjectLiteral, "object-literal"},
	{Method, "method"},
	{Constructor, "constructor"},
	{Signature, "signature"},
	{TypeParameter, "type-parameter"},
	{TypeAlias, "type-alias"},
	{Alias, "alias"},
	{Optional, "optional"},
	{Transient, "transient"},
	{Readonly, "readonly"},
	{Static, "static"},
	{Const, "const"},
}

// Strings returns the textual labels of the set flags.
func (f SymbolFlags) Strings() []string {
	if f == 0 {
		return nil
	}
	labels := make([]string, 0, 4)
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			labels = append(labels, fn.name)
		}
	}
	return labels
}

func (f SymbolFlags) String() string {
	return strings.Join(f.Strings(), "|")
}

// Describe names the dominant declaration kind for messages.
func (f SymbolFlags) Describe() string {
	switch {
	case f&Class != 0:
		return "class"
	case f&Interface != 0:
		return "interface"
	case f&Enum != 0:
		return "enum"
	case f&Function != 0:
		return "function"
	case f&Module != 0:
		return "namespace"
	case f&TypeAlias != 0:
		return "type alias"
	case f&TypeParameter != 0:
		return "type parameter"
	case f&BlockScopedVariable != 0:
		return "block-scoped variable"
	case f&Variable != 0:
		return "variable"
	case f&Method != 0:
		return "method"
	case f&Property != 0:
		return "property"
	case f&Alias != 0:
		return "import"
	}
	return "symbol"
}
