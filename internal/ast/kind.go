package ast

// Kind is the syntactic kind of a node.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindSourceFile

	// выражения
	KindIdentifier
	KindStringLiteral
	KindNumericLiteral
	KindTrueKeyword
	KindFalseKeyword
	KindNullKeyword
	KindThisKeyword
	KindObjectLiteral
	KindArrayLiteral
	KindPropertyAssignment
	KindShorthandPropertyAssignment
	KindPropertyAccess
	KindElementAccess
	KindCall
	KindNew
	KindParenthesized
	KindFunctionExpression
	KindArrowFunction
	KindClassExpression
	KindPrefixUnary
	KindTypeOf
	KindBinary
	KindConditional
	KindAs
	KindNonNull

	// инструкции
	KindBlock
	KindEmptyStatement
	KindVariableStatement
	KindVariableDeclaration
	KindExpressionStatement
	KindIf
	KindDoWhile
	KindWhile
	KindFor
	KindForOf
	KindContinue
	KindBreak
	KindReturn
	KindThrow
	KindTry
	KindCatchClause
	KindSwitch
	KindCaseClause
	KindDefaultClause
	KindLabeled

	// объявления
	KindFunctionDeclaration
	KindClassDeclaration
	KindInterfaceDeclaration
	KindTypeAliasDeclaration
	KindEnumDeclaration
	KindEnumMember
	KindModuleDeclaration
	KindImportDeclaration
	KindImportSpecifier
	KindParameter
	KindTypeParameter
	KindPropertyDeclaration
	KindMethodDeclaration
	KindConstructor
	KindPropertySignature
	KindMethodSignature
	KindCallSignature
	KindConstructSignature
	KindIndexSignature

	// типы
	KindAnyKeyword
	KindUnknownKeyword
	KindNeverKeyword
	KindStringKeyword
	KindNumberKeyword
	KindBooleanKeyword
	KindVoidKeyword
	KindUndefinedKeyword
	KindObjectKeyword
	KindThisType
	KindTypeReference
	KindQualifiedName
	KindUnionType
	KindIntersectionType
	KindArrayType
	KindTupleType
	KindTypeLiteral
	KindFunctionType
	KindConstructorType
	KindTypeOperator
	KindIndexedAccessType
	KindConditionalType
	KindInferType
	KindMappedType
	KindTypeQuery
	KindTypePredicate
	KindLiteralType
	KindParenthesizedType

	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown:                     "Unknown",
	KindSourceFile:                  "SourceFile",
	KindIdentifier:                  "Identifier",
	KindStringLiteral:               "StringLiteral",
	KindNumericLiteral:              "NumericLiteral",
	KindTrueKeyword:                 "TrueKeyword",
	KindFalseKeyword:                "FalseKeyword",
	KindNullKeyword:                 "NullKeyword",
	KindThisKeyword:                 "ThisKeyword",
	KindObjectLiteral:               "ObjectLiteral",
	KindArrayLiteral:                "ArrayLiteral",
	KindPropertyAssignment:          "PropertyAssignment",
	KindShorthandPropertyAssignment: "ShorthandPropertyAssignment",
	KindPropertyAccess:              "PropertyAccess",
	KindElementAccess:               "ElementAccess",
	KindCall:                        "Call",
	KindNew:                         "New",
	KindParenthesized:               "Parenthesized",
	KindFunctionExpression:          "FunctionExpression",
	KindArrowFunction:               "ArrowFunction",
	KindClassExpression:             "ClassExpression",
	KindPrefixUnary:                 "PrefixUnary",
	KindTypeOf:                      "TypeOf",
	KindBinary:                      "Binary",
	KindConditional:                 "Conditional",
	KindAs:                          "As",
	KindNonNull:                     "NonNull",
	KindBlock:                       "Block",
	KindEmptyStatement:              "EmptyStatement",
	KindVariableStatement:           "VariableStatement",
	KindVariableDeclaration:         "VariableDeclaration",
	KindExpressionStatement:         "ExpressionStatement",
	KindIf:                          "If",
	KindDoWhile:                     "DoWhile",
	KindWhile:                       "While",
	KindFor:                         "For",
	KindForOf:                       "ForOf",
	KindContinue:                    "Continue",
	KindBreak:                       "Break",
	KindReturn:                      "Return",
	KindThrow:                       "Throw",
	KindTry:                         "Try",
	KindCatchClause:                 "CatchClause",
	KindSwitch:                      "Switch",
	KindCaseClause:                  "CaseClause",
	KindDefaultClause:               "DefaultClause",
	KindLabeled:                     "Labeled",
	KindFunctionDeclaration:         "FunctionDeclaration",
	KindClassDeclaration:            "ClassDeclaration",
	KindInterfaceDeclaration:        "InterfaceDeclaration",
	KindTypeAliasDeclaration:        "TypeAliasDeclaration",
	KindEnumDeclaration:             "EnumDeclaration",
	KindEnumMember:                  "EnumMember",
	KindModuleDeclaration:           "ModuleDeclaration",
	KindImportDeclaration:           "ImportDeclaration",
	KindImportSpecifier:             "ImportSpecifier",
	KindParameter:                   "Parameter",
	KindTypeParameter:               "TypeParameter",
	KindPropertyDeclaration:         "PropertyDeclaration",
	KindMethodDeclaration:           "MethodDeclaration",
	KindConstructor:                 "Constructor",
	KindPropertySignature:           "PropertySignature",
	KindMethodSignature:             "MethodSignature",
	KindCallSignature:               "CallSignature",
	KindConstructSignature:          "ConstructSignature",
	KindIndexSignature:              "IndexSignature",
	KindAnyKeyword:                  "AnyKeyword",
	KindUnknownKeyword:              "UnknownKeyword",
	KindNeverKeyword:                "NeverKeyword",
	KindStringKeyword:               "StringKeyword",
	KindNumberKeyword:               "NumberKeyword",
	KindBooleanKeyword:              "BooleanKeyword",
	KindVoidKeyword:                 "VoidKeyword",
	KindUndefinedKeyword:            "UndefinedKeyword",
	KindObjectKeyword:               "ObjectKeyword",
	KindThisType:                    "ThisType",
	KindTypeReference:               "TypeReference",
	KindQualifiedName:               "QualifiedName",
	KindUnionType:                   "UnionType",
	KindIntersectionType:            "IntersectionType",
	KindArrayType:                   "ArrayType",
	KindTupleType:                   "TupleType",
	KindTypeLiteral:                 "TypeLiteral",
	KindFunctionType:                "FunctionType",
	KindConstructorType:             "ConstructorType",
	KindTypeOperator:                "TypeOperator",
	KindIndexedAccessType:           "IndexedAccessType",
	KindConditionalType:             "ConditionalType",
	KindInferType:                   "InferType",
	KindMappedType:                  "MappedType",
	KindTypeQuery:                   "TypeQuery",
	KindTypePredicate:               "TypePredicate",
	KindLiteralType:                 "LiteralType",
	KindParenthesizedType:           "ParenthesizedType",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "Unknown"
}

// KindByName resolves the external name used by AST documents.
func KindByName(name string) (Kind, bool) {
	for k := KindSourceFile; k < kindCount; k++ {
		if kindNames[k] == name {
			return k, true
		}
	}
	return KindUnknown, false
}

// IsFunctionLike reports kinds that carry a FuncData payload.
func (k Kind) IsFunctionLike() bool {
	return family(k) == famFunc
}

// IsFunctionScope reports containers that own a function-level scope and a
// fresh control-flow start node.
func (k Kind) IsFunctionScope() bool {
	switch k {
	case KindFunctionDeclaration, KindFunctionExpression, KindArrowFunction,
		KindMethodDeclaration, KindConstructor:
		return true
	}
	return false
}

// IsSignatureDeclaration reports bodiless signature shapes.
func (k Kind) IsSignatureDeclaration() bool {
	switch k {
	case KindMethodSignature, KindCallSignature, KindConstructSignature,
		KindFunctionType, KindConstructorType:
		return true
	}
	return false
}

// IsClassLike reports class declarations and expressions.
func (k Kind) IsClassLike() bool {
	return k == KindClassDeclaration || k == KindClassExpression
}

// IsKeywordType reports keyword type nodes (`string`, `any`, ...).
func (k Kind) IsKeywordType() bool {
	return k >= KindAnyKeyword && k <= KindObjectKeyword
}

// IsTypeNode reports nodes that denote types.
func (k Kind) IsTypeNode() bool {
	return k >= KindAnyKeyword && k < kindCount
}

// IsStatement reports statement kinds, declarations included.
func (k Kind) IsStatement() bool {
	switch k {
	case KindBlock, KindEmptyStatement, KindVariableStatement, KindExpressionStatement,
		KindIf, KindDoWhile, KindWhile, KindFor, KindForOf, KindContinue, KindBreak,
		KindReturn, KindThrow, KindTry, KindSwitch, KindLabeled,
		KindFunctionDeclaration, KindClassDeclaration, KindInterfaceDeclaration,
		KindTypeAliasDeclaration, KindEnumDeclaration, KindModuleDeclaration, KindImportDeclaration:
		return true
	}
	return false
}

// IsIteration reports loop statements.
func (k Kind) IsIteration() bool {
	switch k {
	case KindDoWhile, KindWhile, KindFor, KindForOf:
		return true
	}
	return false
}

// IsLiteralExpression reports literal-valued expressions usable in literal types.
func (k Kind) IsLiteralExpression() bool {
	switch k {
	case KindStringLiteral, KindNumericLiteral, KindTrueKeyword, KindFalseKeyword, KindNullKeyword:
		return true
	}
	return false
}

type payloadFamily uint8

const (
	famNone payloadFamily = iota
	famFile
	famIdent
	famLiteral
	famFunc
	famDecl
	famTypeParam
	famShape
	famList
	famCall
	famImport
	famIf
	famLoop
	famStmt
	famTry
	famExpr
)

func family(k Kind) payloadFamily {
	switch k {
	case KindSourceFile:
		return famFile
	case KindIdentifier:
		return famIdent
	case KindStringLiteral, KindNumericLiteral:
		return famLiteral
	case KindFunctionExpression, KindArrowFunction, KindFunctionDeclaration, KindMethodDeclaration,
		KindConstructor, KindMethodSignature, KindCallSignature, KindConstructSignature,
		KindFunctionType, KindConstructorType:
		return famFunc
	case KindPropertyAssignment, KindShorthandPropertyAssignment, KindVariableDeclaration,
		KindParameter, KindPropertyDeclaration, KindPropertySignature, KindEnumMember, KindIndexSignature:
		return famDecl
	case KindTypeParameter:
		return famTypeParam
	case KindClassDeclaration, KindClassExpression, KindInterfaceDeclaration,
		KindTypeAliasDeclaration, KindEnumDeclaration, KindModuleDeclaration:
		return famShape
	case KindObjectLiteral, KindArrayLiteral, KindBlock, KindVariableStatement, KindSwitch,
		KindCaseClause, KindDefaultClause, KindUnionType, KindIntersectionType, KindTupleType, KindTypeLiteral:
		return famList
	case KindCall, KindNew, KindTypeReference:
		return famCall
	case KindImportDeclaration:
		return famImport
	case KindIf:
		return famIf
	case KindWhile, KindDoWhile, KindFor, KindForOf:
		return famLoop
	case KindExpressionStatement, KindReturn, KindThrow, KindBreak, KindContinue, KindLabeled, KindCatchClause:
		return famStmt
	case KindTry:
		return famTry
	case KindPropertyAccess, KindElementAccess, KindParenthesized, KindPrefixUnary, KindTypeOf,
		KindBinary, KindConditional, KindAs, KindNonNull, KindQualifiedName, KindImportSpecifier,
		KindArrayType, KindTypeOperator, KindIndexedAccessType, KindConditionalType, KindInferType,
		KindMappedType, KindTypeQuery, KindTypePredicate, KindLiteralType, KindParenthesizedType:
		return famExpr
	}
	return famNone
}
