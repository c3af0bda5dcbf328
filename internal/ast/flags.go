package ast

import "strings"

// NodeFlags are modifiers and syntactic markers attached to a node.
type NodeFlags uint32

const (
	FlagExport NodeFlags = 1 << iota
	FlagDeclare
	FlagConst // const variable statement / declaration list
	FlagLet   // let variable statement / declaration list
	FlagOptional
	FlagRest
	FlagReadonly
	FlagStatic
	FlagPrivate
	FlagAsserts // asserts x is T / asserts x
	FlagIn      // variance annotation on a type parameter
	FlagOut
	FlagPostfix // x++ / x--
	FlagMinusOptional
)

const FlagBlockScoped = FlagConst | FlagLet

var flagNames = []struct {
	flag NodeFlags
	name string
}{
	{FlagExport, "export"},
	{FlagDeclare, "declare"},
	{FlagConst, "const"},
	{FlagLet, "let"},
	{FlagOptional, "optional"},
	{FlagRest, "rest"},
	{FlagReadonly, "readonly"},
	{FlagStatic, "static"},
	{FlagPrivate, "private"},
	{FlagAsserts, "asserts"},
	{FlagIn, "in"},
	{FlagOut, "out"},
	{FlagPostfix, "postfix"},
	{FlagMinusOptional, "-optional"},
}

// ParseFlag maps a modifier name to its flag.
func ParseFlag(name string) (NodeFlags, bool) {
	for _, f := range flagNames {
		if f.name == name {
			return f.flag, true
		}
	}
	return 0, false
}

func (f NodeFlags) String() string {
	if f == 0 {
		return ""
	}
	var parts []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// Op is the operator of unary, binary and type-operator nodes.
type Op uint8

const (
	OpNone Op = iota
	OpPlus
	OpMinus
	OpStar
	OpSlash
	OpPercent
	OpLess
	OpGreater
	OpLessEq
	OpGreaterEq
	OpEqEq
	OpNotEq
	OpEqEqEq
	OpNotEqEq
	OpAndAnd
	OpOrOr
	OpQuestionQuestion
	OpAssign
	OpPlusAssign
	OpMinusAssign
	OpInstanceof
	OpIn
	OpNot
	OpIncrement
	OpDecrement
	OpKeyof
)

var opText = [...]string{
	OpNone:             "",
	OpPlus:             "+",
	OpMinus:            "-",
	OpStar:             "*",
	OpSlash:            "/",
	OpPercent:          "%",
	OpLess:             "<",
	OpGreater:          ">",
	OpLessEq:           "<=",
	OpGreaterEq:        ">=",
	OpEqEq:             "==",
	OpNotEq:            "!=",
	OpEqEqEq:           "===",
	OpNotEqEq:          "!==",
	OpAndAnd:           "&&",
	OpOrOr:             "||",
	OpQuestionQuestion: "??",
	OpAssign:           "=",
	OpPlusAssign:       "+=",
	OpMinusAssign:      "-=",
	OpInstanceof:       "instanceof",
	OpIn:               "in",
	OpNot:              "!",
	OpIncrement:        "++",
	OpDecrement:        "--",
	OpKeyof:            "keyof",
}

func (op Op) String() string {
	if int(op) < len(opText) {
		return opText[op]
	}
	return "?"
}

// ParseOp maps operator text to Op.
func ParseOp(s string) (Op, bool) {
	for i, t := range opText {
		if t == s && i != int(OpNone) {
			return Op(i), true
		}
	}
	return OpNone, false
}

// IsAssignment reports whether op writes its left operand.
func (op Op) IsAssignment() bool {
	switch op {
	case OpAssign, OpPlusAssign, OpMinusAssign:
		return true
	}
	return false
}

// IsEquality reports ==, !=, === and !==.
func (op Op) IsEquality() bool {
	switch op {
	case OpEqEq, OpNotEq, OpEqEqEq, OpNotEqEq:
		return true
	}
	return false
}

// IsArithmetic reports operators that require numeric operands.
func (op Op) IsArithmetic() bool {
	switch op {
	case OpMinus, OpStar, OpSlash, OpPercent, OpMinusAssign:
		return true
	}
	return false
}

// IsComparison reports relational operators.
func (op Op) IsComparison() bool {
	switch op {
	case OpLess, OpGreater, OpLessEq, OpGreaterEq:
		return true
	}
	return false
}
