package diag

import (
	"fmt"
)

// Code is the numeric diagnostic identifier. Numbers follow the TypeScript
// catalogue so editors and golden files stay comparable.
type Code uint32

const (
	UnknownCode Code = 0

	// Binder: jump targets and declaration conflicts
	BindContinueOutsideLoop   Code = 1104
	BindBreakOutsideLoop      Code = 1105
	BindJumpAcrossFunction    Code = 1107
	BindDuplicateLabel        Code = 1114
	BindContinueTargetMissing Code = 1115
	BindBreakTargetMissing    Code = 1116
	BindDuplicateIdentifier   Code = 2300
	BindEnumMergeConflict     Code = 2567
	BindDuplicateFunctionImpl Code = 2393

	// Names and modules
	CheckCannotFindName        Code = 2304
	CheckNoExportedMember      Code = 2305
	CheckModuleNotFound        Code = 2307
	CheckCircularImportAlias   Code = 2303
	CheckCannotFindNamespace   Code = 2503
	CheckTypeUsedAsValue       Code = 2693
	CheckValueUsedAsType       Code = 2749
	CheckNotGeneric            Code = 2315
	CheckWrongTypeArgCount     Code = 2314
	CheckConstraintUnsatisfied Code = 2344

	// Relations
	CheckNotAssignable          Code = 2322
	CheckArgumentNotAssignable  Code = 2345
	CheckPropertyMissing        Code = 2339
	CheckExcessProperty         Code = 2353
	CheckConversionMistake      Code = 2352
	CheckNoOverlap              Code = 2367
	CheckIncorrectlyExtends     Code = 2430
	CheckClassIncorrectlyExtend Code = 2415
	CheckIncorrectlyImplements  Code = 2420
	CheckPropertyRequired       Code = 2741
	CheckPropertyOptional       Code = 2327
	CheckOverloadIncompatible   Code = 2394

	// Calls
	CheckNotCallable      Code = 2349
	CheckNotConstructable Code = 2351
	CheckArgumentCount    Code = 2554
	CheckNoOverloadMatch  Code = 2769

	// Circularity and limits
	CheckCircularBase        Code = 2310
	CheckCircularAlias       Code = 2456
	CheckCircularAnnotation  Code = 2502
	CheckExcessiveDepth      Code = 2589
	CheckCircularInitializer Code = 7022
	CheckCircularReturn      Code = 7023

	// Operators and statements
	CheckOperatorNotApplicable Code = 2365
	CheckArithmeticLeft        Code = 2362
	CheckArithmeticRight       Code = 2363
	CheckAssignToConst         Code = 2588
	CheckMissingReturnValue    Code = 2355
	CheckLacksEndingReturn     Code = 2366
	CheckNotIterable           Code = 2488
	CheckUsedBeforeDeclared    Code = 2448
	CheckPossiblyNullish       Code = 18049
	CheckPredicateParamMissing Code = 1225
	CheckDuplicateIndex        Code = 2374
	CheckImplicitAnyParam      Code = 7006
	CheckUnreachableCode       Code = 7027

	// Project / documents
	ProjDocumentInvalid Code = 6200
	ProjFileNotFound    Code = 6053
	ProjDuplicateModule Code = 6201
	ProjImportCycle     Code = 6202
)

var codeDescription = map[Code]string{
	UnknownCode:                 "Unknown error",
	BindContinueOutsideLoop:     "A 'continue' statement can only be used within an enclosing iteration statement",
	BindBreakOutsideLoop:        "A 'break' statement can only be used within an enclosing iteration or switch statement",
	BindJumpAcrossFunction:      "Jump target cannot cross function boundary",
	BindDuplicateLabel:          "Duplicate label",
	BindContinueTargetMissing:   "A 'continue' statement can only jump to a label of an enclosing iteration statement",
	BindBreakTargetMissing:      "A 'break' statement can only jump to a label of an enclosing statement",
	BindDuplicateIdentifier:     "Duplicate identifier",
	BindEnumMergeConflict:       "Enum declarations can only merge with namespace or other enum declarations",
	BindDuplicateFunctionImpl:   "Duplicate function implementation",
	CheckCannotFindName:         "Cannot find name",
	CheckNoExportedMember:       "Module has no exported member",
	CheckModuleNotFound:         "Cannot find module",
	CheckCircularImportAlias:    "Circular definition of import alias",
	CheckCannotFindNamespace:    "Cannot find namespace",
	CheckTypeUsedAsValue:        "Type used as a value",
	CheckValueUsedAsType:        "Value used as a type",
	CheckNotGeneric:             "Type is not generic",
	CheckWrongTypeArgCount:      "Wrong number of type arguments",
	CheckConstraintUnsatisfied:  "Type does not satisfy the constraint",
	CheckNotAssignable:          "Type is not assignable",
	CheckArgumentNotAssignable:  "Argument is not assignable to parameter",
	CheckPropertyMissing:        "Property does not exist on type",
	CheckExcessProperty:         "Object literal may only specify known properties",
	CheckConversionMistake:      "Conversion of type may be a mistake",
	CheckNoOverlap:              "Comparison appears to be unintentional",
	CheckIncorrectlyExtends:     "Interface incorrectly extends base",
	CheckClassIncorrectlyExtend: "Class incorrectly extends base class",
	CheckIncorrectlyImplements:  "Class incorrectly implements interface",
	CheckPropertyRequired:       "Property is missing but required",
	CheckPropertyOptional:       "Property is optional but required in target",
	CheckOverloadIncompatible:   "Overload signature is not compatible with its implementation",
	CheckNotCallable:            "This expression is not callable",
	CheckNotConstructable:       "This expression is not constructable",
	CheckArgumentCount:          "Wrong number of arguments",
	CheckNoOverloadMatch:        "No overload matches this call",
	CheckCircularBase:           "Type recursively references itself as a base type",
	CheckCircularAlias:          "Type alias circularly references itself",
	CheckCircularAnnotation:     "Referenced directly or indirectly in its own type annotation",
	CheckExcessiveDepth:         "Type instantiation is excessively deep and possibly infinite",
	CheckCircularInitializer:    "Variable implicitly has type 'any' because it is referenced in its own initializer",
	CheckCircularReturn:         "Function implicitly has return type 'any' because it is referenced in its own return expressions",
	CheckOperatorNotApplicable:  "Operator cannot be applied to types",
	CheckArithmeticLeft:         "Left operand of arithmetic must be number, bigint, any or enum",
	CheckArithmeticRight:        "Right operand of arithmetic must be number, bigint, any or enum",
	CheckAssignToConst:          "Cannot assign to a constant",
	CheckMissingReturnValue:     "Function must return a value",
	CheckLacksEndingReturn:      "Function lacks ending return statement",
	CheckNotIterable:            "Type is not an array type or a string type",
	CheckUsedBeforeDeclared:     "Block-scoped variable used before its declaration",
	CheckPossiblyNullish:        "Value is possibly 'null' or 'undefined'",
	CheckPredicateParamMissing:  "Cannot find parameter named in type predicate",
	CheckDuplicateIndex:         "Duplicate index signature",
	CheckImplicitAnyParam:       "Parameter implicitly has an 'any' type",
	CheckUnreachableCode:        "Unreachable code detected",
	ProjDocumentInvalid:         "Invalid AST document",
	ProjFileNotFound:            "File not found",
	ProjDuplicateModule:         "Duplicate module path",
	ProjImportCycle:             "Import cycle",
}

// Class groups codes by the pass that produces them.
type Class uint8

const (
	ClassUnknown Class = iota
	ClassBinder
	ClassChecker
	ClassProject
)

func (c Code) Class() Class {
	switch c {
	case BindContinueOutsideLoop, BindBreakOutsideLoop, BindJumpAcrossFunction, BindDuplicateLabel,
		BindContinueTargetMissing, BindBreakTargetMissing, BindDuplicateIdentifier, BindEnumMergeConflict,
		BindDuplicateFunctionImpl, CheckUnreachableCode:
		return ClassBinder
	case ProjDocumentInvalid, ProjFileNotFound, ProjDuplicateModule, ProjImportCycle:
		return ClassProject
	case UnknownCode:
		return ClassUnknown
	}
	return ClassChecker
}

// ID returns the stable external form, e.g. "TS2322".
func (c Code) ID() string {
	return fmt.Sprintf("TS%d", uint32(c))
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
