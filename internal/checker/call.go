package checker

import (
	"fmt"

	"stc/internal/ast"
	"stc/internal/diag"
	"stc/internal/types"
)

func (c *Checker) checkCallExpression(node ast.NodeID) types.TypeID {
	sig := c.resolvedSignature(node)
	if sig == c.anySignature() {
		return c.b.Any
	}
	return c.returnTypeOf(sig)
}

// resolvedSignature returns the signature a call or `new` expression binds
// to. Unresolvable calls bind to a signature returning the error type.
func (c *Checker) resolvedSignature(call ast.NodeID) types.SignatureID {
	l := c.nodeLink(call)
	switch l.sigState {
	case stateDone:
		return l.sig
	case stateResolving:
		return c.anySignature()
	}
	c.markResolving(&l.sigState)
	sig := c.resolveCall(call)
	if len(c.flowLoopStack) == 0 {
		l.sig, l.sigState = sig, stateDone
	} else {
		l.sigState = stateNone
	}
	return sig
}

// anySignature is bound by calls on `any` and by re-entrant resolution.
func (c *Checker) anySignature() types.SignatureID {
	if !c.anySig.IsValid() {
		c.anySig = c.types.InternSignature(types.Signature{
			Params: []types.Param{restParam("args", c.types.Array(c.b.Any))},
			Return: c.b.Any,
			Flags:  types.SigRest,
		})
	}
	return c.anySig
}

func (c *Checker) errorSignature() types.SignatureID {
	if !c.errorSig.IsValid() {
		c.errorSig = c.types.InternSignature(types.Signature{
			Params: []types.Param{restParam("args", c.types.Array(c.b.Error))},
			Return: c.b.Error,
			Flags:  types.SigRest,
		})
	}
	return c.errorSig
}

func (c *Checker) resolveCall(call ast.NodeID) types.SignatureID {
	cd, _ := c.nodes.Call(call)
	construct := c.kind(call) == ast.KindNew
	callee := c.checkNonNullObject(c.checkExpression(cd.Expr), cd.Expr)
	if c.isAnyLike(callee) {
		c.checkArgumentsOnly(cd.Args)
		return c.anySignature()
	}
	sigs := c.signaturesOf(c.apparentType(callee), construct)
	if len(sigs) == 0 {
		c.checkArgumentsOnly(cd.Args)
		if construct {
			c.error(cd.Expr, diag.CheckNotConstructable, "This expression is not constructable. Type '%s' has no construct signatures.", c.TypeToString(callee))
		} else {
			c.error(cd.Expr, diag.CheckNotCallable, "This expression is not callable. Type '%s' has no call signatures.", c.TypeToString(callee))
		}
		return c.errorSignature()
	}

	typeArgs := make([]types.TypeID, len(cd.TypeArgs))
	for i, ta := range cd.TypeArgs {
		typeArgs[i] = c.typeFromTypeNode(ta)
	}
	var fitting []types.SignatureID
	for _, s := range sigs {
		if c.hasCorrectArity(c.types.Signature(s), len(cd.Args)) && c.acceptsTypeArgs(c.types.Signature(s), len(typeArgs)) {
			fitting = append(fitting, s)
		}
	}
	if len(fitting) == 0 {
		c.checkArgumentsOnly(cd.Args)
		if len(typeArgs) > 0 && c.anyHasCorrectArity(sigs, len(cd.Args)) {
			s := c.types.Signature(sigs[0])
			c.error(call, diag.CheckWrongTypeArgCount, "Expected %d type arguments, but got %d.", len(s.TypeParams), len(typeArgs))
		} else {
			c.reportArityError(call, sigs, len(cd.Args))
		}
		return c.erasedSignature(sigs[0])
	}

	var last types.SignatureID
	for _, s := range fitting {
		last = c.candidateSignature(call, s, typeArgs, cd.Args)
		if c.argumentsAssignable(last, cd.Args, false) {
			return last
		}
	}
	if len(sigs) == 1 {
		c.argumentsAssignable(last, cd.Args, true)
		return last
	}
	c.error(cd.Expr, diag.CheckNoOverloadMatch, "No overload matches this call.")
	return last
}

// checkArgumentsOnly checks arguments of a call that binds no signature,
// so their own errors are still reported.
func (c *Checker) checkArgumentsOnly(args []ast.NodeID) {
	for _, a := range args {
		c.checkExpression(a)
	}
}

func (c *Checker) hasCorrectArity(s *types.Signature, n int) bool {
	return n >= s.MinArgs && (s.HasRest() || n <= len(s.Params))
}

func (c *Checker) anyHasCorrectArity(sigs []types.SignatureID, n int) bool {
	for _, s := range sigs {
		if c.hasCorrectArity(c.types.Signature(s), n) {
			return true
		}
	}
	return false
}

// acceptsTypeArgs reports whether n explicit type arguments fit the type
// parameters of s, trailing defaulted ones being optional.
func (c *Checker) acceptsTypeArgs(s *types.Signature, n int) bool {
	if n == 0 {
		return true
	}
	required := 0
	for i, tp := range s.TypeParams {
		if c.defaultOf(tp) == types.NoTypeID {
			required = i + 1
		}
	}
	return n >= required && n <= len(s.TypeParams)
}

func (c *Checker) reportArityError(call ast.NodeID, sigs []types.SignatureID, n int) {
	lo, hi := -1, 0
	rest := false
	for _, id := range sigs {
		s := c.types.Signature(id)
		if lo < 0 || s.MinArgs < lo {
			lo = s.MinArgs
		}
		hi = max(hi, len(s.Params))
		rest = rest || s.HasRest()
	}
	var expected string
	switch {
	case rest && n < lo:
		expected = fmt.Sprintf("at least %d", lo)
	case lo == hi:
		expected = fmt.Sprint(lo)
	default:
		expected = fmt.Sprintf("%d-%d", lo, hi)
	}
	c.error(call, diag.CheckArgumentCount, "Expected %s arguments, but got %d.", expected, n)
}

// candidateSignature instantiates a generic candidate with explicit or
// inferred type arguments.
func (c *Checker) candidateSignature(call ast.NodeID, sig types.SignatureID, typeArgs []types.TypeID, args []ast.NodeID) types.SignatureID {
	s := c.types.Signature(sig)
	if len(s.TypeParams) == 0 {
		return sig
	}
	if len(typeArgs) > 0 {
		filled := make([]types.TypeID, len(s.TypeParams))
		copy(filled, typeArgs)
		for i := len(typeArgs); i < len(filled); i++ {
			filled[i] = c.instantiate(c.defaultOf(s.TypeParams[i]), c.newMapper(s.TypeParams[:i], filled[:i]))
		}
		c.checkTypeArgumentConstraints(call, s.TypeParams, filled)
		return c.instantiateSignature(sig, c.newMapper(s.TypeParams, filled))
	}
	return c.inferCallSignature(call, sig, args)
}

func (c *Checker) checkTypeArgumentConstraints(call ast.NodeID, params, args []types.TypeID) {
	cd, _ := c.nodes.Call(call)
	m := c.newMapper(params, args)
	for i, tp := range params {
		cons := c.constraintOf(tp)
		if cons == types.NoTypeID || i >= len(cd.TypeArgs) {
			continue
		}
		bound := c.instantiate(cons, m)
		c.checkTypeRelatedTo(args[i], bound, RelationAssignable, cd.TypeArgs[i], diag.CheckConstraintUnsatisfied,
			"Type '%s' does not satisfy the constraint '%s'.")
	}
}

// inferCallSignature infers the type arguments of a generic candidate.
// Context-sensitive arguments (function expressions with unannotated
// parameters) are checked in a second pass, after the type parameters
// their contextual parameters mention have been fixed from the other
// arguments.
func (c *Checker) inferCallSignature(call ast.NodeID, sig types.SignatureID, args []ast.NodeID) types.SignatureID {
	s := c.types.Signature(sig)
	var flags inferenceFlags
	contextual := c.contextualType(call)
	if contextual != types.NoTypeID && c.containsLiteralLike(contextual) {
		flags |= inferNoWiden
	}
	ictx := c.newInferenceContext(s.TypeParams, flags)
	if contextual != types.NoTypeID {
		c.inferTypes(ictx, contextual, c.returnTypeOf(sig), priorityReturn)
	}
	var sensitive []int
	for i, arg := range args {
		pt, ok := c.paramTypeAt(s, i)
		if !ok {
			continue
		}
		if c.isContextSensitive(arg) {
			sensitive = append(sensitive, i)
			continue
		}
		at := c.checkExpressionWithContext(arg, pt)
		c.inferTypes(ictx, at, pt, priorityDirect)
	}
	for _, i := range sensitive {
		pt, _ := c.paramTypeAt(s, i)
		c.fixParamsOfCallbacks(ictx, pt)
		at := c.checkExpressionWithContext(args[i], c.instantiate(pt, c.contextMapper(ictx)))
		c.inferTypes(ictx, at, pt, priorityDirect)
	}
	c.trace("infer_call", c.TypeToString(c.returnTypeOf(sig)))
	return c.instantiateSignature(sig, c.newMapper(s.TypeParams, c.inferredTypes(ictx)))
}

// fixParamsOfCallbacks fixes the inference of every type parameter that
// occurs in a parameter of a call signature of t.
func (c *Checker) fixParamsOfCallbacks(ictx *inferenceContext, t types.TypeID) {
	for _, cb := range c.signaturesOf(c.apparentType(t), false) {
		for _, p := range c.types.Signature(cb).Params {
			for i, info := range ictx.infos {
				if info.inferred != types.NoTypeID {
					continue
				}
				probe := c.newMapper([]types.TypeID{info.param}, []types.TypeID{c.b.Unknown})
				if c.instantiate(p.Type, probe) != p.Type {
					c.inferredType(ictx, i)
				}
			}
		}
	}
}

// argumentsAssignable relates each argument to its parameter, stopping at
// the first failure.
func (c *Checker) argumentsAssignable(sig types.SignatureID, args []ast.NodeID, report bool) bool {
	s := c.types.Signature(sig)
	for i, arg := range args {
		pt, ok := c.paramTypeAt(s, i)
		if !ok {
			continue
		}
		at := c.checkExpressionWithContext(arg, pt)
		if !report {
			if !c.isTypeAssignableTo(at, pt) {
				return false
			}
			continue
		}
		if !c.checkTypeRelatedTo(at, pt, RelationAssignable, arg, diag.CheckArgumentNotAssignable,
			"Argument of type '%s' is not assignable to parameter of type '%s'.") {
			return false
		}
	}
	return true
}
