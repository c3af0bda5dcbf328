package types

import (
	"slices"
)

// Union returns the normalized union of ids.
//
// Constituents are flattened and deduplicated by identity; any (or the error
// type) absorbs everything, unknown absorbs everything else, never is
// dropped. Literals are kept unless their primitive is also present, and a
// fresh literal is dropped when its regular twin is present. Without strict
// null checks null and undefined only survive on their own. The result is
// ordered by TypeID, so the order of ids does not matter.
func (in *Interner) Union(ids []TypeID) TypeID {
	var (
		set                                      []TypeID
		seen                                     = make(map[TypeID]struct{}, len(ids))
		hasAny, hasError, hasUnknown             bool
		hasString, hasNumber, hasVoid            bool
		hasNull, hasUndefined, hasLiteralOrUndef bool
	)
	var add func(id TypeID)
	add = func(id TypeID) {
		tt, ok := in.Lookup(id)
		if !ok {
			return
		}
		switch tt.Kind {
		case KindUnion:
			for _, m := range in.lists[tt.Payload] {
				add(m)
			}
			return
		case KindNever:
			return
		case KindAny:
			if tt.Flags&FlagError != 0 {
				hasError = true
			} else {
				hasAny = true
			}
			return
		case KindUnknown:
			hasUnknown = true
			return
		case KindNull, KindUndefined:
			if tt.Kind == KindNull {
				hasNull = true
			} else {
				hasUndefined = true
				hasLiteralOrUndef = true
			}
			if !in.StrictNullChecks {
				return
			}
		case KindString:
			hasString = true
		case KindNumber:
			hasNumber = true
		case KindVoid:
			hasVoid = true
		case KindStringLiteral, KindNumberLiteral, KindBooleanLiteral:
			hasLiteralOrUndef = true
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		set = append(set, id)
	}
	for _, id := range ids {
		add(id)
	}

	switch {
	case hasAny:
		return in.builtins.Any
	case hasError:
		return in.builtins.Error
	case hasUnknown:
		return in.builtins.Unknown
	}
	if hasLiteralOrUndef {
		set = slices.DeleteFunc(set, func(id TypeID) bool {
			tt := in.types[id]
			switch tt.Kind {
			case KindStringLiteral:
				if hasString && tt.Flags&FlagEnumLiteral == 0 {
					return true
				}
			case KindNumberLiteral:
				if hasNumber && tt.Flags&FlagEnumLiteral == 0 {
					return true
				}
			case KindUndefined:
				return hasVoid
			}
			if tt.Flags&FlagFresh != 0 && tt.Kind.IsLiteral() {
				_, regular := seen[in.literals[tt.Payload].Regular]
				return regular
			}
			return false
		})
	}
	switch len(set) {
	case 0:
		switch {
		case hasNull:
			return in.builtins.Null
		case hasUndefined:
			return in.builtins.Undefined
		}
		return in.builtins.Never
	case 1:
		return set[0]
	}
	slices.Sort(set)
	var flags Flags
	if len(set) == 2 && set[0] == in.builtins.False && set[1] == in.builtins.True {
		flags = FlagBoolean
	}
	return in.internList(KindUnion, flags, set)
}

// UnionOf is a variadic Union.
func (in *Interner) UnionOf(ids ...TypeID) TypeID {
	return in.Union(ids)
}

// Constituents returns the members of a union, or id itself.
func (in *Interner) Constituents(id TypeID) []TypeID {
	if in.Kind(id) == KindUnion {
		return in.Members(id)
	}
	return []TypeID{id}
}

// MapUnion applies fn to every constituent of id and unions the results.
func (in *Interner) MapUnion(id TypeID, fn func(TypeID) TypeID) TypeID {
	if in.Kind(id) != KindUnion {
		return fn(id)
	}
	members := in.Members(id)
	out := make([]TypeID, 0, len(members))
	changed := false
	for _, m := range members {
		r := fn(m)
		changed = changed || r != m
		out = append(out, r)
	}
	if !changed {
		return id
	}
	return in.Union(out)
}

// Filter keeps the constituents of id accepted by keep.
func (in *Interner) Filter(id TypeID, keep func(TypeID) bool) TypeID {
	if in.Kind(id) != KindUnion {
		if keep(id) {
			return id
		}
		return in.builtins.Never
	}
	members := in.Members(id)
	out := make([]TypeID, 0, len(members))
	for _, m := range members {
		if keep(m) {
			out = append(out, m)
		}
	}
	if len(out) == len(members) {
		return id
	}
	return in.Union(out)
}

// ContainsType reports whether id is or has the constituent m.
func (in *Interner) ContainsType(id, m TypeID) bool {
	if id == m {
		return true
	}
	return in.Kind(id) == KindUnion && slices.Contains(in.Members(id), m)
}

// domain groups types whose value sets are pairwise disjoint.
type domain uint8

const (
	domainNone domain = iota
	domainString
	domainNumber
	domainBoolean
	domainNull
	domainUndefined
	domainObject
)

func (in *Interner) domainOf(tt Type) domain {
	switch tt.Kind {
	case KindString, KindStringLiteral:
		return domainString
	case KindNumber, KindNumberLiteral:
		return domainNumber
	case KindBooleanLiteral:
		return domainBoolean
	case KindNull:
		return domainNull
	case KindUndefined, KindVoid:
		return domainUndefined
	case KindNonPrimitive:
		return domainObject
	}
	return domainNone
}

// IsUnit reports literal, null and undefined types: types with one value.
func (in *Interner) IsUnit(id TypeID) bool {
	k := in.Kind(id)
	return k.IsLiteral() || k == KindNull || k == KindUndefined
}

// Intersection returns the normalized intersection of ids.
//
// never wins over any, any absorbs the rest, unknown is dropped. Members
// from disjoint primitive domains, or two different unit types, produce
// never; a literal absorbs its own primitive. Unions distribute, so the
// result is a union of intersections. Insertion order is preserved; an
// empty intersection is unknown.
func (in *Interner) Intersection(ids []TypeID) TypeID {
	var (
		set            []TypeID
		seen           = make(map[TypeID]struct{}, len(ids))
		hasAny, hasErr bool
		hasNever       bool
		unionAt        = -1
	)
	var add func(id TypeID)
	add = func(id TypeID) {
		tt, ok := in.Lookup(id)
		if !ok {
			return
		}
		switch tt.Kind {
		case KindIntersection:
			for _, m := range in.lists[tt.Payload] {
				add(m)
			}
			return
		case KindNever:
			hasNever = true
			return
		case KindAny:
			if tt.Flags&FlagError != 0 {
				hasErr = true
			} else {
				hasAny = true
			}
			return
		case KindUnknown:
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		if tt.Kind == KindUnion && unionAt < 0 {
			unionAt = len(set)
		}
		set = append(set, id)
	}
	for _, id := range ids {
		add(id)
	}
	switch {
	case hasNever:
		return in.builtins.Never
	case hasAny:
		return in.builtins.Any
	case hasErr:
		return in.builtins.Error
	}

	var (
		prim         domain
		unit         TypeID
		primitives   int
		hasObject    bool
		hasNonPrimit bool
	)
	for _, id := range set {
		tt := in.types[id]
		d := in.domainOf(tt)
		switch d {
		case domainNone:
			hasObject = hasObject || tt.Kind.IsObjectLike()
			continue
		case domainObject:
			hasNonPrimit = true
			continue
		}
		if prim != domainNone && d != prim {
			return in.builtins.Never
		}
		prim = d
		if in.IsUnit(id) {
			if unit != NoTypeID && in.Regular(unit) != in.Regular(id) {
				return in.builtins.Never
			}
			unit = id
		}
		primitives++
	}
	if prim != domainNone && hasNonPrimit {
		return in.builtins.Never
	}
	if (prim == domainNull || prim == domainUndefined) && (hasObject || hasNonPrimit) {
		return in.builtins.Never
	}
	if unit != NoTypeID && primitives > 1 {
		set = slices.DeleteFunc(set, func(id TypeID) bool {
			k := in.types[id].Kind
			return k == KindString || k == KindNumber || (in.IsUnit(id) && id != unit)
		})
	}

	if unionAt >= 0 {
		return in.distribute(set, unionAt)
	}
	switch len(set) {
	case 0:
		return in.builtins.Unknown
	case 1:
		return set[0]
	}
	return in.internList(KindIntersection, 0, set)
}

// IntersectionOf is a variadic Intersection.
func (in *Interner) IntersectionOf(ids ...TypeID) TypeID {
	return in.Intersection(ids)
}

// distribute rewrites A & (B | C) as (A & B) | (A & C).
func (in *Interner) distribute(set []TypeID, at int) TypeID {
	members := in.Members(set[at])
	out := make([]TypeID, 0, len(members))
	for _, m := range members {
		parts := slices.Clone(set)
		parts[at] = m
		out = append(out, in.Intersection(parts))
	}
	return in.Union(out)
}

// BaseOfLiteral maps literal types to their primitive. Enum literals are
// returned unchanged; the checker widens them to their enum.
func (in *Interner) BaseOfLiteral(id TypeID) TypeID {
	tt, ok := in.Lookup(id)
	if !ok {
		return id
	}
	if tt.Flags&FlagEnumLiteral != 0 {
		return in.Regular(id)
	}
	switch tt.Kind {
	case KindStringLiteral:
		return in.builtins.String
	case KindNumberLiteral:
		return in.builtins.Number
	case KindBooleanLiteral:
		return in.builtins.Boolean
	case KindUnion:
		return in.MapUnion(id, in.BaseOfLiteral)
	}
	return id
}
