package se

import (
	"github.com/dhamidi/symbex/se/constraint"
)

// AddConstraint returns the state in which v also holds c, together with
// everything that follows from it. The boolean is false when the result
// would be contradictory, in which case the path is infeasible.
//
// Learning TRUE or FALSE about a derived value propagates to its operands,
// and any constraint flows one hop across the = and ≠ relations recorded
// for v.
func (s *ProgramState) AddConstraint(v *Value, c constraint.Constraint) (*ProgramState, bool) {
	return s.addConstraint(v, c, true)
}

func (s *ProgramState) addConstraint(v *Value, c constraint.Constraint, hop bool) (*ProgramState, bool) {
	if v == nil || c == nil {
		return s, true
	}
	held := s.Constraints(v)
	if held.Has(c) {
		return s, true
	}
	if !s.registry.Compatible(held, c) {
		return nil, false
	}
	next := s.withConstraints(v, held.With(c))

	ok := true
	if c.Domain() == constraint.Boolean {
		next, ok = next.deriveFrom(v, constraint.Equal(c, constraint.True))
		if !ok {
			return nil, false
		}
	}
	if !hop {
		return next, true
	}

	var related []*Value
	var kinds []RelationKind
	next.eachRelation(v, func(other *Value, kind RelationKind) {
		related = append(related, other)
		kinds = append(kinds, kind)
	})
	for i, other := range related {
		switch kinds[i] {
		case RelationEqual:
			next, ok = next.addConstraint(other, c, false)
		case RelationNotEqual:
			if complement, exact := c.Domain().Complement(c); exact {
				next, ok = next.addConstraint(other, complement, false)
			}
		}
		if !ok {
			return nil, false
		}
	}
	return next, true
}

// deriveFrom pushes the truth of a derived value down to its operands.
func (s *ProgramState) deriveFrom(v *Value, truth bool) (*ProgramState, bool) {
	switch v.op {
	case OpNot:
		return s.AddConstraint(v.operands[0], constraint.FromBool(!truth))
	case OpInstanceOf:
		if truth {
			return s.AddConstraint(v.operands[0], constraint.NotNull)
		}
	case OpAnd:
		if truth {
			return s.addAll(v.operands, constraint.True)
		}
	case OpOr:
		if !truth {
			return s.addAll(v.operands, constraint.False)
		}
	case OpRelational:
		switch v.operator {
		case "==":
			return s.relate(v.operands[0], v.operands[1], truth)
		case "!=":
			return s.relate(v.operands[0], v.operands[1], !truth)
		}
	}
	return s, true
}

func (s *ProgramState) addAll(values []*Value, c constraint.Constraint) (*ProgramState, bool) {
	ok := true
	for _, v := range values {
		if s, ok = s.AddConstraint(v, c); !ok {
			return nil, false
		}
	}
	return s, true
}

// relate records that a and b are equal or different and exchanges what
// is already known about them.
func (s *ProgramState) relate(a, b *Value, equal bool) (*ProgramState, bool) {
	if a == nil || b == nil {
		return s, true
	}
	if a == b {
		return s, equal
	}
	kind := RelationNotEqual
	if equal {
		kind = RelationEqual
	}
	if known, ok := s.Relation(a, b); ok {
		return s, known == kind
	}
	next := s.withRelation(a, b, kind)

	ok := true
	for _, pair := range [][2]*Value{{a, b}, {b, a}} {
		from, to := pair[0], pair[1]
		for _, c := range s.Constraints(from).All() {
			if equal {
				next, ok = next.addConstraint(to, c, false)
			} else if complement, exact := c.Domain().Complement(c); exact {
				next, ok = next.addConstraint(to, complement, false)
			}
			if !ok {
				return nil, false
			}
		}
	}
	return next, true
}
