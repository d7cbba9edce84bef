package se

import (
	"strings"

	"github.com/benbjohnson/immutable"

	"github.com/dhamidi/symbex/java/semantic"
	"github.com/dhamidi/symbex/se/constraint"
)

// ThisSymbol is the binding the engine uses for the receiver of the
// method under analysis. Resolved symbols start at 1, so 0 is free.
var ThisSymbol = &semantic.Symbol{ID: 0, Name: "this", Kind: semantic.SymbolParameter, Final: true}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

type symbolComparer struct{}

func (symbolComparer) Compare(a, b *semantic.Symbol) int { return compareInt(a.ID, b.ID) }

type valueComparer struct{}

func (valueComparer) Compare(a, b *Value) int { return compareInt(a.id, b.id) }

// RelationKind is a recorded equality fact between two values.
type RelationKind int

const (
	RelationEqual RelationKind = iota
	RelationNotEqual
)

func (k RelationKind) String() string {
	if k == RelationEqual {
		return "="
	}
	return "≠"
}

type relationKey struct {
	lo, hi *Value
}

func newRelationKey(a, b *Value) relationKey {
	if a.id > b.id {
		a, b = b, a
	}
	return relationKey{lo: a, hi: b}
}

type relationComparer struct{}

func (relationComparer) Compare(a, b relationKey) int {
	if c := compareInt(a.lo.id, b.lo.id); c != 0 {
		return c
	}
	return compareInt(a.hi.id, b.hi.id)
}

// ProgramState is an immutable snapshot of the symbolic machine: a value
// stack, symbol bindings, the constraints held by each value and the
// equality relations between values. Every operation returns a new state
// and leaves the receiver untouched, so states can be shared freely
// between exploded nodes.
type ProgramState struct {
	registry    *constraint.Registry
	stack       *immutable.List[*Value]
	bindings    *immutable.SortedMap[*semantic.Symbol, *Value]
	constraints *immutable.SortedMap[*Value, constraint.Set]
	relations   *immutable.SortedMap[relationKey, RelationKind]
}

func newProgramState(registry *constraint.Registry) *ProgramState {
	return &ProgramState{
		registry:    registry,
		stack:       immutable.NewList[*Value](),
		bindings:    immutable.NewSortedMap[*semantic.Symbol, *Value](symbolComparer{}),
		constraints: immutable.NewSortedMap[*Value, constraint.Set](valueComparer{}),
		relations:   immutable.NewSortedMap[relationKey, RelationKind](relationComparer{}),
	}
}

func (s *ProgramState) clone() *ProgramState {
	c := *s
	return &c
}

func (s *ProgramState) Registry() *constraint.Registry {
	return s.registry
}

func (s *ProgramState) Push(v *Value) *ProgramState {
	next := s.clone()
	next.stack = s.stack.Append(v)
	return next
}

// Pop removes the top of the stack. The returned value is nil when the
// stack is empty.
func (s *ProgramState) Pop() (*ProgramState, *Value) {
	n := s.stack.Len()
	if n == 0 {
		return s, nil
	}
	next := s.clone()
	next.stack = s.stack.Slice(0, n-1)
	return next, s.stack.Get(n - 1)
}

// PopN removes n values and returns them in the order they were pushed.
// Missing values are nil.
func (s *ProgramState) PopN(n int) (*ProgramState, []*Value) {
	values := make([]*Value, n)
	for i := n - 1; i >= 0; i-- {
		s, values[i] = s.Pop()
	}
	return s, values
}

// Peek returns the value i positions below the top of the stack, or nil.
func (s *ProgramState) Peek(i int) *Value {
	n := s.stack.Len()
	if i < 0 || i >= n {
		return nil
	}
	return s.stack.Get(n - 1 - i)
}

func (s *ProgramState) StackSize() int {
	return s.stack.Len()
}

func (s *ProgramState) ClearStack() *ProgramState {
	if s.stack.Len() == 0 {
		return s
	}
	next := s.clone()
	next.stack = immutable.NewList[*Value]()
	return next
}

func (s *ProgramState) Bind(sym *semantic.Symbol, v *Value) *ProgramState {
	next := s.clone()
	next.bindings = s.bindings.Set(sym, v)
	return next
}

func (s *ProgramState) Unbind(sym *semantic.Symbol) *ProgramState {
	if _, ok := s.bindings.Get(sym); !ok {
		return s
	}
	next := s.clone()
	next.bindings = s.bindings.Delete(sym)
	return next
}

// UnbindWhere drops every binding whose symbol satisfies drop.
func (s *ProgramState) UnbindWhere(drop func(*semantic.Symbol) bool) *ProgramState {
	bindings := s.bindings
	itr := s.bindings.Iterator()
	for !itr.Done() {
		sym, _, _ := itr.Next()
		if drop(sym) {
			bindings = bindings.Delete(sym)
		}
	}
	if bindings == s.bindings {
		return s
	}
	next := s.clone()
	next.bindings = bindings
	return next
}

func (s *ProgramState) Binding(sym *semantic.Symbol) (*Value, bool) {
	if sym == nil {
		return nil, false
	}
	return s.bindings.Get(sym)
}

// Constraints returns the set held by v. Unknown values hold nothing.
func (s *ProgramState) Constraints(v *Value) constraint.Set {
	if v == nil {
		return constraint.Set{}
	}
	set, _ := s.constraints.Get(v)
	return set
}

// Constraint returns the constraint v holds in domain d, or nil.
func (s *ProgramState) Constraint(v *Value, d *constraint.Domain) constraint.Constraint {
	return s.Constraints(v).Get(d)
}

func (s *ProgramState) HasConstraint(v *Value, c constraint.Constraint) bool {
	return s.Constraints(v).Has(c)
}

// Relation returns the recorded relation between a and b, if any.
func (s *ProgramState) Relation(a, b *Value) (RelationKind, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	return s.relations.Get(newRelationKey(a, b))
}

// RemoveConstraint drops whatever v holds in domain d.
func (s *ProgramState) RemoveConstraint(v *Value, d *constraint.Domain) *ProgramState {
	held := s.Constraints(v)
	if held.Get(d) == nil {
		return s
	}
	return s.withConstraints(v, held.Without(d))
}

func (s *ProgramState) withConstraints(v *Value, set constraint.Set) *ProgramState {
	next := s.clone()
	if set.IsEmpty() {
		next.constraints = s.constraints.Delete(v)
	} else {
		next.constraints = s.constraints.Set(v, set)
	}
	return next
}

func (s *ProgramState) withRelation(a, b *Value, kind RelationKind) *ProgramState {
	next := s.clone()
	next.relations = s.relations.Set(newRelationKey(a, b), kind)
	return next
}

// eachRelation calls fn for every relation that involves v.
func (s *ProgramState) eachRelation(v *Value, fn func(other *Value, kind RelationKind)) {
	itr := s.relations.Iterator()
	for !itr.Done() {
		key, kind, _ := itr.Next()
		switch v {
		case key.lo:
			fn(key.hi, kind)
		case key.hi:
			fn(key.lo, kind)
		}
	}
}

// Cleanup forgets constraints and relations of values that can no longer
// be reached from the stack, the bindings or the constants.
func (s *ProgramState) Cleanup(constants ...*Value) *ProgramState {
	reachable := make(map[*Value]bool)
	var mark func(v *Value)
	mark = func(v *Value) {
		if v == nil || reachable[v] {
			return
		}
		reachable[v] = true
		for _, o := range v.operands {
			mark(o)
		}
	}
	for _, c := range constants {
		mark(c)
	}
	for i := 0; i < s.stack.Len(); i++ {
		mark(s.stack.Get(i))
	}
	bitr := s.bindings.Iterator()
	for !bitr.Done() {
		_, v, _ := bitr.Next()
		mark(v)
	}

	constraints := s.constraints
	citr := s.constraints.Iterator()
	for !citr.Done() {
		v, _, _ := citr.Next()
		if !reachable[v] {
			constraints = constraints.Delete(v)
		}
	}
	relations := s.relations
	ritr := s.relations.Iterator()
	for !ritr.Done() {
		key, _, _ := ritr.Next()
		if !reachable[key.lo] || !reachable[key.hi] {
			relations = relations.Delete(key)
		}
	}
	if constraints == s.constraints && relations == s.relations {
		return s
	}
	next := s.clone()
	next.constraints = constraints
	next.relations = relations
	return next
}

func (s *ProgramState) String() string {
	var sb strings.Builder
	sb.WriteString("stack: [")
	for i := 0; i < s.stack.Len(); i++ {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(s.stack.Get(i).String())
	}
	sb.WriteString("]\n")
	bitr := s.bindings.Iterator()
	for !bitr.Done() {
		sym, v, _ := bitr.Next()
		sb.WriteString("  " + sym.Name + " -> " + v.String() + "\n")
	}
	citr := s.constraints.Iterator()
	for !citr.Done() {
		v, set, _ := citr.Next()
		sb.WriteString("  " + v.String() + " " + set.String() + "\n")
	}
	ritr := s.relations.Iterator()
	for !ritr.Done() {
		key, kind, _ := ritr.Next()
		sb.WriteString("  " + key.lo.String() + " " + kind.String() + " " + key.hi.String() + "\n")
	}
	return sb.String()
}
