package constraint

import (
	"strings"

	"golang.org/x/exp/slices"
)

// Set holds at most one constraint per domain, sorted by domain id. The
// zero value is the empty set. Sets are never modified in place.
type Set struct {
	items []Constraint
}

func NewSet(cs ...Constraint) Set {
	var s Set
	for _, c := range cs {
		s = s.With(c)
	}
	return s
}

func (s Set) Len() int {
	return len(s.items)
}

func (s Set) IsEmpty() bool {
	return len(s.items) == 0
}

func (s Set) search(d *Domain) (int, bool) {
	return slices.BinarySearchFunc(s.items, d.id, func(c Constraint, id int) int {
		return c.Domain().id - id
	})
}

// Get returns the constraint held for d, or nil.
func (s Set) Get(d *Domain) Constraint {
	if i, ok := s.search(d); ok {
		return s.items[i]
	}
	return nil
}

// Has reports whether the set holds exactly c.
func (s Set) Has(c Constraint) bool {
	return Equal(s.Get(c.Domain()), c)
}

// With returns a set where c replaces any constraint of its domain.
func (s Set) With(c Constraint) Set {
	i, ok := s.search(c.Domain())
	items := slices.Clone(s.items)
	if ok {
		items[i] = c
		return Set{items: items}
	}
	return Set{items: slices.Insert(items, i, c)}
}

func (s Set) Without(d *Domain) Set {
	i, ok := s.search(d)
	if !ok {
		return s
	}
	items := slices.Clone(s.items)
	return Set{items: slices.Delete(items, i, i+1)}
}

// All returns the constraints in domain order. The slice must not be
// modified.
func (s Set) All() []Constraint {
	return s.items
}

func (s Set) Equal(other Set) bool {
	return slices.EqualFunc(s.items, other.items, Equal)
}

func (s Set) String() string {
	parts := make([]string, len(s.items))
	for i, c := range s.items {
		parts[i] = c.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
