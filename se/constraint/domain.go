// Package constraint defines the facts the symbolic execution engine can
// learn about a value.
//
// Constraints are grouped into domains. A value holds at most one
// constraint per domain, and the domain's rules decide whether a new
// constraint conflicts with the one already held.
package constraint

import (
	"sync/atomic"
)

// Constraint is an immutable fact about a symbolic value. Two constraints
// are equal when they share a domain and render to the same string.
type Constraint interface {
	Domain() *Domain
	String() string
}

// Equal compares constraints by domain and canonical form.
func Equal(a, b Constraint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Domain() == b.Domain() && a.String() == b.String()
}

// Rules customise how constraints of one domain combine.
type Rules struct {
	// Conflicts reports whether added contradicts held. When nil, any
	// different constraint conflicts.
	Conflicts func(held, added Constraint) bool
	// Complement returns the only other member of a two-valued domain,
	// or nil when c is not an exact member.
	Complement func(c Constraint) Constraint
	// Replace makes a new constraint overwrite the held one.
	Replace bool
}

var nextDomainID atomic.Int32

type Domain struct {
	id    int
	name  string
	rules Rules
}

// NewDomain creates a domain with a process-wide unique id. Domains are
// meant to be package-level variables.
func NewDomain(name string, rules Rules) *Domain {
	return &Domain{
		id:    int(nextDomainID.Add(1)),
		name:  name,
		rules: rules,
	}
}

func (d *Domain) ID() int {
	return d.id
}

func (d *Domain) Name() string {
	return d.name
}

func (d *Domain) String() string {
	return d.name
}

// Replaces reports whether a new constraint overwrites the held one.
func (d *Domain) Replaces() bool {
	return d.rules.Replace
}

func (d *Domain) Conflicts(held, added Constraint) bool {
	if d.rules.Replace || Equal(held, added) {
		return false
	}
	if d.rules.Conflicts != nil {
		return d.rules.Conflicts(held, added)
	}
	return true
}

// Complement returns the opposite exact member of c, if any.
func (d *Domain) Complement(c Constraint) (Constraint, bool) {
	if d.rules.Complement == nil {
		return nil, false
	}
	other := d.rules.Complement(c)
	return other, other != nil
}

// Exact reports whether c pins the value to a single member of a
// two-valued domain.
func (d *Domain) Exact(c Constraint) bool {
	_, ok := d.Complement(c)
	return ok
}

// Value returns a payload-free constraint of this domain named name.
func (d *Domain) Value(name string) Constraint {
	return &named{domain: d, name: name}
}

type named struct {
	domain *Domain
	name   string
}

func (c *named) Domain() *Domain { return c.domain }
func (c *named) String() string  { return c.name }
