package constraint

import (
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("symbex.constraint")

type memberKey struct {
	domain *Domain
	name   string
}

func keyOf(c Constraint) memberKey {
	return memberKey{domain: c.Domain(), name: c.String()}
}

// Registry is the table of domains known to one engine, together with the
// cross-domain exclusions between their members.
type Registry struct {
	domains  []*Domain
	excludes map[memberKey]map[memberKey]bool
}

// NewRegistry returns a registry holding the built-in domains. NULL
// excludes both boolean members.
func NewRegistry() *Registry {
	r := &Registry{excludes: make(map[memberKey]map[memberKey]bool)}
	r.Register(Boolean, Nullness)
	r.Exclude(Null, True)
	r.Exclude(Null, False)
	return r
}

func (r *Registry) Register(domains ...*Domain) {
	for _, d := range domains {
		if r.Known(d) {
			continue
		}
		log.Debugf("registering domain %s (%d)", d.name, d.id)
		r.domains = append(r.domains, d)
	}
}

func (r *Registry) Known(d *Domain) bool {
	for _, known := range r.domains {
		if known == d {
			return true
		}
	}
	return false
}

func (r *Registry) Domains() []*Domain {
	return r.domains
}

// Exclude declares that no value may hold a and b at the same time.
func (r *Registry) Exclude(a, b Constraint) {
	r.exclude(keyOf(a), keyOf(b))
	r.exclude(keyOf(b), keyOf(a))
}

func (r *Registry) exclude(a, b memberKey) {
	if r.excludes[a] == nil {
		r.excludes[a] = make(map[memberKey]bool)
	}
	r.excludes[a][b] = true
}

func (r *Registry) Excludes(a, b Constraint) bool {
	return r.excludes[keyOf(a)][keyOf(b)]
}

// Compatible reports whether c can be added to a value holding held. Only
// pairs are checked.
func (r *Registry) Compatible(held Set, c Constraint) bool {
	d := c.Domain()
	if same := held.Get(d); same != nil && d.Conflicts(same, c) {
		return false
	}
	for _, other := range held.All() {
		if other.Domain() != d && r.Excludes(other, c) {
			return false
		}
	}
	return true
}
