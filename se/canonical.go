package se

import (
	"bytes"
	"encoding/binary"

	"github.com/zeebo/blake3"
	"golang.org/x/exp/slices"
)

// canonical encodes the parts of s that matter for the rest of the
// exploration. Values are renamed in order of first appearance on the
// stack, then in the bindings, then among derivation operands, so two
// states that differ only in value identities encode identically.
func (s *ProgramState) canonical() []byte {
	numbers := make(map[*Value]int)
	var order []*Value
	number := func(v *Value) {
		if v == nil || v.IsConstant() {
			return
		}
		if _, ok := numbers[v]; !ok {
			numbers[v] = len(order)
			order = append(order, v)
		}
	}
	for i := 0; i < s.stack.Len(); i++ {
		number(s.stack.Get(i))
	}
	bitr := s.bindings.Iterator()
	for !bitr.Done() {
		_, v, _ := bitr.Next()
		number(v)
	}
	for i := 0; i < len(order); i++ {
		for _, o := range order[i].operands {
			number(o)
		}
	}

	var buf bytes.Buffer
	writeInt := func(n int) {
		var tmp [binary.MaxVarintLen64]byte
		buf.Write(tmp[:binary.PutVarint(tmp[:], int64(n))])
	}
	writeString := func(str string) {
		writeInt(len(str))
		buf.WriteString(str)
	}
	writeRef := func(v *Value) {
		switch {
		case v == nil:
			buf.WriteByte('_')
		case v.IsConstant():
			buf.WriteByte('c')
			writeString(v.constant)
		default:
			buf.WriteByte('#')
			writeInt(numbers[v])
		}
	}

	buf.WriteByte('S')
	writeInt(s.stack.Len())
	for i := 0; i < s.stack.Len(); i++ {
		writeRef(s.stack.Get(i))
	}

	buf.WriteByte('B')
	writeInt(s.bindings.Len())
	bitr = s.bindings.Iterator()
	for !bitr.Done() {
		sym, v, _ := bitr.Next()
		writeInt(sym.ID)
		writeRef(v)
	}

	buf.WriteByte('V')
	for _, v := range order {
		writeInt(int(v.op))
		writeString(v.operator)
		writeInt(len(v.operands))
		for _, o := range v.operands {
			writeRef(o)
		}
	}

	// Constants rank before renamed values so the order never depends on
	// value ids.
	rank := func(v *Value) int {
		if v.IsConstant() {
			return -1 - int(v.constant[0])
		}
		return numbers[v]
	}
	var held []*Value
	citr := s.constraints.Iterator()
	for !citr.Done() {
		v, _, _ := citr.Next()
		if s.known(numbers, v) {
			held = append(held, v)
		}
	}
	slices.SortFunc(held, func(a, b *Value) int {
		return compareInt(rank(a), rank(b))
	})
	buf.WriteByte('C')
	for _, v := range held {
		writeRef(v)
		set := s.Constraints(v)
		writeInt(set.Len())
		for _, c := range set.All() {
			writeInt(c.Domain().ID())
			writeString(c.String())
		}
	}

	type relation struct {
		a, b *Value
		kind RelationKind
	}
	var rels []relation
	ritr := s.relations.Iterator()
	for !ritr.Done() {
		key, kind, _ := ritr.Next()
		if !s.known(numbers, key.lo) || !s.known(numbers, key.hi) {
			continue
		}
		a, b := key.lo, key.hi
		if rank(a) > rank(b) {
			a, b = b, a
		}
		rels = append(rels, relation{a, b, kind})
	}
	slices.SortFunc(rels, func(x, y relation) int {
		if c := compareInt(rank(x.a), rank(y.a)); c != 0 {
			return c
		}
		return compareInt(rank(x.b), rank(y.b))
	})
	buf.WriteByte('R')
	for _, r := range rels {
		writeRef(r.a)
		writeRef(r.b)
		writeInt(int(r.kind))
	}
	return buf.Bytes()
}

func (s *ProgramState) known(numbers map[*Value]int, v *Value) bool {
	if v.IsConstant() {
		return true
	}
	_, ok := numbers[v]
	return ok
}

// fingerprint is the blake3 digest of the canonical encoding.
func fingerprint(canonical []byte) [32]byte {
	return blake3.Sum256(canonical)
}
