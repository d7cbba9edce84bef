package se

import (
	"strconv"
	"strings"
)

// Op says how a symbolic value was derived from other values.
type Op int

const (
	OpNone Op = iota
	OpNot
	OpRelational
	OpInstanceOf
	OpAnd
	OpOr
	OpXor
)

var opNames = map[Op]string{
	OpNone:       "none",
	OpNot:        "not",
	OpRelational: "relational",
	OpInstanceOf: "instanceof",
	OpAnd:        "and",
	OpOr:         "or",
	OpXor:        "xor",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "unknown"
}

// Value is an opaque symbolic value. Values are created by one engine and
// never change; what is known about them lives in ProgramState.
type Value struct {
	id       int
	op       Op
	operator string
	operands []*Value
	constant string
}

func (v *Value) ID() int {
	return v.id
}

func (v *Value) Op() Op {
	return v.op
}

// Operator is the Java operator of a relational value, such as "==".
func (v *Value) Operator() string {
	return v.operator
}

func (v *Value) Operands() []*Value {
	return v.operands
}

// IsConstant reports whether v is one of the engine's null, true or false
// values.
func (v *Value) IsConstant() bool {
	return v.constant != ""
}

func (v *Value) String() string {
	if v.constant != "" {
		return v.constant
	}
	ref := "#" + strconv.Itoa(v.id)
	switch v.op {
	case OpNot:
		return "!" + v.operands[0].String()
	case OpInstanceOf:
		return v.operands[0].String() + " instanceof"
	case OpRelational:
		return v.operands[0].String() + " " + v.operator + " " + v.operands[1].String()
	case OpAnd, OpOr, OpXor:
		parts := make([]string, len(v.operands))
		for i, o := range v.operands {
			parts[i] = o.String()
		}
		return "(" + strings.Join(parts, " "+v.operator+" ") + ")"
	}
	return ref
}

// isRelational reports whether op is a Java comparison operator.
func isRelational(op string) bool {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}
