package cfg

import (
	"errors"
	"fmt"

	"github.com/dhamidi/symbex/java/parser"
)

var ErrMalformedControlFlow = errors.New("malformed control flow")

// MalformedControlFlowError reports a method body that cannot be lowered:
// a missing body or a jump without a target.
type MalformedControlFlowError struct {
	Node   *parser.Node
	Reason string
}

func (e *MalformedControlFlowError) Error() string {
	if e.Node != nil {
		pos := e.Node.Span.Start
		return fmt.Sprintf("%s:%d:%d: %s: %s", pos.File, pos.Line, pos.Column, ErrMalformedControlFlow, e.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrMalformedControlFlow, e.Reason)
}

func (e *MalformedControlFlowError) Is(target error) bool {
	return target == ErrMalformedControlFlow
}

func malformed(n *parser.Node, format string, args ...any) error {
	return &MalformedControlFlowError{Node: n, Reason: fmt.Sprintf(format, args...)}
}
