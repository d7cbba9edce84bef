package checks

import (
	"fmt"

	"github.com/dhamidi/symbex/java/parser"
	"github.com/dhamidi/symbex/se"
	"github.com/dhamidi/symbex/se/constraint"
)

const (
	fileOutputStream   = "java.io.FileOutputStream"
	objectOutputStream = "java.io.ObjectOutputStream"
	files              = "java.nio.file.Files"
	appendOption       = "java.nio.file.StandardOpenOption.APPEND"
)

// appendMode marks streams opened for appending. A value only ever needs
// to remember the latest place it was opened, so new marks replace old
// ones.
var appendMode = constraint.NewDomain("append-mode", constraint.Rules{Replace: true})

// appended remembers the expression that put a stream in append mode.
type appended struct {
	node *parser.Node
}

func (appended) Domain() *constraint.Domain { return appendMode }

func (c appended) String() string {
	return fmt.Sprintf("APPEND@%d:%d", c.node.Span.Start.Line, c.node.Span.Start.Column)
}

// ObjectOutputStreamAppend reports an ObjectOutputStream wrapped around a
// stream opened in append mode. Each ObjectOutputStream writes a header,
// so appending to an existing file corrupts it for readers.
type ObjectOutputStreamAppend struct {
	se.BaseDetector
}

func NewObjectOutputStreamAppend() se.Detector {
	return &ObjectOutputStreamAppend{}
}

func (d *ObjectOutputStreamAppend) Name() string { return "S2689" }

func (d *ObjectOutputStreamAppend) RegisterDomains(r *constraint.Registry) {
	r.Register(appendMode)
}

func (d *ObjectOutputStreamAppend) PostStatement(ctx *se.CheckerContext, n *parser.Node) []*se.ProgramState {
	info := ctx.Info()
	pre := ctx.PreviousState()
	s := ctx.State()

	switch {
	case isConstructorOf(info, n, fileOutputStream, 2):
		if !pre.HasConstraint(pre.Peek(0), constraint.True) {
			break
		}
		if next, ok := ctx.AddConstraintWithMessage(s.Peek(0), appended{node: n}, n, "FileOutputStream created here."); ok {
			return []*se.ProgramState{next}
		}
		return nil

	case isCallOf(info, n, files, "newOutputStream"):
		args := len(n.Arguments())
		for i := 0; i < args-1; i++ {
			mark := pre.Constraint(pre.Peek(i), appendMode)
			if mark == nil {
				continue
			}
			if next, ok := ctx.AddConstraint(s.Peek(0), mark); ok {
				return []*se.ProgramState{next}
			}
			return nil
		}

	case isStaticMember(info, n, appendOption):
		if next, ok := ctx.AddConstraint(s.Peek(0), appended{node: n}); ok {
			return []*se.ProgramState{next}
		}
		return nil
	}
	return []*se.ProgramState{s}
}

func (d *ObjectOutputStreamAppend) PreStatement(ctx *se.CheckerContext, n *parser.Node) []*se.ProgramState {
	s := ctx.State()
	if !isConstructorOf(ctx.Info(), n, objectOutputStream, 1) {
		return []*se.ProgramState{s}
	}
	if mark, ok := s.Constraint(s.Peek(0), appendMode).(appended); ok {
		ctx.Report(n.Arguments()[0], "Do not use a FileOutputStream in append mode.",
			se.Flow{{Node: mark.node, Message: "FileOutputStream created here."}})
	}
	return []*se.ProgramState{s}
}
