package checks

import (
	"strings"

	"github.com/dhamidi/symbex/java/parser"
	"github.com/dhamidi/symbex/se"
)

var logLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// AvoidLoggingPasswords reports logger calls with an argument that
// mentions a password. A logger is any receiver whose text ends in "log".
type AvoidLoggingPasswords struct {
	se.BaseDetector
}

func NewAvoidLoggingPasswords() se.Detector {
	return &AvoidLoggingPasswords{}
}

func (d *AvoidLoggingPasswords) Name() string { return "AvoidLoggingPasswords" }

func (d *AvoidLoggingPasswords) PreStatement(ctx *se.CheckerContext, n *parser.Node) []*se.ProgramState {
	s := ctx.State()
	if n.Kind != parser.KindCallExpr || !logLevels[n.MethodName()] {
		return []*se.ProgramState{s}
	}
	receiver := n.Receiver()
	if receiver == nil || !strings.HasSuffix(receiver.Text(), "log") {
		return []*se.ProgramState{s}
	}
	for _, arg := range n.Arguments() {
		if strings.Contains(strings.ToLower(arg.Text()), "password") {
			ctx.Report(n, "Do not log passwords.")
			break
		}
	}
	return []*se.ProgramState{s}
}
