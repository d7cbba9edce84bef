package checks

import (
	"github.com/dhamidi/symbex/cfg"
	"github.com/dhamidi/symbex/java/parser"
	"github.com/dhamidi/symbex/se"
)

const (
	unreachableBranch = "S2583"
	gratuitousOperand = "S2589"
)

type outcomes struct {
	taken [2]bool
}

func (o *outcomes) only() (bool, bool) {
	switch {
	case o.taken[0] && !o.taken[1]:
		return true, true
	case o.taken[1] && !o.taken[0]:
		return false, true
	}
	return false, false
}

// GratuitousCondition reports conditions that evaluate the same way on
// every explored path. A condition that guards a statement is reported
// as S2583; an operand of && or || as S2589.
type GratuitousCondition struct {
	se.BaseDetector

	conditions map[*parser.Node]*outcomes
	order      []*parser.Node
	operands   map[*parser.Node]bool
}

func NewGratuitousCondition() se.Detector {
	return &GratuitousCondition{}
}

func (d *GratuitousCondition) Name() string { return unreachableBranch }

func (d *GratuitousCondition) Init(g *cfg.CFG) {
	d.conditions = make(map[*parser.Node]*outcomes)
	d.order = nil
	d.operands = make(map[*parser.Node]bool)
	parser.Walk(g.Method, func(n *parser.Node) bool {
		if n.Kind == parser.KindBinaryExpr {
			switch n.Operator() {
			case "&&", "||":
				d.operands[parser.Unparen(n.Child(0))] = true
				d.operands[parser.Unparen(n.Child(2))] = true
			}
		}
		return true
	})
}

func (d *GratuitousCondition) OnBranch(ctx *se.CheckerContext, cond *parser.Node, outcome bool) []*se.ProgramState {
	o, ok := d.conditions[cond]
	if !ok {
		o = &outcomes{}
		d.conditions[cond] = o
		d.order = append(d.order, cond)
	}
	if outcome {
		o.taken[0] = true
	} else {
		o.taken[1] = true
	}
	return []*se.ProgramState{ctx.State()}
}

// EndOfExploration reports only when every path was explored: a path cut
// by a ceiling or the loop cap could have taken the other edge.
func (d *GratuitousCondition) EndOfExploration(ctx *se.ExplorationContext) {
	if ctx.Truncated() || ctx.Stats().VisitCapped > 0 {
		return
	}
	for _, cond := range d.order {
		value, only := d.conditions[cond].only()
		if !only {
			continue
		}
		if _, literal := ctx.Info().ConstantOf(cond); literal {
			continue
		}
		rule := unreachableBranch
		if d.operands[cond] {
			rule = gratuitousOperand
		}
		word := "false"
		if value {
			word = "true"
		}
		ctx.ReportRule(rule, cond, `Change this condition so that it does not always evaluate to "`+word+`"`)
	}
}
