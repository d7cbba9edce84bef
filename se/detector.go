package se

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/dhamidi/symbex/cfg"
	"github.com/dhamidi/symbex/java/parser"
	"github.com/dhamidi/symbex/java/semantic"
	"github.com/dhamidi/symbex/se/constraint"
)

// Detector is a rule plugged into the engine. Hooks map the state they
// are given to zero or more states: returning the state unchanged lets the
// path continue, returning nil prunes it.
type Detector interface {
	Name() string
	PreStatement(ctx *CheckerContext, n *parser.Node) []*ProgramState
	PostStatement(ctx *CheckerContext, n *parser.Node) []*ProgramState
}

// Initializer is called once per exploration, before the first step.
type Initializer interface {
	Init(g *cfg.CFG)
}

// BranchHandler observes every feasible edge of a Branch terminator.
type BranchHandler interface {
	OnBranch(ctx *CheckerContext, cond *parser.Node, outcome bool) []*ProgramState
}

type EndOfPathHandler interface {
	EndOfPath(ctx *CheckerContext)
}

type EndOfExplorationHandler interface {
	EndOfExploration(ctx *ExplorationContext)
}

// DomainRegistrar lets a detector add its own constraint domains.
type DomainRegistrar interface {
	RegisterDomains(r *constraint.Registry)
}

// BaseDetector implements the hooks as pass-throughs. Embed it and
// override what the rule needs.
type BaseDetector struct{}

func (BaseDetector) PreStatement(ctx *CheckerContext, _ *parser.Node) []*ProgramState {
	return []*ProgramState{ctx.State()}
}

func (BaseDetector) PostStatement(ctx *CheckerContext, _ *parser.Node) []*ProgramState {
	return []*ProgramState{ctx.State()}
}

// Finding is an issue reported by a detector. The report package turns it
// into a positioned issue.
type Finding struct {
	Rule    string
	Message string
	Node    *parser.Node
	Cost    int
	Flows   []Flow
	Method  string
}

// DetectorFault records a panic recovered from a detector hook.
type DetectorFault struct {
	Detector string
	Node     *parser.Node
	Panic    any
}

func (f DetectorFault) String() string {
	line := 0
	if f.Node != nil {
		line = f.Node.Span.Start.Line
	}
	return fmt.Sprintf("%s panicked at line %d: %v", f.Detector, line, f.Panic)
}

// CheckerContext is handed to detector hooks. It is only valid during the
// call it was passed to.
type CheckerContext struct {
	engine   *Engine
	detector Detector
	node     *Node
	state    *ProgramState
	previous *ProgramState
	pending  []FlowStep
	notes    map[*ProgramState][]FlowStep
}

// State is the state the hook is asked to transform.
func (c *CheckerContext) State() *ProgramState {
	return c.state
}

// PreviousState is the state of the exploded node being processed, before
// the current element or edge had any effect.
func (c *CheckerContext) PreviousState() *ProgramState {
	return c.previous
}

func (c *CheckerContext) Info() semantic.Info {
	return c.engine.info
}

func (c *CheckerContext) Graph() *cfg.CFG {
	return c.engine.graph
}

// Node is the exploded node being processed.
func (c *CheckerContext) Node() *Node {
	return c.node
}

func (c *CheckerContext) AddConstraint(v *Value, con constraint.Constraint) (*ProgramState, bool) {
	next, ok := c.state.AddConstraint(v, con)
	if !ok {
		c.engine.stats.Infeasible++
	}
	return next, ok
}

// AddConstraintWithMessage adds con and, when that is feasible, records
// message as a flow step at node for the returned state only.
func (c *CheckerContext) AddConstraintWithMessage(v *Value, con constraint.Constraint, node *parser.Node, message string) (*ProgramState, bool) {
	next, ok := c.AddConstraint(v, con)
	if ok {
		c.AnnotateState(next, node, message)
	}
	return next, ok
}

// Annotate attaches a flow step to every state this hook returns.
func (c *CheckerContext) Annotate(node *parser.Node, message string) {
	c.pending = append(c.pending, FlowStep{Node: node, Message: message})
}

// AnnotateState attaches a flow step to s only, for hooks that split the
// path and explain just one of the outcomes.
func (c *CheckerContext) AnnotateState(s *ProgramState, node *parser.Node, message string) {
	if c.notes == nil {
		c.notes = make(map[*ProgramState][]FlowStep)
	}
	c.notes[s] = append(c.notes[s], FlowStep{Node: node, Message: message})
}

func (c *CheckerContext) stepsFor(s *ProgramState) []FlowStep {
	notes := c.notes[s]
	if len(notes) == 0 {
		return c.pending
	}
	return append(slices.Clip(c.pending), notes...)
}

// Flow is the flow of the current path, including the steps annotated
// during this hook for the state it was given.
func (c *CheckerContext) Flow() Flow {
	flow := BuildFlow(c.node)
	return append(append(flow, c.pending...), c.notes[c.state]...)
}

// NewValue returns a fresh value with no constraints.
func (c *CheckerContext) NewValue() *Value {
	return c.engine.newValue()
}

// Report records a finding under the detector's name. Without explicit
// flows the flow of the current path is used.
func (c *CheckerContext) Report(node *parser.Node, message string, flows ...Flow) {
	c.ReportRule(c.detector.Name(), node, message, 0, flows...)
}

func (c *CheckerContext) ReportWithCost(node *parser.Node, message string, cost int, flows ...Flow) {
	c.ReportRule(c.detector.Name(), node, message, cost, flows...)
}

// ReportRule records a finding under an explicit rule key, for detectors
// that implement more than one rule.
func (c *CheckerContext) ReportRule(rule string, node *parser.Node, message string, cost int, flows ...Flow) {
	if len(flows) == 0 {
		if flow := c.Flow(); len(flow) > 0 {
			flows = []Flow{flow}
		}
	}
	c.engine.report(c.detector, rule, node, message, cost, flows)
}

// ExplorationContext is handed to EndOfExploration hooks.
type ExplorationContext struct {
	engine   *Engine
	detector Detector
}

func (c *ExplorationContext) Info() semantic.Info {
	return c.engine.info
}

func (c *ExplorationContext) Graph() *cfg.CFG {
	return c.engine.graph
}

// Truncated reports whether the exploration stopped at a ceiling.
func (c *ExplorationContext) Truncated() bool {
	return c.engine.truncated != ""
}

func (c *ExplorationContext) Stats() Stats {
	return c.engine.stats
}

func (c *ExplorationContext) Report(node *parser.Node, message string, flows ...Flow) {
	c.ReportRule(c.detector.Name(), node, message, flows...)
}

func (c *ExplorationContext) ReportRule(rule string, node *parser.Node, message string, flows ...Flow) {
	c.engine.report(c.detector, rule, node, message, 0, flows)
}
