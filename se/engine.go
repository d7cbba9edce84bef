// Package se explores the control flow graph of one method symbolically.
//
// The engine walks the graph with a worklist of exploded nodes, each a
// program point paired with an immutable ProgramState. Detectors observe
// and transform states through hooks around every element and edge, and
// report findings that carry the path annotations leading to them.
package se

import (
	"context"
	"time"

	"github.com/tliron/commonlog"
	"golang.org/x/exp/slices"

	"github.com/dhamidi/symbex/cfg"
	"github.com/dhamidi/symbex/java/parser"
	"github.com/dhamidi/symbex/java/semantic"
	"github.com/dhamidi/symbex/se/constraint"
)

// Limits bound one exploration. Zero fields take the default.
// MaxProgramPointVisits caps how often a single path may enter the same
// loop head; the other limits truncate the whole exploration.
type Limits struct {
	MaxSteps              int
	MaxNodes              int
	MaxDuration           time.Duration
	MaxProgramPointVisits int
}

func DefaultLimits() Limits {
	return Limits{
		MaxSteps:              16000,
		MaxNodes:              50000,
		MaxDuration:           5 * time.Second,
		MaxProgramPointVisits: 5,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxSteps <= 0 {
		l.MaxSteps = d.MaxSteps
	}
	if l.MaxNodes <= 0 {
		l.MaxNodes = d.MaxNodes
	}
	if l.MaxDuration <= 0 {
		l.MaxDuration = d.MaxDuration
	}
	if l.MaxProgramPointVisits <= 0 {
		l.MaxProgramPointVisits = d.MaxProgramPointVisits
	}
	return l
}

type Stats struct {
	Steps       int
	Nodes       int
	Duplicates  int
	Infeasible  int
	VisitCapped int
}

type Result struct {
	Findings        []Finding
	Truncated       bool
	TruncatedReason string
	Faults          []DetectorFault
	Stats           Stats
}

type Option func(*Engine)

func WithLimits(l Limits) Option {
	return func(e *Engine) { e.limits = l.withDefaults() }
}

func WithLogger(log commonlog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithRegistry replaces the constraint registry. Detectors that implement
// DomainRegistrar add their domains to it.
func WithRegistry(r *constraint.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithMethodName sets the method name recorded on findings.
func WithMethodName(name string) Option {
	return func(e *Engine) { e.method = name }
}

type visitKey struct {
	block int
	index int
	sum   [32]byte
}

type reportKey struct {
	detector string
	node     *parser.Node
}

// Engine explores one CFG. It is not safe for concurrent use; create one
// engine per method.
type Engine struct {
	graph    *cfg.CFG
	info     semantic.Info
	limits   Limits
	log      commonlog.Logger
	registry *constraint.Registry
	method   string
	liveness *cfg.Liveness

	nullValue  *Value
	trueValue  *Value
	falseValue *Value
	nextValue  int
	nextNode   int

	detectors []Detector
	worklist  worklist
	visited   map[visitKey][]string
	loopHeads map[int]bool
	reported  map[reportKey]bool
	findings  []Finding
	faults    []DetectorFault
	stats     Stats
	truncated string
}

func NewEngine(g *cfg.CFG, info semantic.Info, opts ...Option) *Engine {
	if info == nil {
		info = semantic.None
	}
	e := &Engine{
		graph:    g,
		info:     info,
		limits:   DefaultLimits(),
		log:      commonlog.GetLogger("symbex.se"),
		registry: constraint.NewRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.liveness = g.LiveVariables()
	e.loopHeads = make(map[int]bool)
	for _, id := range g.LoopHeads() {
		e.loopHeads[id] = true
	}
	e.nullValue = e.constant("null")
	e.trueValue = e.constant("true")
	e.falseValue = e.constant("false")
	return e
}

func (e *Engine) constant(name string) *Value {
	e.nextValue++
	return &Value{id: e.nextValue, constant: name}
}

func (e *Engine) newValue() *Value {
	e.nextValue++
	return &Value{id: e.nextValue}
}

func (e *Engine) derive(op Op, operator string, operands ...*Value) *Value {
	v := e.newValue()
	v.op = op
	v.operator = operator
	v.operands = operands
	return v
}

func (e *Engine) constants() []*Value {
	return []*Value{e.nullValue, e.trueValue, e.falseValue}
}

// NullValue returns the engine's null constant.
func (e *Engine) NullValue() *Value { return e.nullValue }

func (e *Engine) TrueValue() *Value { return e.trueValue }

func (e *Engine) FalseValue() *Value { return e.falseValue }

func (e *Engine) Registry() *constraint.Registry { return e.registry }

// InitialState returns the state at method entry: the constants hold
// their constraints, this is NOT_NULL and every parameter is bound to a
// fresh value.
func (e *Engine) InitialState() *ProgramState {
	s := newProgramState(e.registry)
	s, _ = s.AddConstraint(e.nullValue, constraint.Null)
	s, _ = s.AddConstraint(e.trueValue, constraint.True)
	s, _ = s.AddConstraint(e.falseValue, constraint.False)

	this := e.newValue()
	s = s.Bind(ThisSymbol, this)
	s, _ = s.AddConstraint(this, constraint.NotNull)
	for _, sym := range e.parameters() {
		s = s.Bind(sym, e.newValue())
	}
	return s
}

func (e *Engine) parameters() []*semantic.Symbol {
	m := e.graph.Method
	if m == nil {
		return nil
	}
	var params []*parser.Node
	if list := m.FirstChildOfKind(parser.KindParameters); list != nil {
		params = list.Children
	} else if m.Kind == parser.KindLambdaExpr && m.Child(0) != nil && m.Child(0).Kind == parser.KindIdentifier {
		params = m.Children[:1]
	}
	var syms []*semantic.Symbol
	for _, p := range params {
		if sym := e.info.SymbolOf(p); sym != nil {
			syms = append(syms, sym)
		}
	}
	return syms
}

// Explore runs the detectors over every feasible path of the graph. The
// error is non-nil only when ctx is already done; later cancellation
// truncates the result instead.
func (e *Engine) Explore(ctx context.Context, initial *ProgramState, detectors []Detector) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.detectors = detectors
	e.worklist = nil
	e.visited = make(map[visitKey][]string)
	e.reported = make(map[reportKey]bool)
	e.findings = nil
	e.faults = nil
	e.stats = Stats{}
	e.truncated = ""

	for _, d := range detectors {
		if r, ok := d.(DomainRegistrar); ok {
			r.RegisterDomains(e.registry)
		}
		if i, ok := d.(Initializer); ok {
			e.guard(d, e.graph.Method, func() { i.Init(e.graph) })
		}
	}

	start := time.Now()
	e.enter(e.graph.Entry, initial, nil, nil)
	for e.worklist.Len() > 0 {
		if reason := e.ceiling(ctx, start); reason != "" {
			e.truncated = reason
			break
		}
		n := e.worklist.pop()
		e.stats.Steps++
		e.step(n)
	}
	if e.truncated != "" {
		e.log.Debugf("%s: exploration truncated (%s) after %d steps", e.method, e.truncated, e.stats.Steps)
	}

	for _, d := range detectors {
		if h, ok := d.(EndOfExplorationHandler); ok {
			ec := &ExplorationContext{engine: e, detector: d}
			e.guard(d, e.graph.Method, func() { h.EndOfExploration(ec) })
		}
	}

	return &Result{
		Findings:        e.findings,
		Truncated:       e.truncated != "",
		TruncatedReason: e.truncated,
		Faults:          e.faults,
		Stats:           e.stats,
	}, nil
}

func (e *Engine) ceiling(ctx context.Context, start time.Time) string {
	switch {
	case e.stats.Steps >= e.limits.MaxSteps:
		return "step limit reached"
	case e.stats.Nodes >= e.limits.MaxNodes:
		return "node limit reached"
	case time.Since(start) > e.limits.MaxDuration:
		return "time limit reached"
	case ctx.Err() != nil:
		return "cancelled"
	}
	return ""
}

func (e *Engine) step(n *Node) {
	if n.Point.AtTerminator() {
		e.terminate(n)
		return
	}
	el := n.Point.Block.Elements[n.Point.Index]

	states := e.runHooks(n, el, n.State, []annotated{{state: n.State}},
		func(d Detector, ctx *CheckerContext) []*ProgramState { return d.PreStatement(ctx, el) })
	var executed []annotated
	for _, a := range states {
		if next, ok := e.execute(a.state, el); ok {
			executed = append(executed, annotated{state: next, steps: a.steps})
		}
	}
	executed = e.runHooks(n, el, n.State, executed,
		func(d Detector, ctx *CheckerContext) []*ProgramState { return d.PostStatement(ctx, el) })

	next := Point{Block: n.Point.Block, Index: n.Point.Index + 1}
	for _, a := range executed {
		e.enqueue(next, a.state, n, a.steps)
	}
}

// annotated is a state with the flow steps recorded on the way to it.
type annotated struct {
	state *ProgramState
	steps []FlowStep
}

type hook func(d Detector, ctx *CheckerContext) []*ProgramState

// runHooks threads states through every detector in order. Each output
// keeps the steps of the state it came from plus those its hook recorded
// for it. A detector that panics leaves its input state unchanged.
func (e *Engine) runHooks(n *Node, el *parser.Node, previous *ProgramState, states []annotated, fn hook) []annotated {
	for _, d := range e.detectors {
		var next []annotated
		for _, a := range states {
			ctx := &CheckerContext{engine: e, detector: d, node: n, state: a.state, previous: previous, pending: slices.Clip(a.steps)}
			var out []*ProgramState
			if !e.guard(d, el, func() { out = fn(d, ctx) }) {
				next = append(next, a)
				continue
			}
			for _, o := range out {
				if o != nil {
					next = append(next, annotated{state: o, steps: ctx.stepsFor(o)})
				}
			}
		}
		states = next
	}
	return states
}

func (e *Engine) guard(d Detector, n *parser.Node, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			fault := DetectorFault{Detector: d.Name(), Node: n, Panic: r}
			e.faults = append(e.faults, fault)
			e.log.Warningf("%s: %s", e.method, fault)
			ok = false
		}
	}()
	fn()
	return true
}

func (e *Engine) terminate(n *Node) {
	b := n.Point.Block
	s := n.State

	if b.EndsWithThrowingElement() {
		for _, handler := range b.ExceptionSuccessors {
			e.enter(handler, s.ClearStack().Push(e.newValue()), n, nil)
		}
	}

	switch t := b.Terminator; t.Kind {
	case cfg.Branch:
		e.branch(n, t.Node)
	case cfg.ShortCircuitAnd, cfg.ShortCircuitOr:
		rest, left := e.pop(s)
		evaluate := t.Kind == cfg.ShortCircuitAnd
		if next, ok := e.constrain(rest, left, constraint.FromBool(evaluate)); ok {
			e.enter(b.Successors[0], next, n, nil)
		}
		if next, ok := e.constrain(rest.Push(left), left, constraint.FromBool(!evaluate)); ok {
			e.enter(b.Successors[1], next, n, nil)
		}
	case cfg.Switch:
		rest, _ := e.pop(s)
		for _, succ := range b.Successors {
			e.enter(succ, rest, n, nil)
		}
	case cfg.Throw:
		rest, thrown := e.pop(s)
		rest = rest.ClearStack().Push(thrown)
		for _, succ := range b.Successors {
			e.enter(succ, rest, n, nil)
		}
	case cfg.Exit:
		e.endOfPath(n)
	default:
		for _, succ := range b.Successors {
			e.enter(succ, s, n, nil)
		}
	}
}

func (e *Engine) branch(n *Node, cond *parser.Node) {
	b := n.Point.Block
	rest, value := e.pop(n.State)
	for i, outcome := range []bool{true, false} {
		if i >= len(b.Successors) {
			break
		}
		next, ok := e.constrain(rest, value, constraint.FromBool(outcome))
		if !ok {
			continue
		}
		states := e.runHooks(n, cond, rest, []annotated{{state: next}},
			func(d Detector, ctx *CheckerContext) []*ProgramState {
				if h, ok := d.(BranchHandler); ok {
					return h.OnBranch(ctx, cond, outcome)
				}
				return []*ProgramState{ctx.State()}
			})
		for _, a := range states {
			e.enter(b.Successors[i], a.state, n, a.steps)
		}
	}
}

func (e *Engine) endOfPath(n *Node) {
	for _, d := range e.detectors {
		h, ok := d.(EndOfPathHandler)
		if !ok {
			continue
		}
		ctx := &CheckerContext{engine: e, detector: d, node: n, state: n.State, previous: n.State}
		e.guard(d, e.graph.Method, func() { h.EndOfPath(ctx) })
	}
}

func (e *Engine) constrain(s *ProgramState, v *Value, c constraint.Constraint) (*ProgramState, bool) {
	next, ok := s.AddConstraint(v, c)
	if !ok {
		e.stats.Infeasible++
	}
	return next, ok
}

// enter drops the bindings that are dead at the start of b, forgets what
// is known about unreachable values and enqueues the result.
func (e *Engine) enter(b *cfg.Block, s *ProgramState, parent *Node, annotations []FlowStep) {
	if b == nil || b.Dead {
		return
	}
	s = s.UnbindWhere(func(sym *semantic.Symbol) bool {
		return sym != ThisSymbol && sym.IsVariable() && !e.liveness.IsLiveIn(b, sym)
	})
	s = s.Cleanup(e.constants()...)
	e.enqueue(Point{Block: b, Index: 0}, s, parent, annotations)
}

func (e *Engine) enqueue(p Point, s *ProgramState, parent *Node, annotations []FlowStep) {
	canonical := s.canonical()
	key := visitKey{block: p.Block.ID, index: p.Index, sum: fingerprint(canonical)}
	for _, seen := range e.visited[key] {
		if seen == string(canonical) {
			e.stats.Duplicates++
			return
		}
	}
	var entries *loopEntry
	if parent != nil {
		entries = parent.entries
	}
	if p.Index == 0 && e.loopHeads[p.Block.ID] {
		count := entries.visits(p.Block.ID) + 1
		if count > e.limits.MaxProgramPointVisits {
			e.stats.VisitCapped++
			return
		}
		entries = &loopEntry{block: p.Block.ID, count: count, next: entries}
	}
	e.visited[key] = append(e.visited[key], string(canonical))

	e.nextNode++
	e.stats.Nodes++
	e.worklist.push(&Node{
		ID:          e.nextNode,
		Point:       p,
		State:       s,
		Parent:      parent,
		Annotations: annotations,
		entries:     entries,
		seq:         e.nextNode,
	})
}

func (e *Engine) report(d Detector, rule string, node *parser.Node, message string, cost int, flows []Flow) {
	key := reportKey{detector: d.Name(), node: node}
	if e.reported[key] {
		return
	}
	e.reported[key] = true
	e.log.Debugf("%s: %s at line %d: %s", e.method, rule, node.Span.Start.Line, message)
	e.findings = append(e.findings, Finding{
		Rule:    rule,
		Message: message,
		Node:    node,
		Cost:    cost,
		Flows:   flows,
		Method:  e.method,
	})
}
