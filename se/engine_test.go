package se

import (
	"context"
	"testing"

	"github.com/dhamidi/symbex/cfg"
	"github.com/dhamidi/symbex/java/parser"
	"github.com/dhamidi/symbex/java/semantic"
	"github.com/dhamidi/symbex/se/constraint"
)

func firstOfKind(root *parser.Node, kind parser.NodeKind) *parser.Node {
	var found *parser.Node
	parser.Walk(root, func(n *parser.Node) bool {
		if found == nil && n.Kind == kind {
			found = n
		}
		return found == nil
	})
	return found
}

// newTestEngine builds an engine for f(boolean c, int k, Object o) with
// the given body.
func newTestEngine(t *testing.T, body string, opts ...Option) *Engine {
	t.Helper()
	src := "class A { void f(boolean c, int k, Object o) {\n" + body + "\n} }"
	unit, err := parser.Parse([]byte(src), "A.java")
	if err != nil {
		t.Fatalf("Failed to parse source: %v", err)
	}
	model := semantic.Resolve(unit, "A.java")
	g, err := cfg.Build(firstOfKind(unit, parser.KindMethodDecl), model)
	if err != nil {
		t.Fatalf("Failed to build CFG: %v", err)
	}
	return NewEngine(g, model, append([]Option{WithMethodName("f")}, opts...)...)
}

func explore(t *testing.T, body string, detectors ...Detector) *Result {
	t.Helper()
	e := newTestEngine(t, body)
	res, err := e.Explore(context.Background(), e.InitialState(), detectors)
	if err != nil {
		t.Fatalf("Explore failed: %v", err)
	}
	return res
}

// recorder counts the calls the engine executes, by method name.
type recorder struct {
	BaseDetector
	calls map[string]int
}

func newRecorder() *recorder {
	return &recorder{calls: make(map[string]int)}
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) PreStatement(ctx *CheckerContext, n *parser.Node) []*ProgramState {
	if n.Kind == parser.KindCallExpr {
		r.calls[n.MethodName()]++
	}
	return []*ProgramState{ctx.State()}
}

func TestTermination(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"infinite while", "while (true) { k++; }"},
		{"nested loops", "for (int i = 0; i < k; i++) { for (int j = 0; j < k; j++) { a(); } }"},
		{"for with break", "for (;;) { if (c) break; a(); } b();"},
		{"do while", "int i = 0; do { i = i + 1; } while (i < k);"},
		{"loop over parameter", "while (o != null) { o = next(o); }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := explore(t, tt.body)
			if res.Truncated {
				t.Errorf("Expected exploration to finish, got truncated (%s) after %d steps", res.TruncatedReason, res.Stats.Steps)
			}
		})
	}
}

func TestBreakLeavesInfiniteLoop(t *testing.T) {
	r := newRecorder()
	explore(t, "for (;;) { if (c) break; a(); } b();", r)
	if r.calls["a"] == 0 || r.calls["b"] == 0 {
		t.Errorf("Expected both a() and b() to execute, got %v", r.calls)
	}
}

func TestStatesConvergeAtJoin(t *testing.T) {
	res := explore(t, "if (c) { } a();")
	if res.Stats.Duplicates == 0 {
		t.Errorf("Expected the two arms to merge at the join, got stats %+v", res.Stats)
	}
}

func TestBranchCoverage(t *testing.T) {
	r := newRecorder()
	explore(t, "if (c) { a(); } else { b(); }", r)
	if r.calls["a"] == 0 || r.calls["b"] == 0 {
		t.Errorf("Expected both arms to be explored, got %v", r.calls)
	}
}

func TestInfeasiblePathsArePruned(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		reached string
		pruned  string
	}{
		{"contradicting branch", "if (c) { if (!c) { a(); } else { b(); } }", "b", "a"},
		{"null checked twice", "Object x = null; if (x == null) { b(); } else { a(); }", "b", "a"},
		{"not null after check", "if (o != null) { if (o == null) { a(); } b(); }", "b", "a"},
		{"equality copies constraints", "Object x = null; if (o == x) { if (o != null) { a(); } b(); }", "b", "a"},
		{"instanceof implies not null", "if (o instanceof String) { if (o == null) { a(); } b(); }", "b", "a"},
		{"conjunction", "boolean d = c & k > 0; if (d) { if (!c) { a(); } b(); }", "b", "a"},
		{"dereference implies not null", "o.hashCode(); if (o == null) { a(); } b();", "b", "a"},
		{"constant condition", "if (false) { a(); } b();", "b", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRecorder()
			res := explore(t, tt.body, r)
			if r.calls[tt.pruned] != 0 {
				t.Errorf("Expected %s() to be unreachable, got %v", tt.pruned, r.calls)
			}
			if r.calls[tt.reached] == 0 {
				t.Errorf("Expected %s() to be reached, got %v", tt.reached, r.calls)
			}
			if res.Stats.Infeasible == 0 {
				t.Errorf("Expected infeasible paths to be counted, got %+v", res.Stats)
			}
		})
	}
}

func TestExceptionEdges(t *testing.T) {
	r := newRecorder()
	explore(t, "try { a(); } catch (Exception e) { b(); } finally { d(); }", r)
	for _, name := range []string{"a", "b", "d"} {
		if r.calls[name] == 0 {
			t.Errorf("Expected %s() to be reached, got %v", name, r.calls)
		}
	}
}

func TestThrowReachesHandler(t *testing.T) {
	r := newRecorder()
	explore(t, "try { if (c) throw new IllegalStateException(); } catch (RuntimeException e) { b(); }", r)
	if r.calls["b"] == 0 {
		t.Errorf("Expected the handler to run, got %v", r.calls)
	}
}

func TestLimits(t *testing.T) {
	e := newTestEngine(t, "while (k > 0) { k--; a(); }", WithLimits(Limits{MaxSteps: 3}))
	res, err := e.Explore(context.Background(), e.InitialState(), nil)
	if err != nil {
		t.Fatalf("Explore failed: %v", err)
	}
	if !res.Truncated || res.TruncatedReason == "" {
		t.Errorf("Expected a truncated result, got %+v", res)
	}
	if res.Stats.Steps != 3 {
		t.Errorf("Expected 3 steps, got %d", res.Stats.Steps)
	}
}

func TestCancelledBeforeFirstStep(t *testing.T) {
	e := newTestEngine(t, "a();")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Explore(ctx, e.InitialState(), nil); err == nil {
		t.Error("Expected an error for a cancelled context")
	}
}

type panicking struct {
	BaseDetector
}

func (panicking) Name() string { return "panicking" }

func (panicking) PreStatement(ctx *CheckerContext, n *parser.Node) []*ProgramState {
	if n.Kind == parser.KindCallExpr && n.MethodName() == "a" {
		panic("boom")
	}
	return []*ProgramState{ctx.State()}
}

func TestDetectorFaultsAreIsolated(t *testing.T) {
	r := newRecorder()
	res := explore(t, "a(); b();", panicking{}, r)
	if len(res.Faults) != 1 {
		t.Fatalf("Expected 1 fault, got %d", len(res.Faults))
	}
	if res.Faults[0].Detector != "panicking" || res.Faults[0].Panic != "boom" {
		t.Errorf("Unexpected fault %+v", res.Faults[0])
	}
	if r.calls["b"] == 0 {
		t.Error("Expected exploration to continue after the fault")
	}
}

// callReporter reports every call it sees, once per path.
type callReporter struct {
	BaseDetector
}

func (callReporter) Name() string { return "calls" }

func (callReporter) PreStatement(ctx *CheckerContext, n *parser.Node) []*ProgramState {
	if n.Kind == parser.KindCallExpr {
		ctx.Report(n, "called")
	}
	return []*ProgramState{ctx.State()}
}

func TestFindingsAreReportedOncePerNode(t *testing.T) {
	r := newRecorder()
	res := explore(t, "if (c) { o = null; } a(); o.hashCode();", callReporter{}, r)
	if r.calls["a"] != 2 {
		t.Fatalf("Expected a() to be reached on 2 paths, got %d", r.calls["a"])
	}
	if len(res.Findings) != 2 {
		t.Fatalf("Expected 2 findings, got %d", len(res.Findings))
	}
	f := res.Findings[0]
	if f.Rule != "calls" || f.Method != "f" || f.Node.MethodName() != "a" {
		t.Errorf("Unexpected finding %+v", f)
	}
}

// annotator marks first() and second() and reports at third().
type annotator struct {
	BaseDetector
}

func (annotator) Name() string { return "annotator" }

func (annotator) PostStatement(ctx *CheckerContext, n *parser.Node) []*ProgramState {
	if n.Kind != parser.KindCallExpr {
		return []*ProgramState{ctx.State()}
	}
	switch name := n.MethodName(); name {
	case "first", "second":
		ctx.Annotate(n, name+" here")
	case "third":
		ctx.Report(n, "third", BuildFlow(ctx.Node()))
	}
	return []*ProgramState{ctx.State()}
}

func TestFlowThroughEngine(t *testing.T) {
	res := explore(t, "first(); other(); second(); third();", annotator{})
	if len(res.Findings) != 1 {
		t.Fatalf("Expected 1 finding, got %d", len(res.Findings))
	}
	flows := res.Findings[0].Flows
	if len(flows) != 1 {
		t.Fatalf("Expected 1 flow, got %d", len(flows))
	}
	var got []string
	for _, step := range flows[0] {
		got = append(got, step.Node.MethodName()+": "+step.Message)
	}
	want := []string{"first: first here", "second: second here"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Expected flow %v, got %v", want, got)
	}
}

func TestInitialState(t *testing.T) {
	e := newTestEngine(t, "a();")
	s := e.InitialState()
	this, ok := s.Binding(ThisSymbol)
	if !ok {
		t.Fatal("Expected this to be bound")
	}
	if got := s.Constraints(this).String(); got != "{NOT_NULL}" {
		t.Errorf("Expected this to be {NOT_NULL}, got %s", got)
	}
	if got := s.Constraints(e.NullValue()).String(); got != "{NULL}" {
		t.Errorf("Expected null to be {NULL}, got %s", got)
	}
	if got := s.Constraints(e.TrueValue()).String(); got != "{TRUE}" {
		t.Errorf("Expected true to be {TRUE}, got %s", got)
	}
	if got := s.bindings.Len(); got != 4 {
		t.Errorf("Expected this and 3 parameters to be bound, got %d", got)
	}
}

// splitter forks at a(o) into a null and a non-null o, explaining only
// the null case, then reports b(o) on the null path and c(o) on the
// other.
type splitter struct {
	BaseDetector
}

func (splitter) Name() string { return "splitter" }

func (splitter) PreStatement(ctx *CheckerContext, n *parser.Node) []*ProgramState {
	s := ctx.State()
	if n.Kind != parser.KindCallExpr {
		return []*ProgramState{s}
	}
	o := s.Peek(0)
	switch n.MethodName() {
	case "a":
		var out []*ProgramState
		if null, ok := ctx.AddConstraintWithMessage(o, constraint.Null, n, "o is null here"); ok {
			out = append(out, null)
		}
		if notNull, ok := ctx.AddConstraint(o, constraint.NotNull); ok {
			out = append(out, notNull)
		}
		return out
	case "b":
		if s.HasConstraint(o, constraint.Null) {
			ctx.Report(n, "null")
		}
	case "c":
		if s.HasConstraint(o, constraint.NotNull) {
			ctx.Report(n, "not null")
		}
	}
	return []*ProgramState{s}
}

func TestAnnotationsFollowTheirState(t *testing.T) {
	res := explore(t, "a(o); b(o); c(o);", splitter{})
	if len(res.Findings) != 2 {
		t.Fatalf("Expected 2 findings, got %d: %+v", len(res.Findings), res.Findings)
	}
	for _, f := range res.Findings {
		switch f.Message {
		case "null":
			if len(f.Flows) != 1 || len(f.Flows[0]) != 1 || f.Flows[0][0].Message != "o is null here" {
				t.Errorf("Expected the null path to carry its step, got %+v", f.Flows)
			}
		case "not null":
			if len(f.Flows) != 0 {
				t.Errorf("Expected no flow on the non-null path, got %+v", f.Flows)
			}
		default:
			t.Errorf("Unexpected finding %+v", f)
		}
	}
}

func TestLoopVisitsAreCountedPerPath(t *testing.T) {
	r := newRecorder()
	res := explore(t, "if (c) { a(); } if (k > 0) { a(); } if (o == null) { a(); } boolean d = c; if (d) { b(c, k, o); }", r)
	if res.Stats.VisitCapped != 0 {
		t.Errorf("Expected no capped visits without loops, got %+v", res.Stats)
	}
	if r.calls["b"] == 0 {
		t.Errorf("Expected b() to be reached, got %v", r.calls)
	}

	res = explore(t, "while (k > 0) { k = k - 1; a(); }")
	if res.Truncated {
		t.Errorf("Expected the loop to finish, got truncated (%s)", res.TruncatedReason)
	}
}
