package cfg

import (
	"errors"
	"strings"
	"testing"

	"github.com/dhamidi/symbex/java/parser"
	"github.com/dhamidi/symbex/java/semantic"
)

// buildFirstMethod parses a class and builds the graph of its first
// method declaration.
func buildFirstMethod(t *testing.T, src string) (*CFG, *semantic.Model) {
	t.Helper()
	unit, err := parser.Parse([]byte(src), "A.java")
	if err != nil {
		t.Fatalf("Failed to parse source: %v", err)
	}
	model := semantic.Resolve(unit, "A.java")
	method := firstOfKind(unit, parser.KindMethodDecl)
	if method == nil {
		t.Fatal("Expected a method declaration")
	}
	g, err := Build(method, model)
	if err != nil {
		t.Fatalf("Failed to build CFG: %v", err)
	}
	return g, model
}

func buildBody(t *testing.T, body string) *CFG {
	t.Helper()
	g, _ := buildFirstMethod(t, "class A { void f(boolean c, int k, Object o) {\n"+body+"\n} }")
	return g
}

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

// blockCalling returns the first live block evaluating a call to name.
func blockCalling(g *CFG, name string) *Block {
	for _, b := range g.LiveBlocks() {
		for _, e := range b.Elements {
			if e.Kind == parser.KindCallExpr && e.MethodName() == name {
				return b
			}
		}
	}
	return nil
}

func countCalls(blocks []*Block, name string) int {
	count := 0
	for _, b := range blocks {
		for _, e := range b.Elements {
			if e.Kind == parser.KindCallExpr && e.MethodName() == name {
				count++
			}
		}
	}
	return count
}

func elementKinds(b *Block) []parser.NodeKind {
	var kinds []parser.NodeKind
	for _, e := range b.Elements {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func TestSequentialStatementsShareOneBlock(t *testing.T) {
	g := buildBody(t, "int x = 1; foo(x);")

	if len(g.Blocks) != 2 {
		t.Fatalf("Expected entry and exit only, got:\n%s", g)
	}
	if g.Entry.ID != 0 || g.Exit.ID != 1 {
		t.Errorf("Expected entry B0 and exit B1, got %s and %s", g.Entry, g.Exit)
	}
	want := []parser.NodeKind{
		parser.KindLiteral,
		parser.KindVariableDeclarator,
		parser.KindIdentifier,
		parser.KindCallExpr,
		parser.KindExprStmt,
	}
	got := elementKinds(g.Entry)
	if len(got) != len(want) {
		t.Fatalf("Expected elements %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Element %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if g.Entry.Terminator.Kind != Jump || g.Entry.Successors[0] != g.Exit {
		t.Errorf("Expected entry to jump to exit, got %s", g.Entry.Terminator.Kind)
	}
	if len(g.Entry.ExceptionSuccessors) != 0 {
		t.Error("Expected no exception edges outside a try region")
	}
}

func TestConditions(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		trueCall  string
		falseCall string
	}{
		{"if else", "if (c) { a(); } else { b(); }", "a", "b"},
		{"negation swaps targets", "if (!c) { a(); } else { b(); }", "b", "a"},
		{"parentheses are transparent", "if (((c))) { a(); } else { b(); }", "a", "b"},
		{"double negation", "if (!(!c)) { a(); } else { b(); }", "a", "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildBody(t, tt.body)
			term := g.Entry.Terminator
			if term.Kind != Branch {
				t.Fatalf("Expected a branch, got %s", term.Kind)
			}
			if term.Node.Kind != parser.KindIdentifier {
				t.Errorf("Expected the branch to test the identifier, got %s", term.Node.Kind)
			}
			if got := g.Entry.Successors[0]; got != blockCalling(g, tt.trueCall) {
				t.Errorf("Expected true edge to call %s, got:\n%s", tt.trueCall, g)
			}
			if got := g.Entry.Successors[1]; got != blockCalling(g, tt.falseCall) {
				t.Errorf("Expected false edge to call %s, got:\n%s", tt.falseCall, g)
			}
		})
	}
}

func TestShortCircuitInCondition(t *testing.T) {
	g := buildBody(t, "boolean d = k > 0; if (c && d) { a(); } b();")

	first := g.Entry
	if first.Terminator.Kind != Branch {
		t.Fatalf("Expected a branch on c, got %s", first.Terminator.Kind)
	}
	second := first.Successors[0]
	if second.Terminator.Kind != Branch || second.Terminator.Node.TokenLiteral() != "d" {
		t.Fatalf("Expected the true edge of c to test d, got:\n%s", g)
	}
	after := blockCalling(g, "b")
	if first.Successors[1] != after || second.Successors[1] != after {
		t.Errorf("Expected both false edges to skip the body, got:\n%s", g)
	}
	if second.Successors[0] != blockCalling(g, "a") {
		t.Errorf("Expected the true edge of d to run the body, got:\n%s", g)
	}
}

func TestShortCircuitInValuePosition(t *testing.T) {
	g := buildBody(t, "boolean d = c || k > 0;")

	term := g.Entry.Terminator
	if term.Kind != ShortCircuitOr {
		t.Fatalf("Expected a short-circuit or, got %s", term.Kind)
	}
	if term.Node.Kind != parser.KindBinaryExpr || term.Node.Operator() != "||" {
		t.Errorf("Expected the terminator to carry the binary expression")
	}
	right, join := g.Entry.Successors[0], g.Entry.Successors[1]
	if right.Successors[0] != join {
		t.Errorf("Expected the right operand to flow into the join")
	}
	if len(join.Predecessors) != 2 {
		t.Errorf("Expected 2 predecessors of the join, got %d", len(join.Predecessors))
	}
	kinds := elementKinds(join)
	if len(kinds) == 0 || kinds[0] != parser.KindVariableDeclarator {
		t.Errorf("Expected the join to bind d, got %v", kinds)
	}
}

func TestTernaryInValuePosition(t *testing.T) {
	g := buildBody(t, "int y = c ? 1 : 2;")

	if g.Entry.Terminator.Kind != Branch {
		t.Fatalf("Expected a branch, got %s", g.Entry.Terminator.Kind)
	}
	join := g.Entry.Successors[0].Successors[0]
	if g.Entry.Successors[1].Successors[0] != join {
		t.Fatalf("Expected both arms to meet, got:\n%s", g)
	}
	if kinds := elementKinds(join); len(kinds) != 1 || kinds[0] != parser.KindVariableDeclarator {
		t.Errorf("Expected the join to bind y, got %v", kinds)
	}
}

func TestLoops(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		loops int
	}{
		{"while", "while (c) { a(); } b();", 1},
		{"do while", "do { a(); } while (c); b();", 1},
		{"for", "for (int i = 0; i < k; i++) { a(); } b();", 1},
		{"enhanced for", "for (String s : list()) { a(); } b();", 1},
		{"nested", "for (int i = 0; i < k; i++) { while (c) { a(); } } b();", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildBody(t, tt.body)
			if got := len(g.LoopHeads()); got != tt.loops {
				t.Errorf("Expected %d loop heads, got %d:\n%s", tt.loops, got, g)
			}
			if got := len(g.BackEdges()); got != tt.loops {
				t.Errorf("Expected %d back edges, got %d", tt.loops, got)
			}
			if got := len(g.Cycles()); got < 1 {
				t.Errorf("Expected at least one cycle, got %d", got)
			}
			after := blockCalling(g, "b")
			if after == nil || after.Dead {
				t.Errorf("Expected code after the loop to be reachable:\n%s", g)
			}
		})
	}
}

func TestForWithoutConditionExitsOnlyThroughBreak(t *testing.T) {
	g := buildBody(t, "for (;;) { a(); } b();")
	if blockCalling(g, "b") != nil {
		t.Errorf("Expected code after an endless loop to be dead:\n%s", g)
	}
	if countCalls(g.Blocks, "b") != 1 {
		t.Error("Expected the dead call to be kept in the graph")
	}

	g = buildBody(t, "for (;;) { if (c) break; a(); } b();")
	if blockCalling(g, "b") == nil {
		t.Errorf("Expected break to reach the code after the loop:\n%s", g)
	}
}

func TestEnhancedForBindsAtBodyStart(t *testing.T) {
	g := buildBody(t, "for (String s : list()) { use(s); }")

	var head *Block
	for _, b := range g.LiveBlocks() {
		if b.Terminator.Kind == ForEach {
			head = b
		}
	}
	if head == nil {
		t.Fatalf("Expected a ForEach terminator:\n%s", g)
	}
	if len(head.Successors) != 2 {
		t.Fatalf("Expected body and exit successors, got %d", len(head.Successors))
	}
	body := head.Successors[0]
	if len(body.Elements) == 0 || body.Elements[0].Kind != parser.KindVariableDeclarator {
		t.Errorf("Expected the body to start with the loop variable, got %v", elementKinds(body))
	}
	if head.Successors[1].Terminator.Kind != Jump || head.Successors[1].Successors[0] != g.Exit {
		t.Errorf("Expected the exit edge to leave the method")
	}
}

func TestDeadCodeIsNumberedLast(t *testing.T) {
	g := buildBody(t, "if (c) { return; } else { throw new IllegalStateException(); } a();")

	if blockCalling(g, "a") != nil {
		t.Fatalf("Expected a() to be unreachable:\n%s", g)
	}
	seenDead := false
	for _, b := range g.Blocks {
		if b.Dead {
			seenDead = true
			continue
		}
		if seenDead {
			t.Errorf("Live block %s numbered after a dead block", b)
		}
	}
	if !seenDead {
		t.Error("Expected a dead block")
	}
	for i, b := range g.Blocks {
		if b.ID != i {
			t.Errorf("Expected block at %d to have ID %d, got %d", i, i, b.ID)
		}
	}
}

func TestSwitch(t *testing.T) {
	t.Run("fall through with default", func(t *testing.T) {
		g := buildBody(t, "switch (k) { case 1: a(); case 2: b(); break; default: d(); } e();")
		term := g.Entry.Terminator
		if term.Kind != Switch {
			t.Fatalf("Expected a switch terminator, got %s", term.Kind)
		}
		succs := g.Entry.Successors
		if len(succs) != 3 {
			t.Fatalf("Expected 3 successors, got %d", len(succs))
		}
		if succs[0] != blockCalling(g, "a") || succs[1] != blockCalling(g, "b") || succs[2] != blockCalling(g, "d") {
			t.Errorf("Expected successors in case order, got:\n%s", g)
		}
		if succs[0].Successors[0] != succs[1] {
			t.Error("Expected case 1 to fall through into case 2")
		}
		if succs[1].Successors[0] != blockCalling(g, "e") {
			t.Error("Expected break to leave the switch")
		}
	})

	t.Run("arrow cases without default", func(t *testing.T) {
		g := buildBody(t, "switch (k) { case 1 -> a(); case 2 -> b(); } e();")
		succs := g.Entry.Successors
		if len(succs) != 3 {
			t.Fatalf("Expected 2 cases and a no-match edge, got %d", len(succs))
		}
		after := blockCalling(g, "e")
		if succs[2] != after {
			t.Error("Expected the no-match edge to skip the switch")
		}
		for i := 0; i < 2; i++ {
			if succs[i].Successors[0] != after {
				t.Errorf("Expected arrow case %d not to fall through", i)
			}
		}
	})

	t.Run("switch expression", func(t *testing.T) {
		g := buildBody(t, "int v = switch (k) { case 1 -> 10; default -> { yield 20; } };")
		var join *Block
		for _, b := range g.LiveBlocks() {
			if len(b.Elements) > 0 && b.Elements[0].Kind == parser.KindVariableDeclarator {
				join = b
			}
		}
		if join == nil {
			t.Fatalf("Expected a join binding v:\n%s", g)
		}
		if len(join.Predecessors) != 2 {
			t.Errorf("Expected both arms to reach the join, got %d predecessors", len(join.Predecessors))
		}
	})
}

func TestTryCatchExceptionEdges(t *testing.T) {
	g, _ := buildFirstMethod(t, `import java.io.IOException;
class A {
    void f() {
        try {
            a();
            b();
        } catch (IOException e) {
            c();
        }
        d();
    }
}`)

	handler := blockCalling(g, "c")
	if handler == nil || handler.Elements[0].Kind != parser.KindCatchClause {
		t.Fatalf("Expected the handler to start with the catch clause:\n%s", g)
	}
	for _, name := range []string{"a", "b"} {
		b := blockCalling(g, name)
		if !b.EndsWithThrowingElement() {
			t.Errorf("Expected %s() to end its block", name)
		}
		if len(b.ExceptionSuccessors) != 2 || b.ExceptionSuccessors[0] != handler || b.ExceptionSuccessors[1] != g.Exit {
			t.Errorf("Expected %s() to throw to the handler then the exit, got %v", name, b.ExceptionSuccessors)
		}
	}
	if b := blockCalling(g, "d"); len(b.ExceptionSuccessors) != 0 {
		t.Error("Expected no exception edges after the try statement")
	}
	if b := blockCalling(g, "c"); len(b.ExceptionSuccessors) != 0 {
		t.Error("Expected no exception edges inside the catch body")
	}

	if len(g.Handlers) != 1 {
		t.Fatalf("Expected 1 handler, got %d", len(g.Handlers))
	}
	h := g.Handlers[0]
	if h.Handler != handler {
		t.Error("Expected the handler entry to be the catch block")
	}
	if len(h.CatchTypes) != 1 || h.CatchTypes[0] != "IOException" {
		t.Errorf("Expected catch type IOException, got %v", h.CatchTypes)
	}
	if len(h.Covered) != 2 {
		t.Errorf("Expected 2 covered blocks, got %d", len(h.Covered))
	}
}

func TestFinallyIsDuplicated(t *testing.T) {
	g := buildBody(t, "try { if (c) return; a(); } finally { fin(); }")

	if got := countCalls(g.LiveBlocks(), "fin"); got != 3 {
		t.Fatalf("Expected normal, exceptional and return copies of finally, got %d:\n%s", got, g)
	}

	a := blockCalling(g, "a")
	if len(a.ExceptionSuccessors) != 1 {
		t.Fatalf("Expected a() to propagate only into finally, got %v", a.ExceptionSuccessors)
	}
	exceptional := a.ExceptionSuccessors[0]
	if countCalls([]*Block{exceptional}, "fin") != 1 {
		t.Errorf("Expected the exceptional copy to run fin()")
	}
	if exceptional.Terminator.Kind != Throw || exceptional.Successors[0] != g.Exit {
		t.Errorf("Expected the exceptional copy to rethrow to the exit, got %s", exceptional.Terminator.Kind)
	}

	returns := 0
	for _, b := range g.LiveBlocks() {
		if b.Terminator.Kind == Return {
			returns++
			if countCalls([]*Block{b}, "fin") != 1 {
				t.Errorf("Expected the return to run the finally copy first")
			}
		}
	}
	if returns != 1 {
		t.Errorf("Expected 1 return terminator, got %d", returns)
	}
}

func TestNestedFinallyRunsInnermostFirst(t *testing.T) {
	g := buildBody(t, "try { try { return; } finally { inner(); } } finally { outer(); }")

	var start *Block
	for _, b := range g.LiveBlocks() {
		if len(b.Elements) > 0 && b.Elements[0].Kind == parser.KindReturnStmt {
			start = b
		}
	}
	if start == nil {
		t.Fatalf("Expected a block starting with the return statement:\n%s", g)
	}

	// The inner copy is still covered by the outer try, so the path may
	// span several blocks.
	var calls []string
	b := start
	for steps := 0; steps < len(g.Blocks); steps++ {
		for _, e := range b.Elements {
			if e.Kind == parser.KindCallExpr {
				calls = append(calls, e.MethodName())
			}
		}
		if b.Terminator.Kind == Return {
			break
		}
		b = b.Successors[0]
	}
	if b.Terminator.Kind != Return {
		t.Fatalf("Expected the path to end in a return:\n%s", g)
	}
	if strings.Join(calls, ",") != "inner,outer" {
		t.Errorf("Expected inner then outer finally, got %v", calls)
	}
	if start.ExceptionSuccessors == nil {
		t.Error("Expected the inner finally copy to stay covered by the outer try")
	}
}

func TestTryWithResourcesIsCovered(t *testing.T) {
	g := buildBody(t, "try (FileInputStream in = new FileInputStream(\"x\")) { a(); } catch (Exception e) { b(); }")

	for _, b := range g.LiveBlocks() {
		for _, e := range b.Elements {
			if e.Kind == parser.KindNewExpr && len(b.ExceptionSuccessors) == 0 {
				t.Errorf("Expected the resource creation to be covered by the handler")
			}
		}
	}
}

func TestThrowAndAssert(t *testing.T) {
	g := buildBody(t, "assert o != null : \"missing\"; throw new IllegalStateException();")

	throws := 0
	for _, b := range g.LiveBlocks() {
		if b.Terminator.Kind != Throw {
			continue
		}
		throws++
		if len(b.Successors) != 1 || b.Successors[0] != g.Exit {
			t.Errorf("Expected %s to throw to the exit", b)
		}
		last := b.Elements[len(b.Elements)-1]
		if last.Kind != parser.KindAssertStmt && last.Kind != parser.KindThrowStmt {
			t.Errorf("Expected the throwing statement last, got %s", last.Kind)
		}
	}
	if throws != 2 {
		t.Errorf("Expected 2 throw terminators, got %d:\n%s", throws, g)
	}
}

func TestLabeledJumps(t *testing.T) {
	g := buildBody(t, `outer:
for (int i = 0; i < k; i++) {
    for (int j = 0; j < k; j++) {
        if (j == i) continue outer;
        if (j > i) break outer;
    }
}
done();`)
	if got := len(g.LoopHeads()); got != 2 {
		t.Errorf("Expected 2 loop heads, got %d", got)
	}
	if blockCalling(g, "done") == nil {
		t.Error("Expected code after the loops to be reachable")
	}

	g = buildBody(t, "block: { if (c) break block; a(); } b();")
	if blockCalling(g, "b") == nil {
		t.Error("Expected labeled break to reach the code after the block")
	}
}

func TestMalformedControlFlow(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"abstract method", "abstract class A { abstract void f(); }"},
		{"break outside loop", "class A { void f() { break; } }"},
		{"continue outside loop", "class A { void f() { continue; } }"},
		{"unknown label", "class A { void f() { while (true) { break missing; } } }"},
		{"yield outside switch expression", "class A { void f() { yield 1; } }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, err := parser.Parse([]byte(tt.src), "A.java")
			if err != nil {
				t.Fatalf("Failed to parse: %v", err)
			}
			_, err = Build(firstOfKind(unit, parser.KindMethodDecl), semantic.None)
			if !errors.Is(err, ErrMalformedControlFlow) {
				t.Fatalf("Expected ErrMalformedControlFlow, got %v", err)
			}
			var mErr *MalformedControlFlowError
			if !errors.As(err, &mErr) {
				t.Errorf("Expected *MalformedControlFlowError, got %T", err)
			}
		})
	}
}

func TestLambdasAndAnonymousClassesEscape(t *testing.T) {
	g, _ := buildFirstMethod(t, `class A {
    void f() {
        Runnable r = () -> { a(); };
        Function<String, Integer> len = s -> s.length();
        Object o = new Object() {
            public String toString() { return "x"; }
        };
    }
}`)
	if len(g.Escapes) != 3 {
		t.Fatalf("Expected 3 escaping bodies, got %d", len(g.Escapes))
	}
	if countCalls(g.Blocks, "a") != 0 {
		t.Error("Expected lambda bodies to stay out of the enclosing graph")
	}
	for node, sub := range g.Escapes {
		if node.Kind == parser.KindLambdaExpr && node.Child(1).Kind != parser.KindBlock {
			if sub.Entry.Terminator.Kind != Return {
				t.Errorf("Expected an expression lambda to return its value, got %s", sub.Entry.Terminator.Kind)
			}
		}
	}
}

func TestStringAndDot(t *testing.T) {
	g := buildBody(t, "if (c) { a(); }")

	dump := g.String()
	for _, want := range []string{"B0 (entry)", "(exit)", "branch c -> B"} {
		if !strings.Contains(dump, want) {
			t.Errorf("Expected dump to contain %q, got:\n%s", want, dump)
		}
	}
	if dump != g.String() {
		t.Error("Expected a stable dump")
	}

	out := g.Dot()
	if !strings.Contains(out, "digraph") || !strings.Contains(out, "B0") {
		t.Errorf("Unexpected dot output:\n%s", out)
	}
}
