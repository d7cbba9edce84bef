package cfg

import (
	"testing"

	"github.com/dhamidi/symbex/java/parser"
	"github.com/dhamidi/symbex/java/semantic"
)

func TestDominators(t *testing.T) {
	g := buildBody(t, "if (c) { a(); } else { b(); } d();")

	idom := g.Dominators()
	after := blockCalling(g, "d")
	if got, ok := idom[after.ID]; !ok || got != g.Entry.ID {
		t.Errorf("Expected the entry to dominate the join, got %d", got)
	}
	if _, ok := idom[g.Entry.ID]; ok {
		t.Error("Expected the entry to have no dominator")
	}
	for _, name := range []string{"a", "b"} {
		if got := idom[blockCalling(g, name).ID]; got != g.Entry.ID {
			t.Errorf("Expected the entry to dominate %s(), got B%d", name, got)
		}
	}
}

func TestCyclesContainLoopHeads(t *testing.T) {
	g := buildBody(t, "do { } while (c); a();")

	cycles := g.Cycles()
	if len(cycles) != 1 {
		t.Fatalf("Expected 1 cycle, got %v:\n%s", cycles, g)
	}
	heads := g.LoopHeads()
	if len(heads) != 1 {
		t.Fatalf("Expected 1 loop head, got %v", heads)
	}
	found := false
	for _, id := range cycles[0] {
		if id == heads[0] {
			found = true
		}
		if id == blockCalling(g, "a").ID {
			t.Error("Expected the code after the loop to stay out of the cycle")
		}
	}
	if !found {
		t.Errorf("Expected loop head B%d in cycle %v", heads[0], cycles[0])
	}
}

// buildMethodNamed builds the graph of the named method in src.
func buildMethodNamed(t *testing.T, src, name string) (*CFG, *semantic.Model, *parser.Node) {
	t.Helper()
	unit, err := parser.Parse([]byte(src), "A.java")
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	model := semantic.Resolve(unit, "A.java")
	for _, m := range model.Methods() {
		if m.Name == name {
			g, err := Build(m.Decl, model)
			if err != nil {
				t.Fatalf("Failed to build CFG: %v", err)
			}
			return g, model, m.Decl
		}
	}
	t.Fatalf("Method %s not found", name)
	return nil, nil, nil
}

func TestLiveVariables(t *testing.T) {
	g, model, f := buildMethodNamed(t, `class A {
    boolean check() { return true; }
    void f(Object o) {
        Object x = o;
        if (check()) {
            x.hashCode();
        }
        int y = 0;
        y++;
    }
}`, "f")

	var branch *Block
	for _, b := range g.LiveBlocks() {
		if b.Terminator.Kind == Branch {
			branch = b
		}
	}
	if branch == nil {
		t.Fatalf("Expected a branch:\n%s", g)
	}

	decl := firstOfKind(f, parser.KindVariableDeclarator)
	x := model.SymbolOf(decl.DeclaredName())
	if x == nil {
		t.Fatal("Expected x to resolve")
	}
	o := model.SymbolOf(firstOfKind(f, parser.KindParameter).DeclaredName())

	live := g.LiveVariables()
	if !live.IsLiveIn(g.Entry, o) {
		t.Error("Expected o to be live at entry")
	}
	if live.IsLiveIn(g.Entry, x) {
		t.Error("Expected x not to be live before its declaration")
	}
	if !live.IsLiveIn(branch.Successors[0], x) {
		t.Error("Expected x to be live where it is dereferenced")
	}
	if live.IsLiveIn(branch.Successors[1], x) {
		t.Error("Expected x to be dead after its last use")
	}
	if !live.LiveOut(branch).Contains(uint32(x.ID)) {
		t.Error("Expected x to be live out of the branch block")
	}
}

func TestLivenessSeesLambdaCaptures(t *testing.T) {
	g, model, f := buildMethodNamed(t, `class A {
    void f(String s) {
        Runnable r = () -> s.length();
        r.run();
    }
}`, "f")
	s := model.SymbolOf(firstOfKind(f, parser.KindParameter).DeclaredName())
	if !g.LiveVariables().IsLiveIn(g.Entry, s) {
		t.Error("Expected a captured parameter to be live where the lambda is created")
	}
}
