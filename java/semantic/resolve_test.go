package semantic

import (
	"testing"

	"github.com/dhamidi/symbex/java/parser"
)

func resolveSource(t *testing.T, src string) (*parser.Node, *Model) {
	t.Helper()
	unit, err := parser.Parse([]byte(src), "A.java")
	if err != nil {
		t.Fatalf("Failed to parse source: %v", err)
	}
	return unit, Resolve(unit, "A.java")
}

// identifiers returns every Identifier node spelled name, in source order.
func identifiers(root *parser.Node, name string) []*parser.Node {
	var result []*parser.Node
	parser.Walk(root, func(n *parser.Node) bool {
		if n.Kind == parser.KindIdentifier && n.TokenLiteral() == name {
			result = append(result, n)
		}
		return true
	})
	return result
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

func TestLocalsAndParameters(t *testing.T) {
	unit, model := resolveSource(t, `package p;
class A {
    void foo(boolean append, String s) {
        int x = 1;
        if (append) {
            int y = x;
        }
        s.length();
    }
}
`)

	appends := identifiers(unit, "append")
	if len(appends) != 2 {
		t.Fatalf("Expected 2 occurrences of append, got %d", len(appends))
	}
	decl, use := model.SymbolOf(appends[0]), model.SymbolOf(appends[1])
	if decl == nil || decl != use {
		t.Fatalf("Expected declaration and use to share a symbol, got %v and %v", decl, use)
	}
	if decl.Kind != SymbolParameter {
		t.Errorf("Expected parameter, got %s", decl.Kind)
	}
	if decl.Type != "boolean" {
		t.Errorf("Expected type boolean, got %q", decl.Type)
	}

	xs := identifiers(unit, "x")
	if model.SymbolOf(xs[0]) != model.SymbolOf(xs[1]) {
		t.Error("Expected x to resolve to its declaration")
	}
	if model.SymbolOf(xs[0]).Kind != SymbolLocal {
		t.Errorf("Expected local, got %s", model.SymbolOf(xs[0]).Kind)
	}

	s := identifiers(unit, "s")
	if got := model.TypeOf(s[1]); got != "java.lang.String" {
		t.Errorf("Expected java.lang.String, got %q", got)
	}
}

func TestShadowingInNestedBlocks(t *testing.T) {
	unit, model := resolveSource(t, `class A {
    int v;
    void foo() {
        v = 1;
        { int v = 2; v++; }
        v = 3;
    }
}
`)
	vs := identifiers(unit, "v")
	if len(vs) != 5 {
		t.Fatalf("Expected 5 occurrences of v, got %d", len(vs))
	}
	field := model.SymbolOf(vs[0])
	if field == nil || field.Kind != SymbolField {
		t.Fatalf("Expected field symbol, got %v", field)
	}
	if model.SymbolOf(vs[1]) != field {
		t.Error("Expected first assignment to target the field")
	}
	local := model.SymbolOf(vs[2])
	if local == nil || local.Kind != SymbolLocal {
		t.Fatalf("Expected local symbol, got %v", local)
	}
	if model.SymbolOf(vs[3]) != local {
		t.Error("Expected v++ to target the local")
	}
	if model.SymbolOf(vs[4]) != field {
		t.Error("Expected the last assignment to target the field again")
	}
}

func TestThisFieldAccess(t *testing.T) {
	unit, model := resolveSource(t, `class A {
    Object o;
    void foo(Object o) {
        this.o = o;
    }
}
`)
	access := firstOfKind(unit, parser.KindFieldAccess)
	sym := model.SymbolOf(access)
	if sym == nil || sym.Kind != SymbolField || sym.Name != "o" {
		t.Fatalf("Expected this.o to resolve to field o, got %v", sym)
	}
	if sym.Owner != "A" {
		t.Errorf("Expected owner A, got %q", sym.Owner)
	}
	os := identifiers(unit, "o")
	if model.SymbolOf(os[len(os)-1]).Kind != SymbolParameter {
		t.Error("Expected bare o to resolve to the parameter")
	}
}

func TestTypesThroughImports(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "single import",
			source: "import java.io.FileOutputStream;\nclass A { void f(){ new FileOutputStream(\"x\"); } }",
			want:   "java.io.FileOutputStream",
		},
		{
			name:   "wildcard import",
			source: "import java.io.*;\nclass A { void f(){ new ObjectOutputStream(null); } }",
			want:   "java.io.ObjectOutputStream",
		},
		{
			name:   "java.lang",
			source: "class A { void f(){ new StringBuilder(); } }",
			want:   "java.lang.StringBuilder",
		},
		{
			name:   "well-known without import",
			source: "class A { void f(){ new FileOutputStream(\"x\", true); } }",
			want:   "java.io.FileOutputStream",
		},
		{
			name:   "same package",
			source: "package com.example;\nclass A { void f(){ new Widget(); } }",
			want:   "com.example.Widget",
		},
		{
			name:   "inner class",
			source: "package p;\nclass A { static class B {} void f(){ new B(); } }",
			want:   "p.A.B",
		},
		{
			name:   "fully qualified",
			source: "class A { void f(){ new java.util.ArrayList(); } }",
			want:   "java.util.ArrayList",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, model := resolveSource(t, tt.source)
			newExpr := firstOfKind(unit, parser.KindNewExpr)
			if newExpr == nil {
				t.Fatal("Expected a NewExpr")
			}
			if got := model.TypeOf(newExpr); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestStaticMembers(t *testing.T) {
	unit, model := resolveSource(t, `import java.nio.file.Files;
import java.nio.file.StandardOpenOption;
import static java.nio.file.StandardOpenOption.APPEND;
class A {
    void f(java.nio.file.Path p) {
        Files.newOutputStream(p, StandardOpenOption.APPEND);
        Files.newOutputStream(p, APPEND);
    }
}
`)
	var qualified *parser.Node
	parser.Walk(unit, func(n *parser.Node) bool {
		if n.Kind == parser.KindFieldAccess && n.LastChild().TokenLiteral() == "APPEND" {
			qualified = n
		}
		return true
	})
	if qualified == nil {
		t.Fatal("Expected StandardOpenOption.APPEND field access")
	}
	sym := model.SymbolOf(qualified)
	if sym == nil || sym.Kind != SymbolStaticMember {
		t.Fatalf("Expected static member, got %v", sym)
	}
	if sym.QualifiedName() != "java.nio.file.StandardOpenOption.APPEND" {
		t.Errorf("Unexpected qualified name %q", sym.QualifiedName())
	}

	appends := identifiers(unit, "APPEND")
	bare := appends[len(appends)-1]
	if model.SymbolOf(bare) != sym {
		t.Error("Expected statically imported APPEND to share the qualified symbol")
	}

	files := identifiers(unit, "Files")
	if got := model.TypeOf(files[len(files)-1]); got != "java.nio.file.Files" {
		t.Errorf("Expected Files to resolve to java.nio.file.Files, got %q", got)
	}
}

func TestConstants(t *testing.T) {
	unit, model := resolveSource(t, `class A {
    static final boolean APPEND_MODE = true;
    static final int LIMIT = -5;
    boolean mutable = true;
    void f() {
        final String name = "x";
        use(APPEND_MODE, LIMIT, mutable, name, null, !true);
    }
}
`)
	call := firstOfKind(unit, parser.KindCallExpr)
	args := call.Arguments()
	if len(args) != 6 {
		t.Fatalf("Expected 6 arguments, got %d", len(args))
	}

	tests := []struct {
		name string
		arg  *parser.Node
		ok   bool
		want string
	}{
		{"final boolean field", args[0], true, "true"},
		{"negative int field", args[1], true, "-5"},
		{"non-final field", args[2], false, ""},
		{"final local string", args[3], true, `"x"`},
		{"null literal", args[4], true, "null"},
		{"negated literal", args[5], true, "false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := model.ConstantOf(tt.arg)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if ok && c.String() != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, c.String())
			}
		})
	}
}

func TestCatchAndPatternVariables(t *testing.T) {
	unit, model := resolveSource(t, `import java.io.IOException;
class A {
    void f(Object o) {
        try {
            g();
        } catch (IOException e) {
            e.printStackTrace();
        }
        if (o instanceof String str) {
            str.length();
        }
        for (String item : list()) {
            item.trim();
        }
        Runnable r = () -> o.hashCode();
    }
}
`)
	tests := []struct {
		name string
		kind SymbolKind
		typ  string
	}{
		{"e", SymbolCatchParameter, "java.io.IOException"},
		{"str", SymbolPatternVariable, "java.lang.String"},
		{"item", SymbolLocal, "java.lang.String"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := identifiers(unit, tt.name)
			if len(ids) != 2 {
				t.Fatalf("Expected 2 occurrences, got %d", len(ids))
			}
			decl := model.SymbolOf(ids[0])
			if decl == nil || decl != model.SymbolOf(ids[1]) {
				t.Fatalf("Expected declaration and use to share a symbol")
			}
			if decl.Kind != tt.kind {
				t.Errorf("Expected %s, got %s", tt.kind, decl.Kind)
			}
			if decl.Type != tt.typ {
				t.Errorf("Expected type %q, got %q", tt.typ, decl.Type)
			}
		})
	}

	catch := firstOfKind(unit, parser.KindCatchClause)
	if model.SymbolOf(catch) != model.SymbolOf(identifiers(unit, "e")[0]) {
		t.Error("Expected CatchClause node to carry the catch parameter symbol")
	}

	os := identifiers(unit, "o")
	if model.SymbolOf(os[len(os)-1]) != model.SymbolOf(os[0]) {
		t.Error("Expected lambda body to see the captured parameter")
	}
}

func TestMethodsEnumeration(t *testing.T) {
	_, model := resolveSource(t, `package p;
abstract class A {
    static { init(); }
    { counter = 0; }
    int counter;
    A() {}
    abstract void shape();
    void run() {
        Runnable r = new Runnable() { public void run() {} };
    }
    enum Color { RED, GREEN; void paint() {} }
}
`)
	var got []string
	for _, m := range model.Methods() {
		got = append(got, m.String())
	}
	want := []string{
		"p.A#<clinit>",
		"p.A#<init>",
		"p.A#A",
		"p.A#shape",
		"p.A#run",
		"p.A.Color#paint",
	}
	if len(got) != len(want) {
		t.Fatalf("Expected methods %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Method %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	for _, m := range model.Methods() {
		if m.Name == "shape" && m.HasBody() {
			t.Error("Expected abstract method to have no body")
		}
	}
}

func TestEnumConstantsInSwitch(t *testing.T) {
	unit, model := resolveSource(t, `class A {
    enum Mode { READ, WRITE }
    void f(Mode m) {
        switch (m) {
            case READ: break;
            default: break;
        }
        Mode w = Mode.WRITE;
    }
}
`)
	write := firstOfKind(unit, parser.KindFieldAccess)
	sym := model.SymbolOf(write)
	if sym == nil || sym.Kind != SymbolStaticMember || sym.Owner != "A.Mode" {
		t.Fatalf("Expected Mode.WRITE to resolve to the enum constant, got %v", sym)
	}
	if sym.Decl == nil {
		t.Error("Expected the enum constant to keep its declaration")
	}
}
