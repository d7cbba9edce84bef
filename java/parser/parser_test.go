package parser

import (
	"errors"
	"testing"
)

func parse(t *testing.T, src string) *Node {
	t.Helper()
	unit, err := Parse([]byte(src), "Test.java")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if hasError(unit) {
		t.Fatalf("Unexpected syntax error in:\n%s", unit)
	}
	return unit
}

func collect(n *Node, kind NodeKind) []*Node {
	var found []*Node
	Walk(n, func(m *Node) bool {
		if m.Kind == kind {
			found = append(found, m)
		}
		return true
	})
	return found
}

func hasError(n *Node) bool {
	return len(collect(n, KindError)) > 0
}

func TestTokens(t *testing.T) {
	tests := []struct {
		input    string
		expected []TokenKind
	}{
		{"", []TokenKind{TokenEOF}},
		{"x == null", []TokenKind{TokenIdent, TokenEQ, TokenNull, TokenEOF}},
		{"0x1F 0b101 1_000L 2.5e3 5f", []TokenKind{TokenIntLiteral, TokenIntLiteral, TokenIntLiteral, TokenFloatLiteral, TokenFloatLiteral, TokenEOF}},
		{`'\n' "a\"b"`, []TokenKind{TokenCharLiteral, TokenStringLiteral, TokenEOF}},
		{"\"\"\"\n  text\n  \"\"\"", []TokenKind{TokenTextBlock, TokenEOF}},
		{"a // trailing\nb", []TokenKind{TokenIdent, TokenIdent, TokenEOF}},
		{"a /* inner */ b /** doc */", []TokenKind{TokenIdent, TokenIdent, TokenEOF}},
		{"a /* never closed", []TokenKind{TokenIdent, TokenEOF}},
		{"-> :: ... >>>= &=", []TokenKind{TokenArrow, TokenColonColon, TokenEllipsis, TokenUShrAssign, TokenAndAssign, TokenEOF}},
		{"try catch finally throw", []TokenKind{TokenTry, TokenCatch, TokenFinally, TokenThrow, TokenEOF}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var got []TokenKind
			for _, tok := range tokenize([]byte(tt.input), "Test.java") {
				got = append(got, tok.Kind)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %v, got %v", tt.expected, got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("Expected token %d to be %v, got %v", i, tt.expected[i], got[i])
				}
			}
		})
	}
}

func TestTokenPositionsSkipComments(t *testing.T) {
	tokens := tokenize([]byte("/* a\n b */ x\n  // c\n  y"), "Test.java")
	if len(tokens) != 3 {
		t.Fatalf("Expected 3 tokens, got %d", len(tokens))
	}
	want := []Position{
		{File: "Test.java", Offset: 11, Line: 2, Column: 7},
		{File: "Test.java", Offset: 22, Line: 4, Column: 3},
	}
	for i, pos := range want {
		if got := tokens[i].Span.Start; got != pos {
			t.Errorf("Expected token %d at %+v, got %+v", i, pos, got)
		}
	}
	if got := tokens[1].Span.Start.String(); got != "4:3" {
		t.Errorf("Expected 4:3, got %s", got)
	}
}

func TestParseIncomplete(t *testing.T) {
	tests := []string{
		"",
		"class A { void f() { int x = ",
		"class A { boolean b = a && ",
	}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			unit, err := Parse([]byte(input), "A.java")
			if !errors.Is(err, ErrIncomplete) {
				t.Errorf("Expected ErrIncomplete, got %v", err)
			}
			if unit != nil {
				t.Errorf("Expected no tree, got:\n%s", unit)
			}
		})
	}
}

func TestParseRecoversInsideMethod(t *testing.T) {
	unit, err := Parse([]byte(`class A {
  void f() { int x = ; }
  void g() { }
}`), "A.java")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !hasError(unit) {
		t.Error("Expected an error node for the missing initializer")
	}
	methods := collect(unit, KindMethodDecl)
	if len(methods) != 2 {
		t.Fatalf("Expected 2 methods, got %d", len(methods))
	}
	if got := methods[1].Span.Start.Line; got != 3 {
		t.Errorf("Expected g to start on line 3, got %d", got)
	}
}

func TestSwitchPatternsAndGuards(t *testing.T) {
	unit := parse(t, `class A {
  String f(Object o) {
    switch (o) {
      case String s when s.isEmpty() -> { return "empty"; }
      case Point(int x, _) -> { return "point"; }
      case null, default -> { return "other"; }
    }
  }
}`)
	cases := collect(unit, KindSwitchCase)
	if len(cases) != 3 {
		t.Fatalf("Expected 3 cases, got %d", len(cases))
	}
	for i, c := range cases {
		if !c.IsArrowCase() {
			t.Errorf("Expected case %d to be an arrow case", i)
		}
	}
	if got := len(collect(cases[0], KindGuard)); got != 1 {
		t.Errorf("Expected a guard on the first case, got %d", got)
	}
	if got := len(collect(cases[1], KindRecordPattern)); got != 1 {
		t.Errorf("Expected a record pattern on the second case, got %d", got)
	}
	if got := len(collect(cases[1], KindMatchAllPattern)); got != 1 {
		t.Errorf("Expected an unnamed component, got %d", got)
	}
	if cases[0].IsDefaultCase() || cases[1].IsDefaultCase() {
		t.Error("Expected only the last case to be a default")
	}
	if !cases[2].IsDefaultCase() {
		t.Error("Expected case null, default to count as a default")
	}
}

func TestColonCasesFallThrough(t *testing.T) {
	unit := parse(t, `class A {
  int f(int k) {
    int r = 0;
    switch (k) {
      case 1:
      case 2:
        r = 1;
        break;
      default:
        r = 2;
    }
    return r;
  }
}`)
	cases := collect(unit, KindSwitchCase)
	if len(cases) != 2 {
		t.Fatalf("Expected 2 cases, got %d", len(cases))
	}
	if got := len(cases[0].ChildrenOfKind(KindSwitchLabel)); got != 2 {
		t.Errorf("Expected grouped labels on the first case, got %d", got)
	}
	if cases[0].IsArrowCase() {
		t.Error("Expected a colon case")
	}
	if !cases[1].IsDefaultCase() {
		t.Error("Expected the last case to be the default")
	}
}

func TestSwitchExpressionYield(t *testing.T) {
	unit := parse(t, `class A {
  int f(int k) {
    return switch (k) {
      case 1 -> 10;
      default -> { yield k * 2; }
    };
  }
}`)
	if got := len(collect(unit, KindSwitchExpr)); got != 1 {
		t.Fatalf("Expected 1 switch expression, got %d", got)
	}
	if got := len(collect(unit, KindYieldStmt)); got != 1 {
		t.Errorf("Expected 1 yield, got %d", got)
	}
}

func TestTryWithResources(t *testing.T) {
	unit := parse(t, `class A {
  void f(java.io.InputStream in) throws Exception {
    try (var r = new java.io.FileReader("a"); in) {
      r.read();
    } catch (java.io.IOException | RuntimeException e) {
      throw e;
    } finally {
      in.close();
    }
  }
}`)
	try := collect(unit, KindTryStmt)
	if len(try) != 1 {
		t.Fatalf("Expected 1 try, got %d", len(try))
	}
	resources := try[0].ChildrenOfKind(KindLocalVarDecl)
	if len(resources) != 1 {
		t.Fatalf("Expected 1 declared resource, got %d", len(resources))
	}
	decl := resources[0].ChildrenOfKind(KindVariableDeclarator)
	if len(decl) != 1 || decl[0].DeclaredName().TokenLiteral() != "r" {
		t.Errorf("Expected resource r, got %v", decl)
	}
	if got := try[0].Child(1); got == nil || got.Kind != KindIdentifier || got.TokenLiteral() != "in" {
		t.Errorf("Expected the second resource to be the identifier in, got %v", got)
	}
	catches := try[0].ChildrenOfKind(KindCatchClause)
	if len(catches) != 1 || catches[0].DeclaredName().TokenLiteral() != "e" {
		t.Errorf("Expected a catch binding e, got %v", catches)
	}
	if got := len(try[0].ChildrenOfKind(KindFinallyClause)); got != 1 {
		t.Errorf("Expected a finally clause, got %d", got)
	}
}

func TestLambdasAndAnonymousClasses(t *testing.T) {
	unit := parse(t, `class A {
  void f() {
    Runnable r = () -> { g(null); };
    java.util.function.Function<String, Integer> len = s -> s.length();
    Object o = new Object() {
      public String toString() { return "o"; }
    };
  }
}`)
	lambdas := collect(unit, KindLambdaExpr)
	if len(lambdas) != 2 {
		t.Fatalf("Expected 2 lambdas, got %d", len(lambdas))
	}
	if got := lambdas[0].LastChild(); got.Kind != KindBlock {
		t.Errorf("Expected a block body, got %v", got.Kind)
	}
	if got := lambdas[1].LastChild(); got.Kind != KindCallExpr {
		t.Errorf("Expected an expression body, got %v", got.Kind)
	}
	if got := lambdas[1].Span.Start.Line; got != 4 {
		t.Errorf("Expected the second lambda on line 4, got %d", got)
	}

	var body *Node
	for _, n := range collect(unit, KindNewExpr) {
		if b := n.ClassBody(); b != nil {
			body = b
		}
	}
	if body == nil {
		t.Fatal("Expected an anonymous class body")
	}
	if got := len(collect(body, KindMethodDecl)); got != 1 {
		t.Errorf("Expected 1 method in the anonymous class, got %d", got)
	}
}

func TestLabeledLoops(t *testing.T) {
	unit := parse(t, `class A {
  void f(int[][] m) {
    outer:
    for (int[] row : m) {
      for (int v : row) {
        if (v == 0) continue outer;
        if (v < 0) break outer;
      }
    }
  }
}`)
	labeled := collect(unit, KindLabeledStmt)
	if len(labeled) != 1 {
		t.Fatalf("Expected 1 labeled statement, got %d", len(labeled))
	}
	if got := len(collect(labeled[0], KindEnhancedForStmt)); got != 2 {
		t.Errorf("Expected 2 enhanced for loops, got %d", got)
	}
	if got := len(collect(unit, KindBreakStmt)) + len(collect(unit, KindContinueStmt)); got != 2 {
		t.Errorf("Expected 2 jumps, got %d", got)
	}
}

func TestDeclarationKinds(t *testing.T) {
	unit := parse(t, `package p;

import java.util.List;

record Pair(Object a, Object b) {}

enum Color { RED, GREEN }

interface Shape { double area(); }

class Box<T> {
  private T value;
  Box(T value) { this.value = value; }
  T get() { return value; }
}`)
	tests := []struct {
		kind  NodeKind
		count int
	}{
		{KindPackageDecl, 1},
		{KindImportDecl, 1},
		{KindRecordDecl, 1},
		{KindEnumDecl, 1},
		{KindInterfaceDecl, 1},
		{KindClassDecl, 1},
		{KindConstructorDecl, 1},
		{KindFieldDecl, 3},
		{KindMethodDecl, 3},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := len(collect(unit, tt.kind)); got != tt.count {
				t.Errorf("Expected %d, got %d", tt.count, got)
			}
		})
	}
}

func TestTreeString(t *testing.T) {
	unit := parse(t, "class A {}")
	want := "CompilationUnit@1:1\n"
	if got := unit.String(); len(got) < len(want) || got[:len(want)] != want {
		t.Errorf("Expected tree to start with %q, got %q", want, got)
	}
}
