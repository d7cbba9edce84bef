package se

import (
	"testing"

	"github.com/dhamidi/symbex/java/parser"
)

func TestBuildFlow(t *testing.T) {
	first, second, third := &parser.Node{Kind: parser.KindCallExpr}, &parser.Node{Kind: parser.KindIdentifier}, &parser.Node{Kind: parser.KindLiteral}

	root := &Node{ID: 1}
	n2 := &Node{ID: 2, Parent: root, Annotations: []FlowStep{{Node: first, Message: "one"}}}
	n3 := &Node{ID: 3, Parent: n2}
	n4 := &Node{ID: 4, Parent: n3, Annotations: []FlowStep{{Node: second, Message: "two"}, {Node: third, Message: "three"}}}
	n5 := &Node{ID: 5, Parent: n4}

	flow := BuildFlow(n5)
	want := []string{"one", "two", "three"}
	if len(flow) != len(want) {
		t.Fatalf("Expected %d steps, got %d", len(want), len(flow))
	}
	for i, step := range flow {
		if step.Message != want[i] {
			t.Errorf("Expected step %d to be %q, got %q", i, want[i], step.Message)
		}
	}
	if flow[0].Node != first || flow[2].Node != third {
		t.Error("Expected steps to keep their syntax nodes")
	}

	if got := BuildFlow(root); len(got) != 0 {
		t.Errorf("Expected an empty flow at the root, got %v", got)
	}
}
