package se

import (
	"github.com/dhamidi/symbex/java/parser"
)

// FlowStep is one secondary location explaining a finding.
type FlowStep struct {
	Node    *parser.Node
	Message string
}

// Flow is an ordered list of steps, earliest first.
type Flow []FlowStep

// BuildFlow collects the annotations recorded along the path that ends at
// terminal, in execution order.
func BuildFlow(terminal *Node) Flow {
	var groups [][]FlowStep
	for n := terminal; n != nil; n = n.Parent {
		if len(n.Annotations) > 0 {
			groups = append(groups, n.Annotations)
		}
	}
	var flow Flow
	for i := len(groups) - 1; i >= 0; i-- {
		flow = append(flow, groups[i]...)
	}
	return flow
}
