package cfg

import (
	"github.com/tliron/commonlog"

	"github.com/dhamidi/symbex/java/parser"
	"github.com/dhamidi/symbex/java/semantic"
)

var log = commonlog.GetLogger("symbex.cfg")

type scopeKind int

const (
	scopeLoop scopeKind = iota
	scopeSwitch
	scopeLabel
	scopeTry
	scopeSwitchExpr
)

// scope is one entry of the jump-target stack. Try scopes also carry the
// handler blocks and the finally clause that every exit must run.
type scope struct {
	kind       scopeKind
	label      string
	breakTo    *Block
	continueTo *Block

	catches    []*Block
	catching   bool
	finally    *parser.Node
	finallyExc *Block
}

type handlerEntry struct {
	clause *parser.Node
	entry  *Block
}

type builder struct {
	g        *CFG
	info     semantic.Info
	blocks   []*Block
	cur      *Block
	exit     *Block
	scopes   []*scope
	label    string
	handlers []handlerEntry
	err      error
}

// Build lowers the body of a method, constructor, lambda or initializer
// block into a CFG.
func Build(method *parser.Node, info semantic.Info) (*CFG, error) {
	if info == nil {
		info = semantic.None
	}
	body, err := bodyOf(method)
	if err != nil {
		return nil, err
	}

	b := &builder{
		g:    &CFG{Method: method, Escapes: make(map[*parser.Node]*CFG), info: info},
		info: info,
	}
	b.exit = b.newBlock()
	b.exit.Terminator = Terminator{Kind: Exit}
	entry := b.newBlock()
	b.cur = entry

	if method.Kind == parser.KindLambdaExpr && body.Kind != parser.KindBlock {
		b.expr(body)
		b.seal(Return, body, b.exit)
	} else {
		b.stmt(body)
		b.seal(Jump, nil, b.exit)
	}
	if b.err != nil {
		return nil, b.err
	}

	b.finish(entry)
	log.Debugf("built %d blocks (%d live) for %s", len(b.g.Blocks), len(b.g.LiveBlocks()), method.Kind)
	return b.g, nil
}

func bodyOf(method *parser.Node) (*parser.Node, error) {
	if method == nil {
		return nil, malformed(nil, "no method")
	}
	switch method.Kind {
	case parser.KindMethodDecl, parser.KindConstructorDecl:
		if body := method.FirstChildOfKind(parser.KindBlock); body != nil {
			return body, nil
		}
		return nil, malformed(method, "method has no body")
	case parser.KindLambdaExpr:
		if body := method.Child(1); body != nil {
			return body, nil
		}
		return nil, malformed(method, "lambda has no body")
	case parser.KindBlock:
		if first := method.Child(0); first != nil && first.Kind == parser.KindIdentifier && first.TokenLiteral() == "static" {
			if body := method.Child(1); body != nil {
				return body, nil
			}
			return nil, malformed(method, "static initializer has no body")
		}
		return method, nil
	}
	return nil, malformed(method, "cannot build a graph for %s", method.Kind)
}

func (b *builder) newBlock() *Block {
	blk := &Block{ID: len(b.blocks)}
	b.blocks = append(b.blocks, blk)
	return blk
}

// seal ends the current block and continues in a fresh one. Code that
// follows a jump lands in that fresh block, which stays unreachable.
func (b *builder) seal(kind TerminatorKind, node *parser.Node, succs ...*Block) {
	b.cur.Terminator = Terminator{Kind: kind, Node: node}
	b.cur.Successors = succs
	b.cur = b.newBlock()
}

func (b *builder) jump(to *Block) {
	b.seal(Jump, nil, to)
}

func (b *builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *builder) push(s *scope) {
	b.scopes = append(b.scopes, s)
}

func (b *builder) pop() {
	b.scopes = b.scopes[:len(b.scopes)-1]
}

func (b *builder) takeLabel() string {
	label := b.label
	b.label = ""
	return label
}

// add appends an element to the current block. Inside a try region an
// element that can throw ends the block.
func (b *builder) add(n *parser.Node) {
	b.cur.Elements = append(b.cur.Elements, n)
	if !CanThrow(n) || !b.inTry() {
		return
	}
	targets := b.exceptionTargets()
	next := b.newBlock()
	b.cur.ExceptionSuccessors = targets
	b.seal(Jump, nil, next)
	b.cur = next
}

func (b *builder) inTry() bool {
	for _, s := range b.scopes {
		if s.kind == scopeTry && (s.catching || s.finallyExc != nil) {
			return true
		}
	}
	return false
}

// exceptionTargets lists where an exception raised at the current point
// goes: the active handlers from the innermost try outwards, then the
// first exceptional finally copy, or Exit.
func (b *builder) exceptionTargets() []*Block {
	var targets []*Block
	seen := make(map[*Block]bool)
	appendTarget := func(blk *Block) {
		if !seen[blk] {
			seen[blk] = true
			targets = append(targets, blk)
		}
	}
	for i := len(b.scopes) - 1; i >= 0; i-- {
		s := b.scopes[i]
		if s.kind != scopeTry {
			continue
		}
		if s.catching {
			for _, c := range s.catches {
				appendTarget(c)
			}
		}
		if s.finallyExc != nil {
			appendTarget(s.finallyExc)
			return targets
		}
	}
	appendTarget(b.exit)
	return targets
}

// jumpOut leaves every scope above depth, running the finally clauses it
// crosses from the innermost outwards, then seals the block towards target.
func (b *builder) jumpOut(kind TerminatorKind, node *parser.Node, depth int, target *Block) {
	saved := b.scopes
	for i := len(saved) - 1; i > depth; i-- {
		s := saved[i]
		if s.kind != scopeTry || s.finally == nil {
			continue
		}
		b.scopes = append([]*scope(nil), saved[:i]...)
		b.stmt(s.finally)
	}
	b.scopes = saved
	b.seal(kind, node, target)
}

// escape builds an independent graph for a lambda or an anonymous class
// member.
func (b *builder) escape(n *parser.Node) {
	sub, err := Build(n, b.info)
	if err != nil {
		log.Debugf("skipping escaping body at line %d: %s", n.Span.Start.Line, err)
		return
	}
	b.g.Escapes[n] = sub
	for k, v := range sub.Escapes {
		b.g.Escapes[k] = v
	}
}

func (b *builder) anonymousClass(body *parser.Node) {
	for _, member := range body.Children {
		switch member.Kind {
		case parser.KindMethodDecl, parser.KindConstructorDecl:
			if member.FirstChildOfKind(parser.KindBlock) != nil {
				b.escape(member)
			}
		case parser.KindBlock:
			b.escape(member)
		}
	}
}
