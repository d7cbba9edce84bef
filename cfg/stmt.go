package cfg

import (
	"github.com/dhamidi/symbex/java/parser"
)

func (b *builder) stmt(n *parser.Node) {
	if n == nil || b.err != nil {
		return
	}
	switch n.Kind {
	case parser.KindBlock:
		for _, child := range n.Children {
			b.stmt(child)
		}
	case parser.KindEmptyStmt, parser.KindLocalClassDecl, parser.KindClassDecl,
		parser.KindInterfaceDecl, parser.KindEnumDecl, parser.KindRecordDecl,
		parser.KindError:
	case parser.KindLocalVarDecl:
		for _, decl := range n.ChildrenOfKind(parser.KindVariableDeclarator) {
			if init := decl.Initializer(); init != nil {
				b.expr(init)
			}
			b.add(decl)
		}
	case parser.KindExprStmt:
		if e := n.Child(0); e != nil {
			b.expr(e)
			b.add(n)
		}
	case parser.KindIfStmt:
		b.ifStmt(n)
	case parser.KindWhileStmt:
		b.whileStmt(n)
	case parser.KindDoStmt:
		b.doStmt(n)
	case parser.KindForStmt:
		b.forStmt(n)
	case parser.KindEnhancedForStmt:
		b.enhancedForStmt(n)
	case parser.KindSwitchStmt:
		b.switchBlock(n, false)
	case parser.KindReturnStmt:
		if e := n.Child(0); e != nil {
			b.expr(e)
		}
		b.add(n)
		b.jumpOut(Return, n, -1, b.exit)
	case parser.KindBreakStmt:
		b.breakStmt(n)
	case parser.KindContinueStmt:
		b.continueStmt(n)
	case parser.KindYieldStmt:
		b.yieldStmt(n)
	case parser.KindThrowStmt:
		if e := n.Child(0); e != nil {
			b.expr(e)
		}
		b.add(n)
		b.seal(Throw, n, b.exceptionTargets()...)
	case parser.KindTryStmt:
		b.tryStmt(n)
	case parser.KindSynchronizedStmt:
		b.expr(n.Child(0))
		b.add(n)
		b.stmt(n.LastChild())
	case parser.KindAssertStmt:
		b.assertStmt(n)
	case parser.KindLabeledStmt:
		b.labeledStmt(n)
	case parser.KindExplicitConstructorInvocation:
		if q := n.Qualifier(); q != nil {
			b.expr(q)
		}
		for _, arg := range n.Arguments() {
			b.expr(arg)
		}
		b.add(n)
	default:
		log.Debugf("ignoring %s statement at line %d", n.Kind, n.Span.Start.Line)
	}
}

func (b *builder) ifStmt(n *parser.Node) {
	then, after := b.newBlock(), b.newBlock()
	otherwise := after
	if n.Child(2) != nil {
		otherwise = b.newBlock()
	}
	b.cond(n.Child(0), then, otherwise)

	b.cur = then
	b.stmt(n.Child(1))
	b.jump(after)

	if n.Child(2) != nil {
		b.cur = otherwise
		b.stmt(n.Child(2))
		b.jump(after)
	}
	b.cur = after
}

func (b *builder) whileStmt(n *parser.Node) {
	label := b.takeLabel()
	head, body, exit := b.newBlock(), b.newBlock(), b.newBlock()
	b.jump(head)

	b.cur = head
	b.cond(n.Child(0), body, exit)

	b.push(&scope{kind: scopeLoop, label: label, breakTo: exit, continueTo: head})
	b.cur = body
	b.stmt(n.Child(1))
	b.jump(head)
	b.pop()

	b.cur = exit
}

func (b *builder) doStmt(n *parser.Node) {
	label := b.takeLabel()
	body, check, exit := b.newBlock(), b.newBlock(), b.newBlock()
	b.jump(body)

	b.push(&scope{kind: scopeLoop, label: label, breakTo: exit, continueTo: check})
	b.cur = body
	b.stmt(n.Child(0))
	b.jump(check)
	b.pop()

	b.cur = check
	b.cond(n.Child(1), body, exit)
	b.cur = exit
}

func (b *builder) forStmt(n *parser.Node) {
	label := b.takeLabel()
	if len(n.Children) == 0 {
		return
	}
	var init, cond, update *parser.Node
	body := n.LastChild()
	for _, child := range n.Children[:len(n.Children)-1] {
		switch child.Kind {
		case parser.KindForInit:
			init = child
		case parser.KindForUpdate:
			update = child
		default:
			cond = child
		}
	}

	if init != nil {
		for _, child := range init.Children {
			if child.Kind == parser.KindLocalVarDecl {
				b.stmt(child)
				continue
			}
			b.expr(child)
			b.add(init)
		}
	}

	head, bodyBlock, next, exit := b.newBlock(), b.newBlock(), b.newBlock(), b.newBlock()
	b.jump(head)
	b.cur = head
	if cond != nil {
		b.cond(cond, bodyBlock, exit)
	} else {
		b.jump(bodyBlock)
	}

	b.push(&scope{kind: scopeLoop, label: label, breakTo: exit, continueTo: next})
	b.cur = bodyBlock
	b.stmt(body)
	b.jump(next)
	b.pop()

	b.cur = next
	if update != nil {
		for _, child := range update.Children {
			b.expr(child)
			b.add(update)
		}
	}
	b.jump(head)
	b.cur = exit
}

func (b *builder) enhancedForStmt(n *parser.Node) {
	label := b.takeLabel()
	var decl, iterable *parser.Node
	for i, child := range n.Children {
		if child.Kind == parser.KindVariableDeclarator {
			decl = child
			iterable = n.Child(i + 1)
			break
		}
	}
	body := n.LastChild()

	if iterable != nil && iterable != body {
		b.expr(iterable)
	}
	b.add(n)

	head, bodyBlock, exit := b.newBlock(), b.newBlock(), b.newBlock()
	b.jump(head)
	b.cur = head
	b.seal(ForEach, n, bodyBlock, exit)

	b.push(&scope{kind: scopeLoop, label: label, breakTo: exit, continueTo: head})
	b.cur = bodyBlock
	if decl != nil {
		b.add(decl)
	}
	b.stmt(body)
	b.jump(head)
	b.pop()

	b.cur = exit
}

// switchBlock lowers both switch statements and switch expressions. In a
// switch expression the arms leave their value on the stack for the join.
func (b *builder) switchBlock(n *parser.Node, value bool) {
	b.expr(n.Child(0))
	cases := n.ChildrenOfKind(parser.KindSwitchCase)
	after := b.newBlock()
	entries := make([]*Block, len(cases))
	for i := range cases {
		entries[i] = b.newBlock()
	}

	noMatch := after
	var succs []*Block
	for i, c := range cases {
		if c.IsDefaultCase() {
			noMatch = entries[i]
			continue
		}
		succs = append(succs, entries[i])
	}
	b.seal(Switch, n, append(succs, noMatch)...)

	kind := scopeSwitch
	if value {
		kind = scopeSwitchExpr
	}
	b.push(&scope{kind: kind, breakTo: after})
	for i, c := range cases {
		next := after
		if i+1 < len(cases) {
			next = entries[i+1]
		}
		b.cur = entries[i]

		var body []*parser.Node
		for _, child := range c.Children {
			if child.Kind == parser.KindSwitchLabel {
				b.switchLabel(child, next)
				continue
			}
			body = append(body, child)
		}

		if !c.IsArrowCase() {
			for _, s := range body {
				b.stmt(s)
			}
			b.jump(next)
			continue
		}
		for _, s := range body {
			if value && s.Kind == parser.KindExprStmt {
				b.expr(s.Child(0))
				continue
			}
			b.stmt(s)
		}
		b.jump(after)
	}
	b.pop()
	b.cur = after
}

func (b *builder) switchLabel(label *parser.Node, fallback *Block) {
	for _, child := range label.Children {
		switch child.Kind {
		case parser.KindTypePattern, parser.KindRecordPattern:
			b.pattern(child)
		case parser.KindGuard:
			matched := b.newBlock()
			b.cond(child.Child(0), matched, fallback)
			b.cur = matched
		}
	}
}

func (b *builder) pattern(p *parser.Node) {
	switch p.Kind {
	case parser.KindTypePattern:
		if p.Child(1) != nil {
			b.add(p)
		}
	case parser.KindRecordPattern:
		for _, component := range p.Children[1:] {
			b.pattern(component)
		}
	}
}

func (b *builder) tryStmt(n *parser.Node) {
	var resources, catches []*parser.Node
	var body, finally *parser.Node
	for _, child := range n.Children {
		switch {
		case child.Kind == parser.KindBlock && body == nil:
			body = child
		case child.Kind == parser.KindCatchClause:
			catches = append(catches, child)
		case child.Kind == parser.KindFinallyClause:
			finally = child.Child(0)
		case body == nil:
			resources = append(resources, child)
		}
	}

	after := b.newBlock()
	s := &scope{kind: scopeTry, catching: true, finally: finally}
	for _, c := range catches {
		entry := b.newBlock()
		s.catches = append(s.catches, entry)
		b.handlers = append(b.handlers, handlerEntry{clause: c, entry: entry})
	}
	if finally != nil {
		s.finallyExc = b.newBlock()
		b.handlers = append(b.handlers, handlerEntry{entry: s.finallyExc})
	}

	b.push(s)
	for _, r := range resources {
		if r.Kind == parser.KindLocalVarDecl {
			b.stmt(r)
		}
	}
	b.stmt(body)

	normal := after
	if finally != nil {
		normal = b.newBlock()
	}
	b.jump(normal)

	s.catching = false
	for i, c := range catches {
		b.cur = s.catches[i]
		b.add(c)
		b.stmt(c.FirstChildOfKind(parser.KindBlock))
		b.jump(normal)
	}
	b.pop()

	if finally != nil {
		b.cur = normal
		b.stmt(finally)
		b.jump(after)

		b.cur = s.finallyExc
		b.stmt(finally)
		b.seal(Throw, n.FirstChildOfKind(parser.KindFinallyClause), b.exceptionTargets()...)
	}
	b.cur = after
}

func (b *builder) assertStmt(n *parser.Node) {
	ok, failed := b.newBlock(), b.newBlock()
	b.cond(n.Child(0), ok, failed)

	b.cur = failed
	if msg := n.Child(1); msg != nil {
		b.expr(msg)
	}
	b.add(n)
	b.seal(Throw, n, b.exceptionTargets()...)
	b.cur = ok
}

func (b *builder) labeledStmt(n *parser.Node) {
	name, body := n.Child(0).TokenLiteral(), n.Child(1)
	if body == nil {
		return
	}
	switch body.Kind {
	case parser.KindWhileStmt, parser.KindDoStmt, parser.KindForStmt, parser.KindEnhancedForStmt:
		b.label = name
		b.stmt(body)
		return
	}
	after := b.newBlock()
	b.push(&scope{kind: scopeLabel, label: name, breakTo: after})
	b.stmt(body)
	b.jump(after)
	b.pop()
	b.cur = after
}

func jumpLabel(n *parser.Node) string {
	if id := n.FirstChildOfKind(parser.KindIdentifier); id != nil {
		return id.TokenLiteral()
	}
	return ""
}

func (b *builder) breakStmt(n *parser.Node) {
	name := jumpLabel(n)
	for i := len(b.scopes) - 1; i >= 0; i-- {
		s := b.scopes[i]
		if name != "" {
			if s.label == name {
				b.jumpOut(Jump, n, i, s.breakTo)
				return
			}
			continue
		}
		switch s.kind {
		case scopeLoop, scopeSwitch:
			b.jumpOut(Jump, n, i, s.breakTo)
			return
		case scopeSwitchExpr:
			b.fail(malformed(n, "break out of a switch expression"))
			return
		}
	}
	if name != "" {
		b.fail(malformed(n, "break label %s not found", name))
		return
	}
	b.fail(malformed(n, "break outside of a loop or switch"))
}

func (b *builder) continueStmt(n *parser.Node) {
	name := jumpLabel(n)
	for i := len(b.scopes) - 1; i >= 0; i-- {
		s := b.scopes[i]
		if s.kind == scopeSwitchExpr {
			break
		}
		if s.kind == scopeLoop && (name == "" || s.label == name) {
			b.jumpOut(Jump, n, i, s.continueTo)
			return
		}
	}
	if name != "" {
		b.fail(malformed(n, "continue label %s not found", name))
		return
	}
	b.fail(malformed(n, "continue outside of a loop"))
}

func (b *builder) yieldStmt(n *parser.Node) {
	if e := n.Child(0); e != nil {
		b.expr(e)
	}
	for i := len(b.scopes) - 1; i >= 0; i-- {
		if s := b.scopes[i]; s.kind == scopeSwitchExpr {
			b.jumpOut(Jump, n, i, s.breakTo)
			return
		}
	}
	b.fail(malformed(n, "yield outside of a switch expression"))
}
