package semantic

import (
	"path/filepath"
	"strings"

	"github.com/dhamidi/symbex/java/parser"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("symbex.semantic")

// Model is the result of resolving one compilation unit. It implements Info.
type Model struct {
	File    string
	Package string

	symbols   map[*parser.Node]*Symbol
	types     map[*parser.Node]string
	constants map[*parser.Node]Constant
	methods   []*Method
}

func (m *Model) SymbolOf(n *parser.Node) *Symbol {
	if n == nil {
		return nil
	}
	if sym, ok := m.symbols[n]; ok {
		return sym
	}
	if n.Kind == parser.KindParenExpr {
		return m.SymbolOf(n.Child(0))
	}
	return nil
}

func (m *Model) TypeOf(n *parser.Node) string {
	if n == nil {
		return ""
	}
	if t, ok := m.types[n]; ok {
		return t
	}
	switch n.Kind {
	case parser.KindParenExpr:
		return m.TypeOf(n.Child(0))
	}
	if sym := m.symbols[n]; sym != nil {
		return sym.Type
	}
	return ""
}

func (m *Model) ConstantOf(n *parser.Node) (Constant, bool) {
	if n == nil {
		return Constant{}, false
	}
	if c, ok := m.constants[n]; ok {
		return c, true
	}
	if n.Kind == parser.KindParenExpr {
		return m.ConstantOf(n.Child(0))
	}
	return Constant{}, false
}

// Methods lists every method, constructor and initializer body found in
// the unit, in source order.
func (m *Model) Methods() []*Method {
	return m.methods
}

// Resolve binds every name used in unit. It never fails: names that cannot
// be resolved simply have no symbol.
func Resolve(unit *parser.Node, file string) *Model {
	m := &Model{
		File:      file,
		symbols:   make(map[*parser.Node]*Symbol),
		types:     make(map[*parser.Node]string),
		constants: make(map[*parser.Node]Constant),
	}
	if unit == nil {
		return m
	}
	m.Package = packageFromCompilationUnit(unit)

	r := &resolver{
		model:   m,
		types:   newTypeResolver(m.Package, importsFromCompilationUnit(unit)),
		statics: make(map[string]*Symbol),
		members: make(map[string]map[string]*Symbol),
		consts:  make(map[*Symbol]Constant),
	}

	var implicit []*parser.Node
	for _, child := range unit.Children {
		if isTypeDecl(child) {
			r.registerTypes(child, m.Package)
		}
	}
	for _, child := range unit.Children {
		switch {
		case isTypeDecl(child):
			r.typeDecl(child, qualify(m.Package, declName(child)), true)
		case child.Kind == parser.KindPackageDecl, child.Kind == parser.KindImportDecl,
			child.Kind == parser.KindModuleImportDecl, child.Kind == parser.KindError:
		default:
			implicit = append(implicit, child)
		}
	}
	if len(implicit) > 0 {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		r.classBody(implicit, qualify(m.Package, name), true)
	}

	log.Debugf("%s: %d methods, %d symbols", file, len(m.methods), r.nextID)
	return m
}

type scope struct {
	names map[string]*Symbol
	class string
}

type resolver struct {
	model   *Model
	types   *typeResolver
	scopes  []*scope
	statics map[string]*Symbol
	members map[string]map[string]*Symbol // class -> declared fields and constants
	consts  map[*Symbol]Constant
	nextID  int
}

func (r *resolver) push(class string) {
	r.scopes = append(r.scopes, &scope{names: make(map[string]*Symbol), class: class})
}

func (r *resolver) pop() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *resolver) declare(sym *Symbol) {
	if len(r.scopes) == 0 || sym.Name == "" {
		return
	}
	top := r.scopes[len(r.scopes)-1]
	top.names[sym.Name] = sym
	if top.class != "" {
		if r.members[top.class] == nil {
			r.members[top.class] = make(map[string]*Symbol)
		}
		r.members[top.class][sym.Name] = sym
	}
}

func (r *resolver) lookup(name string) *Symbol {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if sym, ok := r.scopes[i].names[name]; ok {
			return sym
		}
	}
	return nil
}

// field finds a field of the innermost enclosing class.
func (r *resolver) field(name string) *Symbol {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if r.scopes[i].class == "" {
			continue
		}
		if sym, ok := r.scopes[i].names[name]; ok && sym.Kind == SymbolField {
			return sym
		}
		return nil
	}
	return nil
}

// member finds a field or enum constant declared by the given class.
func (r *resolver) member(class, name string) *Symbol {
	return r.members[class][name]
}

func (r *resolver) currentClass() string {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if r.scopes[i].class != "" {
			return r.scopes[i].class
		}
	}
	return ""
}

func (r *resolver) newSymbol(name string, kind SymbolKind, typ string, decl *parser.Node) *Symbol {
	r.nextID++
	return &Symbol{ID: r.nextID, Name: name, Kind: kind, Type: typ, Decl: decl}
}

// staticMember interns the symbol for owner.name so that every spelling of
// the same static field resolves to one identity.
func (r *resolver) staticMember(owner, name string) *Symbol {
	if sym := r.member(owner, name); sym != nil {
		return sym
	}
	key := owner + "." + name
	if sym, ok := r.statics[key]; ok {
		return sym
	}
	sym := r.newSymbol(name, SymbolStaticMember, "", nil)
	sym.Owner = owner
	r.statics[key] = sym
	return sym
}

func (r *resolver) typeRef(qualified string) *Symbol {
	key := "type " + qualified
	if sym, ok := r.statics[key]; ok {
		return sym
	}
	sym := r.newSymbol(lastSegment(qualified), SymbolTypeRef, qualified, nil)
	r.statics[key] = sym
	return sym
}

func (r *resolver) bind(n *parser.Node, sym *Symbol) {
	if n == nil || sym == nil {
		return
	}
	r.model.symbols[n] = sym
	if c, ok := r.consts[sym]; ok {
		r.model.constants[n] = c
	}
}

func (r *resolver) registerTypes(node *parser.Node, outer string) {
	name := declName(node)
	if name == "" {
		return
	}
	full := qualify(outer, name)
	r.types.registerInnerClass(name, full)
	for _, member := range classMembers(node) {
		if isTypeDecl(member) {
			r.registerTypes(member, full)
		}
	}
}

func (r *resolver) typeDecl(node *parser.Node, class string, enumerate bool) {
	r.push(class)
	defer r.pop()

	if node.Kind == parser.KindRecordDecl {
		if components := node.FirstChildOfKind(parser.KindParameters); components != nil {
			for _, param := range components.ChildrenOfKind(parser.KindParameter) {
				id := param.DeclaredName()
				if id == nil {
					continue
				}
				sym := r.newSymbol(id.TokenLiteral(), SymbolField, r.types.typeName(typeChild(param)), id)
				sym.Owner = class
				sym.Final = true
				r.declare(sym)
				r.bind(id, sym)
			}
		}
	}
	r.memberDecls(classMembers(node), class, enumerate)
}

func (r *resolver) classBody(members []*parser.Node, class string, enumerate bool) {
	r.push(class)
	defer r.pop()
	r.memberDecls(members, class, enumerate)
}

func (r *resolver) memberDecls(members []*parser.Node, class string, enumerate bool) {
	// Fields first: methods may refer to fields declared after them.
	for _, member := range members {
		if member.Kind != parser.KindFieldDecl {
			continue
		}
		if isEnumConstant(member) {
			if id := member.FirstChildOfKind(parser.KindIdentifier); id != nil {
				sym := r.newSymbol(id.TokenLiteral(), SymbolStaticMember, class, id)
				sym.Owner = class
				sym.Final = true
				r.declare(sym)
				r.bind(id, sym)
			}
			continue
		}
		r.fieldDecl(member, class)
	}

	for _, member := range members {
		switch member.Kind {
		case parser.KindFieldDecl:
			if isEnumConstant(member) {
				if args := member.FirstChildOfKind(parser.KindParameters); args != nil {
					r.exprs(args.Children)
				}
				if body := member.FirstChildOfKind(parser.KindBlock); body != nil {
					r.classBody(body.Children, class+"."+declName(member), enumerate)
				}
				continue
			}
			for _, d := range member.ChildrenOfKind(parser.KindVariableDeclarator) {
				if init := d.Initializer(); init != nil {
					r.expr(init)
				}
			}
		case parser.KindMethodDecl:
			r.method(member, class, MethodRegular, enumerate)
		case parser.KindConstructorDecl:
			r.method(member, class, MethodConstructor, enumerate)
		case parser.KindBlock:
			r.initializer(member, class, enumerate)
		default:
			if isTypeDecl(member) {
				r.typeDecl(member, class+"."+declName(member), enumerate)
			}
		}
	}
}

func (r *resolver) fieldDecl(node *parser.Node, class string) {
	final := hasModifier(node, "final")
	typ := r.types.typeName(typeChild(node))
	for _, d := range node.ChildrenOfKind(parser.KindVariableDeclarator) {
		id := d.DeclaredName()
		if id == nil || id.Kind != parser.KindIdentifier {
			continue
		}
		sym := r.newSymbol(id.TokenLiteral(), SymbolField, typ, id)
		sym.Owner = class
		sym.Final = final
		if final {
			if c, ok := literalConstant(d.Initializer()); ok {
				r.consts[sym] = c
			}
		}
		r.declare(sym)
		r.bind(d, sym)
		r.bind(id, sym)
	}
}

func (r *resolver) method(node *parser.Node, class string, kind MethodKind, enumerate bool) {
	r.push("")
	defer r.pop()

	var params []*Symbol
	if list := node.FirstChildOfKind(parser.KindParameters); list != nil {
		params = r.parameters(list)
	}
	body := node.FirstChildOfKind(parser.KindBlock)
	if body != nil {
		r.stmt(body)
	}
	if !enumerate {
		return
	}
	name := declName(node)
	r.model.methods = append(r.model.methods, &Method{
		Name:   name,
		Class:  class,
		Kind:   kind,
		Decl:   node,
		Body:   body,
		Params: params,
		Line:   node.Span.Start.Line,
	})
}

func (r *resolver) initializer(node *parser.Node, class string, enumerate bool) {
	body, name := node, "<init>"
	if first := node.Child(0); first != nil && first.Kind == parser.KindIdentifier && first.TokenLiteral() == "static" {
		body, name = node.FirstChildOfKind(parser.KindBlock), "<clinit>"
	}
	if body == nil {
		return
	}
	r.push("")
	r.stmt(body)
	r.pop()
	if enumerate {
		r.model.methods = append(r.model.methods, &Method{
			Name:  name,
			Class: class,
			Kind:  MethodInitializer,
			Decl:  node,
			Body:  body,
			Line:  node.Span.Start.Line,
		})
	}
}

func (r *resolver) parameters(list *parser.Node) []*Symbol {
	var params []*Symbol
	for _, param := range list.Children {
		switch param.Kind {
		case parser.KindParameter:
			id := param.DeclaredName()
			if id == nil || id.Kind != parser.KindIdentifier {
				continue
			}
			typ := r.types.typeName(typeChild(param))
			for _, c := range param.ChildrenOfKind(parser.KindIdentifier) {
				if c.TokenLiteral() == "..." {
					typ += "[]"
				}
			}
			sym := r.newSymbol(id.TokenLiteral(), SymbolParameter, typ, id)
			sym.Final = hasModifier(param, "final")
			r.declare(sym)
			r.bind(param, sym)
			r.bind(id, sym)
			params = append(params, sym)
		case parser.KindIdentifier:
			// Untyped lambda parameter.
			sym := r.newSymbol(param.TokenLiteral(), SymbolParameter, "", param)
			r.declare(sym)
			r.bind(param, sym)
			params = append(params, sym)
		}
	}
	return params
}

func (r *resolver) localVarDecl(node *parser.Node) {
	final := hasModifier(node, "final")
	typ := r.types.typeName(typeChild(node))
	for _, d := range node.ChildrenOfKind(parser.KindVariableDeclarator) {
		init := d.Initializer()
		if init != nil {
			r.expr(init)
		}
		id := d.DeclaredName()
		if id == nil || id.Kind != parser.KindIdentifier {
			continue
		}
		declared := typ
		if declared == "var" {
			declared = r.model.TypeOf(init)
		}
		sym := r.newSymbol(id.TokenLiteral(), SymbolLocal, declared, id)
		sym.Final = final
		if final {
			if c, ok := r.model.ConstantOf(init); ok {
				r.consts[sym] = c
			}
		}
		r.declare(sym)
		r.bind(d, sym)
		r.bind(id, sym)
	}
}

func (r *resolver) stmt(n *parser.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case parser.KindBlock:
		r.push("")
		for _, child := range n.Children {
			r.stmt(child)
		}
		r.pop()
	case parser.KindLocalVarDecl:
		r.localVarDecl(n)
	case parser.KindLocalClassDecl:
		for _, decl := range n.Children {
			name := declName(decl)
			class := r.currentClass() + "." + name
			r.types.registerInnerClass(name, class)
			r.typeDecl(decl, class, true)
		}
	case parser.KindLabeledStmt:
		r.stmt(n.Child(1))
	case parser.KindIfStmt, parser.KindWhileStmt, parser.KindDoStmt, parser.KindSynchronizedStmt:
		for _, child := range n.Children {
			if isStatement(child) {
				r.stmt(child)
			} else {
				r.expr(child)
			}
		}
	case parser.KindForStmt:
		r.push("")
		for _, child := range n.Children {
			switch child.Kind {
			case parser.KindForInit, parser.KindForUpdate:
				for _, c := range child.Children {
					r.stmt(c)
				}
			default:
				if isStatement(child) {
					r.stmt(child)
				} else {
					r.expr(child)
				}
			}
		}
		r.pop()
	case parser.KindEnhancedForStmt:
		r.push("")
		r.expr(n.Child(3))
		if d := n.FirstChildOfKind(parser.KindVariableDeclarator); d != nil {
			if id := d.DeclaredName(); id != nil && id.Kind == parser.KindIdentifier {
				typ := r.types.typeName(typeChild(n))
				if typ == "var" {
					typ = ""
				}
				sym := r.newSymbol(id.TokenLiteral(), SymbolLocal, typ, id)
				sym.Final = hasModifier(n, "final")
				r.declare(sym)
				r.bind(d, sym)
				r.bind(id, sym)
			}
		}
		r.stmt(n.Child(4))
		r.pop()
	case parser.KindSwitchStmt:
		r.switchBlock(n)
	case parser.KindTryStmt:
		r.push("")
		for _, child := range n.Children {
			switch child.Kind {
			case parser.KindCatchClause:
				r.catchClause(child)
			case parser.KindFinallyClause:
				r.stmt(child.Child(0))
			default:
				if isStatement(child) {
					r.stmt(child)
				} else {
					r.expr(child)
				}
			}
		}
		r.pop()
	case parser.KindExplicitConstructorInvocation:
		for _, child := range n.Children {
			switch child.Kind {
			case parser.KindThis, parser.KindSuper, parser.KindTypeArguments:
			case parser.KindParameters:
				r.exprs(child.Children)
			default:
				r.expr(child)
			}
		}
	case parser.KindBreakStmt, parser.KindContinueStmt, parser.KindEmptyStmt, parser.KindError:
	default:
		// ExprStmt, ReturnStmt, ThrowStmt, YieldStmt, AssertStmt.
		if isStatement(n) {
			r.exprs(n.Children)
			return
		}
		r.expr(n)
	}
}

func (r *resolver) catchClause(n *parser.Node) {
	r.push("")
	defer r.pop()
	if id := n.DeclaredName(); id != nil && id.Kind == parser.KindIdentifier {
		sym := r.newSymbol(id.TokenLiteral(), SymbolCatchParameter, r.types.typeName(typeChild(n)), id)
		r.declare(sym)
		r.bind(n, sym)
		r.bind(id, sym)
	}
	r.stmt(n.FirstChildOfKind(parser.KindBlock))
}

func (r *resolver) switchBlock(n *parser.Node) {
	r.expr(n.Child(0))
	r.push("")
	defer r.pop()
	for _, c := range n.ChildrenOfKind(parser.KindSwitchCase) {
		if c.IsArrowCase() {
			r.push("")
		}
		for _, child := range c.Children {
			if child.Kind == parser.KindSwitchLabel {
				r.switchLabel(child)
				continue
			}
			if isStatement(child) {
				r.stmt(child)
			} else {
				r.expr(child)
			}
		}
		if c.IsArrowCase() {
			r.pop()
		}
	}
}

func (r *resolver) switchLabel(label *parser.Node) {
	for _, child := range label.Children {
		switch child.Kind {
		case parser.KindTypePattern, parser.KindRecordPattern:
			r.pattern(child)
		case parser.KindGuard:
			r.expr(child.Child(0))
		case parser.KindIdentifier:
			// Enum constants in case labels are written unqualified.
			if sym := r.lookup(child.TokenLiteral()); sym != nil {
				r.bind(child, sym)
			}
		case parser.KindMatchAllPattern:
		default:
			r.expr(child)
		}
	}
}

func (r *resolver) pattern(n *parser.Node) {
	switch n.Kind {
	case parser.KindTypePattern:
		id := n.FirstChildOfKind(parser.KindIdentifier)
		if id == nil {
			return
		}
		sym := r.newSymbol(id.TokenLiteral(), SymbolPatternVariable, r.types.typeName(typeChild(n)), id)
		r.declare(sym)
		r.bind(n, sym)
		r.bind(id, sym)
	case parser.KindRecordPattern:
		for _, child := range n.Children {
			r.pattern(child)
		}
	}
}

func (r *resolver) exprs(nodes []*parser.Node) {
	for _, n := range nodes {
		r.expr(n)
	}
}

func (r *resolver) expr(n *parser.Node) {
	if n == nil {
		return
	}
	m := r.model
	switch n.Kind {
	case parser.KindLiteral:
		if c, ok := literalConstant(n); ok {
			m.constants[n] = c
		}
		m.types[n] = literalType(n)
	case parser.KindIdentifier:
		r.identifier(n)
	case parser.KindThis:
		m.types[n] = r.currentClass()
	case parser.KindFieldAccess:
		r.fieldAccess(n)
	case parser.KindCallExpr:
		if target := n.Child(0); target.Kind == parser.KindFieldAccess {
			r.expr(target.Child(0))
		}
		r.exprs(n.Arguments())
	case parser.KindNewExpr:
		r.newExpr(n)
	case parser.KindNewArrayExpr:
		for i, child := range n.Children {
			if i == 0 {
				m.types[n] = r.types.typeName(child) + "[]"
				continue
			}
			if child.Kind != parser.KindAnnotation {
				r.expr(child)
			}
		}
	case parser.KindUnaryExpr:
		operand := n.Operand()
		r.expr(operand)
		if c, ok := m.constants[operand]; ok {
			if folded, ok := foldUnary(n.Operator(), c); ok {
				m.constants[n] = folded
			}
		}
		if n.Operator() == "!" {
			m.types[n] = "boolean"
		} else {
			m.types[n] = m.TypeOf(operand)
		}
	case parser.KindPostfixExpr:
		r.expr(n.Operand())
		m.types[n] = m.TypeOf(n.Operand())
	case parser.KindBinaryExpr:
		r.expr(n.Child(0))
		r.expr(n.Child(2))
		m.types[n] = binaryType(n.Operator(), m.TypeOf(n.Child(0)), m.TypeOf(n.Child(2)))
	case parser.KindAssignExpr:
		r.expr(n.Child(0))
		r.expr(n.Child(2))
		m.types[n] = m.TypeOf(n.Child(0))
	case parser.KindCastExpr:
		m.types[n] = r.types.typeName(n.Child(0))
		r.expr(n.Child(1))
	case parser.KindInstanceofExpr:
		r.expr(n.Child(0))
		if id := n.Child(2); id != nil && id.Kind == parser.KindIdentifier {
			sym := r.newSymbol(id.TokenLiteral(), SymbolPatternVariable, r.types.typeName(n.Child(1)), id)
			r.declare(sym)
			r.bind(n, sym)
			r.bind(id, sym)
		}
		m.types[n] = "boolean"
	case parser.KindLambdaExpr:
		r.push("")
		if params := n.FirstChildOfKind(parser.KindParameters); params != nil {
			r.parameters(params)
		}
		if body := n.LastChild(); body != nil && body.Kind == parser.KindBlock {
			r.stmt(body)
		} else {
			r.expr(body)
		}
		r.pop()
	case parser.KindMethodRef:
		r.expr(n.Child(0))
	case parser.KindClassLiteral:
		m.types[n] = "java.lang.Class"
	case parser.KindSwitchExpr:
		r.switchBlock(n)
	case parser.KindParenExpr:
		r.expr(n.Child(0))
	case parser.KindType, parser.KindArrayType, parser.KindQualifiedName,
		parser.KindTypeArguments, parser.KindAnnotation, parser.KindSuper, parser.KindError:
	default:
		// ArrayAccess, ArrayInit, TernaryExpr and anything else: plain
		// traversal.
		r.exprs(n.Children)
		if n.Kind == parser.KindTernaryExpr {
			m.types[n] = m.TypeOf(n.Child(1))
		}
	}
}

func (r *resolver) identifier(n *parser.Node) {
	name := n.TokenLiteral()
	if sym := r.lookup(name); sym != nil {
		r.bind(n, sym)
		return
	}
	if owner, ok := r.types.staticImport(name); ok {
		r.bind(n, r.staticMember(owner, name))
		return
	}
	if isTypeLikeName(name) {
		sym := r.typeRef(r.types.resolve(name))
		r.bind(n, sym)
		r.model.types[n] = sym.Type
	}
}

func (r *resolver) fieldAccess(n *parser.Node) {
	target, member := n.Child(0), n.LastChild()
	if member == nil || member.Kind != parser.KindIdentifier {
		r.expr(target)
		return
	}
	name := member.TokenLiteral()

	if target.Kind == parser.KindThis {
		r.model.types[target] = r.currentClass()
		if sym := r.field(name); sym != nil {
			r.bind(n, sym)
		}
		return
	}

	r.expr(target)
	if ts := r.model.symbols[target]; ts != nil {
		if ts.Kind != SymbolTypeRef {
			return
		}
		if isTypeLikeName(name) && !isConstantLikeName(name) {
			sym := r.typeRef(ts.Type + "." + name)
			r.bind(n, sym)
			r.model.types[n] = sym.Type
			return
		}
		r.bind(n, r.staticMember(ts.Type, name))
		return
	}
	if path, ok := r.packagePath(target); ok && isTypeLikeName(name) {
		sym := r.typeRef(path + "." + name)
		r.bind(n, sym)
		r.model.types[n] = sym.Type
	}
}

// packagePath reports the dotted name of an unresolved identifier chain,
// such as the "java.nio.file" prefix of a fully qualified type.
func (r *resolver) packagePath(n *parser.Node) (string, bool) {
	if r.model.symbols[n] != nil {
		return "", false
	}
	switch n.Kind {
	case parser.KindIdentifier:
		return n.TokenLiteral(), true
	case parser.KindFieldAccess:
		member := n.LastChild()
		if member == nil || member.Kind != parser.KindIdentifier {
			return "", false
		}
		prefix, ok := r.packagePath(n.Child(0))
		if !ok {
			return "", false
		}
		return prefix + "." + member.TokenLiteral(), true
	}
	return "", false
}

func (r *resolver) newExpr(n *parser.Node) {
	m := r.model
	var typ string
	for _, child := range n.Children {
		switch child.Kind {
		case parser.KindQualifiedName:
			typ = r.types.typeName(child)
		case parser.KindIdentifier:
			// Inner creation: outer.new Inner(...).
			typ = r.types.resolve(child.TokenLiteral())
		case parser.KindParameters:
			r.exprs(child.Children)
		case parser.KindBlock:
			r.classBody(child.Children, r.currentClass()+"$"+lastSegment(typ), false)
		case parser.KindTypeArguments:
		default:
			r.expr(child)
		}
	}
	m.types[n] = typ
}

func declName(node *parser.Node) string {
	switch node.Kind {
	case parser.KindLocalClassDecl:
		return declName(node.Child(0))
	}
	if id := node.FirstChildOfKind(parser.KindIdentifier); id != nil {
		return id.TokenLiteral()
	}
	return ""
}

func qualify(outer, name string) string {
	if outer == "" {
		return name
	}
	return outer + "." + name
}

func isTypeDecl(n *parser.Node) bool {
	switch n.Kind {
	case parser.KindClassDecl, parser.KindInterfaceDecl, parser.KindEnumDecl,
		parser.KindRecordDecl, parser.KindAnnotationDecl:
		return true
	}
	return false
}

// classMembers returns the body declarations of a type. Enum declarations
// keep their constants and members as direct children; the others wrap
// them in a Block.
func classMembers(node *parser.Node) []*parser.Node {
	if node.Kind == parser.KindEnumDecl {
		var members []*parser.Node
		for _, child := range node.Children {
			switch child.Kind {
			case parser.KindModifiers, parser.KindIdentifier, parser.KindType:
			default:
				members = append(members, child)
			}
		}
		return members
	}
	if body := node.FirstChildOfKind(parser.KindBlock); body != nil {
		return body.Children
	}
	return nil
}

// isEnumConstant checks if a FieldDecl is an enum constant: those have no
// Type child.
func isEnumConstant(node *parser.Node) bool {
	return node.Kind == parser.KindFieldDecl && typeChild(node) == nil
}

func typeChild(node *parser.Node) *parser.Node {
	for _, child := range node.Children {
		if child.Kind == parser.KindType || child.Kind == parser.KindArrayType {
			return child
		}
	}
	return nil
}

func hasModifier(node *parser.Node, modifier string) bool {
	mods := node.FirstChildOfKind(parser.KindModifiers)
	if mods == nil {
		return false
	}
	for _, child := range mods.Children {
		if child.TokenLiteral() == modifier {
			return true
		}
	}
	return false
}

func isStatement(n *parser.Node) bool {
	switch n.Kind {
	case parser.KindBlock, parser.KindEmptyStmt, parser.KindExprStmt, parser.KindIfStmt,
		parser.KindForStmt, parser.KindEnhancedForStmt, parser.KindWhileStmt, parser.KindDoStmt,
		parser.KindSwitchStmt, parser.KindReturnStmt, parser.KindBreakStmt, parser.KindContinueStmt,
		parser.KindThrowStmt, parser.KindTryStmt, parser.KindSynchronizedStmt, parser.KindAssertStmt,
		parser.KindLabeledStmt, parser.KindLocalVarDecl, parser.KindLocalClassDecl, parser.KindYieldStmt,
		parser.KindExplicitConstructorInvocation:
		return true
	}
	return false
}
