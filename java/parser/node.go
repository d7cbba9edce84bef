package parser

import (
	"fmt"
	"strings"
)

type NodeKind int

const (
	KindError NodeKind = iota

	// Compilation unit level
	KindCompilationUnit
	KindPackageDecl
	KindImportDecl
	KindModuleImportDecl

	// Type declarations
	KindClassDecl
	KindInterfaceDecl
	KindEnumDecl
	KindRecordDecl
	KindAnnotationDecl

	// Members
	KindFieldDecl
	KindMethodDecl
	KindConstructorDecl
	KindReceiverParameter
	KindExplicitConstructorInvocation

	// Type and modifiers
	KindModifiers
	KindTypeParameters
	KindTypeParameter
	KindTypeArguments
	KindTypeArgument
	KindType
	KindArrayType
	KindParameterizedType
	KindWildcard
	KindAnnotation
	KindAnnotationElement

	// Type clauses (for class/interface declarations)
	KindExtendsClause
	KindImplementsClause
	KindPermitsClause

	// Method components
	KindParameters
	KindParameter
	KindThrowsList

	// Statements
	KindBlock
	KindEmptyStmt
	KindExprStmt
	KindIfStmt
	KindForStmt
	KindForInit
	KindForUpdate
	KindEnhancedForStmt
	KindWhileStmt
	KindDoStmt
	KindSwitchStmt
	KindSwitchCase
	KindSwitchLabel
	KindTypePattern
	KindRecordPattern
	KindMatchAllPattern
	KindUnnamedVariable
	KindGuard
	KindReturnStmt
	KindBreakStmt
	KindContinueStmt
	KindThrowStmt
	KindTryStmt
	KindCatchClause
	KindFinallyClause
	KindSynchronizedStmt
	KindAssertStmt
	KindLabeledStmt
	KindLocalVarDecl
	KindVariableDeclarator
	KindLocalClassDecl
	KindYieldStmt

	// Expressions
	KindAssignExpr
	KindTernaryExpr
	KindBinaryExpr
	KindUnaryExpr
	KindPostfixExpr
	KindCastExpr
	KindInstanceofExpr
	KindCallExpr
	KindMethodRef
	KindFieldAccess
	KindArrayAccess
	KindNewExpr
	KindNewArrayExpr
	KindArrayInit
	KindLambdaExpr
	KindParenExpr
	KindLiteral
	KindIdentifier
	KindQualifiedName
	KindThis
	KindSuper
	KindClassLiteral
	KindSwitchExpr
)

var nodeKindNames = map[NodeKind]string{
	KindError:                         "Error",
	KindCompilationUnit:               "CompilationUnit",
	KindPackageDecl:                   "PackageDecl",
	KindImportDecl:                    "ImportDecl",
	KindModuleImportDecl:              "ModuleImportDecl",
	KindClassDecl:                     "ClassDecl",
	KindInterfaceDecl:                 "InterfaceDecl",
	KindEnumDecl:                      "EnumDecl",
	KindRecordDecl:                    "RecordDecl",
	KindAnnotationDecl:                "AnnotationDecl",
	KindFieldDecl:                     "FieldDecl",
	KindMethodDecl:                    "MethodDecl",
	KindConstructorDecl:               "ConstructorDecl",
	KindReceiverParameter:             "ReceiverParameter",
	KindExplicitConstructorInvocation: "ExplicitConstructorInvocation",
	KindModifiers:                     "Modifiers",
	KindTypeParameters:                "TypeParameters",
	KindTypeParameter:                 "TypeParameter",
	KindTypeArguments:                 "TypeArguments",
	KindTypeArgument:                  "TypeArgument",
	KindType:                          "Type",
	KindArrayType:                     "ArrayType",
	KindParameterizedType:             "ParameterizedType",
	KindWildcard:                      "Wildcard",
	KindAnnotation:                    "Annotation",
	KindAnnotationElement:             "AnnotationElement",
	KindExtendsClause:                 "ExtendsClause",
	KindImplementsClause:              "ImplementsClause",
	KindPermitsClause:                 "PermitsClause",
	KindParameters:                    "Parameters",
	KindParameter:                     "Parameter",
	KindThrowsList:                    "ThrowsList",
	KindBlock:                         "Block",
	KindEmptyStmt:                     "EmptyStmt",
	KindExprStmt:                      "ExprStmt",
	KindIfStmt:                        "IfStmt",
	KindForStmt:                       "ForStmt",
	KindForInit:                       "ForInit",
	KindForUpdate:                     "ForUpdate",
	KindEnhancedForStmt:               "EnhancedForStmt",
	KindWhileStmt:                     "WhileStmt",
	KindDoStmt:                        "DoStmt",
	KindSwitchStmt:                    "SwitchStmt",
	KindSwitchCase:                    "SwitchCase",
	KindSwitchLabel:                   "SwitchLabel",
	KindTypePattern:                   "TypePattern",
	KindRecordPattern:                 "RecordPattern",
	KindMatchAllPattern:               "MatchAllPattern",
	KindUnnamedVariable:               "UnnamedVariable",
	KindGuard:                         "Guard",
	KindReturnStmt:                    "ReturnStmt",
	KindBreakStmt:                     "BreakStmt",
	KindContinueStmt:                  "ContinueStmt",
	KindThrowStmt:                     "ThrowStmt",
	KindTryStmt:                       "TryStmt",
	KindCatchClause:                   "CatchClause",
	KindFinallyClause:                 "FinallyClause",
	KindSynchronizedStmt:              "SynchronizedStmt",
	KindAssertStmt:                    "AssertStmt",
	KindLabeledStmt:                   "LabeledStmt",
	KindLocalVarDecl:                  "LocalVarDecl",
	KindVariableDeclarator:            "VariableDeclarator",
	KindLocalClassDecl:                "LocalClassDecl",
	KindYieldStmt:                     "YieldStmt",
	KindAssignExpr:                    "AssignExpr",
	KindTernaryExpr:                   "TernaryExpr",
	KindBinaryExpr:                    "BinaryExpr",
	KindUnaryExpr:                     "UnaryExpr",
	KindPostfixExpr:                   "PostfixExpr",
	KindCastExpr:                      "CastExpr",
	KindInstanceofExpr:                "InstanceofExpr",
	KindCallExpr:                      "CallExpr",
	KindMethodRef:                     "MethodRef",
	KindFieldAccess:                   "FieldAccess",
	KindArrayAccess:                   "ArrayAccess",
	KindNewExpr:                       "NewExpr",
	KindNewArrayExpr:                  "NewArrayExpr",
	KindArrayInit:                     "ArrayInit",
	KindLambdaExpr:                    "LambdaExpr",
	KindParenExpr:                     "ParenExpr",
	KindLiteral:                       "Literal",
	KindIdentifier:                    "Identifier",
	KindQualifiedName:                 "QualifiedName",
	KindThis:                          "This",
	KindSuper:                         "Super",
	KindClassLiteral:                  "ClassLiteral",
	KindSwitchExpr:                    "SwitchExpr",
}

func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

type Error struct {
	Message  string
	Expected []TokenKind
	Got      *Token
}

type Node struct {
	Kind        NodeKind
	Span        Span
	Children    []*Node
	Token       *Token
	Error       *Error
	isArrowCase bool
}

func (n *Node) AddChild(child *Node) {
	if child != nil {
		n.Children = append(n.Children, child)
	}
}

func (n *Node) IsError() bool {
	return n.Kind == KindError
}

func (n *Node) FirstChildOfKind(kind NodeKind) *Node {
	for _, child := range n.Children {
		if child.Kind == kind {
			return child
		}
	}
	return nil
}

func (n *Node) ChildrenOfKind(kind NodeKind) []*Node {
	var result []*Node
	for _, child := range n.Children {
		if child.Kind == kind {
			result = append(result, child)
		}
	}
	return result
}

func (n *Node) TokenLiteral() string {
	if n.Token != nil {
		return n.Token.Literal
	}
	return ""
}

// String renders the subtree one node per line, indented by depth, with
// the start position of each node. It is meant for test failure output.
func (n *Node) String() string {
	var b strings.Builder
	n.writeTree(&b, 0)
	return b.String()
}

func (n *Node) writeTree(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(b, "%s@%s", n.Kind, n.Span.Start)
	if n.Token != nil {
		b.WriteString(" " + n.Token.Literal)
	}
	if n.Error != nil {
		b.WriteString(" ERROR: " + n.Error.Message)
	}
	b.WriteByte('\n')
	for _, child := range n.Children {
		child.writeTree(b, depth+1)
	}
}
