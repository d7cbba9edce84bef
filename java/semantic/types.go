package semantic

import (
	"strings"

	"github.com/dhamidi/symbex/java/parser"
)

func packageFromCompilationUnit(cu *parser.Node) string {
	pkgDecl := cu.FirstChildOfKind(parser.KindPackageDecl)
	if pkgDecl == nil {
		return ""
	}
	qn := pkgDecl.FirstChildOfKind(parser.KindQualifiedName)
	if qn == nil {
		return ""
	}
	return qualifiedNameToString(qn)
}

func qualifiedNameToString(qn *parser.Node) string {
	var parts []string
	for _, child := range qn.Children {
		if child.Kind == parser.KindIdentifier && child.Token != nil {
			parts = append(parts, child.Token.Literal)
		}
	}
	return strings.Join(parts, ".")
}

type importInfo struct {
	qualifiedName string
	isStatic      bool
	isWildcard    bool
}

func (imp importInfo) simpleName() string {
	return lastSegment(imp.qualifiedName)
}

func importsFromCompilationUnit(cu *parser.Node) []importInfo {
	var imports []importInfo
	for _, child := range cu.Children {
		if child.Kind != parser.KindImportDecl {
			continue
		}
		imp := importInfo{}
		for _, ic := range child.Children {
			switch {
			case ic.Kind == parser.KindIdentifier && ic.TokenLiteral() == "static":
				imp.isStatic = true
			case ic.Kind == parser.KindIdentifier && ic.TokenLiteral() == "*":
				imp.isWildcard = true
			case ic.Kind == parser.KindQualifiedName:
				imp.qualifiedName = qualifiedNameToString(ic)
			}
		}
		imports = append(imports, imp)
	}
	return imports
}

var javaLangTypes = map[string]bool{
	"Object": true, "String": true, "Class": true, "System": true,
	"Throwable": true, "Exception": true, "RuntimeException": true, "Error": true,
	"Integer": true, "Long": true, "Short": true, "Byte": true,
	"Float": true, "Double": true, "Character": true, "Boolean": true,
	"Number": true, "Comparable": true, "CharSequence": true,
	"Iterable": true, "Cloneable": true, "Runnable": true,
	"Thread": true, "StringBuilder": true, "StringBuffer": true,
	"Math": true, "Enum": true, "Record": true, "AutoCloseable": true,
	"NullPointerException": true, "IllegalArgumentException": true,
	"IllegalStateException": true, "AssertionError": true,
	"Override": true, "Deprecated": true, "SuppressWarnings": true, "FunctionalInterface": true,
}

// wellKnownTypes maps simple names from the packages the detectors care
// about to their qualified form. They are used for wildcard imports and as
// a fallback when a snippet omits its imports.
var wellKnownTypes = map[string]string{
	"File":                 "java.io.File",
	"FileOutputStream":     "java.io.FileOutputStream",
	"FileInputStream":      "java.io.FileInputStream",
	"ObjectOutputStream":   "java.io.ObjectOutputStream",
	"ObjectInputStream":    "java.io.ObjectInputStream",
	"OutputStream":         "java.io.OutputStream",
	"InputStream":          "java.io.InputStream",
	"FileWriter":           "java.io.FileWriter",
	"FileReader":           "java.io.FileReader",
	"BufferedOutputStream": "java.io.BufferedOutputStream",
	"IOException":          "java.io.IOException",
	"Serializable":         "java.io.Serializable",
	"Closeable":            "java.io.Closeable",
	"Files":                "java.nio.file.Files",
	"Path":                 "java.nio.file.Path",
	"Paths":                "java.nio.file.Paths",
	"OpenOption":           "java.nio.file.OpenOption",
	"StandardOpenOption":   "java.nio.file.StandardOpenOption",
	"List":                 "java.util.List",
	"Map":                  "java.util.Map",
	"Objects":              "java.util.Objects",
	"Optional":             "java.util.Optional",
}

type typeResolver struct {
	pkg          string
	imports      []importInfo
	innerClasses map[string]string // simple name -> qualified name
}

func newTypeResolver(pkg string, imports []importInfo) *typeResolver {
	return &typeResolver{
		pkg:          pkg,
		imports:      imports,
		innerClasses: make(map[string]string),
	}
}

func (r *typeResolver) registerInnerClass(simpleName, fullName string) {
	if _, ok := r.innerClasses[simpleName]; !ok {
		r.innerClasses[simpleName] = fullName
	}
}

func (r *typeResolver) resolve(simpleName string) string {
	if simpleName == "" {
		return ""
	}

	if strings.Contains(simpleName, ".") {
		head, rest, _ := strings.Cut(simpleName, ".")
		if isTypeLikeName(head) {
			// Outer.Inner written relative to an imported or local type.
			return r.resolve(head) + "." + rest
		}
		return simpleName
	}

	switch simpleName {
	case "boolean", "byte", "char", "short", "int", "long", "float", "double", "void", "var":
		return simpleName
	}

	if fullName, ok := r.innerClasses[simpleName]; ok {
		return fullName
	}

	for _, imp := range r.imports {
		if imp.isWildcard || imp.isStatic {
			continue
		}
		if imp.simpleName() == simpleName {
			return imp.qualifiedName
		}
	}

	if known, ok := wellKnownTypes[simpleName]; ok {
		for _, imp := range r.imports {
			if imp.isWildcard && !imp.isStatic && imp.qualifiedName+"."+simpleName == known {
				return known
			}
		}
	}

	if javaLangTypes[simpleName] {
		return "java.lang." + simpleName
	}

	if known, ok := wellKnownTypes[simpleName]; ok {
		return known
	}

	if r.pkg != "" {
		return r.pkg + "." + simpleName
	}

	return simpleName
}

// staticImport finds the single-name static import that brings name into
// scope and returns the declaring type.
func (r *typeResolver) staticImport(name string) (string, bool) {
	for _, imp := range r.imports {
		if imp.isStatic && !imp.isWildcard && imp.simpleName() == name {
			return ownerOf(imp.qualifiedName), true
		}
	}
	if !isConstantLikeName(name) {
		return "", false
	}
	for _, imp := range r.imports {
		if imp.isStatic && imp.isWildcard {
			return imp.qualifiedName, true
		}
	}
	return "", false
}

// typeName returns the qualified name written by a Type node, without
// array dimensions or type arguments.
func (r *typeResolver) typeName(node *parser.Node) string {
	if node == nil {
		return ""
	}
	switch node.Kind {
	case parser.KindType:
		if node.Token != nil {
			return r.resolve(node.Token.Literal)
		}
		var parts []string
		for _, child := range node.Children {
			switch child.Kind {
			case parser.KindIdentifier:
				parts = append(parts, child.TokenLiteral())
			case parser.KindQualifiedName:
				parts = append(parts, qualifiedNameToString(child))
			case parser.KindType, parser.KindArrayType:
				// Intersection casts and union catch types keep the first.
				return r.typeName(child)
			}
		}
		return r.resolve(strings.Join(parts, "."))
	case parser.KindArrayType:
		for _, child := range node.Children {
			if child.Kind == parser.KindType || child.Kind == parser.KindArrayType {
				return r.typeName(child) + "[]"
			}
		}
	case parser.KindQualifiedName:
		return r.resolve(qualifiedNameToString(node))
	case parser.KindIdentifier:
		return r.resolve(node.TokenLiteral())
	}
	return ""
}

func lastSegment(qualified string) string {
	if i := strings.LastIndexByte(qualified, '.'); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}

func ownerOf(qualified string) string {
	if i := strings.LastIndexByte(qualified, '.'); i >= 0 {
		return qualified[:i]
	}
	return ""
}

func isTypeLikeName(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}

func isConstantLikeName(name string) bool {
	if !isTypeLikeName(name) {
		return false
	}
	for _, c := range name {
		if !(c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_') {
			return false
		}
	}
	return true
}
