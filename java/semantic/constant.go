package semantic

import (
	"strings"

	"github.com/dhamidi/symbex/java/parser"
)

// literalConstant returns the compile-time value of a literal, possibly
// negated, such as the initializer of a final field.
func literalConstant(n *parser.Node) (Constant, bool) {
	n = parser.Unparen(n)
	if n == nil {
		return Constant{}, false
	}
	if n.Kind == parser.KindUnaryExpr {
		c, ok := literalConstant(n.Operand())
		if !ok {
			return Constant{}, false
		}
		return foldUnary(n.Operator(), c)
	}
	if n.Kind != parser.KindLiteral || n.Token == nil {
		return Constant{}, false
	}
	switch n.Token.Kind {
	case parser.TokenNull:
		return Constant{Kind: ConstantNull}, true
	case parser.TokenTrue:
		return Constant{Kind: ConstantBool, Bool: true, Text: "true"}, true
	case parser.TokenFalse:
		return Constant{Kind: ConstantBool, Bool: false, Text: "false"}, true
	case parser.TokenIntLiteral:
		return Constant{Kind: ConstantInt, Text: n.Token.Literal}, true
	case parser.TokenFloatLiteral:
		return Constant{Kind: ConstantFloat, Text: n.Token.Literal}, true
	case parser.TokenCharLiteral:
		return Constant{Kind: ConstantChar, Text: n.Token.Literal}, true
	case parser.TokenStringLiteral, parser.TokenTextBlock:
		return Constant{Kind: ConstantString, Text: n.Token.Literal}, true
	}
	return Constant{}, false
}

func foldUnary(op string, c Constant) (Constant, bool) {
	switch op {
	case "!":
		if c.Kind == ConstantBool {
			return Constant{Kind: ConstantBool, Bool: !c.Bool, Text: boolText(!c.Bool)}, true
		}
	case "-":
		if c.Kind == ConstantInt || c.Kind == ConstantFloat {
			if strings.HasPrefix(c.Text, "-") {
				return Constant{Kind: c.Kind, Text: c.Text[1:]}, true
			}
			return Constant{Kind: c.Kind, Text: "-" + c.Text}, true
		}
	case "+":
		if c.Kind == ConstantInt || c.Kind == ConstantFloat {
			return c, true
		}
	}
	return Constant{}, false
}

func boolText(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func literalType(n *parser.Node) string {
	if n.Token == nil {
		return ""
	}
	switch n.Token.Kind {
	case parser.TokenTrue, parser.TokenFalse:
		return "boolean"
	case parser.TokenIntLiteral:
		if strings.HasSuffix(n.Token.Literal, "L") || strings.HasSuffix(n.Token.Literal, "l") {
			return "long"
		}
		return "int"
	case parser.TokenFloatLiteral:
		if strings.HasSuffix(n.Token.Literal, "f") || strings.HasSuffix(n.Token.Literal, "F") {
			return "float"
		}
		return "double"
	case parser.TokenCharLiteral:
		return "char"
	case parser.TokenStringLiteral, parser.TokenTextBlock:
		return "java.lang.String"
	case parser.TokenNull:
		return "null"
	}
	return ""
}

func binaryType(op, left, right string) string {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=", "&&", "||":
		return "boolean"
	case "+":
		if left == "java.lang.String" || right == "java.lang.String" {
			return "java.lang.String"
		}
	case "&", "|", "^":
		if left == "boolean" && right == "boolean" {
			return "boolean"
		}
	}
	if left == right {
		return left
	}
	return ""
}
