package parser

import (
	"reflect"
	"strings"
	"tickvm/internal/ast"
)

// inlineWidth is the longest form printed on a single line.
const inlineWidth = 60

// RenderASTAsText produces an indented rendering of the AST. Short forms
// stay on one line; longer ones put each argument on its own line under the
// head.
func RenderASTAsText(node ast.Node, indent int) string {
	if node == nil || (reflect.ValueOf(node).Kind() == reflect.Ptr && reflect.ValueOf(node).IsNil()) {
		return "nil"
	}

	sp := strings.Repeat("  ", indent)

	switch n := node.(type) {
	case *ast.Script:
		var sb strings.Builder
		for i, f := range n.Forms {
			if i > 0 {
				sb.WriteString("\n")
			}
			// Root level forms start at indent 0
			sb.WriteString(RenderASTAsText(f, 0))
		}
		return sb.String()

	case *ast.Form:
		flat := n.String()
		if len(flat) <= inlineWidth || len(n.Items) < 2 {
			return sp + flat
		}
		var sb strings.Builder
		sb.WriteString(sp + "(" + n.Items[0].String())
		for _, item := range n.Items[1:] {
			sb.WriteString("\n")
			sb.WriteString(RenderASTAsText(item, indent+1))
		}
		sb.WriteString(")")
		return sb.String()

	default:
		return sp + n.String()
	}
}
