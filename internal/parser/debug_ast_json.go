package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"tickvm/internal/ast"
)

// WalkAST serializes an AST into a machine-centric map structure for
// tooling that inspects generated scripts.
func WalkAST(node ast.Node) interface{} {
	if node == nil || (reflect.ValueOf(node).Kind() == reflect.Ptr && reflect.ValueOf(node).IsNil()) {
		return nil
	}

	switch n := node.(type) {
	case *ast.Script:
		forms := make([]interface{}, len(n.Forms))
		for i, f := range n.Forms {
			forms[i] = WalkAST(f)
		}
		return map[string]interface{}{
			"type":  "Script",
			"forms": forms,
		}

	case *ast.Form:
		items := make([]interface{}, len(n.Items))
		for i, item := range n.Items {
			items[i] = WalkAST(item)
		}
		head, _ := n.Head()
		return map[string]interface{}{
			"type":  "Form",
			"line":  n.Token.Line,
			"head":  head,
			"items": items,
		}

	case *ast.Identifier:
		return map[string]interface{}{
			"type": "Identifier",
			"name": n.Value,
		}

	case *ast.NumberLiteral:
		return map[string]interface{}{
			"type":  "NumberLiteral",
			"token": n.TokenLiteral(),
			"value": n.Value,
		}

	case *ast.StringLiteral:
		return map[string]interface{}{
			"type":  "StringLiteral",
			"value": n.Value,
		}

	case *ast.Boolean:
		return map[string]interface{}{
			"type":  "Boolean",
			"value": n.Value,
		}

	case *ast.Nil:
		return map[string]interface{}{
			"type": "Nil",
		}

	default:
		return map[string]interface{}{
			"type": "Unknown",
			"node": fmt.Sprintf("%T", n),
		}
	}
}

func RenderASTAsJSON(node ast.Node) (string, error) {
	astMap := WalkAST(node)
	buf := new(bytes.Buffer)
	encoder := json.NewEncoder(buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(astMap); err != nil {
		return "", fmt.Errorf("failed to encode JSON: %v", err)
	}
	return buf.String(), nil
}
