package lexer

import (
	"testing"
	"tickvm/internal/token"
)

func TestNextToken(t *testing.T) {
	input := `; header comment
(let i -1.5e2)
(listGet (list "my \"list\"") last)
(if true nil false) )`

	tests := []struct {
		expectedType    token.TokenType
		expectedLiteral string
		expectedLine    int
	}{
		{token.LPAREN, "(", 2},
		{token.IDENT, "let", 2},
		{token.IDENT, "i", 2},
		{token.NUMBER, "-1.5e2", 2},
		{token.RPAREN, ")", 2},
		{token.LPAREN, "(", 3},
		{token.IDENT, "listGet", 3},
		{token.LPAREN, "(", 3},
		{token.IDENT, "list", 3},
		{token.STRING, `my "list"`, 3},
		{token.RPAREN, ")", 3},
		{token.IDENT, "last", 3},
		{token.RPAREN, ")", 3},
		{token.LPAREN, "(", 4},
		{token.IDENT, "if", 4},
		{token.TRUE, "true", 4},
		{token.NIL, "nil", 4},
		{token.FALSE, "false", 4},
		{token.RPAREN, ")", 4},
		{token.RPAREN, ")", 4},
		{token.EOF, "", 4},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (%q)", i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
		if tok.Line != tt.expectedLine {
			t.Fatalf("tests[%d] - line wrong. expected=%d, got=%d", i, tt.expectedLine, tok.Line)
		}
	}
}

func TestIdentifiersThatLookNumeric(t *testing.T) {
	for _, in := range []string{"-", "+", "1a", "x1", "1.2.3"} {
		tok := New(in).NextToken()
		if tok.Type != token.IDENT {
			t.Errorf("%q lexed as %s", in, tok.Type)
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	tok := New(`"never closed`).NextToken()
	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %s", tok.Type)
	}
}
