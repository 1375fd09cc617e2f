package token

type TokenType string

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	// Identifiers + literals
	IDENT  = "IDENT"  // listGet, compareEqual, i, ...
	NUMBER = "NUMBER" // 12, -3.5, 1e3
	STRING = "STRING" // "foobar"

	// Delimiters
	LPAREN = "("
	RPAREN = ")"

	// Keywords
	TRUE  = "TRUE"
	FALSE = "FALSE"
	NIL   = "NIL"
)

type Token struct {
	Type     TokenType
	Literal  string
	Position int // the src index of the token
	Line     int
}

var keywords = map[string]TokenType{
	"nil":   NIL,
	"true":  TRUE,
	"false": FALSE,
}

func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
