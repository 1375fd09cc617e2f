package parser

import (
	"fmt"
	"strconv"
	"tickvm/internal/ast"
	"tickvm/internal/lexer"
	"tickvm/internal/token"
)

// ParseError is one syntax error and the token it was reported at.
type ParseError struct {
	Token   token.Token
	Message string
}

func (e ParseError) String() string {
	return fmt.Sprintf("line %d (offset %d): %s", e.Token.Line, e.Token.Position, e.Message)
}

type Parser struct {
	l      *lexer.Lexer
	errors []ParseError

	curToken  token.Token
	peekToken token.Token
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l: l,
	}

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) Errors() []string {
	msgs := make([]string, len(p.errors))
	for i, e := range p.errors {
		msgs[i] = e.String()
	}
	return msgs
}

// Failures returns the errors with their positions.
func (p *Parser) Failures() []ParseError {
	return p.errors
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) addError(tok token.Token, format string, a ...any) {
	p.errors = append(p.errors, ParseError{Token: tok, Message: fmt.Sprintf(format, a...)})
}

func (p *Parser) ParseScript() *ast.Script {
	script := &ast.Script{}
	for p.curToken.Type != token.EOF {
		if p.curToken.Type == token.RPAREN {
			p.addError(p.curToken, "unexpected ')'")
			p.nextToken()
			continue
		}
		node := p.parseNode()
		if node != nil {
			script.Forms = append(script.Forms, node)
		}
		p.nextToken()
	}
	return script
}

// parseNode parses the node starting at curToken and leaves curToken on its
// last token.
func (p *Parser) parseNode() ast.Node {
	switch p.curToken.Type {
	case token.LPAREN:
		return p.parseForm()
	case token.NUMBER:
		value, err := strconv.ParseFloat(p.curToken.Literal, 64)
		if err != nil {
			p.addError(p.curToken, "could not parse %q as number", p.curToken.Literal)
			return nil
		}
		return &ast.NumberLiteral{Token: p.curToken, Value: value}
	case token.STRING:
		return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
	case token.TRUE, token.FALSE:
		return &ast.Boolean{Token: p.curToken, Value: p.curToken.Type == token.TRUE}
	case token.NIL:
		return &ast.Nil{Token: p.curToken}
	case token.IDENT:
		return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	case token.ILLEGAL:
		p.addError(p.curToken, "%s", p.curToken.Literal)
		return nil
	default:
		p.addError(p.curToken, "unexpected token %s", p.curToken.Type)
		return nil
	}
}

func (p *Parser) parseForm() ast.Node {
	form := &ast.Form{Token: p.curToken}
	p.nextToken()
	for p.curToken.Type != token.RPAREN {
		if p.curToken.Type == token.EOF {
			p.addError(form.Token, "unclosed '('")
			return nil
		}
		if item := p.parseNode(); item != nil {
			form.Items = append(form.Items, item)
		}
		p.nextToken()
	}
	return form
}
