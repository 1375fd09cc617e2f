package ast

import (
	"strconv"
	"strings"
	"tickvm/internal/token"
)

// The base Node interface
type Node interface {
	TokenLiteral() string
	Pos() token.Token
	String() string
}

// Script is the root: a sequence of top-level forms evaluated in order.
type Script struct {
	Forms []Node
}

func (s *Script) TokenLiteral() string {
	if len(s.Forms) > 0 {
		return s.Forms[0].TokenLiteral()
	}
	return ""
}

func (s *Script) Pos() token.Token {
	if len(s.Forms) > 0 {
		return s.Forms[0].Pos()
	}
	return token.Token{}
}

func (s *Script) String() string {
	parts := make([]string, len(s.Forms))
	for i, f := range s.Forms {
		parts[i] = f.String()
	}
	return strings.Join(parts, "\n")
}

type NumberLiteral struct {
	Token token.Token
	Value float64
}

func (n *NumberLiteral) TokenLiteral() string { return n.Token.Literal }
func (n *NumberLiteral) Pos() token.Token     { return n.Token }
func (n *NumberLiteral) String() string       { return n.Token.Literal }

type StringLiteral struct {
	Token token.Token
	Value string
}

func (s *StringLiteral) TokenLiteral() string { return s.Token.Literal }
func (s *StringLiteral) Pos() token.Token     { return s.Token }
func (s *StringLiteral) String() string       { return strconv.Quote(s.Value) }

type Boolean struct {
	Token token.Token
	Value bool
}

func (b *Boolean) TokenLiteral() string { return b.Token.Literal }
func (b *Boolean) Pos() token.Token     { return b.Token }
func (b *Boolean) String() string       { return b.Token.Literal }

type Nil struct {
	Token token.Token
}

func (n *Nil) TokenLiteral() string { return n.Token.Literal }
func (n *Nil) Pos() token.Token     { return n.Token }
func (n *Nil) String() string       { return "nil" }

type Identifier struct {
	Token token.Token
	Value string
}

func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) Pos() token.Token     { return i.Token }
func (i *Identifier) String() string       { return i.Value }

// Form is a parenthesised list: (head args...).
type Form struct {
	Token token.Token // the '(' token
	Items []Node
}

func (f *Form) TokenLiteral() string { return f.Token.Literal }
func (f *Form) Pos() token.Token     { return f.Token }
func (f *Form) String() string {
	parts := make([]string, len(f.Items))
	for i, item := range f.Items {
		parts[i] = item.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Head returns the identifier in head position, if any.
func (f *Form) Head() (string, bool) {
	if len(f.Items) == 0 {
		return "", false
	}
	id, ok := f.Items[0].(*Identifier)
	if !ok {
		return "", false
	}
	return id.Value, true
}

// Args returns everything after the head.
func (f *Form) Args() []Node {
	if len(f.Items) == 0 {
		return nil
	}
	return f.Items[1:]
}

// Walk calls fn for n and every node beneath it, depth first.
func Walk(n Node, fn func(Node)) {
	fn(n)
	switch x := n.(type) {
	case *Script:
		for _, f := range x.Forms {
			Walk(f, fn)
		}
	case *Form:
		for _, item := range x.Items {
			Walk(item, fn)
		}
	}
}
