package lexer

import (
	"regexp"
	"strings"
	"tickvm/internal/token"
	"unicode"
	"unicode/utf8"
)

var numberLiteral = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

type Lexer struct {
	input        string
	position     int  // current byte position in input (points to start of current rune)
	readPosition int  // next byte position in input (start of next rune)
	ch           rune // current rune under examination; 0 means EOF
	line         int
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()

	start := l.position
	switch l.ch {
	case 0:
		return token.Token{Type: token.EOF, Position: start, Line: l.line}
	case '(':
		l.readChar()
		return token.Token{Type: token.LPAREN, Literal: "(", Position: start, Line: l.line}
	case ')':
		l.readChar()
		return token.Token{Type: token.RPAREN, Literal: ")", Position: start, Line: l.line}
	case '"':
		line := l.line
		str, ok := l.readString()
		if !ok {
			return token.Token{Type: token.ILLEGAL, Literal: "unterminated string", Position: start, Line: line}
		}
		return token.Token{Type: token.STRING, Literal: str, Position: start, Line: line}
	}

	atom := l.readAtom()
	if numberLiteral.MatchString(atom) {
		return token.Token{Type: token.NUMBER, Literal: atom, Position: start, Line: l.line}
	}
	return token.Token{Type: token.LookupIdent(atom), Literal: atom, Position: start, Line: l.line}
}

func (l *Lexer) skipWhitespace() {
	for {
		switch {
		case l.ch == ';':
			l.skipToLineEnd()
		case l.ch != 0 && unicode.IsSpace(l.ch):
			l.readChar()
		default:
			return
		}
	}
}

func (l *Lexer) skipToLineEnd() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

// readChar advances by one UTF-8 rune, updating byte positions
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += size
}

// readAtom consumes runes up to the next delimiter
func (l *Lexer) readAtom() string {
	start := l.position
	for l.ch != 0 && !isDelimiter(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readString consumes a double-quoted literal, resolving escapes
func (l *Lexer) readString() (string, bool) {
	var sb strings.Builder
	l.readChar() // consume opening "
	for {
		switch l.ch {
		case 0:
			return "", false
		case '"':
			l.readChar()
			return sb.String(), true
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case 0:
				return "", false
			default:
				sb.WriteRune(l.ch)
			}
		default:
			sb.WriteRune(l.ch)
		}
		l.readChar()
	}
}

func isDelimiter(ch rune) bool {
	return ch == '(' || ch == ')' || ch == '"' || ch == ';' || unicode.IsSpace(ch)
}
