package parser

import (
	"fmt"
	"unicode"

	"github.com/noodlelang/noodle/pkg/ast"
)

// Lexer tokenizes Noodle source text.
type Lexer struct {
	input   []rune
	pos     int  // current position (points at ch)
	readPos int  // next position to read
	ch      rune // current character, 0 at EOF
	line    int
	col     int
}

// NewLexer creates a lexer for the given source text.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: []rune(input), line: 1, col: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.col++
}

func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) position() ast.Position {
	return ast.Position{Line: l.line, Column: l.col, Offset: l.pos}
}

// NextToken scans and returns the next token from the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()

	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Pos: pos}
	case isIdentStart(l.ch):
		lit := l.readIdentifier()
		if kw, ok := keywords[lit]; ok {
			return Token{Type: kw, Literal: lit, Pos: pos}
		}
		return Token{Type: TokenIdentifier, Literal: lit, Pos: pos}
	case unicode.IsDigit(l.ch):
		return l.readNumber(pos)
	case l.ch == '"' || l.ch == '\'':
		return l.readString(pos)
	}

	// Two-character operators first.
	if ty, ok := twoCharOps[[2]rune{l.ch, l.peekChar()}]; ok {
		lit := string(l.ch) + string(l.peekChar())
		l.readChar()
		l.readChar()
		return Token{Type: ty, Literal: lit, Pos: pos}
	}
	if ty, ok := singleCharOps[l.ch]; ok {
		lit := string(l.ch)
		l.readChar()
		return Token{Type: ty, Literal: lit, Pos: pos}
	}

	bad := l.ch
	l.readChar()
	return Token{Type: TokenError, Literal: fmt.Sprintf("unexpected character %q", bad), Pos: pos}
}

var twoCharOps = map[[2]rune]TokenType{
	{'=', '='}: TokenEq,
	{'!', '='}: TokenNe,
	{'<', '='}: TokenLe,
	{'>', '='}: TokenGe,
	{'&', '&'}: TokenAnd,
	{'|', '|'}: TokenOr,
	{'-', '>'}: TokenArrow,
	{'*', '*'}: TokenPower,
}

var singleCharOps = map[rune]TokenType{
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenStar,
	'/': TokenSlash,
	'%': TokenPercent,
	'=': TokenAssign,
	'<': TokenLt,
	'>': TokenGt,
	'!': TokenNot,
	'(': TokenLParen,
	')': TokenRParen,
	'{': TokenLBrace,
	'}': TokenRBrace,
	'[': TokenLBracket,
	']': TokenRBracket,
	',': TokenComma,
	'.': TokenDot,
	':': TokenColon,
	';': TokenSemicolon,
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			l.readChar()
		case l.ch == '#':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isIdentPart(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isIdentPart(l.ch) {
		l.readChar()
	}
	return string(l.input[start:l.pos])
}

func (l *Lexer) readNumber(pos ast.Position) Token {
	start := l.pos
	for unicode.IsDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && unicode.IsDigit(l.peekChar()) {
		l.readChar()
		for unicode.IsDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if unicode.IsDigit(next) || next == '+' || next == '-' {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for unicode.IsDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return Token{Type: TokenNumber, Literal: string(l.input[start:l.pos]), Pos: pos}
}

func (l *Lexer) readString(pos ast.Position) Token {
	quote := l.ch
	l.readChar()
	var out []rune
	for l.ch != quote {
		if l.ch == 0 || l.ch == '\n' {
			return Token{Type: TokenError, Literal: "unterminated string literal", Pos: pos}
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'r':
				out = append(out, '\r')
			case '\\', '\'', '"':
				out = append(out, l.ch)
			default:
				out = append(out, l.ch)
			}
		} else {
			out = append(out, l.ch)
		}
		l.readChar()
	}
	l.readChar() // consume closing quote
	return Token{Type: TokenString, Literal: string(out), Pos: pos}
}
