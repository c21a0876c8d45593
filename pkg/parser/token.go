package parser

import (
	"fmt"

	"github.com/noodlelang/noodle/pkg/ast"
)

// ---------------------------------------------------------------------------
// Token types for the Noodle lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenNumber     // 42, 3.14, 1.5e10
	TokenString     // "hello", 'hello'
	TokenIdentifier // foo, bar_baz

	// Keywords
	TokenLet
	TokenDef
	TokenReturn
	TokenIf
	TokenElse
	TokenFor
	TokenIn
	TokenWhile
	TokenImport
	TokenAs
	TokenClass
	TokenExtends
	TokenTrue
	TokenFalse
	TokenNone

	// Operators
	TokenPlus     // +
	TokenMinus    // -
	TokenStar     // *
	TokenSlash    // /
	TokenPercent  // %
	TokenPower    // **
	TokenAssign   // =
	TokenEq       // ==
	TokenNe       // !=
	TokenLt       // <
	TokenLe       // <=
	TokenGt       // >
	TokenGe       // >=
	TokenAnd      // &&
	TokenOr       // ||
	TokenNot      // !
	TokenArrow    // ->

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenComma     // ,
	TokenDot       // .
	TokenColon     // :
	TokenSemicolon // ;
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenNumber:     "NUMBER",
	TokenString:     "STRING",
	TokenIdentifier: "IDENTIFIER",
	TokenLet:        "let",
	TokenDef:        "def",
	TokenReturn:     "return",
	TokenIf:         "if",
	TokenElse:       "else",
	TokenFor:        "for",
	TokenIn:         "in",
	TokenWhile:      "while",
	TokenImport:     "import",
	TokenAs:         "as",
	TokenClass:      "class",
	TokenExtends:    "extends",
	TokenTrue:       "true",
	TokenFalse:      "false",
	TokenNone:       "none",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenStar:       "*",
	TokenSlash:      "/",
	TokenPercent:    "%",
	TokenPower:      "**",
	TokenAssign:     "=",
	TokenEq:         "==",
	TokenNe:         "!=",
	TokenLt:         "<",
	TokenLe:         "<=",
	TokenGt:         ">",
	TokenGe:         ">=",
	TokenAnd:        "&&",
	TokenOr:         "||",
	TokenNot:        "!",
	TokenArrow:      "->",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBrace:     "{",
	TokenRBrace:     "}",
	TokenLBracket:   "[",
	TokenRBracket:   "]",
	TokenComma:      ",",
	TokenDot:        ".",
	TokenColon:      ":",
	TokenSemicolon:  ";",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// keywords maps reserved identifiers to their token types.
var keywords = map[string]TokenType{
	"let":     TokenLet,
	"def":     TokenDef,
	"return":  TokenReturn,
	"if":      TokenIf,
	"else":    TokenElse,
	"for":     TokenFor,
	"in":      TokenIn,
	"while":   TokenWhile,
	"import":  TokenImport,
	"as":      TokenAs,
	"class":   TokenClass,
	"extends": TokenExtends,
	"true":    TokenTrue,
	"false":   TokenFalse,
	"none":    TokenNone,
}

// Token is one lexeme with its source position.
type Token struct {
	Type    TokenType
	Literal string
	Pos     ast.Position
}

func (t Token) String() string {
	switch t.Type {
	case TokenNumber, TokenString, TokenIdentifier, TokenError:
		return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
	}
	return t.Type.String()
}
