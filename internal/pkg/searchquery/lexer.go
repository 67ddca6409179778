package searchquery

import "unicode"

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenWord
	TokenString
	TokenColon
)

// Token represents a lexical token.
type Token struct {
	Type  TokenType
	Value string
}

// Lexer tokenizes filter-bar input: bare words, "quoted phrases", and the
// colon used by key:value directives.
type Lexer struct {
	input string
	pos   int
}

func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF}
	}

	switch l.input[l.pos] {
	case ':':
		l.pos++
		return Token{Type: TokenColon, Value: ":"}
	case '"':
		return l.readString()
	}
	return l.readWord()
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

func (l *Lexer) readString() Token {
	l.pos++ // skip opening quote
	var out []byte
	for l.pos < len(l.input) && l.input[l.pos] != '"' {
		if l.input[l.pos] == '\\' && l.pos+1 < len(l.input) {
			l.pos++
		}
		out = append(out, l.input[l.pos])
		l.pos++
	}
	if l.pos < len(l.input) {
		l.pos++ // skip closing quote
	}
	return Token{Type: TokenString, Value: string(out)}
}

func (l *Lexer) readWord() Token {
	start := l.pos
	for l.pos < len(l.input) && !isWordEnd(l.input[l.pos]) {
		l.pos++
	}
	return Token{Type: TokenWord, Value: l.input[start:l.pos]}
}

func isWordEnd(ch byte) bool {
	return unicode.IsSpace(rune(ch)) || ch == ':' || ch == '"'
}
