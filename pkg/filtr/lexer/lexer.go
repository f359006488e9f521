package lexer

import (
	"fmt"
	"sort"
	"strconv"
)

// TokenType represents different types of tokens
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Identifiers and literals
	IDENT  // people, age, _tmp
	NUMBER // 42, 3.5
	STRING // "people.csv"

	// Single-character tokens
	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }
	COMMA     // ,
	DOT       // .
	MINUS     // -
	PLUS      // +
	SEMICOLON // ;
	STAR      // *
	SLASH     // /

	// One or two character tokens
	BANG          // !
	BANG_EQUAL    // !=
	EQUAL         // =
	EQUAL_EQUAL   // ==
	GREATER       // >
	GREATER_EQUAL // >=
	LESS          // <
	LESS_EQUAL    // <=

	// Keywords
	AND
	OR
	NOT
	IF
	ELSE
	WHILE
	FOR
	CLASS
	FUNCTION
	RETURN
	TRUE
	FALSE
	NULL
	PRINT
	IMPORT
	EXPORT
	USE
	AS
	SAVE
	VIEW
	REVIEW
	ADD
	REMOVE
	SET
	WHERE
	FILTER
	RENAME
	TO
	MISSING
	DROP
	COLUMNS
	COLUMN
	ROW
	ROWS
	FROM
	WITH
	IN
	FILL
	BLANKS
	EACH
	CSV
	JSON
	RANGE
)

var tokenNames = map[TokenType]string{
	ILLEGAL:       "ILLEGAL",
	EOF:           "EOF",
	IDENT:         "IDENT",
	NUMBER:        "NUMBER",
	STRING:        "STRING",
	LPAREN:        "LPAREN",
	RPAREN:        "RPAREN",
	LBRACE:        "LBRACE",
	RBRACE:        "RBRACE",
	COMMA:         "COMMA",
	DOT:           "DOT",
	MINUS:         "MINUS",
	PLUS:          "PLUS",
	SEMICOLON:     "SEMICOLON",
	STAR:          "STAR",
	SLASH:         "SLASH",
	BANG:          "BANG",
	BANG_EQUAL:    "BANG_EQUAL",
	EQUAL:         "EQUAL",
	EQUAL_EQUAL:   "EQUAL_EQUAL",
	GREATER:       "GREATER",
	GREATER_EQUAL: "GREATER_EQUAL",
	LESS:          "LESS",
	LESS_EQUAL:    "LESS_EQUAL",
}

// String returns a string representation of the token type. Keywords
// render as their upper-cased spelling.
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	for word, kw := range keywords {
		if kw == tt {
			return upper(word)
		}
	}
	return "UNKNOWN"
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

// keywords maps reserved words to their token types
var keywords = map[string]TokenType{
	"and":      AND,
	"or":       OR,
	"not":      NOT,
	"if":       IF,
	"else":     ELSE,
	"while":    WHILE,
	"for":      FOR,
	"class":    CLASS,
	"function": FUNCTION,
	"return":   RETURN,
	"true":     TRUE,
	"false":    FALSE,
	"null":     NULL,
	"print":    PRINT,
	"import":   IMPORT,
	"export":   EXPORT,
	"use":      USE,
	"as":       AS,
	"save":     SAVE,
	"view":     VIEW,
	"review":   REVIEW,
	"add":      ADD,
	"remove":   REMOVE,
	"set":      SET,
	"where":    WHERE,
	"filter":   FILTER,
	"rename":   RENAME,
	"to":       TO,
	"missing":  MISSING,
	"drop":     DROP,
	"columns":  COLUMNS,
	"column":   COLUMN,
	"row":      ROW,
	"rows":     ROWS,
	"from":     FROM,
	"with":     WITH,
	"in":       IN,
	"fill":     FILL,
	"blanks":   BLANKS,
	"each":     EACH,
	"csv":      CSV,
	"json":     JSON,
	"range":    RANGE,
}

// Keywords returns every reserved word. The REPL offers them as completions.
func Keywords() []string {
	words := make([]string, 0, len(keywords))
	for w := range keywords {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// LookupIdent checks if an identifier is a keyword
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Token represents a single token. Literal holds the decoded value of
// NUMBER (float64) and STRING (string) tokens and is nil otherwise.
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal any
	Line    int
	Column  int
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Lexeme: %s, Line: %d, Column: %d}",
		t.Type, t.Lexeme, t.Line, t.Column)
}

// ErrorFunc receives scanner errors. Scanning always continues afterwards.
type ErrorFunc func(line, column int, code string)

// Lexer represents the lexical analyzer
type Lexer struct {
	input        string
	start        int // start of the token being scanned
	position     int // current position in input (points to current char)
	readPosition int // current reading position in input (after current char)
	ch           byte
	line         int
	column       int
	startLine    int
	startColumn  int
	onError      ErrorFunc
}

// New creates a new lexer instance. Errors are reported to onError, which
// may be nil.
func New(input string, onError ErrorFunc) *Lexer {
	l := &Lexer{
		input:   input,
		line:    1,
		column:  0,
		onError: onError,
	}
	l.readChar()
	return l
}

// Tokenize scans the whole input and returns the tokens, always ending with
// an EOF token.
func Tokenize(input string, onError ErrorFunc) []Token {
	l := New(input, onError)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens
		}
	}
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}
	if l.position < len(l.input) && l.readPosition > 0 && l.input[l.position] == '\n' {
		l.line++
		l.column = 0
	}
	l.ch = l.input[l.readPosition]
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) atEnd() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) error(code string) {
	if l.onError != nil {
		l.onError(l.startLine, l.startColumn, code)
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.atEnd() {
		switch l.ch {
		case ' ', '\t', '\r', '\n':
			l.readChar()
		case '/':
			if l.peekChar() != '/' {
				return
			}
			for !l.atEnd() && l.ch != '\n' {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) mark() {
	l.start = l.position
	l.startLine = l.line
	l.startColumn = l.column
}

func (l *Lexer) make(tt TokenType, literal any) Token {
	return Token{
		Type:    tt,
		Lexeme:  l.input[l.start:l.position],
		Literal: literal,
		Line:    l.startLine,
		Column:  l.startColumn,
	}
}

// twoChar consumes the current character and, when the next one is '=',
// that as well.
func (l *Lexer) twoChar(single, double TokenType) Token {
	if l.peekChar() == '=' {
		l.readChar()
		l.readChar()
		return l.make(double, nil)
	}
	l.readChar()
	return l.make(single, nil)
}

var singles = map[byte]TokenType{
	'(': LPAREN,
	')': RPAREN,
	'{': LBRACE,
	'}': RBRACE,
	',': COMMA,
	'.': DOT,
	'-': MINUS,
	'+': PLUS,
	';': SEMICOLON,
	'*': STAR,
	'/': SLASH,
}

// NextToken returns the next token. Unexpected characters and unterminated
// strings are reported and skipped.
func (l *Lexer) NextToken() Token {
	for {
		l.skipWhitespaceAndComments()
		l.mark()
		if l.atEnd() {
			return Token{Type: EOF, Line: l.line, Column: l.column + 1}
		}

		if tt, ok := singles[l.ch]; ok {
			l.readChar()
			return l.make(tt, nil)
		}

		switch {
		case l.ch == '!':
			return l.twoChar(BANG, BANG_EQUAL)
		case l.ch == '=':
			return l.twoChar(EQUAL, EQUAL_EQUAL)
		case l.ch == '<':
			return l.twoChar(LESS, LESS_EQUAL)
		case l.ch == '>':
			return l.twoChar(GREATER, GREATER_EQUAL)
		case l.ch == '"':
			if tok, ok := l.readString(); ok {
				return tok
			}
			l.error("LEX-0002")
		case isDigit(l.ch):
			return l.readNumber()
		case isLetter(l.ch):
			ident := l.readIdentifier()
			return l.make(LookupIdent(ident), nil)
		default:
			l.readChar()
			l.error("LEX-0001")
		}
	}
}

func (l *Lexer) readString() (Token, bool) {
	l.readChar() // opening quote
	for !l.atEnd() && l.ch != '"' {
		l.readChar()
	}
	if l.atEnd() {
		return Token{}, false
	}
	l.readChar() // closing quote
	value := l.input[l.start+1 : l.position-1]
	return l.make(STRING, value), true
}

func (l *Lexer) readNumber() Token {
	for isDigit(l.ch) && !l.atEnd() {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) && !l.atEnd() {
			l.readChar()
		}
	}
	text := l.input[l.start:l.position]
	value, _ := strconv.ParseFloat(text, 64)
	return l.make(NUMBER, value)
}

func (l *Lexer) readIdentifier() string {
	for !l.atEnd() && (isLetter(l.ch) || isDigit(l.ch)) {
		l.readChar()
	}
	return l.input[l.start:l.position]
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
