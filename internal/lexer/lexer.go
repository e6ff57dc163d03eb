package lexer

import (
	"mote/internal/token"
	"unicode"
	"unicode/utf8"
)

// Lexer walks the source one rune at a time and produces a flat token
// stream terminated by an EOF token. It has no grammar knowledge and
// never fails: unrecognized input becomes an ILLEGAL token.
type Lexer struct {
	input        string
	position     int  // current byte position (start of current rune)
	readPosition int  // next byte position (start of next rune)
	ch           rune // current rune under examination; 0 means EOF

	line   int // 1-based line of the current rune
	column int // 1-based column of the current rune
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) NextToken() token.Token {
	l.skipSpace()

	line, col := l.line, l.column

	var tok token.Token
	switch l.ch {
	case '\n', ';':
		tok = l.newToken(token.NEWLINE, line, col)
	case '=':
		if l.peekChar() == '=' {
			tok = l.compound(token.EQ, line, col)
		} else {
			tok = l.newToken(token.ASSIGN, line, col)
		}
	case '!':
		if l.peekChar() == '=' {
			tok = l.compound(token.NOT_EQ, line, col)
		} else {
			tok = l.newToken(token.ILLEGAL, line, col)
		}
	case '<':
		if l.peekChar() == '=' {
			tok = l.compound(token.LT_EQ, line, col)
		} else {
			tok = l.newToken(token.LT, line, col)
		}
	case '>':
		if l.peekChar() == '=' {
			tok = l.compound(token.GT_EQ, line, col)
		} else {
			tok = l.newToken(token.GT, line, col)
		}
	case '+':
		tok = l.newToken(token.PLUS, line, col)
	case '-':
		tok = l.newToken(token.MINUS, line, col)
	case '*':
		tok = l.newToken(token.ASTERISK, line, col)
	case '/':
		tok = l.newToken(token.SLASH, line, col)
	case '%':
		tok = l.newToken(token.PERCENT, line, col)
	case ',':
		tok = l.newToken(token.COMMA, line, col)
	case ':':
		tok = l.newToken(token.COLON, line, col)
	case '(':
		tok = l.newToken(token.LPAREN, line, col)
	case ')':
		tok = l.newToken(token.RPAREN, line, col)
	case '{':
		tok = l.newToken(token.LBRACE, line, col)
	case '}':
		tok = l.newToken(token.RBRACE, line, col)
	case '[':
		tok = l.newToken(token.LBRACKET, line, col)
	case ']':
		tok = l.newToken(token.RBRACKET, line, col)
	case '\'', '"':
		body := l.readString(l.ch)
		return token.Token{Type: token.STRING, Literal: body, Line: line, Column: col}
	case '$':
		name := l.readVariable()
		return token.Token{Type: token.VARIABLE, Literal: name, Line: line, Column: col}
	case 0:
		return token.Token{Type: token.EOF, Literal: "", Line: line, Column: col}
	default:
		if isLetter(l.ch) {
			ident := l.readIdentifier()
			return token.Token{Type: token.LookupIdent(ident), Literal: ident, Line: line, Column: col}
		}
		if isDigit(l.ch) {
			num := l.readNumber()
			return token.Token{Type: token.NUMBER, Literal: num, Line: line, Column: col}
		}
		tok = l.newToken(token.ILLEGAL, line, col)
	}

	l.readChar()
	return tok
}

// Tokens drains the lexer into a slice, including the trailing EOF.
func (l *Lexer) Tokens() []token.Token {
	var out []token.Token
	for {
		tok := l.NextToken()
		out = append(out, tok)
		if tok.Type == token.EOF {
			return out
		}
	}
}

func (l *Lexer) newToken(t token.TokenType, line, col int) token.Token {
	return token.Token{Type: t, Literal: string(l.ch), Line: line, Column: col}
}

func (l *Lexer) compound(t token.TokenType, line, col int) token.Token {
	first := l.ch
	l.readChar()
	return token.Token{Type: t, Literal: string(first) + string(l.ch), Line: line, Column: col}
}

// skipSpace eats spaces, tabs, carriage returns and '#' line comments.
// Newlines are significant (statement separators) and stay in the stream.
func (l *Lexer) skipSpace() {
	for {
		switch l.ch {
		case ' ', '\t', '\r':
			l.readChar()
		case '#':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

// readChar advances by one UTF-8 rune, updating byte and line/column positions.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.column++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += size
	l.column++
}

// peekChar returns the next rune without advancing; returns 0 at EOF.
func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readVariable consumes '$name' with optional '.path' segments as a
// single token. The literal excludes the sigil.
func (l *Lexer) readVariable() string {
	l.readChar() // consume '$'
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	for l.ch == '.' && isLetter(l.peekChar()) {
		l.readChar() // consume '.'
		for isLetter(l.ch) || isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.position]
}

func (l *Lexer) readNumber() string {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.position]
}

// readString consumes a quoted string body, decoding escapes. Bodies
// may span lines. An unknown escape degrades to the escaped character;
// an unterminated string ends at EOF with whatever was read.
func (l *Lexer) readString(quote rune) string {
	var out []rune
	l.readChar() // consume opening quote
	for l.ch != quote && l.ch != 0 {
		if l.ch == '\\' {
			out = append(out, unescape(l.peekChar()))
			l.readChar()
		} else {
			out = append(out, l.ch)
		}
		l.readChar()
	}
	if l.ch == quote {
		l.readChar() // consume closing quote
	}
	return string(out)
}

func unescape(ch rune) rune {
	switch ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	case '\\', '"', '\'':
		return ch
	default:
		return ch
	}
}

func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}
