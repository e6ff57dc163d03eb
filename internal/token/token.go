package token

import "strings"

type TokenType string

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"
	NEWLINE = "NEWLINE" // statement separator: '\n' or ';'

	// Identifiers + literals
	IDENT    = "IDENT"    // builtin and function names
	VARIABLE = "VARIABLE" // $name, $name.path.sub
	NUMBER   = "NUMBER"   // 42, 3.14
	STRING   = "STRING"   // 'single' or "double" quoted

	// Operators
	ASSIGN   = "="
	PLUS     = "+"
	MINUS    = "-"
	ASTERISK = "*"
	SLASH    = "/"
	PERCENT  = "%"

	EQ     = "=="
	NOT_EQ = "!="
	LT     = "<"
	LT_EQ  = "<="
	GT     = ">"
	GT_EQ  = ">="

	// Delimiters
	COMMA = ","
	COLON = ":"

	LPAREN   = "("
	RPAREN   = ")"
	LBRACE   = "{"
	RBRACE   = "}"
	LBRACKET = "["
	RBRACKET = "]"

	// Keywords
	IF       = "IF"
	ELSE     = "ELSE"
	LOOP     = "LOOP"
	WHILE    = "WHILE"
	FOREACH  = "FOREACH"
	IN       = "IN"
	AS       = "AS"
	BREAK    = "BREAK"
	CONTINUE = "CONTINUE"
	FUNCTION = "FUNCTION"
	CALL     = "CALL"
	RETURN   = "RETURN"
	TRY      = "TRY"
	CATCH    = "CATCH"
	ON       = "ON"
	EMIT     = "EMIT"
	PRINT    = "PRINT"
	READ     = "READ"
	WRITE    = "WRITE"
	DELETE   = "DELETE"
	MKDIR    = "MKDIR"
	INTO     = "INTO"
	LAUNCH   = "LAUNCH"
	CLOSE    = "CLOSE"
	FOCUS    = "FOCUS"
	NOTIFY   = "NOTIFY"
	DIALOG   = "DIALOG"
	PLAY     = "PLAY"
	VOLUME   = "VOLUME"
	WAIT     = "WAIT"
	AND      = "AND"
	OR       = "OR"
	NOT      = "NOT"
	TRUE     = "TRUE"
	FALSE    = "FALSE"
	NULL     = "NULL"
)

type Token struct {
	Type    TokenType
	Literal string
	Line    int // 1-based source line
	Column  int // 1-based source column
}

var keywords = map[string]TokenType{
	// constants
	"null":  NULL,
	"true":  TRUE,
	"false": FALSE,

	// flow control
	"if":       IF,
	"else":     ELSE,
	"loop":     LOOP,
	"while":    WHILE,
	"foreach":  FOREACH,
	"in":       IN,
	"as":       AS,
	"break":    BREAK,
	"continue": CONTINUE,
	"function": FUNCTION,
	"call":     CALL,
	"return":   RETURN,

	// error handling
	"try":   TRY,
	"catch": CATCH,

	// events
	"on":   ON,
	"emit": EMIT,

	// host statements
	"print":  PRINT,
	"read":   READ,
	"write":  WRITE,
	"delete": DELETE,
	"mkdir":  MKDIR,
	"into":   INTO,
	"launch": LAUNCH,
	"close":  CLOSE,
	"focus":  FOCUS,
	"notify": NOTIFY,
	"dialog": DIALOG,
	"play":   PLAY,
	"volume": VOLUME,
	"wait":   WAIT,

	// logical operators
	"and": AND,
	"or":  OR,
	"not": NOT,
}

// LookupIdent matches keywords case-insensitively; anything else is a
// plain identifier with its original case preserved in the literal.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[strings.ToLower(ident)]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword reports whether t is a reserved-word token type. Event
// names and emit keys accept keyword-shaped segments, so the parser
// asks this instead of matching IDENT only.
func IsKeyword(t TokenType) bool {
	for _, kw := range keywords {
		if kw == t {
			return true
		}
	}
	return false
}
