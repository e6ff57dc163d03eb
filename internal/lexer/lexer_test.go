package lexer

import (
	"mote/internal/token"
	"testing"
)

func TestNextToken(t *testing.T) {
	input := `$five = 5
$ten = 10.5
# a comment line
$sum = $five + $ten; print $sum
if $sum >= 15 { print "big" } else { print 'small' }
loop 3 as $i { emit tick:minor count=$i }
$name = "multi
line"
call greet $user.profile.name
not true and false or null
1 == 2; 3 != 4; 5 < 6; 7 > 8; 9 <= 10
[1, 2] {a: 1}
5 * 2 / 1 % 2 - 1`

	tests := []struct {
		expectedType    token.TokenType
		expectedLiteral string
	}{
		{token.VARIABLE, "five"},
		{token.ASSIGN, "="},
		{token.NUMBER, "5"},
		{token.NEWLINE, "\n"},
		{token.VARIABLE, "ten"},
		{token.ASSIGN, "="},
		{token.NUMBER, "10.5"},
		{token.NEWLINE, "\n"},
		{token.NEWLINE, "\n"},
		{token.VARIABLE, "sum"},
		{token.ASSIGN, "="},
		{token.VARIABLE, "five"},
		{token.PLUS, "+"},
		{token.VARIABLE, "ten"},
		{token.NEWLINE, ";"},
		{token.PRINT, "print"},
		{token.VARIABLE, "sum"},
		{token.NEWLINE, "\n"},
		{token.IF, "if"},
		{token.VARIABLE, "sum"},
		{token.GT_EQ, ">="},
		{token.NUMBER, "15"},
		{token.LBRACE, "{"},
		{token.PRINT, "print"},
		{token.STRING, "big"},
		{token.RBRACE, "}"},
		{token.ELSE, "else"},
		{token.LBRACE, "{"},
		{token.PRINT, "print"},
		{token.STRING, "small"},
		{token.RBRACE, "}"},
		{token.NEWLINE, "\n"},
		{token.LOOP, "loop"},
		{token.NUMBER, "3"},
		{token.AS, "as"},
		{token.VARIABLE, "i"},
		{token.LBRACE, "{"},
		{token.EMIT, "emit"},
		{token.IDENT, "tick"},
		{token.COLON, ":"},
		{token.IDENT, "minor"},
		{token.IDENT, "count"},
		{token.ASSIGN, "="},
		{token.VARIABLE, "i"},
		{token.RBRACE, "}"},
		{token.NEWLINE, "\n"},
		{token.VARIABLE, "name"},
		{token.ASSIGN, "="},
		{token.STRING, "multi\nline"},
		{token.NEWLINE, "\n"},
		{token.CALL, "call"},
		{token.IDENT, "greet"},
		{token.VARIABLE, "user.profile.name"},
		{token.NEWLINE, "\n"},
		{token.NOT, "not"},
		{token.TRUE, "true"},
		{token.AND, "and"},
		{token.FALSE, "false"},
		{token.OR, "or"},
		{token.NULL, "null"},
		{token.NEWLINE, "\n"},
		{token.NUMBER, "1"},
		{token.EQ, "=="},
		{token.NUMBER, "2"},
		{token.NEWLINE, ";"},
		{token.NUMBER, "3"},
		{token.NOT_EQ, "!="},
		{token.NUMBER, "4"},
		{token.NEWLINE, ";"},
		{token.NUMBER, "5"},
		{token.LT, "<"},
		{token.NUMBER, "6"},
		{token.NEWLINE, ";"},
		{token.NUMBER, "7"},
		{token.GT, ">"},
		{token.NUMBER, "8"},
		{token.NEWLINE, ";"},
		{token.NUMBER, "9"},
		{token.LT_EQ, "<="},
		{token.NUMBER, "10"},
		{token.NEWLINE, "\n"},
		{token.LBRACKET, "["},
		{token.NUMBER, "1"},
		{token.COMMA, ","},
		{token.NUMBER, "2"},
		{token.RBRACKET, "]"},
		{token.LBRACE, "{"},
		{token.IDENT, "a"},
		{token.COLON, ":"},
		{token.NUMBER, "1"},
		{token.RBRACE, "}"},
		{token.NEWLINE, "\n"},
		{token.NUMBER, "5"},
		{token.ASTERISK, "*"},
		{token.NUMBER, "2"},
		{token.SLASH, "/"},
		{token.NUMBER, "1"},
		{token.PERCENT, "%"},
		{token.NUMBER, "2"},
		{token.MINUS, "-"},
		{token.NUMBER, "1"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (%q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestKeywordsAreCaseInsensitive(t *testing.T) {
	l := New("LOOP Loop loop Print WHILE Greeting")
	expected := []token.TokenType{
		token.LOOP, token.LOOP, token.LOOP, token.PRINT, token.WHILE, token.IDENT,
	}
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("token %d: expected %q, got %q", i, want, tok.Type)
		}
	}
	// non-keyword identifiers keep their original case
	l = New("Greeting")
	tok := l.NextToken()
	if tok.Literal != "Greeting" {
		t.Errorf("identifier case not preserved: got %q", tok.Literal)
	}
}

func TestStringEscapes(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"a\nb"`, "a\nb"},
		{`"a\tb"`, "a\tb"},
		{`"a\rb"`, "a\rb"},
		{`"a\\b"`, `a\b`},
		{`"a\"b"`, `a"b`},
		{`'a\'b'`, `a'b`},
		{`"a\0b"`, "a\x00b"},
		{`"a\qb"`, "aqb"}, // unknown escape degrades to the raw character
	}
	for _, tt := range tests {
		tok := New(tt.input).NextToken()
		if tok.Type != token.STRING {
			t.Fatalf("input %q: expected STRING, got %q", tt.input, tok.Type)
		}
		if tok.Literal != tt.want {
			t.Errorf("input %q: expected %q, got %q", tt.input, tt.want, tok.Literal)
		}
	}
}

func TestLineAndColumnTracking(t *testing.T) {
	l := New("$a = 1\n  print $a")
	type pos struct{ line, col int }
	expected := []pos{
		{1, 1},  // $a
		{1, 4},  // =
		{1, 6},  // 1
		{1, 7},  // newline
		{2, 3},  // print
		{2, 9},  // $a
		{2, 11}, // EOF
	}
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Line != want.line || tok.Column != want.col {
			t.Errorf("token %d (%q): expected %d:%d, got %d:%d",
				i, tok.Literal, want.line, want.col, tok.Line, tok.Column)
		}
	}
}

// Re-lexing a token's own lexeme must reproduce the token. Strings and
// separators are exempt: their literal is decoded, not a source span.
func TestRelexingTokenLexemes(t *testing.T) {
	src := `$a = $user.name + 2.5 * foo(1) >= 3 and not [true, null]`
	for _, tok := range New(src).Tokens() {
		switch tok.Type {
		case token.STRING, token.NEWLINE, token.EOF:
			continue
		}
		lexeme := tok.Literal
		if tok.Type == token.VARIABLE {
			lexeme = "$" + lexeme
		}
		again := New(lexeme).NextToken()
		if again.Type != tok.Type || again.Literal != tok.Literal {
			t.Errorf("re-lexing %q: expected (%s %q), got (%s %q)",
				lexeme, tok.Type, tok.Literal, again.Type, again.Literal)
		}
	}
}
