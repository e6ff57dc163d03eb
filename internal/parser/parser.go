package parser

import (
	"fmt"
	"mote/internal/ast"
	"mote/internal/lexer"
	"mote/internal/token"
	"strconv"
	"strings"
)

// Expression precedence, ascending. Parentheses reset to LOWEST.
const (
	_ int = iota
	LOWEST
	LOGICAL_OR  // or
	LOGICAL_AND // and
	EQUALS      // == !=
	COMPARISON  // < <= > >=
	SUM         // + -
	PRODUCT     // * / %
	PREFIX      // -x, not x
	INDEX       // value[index]
)

var precedences = map[token.TokenType]int{
	token.OR:       LOGICAL_OR,
	token.AND:      LOGICAL_AND,
	token.EQ:       EQUALS,
	token.NOT_EQ:   EQUALS,
	token.LT:       COMPARISON,
	token.LT_EQ:    COMPARISON,
	token.GT:       COMPARISON,
	token.GT_EQ:    COMPARISON,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.SLASH:    PRODUCT,
	token.ASTERISK: PRODUCT,
	token.PERCENT:  PRODUCT,
	token.LBRACKET: INDEX,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	l      *lexer.Lexer
	errors []string

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:      l,
		errors: []string{},
	}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.NUMBER, p.parseNumberLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.TRUE, p.parseBooleanLiteral)
	p.registerPrefix(token.FALSE, p.parseBooleanLiteral)
	p.registerPrefix(token.NULL, p.parseNullLiteral)
	p.registerPrefix(token.VARIABLE, p.parseVariable)
	p.registerPrefix(token.IDENT, p.parseCallExpression)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.NOT, p.parsePrefixExpression)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.LBRACKET, p.parseArrayLiteral)
	p.registerPrefix(token.LBRACE, p.parseObjectLiteral)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	for _, t := range []token.TokenType{
		token.PLUS, token.MINUS, token.SLASH, token.ASTERISK, token.PERCENT,
		token.EQ, token.NOT_EQ, token.LT, token.LT_EQ, token.GT, token.GT_EQ,
		token.AND, token.OR,
	} {
		p.registerInfix(t, p.parseInfixExpression)
	}
	p.registerInfix(token.LBRACKET, p.parseIndexExpression)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) registerPrefix(tokenType token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) addError(tok token.Token, message string, args ...interface{}) {
	m := fmt.Sprintf(message, args...)
	p.errors = append(p.errors, fmt.Sprintf("[%3d:%2d] %s", tok.Line, tok.Column, m))
}

func (p *Parser) peekError(t token.TokenType) {
	p.addError(p.peekToken, "expected next token to be %s, got %s instead",
		t, p.peekToken.Type)
}

func (p *Parser) noPrefixParseFnError(tok token.Token) {
	p.addError(tok, "unexpected token %s (%q) at start of expression", tok.Type, tok.Literal)
}

// skipNewlines eats statement separators between statements.
func (p *Parser) skipNewlines() {
	for p.curTokenIs(token.NEWLINE) {
		p.nextToken()
	}
}

// endOfStatement checks that the statement just parsed is properly
// terminated. A half-parsed statement fails the whole program; there is
// no recovery into a neighboring production.
func (p *Parser) endOfStatement() {
	if p.peekTokenIs(token.NEWLINE) || p.peekTokenIs(token.EOF) || p.peekTokenIs(token.RBRACE) {
		return
	}
	p.addError(p.peekToken, "unexpected %s (%q) after statement, expected end of line",
		p.peekToken.Type, p.peekToken.Literal)
}

func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{Statements: []ast.Statement{}}

	p.skipNewlines()
	for !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt == nil || len(p.errors) > 0 {
			// do not continue into a different production from a bad statement
			return program
		}
		program.Statements = append(program.Statements, stmt)
		p.endOfStatement()
		if len(p.errors) > 0 {
			return program
		}
		p.nextToken()
		p.skipNewlines()
	}
	return program
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.VARIABLE:
		if p.peekTokenIs(token.ASSIGN) {
			return p.parseAssignStatement()
		}
		return p.parseExpressionStatement()
	case token.IF:
		return p.parseIfStatement()
	case token.LOOP:
		return p.parseLoopStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.FOREACH:
		return p.parseForEachStatement()
	case token.BREAK:
		return &ast.BreakStatement{Token: p.curToken}
	case token.CONTINUE:
		return &ast.ContinueStatement{Token: p.curToken}
	case token.FUNCTION:
		return p.parseFunctionStatement()
	case token.CALL:
		return p.parseCallStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.TRY:
		return p.parseTryStatement()
	case token.ON:
		return p.parseHandlerStatement()
	case token.EMIT:
		return p.parseEmitStatement()
	case token.PRINT:
		return p.parsePrintStatement()
	case token.READ:
		return p.parseReadStatement()
	case token.WRITE:
		return p.parseWriteStatement()
	case token.DELETE:
		return p.parseDeleteStatement()
	case token.MKDIR:
		return p.parseMkDirStatement()
	case token.LAUNCH:
		return p.parseLaunchStatement()
	case token.CLOSE:
		return p.parseCloseStatement()
	case token.FOCUS:
		return p.parseFocusStatement()
	case token.NOTIFY:
		return p.parseNotifyStatement()
	case token.DIALOG:
		return p.parseDialogStatement()
	case token.PLAY:
		return p.parsePlayStatement()
	case token.VOLUME:
		return p.parseVolumeStatement()
	case token.WAIT:
		return p.parseWaitStatement()
	default:
		return p.parseExpressionStatement()
	}
}

// parseOperand advances past the statement keyword and parses one
// expression argument.
func (p *Parser) parseOperand() ast.Expression {
	p.nextToken()
	return p.parseExpression(LOWEST)
}

func (p *Parser) parseAssignStatement() ast.Statement {
	stmt := &ast.AssignStatement{Token: p.curToken, Target: p.variableFromToken(p.curToken)}
	p.nextToken() // '='
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	return stmt
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.curToken}

	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)

	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Consequence = p.parseBlockStatement()

	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		if p.peekTokenIs(token.IF) {
			p.nextToken()
			stmt.Alternative = p.parseIfStatement()
		} else {
			if !p.expectPeek(token.LBRACE) {
				return nil
			}
			stmt.Alternative = p.parseBlockStatement()
		}
	}
	return stmt
}

func (p *Parser) parseLoopStatement() ast.Statement {
	stmt := &ast.LoopStatement{Token: p.curToken, VarName: "index"}

	p.nextToken()
	stmt.Count = p.parseExpression(LOWEST)

	if p.peekTokenIs(token.AS) {
		p.nextToken()
		if !p.expectPeek(token.VARIABLE) {
			return nil
		}
		if strings.Contains(p.curToken.Literal, ".") {
			p.addError(p.curToken, "loop variable must be a plain name, got $%s", p.curToken.Literal)
			return nil
		}
		stmt.VarName = p.curToken.Literal
	}

	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{Token: p.curToken}

	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)

	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	return stmt
}

func (p *Parser) parseForEachStatement() ast.Statement {
	stmt := &ast.ForEachStatement{Token: p.curToken}

	if !p.expectPeek(token.VARIABLE) {
		return nil
	}
	if strings.Contains(p.curToken.Literal, ".") {
		p.addError(p.curToken, "foreach variable must be a plain name, got $%s", p.curToken.Literal)
		return nil
	}
	stmt.VarName = p.curToken.Literal

	if !p.expectPeek(token.IN) {
		return nil
	}
	p.nextToken()
	stmt.Iterable = p.parseExpression(LOWEST)

	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	return stmt
}

func (p *Parser) parseFunctionStatement() ast.Statement {
	stmt := &ast.FunctionStatement{Token: p.curToken}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Name = p.curToken.Literal

	for p.peekTokenIs(token.VARIABLE) {
		p.nextToken()
		if strings.Contains(p.curToken.Literal, ".") {
			p.addError(p.curToken, "parameter must be a plain name, got $%s", p.curToken.Literal)
			return nil
		}
		stmt.Parameters = append(stmt.Parameters, p.curToken.Literal)
	}

	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	return stmt
}

// parseCallStatement handles the space-separated statement form:
// `call name arg1 arg2`. Each argument is a full expression, so
// `call f $a - 1` passes one argument; parenthesize to disambiguate.
func (p *Parser) parseCallStatement() ast.Statement {
	stmt := &ast.CallStatement{Token: p.curToken}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Name = p.curToken.Literal

	for !p.peekTokenIs(token.NEWLINE) && !p.peekTokenIs(token.EOF) && !p.peekTokenIs(token.RBRACE) {
		p.nextToken()
		arg := p.parseExpression(LOWEST)
		if arg == nil {
			return nil
		}
		stmt.Arguments = append(stmt.Arguments, arg)
	}
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.curToken}
	if p.peekTokenIs(token.NEWLINE) || p.peekTokenIs(token.EOF) || p.peekTokenIs(token.RBRACE) {
		return stmt
	}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	return stmt
}

func (p *Parser) parseTryStatement() ast.Statement {
	stmt := &ast.TryStatement{Token: p.curToken}

	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()

	if !p.expectPeek(token.CATCH) {
		return nil
	}
	if !p.expectPeek(token.VARIABLE) {
		return nil
	}
	if strings.Contains(p.curToken.Literal, ".") {
		p.addError(p.curToken, "catch variable must be a plain name, got $%s", p.curToken.Literal)
		return nil
	}
	stmt.ErrVar = p.curToken.Literal

	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.CatchBlk = p.parseBlockStatement()
	return stmt
}

func (p *Parser) parseHandlerStatement() ast.Statement {
	stmt := &ast.HandlerStatement{Token: p.curToken}

	p.nextToken()
	name, ok := p.parseEventName()
	if !ok {
		return nil
	}
	stmt.Event = name

	if p.peekTokenIs(token.LBRACE) {
		p.nextToken()
		stmt.Body = p.parseBlockStatement()
		return stmt
	}

	// inline form: a single statement as the handler body
	p.nextToken()
	inline := p.parseStatement()
	if inline == nil {
		return nil
	}
	stmt.Body = &ast.BlockStatement{Token: stmt.Token, Statements: []ast.Statement{inline}}
	return stmt
}

func (p *Parser) parseEmitStatement() ast.Statement {
	stmt := &ast.EmitStatement{Token: p.curToken}

	p.nextToken()
	name, ok := p.parseEventName()
	if !ok {
		return nil
	}
	stmt.Event = name

	// key=value pairs; keys may be keyword-shaped
	for p.peekTokenIs(token.IDENT) || token.IsKeyword(p.peekToken.Type) {
		p.nextToken()
		key := p.curToken.Literal
		if !p.expectPeek(token.ASSIGN) {
			return nil
		}
		p.nextToken()
		val := p.parseExpression(LOWEST)
		if val == nil {
			return nil
		}
		stmt.Fields = append(stmt.Fields, ast.EmitField{Key: key, Value: val})
	}
	return stmt
}

// parseEventName assembles a colon/hyphen-delimited event name from the
// current token onward. Keyword-shaped segments ("close", "focus") are
// legal name components.
func (p *Parser) parseEventName() (string, bool) {
	if !p.curTokenIs(token.IDENT) && !token.IsKeyword(p.curToken.Type) {
		p.addError(p.curToken, "invalid event name segment %s (%q)",
			p.curToken.Type, p.curToken.Literal)
		return "", false
	}
	var out strings.Builder
	out.WriteString(p.curToken.Literal)
	for p.peekTokenIs(token.COLON) || p.peekTokenIs(token.MINUS) {
		sep := p.peekToken.Literal
		p.nextToken() // separator
		p.nextToken() // next segment
		if !p.curTokenIs(token.IDENT) && !token.IsKeyword(p.curToken.Type) {
			p.addError(p.curToken, "invalid event name segment %s (%q)",
				p.curToken.Type, p.curToken.Literal)
			return "", false
		}
		out.WriteString(sep)
		out.WriteString(p.curToken.Literal)
	}
	return out.String(), true
}

func (p *Parser) parsePrintStatement() ast.Statement {
	stmt := &ast.PrintStatement{Token: p.curToken}
	stmt.Value = p.parseOperand()
	return stmt
}

func (p *Parser) parseReadStatement() ast.Statement {
	stmt := &ast.ReadStatement{Token: p.curToken}
	stmt.Path = p.parseOperand()
	if !p.expectPeek(token.INTO) {
		return nil
	}
	if !p.expectPeek(token.VARIABLE) {
		return nil
	}
	stmt.Target = p.variableFromToken(p.curToken)
	return stmt
}

func (p *Parser) parseWriteStatement() ast.Statement {
	stmt := &ast.WriteStatement{Token: p.curToken}
	stmt.Path = p.parseOperand()
	p.nextToken()
	stmt.Content = p.parseExpression(LOWEST)
	return stmt
}

func (p *Parser) parseDeleteStatement() ast.Statement {
	return &ast.DeleteStatement{Token: p.curToken, Path: p.parseOperand()}
}

func (p *Parser) parseMkDirStatement() ast.Statement {
	return &ast.MkDirStatement{Token: p.curToken, Path: p.parseOperand()}
}

func (p *Parser) parseLaunchStatement() ast.Statement {
	return &ast.LaunchStatement{Token: p.curToken, App: p.parseOperand()}
}

func (p *Parser) parseCloseStatement() ast.Statement {
	return &ast.CloseStatement{Token: p.curToken, App: p.parseOperand()}
}

func (p *Parser) parseFocusStatement() ast.Statement {
	return &ast.FocusStatement{Token: p.curToken, App: p.parseOperand()}
}

func (p *Parser) parseNotifyStatement() ast.Statement {
	return &ast.NotifyStatement{Token: p.curToken, Message: p.parseOperand()}
}

func (p *Parser) parseDialogStatement() ast.Statement {
	stmt := &ast.DialogStatement{Token: p.curToken}
	stmt.Message = p.parseOperand()
	if !p.expectPeek(token.INTO) {
		return nil
	}
	if !p.expectPeek(token.VARIABLE) {
		return nil
	}
	stmt.Target = p.variableFromToken(p.curToken)
	return stmt
}

func (p *Parser) parsePlayStatement() ast.Statement {
	return &ast.PlayStatement{Token: p.curToken, Sound: p.parseOperand()}
}

func (p *Parser) parseVolumeStatement() ast.Statement {
	return &ast.VolumeStatement{Token: p.curToken, Level: p.parseOperand()}
}

func (p *Parser) parseWaitStatement() ast.Statement {
	return &ast.WaitStatement{Token: p.curToken, Seconds: p.parseOperand()}
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	stmt := &ast.ExpressionStatement{Token: p.curToken}
	stmt.Expression = p.parseExpression(LOWEST)
	if stmt.Expression == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken}

	p.nextToken()
	p.skipNewlines()
	for !p.curTokenIs(token.RBRACE) {
		if p.curTokenIs(token.EOF) {
			p.addError(p.curToken, "unexpected end of input, expected '}'")
			return block
		}
		stmt := p.parseStatement()
		if stmt == nil || len(p.errors) > 0 {
			return block
		}
		block.Statements = append(block.Statements, stmt)
		p.endOfStatement()
		if len(p.errors) > 0 {
			return block
		}
		p.nextToken()
		p.skipNewlines()
	}
	return block
}

// -------------------------------------------------------------- expressions

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	leftExp := prefix()

	for precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}
	return leftExp
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.addError(p.curToken, "could not parse %q as number", p.curToken.Literal)
		return nil
	}
	return &ast.NumberLiteral{Token: p.curToken, Value: value}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseNullLiteral() ast.Expression {
	return &ast.NullLiteral{Token: p.curToken}
}

func (p *Parser) parseVariable() ast.Expression {
	return p.variableFromToken(p.curToken)
}

func (p *Parser) variableFromToken(tok token.Token) *ast.Variable {
	parts := strings.Split(tok.Literal, ".")
	return &ast.Variable{Token: tok, Name: parts[0], Path: parts[1:]}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expr := &ast.PrefixExpression{
		Token:    p.curToken,
		Operator: strings.ToLower(p.curToken.Literal),
	}
	p.nextToken()
	expr.Right = p.parseExpression(PREFIX)
	return expr
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expr := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: strings.ToLower(p.curToken.Literal),
		Left:     left,
	}
	precedence := p.curPrecedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	return expr
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	expr := p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return expr
}

// parseCallExpression handles the expression-level call form
// name(arg, arg). A bare identifier without an argument list is not an
// expression.
func (p *Parser) parseCallExpression() ast.Expression {
	expr := &ast.CallExpression{Token: p.curToken, Name: p.curToken.Literal}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	expr.Arguments = p.parseExpressionList(token.RPAREN)
	return expr
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	arr := &ast.ArrayLiteral{Token: p.curToken}
	arr.Elements = p.parseExpressionList(token.RBRACKET)
	return arr
}

// parseExpressionList parses comma-separated expressions up to the end
// token. Newlines after '[' / '(' / ',' are ignored so literals can be
// laid out across lines.
func (p *Parser) parseExpressionList(end token.TokenType) []ast.Expression {
	list := []ast.Expression{}

	for p.peekTokenIs(token.NEWLINE) {
		p.nextToken()
	}
	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	p.nextToken()
	elem := p.parseExpression(LOWEST)
	if elem == nil {
		return nil
	}
	list = append(list, elem)

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		for p.peekTokenIs(token.NEWLINE) {
			p.nextToken()
		}
		p.nextToken()
		elem := p.parseExpression(LOWEST)
		if elem == nil {
			return nil
		}
		list = append(list, elem)
	}

	for p.peekTokenIs(token.NEWLINE) {
		p.nextToken()
	}
	if !p.expectPeek(end) {
		return nil
	}
	return list
}

func (p *Parser) parseObjectLiteral() ast.Expression {
	obj := &ast.ObjectLiteral{Token: p.curToken}

	for p.peekTokenIs(token.NEWLINE) {
		p.nextToken()
	}
	if p.peekTokenIs(token.RBRACE) {
		p.nextToken()
		return obj
	}

	for {
		p.nextToken()
		if !p.curTokenIs(token.IDENT) && !p.curTokenIs(token.STRING) && !token.IsKeyword(p.curToken.Type) {
			p.addError(p.curToken, "invalid object key %s (%q)", p.curToken.Type, p.curToken.Literal)
			return nil
		}
		key := p.curToken.Literal

		if !p.expectPeek(token.COLON) {
			return nil
		}
		p.nextToken()
		val := p.parseExpression(LOWEST)
		if val == nil {
			return nil
		}
		obj.Fields = append(obj.Fields, ast.ObjectField{Key: key, Value: val})

		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		for p.peekTokenIs(token.NEWLINE) {
			p.nextToken()
		}
	}

	for p.peekTokenIs(token.NEWLINE) {
		p.nextToken()
	}
	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	return obj
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	expr := &ast.IndexExpression{Token: p.curToken, Left: left}
	p.nextToken()
	expr.Index = p.parseExpression(LOWEST)
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return expr
}
