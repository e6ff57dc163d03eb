package ast

import (
	"bytes"
	"mote/internal/token"
	"strings"
)

// The base Node interface. Every node keeps the token that opened it so
// diagnostics can point back into the source.
type Node interface {
	TokenLiteral() string
	Pos() (line, column int)
	String() string
}

type Statement interface {
	Node
	statementNode()
}

type Expression interface {
	Node
	expressionNode()
}

type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) Pos() (int, int) {
	if len(p.Statements) > 0 {
		return p.Statements[0].Pos()
	}
	return 1, 1
}

func (p *Program) String() string {
	var out bytes.Buffer
	for _, s := range p.Statements {
		out.WriteString(s.String())
		out.WriteString("\n")
	}
	return out.String()
}

// ---------------------------------------------------------------- statements

type BlockStatement struct {
	Token      token.Token // the '{' token
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BlockStatement) Pos() (int, int)      { return bs.Token.Line, bs.Token.Column }
func (bs *BlockStatement) String() string {
	var out bytes.Buffer
	out.WriteString("{ ")
	for _, s := range bs.Statements {
		out.WriteString(s.String())
		out.WriteString("; ")
	}
	out.WriteString("}")
	return out.String()
}

// AssignStatement is `$name = expr` or `$obj.path = expr`.
type AssignStatement struct {
	Token  token.Token // the VARIABLE token
	Target *Variable
	Value  Expression
}

func (as *AssignStatement) statementNode()       {}
func (as *AssignStatement) TokenLiteral() string { return as.Token.Literal }
func (as *AssignStatement) Pos() (int, int)      { return as.Token.Line, as.Token.Column }
func (as *AssignStatement) String() string {
	return as.Target.String() + " = " + as.Value.String()
}

type IfStatement struct {
	Token       token.Token // the IF token
	Condition   Expression
	Consequence *BlockStatement
	Alternative Statement // *BlockStatement, *IfStatement (else-if), or nil
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) TokenLiteral() string { return is.Token.Literal }
func (is *IfStatement) Pos() (int, int)      { return is.Token.Line, is.Token.Column }
func (is *IfStatement) String() string {
	var out bytes.Buffer
	out.WriteString("if ")
	out.WriteString(is.Condition.String())
	out.WriteString(" ")
	out.WriteString(is.Consequence.String())
	if is.Alternative != nil {
		out.WriteString(" else ")
		out.WriteString(is.Alternative.String())
	}
	return out.String()
}

// LoopStatement is the count loop: `loop expr { }` or `loop expr as $i { }`.
// The iteration variable defaults to "index" and counts 0..n-1.
type LoopStatement struct {
	Token   token.Token // the LOOP token
	Count   Expression
	VarName string
	Body    *BlockStatement
}

func (ls *LoopStatement) statementNode()       {}
func (ls *LoopStatement) TokenLiteral() string { return ls.Token.Literal }
func (ls *LoopStatement) Pos() (int, int)      { return ls.Token.Line, ls.Token.Column }
func (ls *LoopStatement) String() string {
	return "loop " + ls.Count.String() + " as $" + ls.VarName + " " + ls.Body.String()
}

type WhileStatement struct {
	Token     token.Token // the WHILE token
	Condition Expression
	Body      *BlockStatement
}

func (ws *WhileStatement) statementNode()       {}
func (ws *WhileStatement) TokenLiteral() string { return ws.Token.Literal }
func (ws *WhileStatement) Pos() (int, int)      { return ws.Token.Line, ws.Token.Column }
func (ws *WhileStatement) String() string {
	return "while " + ws.Condition.String() + " " + ws.Body.String()
}

// ForEachStatement is `foreach $item in expr { }`. Iterating an object
// visits its key strings in insertion order.
type ForEachStatement struct {
	Token    token.Token // the FOREACH token
	VarName  string
	Iterable Expression
	Body     *BlockStatement
}

func (fe *ForEachStatement) statementNode()       {}
func (fe *ForEachStatement) TokenLiteral() string { return fe.Token.Literal }
func (fe *ForEachStatement) Pos() (int, int)      { return fe.Token.Line, fe.Token.Column }
func (fe *ForEachStatement) String() string {
	return "foreach $" + fe.VarName + " in " + fe.Iterable.String() + " " + fe.Body.String()
}

type BreakStatement struct {
	Token token.Token
}

func (bs *BreakStatement) statementNode()       {}
func (bs *BreakStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BreakStatement) Pos() (int, int)      { return bs.Token.Line, bs.Token.Column }
func (bs *BreakStatement) String() string       { return "break" }

type ContinueStatement struct {
	Token token.Token
}

func (cs *ContinueStatement) statementNode()       {}
func (cs *ContinueStatement) TokenLiteral() string { return cs.Token.Literal }
func (cs *ContinueStatement) Pos() (int, int)      { return cs.Token.Line, cs.Token.Column }
func (cs *ContinueStatement) String() string       { return "continue" }

type FunctionStatement struct {
	Token      token.Token // the FUNCTION token
	Name       string
	Parameters []string
	Body       *BlockStatement
}

func (fs *FunctionStatement) statementNode()       {}
func (fs *FunctionStatement) TokenLiteral() string { return fs.Token.Literal }
func (fs *FunctionStatement) Pos() (int, int)      { return fs.Token.Line, fs.Token.Column }
func (fs *FunctionStatement) String() string {
	var out bytes.Buffer
	out.WriteString("function ")
	out.WriteString(fs.Name)
	for _, p := range fs.Parameters {
		out.WriteString(" $")
		out.WriteString(p)
	}
	out.WriteString(" ")
	out.WriteString(fs.Body.String())
	return out.String()
}

// CallStatement is the statement-level call form with space-separated
// arguments: `call name arg1 arg2`.
type CallStatement struct {
	Token     token.Token // the CALL token
	Name      string
	Arguments []Expression
}

func (cs *CallStatement) statementNode()       {}
func (cs *CallStatement) TokenLiteral() string { return cs.Token.Literal }
func (cs *CallStatement) Pos() (int, int)      { return cs.Token.Line, cs.Token.Column }
func (cs *CallStatement) String() string {
	var out bytes.Buffer
	out.WriteString("call ")
	out.WriteString(cs.Name)
	for _, a := range cs.Arguments {
		out.WriteString(" ")
		out.WriteString(a.String())
	}
	return out.String()
}

type ReturnStatement struct {
	Token token.Token // the RETURN token
	Value Expression  // nil when returning nothing
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Literal }
func (rs *ReturnStatement) Pos() (int, int)      { return rs.Token.Line, rs.Token.Column }
func (rs *ReturnStatement) String() string {
	if rs.Value == nil {
		return "return"
	}
	return "return " + rs.Value.String()
}

type TryStatement struct {
	Token    token.Token // the TRY token
	Body     *BlockStatement
	ErrVar   string // name the error message is bound to in the catch scope
	CatchBlk *BlockStatement
}

func (ts *TryStatement) statementNode()       {}
func (ts *TryStatement) TokenLiteral() string { return ts.Token.Literal }
func (ts *TryStatement) Pos() (int, int)      { return ts.Token.Line, ts.Token.Column }
func (ts *TryStatement) String() string {
	return "try " + ts.Body.String() + " catch $" + ts.ErrVar + " " + ts.CatchBlk.String()
}

// HandlerStatement registers an event handler: `on evt:name { }` or
// `on evt:name <stmt>`. Body is always a block; the inline form wraps
// its single statement.
type HandlerStatement struct {
	Token token.Token // the ON token
	Event string
	Body  *BlockStatement
}

func (hs *HandlerStatement) statementNode()       {}
func (hs *HandlerStatement) TokenLiteral() string { return hs.Token.Literal }
func (hs *HandlerStatement) Pos() (int, int)      { return hs.Token.Line, hs.Token.Column }
func (hs *HandlerStatement) String() string {
	return "on " + hs.Event + " " + hs.Body.String()
}

type EmitField struct {
	Key   string
	Value Expression
}

type EmitStatement struct {
	Token  token.Token // the EMIT token
	Event  string
	Fields []EmitField
}

func (es *EmitStatement) statementNode()       {}
func (es *EmitStatement) TokenLiteral() string { return es.Token.Literal }
func (es *EmitStatement) Pos() (int, int)      { return es.Token.Line, es.Token.Column }
func (es *EmitStatement) String() string {
	var out bytes.Buffer
	out.WriteString("emit ")
	out.WriteString(es.Event)
	for _, f := range es.Fields {
		out.WriteString(" ")
		out.WriteString(f.Key)
		out.WriteString("=")
		out.WriteString(f.Value.String())
	}
	return out.String()
}

type PrintStatement struct {
	Token token.Token
	Value Expression
}

func (ps *PrintStatement) statementNode()       {}
func (ps *PrintStatement) TokenLiteral() string { return ps.Token.Literal }
func (ps *PrintStatement) Pos() (int, int)      { return ps.Token.Line, ps.Token.Column }
func (ps *PrintStatement) String() string       { return "print " + ps.Value.String() }

// ReadStatement is `read <path> into $var`.
type ReadStatement struct {
	Token  token.Token
	Path   Expression
	Target *Variable
}

func (rs *ReadStatement) statementNode()       {}
func (rs *ReadStatement) TokenLiteral() string { return rs.Token.Literal }
func (rs *ReadStatement) Pos() (int, int)      { return rs.Token.Line, rs.Token.Column }
func (rs *ReadStatement) String() string {
	return "read " + rs.Path.String() + " into " + rs.Target.String()
}

type WriteStatement struct {
	Token   token.Token
	Path    Expression
	Content Expression
}

func (ws *WriteStatement) statementNode()       {}
func (ws *WriteStatement) TokenLiteral() string { return ws.Token.Literal }
func (ws *WriteStatement) Pos() (int, int)      { return ws.Token.Line, ws.Token.Column }
func (ws *WriteStatement) String() string {
	return "write " + ws.Path.String() + " " + ws.Content.String()
}

type DeleteStatement struct {
	Token token.Token
	Path  Expression
}

func (ds *DeleteStatement) statementNode()       {}
func (ds *DeleteStatement) TokenLiteral() string { return ds.Token.Literal }
func (ds *DeleteStatement) Pos() (int, int)      { return ds.Token.Line, ds.Token.Column }
func (ds *DeleteStatement) String() string       { return "delete " + ds.Path.String() }

type MkDirStatement struct {
	Token token.Token
	Path  Expression
}

func (ms *MkDirStatement) statementNode()       {}
func (ms *MkDirStatement) TokenLiteral() string { return ms.Token.Literal }
func (ms *MkDirStatement) Pos() (int, int)      { return ms.Token.Line, ms.Token.Column }
func (ms *MkDirStatement) String() string       { return "mkdir " + ms.Path.String() }

type LaunchStatement struct {
	Token token.Token
	App   Expression
}

func (ls *LaunchStatement) statementNode()       {}
func (ls *LaunchStatement) TokenLiteral() string { return ls.Token.Literal }
func (ls *LaunchStatement) Pos() (int, int)      { return ls.Token.Line, ls.Token.Column }
func (ls *LaunchStatement) String() string       { return "launch " + ls.App.String() }

type CloseStatement struct {
	Token token.Token
	App   Expression
}

func (cs *CloseStatement) statementNode()       {}
func (cs *CloseStatement) TokenLiteral() string { return cs.Token.Literal }
func (cs *CloseStatement) Pos() (int, int)      { return cs.Token.Line, cs.Token.Column }
func (cs *CloseStatement) String() string       { return "close " + cs.App.String() }

type FocusStatement struct {
	Token token.Token
	App   Expression
}

func (fs *FocusStatement) statementNode()       {}
func (fs *FocusStatement) TokenLiteral() string { return fs.Token.Literal }
func (fs *FocusStatement) Pos() (int, int)      { return fs.Token.Line, fs.Token.Column }
func (fs *FocusStatement) String() string       { return "focus " + fs.App.String() }

type NotifyStatement struct {
	Token   token.Token
	Message Expression
}

func (ns *NotifyStatement) statementNode()       {}
func (ns *NotifyStatement) TokenLiteral() string { return ns.Token.Literal }
func (ns *NotifyStatement) Pos() (int, int)      { return ns.Token.Line, ns.Token.Column }
func (ns *NotifyStatement) String() string       { return "notify " + ns.Message.String() }

// DialogStatement is the blocking prompt: `dialog <msg> into $var`.
// Execution suspends until the host resolves the dialog.
type DialogStatement struct {
	Token   token.Token
	Message Expression
	Target  *Variable
}

func (ds *DialogStatement) statementNode()       {}
func (ds *DialogStatement) TokenLiteral() string { return ds.Token.Literal }
func (ds *DialogStatement) Pos() (int, int)      { return ds.Token.Line, ds.Token.Column }
func (ds *DialogStatement) String() string {
	return "dialog " + ds.Message.String() + " into " + ds.Target.String()
}

type PlayStatement struct {
	Token token.Token
	Sound Expression
}

func (ps *PlayStatement) statementNode()       {}
func (ps *PlayStatement) TokenLiteral() string { return ps.Token.Literal }
func (ps *PlayStatement) Pos() (int, int)      { return ps.Token.Line, ps.Token.Column }
func (ps *PlayStatement) String() string       { return "play " + ps.Sound.String() }

type VolumeStatement struct {
	Token token.Token
	Level Expression
}

func (vs *VolumeStatement) statementNode()       {}
func (vs *VolumeStatement) TokenLiteral() string { return vs.Token.Literal }
func (vs *VolumeStatement) Pos() (int, int)      { return vs.Token.Line, vs.Token.Column }
func (vs *VolumeStatement) String() string       { return "volume " + vs.Level.String() }

// WaitStatement suspends the run for a number of seconds (fractional
// values allowed).
type WaitStatement struct {
	Token   token.Token
	Seconds Expression
}

func (ws *WaitStatement) statementNode()       {}
func (ws *WaitStatement) TokenLiteral() string { return ws.Token.Literal }
func (ws *WaitStatement) Pos() (int, int)      { return ws.Token.Line, ws.Token.Column }
func (ws *WaitStatement) String() string       { return "wait " + ws.Seconds.String() }

// ExpressionStatement lets a bare expression stand as a statement,
// mainly for the REPL.
type ExpressionStatement struct {
	Token      token.Token
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Literal }
func (es *ExpressionStatement) Pos() (int, int)      { return es.Token.Line, es.Token.Column }
func (es *ExpressionStatement) String() string       { return es.Expression.String() }

// --------------------------------------------------------------- expressions

type NumberLiteral struct {
	Token token.Token
	Value float64
}

func (nl *NumberLiteral) expressionNode()      {}
func (nl *NumberLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NumberLiteral) Pos() (int, int)      { return nl.Token.Line, nl.Token.Column }
func (nl *NumberLiteral) String() string       { return nl.Token.Literal }

type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *StringLiteral) Pos() (int, int)      { return sl.Token.Line, sl.Token.Column }
func (sl *StringLiteral) String() string       { return `"` + sl.Value + `"` }

type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (bl *BooleanLiteral) expressionNode()      {}
func (bl *BooleanLiteral) TokenLiteral() string { return bl.Token.Literal }
func (bl *BooleanLiteral) Pos() (int, int)      { return bl.Token.Line, bl.Token.Column }
func (bl *BooleanLiteral) String() string       { return bl.Token.Literal }

type NullLiteral struct {
	Token token.Token
}

func (nl *NullLiteral) expressionNode()      {}
func (nl *NullLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NullLiteral) Pos() (int, int)      { return nl.Token.Line, nl.Token.Column }
func (nl *NullLiteral) String() string       { return "null" }

// Variable is a sigil reference with an optional dotted path:
// $name resolves the binding, $name.a.b walks object members.
type Variable struct {
	Token token.Token // the VARIABLE token
	Name  string
	Path  []string
}

func (v *Variable) expressionNode()      {}
func (v *Variable) TokenLiteral() string { return v.Token.Literal }
func (v *Variable) Pos() (int, int)      { return v.Token.Line, v.Token.Column }
func (v *Variable) String() string {
	if len(v.Path) == 0 {
		return "$" + v.Name
	}
	return "$" + v.Name + "." + strings.Join(v.Path, ".")
}

type ArrayLiteral struct {
	Token    token.Token // the '[' token
	Elements []Expression
}

func (al *ArrayLiteral) expressionNode()      {}
func (al *ArrayLiteral) TokenLiteral() string { return al.Token.Literal }
func (al *ArrayLiteral) Pos() (int, int)      { return al.Token.Line, al.Token.Column }
func (al *ArrayLiteral) String() string {
	elems := make([]string, 0, len(al.Elements))
	for _, e := range al.Elements {
		elems = append(elems, e.String())
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

type ObjectField struct {
	Key   string
	Value Expression
}

type ObjectLiteral struct {
	Token  token.Token // the '{' token
	Fields []ObjectField
}

func (ol *ObjectLiteral) expressionNode()      {}
func (ol *ObjectLiteral) TokenLiteral() string { return ol.Token.Literal }
func (ol *ObjectLiteral) Pos() (int, int)      { return ol.Token.Line, ol.Token.Column }
func (ol *ObjectLiteral) String() string {
	fields := make([]string, 0, len(ol.Fields))
	for _, f := range ol.Fields {
		fields = append(fields, f.Key+": "+f.Value.String())
	}
	return "{" + strings.Join(fields, ", ") + "}"
}

type PrefixExpression struct {
	Token    token.Token // '-' or NOT
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()      {}
func (pe *PrefixExpression) TokenLiteral() string { return pe.Token.Literal }
func (pe *PrefixExpression) Pos() (int, int)      { return pe.Token.Line, pe.Token.Column }
func (pe *PrefixExpression) String() string {
	return "(" + pe.Operator + " " + pe.Right.String() + ")"
}

// InfixExpression covers arithmetic, comparison and the short-circuit
// logical operators; the evaluator special-cases "and"/"or".
type InfixExpression struct {
	Token    token.Token
	Operator string
	Left     Expression
	Right    Expression
}

func (ie *InfixExpression) expressionNode()      {}
func (ie *InfixExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *InfixExpression) Pos() (int, int)      { return ie.Token.Line, ie.Token.Column }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}

// CallExpression is the expression-level call form: name(arg, arg).
type CallExpression struct {
	Token     token.Token // the IDENT token of the callee
	Name      string
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *CallExpression) Pos() (int, int)      { return ce.Token.Line, ce.Token.Column }
func (ce *CallExpression) String() string {
	args := make([]string, 0, len(ce.Arguments))
	for _, a := range ce.Arguments {
		args = append(args, a.String())
	}
	return ce.Name + "(" + strings.Join(args, ", ") + ")"
}

type IndexExpression struct {
	Token token.Token // the '[' token
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) expressionNode()      {}
func (ie *IndexExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IndexExpression) Pos() (int, int)      { return ie.Token.Line, ie.Token.Column }
func (ie *IndexExpression) String() string {
	return "(" + ie.Left.String() + "[" + ie.Index.String() + "])"
}
