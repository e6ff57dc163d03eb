package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"mote/internal/ast"
	"mote/internal/host"
	"mote/internal/object"
	"regexp"
	"strings"
	"time"
)

var (
	NULL  = object.NULL
	TRUE  = object.TRUE
	FALSE = object.FALSE
)

// Limits are the per-run resource ceilings. Exceeding any of them
// raises an uncatchable fatal error.
type Limits struct {
	MaxLoopIterations int64
	MaxCallDepth      int
	MaxHandlers       int
}

func DefaultLimits() Limits {
	return Limits{
		MaxLoopIterations: 100_000,
		MaxCallDepth:      64,
		MaxHandlers:       256,
	}
}

// Evaluator walks the AST of one run. It is single-threaded: one run
// never executes two statements concurrently, and external handler
// dispatch is serialized by the engine's session gate.
type Evaluator struct {
	hc     host.Context
	env    *object.Environment
	limits Limits

	ctx      context.Context
	deadline time.Time
	window   time.Duration

	runID string
	out   func(line string)
	gate  func(fn func()) // serializes external handler dispatch

	depth      int
	iterations int64

	handlers  []*handler
	overrides map[string]*object.Builtin
	cleanup   []func()

	hostFns *hostBuiltins
}

func New(hc host.Context, env *object.Environment, limits Limits) *Evaluator {
	e := &Evaluator{
		hc:        hc,
		env:       env,
		limits:    limits,
		ctx:       context.Background(),
		out:       func(string) {},
		gate:      func(fn func()) { fn() },
		overrides: map[string]*object.Builtin{},
	}
	e.hostFns = newHostBuiltins(e)
	return e
}

// SetRun wires the per-run identity and cancellation context. A zero
// deadline disables the wall-clock limit.
func (e *Evaluator) SetRun(runID string, ctx context.Context, deadline time.Time) {
	e.runID = runID
	e.ctx = ctx
	e.deadline = deadline
}

// SetHandlerWindow grants each external handler dispatch a fresh
// wall-clock budget. Without it a persistent session would keep the
// body's absolute deadline and every handler firing after that moment
// would die on arrival.
func (e *Evaluator) SetHandlerWindow(d time.Duration) { e.window = d }

// SetOutput installs the sink for print statements.
func (e *Evaluator) SetOutput(fn func(line string)) { e.out = fn }

// SetGate installs the serializer used when events arrive from outside
// the run's own goroutine.
func (e *Evaluator) SetGate(fn func(fn func())) { e.gate = fn }

// Override installs a run-scoped builtin that shadows the shared table.
func (e *Evaluator) Override(name string, fn object.BuiltinFunction) {
	e.overrides[name] = &object.Builtin{Name: name, Fn: fn}
}

// Env exposes the run's root environment for final-variable inspection.
func (e *Evaluator) Env() *object.Environment { return e.env }

// Cleanup releases resources the run acquired, such as open database
// connections. Safe to call more than once.
func (e *Evaluator) Cleanup() {
	for _, fn := range e.cleanup {
		fn()
	}
	e.cleanup = nil
}

func (e *Evaluator) Eval(node ast.Node) object.Object {
	switch node := node.(type) {

	// Statements
	case *ast.Program:
		return e.evalProgram(node)

	case *ast.BlockStatement:
		return e.evalBlock(node, object.NewEnclosedEnvironment(e.env))

	case *ast.ExpressionStatement:
		return e.Eval(node.Expression)

	case *ast.AssignStatement:
		return e.evalAssign(node)

	case *ast.IfStatement:
		return e.evalIf(node)

	case *ast.LoopStatement:
		return e.evalLoop(node)

	case *ast.WhileStatement:
		return e.evalWhile(node)

	case *ast.ForEachStatement:
		return e.evalForEach(node)

	case *ast.BreakStatement:
		return object.BREAK

	case *ast.ContinueStatement:
		return object.CONTINUE

	case *ast.FunctionStatement:
		fn := &object.Function{
			Name:       node.Name,
			Parameters: node.Parameters,
			Body:       node.Body,
			Env:        e.env, // definition-time capture
		}
		e.env.SetLocal(node.Name, fn)
		return NULL

	case *ast.CallStatement:
		args, errObj := e.evalExpressions(node.Arguments)
		if errObj != nil {
			return errObj
		}
		return e.call(node, node.Name, args)

	case *ast.ReturnStatement:
		if node.Value == nil {
			return &object.ReturnValue{Value: NULL}
		}
		val := e.Eval(node.Value)
		if isAbort(val) {
			return val
		}
		return &object.ReturnValue{Value: val}

	case *ast.TryStatement:
		return e.evalTry(node)

	case *ast.HandlerStatement:
		return e.registerHandler(node)

	case *ast.EmitStatement:
		return e.evalEmit(node)

	case *ast.PrintStatement:
		val := e.Eval(node.Value)
		if isAbort(val) {
			return val
		}
		e.out(toString(val))
		return NULL

	case *ast.ReadStatement:
		return e.evalRead(node)

	case *ast.WriteStatement:
		return e.evalWrite(node)

	case *ast.DeleteStatement:
		path, errObj := e.evalString(node.Path)
		if errObj != nil {
			return errObj
		}
		if err := e.hc.FS.Delete(path); err != nil {
			return e.newErrorAt(node, "%s", err)
		}
		return NULL

	case *ast.MkDirStatement:
		path, errObj := e.evalString(node.Path)
		if errObj != nil {
			return errObj
		}
		if err := e.hc.FS.MkDir(path); err != nil {
			return e.newErrorAt(node, "%s", err)
		}
		return NULL

	case *ast.LaunchStatement:
		return e.windowOp(node, node.App, e.hc.Windows.Launch)

	case *ast.CloseStatement:
		return e.windowOp(node, node.App, e.hc.Windows.Close)

	case *ast.FocusStatement:
		return e.windowOp(node, node.App, e.hc.Windows.Focus)

	case *ast.NotifyStatement:
		msg := e.Eval(node.Message)
		if isAbort(msg) {
			return msg
		}
		e.hc.Dialogs.Notify(toString(msg))
		return NULL

	case *ast.DialogStatement:
		return e.evalDialog(node)

	case *ast.PlayStatement:
		sound := e.Eval(node.Sound)
		if isAbort(sound) {
			return sound
		}
		if err := e.hc.Commands.Exec("audio:play", []any{object.ToNative(sound)}); err != nil {
			return e.newErrorAt(node, "%s", err)
		}
		return NULL

	case *ast.VolumeStatement:
		level := e.Eval(node.Level)
		if isAbort(level) {
			return level
		}
		if err := e.hc.Commands.Exec("audio:volume", []any{object.ToNative(level)}); err != nil {
			return e.newErrorAt(node, "%s", err)
		}
		return NULL

	case *ast.WaitStatement:
		return e.evalWait(node)

	// Expressions
	case *ast.NumberLiteral:
		return &object.Number{Value: node.Value}

	case *ast.StringLiteral:
		return &object.String{Value: e.interpolate(node.Value)}

	case *ast.BooleanLiteral:
		return nativeBoolToBooleanObject(node.Value)

	case *ast.NullLiteral:
		return NULL

	case *ast.Variable:
		return e.evalVariable(node)

	case *ast.ArrayLiteral:
		elements, errObj := e.evalExpressions(node.Elements)
		if errObj != nil {
			return errObj
		}
		return &object.Array{Elements: elements}

	case *ast.ObjectLiteral:
		m := object.NewMap()
		for _, f := range node.Fields {
			val := e.Eval(f.Value)
			if isAbort(val) {
				return val
			}
			m.Set(f.Key, val)
		}
		return m

	case *ast.PrefixExpression:
		right := e.Eval(node.Right)
		if isAbort(right) {
			return right
		}
		return e.evalPrefixExpression(node, right)

	case *ast.InfixExpression:
		if node.Operator == "and" || node.Operator == "or" {
			return e.evalLogicalExpression(node)
		}
		left := e.Eval(node.Left)
		if isAbort(left) {
			return left
		}
		right := e.Eval(node.Right)
		if isAbort(right) {
			return right
		}
		return e.evalInfixExpression(node, left, right)

	case *ast.CallExpression:
		args, errObj := e.evalExpressions(node.Arguments)
		if errObj != nil {
			return errObj
		}
		return e.call(node, node.Name, args)

	case *ast.IndexExpression:
		left := e.Eval(node.Left)
		if isAbort(left) {
			return left
		}
		index := e.Eval(node.Index)
		if isAbort(index) {
			return index
		}
		return e.evalIndexExpression(node, left, index)
	}

	return NULL
}

func (e *Evaluator) evalProgram(program *ast.Program) object.Object {
	var result object.Object = NULL
	for _, statement := range program.Statements {
		result = e.Eval(statement)
		switch result := result.(type) {
		case *object.ReturnValue:
			return result.Value
		case *object.Error, *object.FatalError:
			return result
		case *object.Break, *object.Continue:
			return e.newErrorAt(statement, "%s outside of a loop", result.Inspect())
		}
	}
	return result
}

// evalBlock runs the block body in env and restores the previous scope
// on every exit path, including errors.
func (e *Evaluator) evalBlock(block *ast.BlockStatement, env *object.Environment) object.Object {
	prev := e.env
	e.env = env
	defer func() { e.env = prev }()

	var result object.Object = NULL
	for _, statement := range block.Statements {
		result = e.Eval(statement)
		if isAbort(result) || isSignal(result) {
			return result
		}
	}
	return result
}

// ---------------------------------------------------------------- statements

func (e *Evaluator) evalAssign(node *ast.AssignStatement) object.Object {
	val := e.Eval(node.Value)
	if isAbort(val) {
		return val
	}
	return e.assignTo(node, node.Target, val)
}

func (e *Evaluator) evalIf(node *ast.IfStatement) object.Object {
	cond := e.Eval(node.Condition)
	if isAbort(cond) {
		return cond
	}
	if object.IsTruthy(cond) {
		return e.Eval(node.Consequence)
	}
	if node.Alternative != nil {
		return e.Eval(node.Alternative)
	}
	return NULL
}

func (e *Evaluator) evalLoop(node *ast.LoopStatement) object.Object {
	countObj := e.Eval(node.Count)
	if isAbort(countObj) {
		return countObj
	}
	num, ok := countObj.(*object.Number)
	if !ok {
		return e.newErrorAt(node, "loop count must be a number, got %s", countObj.Type())
	}

	count := int64(num.Value)
	for i := int64(0); i < count; i++ {
		if fatal := e.tick(); fatal != nil {
			return fatal
		}
		env := object.NewEnclosedEnvironment(e.env)
		env.SetLocal(node.VarName, &object.Number{Value: float64(i)})
		result := e.evalBlock(node.Body, env)
		switch result.(type) {
		case *object.Break:
			return NULL
		case *object.Continue:
			continue
		case *object.ReturnValue, *object.Error, *object.FatalError:
			return result
		}
	}
	return NULL
}

func (e *Evaluator) evalWhile(node *ast.WhileStatement) object.Object {
	for {
		if fatal := e.tick(); fatal != nil {
			return fatal
		}
		cond := e.Eval(node.Condition)
		if isAbort(cond) {
			return cond
		}
		if !object.IsTruthy(cond) {
			return NULL
		}
		result := e.evalBlock(node.Body, object.NewEnclosedEnvironment(e.env))
		switch result.(type) {
		case *object.Break:
			return NULL
		case *object.Continue:
			continue
		case *object.ReturnValue, *object.Error, *object.FatalError:
			return result
		}
	}
}

func (e *Evaluator) evalForEach(node *ast.ForEachStatement) object.Object {
	iterable := e.Eval(node.Iterable)
	if isAbort(iterable) {
		return iterable
	}

	// defensive snapshot: handler or host mutation of the live
	// collection cannot corrupt the iteration
	var items []object.Object
	switch it := iterable.(type) {
	case *object.Array:
		items = make([]object.Object, len(it.Elements))
		copy(items, it.Elements)
	case *object.Map:
		for _, k := range it.Keys() {
			items = append(items, &object.String{Value: k})
		}
	case *object.String:
		for _, r := range it.Value {
			items = append(items, &object.String{Value: string(r)})
		}
	case *object.Null:
		return NULL
	default:
		return e.newErrorAt(node, "cannot iterate %s", iterable.Type())
	}

	for _, item := range items {
		if fatal := e.tick(); fatal != nil {
			return fatal
		}
		env := object.NewEnclosedEnvironment(e.env)
		env.SetLocal(node.VarName, item)
		result := e.evalBlock(node.Body, env)
		switch result.(type) {
		case *object.Break:
			return NULL
		case *object.Continue:
			continue
		case *object.ReturnValue, *object.Error, *object.FatalError:
			return result
		}
	}
	return NULL
}

// evalTry runs the body in its own scope; a catchable error binds its
// message into a fresh catch scope. Fatal errors pass through, and so
// do break/continue/return signals.
func (e *Evaluator) evalTry(node *ast.TryStatement) object.Object {
	result := e.evalBlock(node.Body, object.NewEnclosedEnvironment(e.env))

	errObj, isErr := result.(*object.Error)
	if !isErr {
		return result
	}

	catchEnv := object.NewEnclosedEnvironment(e.env)
	catchEnv.SetLocal(node.ErrVar, &object.String{Value: errObj.Message})
	return e.evalBlock(node.CatchBlk, catchEnv)
}

func (e *Evaluator) evalRead(node *ast.ReadStatement) object.Object {
	path, errObj := e.evalString(node.Path)
	if errObj != nil {
		return errObj
	}
	content, err := e.hc.FS.Read(path)
	if err != nil {
		return e.newErrorAt(node, "%s", err)
	}
	return e.assignTo(node, node.Target, &object.String{Value: content})
}

func (e *Evaluator) evalWrite(node *ast.WriteStatement) object.Object {
	path, errObj := e.evalString(node.Path)
	if errObj != nil {
		return errObj
	}
	content := e.Eval(node.Content)
	if isAbort(content) {
		return content
	}
	if err := e.hc.FS.Write(path, toString(content)); err != nil {
		return e.newErrorAt(node, "%s", err)
	}
	return NULL
}

func (e *Evaluator) evalDialog(node *ast.DialogStatement) object.Object {
	msg := e.Eval(node.Message)
	if isAbort(msg) {
		return msg
	}
	ch := e.hc.Dialogs.Prompt(toString(msg))

	answer := e.awaitString(ch)
	if isAbort(answer) {
		return answer
	}
	return e.assignTo(node, node.Target, answer)
}

func (e *Evaluator) evalWait(node *ast.WaitStatement) object.Object {
	val := e.Eval(node.Seconds)
	if isAbort(val) {
		return val
	}
	num, ok := val.(*object.Number)
	if !ok || num.Value < 0 {
		return e.newErrorAt(node, "wait expects a non-negative number of seconds")
	}
	if fatal := e.checkDeadline(); fatal != nil {
		return fatal
	}

	timer := time.NewTimer(time.Duration(num.Value * float64(time.Second)))
	defer timer.Stop()

	var deadlineCh <-chan time.Time
	if !e.deadline.IsZero() {
		dt := time.NewTimer(time.Until(e.deadline))
		defer dt.Stop()
		deadlineCh = dt.C
	}

	select {
	case <-timer.C:
		return NULL
	case <-e.ctx.Done():
		return &object.FatalError{Message: "run stopped"}
	case <-deadlineCh:
		return &object.FatalError{Message: "execution time limit exceeded"}
	}
}

// evalString evaluates an expression that must produce a usable path
// or name, stringifying the result.
func (e *Evaluator) evalString(expr ast.Expression) (string, object.Object) {
	val := e.Eval(expr)
	if isAbort(val) {
		return "", val
	}
	return toString(val), nil
}

// assignTo routes `into $var` targets through the same dotted-path
// logic as plain assignment.
func (e *Evaluator) assignTo(node ast.Node, target *ast.Variable, val object.Object) object.Object {
	if len(target.Path) == 0 {
		e.env.Assign(target.Name, val)
		return NULL
	}
	base, ok := e.env.Get(target.Name)
	if !ok {
		base = object.NewMap()
		e.env.Assign(target.Name, base)
	}
	cur, ok := base.(*object.Map)
	if !ok {
		return e.newErrorAt(node, "cannot set $%s: not an object", target.Name)
	}
	for _, seg := range target.Path[:len(target.Path)-1] {
		next, found := cur.Get(seg)
		if !found {
			child := object.NewMap()
			cur.Set(seg, child)
			cur = child
			continue
		}
		m, isMap := next.(*object.Map)
		if !isMap {
			return e.newErrorAt(node, "cannot set $%s: segment %q is not an object", target.Name, seg)
		}
		cur = m
	}
	cur.Set(target.Path[len(target.Path)-1], val)
	return NULL
}

func (e *Evaluator) windowOp(node ast.Node, appExpr ast.Expression, op func(string) error) object.Object {
	app := e.Eval(appExpr)
	if isAbort(app) {
		return app
	}
	if err := op(toString(app)); err != nil {
		return e.newErrorAt(node, "%s", err)
	}
	return NULL
}

// --------------------------------------------------------------- expressions

func (e *Evaluator) evalVariable(node *ast.Variable) object.Object {
	val, ok := e.env.Get(node.Name)
	if !ok {
		return NULL
	}
	for _, seg := range node.Path {
		m, isMap := val.(*object.Map)
		if !isMap {
			return NULL
		}
		next, found := m.Get(seg)
		if !found {
			return NULL
		}
		val = next
	}
	return val
}

func (e *Evaluator) evalExpressions(exprs []ast.Expression) ([]object.Object, object.Object) {
	var result []object.Object
	for _, expr := range exprs {
		val := e.Eval(expr)
		if isAbort(val) {
			return nil, val
		}
		result = append(result, val)
	}
	return result, nil
}

func (e *Evaluator) evalPrefixExpression(node *ast.PrefixExpression, right object.Object) object.Object {
	switch node.Operator {
	case "not":
		return nativeBoolToBooleanObject(!object.IsTruthy(right))
	case "-":
		num, ok := right.(*object.Number)
		if !ok {
			return e.newErrorAt(node, "unknown operator: -%s", right.Type())
		}
		return &object.Number{Value: -num.Value}
	default:
		return e.newErrorAt(node, "unknown operator: %s%s", node.Operator, right.Type())
	}
}

// evalLogicalExpression short-circuits and yields the operand value
// that decided the result, not a coerced boolean.
func (e *Evaluator) evalLogicalExpression(node *ast.InfixExpression) object.Object {
	left := e.Eval(node.Left)
	if isAbort(left) {
		return left
	}
	if node.Operator == "and" {
		if !object.IsTruthy(left) {
			return left
		}
	} else {
		if object.IsTruthy(left) {
			return left
		}
	}
	right := e.Eval(node.Right)
	if isAbort(right) {
		return right
	}
	return right
}

func (e *Evaluator) evalInfixExpression(node *ast.InfixExpression, left, right object.Object) object.Object {
	op := node.Operator

	switch op {
	case "==":
		return nativeBoolToBooleanObject(object.Equals(left, right))
	case "!=":
		return nativeBoolToBooleanObject(!object.Equals(left, right))
	}

	// string concatenation wins when either side of + is a string
	if op == "+" {
		if left.Type() == object.STRING_OBJ || right.Type() == object.STRING_OBJ {
			return &object.String{Value: toString(left) + toString(right)}
		}
		if l, ok := left.(*object.Array); ok {
			if r, ok := right.(*object.Array); ok {
				elems := make([]object.Object, 0, len(l.Elements)+len(r.Elements))
				elems = append(elems, l.Elements...)
				elems = append(elems, r.Elements...)
				return &object.Array{Elements: elems}
			}
		}
	}

	lNum, lOK := left.(*object.Number)
	rNum, rOK := right.(*object.Number)
	if lOK && rOK {
		return e.evalNumberInfix(node, lNum.Value, rNum.Value)
	}

	lStr, lsOK := left.(*object.String)
	rStr, rsOK := right.(*object.String)
	if lsOK && rsOK {
		switch op {
		case "<":
			return nativeBoolToBooleanObject(lStr.Value < rStr.Value)
		case "<=":
			return nativeBoolToBooleanObject(lStr.Value <= rStr.Value)
		case ">":
			return nativeBoolToBooleanObject(lStr.Value > rStr.Value)
		case ">=":
			return nativeBoolToBooleanObject(lStr.Value >= rStr.Value)
		}
	}

	return e.newErrorAt(node, "type mismatch: %s %s %s", left.Type(), op, right.Type())
}

func (e *Evaluator) evalNumberInfix(node *ast.InfixExpression, l, r float64) object.Object {
	switch node.Operator {
	case "+":
		return &object.Number{Value: l + r}
	case "-":
		return &object.Number{Value: l - r}
	case "*":
		return &object.Number{Value: l * r}
	case "/":
		// division by zero is defined as zero, not an error
		if r == 0 {
			return &object.Number{Value: 0}
		}
		return &object.Number{Value: l / r}
	case "%":
		if r == 0 {
			return &object.Number{Value: 0}
		}
		return &object.Number{Value: math.Mod(l, r)}
	case "<":
		return nativeBoolToBooleanObject(l < r)
	case "<=":
		return nativeBoolToBooleanObject(l <= r)
	case ">":
		return nativeBoolToBooleanObject(l > r)
	case ">=":
		return nativeBoolToBooleanObject(l >= r)
	default:
		return e.newErrorAt(node, "unknown operator: NUMBER %s NUMBER", node.Operator)
	}
}

func (e *Evaluator) evalIndexExpression(node *ast.IndexExpression, left, index object.Object) object.Object {
	switch left := left.(type) {
	case *object.Array:
		idx, ok := index.(*object.Number)
		if !ok {
			return e.newErrorAt(node, "array index must be a number, got %s", index.Type())
		}
		i := int(idx.Value)
		if i < 0 || i >= len(left.Elements) {
			return NULL
		}
		return left.Elements[i]
	case *object.Map:
		key, ok := index.(*object.String)
		if !ok {
			return e.newErrorAt(node, "object key must be a string, got %s", index.Type())
		}
		if val, found := left.Get(key.Value); found {
			return val
		}
		return NULL
	case *object.String:
		idx, ok := index.(*object.Number)
		if !ok {
			return e.newErrorAt(node, "string index must be a number, got %s", index.Type())
		}
		runes := []rune(left.Value)
		i := int(idx.Value)
		if i < 0 || i >= len(runes) {
			return NULL
		}
		return &object.String{Value: string(runes[i])}
	case *object.Null:
		return NULL
	default:
		return e.newErrorAt(node, "index operator not supported: %s", left.Type())
	}
}

// ------------------------------------------------------------------- calling

// call resolves a name against the environment (user functions shadow
// builtins), then run-scoped overrides, then the shared builtin table.
func (e *Evaluator) call(node ast.Node, name string, args []object.Object) object.Object {
	if val, ok := e.env.Get(name); ok {
		if fn, isFn := val.(*object.Function); isFn {
			return e.applyFunction(node, fn, args)
		}
	}
	if b, ok := e.overrides[name]; ok {
		return e.applyBuiltin(b, args)
	}
	if b, ok := e.hostFns.lookup(name); ok {
		return e.applyBuiltin(b, args)
	}
	if b, ok := LookupBuiltin(name); ok {
		return e.applyBuiltin(b, args)
	}
	return e.newErrorAt(node, "unknown function: %s", name)
}

func (e *Evaluator) applyFunction(node ast.Node, fn *object.Function, args []object.Object) object.Object {
	e.depth++
	defer func() { e.depth-- }()
	if e.limits.MaxCallDepth > 0 && e.depth > e.limits.MaxCallDepth {
		return &object.FatalError{
			Message: fmt.Sprintf("call depth limit exceeded (%d)", e.limits.MaxCallDepth),
		}
	}

	// parameters bind in a scope parented to the definition-time
	// environment, giving closure semantics
	env := object.NewEnclosedEnvironment(fn.Env)
	for i, p := range fn.Parameters {
		if i < len(args) {
			env.SetLocal(p, args[i])
		} else {
			env.SetLocal(p, NULL)
		}
	}

	result := e.evalBlock(fn.Body, env)
	switch result := result.(type) {
	case *object.ReturnValue:
		return result.Value
	case *object.Error, *object.FatalError:
		return result
	case *object.Break, *object.Continue:
		return e.newErrorAt(node, "%s outside of a loop", result.Inspect())
	}
	return NULL
}

func (e *Evaluator) applyBuiltin(b *object.Builtin, args []object.Object) object.Object {
	result := b.Fn(args...)
	if pending, ok := result.(*object.Pending); ok {
		return e.await(pending)
	}
	return result
}

// --------------------------------------------------------------- suspension

// await blocks the run on a pending completion, honoring cancellation
// and the wall-clock deadline. Resumption order across runs is the
// completion order of the awaited operations.
func (e *Evaluator) await(p *object.Pending) object.Object {
	if fatal := e.checkDeadline(); fatal != nil {
		return fatal
	}
	var deadlineCh <-chan time.Time
	if !e.deadline.IsZero() {
		dt := time.NewTimer(time.Until(e.deadline))
		defer dt.Stop()
		deadlineCh = dt.C
	}
	select {
	case v := <-p.Ch:
		if v == nil {
			return NULL
		}
		return v
	case <-e.ctx.Done():
		return &object.FatalError{Message: "run stopped"}
	case <-deadlineCh:
		return &object.FatalError{Message: "execution time limit exceeded"}
	}
}

func (e *Evaluator) awaitString(ch <-chan string) object.Object {
	wrapped := make(chan object.Object, 1)
	go func() {
		s, ok := <-ch
		if !ok {
			wrapped <- NULL
			return
		}
		wrapped <- &object.String{Value: s}
	}()
	return e.await(&object.Pending{Ch: wrapped})
}

// ------------------------------------------------------------ safety limits

// tick is the loop-iteration boundary check: iteration ceiling,
// cancellation and deadline.
func (e *Evaluator) tick() object.Object {
	e.iterations++
	if e.limits.MaxLoopIterations > 0 && e.iterations > e.limits.MaxLoopIterations {
		return &object.FatalError{
			Message: fmt.Sprintf("loop iteration limit exceeded (%d)", e.limits.MaxLoopIterations),
		}
	}
	return e.checkDeadline()
}

func (e *Evaluator) checkDeadline() object.Object {
	select {
	case <-e.ctx.Done():
		return &object.FatalError{Message: "run stopped"}
	default:
	}
	if !e.deadline.IsZero() && time.Now().After(e.deadline) {
		return &object.FatalError{Message: "execution time limit exceeded"}
	}
	return nil
}

// -------------------------------------------------------------- interpolation

var interpolationPattern = regexp.MustCompile(`\$[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*`)

// interpolate replaces $name references inside a string literal with
// their current values. Unbound names stay as literal text.
func (e *Evaluator) interpolate(s string) string {
	if !strings.ContainsRune(s, '$') {
		return s
	}
	return interpolationPattern.ReplaceAllStringFunc(s, func(ref string) string {
		parts := strings.Split(ref[1:], ".")
		val, ok := e.env.Get(parts[0])
		if !ok {
			return ref
		}
		for _, seg := range parts[1:] {
			m, isMap := val.(*object.Map)
			if !isMap {
				return ref
			}
			next, found := m.Get(seg)
			if !found {
				return ref
			}
			val = next
		}
		return toString(val)
	})
}

// ------------------------------------------------------------------- helpers

func isAbort(obj object.Object) bool {
	switch obj.(type) {
	case *object.Error, *object.FatalError, *object.ReturnValue:
		return true
	}
	return false
}

func isSignal(obj object.Object) bool {
	switch obj.(type) {
	case *object.Break, *object.Continue:
		return true
	}
	return false
}

func nativeBoolToBooleanObject(input bool) *object.Boolean {
	if input {
		return TRUE
	}
	return FALSE
}

func toString(obj object.Object) string {
	if obj == nil {
		return "null"
	}
	return obj.Inspect()
}

func (e *Evaluator) newErrorAt(node ast.Node, format string, args ...interface{}) *object.Error {
	line, col := 0, 0
	if node != nil {
		line, col = node.Pos()
	}
	err := &object.Error{Message: fmt.Sprintf(format, args...), Line: line, Column: col}
	slog.Debug("runtime error",
		slog.String("run", e.runID),
		slog.String("message", err.Message),
		slog.Int("line", line))
	return err
}

func newError(format string, args ...interface{}) *object.Error {
	return &object.Error{Message: fmt.Sprintf(format, args...)}
}
