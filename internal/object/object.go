package object

import (
	"bytes"
	"fmt"
	"mote/internal/ast"
	"strconv"
	"strings"
)

const (
	NULL_OBJ    = "NULL"
	BOOLEAN_OBJ = "BOOLEAN"
	NUMBER_OBJ  = "NUMBER"
	STRING_OBJ  = "STRING"

	ARRAY_OBJ  = "ARRAY"
	OBJECT_OBJ = "OBJECT"

	FUNCTION_OBJ = "FUNCTION"
	BUILTIN_OBJ  = "BUILTIN"

	RETURN_VALUE_OBJ = "RETURN_VALUE"
	BREAK_OBJ        = "BREAK"
	CONTINUE_OBJ     = "CONTINUE"

	ERROR_OBJ   = "ERROR"
	FATAL_OBJ   = "FATAL"
	PENDING_OBJ = "PENDING"
)

var (
	NULL  = &Null{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}

	BREAK    = &Break{}
	CONTINUE = &Continue{}
)

type ObjectType string

type Object interface {
	Type() ObjectType
	Inspect() string
}

type Null struct{}

func (n *Null) Type() ObjectType { return NULL_OBJ }
func (n *Null) Inspect() string  { return "null" }

type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string  { return fmt.Sprintf("%t", b.Value) }

type Number struct {
	Value float64
}

func (n *Number) Type() ObjectType { return NUMBER_OBJ }

// Inspect prints whole numbers without a decimal point.
func (n *Number) Inspect() string {
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return s.Value }

type Array struct {
	Elements []Object
}

func (a *Array) Type() ObjectType { return ARRAY_OBJ }
func (a *Array) Inspect() string {
	elems := make([]string, 0, len(a.Elements))
	for _, e := range a.Elements {
		elems = append(elems, inspectQuoted(e))
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

// Map is the object value: string keys, insertion-ordered so iteration
// and key listing are deterministic.
type Map struct {
	Pairs map[string]Object
	keys  []string
}

func NewMap() *Map {
	return &Map{Pairs: map[string]Object{}}
}

func (m *Map) Type() ObjectType { return OBJECT_OBJ }
func (m *Map) Inspect() string {
	var out bytes.Buffer
	out.WriteString("{")
	for i, k := range m.keys {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(k)
		out.WriteString(": ")
		out.WriteString(inspectQuoted(m.Pairs[k]))
	}
	out.WriteString("}")
	return out.String()
}

func (m *Map) Get(key string) (Object, bool) {
	v, ok := m.Pairs[key]
	return v, ok
}

func (m *Map) Set(key string, val Object) {
	if _, exists := m.Pairs[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.Pairs[key] = val
}

func (m *Map) Delete(key string) {
	if _, exists := m.Pairs[key]; !exists {
		return
	}
	delete(m.Pairs, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the key names in insertion order.
func (m *Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *Map) Len() int { return len(m.Pairs) }

// Function is a user-defined function value. Env is the environment
// captured at definition time, not call time.
type Function struct {
	Name       string
	Parameters []string
	Body       *ast.BlockStatement
	Env        *Environment
}

func (f *Function) Type() ObjectType { return FUNCTION_OBJ }
func (f *Function) Inspect() string {
	params := make([]string, 0, len(f.Parameters))
	for _, p := range f.Parameters {
		params = append(params, "$"+p)
	}
	return "function " + f.Name + " " + strings.Join(params, " ") + " {...}"
}

// BuiltinFunction is a host-supplied function. It receives already
// evaluated arguments and returns a value, an *Error, or a *Pending
// marker when it needs to suspend the run.
type BuiltinFunction func(args ...Object) Object

type Builtin struct {
	Name string
	Fn   BuiltinFunction
}

func (b *Builtin) Type() ObjectType { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string  { return "builtin " + b.Name }

type ReturnValue struct {
	Value Object
}

func (rv *ReturnValue) Type() ObjectType { return RETURN_VALUE_OBJ }
func (rv *ReturnValue) Inspect() string  { return rv.Value.Inspect() }

type Break struct{}

func (b *Break) Type() ObjectType { return BREAK_OBJ }
func (b *Break) Inspect() string  { return "break" }

type Continue struct{}

func (c *Continue) Type() ObjectType { return CONTINUE_OBJ }
func (c *Continue) Inspect() string  { return "continue" }

// Error is a catchable runtime error; a script-level try/catch binds
// its message.
type Error struct {
	Message string
	Line    int
	Column  int
}

func (e *Error) Type() ObjectType { return ERROR_OBJ }
func (e *Error) Inspect() string {
	if e.Line > 0 {
		return fmt.Sprintf("error [%d:%d]: %s", e.Line, e.Column, e.Message)
	}
	return "error: " + e.Message
}

// FatalError terminates a run regardless of try/catch: resource
// ceilings, timeouts and cancellation report through it.
type FatalError struct {
	Message string
}

func (e *FatalError) Type() ObjectType { return FATAL_OBJ }
func (e *FatalError) Inspect() string  { return "fatal: " + e.Message }

// Pending is returned by a suspending builtin: the evaluator blocks on
// Ch and resumes with the delivered value once the host completes the
// awaited operation.
type Pending struct {
	Ch <-chan Object
}

func (p *Pending) Type() ObjectType { return PENDING_OBJ }
func (p *Pending) Inspect() string  { return "<pending>" }

// IsTruthy applies the language's truthiness rule: null, false, zero,
// the empty string and the empty array are falsy; everything else,
// including the empty object, is truthy.
func IsTruthy(obj Object) bool {
	switch obj := obj.(type) {
	case *Null:
		return false
	case *Boolean:
		return obj.Value
	case *Number:
		return obj.Value != 0
	case *String:
		return obj.Value != ""
	case *Array:
		return len(obj.Elements) > 0
	case nil:
		return false
	default:
		return true
	}
}

// Equals is the strict equality rule behind == and !=: values of
// different runtime types are never equal, arrays and objects compare
// element-wise.
func Equals(a, b Object) bool {
	if a.Type() != b.Type() {
		return false
	}
	switch a := a.(type) {
	case *Null:
		return true
	case *Boolean:
		return a.Value == b.(*Boolean).Value
	case *Number:
		return a.Value == b.(*Number).Value
	case *String:
		return a.Value == b.(*String).Value
	case *Array:
		bArr := b.(*Array)
		if len(a.Elements) != len(bArr.Elements) {
			return false
		}
		for i := range a.Elements {
			if !Equals(a.Elements[i], bArr.Elements[i]) {
				return false
			}
		}
		return true
	case *Map:
		bMap := b.(*Map)
		if a.Len() != bMap.Len() {
			return false
		}
		for k, v := range a.Pairs {
			other, ok := bMap.Pairs[k]
			if !ok || !Equals(v, other) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// inspectQuoted renders strings with quotes inside composite values so
// [1, "a"] does not print as [1, a].
func inspectQuoted(obj Object) string {
	if s, ok := obj.(*String); ok {
		return strconv.Quote(s.Value)
	}
	if obj == nil {
		return "null"
	}
	return obj.Inspect()
}
