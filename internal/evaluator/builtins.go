package evaluator

import (
	"encoding/json"
	"log/slog"
	"math"
	"math/rand"
	"mote/internal/object"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// The shared builtin table is process-wide. Hosts extend it through
// RegisterBuiltin before starting runs; run-scoped overrides live on
// the evaluator instead.
var (
	builtinsMu sync.RWMutex
	builtins   = map[string]*object.Builtin{}
)

// RegisterBuiltin adds or replaces a function in the shared table.
func RegisterBuiltin(name string, fn object.BuiltinFunction) {
	builtinsMu.Lock()
	defer builtinsMu.Unlock()
	builtins[name] = &object.Builtin{Name: name, Fn: fn}
}

// LookupBuiltin resolves a name against the shared table.
func LookupBuiltin(name string) (*object.Builtin, bool) {
	builtinsMu.RLock()
	defer builtinsMu.RUnlock()
	b, ok := builtins[name]
	return b, ok
}

// BuiltinNames lists the shared table, sorted, for diagnostics.
func BuiltinNames() []string {
	builtinsMu.RLock()
	defer builtinsMu.RUnlock()
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	registerNumberBuiltins()
	registerStringBuiltins()
	registerCollectionBuiltins()
	registerObjectBuiltins()
	registerTypeBuiltins()
	registerTimeBuiltins()
	registerJSONBuiltins()
	registerDiagnosticBuiltins()
}

func argCount(name string, args []object.Object, n int) *object.Error {
	if len(args) != n {
		return newError("%s expects %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func numArg(name string, args []object.Object, i int) (float64, *object.Error) {
	if i >= len(args) {
		return 0, newError("%s: missing argument %d", name, i+1)
	}
	n, ok := args[i].(*object.Number)
	if !ok {
		return 0, newError("%s: argument %d must be a number, got %s",
			name, i+1, strings.ToLower(string(args[i].Type())))
	}
	return n.Value, nil
}

func strArg(name string, args []object.Object, i int) (string, *object.Error) {
	if i >= len(args) {
		return "", newError("%s: missing argument %d", name, i+1)
	}
	s, ok := args[i].(*object.String)
	if !ok {
		return "", newError("%s: argument %d must be a string, got %s",
			name, i+1, strings.ToLower(string(args[i].Type())))
	}
	return s.Value, nil
}

func num(v float64) *object.Number { return &object.Number{Value: v} }
func str(v string) *object.String { return &object.String{Value: v} }
func boolean(v bool) object.Object {
	if v {
		return TRUE
	}
	return FALSE
}

// ------------------------------------------------------------------ numbers

func registerNumberBuiltins() {
	RegisterBuiltin("abs", func(args ...object.Object) object.Object {
		v, err := numArg("abs", args, 0)
		if err != nil {
			return err
		}
		return num(math.Abs(v))
	})
	RegisterBuiltin("min", func(args ...object.Object) object.Object {
		if len(args) == 0 {
			return newError("min expects at least 1 argument")
		}
		best, err := numArg("min", args, 0)
		if err != nil {
			return err
		}
		for i := 1; i < len(args); i++ {
			v, err := numArg("min", args, i)
			if err != nil {
				return err
			}
			best = math.Min(best, v)
		}
		return num(best)
	})
	RegisterBuiltin("max", func(args ...object.Object) object.Object {
		if len(args) == 0 {
			return newError("max expects at least 1 argument")
		}
		best, err := numArg("max", args, 0)
		if err != nil {
			return err
		}
		for i := 1; i < len(args); i++ {
			v, err := numArg("max", args, i)
			if err != nil {
				return err
			}
			best = math.Max(best, v)
		}
		return num(best)
	})
	RegisterBuiltin("floor", func(args ...object.Object) object.Object {
		v, err := numArg("floor", args, 0)
		if err != nil {
			return err
		}
		return num(math.Floor(v))
	})
	RegisterBuiltin("ceil", func(args ...object.Object) object.Object {
		v, err := numArg("ceil", args, 0)
		if err != nil {
			return err
		}
		return num(math.Ceil(v))
	})
	RegisterBuiltin("round", func(args ...object.Object) object.Object {
		v, err := numArg("round", args, 0)
		if err != nil {
			return err
		}
		return num(math.Round(v))
	})
	RegisterBuiltin("sqrt", func(args ...object.Object) object.Object {
		v, err := numArg("sqrt", args, 0)
		if err != nil {
			return err
		}
		if v < 0 {
			return newError("sqrt of negative number")
		}
		return num(math.Sqrt(v))
	})
	RegisterBuiltin("pow", func(args ...object.Object) object.Object {
		base, err := numArg("pow", args, 0)
		if err != nil {
			return err
		}
		exp, err := numArg("pow", args, 1)
		if err != nil {
			return err
		}
		return num(math.Pow(base, exp))
	})
	RegisterBuiltin("random", func(args ...object.Object) object.Object {
		switch len(args) {
		case 0:
			return num(rand.Float64())
		case 1:
			hi, err := numArg("random", args, 0)
			if err != nil {
				return err
			}
			if hi <= 0 {
				return num(0)
			}
			return num(float64(rand.Int63n(int64(hi))))
		case 2:
			lo, err := numArg("random", args, 0)
			if err != nil {
				return err
			}
			hi, err := numArg("random", args, 1)
			if err != nil {
				return err
			}
			if hi <= lo {
				return num(lo)
			}
			return num(lo + float64(rand.Int63n(int64(hi-lo))))
		default:
			return newError("random expects 0, 1, or 2 arguments, got %d", len(args))
		}
	})
}

// ------------------------------------------------------------------ strings

func registerStringBuiltins() {
	RegisterBuiltin("upper", func(args ...object.Object) object.Object {
		s, err := strArg("upper", args, 0)
		if err != nil {
			return err
		}
		return str(strings.ToUpper(s))
	})
	RegisterBuiltin("lower", func(args ...object.Object) object.Object {
		s, err := strArg("lower", args, 0)
		if err != nil {
			return err
		}
		return str(strings.ToLower(s))
	})
	RegisterBuiltin("trim", func(args ...object.Object) object.Object {
		s, err := strArg("trim", args, 0)
		if err != nil {
			return err
		}
		return str(strings.TrimSpace(s))
	})
	RegisterBuiltin("replace", func(args ...object.Object) object.Object {
		s, err := strArg("replace", args, 0)
		if err != nil {
			return err
		}
		old, err := strArg("replace", args, 1)
		if err != nil {
			return err
		}
		new_, err := strArg("replace", args, 2)
		if err != nil {
			return err
		}
		return str(strings.ReplaceAll(s, old, new_))
	})
	RegisterBuiltin("split", func(args ...object.Object) object.Object {
		s, err := strArg("split", args, 0)
		if err != nil {
			return err
		}
		sep, err := strArg("split", args, 1)
		if err != nil {
			return err
		}
		parts := strings.Split(s, sep)
		elements := make([]object.Object, len(parts))
		for i, p := range parts {
			elements[i] = str(p)
		}
		return &object.Array{Elements: elements}
	})
	RegisterBuiltin("substring", func(args ...object.Object) object.Object {
		s, err := strArg("substring", args, 0)
		if err != nil {
			return err
		}
		start, err := numArg("substring", args, 1)
		if err != nil {
			return err
		}
		runes := []rune(s)
		from := clampIndex(int(start), len(runes))
		to := len(runes)
		if len(args) > 2 {
			end, err := numArg("substring", args, 2)
			if err != nil {
				return err
			}
			to = clampIndex(int(end), len(runes))
		}
		if from > to {
			return str("")
		}
		return str(string(runes[from:to]))
	})
	RegisterBuiltin("startsWith", func(args ...object.Object) object.Object {
		s, err := strArg("startsWith", args, 0)
		if err != nil {
			return err
		}
		prefix, err := strArg("startsWith", args, 1)
		if err != nil {
			return err
		}
		return boolean(strings.HasPrefix(s, prefix))
	})
	RegisterBuiltin("endsWith", func(args ...object.Object) object.Object {
		s, err := strArg("endsWith", args, 0)
		if err != nil {
			return err
		}
		suffix, err := strArg("endsWith", args, 1)
		if err != nil {
			return err
		}
		return boolean(strings.HasSuffix(s, suffix))
	})
	RegisterBuiltin("indexOf", func(args ...object.Object) object.Object {
		s, err := strArg("indexOf", args, 0)
		if err != nil {
			return err
		}
		needle, err := strArg("indexOf", args, 1)
		if err != nil {
			return err
		}
		return num(float64(strings.Index(s, needle)))
	})
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

// -------------------------------------------------------------- collections

func registerCollectionBuiltins() {
	RegisterBuiltin("len", func(args ...object.Object) object.Object {
		if err := argCount("len", args, 1); err != nil {
			return err
		}
		switch arg := args[0].(type) {
		case *object.String:
			return num(float64(len([]rune(arg.Value))))
		case *object.Array:
			return num(float64(len(arg.Elements)))
		case *object.Map:
			return num(float64(arg.Len()))
		case *object.Null:
			return num(0)
		default:
			return newError("len: unsupported type %s", strings.ToLower(string(args[0].Type())))
		}
	})
	RegisterBuiltin("push", func(args ...object.Object) object.Object {
		if err := argCount("push", args, 2); err != nil {
			return err
		}
		arr, ok := args[0].(*object.Array)
		if !ok {
			return newError("push: first argument must be an array")
		}
		arr.Elements = append(arr.Elements, args[1])
		return arr
	})
	RegisterBuiltin("pop", func(args ...object.Object) object.Object {
		if err := argCount("pop", args, 1); err != nil {
			return err
		}
		arr, ok := args[0].(*object.Array)
		if !ok {
			return newError("pop: argument must be an array")
		}
		if len(arr.Elements) == 0 {
			return NULL
		}
		last := arr.Elements[len(arr.Elements)-1]
		arr.Elements = arr.Elements[:len(arr.Elements)-1]
		return last
	})
	RegisterBuiltin("keys", func(args ...object.Object) object.Object {
		if err := argCount("keys", args, 1); err != nil {
			return err
		}
		m, ok := args[0].(*object.Map)
		if !ok {
			return newError("keys: argument must be an object")
		}
		keys := m.Keys()
		elements := make([]object.Object, len(keys))
		for i, k := range keys {
			elements[i] = str(k)
		}
		return &object.Array{Elements: elements}
	})
	RegisterBuiltin("values", func(args ...object.Object) object.Object {
		if err := argCount("values", args, 1); err != nil {
			return err
		}
		m, ok := args[0].(*object.Map)
		if !ok {
			return newError("values: argument must be an object")
		}
		var elements []object.Object
		for _, k := range m.Keys() {
			v, _ := m.Get(k)
			elements = append(elements, v)
		}
		return &object.Array{Elements: elements}
	})
	RegisterBuiltin("contains", func(args ...object.Object) object.Object {
		if err := argCount("contains", args, 2); err != nil {
			return err
		}
		switch target := args[0].(type) {
		case *object.String:
			needle, ok := args[1].(*object.String)
			if !ok {
				return newError("contains: needle for a string must be a string")
			}
			return boolean(strings.Contains(target.Value, needle.Value))
		case *object.Array:
			for _, el := range target.Elements {
				if object.Equals(el, args[1]) {
					return TRUE
				}
			}
			return FALSE
		case *object.Map:
			key, ok := args[1].(*object.String)
			if !ok {
				return FALSE
			}
			_, found := target.Get(key.Value)
			return boolean(found)
		default:
			return newError("contains: unsupported type %s", strings.ToLower(string(args[0].Type())))
		}
	})
	RegisterBuiltin("join", func(args ...object.Object) object.Object {
		if len(args) == 0 {
			return newError("join: first argument must be an array")
		}
		arr, ok := args[0].(*object.Array)
		if !ok {
			return newError("join: first argument must be an array")
		}
		sep := ","
		if len(args) > 1 {
			s, err := strArg("join", args, 1)
			if err != nil {
				return err
			}
			sep = s
		}
		parts := make([]string, len(arr.Elements))
		for i, el := range arr.Elements {
			parts[i] = toString(el)
		}
		return str(strings.Join(parts, sep))
	})
	RegisterBuiltin("sort", func(args ...object.Object) object.Object {
		if err := argCount("sort", args, 1); err != nil {
			return err
		}
		arr, ok := args[0].(*object.Array)
		if !ok {
			return newError("sort: argument must be an array")
		}
		sorted := make([]object.Object, len(arr.Elements))
		copy(sorted, arr.Elements)
		sort.SliceStable(sorted, func(i, j int) bool {
			return compareForSort(sorted[i], sorted[j])
		})
		return &object.Array{Elements: sorted}
	})
	RegisterBuiltin("range", func(args ...object.Object) object.Object {
		var lo, hi float64
		switch len(args) {
		case 1:
			v, err := numArg("range", args, 0)
			if err != nil {
				return err
			}
			hi = v
		case 2:
			a, err := numArg("range", args, 0)
			if err != nil {
				return err
			}
			b, err := numArg("range", args, 1)
			if err != nil {
				return err
			}
			lo, hi = a, b
		default:
			return newError("range expects 1 or 2 arguments, got %d", len(args))
		}
		var elements []object.Object
		for i := lo; i < hi; i++ {
			elements = append(elements, num(i))
		}
		return &object.Array{Elements: elements}
	})
}

// numbers before strings, everything else last
func compareForSort(a, b object.Object) bool {
	an, aNum := a.(*object.Number)
	bn, bNum := b.(*object.Number)
	if aNum && bNum {
		return an.Value < bn.Value
	}
	as, aStr := a.(*object.String)
	bs, bStr := b.(*object.String)
	if aStr && bStr {
		return as.Value < bs.Value
	}
	if aNum != bNum {
		return aNum
	}
	return toString(a) < toString(b)
}

// ------------------------------------------------------------------- objects

func registerObjectBuiltins() {
	RegisterBuiltin("get", func(args ...object.Object) object.Object {
		if err := argCount("get", args, 2); err != nil {
			return err
		}
		m, ok := args[0].(*object.Map)
		if !ok {
			return NULL
		}
		key, err := strArg("get", args, 1)
		if err != nil {
			return err
		}
		if v, found := m.Get(key); found {
			return v
		}
		return NULL
	})
	RegisterBuiltin("put", func(args ...object.Object) object.Object {
		if err := argCount("put", args, 3); err != nil {
			return err
		}
		m, ok := args[0].(*object.Map)
		if !ok {
			return newError("put: first argument must be an object")
		}
		key, err := strArg("put", args, 1)
		if err != nil {
			return err
		}
		m.Set(key, args[2])
		return m
	})
	RegisterBuiltin("remove", func(args ...object.Object) object.Object {
		if err := argCount("remove", args, 2); err != nil {
			return err
		}
		m, ok := args[0].(*object.Map)
		if !ok {
			return newError("remove: first argument must be an object")
		}
		key, err := strArg("remove", args, 1)
		if err != nil {
			return err
		}
		m.Delete(key)
		return m
	})
	RegisterBuiltin("merge", func(args ...object.Object) object.Object {
		if err := argCount("merge", args, 2); err != nil {
			return err
		}
		a, ok := args[0].(*object.Map)
		if !ok {
			return newError("merge: first argument must be an object")
		}
		b, ok := args[1].(*object.Map)
		if !ok {
			return newError("merge: second argument must be an object")
		}
		out := object.NewMap()
		for _, k := range a.Keys() {
			v, _ := a.Get(k)
			out.Set(k, v)
		}
		for _, k := range b.Keys() {
			v, _ := b.Get(k)
			out.Set(k, v)
		}
		return out
	})
}

// --------------------------------------------------------------------- types

func registerTypeBuiltins() {
	RegisterBuiltin("type", func(args ...object.Object) object.Object {
		if err := argCount("type", args, 1); err != nil {
			return err
		}
		return str(strings.ToLower(string(args[0].Type())))
	})
	RegisterBuiltin("num", func(args ...object.Object) object.Object {
		if err := argCount("num", args, 1); err != nil {
			return err
		}
		switch arg := args[0].(type) {
		case *object.Number:
			return arg
		case *object.Boolean:
			if arg.Value {
				return num(1)
			}
			return num(0)
		case *object.String:
			v, err := parseNumber(arg.Value)
			if err != nil {
				return num(0)
			}
			return num(v)
		default:
			return num(0)
		}
	})
	RegisterBuiltin("str", func(args ...object.Object) object.Object {
		if err := argCount("str", args, 1); err != nil {
			return err
		}
		return str(toString(args[0]))
	})
	RegisterBuiltin("bool", func(args ...object.Object) object.Object {
		if err := argCount("bool", args, 1); err != nil {
			return err
		}
		return boolean(object.IsTruthy(args[0]))
	})
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// ---------------------------------------------------------------------- time

func registerTimeBuiltins() {
	RegisterBuiltin("now", func(args ...object.Object) object.Object {
		return num(float64(time.Now().UnixMilli()) / 1000)
	})
	RegisterBuiltin("clock", func(args ...object.Object) object.Object {
		return str(time.Now().Format("15:04:05"))
	})
	RegisterBuiltin("date", func(args ...object.Object) object.Object {
		if len(args) > 0 {
			layout, err := strArg("date", args, 0)
			if err != nil {
				return err
			}
			return str(time.Now().Format(layout))
		}
		return str(time.Now().Format("2006-01-02"))
	})
}

// ---------------------------------------------------------------------- json

func registerJSONBuiltins() {
	RegisterBuiltin("jsonEncode", func(args ...object.Object) object.Object {
		if err := argCount("jsonEncode", args, 1); err != nil {
			return err
		}
		data, err := json.Marshal(object.ToNative(args[0]))
		if err != nil {
			return newError("jsonEncode: %s", err)
		}
		return str(string(data))
	})
	RegisterBuiltin("jsonDecode", func(args ...object.Object) object.Object {
		s, err := strArg("jsonDecode", args, 0)
		if err != nil {
			return err
		}
		var v any
		if jerr := json.Unmarshal([]byte(s), &v); jerr != nil {
			return newError("jsonDecode: %s", jerr)
		}
		return object.FromNative(v)
	})
}

// --------------------------------------------------------------- diagnostics

func registerDiagnosticBuiltins() {
	RegisterBuiltin("debug", func(args ...object.Object) object.Object {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.Inspect()
		}
		slog.Debug("script debug", slog.String("values", strings.Join(parts, " ")))
		return NULL
	})
}
