package evaluator

import (
	"mote/internal/object"
)

// hostBuiltins are bound to one evaluator because they close over its
// host context. They resolve after run-scoped overrides and before
// the shared table.
type hostBuiltins struct {
	table map[string]*object.Builtin
}

func newHostBuiltins(e *Evaluator) *hostBuiltins {
	h := &hostBuiltins{table: map[string]*object.Builtin{}}

	add := func(name string, fn object.BuiltinFunction) {
		h.table[name] = &object.Builtin{Name: name, Fn: fn}
	}

	add("exists", func(args ...object.Object) object.Object {
		path, err := strArg("exists", args, 0)
		if err != nil {
			return err
		}
		found, ferr := e.hc.FS.Exists(path)
		if ferr != nil {
			return newError("exists: %s", ferr)
		}
		return boolean(found)
	})

	add("listDir", func(args ...object.Object) object.Object {
		path, err := strArg("listDir", args, 0)
		if err != nil {
			return err
		}
		names, lerr := e.hc.FS.List(path)
		if lerr != nil {
			return newError("listDir: %s", lerr)
		}
		elements := make([]object.Object, len(names))
		for i, name := range names {
			elements[i] = str(name)
		}
		return &object.Array{Elements: elements}
	})

	// query asks the host a question, e.g. query("window:active") or
	// query("clipboard")
	add("query", func(args ...object.Object) object.Object {
		what, err := strArg("query", args, 0)
		if err != nil {
			return err
		}
		extra := make([]any, 0, len(args)-1)
		for _, a := range args[1:] {
			extra = append(extra, object.ToNative(a))
		}
		val, qerr := e.hc.Commands.Query(what, extra)
		if qerr != nil {
			return newError("query: %s", qerr)
		}
		return object.FromNative(val)
	})

	// confirm and prompt suspend the run until the host answers
	add("confirm", func(args ...object.Object) object.Object {
		msg, err := strArg("confirm", args, 0)
		if err != nil {
			return err
		}
		ch := e.hc.Dialogs.Confirm(msg)
		wrapped := make(chan object.Object, 1)
		go func() {
			ok, open := <-ch
			if !open {
				wrapped <- FALSE
				return
			}
			wrapped <- boolean(ok)
		}()
		return &object.Pending{Ch: wrapped}
	})

	add("prompt", func(args ...object.Object) object.Object {
		msg, err := strArg("prompt", args, 0)
		if err != nil {
			return err
		}
		ch := e.hc.Dialogs.Prompt(msg)
		wrapped := make(chan object.Object, 1)
		go func() {
			s, open := <-ch
			if !open {
				wrapped <- NULL
				return
			}
			wrapped <- str(s)
		}()
		return &object.Pending{Ch: wrapped}
	})

	add("minimize", func(args ...object.Object) object.Object {
		app, err := strArg("minimize", args, 0)
		if err != nil {
			return err
		}
		if werr := e.hc.Windows.Minimize(app); werr != nil {
			return newError("minimize: %s", werr)
		}
		return NULL
	})

	add("maximize", func(args ...object.Object) object.Object {
		app, err := strArg("maximize", args, 0)
		if err != nil {
			return err
		}
		if werr := e.hc.Windows.Maximize(app); werr != nil {
			return newError("maximize: %s", werr)
		}
		return NULL
	})

	registerDBBuiltins(e, add)
	return h
}

func (h *hostBuiltins) lookup(name string) (*object.Builtin, bool) {
	b, ok := h.table[name]
	return b, ok
}
