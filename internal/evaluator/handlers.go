package evaluator

import (
	"fmt"
	"log/slog"
	"mote/internal/ast"
	"mote/internal/object"
	"time"
)

// handler is one registered `on` block. Handlers capture the
// environment in effect where they were declared, the same way
// functions do.
type handler struct {
	event string
	body  ast.Statement
	env   *object.Environment
	unsub func()
}

func (e *Evaluator) registerHandler(node *ast.HandlerStatement) object.Object {
	if e.limits.MaxHandlers > 0 && len(e.handlers) >= e.limits.MaxHandlers {
		return &object.FatalError{
			Message: fmt.Sprintf("handler limit exceeded (%d)", e.limits.MaxHandlers),
		}
	}

	h := &handler{event: node.Event, body: node.Body, env: e.env}
	e.handlers = append(e.handlers, h)

	// events arriving from the host come in on a foreign goroutine;
	// the gate hands them to the session's serializer. Events this
	// run emits itself are tagged with its id and skipped here, the
	// inline dispatch in evalEmit has already fired them.
	if e.hc.Events != nil {
		h.unsub = e.hc.Events.Subscribe(node.Event, func(payload map[string]any) {
			if src, ok := payload["source"].(string); ok && src == e.runID {
				return
			}
			e.gate(func() {
				if e.window > 0 {
					e.deadline = time.Now().Add(e.window)
				}
				e.invokeHandler(h, payload)
			})
		})
	}

	slog.Debug("handler registered",
		slog.String("run", e.runID),
		slog.String("event", node.Event))
	return NULL
}

// invokeHandler runs one handler body. The run's current scope and
// call depth are saved and restored so a handler firing mid-statement
// cannot disturb the interrupted code, and no control-flow signal or
// error escapes the handler.
func (e *Evaluator) invokeHandler(h *handler, payload map[string]any) {
	savedEnv, savedDepth := e.env, e.depth
	defer func() {
		e.env, e.depth = savedEnv, savedDepth
	}()

	env := object.NewEnclosedEnvironment(h.env)
	env.SetLocal("event", object.FromNative(payload))
	e.env = env
	e.depth = 0

	result := e.Eval(h.body)
	switch r := result.(type) {
	case *object.Error:
		slog.Warn("handler error",
			slog.String("run", e.runID),
			slog.String("event", h.event),
			slog.String("message", r.Message))
	case *object.FatalError:
		slog.Error("handler fatal",
			slog.String("run", e.runID),
			slog.String("event", h.event),
			slog.String("message", r.Message))
	}
}

// evalEmit fires the run's own matching handlers inline, in
// registration order, then publishes on the host bus for everyone
// else. The source tag keeps the bus callback from double-firing us.
func (e *Evaluator) evalEmit(node *ast.EmitStatement) object.Object {
	payload := map[string]any{
		"name":   node.Event,
		"source": e.runID,
	}
	for _, f := range node.Fields {
		val := e.Eval(f.Value)
		if isAbort(val) {
			return val
		}
		payload[f.Key] = object.ToNative(val)
	}

	for _, h := range e.snapshotHandlers() {
		if h.event == node.Event {
			e.invokeHandler(h, payload)
		}
	}

	if e.hc.Events != nil {
		e.hc.Events.Emit(node.Event, payload)
	}
	return NULL
}

// snapshotHandlers copies the list so a handler registering new
// handlers mid-dispatch does not grow the iteration.
func (e *Evaluator) snapshotHandlers() []*handler {
	out := make([]*handler, len(e.handlers))
	copy(out, e.handlers)
	return out
}

// RemoveHandlers unsubscribes every registered handler. The engine
// calls this when a session ends or is stopped.
func (e *Evaluator) RemoveHandlers() {
	for _, h := range e.handlers {
		if h.unsub != nil {
			h.unsub()
		}
	}
	e.handlers = nil
}

// HandlerCount reports the number of live handlers, for diagnostics.
func (e *Evaluator) HandlerCount() int { return len(e.handlers) }
