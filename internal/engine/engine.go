// Package engine is the embedding surface: hosts hand it source text
// and a host context, it runs scripts with safety ceilings applied and
// reports results.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mote/internal/ast"
	"mote/internal/evaluator"
	"mote/internal/host"
	"mote/internal/lexer"
	"mote/internal/object"
	"mote/internal/parser"
)

// Options tune one run. The zero value gets the defaults.
type Options struct {
	// Timeout is the wall-clock ceiling. Zero means the default,
	// negative disables it.
	Timeout time.Duration

	// Vars seeds the run's global scope.
	Vars map[string]any

	// Builtins are run-scoped functions that shadow the shared table.
	Builtins map[string]object.BuiltinFunction

	// Output receives print lines. Defaults to collecting into
	// Result.Output.
	Output func(line string)

	Limits evaluator.Limits
}

// Result is what a finished run reports.
type Result struct {
	// OK is false when the run ended with an error, catchable or not.
	OK bool

	// Value is the script's return value converted to a native Go
	// value, nil when the script returned nothing.
	Value any

	// Err carries the failure when OK is false.
	Err error

	// Vars is a snapshot of the run's global scope at the end.
	Vars map[string]any

	// Output collects print lines when no Output sink was given.
	Output []string

	// SessionID identifies a persistent session for Stop and for
	// correlating events. Empty for one-shot runs.
	SessionID string
}

const DefaultTimeout = 30 * time.Second

// Engine owns the shared host context and the live sessions.
type Engine struct {
	hc host.Context

	mu       sync.Mutex
	sessions map[string]*session
	nextID   int
}

// session is one persistent run: its handlers stay registered after
// the body finishes, so bus events keep dispatching into it until it
// is stopped.
type session struct {
	id     string
	eval   *evaluator.Evaluator
	cancel context.CancelFunc

	// gate serializes the run body and queued handler dispatch, so a
	// session never executes two statements at once.
	gate sync.Mutex

	// External events queue here and a session-owned goroutine drains
	// them under the gate. Bus emission happens on the emitting run's
	// goroutine while that run holds its own gate, so dispatching
	// inline would deadlock the moment two sessions relay events at
	// each other.
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	done    chan struct{}
	closed  bool
}

func (s *session) enqueue(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = append(s.pending, fn)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *session) dispatch() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if len(s.pending) == 0 {
				s.mu.Unlock()
				break
			}
			fn := s.pending[0]
			s.pending = s.pending[1:]
			s.mu.Unlock()

			s.gate.Lock()
			select {
			case <-s.done:
				s.gate.Unlock()
				return
			default:
			}
			fn()
			s.gate.Unlock()
		}
	}
}

// close stops the dispatch goroutine and drops anything still queued.
// Safe to call more than once.
func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.pending = nil
	close(s.done)
}

func New(hc host.Context) *Engine {
	return &Engine{hc: hc, sessions: map[string]*session{}}
}

// Parse checks source text without running it. The error carries the
// first syntax problem with its position.
func (e *Engine) Parse(source string) (*ast.Program, error) {
	p := parser.New(lexer.New(source))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, fmt.Errorf("parse: %s", errs[0])
	}
	return program, nil
}

// Run executes source to completion and tears the run down, handlers
// included.
func (e *Engine) Run(source string, opts Options) Result {
	sess, result := e.start(source, opts, false)
	if sess != nil {
		e.teardown(sess)
	}
	return result
}

// RunPersistent executes source and keeps the session alive: its
// handlers stay subscribed to the host bus and fire until Stop. The
// returned Result carries the session id.
func (e *Engine) RunPersistent(source string, opts Options) Result {
	sess, result := e.start(source, opts, true)
	if sess == nil {
		return result
	}
	if _, isFatal := result.Err.(*fatalRunError); isFatal {
		// a run that blew a ceiling does not get to linger
		e.teardown(sess)
		result.SessionID = ""
		return result
	}
	result.SessionID = sess.id
	return result
}

// Stop ends a persistent session: cancels anything it is blocked on,
// unsubscribes its handlers and releases its resources.
func (e *Engine) Stop(sessionID string) error {
	e.mu.Lock()
	sess, ok := e.sessions[sessionID]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown session: %s", sessionID)
	}
	e.teardown(sess)
	return nil
}

// StopAll ends every live session.
func (e *Engine) StopAll() {
	e.mu.Lock()
	all := make([]*session, 0, len(e.sessions))
	for _, sess := range e.sessions {
		all = append(all, sess)
	}
	e.mu.Unlock()
	for _, sess := range all {
		e.teardown(sess)
	}
}

// Sessions lists the ids of live persistent sessions.
func (e *Engine) Sessions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.sessions))
	for id := range e.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Vars snapshots the current global bindings of a live persistent
// session. One-shot runs report theirs in Result.Vars instead.
func (e *Engine) Vars(sessionID string) (map[string]any, error) {
	e.mu.Lock()
	sess, ok := e.sessions[sessionID]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown session: %s", sessionID)
	}
	sess.gate.Lock()
	defer sess.gate.Unlock()
	return snapshotVars(sess.eval.Env()), nil
}

// DefineFunction adds a host-provided function to the shared builtin
// table, visible to every subsequent run.
func (e *Engine) DefineFunction(name string, fn object.BuiltinFunction) {
	evaluator.RegisterBuiltin(name, fn)
}

func (e *Engine) start(source string, opts Options, persistent bool) (*session, Result) {
	program, err := e.Parse(source)
	if err != nil {
		return nil, Result{Err: err}
	}

	limits := opts.Limits
	if limits == (evaluator.Limits{}) {
		limits = evaluator.DefaultLimits()
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	env := object.NewEnvironment()
	for name, val := range opts.Vars {
		env.SetLocal(name, object.FromNative(val))
	}

	ctx, cancel := context.WithCancel(context.Background())
	ev := evaluator.New(e.hc, env, limits)

	e.mu.Lock()
	e.nextID++
	sess := &session{
		id:     fmt.Sprintf("run-%d", e.nextID),
		eval:   ev,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	if persistent {
		e.sessions[sess.id] = sess
	}
	e.mu.Unlock()
	go sess.dispatch()

	var result Result
	output := opts.Output
	if output == nil {
		output = func(line string) { result.Output = append(result.Output, line) }
	}

	ev.SetRun(sess.id, ctx, deadline)
	if timeout > 0 {
		ev.SetHandlerWindow(timeout)
	}
	ev.SetOutput(output)
	ev.SetGate(sess.enqueue)
	for name, fn := range opts.Builtins {
		ev.Override(name, fn)
	}

	slog.Info("run started",
		slog.String("session", sess.id),
		slog.Bool("persistent", persistent))

	sess.gate.Lock()
	value := ev.Eval(program)
	result.Vars = snapshotVars(env)
	sess.gate.Unlock()

	switch v := value.(type) {
	case *object.Error:
		result.Err = fmt.Errorf("runtime error: %s", v.Inspect())
	case *object.FatalError:
		result.Err = &fatalRunError{message: v.Message}
	default:
		result.OK = true
		if value != object.NULL {
			result.Value = object.ToNative(value)
		}
	}

	slog.Info("run finished",
		slog.String("session", sess.id),
		slog.Bool("ok", result.OK))
	return sess, result
}

func (e *Engine) teardown(sess *session) {
	sess.cancel()
	sess.close()
	sess.gate.Lock()
	sess.eval.RemoveHandlers()
	sess.eval.Cleanup()
	sess.gate.Unlock()

	e.mu.Lock()
	delete(e.sessions, sess.id)
	e.mu.Unlock()

	slog.Info("session stopped", slog.String("session", sess.id))
}

func snapshotVars(env *object.Environment) map[string]any {
	out := map[string]any{}
	for name, val := range env.Snapshot() {
		switch val.(type) {
		case *object.Function, *object.Builtin:
			continue
		}
		out[name] = object.ToNative(val)
	}
	return out
}

// fatalRunError marks a run that exceeded a safety ceiling or was
// stopped from outside.
type fatalRunError struct {
	message string
}

func (e *fatalRunError) Error() string { return "fatal: " + e.message }

// IsFatal reports whether a Result.Err came from a safety ceiling or
// an external stop rather than a script-level error.
func IsFatal(err error) bool {
	_, ok := err.(*fatalRunError)
	return ok
}
