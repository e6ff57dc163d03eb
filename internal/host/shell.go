package host

import (
	"fmt"
	"log/slog"
	"sync"
)

// NullShell backs the Commander, Windows and Dialogs capabilities for
// headless runs: actions are logged, queries answer from a canned
// table, dialogs resolve immediately with configurable defaults.
type NullShell struct {
	mu sync.Mutex

	// ConfirmDefault / PromptDefault are the answers blocking dialogs
	// resolve with.
	ConfirmDefault bool
	PromptDefault  string

	// QueryResults maps query names to canned answers.
	QueryResults map[string]any

	// Actions records every Exec/Windows call for test assertions.
	Actions []string

	// Notifications records every Notify message.
	Notifications []string
}

func NewNullShell() *NullShell {
	return &NullShell{QueryResults: map[string]any{}}
}

func (s *NullShell) record(format string, args ...any) {
	s.mu.Lock()
	s.Actions = append(s.Actions, fmt.Sprintf(format, args...))
	s.mu.Unlock()
}

// RecordedActions copies the action log for inspection.
func (s *NullShell) RecordedActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Actions))
	copy(out, s.Actions)
	return out
}

// ----------------------------------------------------------------- Commander

func (s *NullShell) Exec(name string, args []any) error {
	slog.Debug("host command", slog.String("name", name), slog.Any("args", args))
	s.record("exec %s %v", name, args)
	return nil
}

func (s *NullShell) Query(name string, args []any) (any, error) {
	s.mu.Lock()
	result, ok := s.QueryResults[name]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown query: %s", name)
	}
	return result, nil
}

// ------------------------------------------------------------------- Windows

func (s *NullShell) Launch(id string) error   { s.record("launch %s", id); return nil }
func (s *NullShell) Close(id string) error    { s.record("close %s", id); return nil }
func (s *NullShell) Focus(id string) error    { s.record("focus %s", id); return nil }
func (s *NullShell) Minimize(id string) error { s.record("minimize %s", id); return nil }
func (s *NullShell) Maximize(id string) error { s.record("maximize %s", id); return nil }

// ------------------------------------------------------------------- Dialogs

func (s *NullShell) Notify(message string) {
	s.mu.Lock()
	s.Notifications = append(s.Notifications, message)
	s.mu.Unlock()
	slog.Info("notify", slog.String("message", message))
}

func (s *NullShell) Confirm(message string) <-chan bool {
	ch := make(chan bool, 1)
	ch <- s.ConfirmDefault
	return ch
}

func (s *NullShell) Prompt(message string) <-chan string {
	ch := make(chan string, 1)
	ch <- s.PromptDefault
	return ch
}

// NewNullContext wires a full in-memory host Context: MemFS, Bus and a
// NullShell for everything else.
func NewNullContext() (Context, *NullShell) {
	shell := NewNullShell()
	return Context{
		FS:       NewMemFS(),
		Events:   NewBus(),
		Commands: shell,
		Windows:  shell,
		Dialogs:  shell,
	}, shell
}
