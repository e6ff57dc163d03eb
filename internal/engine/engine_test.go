package engine

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"mote/internal/evaluator"
	"mote/internal/host"
	"mote/internal/object"
)

func newTestEngine() (*Engine, *host.NullShell) {
	hc, shell := host.NewNullContext()
	return New(hc), shell
}

// waitFor polls for a condition that a session's dispatch goroutine
// establishes asynchronously.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRunReturnsValueAndVars(t *testing.T) {
	e, _ := newTestEngine()
	result := e.Run("$x = 40 + 2\nreturn $x", Options{})
	if !result.OK {
		t.Fatalf("run failed: %v", result.Err)
	}
	if result.Value != float64(42) {
		t.Fatalf("expected 42, got %v", result.Value)
	}
	if result.Vars["x"] != float64(42) {
		t.Fatalf("expected x in vars, got %v", result.Vars)
	}
}

func TestRunCollectsOutput(t *testing.T) {
	e, _ := newTestEngine()
	result := e.Run("print \"one\"\nprint \"two\"", Options{})
	if len(result.Output) != 2 || result.Output[0] != "one" || result.Output[1] != "two" {
		t.Fatalf("unexpected output: %v", result.Output)
	}
}

func TestRunSeedsVars(t *testing.T) {
	e, _ := newTestEngine()
	result := e.Run("return $greeting + \" \" + $who", Options{
		Vars: map[string]any{"greeting": "hello", "who": "world"},
	})
	if result.Value != "hello world" {
		t.Fatalf("expected seeded vars, got %v", result.Value)
	}
}

func TestRunScopedBuiltin(t *testing.T) {
	e, _ := newTestEngine()
	result := e.Run("return double(21)", Options{
		Builtins: map[string]object.BuiltinFunction{
			"double": func(args ...object.Object) object.Object {
				n := args[0].(*object.Number)
				return &object.Number{Value: n.Value * 2}
			},
		},
	})
	if result.Value != float64(42) {
		t.Fatalf("expected 42, got %v (%v)", result.Value, result.Err)
	}

	// the override must not leak into later runs
	second := e.Run("return double(21)", Options{})
	if second.OK {
		t.Fatal("expected unknown function in a fresh run")
	}
}

func TestDefineFunctionIsSharedAcrossRuns(t *testing.T) {
	e, _ := newTestEngine()
	e.DefineFunction("triple", func(args ...object.Object) object.Object {
		n := args[0].(*object.Number)
		return &object.Number{Value: n.Value * 3}
	})
	for i := 0; i < 2; i++ {
		result := e.Run("return triple(7)", Options{})
		if result.Value != float64(21) {
			t.Fatalf("run %d: expected 21, got %v", i, result.Value)
		}
	}
}

func TestParseReportsPosition(t *testing.T) {
	e, _ := newTestEngine()
	_, err := e.Parse("$x = 1\n$y = = 2")
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if !strings.Contains(err.Error(), "2:") {
		t.Fatalf("expected line in error, got %q", err)
	}
}

func TestRuntimeErrorResult(t *testing.T) {
	e, _ := newTestEngine()
	result := e.Run("call nosuch", Options{})
	if result.OK {
		t.Fatal("expected failure")
	}
	if IsFatal(result.Err) {
		t.Fatal("script error must not be fatal")
	}
}

func TestTimeoutIsFatal(t *testing.T) {
	e, _ := newTestEngine()
	result := e.Run("while true {\n  $x = 1\n}", Options{
		Timeout: 20 * time.Millisecond,
		Limits: evaluator.Limits{
			MaxLoopIterations: -1,
			MaxCallDepth:      64,
			MaxHandlers:       256,
		},
	})
	if result.OK {
		t.Fatal("expected timeout")
	}
	if !IsFatal(result.Err) {
		t.Fatalf("expected fatal error, got %v", result.Err)
	}
}

func TestIterationCeilingIsFatal(t *testing.T) {
	e, _ := newTestEngine()
	result := e.Run("while true {\n  $x = 1\n}", Options{})
	if result.OK || !IsFatal(result.Err) {
		t.Fatalf("expected fatal ceiling error, got %v", result.Err)
	}
}

func TestOneShotRunRemovesHandlers(t *testing.T) {
	e, _ := newTestEngine()
	hits := 0
	e.hc.Events.Subscribe("echoed", func(map[string]any) { hits++ })

	result := e.Run("on external {\n  emit echoed\n}", Options{})
	if !result.OK {
		t.Fatalf("run failed: %v", result.Err)
	}
	e.hc.Events.Emit("external", map[string]any{"source": "host"})
	if hits != 0 {
		t.Fatal("one-shot handlers must not outlive the run")
	}
}

func TestPersistentSessionKeepsHandlersLive(t *testing.T) {
	e, _ := newTestEngine()
	var hits atomic.Int32
	e.hc.Events.Subscribe("relayed", func(map[string]any) { hits.Add(1) })

	result := e.RunPersistent("on external {\n  emit relayed\n}", Options{})
	if !result.OK {
		t.Fatalf("run failed: %v", result.Err)
	}
	if result.SessionID == "" {
		t.Fatal("expected a session id")
	}

	e.hc.Events.Emit("external", map[string]any{"source": "host"})
	waitFor(t, "handler dispatch", func() bool { return hits.Load() == 1 })

	if err := e.Stop(result.SessionID); err != nil {
		t.Fatalf("stop: %v", err)
	}
	e.hc.Events.Emit("external", map[string]any{"source": "host"})
	time.Sleep(20 * time.Millisecond)
	if hits.Load() != 1 {
		t.Fatal("stopped session handler still fired")
	}
}

func TestSessionsDoNotReactToTheirOwnBusEcho(t *testing.T) {
	e, _ := newTestEngine()
	result := e.RunPersistent(`
$n = 0
on ping {
  $n = $n + 1
}
emit ping
`, Options{})
	if !result.OK {
		t.Fatalf("run failed: %v", result.Err)
	}
	// one inline dispatch, no second one from the bus echo
	if result.Vars["n"] != float64(1) {
		t.Fatalf("expected n=1, got %v", result.Vars["n"])
	}
	e.StopAll()
}

func TestCrossSessionEvents(t *testing.T) {
	e, _ := newTestEngine()
	listener := e.RunPersistent(`
$total = 0
on task:done {
  $total = $total + $event.amount
}
`, Options{})
	if !listener.OK {
		t.Fatalf("listener failed: %v", listener.Err)
	}

	emitter := e.Run("emit task:done amount=5", Options{})
	if !emitter.OK {
		t.Fatalf("emitter failed: %v", emitter.Err)
	}

	waitFor(t, "cross-session dispatch", func() bool {
		vars, err := e.Vars(listener.SessionID)
		return err == nil && vars["total"] == float64(5)
	})

	e.StopAll()
}

func TestRelayedEventsBetweenSessionsDoNotDeadlock(t *testing.T) {
	e, _ := newTestEngine()

	// one session relays ping into ping:done while the other emits
	// ping and listens for the relay; inline bus dispatch would park
	// the second session on its own gate forever
	relay := e.RunPersistent("on ping {\n  emit ping:done\n}", Options{})
	if !relay.OK {
		t.Fatalf("relay failed: %v", relay.Err)
	}
	echo := e.RunPersistent(`
$n = 0
on ping:done {
  $n = $n + 1
}
emit ping
`, Options{})
	if !echo.OK {
		t.Fatalf("echo failed: %v", echo.Err)
	}

	waitFor(t, "relayed round trip", func() bool {
		vars, err := e.Vars(echo.SessionID)
		return err == nil && vars["n"] == float64(1)
	})
	e.StopAll()
}

func TestHandlersFireAfterTheBodyDeadline(t *testing.T) {
	e, _ := newTestEngine()
	result := e.RunPersistent(`
$total = 0
on tick {
  loop 1 {
    $total = $total + 1
  }
}
`, Options{Timeout: 50 * time.Millisecond})
	if !result.OK {
		t.Fatalf("run failed: %v", result.Err)
	}

	// well past the body's wall-clock budget; each dispatch gets a
	// fresh window instead of inheriting the expired deadline
	time.Sleep(100 * time.Millisecond)
	e.hc.Events.Emit("tick", map[string]any{"source": "host"})

	waitFor(t, "handler past the body deadline", func() bool {
		vars, err := e.Vars(result.SessionID)
		return err == nil && vars["total"] == float64(1)
	})
	e.StopAll()
}

func TestVarsReadsLiveSessionState(t *testing.T) {
	e, _ := newTestEngine()
	result := e.RunPersistent(`
$count = 0
on bump {
  $count = $count + 1
}
`, Options{})
	if !result.OK {
		t.Fatalf("run failed: %v", result.Err)
	}
	e.hc.Events.Emit("bump", map[string]any{"source": "host"})

	waitFor(t, "bump dispatch", func() bool {
		vars, err := e.Vars(result.SessionID)
		return err == nil && vars["count"] == float64(1)
	})
	e.StopAll()
}

func TestStopUnknownSession(t *testing.T) {
	e, _ := newTestEngine()
	if err := e.Stop("run-99"); err == nil {
		t.Fatal("expected an error for an unknown session")
	}
}

func TestStopAllClearsSessions(t *testing.T) {
	e, _ := newTestEngine()
	for i := 0; i < 3; i++ {
		e.RunPersistent("on tick {\n  $x = 1\n}", Options{})
	}
	if len(e.Sessions()) != 3 {
		t.Fatalf("expected 3 sessions, got %v", e.Sessions())
	}
	e.StopAll()
	if len(e.Sessions()) != 0 {
		t.Fatalf("expected no sessions, got %v", e.Sessions())
	}
}

func TestFatalPersistentRunDoesNotLinger(t *testing.T) {
	e, _ := newTestEngine()
	result := e.RunPersistent("while true {\n  $x = 1\n}", Options{})
	if result.OK {
		t.Fatal("expected a fatal run")
	}
	if result.SessionID != "" {
		t.Fatal("fatal run must not keep a session")
	}
	if len(e.Sessions()) != 0 {
		t.Fatalf("expected no sessions, got %v", e.Sessions())
	}
}

func TestOutputSinkOverridesCollection(t *testing.T) {
	e, _ := newTestEngine()
	var lines []string
	result := e.Run("print \"direct\"", Options{
		Output: func(line string) { lines = append(lines, line) },
	})
	if len(result.Output) != 0 {
		t.Fatalf("collected despite sink: %v", result.Output)
	}
	if len(lines) != 1 || lines[0] != "direct" {
		t.Fatalf("sink missed output: %v", lines)
	}
}
