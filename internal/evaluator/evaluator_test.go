package evaluator

import (
	"context"
	"strings"
	"testing"
	"time"

	"mote/internal/host"
	"mote/internal/lexer"
	"mote/internal/object"
	"mote/internal/parser"
)

type fixture struct {
	eval   *Evaluator
	shell  *host.NullShell
	hc     host.Context
	output []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hc, shell := host.NewNullContext()
	f := &fixture{shell: shell, hc: hc}
	f.eval = New(hc, object.NewEnvironment(), DefaultLimits())
	f.eval.SetOutput(func(line string) { f.output = append(f.output, line) })
	return f
}

func (f *fixture) run(t *testing.T, input string) object.Object {
	t.Helper()
	p := parser.New(lexer.New(input))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	return f.eval.Eval(program)
}

func testEval(t *testing.T, input string) object.Object {
	t.Helper()
	return newFixture(t).run(t, input)
}

func requireNumber(t *testing.T, obj object.Object, want float64) {
	t.Helper()
	n, ok := obj.(*object.Number)
	if !ok {
		t.Fatalf("expected number, got %T (%s)", obj, obj.Inspect())
	}
	if n.Value != want {
		t.Fatalf("expected %v, got %v", want, n.Value)
	}
}

func requireString(t *testing.T, obj object.Object, want string) {
	t.Helper()
	s, ok := obj.(*object.String)
	if !ok {
		t.Fatalf("expected string, got %T (%s)", obj, obj.Inspect())
	}
	if s.Value != want {
		t.Fatalf("expected %q, got %q", want, s.Value)
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"$x = 1 + 2 * 3\nreturn $x", 7},
		{"$x = (1 + 2) * 3\nreturn $x", 9},
		{"$x = 10 - 4\nreturn $x", 6},
		{"$x = 7 / 2\nreturn $x", 3.5},
		{"$x = 7 % 3\nreturn $x", 1},
		{"$x = -5\nreturn $x", -5},
		{"$x = 0.1 + 0.2\nreturn $x * 10", 3.0000000000000004},
	}
	for _, tt := range tests {
		requireNumber(t, testEval(t, tt.input), tt.want)
	}
}

func TestDivisionByZeroYieldsZero(t *testing.T) {
	requireNumber(t, testEval(t, "return 10 / 0"), 0)
	requireNumber(t, testEval(t, "return 10 % 0"), 0)
}

func TestDivisionByZeroIsNotCatchable(t *testing.T) {
	// zero is a value, not an error, so the catch branch never runs
	input := `
$result = "untouched"
try {
  $result = 10 / 0
} catch $err {
  $result = "caught"
}
return $result
`
	requireNumber(t, testEval(t, input), 0)
}

func TestStringConcatCoercesNumbers(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`return "5" + 3`, "53"},
		{`return 3 + "5"`, "35"},
		{`return "a" + "b"`, "ab"},
		{`return "n=" + 1.5`, "n=1.5"},
		{`return "v=" + true`, "v=true"},
		{`return "x=" + null`, "x=null"},
	}
	for _, tt := range tests {
		requireString(t, testEval(t, tt.input), tt.want)
	}
}

func TestStrictEqualityNeverCoerces(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{`return 1 == 1`, true},
		{`return 1 == "1"`, false},
		{`return "a" == "a"`, true},
		{`return true == 1`, false},
		{`return null == null`, true},
		{`return null == 0`, false},
		{`return [1, 2] == [1, 2]`, true},
		{`return {a: 1} == {a: 1}`, true},
		{`return 1 != "1"`, true},
	}
	for _, tt := range tests {
		result := testEval(t, tt.input)
		b, ok := result.(*object.Boolean)
		if !ok {
			t.Fatalf("%s: expected boolean, got %T", tt.input, result)
		}
		if b.Value != tt.want {
			t.Errorf("%s: expected %v", tt.input, tt.want)
		}
	}
}

func TestLogicalOperatorsReturnDecidingOperand(t *testing.T) {
	requireString(t, testEval(t, `return "" or "fallback"`), "fallback")
	requireNumber(t, testEval(t, `return 0 and 99`), 0)
	requireNumber(t, testEval(t, `return 1 and 99`), 99)
	requireString(t, testEval(t, `return "first" or "second"`), "first")
}

func TestLogicalShortCircuit(t *testing.T) {
	// the right side must not run when the left decides
	input := `
$hit = false
function bomb {
  $hit = true
  return true
}
$x = false and bomb()
if $hit {
  return "evaluated"
}
return "skipped"
`
	requireString(t, testEval(t, input), "skipped")
}

func TestStringInterpolation(t *testing.T) {
	input := `
$name = "world"
$user = {profile: {city: "Oslo"}}
return "hello $name from $user.profile.city and $unbound"
`
	requireString(t, testEval(t, input), "hello world from Oslo and $unbound")
}

func TestInterpolationFormatsNumbersPlainly(t *testing.T) {
	input := "$n = 4\nreturn \"got $n items\""
	requireString(t, testEval(t, input), "got 4 items")
}

func TestLoopCountsFromZero(t *testing.T) {
	input := `
$seen = []
loop 5 as $i {
  call push $seen $i
}
return $seen
`
	arr, ok := testEval(t, input).(*object.Array)
	if !ok {
		t.Fatal("expected array")
	}
	if len(arr.Elements) != 5 {
		t.Fatalf("expected 5 iterations, got %d", len(arr.Elements))
	}
	for i, el := range arr.Elements {
		requireNumber(t, el, float64(i))
	}
}

func TestLoopDefaultVariable(t *testing.T) {
	input := `
$last = -1
loop 3 {
  $last = $index
}
return $last
`
	requireNumber(t, testEval(t, input), 2)
}

func TestBreakAndContinue(t *testing.T) {
	input := `
$sum = 0
loop 10 as $i {
  if $i == 3 {
    continue
  }
  if $i == 6 {
    break
  }
  $sum = $sum + $i
}
return $sum
`
	// 0+1+2+4+5
	requireNumber(t, testEval(t, input), 12)
}

func TestWhileLoop(t *testing.T) {
	input := `
$n = 1
while $n < 100 {
  $n = $n * 2
}
return $n
`
	requireNumber(t, testEval(t, input), 128)
}

func TestForEachOverArrayStringAndObject(t *testing.T) {
	input := `
$parts = []
foreach $x in [10, 20, 30] {
  call push $parts $x
}
foreach $c in "ab" {
  call push $parts $c
}
foreach $k in {one: 1, two: 2} {
  call push $parts $k
}
return join($parts, "|")
`
	requireString(t, testEval(t, input), "10|20|30|a|b|one|two")
}

func TestForEachSnapshotsTheCollection(t *testing.T) {
	input := `
$items = [1, 2]
$count = 0
foreach $x in $items {
  call push $items $x
  $count = $count + 1
}
return $count
`
	requireNumber(t, testEval(t, input), 2)
}

func TestFunctionsAndClosures(t *testing.T) {
	input := `
$base = 100
function addBase $n {
  return $base + $n
}
$base = 200
return addBase(5)
`
	// closures see the live definition scope, so the reassignment is
	// visible through the chain
	requireNumber(t, testEval(t, input), 205)
}

func TestClosureResolvesDefinitionScopeNotCallScope(t *testing.T) {
	input := `
function outer {
  $secret = "def"
  function inner {
    return $secret
  }
  return inner()
}
$secret = "global"
return outer()
`
	requireString(t, testEval(t, input), "def")
}

func TestCallStatementWithArguments(t *testing.T) {
	input := `
function greet $who $mark {
  $greeting = "hi " + $who + $mark
}
call greet "bob" "!"
return $greeting
`
	// function locals stay local
	result := testEval(t, input)
	if result != object.NULL {
		t.Fatalf("expected null, got %s", result.Inspect())
	}
}

func TestMissingArgumentsBindNull(t *testing.T) {
	input := `
function f $a $b {
  if $b == null {
    return "missing"
  }
  return "present"
}
return f(1)
`
	requireString(t, testEval(t, input), "missing")
}

func TestAssignmentWritesThroughScopeChain(t *testing.T) {
	input := `
$total = 0
loop 3 {
  $total = $total + 1
}
return $total
`
	requireNumber(t, testEval(t, input), 3)
}

func TestDottedAssignmentCreatesIntermediates(t *testing.T) {
	input := `
$cfg = {}
$cfg.net.host = "localhost"
$cfg.net.port = 8080
return $cfg.net.port
`
	requireNumber(t, testEval(t, input), 8080)
}

func TestMissingMemberAndIndexYieldNull(t *testing.T) {
	tests := []string{
		"$o = {a: 1}\nreturn $o.missing",
		"$o = {a: 1}\nreturn $o.deep.deeper",
		"$a = [1, 2]\nreturn $a[10]",
		"$a = [1, 2]\nreturn $a[-1]",
		"return $never.bound",
	}
	for _, input := range tests {
		if result := testEval(t, input); result != object.NULL {
			t.Errorf("%q: expected null, got %s", input, result.Inspect())
		}
	}
}

func TestTryCatchBindsErrorMessage(t *testing.T) {
	input := `
try {
  read "/no/such/file" into $data
  $outcome = "read ok"
} catch $err {
  $outcome = "error: " + $err
}
return $outcome
`
	result := testEval(t, input)
	s, ok := result.(*object.String)
	if !ok {
		t.Fatalf("expected string, got %T", result)
	}
	if !strings.HasPrefix(s.Value, "error: ") {
		t.Fatalf("catch did not run: %q", s.Value)
	}
}

func TestFatalErrorsPassThroughCatch(t *testing.T) {
	f := newFixture(t)
	f.eval.limits.MaxLoopIterations = 50
	input := `
try {
  while true {
    $x = 1
  }
} catch $err {
  return "caught"
}
`
	result := f.run(t, input)
	if _, ok := result.(*object.FatalError); !ok {
		t.Fatalf("expected fatal error, got %T (%s)", result, result.Inspect())
	}
}

func TestLoopIterationCeilingIsCumulative(t *testing.T) {
	f := newFixture(t)
	f.eval.limits.MaxLoopIterations = 100
	// two loops of 60 cross the shared budget even though each one
	// alone would fit
	input := `
loop 60 {
  $x = 1
}
loop 60 {
  $x = 2
}
`
	result := f.run(t, input)
	if _, ok := result.(*object.FatalError); !ok {
		t.Fatalf("expected fatal error, got %T", result)
	}
}

func TestCallDepthCeiling(t *testing.T) {
	f := newFixture(t)
	f.eval.limits.MaxCallDepth = 10
	input := `
function recurse $n {
  return recurse($n + 1)
}
return recurse(0)
`
	result := f.run(t, input)
	fe, ok := result.(*object.FatalError)
	if !ok {
		t.Fatalf("expected fatal error, got %T", result)
	}
	if !strings.Contains(fe.Message, "call depth") {
		t.Fatalf("unexpected message: %s", fe.Message)
	}
}

func TestDeadlineAborts(t *testing.T) {
	f := newFixture(t)
	f.eval.SetRun("t", context.Background(), time.Now().Add(20*time.Millisecond))
	input := `
while true {
  $x = 1
}
`
	result := f.run(t, input)
	fe, ok := result.(*object.FatalError)
	if !ok {
		t.Fatalf("expected fatal error, got %T", result)
	}
	if !strings.Contains(fe.Message, "time limit") {
		t.Fatalf("unexpected message: %s", fe.Message)
	}
}

func TestStopCancelsWait(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.eval.SetRun("t", ctx, time.Time{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	result := f.run(t, "wait 60")
	if _, ok := result.(*object.FatalError); !ok {
		t.Fatalf("expected fatal error, got %T", result)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("wait did not unblock on cancellation")
	}
}

func TestPrintGoesToOutputSink(t *testing.T) {
	f := newFixture(t)
	f.run(t, "$n = 2\nprint \"count is $n\"\nprint 1 + 1")
	if len(f.output) != 2 {
		t.Fatalf("expected 2 lines, got %v", f.output)
	}
	if f.output[0] != "count is 2" || f.output[1] != "2" {
		t.Fatalf("unexpected output: %v", f.output)
	}
}

func TestFileStatements(t *testing.T) {
	f := newFixture(t)
	input := `
mkdir "/notes"
write "/notes/a.txt" "hello"
read "/notes/a.txt" into $content
$found = exists("/notes/a.txt")
delete "/notes/a.txt"
$gone = exists("/notes/a.txt")
return $content + ":" + $found + ":" + $gone
`
	requireString(t, f.run(t, input), "hello:true:false")
}

func TestWindowAndAudioStatementsReachTheShell(t *testing.T) {
	f := newFixture(t)
	f.run(t, `
launch "editor"
focus "editor"
close "editor"
play "ding"
volume 50
notify "done"
`)
	actions := f.shell.RecordedActions()
	want := []string{
		"launch editor",
		"focus editor",
		"close editor",
		"exec audio:play [ding]",
		"exec audio:volume [50]",
	}
	if len(actions) != len(want) {
		t.Fatalf("expected %d actions, got %v", len(want), actions)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Errorf("action %d: expected %q, got %q", i, want[i], actions[i])
		}
	}
	if len(f.shell.Notifications) != 1 || f.shell.Notifications[0] != "done" {
		t.Fatalf("unexpected notifications: %v", f.shell.Notifications)
	}
}

func TestDialogSuspendsAndBindsAnswer(t *testing.T) {
	f := newFixture(t)
	f.shell.PromptDefault = "blue"
	requireString(t, f.run(t, `
dialog "favorite color?" into $answer
return $answer
`), "blue")
}

func TestConfirmAndPromptBuiltins(t *testing.T) {
	f := newFixture(t)
	f.shell.ConfirmDefault = true
	f.shell.PromptDefault = "42"
	input := `
if confirm("sure?") {
  $answer = prompt("how many?")
  return $answer
}
return "declined"
`
	requireString(t, f.run(t, input), "42")
}

func TestHandlersFireInRegistrationOrder(t *testing.T) {
	f := newFixture(t)
	input := `
$order = []
on tick {
  call push $order "first"
}
on tick {
  call push $order "second"
}
emit tick
return join($order, ",")
`
	requireString(t, f.run(t, input), "first,second")
}

func TestHandlerReceivesEventPayload(t *testing.T) {
	f := newFixture(t)
	input := `
on user:login {
  $who = $event.name + "/" + $event.user
}
emit user:login user="ada"
return $who
`
	// handler scope is isolated, $who must not leak out
	result := f.run(t, input)
	if result != object.NULL {
		t.Fatalf("handler scope leaked: %s", result.Inspect())
	}
}

func TestHandlerWritesThroughToOuterVariables(t *testing.T) {
	f := newFixture(t)
	input := `
$count = 0
on bump {
  $count = $count + $event.by
}
emit bump by=3
emit bump by=4
return $count
`
	requireNumber(t, f.run(t, input), 7)
}

func TestHandlerControlFlowDoesNotEscape(t *testing.T) {
	f := newFixture(t)
	input := `
$after = "not reached"
loop 3 as $i {
  on evt {
    break
  }
  emit evt
  $after = "reached " + $i
}
return $after
`
	requireString(t, f.run(t, input), "reached 2")
}

func TestHandlerErrorsDoNotAbortTheEmitter(t *testing.T) {
	f := newFixture(t)
	input := `
on boom {
  read "/missing" into $x
}
emit boom
return "survived"
`
	requireString(t, f.run(t, input), "survived")
}

func TestHandlerRegisteredInsideHandlerFiresNextEmit(t *testing.T) {
	f := newFixture(t)
	input := `
$log = []
on seed {
  on seed {
    call push $log "late"
  }
  call push $log "early"
}
emit seed
emit seed
return join($log, ",")
`
	// the late handler must not fire during the emit that created it
	requireString(t, f.run(t, input), "early,early,late")
}

func TestHandlerCeiling(t *testing.T) {
	f := newFixture(t)
	f.eval.limits.MaxHandlers = 3
	input := `
loop 10 {
  on evt {
    $x = 1
  }
}
`
	result := f.run(t, input)
	fe, ok := result.(*object.FatalError)
	if !ok {
		t.Fatalf("expected fatal error, got %T", result)
	}
	if !strings.Contains(fe.Message, "handler limit") {
		t.Fatalf("unexpected message: %s", fe.Message)
	}
}

func TestEmitReachesTheHostBus(t *testing.T) {
	f := newFixture(t)
	var got map[string]any
	f.hc.Events.Subscribe("done", func(payload map[string]any) {
		got = payload
	})
	f.run(t, `emit done status="ok"`)
	if got == nil {
		t.Fatal("bus subscriber did not fire")
	}
	if got["status"] != "ok" || got["name"] != "done" {
		t.Fatalf("unexpected payload: %v", got)
	}
}

func TestOwnEmitsAreNotDoubleFired(t *testing.T) {
	f := newFixture(t)
	f.eval.SetRun("run-1", context.Background(), time.Time{})
	input := `
$n = 0
on ping {
  $n = $n + 1
}
emit ping
return $n
`
	requireNumber(t, f.run(t, input), 1)
}

func TestExternalBusEventsDispatchThroughTheGate(t *testing.T) {
	f := newFixture(t)
	f.eval.SetRun("run-1", context.Background(), time.Time{})
	gated := 0
	f.eval.SetGate(func(fn func()) {
		gated++
		fn()
	})
	f.run(t, `
$n = 0
on ping {
  $n = $n + 1
}
`)
	f.hc.Events.Emit("ping", map[string]any{"name": "ping", "source": "other"})
	if gated != 1 {
		t.Fatalf("expected 1 gated dispatch, got %d", gated)
	}
	n, _ := f.eval.Env().Get("n")
	requireNumber(t, n, 1)
}

func TestRemoveHandlersUnsubscribes(t *testing.T) {
	f := newFixture(t)
	f.run(t, "on ping {\n  $x = 1\n}")
	if f.eval.HandlerCount() != 1 {
		t.Fatal("handler not registered")
	}
	f.eval.RemoveHandlers()
	fired := false
	f.eval.SetGate(func(fn func()) { fired = true })
	f.hc.Events.Emit("ping", map[string]any{"source": "other"})
	if fired {
		t.Fatal("unsubscribed handler still fired")
	}
}

func TestRunScopedOverrideShadowsSharedBuiltin(t *testing.T) {
	f := newFixture(t)
	f.eval.Override("now", func(args ...object.Object) object.Object {
		return &object.Number{Value: 12345}
	})
	requireNumber(t, f.run(t, "return now()"), 12345)
}

func TestUserFunctionShadowsBuiltin(t *testing.T) {
	input := `
function len $x {
  return 99
}
return len("abc")
`
	requireNumber(t, testEval(t, input), 99)
}

func TestDeterministicRunsProduceIdenticalOutput(t *testing.T) {
	input := `
$o = {b: 2, a: 1}
$parts = []
foreach $k in $o {
  call push $parts $k + "=" + $o[$k]
}
print join($parts, ",")
`
	var first []string
	for i := 0; i < 3; i++ {
		f := newFixture(t)
		f.run(t, input)
		if first == nil {
			first = f.output
			continue
		}
		if len(f.output) != len(first) || f.output[0] != first[0] {
			t.Fatalf("run %d diverged: %v vs %v", i, f.output, first)
		}
	}
	if first[0] != "b=2,a=1" {
		t.Fatalf("insertion order lost: %v", first)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	input := `
$orig = {name: "ada", tags: ["x", "y"], meta: {level: 3}}
$encoded = jsonEncode($orig)
$decoded = jsonDecode($encoded)
return $decoded.meta.level
`
	requireNumber(t, testEval(t, input), 3)
}

func TestQueryBuiltinUsesCannedResults(t *testing.T) {
	f := newFixture(t)
	f.shell.QueryResults["window:active"] = "editor"
	requireString(t, f.run(t, `return query("window:active")`), "editor")
}

func TestBuiltinErrorsAreCatchable(t *testing.T) {
	input := `
try {
  $x = sqrt(-1)
  return "no error"
} catch $err {
  return "caught: " + $err
}
`
	requireString(t, testEval(t, input), "caught: sqrt of negative number")
}

func TestReturnOutsideFunctionEndsTheRun(t *testing.T) {
	input := `
$x = 1
return $x
$x = 2
`
	requireNumber(t, testEval(t, input), 1)
}

func TestBreakOutsideLoopIsAnError(t *testing.T) {
	result := testEval(t, "break")
	if _, ok := result.(*object.Error); !ok {
		t.Fatalf("expected error, got %T", result)
	}
}

func TestUnknownFunctionIsCatchable(t *testing.T) {
	input := `
try {
  call nosuchthing
  return "no error"
} catch $err {
  return "caught"
}
`
	requireString(t, testEval(t, input), "caught")
}
