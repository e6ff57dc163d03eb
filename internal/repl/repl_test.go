package repl

import (
	"bytes"
	"strings"
	"testing"

	"mote/internal/host"
)

func runREPL(t *testing.T, input string) string {
	t.Helper()
	hc, _ := host.NewNullContext()
	var out bytes.Buffer
	Start(strings.NewReader(input), &out, hc)
	return out.String()
}

func TestStateCarriesAcrossLines(t *testing.T) {
	output := runREPL(t, "$x = 2\n$x * 21\n")
	if !strings.Contains(output, "42") {
		t.Fatalf("expected 42 in output, got %q", output)
	}
}

func TestVarsCommand(t *testing.T) {
	output := runREPL(t, "$name = \"ada\"\n:vars\n")
	if !strings.Contains(output, "$name = ada") {
		t.Fatalf("expected binding listing, got %q", output)
	}
}

func TestQuitStopsReading(t *testing.T) {
	output := runREPL(t, ":quit\n$x = 1\n")
	if strings.Count(output, PROMPT) != 1 {
		t.Fatalf("expected a single prompt, got %q", output)
	}
}

func TestParseErrorsAreReportedAndRecovered(t *testing.T) {
	output := runREPL(t, "if {\n1 + 1\n")
	if !strings.Contains(output, "parser errors:") {
		t.Fatalf("expected parser errors, got %q", output)
	}
	if !strings.Contains(output, "2") {
		t.Fatalf("expected the next line to still evaluate, got %q", output)
	}
}
