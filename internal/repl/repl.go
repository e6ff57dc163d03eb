package repl

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"mote/internal/evaluator"
	"mote/internal/host"
	"mote/internal/lexer"
	"mote/internal/object"
	"mote/internal/parser"
)

const PROMPT = ">> "

// Start reads statements line by line against one persistent
// environment, so variables, functions and handlers carry across
// inputs. `:vars` lists the bindings, `:quit` exits.
func Start(in io.Reader, out io.Writer, hc host.Context) {
	scanner := bufio.NewScanner(in)
	env := object.NewEnvironment()
	eval := evaluator.New(hc, env, evaluator.DefaultLimits())
	eval.SetOutput(func(line string) {
		io.WriteString(out, line+"\n")
	})
	defer eval.RemoveHandlers()
	defer eval.Cleanup()

	for {
		fmt.Fprint(out, PROMPT)
		if !scanner.Scan() {
			return
		}

		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case "":
			continue
		case ":quit", ":q":
			return
		case ":vars":
			printVars(out, env)
			continue
		}

		p := parser.New(lexer.New(line))
		program := p.ParseProgram()
		if len(p.Errors()) != 0 {
			printParserErrors(out, p.Errors())
			continue
		}

		result := eval.Eval(program)
		if result != nil && result != object.NULL {
			io.WriteString(out, result.Inspect())
			io.WriteString(out, "\n")
		}
	}
}

func printVars(out io.Writer, env *object.Environment) {
	snapshot := env.Snapshot()
	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "$%s = %s\n", name, snapshot[name].Inspect())
	}
}

func printParserErrors(out io.Writer, errors []string) {
	io.WriteString(out, "parser errors:\n")
	for _, msg := range errors {
		io.WriteString(out, "\t"+msg+"\n")
	}
}
