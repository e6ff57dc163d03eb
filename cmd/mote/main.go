package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mote/internal/engine"
	"mote/internal/evaluator"
	"mote/internal/host"
	"mote/internal/host/sqlitefs"
	"mote/internal/repl"
	"mote/internal/util"
)

var (
	// Version is stamped at build time.
	Version   = "dev"
	BuildDate = "unknown"
	Commit    = "unknown"

	help    bool
	version bool
	// logging
	logLevel string
	logFile  string
	// run config
	configPath string
	statePath  string
	timeout    int
	parseOnly  bool
	persist    bool
)

func init() {
	flag.BoolVar(&help, "help", false, "Display help information and exit")
	flag.BoolVar(&help, "h", false, "Display help information and exit")
	flag.BoolVar(&version, "version", false, "Display version information and exit")
	flag.BoolVar(&version, "v", false, "Display version information and exit")
	// run config
	flag.StringVar(&configPath, "config", "", "Path to a TOML configuration file")
	flag.StringVar(&statePath, "state", "", "SQLite file backing the script filesystem (default in-memory)")
	flag.IntVar(&timeout, "timeout", 0, "Wall-clock limit per run in seconds (overrides config)")
	flag.BoolVar(&parseOnly, "parse-only", false, "Check syntax without running")
	flag.BoolVar(&persist, "persist", false, "Keep event handlers alive after the script body finishes")
	// log config
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flag.StringVar(&logFile, "log-file", "", "Log file path (if not set, logs to stderr)")
}

func main() {
	flag.Parse()

	if version {
		printVersion()
		return
	}
	if help {
		printHelp()
		return
	}

	config, err := util.LoadConfiguration(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if statePath != "" {
		config.StatePath = statePath
	}
	if timeout > 0 {
		config.TimeoutSeconds = timeout
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	if logFile != "" {
		config.LogFile = logFile
	}

	loggerOptions := &slog.HandlerOptions{
		AddSource: false,
		Level:     logLevelFromString(config.LogLevel),
	}
	logWriter := configureLogWriter(config.LogFile)
	slog.SetDefault(slog.New(slog.NewJSONHandler(logWriter, loggerOptions)))

	hc, err := buildHostContext(config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fileName := flag.Arg(0)
	if fileName == "" {
		fmt.Printf("mote v%s\n", Version)
		repl.Start(os.Stdin, os.Stdout, hc)
		return
	}

	source, err := os.ReadFile(fileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot read %s: %v\n", fileName, err)
		os.Exit(1)
	}

	eng := engine.New(hc)

	if parseOnly {
		if _, err := eng.Parse(string(source)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	opts := engine.Options{
		Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		Output:  func(line string) { fmt.Println(line) },
		Limits: evaluator.Limits{
			MaxLoopIterations: config.MaxLoopIterations,
			MaxCallDepth:      config.MaxCallDepth,
			MaxHandlers:       config.MaxHandlers,
		},
	}

	var result engine.Result
	if persist {
		result = eng.RunPersistent(string(source), opts)
	} else {
		result = eng.Run(string(source), opts)
	}
	if result.Err != nil {
		fmt.Fprintln(os.Stderr, result.Err)
		eng.StopAll()
		os.Exit(1)
	}
	if result.Value != nil {
		fmt.Println(result.Value)
	}
	if persist && result.SessionID != "" {
		// handlers stay live until the process is interrupted
		slog.Info("session persisting", slog.String("session", result.SessionID))
		select {}
	}
}

// buildHostContext wires the script filesystem over SQLite when a
// state path is configured, in-memory otherwise. Commands, windows
// and dialogs run against the logging shell; a desktop embedding
// swaps in its own host.Context instead of using this binary.
func buildHostContext(config util.Configuration) (host.Context, error) {
	hc, _ := host.NewNullContext()
	if config.StatePath != "" {
		fs, err := sqlitefs.Open(config.StatePath)
		if err != nil {
			return hc, fmt.Errorf("state %s: %w", config.StatePath, err)
		}
		hc.FS = fs
	}
	return hc, nil
}

func configureLogWriter(logFile string) *os.File {
	if logFile == "" {
		return os.Stderr
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory for '%s': %v; falling back to stderr\n", logFile, err)
		return os.Stderr
	}
	logWriter, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file '%s': %v; falling back to stderr\n", logFile, err)
		return os.Stderr
	}
	return logWriter
}

func printVersion() {
	fmt.Printf("mote version 'v%s' %s %s\n", Version, BuildDate, Commit)
}

func printHelp() {
	fmt.Printf(`Usage: mote [options] [filename]

Options:
  -config <path>     Path to a TOML configuration file.
  -state <path>      SQLite file backing the script filesystem. Default is in-memory.
  -timeout <secs>    Wall-clock limit per run in seconds. Default is 30.
  -parse-only        Check syntax without running.
  -persist           Keep event handlers alive after the script body finishes.
  -help              Display this help information and exit.
  -version           Display version information and exit.
  -log-level <level> Set the log level: debug, info, warn, error. Default is 'error'.
  -log-file <path>   Specify a log file to write logs. Default is stderr.

Details:
Mote is a small automation language for scripting a host environment:
files, windows, dialogs, sounds and semantic events. Without a
filename it starts an interactive session.

Examples:
  mote                          Start an interactive session
  mote tasks.mote               Execute the provided script
  mote -persist watcher.mote    Run and keep reacting to events
  mote -state ~/.mote.db run.mote   Persist the script filesystem

Version Information:
  Version:    %s
  Build Date: %s
  Commit:     %s
`, Version, BuildDate, Commit)
}

func logLevelFromString(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelError
	}
}
