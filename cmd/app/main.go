package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tickvm/internal/blocks"
	"tickvm/internal/cast"
	"tickvm/internal/repl"
	"tickvm/internal/runtime"
	"tickvm/internal/sequencer"
	"tickvm/internal/stage"
	"tickvm/internal/store"
	"tickvm/internal/util"

	"github.com/peterh/liner"
	"golang.org/x/term"
)

var (
	Version   = "dev"
	BuildDate = "unknown"
	Commit    = "unknown"
	help      bool
	version   bool
	// logging
	logLevel string
	logFile  string
	// host config
	maxTicks    int
	turbo       bool
	interactive bool
	debugAST    bool
	debugTxtAST bool
)

func init() {
	flag.BoolVar(&help, "help", false, "Display help information and exit")
	flag.BoolVar(&help, "h", false, "Display help information and exit")
	flag.BoolVar(&version, "version", false, "Display version information and exit")
	flag.BoolVar(&version, "v", false, "Display version information and exit")
	flag.IntVar(&maxTicks, "ticks", 0, "Stop after this many ticks (overrides max_ticks)")
	flag.BoolVar(&turbo, "turbo", false, "Run in turbo mode")
	flag.BoolVar(&interactive, "repl", false, "Evaluate scripts typed on stdin after the project has run")
	flag.BoolVar(&debugAST, "debug-ast", false, "Write each script's AST next to it as JSON")
	flag.BoolVar(&debugTxtAST, "debug-ast-txt", false, "Write each script's AST next to it as text")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides log_level)")
	flag.StringVar(&logFile, "log-file", "", "Log file path (if not set, logs to stderr)")
}

func main() {
	flag.Parse()

	if version {
		printVersion()
		return
	}
	if help || flag.NArg() != 1 {
		printHelp()
		return
	}

	path, _ := filepath.Abs(flag.Arg(0))
	project, err := util.LoadConfig(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if logLevel == "" {
		logLevel = project.LogLevel
	}
	if logFile == "" {
		logFile = project.LogFile
	}
	if maxTicks == 0 {
		maxTicks = project.MaxTicks
	}
	turbo = turbo || project.Turbo

	// Creates a new Logger that uses a JSONHandler to write to standard output
	loggerOptions := &slog.HandlerOptions{
		AddSource: false,
		Level:     logLevelFromString(logLevel),
	}
	logWriter := configureLogWriter()
	slog.SetDefault(slog.New(slog.NewJSONHandler(logWriter, loggerOptions)))

	config := util.Configuration{
		Version:     Version,
		BuildDate:   BuildDate,
		Commit:      Commit,
		RootPath:    filepath.Dir(path),
		DebugAST:    debugAST,
		DebugTxtAST: debugTxtAST,
		Project:     project,
	}

	if err := run(config); err != nil {
		slog.Error("run failed", slog.Any("error", err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(config util.Configuration) error {
	ctx := context.Background()
	project := config.Project

	world := stage.NewWorld(nil)
	if err := populate(world, project); err != nil {
		return err
	}

	var db *store.Store
	if project.Store.Driver != "" || project.Store.DSN != "" {
		var err error
		db, err = store.Open(ctx, project.Store.Driver, project.Store.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := loadCloud(ctx, world, db); err != nil {
			return err
		}
	}

	rt := runtime.NewRuntime(nil, world)
	seq := sequencer.New(rt, sequencer.Options{
		FrameRate: project.FrameRate,
		Turbo:     turbo,
	})
	b := &blocks.Blocks{Redraw: seq, CloudTimeout: project.Store.Timeout, Out: os.Stdout}
	if db != nil {
		b.Cloud = db
	}
	b.Register(rt)

	if err := compileScripts(rt, seq, world, project, config); err != nil {
		return err
	}

	seq.StartHats("event_whenflagclicked", nil)
	ticks := loop(rt, seq, project.FrameRate)
	slog.Info("project finished", slog.Int("ticks", ticks))

	if db != nil {
		if err := saveCloud(ctx, world, db); err != nil {
			return err
		}
	}
	printVariables(world)

	if interactive {
		startREPL(rt, world)
	}
	return nil
}

// startREPL uses a line editor when stdin is a terminal and a plain line
// scanner otherwise, so piped input still works.
func startREPL(rt *runtime.Runtime, world *stage.World) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		repl.Start(os.Stdin, os.Stdout, rt, world.Stage())
		return
	}
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	repl.Run(linerReader{ln}, os.Stdout, rt, world.Stage())
	fmt.Println()
}

type linerReader struct {
	*liner.State
}

func (r linerReader) Prompt(prompt string) (string, error) {
	line, err := r.State.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", repl.ErrAborted
	}
	return line, err
}

// loop ticks at the frame rate until no thread is left and no settle job is
// pending, or until maxTicks.
func loop(rt *runtime.Runtime, seq *sequencer.Sequencer, frameRate int) int {
	frame := time.Second / time.Duration(frameRate)
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	for {
		rt.RunJobs()
		if len(seq.Threads()) == 0 && !rt.PendingJobs() {
			return seq.Ticks()
		}
		if maxTicks > 0 && seq.Ticks() >= maxTicks {
			seq.StopAll()
			return seq.Ticks()
		}
		seq.StepThreads()
		if !turbo {
			<-ticker.C
		}
	}
}

func printVariables(world *stage.World) {
	for _, target := range world.Targets() {
		for _, v := range target.Variables() {
			fmt.Printf("%s.%s = %s\n", target.Name(), v.Name, cast.String(v.Value))
		}
	}
}

func configureLogWriter() *os.File {
	var logWriter *os.File
	var err error
	if logFile != "" {
		// Create parent directories if they don't exist
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create log directory for '%s': %v; falling back to stderr\n", logFile, err)
			return os.Stderr
		}
		logWriter, err = os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file '%s': %v; falling back to stderr\n", logFile, err)
			logWriter = os.Stderr
		}
	} else {
		logWriter = os.Stderr
	}
	return logWriter
}

func printVersion() {
	fmt.Printf("tickvm version 'v%s' %s %s\n", Version, BuildDate, Commit)
}

func printHelp() {
	fmt.Printf(`Usage: tickvm [options] project.toml

Options:
  -ticks <n>         Stop after n ticks. Default is the project's max_ticks, 0 runs until done.
  -turbo             Do not wait for the frame timer between ticks.
  -repl              Read and evaluate scripts from stdin once the project has finished.
  -debug-ast         Write each script's AST to <script>.ast.json.
  -debug-ast-txt     Write each script's AST to <script>.ast.txt.
  -help              Display this help information and exit.
  -version           Display version information and exit.
  -log-level <level> Set the log level: debug, info, warn, error. Default is 'error'.
  -log-file <path>   Specify a log file to write logs. Default is stderr.

Details:
Runs a project of compiled block scripts: every target's green flag scripts
start on the first tick and the project ends when no thread is left.
Script engine diagnostics follow TICKVM_LOG_LEVEL.

Examples:
  tickvm game.toml                 Run until every script finishes
  tickvm -ticks=300 -turbo game.toml
  tickvm -repl game.toml           Run, then evaluate scripts interactively

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
