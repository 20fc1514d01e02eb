// Command monkey is the Monkey interpreter CLI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/thomasrohde/monkey/pkg/config"
	"github.com/thomasrohde/monkey/pkg/diagnostics"
	"github.com/thomasrohde/monkey/pkg/evaluator"
	"github.com/thomasrohde/monkey/pkg/help"
	"github.com/thomasrohde/monkey/pkg/parser"
	"github.com/thomasrohde/monkey/pkg/repl"
	"github.com/thomasrohde/monkey/pkg/runtime"
	"github.com/thomasrohde/monkey/pkg/stdlib"
)

// Exit codes.
const (
	exitOK      = 0
	exitIO      = 1
	exitDiags   = 2
	exitBudget  = 3
	exitRuntime = 4
)

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	dir    string
}

func main() {
	cwd, _ := os.Getwd()
	c := &cli{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr, dir: cwd}
	os.Exit(c.dispatch(os.Args[1:]))
}

func (c *cli) dispatch(args []string) int {
	if len(args) == 0 {
		return c.cmdRepl(nil)
	}

	cmd := args[0]
	switch cmd {
	case "repl":
		return c.cmdRepl(args[1:])
	case "run":
		return c.cmdRun(args[1:])
	case "check":
		return c.cmdCheck(args[1:])
	case "fmt":
		return c.cmdFmt(args[1:])
	case "trace":
		return c.cmdTrace(args[1:])
	case "help", "--help", "-h":
		return c.cmdHelp(args[1:])
	case "config":
		return c.cmdConfig(args[1:])
	default:
		fmt.Fprintf(c.stderr, "Unknown command: %s\n", cmd)
		fmt.Fprintln(c.stderr, "commands: repl, run, check, fmt, trace, help, config")
		return exitIO
	}
}

// loadConfig reads the effective config, reporting a broken file as E_CONFIG.
func (c *cli) loadConfig() (*config.Config, bool) {
	cfg, err := config.Load(c.dir)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EConfig, err.Error(), nil, "")
		fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostic(diag, true))
		return nil, false
	}
	return cfg, true
}

func (c *cli) logger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: cfg.Level()}))
}

func (c *cli) cmdRepl(args []string) int {
	if len(args) > 0 {
		fmt.Fprintln(c.stderr, "usage: monkey repl")
		return exitIO
	}
	cfg, ok := c.loadConfig()
	if !ok {
		return exitIO
	}
	log := c.logger(cfg)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if cfg.HistoryFile != "" {
		if f, err := os.Open(cfg.HistoryFile); err == nil {
			if _, err := line.ReadHistory(f); err != nil {
				log.Warn("reading history failed", "file", cfg.HistoryFile, "error", err)
			}
			f.Close()
		}
	}

	rt := runtime.New(
		runtime.WithBudget(cfg.Budget),
		runtime.WithLogger(log),
		runtime.WithOutput(c.stdout),
		runtime.WithRunID("repl"),
	)
	err := repl.Run(context.Background(), line, rt.NewSession("<repl>"), c.stdout, c.stderr, repl.Options{Prompt: cfg.Prompt})

	if cfg.HistoryFile != "" {
		if werr := saveHistory(line, cfg.HistoryFile); werr != nil {
			log.Warn("writing history failed", "file", cfg.HistoryFile, "error", werr)
		}
	}

	if err != nil {
		fmt.Fprintf(c.stderr, "error: %s\n", err)
		return exitIO
	}
	return exitOK
}

func saveHistory(line *liner.State, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = line.WriteHistory(f)
	return err
}

func (c *cli) cmdRun(args []string) int {
	var file string
	pretty := false
	jsonOut := false
	tracePath := ""
	debugParse := false
	validate := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		case "--check":
			validate = true
		case "--json":
			jsonOut = true
		case "--trace":
			if i+1 < len(args) {
				i++
				tracePath = args[i]
			}
		case "--debug-parse":
			debugParse = true
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: monkey run <file|-> [--check] [--json] [--pretty] [--trace <path>] [--debug-parse]")
		return exitIO
	}

	cfg, ok := c.loadConfig()
	if !ok {
		return exitIO
	}
	pretty = pretty || cfg.Pretty

	source, filename, exitCode := c.readSource(file, pretty)
	if exitCode != exitOK {
		return exitCode
	}

	if debugParse {
		if program, diags := parser.Parse(source, filename); len(diags) == 0 {
			fmt.Fprintln(c.stderr, program.String())
		}
	}

	log := c.logger(cfg)
	opts := []runtime.Option{
		runtime.WithBudget(cfg.Budget),
		runtime.WithLogger(log),
		runtime.WithOutput(c.stdout),
		runtime.WithValidation(validate),
	}
	if tracePath != "" {
		tf, err := os.Create(tracePath)
		if err != nil {
			c.ioError(fmt.Sprintf("cannot write trace file: %s", tracePath), pretty)
			return exitIO
		}
		defer tf.Close()
		opts = append(opts, runtime.WithTrace(newTraceWriter(tf, log)))
	}

	rt := runtime.New(opts...)
	result, execErr := rt.Run(context.Background(), source, filename)
	if execErr != nil {
		return c.reportRunError(execErr, pretty)
	}

	if jsonOut {
		jsonBytes, err := evaluator.ValueToJSON(result.Value)
		if err != nil {
			fmt.Fprintf(c.stderr, "error serializing result: %s\n", err)
			return exitRuntime
		}
		fmt.Fprintln(c.stdout, string(jsonBytes))
	} else {
		fmt.Fprintln(c.stdout, result.Value.Inspect())
	}
	return exitOK
}

func (c *cli) reportRunError(err error, pretty bool) int {
	var diagErr *runtime.DiagnosticError
	if errors.As(err, &diagErr) {
		fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics(diagErr.Diagnostics, pretty))
		return exitDiags
	}
	var rtErr *evaluator.RuntimeError
	if errors.As(err, &rtErr) {
		fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{rtErr.Diagnostic()}, pretty))
		return exitCodeForDiag(rtErr.Code)
	}
	fmt.Fprintln(c.stderr, err.Error())
	return exitRuntime
}

func (c *cli) cmdCheck(args []string) int {
	var file string
	pretty := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: monkey check <file> [--pretty]")
		return exitIO
	}

	source, filename, exitCode := c.readSource(file, pretty)
	if exitCode != exitOK {
		return exitCode
	}

	rt := runtime.New()
	diags := rt.Check(source, filename)
	if len(diags) > 0 {
		fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics(diags, pretty))
		return exitDiags
	}

	if pretty {
		fmt.Fprintln(c.stdout, "No errors found.")
	} else {
		fmt.Fprintln(c.stdout, "[]")
	}
	return exitOK
}

func (c *cli) cmdFmt(args []string) int {
	var file string
	write := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--write":
			write = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: monkey fmt <file> [--write]")
		return exitIO
	}

	source, filename, exitCode := c.readSource(file, false)
	if exitCode != exitOK {
		return exitCode
	}

	rt := runtime.New()
	formatted, fmtErr := rt.Format(source, filename)
	if fmtErr != nil {
		return c.reportRunError(fmtErr, false)
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0o644); err != nil {
			c.ioError(fmt.Sprintf("cannot write file: %s", file), false)
			return exitIO
		}
	} else {
		fmt.Fprint(c.stdout, formatted)
	}
	return exitOK
}

func (c *cli) cmdTrace(args []string) int {
	var file string
	textOutput := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			textOutput = false
		case "--text":
			textOutput = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: monkey trace <file.jsonl> [--json|--text]")
		return exitIO
	}

	f, err := os.Open(file)
	if err != nil {
		c.ioError(fmt.Sprintf("cannot read file: %s", file), false)
		return exitIO
	}
	defer f.Close()

	summary, err := computeTraceSummary(f)
	if err != nil {
		c.ioError(fmt.Sprintf("cannot read trace %s: %s", file, err), false)
		return exitIO
	}
	if textOutput {
		printTraceSummaryText(c.stdout, summary)
	} else {
		b, _ := json.Marshal(summary)
		fmt.Fprintln(c.stdout, string(b))
	}
	return exitOK
}

func (c *cli) cmdHelp(args []string) int {
	showIndex := false
	topic := ""
	for _, arg := range args {
		if arg == "--index" {
			showIndex = true
		} else if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if showIndex {
		if topic != "" && topic != "builtins" {
			fmt.Fprintln(c.stderr, "error: --index is only supported for the builtins topic")
			return exitIO
		}
		fmt.Fprint(c.stdout, help.BuiltinIndex(stdlib.Defaults().Names()))
		return exitOK
	}

	if topic == "" {
		fmt.Fprint(c.stdout, help.QUICKREF)
		return exitOK
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(c.stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return exitIO
	}
	fmt.Fprint(c.stdout, content)
	return exitOK
}

func (c *cli) cmdConfig(args []string) int {
	if len(args) > 0 {
		fmt.Fprintln(c.stderr, "usage: monkey config")
		return exitIO
	}
	cfg, ok := c.loadConfig()
	if !ok {
		return exitIO
	}

	source := "defaults"
	if cfg.Path != "" {
		source = cfg.Path
	}
	data, err := cfg.YAML()
	if err != nil {
		fmt.Fprintf(c.stderr, "error: %s\n", err)
		return exitIO
	}
	fmt.Fprintf(c.stdout, "# source: %s\n%s", source, data)
	return exitOK
}

func (c *cli) readSource(file string, pretty bool) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			c.ioError(fmt.Sprintf("cannot read stdin: %s", err), pretty)
			return "", "", exitIO
		}
		return string(data), "<stdin>", exitOK
	}

	source, err := os.ReadFile(file)
	if err != nil {
		msg := fmt.Sprintf("cannot read file: %s", file)
		if errors.Is(err, fs.ErrNotExist) {
			msg = fmt.Sprintf("file not found: %s", file)
		}
		c.ioError(msg, pretty)
		return "", "", exitIO
	}
	return string(source), file, exitOK
}

func (c *cli) ioError(msg string, pretty bool) {
	diag := diagnostics.MakeDiag(diagnostics.EIO, msg, nil, "")
	fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, pretty))
}

func exitCodeForDiag(code string) int {
	switch code {
	case diagnostics.EBudget:
		return exitBudget
	case diagnostics.EIO:
		return exitIO
	default:
		return exitRuntime
	}
}
