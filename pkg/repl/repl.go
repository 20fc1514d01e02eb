// Package repl implements the Monkey read-eval-print loop.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"

	"github.com/thomasrohde/monkey/pkg/diagnostics"
	"github.com/thomasrohde/monkey/pkg/runtime"
)

// DefaultPrompt is used when Options.Prompt is empty.
const DefaultPrompt = ">> "

// LineReader supplies input lines. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// Options configures the loop.
type Options struct {
	Prompt string
}

const commandHelp = `Commands:
  :env         list session bindings
  :ast <code>  show the parsed form of <code>
  :help        show this message
  :quit        leave the session`

// Run reads lines from in and evaluates each one in session until input
// ends or :quit is entered. Values go to out, errors to errOut. End of input
// returns nil; any other read failure is returned. Errors raised by the
// input itself never end the loop.
func Run(ctx context.Context, in LineReader, session *runtime.Session, out, errOut io.Writer, opts Options) error {
	prompt := opts.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := in.Prompt(prompt)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				fmt.Fprintln(out)
				return nil
			case errors.Is(err, liner.ErrPromptAborted):
				continue
			default:
				return fmt.Errorf("repl: read input: %w", err)
			}
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		in.AppendHistory(line)

		if strings.HasPrefix(input, ":") {
			if quit := command(input, session, out, errOut); quit {
				return nil
			}
			continue
		}

		val, err := session.Eval(ctx, line)
		if err != nil {
			report(errOut, err)
			continue
		}
		fmt.Fprintln(out, val.Inspect())
	}
}

// command runs a meta-command and reports whether the session should end.
func command(input string, session *runtime.Session, out, errOut io.Writer) bool {
	name, arg, _ := strings.Cut(input, " ")
	switch name {
	case ":quit", ":q":
		return true

	case ":env":
		env := session.Env()
		for _, n := range env.Names() {
			v, _ := env.Lookup(n)
			fmt.Fprintf(out, "%s = %s\n", n, v.Inspect())
		}

	case ":ast":
		program, err := session.Parse(arg)
		if err != nil {
			report(errOut, err)
			return false
		}
		fmt.Fprintln(out, program.String())

	case ":help":
		fmt.Fprintln(out, commandHelp)

	default:
		fmt.Fprintf(errOut, "unknown command %s (try :help)\n", name)
	}
	return false
}

func report(w io.Writer, err error) {
	if diags := runtime.Diagnostics(err); diags != nil {
		fmt.Fprintln(w, diagnostics.FormatDiagnostics(diags, true))
		return
	}
	fmt.Fprintln(w, err.Error())
}
