package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"tickvm/internal/cast"
	"tickvm/internal/runtime"
)

const PROMPT = ">> "

// ErrAborted is returned by a LineReader when the user abandons the current
// line. Run discards it and prompts again.
var ErrAborted = errors.New("prompt aborted")

// LineReader supplies one line per prompt and returns io.EOF when input
// ends.
type LineReader interface {
	Prompt(prompt string) (string, error)
}

// historian is implemented by readers that keep a line history.
type historian interface {
	AppendHistory(item string)
}

type scannerReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (r *scannerReader) Prompt(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

// Start reads one script per line and evaluates it against rt on behalf of
// target, printing what it produces.
func Start(in io.Reader, out io.Writer, rt *runtime.Runtime, target runtime.Target) {
	Run(&scannerReader{scanner: bufio.NewScanner(in), out: out}, out, rt, target)
}

// Run is Start over an arbitrary line source.
func Run(lines LineReader, out io.Writer, rt *runtime.Runtime, target runtime.Target) {
	for {
		line, err := lines.Prompt(PROMPT)
		if errors.Is(err, ErrAborted) {
			io.WriteString(out, "\n")
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				fmt.Fprintf(out, "read failed: %v\n", err)
			}
			return
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		value, err := rt.Evaluate(line, target)
		if err != nil {
			printAssemblyError(out, err)
			continue
		}
		if h, ok := lines.(historian); ok {
			h.AppendHistory(line)
		}
		io.WriteString(out, inspect(value))
		io.WriteString(out, "\n")
		rt.RunJobs()
	}
}

func inspect(v any) string {
	switch v := v.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case []*runtime.Thread:
		return fmt.Sprintf("<%d threads>", len(v))
	default:
		return cast.String(v)
	}
}

func printAssemblyError(out io.Writer, err error) {
	io.WriteString(out, "could not run that:\n")
	msg := strings.TrimPrefix(err.Error(), runtime.ErrAssembly.Error()+": ")
	io.WriteString(out, "\t"+msg+"\n")
}
