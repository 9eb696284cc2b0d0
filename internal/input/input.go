// Package input reads lines for the interactive compiler session from a
// terminal or any other source of input.
package input

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// DefaultPrompt is shown before a line of input when no other prompt is set.
const DefaultPrompt = "kc> "

// DirectReader implements command.Reader and reads lines from any generic
// input stream directly. It does not sanitize the input of control and escape
// sequences.
//
// DirectReader should not be used directly; instead, create one with
// [NewDirectReader].
type DirectReader struct {
	r             *bufio.Reader
	blanksAllowed bool
}

// InteractiveReader implements command.Reader and reads lines from stdin
// using a go implementation of the GNU Readline library. This keeps input
// clear of all typing and editing escape sequences and enables history and
// tab completion of directives. It should only be used when directly
// connected to a TTY.
//
// InteractiveReader should not be used directly; instead, create one with
// [NewInteractiveReader].
type InteractiveReader struct {
	rl            *readline.Instance
	blanksAllowed bool
	prompt        string
}

// Options configures an InteractiveReader.
type Options struct {
	// Prompt is the initial prompt. If empty, DefaultPrompt is used.
	Prompt string

	// HistoryFile is where entered lines are saved between sessions. If
	// empty, history is kept in memory only.
	HistoryFile string

	// Completions are offered for tab completion at the start of a line.
	Completions []string
}

// NewDirectReader creates a new DirectReader with a buffered reader on the
// provided reader.
func NewDirectReader(r io.Reader) *DirectReader {
	return &DirectReader{
		r: bufio.NewReader(r),
	}
}

// NewInteractiveReader creates a new InteractiveReader and initializes
// readline. The returned InteractiveReader must have Close() called on it
// before disposal to properly teardown readline resources.
func NewInteractiveReader(opts Options) (*InteractiveReader, error) {
	if opts.Prompt == "" {
		opts.Prompt = DefaultPrompt
	}

	cfg := &readline.Config{
		Prompt:          opts.Prompt,
		HistoryFile:     opts.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       ":quit",
	}
	if len(opts.Completions) > 0 {
		items := make([]readline.PrefixCompleterInterface, len(opts.Completions))
		for i := range opts.Completions {
			items[i] = readline.PcItem(opts.Completions[i])
		}
		cfg.AutoComplete = readline.NewPrefixCompleter(items...)
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, fmt.Errorf("create readline config: %w", err)
	}

	return &InteractiveReader{
		rl:     rl,
		prompt: opts.Prompt,
	}, nil
}

// Close cleans up resources associated with the DirectReader. It exists so
// DirectReader implements command.Reader and does nothing.
func (dr *DirectReader) Close() error {
	return nil
}

// Close cleans up readline resources associated with the InteractiveReader.
func (ir *InteractiveReader) Close() error {
	return ir.rl.Close()
}

// ReadCommand reads the next line. Unless blanks are allowed, it blocks until
// a line containing non-space characters is read. Leading indentation is kept
// so source lines read back the way they were typed.
//
// If at end of input, the returned string will be empty and error will be
// io.EOF. If any other error occurs, the returned string will be empty and
// error will be that error.
func (dr *DirectReader) ReadCommand() (string, error) {
	for {
		line, err := dr.r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}

		line = strings.TrimRight(line, " \t\r\n")

		if line != "" || dr.blanksAllowed {
			return line, nil
		}
	}
}

// ReadCommand reads the next line from the terminal. Unless blanks are
// allowed, it blocks until a line containing non-space characters is read.
// An interrupt (Ctrl-C) on an empty line is returned as io.EOF.
func (ir *InteractiveReader) ReadCommand() (string, error) {
	for {
		line, err := ir.rl.Readline()
		if err == readline.ErrInterrupt {
			if line == "" {
				return "", io.EOF
			}
			continue
		}
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}

		line = strings.TrimRight(line, " \t\r\n")

		if line != "" || ir.blanksAllowed {
			return line, nil
		}
	}
}

// AllowBlank sets whether blank lines are returned. By default they are not.
func (dr *DirectReader) AllowBlank(allow bool) {
	dr.blanksAllowed = allow
}

// AllowBlank sets whether blank lines are returned. By default they are not.
func (ir *InteractiveReader) AllowBlank(allow bool) {
	ir.blanksAllowed = allow
}

// SetPrompt updates the prompt to the given text.
func (ir *InteractiveReader) SetPrompt(p string) {
	ir.prompt = p
	ir.rl.SetPrompt(p)
}

// GetPrompt gets the current prompt.
func (ir *InteractiveReader) GetPrompt() string {
	return ir.prompt
}
