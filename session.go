package kernc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dekarrin/kernc/internal/command"
	"github.com/dekarrin/kernc/internal/input"
)

const (
	consoleOutputWidth = 80

	sourcePrompt   = "kc> "
	continuePrompt = "..> "
)

// Session is an interactive compiler attached to an input stream and an
// output stream. Lines of kernel source are collected until a directive such
// as ":compile" acts on them.
type Session struct {
	in          command.Reader
	out         *bufio.Writer
	props       Properties
	builder     *Builder
	forceDirect bool
	useReadline bool
	running     bool

	lines []string
	last  Result
}

// NewSession creates a new Session ready to operate on the given input and
// output streams. If b is not nil, compiles go through its build cache.
//
// If nil is given for the input stream, stdin is used. If nil is given for
// the output stream, stdout is used. Readline is used for input when both are
// the standard streams unless forceDirectInput is set.
func NewSession(inputStream io.Reader, outputStream io.Writer, props Properties, b *Builder, forceDirectInput bool) (*Session, error) {
	if inputStream == nil {
		inputStream = os.Stdin
	}
	if outputStream == nil {
		outputStream = os.Stdout
	}

	sess := &Session{
		out:         bufio.NewWriter(outputStream),
		props:       props,
		builder:     b,
		forceDirect: forceDirectInput,
	}

	sess.useReadline = !forceDirectInput && inputStream == os.Stdin && outputStream == os.Stdout

	if sess.useReadline {
		var completions []string
		for _, v := range command.Verbs() {
			completions = append(completions, command.Prefix+strings.ToLower(v))
		}

		var err error
		sess.in, err = input.NewInteractiveReader(input.Options{
			Prompt:      sourcePrompt,
			Completions: completions,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing interactive-mode input reader: %w", err)
		}
	} else {
		sess.in = input.NewDirectReader(inputStream)
	}

	return sess, nil
}

// Close closes all resources associated with the Session, including any
// readline resources created for interactive mode.
func (sess *Session) Close() error {
	if sess.running {
		return fmt.Errorf("cannot close a running session")
	}

	if err := sess.in.Close(); err != nil {
		return fmt.Errorf("close input reader: %w", err)
	}
	return nil
}

// Properties returns the current compile properties of the session.
func (sess *Session) Properties() Properties {
	return sess.props
}

// RunUntilQuit reads lines from the input stream until ":quit" or the end of
// input. Problems with directives or source are reported on the output stream
// and do not stop the session; only I/O failures are returned.
func (sess *Session) RunUntilQuit(ctx context.Context) error {
	introMsg := "kernc interactive compiler\n"
	if sess.forceDirect {
		introMsg += "(direct input mode)\n"
	}
	introMsg += "==========================\n"
	introMsg += "Type kernel source, then :compile. Type :help for directives.\n"

	if err := sess.write(introMsg); err != nil {
		return err
	}

	sess.running = true
	defer func() {
		sess.running = false
	}()

	for sess.running {
		sess.updatePrompt()

		sess.in.AllowBlank(len(sess.lines) > 0)
		line, err := sess.in.ReadCommand()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("get user input: %w", err)
		}

		if !command.IsDirective(line) {
			sess.lines = append(sess.lines, line)
			continue
		}

		cmd, err := command.Parse(line)
		if err != nil {
			if err := sess.write(err.Error() + "\nTry :help for valid directives\n"); err != nil {
				return err
			}
			continue
		}
		if cmd.Verb == "" {
			continue
		}

		if cmd.Verb == "QUIT" {
			sess.running = false
			break
		}

		output, err := sess.Do(ctx, cmd)
		if err != nil {
			output = err.Error()
		}
		if output != "" {
			if err := sess.write(output + "\n"); err != nil {
				return err
			}
		}
	}

	return sess.write("Goodbye\n")
}

// Do applies one directive and returns the text to show for it. A returned
// error is a problem with the directive or the source, not with the session.
func (sess *Session) Do(ctx context.Context, cmd command.Command) (string, error) {
	switch cmd.Verb {
	case "COMPILE":
		return sess.compile(ctx)
	case "MODE":
		if err := sess.props.Set("mode", cmd.Args[0]); err != nil {
			return "", err
		}
		return "mode is now " + sess.props.Mode.String(), nil
	case "DEFINE":
		for _, def := range cmd.Args {
			if err := sess.props.SetDefine(def); err != nil {
				return "", err
			}
		}
		return "", nil
	case "UNDEF":
		for _, name := range cmd.Args {
			delete(sess.props.Defines, name)
		}
		return "", nil
	case "SET":
		return "", sess.props.Set(cmd.Args[0], cmd.Args[1])
	case "PROPS":
		return PropertiesTable(sess.props.FillDefaults(), consoleOutputWidth), nil
	case "SHOW":
		if len(sess.lines) == 0 {
			return "(no source)", nil
		}
		var sb strings.Builder
		for i, l := range sess.lines {
			if i > 0 {
				sb.WriteRune('\n')
			}
			fmt.Fprintf(&sb, "%4d | %s", i+1, l)
		}
		return sb.String(), nil
	case "CLEAR":
		sess.lines = nil
		return "", nil
	case "AST":
		root, _, err := ParseTree(sess.source(), sess.props)
		if err != nil {
			return "", diagnosticText(err)
		}
		return strings.TrimRight(DumpTree(root), "\n"), nil
	case "KERNELS":
		return KernelTable(sess.last.Kernels, consoleOutputWidth), nil
	case "LOAD":
		data, err := os.ReadFile(cmd.Args[0])
		if err != nil {
			return "", err
		}
		sess.lines = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
		sess.props.File = cmd.Args[0]
		return fmt.Sprintf("loaded %d lines from %s", len(sess.lines), cmd.Args[0]), nil
	case "HELP":
		return helpText(cmd.Args), nil
	default:
		return "", fmt.Errorf("%s%s is not available here", command.Prefix, strings.ToLower(cmd.Verb))
	}
}

func (sess *Session) compile(ctx context.Context) (string, error) {
	if len(sess.lines) == 0 {
		return "", fmt.Errorf("nothing to compile; type some source first")
	}

	var res Result
	var note string
	if sess.builder != nil {
		b, err := sess.builder.Build(ctx, sess.source(), sess.props)
		if err != nil {
			return "", diagnosticText(err)
		}
		res = b.Result
		if b.Cached {
			note = fmt.Sprintf("(cached build %s)\n", b.ID)
		}
	} else {
		var err error
		res, err = Compile(sess.source(), sess.props)
		if err != nil {
			return "", diagnosticText(err)
		}
	}
	sess.last = res

	var sb strings.Builder
	for _, w := range res.Warnings {
		sb.WriteString(w.Report(consoleOutputWidth))
		sb.WriteString("\n\n")
	}
	sb.WriteString(note)
	sb.WriteString(strings.TrimRight(res.Source, "\n"))
	return sb.String(), nil
}

func (sess *Session) source() string {
	return strings.Join(sess.lines, "\n")
}

func (sess *Session) updatePrompt() {
	if !sess.useReadline {
		return
	}
	ir := sess.in.(*input.InteractiveReader)
	if len(sess.lines) > 0 {
		ir.SetPrompt(continuePrompt)
	} else {
		ir.SetPrompt(sourcePrompt)
	}
}

func (sess *Session) write(s string) error {
	if _, err := sess.out.WriteString(s); err != nil {
		return fmt.Errorf("could not write output: %w", err)
	}
	if err := sess.out.Flush(); err != nil {
		return fmt.Errorf("could not flush output: %w", err)
	}
	return nil
}

// diagnosticText gives err as a formatted report if it is a Diagnostic.
func diagnosticText(err error) error {
	var d *Diagnostic
	if errors.As(err, &d) {
		return errors.New(d.Report(consoleOutputWidth))
	}
	return err
}

func helpText(args []string) string {
	if len(args) > 0 {
		usage, help := command.Usage(args[0])
		if usage == "" {
			return fmt.Sprintf("no directive named %q", args[0])
		}
		return usage + "\n  " + help
	}

	var sb strings.Builder
	sb.WriteString("Lines not starting with ':' are added to the current source.\n")
	sb.WriteString("Directives:")
	for _, v := range command.Verbs() {
		usage, help := command.Usage(v)
		fmt.Fprintf(&sb, "\n  %-26s %s", usage, help)
	}
	return sb.String()
}
