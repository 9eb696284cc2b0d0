package kcerrors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dekarrin/kernc/internal/source"
	"github.com/dekarrin/rosed"
)

// Severity is how serious a Diagnostic is.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Diagnostic is a positioned message about kernel source. Errors returned from
// compilation are always a *Diagnostic with SeverityError; warnings are
// collected separately and never stop compilation.
type Diagnostic struct {
	Pos      source.Position
	Severity Severity

	// Stage is the component that raised the diagnostic, such as "lex",
	// "parse", a transform pass name, or "emit".
	Stage   string
	Message string

	// SourceLine is the full text of the line at Pos, if known.
	SourceLine string

	cause []error
}

// Errorf creates an error Diagnostic of the given class.
func Errorf(class error, stage string, pos source.Position, format string, a ...interface{}) *Diagnostic {
	d := &Diagnostic{
		Pos:      pos,
		Severity: SeverityError,
		Stage:    stage,
		Message:  fmt.Sprintf(format, a...),
	}
	if class != nil {
		d.cause = []error{class}
	}
	return d
}

// Warningf creates a warning Diagnostic.
func Warningf(stage string, pos source.Position, format string, a ...interface{}) *Diagnostic {
	return &Diagnostic{
		Pos:      pos,
		Severity: SeverityWarning,
		Stage:    stage,
		Message:  fmt.Sprintf(format, a...),
	}
}

// Wrap converts err into a *Diagnostic. If err already is or wraps one, that
// Diagnostic is returned with its stage and position filled in from the given
// values when they are unset. Otherwise a new Diagnostic is created that has
// err as its cause.
func Wrap(err error, stage string, pos source.Position) *Diagnostic {
	if err == nil {
		return nil
	}

	var d *Diagnostic
	if errors.As(err, &d) {
		if d.Stage == "" {
			d.Stage = stage
		}
		if !d.Pos.IsValid() {
			d.Pos = pos
		}
		return d
	}

	return &Diagnostic{
		Pos:      pos,
		Severity: SeverityError,
		Stage:    stage,
		Message:  err.Error(),
		cause:    []error{err},
	}
}

// Error returns a single-line description of the Diagnostic in the form
// "file:line:col: stage: class: message".
func (d *Diagnostic) Error() string {
	var sb strings.Builder

	if d.Pos.IsValid() || d.Pos.File != "" {
		sb.WriteString(d.Pos.String())
		sb.WriteString(": ")
	}
	if d.Stage != "" {
		sb.WriteString(d.Stage)
		sb.WriteString(": ")
	}

	if d.Severity == SeverityWarning {
		sb.WriteString("warning: ")
	} else if class := Class(d); class != nil && !strings.HasPrefix(d.Message, class.Error()) {
		sb.WriteString(class.Error())
		sb.WriteString(": ")
	}

	sb.WriteString(d.Message)
	return sb.String()
}

// Unwrap returns the causes of the Diagnostic.
func (d *Diagnostic) Unwrap() []error {
	if len(d.cause) > 0 {
		return d.cause
	}
	return nil
}

// Is returns whether one of the causes of d is target.
func (d *Diagnostic) Is(target error) bool {
	for i := range d.cause {
		if d.cause[i] == target {
			return true
		}
	}
	return false
}

// WithSourceLine fills in SourceLine from f if it is not already set and
// returns d.
func (d *Diagnostic) WithSourceLine(f *source.File) *Diagnostic {
	if d.SourceLine == "" && f != nil && d.Pos.IsValid() {
		d.SourceLine = f.Line(d.Pos.Line)
	}
	return d
}

// FullMessage shows the complete message of the error string along with the
// offending line and a cursor to the problem position in a formatted way.
func (d *Diagnostic) FullMessage() string {
	errMsg := d.Error()

	if cursor := d.SourceLineWithCursor(); cursor != "" {
		errMsg = cursor + "\n" + errMsg
	}

	return errMsg
}

// SourceLineWithCursor returns the source offending code on one line and
// directly under it a cursor showing where the error occured.
//
// Returns a blank string if no source line is known.
func (d *Diagnostic) SourceLineWithCursor() string {
	if d.SourceLine == "" {
		return ""
	}

	cursorLine := ""
	for i := 0; i < d.Pos.Column-1 && i < len(d.SourceLine); i++ {
		// keep tabs so the cursor lines up under the same source column
		if d.SourceLine[i] == '\t' {
			cursorLine += "\t"
		} else {
			cursorLine += " "
		}
	}

	return d.SourceLine + "\n" + cursorLine + "^"
}

// Report formats the Diagnostic for a terminal of the given width: the header
// line, then the message wrapped to width, then the source line with cursor.
func (d *Diagnostic) Report(width int) string {
	if width < 20 {
		width = 80
	}

	header := d.Severity.String()
	if d.Pos.IsValid() || d.Pos.File != "" {
		header = d.Pos.String() + ": " + header
	}
	if d.Stage != "" {
		header += " [" + d.Stage + "]"
	}

	body := d.Message
	if class := Class(d); class != nil && d.Severity == SeverityError {
		body = class.Error() + ": " + body
	}
	body = rosed.Edit(body).WithOptions(rosed.Options{IndentStr: "  "}).Wrap(width - 2).Indent(1).String()

	out := header + "\n" + body
	if cursor := d.SourceLineWithCursor(); cursor != "" {
		out += "\n\n" + cursor
	}
	return out
}
