// Package source holds kernel source text and positions within it.
package source

import (
	"fmt"
	"strings"
)

// Position is a location in a source file. Line and Column are 1-indexed; the
// zero Position refers to no location at all.
type Position struct {
	File   string
	Line   int
	Column int
}

// IsValid returns whether p refers to an actual location.
func (p Position) IsValid() bool {
	return p.Line > 0
}

func (p Position) String() string {
	if !p.IsValid() {
		if p.File != "" {
			return p.File
		}
		return "<unknown>"
	}

	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// File is a named unit of kernel source text.
type File struct {
	Name string
	Text string

	lines []string
}

// NewFile creates a File with the given name and contents.
func NewFile(name, text string) *File {
	return &File{
		Name:  name,
		Text:  text,
		lines: strings.Split(text, "\n"),
	}
}

// Line returns the text of the given 1-indexed line without its trailing
// newline. Out of range lines give the empty string.
func (f *File) Line(n int) string {
	if f == nil || n < 1 || n > len(f.lines) {
		return ""
	}
	return strings.TrimRight(f.lines[n-1], "\r")
}

// LineCount returns the number of lines in the file.
func (f *File) LineCount() int {
	return len(f.lines)
}

// At returns the Position of the given line and column within f.
func (f *File) At(line, col int) Position {
	return Position{File: f.Name, Line: line, Column: col}
}
