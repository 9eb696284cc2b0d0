// Package kernc compiles portable kernel source into source for a specific
// parallel backend.
//
// Kernel source is a C-like language annotated with attributes such as
// @kernel, @outer, @inner, @shared and @restrict. Compilation lexes and
// preprocesses the source, parses it into a statement tree, runs the built-in
// transform passes for the selected backend and emits the result:
//
//	res, err := kernc.Compile(src, kernc.Properties{Mode: backend.CUDA})
//	if err != nil {
//		var d *kernc.Diagnostic
//		if errors.As(err, &d) {
//			fmt.Println(d.FullMessage())
//		}
//		return
//	}
//	fmt.Print(res.Source)
//
// A failed compile returns exactly one *Diagnostic and no source.
package kernc

import (
	"os"

	"github.com/dekarrin/kernc/internal/ast"
	"github.com/dekarrin/kernc/internal/backend"
	"github.com/dekarrin/kernc/internal/emit"
	"github.com/dekarrin/kernc/internal/kcerrors"
	"github.com/dekarrin/kernc/internal/lex"
	"github.com/dekarrin/kernc/internal/parse"
	"github.com/dekarrin/kernc/internal/source"
	"github.com/dekarrin/kernc/internal/transform/builtins"
)

// Diagnostic is a positioned compiler error or warning.
type Diagnostic = kcerrors.Diagnostic

// KernelInfo is the launch metadata of one compiled kernel.
type KernelInfo = builtins.KernelInfo

// Error classes. A Diagnostic returned by Compile matches exactly one of
// these with errors.Is.
var (
	ErrSyntax            = kcerrors.ErrSyntax
	ErrAttributeMisuse   = kcerrors.ErrAttributeMisuse
	ErrQualifierConflict = kcerrors.ErrQualifierConflict
	ErrTypeMismatch      = kcerrors.ErrTypeMismatch
	ErrEmission          = kcerrors.ErrEmission
	ErrInternal          = kcerrors.ErrInternal
)

// Result is the output of a successful compile.
type Result struct {
	// Source is the emitted backend source.
	Source string

	Mode     backend.Mode
	Warnings []*Diagnostic

	// Kernels is the launch metadata of each kernel, sorted by name.
	Kernels []KernelInfo
}

// Compile compiles source with the given properties. Unset properties take
// their defaults.
func Compile(src string, props Properties) (Result, error) {
	props = props.FillDefaults()
	if err := props.Validate(); err != nil {
		return Result{}, kcerrors.Wrap(err, "config", source.Position{File: props.File})
	}

	root, f, warnings, err := parseTree(src, props)
	if err != nil {
		return Result{}, err
	}

	launches := builtins.NewLaunches()
	pl, err := builtins.ForBackend(props.Mode, builtins.Options{
		ExclusiveSize: props.ExclusiveSize,
		Launches:      launches,
		Warn: func(d *kcerrors.Diagnostic) {
			warnings = append(warnings, d.WithSourceLine(f))
		},
	})
	if err != nil {
		return Result{}, kcerrors.Wrap(err, "config", source.Position{File: props.File})
	}

	if err := pl.Run(root); err != nil {
		return Result{}, kcerrors.Wrap(err, "transform", root.Pos()).WithSourceLine(f)
	}

	out, err := emit.Emit(root, props.Mode)
	if err != nil {
		return Result{}, kcerrors.Wrap(err, "emit", root.Pos()).WithSourceLine(f)
	}

	return Result{
		Source:   out,
		Mode:     props.Mode,
		Warnings: warnings,
		Kernels:  launches.Kernels(),
	}, nil
}

// CompileFile compiles the file at path. If props does not name a file, the
// path is used in diagnostics.
func CompileFile(path string, props Properties) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, kcerrors.Wrap(err, "read", source.Position{File: path})
	}
	if props.File == "" {
		props.File = path
	}
	return Compile(string(data), props)
}

// ParseTree lexes, preprocesses and parses source without running any
// transforms. It is intended for inspecting the tree with ast.Dump.
func ParseTree(src string, props Properties) (*ast.BlockStatement, []*Diagnostic, error) {
	props = props.FillDefaults()
	if err := props.Validate(); err != nil {
		return nil, nil, kcerrors.Wrap(err, "config", source.Position{File: props.File})
	}
	root, _, warnings, err := parseTree(src, props)
	return root, warnings, err
}

// DumpTree returns the leveled text form of a tree from ParseTree.
func DumpTree(root *ast.BlockStatement) string {
	return ast.Dump(root)
}

func parseTree(src string, props Properties) (*ast.BlockStatement, *source.File, []*Diagnostic, error) {
	f, toks, err := lex.Tokenize(props.File, src, props.Defines)
	if err != nil {
		return nil, f, nil, kcerrors.Wrap(err, "lex", source.Position{File: props.File}).WithSourceLine(f)
	}

	root, warnings, err := parse.Parse(f, toks, nil)
	if err != nil {
		return nil, f, warnings, err
	}
	return root, f, warnings, nil
}
