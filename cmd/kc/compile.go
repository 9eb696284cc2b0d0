package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dekarrin/kernc"
	"github.com/dekarrin/kernc/internal/backend"
	"github.com/dekarrin/kernc/internal/watch"
)

// outputExt is the extension of files written for each backend.
var outputExt = map[backend.Mode]string{
	backend.Serial: ".cpp",
	backend.OpenMP: ".cpp",
	backend.CUDA:   ".cu",
	backend.HIP:    ".hip.cpp",
	backend.OpenCL: ".cl",
}

// compiler runs one kc invocation over its inputs.
type compiler struct {
	builder *kernc.Builder
	props   kernc.Properties

	// output is the file or directory to write to, or "" for stdout.
	output  string
	kernels bool
	ast     bool
	quiet   bool

	stdout io.Writer
	stderr io.Writer
}

func (c compiler) runStdin(ctx context.Context, r io.Reader) int {
	data, err := io.ReadAll(r)
	if err != nil {
		fmt.Fprintf(c.stderr, "ERROR: read stdin: %s\n", err.Error())
		return ExitInitError
	}

	props := c.props
	props.File = "<stdin>"

	if c.ast {
		return c.dumpTree(string(data), props)
	}

	build, err := c.builder.Build(ctx, string(data), props)
	if err != nil {
		c.printError(err)
		return ExitCompileError
	}
	c.printWarnings(build.Result.Warnings)

	if err := c.writeResult("<stdin>", build.Result, false); err != nil {
		fmt.Fprintf(c.stderr, "ERROR: %s\n", err.Error())
		return ExitInitError
	}
	return ExitSuccess
}

func (c compiler) runFiles(ctx context.Context, files []string) int {
	code := ExitSuccess

	units := make([]kernc.Unit, 0, len(files))
	names := make([]string, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			fmt.Fprintf(c.stderr, "ERROR: %s\n", err.Error())
			code = ExitCompileError
			continue
		}

		props := c.props
		props.File = f

		if c.ast {
			if c.dumpTree(string(data), props) != ExitSuccess {
				code = ExitCompileError
			}
			continue
		}

		units = append(units, kernc.Unit{Source: string(data), Props: props})
		names = append(names, f)
	}

	if len(units) == 0 {
		return code
	}

	multi := len(files) > 1
	if multi && c.output != "" {
		if err := os.MkdirAll(c.output, 0755); err != nil {
			fmt.Fprintf(c.stderr, "ERROR: create output directory: %s\n", err.Error())
			return ExitInitError
		}
	}

	for i, out := range c.builder.BuildAll(ctx, units) {
		if out.Err != nil {
			c.printError(out.Err)
			code = ExitCompileError
			continue
		}
		c.printWarnings(out.Build.Result.Warnings)

		if err := c.writeResult(names[i], out.Build.Result, multi); err != nil {
			fmt.Fprintf(c.stderr, "ERROR: %s\n", err.Error())
			code = ExitCompileError
		}
	}

	return code
}

func (c compiler) dumpTree(src string, props kernc.Properties) int {
	root, warnings, err := kernc.ParseTree(src, props)
	if err != nil {
		c.printError(err)
		return ExitCompileError
	}
	c.printWarnings(warnings)
	fmt.Fprint(c.stdout, kernc.DumpTree(root))
	return ExitSuccess
}

// writeResult writes the output for one input. multi is whether the output
// path is a directory holding the output of several inputs.
func (c compiler) writeResult(input string, res kernc.Result, multi bool) error {
	if c.kernels {
		if multi {
			fmt.Fprintf(c.stdout, "%s:\n", input)
		}
		fmt.Fprintln(c.stdout, kernc.KernelTable(res.Kernels, consoleWidth))
	}

	if c.output == "" {
		if c.kernels {
			return nil
		}
		if multi {
			fmt.Fprintf(c.stdout, "// %s\n", input)
		}
		_, err := io.WriteString(c.stdout, res.Source)
		return err
	}

	path := c.output
	if multi {
		path = filepath.Join(c.output, outputName(input, res.Mode))
	} else if info, err := os.Stat(c.output); err == nil && info.IsDir() {
		path = filepath.Join(c.output, outputName(input, res.Mode))
	}

	if err := os.WriteFile(path, []byte(res.Source), 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// watch recompiles each file when it changes until ctx is done.
func (c compiler) watch(ctx context.Context, files []string) error {
	w, err := watch.New(files, watch.DefaultDebounce)
	if err != nil {
		return err
	}
	defer w.Close()

	fmt.Fprintf(c.stderr, "watching %d file(s); interrupt to stop\n", len(files))

	byAbs := make(map[string]string, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		byAbs[abs] = f
	}

	single := c
	return w.Run(ctx, func(path string) {
		name, ok := byAbs[path]
		if !ok {
			name = path
		}
		fmt.Fprintf(c.stderr, "%s changed, recompiling\n", name)

		// a changed file is written to the same place it was the first time.
		if len(files) > 1 && c.output != "" {
			single.output = filepath.Join(c.output, outputName(name, c.props.Mode))
		}
		single.runFiles(ctx, []string{name})
	})
}

func (c compiler) printError(err error) {
	var d *kernc.Diagnostic
	if errors.As(err, &d) {
		fmt.Fprintln(c.stderr, d.Report(consoleWidth))
		return
	}
	fmt.Fprintf(c.stderr, "ERROR: %s\n", err.Error())
}

func (c compiler) printWarnings(warnings []*kernc.Diagnostic) {
	if c.quiet {
		return
	}
	for _, w := range warnings {
		fmt.Fprintln(c.stderr, w.Report(consoleWidth))
	}
}

// outputName is the name of the file written for input when compiled for m.
func outputName(input string, m backend.Mode) string {
	base := filepath.Base(input)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base + outputExt[m]
}
