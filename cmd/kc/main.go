/*
Kc compiles kernel source files to the source language of a backend.

It reads each input file, compiles it for the selected backend, and writes the
result to stdout or to the file given with -o. Warnings and errors are printed
to stderr with the offending source line.

Usage:

	kc [flags] FILE...
	kc [flags] -i
	kc --list-backends

If no files are given and -i is not set, source is read from stdin.

The flags are:

	-v, --version
		Give the current version of kc and then exit.

	-m, --mode MODE
		Compile for the given backend. MODE is one of Serial, OpenMP, CUDA,
		HIP or OpenCL and is matched without regard to case. If not given,
		will default to the value of environment variable KERNC_MODE, then to
		the mode in the properties file, then to Serial.

	-D, --define NAME[=VALUE]
		Substitute VALUE for NAME before parsing. VALUE defaults to 1. May be
		given more than once.

	-p, --props FILE
		Read compile properties from the given TOML file. Flags override the
		properties it sets.

	--exclusive-size N
		Give @exclusive variables storage for N inner iterations on host
		backends.

	-o, --output PATH
		Write output to PATH instead of stdout. When more than one file is
		given PATH must be a directory, and each output is named after its
		input with an extension for the backend.

	--ast
		Print the statement tree of each input instead of compiling it.

	-k, --kernels
		Print a table of the launch dimensions of each kernel. The compiled
		source is only written if -o is also given.

	--list-backends
		Print the available backends and then exit.

	-w, --watch
		After compiling, watch the input files and recompile each one when it
		changes. Runs until interrupted.

	-j, --jobs N
		Compile up to N files at once. Defaults to the number of CPUs.

	--cache DRIVER[:PARAMS]
		Keep compiled builds in the given cache so that unchanged inputs are
		not recompiled. DRIVER must be one of inmem or sqlite; sqlite needs the
		path to a data directory such as sqlite:path/to/dir. If not given,
		will default to the value of environment variable KERNC_CACHE, and if
		that is not given, nothing is kept between runs.

	-q, --quiet
		Do not print warnings.

	-i, --interactive
		Start an interactive session. Lines of source are entered at the
		prompt and directives starting with ':' compile and inspect them. Type
		":help" in a session for the list of directives.

	-d, --direct
		Force reading directly from the console as opposed to using GNU
		readline based routines in an interactive session, even if launched
		in a tty with stdin and stdout.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dekarrin/kernc"
	"github.com/dekarrin/kernc/internal/backend"
	"github.com/dekarrin/kernc/internal/version"
	"github.com/spf13/pflag"
	"github.com/xyproto/env/v2"
)

const (
	// ExitSuccess indicates a successful program execution.
	ExitSuccess = iota

	// ExitCompileError indicates that at least one input did not compile.
	ExitCompileError

	// ExitInitError indicates an unsuccessful program execution due to bad
	// flags, properties or an unusable build cache.
	ExitInitError
)

const (
	EnvMode  = "KERNC_MODE"
	EnvCache = "KERNC_CACHE"
)

const consoleWidth = 80

var (
	returnCode int = ExitSuccess

	flagVersion      = pflag.BoolP("version", "v", false, "Give the current version of kc and then exit.")
	flagMode         = pflag.StringP("mode", "m", "", "Compile for the given backend.")
	flagDefines      = pflag.StringArrayP("define", "D", nil, "Substitute VALUE for NAME before parsing (NAME[=VALUE]).")
	flagProps        = pflag.StringP("props", "p", "", "Read compile properties from the given TOML file.")
	flagExclusive    = pflag.Int("exclusive-size", 0, "Storage size of @exclusive variables on host backends.")
	flagOutput       = pflag.StringP("output", "o", "", "Write output to the given file or directory.")
	flagAST          = pflag.Bool("ast", false, "Print the statement tree instead of compiling.")
	flagKernels      = pflag.BoolP("kernels", "k", false, "Print the launch dimensions of each kernel.")
	flagListBackends = pflag.Bool("list-backends", false, "Print the available backends and then exit.")
	flagWatch        = pflag.BoolP("watch", "w", false, "Recompile inputs when they change.")
	flagJobs         = pflag.IntP("jobs", "j", 0, "Compile up to N files at once.")
	flagCache        = pflag.String("cache", "", "Keep builds in the given cache.")
	flagQuiet        = pflag.BoolP("quiet", "q", false, "Do not print warnings.")
	flagInteractive  = pflag.BoolP("interactive", "i", false, "Start an interactive session.")
	flagDirect       = pflag.BoolP("direct", "d", false, "Force reading directly from the console in an interactive session.")
)

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(panicErr)
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s\n", version.Current)
		return
	}

	if *flagListBackends {
		fmt.Println(kernc.BackendTable(consoleWidth))
		return
	}

	props, err := loadProperties()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\nDo -h for help.\n", err.Error())
		returnCode = ExitInitError
		return
	}

	builder, err := openBuilder()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitInitError
		return
	}
	defer builder.Store().Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *flagInteractive {
		returnCode = runInteractive(ctx, builder, props)
		return
	}

	files := pflag.Args()
	if *flagWatch && len(files) == 0 {
		fmt.Fprintf(os.Stderr, "ERROR: --watch needs at least one input file\nDo -h for help.\n")
		returnCode = ExitInitError
		return
	}

	c := compiler{
		builder: builder,
		props:   props,
		output:  *flagOutput,
		kernels: *flagKernels,
		ast:     *flagAST,
		quiet:   *flagQuiet,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}

	if len(files) == 0 {
		returnCode = c.runStdin(ctx, os.Stdin)
		return
	}

	returnCode = c.runFiles(ctx, files)

	if *flagWatch {
		if err := c.watch(ctx, files); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = ExitInitError
		}
	}
}

// loadProperties assembles compile properties from the properties file, the
// environment and flags, in increasing order of precedence.
func loadProperties() (kernc.Properties, error) {
	var props kernc.Properties

	if *flagProps != "" {
		var err error
		props, err = kernc.LoadProperties(*flagProps)
		if err != nil {
			return props, fmt.Errorf("properties file: %w", err)
		}
	}

	modeStr := env.Str(EnvMode)
	if pflag.Lookup("mode").Changed {
		modeStr = *flagMode
	}
	if modeStr != "" {
		m, err := backend.ParseMode(modeStr)
		if err != nil {
			return props, err
		}
		props.Mode = m
	}

	for _, def := range *flagDefines {
		if err := props.SetDefine(def); err != nil {
			return props, fmt.Errorf("define %q: %w", def, err)
		}
	}

	if pflag.Lookup("exclusive-size").Changed {
		props.ExclusiveSize = *flagExclusive
	}

	props = props.FillDefaults()
	if err := props.Validate(); err != nil {
		return props, err
	}
	return props, nil
}

// openBuilder connects to the cache named by --cache or KERNC_CACHE. With no
// cache configured, builds are only kept for the life of the process.
func openBuilder() (*kernc.Builder, error) {
	connStr := env.Str(EnvCache)
	if pflag.Lookup("cache").Changed {
		connStr = *flagCache
	}
	if connStr == "" {
		connStr = kernc.DatabaseInMemory.String()
	}

	db, err := kernc.ParseDBConnString(connStr)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	store, err := db.Connect()
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	return kernc.NewBuilder(store, *flagJobs), nil
}

func runInteractive(ctx context.Context, builder *kernc.Builder, props kernc.Properties) int {
	sess, err := kernc.NewSession(os.Stdin, os.Stdout, props, builder, *flagDirect)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		return ExitInitError
	}
	defer sess.Close()

	if err := sess.RunUntilQuit(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		return ExitCompileError
	}
	return ExitSuccess
}
