package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrBadCommand is the cause of every error returned by Parse.
var ErrBadCommand = errors.New("bad directive")

var (
	// VerbAliases maps shorthand verbs to their canonical forms. They are all
	// uppercase.
	VerbAliases = map[string]string{
		"C":     "COMPILE",
		"GO":    "COMPILE",
		"M":     "MODE",
		"D":     "DEFINE",
		"U":     "UNDEF",
		"P":     "PROPS",
		"S":     "SHOW",
		"LIST":  "SHOW",
		"RESET": "CLEAR",
		"K":     "KERNELS",
		"L":     "LOAD",
		"?":     "HELP",
		"H":     "HELP",
		"Q":     "QUIT",
		"EXIT":  "QUIT",
		"BYE":   "QUIT",
	}
)

type verbSpec struct {
	minArgs int
	maxArgs int
	usage   string
	help    string
}

// -1 maxArgs is unbounded
var verbs = map[string]verbSpec{
	"COMPILE": {0, 0, ":compile", "compile the current source and show the output"},
	"MODE":    {1, 1, ":mode NAME", "set the backend mode"},
	"DEFINE":  {1, -1, ":define NAME[=VALUE] ...", "set preprocessor defines"},
	"UNDEF":   {1, -1, ":undef NAME ...", "remove preprocessor defines"},
	"SET":     {2, 2, ":set KEY VALUE", "set any compile property"},
	"PROPS":   {0, 0, ":props", "show the compile properties"},
	"SHOW":    {0, 0, ":show", "show the current source with line numbers"},
	"CLEAR":   {0, 0, ":clear", "discard the current source"},
	"AST":     {0, 0, ":ast", "show the parsed tree of the current source"},
	"KERNELS": {0, 0, ":kernels", "show launch dimensions from the last compile"},
	"LOAD":    {1, 1, ":load FILE", "replace the current source with a file"},
	"HELP":    {0, 1, ":help [VERB]", "show help"},
	"QUIT":    {0, 0, ":quit", "leave the session"},
}

// IsDirective returns whether the line is a directive rather than source.
func IsDirective(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), Prefix)
}

// Verbs returns the canonical name of every directive, sorted.
func Verbs() []string {
	names := make([]string, 0, len(verbs))
	for v := range verbs {
		names = append(names, v)
	}
	sort.Strings(names)
	return names
}

// Usage returns the usage line and description of the given verb or alias. If
// it is not a known verb, both are empty.
func Usage(verb string) (usage, help string) {
	verb = canonical(verb)
	spec, ok := verbs[verb]
	if !ok {
		return "", ""
	}
	return spec.usage, spec.help
}

// Parse parses a directive from the given line. If it cannot, a non-nil error
// that matches ErrBadCommand is returned.
//
// If a string composed only of the prefix and whitespace is passed in, nil
// error is returned and a zero value for Command will be returned.
func Parse(line string) (Command, error) {
	var cmd Command

	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, Prefix) {
		return cmd, fmt.Errorf("%w: directives must start with %q", ErrBadCommand, Prefix)
	}

	tokens := strings.Fields(strings.TrimPrefix(line, Prefix))
	if len(tokens) < 1 {
		return cmd, nil
	}

	cmd.Verb = canonical(tokens[0])
	cmd.Args = tokens[1:]

	spec, ok := verbs[cmd.Verb]
	if !ok {
		return Command{}, fmt.Errorf("%w: unknown directive %s%s", ErrBadCommand, Prefix, tokens[0])
	}
	if len(cmd.Args) < spec.minArgs || (spec.maxArgs >= 0 && len(cmd.Args) > spec.maxArgs) {
		return Command{}, fmt.Errorf("%w: usage: %s", ErrBadCommand, spec.usage)
	}

	return cmd, nil
}

func canonical(verb string) string {
	verb = strings.ToUpper(strings.TrimPrefix(verb, Prefix))
	if full, ok := VerbAliases[verb]; ok {
		return full
	}
	return verb
}
