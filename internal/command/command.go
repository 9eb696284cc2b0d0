// Package command defines the directives of the interactive compiler session
// and handles parsing them from input lines.
package command

// Prefix starts every directive line. Lines without it are kernel source.
const Prefix = ":"

// Command is a valid directive received from an interactive input source.
type Command struct {

	// Verb is the canonical name of the directive, such as "COMPILE", "MODE"
	// or "QUIT". Short forms are typed differently, for instance ":c" for
	// ":compile", and result in a Command with the canonical verb.
	Verb string

	// Args are the whitespace-separated arguments after the verb, with their
	// case preserved.
	Args []string
}

// Reader is a type that can be used for getting lines of input.
type Reader interface {
	// ReadCommand reads a single line of input. It will block until one is
	// ready. If there is an error or input is at end (EOF), the returned
	// string will be empty.
	ReadCommand() (string, error)

	// AllowBlank sets whether ReadCommand returns blank lines instead of
	// skipping them.
	AllowBlank(allow bool)

	// Close performs any operations required to clean the resources created by
	// the Reader. It should be called at least once when the Reader is no
	// longer needed.
	Close() error
}
