package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Parse(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expect    Command
		expectErr bool
	}{
		{name: "blank", input: ":", expect: Command{}},
		{name: "compile", input: ":compile", expect: Command{Verb: "COMPILE", Args: []string{}}},
		{name: "alias", input: "  :c  ", expect: Command{Verb: "COMPILE", Args: []string{}}},
		{name: "mixed case", input: ":Mode cuda", expect: Command{Verb: "MODE", Args: []string{"cuda"}}},
		{name: "define many", input: ":d N=4 DEBUG", expect: Command{Verb: "DEFINE", Args: []string{"N=4", "DEBUG"}}},
		{name: "set", input: ":set exclusive_size 64", expect: Command{Verb: "SET", Args: []string{"exclusive_size", "64"}}},
		{name: "help with verb", input: ":? mode", expect: Command{Verb: "HELP", Args: []string{"mode"}}},
		{name: "quit alias", input: ":exit", expect: Command{Verb: "QUIT", Args: []string{}}},
		{name: "not a directive", input: "int x;", expectErr: true},
		{name: "unknown verb", input: ":frobnicate", expectErr: true},
		{name: "too few args", input: ":mode", expectErr: true},
		{name: "too many args", input: ":compile now", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual, err := Parse(tc.input)
			if tc.expectErr {
				assert.True(errors.Is(err, ErrBadCommand))
				return
			}
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_IsDirective(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsDirective(":c"))
	assert.True(IsDirective("   :quit"))
	assert.False(IsDirective("x = a ? b : c;"))
	assert.False(IsDirective(""))
}

func Test_Usage(t *testing.T) {
	assert := assert.New(t)

	usage, help := Usage("d")
	assert.Equal(":define NAME[=VALUE] ...", usage)
	assert.NotEmpty(help)

	usage, help = Usage("nope")
	assert.Empty(usage)
	assert.Empty(help)

	assert.Len(Verbs(), 13)
	assert.Equal("AST", Verbs()[0])
}
