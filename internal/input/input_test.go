package input

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_DirectReader_ReadCommand(t *testing.T) {
	testCases := []struct {
		name        string
		input       string
		allowBlanks bool
		expect      []string
	}{
		{
			name:   "skips blanks",
			input:  "int x;\n\n   \n:c\n",
			expect: []string{"int x;", ":c"},
		},
		{
			name:        "keeps blanks",
			input:       "a\n\nb\n",
			allowBlanks: true,
			expect:      []string{"a", "", "b"},
		},
		{
			name:   "keeps indentation",
			input:  "void f() {\n  return;\r\n}",
			expect: []string{"void f() {", "  return;", "}"},
		},
		{
			name:   "empty",
			input:  "",
			expect: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			r := NewDirectReader(strings.NewReader(tc.input))
			r.AllowBlank(tc.allowBlanks)
			defer r.Close()

			var actual []string
			for {
				line, err := r.ReadCommand()
				if err == io.EOF {
					break
				}
				if !assert.NoError(err) {
					return
				}
				actual = append(actual, line)
			}

			assert.Equal(tc.expect, actual)
		})
	}
}
