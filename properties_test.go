package kernc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dekarrin/kernc/internal/backend"
	"github.com/stretchr/testify/assert"
)

func Test_ParseProperties(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expect    Properties
		expectErr bool
	}{
		{
			name:   "empty",
			input:  "",
			expect: Properties{},
		},
		{
			name: "full",
			input: `mode = "cuda"
exclusive_size = 64

[defines]
block = 256
scale = 0.5
name = "x"
fast = true
`,
			expect: Properties{
				Mode:          backend.CUDA,
				ExclusiveSize: 64,
				Defines: map[string]string{
					"block": "256",
					"scale": "0.5",
					"name":  "x",
					"fast":  "true",
				},
			},
		},
		{
			name:      "unknown mode",
			input:     `mode = "metal"`,
			expectErr: true,
		},
		{
			name:      "bad define name",
			input:     "[defines]\n\"2x\" = 1\n",
			expectErr: true,
		},
		{
			name:      "bad toml",
			input:     "mode = ",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual, err := ParseProperties([]byte(tc.input))
			if tc.expectErr {
				assert.Error(err)
				return
			}
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_LoadProperties(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "props.toml")
	if !assert.NoError(os.WriteFile(path, []byte("mode = \"OpenCL\"\n"), 0644)) {
		return
	}

	props, err := LoadProperties(path)
	if !assert.NoError(err) {
		return
	}
	assert.Equal(backend.OpenCL, props.Mode)
}

func Test_Properties_Set(t *testing.T) {
	testCases := []struct {
		name      string
		key       string
		value     string
		expect    Properties
		expectErr bool
	}{
		{name: "mode", key: "mode", value: "OpenMP", expect: Properties{Mode: backend.OpenMP}},
		{name: "exclusive size", key: "exclusive_size", value: " 32 ", expect: Properties{ExclusiveSize: 32}},
		{name: "file", key: "file", value: "k.okl", expect: Properties{File: "k.okl"}},
		{name: "define", key: "defines/block", value: "8", expect: Properties{Defines: map[string]string{"block": "8"}}},
		{name: "bad exclusive size", key: "exclusive_size", value: "many", expectErr: true},
		{name: "bad define", key: "defines/", value: "8", expectErr: true},
		{name: "unknown key", key: "optimize", value: "yes", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			var p Properties
			err := p.Set(tc.key, tc.value)
			if tc.expectErr {
				assert.Error(err)
				return
			}
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.expect, p)
		})
	}
}

func Test_Properties_SetDefine(t *testing.T) {
	assert := assert.New(t)

	var p Properties
	assert.NoError(p.SetDefine("block=256"))
	assert.NoError(p.SetDefine("DEBUG"))
	assert.NoError(p.SetDefine("expr=a=b"))
	assert.Error(p.SetDefine("=3"))

	assert.Equal(map[string]string{"block": "256", "DEBUG": "1", "expr": "a=b"}, p.Defines)
}

func Test_Properties_FillDefaults(t *testing.T) {
	assert := assert.New(t)

	p := Properties{Mode: backend.HIP}
	filled := p.FillDefaults()

	assert.Nil(p.Defines)
	assert.Equal(backend.HIP, filled.Mode)
	assert.NotNil(filled.Defines)
	assert.Equal(256, filled.ExclusiveSize)
	assert.Equal("<input>", filled.File)
	assert.NoError(filled.Validate())
}

func Test_Properties_Validate(t *testing.T) {
	testCases := []struct {
		name  string
		props Properties
	}{
		{name: "unknown mode", props: Properties{Mode: backend.Mode(42), ExclusiveSize: 1}},
		{name: "zero exclusive size", props: Properties{}},
		{name: "bad define", props: Properties{ExclusiveSize: 1, Defines: map[string]string{"a-b": "1"}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			assert.Error(tc.props.Validate())
		})
	}
}

func Test_Properties_Canonical(t *testing.T) {
	assert := assert.New(t)

	a := Properties{Mode: backend.CUDA, ExclusiveSize: 256, File: "a.okl", Defines: map[string]string{"b": "2", "a": "1"}}
	b := Properties{Mode: backend.CUDA, ExclusiveSize: 256, File: "b.okl", Defines: map[string]string{"a": "1", "b": "2"}}
	c := Properties{Mode: backend.HIP, ExclusiveSize: 256, Defines: map[string]string{"a": "1", "b": "2"}}

	assert.Equal(a.Canonical(), b.Canonical())
	assert.NotEqual(a.Canonical(), c.Canonical())
	assert.Equal("mode=CUDA\nexclusive_size=256\ndefines/a=\"1\"\ndefines/b=\"2\"\n", a.Canonical())
}
