package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dekarrin/kernc"
	"github.com/dekarrin/kernc/internal/backend"
	"github.com/dekarrin/kernc/internal/cache/inmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addKernel = `@kernel void add(const int N, const float *a, float *b) {
  for (int i = 0; i < N; ++i; @outer) {
    for (int j = 0; j < 16; ++j; @inner) {
      b[j] = a[j];
    }
  }
}
`

func newTestCompiler(mode backend.Mode) (compiler, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return compiler{
		builder: kernc.NewBuilder(inmem.NewStore(), 2),
		props:   kernc.Properties{Mode: mode}.FillDefaults(),
		stdout:  stdout,
		stderr:  stderr,
	}, stdout, stderr
}

func writeInputs(t *testing.T, files map[string]string) (string, []string) {
	dir := t.TempDir()
	var paths []string
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
		paths = append(paths, p)
	}
	return dir, paths
}

func Test_outputName(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		mode   backend.Mode
		expect string
	}{
		{name: "serial", input: "src/add.okl", mode: backend.Serial, expect: "add.cpp"},
		{name: "cuda", input: "add.okl", mode: backend.CUDA, expect: "add.cu"},
		{name: "hip", input: "add.okl", mode: backend.HIP, expect: "add.hip.cpp"},
		{name: "opencl no ext", input: "add", mode: backend.OpenCL, expect: "add.cl"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			assert.Equal(tc.expect, outputName(tc.input, tc.mode))
		})
	}
}

func Test_compiler_runStdin(t *testing.T) {
	assert := assert.New(t)
	c, stdout, _ := newTestCompiler(backend.CUDA)

	code := c.runStdin(context.Background(), strings.NewReader(addKernel))

	assert.Equal(ExitSuccess, code)
	assert.Contains(stdout.String(), "__global__ void add(")
}

func Test_compiler_runStdin_error(t *testing.T) {
	assert := assert.New(t)
	c, stdout, stderr := newTestCompiler(backend.Serial)

	code := c.runStdin(context.Background(), strings.NewReader("void f(int x) {\n  x = 1\n}\n"))

	assert.Equal(ExitCompileError, code)
	assert.Empty(stdout.String())
	assert.Contains(stderr.String(), "<stdin>:3")
}

func Test_compiler_runFiles(t *testing.T) {
	assert := assert.New(t)
	_, files := writeInputs(t, map[string]string{"add.okl": addKernel})
	c, _, _ := newTestCompiler(backend.OpenCL)

	out := filepath.Join(t.TempDir(), "out.cl")
	c.output = out

	code := c.runFiles(context.Background(), files)
	if !assert.Equal(ExitSuccess, code) {
		return
	}

	data, err := os.ReadFile(out)
	assert.NoError(err)
	assert.Contains(string(data), "__kernel void add(")
}

func Test_compiler_runFiles_multi(t *testing.T) {
	assert := assert.New(t)
	_, files := writeInputs(t, map[string]string{
		"a.okl": addKernel,
		"b.okl": strings.ReplaceAll(addKernel, "add", "copy"),
		"c.okl": "void f(int x) {\n  x = 1\n}\n",
	})
	c, _, stderr := newTestCompiler(backend.CUDA)

	outDir := filepath.Join(t.TempDir(), "gen")
	c.output = outDir

	code := c.runFiles(context.Background(), files)
	assert.Equal(ExitCompileError, code)
	assert.Contains(stderr.String(), "c.okl:3")

	a, err := os.ReadFile(filepath.Join(outDir, "a.cu"))
	if assert.NoError(err) {
		assert.Contains(string(a), "void add(")
	}
	b, err := os.ReadFile(filepath.Join(outDir, "b.cu"))
	if assert.NoError(err) {
		assert.Contains(string(b), "void copy(")
	}
	_, err = os.Stat(filepath.Join(outDir, "c.cu"))
	assert.True(os.IsNotExist(err))
}

func Test_compiler_runFiles_kernels(t *testing.T) {
	assert := assert.New(t)
	_, files := writeInputs(t, map[string]string{"add.okl": addKernel})
	c, stdout, _ := newTestCompiler(backend.HIP)
	c.kernels = true

	code := c.runFiles(context.Background(), files)

	assert.Equal(ExitSuccess, code)
	assert.Contains(stdout.String(), "Kernel")
	assert.Contains(stdout.String(), "add")
	assert.NotContains(stdout.String(), "hip_runtime.h")
}

func Test_compiler_runFiles_ast(t *testing.T) {
	assert := assert.New(t)
	_, files := writeInputs(t, map[string]string{"add.okl": addKernel})
	c, stdout, _ := newTestCompiler(backend.Serial)
	c.ast = true

	code := c.runFiles(context.Background(), files)

	assert.Equal(ExitSuccess, code)
	assert.True(strings.HasPrefix(stdout.String(), "(TREE)"))
	assert.Contains(stdout.String(), "@outer")
}

func Test_compiler_runFiles_missing(t *testing.T) {
	assert := assert.New(t)
	c, _, stderr := newTestCompiler(backend.Serial)

	code := c.runFiles(context.Background(), []string{filepath.Join(t.TempDir(), "nope.okl")})

	assert.Equal(ExitCompileError, code)
	assert.Contains(stderr.String(), "ERROR:")
}

func Test_compiler_quiet(t *testing.T) {
	src := `@kernel void f(int n, float *a) {
  for (int i = 0; i < n; ++i; @outer) {
    @shared float tile[16];
    if (n > 4) {
      for (int j = 0; j < 16; ++j; @inner) {
        tile[j] = a[j];
      }
    }
    for (int j = 0; j < 16; ++j; @inner) {
      a[j] = tile[j];
    }
  }
}
`

	testCases := []struct {
		name        string
		quiet       bool
		expectWarns bool
	}{
		{name: "warnings shown", quiet: false, expectWarns: true},
		{name: "quiet", quiet: true, expectWarns: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			c, _, stderr := newTestCompiler(backend.CUDA)
			c.quiet = tc.quiet

			code := c.runStdin(context.Background(), strings.NewReader(src))
			assert.Equal(ExitSuccess, code)
			if tc.expectWarns {
				assert.Contains(stderr.String(), "warning")
			} else {
				assert.Empty(stderr.String())
			}
		})
	}
}
