package kernc

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dekarrin/kernc/internal/backend"
	"github.com/stretchr/testify/assert"
)

const addKernel = `@kernel void add(const int N, const float *a @restrict, float *b) {
  for (int i = 0; i < N; ++i; @outer) {
    for (int j = 0; j < block; ++j; @inner) {
      b[j] = a[j];
    }
  }
}`

func Test_Compile(t *testing.T) {
	assert := assert.New(t)

	props := Properties{
		Mode:    backend.CUDA,
		Defines: map[string]string{"block": "16"},
	}

	res, err := Compile(addKernel, props)
	if !assert.NoError(err) {
		return
	}

	expect := `extern "C" __global__ void add(const int N, const float * __restrict__ a, float *b) {
  {
    int i = blockIdx.x;
    {
      int j = threadIdx.x;
      b[j] = a[j];
    }
  }
}
`
	assert.Equal(expect, res.Source)
	assert.Equal(backend.CUDA, res.Mode)
	assert.Empty(res.Warnings)
	if assert.Len(res.Kernels, 1) {
		assert.Equal("add", res.Kernels[0].Name)
		assert.Equal([]string{"N"}, res.Kernels[0].Outer)
		assert.Equal([]string{"16"}, res.Kernels[0].Inner)
	}
}

func Test_Compile_everyMode(t *testing.T) {
	for _, m := range backend.Modes() {
		t.Run(m.String(), func(t *testing.T) {
			assert := assert.New(t)

			res, err := Compile(addKernel, Properties{Mode: m, Defines: map[string]string{"block": "16"}})
			if !assert.NoError(err) {
				return
			}
			assert.NotEmpty(res.Source)
			assert.NotContains(res.Source, "@")
			assert.Equal(m, res.Mode)
		})
	}
}

func Test_Compile_warnings(t *testing.T) {
	assert := assert.New(t)

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
}`

	res, err := Compile(src, Properties{Mode: backend.CUDA, File: "warn.okl"})
	if !assert.NoError(err) {
		return
	}
	if assert.Len(res.Warnings, 1) {
		w := res.Warnings[0]
		assert.Contains(w.Message, "no barrier inserted after @inner loop inside if")
		assert.Equal("warn.okl", w.Pos.File)
		assert.NotEmpty(w.SourceLine)
	}
}

func Test_Compile_errors(t *testing.T) {
	testCases := []struct {
		name        string
		src         string
		props       Properties
		expectClass error
		expectStage string
		expectLine  int
		expectMsg   string
	}{
		{
			name:        "lex error",
			src:         "void f() {\n  char *s = \"abc;\n}",
			expectClass: ErrSyntax,
			expectStage: "lex",
			expectLine:  2,
		},
		{
			name:        "parse error",
			src:         "void f(int x) {\n  x = 1\n}",
			expectClass: ErrSyntax,
			expectStage: "parse",
			expectLine:  3,
			expectMsg:   "expected ';', found '}'",
		},
		{
			name: "restrict on non-pointer",
			src: `@kernel void f(int n @restrict) {
  for (int i = 0; i < n; ++i; @outer) {
    for (int j = 0; j < 4; ++j; @inner) {
    }
  }
}`,
			expectClass: ErrAttributeMisuse,
			expectLine:  1,
			expectMsg:   "[@restrict] can only be applied to pointer function arguments",
		},
		{
			name: "barrier under divergent control flow",
			src: `@kernel void f(int n) {
  for (int i = 0; i < n; ++i; @outer) {
    if (n > 2) {
      @barrier;
    }
    for (int j = 0; j < 8; ++j; @inner) {
    }
  }
}`,
			props:       Properties{Mode: backend.HIP},
			expectClass: ErrAttributeMisuse,
			expectLine:  4,
			expectMsg:   "[@barrier] cannot be used inside divergent control flow (if)",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			res, err := Compile(tc.src, tc.props)
			if !assert.Error(err) {
				return
			}
			assert.Empty(res.Source)
			assert.True(errors.Is(err, tc.expectClass))

			var d *Diagnostic
			if !assert.True(errors.As(err, &d)) {
				return
			}
			assert.Equal(tc.expectLine, d.Pos.Line)
			assert.NotEmpty(d.SourceLine)
			if tc.expectStage != "" {
				assert.Equal(tc.expectStage, d.Stage)
			}
			if tc.expectMsg != "" {
				assert.Equal(tc.expectMsg, d.Message)
			}
		})
	}
}

func Test_Compile_badProperties(t *testing.T) {
	assert := assert.New(t)

	_, err := Compile(addKernel, Properties{ExclusiveSize: -3})
	if !assert.Error(err) {
		return
	}

	var d *Diagnostic
	if assert.True(errors.As(err, &d)) {
		assert.Equal("config", d.Stage)
		assert.Contains(d.Message, "exclusive_size")
	}
}

func Test_CompileFile(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "bad.okl")
	err := os.WriteFile(path, []byte("void f(int x) {\n  x = 1\n}"), 0644)
	if !assert.NoError(err) {
		return
	}

	_, err = CompileFile(path, Properties{})
	var d *Diagnostic
	if assert.True(errors.As(err, &d)) {
		assert.Equal(path, d.Pos.File)
	}

	_, err = CompileFile(filepath.Join(t.TempDir(), "missing.okl"), Properties{})
	assert.Error(err)
}

func Test_ParseTree(t *testing.T) {
	assert := assert.New(t)

	root, warnings, err := ParseTree(addKernel, Properties{})
	if !assert.NoError(err) {
		return
	}
	assert.Empty(warnings)

	dump := DumpTree(root)
	assert.Contains(dump, "add")
	assert.Contains(dump, "@outer")
}

const reproducibleKernels = `@kernel void reverse(const int N, const float *a @dim(N), float *out) {
  for (int g = 0; g < N; g += 16; @outer) {
    @shared float tile[16];
    @exclusive float r;
    for (int j = 0; j < 16; ++j; @inner) {
      r = a(g + j);
      tile[j] = r;
    }
    for (int j = 0; j < 16; ++j; @inner) {
      out[g + j] = tile[15 - j] + r;
    }
  }
}

@kernel void scale(const int N, float *x) {
  for (int i = 0; i < N; ++i; @tile(16, @outer, @inner)) {
    x[i] = 2 * x[i];
  }
}`

func Test_Compile_reproducible(t *testing.T) {
	for _, m := range backend.Modes() {
		t.Run(m.String(), func(t *testing.T) {
			assert := assert.New(t)

			first, err := Compile(reproducibleKernels, Properties{Mode: m})
			if !assert.NoError(err) {
				return
			}
			second, err := Compile(reproducibleKernels, Properties{Mode: m})
			if !assert.NoError(err) {
				return
			}

			assert.Equal(first.Source, second.Source)
			assert.Equal(first.Kernels, second.Kernels)
			assert.Len(first.Kernels, 2)
			assert.NotContains(first.Source, "@")
		})
	}
}

func Test_Compile_continueInMappedLoop(t *testing.T) {
	assert := assert.New(t)

	src := `@kernel void f(int n, float *a) {
  for (int i = 0; i < n; ++i; @outer) {
    for (int j = 0; j < 8; ++j; @inner) {
      if (j == 2) continue;
      a[j] = j;
    }
  }
}`

	res, err := Compile(src, Properties{Mode: backend.CUDA})
	if !assert.NoError(err) {
		return
	}
	assert.Contains(res.Source, "int j = threadIdx.x;\n      do {\n")
	assert.Contains(res.Source, "} while (0);")
}
