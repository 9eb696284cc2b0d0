package kcs

import (
	"context"
	"errors"
	"testing"

	"github.com/dekarrin/kernc"
	"github.com/dekarrin/kernc/internal/backend"
	"github.com/dekarrin/kernc/internal/cache/inmem"
	"github.com/dekarrin/kernc/server/serr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const addKernel = `@kernel void add(const int N, const float *a, float *b) {
  for (int i = 0; i < N; ++i; @outer) {
    for (int j = 0; j < 16; ++j; @inner) {
      b[j] = a[j];
    }
  }
}`

func newTestService(t *testing.T) Service {
	HashCost = bcrypt.MinCost

	hash, err := HashSecret("hunter2")
	require.NoError(t, err)

	return Service{
		Builder: kernc.NewBuilder(inmem.NewStore(), 1),
		Clients: map[string]Client{
			"ci": {ID: "ci", SecretHash: hash},
		},
	}
}

func Test_Service_Login(t *testing.T) {
	testCases := []struct {
		name      string
		id        string
		secret    string
		expectErr error
	}{
		{name: "valid", id: "ci", secret: "hunter2"},
		{name: "wrong secret", id: "ci", secret: "hunter3", expectErr: serr.ErrBadCredentials},
		{name: "unknown client", id: "nobody", secret: "hunter2", expectErr: serr.ErrBadCredentials},
	}

	svc := newTestService(t)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			client, err := svc.Login(context.Background(), tc.id, tc.secret)
			if tc.expectErr != nil {
				assert.True(errors.Is(err, tc.expectErr))
				return
			}
			if !assert.NoError(err) {
				return
			}
			assert.Equal("ci", client.ID)
		})
	}
}

func Test_Service_GetClient(t *testing.T) {
	assert := assert.New(t)
	svc := newTestService(t)

	c, err := svc.GetClient(context.Background(), "ci")
	assert.NoError(err)
	assert.Equal("ci", c.ID)

	_, err = svc.GetClient(context.Background(), "nope")
	assert.True(errors.Is(err, serr.ErrNotFound))
}

func Test_HashSecret(t *testing.T) {
	assert := assert.New(t)
	HashCost = bcrypt.MinCost

	_, err := HashSecret("")
	assert.True(errors.Is(err, serr.ErrBadArgument))

	a, err := HashSecret("s3cret")
	assert.NoError(err)
	b, err := HashSecret("s3cret")
	assert.NoError(err)
	assert.NotEqual(a, b)
}

func Test_Service_Compile(t *testing.T) {
	testCases := []struct {
		name      string
		source    string
		props     kernc.Properties
		expectErr error
	}{
		{name: "compiles", source: addKernel, props: kernc.Properties{Mode: backend.HIP}},
		{name: "blank source", source: "  \n", expectErr: serr.ErrBadArgument},
		{name: "bad properties", source: addKernel, props: kernc.Properties{ExclusiveSize: -1}, expectErr: serr.ErrBadArgument},
		{name: "syntax error", source: "void f(int x) {\n  x = 1\n}", expectErr: serr.ErrCompile},
	}

	svc := newTestService(t)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			build, err := svc.Compile(context.Background(), tc.source, tc.props)
			if tc.expectErr != nil {
				assert.True(errors.Is(err, tc.expectErr))
				return
			}
			if !assert.NoError(err) {
				return
			}
			assert.Contains(build.Result.Source, "hip_runtime.h")
		})
	}
}

func Test_Service_Compile_diagnostic(t *testing.T) {
	assert := assert.New(t)
	svc := newTestService(t)

	_, err := svc.Compile(context.Background(), "void f(int x) {\n  x = 1\n}", kernc.Properties{})

	var d *kernc.Diagnostic
	if assert.True(errors.As(err, &d)) {
		assert.Equal(3, d.Pos.Line)
		assert.True(errors.Is(err, kernc.ErrSyntax))
	}
}

func Test_Service_builds(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	svc := newTestService(t)

	build, err := svc.Compile(ctx, addKernel, kernc.Properties{})
	if !assert.NoError(err) {
		return
	}

	got, err := svc.GetBuild(ctx, build.ID.String())
	if assert.NoError(err) {
		assert.Equal(build.Result.Source, got.Result.Source)
	}

	all, err := svc.GetAllBuilds(ctx)
	if assert.NoError(err) {
		assert.Len(all, 1)
	}

	_, err = svc.GetBuild(ctx, "not-a-uuid")
	assert.True(errors.Is(err, serr.ErrBadArgument))

	deleted, err := svc.DeleteBuild(ctx, build.ID.String())
	if assert.NoError(err) {
		assert.Equal(build.ID, deleted.ID)
	}

	_, err = svc.GetBuild(ctx, build.ID.String())
	assert.True(errors.Is(err, serr.ErrNotFound))

	_, err = svc.DeleteBuild(ctx, uuid.New().String())
	assert.True(errors.Is(err, serr.ErrNotFound))

	_, err = svc.DeleteBuild(ctx, "xyz")
	assert.True(errors.Is(err, serr.ErrBadArgument))
}
