package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dekarrin/kernc/server/api"
	"github.com/dekarrin/kernc/server/kcs"
	"github.com/dekarrin/kernc/server/result"
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

type testServer struct {
	t   *testing.T
	srv *Server
}

func newTestServer(t *testing.T) testServer {
	kcs.HashCost = bcrypt.MinCost

	userHash, err := kcs.HashSecret("user-secret")
	require.NoError(t, err)
	adminHash, err := kcs.HashSecret("admin-secret")
	require.NoError(t, err)

	srv, err := New(Config{
		TokenSecret:       []byte("0123456789abcdef0123456789abcdef"),
		UnauthDelayMillis: -1,
		Workers:           2,
		Clients: []kcs.Client{
			{ID: "user", SecretHash: userHash},
			{ID: "admin", SecretHash: adminHash, Admin: true},
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	return testServer{t: t, srv: srv}
}

func (ts testServer) do(method, path, tok string, body interface{}) *httptest.ResponseRecorder {
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		require.NoError(ts.t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	w := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(w, req)
	return w
}

func (ts testServer) login(id, secret string) string {
	w := ts.do("POST", "/api/v1/login", "", api.LoginRequest{ClientID: id, Secret: secret})
	require.Equal(ts.t, http.StatusCreated, w.Code, w.Body.String())

	var resp api.LoginResponse
	require.NoError(ts.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func Test_Server_login(t *testing.T) {
	testCases := []struct {
		name         string
		body         interface{}
		expectStatus int
	}{
		{name: "valid", body: api.LoginRequest{ClientID: "user", Secret: "user-secret"}, expectStatus: http.StatusCreated},
		{name: "wrong secret", body: api.LoginRequest{ClientID: "user", Secret: "nope"}, expectStatus: http.StatusUnauthorized},
		{name: "unknown client", body: api.LoginRequest{ClientID: "ghost", Secret: "user-secret"}, expectStatus: http.StatusUnauthorized},
		{name: "missing secret", body: api.LoginRequest{ClientID: "user"}, expectStatus: http.StatusBadRequest},
		{name: "missing client", body: api.LoginRequest{Secret: "user-secret"}, expectStatus: http.StatusBadRequest},
	}

	ts := newTestServer(t)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			w := ts.do("POST", "/api/v1/login", "", tc.body)
			assert.Equal(tc.expectStatus, w.Code)
		})
	}
}

func Test_Server_tokens(t *testing.T) {
	assert := assert.New(t)
	ts := newTestServer(t)

	w := ts.do("POST", "/api/v1/tokens", "", nil)
	assert.Equal(http.StatusUnauthorized, w.Code)
	assert.Contains(w.Header().Get("WWW-Authenticate"), "Bearer")

	tok := ts.login("user", "user-secret")
	w = ts.do("POST", "/api/v1/tokens", tok, nil)
	if !assert.Equal(http.StatusCreated, w.Code) {
		return
	}

	var resp api.LoginResponse
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal("user", resp.ClientID)
	assert.NotEmpty(resp.Token)
}

func Test_Server_compile(t *testing.T) {
	assert := assert.New(t)
	ts := newTestServer(t)
	tok := ts.login("user", "user-secret")

	req := api.CompileRequest{Source: addKernel, Mode: "cuda"}

	w := ts.do("POST", "/api/v1/kernels", "", req)
	assert.Equal(http.StatusUnauthorized, w.Code)

	w = ts.do("POST", "/api/v1/kernels", tok, req)
	if !assert.Equal(http.StatusCreated, w.Code, w.Body.String()) {
		return
	}
	var first api.BuildModel
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &first))
	assert.False(first.Cached)
	assert.Equal("CUDA", first.Mode)
	assert.Contains(first.Source, "__global__")
	if assert.Len(first.Kernels, 1) {
		assert.Equal("add", first.Kernels[0].Name)
		assert.Equal([]string{"N"}, first.Kernels[0].Outer)
		assert.Equal([]string{"16"}, first.Kernels[0].Inner)
	}

	w = ts.do("POST", "/api/v1/kernels", tok, req)
	if !assert.Equal(http.StatusOK, w.Code) {
		return
	}
	var second api.BuildModel
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &second))
	assert.True(second.Cached)
	assert.Equal(first.ID, second.ID)

	w = ts.do("GET", "/api/v1/kernels/"+first.ID, tok, nil)
	if assert.Equal(http.StatusOK, w.Code) {
		var got api.BuildModel
		assert.NoError(json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(first.Source, got.Source)
		assert.Equal(first.URI, "/api/v1/kernels/"+first.ID)
	}

	w = ts.do("GET", "/api/v1/kernels", tok, nil)
	if assert.Equal(http.StatusOK, w.Code) {
		var all []api.BuildModel
		assert.NoError(json.Unmarshal(w.Body.Bytes(), &all))
		if assert.Len(all, 1) {
			assert.Empty(all[0].Source)
		}
	}
}

func Test_Server_compileErrors(t *testing.T) {
	testCases := []struct {
		name         string
		body         interface{}
		expectStatus int
		expectLine   int
	}{
		{name: "syntax error", body: api.CompileRequest{Source: "void f(int x) {\n  x = 1\n}"}, expectStatus: http.StatusUnprocessableEntity, expectLine: 3},
		{name: "bad mode", body: api.CompileRequest{Source: addKernel, Mode: "fortran"}, expectStatus: http.StatusBadRequest},
		{name: "empty source", body: api.CompileRequest{Source: " "}, expectStatus: http.StatusBadRequest},
		{name: "bad define", body: api.CompileRequest{Source: addKernel, Defines: map[string]string{"1x": "2"}}, expectStatus: http.StatusBadRequest},
	}

	ts := newTestServer(t)
	tok := ts.login("user", "user-secret")

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			w := ts.do("POST", "/api/v1/kernels", tok, tc.body)
			if !assert.Equal(tc.expectStatus, w.Code, w.Body.String()) {
				return
			}

			if tc.expectLine > 0 {
				var resp result.ErrorResponse
				assert.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(http.StatusUnprocessableEntity, resp.Status)
				if assert.NotNil(resp.Diagnostic) {
					assert.Equal(tc.expectLine, resp.Diagnostic.Line)
					assert.Equal("error", resp.Diagnostic.Severity)
					assert.Equal("parse", resp.Diagnostic.Stage)
				}
			}
		})
	}
}

func Test_Server_compile_notJSON(t *testing.T) {
	assert := assert.New(t)
	ts := newTestServer(t)
	tok := ts.login("user", "user-secret")

	req := httptest.NewRequest("POST", "/api/v1/kernels", bytes.NewReader([]byte(addKernel)))
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(w, req)

	assert.Equal(http.StatusBadRequest, w.Code)
}

func Test_Server_compile_tooLarge(t *testing.T) {
	assert := assert.New(t)
	ts := newTestServer(t)
	tok := ts.login("user", "user-secret")

	huge := api.CompileRequest{Source: string(bytes.Repeat([]byte("// padding\n"), api.MaxRequestSize/10))}
	w := ts.do("POST", "/api/v1/kernels", tok, huge)

	assert.Equal(http.StatusRequestEntityTooLarge, w.Code)
}

func Test_Server_delete(t *testing.T) {
	assert := assert.New(t)
	ts := newTestServer(t)
	userTok := ts.login("user", "user-secret")
	adminTok := ts.login("admin", "admin-secret")

	w := ts.do("POST", "/api/v1/kernels", userTok, api.CompileRequest{Source: addKernel})
	if !assert.Equal(http.StatusCreated, w.Code) {
		return
	}
	var build api.BuildModel
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &build))

	w = ts.do("DELETE", "/api/v1/kernels/"+build.ID, userTok, nil)
	assert.Equal(http.StatusForbidden, w.Code)

	w = ts.do("DELETE", "/api/v1/kernels/"+build.ID, adminTok, nil)
	assert.Equal(http.StatusNoContent, w.Code)

	w = ts.do("GET", "/api/v1/kernels/"+build.ID, userTok, nil)
	assert.Equal(http.StatusNotFound, w.Code)

	w = ts.do("DELETE", "/api/v1/kernels/"+build.ID, adminTok, nil)
	assert.Equal(http.StatusNotFound, w.Code)
}

func Test_Server_info(t *testing.T) {
	assert := assert.New(t)
	ts := newTestServer(t)

	w := ts.do("GET", "/api/v1/info", "", nil)
	if !assert.Equal(http.StatusOK, w.Code) {
		return
	}

	var info api.InfoModel
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &info))
	assert.NotEmpty(info.Version.Server)
	assert.NotEmpty(info.Version.Compiler)
	if assert.Len(info.Backends, 5) {
		assert.Equal("Serial", info.Backends[0].Mode)
		assert.False(info.Backends[0].GPU)
		assert.Equal("CUDA", info.Backends[2].Mode)
		assert.True(info.Backends[2].GPU)
	}

	w = ts.do("GET", "/api/v1/info", ts.login("user", "user-secret"), nil)
	assert.Equal(http.StatusOK, w.Code)
}

func Test_Server_routing(t *testing.T) {
	testCases := []struct {
		name         string
		method       string
		path         string
		expectStatus int
	}{
		{name: "unknown path", method: "GET", path: "/api/v1/nothing", expectStatus: http.StatusNotFound},
		{name: "wrong method", method: "PUT", path: "/api/v1/info", expectStatus: http.StatusMethodNotAllowed},
	}

	ts := newTestServer(t)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			w := ts.do(tc.method, tc.path, "", nil)
			assert.Equal(tc.expectStatus, w.Code)
		})
	}
}
