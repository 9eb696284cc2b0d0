package result

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dekarrin/kernc/internal/kcerrors"
	"github.com/dekarrin/kernc/internal/source"
	"github.com/stretchr/testify/assert"
)

func Test_Result_WriteResponse(t *testing.T) {
	testCases := []struct {
		name         string
		result       Result
		expectStatus int
		expectBody   string
		expectHeader map[string]string
	}{
		{
			name:         "ok json",
			result:       OK(map[string]int{"n": 1}),
			expectStatus: http.StatusOK,
			expectBody:   `{"n":1}`,
			expectHeader: map[string]string{"Content-Type": "application/json"},
		},
		{
			name:         "no content",
			result:       NoContent("deleted %d", 3),
			expectStatus: http.StatusNoContent,
			expectBody:   "",
		},
		{
			name:         "bad request",
			result:       BadRequest("mode: unknown", "bad mode"),
			expectStatus: http.StatusBadRequest,
			expectBody:   `{"error":"mode: unknown","status":400}`,
		},
		{
			name:         "too large",
			result:       TooLarge(10),
			expectStatus: http.StatusRequestEntityTooLarge,
			expectBody:   `{"error":"Request body must not be larger than 10 bytes","status":413}`,
		},
		{
			name:         "unauthorized",
			result:       Unauthorized(""),
			expectStatus: http.StatusUnauthorized,
			expectBody:   `{"error":"You are not authorized to do that","status":401}`,
			expectHeader: map[string]string{"WWW-Authenticate": `Bearer realm="kernc"`},
		},
		{
			name:         "text error",
			result:       Text(http.StatusInternalServerError, "oops", "panic"),
			expectStatus: http.StatusInternalServerError,
			expectBody:   "oops",
			expectHeader: map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		},
		{
			name:         "redirect",
			result:       Redirection("/api/v1/info"),
			expectStatus: http.StatusPermanentRedirect,
			expectHeader: map[string]string{"Location": "/api/v1/info"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			w := httptest.NewRecorder()
			tc.result.WriteResponse(w)

			assert.Equal(tc.expectStatus, w.Code)
			assert.Equal(tc.expectBody, w.Body.String())
			for k, v := range tc.expectHeader {
				assert.Equal(v, w.Header().Get(k), "header %s", k)
			}
		})
	}
}

func Test_Result_WithHeader(t *testing.T) {
	assert := assert.New(t)

	base := OK("x")
	first := base.WithHeader("A", "1")
	second := first.WithHeader("B", "2")

	assert.Len(base.hdrs, 0)
	assert.Len(first.hdrs, 1)
	assert.Len(second.hdrs, 2)
	assert.False(base.IsErr)
}

func Test_Result_LogMsg(t *testing.T) {
	testCases := []struct {
		name   string
		result Result
		expect string
	}{
		{name: "default", result: NotFound(), expect: "not found"},
		{name: "formatted", result: NotFound("build %s", "abc"), expect: "build abc"},
		{name: "single value is literal", result: InternalServerError("100%done"), expect: "100%done"},
		{name: "compile failure", result: CompileFailed(kcerrors.Errorf(kcerrors.ErrSyntax, "parse", source.Position{Line: 2, Column: 1}, "x")), expect: "compile failed: 2:1: parse: syntax error: x"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			assert.True(tc.result.IsErr)
			assert.Equal(tc.expect, tc.result.LogMsg)
		})
	}
}

func Test_CompileFailed(t *testing.T) {
	assert := assert.New(t)

	d := kcerrors.Errorf(kcerrors.ErrSyntax, "parse", source.Position{File: "a.okl", Line: 3, Column: 1}, "expected ';', found '}'")
	d.SourceLine = "}"

	w := httptest.NewRecorder()
	CompileFailed(d).WriteResponse(w)

	assert.Equal(http.StatusUnprocessableEntity, w.Code)

	var resp ErrorResponse
	if !assert.NoError(json.Unmarshal(w.Body.Bytes(), &resp)) {
		return
	}
	assert.Equal(http.StatusUnprocessableEntity, resp.Status)
	assert.Equal(d.Error(), resp.Error)
	if assert.NotNil(resp.Diagnostic) {
		assert.Equal(Diagnostic{
			File:       "a.okl",
			Line:       3,
			Column:     1,
			Severity:   "error",
			Stage:      "parse",
			Message:    "expected ';', found '}'",
			SourceLine: "}",
		}, *resp.Diagnostic)
	}
}

func Test_Result_Encode(t *testing.T) {
	testCases := []struct {
		name         string
		result       Result
		expectStatus int
		expectBody   string
	}{
		{
			name:         "unpopulated",
			result:       Result{},
			expectStatus: http.StatusInternalServerError,
			expectBody:   `{"error":"An internal server error occurred","status":500}`,
		},
		{
			name:         "unmarshalable body",
			result:       OK(func() {}),
			expectStatus: http.StatusInternalServerError,
			expectBody:   `{"error":"An internal server error occurred","status":500}`,
		},
		{
			name:         "no content",
			result:       NoContent(),
			expectStatus: http.StatusNoContent,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			r, body := tc.result.Encode()

			assert.Equal(tc.expectStatus, r.Status)
			assert.Equal(tc.expectBody, string(body))
		})
	}
}
