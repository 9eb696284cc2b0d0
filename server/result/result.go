// Package result holds the outcome of a compile service endpoint and writes
// it out as an HTTP response.
//
// Every constructor takes an optional log message. It is formatted like
// fmt.Sprintf when more than one value is given, is recorded by the server
// and is never sent to the client.
package result

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dekarrin/kernc/internal/kcerrors"
)

// ErrorResponse is the body of every error result. Diagnostic is only set
// when the error is about submitted kernel source.
type ErrorResponse struct {
	Error      string      `json:"error"`
	Status     int         `json:"status"`
	Diagnostic *Diagnostic `json:"diagnostic,omitempty"`
}

// Diagnostic is a compiler diagnostic as sent to clients.
type Diagnostic struct {
	File       string `json:"file,omitempty"`
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	Severity   string `json:"severity"`
	Stage      string `json:"stage,omitempty"`
	Message    string `json:"message"`
	SourceLine string `json:"source_line,omitempty"`
}

// NewDiagnostic converts d for a response body.
func NewDiagnostic(d *kcerrors.Diagnostic) Diagnostic {
	return Diagnostic{
		File:       d.Pos.File,
		Line:       d.Pos.Line,
		Column:     d.Pos.Column,
		Severity:   d.Severity.String(),
		Stage:      d.Stage,
		Message:    d.Message,
		SourceLine: d.SourceLine,
	}
}

// Result is the outcome of an endpoint, ready to be written as an HTTP
// response.
type Result struct {
	Status int
	IsErr  bool

	// LogMsg is recorded by the server and is not part of the response.
	LogMsg string

	text  bool
	body  interface{}
	redir string
	hdrs  [][2]string
}

func logMsg(def string, msg []interface{}) string {
	switch len(msg) {
	case 0:
		return def
	case 1:
		return fmt.Sprint(msg[0])
	}
	if f, ok := msg[0].(string); ok {
		return fmt.Sprintf(f, msg[1:]...)
	}
	return fmt.Sprint(msg...)
}

// Response returns a successful JSON result. body is not read for an
// HTTP-204 and may be nil.
func Response(status int, body interface{}, msg string) Result {
	return Result{Status: status, LogMsg: msg, body: body}
}

// Err returns a JSON error result whose body is an ErrorResponse showing
// userMsg.
func Err(status int, userMsg, msg string) Result {
	return Result{
		Status: status,
		IsErr:  true,
		LogMsg: msg,
		body:   ErrorResponse{Error: userMsg, Status: status},
	}
}

// Text returns a plain text error result. It is meant for failures that
// happen before a JSON body can be trusted to marshal, such as a recovered
// panic.
func Text(status int, userMsg, msg string) Result {
	return Result{Status: status, IsErr: true, LogMsg: msg, text: true, body: userMsg}
}

// OK returns an HTTP-200 with body.
func OK(body interface{}, msg ...interface{}) Result {
	return Response(http.StatusOK, body, logMsg("OK", msg))
}

// Created returns an HTTP-201 with body.
func Created(body interface{}, msg ...interface{}) Result {
	return Response(http.StatusCreated, body, logMsg("created", msg))
}

// NoContent returns an HTTP-204.
func NoContent(msg ...interface{}) Result {
	return Response(http.StatusNoContent, nil, logMsg("no content", msg))
}

// BadRequest returns an HTTP-400 showing userMsg.
func BadRequest(userMsg string, msg ...interface{}) Result {
	return Err(http.StatusBadRequest, userMsg, logMsg("bad request", msg))
}

// Unauthorized returns an HTTP-401 that asks for a bearer token. A blank
// userMsg gets a generic one.
func Unauthorized(userMsg string, msg ...interface{}) Result {
	if userMsg == "" {
		userMsg = "You are not authorized to do that"
	}
	return Err(http.StatusUnauthorized, userMsg, logMsg("unauthorized", msg)).
		WithHeader("WWW-Authenticate", `Bearer realm="kernc"`)
}

// Forbidden returns an HTTP-403.
func Forbidden(msg ...interface{}) Result {
	return Err(http.StatusForbidden, "You don't have permission to do that", logMsg("forbidden", msg))
}

// NotFound returns an HTTP-404.
func NotFound(msg ...interface{}) Result {
	return Err(http.StatusNotFound, "The requested resource was not found", logMsg("not found", msg))
}

// MethodNotAllowed returns an HTTP-405 naming the method and path of req.
func MethodNotAllowed(req *http.Request, msg ...interface{}) Result {
	userMsg := fmt.Sprintf("Method %s is not allowed for %s", req.Method, req.URL.Path)
	return Err(http.StatusMethodNotAllowed, userMsg, logMsg("method not allowed", msg))
}

// TooLarge returns an HTTP-413 for a request body over limit bytes.
func TooLarge(limit int64, msg ...interface{}) Result {
	userMsg := fmt.Sprintf("Request body must not be larger than %d bytes", limit)
	return Err(http.StatusRequestEntityTooLarge, userMsg, logMsg("request too large", msg))
}

// CompileFailed returns an HTTP-422 for kernel source that did not compile.
// The body carries d so clients can point at the failing line.
func CompileFailed(d *kcerrors.Diagnostic, msg ...interface{}) Result {
	diag := NewDiagnostic(d)
	r := Err(http.StatusUnprocessableEntity, d.Error(), logMsg("compile failed: "+d.Error(), msg))
	r.body = ErrorResponse{Error: d.Error(), Status: http.StatusUnprocessableEntity, Diagnostic: &diag}
	return r
}

// InternalServerError returns an HTTP-500. Details only go to the log.
func InternalServerError(msg ...interface{}) Result {
	return Err(http.StatusInternalServerError, "An internal server error occurred", logMsg("internal server error", msg))
}

// Redirection returns an HTTP-308 to uri.
func Redirection(uri string) Result {
	return Result{Status: http.StatusPermanentRedirect, LogMsg: "redirect -> " + uri, redir: uri}
}

// WithHeader returns a copy of r that also sets the given header.
func (r Result) WithHeader(name, val string) Result {
	hdrs := make([][2]string, len(r.hdrs), len(r.hdrs)+1)
	copy(hdrs, r.hdrs)
	r.hdrs = append(hdrs, [2]string{name, val})
	return r
}

// Encode renders the body of r. If the body cannot be marshaled, an
// HTTP-500 is returned in place of r along with its own body.
func (r Result) Encode() (Result, []byte) {
	if r.Status == 0 {
		r = InternalServerError("result was never populated")
	}

	switch {
	case r.redir != "" || r.Status == http.StatusNoContent:
		return r, nil
	case r.text:
		return r, []byte(fmt.Sprint(r.body))
	}

	data, err := json.Marshal(r.body)
	if err != nil {
		r = InternalServerError("could not marshal response: %s", err.Error())
		data, _ = json.Marshal(r.body)
	}
	return r, data
}

// Write writes r with an already encoded body to w.
func (r Result) Write(w http.ResponseWriter, body []byte) {
	if r.text {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if r.redir != "" {
		w.Header().Set("Location", r.redir)
	}
	for _, h := range r.hdrs {
		w.Header().Set(h[0], h[1])
	}

	w.WriteHeader(r.Status)
	if body != nil {
		w.Write(body)
	}
}

// WriteResponse encodes r and writes it to w.
func (r Result) WriteResponse(w http.ResponseWriter) {
	enc, body := r.Encode()
	enc.Write(w, body)
}
