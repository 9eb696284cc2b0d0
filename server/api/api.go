// Package api provides HTTP API endpoints for the kernel compile server.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dekarrin/kernc"
	"github.com/dekarrin/kernc/server/kcs"
	"github.com/dekarrin/kernc/server/middle"
	"github.com/dekarrin/kernc/server/result"
	"github.com/dekarrin/kernc/server/serr"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	// PathPrefix is the prefix of all paths in the API. Routers should mount
	// a sub-router that routes all requests to the API at this path.
	PathPrefix = "/api/v1"

	// MaxRequestSize is the largest request body, in bytes, that an endpoint
	// will read.
	MaxRequestSize = 1 << 20
)

// API serves the compile service over HTTP. Assign the result of its HTTP*
// methods as handlers to a router.
type API struct {
	// Backend does the work of each endpoint.
	Backend kcs.Service

	// UnauthDelay is how long an HTTP-401, HTTP-403 or HTTP-500 waits before
	// it is sent.
	UnauthDelay time.Duration

	// Secret signs issued tokens.
	Secret []byte
}

// buildID returns the build ID in the request path. Routes only match a
// valid UUID there, so a missing or bad one is a routing bug and panics.
func buildID(req *http.Request) uuid.UUID {
	id, err := uuid.Parse(chi.URLParam(req, "id"))
	if err != nil {
		panic(fmt.Sprintf("route gave bad build ID: %s", err.Error()))
	}
	return id
}

// clientOf returns the client that the auth middleware logged in.
func clientOf(req *http.Request) kcs.Client {
	return req.Context().Value(middle.AuthClient).(kcs.Client)
}

// parseJSON decodes the JSON request body into v. The returned error matches
// serr.ErrBodyUnmarshal for a body that is not JSON of the right shape and
// serr.ErrBodyTooLarge for one over MaxRequestSize.
func parseJSON(req *http.Request, v interface{}) error {
	mediaType, _, _ := strings.Cut(req.Header.Get("Content-Type"), ";")
	if !strings.EqualFold(strings.TrimSpace(mediaType), "application/json") {
		return serr.New("request content-type is not application/json", serr.ErrBodyUnmarshal)
	}

	body := http.MaxBytesReader(nil, req.Body, MaxRequestSize)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return serr.New("", serr.ErrBodyTooLarge)
		}
		return serr.New("malformed JSON in request", err, serr.ErrBodyUnmarshal)
	}
	return nil
}

// badBody is the result for a parseJSON error.
func badBody(err error) result.Result {
	if errors.Is(err, serr.ErrBodyTooLarge) {
		return result.TooLarge(MaxRequestSize)
	}
	return result.BadRequest(err.Error(), err.Error())
}

// serviceErr converts an error from the compile service into a result. A
// compile failure carries its diagnostic.
func serviceErr(err error, msg string) result.Result {
	var d *kernc.Diagnostic
	switch {
	case errors.Is(err, serr.ErrCompile) && errors.As(err, &d):
		return result.CompileFailed(d, "%s: %s", msg, d.Error())
	case errors.Is(err, serr.ErrBadArgument):
		return result.BadRequest(err.Error(), "%s: %s", msg, err.Error())
	case errors.Is(err, serr.ErrNotFound):
		return result.NotFound("%s: %s", msg, err.Error())
	case errors.Is(err, serr.ErrBadCredentials):
		return result.Unauthorized(serr.ErrBadCredentials.Error(), "%s: %s", msg, err.Error())
	}
	return result.InternalServerError("%s: %s", msg, err.Error())
}

// EndpointFunc produces the result of a single request. It is converted to a
// handler with httpEndpoint.
type EndpointFunc func(req *http.Request) result.Result

func httpEndpoint(unauthDelay time.Duration, ep EndpointFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		defer recoverTo500(w, req)

		r, body := ep(req).Encode()

		level := "INFO"
		if r.IsErr {
			level = "ERROR"
		}
		logResponse(level, req, r.Status, r.LogMsg)

		switch r.Status {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusInternalServerError:
			time.Sleep(unauthDelay)
		}

		r.Write(w, body)
	}
}

func recoverTo500(w http.ResponseWriter, req *http.Request) {
	if p := recover(); p != nil {
		r := result.Text(http.StatusInternalServerError, "An internal server error occurred", fmt.Sprintf("panic: %v\nSTACK TRACE: %s", p, debug.Stack()))
		logResponse("ERROR", req, r.Status, r.LogMsg)
		r.WriteResponse(w)
	}
}

// logResponse logs one line per response, with level padded to five
// characters.
func logResponse(level string, req *http.Request, status int, msg string) {
	remoteIP, _, _ := strings.Cut(req.RemoteAddr, ":")
	log.Printf("%-5.5s %s %s %s: HTTP-%d %s", level, remoteIP, req.Method, req.URL.Path, status, msg)
}
