// Package middle contains middleware for use with the kernel compile server.
package middle

import (
	"context"
	"net/http"
	"time"

	"github.com/dekarrin/kernc/server/kcs"
	"github.com/dekarrin/kernc/server/result"
	"github.com/dekarrin/kernc/server/token"
)

// Middleware is a function that takes a handler and returns a new handler which
// wraps the given one and provides some additional functionality.
type Middleware func(next http.Handler) http.Handler

// AuthKey is a key in the context of a request populated by an AuthHandler.
type AuthKey int64

const (
	AuthLoggedIn AuthKey = iota
	AuthClient
)

// AuthHandler is middleware that will accept a request, extract the token used
// for authentication, and look up the kcs.Client the token was issued to.
//
// Keys are added to the request context before the request is passed to the
// next step in the chain. AuthClient will contain the logged-in client, and
// AuthLoggedIn will return whether the client is logged in (only applies for
// optional logins; for non-optional, not being logged in will result in an
// HTTP error being returned before the request is passed to the next handler).
type AuthHandler struct {
	clients       token.ClientLookup
	secret        []byte
	required      bool
	unauthedDelay time.Duration
	next          http.Handler
}

func (ah *AuthHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var loggedIn bool
	var client kcs.Client

	tok, err := token.Get(req)
	if err != nil {
		if ah.required {
			// missing or malformed header counts as no token at all.
			r := result.Unauthorized("", err.Error())
			time.Sleep(ah.unauthedDelay)
			r.WriteResponse(w)
			return
		}
	} else {
		lookupClient, err := token.Validate(req.Context(), tok, ah.secret, ah.clients)
		if err != nil {
			if ah.required {
				r := result.Unauthorized("", err.Error())
				time.Sleep(ah.unauthedDelay)
				r.WriteResponse(w)
				return
			}
		} else {
			client = lookupClient
			loggedIn = true
		}
	}

	ctx := req.Context()
	ctx = context.WithValue(ctx, AuthLoggedIn, loggedIn)
	ctx = context.WithValue(ctx, AuthClient, client)
	req = req.WithContext(ctx)
	ah.next.ServeHTTP(w, req)
}

// RequireAuth returns middleware that rejects requests without a valid token
// with an HTTP-401.
func RequireAuth(clients token.ClientLookup, secret []byte, unauthDelay time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return &AuthHandler{
			clients:       clients,
			secret:        secret,
			unauthedDelay: unauthDelay,
			required:      true,
			next:          next,
		}
	}
}

// OptionalAuth returns middleware that records whether the request carries a
// valid token but passes it on either way.
func OptionalAuth(clients token.ClientLookup, secret []byte, unauthDelay time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return &AuthHandler{
			clients:       clients,
			secret:        secret,
			unauthedDelay: unauthDelay,
			required:      false,
			next:          next,
		}
	}
}
