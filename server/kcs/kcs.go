// Package kcs has services for interacting with the kernel compile service
// backend decoupled from the API that accesses it.
package kcs

import (
	"github.com/dekarrin/kernc"
)

// Client is an API client allowed to log in to the service.
type Client struct {
	ID string

	// SecretHash is the base64 encoding of the bcrypt hash of the client's
	// secret.
	SecretHash string

	// Admin clients may delete cached builds.
	Admin bool
}

// Service is a service for compiling kernels and managing the build cache. It
// performs the actions requested and makes calls to the build cache to
// preserve the backend state.
//
// The zero-value of Service is not ready to be used; assign a Builder and
// the known Clients before attempting to use it.
type Service struct {

	// Builder compiles kernels through the build cache.
	Builder *kernc.Builder

	// Clients are the clients that may log in, keyed by ID.
	Clients map[string]Client
}
