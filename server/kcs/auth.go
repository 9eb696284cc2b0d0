package kcs

import (
	"context"
	"encoding/base64"

	"github.com/dekarrin/kernc/server/serr"
	"golang.org/x/crypto/bcrypt"
)

// HashCost is the bcrypt cost used by HashSecret.
var HashCost = 14

// Login verifies the provided client ID and secret against the configured
// clients and returns the client if they match.
//
// The returned error, if non-nil, will return true for various calls to
// errors.Is depending on what caused the error. If the credentials do not match
// a client or if the secret is incorrect, it will match serr.ErrBadCredentials.
func (svc Service) Login(ctx context.Context, id string, secret string) (Client, error) {
	client, ok := svc.Clients[id]
	if !ok {
		return Client{}, serr.ErrBadCredentials
	}

	bcryptHash, err := base64.StdEncoding.DecodeString(client.SecretHash)
	if err != nil {
		return Client{}, serr.New("stored secret hash is not valid base64", err)
	}

	err = bcrypt.CompareHashAndPassword(bcryptHash, []byte(secret))
	if err != nil {
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return Client{}, serr.ErrBadCredentials
		}
		return Client{}, serr.New("could not check secret", err)
	}

	return client, nil
}

// GetClient returns the client with the given ID.
//
// The returned error, if non-nil, will match serr.ErrNotFound if no client
// with that ID exists.
func (svc Service) GetClient(ctx context.Context, id string) (Client, error) {
	client, ok := svc.Clients[id]
	if !ok {
		return Client{}, serr.ErrNotFound
	}
	return client, nil
}

// HashSecret returns the value to store as Client.SecretHash for the given
// secret.
//
// The returned error, if non-nil, will match serr.ErrBadArgument if the
// secret is empty or too long to hash.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", serr.New("secret cannot be blank", serr.ErrBadArgument)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), HashCost)
	if err != nil {
		if err == bcrypt.ErrPasswordTooLong {
			return "", serr.New("secret is too long", err, serr.ErrBadArgument)
		}
		return "", serr.New("secret could not be encrypted", err)
	}

	return base64.StdEncoding.EncodeToString(hash), nil
}
