// Package token issues and validates the JWTs that clients of the compile
// service present as bearer tokens.
package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dekarrin/kernc/server/kcs"
	"github.com/dekarrin/kernc/server/serr"
	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the iss claim of every token.
const Issuer = "kcs"

// Lifetime is how long a token is valid for after it is generated.
const Lifetime = time.Hour

// ClientLookup finds the client that a token names as its subject.
type ClientLookup interface {
	GetClient(ctx context.Context, id string) (kcs.Client, error)
}

// Get extracts the bearer token from the Authorization header of req.
func Get(req *http.Request) (string, error) {
	authHeader := strings.TrimSpace(req.Header.Get("Authorization"))

	if authHeader == "" {
		return "", fmt.Errorf("no authorization header present")
	}

	authParts := strings.SplitN(authHeader, " ", 2)
	if len(authParts) != 2 {
		return "", fmt.Errorf("authorization header not in Bearer format")
	}

	scheme := strings.TrimSpace(strings.ToLower(authParts[0]))
	token := strings.TrimSpace(authParts[1])

	if scheme != "bearer" {
		return "", fmt.Errorf("authorization header not in Bearer format")
	}

	return token, nil
}

// Validate checks tok and returns the client it was issued to. The signing key
// includes the client's secret hash, so rotating a client's secret revokes
// every token issued to it.
func Validate(ctx context.Context, tok string, secret []byte, clients ClientLookup) (kcs.Client, error) {
	var client kcs.Client

	_, err := jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) {
		subj, err := t.Claims.GetSubject()
		if err != nil {
			return nil, fmt.Errorf("cannot get subject: %w", err)
		}

		client, err = clients.GetClient(ctx, subj)
		if err != nil {
			if errors.Is(err, serr.ErrNotFound) {
				return nil, fmt.Errorf("subject does not exist")
			}
			return nil, fmt.Errorf("subject could not be validated")
		}

		return signKey(secret, client), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}), jwt.WithIssuer(Issuer), jwt.WithLeeway(time.Minute))

	if err != nil {
		return kcs.Client{}, err
	}

	return client, nil
}

// Generate creates a signed token for client.
func Generate(secret []byte, client kcs.Client) (string, error) {
	claims := &jwt.MapClaims{
		"iss":        Issuer,
		"exp":        time.Now().Add(Lifetime).Unix(),
		"sub":        client.ID,
		"authorized": true,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)

	tokStr, err := tok.SignedString(signKey(secret, client))
	if err != nil {
		return "", err
	}
	return tokStr, nil
}

func signKey(secret []byte, client kcs.Client) []byte {
	var key []byte
	key = append(key, secret...)
	key = append(key, []byte(client.SecretHash)...)
	return key
}
