package api

import (
	"net/http"

	"github.com/dekarrin/kernc/server/kcs"
	"github.com/dekarrin/kernc/server/result"
	"github.com/dekarrin/kernc/server/token"
)

// HTTPCreateToken returns a HandlerFunc that issues a fresh token to the
// logged-in client, so long-running clients can renew before expiry.
func (api API) HTTPCreateToken() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epCreateToken)
}

func (api API) epCreateToken(req *http.Request) result.Result {
	client := clientOf(req)
	return api.issueToken(client, "renewed token")
}

func (api API) issueToken(client kcs.Client, action string) result.Result {
	tok, err := token.Generate(api.Secret, client)
	if err != nil {
		return result.InternalServerError("client '%s': could not generate JWT: %s", client.ID, err.Error())
	}

	resp := LoginResponse{Token: tok, ClientID: client.ID}
	return result.Created(resp, "client '%s' %s", client.ID, action)
}
