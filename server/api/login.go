package api

import (
	"net/http"

	"github.com/dekarrin/kernc/server/result"
)

// HTTPCreateLogin returns a HandlerFunc that checks a client ID and secret
// and responds with a token for that client.
func (api API) HTTPCreateLogin() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epCreateLogin)
}

func (api API) epCreateLogin(req *http.Request) result.Result {
	var loginData LoginRequest
	if err := parseJSON(req, &loginData); err != nil {
		return badBody(err)
	}

	if loginData.ClientID == "" {
		return result.BadRequest("client_id: property is empty or missing from request", "empty client_id")
	}
	if loginData.Secret == "" {
		return result.BadRequest("secret: property is empty or missing from request", "empty secret")
	}

	client, err := api.Backend.Login(req.Context(), loginData.ClientID, loginData.Secret)
	if err != nil {
		return serviceErr(err, "login client '"+loginData.ClientID+"'")
	}

	return api.issueToken(client, "logged in")
}
