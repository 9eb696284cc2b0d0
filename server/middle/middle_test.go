package middle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dekarrin/kernc/server/kcs"
	"github.com/dekarrin/kernc/server/serr"
	"github.com/dekarrin/kernc/server/token"
	"github.com/stretchr/testify/assert"
)

type clientMap map[string]kcs.Client

func (m clientMap) GetClient(ctx context.Context, id string) (kcs.Client, error) {
	c, ok := m[id]
	if !ok {
		return kcs.Client{}, serr.ErrNotFound
	}
	return c, nil
}

func Test_AuthHandler(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	ci := kcs.Client{ID: "ci", SecretHash: "aGFzaA=="}
	clients := clientMap{"ci": ci}

	goodTok, err := token.Generate(secret, ci)
	if err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name           string
		mw             Middleware
		header         string
		expectStatus   int
		expectLoggedIn bool
	}{
		{name: "required, valid", mw: RequireAuth(clients, secret, 0), header: "Bearer " + goodTok, expectStatus: http.StatusOK, expectLoggedIn: true},
		{name: "required, missing", mw: RequireAuth(clients, secret, 0), expectStatus: http.StatusUnauthorized},
		{name: "required, invalid", mw: RequireAuth(clients, secret, 0), header: "Bearer nope", expectStatus: http.StatusUnauthorized},
		{name: "optional, valid", mw: OptionalAuth(clients, secret, 0), header: "Bearer " + goodTok, expectStatus: http.StatusOK, expectLoggedIn: true},
		{name: "optional, missing", mw: OptionalAuth(clients, secret, 0), expectStatus: http.StatusOK},
		{name: "optional, invalid", mw: OptionalAuth(clients, secret, 0), header: "Bearer nope", expectStatus: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			var gotLoggedIn bool
			var gotClient kcs.Client
			next := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				gotLoggedIn = req.Context().Value(AuthLoggedIn).(bool)
				gotClient = req.Context().Value(AuthClient).(kcs.Client)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()

			tc.mw(next).ServeHTTP(w, req)

			assert.Equal(tc.expectStatus, w.Code)
			assert.Equal(tc.expectLoggedIn, gotLoggedIn)
			if tc.expectLoggedIn {
				assert.Equal("ci", gotClient.ID)
			}
		})
	}
}
