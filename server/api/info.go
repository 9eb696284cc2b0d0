package api

import (
	"net/http"

	"github.com/dekarrin/kernc/internal/backend"
	"github.com/dekarrin/kernc/internal/version"
	"github.com/dekarrin/kernc/server/middle"
	"github.com/dekarrin/kernc/server/result"
)

// HTTPGetInfo returns a HandlerFunc that reports the server and compiler
// versions and the backends the server can compile for. Logging in is
// optional.
func (api API) HTTPGetInfo() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epGetInfo)
}

func (api API) epGetInfo(req *http.Request) result.Result {
	loggedIn := req.Context().Value(middle.AuthLoggedIn).(bool)

	var resp InfoModel
	resp.Version.Server = version.ServerCurrent
	resp.Version.Compiler = version.Current

	for _, m := range backend.Modes() {
		d, err := backend.For(m)
		if err != nil {
			return result.InternalServerError("backend %s: %s", m, err.Error())
		}
		resp.Backends = append(resp.Backends, BackendModel{
			Mode:        m.String(),
			Description: d.Description,
			GPU:         m.IsGPU(),
		})
	}

	clientStr := "unauthed client"
	if loggedIn {
		clientStr = "client '" + clientOf(req).ID + "'"
	}
	return result.OK(resp, "%s got API info", clientStr)
}
