package api

import (
	"net/http"
	"strings"

	"github.com/dekarrin/kernc"
	"github.com/dekarrin/kernc/internal/backend"
	"github.com/dekarrin/kernc/server/result"
)

// HTTPCreateKernel returns a HandlerFunc that compiles the kernel source in
// the request. The response is an HTTP-201 for a new build, an HTTP-200 if
// the build was already cached, and an HTTP-422 carrying the diagnostic if the
// source does not compile. The request context must hold the logged-in
// client.
func (api API) HTTPCreateKernel() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epCreateKernel)
}

func (api API) epCreateKernel(req *http.Request) result.Result {
	client := clientOf(req)

	var compileReq CompileRequest
	if err := parseJSON(req, &compileReq); err != nil {
		return badBody(err)
	}
	if strings.TrimSpace(compileReq.Source) == "" {
		return result.BadRequest("source: property is empty or missing from request", "empty source")
	}

	props := kernc.Properties{
		Defines:       compileReq.Defines,
		ExclusiveSize: compileReq.ExclusiveSize,
		File:          compileReq.File,
	}
	if compileReq.Mode != "" {
		mode, err := backend.ParseMode(compileReq.Mode)
		if err != nil {
			return result.BadRequest("mode: "+err.Error(), "mode: %s", err.Error())
		}
		props.Mode = mode
	}

	build, err := api.Backend.Compile(req.Context(), compileReq.Source, props)
	if err != nil {
		return serviceErr(err, "client '"+client.ID+"' compile")
	}

	resp := buildModel(build, true)
	if build.Cached {
		return result.OK(resp, "client '%s' got cached build %s", client.ID, resp.ID)
	}
	return result.Created(resp, "client '%s' created build %s", client.ID, resp.ID)
}

// HTTPGetAllKernels returns a HandlerFunc that lists every cached build
// without its emitted source.
func (api API) HTTPGetAllKernels() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epGetAllKernels)
}

func (api API) epGetAllKernels(req *http.Request) result.Result {
	client := clientOf(req)

	builds, err := api.Backend.GetAllBuilds(req.Context())
	if err != nil {
		return serviceErr(err, "client '"+client.ID+"' list builds")
	}

	resp := make([]BuildModel, len(builds))
	for i := range builds {
		resp[i] = buildModel(builds[i], false)
	}
	return result.OK(resp, "client '%s' got all builds", client.ID)
}

// HTTPGetKernel returns a HandlerFunc that gets one cached build.
func (api API) HTTPGetKernel() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epGetKernel)
}

func (api API) epGetKernel(req *http.Request) result.Result {
	id := buildID(req)
	client := clientOf(req)

	build, err := api.Backend.GetBuild(req.Context(), id.String())
	if err != nil {
		return serviceErr(err, "client '"+client.ID+"' get build "+id.String())
	}
	return result.OK(buildModel(build, true), "client '%s' got build %s", client.ID, id)
}

// HTTPDeleteKernel returns a HandlerFunc that evicts a build from the cache.
// Only admin clients can delete builds.
func (api API) HTTPDeleteKernel() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epDeleteKernel)
}

func (api API) epDeleteKernel(req *http.Request) result.Result {
	id := buildID(req)
	client := clientOf(req)

	if !client.Admin {
		return result.Forbidden("client '%s' delete build %s: not an admin", client.ID, id)
	}

	if _, err := api.Backend.DeleteBuild(req.Context(), id.String()); err != nil {
		return serviceErr(err, "client '"+client.ID+"' delete build "+id.String())
	}
	return result.NoContent("client '%s' deleted build %s", client.ID, id)
}
