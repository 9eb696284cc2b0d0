package api

import (
	"time"

	"github.com/dekarrin/kernc"
	"github.com/dekarrin/kernc/server/result"
)

// Request and response bodies. Error bodies are result.ErrorResponse.

type LoginRequest struct {
	ClientID string `json:"client_id"`
	Secret   string `json:"secret"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	ClientID string `json:"client_id"`
}

type CompileRequest struct {
	Source        string            `json:"source"`
	Mode          string            `json:"mode,omitempty"`
	Defines       map[string]string `json:"defines,omitempty"`
	ExclusiveSize int               `json:"exclusive_size,omitempty"`
	File          string            `json:"file,omitempty"`
}

type KernelModel struct {
	Name  string   `json:"name"`
	Args  []string `json:"args"`
	Outer []string `json:"outer"`
	Inner []string `json:"inner"`
}

type BuildModel struct {
	URI      string              `json:"uri"`
	ID       string              `json:"id"`
	Cached   bool                `json:"cached"`
	Version  string              `json:"version"`
	Created  string              `json:"created"`
	Mode     string              `json:"mode"`
	Source   string              `json:"source,omitempty"`
	Warnings []result.Diagnostic `json:"warnings"`
	Kernels  []KernelModel       `json:"kernels"`
}

type BackendModel struct {
	Mode        string `json:"mode"`
	Description string `json:"description"`
	GPU         bool   `json:"gpu"`
}

type InfoModel struct {
	Version struct {
		Server   string `json:"server"`
		Compiler string `json:"compiler"`
	} `json:"version"`
	Backends []BackendModel `json:"backends"`
}

// buildModel converts b to its API model. The emitted source is only included
// if withSource is set.
func buildModel(b kernc.Build, withSource bool) BuildModel {
	m := BuildModel{
		URI:      PathPrefix + "/kernels/" + b.ID.String(),
		ID:       b.ID.String(),
		Cached:   b.Cached,
		Version:  b.Version,
		Created:  b.Created.Format(time.RFC3339),
		Mode:     b.Result.Mode.String(),
		Warnings: make([]result.Diagnostic, len(b.Result.Warnings)),
		Kernels:  make([]KernelModel, len(b.Result.Kernels)),
	}
	if withSource {
		m.Source = b.Result.Source
	}

	for i := range b.Result.Warnings {
		m.Warnings[i] = result.NewDiagnostic(b.Result.Warnings[i])
	}
	for i, k := range b.Result.Kernels {
		m.Kernels[i] = KernelModel{Name: k.Name, Args: k.Args, Outer: k.Outer, Inner: k.Inner}
	}

	return m
}
