package kernc

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/dekarrin/kernc/internal/backend"
	"github.com/dekarrin/kernc/internal/cache"
	"github.com/dekarrin/kernc/internal/kcerrors"
	"github.com/dekarrin/kernc/internal/source"
	"github.com/dekarrin/kernc/internal/version"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Build is a compile result stored in a build cache.
type Build struct {
	ID uuid.UUID

	// Cached is whether the build was served from the cache rather than
	// compiled by the call that returned it.
	Cached bool

	// Version is the compiler version that produced the build.
	Version string

	Created time.Time
	Result  Result
}

// Unit is one source to compile with BuildAll.
type Unit struct {
	Source string
	Props  Properties
}

// Outcome is the result of compiling one Unit. Exactly one of Build and Err
// is set.
type Outcome struct {
	Build Build
	Err   error
}

// Builder compiles kernel source through a build cache.
type Builder struct {
	store   cache.Store
	workers int
	version string
}

// NewBuilder returns a Builder that caches in store and compiles up to
// workers units at once in BuildAll. A workers value less than 1 uses the
// number of CPUs.
func NewBuilder(store cache.Store, workers int) *Builder {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Builder{store: store, workers: workers, version: version.Current}
}

// Store returns the cache the Builder uses.
func (b *Builder) Store() cache.Store {
	return b.store
}

// Build compiles src with props, or returns the cached build if the same
// source was already compiled with equivalent properties by a compatible
// compiler version. Compile failures are returned as a *Diagnostic and are
// not cached.
func (b *Builder) Build(ctx context.Context, src string, props Properties) (Build, error) {
	props = props.FillDefaults()
	key := cache.Key(src, props.Canonical())

	existing, err := b.store.Get(ctx, key)
	if err == nil {
		ok, err := cache.Compatible(existing.Version, b.version)
		if err != nil {
			return Build{}, err
		}
		if ok {
			bl, err := buildFromEntry(existing)
			if err != nil {
				return Build{}, err
			}
			// the key ignores the file name, so a hit may come from a rename
			bl.Result.renameFile(existing.File, props.File)
			return bl, nil
		}
	} else if !errors.Is(err, cache.ErrNotFound) {
		return Build{}, fmt.Errorf("check cache: %w", err)
	}

	res, err := Compile(src, props)
	if err != nil {
		return Build{}, err
	}

	// Put replaces an incompatible entry with the same key
	stored, err := b.store.Put(ctx, entryFromResult(key, b.version, props.File, res))
	if err != nil {
		return Build{}, fmt.Errorf("store build: %w", err)
	}

	return Build{
		ID:      stored.ID,
		Version: stored.Version,
		Created: stored.Created,
		Result:  res,
	}, nil
}

// Get returns the cached build with the given ID.
func (b *Builder) Get(ctx context.Context, id uuid.UUID) (Build, error) {
	e, err := b.store.GetByID(ctx, id)
	if err != nil {
		return Build{}, err
	}
	return buildFromEntry(e)
}

// All returns every cached build, ordered by ID.
func (b *Builder) All(ctx context.Context) ([]Build, error) {
	entries, err := b.store.All(ctx)
	if err != nil {
		return nil, err
	}

	builds := make([]Build, 0, len(entries))
	for _, e := range entries {
		bl, err := buildFromEntry(e)
		if err != nil {
			return nil, err
		}
		builds = append(builds, bl)
	}
	return builds, nil
}

// Delete removes the cached build with the given ID and returns it.
func (b *Builder) Delete(ctx context.Context, id uuid.UUID) (Build, error) {
	e, err := b.store.Delete(ctx, id)
	if err != nil {
		return Build{}, err
	}
	return buildFromEntry(e)
}

// BuildAll compiles every unit, running up to the Builder's worker count at
// once. Outcomes are in the same order as units.
func (b *Builder) BuildAll(ctx context.Context, units []Unit) []Outcome {
	outcomes := make([]Outcome, len(units))

	var g errgroup.Group
	g.SetLimit(b.workers)

	for i := range units {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i].Err = err
				return nil
			}
			outcomes[i].Build, outcomes[i].Err = b.Build(ctx, units[i].Source, units[i].Props)
			return nil
		})
	}

	// every goroutine reports through outcomes
	_ = g.Wait()
	return outcomes
}

func entryFromResult(key, ver, file string, res Result) cache.Entry {
	e := cache.Entry{
		Key:     key,
		Version: ver,
		Mode:    res.Mode.String(),
		File:    file,
		Source:  res.Source,
	}

	for _, w := range res.Warnings {
		e.Warnings = append(e.Warnings, cache.Warning{
			File:       w.Pos.File,
			Line:       w.Pos.Line,
			Column:     w.Pos.Column,
			Stage:      w.Stage,
			Message:    w.Message,
			SourceLine: w.SourceLine,
		})
	}
	for _, k := range res.Kernels {
		e.Kernels = append(e.Kernels, cache.Kernel{
			Name:  k.Name,
			Args:  k.Args,
			Outer: k.Outer,
			Inner: k.Inner,
		})
	}

	return e
}

// renameFile points warnings located in from at to instead.
func (r *Result) renameFile(from, to string) {
	for _, w := range r.Warnings {
		if w.Pos.File == from {
			w.Pos.File = to
		}
	}
}

func buildFromEntry(e cache.Entry) (Build, error) {
	mode, err := backend.ParseMode(e.Mode)
	if err != nil {
		return Build{}, fmt.Errorf("cached build %s: %w", e.ID, err)
	}

	res := Result{Source: e.Source, Mode: mode}
	for _, w := range e.Warnings {
		res.Warnings = append(res.Warnings, &Diagnostic{
			Pos:        source.Position{File: w.File, Line: w.Line, Column: w.Column},
			Severity:   kcerrors.SeverityWarning,
			Stage:      w.Stage,
			Message:    w.Message,
			SourceLine: w.SourceLine,
		})
	}
	for _, k := range e.Kernels {
		res.Kernels = append(res.Kernels, KernelInfo{
			Name:  k.Name,
			Args:  k.Args,
			Outer: k.Outer,
			Inner: k.Inner,
		})
	}

	return Build{
		ID:      e.ID,
		Cached:  true,
		Version: e.Version,
		Created: e.Created,
		Result:  res,
	}, nil
}
