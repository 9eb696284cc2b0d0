package kcs

import (
	"context"
	"errors"
	"strings"

	"github.com/dekarrin/kernc"
	"github.com/dekarrin/kernc/internal/cache"
	"github.com/dekarrin/kernc/server/serr"
	"github.com/google/uuid"
)

// Compile compiles source with the given properties through the build cache
// and returns the build.
//
// The returned error, if non-nil, will return true for various calls to
// errors.Is depending on what caused the error. If the source does not
// compile, it will match serr.ErrCompile and errors.As will find the
// *kernc.Diagnostic. If the source is empty or the properties are invalid, it
// will match serr.ErrBadArgument. If the error occured due to an unexpected
// problem with the build cache, it will match serr.ErrDB.
func (svc Service) Compile(ctx context.Context, source string, props kernc.Properties) (kernc.Build, error) {
	if strings.TrimSpace(source) == "" {
		return kernc.Build{}, serr.New("source cannot be blank", serr.ErrBadArgument)
	}
	if err := props.FillDefaults().Validate(); err != nil {
		return kernc.Build{}, serr.New("properties are not valid", err, serr.ErrBadArgument)
	}

	build, err := svc.Builder.Build(ctx, source, props)
	if err != nil {
		var d *kernc.Diagnostic
		if errors.As(err, &d) {
			return kernc.Build{}, serr.New("", d, serr.ErrCompile)
		}
		return kernc.Build{}, serr.WrapDB("could not build kernel", err)
	}

	return build, nil
}

// GetBuild returns the cached build with the given ID.
//
// The returned error, if non-nil, will return true for various calls to
// errors.Is depending on what caused the error. If no build with that ID
// exists, it will match serr.ErrNotFound. If the error occured due to an
// unexpected problem with the build cache, it will match serr.ErrDB. Finally,
// if the ID is not valid, it will match serr.ErrBadArgument.
func (svc Service) GetBuild(ctx context.Context, id string) (kernc.Build, error) {
	uuidID, err := uuid.Parse(id)
	if err != nil {
		return kernc.Build{}, serr.New("ID is not valid", serr.ErrBadArgument)
	}

	build, err := svc.Builder.Get(ctx, uuidID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return kernc.Build{}, serr.ErrNotFound
		}
		return kernc.Build{}, serr.WrapDB("could not get build", err)
	}

	return build, nil
}

// GetAllBuilds returns every cached build.
func (svc Service) GetAllBuilds(ctx context.Context) ([]kernc.Build, error) {
	builds, err := svc.Builder.All(ctx)
	if err != nil {
		return nil, serr.WrapDB("", err)
	}

	return builds, nil
}

// DeleteBuild deletes the cached build with the given ID. It returns the
// deleted build just after it was deleted.
//
// The returned error, if non-nil, will return true for various calls to
// errors.Is depending on what caused the error. If no build with that ID
// exists, it will match serr.ErrNotFound. If the error occured due to an
// unexpected problem with the build cache, it will match serr.ErrDB. Finally,
// if the ID is not valid, it will match serr.ErrBadArgument.
func (svc Service) DeleteBuild(ctx context.Context, id string) (kernc.Build, error) {
	uuidID, err := uuid.Parse(id)
	if err != nil {
		return kernc.Build{}, serr.New("ID is not valid", serr.ErrBadArgument)
	}

	build, err := svc.Builder.Delete(ctx, uuidID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return kernc.Build{}, serr.ErrNotFound
		}
		return kernc.Build{}, serr.WrapDB("could not delete build", err)
	}

	return build, nil
}
