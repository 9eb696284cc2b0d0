// Package cache provides storage for compiled kernel builds so that the same
// source compiled with the same properties is only lowered once.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
)

var (
	ErrConstraintViolation = errors.New("a uniqueness constraint was violated")
	ErrNotFound            = errors.New("the requested build was not found")
)

// Store holds cached builds. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the entry with the given key.
	Get(ctx context.Context, key string) (Entry, error)

	// GetByID returns the entry with the given ID.
	GetByID(ctx context.Context, id uuid.UUID) (Entry, error)

	// Put stores e, replacing any entry that has the same key. The ID and
	// creation time are assigned by the store and the stored entry is
	// returned.
	Put(ctx context.Context, e Entry) (Entry, error)

	// Delete removes the entry with the given ID and returns it.
	Delete(ctx context.Context, id uuid.UUID) (Entry, error)

	// All returns every entry ordered by ID.
	All(ctx context.Context) ([]Entry, error)

	Close() error
}

// Entry is one cached build.
type Entry struct {
	ID  uuid.UUID
	Key string

	// Version is the version of the compiler that produced the entry.
	Version string

	Mode     string
	File     string
	Source   string
	Warnings []Warning
	Kernels  []Kernel
	Created  time.Time
}

// Warning is a stored non-fatal diagnostic.
type Warning struct {
	File       string
	Line       int
	Column     int
	Stage      string
	Message    string
	SourceLine string
}

// Kernel is stored launch metadata for one kernel.
type Kernel struct {
	Name  string
	Args  []string
	Outer []string
	Inner []string
}

// Key returns the cache key of a compile of source with the given canonical
// properties. The compiler version is not part of the key; a stored entry is
// checked with Compatible before reuse and replaced if it fails.
func Key(source, props string) string {
	h := sha256.New()
	for _, part := range []string{props, source} {
		// length-prefixed
		fmt.Fprintf(h, "%d:%s", len(part), part)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Compatible returns whether an entry produced by compiler version
// entryVersion may be used by the running compiler version: both must be in
// the same minor release line. An unparsable entry version is never
// compatible.
func Compatible(entryVersion, running string) (bool, error) {
	cur, err := semver.NewVersion(running)
	if err != nil {
		return false, fmt.Errorf("running version: %w", err)
	}
	stored, err := semver.NewVersion(entryVersion)
	if err != nil {
		return false, nil
	}

	c, err := semver.NewConstraint(fmt.Sprintf("~%d.%d", cur.Major(), cur.Minor()))
	if err != nil {
		return false, fmt.Errorf("version constraint: %w", err)
	}
	return c.Check(stored), nil
}

// NewID returns a random ID for a new entry.
func NewID() (uuid.UUID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil, fmt.Errorf("could not generate ID: %w", err)
	}
	return id, nil
}
