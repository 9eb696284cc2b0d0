// Package util has small helpers shared by the compiler and its front ends.
package util

import (
	"sort"
	"strings"
)

// MakeTextList joins items into an English list with an oxford comma, using
// conj ("and", "or") before the last item.
func MakeTextList(items []string, conj string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " " + conj + " " + items[1]
	}

	last := len(items) - 1
	return strings.Join(items[:last], ", ") + ", " + conj + " " + items[last]
}

// OrderedKeys returns the keys of m, ordered a particular way. The order is
// guaranteed to be the same on every run.
//
// As of this writing, the order is alphabetical, but this function does not
// guarantee this will always be the case.
func OrderedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
