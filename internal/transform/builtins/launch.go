package builtins

import "sort"

// KernelInfo is the launch metadata of one kernel.
type KernelInfo struct {
	Name string

	// Args are the kernel arguments as declared in source.
	Args []string

	// Outer and Inner are the iteration extents of the @outer and @inner
	// loops, indexed by loop dimension. They are C expressions in terms of
	// the kernel arguments.
	Outer []string
	Inner []string
}

// Launches collects KernelInfo for each kernel seen by the passes.
type Launches struct {
	byName map[string]*KernelInfo
}

// NewLaunches returns an empty Launches.
func NewLaunches() *Launches {
	return &Launches{byName: make(map[string]*KernelInfo)}
}

func (l *Launches) kernel(name string) *KernelInfo {
	k, ok := l.byName[name]
	if !ok {
		k = &KernelInfo{Name: name}
		l.byName[name] = k
	}
	return k
}

// Kernels returns the collected metadata sorted by kernel name.
func (l *Launches) Kernels() []KernelInfo {
	names := make([]string, 0, len(l.byName))
	for n := range l.byName {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]KernelInfo, len(names))
	for i, n := range names {
		out[i] = *l.byName[n]
	}
	return out
}

func setExtent(extents []string, dim int, extent string) []string {
	for len(extents) <= dim {
		extents = append(extents, "")
	}
	if extents[dim] == "" {
		extents[dim] = extent
	}
	return extents
}

// fillExtents gives dimensions that no loop maps to an extent of 1.
func fillExtents(extents []string) []string {
	for i := range extents {
		if extents[i] == "" {
			extents[i] = "1"
		}
	}
	return extents
}
