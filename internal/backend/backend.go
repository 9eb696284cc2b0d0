// Package backend describes the output dialects kernel source can be compiled
// to.
package backend

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/dekarrin/kernc/internal/ast"
	"github.com/dekarrin/kernc/internal/util"
)

// Mode is a compilation target.
type Mode int

const (
	Serial Mode = iota
	OpenMP
	CUDA
	HIP
	OpenCL
)

var modeNames = []string{"Serial", "OpenMP", "CUDA", "HIP", "OpenCL"}

// Modes returns every Mode in declaration order.
func Modes() []Mode {
	return []Mode{Serial, OpenMP, CUDA, HIP, OpenCL}
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// IsGPU returns whether m runs kernels on a device with a block and thread
// hierarchy.
func (m Mode) IsGPU() bool {
	return m == CUDA || m == HIP || m == OpenCL
}

var folder = cases.Fold()

// ParseMode returns the Mode with the given name. Matching ignores case.
func ParseMode(s string) (Mode, error) {
	want := folder.String(strings.TrimSpace(s))
	for _, m := range Modes() {
		if folder.String(m.String()) == want {
			return m, nil
		}
	}
	return Serial, fmt.Errorf("unknown mode %q; must be one of %s", s, util.MakeTextList(modeNames, "or"))
}

// Dialect holds the spelling of backend-specific constructs for a Mode.
type Dialect struct {
	Mode Mode

	// Description is a one-line summary of the backend.
	Description string

	// Preamble is written before any other output.
	Preamble string

	Restrict string

	// KernelPrefix is written before the return type of a kernel function.
	KernelPrefix string

	// DevicePrefix is written before the return type of a function that is
	// not a kernel.
	DevicePrefix string

	// Shared is the spelling of the work-group shared memory qualifier.
	Shared string

	// Global is the spelling of the device global memory qualifier. It is
	// empty where global memory needs no qualifier.
	Global string

	// Barriers maps a barrier scope ("local" or "global") to the statement
	// that implements it.
	Barriers map[string]string

	// OuterIndex and InnerIndex are the work-group and work-item index
	// expressions for each loop dimension.
	OuterIndex [3]string
	InnerIndex [3]string

	// OuterCount and InnerCount are the number of work-groups and work-items
	// for each loop dimension.
	OuterCount [3]string
	InnerCount [3]string
}

var dialects = map[Mode]Dialect{
	Serial: {
		Mode:         Serial,
		Description:  "Sequential C++ on the host",
		Preamble:     "#include <cmath>\n",
		Restrict:     "__restrict__",
		KernelPrefix: `extern "C"`,
		Barriers:     map[string]string{"local": "", "global": ""},
	},
	OpenMP: {
		Mode:         OpenMP,
		Description:  "C++ with OpenMP parallel outer loops",
		Preamble:     "#include <cmath>\n#include <omp.h>\n",
		Restrict:     "__restrict__",
		KernelPrefix: `extern "C"`,
		Barriers:     map[string]string{"local": "", "global": ""},
	},
	CUDA: {
		Mode:         CUDA,
		Description:  "NVIDIA CUDA device code",
		Restrict:     "__restrict__",
		KernelPrefix: `extern "C" __global__`,
		DevicePrefix: "__device__",
		Shared:       "__shared__",
		Barriers:     map[string]string{"local": "__syncthreads();", "global": "__syncthreads();"},
		OuterIndex:   [3]string{"blockIdx.x", "blockIdx.y", "blockIdx.z"},
		InnerIndex:   [3]string{"threadIdx.x", "threadIdx.y", "threadIdx.z"},
		OuterCount:   [3]string{"gridDim.x", "gridDim.y", "gridDim.z"},
		InnerCount:   [3]string{"blockDim.x", "blockDim.y", "blockDim.z"},
	},
	HIP: {
		Mode:         HIP,
		Description:  "AMD HIP device code",
		Preamble:     "#include <hip/hip_runtime.h>\n",
		Restrict:     "__restrict__",
		KernelPrefix: `extern "C" __global__`,
		DevicePrefix: "__device__",
		Shared:       "__shared__",
		Barriers:     map[string]string{"local": "__syncthreads();", "global": "__syncthreads();"},
		OuterIndex:   [3]string{"blockIdx.x", "blockIdx.y", "blockIdx.z"},
		InnerIndex:   [3]string{"threadIdx.x", "threadIdx.y", "threadIdx.z"},
		OuterCount:   [3]string{"gridDim.x", "gridDim.y", "gridDim.z"},
		InnerCount:   [3]string{"blockDim.x", "blockDim.y", "blockDim.z"},
	},
	OpenCL: {
		Mode:         OpenCL,
		Description:  "OpenCL C device code",
		Preamble:     "#pragma OPENCL EXTENSION cl_khr_fp64 : enable\n",
		Restrict:     "restrict",
		KernelPrefix: "__kernel",
		Shared:       "__local",
		Global:       "__global",
		Barriers:     map[string]string{"local": "barrier(CLK_LOCAL_MEM_FENCE);", "global": "barrier(CLK_GLOBAL_MEM_FENCE);"},
		OuterIndex:   [3]string{"get_group_id(0)", "get_group_id(1)", "get_group_id(2)"},
		InnerIndex:   [3]string{"get_local_id(0)", "get_local_id(1)", "get_local_id(2)"},
		OuterCount:   [3]string{"get_num_groups(0)", "get_num_groups(1)", "get_num_groups(2)"},
		InnerCount:   [3]string{"get_local_size(0)", "get_local_size(1)", "get_local_size(2)"},
	},
}

// For returns the Dialect of m.
func For(m Mode) (Dialect, error) {
	d, ok := dialects[m]
	if !ok {
		return Dialect{}, fmt.Errorf("no dialect for %s", m)
	}
	return d, nil
}

// Qualifier returns the spelling of the single qualifier q in d. The second
// return value is false if d has no spelling for q.
func (d Dialect) Qualifier(q ast.Qualifier) (string, bool) {
	switch q {
	case ast.Const:
		return "const", true
	case ast.Volatile:
		return "volatile", true
	case ast.Static:
		return "static", true
	case ast.Extern:
		return "extern", true
	case ast.Inline:
		return "inline", true
	case ast.Restrict:
		return d.Restrict, d.Restrict != ""
	case ast.Shared:
		return d.Shared, d.Shared != ""
	case ast.Global:
		return d.Global, d.Global != ""
	case ast.Kernel:
		return d.KernelPrefix, d.KernelPrefix != ""
	}
	return "", false
}
