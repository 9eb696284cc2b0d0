package kernc

import (
	"fmt"
	"strings"

	"github.com/dekarrin/kernc/internal/backend"
	"github.com/dekarrin/kernc/internal/util"
	"github.com/dekarrin/rosed"
)

// KernelTable returns a text table of the launch dimensions of each kernel,
// fit to the given width.
func KernelTable(kernels []KernelInfo, width int) string {
	if len(kernels) == 0 {
		return "(no kernels)"
	}

	data := [][]string{{"Kernel", "Outer", "Inner", "Arguments"}}
	for _, k := range kernels {
		data = append(data, []string{
			k.Name,
			dims(k.Outer),
			dims(k.Inner),
			strings.Join(k.Args, ", "),
		})
	}

	tableOpts := rosed.Options{
		TableHeaders:             true,
		NoTrailingLineSeparators: true,
	}

	return rosed.Edit("").
		InsertTableOpts(0, data, width, tableOpts).
		String()
}

// BackendTable returns a text table of every backend mode.
func BackendTable(width int) string {
	data := [][]string{{"Mode", "GPU", "Description"}}
	for _, m := range backend.Modes() {
		d, err := backend.For(m)
		if err != nil {
			continue
		}
		gpu := "no"
		if m.IsGPU() {
			gpu = "yes"
		}
		data = append(data, []string{m.String(), gpu, d.Description})
	}

	tableOpts := rosed.Options{
		TableHeaders:             true,
		NoTrailingLineSeparators: true,
	}

	return rosed.Edit("").
		InsertTableOpts(0, data, width, tableOpts).
		String()
}

// PropertiesTable returns a text table of every property set in p, keyed the
// same way Set accepts them.
func PropertiesTable(p Properties, width int) string {
	data := [][]string{
		{"Property", "Value"},
		{"mode", p.Mode.String()},
		{"exclusive_size", fmt.Sprintf("%d", p.ExclusiveSize)},
		{"file", p.File},
	}
	for _, name := range util.OrderedKeys(p.Defines) {
		data = append(data, []string{DefinePrefix + name, p.Defines[name]})
	}

	tableOpts := rosed.Options{
		TableHeaders:             true,
		NoTrailingLineSeparators: true,
	}

	return rosed.Edit("").
		InsertTableOpts(0, data, width, tableOpts).
		String()
}

// dims gives launch extents in x, y, z order as "a x b".
func dims(ext []string) string {
	if len(ext) == 0 {
		return "-"
	}
	return strings.Join(ext, " x ")
}
