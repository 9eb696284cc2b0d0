package kernc

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dekarrin/kernc/internal/backend"
	"github.com/dekarrin/kernc/internal/transform/builtins"
	"github.com/dekarrin/kernc/internal/util"
)

// DefinePrefix is the prefix of property keys that set preprocessor defines.
const DefinePrefix = "defines/"

// Properties configures one compilation.
type Properties struct {
	// Mode is the backend to compile for.
	Mode backend.Mode

	// Defines are substituted for identifiers of the same name before
	// parsing.
	Defines map[string]string

	// ExclusiveSize is the number of inner-loop iterations an @exclusive
	// variable has storage for on host backends.
	ExclusiveSize int

	// File is the name of the source used in diagnostics.
	File string
}

// propertiesFile is the TOML layout of a properties file.
type propertiesFile struct {
	Mode          string                 `toml:"mode"`
	ExclusiveSize int                    `toml:"exclusive_size"`
	Defines       map[string]interface{} `toml:"defines"`
}

// LoadProperties reads Properties from a TOML file. Define values may be
// strings, numbers or booleans.
func LoadProperties(path string) (Properties, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Properties{}, err
	}
	return ParseProperties(data)
}

// ParseProperties reads Properties from TOML text.
func ParseProperties(data []byte) (Properties, error) {
	var pf propertiesFile
	if err := toml.Unmarshal(data, &pf); err != nil {
		return Properties{}, fmt.Errorf("parse properties: %w", err)
	}

	var props Properties
	if pf.Mode != "" {
		if err := props.Set("mode", pf.Mode); err != nil {
			return Properties{}, err
		}
	}
	props.ExclusiveSize = pf.ExclusiveSize

	for name, val := range pf.Defines {
		var text string
		switch v := val.(type) {
		case string:
			text = v
		case int64:
			text = strconv.FormatInt(v, 10)
		case float64:
			text = strconv.FormatFloat(v, 'g', -1, 64)
		case bool:
			text = strconv.FormatBool(v)
		default:
			return Properties{}, fmt.Errorf("define %q: value must be a string, number, or boolean", name)
		}
		if err := props.Set(DefinePrefix+name, text); err != nil {
			return Properties{}, err
		}
	}

	return props, nil
}

// Set sets one property by key. Recognized keys are "mode",
// "exclusive_size", "file" and "defines/NAME".
func (p *Properties) Set(key, value string) error {
	switch {
	case key == "mode":
		m, err := backend.ParseMode(value)
		if err != nil {
			return fmt.Errorf("mode: %w", err)
		}
		p.Mode = m
	case key == "exclusive_size":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("exclusive_size: not an integer: %q", value)
		}
		p.ExclusiveSize = n
	case key == "file":
		p.File = value
	case strings.HasPrefix(key, DefinePrefix):
		name := strings.TrimPrefix(key, DefinePrefix)
		if !isIdentifier(name) {
			return fmt.Errorf("%s: %q is not a valid identifier", key, name)
		}
		if p.Defines == nil {
			p.Defines = make(map[string]string)
		}
		p.Defines[name] = value
	default:
		return fmt.Errorf("unknown property %q", key)
	}
	return nil
}

// SetDefine parses a NAME=VALUE define as given on the command line. A define
// with no '=' is set to 1.
func (p *Properties) SetDefine(def string) error {
	name, value, found := strings.Cut(def, "=")
	if !found {
		value = "1"
	}
	return p.Set(DefinePrefix+strings.TrimSpace(name), value)
}

// FillDefaults returns a copy of p with every unset field set to its default.
func (p Properties) FillDefaults() Properties {
	newP := p

	if newP.Defines == nil {
		newP.Defines = map[string]string{}
	}
	if newP.ExclusiveSize == 0 {
		newP.ExclusiveSize = builtins.DefaultExclusiveSize
	}
	if newP.File == "" {
		newP.File = "<input>"
	}

	return newP
}

// Validate returns an error if p cannot be used for a compilation.
func (p Properties) Validate() error {
	if _, err := backend.For(p.Mode); err != nil {
		return fmt.Errorf("mode: %w", err)
	}
	if p.ExclusiveSize < 1 {
		return fmt.Errorf("exclusive_size: must be at least 1 but is %d", p.ExclusiveSize)
	}
	for name := range p.Defines {
		if !isIdentifier(name) {
			return fmt.Errorf("defines: %q is not a valid identifier", name)
		}
	}
	return nil
}

// Canonical returns a text form of p that is the same for any two Properties
// that compile source identically. File is not included.
func (p Properties) Canonical() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "mode=%s\n", p.Mode)
	fmt.Fprintf(&sb, "exclusive_size=%d\n", p.ExclusiveSize)
	for _, name := range util.OrderedKeys(p.Defines) {
		fmt.Fprintf(&sb, "%s%s=%q\n", DefinePrefix, name, p.Defines[name])
	}

	return sb.String()
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, ch := range s {
		if ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') {
			continue
		}
		if i > 0 && ch >= '0' && ch <= '9' {
			continue
		}
		return false
	}
	return true
}
