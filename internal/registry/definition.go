package registry

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParamType is the semantic type of a tool parameter. Values supplied as
// strings are coerced on a best-effort basis before the handler runs.
type ParamType string

const (
	TypeString ParamType = "string"
	TypeInt    ParamType = "int"
	TypeFloat  ParamType = "float"
	TypeBool   ParamType = "bool"
)

// Parameter describes a single declared tool parameter.
type Parameter struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	Default     string
}

// coerce converts a raw string value to the parameter's declared type.
func (p Parameter) coerce(raw string) (any, error) {
	switch p.Type {
	case TypeString, "":
		return raw, nil
	case TypeInt:
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("parameter %q must be an integer", p.Name)
		}
		return v, nil
	case TypeFloat:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %q must be a number", p.Name)
		}
		return v, nil
	case TypeBool:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no", "":
			return false, nil
		default:
			return nil, fmt.Errorf("parameter %q must be a boolean", p.Name)
		}
	default:
		return nil, fmt.Errorf("parameter %q has unknown type %q", p.Name, p.Type)
	}
}

// Definition is the complete description of a registered tool.
type Definition struct {
	Name               string
	Description        string
	Parameters         []Parameter
	Category           string
	RequiresPermission bool
	Timeout            time.Duration
	Handler            Handler
}

// Signature returns a human-readable call signature for prompts and help.
func (d *Definition) Signature() string {
	parts := make([]string, 0, len(d.Parameters))
	for _, p := range d.Parameters {
		s := p.Name
		t := p.Type
		if t == "" {
			t = TypeString
		}
		s += ": " + string(t)
		if !p.Required {
			s += fmt.Sprintf(" = %q", p.Default)
		}
		parts = append(parts, s)
	}
	return fmt.Sprintf("%s(%s)", d.Name, strings.Join(parts, ", "))
}
