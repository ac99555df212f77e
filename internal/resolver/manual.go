package resolver

import (
	"fmt"
	"strconv"
	"strings"

	"mcspec/domain/variable"
)

// ParseManualSpec parses one manual variable declaration:
//
//	x=continuous
//	treated=binary        treated=binary:0.3
//	arm=factor:3          origin=factor:USA|Europe|Japan
func ParseManualSpec(decl string) (variable.Spec, error) {
	name, rest, ok := strings.Cut(decl, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return variable.Spec{}, fmt.Errorf("variable declaration %q must look like name=kind", decl)
	}
	kindText, arg, hasArg := strings.Cut(rest, ":")
	kind, err := variable.ParseKind(kindText)
	if err != nil {
		return variable.Spec{}, fmt.Errorf("variable %s: %w", name, err)
	}
	arg = strings.TrimSpace(arg)

	switch kind {
	case variable.KindContinuous:
		if hasArg && arg != "" {
			return variable.Spec{}, fmt.Errorf("variable %s: continuous takes no arguments", name)
		}
		return variable.Continuous(name), nil
	case variable.KindBinary:
		p := variable.DefaultBinaryProportion
		if hasArg && arg != "" {
			p, err = strconv.ParseFloat(arg, 64)
			if err != nil || p <= 0 || p >= 1 {
				return variable.Spec{}, fmt.Errorf("variable %s: binary proportion must be in (0, 1), got %q", name, arg)
			}
		}
		return variable.Binary(name, p), nil
	default:
		if !hasArg || arg == "" {
			return variable.Spec{}, fmt.Errorf("variable %s: factor needs a level count or labels, e.g. %s=factor:3", name, name)
		}
		if n, err := strconv.Atoi(arg); err == nil {
			return variable.NumberedFactor(name, n), nil
		}
		var labels []string
		for _, l := range strings.Split(arg, "|") {
			if l = strings.TrimSpace(l); l != "" {
				labels = append(labels, l)
			}
		}
		return variable.Factor(name, labels), nil
	}
}

// ParseManualSpecs parses a list of declarations into a config map. Later
// declarations of the same name replace earlier ones.
func ParseManualSpecs(decls []string) (map[string]variable.Spec, error) {
	out := make(map[string]variable.Spec, len(decls))
	for _, d := range decls {
		spec, err := ParseManualSpec(d)
		if err != nil {
			return nil, err
		}
		out[spec.Name] = spec
	}
	return out, nil
}

// ParseReferenceOverrides parses "name=level" pairs.
func ParseReferenceOverrides(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, level, ok := strings.Cut(p, "=")
		name, level = strings.TrimSpace(name), strings.TrimSpace(level)
		if !ok || name == "" || level == "" {
			return nil, fmt.Errorf("reference override %q must look like name=level", p)
		}
		out[name] = level
	}
	return out, nil
}
