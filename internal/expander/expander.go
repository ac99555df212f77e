// Package expander turns raw predictor terms into canonical expanded terms.
//
// Continuous and binary identifiers contribute a single atom. A factor
// contributes one dummy atom per non-reference level. An interaction is the
// full Cartesian product of its identifiers' atom sets, so a:b over factors
// with m and n non-reference levels always yields m*n terms.
package expander

import (
	"fmt"

	"mcspec/domain/core"
	"mcspec/domain/formula"
	"mcspec/domain/modelspec"
	"mcspec/domain/variable"
)

// Atoms returns the atom choices contributed by one resolved variable.
func Atoms(spec variable.Spec) []modelspec.Atom {
	switch spec.Kind {
	case variable.KindFactor:
		levels := spec.NonReferenceLevels()
		out := make([]modelspec.Atom, len(levels))
		for i, l := range levels {
			out[i] = modelspec.Atom{Variable: spec.Name, Level: l}
		}
		return out
	default:
		// binary variables are their own single dummy
		return []modelspec.Atom{{Variable: spec.Name}}
	}
}

// ExpandTerm expands one raw term. Tuples keep the identifiers' left-to-right
// order; the last identifier varies fastest.
func ExpandTerm(term formula.RawTerm, vars map[string]variable.Spec) ([]modelspec.ExpandedTerm, error) {
	choices := make([][]modelspec.Atom, len(term.Identifiers))
	seen := make(map[string]bool, len(term.Identifiers))
	for i, id := range term.Identifiers {
		if seen[id] {
			return nil, &core.ModelValidationError{Name: term.String(), Reason: fmt.Sprintf("variable %q appears twice in one interaction", id)}
		}
		seen[id] = true
		spec, ok := vars[id]
		if !ok {
			return nil, &core.UnresolvedVariableError{Name: id}
		}
		spec.Name = id
		choices[i] = Atoms(spec)
		if len(choices[i]) == 0 {
			return nil, &core.VariableConfigError{Name: id, Reason: "factor has no non-reference levels"}
		}
	}

	source := term.String()
	var out []modelspec.ExpandedTerm
	cartesian(choices, func(tuple []modelspec.Atom) {
		out = append(out, modelspec.ExpandedTerm{
			Atoms:  append([]modelspec.Atom(nil), tuple...),
			Source: source,
		})
	})
	return out, nil
}

// cartesian calls emit for every tuple picking one atom per position, in
// lexicographic order of choice indexes.
func cartesian(choices [][]modelspec.Atom, emit func([]modelspec.Atom)) {
	if len(choices) == 0 {
		return
	}
	idx := make([]int, len(choices))
	tuple := make([]modelspec.Atom, len(choices))
	for {
		for i, j := range idx {
			tuple[i] = choices[i][j]
		}
		emit(tuple)

		pos := len(idx) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < len(choices[pos]) {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			return
		}
	}
}

// Expand expands every raw term in order and drops terms whose unordered
// atom set was already produced by an earlier term.
func Expand(terms []formula.RawTerm, vars map[string]variable.Spec) ([]modelspec.ExpandedTerm, error) {
	var out []modelspec.ExpandedTerm
	seen := make(map[string]bool)
	for _, term := range terms {
		expanded, err := ExpandTerm(term, vars)
		if err != nil {
			return nil, err
		}
		for _, et := range expanded {
			key := et.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, et)
		}
	}
	return out, nil
}

// Count returns how many expanded terms one raw term produces.
func Count(term formula.RawTerm, vars map[string]variable.Spec) int {
	n := 1
	for _, id := range term.Identifiers {
		spec, ok := vars[id]
		if !ok {
			return 0
		}
		spec.Name = id
		n *= len(Atoms(spec))
	}
	return n
}
