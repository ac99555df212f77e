package app

import (
	"context"
	"fmt"
	"strings"

	"mcspec/domain/core"
	"mcspec/domain/snapshot"
	"mcspec/domain/variable"
	"mcspec/internal/resolver"
)

// DefaultDependent names the outcome of a factor design when none is given.
const DefaultDependent = "y"

// FactorDef declares one factor of a factorial design.
type FactorDef struct {
	Name        string    `json:"name"`
	Levels      int       `json:"levels" validate:"omitempty,min=2,max=20"`
	LevelLabels []string  `json:"level_labels,omitempty"`
	Reference   string    `json:"reference,omitempty"`
	Proportions []float64 `json:"proportions,omitempty"`
}

// DesignRequest is a factor-based model description.
type DesignRequest struct {
	Dependent    string      `json:"dependent"`
	Factors      []FactorDef `json:"factors" validate:"required,min=1,dive"`
	Interactions []string    `json:"interactions,omitempty"`
}

// DesignService turns factor definitions into formula text plus manual
// configuration and runs it through the assembler.
type DesignService struct {
	assembler *Assembler
}

// NewDesignService creates a design service
func NewDesignService(assembler *Assembler) *DesignService {
	return &DesignService{assembler: assembler}
}

// Build converts req into assembler input. Unnamed factors are named
// factor1, factor2, ... skipping names already taken.
func (s *DesignService) Build(req DesignRequest) (Input, error) {
	dep := strings.TrimSpace(req.Dependent)
	if dep == "" {
		dep = DefaultDependent
	}
	if len(req.Factors) == 0 {
		return Input{}, &core.ModelValidationError{Reason: "design needs at least one factor"}
	}

	taken := map[string]bool{dep: true}
	for _, f := range req.Factors {
		if name := strings.TrimSpace(f.Name); name != "" {
			if taken[name] {
				return Input{}, &core.VariableConfigError{Name: name, Reason: "declared twice"}
			}
			taken[name] = true
		}
	}

	manual := map[string]variable.Spec{dep: variable.Continuous(dep)}
	refs := make(map[string]string)
	names := make([]string, 0, len(req.Factors))
	next := 1
	for _, f := range req.Factors {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			for taken[fmt.Sprintf("factor%d", next)] {
				next++
			}
			name = fmt.Sprintf("factor%d", next)
			taken[name] = true
		}
		spec, err := factorSpec(name, f)
		if err != nil {
			return Input{}, err
		}
		manual[name] = spec
		if f.Reference != "" {
			refs[name] = f.Reference
		}
		names = append(names, name)
	}

	terms := append([]string(nil), names...)
	declared := make(map[string]bool, len(names))
	for _, n := range names {
		declared[n] = true
	}
	for _, inter := range req.Interactions {
		parts := strings.Split(inter, ":")
		if len(parts) < 2 {
			return Input{}, &core.ModelValidationError{Name: inter, Reason: "interaction needs at least two factors joined by ':'"}
		}
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
			if !declared[parts[i]] {
				return Input{}, &core.ModelValidationError{Name: inter, Reason: fmt.Sprintf("%q is not a declared factor", parts[i])}
			}
		}
		terms = append(terms, strings.Join(parts, ":"))
	}

	return Input{
		Formula: dep + " = " + strings.Join(terms, " + "),
		Manual:  manual,
		Options: resolver.Options{ReferenceOverrides: refs},
	}, nil
}

func factorSpec(name string, f FactorDef) (variable.Spec, error) {
	var spec variable.Spec
	switch {
	case len(f.LevelLabels) > 0:
		if f.Levels != 0 && f.Levels != len(f.LevelLabels) {
			return spec, &core.VariableConfigError{Name: name, Reason: fmt.Sprintf("%d labels for %d levels", len(f.LevelLabels), f.Levels)}
		}
		spec = variable.Factor(name, f.LevelLabels)
		if len(f.Proportions) > 0 {
			var err error
			if spec, err = spec.WithLabelProportions(f.LevelLabels, f.Proportions); err != nil {
				return spec, err
			}
		}
	case f.Levels > 0:
		spec = variable.NumberedFactor(name, f.Levels)
		if len(f.Proportions) > 0 {
			spec = spec.WithProportions(f.Proportions)
		}
	default:
		return spec, &core.VariableConfigError{Name: name, Reason: "factor needs a level count or level labels"}
	}
	return spec, spec.Validate()
}

// Resolve builds and resolves req.
func (s *DesignService) Resolve(ctx context.Context, req DesignRequest) (Resolution, error) {
	in, err := s.Build(req)
	if err != nil {
		return Resolution{}, err
	}
	return s.assembler.Resolve(ctx, in), nil
}

// SnapshotOf wraps a successful design resolution for history.
func (s *DesignService) SnapshotOf(res Resolution) *snapshot.Snapshot {
	if !res.OK() {
		return nil
	}
	return snapshot.NewSnapshot(snapshot.SnapshotSpec{Mode: snapshot.ModeDesign, Formula: res.Input, Spec: res.Spec})
}

// PairwiseInteractions lists every two-factor interaction among names.
func PairwiseInteractions(names []string) []string {
	var out []string
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			out = append(out, names[i]+":"+names[j])
		}
	}
	return out
}
