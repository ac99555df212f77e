package ui

import (
	"fmt"
	"strings"

	"mcspec/adapters/export"
	"mcspec/domain/modelspec"
	"mcspec/domain/variable"
)

// VariableDTO is one manually configured variable in a request body.
type VariableDTO struct {
	Kind        string    `json:"kind" validate:"required,oneof=continuous binary factor"`
	Levels      int       `json:"levels,omitempty" validate:"omitempty,min=0"`
	LevelLabels []string  `json:"level_labels,omitempty" validate:"omitempty,dive,required"`
	Proportion  float64   `json:"proportion,omitempty" validate:"omitempty,gt=0,lt=1"`
	Proportions []float64 `json:"proportions,omitempty" validate:"omitempty,dive,gte=0,lte=1"`
	Reference   string    `json:"reference,omitempty"`
}

// Spec converts the DTO into a manual VariableSpec.
func (v VariableDTO) Spec(name string) (variable.Spec, error) {
	kind, err := variable.ParseKind(v.Kind)
	if err != nil {
		return variable.Spec{}, err
	}
	switch kind {
	case variable.KindBinary:
		p := v.Proportion
		if p == 0 {
			p = variable.DefaultBinaryProportion
		}
		if len(v.LevelLabels) > 0 {
			return variable.BinaryWithLevels(name, v.LevelLabels, p), nil
		}
		return variable.Binary(name, p), nil
	case variable.KindFactor:
		switch {
		case len(v.LevelLabels) > 0:
			spec := variable.Factor(name, v.LevelLabels)
			if len(v.Proportions) == 0 {
				return spec, nil
			}
			return spec.WithLabelProportions(v.LevelLabels, v.Proportions)
		case v.Levels > 0:
			spec := variable.NumberedFactor(name, v.Levels)
			if len(v.Proportions) > 0 {
				spec = spec.WithProportions(v.Proportions)
			}
			return spec, nil
		default:
			return variable.Spec{}, fmt.Errorf("factor %s needs levels or level_labels", name)
		}
	default:
		return variable.Continuous(name), nil
	}
}

// ResolveRequest is the body of POST /api/resolve.
type ResolveRequest struct {
	Formula          string                 `json:"formula" validate:"max=2000"`
	Variables        map[string]VariableDTO `json:"variables,omitempty" validate:"omitempty,dive"`
	DatasetID        string                 `json:"dataset_id,omitempty" validate:"omitempty,uuid"`
	AssumeContinuous *bool                  `json:"assume_continuous,omitempty"`
	Save             bool                   `json:"save,omitempty"`
}

// manual splits the request variables into specs and reference overrides.
func (r ResolveRequest) manual() (map[string]variable.Spec, map[string]string, error) {
	specs := make(map[string]variable.Spec, len(r.Variables))
	refs := make(map[string]string)
	for name, dto := range r.Variables {
		name = strings.TrimSpace(name)
		spec, err := dto.Spec(name)
		if err != nil {
			return nil, nil, err
		}
		specs[name] = spec
		if dto.Reference != "" {
			refs[name] = dto.Reference
		}
	}
	return specs, refs, nil
}

// ExportRequest is the body of POST /api/export.
type ExportRequest struct {
	ResolveRequest
	Format       string                             `json:"format,omitempty" validate:"omitempty,oneof=script markdown html"`
	Effects      map[string]float64                 `json:"effects,omitempty"`
	Correlations map[string]float64                 `json:"correlations,omitempty" validate:"omitempty,dive,gte=-1,lte=1"`
	Clusters     map[string]modelspec.ClusterParams `json:"clusters,omitempty"`
	Settings     export.Settings                    `json:"settings"`
}

// ErrorDTO describes a failed request. Fragment, Offset and Hint are set for parse errors.
type ErrorDTO struct {
	Code     string `json:"code"`
	Stage    string `json:"stage,omitempty"`
	Message  string `json:"message"`
	Fragment string `json:"fragment,omitempty"`
	Offset   *int   `json:"offset,omitempty"`
	Hint     string `json:"hint,omitempty"`
}

// ResolveResponse is returned by the resolve and design endpoints.
type ResolveResponse struct {
	State        string                   `json:"state"`
	Formula      string                   `json:"formula"`
	Summary      string                   `json:"summary,omitempty"`
	Spec         *modelspec.ModelSpec     `json:"spec,omitempty"`
	TermKinds    map[string]variable.Kind `json:"term_kinds,omitempty"`
	Effects      modelspec.Effects        `json:"default_effects,omitempty"`
	Correlations modelspec.Correlations   `json:"correlations,omitempty"`
	Clusters     modelspec.ClusterConfig  `json:"cluster_defaults,omitempty"`
	Error        *ErrorDTO                `json:"error,omitempty"`
	Warnings     []string                 `json:"warnings,omitempty"`
	HistoryID    string                   `json:"history_id,omitempty"`
}
