package formula

import "mcspec/domain/variable"

// Example is a starter formula offered by the UIs, with kind hints for
// variables that would otherwise default to continuous.
type Example struct {
	Label   string                   `json:"label"`
	Formula string                   `json:"formula"`
	Hints   map[string]variable.Spec `json:"hints,omitempty"`
}

// Examples returns the starter formulas in display order.
func Examples() []Example {
	help := func() map[string]variable.Spec {
		return map[string]variable.Spec{
			"received_help": variable.Binary("received_help", variable.DefaultBinaryProportion),
		}
	}
	return []Example{
		{
			Label:   "Two predictors",
			Formula: "score = study_hours + received_help",
			Hints:   help(),
		},
		{
			Label:   "With interaction",
			Formula: "score = study_hours + received_help + study_hours:received_help",
			Hints:   help(),
		},
		{
			Label:   "Mixed model",
			Formula: "score = study_hours + received_help + (1|school)",
			Hints:   help(),
		},
	}
}
