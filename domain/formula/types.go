// Package formula holds the parser's output: the dependent variable, the raw
// predictor terms and the raw random-effect clauses. Nothing here knows about
// variable kinds.
package formula

import (
	"sort"
	"strings"
)

// InteractionMarker joins identifiers of an explicit interaction.
const InteractionMarker = ":"

// RawTerm is an unresolved predictor: one identifier, or two or more
// identifiers joined by the interaction marker. Shorthand has already been
// expanded by the parser.
type RawTerm struct {
	Identifiers []string `json:"identifiers"`
}

// NewRawTerm copies ids into a new term.
func NewRawTerm(ids ...string) RawTerm {
	return RawTerm{Identifiers: append([]string(nil), ids...)}
}

// IsInteraction reports whether the term joins two or more identifiers.
func (t RawTerm) IsInteraction() bool {
	return len(t.Identifiers) > 1
}

// String renders the term as it appears in a formula.
func (t RawTerm) String() string {
	return strings.Join(t.Identifiers, InteractionMarker)
}

// Key identifies the term as an unordered identifier set.
func (t RawTerm) Key() string {
	ids := append([]string(nil), t.Identifiers...)
	sort.Strings(ids)
	return strings.Join(ids, InteractionMarker)
}

// RawRandomEffect is one `( effects | group-path )` clause.
type RawRandomEffect struct {
	Slope    string `json:"slope,omitempty"`    // identifier after "1 +", empty for intercept only
	Group    string `json:"group"`              // outer grouping factor
	Subgroup string `json:"subgroup,omitempty"` // nested grouping factor for group/subgroup
	Text     string `json:"text"`               // clause as written
	Offset   int    `json:"offset"`             // byte offset of "(" in the input
}

// IsNested reports whether the clause declares a group/subgroup path.
func (r RawRandomEffect) IsNested() bool {
	return r.Subgroup != ""
}

// Effects renders the left side of the clause.
func (r RawRandomEffect) Effects() string {
	if r.Slope == "" {
		return "1"
	}
	return "1 + " + r.Slope
}

// Formula is the parse result for one input line.
type Formula struct {
	Source        string            `json:"source"`
	Dependent     string            `json:"dependent"`
	Terms         []RawTerm         `json:"terms"`
	RandomEffects []RawRandomEffect `json:"random_effects"`
}

// IsEmpty reports the "no formula yet" state produced by blank input.
func (f *Formula) IsEmpty() bool {
	return f == nil || f.Dependent == ""
}

// IsMixed reports whether any random-effect clause is present.
func (f *Formula) IsMixed() bool {
	return f != nil && len(f.RandomEffects) > 0
}

// Predictors returns the canonical raw term names in order.
func (f *Formula) Predictors() []string {
	if f == nil {
		return nil
	}
	out := make([]string, 0, len(f.Terms))
	for _, t := range f.Terms {
		out = append(out, t.String())
	}
	return out
}

// Identifiers returns every identifier referenced by the dependent side,
// the predictor terms and the random slopes, in first-appearance order.
// Grouping names are not variables and are excluded.
func (f *Formula) Identifiers() []string {
	if f.IsEmpty() {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	add(f.Dependent)
	for _, t := range f.Terms {
		for _, id := range t.Identifiers {
			add(id)
		}
	}
	for _, re := range f.RandomEffects {
		add(re.Slope)
	}
	return out
}

// BaseVariables returns identifiers used as main effects (non-interaction terms).
func (f *Formula) BaseVariables() []string {
	if f == nil {
		return nil
	}
	var out []string
	for _, t := range f.Terms {
		if !t.IsInteraction() {
			out = append(out, t.Identifiers[0])
		}
	}
	return out
}
