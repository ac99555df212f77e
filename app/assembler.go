package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mcspec/domain/core"
	"mcspec/domain/formula"
	"mcspec/domain/modelspec"
	"mcspec/domain/variable"
	"mcspec/internal"
	"mcspec/internal/expander"
	"mcspec/internal/parser"
	"mcspec/internal/randomeffects"
	"mcspec/internal/resolver"
	"mcspec/ports"
)

// State is the outcome class of one resolution request.
type State string

const (
	StateEmpty  State = "empty"  // blank input, no formula yet
	StateReady  State = "ready"  // Spec is set
	StateFailed State = "failed" // Err and Stage are set
)

// Input is everything one resolution pass reads.
type Input struct {
	Formula string
	Manual  map[string]variable.Spec
	Data    ports.DataProvider // nil when no dataset is loaded
	Options resolver.Options
}

// Resolution is the result of one pass. On failure Spec is nil; Parsed and
// Variables are kept when parsing succeeded so callers can show a partial
// preview.
type Resolution struct {
	Input     string
	State     State
	Spec      *modelspec.ModelSpec
	Parsed    *formula.Formula
	Variables map[string]variable.Spec
	Stage     core.Stage
	Err       error
	Warnings  []error
}

// OK reports whether a ModelSpec was produced.
func (r Resolution) OK() bool { return r.State == StateReady }

// Partial reports whether parsing succeeded but a later stage failed.
func (r Resolution) Partial() bool {
	return r.State == StateFailed && r.Parsed != nil && r.Stage != core.StageParse
}

// Summary renders the multi-line status shown under a formula box.
func (r Resolution) Summary() string {
	switch r.State {
	case StateEmpty:
		return ""
	case StateFailed:
		if errors.Is(r.Err, core.ErrCancelled) {
			return "Cancelled"
		}
		if r.Stage == core.StageParse || r.Parsed == nil {
			return "Parse error: " + core.Unstage(r.Err).Error()
		}
		var b strings.Builder
		b.WriteString("✗ " + core.Unstage(r.Err).Error())
		for _, w := range r.Warnings[min(1, len(r.Warnings)):] {
			b.WriteString("\n  " + w.Error())
		}
		return b.String()
	}

	lines := []string{
		"✓ Dependent: " + r.Spec.Dependent(),
		"  Predictors: " + strings.Join(r.Spec.Predictors(), ", "),
	}
	if r.Spec.IsMixed() {
		var clauses []string
		for _, c := range r.Spec.Clusters() {
			clauses = append(clauses, c.Clause())
		}
		lines = append(lines, "  Random effects: "+strings.Join(clauses, ", "))
	}
	return strings.Join(lines, "\n")
}

// Assembler runs parse → resolve → expand → random effects → validate and
// returns either an immutable ModelSpec or the first error with its stage.
type Assembler struct {
	runner *StageRunner
	logger *internal.Logger
}

// NewAssembler creates an assembler
func NewAssembler(logger *internal.Logger) *Assembler {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Assembler{
		runner: NewStageRunner(logger),
		logger: logger.With("assembler"),
	}
}

// Resolve runs one full derivation. ctx is the request's cancellation token
// and is checked once at entry; the stages themselves never block.
func (a *Assembler) Resolve(ctx context.Context, in Input) Resolution {
	out := Resolution{Input: in.Formula}
	if err := ctx.Err(); err != nil {
		out.State = StateFailed
		out.Err = fmt.Errorf("%w: %v", core.ErrCancelled, err)
		return out
	}

	fail := func(err error) Resolution {
		out.State = StateFailed
		out.Err = err
		out.Stage = core.StageOf(err)
		return out
	}

	var parsed *formula.Formula
	if err := a.runner.Run(core.StageParse, func() (err error) {
		parsed, err = parser.Parse(in.Formula)
		return err
	}); err != nil {
		return fail(err)
	}
	if parsed.IsEmpty() {
		out.State = StateEmpty
		out.Parsed = parsed
		return out
	}
	out.Parsed = parsed

	var resolved resolver.Result
	res := resolver.New(in.Data, in.Manual, in.Options)
	if err := a.runner.Run(core.StageResolve, func() error {
		resolved = res.Resolve(parsed)
		return resolved.FirstError()
	}); err != nil {
		out.Variables = resolved.Specs
		out.Warnings = resolved.Errors
		return fail(err)
	}
	out.Variables = resolved.Specs

	var terms []modelspec.ExpandedTerm
	if err := a.runner.Run(core.StageExpand, func() (err error) {
		terms, err = expander.Expand(parsed.Terms, resolved.Specs)
		return err
	}); err != nil {
		return fail(err)
	}

	var clusters []modelspec.ClusterSpec
	if err := a.runner.Run(core.StageRandomEffects, func() (err error) {
		clusters, err = randomeffects.Resolve(parsed.RandomEffects, resolved.Specs)
		return err
	}); err != nil {
		return fail(err)
	}

	if err := a.runner.Run(core.StageValidate, func() error {
		return validateModel(parsed, resolved.Specs, res.Known, terms, clusters)
	}); err != nil {
		return fail(err)
	}

	out.State = StateReady
	out.Spec = modelspec.New(parsed.Dependent, resolved.Specs, parsed.Predictors(), terms, clusters)
	a.logger.Debug("resolved %q: %d terms, %d clusters", in.Formula, len(terms), len(clusters))
	return out
}

// validateModel checks the invariants that span stages. known reports names
// from the data or manual config that the formula itself may not reference.
func validateModel(f *formula.Formula, vars map[string]variable.Spec, known func(string) bool, terms []modelspec.ExpandedTerm, clusters []modelspec.ClusterSpec) error {
	for _, t := range f.Terms {
		for _, id := range t.Identifiers {
			if id == f.Dependent {
				return &core.ModelValidationError{Name: f.Dependent, Reason: fmt.Sprintf("dependent variable also appears in predictor %s", t)}
			}
		}
	}
	if len(terms) == 0 {
		return &core.ModelValidationError{Reason: "model needs at least one fixed-effect predictor"}
	}
	for _, c := range clusters {
		if _, ok := vars[c.Group]; ok || known(c.Group) {
			return &core.ModelValidationError{Name: c.Group, Reason: "grouping factor has the same name as a variable"}
		}
		if c.SlopeVariable == f.Dependent {
			return &core.ModelValidationError{Name: c.Group, Reason: "dependent variable cannot be a random slope"}
		}
	}
	return nil
}
