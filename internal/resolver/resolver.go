// Package resolver binds every identifier of a parsed formula to a
// VariableSpec. Data-derived specs win over manual configuration; the
// resolver itself never guesses a kind from formula text.
package resolver

import (
	"errors"
	"fmt"
	"sort"

	"mcspec/domain/core"
	"mcspec/domain/formula"
	"mcspec/domain/variable"
	"mcspec/internal"
	"mcspec/ports"
)

// Options tune resolution.
type Options struct {
	// AssumeContinuous resolves unconfigured identifiers as manual continuous
	// variables instead of reporting them as unresolved.
	AssumeContinuous bool
	// ContinuousDependent resolves an unconfigured dependent variable as
	// manual continuous. Predictors still follow AssumeContinuous.
	ContinuousDependent bool
	// ReferenceOverrides maps factor or binary names to an explicit reference level.
	ReferenceOverrides map[string]string
}

// Result is the outcome of one resolution pass. Specs holds every identifier
// that resolved; Errors holds one error per identifier that did not.
type Result struct {
	Specs  map[string]variable.Spec
	Errors []error
}

// OK reports whether every identifier resolved.
func (r Result) OK() bool { return len(r.Errors) == 0 }

// FirstError returns the first per-identifier error, or nil.
func (r Result) FirstError() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// Unresolved lists identifiers that have neither data nor manual config.
func (r Result) Unresolved() []string {
	var out []string
	for _, err := range r.Errors {
		var ue *core.UnresolvedVariableError
		if errors.As(err, &ue) {
			out = append(out, ue.Name)
		}
	}
	return out
}

// Resolver looks identifiers up in a data provider and a manual config map.
type Resolver struct {
	data   ports.DataProvider
	manual map[string]variable.Spec
	opts   Options
	logger *internal.Logger
}

// New creates a resolver. data may be nil when no dataset is loaded.
func New(data ports.DataProvider, manual map[string]variable.Spec, opts Options) *Resolver {
	m := make(map[string]variable.Spec, len(manual))
	for name, spec := range manual {
		spec = spec.Clone()
		spec.Name = name
		m[name] = spec
	}
	return &Resolver{
		data:   data,
		manual: m,
		opts:   opts,
		logger: internal.DefaultLogger.With("resolver"),
	}
}

// Resolve resolves every identifier of f in first-appearance order.
func (r *Resolver) Resolve(f *formula.Formula) Result {
	res := Result{Specs: make(map[string]variable.Spec)}
	if f.IsEmpty() {
		return res
	}
	for _, name := range f.Identifiers() {
		spec, err := r.lookup(name, name == f.Dependent)
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Specs[name] = spec
	}
	for name := range r.opts.ReferenceOverrides {
		if _, used := res.Specs[name]; !used {
			r.logger.Debug("reference override for %s ignored: not in formula", name)
		}
	}
	return res
}

func (r *Resolver) lookup(name string, dependent bool) (variable.Spec, error) {
	spec, ok := r.find(name, dependent)
	if !ok {
		return variable.Spec{}, &core.UnresolvedVariableError{Name: name}
	}
	spec.Name = name
	if ref, ok := r.opts.ReferenceOverrides[name]; ok && ref != "" {
		if spec.Kind == variable.KindContinuous {
			return variable.Spec{}, &core.VariableConfigError{Name: name, Reason: "continuous variables have no reference level"}
		}
		if !spec.HasLevel(ref) {
			return variable.Spec{}, &core.VariableConfigError{Name: name, Reason: fmt.Sprintf("reference level %q is not one of %v", ref, spec.Levels)}
		}
		spec = spec.WithReference(ref)
	}
	if err := spec.Validate(); err != nil {
		return variable.Spec{}, err
	}
	return spec, nil
}

func (r *Resolver) find(name string, dependent bool) (variable.Spec, bool) {
	if r.data != nil {
		if spec, ok := r.data.Lookup(name); ok {
			r.logger.Trace("%s resolved from data as %s", name, spec.Kind)
			return spec.WithSource(variable.SourceData), true
		}
	}
	if spec, ok := r.manual[name]; ok {
		return spec.WithSource(variable.SourceManual), true
	}
	if r.opts.AssumeContinuous || (dependent && r.opts.ContinuousDependent) {
		return variable.Continuous(name), true
	}
	return variable.Spec{}, false
}

// Known reports whether name is a data column or has manual config, whether
// or not the formula references it.
func (r *Resolver) Known(name string) bool {
	if _, ok := r.manual[name]; ok {
		return true
	}
	if r.data == nil {
		return false
	}
	if _, ok := r.data.Lookup(name); ok {
		return true
	}
	for _, col := range r.data.Columns() {
		if col == name {
			return true
		}
	}
	return false
}

// ConfiguredNames lists every name with manual config, sorted.
func (r *Resolver) ConfiguredNames() []string {
	names := make([]string, 0, len(r.manual))
	for name := range r.manual {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
