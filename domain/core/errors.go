package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Syntax errors
	ErrParse = errors.New("formula parse error")

	// Resolution errors
	ErrUnresolvedVariable = errors.New("unresolved variable")
	ErrFactorLevelRange   = errors.New("factor level count out of range")
	ErrVariableConfig     = errors.New("invalid variable configuration")

	// Random-effect errors
	ErrClusterHierarchy       = errors.New("invalid cluster hierarchy")
	ErrUnsupportedRandomSlope = errors.New("unsupported random slope")

	// Assembly errors
	ErrModelValidation = errors.New("model validation failed")
	ErrCancelled       = errors.New("resolution request superseded")

	// Lookup errors
	ErrNotFound        = errors.New("resource not found")
	ErrDatasetNotFound = fmt.Errorf("%w: dataset", ErrNotFound)
	ErrHistoryNotFound = fmt.Errorf("%w: history record", ErrNotFound)
)

// Stage names the pipeline step that produced an error.
type Stage string

const (
	StageParse         Stage = "parse"
	StageResolve       Stage = "resolve"
	StageExpand        Stage = "expand"
	StageRandomEffects Stage = "random_effects"
	StageValidate      Stage = "validate"
)

// ParseError reports malformed formula syntax.
type ParseError struct {
	Fragment string // offending substring
	Offset   int    // zero-based byte offset into the formula
	Message  string
}

func (e *ParseError) Error() string {
	if e.Fragment == "" {
		return fmt.Sprintf("%s (column %d)", e.Message, e.Offset+1)
	}
	return fmt.Sprintf("%s near %q (column %d)", e.Message, e.Fragment, e.Offset+1)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// Hint renders a caret line under the formula pointing at the offending column.
func (e *ParseError) Hint(formula string) string {
	offset := e.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > len(formula) {
		offset = len(formula)
	}
	pad := make([]byte, offset)
	for i := range pad {
		pad[i] = ' '
	}
	return formula + "\n" + string(pad) + "^"
}

// UnresolvedVariableError is raised per identifier that has neither uploaded data nor manual config.
type UnresolvedVariableError struct {
	Name string
}

func (e *UnresolvedVariableError) Error() string {
	return fmt.Sprintf("variable %q is not configured and not present in uploaded data", e.Name)
}

func (e *UnresolvedVariableError) Unwrap() error { return ErrUnresolvedVariable }

// FactorLevelRangeError reports a factor outside the supported level count.
type FactorLevelRangeError struct {
	Name   string
	Levels int
	Min    int
	Max    int
}

func (e *FactorLevelRangeError) Error() string {
	return fmt.Sprintf("factor %q has %d levels, expected between %d and %d", e.Name, e.Levels, e.Min, e.Max)
}

func (e *FactorLevelRangeError) Unwrap() error { return ErrFactorLevelRange }

// VariableConfigError reports inconsistent level labels or reference levels.
type VariableConfigError struct {
	Name   string
	Reason string
}

func (e *VariableConfigError) Error() string {
	return fmt.Sprintf("variable %q: %s", e.Name, e.Reason)
}

func (e *VariableConfigError) Unwrap() error { return ErrVariableConfig }

// ClusterHierarchyError reports cycles, unresolved parents or conflicting redeclarations.
type ClusterHierarchyError struct {
	Group  string
	Reason string
}

func (e *ClusterHierarchyError) Error() string {
	return fmt.Sprintf("cluster %q: %s", e.Group, e.Reason)
}

func (e *ClusterHierarchyError) Unwrap() error { return ErrClusterHierarchy }

// UnsupportedRandomSlopeError is returned when a random slope names a categorical variable.
type UnsupportedRandomSlopeError struct {
	Group    string
	Variable string
	Kind     string
}

func (e *UnsupportedRandomSlopeError) Error() string {
	return fmt.Sprintf("random slope %q in cluster %q is a %s; only continuous or binary slopes are supported", e.Variable, e.Group, e.Kind)
}

func (e *UnsupportedRandomSlopeError) Unwrap() error { return ErrUnsupportedRandomSlope }

// ModelValidationError reports a failed global invariant of an assembled model.
type ModelValidationError struct {
	Name   string
	Reason string
}

func (e *ModelValidationError) Error() string {
	if e.Name == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Reason)
}

func (e *ModelValidationError) Unwrap() error { return ErrModelValidation }

// StageError tags an error with the pipeline stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// StageOf returns the stage recorded on err, or "" when err carries none.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// Unstage strips any StageError wrappers so messages read without the stage prefix.
func Unstage(err error) error {
	for {
		se, ok := err.(*StageError)
		if !ok {
			return err
		}
		err = se.Err
	}
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsParseError(err error) bool {
	return errors.Is(err, ErrParse)
}

func IsResolutionError(err error) bool {
	return errors.Is(err, ErrUnresolvedVariable) ||
		errors.Is(err, ErrFactorLevelRange) ||
		errors.Is(err, ErrVariableConfig)
}

func IsClusterError(err error) bool {
	return errors.Is(err, ErrClusterHierarchy) ||
		errors.Is(err, ErrUnsupportedRandomSlope)
}
