// Package randomeffects resolves raw (effects|group) clauses into the
// cluster hierarchy of a ModelSpec.
//
// A nested clause (1 + x|g/s) declares g as a root and s as its child, and
// the effects apply to both. A group declared by several clauses is merged
// only when every declaration agrees on its parent and slope.
package randomeffects

import (
	"fmt"

	"mcspec/domain/core"
	"mcspec/domain/formula"
	"mcspec/domain/modelspec"
	"mcspec/domain/variable"
)

// Resolve turns clauses into clusters in declaration order. Parents always
// precede their children.
func Resolve(clauses []formula.RawRandomEffect, vars map[string]variable.Spec) ([]modelspec.ClusterSpec, error) {
	var clusters []modelspec.ClusterSpec
	index := make(map[string]int)

	declare := func(c modelspec.ClusterSpec) error {
		i, ok := index[c.Group]
		if !ok {
			index[c.Group] = len(clusters)
			clusters = append(clusters, c)
			return nil
		}
		prev := clusters[i]
		if prev.Parent != c.Parent {
			return &core.ClusterHierarchyError{
				Group:  c.Group,
				Reason: fmt.Sprintf("declared with parent %s and with parent %s", describeParent(prev.Parent), describeParent(c.Parent)),
			}
		}
		if prev.HasRandomSlope != c.HasRandomSlope || prev.SlopeVariable != c.SlopeVariable {
			return &core.ClusterHierarchyError{
				Group:  c.Group,
				Reason: fmt.Sprintf("declared with effects (%s) and with effects (%s)", prev.Effects(), c.Effects()),
			}
		}
		return nil
	}

	for _, clause := range clauses {
		if clause.Slope != "" {
			if err := checkSlope(clause, vars); err != nil {
				return nil, err
			}
		}
		root := modelspec.ClusterSpec{
			Group:          clause.Group,
			HasRandomSlope: clause.Slope != "",
			SlopeVariable:  clause.Slope,
		}
		if err := declare(root); err != nil {
			return nil, err
		}
		if clause.IsNested() {
			child := root
			child.Group = clause.Subgroup
			child.Parent = clause.Group
			if err := declare(child); err != nil {
				return nil, err
			}
		}
	}

	if err := Validate(clusters); err != nil {
		return nil, err
	}
	return clusters, nil
}

func checkSlope(clause formula.RawRandomEffect, vars map[string]variable.Spec) error {
	group := clause.Group
	if clause.IsNested() {
		group = clause.Group + "/" + clause.Subgroup
	}
	spec, ok := vars[clause.Slope]
	if !ok {
		return &core.UnresolvedVariableError{Name: clause.Slope}
	}
	if !spec.Kind.IsCorrelable() {
		return &core.UnsupportedRandomSlopeError{Group: group, Variable: clause.Slope, Kind: string(spec.Kind)}
	}
	return nil
}

func describeParent(p string) string {
	if p == "" {
		return "none"
	}
	return p
}

// Validate checks hierarchy invariants on an ordered cluster list: unique
// group names, every parent declared before its child, no cycles, and slope
// fields consistent with HasRandomSlope.
func Validate(clusters []modelspec.ClusterSpec) error {
	pos := make(map[string]int, len(clusters))
	for i, c := range clusters {
		if c.Group == "" {
			return &core.ClusterHierarchyError{Group: c.Group, Reason: "empty group name"}
		}
		if _, dup := pos[c.Group]; dup {
			return &core.ClusterHierarchyError{Group: c.Group, Reason: "declared more than once"}
		}
		pos[c.Group] = i
		if c.HasRandomSlope != (c.SlopeVariable != "") {
			return &core.ClusterHierarchyError{Group: c.Group, Reason: "random slope flag and slope variable disagree"}
		}
	}

	parent := make(map[string]string, len(clusters))
	for _, c := range clusters {
		if c.Parent == "" {
			continue
		}
		if _, ok := pos[c.Parent]; !ok {
			return &core.ClusterHierarchyError{Group: c.Group, Reason: fmt.Sprintf("parent %q is not declared", c.Parent)}
		}
		parent[c.Group] = c.Parent
	}

	for _, c := range clusters {
		seen := map[string]bool{c.Group: true}
		for g := parent[c.Group]; g != ""; g = parent[g] {
			if seen[g] {
				return &core.ClusterHierarchyError{Group: c.Group, Reason: "cycle in nesting"}
			}
			seen[g] = true
		}
	}

	for i, c := range clusters {
		if c.Parent != "" && pos[c.Parent] >= i {
			return &core.ClusterHierarchyError{Group: c.Group, Reason: fmt.Sprintf("parent %q is declared after its child", c.Parent)}
		}
	}
	return nil
}

// Children returns the groups nested directly under group, in order.
func Children(clusters []modelspec.ClusterSpec, group string) []string {
	var out []string
	for _, c := range clusters {
		if c.Parent == group {
			out = append(out, c.Group)
		}
	}
	return out
}
