package modelspec

import "fmt"

// Defaults applied to newly declared clusters.
const (
	DefaultICC                = 0.2
	DefaultNClusters          = 20
	DefaultNPerParent         = 3
	DefaultSlopeVariance      = 0.1
	DefaultSlopeInterceptCorr = 0.0
)

// ClusterParams are the simulation parameters attached to one cluster.
// NClusters applies to root clusters, NPerParent to nested ones.
type ClusterParams struct {
	ICC                float64 `json:"icc"`
	NClusters          int     `json:"n_clusters,omitempty"`
	NPerParent         int     `json:"n_per_parent,omitempty"`
	SlopeVariance      float64 `json:"slope_variance,omitempty"`
	SlopeInterceptCorr float64 `json:"slope_intercept_corr,omitempty"`
}

// DefaultClusterParams returns the defaults for c.
func DefaultClusterParams(c ClusterSpec) ClusterParams {
	p := ClusterParams{ICC: DefaultICC}
	if c.IsNested() {
		p.NPerParent = DefaultNPerParent
	} else {
		p.NClusters = DefaultNClusters
	}
	if c.HasRandomSlope {
		p.SlopeVariance = DefaultSlopeVariance
		p.SlopeInterceptCorr = DefaultSlopeInterceptCorr
	}
	return p
}

// Validate checks ranges for c's parameters.
func (p ClusterParams) Validate(c ClusterSpec) error {
	if p.ICC < 0 || p.ICC >= 1 {
		return fmt.Errorf("cluster %s: icc must be within [0, 1), got %v", c.Group, p.ICC)
	}
	if c.IsNested() && p.NPerParent < 2 {
		return fmt.Errorf("cluster %s: n_per_parent must be at least 2, got %d", c.Group, p.NPerParent)
	}
	if !c.IsNested() && p.NClusters < 2 {
		return fmt.Errorf("cluster %s: n_clusters must be at least 2, got %d", c.Group, p.NClusters)
	}
	if c.HasRandomSlope {
		if p.SlopeVariance < 0 {
			return fmt.Errorf("cluster %s: slope variance must be non-negative", c.Group)
		}
		if p.SlopeInterceptCorr < -1 || p.SlopeInterceptCorr > 1 {
			return fmt.Errorf("cluster %s: slope/intercept correlation must be within [-1, 1]", c.Group)
		}
	}
	return nil
}

// ClusterConfig maps group names to parameters so values survive re-derivation.
type ClusterConfig map[string]ClusterParams

// Carry keeps parameters for groups still present in spec and defaults new ones.
// Shape-dependent fields are reset when a cluster changes from root to nested
// or gains/loses a slope.
func (cc ClusterConfig) Carry(spec *ModelSpec) ClusterConfig {
	out := make(ClusterConfig, len(spec.clusters))
	for _, c := range spec.clusters {
		def := DefaultClusterParams(c)
		prev, ok := cc[c.Group]
		if !ok {
			out[c.Group] = def
			continue
		}
		p := def
		p.ICC = prev.ICC
		if c.IsNested() && prev.NPerParent > 0 {
			p.NPerParent = prev.NPerParent
		}
		if !c.IsNested() && prev.NClusters > 0 {
			p.NClusters = prev.NClusters
		}
		if c.HasRandomSlope && (prev.SlopeVariance > 0 || prev.SlopeInterceptCorr != 0) {
			p.SlopeVariance = prev.SlopeVariance
			p.SlopeInterceptCorr = prev.SlopeInterceptCorr
		}
		out[c.Group] = p
	}
	return out
}
