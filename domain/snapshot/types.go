package snapshot

import (
	"mcspec/domain/core"
	"mcspec/domain/modelspec"
)

// Mode records which input surface produced a snapshot.
type Mode string

const (
	ModeFormula Mode = "formula"
	ModeDesign  Mode = "design"
)

// Snapshot is a saved history entry: one resolved ModelSpec and the input that produced it
type Snapshot struct {
	ID          core.HistoryID       `json:"id" db:"id"`
	Mode        Mode                 `json:"mode" db:"mode"`
	Formula     string               `json:"formula" db:"formula"`
	Fingerprint core.SpecHash        `json:"fingerprint" db:"fingerprint"`
	DatasetID   core.DatasetID       `json:"dataset_id,omitempty" db:"dataset_id"`
	Spec        *modelspec.ModelSpec `json:"spec" db:"-"`
	CreatedAt   core.Timestamp       `json:"created_at" db:"-"`
}

// SnapshotSpec defines parameters for creating a snapshot
type SnapshotSpec struct {
	Mode      Mode
	Formula   string
	DatasetID core.DatasetID
	Spec      *modelspec.ModelSpec
}

// NewSnapshot creates a snapshot from spec
func NewSnapshot(spec SnapshotSpec) *Snapshot {
	mode := spec.Mode
	if mode == "" {
		mode = ModeFormula
	}
	formula := spec.Formula
	if formula == "" && spec.Spec != nil {
		formula = spec.Spec.Formula()
	}
	s := &Snapshot{
		ID:        core.NewHistoryID(),
		Mode:      mode,
		Formula:   formula,
		DatasetID: spec.DatasetID,
		Spec:      spec.Spec,
		CreatedAt: core.Now(),
	}
	if spec.Spec != nil {
		s.Fingerprint = spec.Spec.Fingerprint()
	}
	return s
}

// Label is the one-line description shown in history lists
func (s *Snapshot) Label() string {
	return s.CreatedAt.Time().Format("2006-01-02 15:04") + "  " + s.Formula
}
