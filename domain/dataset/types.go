// Package dataset holds an uploaded table and the variable profiles derived
// from it. Profiles follow the same VariableSpec contract as manual
// configuration, so the resolver never needs to know where a spec came from.
package dataset

import (
	"regexp"
	"strconv"
	"strings"

	"mcspec/domain/core"
	"mcspec/domain/modelspec"
	"mcspec/domain/variable"
)

var unnamedColumn = regexp.MustCompile(`(?i)^(unnamed(:\s*\d+)?|index|\.\.\.\d+)$`)

// IsUnnamedColumn reports whether a header is blank or an exported row index
// such as "Unnamed: 0".
func IsUnnamedColumn(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || unnamedColumn.MatchString(name)
}

// Column is one named column of raw cell text. Empty strings are missing values.
type Column struct {
	Name   string   `json:"name"`
	Values []string `json:"-"`
}

// Observed returns the non-missing values.
func (c Column) Observed() []string {
	out := make([]string, 0, len(c.Values))
	for _, v := range c.Values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Floats parses every non-missing value. ok is false if any value is not a number.
func (c Column) Floats() (values []float64, ok bool) {
	obs := c.Observed()
	values = make([]float64, 0, len(obs))
	for _, v := range obs {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, false
		}
		values = append(values, f)
	}
	return values, len(values) > 0
}

// Dataset is an uploaded table with its derived profiles. Correlations holds
// pairwise coefficients of correlable columns, rounded to 2 decimals.
type Dataset struct {
	ID           core.DatasetID           `json:"id"`
	Name         string                   `json:"name"`
	Rows         int                      `json:"rows"`
	Columns      []Column                 `json:"columns"`
	Profiles     map[string]variable.Spec `json:"profiles"`
	Correlations modelspec.Correlations   `json:"correlations,omitempty"`
	CreatedAt    core.Timestamp           `json:"created_at"`
}

// New builds a dataset from a header row and data rows, dropping unnamed
// index columns and padding short rows with missing values.
func New(name string, headers []string, rows [][]string) *Dataset {
	ds := &Dataset{
		ID:        core.NewDatasetID(),
		Name:      name,
		Rows:      len(rows),
		Profiles:  make(map[string]variable.Spec),
		CreatedAt: core.Now(),
	}
	for idx, h := range headers {
		h = strings.TrimSpace(h)
		if IsUnnamedColumn(h) {
			continue
		}
		col := Column{Name: h, Values: make([]string, len(rows))}
		for r, row := range rows {
			if idx < len(row) {
				col.Values[r] = strings.TrimSpace(row[idx])
			}
		}
		ds.Columns = append(ds.Columns, col)
	}
	return ds
}

// Column looks up a column by name.
func (d *Dataset) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the column names in file order.
func (d *Dataset) ColumnNames() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// Summary is the API view of a dataset without cell data.
type Summary struct {
	ID           core.DatasetID           `json:"id"`
	Name         string                   `json:"name"`
	Rows         int                      `json:"rows"`
	Columns      []string                 `json:"columns"`
	Profiles     map[string]variable.Spec `json:"profiles"`
	Correlations modelspec.Correlations   `json:"correlations,omitempty"`
	CreatedAt    core.Timestamp           `json:"created_at"`
}

// Summarize drops the cell data.
func (d *Dataset) Summarize() Summary {
	return Summary{
		ID:           d.ID,
		Name:         d.Name,
		Rows:         d.Rows,
		Columns:      d.ColumnNames(),
		Profiles:     d.Profiles,
		Correlations: d.Correlations,
		CreatedAt:    d.CreatedAt,
	}
}
