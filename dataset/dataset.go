// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/gorse-io/mofuse/base"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"
)

// Column is one feature of a dataset. Float kinds use Values, categorical columns
// use Labels. Columns are never modified after construction.
type Column struct {
	Feature
	Values []float64
	Labels []string
	// Dict maps codes of an encoded column back to the original labels.
	Dict *Dict
}

// NewNumericColumn creates a numeric column. NaN marks missing cells.
func NewNumericColumn(name string, values []float64) *Column {
	return &Column{Feature: Feature{Name: name, Kind: Numeric}, Values: values}
}

// NewCategoricalColumn creates a categorical column. Empty strings mark missing cells.
func NewCategoricalColumn(name string, labels []string) *Column {
	return &Column{Feature: Feature{Name: name, Kind: Categorical}, Labels: labels}
}

// NewEncodedColumn creates an encoded column with its dictionary.
func NewEncodedColumn(name string, codes []float64, dict *Dict) *Column {
	return &Column{Feature: Feature{Name: name, Kind: Encoded}, Values: codes, Dict: dict}
}

func (c *Column) Len() int {
	if c.Kind == Categorical {
		return len(c.Labels)
	}
	return len(c.Values)
}

func (c *Column) IsMissing(i int) bool {
	if c.Kind == Categorical {
		return c.Labels[i] == ""
	}
	return math.IsNaN(c.Values[i])
}

// CountMissing returns the number of missing cells.
func (c *Column) CountMissing() int {
	count := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			count++
		}
	}
	return count
}

// Value returns the cell as any: float64 for float kinds, string for categorical, nil
// for missing cells.
func (c *Column) Value(i int) any {
	if c.IsMissing(i) {
		return nil
	}
	if c.Kind == Categorical {
		return c.Labels[i]
	}
	return c.Values[i]
}

// take copies the cells at the given rows.
func (c *Column) take(rows []int) *Column {
	out := &Column{Feature: c.Feature, Dict: c.Dict}
	if c.Kind == Categorical {
		out.Labels = lo.Map(rows, func(r int, _ int) string { return c.Labels[r] })
	} else {
		out.Values = lo.Map(rows, func(r int, _ int) float64 { return c.Values[r] })
	}
	return out
}

// Dataset is an immutable table of samples (rows) by features (columns) for one view.
// Every transformation returns a new Dataset.
type Dataset struct {
	view    View
	schema  Schema
	ids     []string
	index   map[string]int
	columns []*Column
}

// New creates a dataset with schema version 1.
func New(view View, ids []string, columns []*Column) (*Dataset, error) {
	return newDataset(view, 1, ids, columns)
}

func newDataset(view View, version int, ids []string, columns []*Column) (*Dataset, error) {
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		if id == "" {
			return nil, base.Validationf("empty sample identifier at row %d in %s", i, view)
		}
		if _, exist := index[id]; exist {
			return nil, base.Validationf("duplicate sample identifier %q in %s", id, view)
		}
		index[id] = i
	}
	names := make(map[string]struct{}, len(columns))
	features := make([]Feature, len(columns))
	for j, col := range columns {
		if col.Len() != len(ids) {
			return nil, base.Validationf("column %q has %d cells but %s has %d samples", col.Name, col.Len(), view, len(ids))
		}
		if _, exist := names[col.Name]; exist {
			return nil, base.Validationf("duplicate column %q in %s", col.Name, view)
		}
		names[col.Name] = struct{}{}
		features[j] = col.Feature
	}
	return &Dataset{
		view:    view,
		schema:  Schema{Version: version, Features: features},
		ids:     append([]string(nil), ids...),
		index:   index,
		columns: append([]*Column(nil), columns...),
	}, nil
}

// NewNumeric creates a dataset from a dense row-major matrix.
func NewNumeric(view View, ids, names []string, rows [][]float64) (*Dataset, error) {
	columns := make([]*Column, len(names))
	for j, name := range names {
		values := make([]float64, len(rows))
		for i, row := range rows {
			if len(row) != len(names) {
				return nil, base.Validationf("row %d has %d cells, expected %d", i, len(row), len(names))
			}
			values[i] = row[j]
		}
		columns[j] = NewNumericColumn(name, values)
	}
	return New(view, ids, columns)
}

func (d *Dataset) View() View {
	return d.view
}

func (d *Dataset) Schema() Schema {
	return Schema{Version: d.schema.Version, Features: append([]Feature(nil), d.schema.Features...)}
}

// Count returns the number of samples.
func (d *Dataset) Count() int {
	return len(d.ids)
}

func (d *Dataset) NumColumns() int {
	return len(d.columns)
}

// IDs returns a copy of the sample identifiers in row order.
func (d *Dataset) IDs() []string {
	return append([]string(nil), d.ids...)
}

func (d *Dataset) ID(i int) string {
	return d.ids[i]
}

// Index returns the row of a sample identifier.
func (d *Dataset) Index(id string) (int, bool) {
	i, ok := d.index[id]
	return i, ok
}

func (d *Dataset) Column(j int) *Column {
	return d.columns[j]
}

func (d *Dataset) Columns() []*Column {
	return append([]*Column(nil), d.columns...)
}

// ColumnByName looks up a column.
func (d *Dataset) ColumnByName(name string) (*Column, error) {
	j, ok := d.schema.Index(name)
	if !ok {
		return nil, base.Validationf("column %q not found in %s", name, d.view)
	}
	return d.columns[j], nil
}

// Row returns the named cells of a sample. Missing cells map to nil.
func (d *Dataset) Row(i int) map[string]any {
	row := make(map[string]any, len(d.columns))
	for _, col := range d.columns {
		row[col.Name] = col.Value(i)
	}
	return row
}

// Filter keeps the rows set in mask, preserving order.
func (d *Dataset) Filter(mask *bitset.BitSet) *Dataset {
	rows := make([]int, 0, mask.Count())
	for i, ok := mask.NextSet(0); ok && int(i) < d.Count(); i, ok = mask.NextSet(i + 1) {
		rows = append(rows, int(i))
	}
	return d.mustTake(rows)
}

// Take returns the given rows in the given order. Rows must be distinct.
func (d *Dataset) Take(rows []int) (*Dataset, error) {
	seen := bitset.New(uint(d.Count()))
	for _, r := range rows {
		if r < 0 || r >= d.Count() {
			return nil, base.Validationf("row %d out of range [0, %d)", r, d.Count())
		}
		if seen.Test(uint(r)) {
			return nil, base.Validationf("row %d selected twice", r)
		}
		seen.Set(uint(r))
	}
	return d.mustTake(rows), nil
}

func (d *Dataset) mustTake(rows []int) *Dataset {
	ids := lo.Map(rows, func(r int, _ int) string { return d.ids[r] })
	columns := lo.Map(d.columns, func(c *Column, _ int) *Column { return c.take(rows) })
	out, err := newDataset(d.view, d.schema.Version, ids, columns)
	if err != nil {
		panic(errors.Annotate(err, "row selection of a valid dataset"))
	}
	return out
}

// Select returns the given rows identified by sample id, in the given order.
func (d *Dataset) Select(ids []string) (*Dataset, error) {
	rows := make([]int, len(ids))
	for i, id := range ids {
		r, ok := d.index[id]
		if !ok {
			return nil, base.Validationf("sample %q not found in %s", id, d.view)
		}
		rows[i] = r
	}
	return d.Take(rows)
}

// WithColumns returns a dataset with the same samples and a new feature set. The
// schema version is bumped.
func (d *Dataset) WithColumns(columns []*Column) (*Dataset, error) {
	return newDataset(d.view, d.schema.Version+1, d.ids, columns)
}

// WithIDs returns a dataset with renamed samples.
func (d *Dataset) WithIDs(ids []string) (*Dataset, error) {
	if len(ids) != len(d.ids) {
		return nil, base.Validationf("expected %d identifiers, got %d", len(d.ids), len(ids))
	}
	return newDataset(d.view, d.schema.Version, ids, d.columns)
}

// Dense returns the float cells as a samples by features matrix. Categorical columns
// and missing cells are rejected.
func (d *Dataset) Dense() (*mat.Dense, error) {
	if d.Count() == 0 || len(d.columns) == 0 {
		return nil, base.Validationf("%s has no cells (%d samples, %d features)", d.view, d.Count(), len(d.columns))
	}
	m := mat.NewDense(d.Count(), len(d.columns), nil)
	for j, col := range d.columns {
		if col.Kind == Categorical {
			return nil, base.Validationf("column %q of %s is categorical and must be encoded first", col.Name, d.view)
		}
		for i, v := range col.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, base.Validationf("column %q of %s has a missing or infinite cell for sample %q", col.Name, d.view, d.ids[i])
			}
			m.Set(i, j, v)
		}
	}
	return m, nil
}
