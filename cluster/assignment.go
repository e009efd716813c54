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

package cluster

import (
	"math"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/mofuse/base"
	"github.com/gorse-io/mofuse/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// Assignment maps samples to cluster labels. Only the partition induced by the labels
// is meaningful, not the label values.
type Assignment struct {
	ids    []string
	labels []int
}

func NewAssignment(ids []string, labels []int) (*Assignment, error) {
	if len(ids) != len(labels) {
		return nil, base.Validationf("%d labels for %d samples", len(labels), len(ids))
	}
	if len(lo.Uniq(ids)) != len(ids) {
		return nil, base.Validationf("duplicate sample identifiers in assignment")
	}
	return &Assignment{
		ids:    append([]string(nil), ids...),
		labels: append([]int(nil), labels...),
	}, nil
}

// FromColumn reads ground truth labels from a column. Numeric columns must hold
// integers, categorical labels are coded in lexicographic order and encoded columns keep
// their codes. Missing cells are rejected.
func FromColumn(d *dataset.Dataset, name string) (*Assignment, error) {
	col, err := d.ColumnByName(name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if missing := col.CountMissing(); missing > 0 {
		return nil, base.Validationf("label column %q has %d missing cells", name, missing)
	}
	labels := make([]int, col.Len())
	if col.Kind == dataset.Categorical {
		dict := dataset.NewSortedDict(col.Labels)
		for i, label := range col.Labels {
			labels[i], _ = dict.Lookup(label)
		}
	} else {
		for i, v := range col.Values {
			if v != math.Trunc(v) {
				return nil, base.Validationf("label column %q has a non-integer value %v", name, v)
			}
			labels[i] = int(v)
		}
	}
	return NewAssignment(d.IDs(), labels)
}

func (a *Assignment) Len() int {
	return len(a.ids)
}

// IDs returns a copy of the sample identifiers.
func (a *Assignment) IDs() []string {
	return append([]string(nil), a.ids...)
}

// Labels returns a copy of the labels.
func (a *Assignment) Labels() []int {
	return append([]int(nil), a.labels...)
}

// Label returns the label of a sample.
func (a *Assignment) Label(id string) (int, bool) {
	for i, x := range a.ids {
		if x == id {
			return a.labels[i], true
		}
	}
	return 0, false
}

// NumClusters returns the number of distinct labels.
func (a *Assignment) NumClusters() int {
	return mapset.NewThreadUnsafeSet(a.labels...).Cardinality()
}

// Sizes returns the number of samples of every label.
func (a *Assignment) Sizes() map[int]int {
	return lo.CountValues(a.labels)
}

// Relabel renumbers labels 0, 1, ... in order of first appearance.
func (a *Assignment) Relabel() *Assignment {
	codes := make(map[int]int)
	labels := make([]int, len(a.labels))
	for i, label := range a.labels {
		code, ok := codes[label]
		if !ok {
			code = len(codes)
			codes[label] = code
		}
		labels[i] = code
	}
	return &Assignment{ids: a.IDs(), labels: labels}
}

// Align reorders the assignment to the given sample order. The identifier sets must
// match exactly.
func (a *Assignment) Align(ids []string) (*Assignment, error) {
	if len(ids) != len(a.ids) {
		return nil, base.Validationf("cannot align %d samples to %d samples", len(a.ids), len(ids))
	}
	index := make(map[string]int, len(a.ids))
	for i, id := range a.ids {
		index[id] = i
	}
	labels := make([]int, len(ids))
	for i, id := range ids {
		j, ok := index[id]
		if !ok {
			return nil, base.Validationf("sample %q is not assigned", id)
		}
		labels[i] = a.labels[j]
	}
	return NewAssignment(ids, labels)
}

func checkPartition(a *Assignment) error {
	switch a.NumClusters() {
	case 1:
		return base.DegeneratePartitionf("all %d samples fell into a single cluster", a.Len())
	case a.Len():
		return base.DegeneratePartitionf("every one of %d samples is its own cluster", a.Len())
	}
	return nil
}
