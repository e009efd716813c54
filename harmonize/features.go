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

package harmonize

import (
	"math"
	"sort"

	"github.com/gorse-io/mofuse/base"
	"github.com/gorse-io/mofuse/common/heap"
	"github.com/gorse-io/mofuse/dataset"
	"github.com/gorse-io/mofuse/pipeline"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultNanThreshold = 0.0
	DefaultVarianceTopK = 100
)

// FilterByNanPercentage keeps feature columns whose fraction of missing cells is at
// most Threshold.
type FilterByNanPercentage struct {
	Threshold float64
}

func NewFilterByNanPercentage(threshold float64) (*FilterByNanPercentage, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, base.Validationf("missing value threshold must be in [0, 1], got %v", threshold)
	}
	return &FilterByNanPercentage{Threshold: threshold}, nil
}

func (s *FilterByNanPercentage) Name() string {
	return "FilterByNanPercentage"
}

func (s *FilterByNanPercentage) Transform(ctx *pipeline.Context, in []*dataset.Dataset) ([]*dataset.Dataset, error) {
	return pipeline.Each(ctx, in, func(ctx *pipeline.Context, d *dataset.Dataset) (*dataset.Dataset, error) {
		kept := lo.Filter(d.Columns(), func(c *dataset.Column, _ int) bool {
			return c.MissingFraction() <= s.Threshold
		})
		ctx.Logger().Debug("filter by missing values",
			zap.Float64("threshold", s.Threshold),
			zap.Int("kept", len(kept)),
			zap.Int("dropped", d.NumColumns()-len(kept)))
		return d.WithColumns(kept)
	})
}

// FilterByVariance keeps the K feature columns of highest sample variance. Categorical
// columns are ranked by the variance of their codes but kept un-encoded. Columns with
// fewer than two observed cells have no variance and are never kept. Ties are broken
// by column order and the output keeps the original column order.
type FilterByVariance struct {
	K int
}

func NewFilterByVariance(k int) (*FilterByVariance, error) {
	if k <= 0 {
		return nil, base.Validationf("number of features to keep must be positive, got %d", k)
	}
	return &FilterByVariance{K: k}, nil
}

func (s *FilterByVariance) Name() string {
	return "FilterByVariance"
}

func (s *FilterByVariance) Transform(ctx *pipeline.Context, in []*dataset.Dataset) ([]*dataset.Dataset, error) {
	return pipeline.Each(ctx, in, func(ctx *pipeline.Context, d *dataset.Dataset) (*dataset.Dataset, error) {
		filter := heap.NewTopKFilter[int, float64](s.K)
		undefined := 0
		for j, col := range d.Columns() {
			variance, ok := columnVariance(col)
			if !ok {
				undefined++
				continue
			}
			filter.Push(j, variance)
		}
		indices := filter.PopAllValues()
		sort.Ints(indices)
		columns := d.Columns()
		kept := lo.Map(indices, func(j int, _ int) *dataset.Column { return columns[j] })
		ctx.Logger().Debug("filter by variance",
			zap.Int("k", s.K),
			zap.Int("kept", len(kept)),
			zap.Int("undefined", undefined))
		return d.WithColumns(kept)
	})
}

// columnVariance returns the sample variance of the observed cells.
func columnVariance(col *dataset.Column) (float64, bool) {
	var values []float64
	if col.Kind == dataset.Categorical {
		dict := dataset.NewSortedDict(col.Labels)
		for _, label := range col.Labels {
			if code, ok := dict.Lookup(label); ok {
				values = append(values, float64(code))
			}
		}
	} else {
		values = lo.Filter(col.Values, func(v float64, _ int) bool { return !math.IsNaN(v) })
	}
	if len(values) < 2 {
		return 0, false
	}
	variance := stat.Variance(values, nil)
	if math.IsNaN(variance) || math.IsInf(variance, 0) {
		return 0, false
	}
	return variance, true
}

// SelectColumns keeps the named columns in the given order.
type SelectColumns struct {
	Columns []string
}

func (s *SelectColumns) Name() string {
	return "SelectColumns"
}

func (s *SelectColumns) Transform(ctx *pipeline.Context, in []*dataset.Dataset) ([]*dataset.Dataset, error) {
	return pipeline.Each(ctx, in, func(ctx *pipeline.Context, d *dataset.Dataset) (*dataset.Dataset, error) {
		columns := make([]*dataset.Column, len(s.Columns))
		for i, name := range s.Columns {
			col, err := d.ColumnByName(name)
			if err != nil {
				return nil, err
			}
			columns[i] = col
		}
		return d.WithColumns(columns)
	})
}
