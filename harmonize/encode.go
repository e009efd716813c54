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

	"github.com/gorse-io/mofuse/base"
	"github.com/gorse-io/mofuse/dataset"
	"github.com/gorse-io/mofuse/pipeline"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// EncodeCategoricalData replaces categorical columns by integer codes. Codes follow
// the lexicographic order of the distinct labels; missing cells stay missing. With
// Columns set, only the named columns are encoded.
type EncodeCategoricalData struct {
	Columns []string
}

func (s *EncodeCategoricalData) Name() string {
	return "EncodeCategoricalData"
}

func (s *EncodeCategoricalData) Transform(ctx *pipeline.Context, in []*dataset.Dataset) ([]*dataset.Dataset, error) {
	return pipeline.Each(ctx, in, func(ctx *pipeline.Context, d *dataset.Dataset) (*dataset.Dataset, error) {
		for _, name := range s.Columns {
			col, err := d.ColumnByName(name)
			if err != nil {
				return nil, err
			}
			if col.Kind != dataset.Categorical {
				return nil, base.Validationf("column %q is %s, not categorical", name, col.Kind)
			}
		}
		encoded := 0
		columns := lo.Map(d.Columns(), func(col *dataset.Column, _ int) *dataset.Column {
			if col.Kind != dataset.Categorical || (len(s.Columns) > 0 && !lo.Contains(s.Columns, col.Name)) {
				return col
			}
			encoded++
			return EncodeColumn(col)
		})
		ctx.Logger().Debug("encode categorical data", zap.Int("encoded", encoded))
		return d.WithColumns(columns)
	})
}

// EncodeColumn encodes one categorical column.
func EncodeColumn(col *dataset.Column) *dataset.Column {
	dict := dataset.NewSortedDict(col.Labels)
	codes := lo.Map(col.Labels, func(label string, _ int) float64 {
		if code, ok := dict.Lookup(label); ok {
			return float64(code)
		}
		return math.NaN()
	})
	return dataset.NewEncodedColumn(col.Name, codes, dict)
}

// Standardize rescales every numeric column to zero mean and unit sample standard
// deviation. Encoded columns are left untouched. A constant column cannot be
// standardized and fails the step.
type Standardize struct{}

func (s *Standardize) Name() string {
	return "Standardize"
}

func (s *Standardize) Transform(ctx *pipeline.Context, in []*dataset.Dataset) ([]*dataset.Dataset, error) {
	return pipeline.Each(ctx, in, func(ctx *pipeline.Context, d *dataset.Dataset) (*dataset.Dataset, error) {
		columns := d.Columns()
		for j, col := range columns {
			if col.Kind != dataset.Numeric {
				continue
			}
			observed := lo.Filter(col.Values, func(v float64, _ int) bool { return !math.IsNaN(v) })
			mean, std := stat.MeanStdDev(observed, nil)
			if len(observed) < 2 || std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
				return nil, base.NumericInstabilityf("column %q has zero or undefined standard deviation", col.Name)
			}
			values := lo.Map(col.Values, func(v float64, _ int) float64 { return (v - mean) / std })
			columns[j] = dataset.NewNumericColumn(col.Name, values)
		}
		return d.WithColumns(columns)
	})
}

// ImputeMissing fills missing float cells with the column mean. Categorical columns
// must be encoded first.
type ImputeMissing struct{}

func (s *ImputeMissing) Name() string {
	return "ImputeMissing"
}

func (s *ImputeMissing) Transform(ctx *pipeline.Context, in []*dataset.Dataset) ([]*dataset.Dataset, error) {
	return pipeline.Each(ctx, in, func(ctx *pipeline.Context, d *dataset.Dataset) (*dataset.Dataset, error) {
		columns := d.Columns()
		imputed := 0
		for j, col := range columns {
			missing := col.CountMissing()
			if missing == 0 {
				continue
			}
			if col.Kind == dataset.Categorical {
				return nil, base.Validationf("column %q is categorical and must be encoded before imputation", col.Name)
			}
			if missing == col.Len() {
				return nil, base.Validationf("column %q has no observed cells", col.Name)
			}
			mean := stat.Mean(lo.Filter(col.Values, func(v float64, _ int) bool { return !math.IsNaN(v) }), nil)
			values := lo.Map(col.Values, func(v float64, _ int) float64 {
				if math.IsNaN(v) {
					return mean
				}
				return v
			})
			columns[j] = &dataset.Column{Feature: col.Feature, Values: values, Dict: col.Dict}
			imputed += missing
		}
		ctx.Logger().Debug("impute missing values", zap.Int("cells", imputed))
		return d.WithColumns(columns)
	})
}
