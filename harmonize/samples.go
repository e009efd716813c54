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
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/gorse-io/mofuse/base"
	"github.com/gorse-io/mofuse/dataset"
	"github.com/gorse-io/mofuse/pipeline"
	"go.uber.org/zap"
)

const (
	// sample type code of a primary solid tumor, at offset 13 of a TCGA barcode
	mainTumorCode   = "01"
	mainTumorOffset = 13

	DefaultQualityColumn = "patient.samples.sample.2.is_ffpe"
)

// RetainMainTumors keeps samples whose barcode carries the primary tumor sample type.
// Identifiers too short to carry a sample type are dropped.
type RetainMainTumors struct{}

func (s *RetainMainTumors) Name() string {
	return "RetainMainTumors"
}

func (s *RetainMainTumors) Transform(ctx *pipeline.Context, in []*dataset.Dataset) ([]*dataset.Dataset, error) {
	return pipeline.Each(ctx, in, func(ctx *pipeline.Context, d *dataset.Dataset) (*dataset.Dataset, error) {
		mask := bitset.New(uint(d.Count()))
		for i, id := range d.IDs() {
			if len(id) >= mainTumorOffset+len(mainTumorCode) && id[mainTumorOffset:mainTumorOffset+len(mainTumorCode)] == mainTumorCode {
				mask.Set(uint(i))
			}
		}
		out := d.Filter(mask)
		ctx.Logger().Debug("retain main tumors", zap.Int("kept", out.Count()), zap.Int("dropped", d.Count()-out.Count()))
		return out, nil
	})
}

// RemoveContaminatedSamples drops samples flagged by a boolean-like quality column,
// by default the FFPE preservation flag. Only samples explicitly marked clean are kept.
type RemoveContaminatedSamples struct {
	Column string
}

func NewRemoveContaminatedSamples(column string) *RemoveContaminatedSamples {
	if column == "" {
		column = DefaultQualityColumn
	}
	return &RemoveContaminatedSamples{Column: column}
}

func (s *RemoveContaminatedSamples) Name() string {
	return "RemoveContaminatedSamples"
}

func (s *RemoveContaminatedSamples) Transform(ctx *pipeline.Context, in []*dataset.Dataset) ([]*dataset.Dataset, error) {
	return pipeline.Each(ctx, in, func(ctx *pipeline.Context, d *dataset.Dataset) (*dataset.Dataset, error) {
		col, err := d.ColumnByName(s.Column)
		if err != nil {
			return nil, err
		}
		mask := bitset.New(uint(d.Count()))
		unparsed := 0
		for i := 0; i < d.Count(); i++ {
			flagged, ok := parseFlag(cellString(col, i))
			if !ok {
				unparsed++
			} else if !flagged {
				mask.Set(uint(i))
			}
		}
		out := d.Filter(mask)
		ctx.Logger().Debug("remove contaminated samples",
			zap.String("column", s.Column),
			zap.Int("kept", out.Count()),
			zap.Int("dropped", d.Count()-out.Count()),
			zap.Int("unparsed", unparsed))
		return out, nil
	})
}

// cellString renders a cell as text, empty for missing cells.
func cellString(col *dataset.Column, i int) string {
	if col.IsMissing(i) {
		return ""
	}
	switch col.Kind {
	case dataset.Categorical:
		return col.Labels[i]
	case dataset.Encoded:
		if col.Dict != nil {
			if s, ok := col.Dict.String(int(col.Values[i])); ok {
				return s
			}
		}
	}
	return strconv.FormatFloat(col.Values[i], 'f', -1, 64)
}

// parseFlag parses a boolean-like value case-insensitively.
func parseFlag(s string) (flagged, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "t", "1":
		return true, true
	case "no", "n", "false", "f", "0":
		return false, true
	default:
		return false, false
	}
}

// FilterSamples keeps samples for which a boolean expression over the sample's cells
// is true. Cells are addressed by column name, missing cells are nil.
type FilterSamples struct {
	Expression string
	program    *vm.Program
}

func NewFilterSamples(expression string) (*FilterSamples, error) {
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, base.Validationf("invalid sample filter %q: %v", expression, err)
	}
	return &FilterSamples{Expression: expression, program: program}, nil
}

func (s *FilterSamples) Name() string {
	return "FilterSamples"
}

func (s *FilterSamples) Transform(ctx *pipeline.Context, in []*dataset.Dataset) ([]*dataset.Dataset, error) {
	return pipeline.Each(ctx, in, func(ctx *pipeline.Context, d *dataset.Dataset) (*dataset.Dataset, error) {
		mask := bitset.New(uint(d.Count()))
		for i := 0; i < d.Count(); i++ {
			result, err := expr.Run(s.program, d.Row(i))
			if err != nil {
				return nil, base.Validationf("sample filter %q failed on sample %q: %v", s.Expression, d.ID(i), err)
			}
			if keep, _ := result.(bool); keep {
				mask.Set(uint(i))
			}
		}
		out := d.Filter(mask)
		ctx.Logger().Debug("filter samples", zap.String("expression", s.Expression), zap.Int("kept", out.Count()))
		return out, nil
	})
}
