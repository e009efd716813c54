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
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/mofuse/base"
	"github.com/gorse-io/mofuse/dataset"
	"github.com/gorse-io/mofuse/pipeline"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// DefaultBarcodeLength is the length of a TCGA patient barcode, e.g. TCGA-AA-0001.
const DefaultBarcodeLength = 12

// TruncateBarcode shortens sample barcodes to patient barcodes. When two samples of one
// patient collapse onto the same identifier the first one is kept.
type TruncateBarcode struct {
	Length int
}

func NewTruncateBarcode() *TruncateBarcode {
	return &TruncateBarcode{Length: DefaultBarcodeLength}
}

func (s *TruncateBarcode) Name() string {
	return "TruncateBarcode"
}

func (s *TruncateBarcode) length() int {
	if s.Length <= 0 {
		return DefaultBarcodeLength
	}
	return s.Length
}

func (s *TruncateBarcode) Transform(ctx *pipeline.Context, in []*dataset.Dataset) ([]*dataset.Dataset, error) {
	length := s.length()
	return pipeline.Each(ctx, in, func(ctx *pipeline.Context, d *dataset.Dataset) (*dataset.Dataset, error) {
		seen := mapset.NewThreadUnsafeSet[string]()
		var rows []int
		var ids []string
		for i, id := range d.IDs() {
			if len(id) < length {
				return nil, base.Validationf("identifier %q is shorter than %d characters", id, length)
			}
			short := id[:length]
			if seen.Contains(short) {
				continue
			}
			seen.Add(short)
			rows = append(rows, i)
			ids = append(ids, short)
		}
		if dropped := d.Count() - len(rows); dropped > 0 {
			ctx.Logger().Warn("duplicate identifiers after barcode truncation", zap.Int("dropped", dropped))
		}
		out, err := d.Take(rows)
		if err != nil {
			return nil, err
		}
		return out.WithIDs(ids)
	})
}

// IntersectAndOrder restricts every dataset to the samples present in all of them and
// orders samples lexicographically, so that row i refers to the same sample everywhere.
type IntersectAndOrder struct{}

func (s *IntersectAndOrder) Name() string {
	return "IntersectAndOrder"
}

func (s *IntersectAndOrder) Transform(ctx *pipeline.Context, in []*dataset.Dataset) ([]*dataset.Dataset, error) {
	if len(in) == 0 {
		return nil, base.Validationf("intersection needs at least one dataset")
	}
	common := mapset.NewSet(in[0].IDs()...)
	for _, d := range in[1:] {
		common = common.Intersect(mapset.NewSet(d.IDs()...))
	}
	if common.Cardinality() == 0 {
		return nil, base.Validationf("no sample is shared by %v", lo.Map(in, func(d *dataset.Dataset, _ int) dataset.View { return d.View() }))
	}
	ids := common.ToSlice()
	sort.Strings(ids)
	out := make([]*dataset.Dataset, len(in))
	for i, d := range in {
		var err error
		if out[i], err = d.Select(ids); err != nil {
			return nil, err
		}
	}
	ctx.Logger().Debug("intersect datasets", zap.Int("views", len(in)), zap.Int("samples", len(ids)))
	return out, nil
}

// SortByID orders samples lexicographically by identifier.
type SortByID struct{}

func (s *SortByID) Name() string {
	return "SortByID"
}

func (s *SortByID) Transform(ctx *pipeline.Context, in []*dataset.Dataset) ([]*dataset.Dataset, error) {
	return pipeline.Each(ctx, in, func(ctx *pipeline.Context, d *dataset.Dataset) (*dataset.Dataset, error) {
		ids := d.IDs()
		sort.Strings(ids)
		return d.Select(ids)
	})
}
