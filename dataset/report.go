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
	"github.com/montanaflynn/stats"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// MissingFraction returns the fraction of missing cells, 0 for an empty column.
func (c *Column) MissingFraction() float64 {
	if c.Len() == 0 {
		return 0
	}
	return float64(c.CountMissing()) / float64(c.Len())
}

type ColumnMissing struct {
	Column   string
	Fraction float64
}

// MissingReport profiles missing cells of one dataset.
type MissingReport struct {
	View       View
	Samples    int
	Features   int
	Columns    []ColumnMissing
	Incomplete int
	Median     float64
	P90        float64
	Max        float64
}

// ReportMissing computes the per-column missing fractions and their summary.
func ReportMissing(d *Dataset) MissingReport {
	report := MissingReport{
		View:     d.View(),
		Samples:  d.Count(),
		Features: d.NumColumns(),
		Columns: lo.Map(d.columns, func(c *Column, _ int) ColumnMissing {
			return ColumnMissing{Column: c.Name, Fraction: c.MissingFraction()}
		}),
	}
	report.Incomplete = lo.CountBy(report.Columns, func(c ColumnMissing) bool { return c.Fraction > 0 })
	fractions := stats.Float64Data(lo.Map(report.Columns, func(c ColumnMissing, _ int) float64 { return c.Fraction }))
	if len(fractions) > 0 {
		report.Median, _ = stats.Median(fractions)
		report.P90, _ = stats.Percentile(fractions, 90)
		report.Max, _ = stats.Max(fractions)
	}
	return report
}

func (r MissingReport) ZapFields() []zap.Field {
	return []zap.Field{
		zap.String("view", r.View.String()),
		zap.Int("samples", r.Samples),
		zap.Int("features", r.Features),
		zap.Int("incomplete_features", r.Incomplete),
		zap.Float64("median_missing", r.Median),
		zap.Float64("p90_missing", r.P90),
		zap.Float64("max_missing", r.Max),
	}
}
