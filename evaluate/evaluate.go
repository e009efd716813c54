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

package evaluate

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/mofuse/base"
	"github.com/gorse-io/mofuse/cluster"
	"github.com/gorse-io/mofuse/similarity"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

const (
	Rand       = "Rand Score"
	ARI        = "Adjusted Rand Score"
	NMI        = "Normalized Mutual Info Score"
	Silhouette = "Silhouette Score"
)

var (
	RandRange       = Range{Min: 0, Max: 1}
	ARIRange        = Range{Min: -0.5, Max: 1}
	NMIRange        = Range{Min: 0, Max: 1}
	SilhouetteRange = Range{Min: -1, Max: 1}
)

type Range struct {
	Min float64
	Max float64
}

// Metric is a named score with its theoretical range.
type Metric struct {
	Label string
	Value float64
	Range Range
}

// Normalized maps the value into [0, 1] using the metric range.
func (m Metric) Normalized() float64 {
	return (m.Value - m.Range.Min) / (m.Range.Max - m.Range.Min)
}

// Bundle holds the metrics of one clustering outcome.
type Bundle struct {
	Label   string
	Metrics []Metric
}

// Get returns the metric with the given label.
func (b Bundle) Get(label string) (Metric, bool) {
	for _, m := range b.Metrics {
		if m.Label == label {
			return m, true
		}
	}
	return Metric{}, false
}

func (b Bundle) ZapFields() []zap.Field {
	fields := []zap.Field{zap.String("label", b.Label)}
	for _, m := range b.Metrics {
		fields = append(fields, zap.Float64(m.Label, m.Value))
	}
	return fields
}

// Evaluate compares a predicted partition against the truth. Both assignments and the
// basis matrix must cover the same samples; the silhouette is computed on the distances
// of the basis matrix.
func Evaluate(label string, truth, predicted *cluster.Assignment, basis *similarity.Matrix) (Bundle, error) {
	ids := predicted.IDs()
	if !mapset.NewThreadUnsafeSet(ids...).Equal(mapset.NewThreadUnsafeSet(truth.IDs()...)) {
		return Bundle{}, base.Validationf("%s: truth covers %d samples and prediction covers %d different samples",
			label, truth.Len(), predicted.Len())
	}
	if !mapset.NewThreadUnsafeSet(ids...).Equal(mapset.NewThreadUnsafeSet(basis.IDs()...)) {
		return Bundle{}, base.Validationf("%s: similarity matrix does not cover the predicted samples", label)
	}
	truth, err := truth.Align(ids)
	if err != nil {
		return Bundle{}, errors.Trace(err)
	}
	y, yPred := truth.Labels(), predicted.Labels()

	rand, err := RandScore(y, yPred)
	if err != nil {
		return Bundle{}, errors.Annotate(err, label)
	}
	ari, err := AdjustedRandScore(y, yPred)
	if err != nil {
		return Bundle{}, errors.Annotate(err, label)
	}
	nmi, err := NormalizedMutualInfo(y, yPred)
	if err != nil {
		return Bundle{}, errors.Annotate(err, label)
	}
	silhouette, err := SilhouetteScore(alignDistances(basis, ids), yPred)
	if err != nil {
		return Bundle{}, errors.Annotate(err, label)
	}
	return Bundle{
		Label: label,
		Metrics: []Metric{
			{Label: Rand, Value: rand, Range: RandRange},
			{Label: ARI, Value: ari, Range: ARIRange},
			{Label: NMI, Value: nmi, Range: NMIRange},
			{Label: Silhouette, Value: silhouette, Range: SilhouetteRange},
		},
	}, nil
}

// alignDistances returns the distances of the basis matrix in the given sample order.
func alignDistances(basis *similarity.Matrix, ids []string) *mat.SymDense {
	dist := basis.Distances()
	index := make(map[string]int, basis.Len())
	for i, id := range basis.IDs() {
		index[id] = i
	}
	aligned := mat.NewSymDense(len(ids), nil)
	for i := range ids {
		for j := i; j < len(ids); j++ {
			aligned.SetSym(i, j, dist.At(index[ids[i]], index[ids[j]]))
		}
	}
	return aligned
}
