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
	"math"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/mofuse/base"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"
)

// contingency counts co-occurrences of labels of two partitions of the same samples.
type contingency struct {
	n     int
	cells map[[2]int]int
	rows  map[int]int
	cols  map[int]int
}

func newContingency(truth, predicted []int) (*contingency, error) {
	if len(truth) != len(predicted) {
		return nil, base.Validationf("%d true labels for %d predicted labels", len(truth), len(predicted))
	}
	if len(truth) == 0 {
		return nil, base.Validationf("no labels to compare")
	}
	c := &contingency{
		n:     len(truth),
		cells: make(map[[2]int]int),
		rows:  lo.CountValues(truth),
		cols:  lo.CountValues(predicted),
	}
	for i := range truth {
		c.cells[[2]int{truth[i], predicted[i]}]++
	}
	return c, nil
}

func comb2(n int) float64 {
	return float64(n) * float64(n-1) / 2
}

// pairs returns the number of sample pairs grouped together by both partitions, by
// the true partition and by the predicted partition.
func (c *contingency) pairs() (both, truth, predicted float64) {
	for _, count := range c.cells {
		both += comb2(count)
	}
	for _, count := range c.rows {
		truth += comb2(count)
	}
	for _, count := range c.cols {
		predicted += comb2(count)
	}
	return
}

// RandScore is the fraction of sample pairs on which both partitions agree.
func RandScore(truth, predicted []int) (float64, error) {
	c, err := newContingency(truth, predicted)
	if err != nil {
		return 0, err
	}
	total := comb2(c.n)
	if total == 0 {
		return 1, nil
	}
	both, a, b := c.pairs()
	return (total + 2*both - a - b) / total, nil
}

// AdjustedRandScore is the Rand index corrected for chance. Identical trivial
// partitions score 1.
func AdjustedRandScore(truth, predicted []int) (float64, error) {
	c, err := newContingency(truth, predicted)
	if err != nil {
		return 0, err
	}
	total := comb2(c.n)
	both, a, b := c.pairs()
	if total == 0 {
		return 1, nil
	}
	expected := a * b / total
	maximum := (a + b) / 2
	if maximum == expected {
		return 1, nil
	}
	return (both - expected) / (maximum - expected), nil
}

// NormalizedMutualInfo is the mutual information normalized by the arithmetic mean of
// both entropies.
func NormalizedMutualInfo(truth, predicted []int) (float64, error) {
	c, err := newContingency(truth, predicted)
	if err != nil {
		return 0, err
	}
	// a single cluster on both sides is a perfect match
	if len(c.rows) == 1 && len(c.cols) == 1 {
		return 1, nil
	}
	n := float64(c.n)
	var mi float64
	for key, count := range c.cells {
		p := float64(count) / n
		mi += p * math.Log(float64(count)*n/(float64(c.rows[key[0]])*float64(c.cols[key[1]])))
	}
	normalizer := (entropy(c.rows, n) + entropy(c.cols, n)) / 2
	if normalizer <= 0 {
		return 0, nil
	}
	return math.Max(0, math.Min(1, mi/normalizer)), nil
}

func entropy(counts map[int]int, n float64) float64 {
	var h float64
	for _, count := range counts {
		p := float64(count) / n
		h -= p * math.Log(p)
	}
	return h
}

// SilhouetteScore is the mean silhouette coefficient of a partition over a distance matrix.
// Samples alone in their cluster score 0. The partition must have between 2 and n-1
// clusters.
func SilhouetteScore(distances mat.Symmetric, labels []int) (float64, error) {
	n := distances.SymmetricDim()
	if n != len(labels) {
		return 0, base.Validationf("%d labels for %d samples", len(labels), n)
	}
	clusters := mapset.NewThreadUnsafeSet(labels...)
	if k := clusters.Cardinality(); k < 2 || k > n-1 {
		return 0, base.DegeneratePartitionf("silhouette needs 2 to %d clusters, got %d", n-1, k)
	}
	sizes := lo.CountValues(labels)
	var total float64
	for i := 0; i < n; i++ {
		if sizes[labels[i]] == 1 {
			continue
		}
		sums := make(map[int]float64, len(sizes))
		for j := 0; j < n; j++ {
			if j != i {
				sums[labels[j]] += distances.At(i, j)
			}
		}
		a := sums[labels[i]] / float64(sizes[labels[i]]-1)
		b := math.Inf(1)
		for label, size := range sizes {
			if label != labels[i] {
				b = math.Min(b, sums[label]/float64(size))
			}
		}
		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	return total / float64(n), nil
}
