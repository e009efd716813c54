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
	"sort"

	"github.com/gorse-io/mofuse/base"
	"github.com/gorse-io/mofuse/pipeline"
	"github.com/gorse-io/mofuse/similarity"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// KMedoids is partitioning around medoids on the distances of a similarity matrix.
// Medoids are seeded with k-medoids++ and improved by swaps until no swap lowers the
// total distance.
type KMedoids struct {
	Clusters int
	Seed     int64
	MaxIter  int
}

func (c *KMedoids) Name() string {
	return "KMedoids"
}

func (c *KMedoids) Cluster(ctx *pipeline.Context, m *similarity.Matrix) (*Assignment, error) {
	n := m.Len()
	if err := checkClusters(c.Clusters, n); err != nil {
		return nil, errors.Trace(err)
	}
	dist := m.Distances()
	medoids := c.init(dist)
	cost := totalCost(dist, medoids)

	iterations := 0
	for ; iterations < maxIter(c.MaxIter); iterations++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Trace(err)
		}
		bestCost, bestPos, bestSample := cost, -1, -1
		candidate := make([]int, len(medoids))
		for pos := range medoids {
			for h := 0; h < n; h++ {
				if lo.Contains(medoids, h) {
					continue
				}
				copy(candidate, medoids)
				candidate[pos] = h
				if swapped := totalCost(dist, candidate); swapped < bestCost-1e-12 {
					bestCost, bestPos, bestSample = swapped, pos, h
				}
			}
		}
		if bestPos < 0 {
			break
		}
		medoids[bestPos] = bestSample
		cost = bestCost
	}
	sort.Ints(medoids)

	labels := make([]int, n)
	for i := range labels {
		labels[i], _ = nearest(dist, medoids, i)
	}
	a, err := NewAssignment(m.IDs(), labels)
	if err != nil {
		return nil, errors.Trace(err)
	}
	ctx.Logger().Debug("k-medoids finished",
		zap.Int("clusters", c.Clusters),
		zap.Int("iterations", iterations),
		zap.Float64("cost", cost),
		zap.Ints("medoids", medoids))
	if err = checkPartition(a); err != nil {
		return nil, errors.Trace(err)
	}
	return a, nil
}

// init picks the first medoid uniformly and each further medoid with probability
// proportional to its squared distance from the closest chosen medoid.
func (c *KMedoids) init(dist *mat.SymDense) []int {
	n := dist.SymmetricDim()
	rng := base.NewRandomGenerator(c.Seed)
	medoids := []int{rng.Intn(n)}
	weights := make([]float64, n)
	for len(medoids) < c.Clusters {
		for i := range weights {
			_, d := nearest(dist, medoids, i)
			weights[i] = d * d
		}
		next := rng.WeightedChoice(weights)
		if next < 0 {
			// every sample coincides with a medoid
			for i := 0; i < n; i++ {
				if !lo.Contains(medoids, i) {
					next = i
					break
				}
			}
		}
		medoids = append(medoids, next)
	}
	return medoids
}

// nearest returns the position in medoids of the medoid closest to sample i. Ties go to
// the medoid with the lower sample index.
func nearest(dist mat.Symmetric, medoids []int, i int) (int, float64) {
	best, bestDist := -1, math.Inf(1)
	for pos, medoid := range medoids {
		d := dist.At(i, medoid)
		if best < 0 || d < bestDist || (d == bestDist && medoid < medoids[best]) {
			best, bestDist = pos, d
		}
	}
	return best, bestDist
}

func totalCost(dist mat.Symmetric, medoids []int) float64 {
	var cost float64
	for i := 0; i < dist.SymmetricDim(); i++ {
		_, d := nearest(dist, medoids, i)
		cost += d
	}
	return cost
}
