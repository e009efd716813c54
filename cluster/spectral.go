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

	"github.com/gorse-io/mofuse/base"
	"github.com/gorse-io/mofuse/common/heap"
	"github.com/gorse-io/mofuse/common/parallel"
	"github.com/gorse-io/mofuse/pipeline"
	"github.com/gorse-io/mofuse/similarity"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const kmeansTolerance = 1e-8

// Spectral embeds samples with the leading eigenvectors of the normalized affinity
// D^-1/2 A D^-1/2 and partitions the embedding with k-means.
type Spectral struct {
	Clusters  int
	Neighbors int
	Seed      int64
	MaxIter   int
}

func (c *Spectral) Name() string {
	return "Spectral"
}

func (c *Spectral) Cluster(ctx *pipeline.Context, m *similarity.Matrix) (*Assignment, error) {
	n := m.Len()
	if err := checkClusters(c.Clusters, n); err != nil {
		return nil, errors.Trace(err)
	}
	affinity := m.Sym()
	if c.Neighbors > 0 && c.Neighbors < n-1 {
		affinity = sparsify(affinity, c.Neighbors)
	}
	embedding, err := embed(affinity, c.Clusters)
	if err != nil {
		return nil, errors.Trace(err)
	}
	rng := base.NewRandomGenerator(c.Seed)
	labels, iterations, err := kmeans(ctx, embedding, c.Clusters, maxIter(c.MaxIter), rng)
	if err != nil {
		return nil, errors.Trace(err)
	}
	a, err := NewAssignment(m.IDs(), labels)
	if err != nil {
		return nil, errors.Trace(err)
	}
	ctx.Logger().Debug("spectral clustering finished",
		zap.Int("clusters", c.Clusters),
		zap.Int("neighbors", c.Neighbors),
		zap.Int("iterations", iterations))
	if err = checkPartition(a); err != nil {
		return nil, errors.Trace(err)
	}
	return a, nil
}

// sparsify keeps every sample and its k most similar neighbours, then symmetrizes the
// graph as (A + Aᵀ)/2.
func sparsify(a *mat.SymDense, k int) *mat.SymDense {
	n := a.SymmetricDim()
	graph := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		graph.Set(i, i, a.At(i, i))
		neighbors := heap.NewTopKFilter[int, float64](k)
		for j := 0; j < n; j++ {
			if j != i {
				neighbors.Push(j, a.At(i, j))
			}
		}
		for _, elem := range neighbors.PopAll() {
			graph.Set(i, elem.Value, elem.Weight)
		}
	}
	return similarity.Symmetrize(graph)
}

// embed returns the row-normalized top k eigenvectors of D^-1/2 A D^-1/2.
func embed(a *mat.SymDense, k int) (*mat.Dense, error) {
	n := a.SymmetricDim()
	scale := make([]float64, n)
	for i := range scale {
		var degree float64
		for j := 0; j < n; j++ {
			degree += a.At(i, j)
		}
		if degree <= 0 {
			return nil, base.NumericInstabilityf("sample %d has zero degree in the affinity graph", i)
		}
		scale[i] = 1 / math.Sqrt(degree)
	}
	laplacian := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			laplacian.SetSym(i, j, scale[i]*a.At(i, j)*scale[j])
		}
	}
	var eigen mat.EigenSym
	if ok := eigen.Factorize(laplacian, true); !ok {
		return nil, base.NumericInstabilityf("eigendecomposition of the normalized affinity failed")
	}
	var vectors mat.Dense
	eigen.VectorsTo(&vectors)
	// eigenvalues are in ascending order
	embedding := mat.DenseCopyOf(vectors.Slice(0, n, n-k, n))
	for i := 0; i < n; i++ {
		row := embedding.RawRowView(i)
		if norm := floats.Norm(row, 2); norm > 0 {
			floats.Scale(1/norm, row)
		}
	}
	return embedding, nil
}

// kmeans runs Lloyd iterations from a k-means++ seeding. Ties go to the lower centroid.
// Samples are assigned to centroids with the workers of ctx.
func kmeans(ctx *pipeline.Context, x *mat.Dense, k, maxIter int, rng base.RandomGenerator) ([]int, int, error) {
	n, _ := x.Dims()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = x.RawRowView(i)
	}

	centroids := make([][]float64, 0, k)
	for _, i := range seed(rows, k, rng) {
		centroids = append(centroids, append([]float64(nil), rows[i]...))
	}

	labels := make([]int, n)
	assign := func() error {
		return parallel.ForEach(ctx.Context(), rows, ctx.Jobs(), func(i int, row []float64) {
			labels[i], _ = closest(centroids, row)
		})
	}
	iterations := 0
	for iterations < maxIter {
		iterations++
		if err := assign(); err != nil {
			return nil, iterations, errors.Trace(err)
		}
		var shift float64
		for c := range centroids {
			sum := make([]float64, len(centroids[c]))
			count := 0
			for i, row := range rows {
				if labels[i] == c {
					floats.Add(sum, row)
					count++
				}
			}
			if count == 0 {
				continue
			}
			floats.Scale(1/float64(count), sum)
			d := floats.Distance(sum, centroids[c], 2)
			shift += d * d
			centroids[c] = sum
		}
		if shift <= kmeansTolerance {
			break
		}
	}
	if err := assign(); err != nil {
		return nil, iterations, errors.Trace(err)
	}
	return labels, iterations, nil
}

// seed picks k distinct rows by k-means++: the first uniformly, each further row with
// probability proportional to its squared distance from the closest chosen row.
func seed(rows [][]float64, k int, rng base.RandomGenerator) []int {
	n := len(rows)
	chosen := []int{rng.Intn(n)}
	centroids := [][]float64{rows[chosen[0]]}
	weights := make([]float64, n)
	for len(chosen) < k {
		for i, row := range rows {
			if lo.Contains(chosen, i) {
				weights[i] = 0
			} else {
				_, weights[i] = closest(centroids, row)
			}
		}
		next := rng.WeightedChoice(weights)
		if next < 0 {
			// every sample coincides with a chosen row
			next, _ = lo.Find(lo.Range(n), func(i int) bool {
				return !lo.Contains(chosen, i)
			})
		}
		chosen = append(chosen, next)
		centroids = append(centroids, rows[next])
	}
	return chosen
}

// closest returns the index of the nearest centroid and the squared distance to it.
func closest(centroids [][]float64, row []float64) (int, float64) {
	best, bestDist := -1, math.Inf(1)
	for c, centroid := range centroids {
		d := floats.Distance(row, centroid, 2)
		if d*d < bestDist {
			best, bestDist = c, d*d
		}
	}
	return best, bestDist
}
