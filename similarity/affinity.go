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

package similarity

import (
	"math"

	"github.com/gorse-io/mofuse/base"
	"github.com/gorse-io/mofuse/common/heap"
	"github.com/gorse-io/mofuse/common/parallel"
	"github.com/gorse-io/mofuse/dataset"
	"github.com/gorse-io/mofuse/pipeline"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultNeighbors = 20
	DefaultMu        = 0.5
)

// Engine builds scaled exponential kernel affinities. For samples i and j at Euclidean
// distance ρ(i,j), with mean_i the mean distance of i to its K nearest neighbours,
//
//	ε(i,j) = (mean_i + mean_j + ρ(i,j)) / 3
//	W(i,j) = exp(-ρ(i,j)² / (μ ε(i,j)))
type Engine struct {
	K  int
	Mu float64
}

func NewEngine(k int, mu float64) (*Engine, error) {
	if k <= 0 {
		return nil, base.Validationf("number of neighbours must be positive, got %d", k)
	}
	if mu <= 0 || math.IsNaN(mu) || math.IsInf(mu, 0) {
		return nil, base.Validationf("kernel scale must be positive, got %v", mu)
	}
	return &Engine{K: k, Mu: mu}, nil
}

// Build computes the affinity matrix of one standardized view. The view must be fully
// numeric without missing cells.
func (e *Engine) Build(ctx *pipeline.Context, d *dataset.Dataset) (*Matrix, error) {
	x, err := d.Dense()
	if err != nil {
		return nil, errors.Trace(err)
	}
	n, _ := x.Dims()
	if n < 2 {
		return nil, base.Validationf("affinity needs at least 2 samples, got %d", n)
	}
	dist, err := EuclideanDistances(ctx, x)
	if err != nil {
		return nil, errors.Trace(err)
	}
	k := min(e.K, n-1)
	means := make([]float64, n)
	for i := 0; i < n; i++ {
		nearest := heap.NewTopKFilter[int, float64](k)
		for j := 0; j < n; j++ {
			if j != i {
				nearest.Push(j, -dist.At(i, j))
			}
		}
		for _, elem := range nearest.PopAll() {
			means[i] -= elem.Weight
		}
		means[i] /= float64(k)
	}
	ids := d.IDs()
	w := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		w.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			rho := dist.At(i, j)
			epsilon := (means[i] + means[j] + rho) / 3
			if epsilon <= 0 {
				return nil, base.NumericInstabilityf("zero kernel bandwidth between %q and %q", ids[i], ids[j])
			}
			w.SetSym(i, j, math.Exp(-rho*rho/(e.Mu*epsilon)))
		}
	}
	ctx.Logger().Debug("affinity built",
		zap.Int("samples", n),
		zap.Int("neighbors", k),
		zap.Float64("mu", e.Mu))
	return NewMatrix(ids, w)
}

// BuildAll computes one affinity per view, in parallel across views with the jobs of
// the run context. The output order follows the input.
func (e *Engine) BuildAll(ctx *pipeline.Context, views []*dataset.Dataset) ([]*Matrix, error) {
	return parallel.Map(ctx.Context(), views, ctx.Jobs(), func(_ int, d *dataset.Dataset) (*Matrix, error) {
		m, err := e.Build(ctx.ForView(d.View()), d)
		if err != nil {
			return nil, errors.Annotatef(err, "affinity of view %s", d.View())
		}
		return m, nil
	})
}

// EuclideanDistances returns the pairwise distances between the rows of x.
func EuclideanDistances(ctx *pipeline.Context, x *mat.Dense) (*mat.SymDense, error) {
	n, _ := x.Dims()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = mat.Row(nil, i, x)
	}
	dist := mat.NewSymDense(n, nil)
	err := parallel.For(ctx.Context(), n, ctx.Jobs(), func(i int) {
		for j := i + 1; j < n; j++ {
			dist.SetSym(i, j, floats.Distance(rows[i], rows[j], 2))
		}
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return dist, nil
}
