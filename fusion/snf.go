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

package fusion

import (
	"math"

	"github.com/gorse-io/mofuse/base"
	"github.com/gorse-io/mofuse/common/heap"
	"github.com/gorse-io/mofuse/pipeline"
	"github.com/gorse-io/mofuse/similarity"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultNeighbors  = 20
	DefaultIterations = 20

	balanceTolerance = 1e-12
	balanceMaxIter   = 10000
)

// SNF is similarity network fusion. Every view keeps a full kernel P and a sparse local
// kernel S built from its K nearest neighbours. In each round the full kernel of a view
// is diffused through its local kernel over the average of the other views:
//
//	P_v = S_v × mean(P_u, u ≠ v) × S_vᵀ
//
// The fused matrix is the average of the final full kernels, balanced so that it is
// symmetric with diagonal 0.5 and an off-diagonal mass of 0.5 in every row.
type SNF struct {
	K          int
	Iterations int
}

func NewSNF(k, iterations int) (*SNF, error) {
	if k <= 0 {
		return nil, base.Validationf("number of neighbours must be positive, got %d", k)
	}
	if iterations <= 0 {
		return nil, base.Validationf("number of iterations must be positive, got %d", iterations)
	}
	return &SNF{K: k, Iterations: iterations}, nil
}

func (f *SNF) Name() string {
	return "SNF"
}

func (f *SNF) Fuse(ctx *pipeline.Context, views []*similarity.Matrix) (*similarity.Matrix, error) {
	if err := checkInputs(views); err != nil {
		return nil, errors.Trace(err)
	}
	n := views[0].Len()
	k := min(f.K, n)
	ctx, span := ctx.StartSpan("SNF", f.Iterations)
	defer span.End()

	full := make([]*mat.Dense, len(views))
	local := make([]*mat.Dense, len(views))
	for v, m := range views {
		p, err := normalize(m.Sym())
		if err != nil {
			span.Fail(err)
			return nil, errors.Annotatef(err, "full kernel of view %d", v)
		}
		full[v] = p
		if local[v], err = localKernel(p, k); err != nil {
			span.Fail(err)
			return nil, errors.Annotatef(err, "local kernel of view %d", v)
		}
	}

	for t := 0; t < f.Iterations; t++ {
		if err := ctx.Err(); err != nil {
			span.Fail(err)
			return nil, errors.Trace(err)
		}
		next := make([]*mat.Dense, len(views))
		for v := range views {
			others := averageOthers(full, v)
			var tmp, diffused mat.Dense
			tmp.Mul(local[v], others)
			diffused.Mul(&tmp, local[v].T())
			p, err := normalize(&diffused)
			if err == nil {
				err = checkFinite(p)
			}
			if err != nil {
				span.Fail(err)
				return nil, errors.Annotatef(err, "view %d at iteration %d", v, t+1)
			}
			next[v] = p
		}
		full = next
		span.Add(1)
	}

	sum := mat.NewDense(n, n, nil)
	for _, p := range full {
		sum.Add(sum, p)
	}
	sum.Scale(1/float64(len(full)), sum)
	fused, err := balance(sum)
	if err != nil {
		span.Fail(err)
		return nil, errors.Annotatef(err, "fused kernel")
	}
	ctx.Logger().Debug("similarity network fusion finished",
		zap.Int("views", len(views)),
		zap.Int("samples", n),
		zap.Int("neighbors", k),
		zap.Int("iterations", f.Iterations))
	return similarity.NewMatrixFromDense(views[0].IDs(), fused)
}

// normalize scales off-diagonal entries so that each row carries an off-diagonal mass of
// one half, sets the diagonal to one half and symmetrizes the result.
func normalize(w mat.Matrix) (*mat.Dense, error) {
	n, _ := w.Dims()
	p := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		var mass float64
		for j := 0; j < n; j++ {
			if j != i {
				mass += w.At(i, j)
			}
		}
		if mass <= 0 || math.IsNaN(mass) || math.IsInf(mass, 0) {
			return nil, base.NumericInstabilityf("row %d has off-diagonal mass %v", i, mass)
		}
		for j := 0; j < n; j++ {
			if j == i {
				p.Set(i, j, 0.5)
			} else {
				p.Set(i, j, w.At(i, j)/(2*mass))
			}
		}
	}
	return mat.DenseCopyOf(similarity.Symmetrize(p)), nil
}

// balance scales the off-diagonal block of a symmetric non-negative matrix as D·W·D, with
// D diagonal, until every row carries an off-diagonal mass of one half. The diagonal is
// set to one half. D is found by damped symmetric Sinkhorn-Knopp iterations.
func balance(w mat.Matrix) (*mat.Dense, error) {
	n, _ := w.Dims()
	d := make([]float64, n)
	for i := range d {
		d[i] = 1
	}
	mass := make([]float64, n)
	for iter := 0; ; iter++ {
		var worst float64
		for i := 0; i < n; i++ {
			var sum float64
			for j := 0; j < n; j++ {
				if j != i {
					sum += w.At(i, j) * d[j]
				}
			}
			mass[i] = d[i] * sum
			if mass[i] <= 0 || math.IsNaN(mass[i]) || math.IsInf(mass[i], 0) {
				return nil, base.NumericInstabilityf("row %d has off-diagonal mass %v", i, mass[i])
			}
			worst = max(worst, math.Abs(mass[i]-0.5))
		}
		if worst <= balanceTolerance {
			break
		}
		if iter == balanceMaxIter {
			return nil, base.NumericInstabilityf("off-diagonal mass did not converge after %d rounds, off by %v", iter, worst)
		}
		for i := range d {
			d[i] *= math.Sqrt(0.5 / mass[i])
		}
	}
	p := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if j == i {
				p.Set(i, j, 0.5)
			} else {
				p.Set(i, j, d[i]*d[j]*w.At(i, j))
			}
		}
	}
	return p, nil
}

// localKernel keeps the k largest entries of every row, the diagonal included, and
// scales each row to sum to one. Ties favour the lower column index.
func localKernel(p *mat.Dense, k int) (*mat.Dense, error) {
	n, _ := p.Dims()
	s := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		nearest := heap.NewTopKFilter[int, float64](k)
		for j := 0; j < n; j++ {
			nearest.Push(j, p.At(i, j))
		}
		elems := nearest.PopAll()
		var sum float64
		for _, elem := range elems {
			sum += elem.Weight
		}
		if sum <= 0 {
			return nil, base.NumericInstabilityf("row %d of the local kernel sums to %v", i, sum)
		}
		for _, elem := range elems {
			s.Set(i, elem.Value, elem.Weight/sum)
		}
	}
	return s, nil
}

// averageOthers averages every full kernel except the v-th one. A single view is
// averaged with itself.
func averageOthers(full []*mat.Dense, v int) *mat.Dense {
	if len(full) == 1 {
		return full[0]
	}
	n, _ := full[0].Dims()
	avg := mat.NewDense(n, n, nil)
	for u, p := range full {
		if u != v {
			avg.Add(avg, p)
		}
	}
	avg.Scale(1/float64(len(full)-1), avg)
	return avg
}

func checkFinite(m mat.Matrix) error {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return base.NumericInstabilityf("non-finite value at (%d, %d)", i, j)
			}
		}
	}
	return nil
}
