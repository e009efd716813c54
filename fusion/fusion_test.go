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
	"fmt"
	"testing"

	"github.com/gorse-io/mofuse/base"
	"github.com/gorse-io/mofuse/dataset"
	"github.com/gorse-io/mofuse/pipeline"
	"github.com/gorse-io/mofuse/similarity"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func sampleIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("s%02d", i)
	}
	return ids
}

// blockUniform returns a normalized block diagonal kernel with equal blocks of size b.
func blockUniform(t *testing.T, blocks, b int) *similarity.Matrix {
	t.Helper()
	n := blocks * b
	data := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			switch {
			case i == j:
				data.SetSym(i, j, 0.5)
			case i/b == j/b:
				data.SetSym(i, j, 1/(2*float64(b-1)))
			}
		}
	}
	m, err := similarity.NewMatrix(sampleIDs(n), data)
	require.NoError(t, err)
	return m
}

func randomMatrix(t *testing.T, ids []string, seed int64) *similarity.Matrix {
	t.Helper()
	rng := base.NewRandomGenerator(seed)
	n := len(ids)
	data := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		data.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			data.SetSym(i, j, rng.Float64()*0.9+0.05)
		}
	}
	m, err := similarity.NewMatrix(ids, data)
	require.NoError(t, err)
	return m
}

// kernel builds an affinity matrix of two separated groups of samples.
func kernel(t *testing.T, n int) *similarity.Matrix {
	t.Helper()
	rng := base.NewRandomGenerator(7)
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = rng.NormalVector(4, float64(i%2)*3, 1)
	}
	d, err := dataset.NewNumeric(dataset.MRNA, sampleIDs(n), []string{"a", "b", "c", "d"}, rows)
	require.NoError(t, err)
	engine, err := similarity.NewEngine(similarity.DefaultNeighbors, similarity.DefaultMu)
	require.NoError(t, err)
	m, err := engine.Build(pipeline.Background(), d)
	require.NoError(t, err)
	return m
}

func TestNew(t *testing.T) {
	f, err := New("SNF", DefaultNeighbors, DefaultIterations)
	require.NoError(t, err)
	assert.Equal(t, "SNF", f.Name())
	f, err = New(MethodMean, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Mean", f.Name())
	_, err = New("median", DefaultNeighbors, DefaultIterations)
	assert.True(t, errors.Is(err, base.ErrValidation))
	_, err = New(MethodSNF, 0, DefaultIterations)
	assert.True(t, errors.Is(err, base.ErrValidation))
	_, err = New(MethodSNF, DefaultNeighbors, 0)
	assert.True(t, errors.Is(err, base.ErrValidation))
}

func TestMean(t *testing.T) {
	ids := []string{"a", "b"}
	a, err := similarity.NewMatrix(ids, mat.NewSymDense(2, []float64{1, 0.2, 0.2, 1}))
	require.NoError(t, err)
	b, err := similarity.NewMatrix(ids, mat.NewSymDense(2, []float64{0.8, 0.6, 0.6, 0.8}))
	require.NoError(t, err)
	fused, err := (&Mean{}).Fuse(pipeline.Background(), []*similarity.Matrix{a, b})
	require.NoError(t, err)
	assert.Equal(t, ids, fused.IDs())
	assert.InDelta(t, 0.9, fused.At(0, 0), 1e-12)
	assert.InDelta(t, 0.4, fused.At(0, 1), 1e-12)
}

func TestFuseRequiresSameSamples(t *testing.T) {
	a := randomMatrix(t, []string{"a", "b", "c"}, 1)
	b := randomMatrix(t, []string{"a", "c", "b"}, 2)
	snf, err := NewSNF(DefaultNeighbors, DefaultIterations)
	require.NoError(t, err)
	for _, f := range []Fuser{&Mean{}, snf} {
		_, err = f.Fuse(pipeline.Background(), []*similarity.Matrix{a, b})
		assert.True(t, errors.Is(err, base.ErrValidation), f.Name())
		_, err = f.Fuse(pipeline.Background(), nil)
		assert.True(t, errors.Is(err, base.ErrValidation), f.Name())
	}
}

func TestSNF_FixedPoint(t *testing.T) {
	m := blockUniform(t, 3, 4)
	snf, err := NewSNF(DefaultNeighbors, DefaultIterations)
	require.NoError(t, err)
	fused, err := snf.Fuse(pipeline.Background(), []*similarity.Matrix{m, m, m})
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(m.Sym(), fused.Sym(), 1e-9))

	// a single view diffuses through itself
	fused, err = snf.Fuse(pipeline.Background(), []*similarity.Matrix{m})
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(m.Sym(), fused.Sym(), 1e-9))
}

func TestSNF_IdenticalViews(t *testing.T) {
	m := kernel(t, 15)
	snf, err := NewSNF(DefaultNeighbors, DefaultIterations)
	require.NoError(t, err)
	single, err := snf.Fuse(pipeline.Background(), []*similarity.Matrix{m})
	require.NoError(t, err)
	for _, copies := range []int{2, 3, 5} {
		views := make([]*similarity.Matrix, copies)
		for i := range views {
			views[i] = m
		}
		fused, err := snf.Fuse(pipeline.Background(), views)
		require.NoError(t, err)
		assert.True(t, mat.EqualApprox(single.Sym(), fused.Sym(), 1e-9), copies)
	}
	for i := 0; i < single.Len(); i++ {
		assert.Equal(t, 0.5, single.At(i, i))
		var mass float64
		for j := 0; j < single.Len(); j++ {
			if j != i {
				mass += single.At(i, j)
			}
		}
		assert.InDelta(t, 0.5, mass, 1e-9)
	}
}

func TestBalance(t *testing.T) {
	w := randomMatrix(t, sampleIDs(6), 5).Sym()
	w.SetSym(0, 3, 0.001)
	p, err := balance(w)
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		assert.Equal(t, 0.5, p.At(i, i))
		var mass float64
		for j := 0; j < 6; j++ {
			assert.Equal(t, p.At(i, j), p.At(j, i))
			if j != i {
				mass += p.At(i, j)
			}
		}
		assert.InDelta(t, 0.5, mass, 1e-9)
	}
	// D·W·D keeps the cross ratios of the off-diagonal block
	ratio := func(a, b, c, d int) float64 {
		return p.At(a, b) * p.At(c, d) / (w.At(a, b) * w.At(c, d))
	}
	assert.InDelta(t, ratio(0, 1, 2, 3), ratio(0, 2, 1, 3), 1e-9)
	assert.InDelta(t, ratio(0, 1, 4, 5), ratio(0, 4, 1, 5), 1e-9)

	// an isolated sample cannot be balanced
	for j := 1; j < 6; j++ {
		w.SetSym(0, j, 0)
	}
	_, err = balance(w)
	assert.True(t, errors.Is(err, base.ErrNumericInstability))
}

func TestSNF_Fuse(t *testing.T) {
	ids := sampleIDs(10)
	views := []*similarity.Matrix{randomMatrix(t, ids, 1), randomMatrix(t, ids, 2), randomMatrix(t, ids, 3)}
	snf, err := NewSNF(4, 10)
	require.NoError(t, err)
	ctx := pipeline.Background()
	fused, err := snf.Fuse(ctx, views)
	require.NoError(t, err)
	assert.Equal(t, ids, fused.IDs())
	for i := 0; i < fused.Len(); i++ {
		assert.InDelta(t, 0.5, fused.At(i, i), 1e-12)
		var mass float64
		for j := 0; j < fused.Len(); j++ {
			assert.Equal(t, fused.At(i, j), fused.At(j, i))
			if j != i {
				mass += fused.At(i, j)
			}
		}
		assert.InDelta(t, 0.5, mass, 1e-9)
	}

	// deterministic
	again, err := snf.Fuse(pipeline.Background(), views)
	require.NoError(t, err)
	assert.True(t, mat.Equal(fused.Sym(), again.Sym()))

	// one span with one step per iteration
	spans := ctx.Tracer().List()
	require.Len(t, spans, 1)
	assert.Equal(t, "SNF", spans[0].Name)
	assert.Equal(t, 10, spans[0].Count)
}

func TestSNF_ZeroOffDiagonalMass(t *testing.T) {
	identity, err := similarity.NewMatrix([]string{"a", "b", "c"}, mat.NewSymDense(3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}))
	require.NoError(t, err)
	snf, err := NewSNF(DefaultNeighbors, DefaultIterations)
	require.NoError(t, err)
	_, err = snf.Fuse(pipeline.Background(), []*similarity.Matrix{identity})
	assert.True(t, errors.Is(err, base.ErrNumericInstability))
}
