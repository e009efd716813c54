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
	"fmt"
	"math"
	"testing"

	"github.com/gorse-io/mofuse/base"
	"github.com/gorse-io/mofuse/dataset"
	"github.com/gorse-io/mofuse/pipeline"
	"github.com/gorse-io/mofuse/similarity"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// blocks returns a similarity matrix of equal blocks with a little seeded noise.
func blocks(t *testing.T, numBlocks, size int, within, between float64) *similarity.Matrix {
	t.Helper()
	n := numBlocks * size
	rng := base.NewRandomGenerator(0)
	ids := make([]string, n)
	data := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("s%02d", i)
		data.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			noise := rng.Float64() * 0.01
			if i/size == j/size {
				data.SetSym(i, j, within-noise)
			} else {
				data.SetSym(i, j, between+noise)
			}
		}
	}
	m, err := similarity.NewMatrix(ids, data)
	require.NoError(t, err)
	return m
}

func expectedBlocks(numBlocks, size int) []int {
	labels := make([]int, numBlocks*size)
	for i := range labels {
		labels[i] = i / size
	}
	return labels
}

func samePartition(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		for j := range a {
			if (a[i] == a[j]) != (b[i] == b[j]) {
				return false
			}
		}
	}
	return true
}

func TestNew(t *testing.T) {
	c, err := New(MethodKMedoids, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "KMedoids", c.Name())
	c, err = New("Spectral", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "Spectral", c.Name())
	_, err = New("dbscan", DefaultOptions())
	assert.True(t, errors.Is(err, base.ErrValidation))
	opts := DefaultOptions()
	opts.Clusters = 1
	_, err = New(MethodKMedoids, opts)
	assert.True(t, errors.Is(err, base.ErrValidation))
}

func TestKMedoids(t *testing.T) {
	m := blocks(t, 2, 4, 0.9, 0.1)
	c := &KMedoids{Clusters: 2, Seed: DefaultSeed, MaxIter: DefaultMaxIter}
	a, err := c.Cluster(pipeline.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, m.IDs(), a.IDs())
	assert.True(t, samePartition(expectedBlocks(2, 4), a.Labels()), a.Labels())

	// deterministic for a fixed seed
	for seed := int64(0); seed < 5; seed++ {
		c := &KMedoids{Clusters: 3, Seed: seed, MaxIter: DefaultMaxIter}
		m := blocks(t, 3, 5, 0.8, 0.2)
		first, err := c.Cluster(pipeline.Background(), m)
		require.NoError(t, err)
		second, err := c.Cluster(pipeline.Background(), m)
		require.NoError(t, err)
		assert.Equal(t, first.Labels(), second.Labels())
		assert.True(t, samePartition(expectedBlocks(3, 5), first.Labels()))
	}
}

func TestKMedoids_InvalidClusters(t *testing.T) {
	m := blocks(t, 2, 2, 0.9, 0.1)
	for _, k := range []int{0, 1, 4, 5} {
		_, err := (&KMedoids{Clusters: k, MaxIter: DefaultMaxIter}).Cluster(pipeline.Background(), m)
		assert.True(t, errors.Is(err, base.ErrValidation), k)
	}
}

func TestKMedoids_DegeneratePartition(t *testing.T) {
	data := mat.NewSymDense(4, nil)
	for i := 0; i < 4; i++ {
		for j := i; j < 4; j++ {
			data.SetSym(i, j, 1)
		}
	}
	m, err := similarity.NewMatrix([]string{"a", "b", "c", "d"}, data)
	require.NoError(t, err)
	_, err = (&KMedoids{Clusters: 2, MaxIter: DefaultMaxIter}).Cluster(pipeline.Background(), m)
	assert.True(t, errors.Is(err, base.ErrDegeneratePartition))
}

func TestSpectral(t *testing.T) {
	m := blocks(t, 3, 4, 0.9, 0.05)
	c := &Spectral{Clusters: 3, Neighbors: 3, Seed: DefaultSeed, MaxIter: DefaultMaxIter}
	a, err := c.Cluster(pipeline.Background(), m)
	require.NoError(t, err)
	assert.True(t, samePartition(expectedBlocks(3, 4), a.Labels()), a.Labels())
	assert.Equal(t, 3, a.NumClusters())

	// dense affinity
	c = &Spectral{Clusters: 2, Neighbors: DefaultNeighbors, Seed: DefaultSeed, MaxIter: DefaultMaxIter}
	a, err = c.Cluster(pipeline.Background(), blocks(t, 2, 5, 0.9, 0.01))
	require.NoError(t, err)
	assert.True(t, samePartition(expectedBlocks(2, 5), a.Labels()), a.Labels())

	_, err = (&Spectral{Clusters: 12, Neighbors: 3, MaxIter: DefaultMaxIter}).Cluster(pipeline.Background(), m)
	assert.True(t, errors.Is(err, base.ErrValidation))
}

func TestSparsify(t *testing.T) {
	a := mat.NewSymDense(3, []float64{
		1.0, 0.8, 0.2,
		0.8, 1.0, 0.5,
		0.2, 0.5, 1.0,
	})
	graph := sparsify(a, 1)
	assert.Equal(t, 1.0, graph.At(0, 0))
	assert.Equal(t, 0.8, graph.At(0, 1))
	assert.Equal(t, 0.0, graph.At(0, 2))
	assert.Equal(t, 0.25, graph.At(1, 2))
}

func TestEmbed_ZeroDegree(t *testing.T) {
	_, err := embed(mat.NewSymDense(2, []float64{1, 0, 0, 0}), 2)
	assert.True(t, errors.Is(err, base.ErrNumericInstability))
}

func TestSeed_DistinctRows(t *testing.T) {
	// two distinct points, each repeated: the third pick has only zero weights left
	rows := [][]float64{{0, 1}, {0, 1}, {1, 0}, {1, 0}}
	for s := int64(0); s < 10; s++ {
		chosen := seed(rows, 3, base.NewRandomGenerator(s))
		assert.Len(t, chosen, 3)
		assert.Len(t, lo.Uniq(chosen), 3, chosen)
	}
	chosen := seed([][]float64{{1}, {1}, {1}}, 3, base.NewRandomGenerator(0))
	assert.ElementsMatch(t, []int{0, 1, 2}, chosen)
}

func TestKMeans_Jobs(t *testing.T) {
	rng := base.NewRandomGenerator(3)
	x := mat.NewDense(40, 2, nil)
	for i := 0; i < 40; i++ {
		x.SetRow(i, rng.NormalVector(2, float64(i%2)*5, 0.5))
	}
	sequential, _, err := kmeans(pipeline.Background(), x, 2, DefaultMaxIter, base.NewRandomGenerator(DefaultSeed))
	require.NoError(t, err)
	concurrent, _, err := kmeans(pipeline.Background().WithJobs(4), x, 2, DefaultMaxIter, base.NewRandomGenerator(DefaultSeed))
	require.NoError(t, err)
	assert.Equal(t, sequential, concurrent)
	expected := make([]int, 40)
	for i := range expected {
		expected[i] = i % 2
	}
	assert.True(t, samePartition(expected, sequential), sequential)
}

func TestAssignment(t *testing.T) {
	_, err := NewAssignment([]string{"a", "b"}, []int{1})
	assert.True(t, errors.Is(err, base.ErrValidation))
	_, err = NewAssignment([]string{"a", "a"}, []int{1, 2})
	assert.True(t, errors.Is(err, base.ErrValidation))

	a, err := NewAssignment([]string{"a", "b", "c", "d"}, []int{7, 3, 7, 5})
	require.NoError(t, err)
	assert.Equal(t, 3, a.NumClusters())
	assert.Equal(t, map[int]int{7: 2, 3: 1, 5: 1}, a.Sizes())
	assert.Equal(t, []int{0, 1, 0, 2}, a.Relabel().Labels())
	label, ok := a.Label("d")
	assert.True(t, ok)
	assert.Equal(t, 5, label)
	_, ok = a.Label("e")
	assert.False(t, ok)

	aligned, err := a.Align([]string{"d", "c", "b", "a"})
	require.NoError(t, err)
	assert.Equal(t, []int{5, 7, 3, 7}, aligned.Labels())
	_, err = a.Align([]string{"a", "b", "c", "e"})
	assert.True(t, errors.Is(err, base.ErrValidation))
	_, err = a.Align([]string{"a"})
	assert.True(t, errors.Is(err, base.ErrValidation))
}

func TestFromColumn(t *testing.T) {
	d, err := dataset.New(dataset.Subtypes, []string{"a", "b", "c"}, []*dataset.Column{
		dataset.NewCategoricalColumn("Subtype_Integrative", []string{"LumB", "Basal", "LumB"}),
		dataset.NewNumericColumn("code", []float64{2, 1, 2}),
		dataset.NewNumericColumn("fraction", []float64{0.5, 1, 2}),
		dataset.NewNumericColumn("missing", []float64{1, math.NaN(), 2}),
	})
	require.NoError(t, err)
	a, err := FromColumn(d, "Subtype_Integrative")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 1}, a.Labels())
	a, err = FromColumn(d, "code")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 2}, a.Labels())
	_, err = FromColumn(d, "fraction")
	assert.True(t, errors.Is(err, base.ErrValidation))
	_, err = FromColumn(d, "missing")
	assert.True(t, errors.Is(err, base.ErrValidation))
	_, err = FromColumn(d, "unknown")
	assert.Error(t, err)
}
