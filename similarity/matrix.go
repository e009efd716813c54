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
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"
)

const tolerance = 1e-9

// Matrix is a symmetric sample-by-sample similarity matrix keyed by sample
// identifiers. Entries are finite and in [0, 1], and every diagonal entry is at least
// as large as any other entry of its row.
type Matrix struct {
	ids  []string
	data *mat.SymDense
}

// NewMatrix validates and wraps a similarity matrix. The data is copied.
func NewMatrix(ids []string, data mat.Symmetric) (*Matrix, error) {
	n := data.SymmetricDim()
	if n != len(ids) {
		return nil, base.Validationf("matrix of size %d for %d samples", n, len(ids))
	}
	if n == 0 {
		return nil, base.Validationf("empty similarity matrix")
	}
	if len(lo.Uniq(ids)) != n {
		return nil, base.Validationf("duplicate sample identifiers in similarity matrix")
	}
	sym := mat.NewSymDense(n, nil)
	sym.CopySym(data)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := sym.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, base.NumericInstabilityf("non-finite similarity between %q and %q", ids[i], ids[j])
			}
			if v < -tolerance || v > 1+tolerance {
				return nil, base.Validationf("similarity %v between %q and %q is outside [0, 1]", v, ids[i], ids[j])
			}
			sym.SetSym(i, j, math.Min(math.Max(v, 0), 1))
		}
	}
	for i := 0; i < n; i++ {
		diag := sym.At(i, i)
		for j := 0; j < n; j++ {
			if j != i && sym.At(i, j) > diag+tolerance {
				return nil, base.Validationf("sample %q is more similar to %q than to itself", ids[i], ids[j])
			}
		}
	}
	return &Matrix{ids: append([]string(nil), ids...), data: sym}, nil
}

// NewMatrixFromDense symmetrizes a square matrix as (A + Aᵀ)/2 and validates it.
func NewMatrixFromDense(ids []string, a mat.Matrix) (*Matrix, error) {
	r, c := a.Dims()
	if r != c {
		return nil, base.Validationf("similarity matrix must be square, got %dx%d", r, c)
	}
	return NewMatrix(ids, Symmetrize(a))
}

// Symmetrize returns (A + Aᵀ)/2.
func Symmetrize(a mat.Matrix) *mat.SymDense {
	n, _ := a.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, (a.At(i, j)+a.At(j, i))/2)
		}
	}
	return sym
}

// IDs returns a copy of the sample identifiers.
func (m *Matrix) IDs() []string {
	return append([]string(nil), m.ids...)
}

func (m *Matrix) Len() int {
	return len(m.ids)
}

func (m *Matrix) At(i, j int) float64 {
	return m.data.At(i, j)
}

// Sym returns a copy of the underlying matrix.
func (m *Matrix) Sym() *mat.SymDense {
	out := mat.NewSymDense(m.Len(), nil)
	out.CopySym(m.data)
	return out
}

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []float64 {
	row := make([]float64, m.Len())
	for j := range row {
		row[j] = m.data.At(i, j)
	}
	return row
}

// SameIDs reports whether both matrices index the same samples in the same order.
func (m *Matrix) SameIDs(other *Matrix) bool {
	if m.Len() != other.Len() {
		return false
	}
	for i, id := range m.ids {
		if other.ids[i] != id {
			return false
		}
	}
	return true
}

// Distances converts similarities into distances as 1 - minmax(similarity) with the
// diagonal set to zero. The min-max scaling spans all entries of the matrix. A
// constant matrix maps to all-zero distances.
func (m *Matrix) Distances() *mat.SymDense {
	n := m.Len()
	low, high := math.Inf(1), math.Inf(-1)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := m.data.At(i, j)
			low = math.Min(low, v)
			high = math.Max(high, v)
		}
	}
	dist := mat.NewSymDense(n, nil)
	if high-low <= 0 {
		return dist
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dist.SetSym(i, j, 1-(m.data.At(i, j)-low)/(high-low))
		}
	}
	return dist
}
