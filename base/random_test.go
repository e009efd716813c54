// Copyright 2020 gorse Project Authors
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

package base

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat"
)

const randomEpsilon = 0.1

func TestRandomGenerator_NormalVector(t *testing.T) {
	rng := NewRandomGenerator(0)
	vec := rng.NormalVector(1000, 1, 2)
	assert.False(t, math.Abs(stat.Mean(vec, nil)-1) > randomEpsilon)
	assert.False(t, math.Abs(stat.StdDev(vec, nil)-2) > randomEpsilon)
}

func TestRandomGenerator_WeightedChoice(t *testing.T) {
	rng := NewRandomGenerator(0)
	assert.Equal(t, -1, rng.WeightedChoice([]float64{0, 0}))
	for i := 0; i < 100; i++ {
		assert.Equal(t, 2, rng.WeightedChoice([]float64{0, 0, 3, 0}))
	}
	counts := make([]int, 2)
	for i := 0; i < 1000; i++ {
		counts[rng.WeightedChoice([]float64{1, 3})]++
	}
	assert.Greater(t, counts[1], counts[0])
}

func TestRandomGenerator_Deterministic(t *testing.T) {
	a := NewRandomGenerator(42).NormalVector(10, 0, 1)
	b := NewRandomGenerator(42).NormalVector(10, 0, 1)
	assert.Equal(t, a, b)
}
