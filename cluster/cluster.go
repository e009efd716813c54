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
	"strings"

	"github.com/gorse-io/mofuse/base"
	"github.com/gorse-io/mofuse/pipeline"
	"github.com/gorse-io/mofuse/similarity"
)

const (
	MethodKMedoids = "kmedoids"
	MethodSpectral = "spectral"

	DefaultClusters  = 3
	DefaultNeighbors = 20
	DefaultSeed      = 42
	DefaultMaxIter   = 300
)

// Clusterer partitions the samples of a similarity matrix.
type Clusterer interface {
	Name() string
	Cluster(ctx *pipeline.Context, m *similarity.Matrix) (*Assignment, error)
}

type Options struct {
	Clusters  int
	Neighbors int
	Seed      int64
	MaxIter   int
}

func DefaultOptions() Options {
	return Options{
		Clusters:  DefaultClusters,
		Neighbors: DefaultNeighbors,
		Seed:      DefaultSeed,
		MaxIter:   DefaultMaxIter,
	}
}

// New creates a clusterer by method name.
func New(method string, opts Options) (Clusterer, error) {
	if opts.Clusters < 2 {
		return nil, base.Validationf("number of clusters must be at least 2, got %d", opts.Clusters)
	}
	if opts.MaxIter <= 0 {
		return nil, base.Validationf("maximum number of iterations must be positive, got %d", opts.MaxIter)
	}
	switch strings.ToLower(method) {
	case MethodKMedoids, "pam":
		return &KMedoids{Clusters: opts.Clusters, Seed: opts.Seed, MaxIter: opts.MaxIter}, nil
	case MethodSpectral:
		if opts.Neighbors <= 0 {
			return nil, base.Validationf("number of neighbours must be positive, got %d", opts.Neighbors)
		}
		return &Spectral{Clusters: opts.Clusters, Neighbors: opts.Neighbors, Seed: opts.Seed, MaxIter: opts.MaxIter}, nil
	default:
		return nil, base.Validationf("unknown clustering method %q", method)
	}
}

func checkClusters(k, n int) error {
	if k < 2 || k >= n {
		return base.Validationf("number of clusters must satisfy 2 <= k < %d, got %d", n, k)
	}
	return nil
}

func maxIter(n int) int {
	if n <= 0 {
		return DefaultMaxIter
	}
	return n
}
