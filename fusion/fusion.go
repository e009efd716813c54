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
	"strings"

	"github.com/gorse-io/mofuse/base"
	"github.com/gorse-io/mofuse/pipeline"
	"github.com/gorse-io/mofuse/similarity"
	"github.com/juju/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	MethodMean = "mean"
	MethodSNF  = "snf"
)

// Fuser combines per-view similarity matrices over the same samples into one.
type Fuser interface {
	Name() string
	Fuse(ctx *pipeline.Context, views []*similarity.Matrix) (*similarity.Matrix, error)
}

// New creates a fuser by method name. K and iterations are only used by SNF.
func New(method string, k, iterations int) (Fuser, error) {
	switch strings.ToLower(method) {
	case MethodMean:
		return &Mean{}, nil
	case MethodSNF:
		return NewSNF(k, iterations)
	default:
		return nil, base.Validationf("unknown fusion method %q", method)
	}
}

func checkInputs(views []*similarity.Matrix) error {
	if len(views) == 0 {
		return base.Validationf("fusion needs at least one similarity matrix")
	}
	for i, m := range views {
		if m == nil {
			return base.Validationf("similarity matrix %d is nil", i)
		}
		if !m.SameIDs(views[0]) {
			return base.Validationf("similarity matrix %d is not indexed by the same samples as matrix 0", i)
		}
	}
	return nil
}

// Mean averages the matrices elementwise.
type Mean struct{}

func (f *Mean) Name() string {
	return "Mean"
}

func (f *Mean) Fuse(_ *pipeline.Context, views []*similarity.Matrix) (*similarity.Matrix, error) {
	if err := checkInputs(views); err != nil {
		return nil, errors.Trace(err)
	}
	n := views[0].Len()
	sum := mat.NewSymDense(n, nil)
	for _, m := range views {
		sum.AddSym(sum, m.Sym())
	}
	sum.ScaleSym(1/float64(len(views)), sum)
	return similarity.NewMatrix(views[0].IDs(), sum)
}
