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

package base

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	err := Validationf("identifier %q is too short", "TCGA")
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrNumericInstability)
	assert.Contains(t, err.Error(), "TCGA")

	// kinds survive annotation and tracing
	wrapped := errors.Annotatef(errors.Trace(NumericInstabilityf("zero variance in %s", "gene_1")), "view %s", "mRNA")
	assert.True(t, errors.Is(wrapped, ErrNumericInstability))
	assert.Equal(t, ErrNumericInstability, Kind(wrapped))
	assert.Contains(t, wrapped.Error(), "view mRNA")

	assert.Equal(t, ErrDegeneratePartition, Kind(DegeneratePartitionf("1 cluster")))
	assert.Equal(t, errors.ConstError(""), Kind(errors.New("plain")))
}
