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

import "github.com/juju/errors"

const (
	// ErrValidation is reported for malformed input: bad identifiers, missing columns,
	// empty intersections, mismatched sample sets or invalid parameters.
	ErrValidation = errors.ConstError("validation failed")
	// ErrDegeneratePartition is reported when a clustering collapses into a single
	// cluster or into singletons.
	ErrDegeneratePartition = errors.ConstError("degenerate partition")
	// ErrNumericInstability is reported for zero variance, zero row sums or
	// non-finite intermediates.
	ErrNumericInstability = errors.ConstError("numeric instability")
)

// Validationf returns an error of kind ErrValidation.
func Validationf(format string, args ...any) error {
	return errors.WithType(errors.Errorf(format, args...), ErrValidation)
}

// DegeneratePartitionf returns an error of kind ErrDegeneratePartition.
func DegeneratePartitionf(format string, args ...any) error {
	return errors.WithType(errors.Errorf(format, args...), ErrDegeneratePartition)
}

// NumericInstabilityf returns an error of kind ErrNumericInstability.
func NumericInstabilityf(format string, args ...any) error {
	return errors.WithType(errors.Errorf(format, args...), ErrNumericInstability)
}

// Kind returns the taxonomy constant carried by err, or an empty ConstError.
func Kind(err error) errors.ConstError {
	for _, kind := range []errors.ConstError{ErrValidation, ErrDegeneratePartition, ErrNumericInstability} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ""
}
