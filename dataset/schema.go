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

package dataset

import (
	"strings"

	"github.com/gorse-io/mofuse/base"
	"github.com/samber/lo"
)

// View tags the measurement type a dataset holds.
type View string

const (
	Proteins  View = "Proteins"
	MRNA      View = "mRNA"
	MiRNA     View = "miRNA"
	Phenotype View = "Phenotype"
	Subtypes  View = "Subtypes"
)

// Views lists every view in canonical order.
var Views = []View{Proteins, MRNA, MiRNA, Phenotype, Subtypes}

// OmicsViews are the molecular views that feed the similarity network.
var OmicsViews = []View{Proteins, MRNA, MiRNA}

// ParseView matches a view name case-insensitively.
func ParseView(name string) (View, error) {
	for _, view := range Views {
		if strings.EqualFold(string(view), name) {
			return view, nil
		}
	}
	return "", base.Validationf("unknown view %q, expected one of %v", name, Views)
}

// IsOmics reports whether the view is a molecular measurement.
func (v View) IsOmics() bool {
	return lo.Contains(OmicsViews, v)
}

func (v View) String() string {
	return string(v)
}

// Kind is the storage kind of a feature.
type Kind int

const (
	// Numeric features hold floats, NaN marks missing cells.
	Numeric Kind = iota
	// Categorical features hold strings, the empty string marks missing cells.
	Categorical
	// Encoded features are categorical features mapped to integer codes.
	Encoded
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	case Encoded:
		return "encoded"
	default:
		return "unknown"
	}
}

// IsFloat reports whether cells of this kind are stored as floats.
func (k Kind) IsFloat() bool {
	return k == Numeric || k == Encoded
}

type Feature struct {
	Name string
	Kind Kind
}

// Schema is the ordered feature list of a dataset. Version increases every time a
// transformation changes the feature set or feature kinds.
type Schema struct {
	Version  int
	Features []Feature
}

func (s Schema) Names() []string {
	return lo.Map(s.Features, func(f Feature, _ int) string { return f.Name })
}

// Index returns the position of the named feature.
func (s Schema) Index(name string) (int, bool) {
	_, index, ok := lo.FindIndexOf(s.Features, func(f Feature) bool { return f.Name == name })
	return index, ok
}
