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

package harmonize

import (
	"github.com/gorse-io/mofuse/base"
	"github.com/gorse-io/mofuse/dataset"
	"github.com/gorse-io/mofuse/pipeline"
	"github.com/juju/errors"
)

// Options parameterize the default pipelines.
type Options struct {
	NanThreshold  float64
	VarianceTopK  int
	BarcodeLength int
	QualityColumn string
	// SampleFilter is an optional expression applied to the phenotype view.
	SampleFilter string
	// Impute fills remaining missing cells before standardization.
	Impute bool
}

func DefaultOptions() Options {
	return Options{
		NanThreshold:  DefaultNanThreshold,
		VarianceTopK:  DefaultVarianceTopK,
		BarcodeLength: DefaultBarcodeLength,
		QualityColumn: DefaultQualityColumn,
	}
}

// ViewPipeline returns the harmonization pipeline of one view:
//
//	omics views: RetainMainTumors, FilterByNanPercentage, FilterByVariance, TruncateBarcode
//	phenotype:   RemoveContaminatedSamples[, FilterSamples]
//	subtypes:    RetainMainTumors, TruncateBarcode
func ViewPipeline(view dataset.View, opts Options) (*pipeline.Pipeline, error) {
	truncate := &TruncateBarcode{Length: opts.BarcodeLength}
	switch view {
	case dataset.Proteins, dataset.MRNA, dataset.MiRNA:
		nan, err := NewFilterByNanPercentage(opts.NanThreshold)
		if err != nil {
			return nil, errors.Trace(err)
		}
		variance, err := NewFilterByVariance(opts.VarianceTopK)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return pipeline.New(view.String(), &RetainMainTumors{}, nan, variance, truncate), nil
	case dataset.Phenotype:
		steps := []pipeline.Step{NewRemoveContaminatedSamples(opts.QualityColumn)}
		if opts.SampleFilter != "" {
			filter, err := NewFilterSamples(opts.SampleFilter)
			if err != nil {
				return nil, errors.Trace(err)
			}
			steps = append(steps, filter)
		}
		return pipeline.New(view.String(), steps...), nil
	case dataset.Subtypes:
		return pipeline.New(view.String(), &RetainMainTumors{}, truncate), nil
	default:
		return nil, base.Validationf("no pipeline for view %q", view)
	}
}

// IntersectPipeline aligns the harmonized views on their shared samples.
func IntersectPipeline() *pipeline.Pipeline {
	return pipeline.New("Intersect", &IntersectAndOrder{})
}

// PreparePipeline turns a harmonized view into a fully numeric, standardized table
// ready for affinity construction.
func PreparePipeline(opts Options) *pipeline.Pipeline {
	steps := []pipeline.Step{&EncodeCategoricalData{}}
	if opts.Impute {
		steps = append(steps, &ImputeMissing{})
	}
	steps = append(steps, &Standardize{})
	return pipeline.New("Prepare", steps...)
}
