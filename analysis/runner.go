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

package analysis

import (
	"fmt"

	"github.com/gorse-io/mofuse/base"
	"github.com/gorse-io/mofuse/base/progress"
	"github.com/gorse-io/mofuse/cluster"
	"github.com/gorse-io/mofuse/common/parallel"
	"github.com/gorse-io/mofuse/config"
	"github.com/gorse-io/mofuse/dataset"
	"github.com/gorse-io/mofuse/evaluate"
	"github.com/gorse-io/mofuse/fusion"
	"github.com/gorse-io/mofuse/harmonize"
	"github.com/gorse-io/mofuse/pipeline"
	"github.com/gorse-io/mofuse/similarity"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Stages of a run, in execution order.
const (
	StageHarmonize = "Harmonize"
	StageIntersect = "Intersect"
	StagePrepare   = "Prepare"
	StageAffinity  = "Affinity"
	StageFusion    = "Fusion"
	StageCluster   = "Cluster"
	StageEvaluate  = "Evaluate"
)

var stages = []string{StageHarmonize, StageIntersect, StagePrepare, StageAffinity, StageFusion, StageCluster, StageEvaluate}

// Result holds every intermediate of a successful run.
type Result struct {
	RunId string
	// Views holds the intersected views. Omics views are encoded and standardized.
	Views       map[dataset.View]*dataset.Dataset
	Matrices    map[dataset.View]*similarity.Matrix
	Fused       *similarity.Matrix
	Assignments map[string]*cluster.Assignment
	Bundles     []evaluate.Bundle
	Spans       []progress.Progress
}

// Bundle returns the metrics bundle with the given label.
func (r *Result) Bundle(label string) (evaluate.Bundle, bool) {
	for _, b := range r.Bundles {
		if b.Label == label {
			return b, true
		}
	}
	return evaluate.Bundle{}, false
}

// Runner runs the whole analysis: harmonization, intersection, affinity, fusion,
// clustering and evaluation.
type Runner struct {
	config    *config.Config
	options   harmonize.Options
	engine    *similarity.Engine
	fuser     fusion.Fuser
	clusterer cluster.Clusterer
}

func NewRunner(cfg *config.Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	engine, err := similarity.NewEngine(cfg.Similarity.Neighbors, cfg.Similarity.Mu)
	if err != nil {
		return nil, errors.Trace(err)
	}
	fuser, err := fusion.New(cfg.Fusion.Method, cfg.Fusion.Neighbors, cfg.Fusion.Iterations)
	if err != nil {
		return nil, errors.Trace(err)
	}
	clusterer, err := cluster.New(cfg.Cluster.Method, cfg.ClusterOptions())
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Runner{
		config:    cfg,
		options:   cfg.HarmonizeOptions(),
		engine:    engine,
		fuser:     fuser,
		clusterer: clusterer,
	}, nil
}

// PredictionLabel names the bundle of a single-view prediction.
func PredictionLabel(view dataset.View) string {
	return fmt.Sprintf("%s prediction", view)
}

// FusedLabel names the bundle of the fused prediction.
func (r *Runner) FusedLabel() string {
	return fmt.Sprintf("%s-fused prediction", r.fuser.Name())
}

// Stages returns the stage names in execution order.
func Stages() []string {
	return append([]string(nil), stages...)
}

// Run analyses the raw views. The three omics views and the subtypes view are
// required; the phenotype view is optional. Any error aborts the whole run.
func (r *Runner) Run(ctx *pipeline.Context, inputs []*dataset.Dataset) (*Result, error) {
	ctx = ctx.WithJobs(r.config.Runtime.Jobs)
	ctx, span := ctx.StartSpan("Analysis", len(stages))
	result, err := r.run(ctx, span, inputs)
	if err != nil {
		span.Fail(err)
		ctx.Logger().Error("analysis failed", zap.Error(err))
		return nil, err
	}
	span.End()
	result.Spans = ctx.Tracer().List()
	return result, nil
}

func (r *Runner) run(ctx *pipeline.Context, span *progress.Span, inputs []*dataset.Dataset) (*Result, error) {
	byView := make(map[dataset.View]*dataset.Dataset, len(inputs))
	for _, d := range inputs {
		if d == nil {
			return nil, base.Validationf("nil input view")
		}
		if _, exists := byView[d.View()]; exists {
			return nil, base.Validationf("view %s is given twice", d.View())
		}
		byView[d.View()] = d
	}
	// fixed order: omics views, subtypes, then phenotype if present
	order := append(append([]dataset.View(nil), dataset.OmicsViews...), dataset.Subtypes)
	for _, view := range order {
		if _, ok := byView[view]; !ok {
			return nil, base.Validationf("view %s is required", view)
		}
	}
	if _, ok := byView[dataset.Phenotype]; ok {
		order = append(order, dataset.Phenotype)
	}

	// harmonize every view on its own
	harmonized := make([]*dataset.Dataset, len(order))
	for i, view := range order {
		p, err := harmonize.ViewPipeline(view, r.options)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if harmonized[i], err = p.RunOne(ctx.ForView(view), byView[view]); err != nil {
			return nil, errors.Trace(err)
		}
	}
	span.Add(1)

	intersected, err := harmonize.IntersectPipeline().Run(ctx, harmonized...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	ctx.Logger().Info("views intersected", zap.Int("samples", intersected[0].Count()))
	span.Add(1)

	omics := intersected[:len(dataset.OmicsViews)]
	prepared, err := harmonize.PreparePipeline(r.options).Run(ctx, omics...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	span.Add(1)

	matrices, err := r.engine.BuildAll(ctx, prepared)
	if err != nil {
		return nil, errors.Trace(err)
	}
	span.Add(1)

	fused, err := r.fuser.Fuse(ctx, matrices)
	if err != nil {
		return nil, errors.Annotatef(err, "%s fusion", r.fuser.Name())
	}
	span.Add(1)

	// cluster the fused matrix and, optionally, every view on its own
	type task struct {
		label  string
		matrix *similarity.Matrix
	}
	var tasks []task
	if r.config.Evaluate.SingleView {
		for i, view := range dataset.OmicsViews {
			tasks = append(tasks, task{label: PredictionLabel(view), matrix: matrices[i]})
		}
	}
	tasks = append(tasks, task{label: r.FusedLabel(), matrix: fused})
	assignments, err := parallel.Map(ctx.Context(), tasks, ctx.Jobs(), func(_ int, t task) (*cluster.Assignment, error) {
		a, err := r.clusterer.Cluster(ctx, t.matrix)
		if err != nil {
			return nil, errors.Annotatef(err, "%s clustering of %s", r.clusterer.Name(), t.label)
		}
		return a, nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	span.Add(1)

	subtypes := intersected[len(dataset.OmicsViews)]
	truth, err := cluster.FromColumn(subtypes, r.config.Evaluate.TruthColumn)
	if err != nil {
		return nil, errors.Annotatef(err, "truth labels")
	}
	result := &Result{
		RunId:       ctx.RunId(),
		Views:       make(map[dataset.View]*dataset.Dataset, len(order)),
		Matrices:    make(map[dataset.View]*similarity.Matrix, len(matrices)),
		Fused:       fused,
		Assignments: make(map[string]*cluster.Assignment, len(tasks)),
	}
	for i, t := range tasks {
		bundle, err := evaluate.Evaluate(t.label, truth, assignments[i], t.matrix)
		if err != nil {
			return nil, errors.Trace(err)
		}
		ctx.Logger().Info("clustering evaluated", bundle.ZapFields()...)
		result.Bundles = append(result.Bundles, bundle)
		result.Assignments[t.label] = assignments[i]
	}
	span.Add(1)

	for i, view := range dataset.OmicsViews {
		result.Views[view] = prepared[i]
		result.Matrices[view] = matrices[i]
	}
	for i := len(dataset.OmicsViews); i < len(order); i++ {
		result.Views[order[i]] = intersected[i]
	}
	return result, nil
}
