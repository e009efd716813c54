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

package pipeline

import (
	"github.com/gorse-io/mofuse/base"
	"github.com/gorse-io/mofuse/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Step is one stage of a pipeline. It maps a list of datasets to a new list and never
// modifies its input.
type Step interface {
	Name() string
	Transform(ctx *Context, in []*dataset.Dataset) ([]*dataset.Dataset, error)
}

// Each lifts a single-view transformation over a list of datasets. The output has the
// same length and order as the input.
func Each(ctx *Context, in []*dataset.Dataset, f func(ctx *Context, d *dataset.Dataset) (*dataset.Dataset, error)) ([]*dataset.Dataset, error) {
	out := make([]*dataset.Dataset, len(in))
	for i, d := range in {
		var err error
		out[i], err = f(ctx.ForView(d.View()), d)
		if err != nil {
			return nil, errors.Annotatef(err, "view %s", d.View())
		}
	}
	return out, nil
}

// Pipeline is an ordered list of steps fixed at construction. Running it is a left
// fold of the steps over the input. A pipeline is itself a step.
type Pipeline struct {
	name  string
	steps []Step
}

func New(name string, steps ...Step) *Pipeline {
	return &Pipeline{name: name, steps: append([]Step(nil), steps...)}
}

func (p *Pipeline) Name() string {
	return p.name
}

// Steps returns a copy of the steps.
func (p *Pipeline) Steps() []Step {
	return append([]Step(nil), p.steps...)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	return lo.Map(p.steps, func(s Step, _ int) string { return s.Name() })
}

func (p *Pipeline) Transform(ctx *Context, in []*dataset.Dataset) ([]*dataset.Dataset, error) {
	return p.Run(ctx, in...)
}

// Run applies every step in order. The first failing step aborts the run and no
// partial result is returned.
func (p *Pipeline) Run(ctx *Context, in ...*dataset.Dataset) ([]*dataset.Dataset, error) {
	for i, d := range in {
		if d == nil {
			return nil, base.Validationf("pipeline %s: input %d is nil", p.name, i)
		}
	}
	ctx, span := ctx.StartSpan(p.name, len(p.steps))
	views := lo.Map(in, func(d *dataset.Dataset, _ int) string { return d.View().String() })
	current := in
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			span.Fail(err)
			return nil, errors.Trace(err)
		}
		stepCtx, stepSpan := ctx.StartSpan(step.Name(), 1)
		next, err := step.Transform(stepCtx, current)
		if err != nil {
			err = errors.Annotatef(err, "pipeline %s: step %s", p.name, step.Name())
			stepSpan.Fail(err)
			span.Fail(err)
			return nil, err
		}
		stepSpan.End()
		span.Add(1)
		ctx.Logger().Debug("pipeline step finished",
			zap.String("pipeline", p.name),
			zap.String("step", step.Name()),
			zap.Strings("views", views),
			zap.Ints("samples", lo.Map(next, func(d *dataset.Dataset, _ int) int { return d.Count() })),
			zap.Duration("elapsed", stepSpan.Elapsed()))
		current = next
	}
	span.End()
	return current, nil
}

// RunOne runs the pipeline over a single dataset.
func (p *Pipeline) RunOne(ctx *Context, d *dataset.Dataset) (*dataset.Dataset, error) {
	out, err := p.Run(ctx, d)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, base.Validationf("pipeline %s returned %d datasets for one input", p.name, len(out))
	}
	return out[0], nil
}

type funcStep struct {
	name string
	f    func(ctx *Context, in []*dataset.Dataset) ([]*dataset.Dataset, error)
}

// NewStep wraps a function as a step.
func NewStep(name string, f func(ctx *Context, in []*dataset.Dataset) ([]*dataset.Dataset, error)) Step {
	return &funcStep{name: name, f: f}
}

func (s *funcStep) Name() string {
	return s.name
}

func (s *funcStep) Transform(ctx *Context, in []*dataset.Dataset) ([]*dataset.Dataset, error) {
	return s.f(ctx, in)
}
