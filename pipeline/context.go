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
	"context"

	"github.com/google/uuid"
	"github.com/gorse-io/mofuse/base/log"
	"github.com/gorse-io/mofuse/base/progress"
	"github.com/gorse-io/mofuse/dataset"
	"go.uber.org/zap"
)

// Context is passed explicitly into every step. It carries the logger, the tracer
// and the run identifier of one analysis run.
type Context struct {
	ctx    context.Context
	logger *zap.Logger
	tracer *progress.Tracer
	runId  string
	jobs   int
}

// NewContext creates a run context with a fresh run id, the global logger and a
// tracer named after the run.
func NewContext(ctx context.Context) *Context {
	runId := uuid.New().String()
	return &Context{
		ctx:    ctx,
		logger: log.Logger().With(zap.String("run_id", runId)),
		tracer: progress.NewTracer(runId),
		runId:  runId,
		jobs:   1,
	}
}

// Background is a run context for tests and one-off calls.
func Background() *Context {
	return NewContext(context.Background())
}

func (c *Context) clone() *Context {
	out := *c
	return &out
}

// WithLogger replaces the logger. The run id field is added.
func (c *Context) WithLogger(logger *zap.Logger) *Context {
	out := c.clone()
	out.logger = logger.With(zap.String("run_id", c.runId))
	return out
}

// WithJobs sets the number of workers available to parallel stages.
func (c *Context) WithJobs(jobs int) *Context {
	out := c.clone()
	out.jobs = max(jobs, 1)
	return out
}

// ForView returns a child context whose logger is tagged with the view.
func (c *Context) ForView(view dataset.View) *Context {
	out := c.clone()
	out.logger = c.logger.With(zap.String("view", view.String()))
	return out
}

func (c *Context) withContext(ctx context.Context) *Context {
	out := c.clone()
	out.ctx = ctx
	return out
}

func (c *Context) Context() context.Context {
	return c.ctx
}

func (c *Context) Err() error {
	return c.ctx.Err()
}

func (c *Context) Logger() *zap.Logger {
	return c.logger
}

func (c *Context) Tracer() *progress.Tracer {
	return c.tracer
}

func (c *Context) RunId() string {
	return c.runId
}

func (c *Context) Jobs() int {
	return c.jobs
}

// StartSpan starts a child of the current span, or a root span of the tracer when
// there is none.
func (c *Context) StartSpan(name string, total int) (*Context, *progress.Span) {
	if _, ok := progress.FromContext(c.ctx); ok {
		ctx, span := progress.Start(c.ctx, name, total)
		return c.withContext(ctx), span
	}
	ctx, span := c.tracer.Start(c.ctx, name, total)
	return c.withContext(ctx), span
}
