// Copyright 2024 gorse Project Authors
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

package progress

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type spanKeyType string

var spanKeyName = spanKeyType(uuid.New().String())

type Status string

const (
	StatusPending  Status = "Pending"
	StatusComplete Status = "Complete"
	StatusRunning  Status = "Running"
	StatusFailed   Status = "Failed"
)

// Tracer records the spans of one analysis run.
type Tracer struct {
	name  string
	mu    sync.Mutex
	spans []*Span
}

func NewTracer(name string) *Tracer {
	return &Tracer{name: name}
}

func (t *Tracer) Name() string {
	return t.name
}

// Start creates a root span.
func (t *Tracer) Start(ctx context.Context, name string, total int) (context.Context, *Span) {
	span := newSpan(name, total)
	t.mu.Lock()
	t.spans = append(t.spans, span)
	t.mu.Unlock()
	return context.WithValue(ctx, spanKeyName, span), span
}

// List returns root spans in start order.
func (t *Tracer) List() []Progress {
	t.mu.Lock()
	spans := make([]*Span, len(t.spans))
	copy(spans, t.spans)
	t.mu.Unlock()
	progress := make([]Progress, 0, len(spans))
	for _, span := range spans {
		p := span.Progress()
		p.Tracer = t.name
		progress = append(progress, p)
	}
	sort.SliceStable(progress, func(i, j int) bool {
		return progress[i].StartTime.Before(progress[j].StartTime)
	})
	return progress
}

type Span struct {
	mu       sync.Mutex
	name     string
	status   Status
	total    int
	count    int
	err      error
	start    time.Time
	finish   time.Time
	children []*Span
}

func newSpan(name string, total int) *Span {
	return &Span{
		name:   name,
		status: StatusRunning,
		total:  total,
		start:  time.Now(),
	}
}

func (s *Span) Name() string {
	return s.name
}

func (s *Span) Add(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count += n
}

func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusRunning {
		s.status = StatusComplete
		s.count = s.total
		s.finish = time.Now()
	}
}

func (s *Span) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusFailed
	s.err = err
	if s.finish.IsZero() {
		s.finish = time.Now()
	}
}

func (s *Span) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Elapsed returns the duration of a finished span, or the time since start.
func (s *Span) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finish.IsZero() {
		return time.Since(s.start)
	}
	return s.finish.Sub(s.start)
}

// Progress summarizes the span. While a child is running, the span reports the
// child's progress scaled into its own.
func (s *Span) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	var running *Span
	for _, child := range s.children {
		child.mu.Lock()
		if child.status == StatusRunning {
			running = child
		}
		child.mu.Unlock()
	}
	p := Progress{
		Name:       s.name,
		Status:     s.status,
		Count:      s.count,
		Total:      s.total,
		StartTime:  s.start,
		FinishTime: s.finish,
	}
	if s.err != nil {
		p.Error = s.err.Error()
	}
	if running != nil && s.status == StatusRunning {
		childProgress := running.Progress()
		p.Total = s.total * childProgress.Total
		p.Count = s.count*childProgress.Total + childProgress.Count
	}
	return p
}

// Start creates a child span of the span in ctx. Without a parent span the returned
// span is detached and ctx is returned unchanged.
func Start(ctx context.Context, name string, total int) (context.Context, *Span) {
	childSpan := newSpan(name, total)
	if ctx == nil {
		return nil, childSpan
	}
	span, ok := ctx.Value(spanKeyName).(*Span)
	if !ok {
		return ctx, childSpan
	}
	span.mu.Lock()
	span.children = append(span.children, childSpan)
	span.mu.Unlock()
	return context.WithValue(ctx, spanKeyName, childSpan), childSpan
}

// FromContext returns the span carried by ctx.
func FromContext(ctx context.Context) (*Span, bool) {
	if ctx == nil {
		return nil, false
	}
	span, ok := ctx.Value(spanKeyName).(*Span)
	return span, ok
}

// Fail marks the span in ctx as failed.
func Fail(ctx context.Context, err error) {
	if ctx == nil {
		return
	}
	if span, ok := ctx.Value(spanKeyName).(*Span); ok {
		span.Fail(err)
	}
}

type Progress struct {
	Tracer     string
	Name       string
	Status     Status
	Error      string
	Count      int
	Total      int
	StartTime  time.Time
	FinishTime time.Time
}
