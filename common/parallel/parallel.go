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

package parallel

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorse-io/mofuse/base/log"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const chanSize = 1024

/* Parallel Schedulers */

// Parallel schedules and runs tasks in parallel. nJobs is the number of tasks. nWorkers is
// the number of executors. worker is the executed function which is passed the worker id
// and the job id. The ctx argument allows callers to cancel outstanding work. The first
// error in job order is returned.
func Parallel(ctx context.Context, nJobs, nWorkers int, worker func(workerId, jobId int) error) error {
	if nWorkers <= 1 {
		for i := 0; i < nJobs; i++ {
			if err := ctx.Err(); err != nil {
				return errors.Trace(err)
			}
			if err := worker(0, i); err != nil {
				return errors.Trace(err)
			}
		}
	} else {
		jobCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		c := make(chan int, chanSize)
		// producer
		go func() {
			defer close(c)
			for i := 0; i < nJobs; i++ {
				select {
				case <-jobCtx.Done():
					return
				case c <- i:
				}
			}
		}()
		// consumer
		var wg sync.WaitGroup
		errs := make([]error, nJobs)
		for j := 0; j < nWorkers; j++ {
			// start workers
			workerId := j
			wg.Go(func() {
				var jobId = -1
				defer func() {
					if r := recover(); r != nil {
						log.Logger().Error("panic recovered", zap.Any("panic", r), zap.Int("job_id", jobId))
						if jobId >= 0 {
							errs[jobId] = fmt.Errorf("panic in job %d: %v", jobId, r)
						}
						cancel()
					}
				}()
				for {
					select {
					case <-jobCtx.Done():
						return
					case id, ok := <-c:
						if !ok {
							return
						}
						jobId = id
						if err := ctx.Err(); err != nil {
							errs[jobId] = err
							return
						}
						// run job
						if err := worker(workerId, jobId); err != nil {
							errs[jobId] = err
							cancel()
							return
						}
					}
				}
			})
		}
		wg.Wait()
		// check errors
		for _, err := range errs {
			if err != nil {
				return errors.Trace(err)
			}
		}
		if err := ctx.Err(); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// For runs worker over [0, nJobs) with nWorkers goroutines.
func For(ctx context.Context, nJobs, nWorkers int, worker func(int)) error {
	return Parallel(ctx, nJobs, nWorkers, func(_, jobId int) error {
		worker(jobId)
		return nil
	})
}

// ForEach runs worker over every element of a with nWorkers goroutines.
func ForEach[T any](ctx context.Context, a []T, nWorkers int, worker func(int, T)) error {
	return Parallel(ctx, len(a), nWorkers, func(_, jobId int) error {
		worker(jobId, a[jobId])
		return nil
	})
}

// Map applies f to every element of a with nWorkers goroutines and keeps the order.
func Map[T, R any](ctx context.Context, a []T, nWorkers int, f func(int, T) (R, error)) ([]R, error) {
	results := make([]R, len(a))
	err := Parallel(ctx, len(a), nWorkers, func(_, jobId int) error {
		r, err := f(jobId, a[jobId])
		if err != nil {
			return err
		}
		results[jobId] = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
