// Package engine runs independent jobs on a bounded worker pool. A failing
// job never stops the others; every failure is returned joined.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Job runs its steps in order and stops at the first failing one.
type Job interface {
	Info() string
	Pre(ctx context.Context) error
	Execute(ctx context.Context) error
	Post(ctx context.Context) error
}

type traceIDKey struct{}

// TraceID returns the id of the Execute call ctx belongs to.
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

type Engine struct {
	concurrency int
	jobs        []Job
}

func NewEngine(concurrency int, jobs []Job) *Engine {
	return &Engine{
		concurrency: concurrency,
		jobs:        jobs,
	}
}

func (e *Engine) Execute(ctx context.Context) error {
	mainLogger := log.With().
		Int("concurrency", e.concurrency).
		Int("total_jobs", len(e.jobs)).
		Logger()

	if len(e.jobs) == 0 {
		mainLogger.Debug().Msg("No jobs to execute")
		return nil
	}

	traceID := uuid.New().String()
	ctx = context.WithValue(ctx, traceIDKey{}, traceID)
	mainLogger = mainLogger.With().Str("trace_id", traceID).Logger()

	concurrency := e.concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
		mainLogger.Debug().Int("adjusted_concurrency", concurrency).Msg("Adjusted concurrency")
	}
	mainLogger.Debug().Msg("Starting engine execution")

	sem := make(chan struct{}, concurrency)
	errCh := make(chan error, len(e.jobs))
	var wg sync.WaitGroup

	for i, jb := range e.jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}        // acquire
			defer func() { <-sem }() // release

			info := jb.Info()
			jobLogger := mainLogger.With().
				Int("job_index", i).
				Str("job_info", info).
				Logger()
			jobCtx := jobLogger.WithContext(ctx)

			jobLogger.Debug().Msg("Starting job execution")
			jobStartTime := time.Now()

			step := func(name string, fn func(context.Context) error) bool {
				stepStartTime := time.Now()
				if err := fn(jobCtx); err != nil {
					jobLogger.Error().
						Err(err).
						Str("step", name).
						Dur("duration", time.Since(stepStartTime)).
						Msg("Step failed")
					errCh <- fmt.Errorf("%s: %s-step: %w", info, name, err)
					return false
				}
				return true
			}

			if !step("pre", jb.Pre) || !step("execute", jb.Execute) || !step("post", jb.Post) {
				jobLogger.Warn().
					Dur("duration", time.Since(jobStartTime)).
					Msg("Job execution terminated with errors")
				return
			}

			jobLogger.Debug().
				Dur("duration", time.Since(jobStartTime)).
				Msg("Job completed successfully")
		}()
	}

	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// FuncJob adapts plain functions to Job. Nil steps are skipped.
type FuncJob struct {
	Name        string
	PreFunc     func(context.Context) error
	ExecuteFunc func(context.Context) error
	PostFunc    func(context.Context) error
}

func (f FuncJob) Info() string { return f.Name }

func (f FuncJob) Pre(ctx context.Context) error { return call(ctx, f.PreFunc) }

func (f FuncJob) Execute(ctx context.Context) error { return call(ctx, f.ExecuteFunc) }

func (f FuncJob) Post(ctx context.Context) error { return call(ctx, f.PostFunc) }

func call(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}
