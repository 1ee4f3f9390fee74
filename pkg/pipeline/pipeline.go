// Package pipeline threads stylesheet source through an ordered chain of
// stages and tracks the side effects they start.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/gnana997/stylepipe/pkg/metrics"
	"github.com/gnana997/stylepipe/pkg/stage"
)

// Status is the terminal state of a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// StageReport records one executed stage.
type StageReport struct {
	Name     string
	Duration time.Duration
	Emitted  int // usage names reported by the stage
}

// Result is the outcome of Orchestrator.Run.
type Result struct {
	// Source is the final text. Zero on failure.
	Source stage.Source
	// Usage is every token name emitted along the chain.
	Usage  stage.Usage
	Status Status
	Err    error
	Stages []StageReport

	completions []tracked
}

type tracked struct {
	stage      string
	completion stage.Completion
}

// OK reports whether the run succeeded.
func (r *Result) OK() bool {
	return r.Status == StatusSucceeded
}

// Commit publishes every waited completion in stage order. If one fails the
// remaining ones are discarded and a write error is returned.
func (r *Result) Commit() error {
	if !r.OK() {
		return fmt.Errorf("cannot commit a failed run")
	}
	for i, t := range r.completions {
		if err := t.completion.Commit(); err != nil {
			discardAll(r.completions[i+1:])
			r.completions = nil
			return attribute(t.stage, asWrite(err))
		}
	}
	r.completions = nil
	return nil
}

// Discard rolls back every completion that has not been committed.
func (r *Result) Discard() error {
	err := discardAll(r.completions)
	r.completions = nil
	return err
}

// Pending returns the names of stages holding uncommitted work.
func (r *Result) Pending() []string {
	names := make([]string, 0, len(r.completions))
	for _, t := range r.completions {
		names = append(names, t.stage)
	}
	return names
}

// Orchestrator runs stage chains. It holds no per-run state and can be reused.
type Orchestrator struct {
	logger   *slog.Logger
	recorder metrics.Recorder
}

// NewOrchestrator creates an orchestrator. Nil arguments get defaults.
func NewOrchestrator(logger *slog.Logger, recorder metrics.Recorder) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Orchestrator{logger: logger, recorder: recorder}
}

// Run feeds source through stages in order. Each stage sees the previous
// stage's text and the usage accumulated so far. The first failure aborts the
// run, discards every completion started so far and returns a failed Result
// naming the stage. On success all completions have been waited on but not
// committed; the caller decides between Result.Commit and Result.Discard.
func (o *Orchestrator) Run(ctx context.Context, source stage.Source, stages []stage.Stage) *Result {
	res := &Result{}

	if len(stages) == 0 {
		return res.fail(ConfigErrorf("pipeline has no stages"))
	}

	in := stage.Input{Source: source}
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			discardAll(res.completions)
			res.completions = nil
			return res.fail(StageError(st.Name(), err))
		}

		start := time.Now()
		out, err := st.Process(ctx, in)
		dur := time.Since(start)

		if err != nil {
			o.recorder.ObserveStage(st.Name(), dur, metrics.ResultFailed)
			if out.Completion != nil {
				_ = out.Completion.Discard()
			}
			discardAll(res.completions)
			res.completions = nil
			perr := attribute(st.Name(), err)
			o.logger.Error("stage failed", "stage", st.Name(), "ms", dur.Milliseconds(), "error", perr.Err)
			return res.fail(perr)
		}

		o.recorder.ObserveStage(st.Name(), dur, metrics.ResultSuccess)
		res.Stages = append(res.Stages, StageReport{Name: st.Name(), Duration: dur, Emitted: len(out.Usage)})
		if out.Completion != nil {
			res.completions = append(res.completions, tracked{stage: st.Name(), completion: out.Completion})
		}

		o.logger.Debug("stage complete",
			"stage", st.Name(),
			"bytes", len(out.Source.Text),
			"usage", len(out.Usage),
			"ms", dur.Milliseconds())

		in = stage.Input{Source: out.Source, Usage: in.Usage.Merge(out.Usage...)}
	}

	for _, t := range res.completions {
		if err := t.completion.Wait(ctx); err != nil {
			discardAll(res.completions)
			res.completions = nil
			perr := attribute(t.stage, err)
			o.logger.Error("stage completion failed", "stage", t.stage, "error", perr.Err)
			return res.fail(perr)
		}
	}

	res.Source = in.Source
	res.Usage = in.Usage
	res.Status = StatusSucceeded
	return res
}

func (r *Result) fail(err *Error) *Result {
	r.Status = StatusFailed
	r.Err = err
	r.Source = stage.Source{}
	return r
}

func discardAll(ts []tracked) error {
	var errs []error
	for _, t := range ts {
		if err := t.completion.Discard(); err != nil {
			errs = append(errs, fmt.Errorf("discard %s: %w", t.stage, err))
		}
	}
	return errors.Join(errs...)
}

func asWrite(err error) error {
	if KindOf(err) != "" {
		return err
	}
	return WriteError("", err)
}

// ValidateOrder checks that names is a non-empty, duplicate-free subsequence
// of stage.CanonicalOrder.
func ValidateOrder(names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("at least one stage is required")
	}
	canonical := stage.CanonicalOrder()
	last := -1
	for _, name := range names {
		idx := slices.Index(canonical, name)
		if idx < 0 {
			return fmt.Errorf("unknown stage %q (known: %v)", name, canonical)
		}
		if idx <= last {
			return fmt.Errorf("stage %q is out of order or repeated; stages run as %v", name, canonical)
		}
		last = idx
	}
	return nil
}
