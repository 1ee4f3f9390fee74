// Package stage defines the contract shared by every step of the stylesheet
// pipeline.
//
// A stage consumes stylesheet text (plus the token usage observed by earlier
// stages) and produces new text. Stages never mutate their input; each
// boundary produces a fresh Source value. A terminal stage may also start a
// side effect and hand back a Completion that the orchestrator waits on
// before the run counts as successful.
package stage

import (
	"context"
	"slices"
)

// Canonical stage names, in the only order the pipeline accepts.
const (
	NameImports = "imports"
	NameTokens  = "tokens"
	NamePrefix  = "prefix"
	NameCodegen = "codegen"
)

// CanonicalOrder lists stage names in execution order.
func CanonicalOrder() []string {
	return []string{NameImports, NameTokens, NamePrefix, NameCodegen}
}

// Source is stylesheet text tagged with the file it came from. Origin is used
// for diagnostics and for resolving relative imports.
type Source struct {
	Text   string
	Origin string
}

// WithText returns a copy of s carrying text.
func (s Source) WithText(text string) Source {
	return Source{Text: text, Origin: s.Origin}
}

// Usage is a sorted, duplicate-free set of token names seen in use.
type Usage []string

// Merge returns the union of u and names, sorted. u is not modified.
func (u Usage) Merge(names ...string) Usage {
	out := make([]string, 0, len(u)+len(names))
	out = append(out, u...)
	out = append(out, names...)
	slices.Sort(out)
	return Usage(slices.Compact(out))
}

// Contains reports whether name is in the set.
func (u Usage) Contains(name string) bool {
	_, found := slices.BinarySearch(u, name)
	return found
}

// Input is what a stage receives.
type Input struct {
	Source Source
	Usage  Usage
}

// Output is what a stage returns.
type Output struct {
	Source Source

	// Usage lists token names this stage observed. Optional.
	Usage []string

	// Completion tracks an asynchronous side effect started by the stage.
	// Only terminal stages set it.
	Completion Completion
}

// Stage is one transformation step.
type Stage interface {
	Name() string
	Process(ctx context.Context, in Input) (Output, error)
}

// Completion is an in-flight side effect. Wait blocks until the work is done;
// exactly one of Commit or Discard is called afterwards.
type Completion interface {
	// Wait blocks until all work started by the stage has finished.
	Wait(ctx context.Context) error

	// Commit publishes the finished work.
	Commit() error

	// Discard removes any trace of the work. Safe to call before Wait returns.
	Discard() error
}

// Func adapts a plain function into a Stage.
type Func struct {
	StageName string
	Fn        func(ctx context.Context, in Input) (Output, error)
}

func (f Func) Name() string { return f.StageName }

func (f Func) Process(ctx context.Context, in Input) (Output, error) {
	return f.Fn(ctx, in)
}

// Passthrough returns a stage that returns its input unchanged.
func Passthrough(name string) Stage {
	return Func{StageName: name, Fn: func(_ context.Context, in Input) (Output, error) {
		return Output{Source: in.Source}, nil
	}}
}
