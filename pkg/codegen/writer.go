package codegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gnana997/stylepipe/pkg/pipeline"
	"github.com/gnana997/stylepipe/pkg/stage"
	"github.com/gnana997/stylepipe/pkg/util"
)

type writeState int

const (
	statePending writeState = iota
	stateCommitted
	stateDiscarded
)

// stagedWrite writes an artifact set into a hidden staging directory beside
// the target and swaps it into place on Commit. Until then the target
// directory is untouched.
type stagedWrite struct {
	target  string
	staging string
	files   []string
	created []string
	logger  *slog.Logger

	done chan struct{}
	err  error

	mu    sync.Mutex
	state writeState
}

var _ stage.Completion = (*stagedWrite)(nil)

// startWrite creates the staging directory and begins writing set in the
// background with at most concurrency files in flight.
func startWrite(ctx context.Context, set ArtifactSet, target string, concurrency int, logger *slog.Logger) (*stagedWrite, error) {
	parent := filepath.Dir(target)
	created, err := util.MissingDirs(parent)
	if err != nil {
		return nil, pipeline.WriteError(stage.NameCodegen, fmt.Errorf("create %s: %w", parent, err))
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		util.RemoveEmptyDirs(created)
		return nil, pipeline.WriteError(stage.NameCodegen, fmt.Errorf("create %s: %w", parent, err))
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(target)+".staging-")
	if err != nil {
		util.RemoveEmptyDirs(created)
		return nil, pipeline.WriteError(stage.NameCodegen, fmt.Errorf("create staging directory: %w", err))
	}

	w := &stagedWrite{
		target:  target,
		staging: staging,
		files:   set.Paths(),
		created: created,
		logger:  logger,
		done:    make(chan struct{}),
	}

	limit := util.GetOptimalPoolSizeWithOverride(concurrency)
	go func() {
		defer close(w.done)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		for _, a := range set.Artifacts {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				p := filepath.Join(staging, filepath.FromSlash(a.Path))
				if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
					return fmt.Errorf("create %s: %w", filepath.Dir(p), err)
				}
				if err := os.WriteFile(p, a.Content, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", a.Path, err)
				}
				return nil
			})
		}
		w.err = g.Wait()
	}()

	return w, nil
}

// Wait blocks until every file is staged.
func (w *stagedWrite) Wait(ctx context.Context) error {
	select {
	case <-w.done:
	case <-ctx.Done():
		return pipeline.WriteError(stage.NameCodegen, ctx.Err())
	}
	if w.err != nil {
		return pipeline.WriteError(stage.NameCodegen, w.err)
	}
	w.logger.Debug("bindings staged", "files", len(w.files), "staging", w.staging)
	return nil
}

// Commit replaces the target directory with the staged one. A previous
// target is moved aside first and restored if the swap fails.
func (w *stagedWrite) Commit() error {
	<-w.done

	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case stateCommitted:
		return nil
	case stateDiscarded:
		return pipeline.WriteError(stage.NameCodegen, errors.New("commit after discard"))
	}
	if w.err != nil {
		return pipeline.WriteError(stage.NameCodegen, w.err)
	}

	backup := ""
	if _, err := os.Stat(w.target); err == nil {
		backup = w.staging + ".previous"
		if err := os.Rename(w.target, backup); err != nil {
			return pipeline.WriteError(stage.NameCodegen, fmt.Errorf("move aside %s: %w", w.target, err))
		}
	}

	if err := os.Rename(w.staging, w.target); err != nil {
		if backup != "" {
			if rerr := os.Rename(backup, w.target); rerr != nil {
				w.logger.Error("failed to restore previous bindings", "dir", w.target, "error", rerr)
			}
		}
		return pipeline.WriteError(stage.NameCodegen, fmt.Errorf("publish %s: %w", w.target, err))
	}
	w.state = stateCommitted

	if backup != "" {
		if err := os.RemoveAll(backup); err != nil {
			w.logger.Warn("failed to remove previous bindings", "dir", backup, "error", err)
		}
	}

	lines := make([]string, 0, len(w.files)+1)
	lines = append(lines, fmt.Sprintf("Saved %d generated files to %s", len(w.files), w.target))
	for _, f := range w.files {
		lines = append(lines, "  "+f)
	}
	w.logger.Info(strings.Join(lines, "\n"))
	return nil
}

// Discard removes the staging directory, and the directories created to hold
// it, once in-flight writes have stopped.
func (w *stagedWrite) Discard() error {
	<-w.done

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != statePending {
		return nil
	}
	w.state = stateDiscarded
	if err := os.RemoveAll(w.staging); err != nil {
		return fmt.Errorf("remove %s: %w", w.staging, err)
	}
	util.RemoveEmptyDirs(w.created)
	w.logger.Debug("staged bindings discarded", "staging", w.staging)
	return nil
}
