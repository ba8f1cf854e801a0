// Package pipeline runs the analysis stages in order, recording per-stage
// timing and failures. Stages communicate through files in the output
// directory, so a run can resume from any stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/tornado-bigday/internal/observability"
)

// Stage is one step of the analysis run.
type Stage struct {
	Name string
	Run  func(ctx context.Context) error
}

// Status reports run progress for the sidecar status endpoint.
type Status struct {
	Running   bool     `json:"running"`
	Current   string   `json:"current,omitempty"`
	Completed []string `json:"completed"`
}

// Pipeline executes stages sequentially, stopping at the first failure.
type Pipeline struct {
	stages  []Stage
	logger  *slog.Logger
	metrics *observability.Metrics

	mu        sync.Mutex
	running   bool
	current   string
	completed []string
}

// New creates a Pipeline over the given stages.
func New(stages []Stage, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{stages: stages, logger: logger, metrics: metrics}
}

// CheckReadiness returns nil once at least one stage has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.completed) == 0 {
		return errors.New("no stage has completed yet")
	}
	return nil
}

// Status returns a snapshot of run progress.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	completed := make([]string, len(p.completed))
	copy(completed, p.completed)
	return Status{Running: p.running, Current: p.current, Completed: completed}
}

// Run executes the stages in order. Context cancellation stops the run
// without treating it as a stage failure.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "stages", len(p.stages))
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	p.setRunning(true)
	defer p.setRunning(false)

	for _, stage := range p.stages {
		if ctx.Err() != nil {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}

		p.setCurrent(stage.Name)
		p.logger.Info("stage started", "stage", stage.Name)
		start := time.Now()

		if err := stage.Run(ctx); err != nil {
			if ctx.Err() != nil {
				p.logger.Info("pipeline stopping", "reason", ctx.Err())
				return nil
			}
			p.metrics.StageFailures.WithLabelValues(stage.Name).Inc()
			p.logger.Error("stage failed", "stage", stage.Name, "error", err)
			return fmt.Errorf("stage %s: %w", stage.Name, err)
		}

		elapsed := time.Since(start)
		p.metrics.StageDuration.WithLabelValues(stage.Name).Observe(elapsed.Seconds())
		p.markCompleted(stage.Name)
		p.logger.Info("stage completed", "stage", stage.Name, "duration", elapsed)
	}

	p.logger.Info("pipeline finished", "stages", len(p.stages))
	return nil
}

func (p *Pipeline) setRunning(running bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = running
	if !running {
		p.current = ""
	}
}

func (p *Pipeline) setCurrent(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = name
}

func (p *Pipeline) markCompleted(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, name)
}
