// Package batch executes write plans against a wiki with bounded
// concurrency. One page failing terminally does not abort the run:
// the failure is recorded and the remaining tasks proceed.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/vietddude/wikibot/internal/client"
	"github.com/vietddude/wikibot/internal/core/domain"
	"github.com/vietddude/wikibot/internal/metrics"
)

// Writer is the client surface the runner drives. Satisfied by
// *client.Client.
type Writer interface {
	Save(ctx context.Context, title, text string, opts client.SaveOptions) error
	Move(ctx context.Context, title, newTitle string, opts client.MoveOptions) error
	Delete(ctx context.Context, title string, opts client.DeleteOptions) error
}

// Failure records one task that did not complete.
type Failure struct {
	Task Task
	Err  error
}

// Report summarizes a finished run.
type Report struct {
	RunID     string
	Succeeded int
	Failed    int
	Failures  []Failure
}

// Runner executes plans against one wiki.
type Runner struct {
	writer Writer
	log    *slog.Logger
}

// NewRunner creates a runner over the given client.
func NewRunner(writer Writer) *Runner {
	return &Runner{writer: writer, log: slog.Default()}
}

// Run executes every task of the plan. Terminal and continuation
// failures are caught per task and the batch continues; only context
// cancellation stops the run early, and the partial report is returned
// alongside ctx.Err() in that case.
func (r *Runner) Run(ctx context.Context, plan *Plan) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	r.log.Info("starting batch run",
		"run", report.RunID, "plan", plan.Name,
		"tasks", len(plan.Tasks), "concurrency", plan.Concurrency)

	tasks := make(chan Task)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < plan.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				err := r.execute(ctx, task)
				mu.Lock()
				if err != nil {
					report.Failed++
					report.Failures = append(report.Failures, Failure{Task: task, Err: err})
				} else {
					report.Succeeded++
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, task := range plan.Tasks {
		select {
		case <-ctx.Done():
			break feed
		case tasks <- task:
		}
	}
	close(tasks)
	wg.Wait()

	r.log.Info("batch run finished",
		"run", report.RunID, "succeeded", report.Succeeded, "failed", report.Failed)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (r *Runner) execute(ctx context.Context, task Task) error {
	var sink func(error)
	if task.BestEffort {
		sink = func(err error) {
			r.log.Error("best-effort task failed", "type", task.Type, "title", task.Title, "error", err)
		}
	}

	var err error
	switch task.Type {
	case TaskEdit:
		err = r.writer.Save(ctx, task.Title, task.Text, client.SaveOptions{
			Summary:   task.Summary,
			Minor:     task.Minor,
			Bot:       true,
			OnFailure: sink,
		})
	case TaskMove:
		err = r.writer.Move(ctx, task.Title, task.NewTitle, client.MoveOptions{
			Reason:    task.Reason,
			MoveTalk:  true,
			OnFailure: sink,
		})
	case TaskDelete:
		err = r.writer.Delete(ctx, task.Title, client.DeleteOptions{
			Reason:    task.Reason,
			OnFailure: sink,
		})
	}

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = "cancelled"
	default:
		outcome = "failed"
		var terminal *domain.TerminalError
		var continuation *domain.ContinuationError
		switch {
		case errors.As(err, &terminal):
			r.log.Error("task gave up after retries",
				"type", task.Type, "title", task.Title, "attempts", terminal.Attempts, "error", err)
		case errors.As(err, &continuation):
			r.log.Error("task lost a page of results",
				"type", task.Type, "title", task.Title, "call", continuation.CallIndex, "error", err)
		default:
			r.log.Error("task failed", "type", task.Type, "title", task.Title, "error", err)
		}
	}
	metrics.BatchTasksTotal.WithLabelValues(string(task.Type), outcome).Inc()
	return err
}
