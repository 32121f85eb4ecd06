package queue

import (
	"context"

	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/halosight/presence-cli/internal/config"
)

// Worker polls the task queue and executes audit workflows.
type Worker struct {
	client client.Client
	worker worker.Worker
}

// NewWorker dials Temporal and registers the audit workflow and
// activities on the configured task queue.
func NewWorker(cfg config.TemporalConfig, acts *Activities) (*Worker, error) {
	c, err := dial(cfg)
	if err != nil {
		return nil, err
	}

	w := worker.New(c, cfg.TaskQueue, worker.Options{})
	w.RegisterWorkflow(AuditWorkflow)
	w.RegisterActivity(acts)

	return &Worker{client: c, worker: w}, nil
}

// Run polls until the context is cancelled, then drains and shuts down.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.worker.Start(); err != nil {
		return eris.Wrap(err, "queue: start worker")
	}
	zap.L().Info("temporal worker started")

	<-ctx.Done()
	zap.L().Info("temporal worker stopping")
	w.worker.Stop()
	w.client.Close()
	return nil
}

// Enqueuer starts audit workflows on the task queue.
type Enqueuer struct {
	client    client.Client
	taskQueue string
}

// NewEnqueuer dials Temporal for workflow submission.
func NewEnqueuer(cfg config.TemporalConfig) (*Enqueuer, error) {
	c, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	return &Enqueuer{client: c, taskQueue: cfg.TaskQueue}, nil
}

// Enqueue starts the workflow for one audit and returns its run ID. The
// workflow ID embeds the audit ID, so enqueueing an audit that is
// already in flight is rejected by the server instead of running twice.
func (e *Enqueuer) Enqueue(ctx context.Context, auditID string) (string, error) {
	run, err := e.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "audit-" + auditID,
		TaskQueue: e.taskQueue,
	}, AuditWorkflow, AuditWorkflowInput{AuditID: auditID})
	if err != nil {
		return "", eris.Wrapf(err, "queue: enqueue audit %s", auditID)
	}

	zap.L().Info("audit enqueued",
		zap.String("audit_id", auditID),
		zap.String("workflow_id", run.GetID()),
		zap.String("run_id", run.GetRunID()))
	return run.GetRunID(), nil
}

// Close releases the underlying Temporal connection.
func (e *Enqueuer) Close() {
	e.client.Close()
}

func dial(cfg config.TemporalConfig) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    newZapAdapter(zap.L()),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "queue: dial temporal at %s", cfg.HostPort)
	}
	return c, nil
}
