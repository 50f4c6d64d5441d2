package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/huangsam/leadscore/core"
	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/schema"
)

// Worker processes score:batch tasks and records every run.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	cfg    *contract.Config
	mgr    contract.StoreManager
	engine *core.Engine
	log    *slog.Logger
}

// NewWorker creates a worker for cfg.Queue. A nil engine scores with the
// wall clock and cfg.Workers.
func NewWorker(cfg *contract.Config, mgr contract.StoreManager, engine *core.Engine, log *slog.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	if engine == nil {
		engine = core.NewEngine(core.WithWorkers(cfg.Workers), core.WithLogger(log))
	}

	queue := cfg.Queue
	if queue == "" {
		queue = "default"
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = contract.DefaultConcurrency
	}

	w := &Worker{
		server: asynq.NewServer(opt, asynq.Config{
			Concurrency: concurrency,
			Queues:      map[string]int{queue: 1},
			LogLevel:    asynq.WarnLevel,
		}),
		mux:    asynq.NewServeMux(),
		cfg:    cfg,
		mgr:    mgr,
		engine: engine,
		log:    log,
	}
	w.mux.HandleFunc(TaskScoreBatch, w.handleScoreBatch)
	return w, nil
}

// Run processes tasks until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()
	w.log.Info("Worker started", "queue", w.cfg.Queue, "concurrency", w.cfg.Concurrency)
	if err := w.server.Run(w.mux); err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}
	return nil
}

func (w *Worker) handleScoreBatch(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseScoreBatchPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	taskID, _ := asynq.GetTaskID(ctx)

	var (
		configs contract.ConfigStore
		results contract.ResultStore
	)
	if w.mgr != nil {
		configs = w.mgr.GetConfigStore()
		results = w.mgr.GetResultStore()
	}
	svc := core.NewConfigService(configs, w.cfg.FrameworkConfigs)
	fc, err := svc.Load(core.WithTenant(ctx, payload.Tenant), payload.Tenant, payload.Framework)
	if err != nil {
		return fmt.Errorf("failed to load %s configuration: %w", payload.Framework, err)
	}

	batch, err := core.RunBatch(ctx, w.engine, results, payload.Tenant, payload.Contacts, fc)
	if err != nil {
		if schema.IsInvalidConfiguration(err) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}
	if batch.Canceled {
		return errors.New("batch canceled before every contact finished")
	}

	w.log.Info("Scored batch",
		"task_id", taskID,
		"run_id", batch.RunID,
		"tenant", payload.Tenant,
		"framework", payload.Framework,
		"scored", batch.Scored,
		"failed", len(batch.Failed))
	return nil
}
