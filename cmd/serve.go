package cmd

import (
	"github.com/huangsam/leadscore/internal/jobs"
	"github.com/huangsam/leadscore/internal/server"
	"github.com/spf13/cobra"
)

// serveCmd runs the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scoring and configuration HTTP API",
	Long: `Start an HTTP server exposing scoring and tenant configuration endpoints.

Requests are authenticated with HMAC-signed bearer tokens carrying a tenant_id
claim when --jwt-secret is set. Without a secret every request uses --tenant.

Endpoints:
  GET   /healthz
  GET   /v1/frameworks
  GET   /v1/configs/{framework}
  PUT   /v1/configs/{framework}
  PATCH /v1/configs/{framework}/weights
  PUT   /v1/configs/{framework}/thresholds
  POST  /v1/score/{framework}
  POST  /v1/score/{framework}/batch

Examples:
  LEADSCORE_JWT_SECRET=changeme leadscore serve --addr :8080
  leadscore serve --results-backend sqlite --cors-origins https://app.example.com`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return server.Run(rootCtx, cfg, storeManager)
	},
}

// workerCmd processes batches submitted with score --enqueue.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued scoring batches",
	Long: `Start a worker that consumes score:batch tasks from the Redis queue, scores
each batch with the tenant's stored configuration and records the run.

Examples:
  leadscore worker --redis-url redis://localhost:6379/0 --concurrency 4
  leadscore score leads.json --enqueue -f bant,spice`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		worker, err := jobs.NewWorker(cfg, storeManager, nil, nil)
		if err != nil {
			return err
		}
		return worker.Run(rootCtx)
	},
}
