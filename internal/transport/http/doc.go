// Package http implements the HTTP trigger surface for aggregation
// runs. Handlers stay thin: they parse and validate requests, start
// runs on the orchestrator, and report run state; all pipeline logic
// lives behind the operations package.
//
// Runs execute asynchronously: POST /api/runs/sector and
// POST /api/runs/inventory return 202 with a run identifier, and
// GET /api/runs/{id} reports status. Live progress streams over the
// websocket endpoint.
package http
