package api

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "telemetry-pipeline/docs"
	"telemetry-pipeline/internal/api/handler"
	"telemetry-pipeline/pkg/router"
)

// @title Telemetry Pipeline API
// @version 1.0
// @description Cleans vessel telemetry CSV files into partitioned Parquet datasets.
// @BasePath /api/v1

// RegisterRoutes wires the run endpoints, metrics and API docs
func RegisterRoutes(r *router.Router, h *handler.Handler) {
	r.POST("/api/v1/runs", h.CreateRun)
	r.GET("/api/v1/runs", h.ListRuns)
	r.GET("/api/v1/runs/*", h.GetRun)
	r.GET("/healthz", h.Healthz)

	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

// NewServer builds a router with every route registered
func NewServer(h *handler.Handler) *router.Router {
	r := router.New()
	RegisterRoutes(r, h)
	return r
}
