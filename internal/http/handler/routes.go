package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"docstore/internal/service"
	"docstore/internal/sweep"
)

// RegisterRoutes attaches the HTTP API to app. uploadLimiter guards the
// upload endpoint only; reads are not rate limited.
func RegisterRoutes(
	app *fiber.App,
	svc service.DocumentService,
	sw *sweep.Sweeper,
	healthCheck func(ctx context.Context) error,
	uploadLimiter fiber.Handler,
) {
	app.Get("/health", HealthCheck(healthCheck))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api")

	docs := api.Group("/documents")
	docs.Post("/upload", uploadLimiter, UploadDocument(svc))
	docs.Get("/", ListDocuments(svc))
	docs.Get("/search", SearchDocuments(svc))
	docs.Get("/stats", DocumentStats(svc))
	docs.Delete("/bulk", BulkDeleteDocuments(svc))
	docs.Post("/bulk/download", BulkDownloadDocuments(svc))
	docs.Get("/:id", GetDocument(svc))
	docs.Get("/:id/download", DownloadDocument(svc))
	docs.Get("/:id/preview", PreviewDocument(svc))
	docs.Put("/:id", UpdateDocument(svc))
	docs.Delete("/:id", DeleteDocument(svc))

	admin := api.Group("/admin")
	admin.Post("/cleanup", AdminCleanup(sw))
	admin.Get("/performance", AdminPerformance(svc))
}
