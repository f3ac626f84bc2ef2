// Package api exposes the annotation engine, the entity catalog, and the
// live document registry over HTTP for editor hosts.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quillside/storybible-engine/internal/analytics"
	"github.com/quillside/storybible-engine/internal/engine"
	"github.com/quillside/storybible-engine/store"
)

// API holds dependencies for the HTTP handlers.
type API struct {
	engine    *engine.Engine
	catalog   *store.CatalogStore
	documents *store.DocumentStore
	analytics *analytics.Service
	persist   func() error
}

// NewAPI creates a new API handler structure.
func NewAPI(eng *engine.Engine, catalog *store.CatalogStore, documents *store.DocumentStore, analyticsSvc *analytics.Service) *API {
	return &API{
		engine:    eng,
		catalog:   catalog,
		documents: documents,
		analytics: analyticsSvc,
	}
}

// SetPersistHook installs a callback invoked after every catalog mutation,
// used by the server binary to snapshot the catalog to disk.
func (api *API) SetPersistHook(persist func() error) {
	api.persist = persist
}

// SetupRoutes defines all the API routes for the annotation engine.
func SetupRoutes(router *gin.Engine, api *API) {
	// Health check route
	router.GET("/health", api.HealthCheckHandler)

	// Analytics route
	router.GET("/analytics", api.GetAnalyticsHandler)

	// Engine settings route
	router.GET("/settings", api.GetSettingsHandler)

	// Job management routes
	jobRoutes := router.Group("/jobs")
	{
		jobRoutes.GET("/:jobId", api.GetJobHandler)         // Get job status by ID
		jobRoutes.GET("/metrics", api.GetJobMetricsHandler) // Get job performance metrics
	}

	// Entity catalog routes
	entityRoutes := router.Group("/entities")
	{
		entityRoutes.POST("", api.CreateEntityHandler)              // Add an entity
		entityRoutes.GET("", api.ListEntitiesHandler)               // List the catalog
		entityRoutes.GET("/:entityId", api.GetEntityHandler)        // Get a specific entity
		entityRoutes.PUT("/:entityId", api.UpdateEntityHandler)     // Replace an entity
		entityRoutes.DELETE("/:entityId", api.DeleteEntityHandler)  // Remove an entity
		entityRoutes.POST("/_refresh", api.RefreshCatalogHandler)   // Force an async index rebuild
	}

	// Live document routes
	docRoutes := router.Group("/documents")
	{
		docRoutes.POST("", api.OpenDocumentHandler)                     // Open and attach a document
		docRoutes.GET("", api.ListDocumentsHandler)                     // List open documents
		docRoutes.GET("/:documentId", api.GetDocumentHandler)           // Get document state
		docRoutes.DELETE("/:documentId", api.CloseDocumentHandler)      // Detach and close
		docRoutes.PUT("/:documentId/text", api.UpdateTextHandler)       // Edit text (debounced rescan)
		docRoutes.PUT("/:documentId/cursor", api.UpdateCursorHandler)   // Move cursor (debounced rescan)
		docRoutes.GET("/:documentId/matches", api.GetMatchesHandler)    // Applied matches
		docRoutes.GET("/:documentId/marks", api.GetMarksHandler)        // Mark ledger
		docRoutes.POST("/:documentId/_rescan", api.RescanHandler)       // Force an async rescan
		docRoutes.GET("/:documentId/jobs", api.ListDocumentJobsHandler) // Jobs for a document
	}
}

// HealthCheckHandler provides a simple health check endpoint.
func (api *API) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "storybible-engine",
		"timestamp": fmt.Sprintf("%d", time.Now().Unix()),
	})
}

// GetSettingsHandler returns the engine configuration.
func (api *API) GetSettingsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, api.engine.Settings())
}

// persistCatalog runs the snapshot hook after a catalog mutation and reports
// whether the caller may respond with success. A failed snapshot surfaces as
// an error response; the in-memory mutation stays applied.
func (api *API) persistCatalog(c *gin.Context) bool {
	if api.persist == nil {
		return true
	}
	if err := api.persist(); err != nil {
		SendPersistenceError(c, "catalog snapshot", err)
		return false
	}
	return true
}
