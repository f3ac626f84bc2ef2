package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	engineerrors "github.com/quillside/storybible-engine/internal/errors"
	"github.com/quillside/storybible-engine/model"
)

// EntityRequest is the JSON payload for creating or replacing a catalog
// entity. Type defaults to "custom" when omitted or unknown.
type EntityRequest struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Type        string   `json:"type"`
	Tags        []string `json:"tags,omitempty"`
	Rules       []string `json:"rules,omitempty"`
}

func (req *EntityRequest) toEntity() model.Entity {
	return model.Entity{
		ID:          req.ID,
		DisplayName: req.DisplayName,
		Type:        model.ParseEntityType(req.Type),
		Tags:        req.Tags,
		Rules:       req.Rules,
	}
}

// CreateEntityHandler adds an entity to the catalog and refreshes the index
// so attached documents pick up the new patterns immediately.
func (api *API) CreateEntityHandler(c *gin.Context) {
	var req EntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	if result := ValidateEntityRequest(&req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if _, err := api.catalog.Get(req.ID); err == nil {
		SendEntityExistsError(c, req.ID)
		return
	}

	if err := api.catalog.Upsert(req.toEntity()); err != nil {
		SendInternalError(c, "entity creation", err)
		return
	}
	if err := api.engine.RefreshCatalog(); err != nil {
		SendInternalError(c, "index refresh", err)
		return
	}
	if !api.persistCatalog(c) {
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":         "Entity '" + req.ID + "' created",
		"catalog_version": api.catalog.Version(),
	})
}

// ListEntitiesHandler returns the catalog snapshot.
func (api *API) ListEntitiesHandler(c *gin.Context) {
	entities := api.catalog.Entities()
	c.JSON(http.StatusOK, gin.H{
		"entities":        entities,
		"count":           len(entities),
		"catalog_version": api.catalog.Version(),
	})
}

// GetEntityHandler retrieves a specific entity by ID.
func (api *API) GetEntityHandler(c *gin.Context) {
	entityID := c.Param("entityId")

	entity, err := api.catalog.Get(entityID)
	if err != nil {
		SendEntityNotFoundError(c, entityID)
		return
	}
	c.JSON(http.StatusOK, entity)
}

// UpdateEntityHandler replaces an existing entity and refreshes the index.
func (api *API) UpdateEntityHandler(c *gin.Context) {
	entityID := c.Param("entityId")

	if _, err := api.catalog.Get(entityID); err != nil {
		SendEntityNotFoundError(c, entityID)
		return
	}

	var req EntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}
	req.ID = entityID

	if result := ValidateEntityRequest(&req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := api.catalog.Upsert(req.toEntity()); err != nil {
		SendInternalError(c, "entity update", err)
		return
	}
	if err := api.engine.RefreshCatalog(); err != nil {
		SendInternalError(c, "index refresh", err)
		return
	}
	if !api.persistCatalog(c) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Entity '" + entityID + "' updated",
		"catalog_version": api.catalog.Version(),
	})
}

// DeleteEntityHandler removes an entity; its highlights disappear from all
// attached documents on the refresh that follows.
func (api *API) DeleteEntityHandler(c *gin.Context) {
	entityID := c.Param("entityId")

	if err := api.catalog.Delete(entityID); err != nil {
		if errors.Is(err, engineerrors.ErrEntityNotFound) {
			SendEntityNotFoundError(c, entityID)
			return
		}
		SendInternalError(c, "entity deletion", err)
		return
	}
	if err := api.engine.RefreshCatalog(); err != nil {
		SendInternalError(c, "index refresh", err)
		return
	}
	if !api.persistCatalog(c) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Entity '" + entityID + "' deleted",
		"catalog_version": api.catalog.Version(),
	})
}

// RefreshCatalogHandler forces an asynchronous index rebuild, for hosts that
// mutate the catalog out of band (e.g. bulk imports).
func (api *API) RefreshCatalogHandler(c *gin.Context) {
	jobID, err := api.engine.RefreshCatalogAsync()
	if err != nil {
		SendJobExecutionError(c, "catalog refresh", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Catalog refresh started",
		"job_id":  jobID,
	})
}
