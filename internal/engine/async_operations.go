package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/quillside/storybible-engine/model"
)

// RefreshCatalogAsync runs a catalog refresh as a background job and returns
// the job ID for polling. Satisfies services.AsyncCatalogRefresher.
func (e *Engine) RefreshCatalogAsync() (string, error) {
	jobID := e.jobManager.CreateJob(model.JobTypeRebuildIndex, "", map[string]string{
		"operation":       "rebuild_index",
		"catalog_version": fmt.Sprintf("%d", e.catalog.Version()),
	})

	err := e.jobManager.ExecuteJob(jobID, func(_ context.Context, _ *model.Job) error {
		return e.executeRefreshCatalogJob(jobID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start catalog refresh job: %w", err)
	}

	return jobID, nil
}

// executeRefreshCatalogJob executes the catalog refresh job.
func (e *Engine) executeRefreshCatalogJob(jobID string) error {
	e.mu.RLock()
	attached := len(e.sessions)
	e.mu.RUnlock()

	e.jobManager.UpdateJobProgress(jobID, 0, attached+1, "Rebuilding entity index")

	if err := e.RefreshCatalog(); err != nil {
		return fmt.Errorf("catalog refresh failed: %w", err)
	}

	e.jobManager.UpdateJobProgress(jobID, attached+1, attached+1, "Index rebuilt, documents rescanned")
	log.Printf("Catalog refreshed asynchronously (version %d).", e.catalog.Version())
	return nil
}

// RescanDocumentAsync forces a full rescan of one document as a background
// job, bypassing the debounce. Returns the job ID for polling.
func (e *Engine) RescanDocumentAsync(docID string) (string, error) {
	if _, err := e.session(docID); err != nil {
		return "", err
	}

	jobID := e.jobManager.CreateJob(model.JobTypeRescanDocument, docID, map[string]string{
		"operation": "rescan_document",
	})

	err := e.jobManager.ExecuteJob(jobID, func(_ context.Context, _ *model.Job) error {
		sess, err := e.session(docID)
		if err != nil {
			return fmt.Errorf("document detached before rescan job ran: %w", err)
		}
		sess.rescan()
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to start rescan job: %w", err)
	}

	return jobID, nil
}
