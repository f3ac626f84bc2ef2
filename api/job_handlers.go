package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quillside/storybible-engine/model"
)

// GetJobHandler handles requests to get job status by ID.
func (api *API) GetJobHandler(c *gin.Context) {
	jobID := c.Param("jobId")

	job, err := api.engine.GetJob(jobID)
	if err != nil {
		SendJobNotFoundError(c, jobID)
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListDocumentJobsHandler handles requests to list jobs for a document.
func (api *API) ListDocumentJobsHandler(c *gin.Context) {
	documentID := c.Param("documentId")
	statusParam := c.Query("status")

	var statusFilter *model.JobStatus
	if statusParam != "" {
		status := model.JobStatus(statusParam)
		statusFilter = &status
	}

	jobs := api.engine.ListJobs(documentID, statusFilter)
	c.JSON(http.StatusOK, gin.H{
		"jobs":        jobs,
		"document_id": documentID,
		"total":       len(jobs),
	})
}

// GetJobMetricsHandler handles requests to get job performance metrics.
func (api *API) GetJobMetricsHandler(c *gin.Context) {
	response := gin.H{
		"metrics":          api.engine.JobMetrics(),
		"success_rate":     api.engine.JobSuccessRate(),
		"current_workload": api.engine.CurrentJobWorkload(),
	}

	c.JSON(http.StatusOK, response)
}
