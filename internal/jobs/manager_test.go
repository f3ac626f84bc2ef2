package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quillside/storybible-engine/model"
)

func TestJobManager_CreateJob(t *testing.T) {
	manager := NewManager(2)
	defer manager.Stop()

	jobID := manager.CreateJob(model.JobTypeRebuildIndex, "", map[string]string{
		"catalog_version": "3",
	})

	if jobID == "" {
		t.Error("Expected non-empty job ID")
	}

	job, err := manager.GetJob(jobID)
	if err != nil {
		t.Fatalf("Failed to get created job: %v", err)
	}

	if job.Type != model.JobTypeRebuildIndex {
		t.Errorf("Expected job type %s, got %s", model.JobTypeRebuildIndex, job.Type)
	}

	if job.Status != model.JobStatusPending {
		t.Errorf("Expected job status %s, got %s", model.JobStatusPending, job.Status)
	}
}

func TestJobManager_ExecuteJob(t *testing.T) {
	manager := NewManager(2)
	manager.Start()
	defer manager.Stop()

	jobID := manager.CreateJob(model.JobTypeRescanDocument, "doc-1", nil)

	err := manager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		manager.UpdateJobProgress(jobID, 1, 2, "Scanning")
		time.Sleep(10 * time.Millisecond) // Simulate work
		manager.UpdateJobProgress(jobID, 2, 2, "Applied")
		return nil
	})

	if err != nil {
		t.Fatalf("Failed to execute job: %v", err)
	}

	// Wait a bit for job to complete
	time.Sleep(50 * time.Millisecond)

	job, err := manager.GetJob(jobID)
	if err != nil {
		t.Fatalf("Failed to get job after execution: %v", err)
	}

	if job.Status != model.JobStatusCompleted {
		t.Errorf("Expected job status %s, got %s", model.JobStatusCompleted, job.Status)
	}

	if job.Progress == nil {
		t.Error("Expected job progress to be set")
	} else if job.Progress.Current != 2 || job.Progress.Total != 2 {
		t.Errorf("Expected progress 2/2, got %d/%d", job.Progress.Current, job.Progress.Total)
	}

	if job.DocumentID != "doc-1" {
		t.Errorf("Expected document ID 'doc-1', got %s", job.DocumentID)
	}
}

func TestJobManager_FailedJob(t *testing.T) {
	manager := NewManager(1)
	manager.Start()
	defer manager.Stop()

	jobID := manager.CreateJob(model.JobTypeRebuildIndex, "", nil)

	err := manager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		return errors.New("catalog unavailable")
	})
	if err != nil {
		t.Fatalf("Failed to execute job: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	job, err := manager.GetJob(jobID)
	if err != nil {
		t.Fatalf("Failed to get job after execution: %v", err)
	}

	if job.Status != model.JobStatusFailed {
		t.Errorf("Expected job status %s, got %s", model.JobStatusFailed, job.Status)
	}
	if job.Error != "catalog unavailable" {
		t.Errorf("Expected job error to be recorded, got %q", job.Error)
	}
}

func TestJobManager_ListJobsByDocument(t *testing.T) {
	manager := NewManager(1)
	defer manager.Stop()

	manager.CreateJob(model.JobTypeRescanDocument, "doc-1", nil)
	manager.CreateJob(model.JobTypeRescanDocument, "doc-2", nil)
	manager.CreateJob(model.JobTypeRebuildIndex, "", nil)

	if got := len(manager.ListJobs("doc-1", nil)); got != 1 {
		t.Errorf("Expected 1 job for doc-1, got %d", got)
	}
	if got := len(manager.ListJobs("", nil)); got != 3 {
		t.Errorf("Expected 3 jobs without document filter, got %d", got)
	}

	pending := model.JobStatusPending
	if got := len(manager.ListJobs("", &pending)); got != 3 {
		t.Errorf("Expected 3 pending jobs, got %d", got)
	}
}
