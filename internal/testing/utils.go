// Package testing provides utilities and helpers for testing the annotation
// engine and its HTTP surface.
package testing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillside/storybible-engine/config"
	"github.com/quillside/storybible-engine/internal/engine"
	"github.com/quillside/storybible-engine/model"
	"github.com/quillside/storybible-engine/services"
	"github.com/quillside/storybible-engine/store"
)

// FixtureEntities returns a small story bible catalog shared across tests.
func FixtureEntities() []model.Entity {
	return []model.Entity{
		{ID: "aria-blackwood", DisplayName: "Aria Blackwood", Type: model.EntityTypeCharacter, Tags: []string{"Aria", "the Raven"}},
		{ID: "ben", DisplayName: "Ben", Type: model.EntityTypeCharacter},
		{ID: "vaelhold", DisplayName: "Vaelhold", Type: model.EntityTypeLocation, Tags: []string{"the city"}},
		{ID: "ashblade", DisplayName: "Ashblade", Type: model.EntityTypeItem},
	}
}

// CreateTestCatalog creates a catalog store pre-populated with the fixture
// entities.
func CreateTestCatalog(t *testing.T, entities ...model.Entity) *store.CatalogStore {
	t.Helper()

	if entities == nil {
		entities = FixtureEntities()
	}
	catalog := store.NewCatalogStore()
	for _, entity := range entities {
		require.NoError(t, catalog.Upsert(entity), "Failed to seed catalog entity")
	}
	return catalog
}

// CreateTestEngine creates an engine over the given catalog with a short
// debounce and automatic shutdown.
func CreateTestEngine(t *testing.T, catalog services.CatalogSource) *engine.Engine {
	t.Helper()

	eng := engine.NewEngine(catalog, config.EngineSettings{
		DebounceDelay: 10 * time.Millisecond,
		DataDir:       t.TempDir(),
	})
	t.Cleanup(eng.Stop)
	return eng
}

// AttachTestDocument opens a live document and attaches it to the engine,
// detaching on test cleanup.
func AttachTestDocument(t *testing.T, eng *engine.Engine, docID, text string) *store.LiveDocument {
	t.Helper()

	doc := store.NewLiveDocument(docID, text)
	require.NoError(t, eng.AttachDocument(docID, doc, doc), "Failed to attach test document")
	t.Cleanup(func() { _ = eng.DetachDocument(docID) })
	return doc
}

// JobPollingOptions configures job polling behavior.
type JobPollingOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
	LogProgress  bool
}

// DefaultJobPollingOptions returns sensible defaults for job polling.
func DefaultJobPollingOptions() JobPollingOptions {
	return JobPollingOptions{
		Timeout:      10 * time.Second,
		PollInterval: 10 * time.Millisecond,
		LogProgress:  true,
	}
}

// WaitForJobCompletion polls a job until it completes or times out.
func WaitForJobCompletion(t *testing.T, tracker services.JobTracker, jobID string, opts JobPollingOptions) *model.Job {
	t.Helper()

	timeout := time.After(opts.Timeout)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			t.Fatalf("Job %s did not complete within %v timeout", jobID, opts.Timeout)
		case <-ticker.C:
			job, err := tracker.GetJob(jobID)
			require.NoError(t, err, "Failed to get job status")

			switch job.Status {
			case model.JobStatusCompleted:
				if opts.LogProgress {
					t.Logf("Job %s completed successfully", jobID)
				}
				return job
			case model.JobStatusFailed:
				t.Fatalf("Job %s failed: %s", jobID, job.Error)
			case model.JobStatusRunning:
				if opts.LogProgress && job.Progress != nil {
					t.Logf("Job %s progress: %d/%d - %s",
						jobID,
						job.Progress.Current,
						job.Progress.Total,
						job.Progress.Message)
				}
			}
		}
	}
}

// AssertJobCompleted verifies that a job completed successfully.
func AssertJobCompleted(t *testing.T, job *model.Job, expectedType model.JobType, expectedDocumentID string) {
	t.Helper()

	assert.Equal(t, model.JobStatusCompleted, job.Status, "Job should be completed")
	assert.Equal(t, expectedType, job.Type, "Job type should match")
	assert.Equal(t, expectedDocumentID, job.DocumentID, "Job document ID should match")
	assert.NotNil(t, job.CompletedAt, "Job should have completion timestamp")
	assert.Empty(t, job.Error, "Job should not have error")
}

// WaitForMatchCount polls until the document's applied match count reaches
// want, absorbing debounce delays in tests that type into a live document.
func WaitForMatchCount(t *testing.T, eng *engine.Engine, docID string, want int) {
	t.Helper()

	require.Eventually(t, func() bool {
		count, err := eng.ActiveMatchCount(docID)
		return err == nil && count.Count == want
	}, 5*time.Second, 5*time.Millisecond, "document %s never reached %d matches", docID, want)
}
