package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/quillside/storybible-engine/config"
	"github.com/quillside/storybible-engine/internal/analytics"
	"github.com/quillside/storybible-engine/internal/engine"
	testutil "github.com/quillside/storybible-engine/internal/testing"
	"github.com/quillside/storybible-engine/model"
	"github.com/quillside/storybible-engine/store"
)

type testServer struct {
	router    *gin.Engine
	engine    *engine.Engine
	catalog   *store.CatalogStore
	documents *store.DocumentStore
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog := testutil.CreateTestCatalog(t,
		model.Entity{ID: "aria", DisplayName: "Aria Blackwood", Type: model.EntityTypeCharacter, Tags: []string{"Aria", "the Raven"}},
		model.Entity{ID: "vaelhold", DisplayName: "Vaelhold", Type: model.EntityTypeLocation, Tags: []string{"the city"}},
	)
	eng := testutil.CreateTestEngine(t, catalog)

	analyticsSvc := analytics.NewService(eng, t.TempDir())
	t.Cleanup(analyticsSvc.Close)
	eng.SetScanRecorder(analyticsSvc)

	documents := store.NewDocumentStore()
	api := NewAPI(eng, catalog, documents, analyticsSvc)

	router := gin.New()
	SetupRoutes(router, api)

	return &testServer{router: router, engine: eng, catalog: catalog, documents: documents}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if raw, ok := body.(string); ok {
		reader = bytes.NewBufferString(raw)
	} else if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewBuffer(data)
	} else {
		reader = &bytes.Buffer{}
	}

	req, err := http.NewRequest(method, path, reader)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response body %q: %v", w.Body.String(), err)
	}
	return body
}

func (ts *testServer) waitForJob(t *testing.T, jobID string) *model.Job {
	t.Helper()
	opts := testutil.DefaultJobPollingOptions()
	opts.LogProgress = false
	return testutil.WaitForJobCompletion(t, ts.engine, jobID, opts)
}

func TestHealthCheckHandler(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	body := decodeBody(t, w)
	if body["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", body["status"])
	}
	if body["service"] != "storybible-engine" {
		t.Errorf("Expected service 'storybible-engine', got %v", body["service"])
	}
}

func TestCreateEntityHandler(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "valid entity",
			requestBody: EntityRequest{
				ID:          "ben",
				DisplayName: "Ben",
				Type:        "character",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "duplicate entity",
			requestBody: EntityRequest{
				ID:          "aria",
				DisplayName: "Aria Blackwood",
				Type:        "character",
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   string(ErrorCodeEntityExists),
		},
		{
			name:           "invalid JSON",
			requestBody:    "{not json",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   string(ErrorCodeInvalidJSON),
		},
		{
			name: "missing ID",
			requestBody: EntityRequest{
				DisplayName: "Nameless",
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   string(ErrorCodeValidationFailed),
		},
		{
			name: "whitespace display name",
			requestBody: EntityRequest{
				ID:          "ghost",
				DisplayName: "   ",
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   string(ErrorCodeValidationFailed),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, "POST", "/entities", tt.requestBody)
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedCode != "" {
				body := decodeBody(t, w)
				if body["code"] != tt.expectedCode {
					t.Errorf("Expected error code %s, got %v", tt.expectedCode, body["code"])
				}
			}
		})
	}
}

func TestCreateEntityRefreshesAttachedDocuments(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "POST", "/documents", OpenDocumentRequest{
		DocumentID: "chapter-1",
		Text:       "Mira walked alone.",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["match_count"] != float64(0) {
		t.Fatalf("Expected 0 matches before the entity exists, got %v", body["match_count"])
	}

	w = ts.do(t, "POST", "/entities", EntityRequest{
		ID:          "mira",
		DisplayName: "Mira",
		Type:        "character",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	w = ts.do(t, "GET", "/documents/chapter-1/matches", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body = decodeBody(t, w)
	if body["count"] != float64(1) {
		t.Errorf("Expected 1 match after the entity was created, got %v", body["count"])
	}
}

func TestGetEntityHandler(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "GET", "/entities/aria", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["display_name"] != "Aria Blackwood" {
		t.Errorf("Expected display_name 'Aria Blackwood', got %v", body["display_name"])
	}

	w = ts.do(t, "GET", "/entities/nobody", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", w.Code)
	}
	body = decodeBody(t, w)
	if body["code"] != string(ErrorCodeEntityNotFound) {
		t.Errorf("Expected error code %s, got %v", ErrorCodeEntityNotFound, body["code"])
	}
}

func TestListEntitiesHandler(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "GET", "/entities", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["count"] != float64(2) {
		t.Errorf("Expected 2 entities, got %v", body["count"])
	}
}

func TestUpdateEntityHandler(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "PUT", "/entities/aria", EntityRequest{
		DisplayName: "Aria of the Vale",
		Type:        "character",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	entity, err := ts.catalog.Get("aria")
	if err != nil {
		t.Fatalf("Entity disappeared after update: %v", err)
	}
	if entity.DisplayName != "Aria of the Vale" {
		t.Errorf("Expected updated display name, got %q", entity.DisplayName)
	}

	w = ts.do(t, "PUT", "/entities/nobody", EntityRequest{DisplayName: "Nobody"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404 for unknown entity, got %d", w.Code)
	}
}

func TestDeleteEntityHandler(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "POST", "/documents", OpenDocumentRequest{
		DocumentID: "chapter-1",
		Text:       "Aria looked east.",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["match_count"] != float64(1) {
		t.Fatalf("Expected 1 match, got %v", body["match_count"])
	}

	w = ts.do(t, "DELETE", "/entities/aria", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = ts.do(t, "GET", "/documents/chapter-1/matches", nil)
	body = decodeBody(t, w)
	if body["count"] != float64(0) {
		t.Errorf("Expected 0 matches after entity deletion, got %v", body["count"])
	}

	w = ts.do(t, "DELETE", "/entities/aria", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404 on second delete, got %d", w.Code)
	}
}

func TestRefreshCatalogHandler(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "POST", "/entities/_refresh", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	jobID, ok := body["job_id"].(string)
	if !ok || jobID == "" {
		t.Fatalf("Expected a job_id in response, got %v", body["job_id"])
	}

	job := ts.waitForJob(t, jobID)
	if job.Type != model.JobTypeRebuildIndex {
		t.Errorf("Expected job type %s, got %s", model.JobTypeRebuildIndex, job.Type)
	}
}

func TestOpenDocumentHandler(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "POST", "/documents", OpenDocumentRequest{
		DocumentID: "chapter-1",
		Text:       "Aria met the Raven in the city.",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	// "Aria", "the Raven", and "the city" all resolve.
	if body["match_count"] != float64(3) {
		t.Errorf("Expected 3 matches, got %v", body["match_count"])
	}

	w = ts.do(t, "POST", "/documents", OpenDocumentRequest{
		DocumentID: "chapter-1",
		Text:       "something else",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected status 409 for duplicate open, got %d", w.Code)
	}
	body = decodeBody(t, w)
	if body["code"] != string(ErrorCodeDocumentAlreadyAttached) {
		t.Errorf("Expected error code %s, got %v", ErrorCodeDocumentAlreadyAttached, body["code"])
	}

	w = ts.do(t, "POST", "/documents", OpenDocumentRequest{Text: "no id"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400 for missing document ID, got %d", w.Code)
	}
}

func TestGetDocumentHandler(t *testing.T) {
	ts := setupTestServer(t)

	text := "Aria waited."
	w := ts.do(t, "POST", "/documents", OpenDocumentRequest{DocumentID: "chapter-1", Text: text})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}

	w = ts.do(t, "GET", "/documents/chapter-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["text"] != text {
		t.Errorf("Expected text %q, got %v", text, body["text"])
	}
	if body["word_count"] != float64(2) {
		t.Errorf("Expected word_count 2, got %v", body["word_count"])
	}
	if body["match_count"] != float64(1) {
		t.Errorf("Expected match_count 1, got %v", body["match_count"])
	}

	w = ts.do(t, "GET", "/documents/unknown", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", w.Code)
	}
}

func TestUpdateTextHandlerTriggersRescan(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "POST", "/documents", OpenDocumentRequest{DocumentID: "chapter-1", Text: "Nothing here yet."})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}

	cursor := 4
	w = ts.do(t, "PUT", "/documents/chapter-1/text", UpdateTextRequest{
		Text:   "Aria returned.",
		Cursor: &cursor,
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	testutil.WaitForMatchCount(t, ts.engine, "chapter-1", 1)

	w = ts.do(t, "GET", "/documents/chapter-1/marks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["count"] != float64(1) {
		t.Errorf("Expected 1 mark in the ledger, got %v", body["count"])
	}
}

func TestUpdateCursorHandler(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "POST", "/documents", OpenDocumentRequest{DocumentID: "chapter-1", Text: "Aria waited."})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}

	w = ts.do(t, "PUT", "/documents/chapter-1/cursor", UpdateCursorRequest{Cursor: 5})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	w = ts.do(t, "PUT", "/documents/unknown/cursor", UpdateCursorRequest{Cursor: 0})
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", w.Code)
	}
}

func TestCloseDocumentHandler(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "POST", "/documents", OpenDocumentRequest{DocumentID: "chapter-1", Text: "Aria waited."})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}

	w = ts.do(t, "DELETE", "/documents/chapter-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = ts.do(t, "GET", "/documents/chapter-1", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404 after close, got %d", w.Code)
	}

	w = ts.do(t, "DELETE", "/documents/chapter-1", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404 on second close, got %d", w.Code)
	}
}

func TestGetMatchesHandler(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "POST", "/documents", OpenDocumentRequest{DocumentID: "chapter-1", Text: "Aria entered the city."})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}

	w = ts.do(t, "GET", "/documents/chapter-1/matches", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["count"] != float64(2) {
		t.Fatalf("Expected 2 matches, got %v", body["count"])
	}
	matches, ok := body["matches"].([]interface{})
	if !ok || len(matches) != 2 {
		t.Fatalf("Expected a 2-element matches array, got %v", body["matches"])
	}
	first, ok := matches[0].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected match objects, got %v", matches[0])
	}
	if first["entity_id"] != "aria" {
		t.Errorf("Expected first match for 'aria', got %v", first["entity_id"])
	}

	w = ts.do(t, "GET", "/documents/unknown/matches", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", w.Code)
	}
}

func TestRescanHandler(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "POST", "/documents", OpenDocumentRequest{DocumentID: "chapter-1", Text: "Aria waited."})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}

	w = ts.do(t, "POST", "/documents/chapter-1/_rescan", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	jobID, ok := body["job_id"].(string)
	if !ok || jobID == "" {
		t.Fatalf("Expected a job_id in response, got %v", body["job_id"])
	}

	job := ts.waitForJob(t, jobID)
	testutil.AssertJobCompleted(t, job, model.JobTypeRescanDocument, "chapter-1")

	w = ts.do(t, "POST", "/documents/unknown/_rescan", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404 for unknown document, got %d", w.Code)
	}
}

func TestListDocumentJobsHandler(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "POST", "/documents", OpenDocumentRequest{DocumentID: "chapter-1", Text: "Aria waited."})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}

	w = ts.do(t, "POST", "/documents/chapter-1/_rescan", nil)
	body := decodeBody(t, w)
	jobID := body["job_id"].(string)
	ts.waitForJob(t, jobID)

	w = ts.do(t, "GET", "/documents/chapter-1/jobs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body = decodeBody(t, w)
	if body["total"] != float64(1) {
		t.Errorf("Expected 1 job for chapter-1, got %v", body["total"])
	}

	w = ts.do(t, "GET", "/documents/chapter-1/jobs?status=failed", nil)
	body = decodeBody(t, w)
	if body["total"] != float64(0) {
		t.Errorf("Expected 0 failed jobs, got %v", body["total"])
	}
}

func TestGetJobMetricsHandler(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "POST", "/entities/_refresh", nil)
	body := decodeBody(t, w)
	ts.waitForJob(t, body["job_id"].(string))

	w = ts.do(t, "GET", "/jobs/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	body = decodeBody(t, w)
	if _, ok := body["metrics"]; !ok {
		t.Error("Expected a metrics field in response")
	}
	if body["success_rate"] != float64(1) {
		t.Errorf("Expected success rate 1.0, got %v", body["success_rate"])
	}
}

func TestGetJobHandlerNotFound(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "GET", "/jobs/no-such-job", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["code"] != string(ErrorCodeJobNotFound) {
		t.Errorf("Expected error code %s, got %v", ErrorCodeJobNotFound, body["code"])
	}
}

func TestGetAnalyticsHandler(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "POST", "/documents", OpenDocumentRequest{DocumentID: "chapter-1", Text: "Aria waited."})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}

	w = ts.do(t, "GET", "/analytics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	scans, ok := body["total_scans"].(float64)
	if !ok || scans < 1 {
		t.Errorf("Expected at least 1 recorded scan, got %v", body["total_scans"])
	}
}

func TestGetSettingsHandler(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "GET", "/settings", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["window_word_limit"] != float64(config.DefaultWindowWordLimit) {
		t.Errorf("Expected default window word limit, got %v", body["window_word_limit"])
	}
}

func TestPersistHookFailureSurfacesAsError(t *testing.T) {
	ts := setupTestServer(t)

	catalog := ts.catalog
	documents := ts.documents
	api := NewAPI(ts.engine, catalog, documents, nil)
	api.SetPersistHook(func() error { return fmt.Errorf("disk full") })
	router := gin.New()
	SetupRoutes(router, api)
	ts.router = router

	w := ts.do(t, "POST", "/entities", EntityRequest{ID: "ben", DisplayName: "Ben"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["code"] != string(ErrorCodePersistenceFailed) {
		t.Errorf("Expected error code %s, got %v", ErrorCodePersistenceFailed, body["code"])
	}
	if !strings.Contains(body["message"].(string), "disk full") {
		t.Errorf("Expected failure cause in message, got %v", body["message"])
	}

	// The in-memory mutation is kept even though the snapshot failed.
	if _, err := catalog.Get("ben"); err != nil {
		t.Errorf("Expected entity to remain in catalog: %v", err)
	}
}
