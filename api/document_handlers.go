package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	engineerrors "github.com/quillside/storybible-engine/internal/errors"
	"github.com/quillside/storybible-engine/services"
)

// OpenDocumentRequest is the JSON payload for opening a live document.
type OpenDocumentRequest struct {
	DocumentID string `json:"document_id"`
	Text       string `json:"text"`
}

// UpdateTextRequest carries an edited text snapshot plus the new cursor
// position. Cursor is optional; -1 leaves it untouched.
type UpdateTextRequest struct {
	Text   string `json:"text"`
	Cursor *int   `json:"cursor,omitempty"`
}

// UpdateCursorRequest carries a cursor move.
type UpdateCursorRequest struct {
	Cursor int `json:"cursor"`
}

// OpenDocumentHandler opens a live document and attaches it to the engine.
// The initial scan runs before the response, so match counts are immediately
// meaningful.
func (api *API) OpenDocumentHandler(c *gin.Context) {
	var req OpenDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	if result := ValidateDocumentID(req.DocumentID); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	doc, err := api.documents.Open(req.DocumentID, req.Text)
	if err != nil {
		if errors.Is(err, engineerrors.ErrDocumentAlreadyAttached) {
			SendDocumentAlreadyAttachedError(c, req.DocumentID)
			return
		}
		SendInternalError(c, "document open", err)
		return
	}

	if err := api.engine.AttachDocument(req.DocumentID, doc, doc); err != nil {
		_ = api.documents.Close(req.DocumentID)
		SendInternalError(c, "document attach", err)
		return
	}

	count, _ := api.engine.ActiveMatchCount(req.DocumentID)
	c.JSON(http.StatusCreated, gin.H{
		"message":     "Document '" + req.DocumentID + "' attached",
		"match_count": count.Count,
		"revision":    count.Revision,
	})
}

// ListDocumentsHandler lists open documents and their match counts.
func (api *API) ListDocumentsHandler(c *gin.Context) {
	ids := api.documents.IDs()

	documents := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		entry := gin.H{"document_id": id}
		if count, err := api.engine.ActiveMatchCount(id); err == nil {
			entry["match_count"] = count.Count
			entry["revision"] = count.Revision
		}
		documents = append(documents, entry)
	}

	c.JSON(http.StatusOK, gin.H{"documents": documents, "count": len(documents)})
}

// GetDocumentHandler returns a document's text, cursor, and annotation state.
func (api *API) GetDocumentHandler(c *gin.Context) {
	documentID := c.Param("documentId")

	doc, err := api.documents.Get(documentID)
	if err != nil {
		SendDocumentNotAttachedError(c, documentID)
		return
	}

	count, err := api.engine.ActiveMatchCount(documentID)
	if err != nil {
		SendInternalError(c, "match count lookup", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document_id": documentID,
		"text":        doc.Text(),
		"cursor":      doc.CursorOffset(),
		"word_count":  doc.WordCount(),
		"match_count": count.Count,
		"revision":    count.Revision,
	})
}

// CloseDocumentHandler detaches a document (removing its marks) and closes it.
func (api *API) CloseDocumentHandler(c *gin.Context) {
	documentID := c.Param("documentId")

	if err := api.engine.DetachDocument(documentID); err != nil {
		if errors.Is(err, engineerrors.ErrDocumentNotAttached) {
			SendDocumentNotAttachedError(c, documentID)
			return
		}
		SendInternalError(c, "document detach", err)
		return
	}
	if err := api.documents.Close(documentID); err != nil {
		SendInternalError(c, "document close", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document '" + documentID + "' detached"})
}

// UpdateTextHandler replaces the document text and notifies the engine; the
// rescan happens after the debounce window, so the response only promises
// "scheduled", not "applied".
func (api *API) UpdateTextHandler(c *gin.Context) {
	documentID := c.Param("documentId")

	doc, err := api.documents.Get(documentID)
	if err != nil {
		SendDocumentNotAttachedError(c, documentID)
		return
	}

	var req UpdateTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	doc.SetText(req.Text)
	if req.Cursor != nil {
		doc.SetCursor(*req.Cursor)
	}
	if err := api.engine.NotifyChange(documentID, services.ChangeEvent{Kind: services.ChangeKindText}); err != nil {
		SendInternalError(c, "change notification", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Rescan scheduled for document '" + documentID + "'",
	})
}

// UpdateCursorHandler moves the cursor and notifies the engine so the scan
// window can follow the selection.
func (api *API) UpdateCursorHandler(c *gin.Context) {
	documentID := c.Param("documentId")

	doc, err := api.documents.Get(documentID)
	if err != nil {
		SendDocumentNotAttachedError(c, documentID)
		return
	}

	var req UpdateCursorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	doc.SetCursor(req.Cursor)
	if err := api.engine.NotifyChange(documentID, services.ChangeEvent{Kind: services.ChangeKindSelection}); err != nil {
		SendInternalError(c, "change notification", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Rescan scheduled for document '" + documentID + "'",
	})
}

// GetMatchesHandler returns the applied matches for a document.
func (api *API) GetMatchesHandler(c *gin.Context) {
	documentID := c.Param("documentId")

	matches, err := api.engine.ActiveMatches(documentID)
	if err != nil {
		if errors.Is(err, engineerrors.ErrDocumentNotAttached) {
			SendDocumentNotAttachedError(c, documentID)
			return
		}
		SendInternalError(c, "match lookup", err)
		return
	}

	count, _ := api.engine.ActiveMatchCount(documentID)
	c.JSON(http.StatusOK, gin.H{
		"document_id": documentID,
		"matches":     matches,
		"count":       len(matches),
		"revision":    count.Revision,
	})
}

// GetMarksHandler returns the document's mark ledger as the host sees it.
func (api *API) GetMarksHandler(c *gin.Context) {
	documentID := c.Param("documentId")

	doc, err := api.documents.Get(documentID)
	if err != nil {
		SendDocumentNotAttachedError(c, documentID)
		return
	}

	marks := doc.Marks()
	c.JSON(http.StatusOK, gin.H{
		"document_id": documentID,
		"marks":       marks,
		"count":       len(marks),
	})
}

// RescanHandler forces an asynchronous full rescan of one document.
func (api *API) RescanHandler(c *gin.Context) {
	documentID := c.Param("documentId")

	jobID, err := api.engine.RescanDocumentAsync(documentID)
	if err != nil {
		if errors.Is(err, engineerrors.ErrDocumentNotAttached) {
			SendDocumentNotAttachedError(c, documentID)
			return
		}
		SendJobExecutionError(c, "document rescan", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":      "accepted",
		"message":     "Rescan started for document '" + documentID + "'",
		"job_id":      jobID,
		"document_id": documentID,
	})
}
