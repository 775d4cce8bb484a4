package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/careloop/careloop/internal/dto"
	"github.com/labstack/echo/v4"
)

func TestHandler_Stats(t *testing.T) {
	index, _, _ := setupTestIndex(t)
	handler := NewHandler(index, nil)

	if _, err := index.AddDocument(context.Background(), "usr_1", "doc_a", "cholesterol slightly elevated"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := index.AddDocument(context.Background(), "usr_1", "doc_b", "blood pressure stable"); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/stats?owner_id=usr_1", nil)
	rec := httptest.NewRecorder()

	if err := handler.Stats(e.NewContext(req, rec)); err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.KnowledgeStatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.OwnerID != "usr_1" || resp.Chunks != 2 {
		t.Errorf("unexpected stats %+v", resp)
	}
}

func TestHandler_StatsRequiresOwner(t *testing.T) {
	index, _, _ := setupTestIndex(t)
	handler := NewHandler(index, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()

	err := handler.Stats(e.NewContext(req, rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
