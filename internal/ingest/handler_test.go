package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealflow/internal/logger"
	"dealflow/internal/store"
	pkgerrors "dealflow/pkg/errors"
)

type stubService struct {
	ingestResp *IngestResponse
	ingestErr  error
	lastReq    IngestRequest
	messages   []store.MessageRecord
	lastStatus store.MessageStatus
	lastLimit  int
	detail     *MessageDetail
	detailErr  error
}

func (s *stubService) Ingest(_ context.Context, req IngestRequest) (*IngestResponse, error) {
	s.lastReq = req
	if s.ingestErr != nil {
		return nil, s.ingestErr
	}
	return s.ingestResp, nil
}

func (s *stubService) ListMessages(_ context.Context, status store.MessageStatus, limit int) ([]store.MessageRecord, error) {
	s.lastStatus = status
	s.lastLimit = limit
	return s.messages, nil
}

func (s *stubService) GetMessage(_ context.Context, id string) (*MessageDetail, error) {
	if s.detailErr != nil {
		return nil, s.detailErr
	}
	return s.detail, nil
}

func setupRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(svc, logger.NopLogger()).RegisterRoutes(router)
	return router
}

func TestIngestMessageAccepted(t *testing.T) {
	svc := &stubService{ingestResp: &IngestResponse{
		MessageID:  "msg-1",
		ExternalID: "tg-100",
		Status:     "pending",
	}}
	router := setupRouter(svc)

	body, _ := json.Marshal(IngestRequest{ExternalID: "tg-100", Text: "Acme DE CPA 1200"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	var resp IngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "msg-1", resp.MessageID)
	assert.Equal(t, "tg-100", svc.lastReq.ExternalID)
}

func TestIngestMessageMissingText(t *testing.T) {
	router := setupRouter(&stubService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", bytes.NewReader([]byte(`{"external_id": "tg-100"}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestMessageServiceError(t *testing.T) {
	svc := &stubService{ingestErr: pkgerrors.ErrServiceUnavailable}
	router := setupRouter(svc)

	body, _ := json.Marshal(IngestRequest{Text: "some deal"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestListMessagesDefaults(t *testing.T) {
	svc := &stubService{}
	router := setupRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store.MessageStatus(""), svc.lastStatus)
	assert.Equal(t, 100, svc.lastLimit)
	assert.Equal(t, "[]", w.Body.String())
}

func TestListMessagesStatusFilter(t *testing.T) {
	svc := &stubService{messages: []store.MessageRecord{{ID: "msg-1", Status: store.StatusFailed}}}
	router := setupRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages?status=failed&limit=10", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store.StatusFailed, svc.lastStatus)
	assert.Equal(t, 10, svc.lastLimit)
}

func TestListMessagesRejectsBadInput(t *testing.T) {
	router := setupRouter(&stubService{})

	for _, path := range []string{
		"/api/v1/messages?status=archived",
		"/api/v1/messages?limit=0",
		"/api/v1/messages?limit=9999",
		"/api/v1/messages?limit=ten",
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "path %s", path)
	}
}

func TestGetMessageNotFound(t *testing.T) {
	svc := &stubService{detailErr: pkgerrors.ErrNotFound}
	router := setupRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages/msg-ghost", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMessageWithDeal(t *testing.T) {
	svc := &stubService{detail: &MessageDetail{
		Message: &store.MessageRecord{ID: "msg-1", Status: store.StatusCompleted},
		Deal:    &store.DealRecord{ID: "deal-1", ExternalURL: "https://workspace.example/page-1"},
	}}
	router := setupRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages/msg-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var detail MessageDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	require.NotNil(t, detail.Deal)
	assert.Equal(t, "https://workspace.example/page-1", detail.Deal.ExternalURL)
}
