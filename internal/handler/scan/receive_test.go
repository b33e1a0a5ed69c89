package scan

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	scanModel "github.com/HectorPOsuna/escaner-red/internal/model/scan"
	"github.com/HectorPOsuna/escaner-red/internal/repo"
	"github.com/HectorPOsuna/escaner-red/internal/repo/memory"
	"github.com/HectorPOsuna/escaner-red/internal/service/ingest"
	"github.com/HectorPOsuna/escaner-red/internal/service/scan"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type unreachableStore struct {
	*memory.InventoryStore
}

func (unreachableStore) Ping(ctx context.Context) error {
	return errors.New("dial tcp 127.0.0.1:3306: connect: connection refused")
}

func newTestRouter(store repo.InventoryStore, maxBody int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	ingestor := ingest.NewScanIngestor(scan.NewNormalizer(0), scan.NewReconciler(store), nil, true)
	h := NewReceiveHandler(ingestor, maxBody)

	r := gin.New()
	r.POST("/api/receive", h.Receive)
	return r
}

func post(r *gin.Engine, body string) (*httptest.ResponseRecorder, scanModel.ReceiveResponse) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/receive", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	var resp scanModel.ReceiveResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestReceive_Success(t *testing.T) {
	store := memory.NewInventoryStore()
	r := newTestRouter(store, 0)

	w, resp := post(r, `{"Devices":[{"IP":"192.168.1.10","MAC":"00-1a-2b-3c-4d-5e","Hostname":"pc-01","OpenPorts":"80,443"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Summary)
	assert.Equal(t, scanModel.Summary{Processed: 1}, *resp.Summary)
	assert.Equal(t, "192.168.1.0/24", resp.Subnet)
	assert.Len(t, store.Devices(), 1)
}

func TestReceive_ValidationError(t *testing.T) {
	store := memory.NewInventoryStore()
	r := newTestRouter(store, 0)

	w, resp := post(r, `{"Devices":[{"IP":"300.1.1.1"},{"Hostname":"x"}]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
	assert.Len(t, resp.Errors, 2)
	assert.Nil(t, resp.Summary)
	assert.Empty(t, store.Devices())

	w, resp = post(r, `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, resp.Errors)

	w, _ = post(r, `{"Devices":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReceive_StorageUnavailable(t *testing.T) {
	r := newTestRouter(unreachableStore{memory.NewInventoryStore()}, 0)

	w, resp := post(r, `{"Devices":[{"IP":"10.0.0.1"}]}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Message)
}

func TestReceive_BodyTooLarge(t *testing.T) {
	r := newTestRouter(memory.NewInventoryStore(), 16)

	w, resp := post(r, `{"Devices":[{"IP":"10.0.0.1","Hostname":"long-enough"}]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.False(t, resp.Success)
}
