package move_material

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"tender-golang/internal/storage"
)

type MockMaterialMover struct {
	mock.Mock
}

func (m *MockMaterialMover) Move(ctx context.Context, p storage.MoveParams) (storage.MoveResult, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(storage.MoveResult), args.Error(1)
}

func (m *MockMaterialMover) Resolve(ctx context.Context, srcLinkID, tgtLinkID, targetWorkID int64, strategy storage.MergeStrategy) error {
	args := m.Called(ctx, srcLinkID, tgtLinkID, targetWorkID, strategy)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMoveMaterial_Success(t *testing.T) {
	mockMover := new(MockMaterialMover)
	mockMover.On("Move", mock.Anything, mock.MatchedBy(func(p storage.MoveParams) bool {
		return p.SourceWorkID == 1 && p.TargetWorkID == 2 && p.MaterialID == 3 && p.Mode == storage.MoveModeMove
	})).Return(storage.MoveResult{SrcLinkID: 10, TgtLinkID: 20}, nil)

	handler := MoveMaterial(discardLogger(), mockMover)

	body := bytes.NewBufferString(`{"source_work_id":1,"target_work_id":2,"material_id":3,"new_index":4,"mode":"move"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/materials/move", body)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp MoveResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Conflict)
	assert.Equal(t, "ok", resp.Status)
	mockMover.AssertExpectations(t)
}

func TestMoveMaterial_ConflictReturns409(t *testing.T) {
	mockMover := new(MockMaterialMover)
	mockMover.On("Move", mock.Anything, mock.Anything).
		Return(storage.MoveResult{Conflict: true, SrcLinkID: 10, TgtLinkID: 20}, nil)

	handler := MoveMaterial(discardLogger(), mockMover)

	body := bytes.NewBufferString(`{"source_work_id":1,"target_work_id":2,"material_id":3,"mode":"move"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/materials/move", body)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusConflict, rr.Code)

	// Дескриптор конфликта — клиенту есть что передать в resolve.
	var resp MoveResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Conflict)
	assert.Equal(t, int64(10), resp.SrcLinkID)
	assert.Equal(t, int64(20), resp.TgtLinkID)
}

func TestMoveMaterial_BadJSON(t *testing.T) {
	mockMover := new(MockMaterialMover)
	handler := MoveMaterial(discardLogger(), mockMover)

	req := httptest.NewRequest(http.MethodPost, "/api/materials/move", bytes.NewBufferString(`{bad`))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	mockMover.AssertNotCalled(t, "Move", mock.Anything, mock.Anything)
}

func TestMoveMaterial_ValidationError(t *testing.T) {
	mockMover := new(MockMaterialMover)
	mockMover.On("Move", mock.Anything, mock.Anything).
		Return(storage.MoveResult{}, storage.ErrValidation)

	handler := MoveMaterial(discardLogger(), mockMover)

	body := bytes.NewBufferString(`{"source_work_id":1,"target_work_id":1,"material_id":3,"mode":"move"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/materials/move", body)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMoveMaterial_NotFound(t *testing.T) {
	mockMover := new(MockMaterialMover)
	mockMover.On("Move", mock.Anything, mock.Anything).
		Return(storage.MoveResult{}, storage.ErrNotFound)

	handler := MoveMaterial(discardLogger(), mockMover)

	body := bytes.NewBufferString(`{"source_work_id":1,"target_work_id":2,"material_id":99,"mode":"move"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/materials/move", body)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestResolveConflict_Success(t *testing.T) {
	mockMover := new(MockMaterialMover)
	mockMover.On("Resolve", mock.Anything, int64(10), int64(20), int64(2), storage.MergeSum).Return(nil)

	handler := ResolveConflict(discardLogger(), mockMover)

	body := bytes.NewBufferString(`{"src_link_id":10,"tgt_link_id":20,"target_work_id":2,"strategy":"sum"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/materials/resolve", body)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	mockMover.AssertExpectations(t)
}

func TestResolveConflict_UnknownStrategy(t *testing.T) {
	mockMover := new(MockMaterialMover)
	mockMover.On("Resolve", mock.Anything, int64(10), int64(20), int64(2), storage.MergeStrategy("average")).
		Return(storage.ErrValidation)

	handler := ResolveConflict(discardLogger(), mockMover)

	body := bytes.NewBufferString(`{"src_link_id":10,"tgt_link_id":20,"target_work_id":2,"strategy":"average"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/materials/resolve", body)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
