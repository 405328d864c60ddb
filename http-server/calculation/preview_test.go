package calculation

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

type MockProfileReader struct {
	mock.Mock
}

func (m *MockProfileReader) GetActiveProfile(ctx context.Context, tenderID int64) (*storage.MarkupProfile, error) {
	args := m.Called(ctx, tenderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.MarkupProfile), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPreviewCascade_WorkStages(t *testing.T) {
	mockReader := new(MockProfileReader)
	mockReader.On("GetActiveProfile", mock.Anything, int64(3)).Return(&storage.MarkupProfile{
		ID:                   1,
		TenderID:             3,
		IsActive:             true,
		MechanizationService: 2,
		MbpGsm:               1,
		WarrantyPeriod:       1,
		Works16Markup:        5,
	}, nil)

	handler := PreviewCascade(discardLogger(), mockReader)

	body := bytes.NewBufferString(`{"tender_id":3,"kind":"work","base_cost":100000}`)
	req := httptest.NewRequest(http.MethodPost, "/api/calculation/preview", body)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	// Раскладка приходит полной: девять ступеней с процентами.
	require.Len(t, resp.Result.Stages, 9)
	assert.InDelta(t, 2000.0, resp.Result.Stages[0].Value, 1e-6)
	assert.Equal(t, 2.0, resp.Result.Stages[0].Percent)
	assert.Greater(t, resp.Result.CommercialCost, 0.0)
	mockReader.AssertExpectations(t)
}

func TestPreviewCascade_UnknownKind(t *testing.T) {
	mockReader := new(MockProfileReader)
	mockReader.On("GetActiveProfile", mock.Anything, int64(3)).Return(&storage.MarkupProfile{TenderID: 3}, nil)

	handler := PreviewCascade(discardLogger(), mockReader)

	body := bytes.NewBufferString(`{"tender_id":3,"kind":"equipment","base_cost":1000}`)
	req := httptest.NewRequest(http.MethodPost, "/api/calculation/preview", body)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPreviewCascade_ProfileNotFound(t *testing.T) {
	mockReader := new(MockProfileReader)
	mockReader.On("GetActiveProfile", mock.Anything, int64(99)).Return(nil, storage.ErrNotFound)

	handler := PreviewCascade(discardLogger(), mockReader)

	body := bytes.NewBufferString(`{"tender_id":99,"kind":"work","base_cost":1000}`)
	req := httptest.NewRequest(http.MethodPost, "/api/calculation/preview", body)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPreviewCascade_BadJSON(t *testing.T) {
	mockReader := new(MockProfileReader)
	handler := PreviewCascade(discardLogger(), mockReader)

	req := httptest.NewRequest(http.MethodPost, "/api/calculation/preview", bytes.NewBufferString(`{`))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	mockReader.AssertNotCalled(t, "GetActiveProfile", mock.Anything, mock.Anything)
}
