package update

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"tender-golang/internal/storage"
)

type MockItemStore struct {
	mock.Mock
}

func (m *MockItemStore) GetItem(ctx context.Context, id int64) (*storage.BOQItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.BOQItem), args.Error(1)
}

func (m *MockItemStore) GetPosition(ctx context.Context, id int64) (*storage.Position, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Position), args.Error(1)
}

func (m *MockItemStore) GetActiveProfile(ctx context.Context, tenderID int64) (*storage.MarkupProfile, error) {
	args := m.Called(ctx, tenderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.MarkupProfile), args.Error(1)
}

func (m *MockItemStore) GetLinkByMaterial(ctx context.Context, materialID int64) (*storage.WorkMaterialLink, error) {
	args := m.Called(ctx, materialID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.WorkMaterialLink), args.Error(1)
}

func (m *MockItemStore) UpdateItem(ctx context.Context, id int64, details storage.UpdateItemDetails) error {
	args := m.Called(ctx, id, details)
	return args.Error(0)
}

func (m *MockItemStore) UpdateItemAmounts(ctx context.Context, id int64, amounts storage.ItemAmounts) error {
	args := m.Called(ctx, id, amounts)
	return args.Error(0)
}

type MockLinkMaintainer struct {
	mock.Mock
}

func (m *MockLinkMaintainer) MigrateWorkKind(ctx context.Context, workID int64, from, to storage.ItemKind) error {
	args := m.Called(ctx, workID, from, to)
	return args.Error(0)
}

func (m *MockLinkMaintainer) UpdateCoefficients(ctx context.Context, materialID int64, consumption, conversion float64) error {
	args := m.Called(ctx, materialID, consumption, conversion)
	return args.Error(0)
}

type MockPropagator struct {
	mock.Mock
}

func (m *MockPropagator) PropagateWorkChange(ctx context.Context, positionID, workID int64) error {
	args := m.Called(ctx, positionID, workID)
	return args.Error(0)
}

func (m *MockPropagator) RefreshPosition(ctx context.Context, positionID int64) (storage.PositionTotals, error) {
	args := m.Called(ctx, positionID)
	return args.Get(0).(storage.PositionTotals), args.Error(1)
}

func fptr(v float64) *float64 { return &v }
func iptr(v int64) *int64     { return &v }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serve(t *testing.T, store *MockItemStore, linksReg *MockLinkMaintainer, prop *MockPropagator, id, body string) *httptest.ResponseRecorder {
	t.Helper()

	router := chi.NewRouter()
	router.Put("/api/items/update/{id}", UpdateItem(discardLogger(), store, linksReg, prop))

	req := httptest.NewRequest(http.MethodPut, "/api/items/update/"+id, bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestUpdateItem_LinkedMaterialCoefficientsGoThroughMirror(t *testing.T) {
	store := new(MockItemStore)
	linksReg := new(MockLinkMaintainer)
	prop := new(MockPropagator)

	material := &storage.BOQItem{
		ID: 2, PositionID: 7, Kind: storage.KindMaterial,
		Quantity: 8, UnitRate: 5, MaterialType: storage.MaterialMain,
		WorkLinkID: iptr(10),
	}
	work := &storage.BOQItem{ID: 1, PositionID: 7, Kind: storage.KindWork, Quantity: 10}
	link := &storage.WorkMaterialLink{
		ID: 10, PositionID: 7, WorkID: iptr(1), MaterialID: iptr(2),
		MaterialQuantityPerWork: 2, UsageCoefficient: 3,
	}

	store.On("GetItem", mock.Anything, int64(2)).Return(material, nil)
	store.On("GetLinkByMaterial", mock.Anything, int64(2)).Return(link, nil)
	store.On("GetItem", mock.Anything, int64(1)).Return(work, nil)
	store.On("GetPosition", mock.Anything, int64(7)).Return(&storage.Position{ID: 7, TenderID: 3}, nil)
	store.On("GetActiveProfile", mock.Anything, int64(3)).Return(&storage.MarkupProfile{ID: 1, TenderID: 3}, nil)

	// Правленый расход 5, пересчётный коэффициент не тронут — берётся
	// зеркало из связки (3). Оба уходят в транзакционную запись с зеркалом.
	linksReg.On("UpdateCoefficients", mock.Anything, int64(2), 5.0, 3.0).Return(nil)

	// Из общего апдейта строки коэффициенты исключены.
	store.On("UpdateItem", mock.Anything, int64(2), mock.MatchedBy(func(d storage.UpdateItemDetails) bool {
		return d.ConsumptionCoefficient == nil && d.ConversionCoefficient == nil
	})).Return(nil)

	// 10 × 5 × 3 = 150 единиц, прямая стоимость 150 × 5 = 750.
	store.On("UpdateItemAmounts", mock.Anything, int64(2), mock.MatchedBy(func(a storage.ItemAmounts) bool {
		return a.Quantity == 150 && a.TotalAmount == 750
	})).Return(nil)

	prop.On("RefreshPosition", mock.Anything, int64(7)).Return(storage.PositionTotals{}, nil)

	rr := serve(t, store, linksReg, prop, "2", `{"consumption_coefficient":5}`)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	store.AssertExpectations(t)
	linksReg.AssertExpectations(t)
	prop.AssertExpectations(t)
}

func TestUpdateItem_UnlinkedMaterialCoefficientsStayInItemUpdate(t *testing.T) {
	store := new(MockItemStore)
	linksReg := new(MockLinkMaintainer)
	prop := new(MockPropagator)

	material := &storage.BOQItem{
		ID: 2, PositionID: 7, Kind: storage.KindMaterial,
		Quantity: 8, UnitRate: 5, MaterialType: storage.MaterialMain,
		BaseQuantity: fptr(8),
	}

	store.On("GetItem", mock.Anything, int64(2)).Return(material, nil)
	store.On("GetLinkByMaterial", mock.Anything, int64(2)).Return(nil, storage.ErrNotFound)
	store.On("GetPosition", mock.Anything, int64(7)).Return(&storage.Position{ID: 7, TenderID: 3}, nil)
	store.On("GetActiveProfile", mock.Anything, int64(3)).Return(&storage.MarkupProfile{ID: 1, TenderID: 3}, nil)

	// Без связки зеркала нет — коэффициент идёт обычным апдейтом строки.
	store.On("UpdateItem", mock.Anything, int64(2), mock.MatchedBy(func(d storage.UpdateItemDetails) bool {
		return d.ConsumptionCoefficient != nil && *d.ConsumptionCoefficient == 5
	})).Return(nil)
	store.On("UpdateItemAmounts", mock.Anything, int64(2), mock.Anything).Return(nil)

	prop.On("RefreshPosition", mock.Anything, int64(7)).Return(storage.PositionTotals{}, nil)

	rr := serve(t, store, linksReg, prop, "2", `{"consumption_coefficient":5}`)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	linksReg.AssertNotCalled(t, "UpdateCoefficients", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}

func TestUpdateItem_OverflowRejectedBeforeWrites(t *testing.T) {
	store := new(MockItemStore)
	linksReg := new(MockLinkMaintainer)
	prop := new(MockPropagator)

	material := &storage.BOQItem{
		ID: 2, PositionID: 7, Kind: storage.KindMaterial,
		UnitRate: 5, MaterialType: storage.MaterialMain,
		WorkLinkID: iptr(10),
	}
	work := &storage.BOQItem{ID: 1, PositionID: 7, Kind: storage.KindWork, Quantity: 1_000_000}
	link := &storage.WorkMaterialLink{
		ID: 10, PositionID: 7, WorkID: iptr(1), MaterialID: iptr(2),
		MaterialQuantityPerWork: 1000, UsageCoefficient: 1000,
	}

	store.On("GetItem", mock.Anything, int64(2)).Return(material, nil)
	store.On("GetLinkByMaterial", mock.Anything, int64(2)).Return(link, nil)
	store.On("GetItem", mock.Anything, int64(1)).Return(work, nil)
	store.On("GetPosition", mock.Anything, int64(7)).Return(&storage.Position{ID: 7, TenderID: 3}, nil)
	store.On("GetActiveProfile", mock.Anything, int64(3)).Return(&storage.MarkupProfile{ID: 1, TenderID: 3}, nil)

	rr := serve(t, store, linksReg, prop, "2", `{"unit_rate":6}`)

	// Переполнение найдено на пробном расчёте — ни одной записи не было.
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	store.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "UpdateItemAmounts", mock.Anything, mock.Anything, mock.Anything)
	linksReg.AssertNotCalled(t, "UpdateCoefficients", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
