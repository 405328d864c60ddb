package update

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"tender-golang/internal/service/quantity"
	"tender-golang/internal/storage"
)

type CoefficientUpdater interface {
	UpdateCoefficients(ctx context.Context, materialID int64, consumption, conversion float64) error
}

type ItemReader interface {
	GetItem(ctx context.Context, id int64) (*storage.BOQItem, error)
}

type Propagator interface {
	PropagateWorkChange(ctx context.Context, positionID, workID int64) error
}

type Request struct {
	PositionID  int64   `json:"position_id"`
	WorkID      int64   `json:"work_id"`
	Consumption float64 `json:"consumption_coefficient"`
	Conversion  float64 `json:"conversion_coefficient"`
}

// UpdateLink меняет коэффициенты привязанного материала. Поля строки и
// зеркало в связке пишутся одной транзакцией, затем количество материала
// пересчитывается.
func UpdateLink(log *slog.Logger, registry CoefficientUpdater, items ItemReader, prop Propagator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.links.UpdateLink"

		materialIDStr := chi.URLParam(r, "materialId")
		materialID, err := strconv.ParseInt(materialIDStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid ID", http.StatusBadRequest)
			return
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error("Неверный JSON", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Некорректный JSON", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		// Проверка переполнения до записи: отклонённая правка не должна
		// оставить следов ни в строке, ни в зеркале связки.
		work, err := items.GetItem(ctx, req.WorkID)
		if err != nil {
			log.Error("Ошибка получения работы", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		if derived := work.Quantity * req.Consumption * req.Conversion; derived > quantity.MaxQuantity || derived < -quantity.MaxQuantity {
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, map[string]any{
				"error":    "вычисленное количество превышает предел точности хранения",
				"computed": derived,
			})
			return
		}

		if err := registry.UpdateCoefficients(ctx, materialID, req.Consumption, req.Conversion); err != nil {
			if errors.Is(err, storage.ErrValidation) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			log.Error("Ошибка обновления коэффициентов", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Ошибка обновления", http.StatusInternalServerError)
			return
		}

		if err := prop.PropagateWorkChange(ctx, req.PositionID, req.WorkID); err != nil {
			if errors.Is(err, storage.ErrQuantityOverflow) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				render.JSON(w, r, map[string]any{"error": err.Error()})
				return
			}
			log.Error("Ошибка пересчёта", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, map[string]any{"status": "ok", "material_id": materialID})
	}
}
