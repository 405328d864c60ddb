package save

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"tender-golang/internal/storage"
)

type LinkCreator interface {
	Create(ctx context.Context, positionID, workID, materialID int64) (int64, error)
}

type Propagator interface {
	PropagateWorkChange(ctx context.Context, positionID, workID int64) error
}

type Request struct {
	PositionID int64 `json:"position_id"`
	WorkID     int64 `json:"work_id"`
	MaterialID int64 `json:"material_id"`
}

type Response struct {
	LinkID int64  `json:"link_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// SaveLink привязывает материал к работе. Существующая связка материала
// атомарно заменяется, после чего количество материала пересчитывается от
// объёма новой работы.
func SaveLink(log *slog.Logger, registry LinkCreator, prop Propagator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.links.SaveLink"

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error("Неверный JSON", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Некорректный JSON", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		id, err := registry.Create(ctx, req.PositionID, req.WorkID, req.MaterialID)
		if err != nil {
			if errors.Is(err, storage.ErrValidation) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			log.Error("Ошибка создания связки", slog.String("op", op), slog.String("error", err.Error()))
			render.JSON(w, r, Response{Error: "не удалось создать связку"})
			return
		}

		if err := prop.PropagateWorkChange(ctx, req.PositionID, req.WorkID); err != nil {
			log.Error("Ошибка пересчёта после привязки", slog.String("op", op), slog.String("error", err.Error()))
			render.JSON(w, r, Response{LinkID: id, Error: "связка создана, пересчёт не завершён"})
			return
		}

		render.JSON(w, r, Response{LinkID: id, Status: "ok"})
	}
}
