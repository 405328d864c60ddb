package calculation

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"tender-golang/internal/service/cascade"
	"tender-golang/internal/storage"
)

type ProfileReader interface {
	GetActiveProfile(ctx context.Context, tenderID int64) (*storage.MarkupProfile, error)
}

type Request struct {
	TenderID     int64                `json:"tender_id"`
	Kind         storage.ItemKind     `json:"kind"`
	BaseCost     float64              `json:"base_cost"`
	MaterialType storage.MaterialType `json:"material_type"`
}

type Response struct {
	Result cascade.Result `json:"result"`
	Error  string         `json:"error,omitempty"`
}

// PreviewCascade — чистый прогон каскада для аудиторской раскладки:
// фронт показывает каждую ступень с процентом и значением, ничего не
// сохраняя.
func PreviewCascade(log *slog.Logger, profiles ProfileReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.calculation.PreviewCascade"

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error("Неверный JSON", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Некорректный JSON", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		profile, err := profiles.GetActiveProfile(ctx, req.TenderID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.Error(w, "Активный профиль не найден", http.StatusNotFound)
				return
			}
			log.Error("Ошибка получения профиля", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		result, err := cascade.Calculate(req.Kind, req.BaseCost, *profile, req.MaterialType)
		if err != nil {
			if errors.Is(err, storage.ErrUnknownKind) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			log.Error("Ошибка расчёта каскада", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, Response{Result: result})
	}
}
