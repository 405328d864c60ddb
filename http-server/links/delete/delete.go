package delete

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
	"tender-golang/internal/storage"
)

type LinkDeleter interface {
	Delete(ctx context.Context, linkID int64) error
}

type TotalsRefresher interface {
	RefreshPosition(ctx context.Context, positionID int64) (storage.PositionTotals, error)
}

// DeleteLink снимает связку; материал возвращается к самостоятельному
// количеству (base_quantity), итог позиции пересчитывается.
func DeleteLink(log *slog.Logger, registry LinkDeleter, refresher TotalsRefresher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.links.DeleteLink"

		idStr := chi.URLParam(r, "id")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid ID", http.StatusBadRequest)
			return
		}

		var req struct {
			PositionID int64 `json:"position_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error("Неверный JSON", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Некорректный JSON", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := registry.Delete(ctx, id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.Error(w, "Связка не найдена", http.StatusNotFound)
				return
			}
			log.Error("Ошибка удаления связки", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Ошибка удаления", http.StatusInternalServerError)
			return
		}

		if _, err := refresher.RefreshPosition(ctx, req.PositionID); err != nil {
			log.Error("Ошибка пересчёта итогов", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, map[string]any{"status": "ok", "link_id": id})
	}
}
