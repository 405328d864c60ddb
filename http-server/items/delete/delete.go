package delete

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"tender-golang/internal/storage"
)

type ItemDeleter interface {
	GetItem(ctx context.Context, id int64) (*storage.BOQItem, error)
	DeleteItem(ctx context.Context, id int64) error
}

type TotalsRefresher interface {
	RefreshPosition(ctx context.Context, positionID int64) (storage.PositionTotals, error)
}

// DeleteItem удаляет строку вместе с её связками. Позиция остаётся жить,
// её итог пересчитывается.
func DeleteItem(log *slog.Logger, deleter ItemDeleter, refresher TotalsRefresher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.items.DeleteItem"

		idStr := chi.URLParam(r, "id")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid ID", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		item, err := deleter.GetItem(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.Error(w, "Строка не найдена", http.StatusNotFound)
				return
			}
			log.Error("Ошибка получения строки", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		if err := deleter.DeleteItem(ctx, id); err != nil {
			log.Error("Ошибка удаления строки", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Ошибка удаления", http.StatusInternalServerError)
			return
		}

		if _, err := refresher.RefreshPosition(ctx, item.PositionID); err != nil {
			log.Error("Ошибка пересчёта итогов", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, map[string]any{"status": "ok", "item_id": id})
	}
}
