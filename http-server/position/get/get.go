package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"tender-golang/internal/service/sorting"
	"tender-golang/internal/storage"
)

type PositionReader interface {
	GetPosition(ctx context.Context, id int64) (*storage.Position, error)
	GetItemsByPosition(ctx context.Context, positionID int64) ([]storage.BOQItem, error)
	GetLinksForPosition(ctx context.Context, positionID int64) ([]storage.WorkMaterialLink, error)
}

// TotalsRefresher дорасчитывает агрегат позиции: читатель никогда не
// получает итог, посчитанный до завершения пересчёта зависимых строк.
type TotalsRefresher interface {
	RefreshPosition(ctx context.Context, positionID int64) (storage.PositionTotals, error)
}

type Response struct {
	Position *storage.Position          `json:"position"`
	Items    []storage.BOQItem          `json:"items"`
	Links    []storage.WorkMaterialLink `json:"links"`
	Totals   storage.PositionTotals     `json:"totals"`
	Error    string                     `json:"error,omitempty"`
}

// GetPosition отдаёт позицию со строками в отображаемом порядке.
func GetPosition(log *slog.Logger, reader PositionReader, refresher TotalsRefresher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.position.GetPosition"

		idStr := chi.URLParam(r, "id")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid ID", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		position, err := reader.GetPosition(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.Error(w, "Позиция не найдена", http.StatusNotFound)
				return
			}
			log.Error("Ошибка получения позиции", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		items, err := reader.GetItemsByPosition(ctx, id)
		if err != nil {
			log.Error("Ошибка получения строк позиции", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		links, err := reader.GetLinksForPosition(ctx, id)
		if err != nil {
			log.Error("Ошибка получения связок", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		totals, err := refresher.RefreshPosition(ctx, id)
		if err != nil {
			log.Error("Ошибка пересчёта итогов", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, Response{
			Position: position,
			Items:    sorting.Sort(items, links),
			Links:    links,
			Totals:   totals,
		})
	}
}
