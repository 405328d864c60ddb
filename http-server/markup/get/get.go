package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"
	"tender-golang/internal/storage"
)

type ProfileReader interface {
	GetActiveProfile(ctx context.Context, tenderID int64) (*storage.MarkupProfile, error)
}

// GetActiveProfile отдаёт активный профиль наценок тендера. Фронт грузит
// его один раз на сессию просмотра позиции.
func GetActiveProfile(log *slog.Logger, reader ProfileReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.markup.GetActiveProfile"

		tenderIDStr := r.URL.Query().Get("tender_id")
		if tenderIDStr == "" {
			http.Error(w, "Missing required query parameter 'tender_id'", http.StatusBadRequest)
			return
		}

		tenderID, err := strconv.ParseInt(tenderIDStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid tender_id", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		profile, err := reader.GetActiveProfile(ctx, tenderID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.Error(w, "Активный профиль не найден", http.StatusNotFound)
				return
			}
			log.Error("Ошибка получения профиля", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, profile)
	}
}
