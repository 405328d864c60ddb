package save

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"tender-golang/internal/storage"
)

type ProfileSaver interface {
	SaveProfile(ctx context.Context, p storage.MarkupProfile) (int64, error)
}

type Response struct {
	ProfileID int64  `json:"profile_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// SaveProfileAdmin создаёт новую активную версию профиля наценок. Профиль
// версионируется: идущие расчёты доживают на прежней версии, новые
// сессии берут эту.
func SaveProfileAdmin(log *slog.Logger, saver ProfileSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.markup.SaveProfileAdmin"

		var req storage.MarkupProfile
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error("Неверный JSON", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Некорректный JSON", http.StatusBadRequest)
			return
		}

		if req.TenderID == 0 {
			http.Error(w, "tender_id обязателен", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		id, err := saver.SaveProfile(ctx, req)
		if err != nil {
			log.Error("Ошибка сохранения профиля", slog.String("op", op), slog.String("error", err.Error()))
			render.JSON(w, r, Response{Error: "не удалось сохранить профиль"})
			return
		}

		log.Info("Создана новая версия профиля", slog.Int64("profile_id", id), slog.Int64("tender_id", req.TenderID))

		render.JSON(w, r, Response{ProfileID: id, Status: "ok"})
	}
}
