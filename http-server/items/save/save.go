package save

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"tender-golang/internal/constants"
	"tender-golang/internal/storage"
)

type ItemSaver interface {
	SaveItem(ctx context.Context, item storage.BOQItem) (int64, error)
}

type Response struct {
	ItemID int64  `json:"item_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// SaveItem создаёт строку позиции. Категория и единица измерения
// проверяются по справочнику до записи.
func SaveItem(log *slog.Logger, saver ItemSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.items.SaveItem"

		var req storage.BOQItem
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error("Неверный JSON", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Некорректный JSON", http.StatusBadRequest)
			return
		}

		if !req.Kind.Valid() {
			http.Error(w, "Неизвестный вид строки", http.StatusBadRequest)
			return
		}
		if !constants.ValidUnit(req.Unit) {
			http.Error(w, "Единица измерения отсутствует в справочнике", http.StatusBadRequest)
			return
		}
		if !constants.ValidCategory(req.Category) {
			http.Error(w, "Категория отсутствует в справочнике", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		id, err := saver.SaveItem(ctx, req)
		if err != nil {
			log.Error("Ошибка сохранения строки", slog.String("op", op), slog.String("error", err.Error()))
			render.JSON(w, r, Response{Error: "не удалось сохранить строку"})
			return
		}

		render.JSON(w, r, Response{ItemID: id, Status: "ok"})
	}
}
