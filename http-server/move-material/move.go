package move_material

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

type MaterialMover interface {
	Move(ctx context.Context, p storage.MoveParams) (storage.MoveResult, error)
	Resolve(ctx context.Context, srcLinkID, tgtLinkID, targetWorkID int64, strategy storage.MergeStrategy) error
}

type MoveResponse struct {
	Conflict  bool   `json:"conflict"`
	SrcLinkID int64  `json:"src_id,omitempty"`
	TgtLinkID int64  `json:"tgt_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
}

// MoveMaterial — перенос/копирование материала между работами. Конфликт
// с эквивалентным материалом у цели возвращается как 409 с дескриптором:
// клиент выбирает стратегию и зовёт ResolveConflict.
func MoveMaterial(log *slog.Logger, mover MaterialMover) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.move.MoveMaterial"

		var req storage.MoveParams
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error("Неверный JSON", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Некорректный JSON", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		res, err := mover.Move(ctx, req)
		if err != nil {
			if errors.Is(err, storage.ErrValidation) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if errors.Is(err, storage.ErrNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			log.Error("Ошибка переноса материала", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		if res.Conflict {
			log.Info("Конфликт переноса",
				slog.Int64("src_link", res.SrcLinkID),
				slog.Int64("tgt_link", res.TgtLinkID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, MoveResponse{Conflict: true, SrcLinkID: res.SrcLinkID, TgtLinkID: res.TgtLinkID})
			return
		}

		render.JSON(w, r, MoveResponse{SrcLinkID: res.SrcLinkID, TgtLinkID: res.TgtLinkID, Status: "ok"})
	}
}

type ResolveRequest struct {
	SrcLinkID    int64                 `json:"src_link_id"`
	TgtLinkID    int64                 `json:"tgt_link_id"`
	TargetWorkID int64                 `json:"target_work_id"`
	Strategy     storage.MergeStrategy `json:"strategy"`
}

// ResolveConflict — слияние конфликтующих связок по выбранной стратегии.
func ResolveConflict(log *slog.Logger, mover MaterialMover) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.move.ResolveConflict"

		var req ResolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error("Неверный JSON", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Некорректный JSON", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		err := mover.Resolve(ctx, req.SrcLinkID, req.TgtLinkID, req.TargetWorkID, req.Strategy)
		if err != nil {
			if errors.Is(err, storage.ErrValidation) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if errors.Is(err, storage.ErrNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			log.Error("Ошибка слияния связок", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, map[string]any{"status": "ok"})
	}
}
