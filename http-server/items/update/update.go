package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"tender-golang/internal/constants"
	"tender-golang/internal/service/quantity"
	"tender-golang/internal/service/recalc"
	"tender-golang/internal/storage"
)

type ItemUpdater interface {
	GetItem(ctx context.Context, id int64) (*storage.BOQItem, error)
	GetPosition(ctx context.Context, id int64) (*storage.Position, error)
	GetActiveProfile(ctx context.Context, tenderID int64) (*storage.MarkupProfile, error)
	GetLinkByMaterial(ctx context.Context, materialID int64) (*storage.WorkMaterialLink, error)
	UpdateItem(ctx context.Context, id int64, details storage.UpdateItemDetails) error
	UpdateItemAmounts(ctx context.Context, id int64, amounts storage.ItemAmounts) error
}

// LinkMaintainer — операции реестра связок, задеваемые правкой строки:
// миграция FK-слота при смене вида работы и транзакционная запись
// коэффициентов вместе с их зеркалом в связке.
type LinkMaintainer interface {
	MigrateWorkKind(ctx context.Context, workID int64, from, to storage.ItemKind) error
	UpdateCoefficients(ctx context.Context, materialID int64, consumption, conversion float64) error
}

type Propagator interface {
	PropagateWorkChange(ctx context.Context, positionID, workID int64) error
	RefreshPosition(ctx context.Context, positionID int64) (storage.PositionTotals, error)
}

type Response struct {
	ItemID  int64                `json:"item_id"`
	Amounts *storage.ItemAmounts `json:"amounts,omitempty"`
	Status  string               `json:"status"`
	Error   string               `json:"error,omitempty"`
}

// UpdateItem применяет правку строки. Порядок жёсткий: сначала полный
// расчёт на копии в памяти, и только если он прошёл (включая проверку
// переполнения) — запись. Отклонённая правка не оставляет следов.
func UpdateItem(log *slog.Logger, store ItemUpdater, linksReg LinkMaintainer, prop Propagator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.items.UpdateItem"

		idStr := chi.URLParam(r, "id")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid ID", http.StatusBadRequest)
			return
		}

		var req storage.UpdateItemDetails
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error("Неверный JSON", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Некорректный JSON", http.StatusBadRequest)
			return
		}

		if req.Unit != nil && !constants.ValidUnit(*req.Unit) {
			http.Error(w, "Единица измерения отсутствует в справочнике", http.StatusBadRequest)
			return
		}
		if req.Category != nil && !constants.ValidCategory(*req.Category) {
			http.Error(w, "Категория отсутствует в справочнике", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		item, err := store.GetItem(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.Error(w, "Строка не найдена", http.StatusNotFound)
				return
			}
			log.Error("Ошибка получения строки", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		merged := applyDetails(*item, req)

		// Пробный расчёт до записи.
		linkedWork, link, err := resolveLinkContext(ctx, store, merged)
		if err != nil {
			log.Error("Ошибка контекста связки", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		position, err := store.GetPosition(ctx, item.PositionID)
		if err != nil {
			log.Error("Ошибка получения позиции", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		profile, err := store.GetActiveProfile(ctx, position.TenderID)
		if err != nil {
			log.Error("Ошибка получения профиля наценок", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		amounts, err := recalc.ComputeAmounts(merged, linkedWork, link, *profile)
		if err != nil {
			if errors.Is(err, storage.ErrQuantityOverflow) {
				log.Warn("Правка отклонена: переполнение", slog.Int64("id", id), slog.String("error", err.Error()))
				w.WriteHeader(http.StatusUnprocessableEntity)
				render.JSON(w, r, Response{ItemID: id, Error: err.Error()})
				return
			}
			log.Error("Ошибка расчёта", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		// Смена вида работы тянет миграцию FK-слота всех её связок.
		if req.Kind != nil && *req.Kind != item.Kind {
			if err := validateKindChange(item.Kind, *req.Kind, item.WorkLinkID); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if item.Kind.IsWork() {
				if err := linksReg.MigrateWorkKind(ctx, id, item.Kind, *req.Kind); err != nil {
					log.Error("Ошибка миграции связок", slog.String("op", op), slog.String("error", err.Error()))
					http.Error(w, "Internal error", http.StatusInternalServerError)
					return
				}
			}
		}

		// Коэффициенты привязанного материала пишутся только вместе с их
		// зеркалом в связке, одной транзакцией; из общего апдейта строки
		// они исключаются, чтобы зеркало не отстало.
		details := req
		if link != nil && (req.ConsumptionCoefficient != nil || req.ConversionCoefficient != nil) {
			consumption := quantity.CoefficientOrDefault(merged.ConsumptionCoefficient, link.MaterialQuantityPerWork)
			conversion := quantity.CoefficientOrDefault(merged.ConversionCoefficient, link.UsageCoefficient)
			if err := linksReg.UpdateCoefficients(ctx, id, consumption, conversion); err != nil {
				if errors.Is(err, storage.ErrValidation) {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				log.Error("Ошибка обновления коэффициентов", slog.String("op", op), slog.String("error", err.Error()))
				http.Error(w, "Ошибка обновления", http.StatusInternalServerError)
				return
			}
			details.ConsumptionCoefficient, details.ConversionCoefficient = nil, nil
		}

		if err := store.UpdateItem(ctx, id, details); err != nil {
			log.Error("Ошибка обновления строки", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Ошибка обновления", http.StatusInternalServerError)
			return
		}

		if err := store.UpdateItemAmounts(ctx, id, amounts); err != nil {
			log.Error("Ошибка записи расчётных полей", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Ошибка обновления", http.StatusInternalServerError)
			return
		}

		// Изменение объёма работы пересчитывает привязанные материалы и
		// итоги; любая другая правка — только итоги.
		if merged.Kind.IsWork() {
			err = prop.PropagateWorkChange(ctx, item.PositionID, id)
		} else {
			_, err = prop.RefreshPosition(ctx, item.PositionID)
		}
		if err != nil {
			if errors.Is(err, storage.ErrQuantityOverflow) {
				log.Warn("Правка отклонена: переполнение у зависимого материала", slog.Int64("id", id), slog.String("error", err.Error()))
				w.WriteHeader(http.StatusUnprocessableEntity)
				render.JSON(w, r, Response{ItemID: id, Error: err.Error()})
				return
			}
			log.Error("Ошибка пересчёта", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, Response{ItemID: id, Amounts: &amounts, Status: "ok"})
	}
}

func resolveLinkContext(ctx context.Context, store ItemUpdater, item storage.BOQItem) (*storage.BOQItem, *storage.WorkMaterialLink, error) {
	if !item.Kind.IsMaterial() {
		return nil, nil, nil
	}

	link, err := store.GetLinkByMaterial(ctx, item.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	work, err := store.GetItem(ctx, link.LinkedWorkID())
	if err != nil {
		return nil, nil, err
	}

	return work, link, nil
}

func validateKindChange(from, to storage.ItemKind, workLinkID *int64) error {
	if from.IsWork() && to.IsWork() {
		return nil
	}
	if from.IsMaterial() && to.IsMaterial() {
		// Слот связки материала мигрирует только через пересоздание
		// связки; на привязанном материале вид не меняем.
		if workLinkID != nil {
			return fmt.Errorf("сначала снимите связку материала с работой")
		}
		return nil
	}
	return fmt.Errorf("смена вида возможна только внутри работ или внутри материалов")
}

func applyDetails(item storage.BOQItem, d storage.UpdateItemDetails) storage.BOQItem {
	if d.Kind != nil {
		item.Kind = *d.Kind
	}
	if d.Description != nil {
		item.Description = *d.Description
	}
	if d.Category != nil {
		item.Category = *d.Category
	}
	if d.Unit != nil {
		item.Unit = *d.Unit
	}
	if d.Quantity != nil {
		item.Quantity = *d.Quantity
	}
	if d.UnitRate != nil {
		item.UnitRate = *d.UnitRate
	}
	if d.ConsumptionCoefficient != nil {
		item.ConsumptionCoefficient = d.ConsumptionCoefficient
	}
	if d.ConversionCoefficient != nil {
		item.ConversionCoefficient = d.ConversionCoefficient
	}
	if d.MaterialType != nil {
		item.MaterialType = *d.MaterialType
	}
	if d.DeliveryPriceType != nil {
		item.DeliveryPriceType = *d.DeliveryPriceType
	}
	if d.DeliveryAmount != nil {
		item.DeliveryAmount = *d.DeliveryAmount
	}
	if d.BaseQuantity != nil {
		item.BaseQuantity = d.BaseQuantity
	}
	return item
}
