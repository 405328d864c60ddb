package links

import (
	"context"
	"errors"
	"fmt"
	"tender-golang/internal/storage"
)

// Реестр связок работа-материал позиции. Следит за единственностью
// активной связки: повторная привязка — это всегда удалить-создать одной
// транзакцией, не update, потому что при смене вида работы или материала
// меняется заполняемая пара FK-слотов.

type LinkStorage interface {
	GetItem(ctx context.Context, id int64) (*storage.BOQItem, error)
	GetLinkByMaterial(ctx context.Context, materialID int64) (*storage.WorkMaterialLink, error)
	GetLinksForPosition(ctx context.Context, positionID int64) ([]storage.WorkMaterialLink, error)

	CreateLink(ctx context.Context, link storage.WorkMaterialLink) (int64, error)
	DeleteLink(ctx context.Context, linkID int64) error

	// ReplaceLink удаляет старую связку и создаёт новую одной транзакцией.
	ReplaceLink(ctx context.Context, oldLinkID int64, link storage.WorkMaterialLink) (int64, error)

	// UpdateItemCoefficients пишет коэффициенты в строку и её зеркало в
	// связке одной транзакцией.
	UpdateItemCoefficients(ctx context.Context, materialID int64, consumption, conversion float64) error

	// MigrateWorkKindLinks переносит все связки работы на новый FK-слот
	// (delete + create, коэффициенты сохраняются) одной транзакцией.
	MigrateWorkKindLinks(ctx context.Context, workID int64, from, to storage.ItemKind) error
}

type Registry struct {
	storage LinkStorage
}

func NewRegistry(storage LinkStorage) *Registry {
	return &Registry{storage: storage}
}

// Create привязывает материал к работе. Существующая связка материала
// заменяется атомарно — двух авторитетных связок не бывает ни в какой
// момент.
func (r *Registry) Create(ctx context.Context, positionID, workID, materialID int64) (int64, error) {
	const op = "service.links.Create"

	work, err := r.storage.GetItem(ctx, workID)
	if err != nil {
		return 0, fmt.Errorf("%s: работа %d: %w", op, workID, err)
	}
	material, err := r.storage.GetItem(ctx, materialID)
	if err != nil {
		return 0, fmt.Errorf("%s: материал %d: %w", op, materialID, err)
	}

	if !work.Kind.IsWork() {
		return 0, fmt.Errorf("%s: строка %d вида %q не работа: %w", op, workID, work.Kind, storage.ErrValidation)
	}
	if !material.Kind.IsMaterial() {
		return 0, fmt.Errorf("%s: строка %d вида %q не материал: %w", op, materialID, material.Kind, storage.ErrValidation)
	}
	if work.PositionID != positionID || material.PositionID != positionID {
		return 0, fmt.Errorf("%s: связка возможна только внутри одной позиции: %w", op, storage.ErrValidation)
	}

	link := storage.WorkMaterialLink{
		PositionID:              positionID,
		MaterialQuantityPerWork: coefOrOne(material.ConsumptionCoefficient),
		UsageCoefficient:        coefOrOne(material.ConversionCoefficient),
	}
	if err := link.SetEndpoints(workID, work.Kind, materialID, material.Kind); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	existing, err := r.storage.GetLinkByMaterial(ctx, materialID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if existing != nil {
		id, err := r.storage.ReplaceLink(ctx, existing.ID, link)
		if err != nil {
			return 0, fmt.Errorf("%s: замена связки %d: %w", op, existing.ID, err)
		}
		return id, nil
	}

	id, err := r.storage.CreateLink(ctx, link)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// Delete снимает связку; материал становится непривязанным.
func (r *Registry) Delete(ctx context.Context, linkID int64) error {
	const op = "service.links.Delete"

	if err := r.storage.DeleteLink(ctx, linkID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateCoefficients меняет коэффициенты материала. Поля строки — источник
// истины, зеркало в связке обновляется той же транзакцией и никогда
// отдельно.
func (r *Registry) UpdateCoefficients(ctx context.Context, materialID int64, consumption, conversion float64) error {
	const op = "service.links.UpdateCoefficients"

	if consumption <= 0 || conversion <= 0 {
		return fmt.Errorf("%s: коэффициенты должны быть положительными: %w", op, storage.ErrValidation)
	}

	if err := r.storage.UpdateItemCoefficients(ctx, materialID, consumption, conversion); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// MigrateWorkKind переносит связки работы после смены её вида
// (work ↔ sub_work): старый слот освобождается, новый заполняется,
// коэффициенты сохраняются. Частичное применение исключено транзакцией.
func (r *Registry) MigrateWorkKind(ctx context.Context, workID int64, from, to storage.ItemKind) error {
	const op = "service.links.MigrateWorkKind"

	if !from.IsWork() || !to.IsWork() {
		return fmt.Errorf("%s: миграция слота только между видами работ: %w", op, storage.ErrValidation)
	}
	if from == to {
		return nil
	}

	if err := r.storage.MigrateWorkKindLinks(ctx, workID, from, to); err != nil {
		return fmt.Errorf("%s: работа %d: %w", op, workID, err)
	}
	return nil
}

// GetForPosition — все связки позиции.
func (r *Registry) GetForPosition(ctx context.Context, positionID int64) ([]storage.WorkMaterialLink, error) {
	const op = "service.links.GetForPosition"

	res, err := r.storage.GetLinksForPosition(ctx, positionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

func coefOrOne(v *float64) float64 {
	if v != nil {
		return *v
	}
	return 1
}
