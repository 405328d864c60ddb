package recalc

import (
	"context"
	"fmt"
	"golang.org/x/sync/errgroup"
	"tender-golang/internal/service/cascade"
	"tender-golang/internal/service/quantity"
	"tender-golang/internal/storage"
)

// Пересчёт зависимых строк после правки. Изменение объёма работы тянет за
// собой количества всех привязанных материалов; итог позиции пишется
// только после того, как долетели все зависимые строки — читатель
// агрегата не должен увидеть половину пересчёта.

type RecalcStorage interface {
	GetPosition(ctx context.Context, id int64) (*storage.Position, error)
	GetItemsByPosition(ctx context.Context, positionID int64) ([]storage.BOQItem, error)
	GetLinksForPosition(ctx context.Context, positionID int64) ([]storage.WorkMaterialLink, error)
	GetActiveProfile(ctx context.Context, tenderID int64) (*storage.MarkupProfile, error)
	UpdateItemAmounts(ctx context.Context, itemID int64, amounts storage.ItemAmounts) error
	UpdatePositionTotals(ctx context.Context, positionID int64, totals storage.PositionTotals) error
}

type Service struct {
	storage RecalcStorage
}

func NewService(storage RecalcStorage) *Service {
	return &Service{storage: storage}
}

// ComputeAmounts — чистый пересчёт одной строки: количество, прямая
// стоимость, каскад, коэффициент наценки. Переполнение количества
// возвращается ошибкой с вычисленным значением, строка не меняется.
func ComputeAmounts(item storage.BOQItem, linkedWork *storage.BOQItem, link *storage.WorkMaterialLink, p storage.MarkupProfile) (storage.ItemAmounts, error) {
	qty, err := quantity.Resolve(item, linkedWork, link)
	if err != nil {
		return storage.ItemAmounts{}, err
	}

	item.Quantity = qty
	baseCost := cascade.BaseCost(item)

	res, err := cascade.Calculate(item.Kind, baseCost, p, item.MaterialType)
	if err != nil {
		return storage.ItemAmounts{}, err
	}

	amounts := storage.ItemAmounts{
		Quantity:       qty,
		TotalAmount:    baseCost,
		CommercialCost: res.CommercialCost,
	}
	if coef, ok := cascade.MarkupCoefficient(res.CommercialCost, baseCost); ok {
		amounts.MarkupCoefficient = &coef
	}

	return amounts, nil
}

type positionContext struct {
	position *storage.Position
	items    []storage.BOQItem
	links    []storage.WorkMaterialLink
	profile  *storage.MarkupProfile
}

func (s *Service) loadPosition(ctx context.Context, positionID int64) (positionContext, error) {
	position, err := s.storage.GetPosition(ctx, positionID)
	if err != nil {
		return positionContext{}, fmt.Errorf("позиция %d: %w", positionID, err)
	}

	pc := positionContext{position: position}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pc.items, err = s.storage.GetItemsByPosition(gCtx, positionID)
		if err != nil {
			return fmt.Errorf("строки: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		pc.links, err = s.storage.GetLinksForPosition(gCtx, positionID)
		if err != nil {
			return fmt.Errorf("связки: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		pc.profile, err = s.storage.GetActiveProfile(gCtx, position.TenderID)
		if err != nil {
			return fmt.Errorf("профиль наценок: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return positionContext{}, err
	}
	return pc, nil
}

// PropagateWorkChange пересчитывает материалы, привязанные к изменившейся
// работе, и затем итоги позиции. Любое переполнение отменяет пересчёт
// целиком — правка, породившая его, считается отклонённой.
func (s *Service) PropagateWorkChange(ctx context.Context, positionID, workID int64) error {
	const op = "service.recalc.PropagateWorkChange"

	pc, err := s.loadPosition(ctx, positionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var work *storage.BOQItem
	for i := range pc.items {
		if pc.items[i].ID == workID {
			work = &pc.items[i]
			break
		}
	}
	if work == nil {
		return fmt.Errorf("%s: работа %d не найдена в позиции %d: %w", op, workID, positionID, storage.ErrNotFound)
	}

	affected := quantity.AffectedByWork(workID, pc.items, pc.links)

	// Сначала считаем все строки в памяти: если хоть одна переполнилась,
	// в базу не уходит ничего.
	computed := make(map[int64]storage.ItemAmounts, len(affected))
	for _, item := range affected {
		link := quantity.LinkForMaterial(item.ID, pc.links)
		amounts, err := ComputeAmounts(item, work, link, *pc.profile)
		if err != nil {
			return fmt.Errorf("%s: материал %d: %w", op, item.ID, err)
		}
		computed[item.ID] = amounts
	}

	for id, amounts := range computed {
		if err := s.storage.UpdateItemAmounts(ctx, id, amounts); err != nil {
			return fmt.Errorf("%s: запись материала %d: %w", op, id, err)
		}
	}

	for i := range pc.items {
		if amounts, ok := computed[pc.items[i].ID]; ok {
			pc.items[i].Quantity = amounts.Quantity
		}
	}

	totals, err := cascade.AggregatePosition(pc.items, *pc.profile)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.storage.UpdatePositionTotals(ctx, positionID, totals); err != nil {
		return fmt.Errorf("%s: итоги позиции: %w", op, err)
	}

	return nil
}

// RefreshPosition пересчитывает агрегат позиции по текущим строкам.
func (s *Service) RefreshPosition(ctx context.Context, positionID int64) (storage.PositionTotals, error) {
	const op = "service.recalc.RefreshPosition"

	pc, err := s.loadPosition(ctx, positionID)
	if err != nil {
		return storage.PositionTotals{}, fmt.Errorf("%s: %w", op, err)
	}

	totals, err := cascade.AggregatePosition(pc.items, *pc.profile)
	if err != nil {
		return storage.PositionTotals{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.UpdatePositionTotals(ctx, positionID, totals); err != nil {
		return storage.PositionTotals{}, fmt.Errorf("%s: %w", op, err)
	}

	return totals, nil
}
