package transfer

import (
	"context"
	"fmt"
	"golang.org/x/sync/errgroup"
	"tender-golang/internal/storage"
)

// Перенос материала между работами. Проверка на эквивалентный материал у
// целевой работы и само слияние выполняются одной серверной транзакцией —
// два одновременных переноса на одну работу не могут оба выиграть гонку.
// Конфликт возвращается наверх как штатный исход, стратегию выбирает
// пользователь.

type TransferStorage interface {
	GetItem(ctx context.Context, id int64) (*storage.BOQItem, error)

	// MoveMaterial — атомарная процедура: либо перенос/копия целиком, либо
	// дескриптор конфликта без единой мутации.
	MoveMaterial(ctx context.Context, p storage.MoveParams) (storage.MoveResult, error)

	// ResolveConflict — атомарное слияние двух связок по выбранной
	// стратегии; после неё между целевой работой и материалом остаётся
	// ровно одна связка.
	ResolveConflict(ctx context.Context, srcLinkID, tgtLinkID, targetWorkID int64, strategy storage.MergeStrategy) error
}

// Recalculator пересчитывает зависимые строки после слияния.
type Recalculator interface {
	PropagateWorkChange(ctx context.Context, positionID, workID int64) error
}

type Service struct {
	storage TransferStorage
	recalc  Recalculator
}

func NewService(storage TransferStorage, recalc Recalculator) *Service {
	return &Service{storage: storage, recalc: recalc}
}

// Move переносит (или копирует) материал с одной работы на другую.
// При эквивалентном материале у цели возвращается конфликт — без мутаций.
func (s *Service) Move(ctx context.Context, p storage.MoveParams) (storage.MoveResult, error) {
	const op = "service.transfer.Move"

	if p.Mode != storage.MoveModeMove && p.Mode != storage.MoveModeCopy {
		return storage.MoveResult{}, fmt.Errorf("%s: неизвестный режим %q: %w", op, p.Mode, storage.ErrValidation)
	}
	if p.SourceWorkID == p.TargetWorkID {
		return storage.MoveResult{}, fmt.Errorf("%s: исходная и целевая работа совпадают: %w", op, storage.ErrValidation)
	}

	var source, target *storage.BOQItem
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		source, err = s.storage.GetItem(gCtx, p.SourceWorkID)
		if err != nil {
			return fmt.Errorf("исходная работа: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		target, err = s.storage.GetItem(gCtx, p.TargetWorkID)
		if err != nil {
			return fmt.Errorf("целевая работа: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return storage.MoveResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if !source.Kind.IsWork() || !target.Kind.IsWork() {
		return storage.MoveResult{}, fmt.Errorf("%s: перенос возможен только между работами: %w", op, storage.ErrValidation)
	}
	if source.PositionID != target.PositionID {
		return storage.MoveResult{}, fmt.Errorf("%s: работы из разных позиций: %w", op, storage.ErrValidation)
	}

	res, err := s.storage.MoveMaterial(ctx, p)
	if err != nil {
		return storage.MoveResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if !res.Conflict {
		// Материал сменил авторитетную работу — его количество и
		// стоимость теперь выводятся из объёма цели.
		if err := s.recalc.PropagateWorkChange(ctx, target.PositionID, p.TargetWorkID); err != nil {
			return storage.MoveResult{}, fmt.Errorf("%s: пересчёт после переноса: %w", op, err)
		}
	}

	return res, nil
}

// Resolve сливает конфликтующие связки по выбранной стратегии и
// пересчитывает выжившую строку через общий механизм количеств и каскада.
func (s *Service) Resolve(ctx context.Context, srcLinkID, tgtLinkID, targetWorkID int64, strategy storage.MergeStrategy) error {
	const op = "service.transfer.Resolve"

	if strategy != storage.MergeSum && strategy != storage.MergeReplace {
		return fmt.Errorf("%s: неизвестная стратегия %q: %w", op, strategy, storage.ErrValidation)
	}

	target, err := s.storage.GetItem(ctx, targetWorkID)
	if err != nil {
		return fmt.Errorf("%s: целевая работа %d: %w", op, targetWorkID, err)
	}

	if err := s.storage.ResolveConflict(ctx, srcLinkID, tgtLinkID, targetWorkID, strategy); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.recalc.PropagateWorkChange(ctx, target.PositionID, targetWorkID); err != nil {
		return fmt.Errorf("%s: пересчёт после слияния: %w", op, err)
	}

	return nil
}
