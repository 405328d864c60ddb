package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"tender-golang/internal/storage"
)

// Атомарные процедуры переноса материала. Обе выполняются одной
// транзакцией с блокировкой затронутых строк: параллельные переносы на ту
// же работу выстраиваются в очередь, частично применённое состояние
// (связка удалена, но не пересоздана) невозможно.

// MoveMaterial переносит или копирует материал с исходной работы на
// целевую. Если у целевой работы уже есть эквивалентный материал (то же
// наименование и единица), возвращается дескриптор конфликта и ни одна
// строка не меняется.
func (s *Storage) MoveMaterial(ctx context.Context, p storage.MoveParams) (storage.MoveResult, error) {
	const op = "storage.mysql.MoveMaterial"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.MoveResult{}, fmt.Errorf("%s: begin transaction: %w", op, err)
	}
	defer tx.Rollback()

	srcLink, err := scanLink(tx.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM work_material_links
		 WHERE (material_id = ? OR sub_material_id = ?)
		   AND (work_id = ? OR sub_work_id = ?)
		 FOR UPDATE`,
		p.MaterialID, p.MaterialID, p.SourceWorkID, p.SourceWorkID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.MoveResult{}, fmt.Errorf("%s: связка материала %d с работой %d: %w",
				op, p.MaterialID, p.SourceWorkID, storage.ErrNotFound)
		}
		return storage.MoveResult{}, fmt.Errorf("%s: %w", op, err)
	}

	material, err := scanItem(tx.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM boq_items WHERE id = ? FOR UPDATE`, p.MaterialID))
	if err != nil {
		return storage.MoveResult{}, fmt.Errorf("%s: материал %d: %w", op, p.MaterialID, err)
	}

	var targetKind storage.ItemKind
	err = tx.QueryRowContext(ctx,
		`SELECT kind FROM boq_items WHERE id = ? FOR UPDATE`, p.TargetWorkID).Scan(&targetKind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.MoveResult{}, fmt.Errorf("%s: целевая работа %d: %w", op, p.TargetWorkID, storage.ErrNotFound)
		}
		return storage.MoveResult{}, fmt.Errorf("%s: %w", op, err)
	}

	// Проверка на эквивалентный материал у цели — под блокировкой, чтобы
	// конкурирующий перенос не проскочил между проверкой и вставкой.
	var tgtLinkID int64
	err = tx.QueryRowContext(ctx,
		`SELECT l.id
		 FROM work_material_links l
		 JOIN boq_items m ON m.id = COALESCE(l.material_id, l.sub_material_id)
		 WHERE (l.work_id = ? OR l.sub_work_id = ?)
		   AND m.description = ? AND m.unit = ?
		 FOR UPDATE`,
		p.TargetWorkID, p.TargetWorkID, material.Description, material.Unit).Scan(&tgtLinkID)
	switch {
	case err == nil:
		// Конфликт — штатный исход, мутаций не было, фиксировать нечего.
		return storage.MoveResult{Conflict: true, SrcLinkID: srcLink.ID, TgtLinkID: tgtLinkID}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return storage.MoveResult{}, fmt.Errorf("%s: проверка конфликта: %w", op, err)
	}

	movedMaterialID := p.MaterialID

	if p.Mode == storage.MoveModeCopy {
		// Копия: клонируем строку материала, исходная связка остаётся.
		exec, err := tx.ExecContext(ctx,
			`INSERT INTO boq_items (position_id, kind, sub_number, description, category, unit,
				quantity, unit_rate, total_amount, consumption_coefficient, conversion_coefficient,
				material_type, delivery_price_type, delivery_amount)
			 SELECT position_id, kind, ?, description, category, unit,
				quantity, unit_rate, total_amount, consumption_coefficient, conversion_coefficient,
				material_type, delivery_price_type, delivery_amount
			 FROM boq_items WHERE id = ?`,
			p.NewIndex, p.MaterialID)
		if err != nil {
			return storage.MoveResult{}, fmt.Errorf("%s: копирование материала: %w", op, err)
		}
		movedMaterialID, err = exec.LastInsertId()
		if err != nil {
			return storage.MoveResult{}, fmt.Errorf("%s: %w", op, err)
		}
	} else {
		if err := deleteLinkTx(ctx, tx, srcLink.ID); err != nil {
			return storage.MoveResult{}, fmt.Errorf("%s: %w", op, err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE boq_items SET sub_number = ?, updated_at = NOW() WHERE id = ?`,
			p.NewIndex, p.MaterialID)
		if err != nil {
			return storage.MoveResult{}, fmt.Errorf("%s: позиция материала: %w", op, err)
		}
	}

	newLink := storage.WorkMaterialLink{
		PositionID:              srcLink.PositionID,
		MaterialQuantityPerWork: srcLink.MaterialQuantityPerWork,
		UsageCoefficient:        srcLink.UsageCoefficient,
	}
	if err := newLink.SetEndpoints(p.TargetWorkID, targetKind, movedMaterialID, material.Kind); err != nil {
		return storage.MoveResult{}, fmt.Errorf("%s: %w", op, err)
	}

	newLinkID, err := insertLinkTx(ctx, tx, newLink)
	if err != nil {
		return storage.MoveResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return storage.MoveResult{}, fmt.Errorf("%s: commit: %w", op, err)
	}

	return storage.MoveResult{SrcLinkID: srcLink.ID, TgtLinkID: newLinkID}, nil
}

// ResolveConflict сливает конфликтующие связки. sum — выведенные
// количества двух материалов складываются на единицу работы в целевой
// связке; replace — коэффициенты цели перезаписываются исходными. В обоих
// случаях исходная связка и её материал удаляются: между целевой работой
// и материалом остаётся ровно одна связка.
func (s *Storage) ResolveConflict(ctx context.Context, srcLinkID, tgtLinkID, targetWorkID int64, strategy storage.MergeStrategy) error {
	const op = "storage.mysql.ResolveConflict"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}
	defer tx.Rollback()

	srcLink, err := scanLink(tx.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM work_material_links WHERE id = ? FOR UPDATE`, srcLinkID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: исходная связка %d: %w", op, srcLinkID, storage.ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	tgtLink, err := scanLink(tx.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM work_material_links WHERE id = ? FOR UPDATE`, tgtLinkID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: целевая связка %d: %w", op, tgtLinkID, storage.ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if tgtLink.LinkedWorkID() != targetWorkID {
		return fmt.Errorf("%s: связка %d не принадлежит работе %d: %w", op, tgtLinkID, targetWorkID, storage.ErrValidation)
	}

	consumption, conversion, err := storage.MergeLinkCoefficients(*srcLink, *tgtLink, strategy)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE work_material_links SET material_quantity_per_work = ?, usage_coefficient = ?, updated_at = NOW()
		 WHERE id = ?`,
		consumption, conversion, tgtLinkID)
	if err != nil {
		return fmt.Errorf("%s: целевая связка: %w", op, err)
	}

	// Поля строки — источник истины, зеркало обновили выше той же
	// транзакцией.
	_, err = tx.ExecContext(ctx,
		`UPDATE boq_items SET consumption_coefficient = ?, conversion_coefficient = ?, updated_at = NOW()
		 WHERE id = ?`,
		consumption, conversion, tgtLink.LinkedMaterialID())
	if err != nil {
		return fmt.Errorf("%s: целевой материал: %w", op, err)
	}

	srcMaterialID := srcLink.LinkedMaterialID()

	if _, err := tx.ExecContext(ctx, `DELETE FROM work_material_links WHERE id = ?`, srcLinkID); err != nil {
		return fmt.Errorf("%s: исходная связка: %w", op, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM boq_items WHERE id = ?`, srcMaterialID); err != nil {
		return fmt.Errorf("%s: исходный материал: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}
