package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"tender-golang/internal/storage"
)

const linkColumns = `id, position_id, work_id, sub_work_id, material_id, sub_material_id,
	material_quantity_per_work, usage_coefficient, created_at, updated_at`

func scanLink(row interface{ Scan(...any) error }) (*storage.WorkMaterialLink, error) {
	var l storage.WorkMaterialLink
	err := row.Scan(
		&l.ID, &l.PositionID, &l.WorkID, &l.SubWorkID, &l.MaterialID, &l.SubMaterialID,
		&l.MaterialQuantityPerWork, &l.UsageCoefficient, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Storage) GetLinkByMaterial(ctx context.Context, materialID int64) (*storage.WorkMaterialLink, error) {
	const op = "storage.mysql.GetLinkByMaterial"

	stmt := `SELECT ` + linkColumns + ` FROM work_material_links WHERE material_id = ? OR sub_material_id = ?`

	link, err := scanLink(s.db.QueryRowContext(ctx, stmt, materialID, materialID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: материал %d: %w", op, materialID, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return link, nil
}

func (s *Storage) GetLinksForPosition(ctx context.Context, positionID int64) ([]storage.WorkMaterialLink, error) {
	const op = "storage.mysql.GetLinksForPosition"

	stmt := `SELECT ` + linkColumns + ` FROM work_material_links WHERE position_id = ? ORDER BY id`

	rows, err := s.db.QueryContext(ctx, stmt, positionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var links []storage.WorkMaterialLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: скан связки: %w", op, err)
		}
		links = append(links, *link)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: итерация: %w", op, err)
	}

	return links, nil
}

func (s *Storage) CreateLink(ctx context.Context, link storage.WorkMaterialLink) (int64, error) {
	const op = "storage.mysql.CreateLink"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin transaction: %w", op, err)
	}
	defer tx.Rollback()

	id, err := insertLinkTx(ctx, tx, link)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", op, err)
	}
	return id, nil
}

// insertLinkTx вставляет связку и обновляет денормализацию на материале:
// у привязанного материала base_quantity гасится, количество теперь
// выводится из объёма работы.
func insertLinkTx(ctx context.Context, tx *sql.Tx, link storage.WorkMaterialLink) (int64, error) {
	materialID := link.LinkedMaterialID()

	// Вторая активная связка материала не допускается на уровне запроса.
	var existing int64
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM work_material_links WHERE material_id = ? OR sub_material_id = ?`,
		materialID, materialID).Scan(&existing)
	if err != nil {
		return 0, fmt.Errorf("проверка связки: %w", err)
	}
	if existing > 0 {
		return 0, fmt.Errorf("материал %d: %w", materialID, storage.ErrLinkExists)
	}

	exec, err := tx.ExecContext(ctx,
		`INSERT INTO work_material_links (position_id, work_id, sub_work_id, material_id, sub_material_id,
			material_quantity_per_work, usage_coefficient)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		link.PositionID, link.WorkID, link.SubWorkID, link.MaterialID, link.SubMaterialID,
		link.MaterialQuantityPerWork, link.UsageCoefficient)
	if err != nil {
		return 0, fmt.Errorf("вставка связки: %w", err)
	}

	id, err := exec.LastInsertId()
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE boq_items SET work_link_id = ?, base_quantity = NULL, updated_at = NOW() WHERE id = ?`,
		id, materialID)
	if err != nil {
		return 0, fmt.Errorf("денормализация материала: %w", err)
	}

	return id, nil
}

// deleteLinkTx снимает связку и возвращает материалу самостоятельность:
// текущее выведенное количество становится его base_quantity.
func deleteLinkTx(ctx context.Context, tx *sql.Tx, linkID int64) error {
	link, err := scanLink(tx.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM work_material_links WHERE id = ? FOR UPDATE`, linkID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("связка %d: %w", linkID, storage.ErrNotFound)
		}
		return err
	}

	materialID := link.LinkedMaterialID()

	_, err = tx.ExecContext(ctx,
		`UPDATE boq_items SET work_link_id = NULL,
			base_quantity = quantity / GREATEST(COALESCE(consumption_coefficient, 1), 0.0001),
			updated_at = NOW()
		 WHERE id = ?`, materialID)
	if err != nil {
		return fmt.Errorf("денормализация материала: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM work_material_links WHERE id = ?`, linkID); err != nil {
		return fmt.Errorf("удаление связки: %w", err)
	}

	return nil
}

func (s *Storage) DeleteLink(ctx context.Context, linkID int64) error {
	const op = "storage.mysql.DeleteLink"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}
	defer tx.Rollback()

	if err := deleteLinkTx(ctx, tx, linkID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return tx.Commit()
}

// ReplaceLink — удалить старую связку и создать новую одной транзакцией.
// Именно delete+create: у новой связки может быть другая пара FK-слотов.
func (s *Storage) ReplaceLink(ctx context.Context, oldLinkID int64, link storage.WorkMaterialLink) (int64, error) {
	const op = "storage.mysql.ReplaceLink"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin transaction: %w", op, err)
	}
	defer tx.Rollback()

	if err := deleteLinkTx(ctx, tx, oldLinkID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := insertLinkTx(ctx, tx, link)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", op, err)
	}
	return id, nil
}

// MigrateWorkKindLinks переносит связки работы на слот нового вида после
// реклассификации work ↔ sub_work. Коэффициенты сохраняются как были.
func (s *Storage) MigrateWorkKindLinks(ctx context.Context, workID int64, from, to storage.ItemKind) error {
	const op = "storage.mysql.MigrateWorkKindLinks"

	fromCol, err := workSlot(from)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	toCol, err := workSlot(to)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM work_material_links WHERE `+fromCol+` = ? FOR UPDATE`, workID)
	if err != nil {
		return fmt.Errorf("%s: выборка связок: %w", op, err)
	}

	var old []storage.WorkMaterialLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			rows.Close()
			return fmt.Errorf("%s: скан связки: %w", op, err)
		}
		old = append(old, *link)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%s: итерация: %w", op, err)
	}

	for _, l := range old {
		if _, err := tx.ExecContext(ctx, `DELETE FROM work_material_links WHERE id = ?`, l.ID); err != nil {
			return fmt.Errorf("%s: удаление связки %d: %w", op, l.ID, err)
		}

		exec, err := tx.ExecContext(ctx,
			`INSERT INTO work_material_links (position_id, `+toCol+`, material_id, sub_material_id,
				material_quantity_per_work, usage_coefficient)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			l.PositionID, workID, l.MaterialID, l.SubMaterialID,
			l.MaterialQuantityPerWork, l.UsageCoefficient)
		if err != nil {
			return fmt.Errorf("%s: пересоздание связки %d: %w", op, l.ID, err)
		}

		newID, err := exec.LastInsertId()
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE boq_items SET work_link_id = ?, updated_at = NOW() WHERE id = ?`,
			newID, l.LinkedMaterialID())
		if err != nil {
			return fmt.Errorf("%s: денормализация материала: %w", op, err)
		}
	}

	return tx.Commit()
}

func workSlot(kind storage.ItemKind) (string, error) {
	switch kind {
	case storage.KindWork:
		return "work_id", nil
	case storage.KindSubWork:
		return "sub_work_id", nil
	}
	return "", fmt.Errorf("%q: %w", kind, storage.ErrUnknownKind)
}
