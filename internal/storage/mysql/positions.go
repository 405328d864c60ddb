package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"tender-golang/internal/storage"
)

func (s *Storage) GetPosition(ctx context.Context, id int64) (*storage.Position, error) {
	const op = "storage.mysql.GetPosition"

	stmt := `SELECT id, tender_id, number, client_note, total_position_cost,
		total_works_cost, total_materials_cost, created_at, updated_at
		FROM positions WHERE id = ?`

	var p storage.Position
	err := s.db.QueryRowContext(ctx, stmt, id).Scan(
		&p.ID, &p.TenderID, &p.Number, &p.ClientNote, &p.TotalPositionCost,
		&p.TotalWorksCost, &p.TotalMaterialsCost, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: позиция %d: %w", op, id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &p, nil
}

func (s *Storage) SavePosition(ctx context.Context, p storage.Position) (int64, error) {
	const op = "storage.mysql.SavePosition"

	stmt := `INSERT INTO positions (tender_id, number, client_note) VALUES (?, ?, ?)`

	exec, err := s.db.ExecContext(ctx, stmt, p.TenderID, p.Number, p.ClientNote)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return exec.LastInsertId()
}

func (s *Storage) UpdatePositionTotals(ctx context.Context, positionID int64, totals storage.PositionTotals) error {
	const op = "storage.mysql.UpdatePositionTotals"

	stmt := `UPDATE positions SET total_position_cost = ?, total_works_cost = ?,
		total_materials_cost = ?, updated_at = NOW() WHERE id = ?`

	res, err := s.db.ExecContext(ctx, stmt, totals.Total, totals.WorksCost, totals.MaterialsCost, positionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: позиция %d: %w", op, positionID, storage.ErrNotFound)
	}

	return nil
}
