package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"tender-golang/internal/storage"
)

const itemColumns = `id, position_id, kind, sub_number, description, category, unit,
	quantity, unit_rate, total_amount, commercial_cost, markup_coefficient,
	consumption_coefficient, conversion_coefficient, material_type,
	delivery_price_type, delivery_amount, base_quantity, work_link_id,
	created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (*storage.BOQItem, error) {
	var item storage.BOQItem
	var materialType, deliveryType sql.NullString
	var deliveryAmount sql.NullFloat64

	err := row.Scan(
		&item.ID, &item.PositionID, &item.Kind, &item.SubNumber, &item.Description,
		&item.Category, &item.Unit, &item.Quantity, &item.UnitRate, &item.TotalAmount,
		&item.CommercialCost, &item.MarkupCoefficient,
		&item.ConsumptionCoefficient, &item.ConversionCoefficient, &materialType,
		&deliveryType, &deliveryAmount, &item.BaseQuantity, &item.WorkLinkID,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.MaterialType = storage.MaterialType(materialType.String)
	item.DeliveryPriceType = storage.DeliveryPriceType(deliveryType.String)
	item.DeliveryAmount = deliveryAmount.Float64

	return &item, nil
}

func (s *Storage) GetItem(ctx context.Context, id int64) (*storage.BOQItem, error) {
	const op = "storage.mysql.GetItem"

	stmt := `SELECT ` + itemColumns + ` FROM boq_items WHERE id = ?`

	item, err := scanItem(s.db.QueryRowContext(ctx, stmt, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: строка %d: %w", op, id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return item, nil
}

func (s *Storage) GetItemsByPosition(ctx context.Context, positionID int64) ([]storage.BOQItem, error) {
	const op = "storage.mysql.GetItemsByPosition"

	stmt := `SELECT ` + itemColumns + ` FROM boq_items WHERE position_id = ? ORDER BY sub_number, id`

	rows, err := s.db.QueryContext(ctx, stmt, positionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var items []storage.BOQItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: скан строки: %w", op, err)
		}
		items = append(items, *item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: итерация: %w", op, err)
	}

	return items, nil
}

func (s *Storage) SaveItem(ctx context.Context, item storage.BOQItem) (int64, error) {
	const op = "storage.mysql.SaveItem"

	stmt := `INSERT INTO boq_items (position_id, kind, sub_number, description, category, unit,
		quantity, unit_rate, total_amount, consumption_coefficient, conversion_coefficient,
		material_type, delivery_price_type, delivery_amount, base_quantity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	exec, err := s.db.ExecContext(ctx, stmt,
		item.PositionID, item.Kind, item.SubNumber, item.Description, item.Category, item.Unit,
		item.Quantity, item.UnitRate, item.TotalAmount,
		item.ConsumptionCoefficient, item.ConversionCoefficient,
		nullString(string(item.MaterialType)), nullString(string(item.DeliveryPriceType)),
		item.DeliveryAmount, item.BaseQuantity,
	)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return exec.LastInsertId()
}

func (s *Storage) UpdateItem(ctx context.Context, id int64, details storage.UpdateItemDetails) error {
	const op = "storage.mysql.UpdateItem"

	stmt := `UPDATE boq_items SET
		kind = COALESCE(?, kind),
		description = COALESCE(?, description),
		category = COALESCE(?, category),
		unit = COALESCE(?, unit),
		quantity = COALESCE(?, quantity),
		unit_rate = COALESCE(?, unit_rate),
		consumption_coefficient = COALESCE(?, consumption_coefficient),
		conversion_coefficient = COALESCE(?, conversion_coefficient),
		material_type = COALESCE(?, material_type),
		delivery_price_type = COALESCE(?, delivery_price_type),
		delivery_amount = COALESCE(?, delivery_amount),
		base_quantity = COALESCE(?, base_quantity),
		updated_at = NOW()
		WHERE id = ?`

	res, err := s.db.ExecContext(ctx, stmt,
		details.Kind, details.Description, details.Category, details.Unit,
		details.Quantity, details.UnitRate,
		details.ConsumptionCoefficient, details.ConversionCoefficient,
		details.MaterialType, details.DeliveryPriceType, details.DeliveryAmount,
		details.BaseQuantity, id,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: строка %d: %w", op, id, storage.ErrNotFound)
	}

	return nil
}

// UpdateItemAmounts пишет расчётные поля после пересчёта. Коэффициент
// наценки не трогается, если база была нулевой.
func (s *Storage) UpdateItemAmounts(ctx context.Context, id int64, amounts storage.ItemAmounts) error {
	const op = "storage.mysql.UpdateItemAmounts"

	stmt := `UPDATE boq_items SET quantity = ?, total_amount = ?, commercial_cost = ?,
		markup_coefficient = COALESCE(?, markup_coefficient), updated_at = NOW()
		WHERE id = ?`

	_, err := s.db.ExecContext(ctx, stmt, amounts.Quantity, amounts.TotalAmount,
		amounts.CommercialCost, amounts.MarkupCoefficient, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UpdateItemCoefficients обновляет коэффициенты строки и их зеркало в
// активной связке одной транзакцией: зеркало никогда не живёт своей жизнью.
func (s *Storage) UpdateItemCoefficients(ctx context.Context, materialID int64, consumption, conversion float64) error {
	const op = "storage.mysql.UpdateItemCoefficients"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE boq_items SET consumption_coefficient = ?, conversion_coefficient = ?, updated_at = NOW() WHERE id = ?`,
		consumption, conversion, materialID)
	if err != nil {
		return fmt.Errorf("%s: строка: %w", op, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE work_material_links SET material_quantity_per_work = ?, usage_coefficient = ?, updated_at = NOW()
		 WHERE material_id = ? OR sub_material_id = ?`,
		consumption, conversion, materialID, materialID)
	if err != nil {
		return fmt.Errorf("%s: зеркало связки: %w", op, err)
	}

	return tx.Commit()
}

func (s *Storage) DeleteItem(ctx context.Context, id int64) error {
	const op = "storage.mysql.DeleteItem"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}
	defer tx.Rollback()

	// Связки удаляемой строки уходят вместе с ней, с обеих сторон.
	_, err = tx.ExecContext(ctx,
		`DELETE FROM work_material_links WHERE work_id = ? OR sub_work_id = ? OR material_id = ? OR sub_material_id = ?`,
		id, id, id, id)
	if err != nil {
		return fmt.Errorf("%s: связки: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM boq_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: строка %d: %w", op, id, storage.ErrNotFound)
	}

	return tx.Commit()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
