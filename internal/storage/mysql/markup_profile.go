package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"tender-golang/internal/storage"
)

const profileColumns = `id, tender_id, is_active, mechanization_service, mbp_gsm,
	warranty_period, works_16_markup, works_cost_growth, materials_cost_growth,
	contingency_costs, overhead_own_forces, general_costs_without_subcontract,
	profit_own_forces, subcontract_works_cost_growth, overhead_subcontract,
	profit_subcontract, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (*storage.MarkupProfile, error) {
	var p storage.MarkupProfile
	err := row.Scan(
		&p.ID, &p.TenderID, &p.IsActive, &p.MechanizationService, &p.MbpGsm,
		&p.WarrantyPeriod, &p.Works16Markup, &p.WorksCostGrowth, &p.MaterialsCostGrowth,
		&p.ContingencyCosts, &p.OverheadOwnForces, &p.GeneralCostsWithoutSubcontract,
		&p.ProfitOwnForces, &p.SubcontractWorksCostGrowth, &p.OverheadSubcontract,
		&p.ProfitSubcontract, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetActiveProfile — активная версия профиля наценок тендера. Загружается
// один раз на сессию расчёта и дальше передаётся по значению.
func (s *Storage) GetActiveProfile(ctx context.Context, tenderID int64) (*storage.MarkupProfile, error) {
	const op = "storage.mysql.GetActiveProfile"

	stmt := `SELECT ` + profileColumns + ` FROM markup_profiles
		WHERE tender_id = ? AND is_active = TRUE ORDER BY id DESC LIMIT 1`

	profile, err := scanProfile(s.db.QueryRowContext(ctx, stmt, tenderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: активный профиль тендера %d: %w", op, tenderID, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return profile, nil
}

// SaveProfile создаёт новую версию профиля и делает её активной; прежняя
// активная гасится той же транзакцией.
func (s *Storage) SaveProfile(ctx context.Context, p storage.MarkupProfile) (int64, error) {
	const op = "storage.mysql.SaveProfile"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin transaction: %w", op, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE markup_profiles SET is_active = FALSE WHERE tender_id = ? AND is_active = TRUE`,
		p.TenderID)
	if err != nil {
		return 0, fmt.Errorf("%s: деактивация прежней версии: %w", op, err)
	}

	exec, err := tx.ExecContext(ctx,
		`INSERT INTO markup_profiles (tender_id, is_active, mechanization_service, mbp_gsm,
			warranty_period, works_16_markup, works_cost_growth, materials_cost_growth,
			contingency_costs, overhead_own_forces, general_costs_without_subcontract,
			profit_own_forces, subcontract_works_cost_growth, overhead_subcontract, profit_subcontract)
		 VALUES (?, TRUE, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.TenderID, p.MechanizationService, p.MbpGsm, p.WarrantyPeriod, p.Works16Markup,
		p.WorksCostGrowth, p.MaterialsCostGrowth, p.ContingencyCosts, p.OverheadOwnForces,
		p.GeneralCostsWithoutSubcontract, p.ProfitOwnForces, p.SubcontractWorksCostGrowth,
		p.OverheadSubcontract, p.ProfitSubcontract)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := exec.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", op, err)
	}
	return id, nil
}
