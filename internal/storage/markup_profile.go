package storage

import "time"

// MarkupProfile — именованные процентные коэффициенты тендера. Профиль
// версионируется, на расчёт всегда передаётся активная версия целиком и
// не меняется до конца расчёта.
type MarkupProfile struct {
	ID       int64 `json:"id"`
	TenderID int64 `json:"tender_id"`
	IsActive bool  `json:"is_active"`

	MechanizationService float64 `json:"mechanization_service"`
	MbpGsm               float64 `json:"mbp_gsm"`
	WarrantyPeriod       float64 `json:"warranty_period"`
	Works16Markup        float64 `json:"works_16_markup"`
	WorksCostGrowth      float64 `json:"works_cost_growth"`
	MaterialsCostGrowth  float64 `json:"materials_cost_growth"`
	ContingencyCosts     float64 `json:"contingency_costs"`
	OverheadOwnForces    float64 `json:"overhead_own_forces"`
	// ОФЗ без субподряда
	GeneralCostsWithoutSubcontract float64 `json:"general_costs_without_subcontract"`
	ProfitOwnForces                float64 `json:"profit_own_forces"`

	SubcontractWorksCostGrowth float64 `json:"subcontract_works_cost_growth"`
	OverheadSubcontract        float64 `json:"overhead_subcontract"`
	ProfitSubcontract          float64 `json:"profit_subcontract"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
