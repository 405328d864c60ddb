package storage

import "time"

// Position — клиентская позиция сметы. Строки и связки живут отдельно от
// записи позиции: удаление строк позицию не уничтожает.
type Position struct {
	ID         int64  `json:"id"`
	TenderID   int64  `json:"tender_id"`
	Number     int    `json:"number"`
	ClientNote string `json:"client_note"`

	TotalPositionCost  float64 `json:"total_position_cost"`
	TotalWorksCost     float64 `json:"total_works_cost"`
	TotalMaterialsCost float64 `json:"total_materials_cost"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PositionTotals — итог позиции после агрегации по строкам.
type PositionTotals struct {
	WorksCost     float64 `json:"works_cost"`
	MaterialsCost float64 `json:"materials_cost"`
	Total         float64 `json:"total"`
}

// MoveParams — аргументы атомарной процедуры move_material.
type MoveParams struct {
	SourceWorkID int64    `json:"source_work_id"`
	TargetWorkID int64    `json:"target_work_id"`
	MaterialID   int64    `json:"material_id"`
	NewIndex     int      `json:"new_index"`
	Mode         MoveMode `json:"mode"`
}

// MoveResult — исход атомарной процедуры move_material. Конфликт — не
// ошибка, а штатный исход, требующий выбора стратегии слияния.
type MoveResult struct {
	Conflict  bool  `json:"conflict"`
	SrcLinkID int64 `json:"src_id,omitempty"`
	TgtLinkID int64 `json:"tgt_id,omitempty"`
}

type MoveMode string

const (
	MoveModeMove MoveMode = "move"
	MoveModeCopy MoveMode = "copy"
)

type MergeStrategy string

const (
	MergeSum     MergeStrategy = "sum"
	MergeReplace MergeStrategy = "replace"
)
