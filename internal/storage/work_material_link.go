package storage

import (
	"fmt"
	"time"
)

// WorkMaterialLink привязывает материал к работе внутри одной позиции.
// Из четырёх FK-слотов заполняется ровно одна пара: (work_id | sub_work_id)
// и (material_id | sub_material_id) — в зависимости от вида обеих строк.
// У материала может быть только одна активная связка.
type WorkMaterialLink struct {
	ID         int64 `json:"id"`
	PositionID int64 `json:"position_id"`

	WorkID        *int64 `json:"work_id,omitempty"`
	SubWorkID     *int64 `json:"sub_work_id,omitempty"`
	MaterialID    *int64 `json:"material_id,omitempty"`
	SubMaterialID *int64 `json:"sub_material_id,omitempty"`

	// Зеркала коэффициентов материала. Источник истины — поля самой строки,
	// зеркало обновляется в той же транзакции, что и строка.
	MaterialQuantityPerWork float64 `json:"material_quantity_per_work"`
	UsageCoefficient        float64 `json:"usage_coefficient"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetEndpoints заполняет нужную пару FK-слотов по видам работы и материала.
func (l *WorkMaterialLink) SetEndpoints(workID int64, workKind ItemKind, materialID int64, materialKind ItemKind) error {
	l.WorkID, l.SubWorkID, l.MaterialID, l.SubMaterialID = nil, nil, nil, nil

	switch workKind {
	case KindWork:
		l.WorkID = &workID
	case KindSubWork:
		l.SubWorkID = &workID
	default:
		return fmt.Errorf("link endpoint: %q не является работой: %w", workKind, ErrValidation)
	}

	switch materialKind {
	case KindMaterial:
		l.MaterialID = &materialID
	case KindSubMaterial:
		l.SubMaterialID = &materialID
	default:
		return fmt.Errorf("link endpoint: %q не является материалом: %w", materialKind, ErrValidation)
	}

	return nil
}

// MergeLinkCoefficients — арифметика слияния конфликтующих связок одного
// материала. sum складывает выведенные количества на единицу работы:
// c_src×k_src + c_tgt×k_tgt при пересчётном коэффициенте 1 — наивная сумма
// расходов при разных k теряла бы часть количества. replace перезаписывает
// коэффициенты цели исходными. Нулевое зеркало трактуется как 1, в
// согласии с цепочкой подстановок при выводе количества.
func MergeLinkCoefficients(src, tgt WorkMaterialLink, strategy MergeStrategy) (consumption, conversion float64, err error) {
	switch strategy {
	case MergeSum:
		combined := src.MaterialQuantityPerWork*mirrorOrOne(src.UsageCoefficient) +
			tgt.MaterialQuantityPerWork*mirrorOrOne(tgt.UsageCoefficient)
		return combined, 1, nil
	case MergeReplace:
		return src.MaterialQuantityPerWork, src.UsageCoefficient, nil
	}
	return 0, 0, fmt.Errorf("стратегия %q: %w", strategy, ErrValidation)
}

func mirrorOrOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// LinkedWorkID — id работы независимо от заполненного слота, 0 если слот пуст.
func (l *WorkMaterialLink) LinkedWorkID() int64 {
	if l.WorkID != nil {
		return *l.WorkID
	}
	if l.SubWorkID != nil {
		return *l.SubWorkID
	}
	return 0
}

// LinkedMaterialID — id материала независимо от заполненного слота.
func (l *WorkMaterialLink) LinkedMaterialID() int64 {
	if l.MaterialID != nil {
		return *l.MaterialID
	}
	if l.SubMaterialID != nil {
		return *l.SubMaterialID
	}
	return 0
}
