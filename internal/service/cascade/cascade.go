package cascade

import (
	"fmt"
	"tender-golang/internal/storage"
)

// Коммерческий каскад: последовательность процентных наценок, своя для
// каждого вида строки. Все функции чистые — профиль всегда приходит
// аргументом, никакого глобального состояния. Округление до копеек
// делается только на выводе, внутри каскада точность не теряем.

const (
	HighlightWork     = "work"
	HighlightMaterial = "material"

	// Доставка "в т.ч. не входит" считается как 3% от расценки.
	deliveryNotIncludedRate = 0.03
)

// Stage — одна ступень каскада для аудиторской раскладки.
type Stage struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Percent   float64 `json:"percent"`
	Highlight string  `json:"highlight"`
}

// Result — итог каскада: коммерческая стоимость и её разложение на
// "работную" и "материальную" части плюс полный список ступеней.
type Result struct {
	CommercialCost        float64 `json:"commercial_cost"`
	WorksContribution     float64 `json:"works_contribution"`
	MaterialsContribution float64 `json:"materials_contribution"`
	Stages                []Stage `json:"stages"`
}

// Calculate прогоняет базовую стоимость через каскад вида kind.
// materialType учитывается только для material/sub_material.
func Calculate(kind storage.ItemKind, baseCost float64, p storage.MarkupProfile, materialType storage.MaterialType) (Result, error) {
	switch kind {
	case storage.KindWork:
		return calculateWork(baseCost, p), nil
	case storage.KindSubWork:
		return calculateSubWork(baseCost, p), nil
	case storage.KindMaterial:
		return calculateMaterial(baseCost, p, materialType), nil
	case storage.KindSubMaterial:
		return calculateSubMaterial(baseCost, p, materialType), nil
	}
	return Result{}, fmt.Errorf("cascade: %q: %w", kind, storage.ErrUnknownKind)
}

func pct(v float64) float64 { return v / 100 }

// Работы собственными силами. Порядок ступеней фиксирован, ООЗ считается
// от прироста (рост + непредвиденные минус уже учтённые СП-16 и МБП).
func calculateWork(base float64, p storage.MarkupProfile) Result {
	mech := base * pct(p.MechanizationService)
	mbp := base * pct(p.MbpGsm)
	work16 := (base + mech) * (1 + pct(p.Works16Markup))
	growth := (work16 + mbp) * (1 + pct(p.WorksCostGrowth))
	contingency := (work16 + mbp) * (1 + pct(p.ContingencyCosts))
	ooz := (growth + contingency - work16 - mbp) * (1 + pct(p.OverheadOwnForces))
	ofz := ooz * (1 + pct(p.GeneralCostsWithoutSubcontract))
	profit := ofz * (1 + pct(p.ProfitOwnForces))
	warranty := base * pct(p.WarrantyPeriod)

	commercial := profit + warranty

	stages := []Stage{
		{Name: "Служба механизации", Value: mech, Percent: p.MechanizationService, Highlight: HighlightWork},
		{Name: "МБП и ГСМ", Value: mbp, Percent: p.MbpGsm, Highlight: HighlightWork},
		{Name: "Работы 1,6", Value: work16, Percent: p.Works16Markup, Highlight: HighlightWork},
		{Name: "Рост стоимости работ", Value: growth, Percent: p.WorksCostGrowth, Highlight: HighlightWork},
		{Name: "Непредвиденные затраты", Value: contingency, Percent: p.ContingencyCosts, Highlight: HighlightWork},
		{Name: "ООЗ собственные силы", Value: ooz, Percent: p.OverheadOwnForces, Highlight: HighlightWork},
		{Name: "ОФЗ без субподряда", Value: ofz, Percent: p.GeneralCostsWithoutSubcontract, Highlight: HighlightWork},
		{Name: "Прибыль собственные силы", Value: profit, Percent: p.ProfitOwnForces, Highlight: HighlightWork},
		{Name: "Гарантийный период", Value: warranty, Percent: p.WarrantyPeriod, Highlight: HighlightWork},
	}

	return Result{
		CommercialCost:    commercial,
		WorksContribution: commercial,
		Stages:            stages,
	}
}

// Субподрядные работы: короткая цепочка рост → накладные → прибыль.
func calculateSubWork(base float64, p storage.MarkupProfile) Result {
	growth := base * (1 + pct(p.SubcontractWorksCostGrowth))
	overhead := growth * (1 + pct(p.OverheadSubcontract))
	profit := overhead * (1 + pct(p.ProfitSubcontract))

	stages := []Stage{
		{Name: "Рост стоимости субподрядных работ", Value: growth, Percent: p.SubcontractWorksCostGrowth, Highlight: HighlightWork},
		{Name: "ООЗ субподряд", Value: overhead, Percent: p.OverheadSubcontract, Highlight: HighlightWork},
		{Name: "Прибыль субподряд", Value: profit, Percent: p.ProfitSubcontract, Highlight: HighlightWork},
	}

	return Result{
		CommercialCost:    profit,
		WorksContribution: profit,
		Stages:            stages,
	}
}

// Материалы собственных сил. Основной материал оставляет базу в
// "материалах", в "работы" уходит только наценка; вспомогательный целиком
// переезжает в "работы".
func calculateMaterial(base float64, p storage.MarkupProfile, materialType storage.MaterialType) Result {
	growth := base * (1 + pct(p.MaterialsCostGrowth))
	contingency := base * (1 + pct(p.ContingencyCosts))
	ooz := (growth + contingency - base) * (1 + pct(p.OverheadOwnForces))
	ofz := ooz * (1 + pct(p.GeneralCostsWithoutSubcontract))
	profit := ofz * (1 + pct(p.ProfitOwnForces))
	markup := profit - base

	highlight := HighlightMaterial
	if materialType == storage.MaterialAuxiliary {
		highlight = HighlightWork
	}

	stages := []Stage{
		{Name: "Рост стоимости материалов", Value: growth, Percent: p.MaterialsCostGrowth, Highlight: highlight},
		{Name: "Непредвиденные затраты", Value: contingency, Percent: p.ContingencyCosts, Highlight: highlight},
		{Name: "ООЗ собственные силы", Value: ooz, Percent: p.OverheadOwnForces, Highlight: highlight},
		{Name: "ОФЗ без субподряда", Value: ofz, Percent: p.GeneralCostsWithoutSubcontract, Highlight: highlight},
		{Name: "Прибыль собственные силы", Value: profit, Percent: p.ProfitOwnForces, Highlight: highlight},
	}

	return splitMaterial(base, profit, markup, materialType, stages)
}

// Субподрядные материалы: цепочка как у субподрядных работ, раскладка как
// у материалов.
func calculateSubMaterial(base float64, p storage.MarkupProfile, materialType storage.MaterialType) Result {
	growth := base * (1 + pct(p.SubcontractWorksCostGrowth))
	overhead := growth * (1 + pct(p.OverheadSubcontract))
	profit := overhead * (1 + pct(p.ProfitSubcontract))
	markup := profit - base

	highlight := HighlightMaterial
	if materialType == storage.MaterialAuxiliary {
		highlight = HighlightWork
	}

	stages := []Stage{
		{Name: "Рост стоимости субподрядных работ", Value: growth, Percent: p.SubcontractWorksCostGrowth, Highlight: highlight},
		{Name: "ООЗ субподряд", Value: overhead, Percent: p.OverheadSubcontract, Highlight: highlight},
		{Name: "Прибыль субподряд", Value: profit, Percent: p.ProfitSubcontract, Highlight: highlight},
	}

	return splitMaterial(base, profit, markup, materialType, stages)
}

func splitMaterial(base, profit, markup float64, materialType storage.MaterialType, stages []Stage) Result {
	if materialType == storage.MaterialAuxiliary {
		return Result{
			CommercialCost:    profit,
			WorksContribution: profit,
			Stages:            stages,
		}
	}

	return Result{
		CommercialCost:        base + markup,
		WorksContribution:     markup,
		MaterialsContribution: base,
		Stages:                stages,
	}
}

// DeliverySurcharge — надбавка за доставку на весь объём строки.
// "amount" — сохранённая сумма за единицу, "not_included" — всегда 3% от
// расценки (сохранённая сумма игнорируется), "included" — ноль.
func DeliverySurcharge(item storage.BOQItem) float64 {
	if !item.Kind.IsMaterial() {
		return 0
	}

	switch item.DeliveryPriceType {
	case storage.DeliveryAmount:
		return item.DeliveryAmount * item.Quantity
	case storage.DeliveryNotIncluded:
		return item.UnitRate * deliveryNotIncludedRate * item.Quantity
	}

	return 0
}

// BaseCost — прямая стоимость строки до каскада: объём × расценка плюс
// доставка для материалов.
func BaseCost(item storage.BOQItem) float64 {
	return item.Quantity*item.UnitRate + DeliverySurcharge(item)
}

// MarkupCoefficient — отношение коммерческой стоимости к базовой.
// При нулевой базе коэффициент не считается и не сохраняется.
func MarkupCoefficient(commercialCost, baseCost float64) (float64, bool) {
	if baseCost == 0 {
		return 0, false
	}
	return commercialCost / baseCost, true
}

// AggregatePosition суммирует вклады всех строк позиции. Количества строк
// должны быть актуальны: агрегат читается только после завершения
// пересчёта зависимых материалов.
func AggregatePosition(items []storage.BOQItem, p storage.MarkupProfile) (storage.PositionTotals, error) {
	var totals storage.PositionTotals

	for _, item := range items {
		res, err := Calculate(item.Kind, BaseCost(item), p, item.MaterialType)
		if err != nil {
			return storage.PositionTotals{}, fmt.Errorf("позиция %d, строка %d: %w", item.PositionID, item.ID, err)
		}
		totals.WorksCost += res.WorksContribution
		totals.MaterialsCost += res.MaterialsContribution
	}

	totals.Total = totals.WorksCost + totals.MaterialsCost
	return totals, nil
}
