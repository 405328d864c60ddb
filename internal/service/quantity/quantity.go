package quantity

import (
	"fmt"
	"math"
	"tender-golang/internal/storage"
)

// Количество привязанного материала всегда выводится из объёма работы и
// никогда не хранится как самостоятельное. У непривязанного материала
// хранится base_quantity — пользовательский ввод до коэффициентов, чтобы
// правка коэффициента не теряла исходное значение.

// MaxQuantity — предел колонки DECIMAL(12,4). Превышение — отклонённая
// правка, не молчаливое округление.
const MaxQuantity = 99_999_999.9999

// CoefficientOrDefault — поле строки, иначе зеркало из связки, иначе 1.
func CoefficientOrDefault(own *float64, linked float64) float64 {
	if own != nil {
		return *own
	}
	if linked != 0 {
		return linked
	}
	return 1
}

// Resolve вычисляет эффективное количество строки.
// Для работ количество авторитетно как введено. Для привязанного материала
// linkedWork и link обязательны, для непривязанного оба nil.
func Resolve(item storage.BOQItem, linkedWork *storage.BOQItem, link *storage.WorkMaterialLink) (float64, error) {
	if item.Kind.IsWork() {
		return checkBounds(item.Quantity)
	}

	if linkedWork != nil {
		var mirrorConsumption, mirrorConversion float64
		if link != nil {
			mirrorConsumption = link.MaterialQuantityPerWork
			mirrorConversion = link.UsageCoefficient
		}

		consumption := CoefficientOrDefault(item.ConsumptionCoefficient, mirrorConsumption)
		conversion := CoefficientOrDefault(item.ConversionCoefficient, mirrorConversion)

		return checkBounds(linkedWork.Quantity * consumption * conversion)
	}

	// Непривязанный материал: conversion смысла не имеет и принудительно 1.
	if item.BaseQuantity != nil {
		consumption := CoefficientOrDefault(item.ConsumptionCoefficient, 0)
		return checkBounds(*item.BaseQuantity * consumption)
	}

	return checkBounds(item.Quantity)
}

func checkBounds(q float64) (float64, error) {
	if math.Abs(q) > MaxQuantity {
		return 0, fmt.Errorf("вычисленное количество %.4f: %w", q, storage.ErrQuantityOverflow)
	}
	return q, nil
}

// AffectedByWork — чистая функция "что пересчитывать": материалы, чья
// активная связка указывает на изменившуюся работу. Вызывается синхронно,
// без таймеров и отложенных сканов.
func AffectedByWork(workID int64, items []storage.BOQItem, links []storage.WorkMaterialLink) []storage.BOQItem {
	linkedMaterials := make(map[int64]bool)
	for _, l := range links {
		if l.LinkedWorkID() == workID {
			linkedMaterials[l.LinkedMaterialID()] = true
		}
	}

	var affected []storage.BOQItem
	for _, item := range items {
		if item.Kind.IsMaterial() && linkedMaterials[item.ID] {
			affected = append(affected, item)
		}
	}
	return affected
}

// LinkForMaterial — активная связка материала в наборе связок позиции.
func LinkForMaterial(materialID int64, links []storage.WorkMaterialLink) *storage.WorkMaterialLink {
	for i := range links {
		if links[i].LinkedMaterialID() == materialID {
			return &links[i]
		}
	}
	return nil
}
