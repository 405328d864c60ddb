package storage

import "time"

// ItemKind различает четыре вида строк позиции. Вид определяет и цепочку
// наценок, и то, какой FK-слот заполняется в связке работа-материал.
type ItemKind string

const (
	KindWork        ItemKind = "work"
	KindSubWork     ItemKind = "sub_work"
	KindMaterial    ItemKind = "material"
	KindSubMaterial ItemKind = "sub_material"
)

// IsWork — работа или субподрядная работа.
func (k ItemKind) IsWork() bool {
	return k == KindWork || k == KindSubWork
}

// IsMaterial — материал или субподрядный материал.
func (k ItemKind) IsMaterial() bool {
	return k == KindMaterial || k == KindSubMaterial
}

func (k ItemKind) Valid() bool {
	return k.IsWork() || k.IsMaterial()
}

type MaterialType string

const (
	MaterialMain      MaterialType = "main"
	MaterialAuxiliary MaterialType = "auxiliary"
)

// DeliveryPriceType — как учитывается доставка в базовой стоимости материала.
type DeliveryPriceType string

const (
	DeliveryIncluded    DeliveryPriceType = "included"
	DeliveryNotIncluded DeliveryPriceType = "not_included"
	DeliveryAmount      DeliveryPriceType = "amount"
)

type BOQItem struct {
	ID          int64    `json:"id"`
	PositionID  int64    `json:"position_id"`
	Kind        ItemKind `json:"kind"`
	SubNumber   int      `json:"sub_number"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Unit        string   `json:"unit"`

	Quantity     float64 `json:"quantity"`
	UnitRate     float64 `json:"unit_rate"`
	TotalAmount  float64 `json:"total_amount"`

	CommercialCost    float64  `json:"commercial_cost"`
	MarkupCoefficient *float64 `json:"markup_coefficient"`

	// Только для material/sub_material. nil — коэффициент не задан,
	// при расчёте берётся значение из связки, иначе 1.
	ConsumptionCoefficient *float64          `json:"consumption_coefficient,omitempty"`
	ConversionCoefficient  *float64          `json:"conversion_coefficient,omitempty"`
	MaterialType           MaterialType      `json:"material_type,omitempty"`
	DeliveryPriceType      DeliveryPriceType `json:"delivery_price_type,omitempty"`
	DeliveryAmount         float64           `json:"delivery_amount,omitempty"`

	// Введённое пользователем количество до коэффициентов. Хранится только
	// пока материал не привязан к работе: у привязанного материала
	// количество всегда выводится из объёма работы.
	BaseQuantity *float64 `json:"base_quantity,omitempty"`

	// Активная связка (если материал привязан). Денормализация для чтения,
	// источник истины — таблица связок.
	WorkLinkID *int64 `json:"work_link_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateItemDetails — редактируемые поля строки. Указатель = поле не трогаем.
type UpdateItemDetails struct {
	Kind                   *ItemKind          `json:"kind"`
	Description            *string            `json:"description"`
	Category               *string            `json:"category"`
	Unit                   *string            `json:"unit"`
	Quantity               *float64           `json:"quantity"`
	UnitRate               *float64           `json:"unit_rate"`
	ConsumptionCoefficient *float64           `json:"consumption_coefficient"`
	ConversionCoefficient  *float64           `json:"conversion_coefficient"`
	MaterialType           *MaterialType      `json:"material_type"`
	DeliveryPriceType      *DeliveryPriceType `json:"delivery_price_type"`
	DeliveryAmount         *float64           `json:"delivery_amount"`
	BaseQuantity           *float64           `json:"base_quantity"`
}

// ItemAmounts — расчётные поля, которые пишутся обратно после пересчёта.
type ItemAmounts struct {
	Quantity          float64  `json:"quantity"`
	TotalAmount       float64  `json:"total_amount"`
	CommercialCost    float64  `json:"commercial_cost"`
	MarkupCoefficient *float64 `json:"markup_coefficient,omitempty"`
}
