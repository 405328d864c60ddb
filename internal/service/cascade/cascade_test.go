package cascade

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tender-golang/internal/storage"
)

// Профиль из типового тендера: все значения — проценты.
func testProfile() storage.MarkupProfile {
	return storage.MarkupProfile{
		MechanizationService:           2,
		MbpGsm:                         1,
		WarrantyPeriod:                 1,
		Works16Markup:                  5,
		WorksCostGrowth:                3,
		MaterialsCostGrowth:            4,
		ContingencyCosts:               2,
		OverheadOwnForces:              10,
		GeneralCostsWithoutSubcontract: 5,
		ProfitOwnForces:                8,
		SubcontractWorksCostGrowth:     7,
		OverheadSubcontract:            6,
		ProfitSubcontract:              5,
	}
}

func TestCalculateWork_StageByStage(t *testing.T) {
	base := 100000.0
	p := testProfile()

	res, err := Calculate(storage.KindWork, base, p, "")
	require.NoError(t, err)

	// Каждая ступень пересчитана вручную по формулам каскада.
	mech := base * 0.02                          // 2000
	mbp := base * 0.01                           // 1000
	work16 := (base + mech) * 1.05               // 107100
	growth := (work16 + mbp) * 1.03              // 111343
	contingency := (work16 + mbp) * 1.02         // 110262
	ooz := (growth + contingency - work16 - mbp) * 1.10
	ofz := ooz * 1.05
	profit := ofz * 1.08
	warranty := base * 0.01 // 1000

	require.Len(t, res.Stages, 9)
	assert.InDelta(t, mech, res.Stages[0].Value, 1e-6)
	assert.InDelta(t, mbp, res.Stages[1].Value, 1e-6)
	assert.InDelta(t, work16, res.Stages[2].Value, 1e-6)
	assert.InDelta(t, growth, res.Stages[3].Value, 1e-6)
	assert.InDelta(t, contingency, res.Stages[4].Value, 1e-6)
	assert.InDelta(t, ooz, res.Stages[5].Value, 1e-6)
	assert.InDelta(t, ofz, res.Stages[6].Value, 1e-6)
	assert.InDelta(t, profit, res.Stages[7].Value, 1e-6)
	assert.InDelta(t, warranty, res.Stages[8].Value, 1e-6)

	assert.InDelta(t, profit+warranty, res.CommercialCost, 1e-6)
	assert.InDelta(t, res.CommercialCost, res.WorksContribution, 1e-6)
	assert.Zero(t, res.MaterialsContribution)

	// Проценты и подсветка доезжают до раскладки.
	assert.Equal(t, 2.0, res.Stages[0].Percent)
	for _, st := range res.Stages {
		assert.Equal(t, HighlightWork, st.Highlight)
	}
}

func TestCalculateSubWork_Chain(t *testing.T) {
	p := testProfile()

	res, err := Calculate(storage.KindSubWork, 50000, p, "")
	require.NoError(t, err)

	growth := 50000 * 1.07
	overhead := growth * 1.06
	profit := overhead * 1.05

	require.Len(t, res.Stages, 3)
	assert.InDelta(t, growth, res.Stages[0].Value, 1e-6)
	assert.InDelta(t, overhead, res.Stages[1].Value, 1e-6)
	assert.InDelta(t, profit, res.Stages[2].Value, 1e-6)

	assert.InDelta(t, profit, res.CommercialCost, 1e-6)
	assert.InDelta(t, profit, res.WorksContribution, 1e-6)
	assert.Zero(t, res.MaterialsContribution)
}

func TestCalculateMaterial_MainKeepsBaseInMaterials(t *testing.T) {
	base := 20000.0
	p := testProfile()

	res, err := Calculate(storage.KindMaterial, base, p, storage.MaterialMain)
	require.NoError(t, err)

	growth := base * 1.04
	contingency := base * 1.02
	ooz := (growth + contingency - base) * 1.10
	profit := ooz * 1.05 * 1.08
	markup := profit - base

	// Основной материал: база остаётся в материалах независимо от профиля.
	assert.InDelta(t, base, res.MaterialsContribution, 1e-6)
	assert.InDelta(t, markup, res.WorksContribution, 1e-6)
	assert.InDelta(t, base+markup, res.CommercialCost, 1e-6)

	for _, st := range res.Stages {
		assert.Equal(t, HighlightMaterial, st.Highlight)
	}
}

func TestCalculateMaterial_AuxiliaryMovesAllToWorks(t *testing.T) {
	p := testProfile()

	res, err := Calculate(storage.KindMaterial, 20000, p, storage.MaterialAuxiliary)
	require.NoError(t, err)

	// Вспомогательный материал целиком уходит в работы.
	assert.Zero(t, res.MaterialsContribution)
	assert.InDelta(t, res.CommercialCost, res.WorksContribution, 1e-6)

	for _, st := range res.Stages {
		assert.Equal(t, HighlightWork, st.Highlight)
	}
}

func TestCalculateSubMaterial_SubcontractChain(t *testing.T) {
	base := 8000.0
	p := testProfile()

	res, err := Calculate(storage.KindSubMaterial, base, p, storage.MaterialMain)
	require.NoError(t, err)

	profit := base * 1.07 * 1.06 * 1.05
	markup := profit - base

	assert.InDelta(t, base, res.MaterialsContribution, 1e-6)
	assert.InDelta(t, markup, res.WorksContribution, 1e-6)
	assert.InDelta(t, profit, res.CommercialCost, 1e-6)

	aux, err := Calculate(storage.KindSubMaterial, base, p, storage.MaterialAuxiliary)
	require.NoError(t, err)
	assert.Zero(t, aux.MaterialsContribution)
	assert.InDelta(t, profit, aux.WorksContribution, 1e-6)
}

func TestCalculate_Pure(t *testing.T) {
	p := testProfile()

	for _, kind := range []storage.ItemKind{storage.KindWork, storage.KindSubWork, storage.KindMaterial, storage.KindSubMaterial} {
		first, err := Calculate(kind, 12345.67, p, storage.MaterialMain)
		require.NoError(t, err)
		second, err := Calculate(kind, 12345.67, p, storage.MaterialMain)
		require.NoError(t, err)

		assert.Equal(t, first, second, "каскад для %s должен быть детерминированным", kind)
	}
}

func TestCalculate_UnknownKind(t *testing.T) {
	_, err := Calculate("equipment", 1000, testProfile(), "")
	assert.ErrorIs(t, err, storage.ErrUnknownKind)
}

func TestMarkupCoefficient_ZeroBase(t *testing.T) {
	_, ok := MarkupCoefficient(5000, 0)
	assert.False(t, ok, "при нулевой базе коэффициент не считается")

	coef, ok := MarkupCoefficient(150, 100)
	assert.True(t, ok)
	assert.InDelta(t, 1.5, coef, 1e-9)
}

func TestDeliverySurcharge(t *testing.T) {
	material := storage.BOQItem{
		Kind:     storage.KindMaterial,
		Quantity: 10,
		UnitRate: 500,
	}

	material.DeliveryPriceType = storage.DeliveryIncluded
	assert.Zero(t, DeliverySurcharge(material))

	// "Не входит" — всегда 3% от расценки, сохранённая сумма игнорируется.
	material.DeliveryPriceType = storage.DeliveryNotIncluded
	material.DeliveryAmount = 999
	assert.InDelta(t, 500*0.03*10, DeliverySurcharge(material), 1e-9)

	material.DeliveryPriceType = storage.DeliveryAmount
	material.DeliveryAmount = 25
	assert.InDelta(t, 250.0, DeliverySurcharge(material), 1e-9)

	work := storage.BOQItem{Kind: storage.KindWork, Quantity: 10, UnitRate: 500, DeliveryAmount: 25}
	assert.Zero(t, DeliverySurcharge(work), "доставка есть только у материалов")
}

func TestAggregatePosition(t *testing.T) {
	p := testProfile()

	items := []storage.BOQItem{
		{ID: 1, Kind: storage.KindWork, Quantity: 10, UnitRate: 1000},
		{ID: 2, Kind: storage.KindMaterial, Quantity: 5, UnitRate: 200, MaterialType: storage.MaterialMain},
	}

	workRes, err := Calculate(storage.KindWork, 10000, p, "")
	require.NoError(t, err)
	matRes, err := Calculate(storage.KindMaterial, 1000, p, storage.MaterialMain)
	require.NoError(t, err)

	totals, err := AggregatePosition(items, p)
	require.NoError(t, err)

	assert.InDelta(t, workRes.WorksContribution+matRes.WorksContribution, totals.WorksCost, 1e-6)
	assert.InDelta(t, matRes.MaterialsContribution, totals.MaterialsCost, 1e-6)
	assert.InDelta(t, totals.WorksCost+totals.MaterialsCost, totals.Total, 1e-6)
}

func TestAggregatePosition_UnknownKind(t *testing.T) {
	_, err := AggregatePosition([]storage.BOQItem{{ID: 1, Kind: "equipment"}}, testProfile())
	assert.True(t, errors.Is(err, storage.ErrUnknownKind))
}
