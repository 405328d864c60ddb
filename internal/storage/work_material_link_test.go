package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeLinkCoefficients_SumPreservesDerivedQuantity(t *testing.T) {
	src := WorkMaterialLink{MaterialQuantityPerWork: 2, UsageCoefficient: 3}
	tgt := WorkMaterialLink{MaterialQuantityPerWork: 4, UsageCoefficient: 0.5}

	consumption, conversion, err := MergeLinkCoefficients(src, tgt, MergeSum)
	require.NoError(t, err)

	// При разных пересчётных коэффициентах складываются выведенные
	// количества, а не сырые расходы: 2×3 + 4×0.5 = 8.
	assert.Equal(t, 8.0, consumption)
	assert.Equal(t, 1.0, conversion)

	// Количество на любой объём работы сохраняется без потерь.
	work := 10.0
	before := work*src.MaterialQuantityPerWork*src.UsageCoefficient +
		work*tgt.MaterialQuantityPerWork*tgt.UsageCoefficient
	after := work * consumption * conversion
	assert.Equal(t, before, after)
}

func TestMergeLinkCoefficients_SumSameConversion(t *testing.T) {
	src := WorkMaterialLink{MaterialQuantityPerWork: 2, UsageCoefficient: 1}
	tgt := WorkMaterialLink{MaterialQuantityPerWork: 3, UsageCoefficient: 1}

	consumption, conversion, err := MergeLinkCoefficients(src, tgt, MergeSum)
	require.NoError(t, err)
	assert.Equal(t, 5.0, consumption)
	assert.Equal(t, 1.0, conversion)
}

func TestMergeLinkCoefficients_SumZeroMirrorDefaultsToOne(t *testing.T) {
	src := WorkMaterialLink{MaterialQuantityPerWork: 2}
	tgt := WorkMaterialLink{MaterialQuantityPerWork: 3, UsageCoefficient: 2}

	consumption, _, err := MergeLinkCoefficients(src, tgt, MergeSum)
	require.NoError(t, err)
	assert.Equal(t, 2.0*1+3*2, consumption)
}

func TestMergeLinkCoefficients_Replace(t *testing.T) {
	src := WorkMaterialLink{MaterialQuantityPerWork: 7, UsageCoefficient: 2}
	tgt := WorkMaterialLink{MaterialQuantityPerWork: 3, UsageCoefficient: 5}

	consumption, conversion, err := MergeLinkCoefficients(src, tgt, MergeReplace)
	require.NoError(t, err)
	assert.Equal(t, 7.0, consumption)
	assert.Equal(t, 2.0, conversion)
}

func TestMergeLinkCoefficients_UnknownStrategy(t *testing.T) {
	_, _, err := MergeLinkCoefficients(WorkMaterialLink{}, WorkMaterialLink{}, "average")
	assert.ErrorIs(t, err, ErrValidation)
}
