package sorting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tender-golang/internal/storage"
)

func iptr(v int64) *int64 { return &v }

func fixture() ([]storage.BOQItem, []storage.WorkMaterialLink) {
	items := []storage.BOQItem{
		{ID: 5, Kind: storage.KindMaterial, SubNumber: 5},    // не привязан
		{ID: 2, Kind: storage.KindSubWork, SubNumber: 2},     // вторая работа
		{ID: 4, Kind: storage.KindMaterial, SubNumber: 4},    // к работе 1
		{ID: 1, Kind: storage.KindWork, SubNumber: 1},        // первая работа
		{ID: 3, Kind: storage.KindSubMaterial, SubNumber: 3}, // к работе 2
		{ID: 6, Kind: storage.KindMaterial, SubNumber: 2},    // к работе 1, раньше 4-го
	}
	links := []storage.WorkMaterialLink{
		{ID: 10, WorkID: iptr(1), MaterialID: iptr(4)},
		{ID: 11, SubWorkID: iptr(2), SubMaterialID: iptr(3)},
		{ID: 12, WorkID: iptr(1), MaterialID: iptr(6)},
	}
	return items, links
}

func ids(items []storage.BOQItem) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestSort_WorksThenTheirMaterials(t *testing.T) {
	items, links := fixture()

	ordered := Sort(items, links)

	// Работа 1, её материалы по порядковому номеру, работа 2, её материал,
	// в хвосте непривязанный.
	assert.Equal(t, []int64{1, 6, 4, 2, 3, 5}, ids(ordered))
}

func TestSort_Idempotent(t *testing.T) {
	items, links := fixture()

	once := Sort(items, links)
	twice := Sort(once, links)

	assert.Equal(t, once, twice)
}

func TestSort_LinkedMaterialFollowsItsWork(t *testing.T) {
	items, links := fixture()

	ordered := Sort(items, links)

	workByMaterial := map[int64]int64{4: 1, 6: 1, 3: 2}
	position := make(map[int64]int)
	for i, it := range ordered {
		position[it.ID] = i
	}

	// Каждый привязанный материал стоит после своей работы и до
	// следующей работы.
	for mat, work := range workByMaterial {
		require.Greater(t, position[mat], position[work])
		for _, it := range ordered[position[work]+1 : position[mat]] {
			assert.False(t, it.Kind.IsWork(), "между работой %d и её материалом %d не должно быть других работ", work, mat)
		}
	}
}

func TestSort_OnlyMaterials(t *testing.T) {
	items := []storage.BOQItem{
		{ID: 2, Kind: storage.KindMaterial, SubNumber: 2},
		{ID: 1, Kind: storage.KindMaterial, SubNumber: 1},
	}

	ordered := Sort(items, nil)
	assert.Equal(t, []int64{1, 2}, ids(ordered))
}

func TestSort_Empty(t *testing.T) {
	assert.Empty(t, Sort(nil, nil))
}
