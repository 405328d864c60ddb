package sorting

import (
	"sort"
	"tender-golang/internal/storage"
)

// Порядок показа и выгрузки позиции: работы по порядковому номеру, сразу
// за каждой — её привязанные материалы, в хвосте — непривязанные
// материалы. Чистая функция, стабильная и идемпотентная; на корректность
// стоимостей порядок не влияет.

// Sort возвращает строки позиции в отображаемом порядке.
func Sort(items []storage.BOQItem, links []storage.WorkMaterialLink) []storage.BOQItem {
	workByMaterial := make(map[int64]int64, len(links))
	for _, l := range links {
		if wid, mid := l.LinkedWorkID(), l.LinkedMaterialID(); wid != 0 && mid != 0 {
			workByMaterial[mid] = wid
		}
	}

	var works []storage.BOQItem
	materialsByWork := make(map[int64][]storage.BOQItem)
	var unlinked []storage.BOQItem

	for _, item := range items {
		switch {
		case item.Kind.IsWork():
			works = append(works, item)
		case item.Kind.IsMaterial():
			if wid, ok := workByMaterial[item.ID]; ok {
				materialsByWork[wid] = append(materialsByWork[wid], item)
			} else {
				unlinked = append(unlinked, item)
			}
		}
	}

	bySubNumber := func(s []storage.BOQItem) {
		sort.SliceStable(s, func(i, j int) bool { return s[i].SubNumber < s[j].SubNumber })
	}

	bySubNumber(works)
	bySubNumber(unlinked)

	ordered := make([]storage.BOQItem, 0, len(items))
	for _, w := range works {
		ordered = append(ordered, w)
		mats := materialsByWork[w.ID]
		bySubNumber(mats)
		ordered = append(ordered, mats...)
	}
	ordered = append(ordered, unlinked...)

	return ordered
}
