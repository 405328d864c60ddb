package constants

// Справочники для валидации правок. Категория или единица измерения вне
// справочника — ошибка валидации, правка не применяется.

var Units = map[string]bool{
	"м":      true,
	"м2":     true,
	"м3":     true,
	"шт":     true,
	"кг":     true,
	"т":      true,
	"л":      true,
	"км":     true,
	"п.м":    true,
	"комп":   true,
	"услуга": true,
}

var ItemCategories = map[string]bool{
	"Общестроительные работы": true,
	"Монтажные работы":        true,
	"Демонтажные работы":      true,
	"Отделочные работы":       true,
	"Электромонтажные работы": true,
	"Сантехнические работы":   true,
	"Бетон и ЖБИ":             true,
	"Металлопрокат":           true,
	"Инертные материалы":      true,
	"Отделочные материалы":    true,
	"Крепёж и метизы":         true,
	"Прочие материалы":        true,
}

func ValidUnit(unit string) bool {
	return Units[unit]
}

func ValidCategory(category string) bool {
	// Пустая категория допустима, проверяется только заполненная.
	return category == "" || ItemCategories[category]
}
