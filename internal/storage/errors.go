package storage

import "errors"

var (
	ErrNotFound = errors.New("запись не найдена")

	// ErrValidation — редактирование отклонено до применения: не заполнен
	// обязательный коэффициент, неизвестная категория/единица, кривое число.
	ErrValidation = errors.New("ошибка валидации")

	// ErrQuantityOverflow — вычисленное количество не помещается в колонку
	// DECIMAL(12,4). Редактирование отклоняется, старое значение остаётся.
	ErrQuantityOverflow = errors.New("количество превышает предел точности хранения")

	// ErrLinkExists — попытка завести вторую активную связку для материала
	// минуя удаление старой.
	ErrLinkExists = errors.New("у материала уже есть активная связка")

	ErrUnknownKind = errors.New("неизвестный вид строки")
)
