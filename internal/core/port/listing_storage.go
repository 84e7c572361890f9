package port

import (
	"context"

	"nekretnine-watcher/internal/core/domain"
)

// MatchResult - результат дешевой проверки существования.
type MatchResult int

const (
	MatchNone MatchResult = iota
	// MatchByURL - совпадение по каноническому URL; идентичность по URL
	// постоянна и не зависит от возраста строки.
	MatchByURL
	// MatchBySourceAndRecency - совпадение по (source, external_id), но
	// только если processed_date строки моложе 24 часов. Старое объявление
	// с тем же (source, external_id) - это перевыставленный объект, не дубликат.
	MatchBySourceAndRecency
)

// UpsertOutcome - что фактически произошло на пути записи.
type UpsertOutcome int

const (
	UpsertInserted UpsertOutcome = iota
	// UpsertPriceChanged: существующая строка найдена, цена отличалась,
	// записана история со старой ценой и строка перезаписана.
	UpsertPriceChanged
	// UpsertUnchanged: существующая строка найдена, цена совпала,
	// никакой записи не было (даже processed_date не обновляется).
	UpsertUnchanged
)

// ListingStoragePort - единственная точка контакта с реляционным хранилищем.
// Владеет границами транзакций.
type ListingStoragePort interface {
	// Exists - дешевая проверка для решения о пропуске. Ошибка означает
	// "классификацию отложить", а не "не дубликат".
	Exists(ctx context.Context, url, source, externalID string) (MatchResult, error)

	// Upsert - авторитетный путь записи. Самостоятельно ищет существующую
	// строку по url ИЛИ (source, external_id) без ограничения по свежести.
	// Возвращает domain.ErrDuplicateURL (обернутую), если вставка проиграла
	// гонку уникальному индексу по url.
	Upsert(ctx context.Context, record domain.ListingRecord, owner domain.Owner) (UpsertOutcome, error)
}
