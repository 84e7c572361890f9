package port

import (
	"time"

	"nekretnine-watcher/internal/core/domain"
)

// FieldExtractorPort превращает фрагмент страницы в нормализованную запись
// и данные владельца. Обязан быть чистым: никакого I/O, время наблюдения
// передается снаружи.
type FieldExtractorPort interface {
	Extract(fragment domain.Fragment, now time.Time) (*domain.ListingRecord, *domain.Owner, error)
}
