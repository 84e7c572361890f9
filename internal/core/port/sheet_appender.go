package port

import (
	"context"

	"nekretnine-watcher/internal/core/domain"
)

// SheetAppenderPort - зеркало в таблицу. Формат строки зависит от
// listing_type: продажные строки несут состояние здания, этаж и маркер типа.
// Best-effort с собственным ретраем; сбой никогда не блокирует персистентность.
type SheetAppenderPort interface {
	AppendListing(ctx context.Context, record domain.ListingRecord) bool
}
