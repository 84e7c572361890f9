package domain

import (
	"time"
)

const (
	StatusActive = "active"

	ListingTypeRent = "rent"
	ListingTypeSale = "sale"
)

// ChangeTypePriceChange - единственный тип записи в истории;
// пишется непосредственно перед перезаписью цены объявления.
const ChangeTypePriceChange = "price_change"

// ListingRecord - это нормализованное представление одного объявления,
// к которому сходятся все источники. Создается один раз на одно
// наблюдение скрейпа и дальше не мутируется.
type ListingRecord struct {
	Source        string // стабильный идентификатор сайта, напр. "oglasi.rs"
	ExternalID    string // уникален внутри Source, выводится из пути URL
	URL           string // канонический (без query) абсолютный адрес, глобально уникален
	Title         string
	Description   string
	Location      string
	Price         float64 // 0 - валидный сентинел "цена не распарсилась"
	SquareMeters  int     // 0 - неизвестно
	Rooms         string  // свободный текст, единицы по источникам не нормализуются
	PostedDate    time.Time
	ProcessedDate time.Time
	Status        string // всегда "active" при создании
	ListingType   string // "rent" | "sale"

	// Заполняются только для ListingTypeSale.
	BuildingCondition string
	FloorLevel        string

	ImageURL string
}

// Owner - один рекламодатель на источник; создается лениво при первом
// объявлении, которое на него ссылается, и после создания не обновляется.
type Owner struct {
	Source     string
	ExternalID string
	Name       string
	Phone      string
}

// HistoryEntry - append-only запись аудита. Хранит СТАРУЮ цену,
// зафиксированную перед перезаписью строки объявления.
type HistoryEntry struct {
	ListingID   int64
	Price       float64
	ChangedDate time.Time
	ChangeType  string
}

// Classification - терминальное состояние кандидата после прохождения
// через движок разрешения дубликатов.
type Classification int

const (
	ClassificationNew Classification = iota
	ClassificationPriceChanged
	ClassificationDuplicateMemory
	ClassificationDuplicateDB
	// ClassificationSkipped - транзиентный сбой: запись не помечена viewed,
	// счетчики новых не инкрементируются, повтор на следующем цикле.
	ClassificationSkipped
)

func (c Classification) String() string {
	switch c {
	case ClassificationNew:
		return "new"
	case ClassificationPriceChanged:
		return "price_changed"
	case ClassificationDuplicateMemory:
		return "duplicate_memory"
	case ClassificationDuplicateDB:
		return "duplicate_db"
	case ClassificationSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// IsDuplicate сообщает, нужно ли пропустить все побочные эффекты для кандидата.
func (c Classification) IsDuplicate() bool {
	return c == ClassificationDuplicateMemory || c == ClassificationDuplicateDB
}

// IsNew сообщает, считается ли исход внешне "новым" (нотификация, таблица, журнал).
func (c Classification) IsNew() bool {
	return c == ClassificationNew || c == ClassificationPriceChanged
}
