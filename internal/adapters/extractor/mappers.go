package extractor

import (
	"strconv"
	"strings"
	"time"
)

// ParsePrice превращает сырой текст цены ("1.200,00 EUR", "€ 450") в число.
// Нераспарсиваемая цена - это валидный сентинел 0, не ошибка: часть
// объявлений публикуется с "Cena nije navedena".
func ParsePrice(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}

	// Длинные маркеры первыми: "/mes" раньше "/mesečno" оставил бы хвост "ečno".
	cleaned := raw
	for _, marker := range []string{"EUR", "€", "RSD", "din", "/mesečno", "mesečno", "/mes"} {
		cleaned = strings.ReplaceAll(cleaned, marker, "")
	}
	// Сербский формат: точка - разделитель тысяч, запятая - десятичный.
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	cleaned = strings.TrimSpace(strings.ReplaceAll(cleaned, " ", ""))
	cleaned = strings.Join(strings.Fields(cleaned), "")

	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || price < 0 {
		return 0
	}
	return price
}

// ParseSquareMeters вытаскивает целую площадь из текста вида "45 m2" / "45m²".
// 0 означает "неизвестно".
func ParseSquareMeters(raw string) int {
	cleaned := strings.ReplaceAll(raw, "m2", "")
	cleaned = strings.ReplaceAll(cleaned, "m²", "")
	cleaned = strings.TrimSpace(cleaned)

	// Берем только целую часть ("45,5" -> "45").
	if i := strings.IndexAny(cleaned, ",."); i >= 0 {
		cleaned = cleaned[:i]
	}

	sqm, err := strconv.Atoi(cleaned)
	if err != nil || sqm < 0 {
		return 0
	}
	return sqm
}

// IsRoomsDescriptor сообщает, похож ли текст детали на структуру квартиры.
func IsRoomsDescriptor(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.Contains(lower, "soban") || strings.Contains(lower, "garsonjera")
}

// ParsePostedDate парсит дату публикации формата "dd.mm.yyyy." (первые три
// сегмента, разделенные точками). Нераспарсиваемая дата откатывается ко
// времени наблюдения - этим воркер гарантирует непустой posted_date.
func ParsePostedDate(raw string, fallback time.Time) time.Time {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) < 3 {
		return fallback
	}

	dateStr := strings.TrimSpace(parts[0]) + "." + strings.TrimSpace(parts[1]) + "." + strings.TrimSpace(parts[2])
	parsed, err := time.Parse("2.1.2006", dateStr)
	if err != nil {
		return fallback
	}
	return parsed
}

// ExternalIDFromURL выводит external_id из канонического URL: сегмент пути
// с конца (1 - последний). Пустые сегменты (хвостовой слэш) пропускаются.
func ExternalIDFromURL(canonicalURL string, segmentFromEnd int) string {
	if segmentFromEnd < 1 {
		segmentFromEnd = 1
	}

	parts := strings.Split(canonicalURL, "/")
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}

	if len(nonEmpty) < segmentFromEnd {
		return "unknown"
	}
	return nonEmpty[len(nonEmpty)-segmentFromEnd]
}
