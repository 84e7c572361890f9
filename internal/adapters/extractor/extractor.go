package extractor

import (
	"fmt"
	"strings"
	"time"

	"nekretnine-watcher/internal/constants"
	"nekretnine-watcher/internal/core/domain"

	"github.com/PuerkitoBio/goquery"
)

// Extractor - единственная реализация FieldExtractorPort: один общий
// пайплайн извлечения, управляемый SourceConfig, вместо иерархии
// скрейперов по сайтам. Чистый, без I/O.
type Extractor struct {
	cfg constants.SourceConfig
}

// NewExtractor создает экстрактор для одного источника.
func NewExtractor(cfg constants.SourceConfig) (*Extractor, error) {
	if cfg.Name == "" || cfg.Selectors.TitleLink == "" {
		return nil, fmt.Errorf("source config must carry a name and a title link selector")
	}
	return &Extractor{cfg: cfg}, nil
}

// Extract превращает фрагмент карточки в нормализованную запись и владельца.
func (e *Extractor) Extract(fragment domain.Fragment, now time.Time) (*domain.ListingRecord, *domain.Owner, error) {
	sel := fragment.Selection
	if sel == nil {
		return nil, nil, &domain.ExtractionError{Source: e.cfg.Name, Err: fmt.Errorf("fragment carries no selection")}
	}

	link, err := e.extractLink(sel)
	if err != nil {
		return nil, nil, &domain.ExtractionError{Source: e.cfg.Name, Err: err}
	}

	canonical := domain.CanonicalURL(link)
	externalID := ExternalIDFromURL(canonical, e.cfg.ExternalIDSegment)

	title := strings.TrimSpace(sel.Find(e.cfg.Selectors.TitleLink).First().Text())
	if title == "" {
		return nil, nil, &domain.ExtractionError{Source: e.cfg.Name, Err: fmt.Errorf("listing has no title")}
	}

	record := &domain.ListingRecord{
		Source:        e.cfg.Name,
		ExternalID:    externalID,
		URL:           canonical,
		Title:         title,
		Price:         ParsePrice(sel.Find(e.cfg.Selectors.Price).First().Text()),
		Description:   e.textOrEmpty(sel, e.cfg.Selectors.Description),
		Location:      e.extractLocation(sel),
		PostedDate:    ParsePostedDate(e.textOrEmpty(sel, e.cfg.Selectors.PostedDate), now),
		ProcessedDate: now,
		Status:        domain.StatusActive,
		ListingType:   e.cfg.ListingType,
		ImageURL:      e.extractImageURL(sel),
	}

	e.fillDetails(sel, record)

	if e.cfg.ListingType == domain.ListingTypeSale {
		record.BuildingCondition = e.textOrEmpty(sel, e.cfg.Selectors.BuildingCondition)
		record.FloorLevel = e.textOrEmpty(sel, e.cfg.Selectors.FloorLevel)
	}

	ownerName := e.textOrEmpty(sel, e.cfg.Selectors.OwnerName)
	if ownerName == "" {
		ownerName = "Unknown"
	}
	owner := &domain.Owner{
		Source:     e.cfg.Name,
		ExternalID: externalID,
		Name:       ownerName,
		Phone:      "",
	}

	return record, owner, nil
}

func (e *Extractor) extractLink(sel *goquery.Selection) (string, error) {
	node := sel.Find(e.cfg.Selectors.TitleLink).First()

	href, ok := node.Attr("href")
	if !ok {
		// Часть разметок вешает href не на сам узел заголовка, а на анкор внутри.
		href, ok = node.Find("a").First().Attr("href")
	}
	if !ok || strings.TrimSpace(href) == "" {
		return "", fmt.Errorf("listing has no link")
	}

	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "/") {
		href = "https://" + e.cfg.Domain + href
	}
	return href, nil
}

// fillDetails обходит элементы деталей: "45 m2" дает площадь,
// "dvosoban"/"garsonjera" - структуру.
func (e *Extractor) fillDetails(sel *goquery.Selection, record *domain.ListingRecord) {
	if e.cfg.Selectors.Details == "" {
		return
	}
	sel.Find(e.cfg.Selectors.Details).Each(func(_ int, d *goquery.Selection) {
		text := strings.TrimSpace(d.Text())
		if text == "" {
			return
		}
		if strings.Contains(text, "m2") || strings.Contains(text, "m²") {
			if sqm := ParseSquareMeters(text); sqm > 0 {
				record.SquareMeters = sqm
			}
		}
		if IsRoomsDescriptor(text) {
			record.Rooms = text
		}
	})
}

func (e *Extractor) extractLocation(sel *goquery.Selection) string {
	if e.cfg.Selectors.Location == "" {
		return ""
	}

	nodes := sel.Find(e.cfg.Selectors.Location)
	// oglasi.rs кладет локацию в хлебные крошки; осмысленный уровень - четвертый.
	if nodes.Length() >= 4 && strings.Contains(e.cfg.Selectors.Location, "category") {
		return strings.TrimSpace(nodes.Eq(3).Text())
	}
	return strings.TrimSpace(nodes.First().Text())
}

func (e *Extractor) extractImageURL(sel *goquery.Selection) string {
	if e.cfg.Selectors.Image == "" {
		return ""
	}

	src, ok := sel.Find(e.cfg.Selectors.Image).First().Attr("src")
	if !ok || strings.Contains(src, "no-image") {
		return ""
	}
	return strings.TrimSpace(src)
}

func (e *Extractor) textOrEmpty(sel *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(sel.Find(selector).First().Text())
}
