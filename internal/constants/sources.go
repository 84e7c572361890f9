package constants

import (
	"fmt"

	"nekretnine-watcher/internal/core/domain"
)

// SelectorSet - CSS-селекторы полей внутри одной карточки объявления.
// Пустой селектор означает "у этого источника поля нет".
type SelectorSet struct {
	Listing           string // карточка объявления на странице выдачи
	TitleLink         string // анкор с заголовком и href
	Price             string
	Details           string // элементы с площадью/структурой
	Description       string
	Location          string
	PostedDate        string
	Image             string
	OwnerName         string
	BuildingCondition string // только sale-источники
	FloorLevel        string // только sale-источники
}

// SourceConfig полностью описывает один сайт-источник. Вместо иерархии
// скрейперов - один общий пайплайн, управляемый этой структурой.
type SourceConfig struct {
	Name        string // стабильный идентификатор, он же колонка source
	Domain      string
	ListingType string
	// PageURL строит адрес страницы выдачи; нумерация с 1.
	PageURL func(page int) string
	// ExternalIDSegment - какой сегмент пути URL (с конца, начиная с 1)
	// служит external_id.
	ExternalIDSegment int
	Selectors         SelectorSet
}

// Sources возвращает предопределенный набор источников-воркеров.
func Sources() []SourceConfig {
	return []SourceConfig{
		{
			Name:        "oglasi.rs",
			Domain:      "www.oglasi.rs",
			ListingType: domain.ListingTypeRent,
			PageURL: func(page int) string {
				if page == 1 {
					return "https://www.oglasi.rs/nekretnine/izdavanje-stanova/novi-sad?s=d&rt=vlasnik"
				}
				return fmt.Sprintf("https://www.oglasi.rs/nekretnine/izdavanje-stanova/novi-sad?s=d&rt=vlasnik&p=%d", page)
			},
			ExternalIDSegment: 2,
			Selectors: SelectorSet{
				Listing:     ".fpogl-holder, .single-item",
				TitleLink:   ".fpogl-list-title",
				Price:       "span.text-price strong",
				Details:     ".row .col-sm-6 strong",
				Description: `p[itemprop="description"]`,
				Location:    `a[itemprop="category"]`,
				PostedDate:  ".visible-sm.time, .date-published",
				Image:       `img[itemprop="image"], img.img-responsive`,
				OwnerName:   "cite",
			},
		},
		{
			Name:        "oglasi.rs-prodaja",
			Domain:      "www.oglasi.rs",
			ListingType: domain.ListingTypeSale,
			PageURL: func(page int) string {
				if page == 1 {
					return "https://www.oglasi.rs/nekretnine/prodaja-stanova/novi-sad?s=d&rt=vlasnik"
				}
				return fmt.Sprintf("https://www.oglasi.rs/nekretnine/prodaja-stanova/novi-sad?s=d&rt=vlasnik&p=%d", page)
			},
			ExternalIDSegment: 2,
			Selectors: SelectorSet{
				Listing:           ".fpogl-holder, .single-item",
				TitleLink:         ".fpogl-list-title",
				Price:             "span.text-price strong",
				Details:           ".row .col-sm-6 strong",
				Description:       `p[itemprop="description"]`,
				Location:          `a[itemprop="category"]`,
				PostedDate:        ".visible-sm.time, .date-published",
				Image:             `img[itemprop="image"], img.img-responsive`,
				OwnerName:         "cite",
				BuildingCondition: "div.col-sm-6:nth-of-type(3) strong",
				FloorLevel:        "div.col-sm-6:nth-of-type(4) strong",
			},
		},
		{
			Name:        "halooglasi.com",
			Domain:      "www.halooglasi.com",
			ListingType: domain.ListingTypeRent,
			PageURL: func(page int) string {
				if page == 1 {
					return "https://www.halooglasi.com/nekretnine/izdavanje-stanova/novi-sad?oglasivac_nekretnine_id_l=387237"
				}
				return fmt.Sprintf("https://www.halooglasi.com/nekretnine/izdavanje-stanova/novi-sad?oglasivac_nekretnine_id_l=387237&page=%d", page)
			},
			ExternalIDSegment: 1,
			Selectors: SelectorSet{
				Listing:    ".product-item",
				TitleLink:  "h3.product-title a",
				Price:      ".central-feature span",
				Details:    "ul.product-features li .value-wrapper",
				Location:   "ul.subtitle-places li",
				PostedDate: ".publish-date",
				Image:      "figure.pi-img-wrapper img",
			},
		},
		{
			Name:        "4zida.rs",
			Domain:      "4zida.rs",
			ListingType: domain.ListingTypeRent,
			PageURL: func(page int) string {
				if page == 1 {
					return "https://4zida.rs/izdavanje-stanova/gradske-lokacije-novi-sad/vlasnik?sortiranje=najnoviji"
				}
				return fmt.Sprintf("https://4zida.rs/izdavanje-stanova/gradske-lokacije-novi-sad/vlasnik?sortiranje=najnoviji&strana=%d", page)
			},
			ExternalIDSegment: 1,
			Selectors: SelectorSet{
				Listing:    "app-premium-ad-card, app-standard-ad-card",
				TitleLink:  "a[test-data='ad-card']",
				Price:      ".text-price, p.font-semibold",
				Details:    ".flex-wrap span",
				Location:   ".text-gray-600, .ad-location",
				PostedDate: ".ad-date",
				Image:      "img",
			},
		},
		{
			Name:        "nekretnine.rs",
			Domain:      "www.nekretnine.rs",
			ListingType: domain.ListingTypeRent,
			PageURL: func(page int) string {
				if page == 1 {
					return "https://www.nekretnine.rs/stambeni-objekti/stanovi/izdavanje-prodaja/izdavanje/grad/novi-sad/vlasnik/lista/po-stranici/10/?order=2"
				}
				return fmt.Sprintf("https://www.nekretnine.rs/stambeni-objekti/stanovi/izdavanje-prodaja/izdavanje/grad/novi-sad/vlasnik/lista/po-stranici/10/stranica/%d/?order=2", page)
			},
			ExternalIDSegment: 1,
			Selectors: SelectorSet{
				Listing:    ".row.offer",
				TitleLink:  ".offer-title a",
				Price:      ".offer-price span",
				Details:    ".offer-price--invert span, .offer-meta-info",
				Location:   ".offer-location",
				PostedDate: ".offer-meta-info",
				Image:      ".img-fluid",
			},
		},
		{
			Name:        "sasomange.rs",
			Domain:      "sasomange.rs",
			ListingType: domain.ListingTypeRent,
			PageURL: func(page int) string {
				if page == 1 {
					return "https://sasomange.rs/c/stanovi-iznajmljivanje/f/novi-sad?productsFacets.facets=flat_advertiser_to_rent:Vlasnik"
				}
				return fmt.Sprintf("https://sasomange.rs/c/stanovi-iznajmljivanje/f/novi-sad/stranica/%d?productsFacets.facets=flat_advertiser_to_rent:Vlasnik", page)
			},
			ExternalIDSegment: 1,
			Selectors: SelectorSet{
				Listing:    ".product-single-item",
				TitleLink:  "a.product-link",
				Price:      ".product-price",
				Details:    ".highlighted-attributes li",
				Location:   ".product-location",
				PostedDate: ".product-date",
				Image:      "picture img",
			},
		},
	}
}
