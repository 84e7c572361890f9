package usecase

import (
	"strings"
	"testing"
	"time"

	"nekretnine-watcher/internal/core/domain"
)

func TestFormatNotificationRent(t *testing.T) {
	record := domain.ListingRecord{
		Title:        "Dvosoban stan, Vracar",
		Price:        450,
		SquareMeters: 52,
		Rooms:        "Dvosoban",
		Location:     "Beograd, Vracar",
		PostedDate:   time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		ListingType:  domain.ListingTypeRent,
	}

	text := FormatNotification(record)

	for _, want := range []string{
		"<b>📋 Dvosoban stan, Vracar</b>",
		"💰 450 EUR",
		"📏 Površina: 52 m²",
		"🛏 Struktura: Dvosoban",
		"📍 Lokacija: Beograd, Vracar",
		"⏰ Objavljeno: 30.08.2026.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("notification missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Stanje") || strings.Contains(text, "Sprat") {
		t.Error("rent notification must not carry sale-only fields")
	}
}

func TestFormatNotificationSale(t *testing.T) {
	record := domain.ListingRecord{
		Title:             "Trosoban stan, Novi Sad",
		Price:             120000,
		SquareMeters:      75,
		BuildingCondition: "Novogradnja",
		FloorLevel:        "3/5",
		Location:          "Novi Sad",
		PostedDate:        time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		ListingType:       domain.ListingTypeSale,
	}

	text := FormatNotification(record)

	for _, want := range []string{"🏗 Stanje: Novogradnja", "🏢 Sprat: 3/5"} {
		if !strings.Contains(text, want) {
			t.Errorf("sale notification missing %q:\n%s", want, text)
		}
	}
}

func TestFormatNotificationMissingPrice(t *testing.T) {
	record := domain.ListingRecord{Title: "Garsonjera", ListingType: domain.ListingTypeRent}

	text := FormatNotification(record)
	if !strings.Contains(text, "Cena nije navedena") {
		t.Errorf("zero price must render the sentinel text:\n%s", text)
	}
}

func TestFormatNotificationEscapesHTML(t *testing.T) {
	record := domain.ListingRecord{Title: "Stan <b>hitno</b>", ListingType: domain.ListingTypeRent}

	text := FormatNotification(record)
	if !strings.Contains(text, "Stan &lt;b&gt;hitno&lt;/b&gt;") {
		t.Errorf("title must be escaped for HTML parse mode:\n%s", text)
	}
}
