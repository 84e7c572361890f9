package usecase

import (
	"fmt"
	"html"
	"strings"

	"nekretnine-watcher/internal/core/domain"
)

// FormatNotification собирает HTML-текст уведомления о новом объявлении.
func FormatNotification(record domain.ListingRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>📋 %s</b>\n\n", html.EscapeString(record.Title))

	if record.Price > 0 {
		fmt.Fprintf(&b, "💰 %.0f EUR\n", record.Price)
	} else {
		b.WriteString("💰 Cena nije navedena\n")
	}

	if record.SquareMeters > 0 {
		fmt.Fprintf(&b, "📏 Površina: %d m²\n", record.SquareMeters)
	}
	if record.Rooms != "" {
		fmt.Fprintf(&b, "🛏 Struktura: %s\n", html.EscapeString(record.Rooms))
	}
	if record.ListingType == domain.ListingTypeSale {
		if record.BuildingCondition != "" {
			fmt.Fprintf(&b, "🏗 Stanje: %s\n", html.EscapeString(record.BuildingCondition))
		}
		if record.FloorLevel != "" {
			fmt.Fprintf(&b, "🏢 Sprat: %s\n", html.EscapeString(record.FloorLevel))
		}
	}

	fmt.Fprintf(&b, "\n📍 Lokacija: %s\n", html.EscapeString(record.Location))
	fmt.Fprintf(&b, "⏰ Objavljeno: %s", record.PostedDate.Format("02.01.2006."))

	return b.String()
}
