package domain

import "github.com/PuerkitoBio/goquery"

// Fragment - непрозрачный кусок страницы с одним объявлением,
// как его вернул провайдер страниц. Экстрактор полей превращает
// его в ListingRecord без какого-либо I/O.
type Fragment struct {
	Selection *goquery.Selection
}
