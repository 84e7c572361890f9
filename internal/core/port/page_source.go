package port

import (
	"context"

	"nekretnine-watcher/internal/core/domain"
)

// PageSourcePort - провайдер исходного кода страниц. Скрывает способ
// получения (HTTP, headless-браузер) за контрактом "страница -> фрагменты".
// Любой сбой (таймаут, сеть, разметка) возвращается как *domain.FetchError:
// вызывающий трактует это как "ноль объявлений, страницу бросаем".
type PageSourcePort interface {
	FetchPage(ctx context.Context, pageURL string) ([]domain.Fragment, error)

	// FetchImage скачивает картинку объявления. Best-effort: ошибка
	// означает "нотификация уйдет без фото", не более.
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}
