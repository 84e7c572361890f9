package pagesource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"nekretnine-watcher/internal/core/domain"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
)

const (
	requestTimeout = 30 * time.Second
	imageTimeout   = 15 * time.Second

	// maxImageBytes ограничивает скачиваемую картинку объявления.
	maxImageBytes = 5 << 20
)

// Adapter реализует PageSourcePort поверх colly. Один адаптер на источник:
// родительский коллектор несет ограничения домена и rate limit, на каждый
// запрос используется клон.
type Adapter struct {
	collector       *colly.Collector
	listingSelector string
	httpClient      *http.Client
}

// NewAdapter создает провайдер страниц для одного сайта.
func NewAdapter(siteDomain, listingSelector string) (*Adapter, error) {
	if siteDomain == "" || listingSelector == "" {
		return nil, fmt.Errorf("site domain and listing selector are required")
	}

	c := colly.NewCollector(colly.AllowedDomains(siteDomain), colly.AllowURLRevisit())
	c.SetRequestTimeout(requestTimeout)

	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  siteDomain,
		Parallelism: 1,
		RandomDelay: 3 * time.Second,
	}); err != nil {
		return nil, fmt.Errorf("failed to set limit rule: %w", err)
	}

	// На каждый запрос подставляется User-Agent реального браузера и Referer.
	extensions.RandomUserAgent(c)
	extensions.Referer(c)

	return &Adapter{
		collector:       c,
		listingSelector: listingSelector,
		httpClient:      &http.Client{Timeout: imageTimeout},
	}, nil
}

// FetchPage скачивает страницу выдачи и возвращает фрагменты карточек.
// Любой сбой (сеть, статус, таймаут) возвращается как *domain.FetchError.
func (a *Adapter) FetchPage(ctx context.Context, pageURL string) ([]domain.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.FetchError{PageURL: pageURL, Err: err}
	}

	collector := a.collector.Clone()

	var fragments []domain.Fragment
	var responseErr error

	collector.OnHTML(a.listingSelector, func(e *colly.HTMLElement) {
		fragments = append(fragments, domain.Fragment{Selection: e.DOM})
	})

	collector.OnError(func(r *colly.Response, err error) {
		responseErr = fmt.Errorf("request to %s failed with status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	if err := collector.Visit(pageURL); err != nil {
		return nil, &domain.FetchError{PageURL: pageURL, Err: err}
	}
	collector.Wait()

	if responseErr != nil {
		return nil, &domain.FetchError{PageURL: pageURL, Err: responseErr}
	}
	return fragments, nil
}

// FetchImage скачивает картинку объявления. Best-effort.
func (a *Adapter) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image request returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	return data, nil
}
