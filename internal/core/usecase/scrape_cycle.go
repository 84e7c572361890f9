package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"nekretnine-watcher/internal/contextkeys"
	"nekretnine-watcher/internal/core/domain"
	"nekretnine-watcher/internal/core/port"
	"nekretnine-watcher/internal/metrics"

	"github.com/google/uuid"
)

// fragmentWorkers - размер пула на один воркер для обработки фрагментов
// страницы. Оптимизация пропускной способности, не требование корректности:
// классификация спроектирована безопасной под конкурентным исполнением.
const fragmentWorkers = 3

// ScrapeCycleUseCase - жизненный цикл одного воркера-источника:
// страница -> фрагменты -> классификация каждого, пауза, повтор.
type ScrapeCycleUseCase struct {
	pages     port.PageSourcePort
	extractor port.FieldExtractorPort
	classify  *ClassifyListingUseCase
	journal   port.LinkJournalPort
	counters  *metrics.Counters

	source   string
	pageURL  func(page int) string
	maxPages int
	waitTime time.Duration
}

// NewScrapeCycleUseCase создает новый экземпляр use case
func NewScrapeCycleUseCase(
	pages port.PageSourcePort,
	extractor port.FieldExtractorPort,
	classify *ClassifyListingUseCase,
	journal port.LinkJournalPort,
	counters *metrics.Counters,
	source string,
	pageURL func(page int) string,
	maxPages int,
	waitTime time.Duration,
) *ScrapeCycleUseCase {
	return &ScrapeCycleUseCase{
		pages:     pages,
		extractor: extractor,
		classify:  classify,
		journal:   journal,
		counters:  counters,
		source:    source,
		pageURL:   pageURL,
		maxPages:  maxPages,
		waitTime:  waitTime,
	}
}

// Run крутит циклы сканирования до отмены контекста. Сигнал остановки
// проверяется между циклами и между страницами; обработка объявлений,
// уже находящихся в полете, довершается - частичный откат цикла не делается.
func (uc *ScrapeCycleUseCase) Run(ctx context.Context) error {
	baseLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "ScrapeCycle",
		"source":   uc.source,
	})

	// Журнал загружается один раз на ран; битый файл не фатален -
	// до следующей мутации дедуп работает только через базу.
	if err := uc.journal.Load(time.Now()); err != nil {
		baseLogger.Warn("Journal load failed, starting with empty seen set", port.Fields{"error": err.Error()})
	}

	for {
		cycleLogger := baseLogger.WithFields(port.Fields{"cycle_id": uuid.New().String()})
		cycleCtx := contextkeys.ContextWithLogger(ctx, cycleLogger)

		newCount := uc.runCycle(cycleCtx)
		cycleLogger.Info("Cycle complete", port.Fields{"new_listings": newCount, "wait": uc.waitTime.String()})

		select {
		case <-ctx.Done():
			baseLogger.Info("Worker stopping", nil)
			return ctx.Err()
		case <-time.After(uc.waitTime):
		}
	}
}

// runCycle обходит страницы 1..maxPages и возвращает число новых объявлений.
func (uc *ScrapeCycleUseCase) runCycle(ctx context.Context) int {
	logger := contextkeys.LoggerFromContext(ctx)
	totalNew := 0

	for page := 1; page <= uc.maxPages; page++ {
		select {
		case <-ctx.Done():
			return totalNew
		default:
		}

		pageURL := uc.pageURL(page)
		pageLogger := logger.WithFields(port.Fields{"page": page, "page_url": pageURL})
		pageLogger.Debug("Fetching page", nil)

		fragments, err := uc.pages.FetchPage(ctx, pageURL)
		if err != nil {
			// Сбой страницы: ноль объявлений, страницу бросаем,
			// остаток цикла не трогаем.
			uc.counters.ScrapeErrors.WithLabelValues(uc.source).Inc()
			pageLogger.Error("Page fetch failed, aborting page", err, nil)
			break
		}
		if len(fragments) == 0 {
			pageLogger.Debug("No listings on page, stopping pagination", nil)
			break
		}

		totalNew += uc.processFragments(ctx, fragments)
		pageLogger.Info("Page processed", port.Fields{"fragments": len(fragments)})
	}

	return totalNew
}

// processFragments прогоняет фрагменты через классификацию пулом из
// fragmentWorkers горутин.
func (uc *ScrapeCycleUseCase) processFragments(ctx context.Context, fragments []domain.Fragment) int {
	logger := contextkeys.LoggerFromContext(ctx)

	var wg sync.WaitGroup
	sem := make(chan struct{}, fragmentWorkers)

	var mu sync.Mutex
	newCount := 0

	for _, fragment := range fragments {
		wg.Add(1)
		sem <- struct{}{}

		go func(f domain.Fragment) {
			defer wg.Done()
			defer func() { <-sem }()

			record, owner, err := uc.extractor.Extract(f, time.Now())
			if err != nil {
				// Один нераспарсенный фрагмент страницу не прерывает.
				var extractionErr *domain.ExtractionError
				if errors.As(err, &extractionErr) {
					uc.counters.ScrapeErrors.WithLabelValues(uc.source).Inc()
					logger.Warn("Fragment extraction failed, skipping", port.Fields{"error": err.Error()})
					return
				}
				uc.counters.ScrapeErrors.WithLabelValues(uc.source).Inc()
				logger.Error("Unexpected extraction failure, skipping fragment", err, nil)
				return
			}

			classification := uc.classify.Execute(ctx, *record, *owner)
			if classification.IsNew() {
				mu.Lock()
				newCount++
				mu.Unlock()
			}
		}(fragment)
	}

	wg.Wait()
	return newCount
}
