package usecase

import (
	"context"
	"errors"
	"time"

	"nekretnine-watcher/internal/contextkeys"
	"nekretnine-watcher/internal/core/domain"
	"nekretnine-watcher/internal/core/port"
	"nekretnine-watcher/internal/metrics"
)

// storageTimeout ограничивает каждый поход в базу: зависший коннект
// не должен навсегда занять горутину пула фрагментов.
const storageTimeout = 15 * time.Second

// ClassifyListingUseCase - ядро принятия решений: для каждого свежего
// кандидата определяет, новый он, изменившийся по цене или повторный,
// и выполняет соответствующие побочные эффекты.
//
// Порядок проверок строго от дешевой к дорогой: in-memory множество
// (ноль I/O), проверка существования в базе (один SELECT), и только
// потом путь записи - единственное место, где легально обнаруживается
// настоящее изменение цены.
type ClassifyListingUseCase struct {
	journal  port.LinkJournalPort
	storage  port.ListingStoragePort
	notifier port.NotifierPort
	sheet    port.SheetAppenderPort
	images   port.PageSourcePort
	counters *metrics.Counters
	source   string
}

// NewClassifyListingUseCase создает новый экземпляр use case
func NewClassifyListingUseCase(
	journal port.LinkJournalPort,
	storage port.ListingStoragePort,
	notifier port.NotifierPort,
	sheet port.SheetAppenderPort,
	images port.PageSourcePort,
	counters *metrics.Counters,
	source string,
) *ClassifyListingUseCase {
	return &ClassifyListingUseCase{
		journal:  journal,
		storage:  storage,
		notifier: notifier,
		sheet:    sheet,
		images:   images,
		counters: counters,
		source:   source,
	}
}

// Execute классифицирует одного кандидата и выполняет побочные эффекты.
// Любой не классифицированный сбой трактуется как транзиентный: кандидат
// не помечается viewed и будет повторно обработан следующим циклом.
func (uc *ClassifyListingUseCase) Execute(ctx context.Context, record domain.ListingRecord, owner domain.Owner) domain.Classification {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "ClassifyListing",
		"url":      record.URL,
	})

	uc.counters.ListingsProcessed.WithLabelValues(uc.source).Inc()

	// Шаг 1: in-memory множество. Терминально, без I/O.
	if uc.journal.Contains(record.URL) {
		uc.counters.ListingsSkipped.WithLabelValues(uc.source).Inc()
		logger.Debug("Skipping duplicate (memory)", nil)
		return domain.ClassificationDuplicateMemory
	}

	// Шаг 2: проверка существования в базе. Ошибка НЕ означает "не дубликат":
	// классификация откладывается, чтобы не задваивать нотификации и не
	// терять данные молча.
	existsCtx, cancelExists := context.WithTimeout(ctx, storageTimeout)
	match, err := uc.storage.Exists(existsCtx, record.URL, record.Source, record.ExternalID)
	cancelExists()
	if err != nil {
		uc.counters.DBErrors.WithLabelValues(uc.source).Inc()
		logger.Error("Existence check failed, deferring to next cycle", err, nil)
		return domain.ClassificationSkipped
	}
	if match != port.MatchNone {
		uc.counters.ListingsSkipped.WithLabelValues(uc.source).Inc()
		logger.Debug("Skipping duplicate (database)", port.Fields{"match": int(match)})
		return domain.ClassificationDuplicateDB
	}

	// Шаг 3: путь записи. Между шагом 2 и этим местом конкурент мог успеть
	// вставить ту же строку - upsert сам обнаружит ее и либо отработает
	// изменение цены, либо проиграет гонку уникальному индексу по url.
	upsertCtx, cancelUpsert := context.WithTimeout(ctx, storageTimeout)
	outcome, err := uc.storage.Upsert(upsertCtx, record, owner)
	cancelUpsert()
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateURL) {
			uc.counters.ListingsSkipped.WithLabelValues(uc.source).Inc()
			logger.Warn("Lost insert race, classifying as duplicate", port.Fields{"url": record.URL})
			return domain.ClassificationDuplicateDB
		}
		uc.counters.DBErrors.WithLabelValues(uc.source).Inc()
		logger.Error("Upsert failed, record lost for this cycle", err, nil)
		// Журнал НЕ мутируется: запись обязана быть повторена.
		return domain.ClassificationSkipped
	}

	var classification domain.Classification
	switch outcome {
	case port.UpsertInserted:
		classification = domain.ClassificationNew
	case port.UpsertPriceChanged:
		classification = domain.ClassificationPriceChanged
	case port.UpsertUnchanged:
		// Гонка: конкурент вставил строку с той же ценой после шага 2.
		uc.counters.ListingsSkipped.WithLabelValues(uc.source).Inc()
		logger.Debug("Concurrent insert with equal price, treating as duplicate", nil)
		return domain.ClassificationDuplicateDB
	}

	// Шаг 4: побочные эффекты. Нотификация и таблица - best-effort зеркала,
	// их сбой логируется и никогда не откатывает персистентность.
	uc.notify(ctx, record, logger)

	if ok := uc.sheet.AppendListing(ctx, record); !ok {
		logger.Warn("Sheet append failed", port.Fields{"url": record.URL})
	}

	if err := uc.journal.Add(record.URL, time.Now()); err != nil {
		logger.Error("Failed to persist journal", err, nil)
	}

	uc.counters.NewListings.WithLabelValues(uc.source).Inc()
	logger.Info("Listing saved", port.Fields{"classification": classification.String(), "price": record.Price})
	return classification
}

func (uc *ClassifyListingUseCase) notify(ctx context.Context, record domain.ListingRecord, logger port.LoggerPort) {
	var image []byte
	if record.ImageURL != "" {
		img, err := uc.images.FetchImage(ctx, record.ImageURL)
		if err != nil {
			logger.Debug("Image fetch failed, notifying without photo", port.Fields{"image_url": record.ImageURL})
		} else {
			image = img
		}
	}

	if ok := uc.notifier.Notify(ctx, port.Notification{
		Text:    FormatNotification(record),
		Image:   image,
		LinkURL: record.URL,
	}); !ok {
		logger.Warn("Notification delivery failed", port.Fields{"url": record.URL})
	}
}
