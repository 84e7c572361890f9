package internal

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"nekretnine-watcher/internal/adapters/extractor"
	journal_adapter "nekretnine-watcher/internal/adapters/journal"
	logger_adapter "nekretnine-watcher/internal/adapters/logger"
	"nekretnine-watcher/internal/adapters/pagesource"
	postgres_adapter "nekretnine-watcher/internal/adapters/postgres"
	"nekretnine-watcher/internal/adapters/sheets"
	"nekretnine-watcher/internal/adapters/telegram"
	"nekretnine-watcher/internal/configs"
	"nekretnine-watcher/internal/constants"
	"nekretnine-watcher/internal/contextkeys"
	"nekretnine-watcher/internal/core/domain"
	"nekretnine-watcher/internal/core/port"
	"nekretnine-watcher/internal/core/usecase"
	"nekretnine-watcher/internal/metrics"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// App – структура приложения
type App struct {
	config       *configs.AppConfig
	dbPool       *pgxpool.Pool
	fluentClient *fluent.Fluent
	logger       port.LoggerPort

	// По одному воркеру на источник.
	workers []*usecase.ScrapeCycleUseCase
}

// NewApp создает новый экземпляр приложения.
// Это "Composition Root", где все зависимости создаются и связываются.
func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	// --- 1. ИНИЦИАЛИЗАЦИЯ ЛОГГЕРОВ ---
	var activeLoggers []port.LoggerPort

	stdoutLogger := logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{
		Level:    parseLogLevel(appConfig.StdoutLogger.Level),
		IsJSON:   false,
		UseColor: true,
	})
	activeLoggers = append(activeLoggers, stdoutLogger)

	var fluentClient *fluent.Fluent
	if appConfig.FluentBit.Enabled {
		fluentClient, err = logger_adapter.NewFluentClient(logger_adapter.FluentConfig{
			Host:      appConfig.FluentBit.Host,
			Port:      appConfig.FluentBit.Port,
			TagPrefix: appConfig.AppName,
		})
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit client", err, nil)
			return nil, fmt.Errorf("failed to create fluentbit client: %w", err)
		}

		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, parseLogLevel(appConfig.FluentBit.Level))
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit adapter", err, nil)
			fluentClient.Close()
			return nil, err
		}
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	multiLogger, err := logger_adapter.NewMultiloggerAdapter(activeLoggers...)
	if err != nil {
		return nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}

	baseLogger := multiLogger.WithFields(port.Fields{"service_name": appConfig.AppName})
	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})
	appLogger.Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": appConfig.FluentBit.Enabled,
	})

	// --- 2. НИЗКОУРОВНЕВЫЕ ЗАВИСИМОСТИ ---
	dbPool, err := postgres_adapter.NewClient(context.Background(), postgres_adapter.Config{DatabaseURL: appConfig.Database.URL})
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", err, nil)
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	appLogger.Info("Successfully connected to PostgreSQL pool!", nil)

	storageAdapter, err := postgres_adapter.NewListingStorageAdapter(dbPool)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to create storage adapter: %w", err)
	}

	// Явно сконструированный контекст наблюдаемости: один набор счетчиков
	// на процесс, передается каждому воркеру.
	counters := metrics.NewCounters(prometheus.NewRegistry())

	// --- 3. ВОРКЕРЫ: ПО ОДНОМУ НА ИСТОЧНИК ---
	// Нотификатор один на chat id: его rate limiter должен покрывать все
	// воркеры, пишущие в этот чат, а не каждого по отдельности.
	notifiers := make(map[string]*telegram.Notifier)
	var workers []*usecase.ScrapeCycleUseCase
	for _, source := range constants.Sources() {
		chatID := appConfig.Telegram.ChatID
		if source.ListingType == domain.ListingTypeSale {
			chatID = appConfig.Telegram.SaleChatID
		}
		notifier, ok := notifiers[chatID]
		if !ok {
			notifier, err = telegram.NewNotifier(appConfig.Telegram.BotToken, chatID)
			if err != nil {
				appLogger.Error("Failed to create telegram notifier", err, port.Fields{"source": source.Name})
				dbPool.Close()
				return nil, fmt.Errorf("failed to create telegram notifier: %w", err)
			}
			notifiers[chatID] = notifier
		}

		worker, err := buildWorker(appConfig, source, storageAdapter, notifier, counters)
		if err != nil {
			appLogger.Error("Failed to build worker", err, port.Fields{"source": source.Name})
			dbPool.Close()
			return nil, fmt.Errorf("failed to build worker for %s: %w", source.Name, err)
		}
		workers = append(workers, worker)
	}
	appLogger.Info("All workers initialized.", port.Fields{"workers": len(workers)})

	return &App{
		config:       appConfig,
		dbPool:       dbPool,
		fluentClient: fluentClient,
		logger:       appLogger,
		workers:      workers,
	}, nil
}

// buildWorker собирает цепочку адаптеров и use case'ов одного источника.
func buildWorker(
	appConfig *configs.AppConfig,
	source constants.SourceConfig,
	storage port.ListingStoragePort,
	notifier port.NotifierPort,
	counters *metrics.Counters,
) (*usecase.ScrapeCycleUseCase, error) {
	pages, err := pagesource.NewAdapter(source.Domain, source.Selectors.Listing)
	if err != nil {
		return nil, err
	}

	fieldExtractor, err := extractor.NewExtractor(source)
	if err != nil {
		return nil, err
	}

	journalFile := filepath.Join(appConfig.Scraper.JournalDir, journalFileName(source.Name))
	linkJournal, err := journal_adapter.NewFileJournal(journalFile)
	if err != nil {
		return nil, err
	}

	var sheetAppender port.SheetAppenderPort = sheets.NoopAppender{}
	if appConfig.Sheets.Enabled {
		sheetAppender, err = sheets.NewAppender(context.Background(), appConfig.Sheets.CredentialsPath, appConfig.Sheets.SpreadsheetID)
		if err != nil {
			return nil, err
		}
	}

	classify := usecase.NewClassifyListingUseCase(
		linkJournal, storage, notifier, sheetAppender, pages, counters, source.Name,
	)

	return usecase.NewScrapeCycleUseCase(
		pages, fieldExtractor, classify, linkJournal, counters,
		source.Name, source.PageURL, appConfig.Scraper.MaxPages,
		time.Duration(appConfig.Scraper.WaitTime)*time.Second,
	), nil
}

func journalFileName(sourceName string) string {
	return strings.ReplaceAll(sourceName, ".", "_") + "_links.json"
}

// Run запускает все воркеры и управляет их жизненным циклом.
func (a *App) Run() error {
	appCtx, cancelApp := context.WithCancel(context.Background())

	var wg sync.WaitGroup

	defer func() {
		a.logger.Info("Shutdown sequence initiated...", nil)

		a.logger.Info("Waiting for background processes to finish...", nil)
		wg.Wait()
		a.logger.Info("All background processes finished.", nil)

		if a.dbPool != nil {
			a.dbPool.Close()
			a.logger.Info("PostgreSQL pool closed.", nil)
		}

		if a.fluentClient != nil {
			a.logger.Info("Closing Fluent Bit connection...", nil)
			if err := a.fluentClient.Close(); err != nil {
				log.Printf("App: Error closing fluent client: %v\n", err)
			}
		}

		a.logger.Info("Application shut down gracefully.", nil)
	}()

	a.logger.Info("Application is starting...", nil)

	workerErrors := make(chan error, len(a.workers))

	for i, worker := range a.workers {
		wg.Add(1)
		go func(w *usecase.ScrapeCycleUseCase, idx int) {
			defer wg.Done()
			workerCtx := contextkeys.ContextWithLogger(appCtx, a.logger)
			if err := w.Run(workerCtx); err != nil && appCtx.Err() == nil {
				workerErrors <- fmt.Errorf("worker %d stopped unexpectedly: %w", idx, err)
			}
		}(worker, i)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	a.logger.Info("Application running. Waiting for signals or worker error...", nil)
	select {
	case receivedSignal := <-quit:
		a.logger.Warn("Received signal, shutting down", port.Fields{"signal": receivedSignal.String()})
	case err := <-workerErrors:
		a.logger.Error("A worker failed, shutting down", err, nil)
	}

	cancelApp()
	return nil
}

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		log.Printf("Warning: Unknown log level '%s'. Defaulting to 'info'.", levelStr)
		return slog.LevelInfo
	}
}
