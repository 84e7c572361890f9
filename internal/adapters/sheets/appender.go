package sheets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nekretnine-watcher/internal/contextkeys"
	"nekretnine-watcher/internal/core/domain"
	"nekretnine-watcher/internal/core/port"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const (
	rentRange = "Listings!A:J"
	saleRange = "Prodaja!A:M"

	maxAttempts = 3
	maxBackoff  = 60 * time.Second

	// requestTimeout ограничивает одну попытку append; без него зависшая
	// TCP-сессия держала бы горутину классификации бесконечно.
	requestTimeout = 30 * time.Second

	timestampLayout = "2006-01-02 15:04:05"
)

// Appender реализует SheetAppenderPort поверх Google Sheets API.
// Продажные строки идут на отдельный лист с расширенной схемой.
type Appender struct {
	service        *sheetsapi.Service
	spreadsheetID  string
	requestTimeout time.Duration
}

// NewAppender создает клиент таблицы из сервисного аккаунта.
func NewAppender(ctx context.Context, credentialsPath, spreadsheetID string) (*Appender, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets service: %w", err)
	}

	return &Appender{service: service, spreadsheetID: spreadsheetID, requestTimeout: requestTimeout}, nil
}

// AppendListing дописывает одну строку. Ретраит 429/500/503 с капнутым
// экспоненциальным бэкоффом; сбой не фатален - возвращается false.
func (a *Appender) AppendListing(ctx context.Context, record domain.ListingRecord) bool {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"component": "sheets_appender"})

	appendRange := rentRange
	if record.ListingType == domain.ListingTypeSale {
		appendRange = saleRange
	}

	body := &sheetsapi.ValueRange{
		MajorDimension: "ROWS",
		Values:         [][]interface{}{FormatRow(record, time.Now())},
	}

	backoff := time.Second
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, a.requestTimeout)
		_, err := a.service.Spreadsheets.Values.
			Append(a.spreadsheetID, appendRange, body).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(attemptCtx).
			Do()
		cancel()
		if err == nil {
			logger.Debug("Appended listing to sheet", port.Fields{"url": record.URL, "range": appendRange})
			return true
		}

		if !isRetryable(err) || attempt == maxAttempts {
			logger.Error("Sheet append failed", err, port.Fields{"url": record.URL, "attempt": attempt})
			return false
		}

		logger.Warn("Sheets API error, retrying", port.Fields{"attempt": attempt, "backoff": backoff.String()})
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return false
}

// FormatRow собирает строку таблицы. Rent: A:J. Sale несет два
// дополнительных поля и маркер типа: A:M.
func FormatRow(record domain.ListingRecord, now time.Time) []interface{} {
	if record.ListingType == domain.ListingTypeSale {
		return []interface{}{
			now.Format(timestampLayout),
			record.Source,
			record.Title,
			fmt.Sprintf("%.2f", record.Price),
			fmt.Sprintf("%d", record.SquareMeters),
			record.Rooms,
			record.Location,
			record.BuildingCondition,
			record.FloorLevel,
			record.URL,
			record.Description,
			record.PostedDate.Format(timestampLayout),
			"prodaja",
		}
	}

	return []interface{}{
		now.Format(timestampLayout),
		record.Source,
		record.Title,
		fmt.Sprintf("%.2f", record.Price),
		fmt.Sprintf("%d", record.SquareMeters),
		record.Rooms,
		record.Location,
		record.URL,
		record.Description,
		record.PostedDate.Format(timestampLayout),
	}
}

func isRetryable(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		// Сетевые ошибки считаем транзиентными.
		return true
	}
	switch apiErr.Code {
	case 429, 500, 503:
		return true
	default:
		return false
	}
}

// NoopAppender используется, когда зеркалирование в таблицу выключено.
type NoopAppender struct{}

func (NoopAppender) AppendListing(ctx context.Context, record domain.ListingRecord) bool { return true }
