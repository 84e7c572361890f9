package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nekretnine-watcher/internal/core/domain"
	"nekretnine-watcher/internal/core/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// recencyWindow - окно доверия идентичности по (source, external_id).
// Идентичность по URL постоянна; пара (source, external_id) считается
// "тем же активным объявлением" только в пределах суток.
const recencyWindow = 24 * time.Hour

const uniqueViolationCode = "23505"

// ListingStorageAdapter реализует ListingStoragePort для PostgreSQL.
type ListingStorageAdapter struct {
	pool *pgxpool.Pool
}

// NewListingStorageAdapter создает новый экземпляр адаптера.
func NewListingStorageAdapter(pool *pgxpool.Pool) (*ListingStorageAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &ListingStorageAdapter{pool: pool}, nil
}

// Exists - дешевая проверка для решения о пропуске. Ветка по URL срабатывает
// независимо от возраста строки; ветка по (source, external_id) дополнительно
// требует processed_date в пределах recencyWindow. При совпадении обеих
// предпочитается URL.
func (a *ListingStorageAdapter) Exists(ctx context.Context, url, source, externalID string) (port.MatchResult, error) {
	const query = `
		SELECT url = $1 AS by_url
		FROM listings
		WHERE url = $1
		   OR (source = $2 AND external_id = $3 AND processed_date >= $4)
		ORDER BY (url = $1) DESC
		LIMIT 1`

	cutoff := time.Now().Add(-recencyWindow)

	var byURL bool
	err := a.pool.QueryRow(ctx, query, url, source, externalID, cutoff).Scan(&byURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return port.MatchNone, nil
		}
		return port.MatchNone, fmt.Errorf("failed to check listing existence: %w", err)
	}

	if byURL {
		return port.MatchByURL, nil
	}
	return port.MatchBySourceAndRecency, nil
}

// Upsert сохраняет одну запись в рамках одной транзакции.
//
// Поиск существующей строки здесь авторитетный и шире, чем в Exists:
// по url ИЛИ (source, external_id) без ограничения по свежести. Если строка
// найдена и цена отличается - сперва пишется история со СТАРОЙ ценой, затем
// все поля перезаписываются входящими значениями. Если цена совпала, записи
// нет вообще (даже processed_date), чтобы не плодить churn на каждом цикле.
// Если строки нет - владелец ищется/создается лениво по (source, external_id)
// владельца, затем вставляется объявление.
func (a *ListingStorageAdapter) Upsert(ctx context.Context, record domain.ListingRecord, owner domain.Owner) (port.UpsertOutcome, error) {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const lookup = `
		SELECT id, price
		FROM listings
		WHERE url = $1 OR (source = $2 AND external_id = $3)
		ORDER BY (url = $1) DESC
		LIMIT 1
		FOR UPDATE`

	var listingID int64
	var storedPrice float64
	err = tx.QueryRow(ctx, lookup, record.URL, record.Source, record.ExternalID).Scan(&listingID, &storedPrice)

	switch {
	case err == nil:
		if storedPrice == record.Price {
			// Цена не изменилась - осознанный no-op.
			if err := tx.Commit(ctx); err != nil {
				return 0, fmt.Errorf("failed to commit transaction: %w", err)
			}
			return port.UpsertUnchanged, nil
		}
		if err := a.recordPriceChange(ctx, tx, listingID, storedPrice, record); err != nil {
			return 0, err
		}
		if err := tx.Commit(ctx); err != nil {
			return 0, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return port.UpsertPriceChanged, nil

	case errors.Is(err, pgx.ErrNoRows):
		if err := a.insertListing(ctx, tx, record, owner); err != nil {
			return 0, err
		}
		if err := tx.Commit(ctx); err != nil {
			return 0, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return port.UpsertInserted, nil

	default:
		return 0, fmt.Errorf("failed to look up existing listing: %w", err)
	}
}

func (a *ListingStorageAdapter) recordPriceChange(ctx context.Context, tx pgx.Tx, listingID int64, oldPrice float64, record domain.ListingRecord) error {
	const insertHistory = `
		INSERT INTO listing_history (listing_id, price, changed_date, change_type)
		VALUES ($1, $2, $3, $4)`

	_, err := tx.Exec(ctx, insertHistory, listingID, oldPrice, time.Now(), domain.ChangeTypePriceChange)
	if err != nil {
		return fmt.Errorf("failed to insert history row: %w", err)
	}

	const updateListing = `
		UPDATE listings SET
			source = $2, external_id = $3, title = $4, price = $5,
			square_meters = $6, rooms = $7, description = $8, location = $9,
			posted_date = $10, processed_date = $11, url = $12, status = $13,
			listing_type = $14, building_condition = $15, floor_level = $16,
			image_url = $17, updated_at = now()
		WHERE id = $1`

	_, err = tx.Exec(ctx, updateListing, listingID,
		record.Source, record.ExternalID, record.Title, record.Price,
		record.SquareMeters, record.Rooms, record.Description, record.Location,
		record.PostedDate, record.ProcessedDate, record.URL, record.Status,
		record.ListingType, record.BuildingCondition, record.FloorLevel,
		record.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}
	return nil
}

func (a *ListingStorageAdapter) insertListing(ctx context.Context, tx pgx.Tx, record domain.ListingRecord, owner domain.Owner) error {
	// Ключ поиска владельца независим от external_id самого объявления.
	const selectOwner = `SELECT id FROM owners WHERE source = $1 AND external_id = $2`

	var ownerID int64
	err := tx.QueryRow(ctx, selectOwner, owner.Source, owner.ExternalID).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		const insertOwner = `
			INSERT INTO owners (name, phone, source, external_id)
			VALUES ($1, $2, $3, $4)
			RETURNING id`
		err = tx.QueryRow(ctx, insertOwner, owner.Name, owner.Phone, owner.Source, owner.ExternalID).Scan(&ownerID)
	}
	if err != nil {
		return fmt.Errorf("failed to resolve owner: %w", err)
	}

	const insertListing = `
		INSERT INTO listings (
			owner_id, source, external_id, title, price, square_meters, rooms,
			description, location, posted_date, processed_date, url, status,
			listing_type, building_condition, floor_level, image_url
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)`

	_, err = tx.Exec(ctx, insertListing, ownerID,
		record.Source, record.ExternalID, record.Title, record.Price,
		record.SquareMeters, record.Rooms, record.Description, record.Location,
		record.PostedDate, record.ProcessedDate, record.URL, record.Status,
		record.ListingType, record.BuildingCondition, record.FloorLevel,
		record.ImageURL,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			// Проигранная гонка вставки: конкурент успел первым.
			return fmt.Errorf("insert lost the race: %w", domain.ErrDuplicateURL)
		}
		return fmt.Errorf("failed to insert listing: %w", err)
	}
	return nil
}
