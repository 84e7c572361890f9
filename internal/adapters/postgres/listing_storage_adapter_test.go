package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nekretnine-watcher/internal/core/domain"
	"nekretnine-watcher/internal/core/port"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Тесты ходят в настоящий PostgreSQL и пропускаются без DATABASE_URL.
// Каждый тест получает собственную схему с накатанной миграцией,
// чтобы прогоны не мешали друг другу.
func setupStorage(t *testing.T) (*ListingStorageAdapter, *pgxpool.Pool) {
	t.Helper()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL is not set, skipping storage integration tests")
	}

	ctx := context.Background()
	schema := fmt.Sprintf("listings_test_%d", time.Now().UnixNano())

	admin, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("connect admin pool: %v", err)
	}
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		admin.Close()
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		_, _ = admin.Exec(ctx, "DROP SCHEMA "+schema+" CASCADE")
		admin.Close()
	})

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect test pool: %v", err)
	}
	t.Cleanup(pool.Close)

	ddl, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "001_init.sql"))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if _, err := pool.Exec(ctx, string(ddl)); err != nil {
		t.Fatalf("apply migration: %v", err)
	}

	adapter, err := NewListingStorageAdapter(pool)
	if err != nil {
		t.Fatalf("NewListingStorageAdapter: %v", err)
	}
	return adapter, pool
}

func storedRecord(price float64) (domain.ListingRecord, domain.Owner) {
	now := time.Now().UTC().Truncate(time.Second)
	record := domain.ListingRecord{
		Source:        "oglasi.rs",
		ExternalID:    "stan-1",
		URL:           "https://www.oglasi.rs/nekretnine/stan-1",
		Title:         "Dvosoban stan",
		Price:         price,
		SquareMeters:  52,
		Rooms:         "Dvosoban",
		PostedDate:    now,
		ProcessedDate: now,
		Status:        domain.StatusActive,
		ListingType:   domain.ListingTypeRent,
	}
	owner := domain.Owner{Source: "oglasi.rs", ExternalID: "stan-1", Name: "Petar"}
	return record, owner
}

func TestUpsertInsertsListingWithOwner(t *testing.T) {
	adapter, pool := setupStorage(t)
	ctx := context.Background()
	record, owner := storedRecord(450)

	outcome, err := adapter.Upsert(ctx, record, owner)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if outcome != port.UpsertInserted {
		t.Fatalf("outcome = %v, want UpsertInserted", outcome)
	}

	var listings, history int
	var ownerName string
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM listings").Scan(&listings); err != nil {
		t.Fatalf("count listings: %v", err)
	}
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM listing_history").Scan(&history); err != nil {
		t.Fatalf("count history: %v", err)
	}
	if err := pool.QueryRow(ctx,
		"SELECT o.name FROM owners o JOIN listings l ON l.owner_id = o.id WHERE l.url = $1",
		record.URL).Scan(&ownerName); err != nil {
		t.Fatalf("select owner: %v", err)
	}

	if listings != 1 || history != 0 {
		t.Errorf("listings/history = %d/%d, want 1/0", listings, history)
	}
	if ownerName != "Petar" {
		t.Errorf("owner name = %q, want Petar", ownerName)
	}
}

func TestUpsertPriceChangeWritesHistoryWithOldPrice(t *testing.T) {
	adapter, pool := setupStorage(t)
	ctx := context.Background()

	record, owner := storedRecord(100)
	if _, err := adapter.Upsert(ctx, record, owner); err != nil {
		t.Fatalf("initial Upsert: %v", err)
	}

	record.Price = 120
	outcome, err := adapter.Upsert(ctx, record, owner)
	if err != nil {
		t.Fatalf("price-change Upsert: %v", err)
	}
	if outcome != port.UpsertPriceChanged {
		t.Fatalf("outcome = %v, want UpsertPriceChanged", outcome)
	}

	var historyCount int
	var historyPrice float64
	var changeType string
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM listing_history").Scan(&historyCount); err != nil {
		t.Fatalf("count history: %v", err)
	}
	if err := pool.QueryRow(ctx, "SELECT price, change_type FROM listing_history").Scan(&historyPrice, &changeType); err != nil {
		t.Fatalf("select history: %v", err)
	}

	if historyCount != 1 {
		t.Fatalf("history rows = %d, want exactly 1", historyCount)
	}
	if historyPrice != 100 {
		t.Errorf("history price = %v, want the OLD price 100", historyPrice)
	}
	if changeType != domain.ChangeTypePriceChange {
		t.Errorf("change_type = %q, want %q", changeType, domain.ChangeTypePriceChange)
	}

	var storedPrice float64
	if err := pool.QueryRow(ctx, "SELECT price FROM listings WHERE url = $1", record.URL).Scan(&storedPrice); err != nil {
		t.Fatalf("select listing price: %v", err)
	}
	if storedPrice != 120 {
		t.Errorf("stored price = %v, want the new price 120", storedPrice)
	}
}

func TestUpsertEqualPriceIsNoOp(t *testing.T) {
	adapter, pool := setupStorage(t)
	ctx := context.Background()

	record, owner := storedRecord(450)
	if _, err := adapter.Upsert(ctx, record, owner); err != nil {
		t.Fatalf("initial Upsert: %v", err)
	}

	var before time.Time
	if err := pool.QueryRow(ctx, "SELECT processed_date FROM listings WHERE url = $1", record.URL).Scan(&before); err != nil {
		t.Fatalf("select processed_date: %v", err)
	}

	// Повторное наблюдение с той же ценой, но свежим processed_date.
	record.ProcessedDate = record.ProcessedDate.Add(time.Hour)
	outcome, err := adapter.Upsert(ctx, record, owner)
	if err != nil {
		t.Fatalf("repeat Upsert: %v", err)
	}
	if outcome != port.UpsertUnchanged {
		t.Fatalf("outcome = %v, want UpsertUnchanged", outcome)
	}

	var historyCount int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM listing_history").Scan(&historyCount); err != nil {
		t.Fatalf("count history: %v", err)
	}
	if historyCount != 0 {
		t.Errorf("history rows = %d, want 0 on an unchanged price", historyCount)
	}

	var after time.Time
	if err := pool.QueryRow(ctx, "SELECT processed_date FROM listings WHERE url = $1", record.URL).Scan(&after); err != nil {
		t.Fatalf("select processed_date: %v", err)
	}
	if !after.Equal(before) {
		t.Errorf("processed_date mutated from %v to %v: equal price must not touch the row", before, after)
	}
}

func TestUpsertReusesExistingOwner(t *testing.T) {
	adapter, pool := setupStorage(t)
	ctx := context.Background()

	first, owner := storedRecord(450)
	if _, err := adapter.Upsert(ctx, first, owner); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}

	second := first
	second.ExternalID = "stan-2"
	second.URL = "https://www.oglasi.rs/nekretnine/stan-2"
	if _, err := adapter.Upsert(ctx, second, owner); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	var owners int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM owners").Scan(&owners); err != nil {
		t.Fatalf("count owners: %v", err)
	}
	if owners != 1 {
		t.Errorf("owners = %d, want 1: same (source, external_id) must reuse the row", owners)
	}
}

func TestExistsMatchSemantics(t *testing.T) {
	adapter, pool := setupStorage(t)
	ctx := context.Background()

	record, owner := storedRecord(450)
	if _, err := adapter.Upsert(ctx, record, owner); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	match, err := adapter.Exists(ctx, record.URL, record.Source, record.ExternalID)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if match != port.MatchByURL {
		t.Errorf("match = %v, want MatchByURL to win over the recency branch", match)
	}

	match, err = adapter.Exists(ctx, "https://www.oglasi.rs/nekretnine/drugi-url", record.Source, record.ExternalID)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if match != port.MatchBySourceAndRecency {
		t.Errorf("match = %v, want MatchBySourceAndRecency for a fresh row", match)
	}

	// Состариваем строку за пределы суточного окна: идентичность по
	// (source, external_id) истекает, по URL - нет.
	stale := time.Now().UTC().Add(-25 * time.Hour)
	if _, err := pool.Exec(ctx, "UPDATE listings SET processed_date = $1 WHERE url = $2", stale, record.URL); err != nil {
		t.Fatalf("age row: %v", err)
	}

	match, err = adapter.Exists(ctx, "https://www.oglasi.rs/nekretnine/drugi-url", record.Source, record.ExternalID)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if match != port.MatchNone {
		t.Errorf("match = %v, want MatchNone once the row is older than 24h", match)
	}

	match, err = adapter.Exists(ctx, record.URL, record.Source, record.ExternalID)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if match != port.MatchByURL {
		t.Errorf("match = %v, want MatchByURL regardless of row age", match)
	}
}
