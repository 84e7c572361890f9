package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"nekretnine-watcher/internal/core/domain"
	"nekretnine-watcher/internal/core/port"
	"nekretnine-watcher/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

type fakePageSource struct {
	mu      sync.Mutex
	pages   map[string][]domain.Fragment
	fetched []string
	err     error
}

func (f *fakePageSource) FetchPage(_ context.Context, pageURL string) ([]domain.Fragment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, pageURL)
	if f.err != nil {
		return nil, f.err
	}
	return f.pages[pageURL], nil
}

func (f *fakePageSource) FetchImage(context.Context, string) ([]byte, error) {
	return nil, fmt.Errorf("no image")
}

func (f *fakePageSource) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

type fakeExtractor struct {
	mu     sync.Mutex
	nextID int
	err    error
}

func (f *fakeExtractor) Extract(domain.Fragment, time.Time) (*domain.ListingRecord, *domain.Owner, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.mu.Unlock()

	record := testRecord()
	record.ExternalID = fmt.Sprintf("stan-%d", id)
	record.URL = fmt.Sprintf("https://www.oglasi.rs/nekretnine/stan-%d", id)
	return &record, &domain.Owner{Name: "Unknown"}, nil
}

func newCycleFixture(pages *fakePageSource, ext *fakeExtractor, maxPages int) (*ScrapeCycleUseCase, *classifyFixture) {
	fx := newClassifyFixture(&fakeStorage{existsResult: port.MatchNone, upsertResult: port.UpsertInserted})
	counters := metrics.NewCounters(prometheus.NewRegistry())

	uc := NewScrapeCycleUseCase(
		pages, ext, fx.uc, fx.journal, counters,
		"oglasi.rs",
		func(page int) string { return fmt.Sprintf("https://www.oglasi.rs/page/%d", page) },
		maxPages,
		time.Hour,
	)
	return uc, fx
}

func runSingleCycle(t *testing.T, uc *ScrapeCycleUseCase) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- uc.Run(ctx) }()

	// Первый цикл завершается до ожидания, отмена снимает воркер с паузы.
	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestRunProcessesAllPages(t *testing.T) {
	pages := &fakePageSource{pages: map[string][]domain.Fragment{
		"https://www.oglasi.rs/page/1": {{}, {}},
		"https://www.oglasi.rs/page/2": {{}},
	}}
	ext := &fakeExtractor{}
	uc, fx := newCycleFixture(pages, ext, 2)

	runSingleCycle(t, uc)

	if pages.fetchCount() != 2 {
		t.Errorf("fetched %d pages, want 2", pages.fetchCount())
	}
	// Три фрагмента, все новые, все с нотификацией.
	if got := len(fx.notifier.calls); got != 3 {
		t.Errorf("notifications = %d, want 3", got)
	}
}

func TestRunStopsPaginationOnEmptyPage(t *testing.T) {
	pages := &fakePageSource{pages: map[string][]domain.Fragment{
		"https://www.oglasi.rs/page/1": nil,
	}}
	uc, _ := newCycleFixture(pages, &fakeExtractor{}, 5)

	runSingleCycle(t, uc)

	if pages.fetchCount() != 1 {
		t.Errorf("fetched %d pages, want 1: empty page must stop pagination", pages.fetchCount())
	}
}

func TestRunSurvivesFetchFailure(t *testing.T) {
	pages := &fakePageSource{err: &domain.FetchError{PageURL: "https://www.oglasi.rs/page/1", Err: fmt.Errorf("timeout")}}
	uc, fx := newCycleFixture(pages, &fakeExtractor{}, 3)

	runSingleCycle(t, uc)

	if pages.fetchCount() != 1 {
		t.Errorf("fetched %d pages, want 1: page failure must abort the cycle, not the worker", pages.fetchCount())
	}
	if len(fx.notifier.calls) != 0 {
		t.Error("failed cycle must not notify")
	}
}

func TestRunSkipsUnparsableFragments(t *testing.T) {
	pages := &fakePageSource{pages: map[string][]domain.Fragment{
		"https://www.oglasi.rs/page/1": {{}, {}},
	}}
	ext := &fakeExtractor{err: &domain.ExtractionError{Source: "oglasi.rs", Err: fmt.Errorf("no title")}}
	uc, fx := newCycleFixture(pages, ext, 1)

	runSingleCycle(t, uc)

	if len(fx.notifier.calls) != 0 {
		t.Error("unparsable fragments must be skipped without side effects")
	}
	if fx.storage.upsertCalls != 0 {
		t.Error("unparsable fragments must never reach storage")
	}
}
