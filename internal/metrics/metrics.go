package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Counters - явно конструируемый набор счетчиков, создаваемый один раз
// на старте процесса и передаваемый каждому воркеру. Никаких скрытых
// процессных синглтонов и глобальных реестров.
type Counters struct {
	ListingsProcessed *prometheus.CounterVec
	ListingsSkipped   *prometheus.CounterVec
	NewListings       *prometheus.CounterVec
	ScrapeErrors      *prometheus.CounterVec
	DBErrors          *prometheus.CounterVec
}

// NewCounters регистрирует счетчики в переданном реестре.
// Все счетчики имеют метку source - по одному ряду на воркер.
func NewCounters(reg prometheus.Registerer) *Counters {
	c := &Counters{
		ListingsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listings_processed_total",
			Help: "Number of listings that went through classification",
		}, []string{"source"}),
		ListingsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listings_skipped_total",
			Help: "Number of duplicate listings skipped",
		}, []string{"source"}),
		NewListings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listings_new_total",
			Help: "Number of listings classified as new or price-changed",
		}, []string{"source"}),
		ScrapeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraping_errors_total",
			Help: "Number of scraping errors",
		}, []string{"source"}),
		DBErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Number of database errors during classification",
		}, []string{"source"}),
	}

	reg.MustRegister(c.ListingsProcessed, c.ListingsSkipped, c.NewListings, c.ScrapeErrors, c.DBErrors)
	return c
}
