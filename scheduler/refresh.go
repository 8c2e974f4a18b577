package scheduler

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/beinghadibadami/vegvision/models"
	"github.com/beinghadibadami/vegvision/repository"

	"github.com/robfig/cron/v3"
)

// StaleLister finds product names whose record is older than a cutoff.
type StaleLister interface {
	ListStale(ctx context.Context, cutoff time.Time) ([]string, error)
}

// Scraper re-scrapes a product; a successful scrape persists itself.
type Scraper interface {
	Scrape(query string) *models.ScrapeResult
}

// RefreshService keeps the price cache warm: every 12 hours it re-scrapes
// records that have aged past the freshness window, so interactive lookups
// mostly hit the cache.
type RefreshService struct {
	cron     *cron.Cron
	store    StaleLister
	scraper  Scraper
	cacheTTL time.Duration
}

func NewRefreshService(store StaleLister, scraper Scraper, cacheTTL time.Duration) *RefreshService {
	return &RefreshService{
		cron:     cron.New(cron.WithSeconds()),
		store:    store,
		scraper:  scraper,
		cacheTTL: cacheTTL,
	}
}

// Start schedules the refresh job at 00:00 and 12:00.
func (rs *RefreshService) Start() {
	if _, err := rs.cron.AddFunc("0 0 */12 * * *", rs.refreshStale); err != nil {
		log.Printf("Failed to schedule cache refresh: %v", err)
		return
	}
	rs.cron.Start()
	log.Println("Cache refresh scheduled to run every 12 hours")
}

// Stop halts the schedule. In-flight refreshes run to completion.
func (rs *RefreshService) Stop() {
	if rs.cron != nil {
		rs.cron.Stop()
	}
}

func (rs *RefreshService) refreshStale() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-rs.cacheTTL)
	names, err := rs.store.ListStale(ctx, cutoff)
	if err != nil {
		if errors.Is(err, repository.ErrStoreUnavailable) {
			return
		}
		log.Printf("Failed to list stale products: %v", err)
		return
	}
	if len(names) == 0 {
		return
	}

	log.Printf("Refreshing %d stale product(s)", len(names))
	for _, name := range names {
		// Sequential on purpose: each scrape owns a browser process and
		// this is background work.
		result := rs.scraper.Scrape(strings.ToLower(name))
		if !result.Success {
			log.Printf("Refresh scrape failed for %q: %s", name, result.Error)
		}
	}
}
