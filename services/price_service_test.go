package services

import (
	"context"
	"testing"
	"time"

	"github.com/beinghadibadami/vegvision/models"
	"github.com/beinghadibadami/vegvision/pricing"
	"github.com/beinghadibadami/vegvision/repository"
)

// fakeStore is an in-memory ProductStore with the repository's keying and
// freshness semantics.
type fakeStore struct {
	unavailable bool
	records     map[string]*models.ProductRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]*models.ProductRecord{}}
}

func (f *fakeStore) GetFresh(ctx context.Context, name string, cutoff time.Time) (*models.ProductRecord, error) {
	if f.unavailable {
		return nil, repository.ErrStoreUnavailable
	}
	record := f.records[repository.NormalizeName(name)]
	if record == nil || !record.ScrapedAt.After(cutoff) {
		return nil, nil
	}
	return record, nil
}

func (f *fakeStore) GetAny(ctx context.Context, name string) (*models.ProductRecord, error) {
	if f.unavailable {
		return nil, repository.ErrStoreUnavailable
	}
	record := f.records[repository.NormalizeName(name)]
	if record == nil {
		return nil, nil
	}
	return record, nil
}

func (f *fakeStore) Upsert(ctx context.Context, name string, fields models.ProductFields, entry models.HistoryEntry) error {
	if f.unavailable {
		return repository.ErrStoreUnavailable
	}
	key := repository.NormalizeName(name)
	record := f.records[key]
	if record == nil {
		record = &models.ProductRecord{Name: key}
		f.records[key] = record
	}
	record.Quantity = fields.Quantity
	record.Price = fields.Price
	record.ScrapedAt = fields.ScrapedAt
	record.SourceURL = fields.SourceURL
	record.ActualProductName = fields.ActualProductName
	record.PriceHistory = append(record.PriceHistory, entry)
	return nil
}

// fakeScraper returns a fixed result and, like the real scraper, persists
// successful observations before returning.
type fakeScraper struct {
	store  *fakeStore
	result *models.ScrapeResult
	calls  int
}

func (f *fakeScraper) Scrape(query string) *models.ScrapeResult {
	f.calls++
	if f.result.Success && f.store != nil {
		now := time.Now().UTC()
		_ = f.store.Upsert(context.Background(), query, models.ProductFields{
			Quantity:          f.result.Quantity,
			Price:             f.result.Price,
			ScrapedAt:         now,
			ActualProductName: f.result.Name,
		}, models.HistoryEntry{Price: f.result.Price, ScrapedAt: now})
	}
	return f.result
}

func seedRecord(store *fakeStore, name, price, quantity string, age time.Duration, historyPrices ...string) {
	scrapedAt := time.Now().UTC().Add(-age)
	record := &models.ProductRecord{
		Name:      repository.NormalizeName(name),
		Price:     price,
		Quantity:  quantity,
		ScrapedAt: scrapedAt,
	}
	for _, p := range historyPrices {
		record.PriceHistory = append(record.PriceHistory, models.HistoryEntry{Price: p, ScrapedAt: scrapedAt})
	}
	store.records[record.Name] = record
}

func TestFreshCacheHitSkipsScrape(t *testing.T) {
	store := newFakeStore()
	seedRecord(store, "tomato", "₹40", "1 kg", time.Hour, "₹40")
	scr := &fakeScraper{store: store, result: &models.ScrapeResult{Success: true}}
	svc := NewPriceService(store, scr, 24*time.Hour)

	resp := svc.GetProductPrice(context.Background(), "tomato", false)

	if scr.calls != 0 {
		t.Fatalf("scraper called %d times on a cache hit", scr.calls)
	}
	if !resp.Cached || resp.Price != "₹40" || resp.Quantity != "1 kg" {
		t.Errorf("unexpected cached response: %+v", resp)
	}
}

func TestFirstScrapePopulatesStoreAndAnalysis(t *testing.T) {
	store := newFakeStore()
	scr := &fakeScraper{store: store, result: &models.ScrapeResult{
		Name: "Tomato 1kg", Quantity: "1 kg", Price: "₹40", Success: true,
	}}
	svc := NewPriceService(store, scr, 24*time.Hour)

	resp := svc.GetProductPrice(context.Background(), "tomato", false)

	if resp.Price != "₹40" || resp.Quantity != "1 kg" {
		t.Errorf("response = %+v, want ₹40 / 1 kg", resp)
	}
	if resp.PriceAnalysis.Verdict != pricing.VerdictFairPrice {
		t.Errorf("verdict = %q, want %q", resp.PriceAnalysis.Verdict, pricing.VerdictFairPrice)
	}
	if resp.PriceAnalysis.Average != 40.0 {
		t.Errorf("average = %v, want 40.0", resp.PriceAnalysis.Average)
	}

	record := store.records["Tomato"]
	if record == nil {
		t.Fatal("store holds no record for Tomato after scrape")
	}
	if len(record.PriceHistory) != 1 {
		t.Errorf("history length = %d, want 1", len(record.PriceHistory))
	}
	if len(resp.PriceHistory) != 1 {
		t.Errorf("response history length = %d, want 1", len(resp.PriceHistory))
	}
}

func TestStoreDownAndScrapeFailedIsUnknownTerminal(t *testing.T) {
	store := newFakeStore()
	store.unavailable = true
	scr := &fakeScraper{store: store, result: &models.ScrapeResult{
		Error: "no product card found", Success: false,
	}}
	svc := NewPriceService(store, scr, 24*time.Hour)

	resp := svc.GetProductPrice(context.Background(), "tomato", false)

	if resp.Price != "N/A" || resp.Quantity != "N/A" {
		t.Errorf("terminal response fields = %q / %q, want N/A / N/A", resp.Price, resp.Quantity)
	}
	if resp.PriceAnalysis.Verdict != pricing.VerdictUnknown {
		t.Errorf("verdict = %q, want %q", resp.PriceAnalysis.Verdict, pricing.VerdictUnknown)
	}
	if len(resp.PriceHistory) != 0 {
		t.Errorf("terminal response carries history: %+v", resp.PriceHistory)
	}
}

func TestForceRefreshBypassesFreshCache(t *testing.T) {
	store := newFakeStore()
	seedRecord(store, "tomato", "₹100", "1 kg", time.Hour, "₹100")
	scr := &fakeScraper{store: store, result: &models.ScrapeResult{
		Name: "Tomato 1kg", Quantity: "1 kg", Price: "₹80", Success: true,
	}}
	svc := NewPriceService(store, scr, 24*time.Hour)

	resp := svc.GetProductPrice(context.Background(), "tomato", true)

	if scr.calls != 1 {
		t.Fatalf("scraper called %d times, want 1", scr.calls)
	}
	if resp.Cached {
		t.Error("forced refresh marked as cached")
	}
	if resp.Price != "₹80" {
		t.Errorf("price = %q, want the re-scraped ₹80", resp.Price)
	}
	if len(store.records["Tomato"].PriceHistory) != 2 {
		t.Errorf("history length = %d, want 2 after forced refresh", len(store.records["Tomato"].PriceHistory))
	}
	// History now averages (100+80)/2 = 90; 80 is 11.1% below that.
	if resp.PriceAnalysis.Verdict != pricing.VerdictGreatDeal {
		t.Errorf("verdict = %q, want %q", resp.PriceAnalysis.Verdict, pricing.VerdictGreatDeal)
	}
	if resp.PriceAnalysis.Difference != -11.1 {
		t.Errorf("difference = %v, want -11.1", resp.PriceAnalysis.Difference)
	}
}

func TestStaleRecordTriggersScrape(t *testing.T) {
	store := newFakeStore()
	seedRecord(store, "tomato", "₹100", "1 kg", 25*time.Hour, "₹100")
	scr := &fakeScraper{store: store, result: &models.ScrapeResult{
		Name: "Tomato 1kg", Quantity: "1 kg", Price: "₹100", Success: true,
	}}
	svc := NewPriceService(store, scr, 24*time.Hour)

	resp := svc.GetProductPrice(context.Background(), "tomato", false)

	if scr.calls != 1 {
		t.Fatalf("scraper called %d times for a stale record, want 1", scr.calls)
	}
	if resp.Cached {
		t.Error("stale record served as cached")
	}
	if len(resp.PriceHistory) != 2 {
		t.Errorf("response history length = %d, want 2", len(resp.PriceHistory))
	}
}

func TestScrapeSucceedsWhileStoreDown(t *testing.T) {
	store := newFakeStore()
	store.unavailable = true
	scr := &fakeScraper{store: store, result: &models.ScrapeResult{
		Name: "Tomato 1kg", Quantity: "1 kg", Price: "₹40", Success: true,
	}}
	svc := NewPriceService(store, scr, 24*time.Hour)

	resp := svc.GetProductPrice(context.Background(), "tomato", false)

	if resp.Price != "₹40" || resp.Quantity != "1 kg" {
		t.Errorf("response = %+v, want the scrape output", resp)
	}
	if len(resp.PriceHistory) != 0 {
		t.Errorf("minimal fallback carries history: %+v", resp.PriceHistory)
	}
	if resp.PriceAnalysis.Verdict != pricing.VerdictFairPrice {
		t.Errorf("verdict = %q, want %q", resp.PriceAnalysis.Verdict, pricing.VerdictFairPrice)
	}
}

func TestNameNormalization(t *testing.T) {
	store := newFakeStore()
	seedRecord(store, "tomato", "₹40", "1 kg", time.Hour, "₹40")
	scr := &fakeScraper{store: store, result: &models.ScrapeResult{Success: true}}
	svc := NewPriceService(store, scr, 24*time.Hour)

	resp := svc.GetProductPrice(context.Background(), "  TOMATO ", false)

	if scr.calls != 0 {
		t.Fatalf("differently-cased lookup missed the cache")
	}
	if resp.Name != "Tomato" {
		t.Errorf("response name = %q, want %q", resp.Name, "Tomato")
	}
}
