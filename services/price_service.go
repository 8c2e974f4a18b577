package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/beinghadibadami/vegvision/models"
	"github.com/beinghadibadami/vegvision/pricing"
	"github.com/beinghadibadami/vegvision/repository"
)

// ProductStore is the slice of the repository the price service reads.
type ProductStore interface {
	GetFresh(ctx context.Context, name string, cutoff time.Time) (*models.ProductRecord, error)
	GetAny(ctx context.Context, name string) (*models.ProductRecord, error)
}

// Scraper produces one price observation for a search query. A successful
// scrape has already persisted itself through the store.
type Scraper interface {
	Scrape(query string) *models.ScrapeResult
}

// PriceService is the cache-and-scrape policy: trust a fresh cached
// record, otherwise scrape, re-read the authoritative post-write record
// and classify the price trend. It never returns an error; every failure
// path resolves to the Unknown terminal response.
type PriceService struct {
	store    ProductStore
	scraper  Scraper
	cacheTTL time.Duration
}

func NewPriceService(store ProductStore, scraper Scraper, cacheTTL time.Duration) *PriceService {
	return &PriceService{
		store:    store,
		scraper:  scraper,
		cacheTTL: cacheTTL,
	}
}

// GetProductPrice looks up the price for a product name, scraping when the
// cache has no record fresher than the TTL or when forceRefresh is set.
func (s *PriceService) GetProductPrice(ctx context.Context, name string, forceRefresh bool) *models.PriceResponse {
	normalized := repository.NormalizeName(name)

	if !forceRefresh {
		cutoff := time.Now().UTC().Add(-s.cacheTTL)
		record, err := s.store.GetFresh(ctx, normalized, cutoff)
		switch {
		case errors.Is(err, repository.ErrStoreUnavailable):
			// Cache is best effort, fall through to scraping.
		case err != nil:
			log.Printf("Cache lookup failed for %q: %v", normalized, err)
		case record != nil:
			return s.buildResponse(normalized, record.Price, record.Quantity, record.PriceHistory, true)
		}
	}

	result := s.scraper.Scrape(strings.ToLower(normalized))
	if !result.Success {
		log.Printf("Scrape failed for %q: %s", normalized, result.Error)
		return unknownResponse(normalized)
	}

	// Read back what the scrape just wrote rather than trusting its
	// in-memory result: the stored record carries the full history.
	record, err := s.store.GetAny(ctx, normalized)
	if err == nil && record != nil {
		return s.buildResponse(normalized, record.Price, record.Quantity, record.PriceHistory, false)
	}
	if err != nil && !errors.Is(err, repository.ErrStoreUnavailable) {
		log.Printf("Read-back failed for %q: %v", normalized, err)
	}

	// Store is down but the scrape itself succeeded: answer from the
	// scrape output with no history.
	return s.buildResponse(normalized, result.Price, result.Quantity, nil, false)
}

func (s *PriceService) buildResponse(name, price, quantity string, history []models.HistoryEntry, cached bool) *models.PriceResponse {
	current := pricing.ParseOrZero(price)
	return &models.PriceResponse{
		Name:          name,
		Price:         price,
		Quantity:      quantity,
		PriceAnalysis: pricing.AnalyzeTrend(current, history),
		PriceHistory:  sanitizeHistory(history),
		Cached:        cached,
	}
}

// unknownResponse is the terminal state for requests where neither the
// cache nor a scrape produced anything usable.
func unknownResponse(name string) *models.PriceResponse {
	return &models.PriceResponse{
		Name:          name,
		Price:         "N/A",
		Quantity:      "N/A",
		PriceAnalysis: models.PriceAnalysis{Verdict: pricing.VerdictUnknown},
	}
}

// sanitizeHistory converts stored history into the response shape:
// RFC 3339 timestamps, no storage identifiers.
func sanitizeHistory(history []models.HistoryEntry) []models.HistoryPoint {
	if len(history) == 0 {
		return nil
	}
	points := make([]models.HistoryPoint, 0, len(history))
	for _, entry := range history {
		points = append(points, models.HistoryPoint{
			Price:     entry.Price,
			ScrapedAt: entry.ScrapedAt.UTC().Format(time.RFC3339),
		})
	}
	return points
}
