package models

import (
	"time"
)

// ProductRecord is the durable per-product document stored in the
// fruits_veggies collection. One record per normalized product name.
type ProductRecord struct {
	Name              string         `json:"name" bson:"name"`
	Quantity          string         `json:"quantity" bson:"quantity"`
	Price             string         `json:"price" bson:"price"`
	ScrapedAt         time.Time      `json:"scraped_at" bson:"scraped_at"`
	SourceURL         string         `json:"source_url" bson:"source_url"`
	ActualProductName string         `json:"actual_product_name" bson:"actual_product_name"`
	PriceHistory      []HistoryEntry `json:"price_history" bson:"price_history"`
}

// HistoryEntry is a single past price observation. History only grows;
// every successful scrape appends exactly one entry.
type HistoryEntry struct {
	Price     string    `json:"price" bson:"price"`
	ScrapedAt time.Time `json:"scraped_at" bson:"scraped_at"`
}

// ProductFields are the scalar fields overwritten on every upsert. The
// history entry travels separately so the store can push it atomically.
type ProductFields struct {
	Name              string    `bson:"name"`
	Quantity          string    `bson:"quantity"`
	Price             string    `bson:"price"`
	ScrapedAt         time.Time `bson:"scraped_at"`
	SourceURL         string    `bson:"source_url"`
	ActualProductName string    `bson:"actual_product_name"`
}

// ScrapeResult is what a single scrape attempt produced. Either the three
// extracted fields with Success true, or an error message with Success false.
type ScrapeResult struct {
	Name     string `json:"name,omitempty"`
	Quantity string `json:"quantity,omitempty"`
	Price    string `json:"price,omitempty"`
	Error    string `json:"error,omitempty"`
	Success  bool   `json:"success"`
}

// PriceAnalysis is the deal-quality verdict derived from price history.
type PriceAnalysis struct {
	Verdict    string  `json:"verdict"`
	Difference float64 `json:"difference,omitempty"`
	Average    float64 `json:"average,omitempty"`
}

// HistoryPoint is a sanitized history entry for API responses: portable
// timestamp text, no storage identifiers.
type HistoryPoint struct {
	Price     string `json:"price"`
	ScrapedAt string `json:"scraped_at"`
}

// PriceResponse is the normalized result of a price lookup.
type PriceResponse struct {
	Name          string         `json:"name,omitempty"`
	Price         string         `json:"price"`
	Quantity      string         `json:"quantity"`
	PriceAnalysis PriceAnalysis  `json:"price_analysis"`
	PriceHistory  []HistoryPoint `json:"price_history,omitempty"`
	Cached        bool           `json:"cached,omitempty"`
}

// HasPrice reports whether the record carries a usable current price
// beyond the scraper's "N/A" placeholder.
func (r *ProductRecord) HasPrice() bool {
	return r.Price != "" && r.Price != "N/A"
}

// IsFresh reports whether the record was scraped after the given cutoff.
func (r *ProductRecord) IsFresh(cutoff time.Time) bool {
	return r.ScrapedAt.After(cutoff)
}
