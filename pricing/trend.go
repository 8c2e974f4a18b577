package pricing

import (
	"math"

	"github.com/beinghadibadami/vegvision/models"
)

// Verdict labels produced by AnalyzeTrend.
const (
	VerdictGreatDeal = "Great Deal"
	VerdictFairPrice = "Fair Price"
	VerdictHighPrice = "High Price"
	VerdictUnknown   = "Unknown"
)

// AnalyzeTrend classifies the current price against the historical average.
// A price at least 10% below the average is a Great Deal, at least 10%
// above is a High Price, anything between is a Fair Price. With no usable
// current price or fewer than two history entries that parse to a positive
// price there is nothing to trend, so the default Fair Price verdict comes
// back with the current price as its own average.
func AnalyzeTrend(currentPrice float64, history []models.HistoryEntry) models.PriceAnalysis {
	analysis := models.PriceAnalysis{
		Verdict:    VerdictFairPrice,
		Difference: 0,
		Average:    currentPrice,
	}

	if currentPrice <= 0 {
		return analysis
	}

	// Entries that fail to parse don't count toward the two-observation
	// minimum; a history of placeholders is no history at all.
	var sum float64
	var usable int
	for _, entry := range history {
		price := ParseOrZero(entry.Price)
		if price <= 0 {
			continue
		}
		sum += price
		usable++
	}
	if usable < 2 {
		return analysis
	}

	average := sum / float64(usable)
	difference := (currentPrice - average) / average * 100

	switch {
	case difference <= -10:
		analysis.Verdict = VerdictGreatDeal
	case difference >= 10:
		analysis.Verdict = VerdictHighPrice
	}

	analysis.Average = math.Round(average*100) / 100
	analysis.Difference = math.Round(difference*10) / 10
	return analysis
}
