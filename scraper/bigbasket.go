package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/beinghadibadami/vegvision/models"
	"github.com/beinghadibadami/vegvision/repository"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BigBasket result-card selectors. The quantity label has two known
// variants, tried in order.
const (
	firstCardSelector   = "div.SKUDeck___StyledDiv-sc-1e5d9gk-0.bFjDCO"
	nameSelector        = "div.break-words.h-10.w-full h3"
	quantitySelector    = "span.Label-sc-15v1nk5-0.jnBJRV.truncate"
	quantityAltSelector = "span.Label-sc-15v1nk5-0.sc-ggpjZQ.jnBJRV.kgMUbj"
	priceSelector       = "span.Label-sc-15v1nk5-0.sc-iMTnTL.jnBJRV.knDrlZ"
)

// Upserter is the slice of the product store the scraper needs: a
// successful scrape durably records itself before returning.
type Upserter interface {
	Upsert(ctx context.Context, name string, fields models.ProductFields, entry models.HistoryEntry) error
}

// BigBasketScraper extracts name, quantity and price for a search query
// from the BigBasket search page. Every Scrape call launches its own
// short-lived headless browser; nothing is shared between calls.
type BigBasketScraper struct {
	baseURL         string
	store           Upserter
	navigateTimeout time.Duration
	elementTimeout  time.Duration
}

func NewBigBasketScraper(baseURL string, store Upserter, navigateTimeout, elementTimeout time.Duration) *BigBasketScraper {
	return &BigBasketScraper{
		baseURL:         strings.TrimRight(baseURL, "/"),
		store:           store,
		navigateTimeout: navigateTimeout,
		elementTimeout:  elementTimeout,
	}
}

// SearchURL builds the deterministic search URL for a query.
func (s *BigBasketScraper) SearchURL(query string) string {
	return fmt.Sprintf("%s/ps/?q=%s", s.baseURL, query)
}

// Scrape runs one isolated scrape for query. It never returns an error:
// every failure mode resolves to a ScrapeResult with Success false.
func (s *BigBasketScraper) Scrape(query string) *models.ScrapeResult {
	url := s.SearchURL(query)

	browser, cleanup, err := s.launch()
	if err != nil {
		log.Printf("Browser launch failed for %q: %v", query, err)
		return &models.ScrapeResult{
			Error:   fmt.Sprintf("critical scraper error: %v", err),
			Success: false,
		}
	}
	// Cleanup must run on every exit path, including extraction panics
	// deeper in rod.
	defer cleanup()

	result, err := s.extract(browser, url)
	if err != nil {
		log.Printf("Scraping failed for %q: %v", query, err)
		return &models.ScrapeResult{Error: err.Error(), Success: false}
	}

	s.persist(query, url, result)
	return result
}

// launch starts a fresh headless browser and returns it with a cleanup
// function that tears down both the connection and the browser process.
func (s *BigBasketScraper) launch() (*rod.Browser, func(), error) {
	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Leakless(false)

	// Use system Chromium when present (Docker), auto-download otherwise.
	if _, err := os.Stat("/usr/bin/chromium-browser"); err == nil {
		l = l.Bin("/usr/bin/chromium-browser")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to launch browser: %v", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, nil, fmt.Errorf("failed to connect to browser: %v", err)
	}

	cleanup := func() {
		if err := browser.Close(); err != nil {
			log.Printf("Browser close failed: %v", err)
		}
		l.Kill()
	}
	return browser, cleanup, nil
}

// extract navigates to the search page and pulls the three fields off the
// first result card. Missing elements yield "N/A", not a failure.
func (s *BigBasketScraper) extract(browser *rod.Browser, url string) (result *models.ScrapeResult, err error) {
	// rod panics on protocol-level failures; resolve them to a failure
	// result so nothing propagates past Scrape.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("scrape aborted: %v", r)
		}
	}()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %v", err)
	}

	// Skip heavy resources for speed; everything else loads normally.
	router := page.HijackRequests()
	err = router.Add("*", "", func(ctx *rod.Hijack) {
		switch ctx.Request.Type() {
		case proto.NetworkResourceTypeImage,
			proto.NetworkResourceTypeFont,
			proto.NetworkResourceTypeStylesheet,
			proto.NetworkResourceTypeMedia:
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		default:
			ctx.ContinueRequest(&proto.FetchContinueRequest{})
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to install request filter: %v", err)
	}
	go router.Run()
	defer router.Stop()

	if err := page.Timeout(s.navigateTimeout).Navigate(url); err != nil {
		return nil, fmt.Errorf("navigation failed: %v", err)
	}

	// Wait only for the first product card, not the whole page.
	card, err := page.Timeout(s.elementTimeout).Element(firstCardSelector)
	if err != nil {
		return nil, fmt.Errorf("no product card found: %v", err)
	}

	name := elementText(card, nameSelector)
	quantity := elementText(card, quantitySelector)
	if quantity == "N/A" {
		quantity = elementText(card, quantityAltSelector)
	}
	price := elementText(card, priceSelector)

	return &models.ScrapeResult{
		Name:     name,
		Quantity: quantity,
		Price:    price,
		Success:  true,
	}, nil
}

// persist records the observation through the store. Best effort: the
// scrape result stands even when the store is down.
func (s *BigBasketScraper) persist(query, url string, result *models.ScrapeResult) {
	if s.store == nil {
		return
	}

	now := time.Now().UTC()
	fields := models.ProductFields{
		Quantity:          result.Quantity,
		Price:             result.Price,
		ScrapedAt:         now,
		SourceURL:         url,
		ActualProductName: result.Name,
	}
	entry := models.HistoryEntry{Price: result.Price, ScrapedAt: now}

	if err := s.store.Upsert(context.Background(), query, fields, entry); err != nil {
		if errors.Is(err, repository.ErrStoreUnavailable) {
			return
		}
		log.Printf("Failed to record scrape for %q: %v", query, err)
	}
}

// elementText returns the trimmed text of the first match inside el, or
// "N/A" when the selector matches nothing.
func elementText(el *rod.Element, selector string) string {
	has, child, err := el.Has(selector)
	if err != nil || !has {
		return "N/A"
	}
	text, err := child.Text()
	if err != nil {
		return "N/A"
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "N/A"
	}
	return text
}
