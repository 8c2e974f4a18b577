package main

import (
	"context"
	"log"
	"net/http"

	"github.com/beinghadibadami/vegvision/config"
	"github.com/beinghadibadami/vegvision/database"
	"github.com/beinghadibadami/vegvision/handlers"
	"github.com/beinghadibadami/vegvision/middleware"
	"github.com/beinghadibadami/vegvision/repository"
	"github.com/beinghadibadami/vegvision/scheduler"
	"github.com/beinghadibadami/vegvision/scraper"
	"github.com/beinghadibadami/vegvision/services"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := config.Load()

	// The store is a best-effort cache: a failed connection downgrades the
	// service to scrape-only instead of aborting startup.
	db := database.New(cfg.DatabaseName, cfg.CollectionName)
	if err := db.Connect(context.Background(), cfg.MongoURL); err != nil {
		log.Printf("MongoDB unavailable, running without price cache: %v", err)
	}
	defer db.Close(context.Background())

	productRepo := repository.NewProductRepository(db)
	bbScraper := scraper.NewBigBasketScraper(cfg.BigBasketBase, productRepo, cfg.NavigateTimeout, cfg.ElementTimeout)
	priceService := services.NewPriceService(productRepo, bbScraper, cfg.CacheTTL)
	visionService := services.NewVisionService(cfg.GroqAPIKey, cfg.GroqModel, priceService)

	refresher := scheduler.NewRefreshService(productRepo, bbScraper, cfg.CacheTTL)
	refresher.Start()
	defer refresher.Stop()

	h := handlers.NewHandlers(priceService, visionService, db)

	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RateLimitMiddleware(5))

	r.HandleFunc("/", h.Root).Methods("GET")
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/price/{product_name}", h.GetPrice).Methods("GET")
	r.HandleFunc("/analyze/upload", h.AnalyzeUpload).Methods("POST")
	r.HandleFunc("/analyze/url", h.AnalyzeURL).Methods("POST")

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	addr := cfg.Host + ":" + cfg.Port
	log.Printf("Server starting on %s", addr)
	log.Printf("   GET  /health - Health check")
	log.Printf("   GET  /price/{product_name} - Price lookup with trend analysis")
	log.Printf("   POST /analyze/upload - Image analysis with price data")
	log.Printf("   POST /analyze/url - Image-by-URL analysis with price data")

	log.Fatal(http.ListenAndServe(addr, c.Handler(r)))
}
