package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beinghadibadami/vegvision/database"
	"github.com/beinghadibadami/vegvision/services"

	"github.com/gorilla/mux"
)

const maxImageBytes = 10 << 20 // 10 MB upload cap

// Handlers bundles the HTTP endpoints with their collaborators.
type Handlers struct {
	prices *services.PriceService
	vision *services.VisionService
	db     *database.Database
}

func NewHandlers(prices *services.PriceService, vision *services.VisionService, db *database.Database) *Handlers {
	return &Handlers{prices: prices, vision: vision, db: db}
}

// GetPrice handles GET /price/{product_name}?force_refresh=.
// It always answers 200: scrape and store failures resolve to the
// Unknown response inside the price service.
func (h *Handlers) GetPrice(w http.ResponseWriter, r *http.Request) {
	productName := mux.Vars(r)["product_name"]
	forceRefresh := r.URL.Query().Get("force_refresh") == "true"

	response := h.prices.GetProductPrice(r.Context(), productName, forceRefresh)
	writeJSON(w, http.StatusOK, response)
}

// AnalyzeUpload handles POST /analyze/upload with a multipart image file.
func (h *Handlers) AnalyzeUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		writeError(w, http.StatusBadRequest, "uploaded file is not an image")
		return
	}

	imageData, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	h.analyze(w, r, imageData)
}

// AnalyzeURL handles POST /analyze/url with {"image_url": "..."}.
func (h *Handlers) AnalyzeURL(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ImageURL string `json:"image_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.ImageURL == "" {
		writeError(w, http.StatusBadRequest, "image_url is required")
		return
	}

	imageData, err := downloadImage(input.ImageURL)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to download image: %v", err))
		return
	}

	h.analyze(w, r, imageData)
}

func (h *Handlers) analyze(w http.ResponseWriter, r *http.Request, imageData []byte) {
	forceRefresh := r.URL.Query().Get("force_refresh") == "true"

	result, err := h.vision.AnalyzeImage(r.Context(), imageData, forceRefresh)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("analysis failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	mongoStatus := "disconnected"
	if h.db.Available() {
		mongoStatus = "connected"
	}
	groqStatus := "not configured"
	if h.vision.Configured() {
		groqStatus = "configured"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"mongodb":   mongoStatus,
		"groq_api":  groqStatus,
		"timestamp": time.Now().UTC(),
	})
}

// Root handles GET / with a small endpoint index.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Fruit and Vegetable Analysis API",
		"status":  "running",
		"endpoints": map[string]string{
			"analyze_upload": "/analyze/upload - Upload an image for analysis including price",
			"analyze_url":    "/analyze/url - Provide an image URL for analysis including price",
			"get_price":      "/price/{product_name} - Price information for a product",
			"health":         "/health - Health check",
		},
	})
}

func downloadImage(url string) ([]byte, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
