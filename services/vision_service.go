package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const groqEndpoint = "https://api.groq.com/openai/v1/chat/completions"

const visionPrompt = `You are a fruit and vegetable expert. Analyze the provided image and respond with strict JSON only, using this shape:
{"name": "...", "quality": 0-100, "moisture": 0-100, "size": "small|medium|big", "insight": "...", "shelf_life": {"days": "...", "stage": "Ripening|Ripe|Peak Fresh|Overripe", "storage_tips": "..."}, "macros": {"calories": 0, "carbs": 0, "protein": 0, "fat": 0, "fiber": 0, "vitamins": ["..."]}, "recipes": [{"name": "...", "reason": "...", "time": "...", "difficulty": "Easy|Medium|Hard"}]}
Suggest 3 recipes matched to the item's current condition. If the image is not a fruit or vegetable, return {"error": "..."}.`

// Product names the vision model returns when no price lookup should run.
var skipPriceSentinels = map[string]bool{
	"not a fruit or vegetable": true,
	"unknown":                  true,
}

// VisionService sends produce images to the Groq vision model and merges
// price data into the analysis. All image understanding happens remotely;
// this is transport glue only.
type VisionService struct {
	apiKey   string
	model    string
	endpoint string
	prices   *PriceService
	client   *http.Client
}

func NewVisionService(apiKey, model string, prices *PriceService) *VisionService {
	return &VisionService{
		apiKey:   apiKey,
		model:    model,
		endpoint: groqEndpoint,
		prices:   prices,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Configured reports whether an API key is present.
func (v *VisionService) Configured() bool {
	return v.apiKey != ""
}

// AnalyzeImage classifies the image remotely and, when the model names a
// real fruit or vegetable, merges price, quantity and price_analysis into
// the result object.
func (v *VisionService) AnalyzeImage(ctx context.Context, imageData []byte, forceRefresh bool) (map[string]interface{}, error) {
	if !v.Configured() {
		return nil, fmt.Errorf("GROQ_API_KEY environment variable not set")
	}

	analysis, err := v.requestAnalysis(ctx, imageData)
	if err != nil {
		return nil, err
	}

	name, _ := analysis["name"].(string)
	if name == "" || skipPriceSentinels[name] {
		return analysis, nil
	}

	priceInfo := v.prices.GetProductPrice(ctx, name, forceRefresh)
	analysis["price"] = priceInfo.Price
	analysis["quantity"] = priceInfo.Quantity
	analysis["price_analysis"] = priceInfo.PriceAnalysis
	if len(priceInfo.PriceHistory) > 0 {
		analysis["price_history"] = priceInfo.PriceHistory
	}
	return analysis, nil
}

func (v *VisionService) requestAnalysis(ctx context.Context, imageData []byte) (map[string]interface{}, error) {
	encoded := base64.StdEncoding.EncodeToString(imageData)

	payload := map[string]interface{}{
		"model": v.model,
		"messages": []map[string]interface{}{
			{"role": "system", "content": visionPrompt},
			{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type": "image_url",
						"image_url": map[string]string{
							"url": "data:image/jpeg;base64," + encoded,
						},
					},
				},
			},
		},
		"temperature":           0.6,
		"max_completion_tokens": 1024,
		"top_p":                 0.8,
		"response_format":       map[string]string{"type": "json_object"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode vision request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build vision request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+v.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vision API returned status %d", resp.StatusCode)
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("failed to decode vision response: %v", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("vision API returned no choices")
	}

	var analysis map[string]interface{}
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &analysis); err != nil {
		return nil, fmt.Errorf("vision model returned invalid JSON: %v", err)
	}
	return analysis, nil
}
