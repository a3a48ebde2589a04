package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/burnbook/burnbook/internal/models"
	"github.com/go-resty/resty/v2"
)

// AzureProvider calls the Azure AI Language analyze-text API for sentiment,
// key phrases, and named entities.
type AzureProvider struct {
	endpoint string
	apiKey   string
	client   *resty.Client
}

var _ Provider = (*AzureProvider)(nil)

// NewAzureProvider builds a provider from an Azure AI endpoint and key.
// The analyze-text path and api-version are appended when the endpoint
// does not already carry them.
func NewAzureProvider(endpoint, apiKey string) *AzureProvider {
	if !strings.Contains(endpoint, ":analyze-text") {
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		endpoint += "language/:analyze-text?api-version=2023-04-01"
	}

	return &AzureProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   resty.New().SetTimeout(20 * time.Second),
	}
}

// IsConfigured reports whether the provider has credentials to call out with
func (p *AzureProvider) IsConfigured() bool {
	return p.endpoint != "" && p.apiKey != ""
}

type analyzeRequest struct {
	Kind          string `json:"kind"`
	AnalysisInput struct {
		Documents []analyzeDocument `json:"documents"`
	} `json:"analysisInput"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

type analyzeDocument struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Text     string `json:"text"`
}

type analyzeResponse struct {
	Results struct {
		Documents []struct {
			Sentiment        string `json:"sentiment"`
			ConfidenceScores struct {
				Positive float64 `json:"positive"`
				Neutral  float64 `json:"neutral"`
				Negative float64 `json:"negative"`
			} `json:"confidenceScores"`
			KeyPhrases []string `json:"keyPhrases"`
			Entities   []struct {
				Text            string  `json:"text"`
				Category        string  `json:"category"`
				ConfidenceScore float64 `json:"confidenceScore"`
			} `json:"entities"`
		} `json:"documents"`
	} `json:"results"`
}

func (p *AzureProvider) analyze(ctx context.Context, kind, text string, parameters map[string]interface{}) (*analyzeResponse, error) {
	req := analyzeRequest{Kind: kind, Parameters: parameters}
	req.AnalysisInput.Documents = []analyzeDocument{
		{ID: "1", Language: "en", Text: Truncate(text)},
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Ocp-Apim-Subscription-Key", p.apiKey).
		SetHeader("api-key", p.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("azure ai request: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("azure ai returned status %d", resp.StatusCode())
	}

	var result analyzeResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("decode azure ai response: %w", err)
	}
	if len(result.Results.Documents) == 0 {
		return nil, fmt.Errorf("azure ai returned no documents")
	}

	return &result, nil
}

// Classify runs SentimentAnalysis plus KeyPhraseExtraction against Azure AI
func (p *AzureProvider) Classify(ctx context.Context, text string) (models.SentimentScore, error) {
	result, err := p.analyze(ctx, "SentimentAnalysis", text, map[string]interface{}{
		"opinionMining":   true,
		"stringIndexType": "TextElements_v8",
	})
	if err != nil {
		return models.SentimentScore{}, err
	}

	doc := result.Results.Documents[0]
	scores := doc.ConfidenceScores

	sentiment := doc.Sentiment
	switch sentiment {
	case models.SentimentPositive, models.SentimentNegative, models.SentimentNeutral, models.SentimentMixed:
	default:
		sentiment = models.SentimentNeutral
	}

	confidence := scores.Positive
	if scores.Neutral > confidence {
		confidence = scores.Neutral
	}
	if scores.Negative > confidence {
		confidence = scores.Negative
	}

	score := models.SentimentScore{
		Sentiment:      sentiment,
		Confidence:     confidence,
		SentimentScore: scores.Positive - scores.Negative,
	}

	// Key phrases ride along with classification; their failure does not
	// fail the sentiment verdict.
	if phrases, err := p.analyze(ctx, "KeyPhraseExtraction", text, map[string]interface{}{
		"modelVersion": "latest",
	}); err == nil {
		score.KeyPhrases = phrases.Results.Documents[0].KeyPhrases
	}

	return score, nil
}

// azureCategoryType maps Azure entity categories onto the dashboard's
// entity types. Unmapped categories are dropped.
func azureCategoryType(category string) (string, bool) {
	switch category {
	case "Organization":
		return models.EntityTypeCompany, true
	case "Product":
		return models.EntityTypeProduct, true
	case "Skill", "Event":
		return models.EntityTypeFeature, true
	default:
		return "", false
	}
}

// Extract runs EntityRecognition against Azure AI
func (p *AzureProvider) Extract(ctx context.Context, text string) ([]models.ExtractedEntity, error) {
	result, err := p.analyze(ctx, "EntityRecognition", text, map[string]interface{}{
		"modelVersion":    "latest",
		"stringIndexType": "TextElements_v8",
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var entities []models.ExtractedEntity
	for _, e := range result.Results.Documents[0].Entities {
		entityType, ok := azureCategoryType(e.Category)
		if !ok || seen[e.Text] {
			continue
		}
		seen[e.Text] = true
		entities = append(entities, models.ExtractedEntity{
			Name:       e.Text,
			Type:       entityType,
			Confidence: e.ConfidenceScore,
		})
	}

	return entities, nil
}
