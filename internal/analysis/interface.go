package analysis

import (
	"context"

	"github.com/burnbook/burnbook/internal/models"
)

// SentimentClassifier scores a blob of text. Implementations must keep
// sentiment_score = P(positive) - P(negative) and pick the sentiment label
// with the shared tie-break rule (see keyword.go).
type SentimentClassifier interface {
	Classify(ctx context.Context, text string) (models.SentimentScore, error)
}

// EntityExtractor finds named entities mentioned in text, de-duplicated by
// name within one call.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) ([]models.ExtractedEntity, error)
}

// Provider bundles both capabilities the way the remote and local
// implementations expose them.
type Provider interface {
	SentimentClassifier
	EntityExtractor
}
