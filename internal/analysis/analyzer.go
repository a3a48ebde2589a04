package analysis

import (
	"context"
	"strings"

	"github.com/burnbook/burnbook/internal/models"
	"github.com/sirupsen/logrus"
)

// MinAnalyzableLength is the minimum text length worth classifying. Posts
// below it are skipped, which is a deliberate exclusion, not an error.
const MinAnalyzableLength = 10

// Analyzer tries the remote provider first and falls back to the local
// deterministic one on any error. Fallback is silent: a provider outage is
// never a user-visible failure.
type Analyzer struct {
	primary  Provider // nil when no remote provider is configured
	fallback Provider
}

// NewAnalyzer wires the fallback chain. primary may be nil.
func NewAnalyzer(primary Provider) *Analyzer {
	return &Analyzer{
		primary:  primary,
		fallback: NewKeywordAnalyzer(),
	}
}

// Classify scores text, preferring the remote provider
func (a *Analyzer) Classify(ctx context.Context, text string) (models.SentimentScore, error) {
	if a.primary != nil {
		score, err := a.primary.Classify(ctx, text)
		if err == nil {
			return score, nil
		}
		logrus.Warnf("Remote sentiment provider failed, using keyword fallback: %v", err)
	}
	return a.fallback.Classify(ctx, text)
}

// Extract finds entities, preferring the remote provider. Extraction
// failure must never fail a whole analysis, so the fallback result is
// always returned when the remote call errors.
func (a *Analyzer) Extract(ctx context.Context, text string) ([]models.ExtractedEntity, error) {
	if a.primary != nil {
		entities, err := a.primary.Extract(ctx, text)
		if err == nil {
			return entities, nil
		}
		logrus.Warnf("Remote entity provider failed, using keyword fallback: %v", err)
	}
	return a.fallback.Extract(ctx, text)
}

// AnalyzableText builds the string analyzed for a post: the non-empty
// title and body joined by a single space.
func AnalyzableText(post models.Post) string {
	parts := make([]string, 0, 2)
	if post.Title != "" {
		parts = append(parts, post.Title)
	}
	if post.Body != "" {
		parts = append(parts, post.Body)
	}
	return strings.Join(parts, " ")
}

// IsAnalyzable reports whether the text is long enough to classify
func IsAnalyzable(text string) bool {
	return len(strings.TrimSpace(text)) >= MinAnalyzableLength
}
