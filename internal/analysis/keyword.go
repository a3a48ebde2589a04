package analysis

import (
	"context"
	"strings"

	"github.com/burnbook/burnbook/internal/models"
)

// Classification thresholds shared by every classifier implementation.
const (
	// MaxTextLength is the character limit; longer input is truncated,
	// never rejected.
	MaxTextLength = 5120

	mixedThreshold  = 0.3
	dominanceMargin = 0.2
	wordIncrement   = 0.2

	fallbackEntityConfidence = 0.85
)

var positiveWords = []string{
	"great", "awesome", "love", "excellent", "amazing",
	"helpful", "works", "good", "best", "fantastic",
}

var negativeWords = []string{
	"bad", "terrible", "hate", "awful", "problem",
	"issue", "bug", "broken", "worst", "useless",
}

// knownEntity maps keyword spellings to a curated entity
type knownEntity struct {
	name       string
	entityType string
	keywords   []string
}

var knownEntities = []knownEntity{
	{"ImageTrend", models.EntityTypeCompany, []string{"imagetrend", "image trend"}},
	{"Elite", models.EntityTypeProduct, []string{"elite", "elite epcr"}},
	{"RescueHub", models.EntityTypeProduct, []string{"rescuehub", "rescue hub"}},
	{"Mobile App", models.EntityTypeFeature, []string{"mobile app", "app", "mobile"}},
	{"Offline Mode", models.EntityTypeFeature, []string{"offline", "offline mode"}},
	{"CAD Integration", models.EntityTypeFeature, []string{"cad", "dispatch"}},
	{"Reporting", models.EntityTypeFeature, []string{"reporting", "reports", "analytics"}},
}

// KeywordAnalyzer is the deterministic local provider. It never touches the
// network and never fails, so it doubles as the silent fallback whenever a
// remote provider is unreachable or misconfigured.
type KeywordAnalyzer struct{}

var _ Provider = (*KeywordAnalyzer)(nil)

// NewKeywordAnalyzer creates the local keyword-based provider
func NewKeywordAnalyzer() *KeywordAnalyzer {
	return &KeywordAnalyzer{}
}

// Classify scores text against fixed positive/negative word lists. Each
// matched word contributes a fixed increment, scores are clamped to [0,1],
// and the shared tie-break rule picks the label.
func (a *KeywordAnalyzer) Classify(_ context.Context, text string) (models.SentimentScore, error) {
	text = Truncate(text)
	lower := strings.ToLower(text)

	var positive, negative float64
	for _, word := range positiveWords {
		if strings.Contains(lower, word) {
			positive += wordIncrement
		}
	}
	for _, word := range negativeWords {
		if strings.Contains(lower, word) {
			negative += wordIncrement
		}
	}

	positive = clamp01(positive)
	negative = clamp01(negative)

	confidence := positive
	if negative > confidence {
		confidence = negative
	}
	if confidence < 0.5 {
		confidence = 0.5
	}

	return models.SentimentScore{
		Sentiment:      ResolveSentiment(positive, negative),
		Confidence:     confidence,
		SentimentScore: positive - negative,
		KeyPhrases:     keyPhrases(text),
	}, nil
}

// Extract matches text against the curated keyword table. Each table entry
// matching at least one of its keywords contributes exactly one hit.
func (a *KeywordAnalyzer) Extract(_ context.Context, text string) ([]models.ExtractedEntity, error) {
	lower := strings.ToLower(Truncate(text))

	var entities []models.ExtractedEntity
	for _, known := range knownEntities {
		for _, keyword := range known.keywords {
			if strings.Contains(lower, keyword) {
				entities = append(entities, models.ExtractedEntity{
					Name:       known.name,
					Type:       known.entityType,
					Confidence: fallbackEntityConfidence,
				})
				break
			}
		}
	}

	return entities, nil
}

// ResolveSentiment applies the tie-break rule shared by all classifiers:
// mixed when both strengths exceed the mixed threshold, otherwise whichever
// side dominates by more than the fixed margin, otherwise neutral.
func ResolveSentiment(positive, negative float64) string {
	switch {
	case positive > mixedThreshold && negative > mixedThreshold:
		return models.SentimentMixed
	case positive > negative+dominanceMargin:
		return models.SentimentPositive
	case negative > positive+dominanceMargin:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// Truncate bounds input to the classifier character limit. The cut falls
// on a rune boundary so truncated text stays valid UTF-8.
func Truncate(text string) string {
	if len(text) <= MaxTextLength {
		return text
	}
	runes := []rune(text)
	if len(runes) <= MaxTextLength {
		return text
	}
	return string(runes[:MaxTextLength])
}

// keyPhrases extracts adjacent word pairs as crude key phrases
func keyPhrases(text string) []string {
	words := strings.Fields(text)

	var phrases []string
	for i := 0; i < len(words)-1 && len(phrases) < 5; i++ {
		if len(words[i]) > 4 && len(words[i+1]) > 4 {
			phrases = append(phrases, strings.ToLower(words[i]+" "+words[i+1]))
		}
	}
	return phrases
}

func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
