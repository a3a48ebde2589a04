package query

import (
	"context"
	"errors"
	"testing"

	"github.com/burnbook/burnbook/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSummary() []models.SentimentSummary {
	return []models.SentimentSummary{
		{
			EntityName: "Elite", EntityType: models.EntityTypeProduct,
			TotalMentions: 10, PositiveCount: 7, NegativeCount: 2, NeutralCount: 1,
			AvgSentimentScore: 0.55,
		},
		{
			EntityName: "Offline Mode", EntityType: models.EntityTypeFeature,
			TotalMentions: 4, PositiveCount: 1, NegativeCount: 3,
			AvgSentimentScore: -0.3,
		},
	}
}

func TestTemplateAnswerer_SentimentBranch(t *testing.T) {
	answerer := NewTemplateAnswerer()

	answer, err := answerer.GenerateAnswer(context.Background(),
		"How do users feel about the platform?", Context{Summary: sampleSummary()})
	require.NoError(t, err)

	// 8 of 14 mentions positive, 5 negative.
	assert.Contains(t, answer, "57% of mentions are positive")
	assert.Contains(t, answer, "36% of mentions are negative")
	assert.Contains(t, answer, "Total mentions analyzed: 14")
	assert.Contains(t, answer, "mostly positive")
	assert.Contains(t, answer, "opportunities for improvement")
}

func TestTemplateAnswerer_SatisfiedRecommendation(t *testing.T) {
	answerer := NewTemplateAnswerer()
	summary := []models.SentimentSummary{{
		EntityName: "Elite", EntityType: models.EntityTypeProduct,
		TotalMentions: 10, PositiveCount: 9, NegativeCount: 1,
	}}

	answer, err := answerer.GenerateAnswer(context.Background(),
		"What is the overall sentiment?", Context{Summary: summary})
	require.NoError(t, err)
	assert.Contains(t, answer, "generally satisfied")
}

func TestTemplateAnswerer_FeatureBranch(t *testing.T) {
	answerer := NewTemplateAnswerer()

	answer, err := answerer.GenerateAnswer(context.Background(),
		"What features are users requesting?", Context{Summary: sampleSummary()})
	require.NoError(t, err)

	assert.Contains(t, answer, "Most Discussed Features")
	assert.Contains(t, answer, "Offline Mode: 4 mentions (1 positive, 3 negative)")
	assert.NotContains(t, answer, "Elite:")
}

func TestTemplateAnswerer_FeatureBranchFallsThrough(t *testing.T) {
	answerer := NewTemplateAnswerer()
	productsOnly := []models.SentimentSummary{{
		EntityName: "Elite", EntityType: models.EntityTypeProduct, TotalMentions: 3,
	}}

	// No feature rows exist, so the generic overview answers instead.
	answer, err := answerer.GenerateAnswer(context.Background(),
		"any feature requests?", Context{Summary: productsOnly})
	require.NoError(t, err)
	assert.Contains(t, answer, "Top Entities Discussed")
}

func TestTemplateAnswerer_ProductBranch(t *testing.T) {
	answerer := NewTemplateAnswerer()

	answer, err := answerer.GenerateAnswer(context.Background(),
		"Compare the products", Context{Summary: sampleSummary()})
	require.NoError(t, err)

	assert.Contains(t, answer, "Product Sentiment Analysis")
	assert.Contains(t, answer, "**Elite:** 10 mentions, sentiment score: 55%")
	assert.Contains(t, answer, "Elite has the most engagement")
}

func TestTemplateAnswerer_GenericBranch(t *testing.T) {
	answerer := NewTemplateAnswerer()

	answer, err := answerer.GenerateAnswer(context.Background(),
		"Tell me something interesting", Context{Summary: sampleSummary()})
	require.NoError(t, err)

	assert.Contains(t, answer, "Based on 14 analyzed Reddit posts")
	assert.Contains(t, answer, "- Elite (product): 10 mentions")
	assert.Contains(t, answer, "- Offline Mode (feature): 4 mentions")
}

func TestTemplateAnswerer_EmptySummary(t *testing.T) {
	answerer := NewTemplateAnswerer()

	answer, err := answerer.GenerateAnswer(context.Background(),
		"how do people feel?", Context{})
	require.NoError(t, err)
	assert.Contains(t, answer, "0% of mentions are positive")
	assert.Contains(t, answer, "Total mentions analyzed: 0")
}

func TestTotals(t *testing.T) {
	totals := Totals(sampleSummary())
	assert.Equal(t, 14, totals.TotalMentions)
	assert.Equal(t, 57, totals.PositivePercent)
	assert.Equal(t, 36, totals.NegativePercent)
	assert.Equal(t, 7, totals.NeutralPercent)

	empty := Totals(nil)
	assert.Zero(t, empty.TotalMentions)
	assert.Zero(t, empty.PositivePercent)
	assert.Zero(t, empty.NegativePercent)
	assert.Zero(t, empty.NeutralPercent)
}

type failingAnswerer struct{}

func (f *failingAnswerer) GenerateAnswer(context.Context, string, Context) (string, error) {
	return "", errors.New("deployment unavailable")
}

func TestFallbackAnswerer(t *testing.T) {
	answerer := NewFallbackAnswerer(&failingAnswerer{})

	answer, err := answerer.GenerateAnswer(context.Background(),
		"what do users think?", Context{Summary: sampleSummary()})
	require.NoError(t, err)
	assert.Contains(t, answer, "overall sentiment")
}

func TestFallbackAnswerer_NoPrimary(t *testing.T) {
	answerer := NewFallbackAnswerer(nil)

	answer, err := answerer.GenerateAnswer(context.Background(), "hello", Context{})
	require.NoError(t, err)
	assert.NotEmpty(t, answer)
}
