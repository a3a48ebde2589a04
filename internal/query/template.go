package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/burnbook/burnbook/internal/models"
)

// TemplateAnswerer is the deterministic local answer generator. It selects
// a response branch by matching keyword categories in the question and
// interpolates computed aggregate percentages. It always returns an answer.
type TemplateAnswerer struct{}

var _ AnswerGenerator = (*TemplateAnswerer)(nil)

// NewTemplateAnswerer creates the local template-based generator
func NewTemplateAnswerer() *TemplateAnswerer {
	return &TemplateAnswerer{}
}

// GenerateAnswer never fails
func (t *TemplateAnswerer) GenerateAnswer(_ context.Context, question string, data Context) (string, error) {
	lower := strings.ToLower(question)

	totals := Totals(data.Summary)

	if containsAny(lower, "sentiment", "feel", "think") {
		return t.sentimentOverview(totals), nil
	}
	if containsAny(lower, "feature", "request") {
		if answer := t.featureFocus(data.Summary); answer != "" {
			return answer, nil
		}
	}
	if containsAny(lower, "product", "compare") {
		if answer := t.productComparison(data.Summary); answer != "" {
			return answer, nil
		}
	}

	return t.genericOverview(totals, data.Summary), nil
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func (t *TemplateAnswerer) sentimentOverview(totals AggregateTotals) string {
	mood := "mixed"
	if totals.PositivePercent > totals.NegativePercent {
		mood = "mostly positive"
	}

	recommendation := "There are opportunities for improvement. Consider addressing the negative feedback themes in your next sprint."
	if totals.PositivePercent > 60 {
		recommendation = "Users are generally satisfied. Continue current direction and consider highlighting these positive aspects in marketing."
	}

	return fmt.Sprintf(`Based on the analyzed Reddit posts, the overall sentiment is %s.

**Key Insights:**
- %d%% of mentions are positive
- %d%% of mentions are negative
- Total mentions analyzed: %d

**Recommendations:**
%s`, mood, totals.PositivePercent, totals.NegativePercent, totals.TotalMentions, recommendation)
}

func (t *TemplateAnswerer) featureFocus(summary []models.SentimentSummary) string {
	var lines []string
	for _, s := range summary {
		if s.EntityType != models.EntityTypeFeature {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %d mentions (%d positive, %d negative)",
			s.EntityName, s.TotalMentions, s.PositiveCount, s.NegativeCount))
	}
	if len(lines) == 0 {
		return ""
	}

	return fmt.Sprintf(`Based on Reddit discussions, here are the feature-related insights:

**Most Discussed Features:**
%s

**Recommendation:** Focus on improving features with high mention counts but lower positive ratios.`,
		strings.Join(lines, "\n"))
}

func (t *TemplateAnswerer) productComparison(summary []models.SentimentSummary) string {
	var lines []string
	var first string
	for _, s := range summary {
		if s.EntityType != models.EntityTypeProduct {
			continue
		}
		if first == "" {
			first = s.EntityName
		}
		lines = append(lines, fmt.Sprintf("**%s:** %d mentions, sentiment score: %.0f%%",
			s.EntityName, s.TotalMentions, s.AvgSentimentScore*100))
	}
	if len(lines) == 0 {
		return ""
	}

	return fmt.Sprintf(`**Product Sentiment Analysis:**

%s

**Key Takeaway:** %s has the most engagement. Monitor trends over time for actionable insights.`,
		strings.Join(lines, "\n"), first)
}

func (t *TemplateAnswerer) genericOverview(totals AggregateTotals, summary []models.SentimentSummary) string {
	var topEntities []string
	for i, s := range summary {
		if i >= 3 {
			break
		}
		topEntities = append(topEntities, fmt.Sprintf("- %s (%s): %d mentions",
			s.EntityName, s.EntityType, s.TotalMentions))
	}

	return fmt.Sprintf(`Based on %d analyzed Reddit posts:

**Sentiment Overview:**
- Positive: %d%%
- Negative: %d%%
- Neutral: %d%%

**Top Entities Discussed:**
%s

For more specific insights, try asking about:
- "What do users think about [specific feature]?"
- "Compare sentiment across products"
- "What features are users requesting?"`,
		totals.TotalMentions, totals.PositivePercent, totals.NegativePercent, totals.NeutralPercent,
		strings.Join(topEntities, "\n"))
}
