package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/burnbook/burnbook/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Context is the data handed to an answer generator: the filtered summary
// rows plus a recency-ordered sample of analyzed records.
type Context struct {
	Summary []models.SentimentSummary
	Records []models.RecordContext
}

// AnswerGenerator turns a question plus context into a natural-language
// answer.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, data Context) (string, error)
}

const systemPrompt = `You are a helpful product manager assistant analyzing Reddit sentiment data.
You have access to sentiment analysis results from Reddit posts about a company's products and features.
Answer questions based on the provided context. Be concise and actionable.
If you don't have enough data to answer, say so.`

// AzureOpenAIAnswerer generates answers through an Azure OpenAI chat
// completions deployment.
type AzureOpenAIAnswerer struct {
	endpoint   string
	apiKey     string
	deployment string
	client     *resty.Client
}

var _ AnswerGenerator = (*AzureOpenAIAnswerer)(nil)

// NewAzureOpenAIAnswerer builds the remote answer generator
func NewAzureOpenAIAnswerer(endpoint, apiKey, deployment string) *AzureOpenAIAnswerer {
	return &AzureOpenAIAnswerer{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		apiKey:     apiKey,
		deployment: deployment,
		client:     resty.New().SetTimeout(30 * time.Second),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateAnswer posts the question and context to the chat completions API
func (a *AzureOpenAIAnswerer) GenerateAnswer(ctx context.Context, question string, data Context) (string, error) {
	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=2024-02-15-preview",
		a.endpoint, a.deployment)

	var contextLines []string
	for _, r := range data.Records {
		body := r.PostBody
		if len(body) > 200 {
			body = body[:200]
		}
		contextLines = append(contextLines, fmt.Sprintf("- [%s] %s: %q", r.Record.Sentiment, r.EntityName,
			strings.TrimSpace(r.PostTitle+" "+body)))
	}

	var summaryLines []string
	for _, s := range data.Summary {
		summaryLines = append(summaryLines, fmt.Sprintf("%s (%s): %d mentions, %d positive, %d negative",
			s.EntityName, s.EntityType, s.TotalMentions, s.PositiveCount, s.NegativeCount))
	}

	summaryStr := strings.Join(summaryLines, "\n")
	if summaryStr == "" {
		summaryStr = "No summary data available"
	}
	contextStr := strings.Join(contextLines, "\n")
	if contextStr == "" {
		contextStr = "No posts available"
	}

	userPrompt := fmt.Sprintf(`Question: %s

Sentiment Summary:
%s

Recent Posts:
%s

Please provide a concise answer with actionable insights for a product manager.`,
		question, summaryStr, contextStr)

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("api-key", a.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(chatRequest{
			Messages: []chatMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: userPrompt},
			},
			Temperature: 0.7,
			MaxTokens:   500,
		}).
		Post(endpoint)
	if err != nil {
		return "", fmt.Errorf("azure openai request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("azure openai returned status %d", resp.StatusCode())
	}

	var result chatResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("decode azure openai response: %w", err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("azure openai returned no choices")
	}

	return result.Choices[0].Message.Content, nil
}

// FallbackAnswerer chains a remote generator with the deterministic
// template answerer. The template answerer never fails, so neither does
// the chain.
type FallbackAnswerer struct {
	primary  AnswerGenerator // nil when no remote generator is configured
	fallback *TemplateAnswerer
}

var _ AnswerGenerator = (*FallbackAnswerer)(nil)

// NewFallbackAnswerer wires the chain. primary may be nil.
func NewFallbackAnswerer(primary AnswerGenerator) *FallbackAnswerer {
	return &FallbackAnswerer{primary: primary, fallback: NewTemplateAnswerer()}
}

// GenerateAnswer prefers the remote generator and falls back silently
func (f *FallbackAnswerer) GenerateAnswer(ctx context.Context, question string, data Context) (string, error) {
	if f.primary != nil {
		answer, err := f.primary.GenerateAnswer(ctx, question, data)
		if err == nil {
			return answer, nil
		}
		logrus.Warnf("Remote answer generator failed, using template fallback: %v", err)
	}
	return f.fallback.GenerateAnswer(ctx, question, data)
}
