package query

import (
	"context"
	"math"
	"time"

	"github.com/burnbook/burnbook/internal/models"
	"github.com/burnbook/burnbook/internal/store"
	"github.com/sirupsen/logrus"
)

// Number of recent records selected as answer context. Selection is
// recency plus filter only; no semantic ranking.
const contextRecordLimit = 20

const maxSources = 5
const snippetLength = 150

// AggregateTotals holds the integer-rounded percentages behind an answer
type AggregateTotals struct {
	TotalMentions   int
	PositivePercent int
	NegativePercent int
	NeutralPercent  int
}

// Totals sums the summary rows into zero-safe rounded percentages
func Totals(summary []models.SentimentSummary) AggregateTotals {
	var totals AggregateTotals
	var positive, negative, neutral int
	for _, s := range summary {
		totals.TotalMentions += s.TotalMentions
		positive += s.PositiveCount
		negative += s.NegativeCount
		neutral += s.NeutralCount
	}
	if totals.TotalMentions == 0 {
		return totals
	}
	totals.PositivePercent = roundPercent(positive, totals.TotalMentions)
	totals.NegativePercent = roundPercent(negative, totals.TotalMentions)
	totals.NeutralPercent = roundPercent(neutral, totals.TotalMentions)
	return totals
}

func roundPercent(count, total int) int {
	return int(math.Round(float64(count) / float64(total) * 100))
}

// Service answers free-text questions about the sentiment aggregate
type Service struct {
	store    store.Store
	answerer AnswerGenerator
}

// NewService creates the query answerer
func NewService(st store.Store, answerer AnswerGenerator) *Service {
	return &Service{store: st, answerer: answerer}
}

// Answer selects context, generates an answer, and logs the query. It
// always produces a renderable response; only context selection failures
// surface as errors.
func (s *Service) Answer(ctx context.Context, req models.QueryRequest) models.QueryResponse {
	start := time.Now()

	summary, err := s.store.GetSummary(ctx, req.EntityType, req.EntityName)
	if err != nil {
		logrus.Errorf("Failed to read sentiment summary: %v", err)
		return models.QueryResponse{Success: false, Error: "failed to read sentiment summary"}
	}

	records, err := s.store.RecentRecords(ctx, contextRecordLimit, req.EntityType, req.EntityName)
	if err != nil {
		logrus.Errorf("Failed to read recent records: %v", err)
		return models.QueryResponse{Success: false, Error: "failed to read recent sentiment records"}
	}

	if ctx.Err() != nil {
		return models.QueryResponse{Success: false, Error: "query cancelled"}
	}

	data := Context{Summary: summary, Records: records}
	answer, err := s.answerer.GenerateAnswer(ctx, req.Question, data)
	if err != nil {
		// The fallback chain never fails, but the interface allows it.
		logrus.Errorf("Answer generation failed: %v", err)
		return models.QueryResponse{Success: false, Error: "failed to generate answer"}
	}

	totals := Totals(summary)
	responseTime := time.Since(start).Milliseconds()

	// Query log writes are non-fatal to returning the answer.
	if err := s.store.InsertQueryLog(ctx, req.Question, answer, responseTime); err != nil {
		logrus.Warnf("Failed to log query: %v", err)
	}

	return models.QueryResponse{
		Success: true,
		Answer:  answer,
		Sources: buildSources(records),
		Summary: models.QuerySummary{
			TotalMentions:   totals.TotalMentions,
			PositivePercent: totals.PositivePercent,
			NegativePercent: totals.NegativePercent,
			NeutralPercent:  totals.NeutralPercent,
		},
		ResponseTimeMs: responseTime,
	}
}

// buildSources picks at most maxSources sample records in selection order
func buildSources(records []models.RecordContext) []models.QuerySource {
	var sources []models.QuerySource
	for _, r := range records {
		if len(sources) >= maxSources {
			break
		}
		sources = append(sources, models.QuerySource{
			PostID:    r.PostID,
			Title:     r.PostTitle,
			Snippet:   snippet(r.PostBody),
			Sentiment: r.Record.Sentiment,
		})
	}
	return sources
}

func snippet(body string) string {
	runes := []rune(body)
	if len(runes) > snippetLength {
		return string(runes[:snippetLength]) + "..."
	}
	return body + "..."
}
