package models

import "time"

// Sentiment values assigned to a (post, entity) pair.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentMixed    = "mixed"
)

// Entity types tracked by the dashboard.
const (
	EntityTypeCompany = "company"
	EntityTypeProduct = "product"
	EntityTypeFeature = "feature"
)

// Ingestion job statuses. Transitions only move forward:
// pending -> processing -> completed | failed.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Post represents a Reddit post or comment captured during ingestion
type Post struct {
	ID          int64     `json:"id"`
	RedditID    string    `json:"reddit_id"`
	Subreddit   string    `json:"subreddit"`
	Title       string    `json:"title,omitempty"`
	Body        string    `json:"body,omitempty"`
	Author      string    `json:"author,omitempty"`
	URL         string    `json:"url"`
	PostType    string    `json:"post_type"` // "post" or "comment"
	Score       int       `json:"score"`
	NumComments int       `json:"num_comments"`
	CreatedUTC  time.Time `json:"created_utc"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// Entity is a tracked company, product, or feature that posts can mention
type Entity struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	NormalizedName string    `json:"normalized_name"`
	EntityType     string    `json:"entity_type"`
	CreatedAt      time.Time `json:"created_at"`
}

// ExtractedEntity is a raw extractor hit before normalization
type ExtractedEntity struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// SentimentScore is the result of classifying one blob of text
type SentimentScore struct {
	Sentiment      string   `json:"sentiment"`
	Confidence     float64  `json:"confidence"`
	SentimentScore float64  `json:"sentiment_score"`
	KeyPhrases     []string `json:"key_phrases"`
}

// SentimentRecord is the persisted verdict for one (post, entity) pair
type SentimentRecord struct {
	ID             int64     `json:"id"`
	PostID         int64     `json:"post_id"`
	EntityID       int64     `json:"entity_id"`
	Sentiment      string    `json:"sentiment"`
	Confidence     float64   `json:"confidence"`
	SentimentScore float64   `json:"sentiment_score"`
	KeyPhrases     []string  `json:"key_phrases"`
	AnalyzedAt     time.Time `json:"analyzed_at"`
}

// IngestionJob tracks one unit of work fetching and analyzing a Reddit URL
type IngestionJob struct {
	ID            string     `json:"id"`
	URL           string     `json:"url"`
	Status        string     `json:"status"`
	PostsFound    int        `json:"posts_found"`
	PostsAnalyzed int        `json:"posts_analyzed"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// SentimentSummary is the derived per-entity aggregate. It is a view over
// SentimentRecord rows, never a source of truth.
type SentimentSummary struct {
	EntityID          int64   `json:"entity_id"`
	EntityName        string  `json:"entity_name"`
	EntityType        string  `json:"entity_type"`
	TotalMentions     int     `json:"total_mentions"`
	PositiveCount     int     `json:"positive_count"`
	NegativeCount     int     `json:"negative_count"`
	NeutralCount      int     `json:"neutral_count"`
	MixedCount        int     `json:"mixed_count"`
	AvgSentimentScore float64 `json:"avg_sentiment_score"`
	AvgConfidence     float64 `json:"avg_confidence"`
}

// RecordContext is a sentiment record joined with its post and entity,
// used when selecting query context
type RecordContext struct {
	Record     SentimentRecord `json:"record"`
	PostID     string          `json:"post_id"`
	PostTitle  string          `json:"post_title"`
	PostBody   string          `json:"post_body"`
	EntityName string          `json:"entity_name"`
	EntityType string          `json:"entity_type"`
}

// IngestRequest is the body of POST /api/ingest
type IngestRequest struct {
	URL string `json:"url"`
}

// IngestResult summarizes the analysis of one post within a job
type IngestResult struct {
	PostID     string   `json:"postId"`
	Sentiment  string   `json:"sentiment"`
	Confidence float64  `json:"confidence"`
	Entities   []string `json:"entities"`
}

// IngestResponse is the structured outcome of an ingestion job
type IngestResponse struct {
	Success       bool           `json:"success"`
	JobID         string         `json:"jobId,omitempty"`
	PostsFound    int            `json:"postsFound,omitempty"`
	PostsAnalyzed int            `json:"postsAnalyzed,omitempty"`
	Results       []IngestResult `json:"results,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// AnalyzeRequest is the body of POST /api/analyze
type AnalyzeRequest struct {
	Text string `json:"text"`
}

// AnalyzeResponse is the result of classifying raw text
type AnalyzeResponse struct {
	Success        bool              `json:"success"`
	Sentiment      string            `json:"sentiment,omitempty"`
	Confidence     float64           `json:"confidence,omitempty"`
	SentimentScore float64           `json:"sentimentScore,omitempty"`
	KeyPhrases     []string          `json:"keyPhrases,omitempty"`
	Entities       []ExtractedEntity `json:"entities,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// QueryRequest is the body of POST /api/query
type QueryRequest struct {
	Question   string `json:"question"`
	EntityType string `json:"entityType,omitempty"`
	EntityName string `json:"entityName,omitempty"`
}

// QuerySource is one sample post backing an answer
type QuerySource struct {
	PostID    string `json:"postId"`
	Title     string `json:"title,omitempty"`
	Snippet   string `json:"snippet"`
	Sentiment string `json:"sentiment"`
}

// QuerySummary carries the aggregate percentages behind an answer
type QuerySummary struct {
	TotalMentions   int `json:"totalMentions"`
	PositivePercent int `json:"positivePercent"`
	NegativePercent int `json:"negativePercent"`
	NeutralPercent  int `json:"neutralPercent"`
}

// QueryResponse is the result of answering a natural-language question
type QueryResponse struct {
	Success        bool          `json:"success"`
	Answer         string        `json:"answer,omitempty"`
	Sources        []QuerySource `json:"sources,omitempty"`
	Summary        QuerySummary  `json:"summary"`
	ResponseTimeMs int64         `json:"responseTimeMs"`
	Error          string        `json:"error,omitempty"`
}
