package store

import (
	"context"

	"github.com/burnbook/burnbook/internal/models"
)

// Store defines the contract for the persistence layer. It exclusively
// owns write access to posts, entities, sentiment records, and jobs; the
// summary table is derived and recomputed, never patched.
type Store interface {
	// UpsertPost inserts or overwrites a post by its Reddit id and
	// returns the row id.
	UpsertPost(ctx context.Context, post models.Post) (int64, error)

	// UpsertEntity inserts or matches an entity by its
	// (normalized_name, entity_type) identity key and returns the row id.
	UpsertEntity(ctx context.Context, entity models.Entity) (int64, error)

	// UpsertSentiment writes the verdict for one (post, entity) pair,
	// overwriting any prior verdict.
	UpsertSentiment(ctx context.Context, record models.SentimentRecord) error

	// CreateJob persists a new ingestion job row.
	CreateJob(ctx context.Context, job models.IngestionJob) error

	// UpdateJobStatus moves a job forward through its lifecycle. Backward
	// transitions are rejected.
	UpdateJobStatus(ctx context.Context, id, status, errorMessage string) error

	// SetJobPostsFound records the fetch result size, set once after fetch.
	SetJobPostsFound(ctx context.Context, id string, postsFound int) error

	// SetJobPostsAnalyzed persists the monotonic progress counter.
	SetJobPostsAnalyzed(ctx context.Context, id string, postsAnalyzed int) error

	// GetJob loads a job by id.
	GetJob(ctx context.Context, id string) (models.IngestionJob, error)

	// FailInterruptedJobs marks jobs left pending or processing by a
	// previous run as failed. Returns the number of jobs touched.
	FailInterruptedJobs(ctx context.Context) (int, error)

	// RefreshSummary recomputes the per-entity aggregate from scratch.
	RefreshSummary(ctx context.Context) error

	// GetSummary reads the aggregate, optionally filtered by entity type
	// and a case-insensitive entity name fragment.
	GetSummary(ctx context.Context, entityType, entityName string) ([]models.SentimentSummary, error)

	// RecentRecords returns the most recently analyzed sentiment records
	// joined with their post and entity, newest first.
	RecentRecords(ctx context.Context, limit int, entityType, entityName string) ([]models.RecordContext, error)

	// InsertQueryLog appends a natural-language query to the query log.
	InsertQueryLog(ctx context.Context, question, answer string, responseTimeMs int64) error

	Close() error
}
