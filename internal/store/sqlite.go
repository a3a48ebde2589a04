package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/burnbook/burnbook/internal/models"
	"github.com/sirupsen/logrus"
)

// sqliteStore implements Store on SQLite
type sqliteStore struct {
	db *sql.DB
}

var _ Store = (*sqliteStore)(nil)

// Open opens a SQLite database with WAL mode and foreign keys enabled and
// initializes the schema.
func Open(ctx context.Context, path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	reddit_id TEXT UNIQUE NOT NULL,
	subreddit TEXT NOT NULL,
	title TEXT,
	body TEXT,
	author TEXT,
	url TEXT NOT NULL,
	post_type TEXT NOT NULL DEFAULT 'post',
	score INTEGER NOT NULL DEFAULT 0,
	num_comments INTEGER NOT NULL DEFAULT 0,
	created_utc TEXT,
	ingested_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE(normalized_name, entity_type)
);

CREATE TABLE IF NOT EXISTS sentiment_analysis (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id INTEGER NOT NULL,
	entity_id INTEGER NOT NULL,
	sentiment TEXT NOT NULL,
	confidence REAL NOT NULL,
	sentiment_score REAL NOT NULL,
	key_phrases TEXT NOT NULL DEFAULT '[]',
	analyzed_at TEXT NOT NULL,
	UNIQUE(post_id, entity_id),
	FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE CASCADE,
	FOREIGN KEY(entity_id) REFERENCES entities(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS ingestion_jobs (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	status TEXT NOT NULL,
	posts_found INTEGER NOT NULL DEFAULT 0,
	posts_analyzed INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	started_at TEXT NOT NULL,
	completed_at TEXT
);

CREATE TABLE IF NOT EXISTS sentiment_summary (
	entity_id INTEGER PRIMARY KEY,
	entity_name TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	total_mentions INTEGER NOT NULL,
	positive_count INTEGER NOT NULL,
	negative_count INTEGER NOT NULL,
	neutral_count INTEGER NOT NULL,
	mixed_count INTEGER NOT NULL,
	avg_sentiment_score REAL NOT NULL,
	avg_confidence REAL NOT NULL,
	refreshed_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS nl_queries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	response_time_ms INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sentiment_entity ON sentiment_analysis(entity_id);
CREATE INDEX IF NOT EXISTS idx_sentiment_analyzed_at ON sentiment_analysis(analyzed_at);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertPost inserts or overwrites a post by reddit_id
func (s *sqliteStore) UpsertPost(ctx context.Context, post models.Post) (int64, error) {
	ingestedAt := post.IngestedAt
	if ingestedAt.IsZero() {
		ingestedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO posts (reddit_id, subreddit, title, body, author, url, post_type, score, num_comments, created_utc, ingested_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(reddit_id) DO UPDATE SET
	subreddit = excluded.subreddit,
	title = excluded.title,
	body = excluded.body,
	author = excluded.author,
	url = excluded.url,
	post_type = excluded.post_type,
	score = excluded.score,
	num_comments = excluded.num_comments,
	created_utc = excluded.created_utc,
	ingested_at = excluded.ingested_at`,
		post.RedditID, post.Subreddit, post.Title, post.Body, post.Author,
		post.URL, post.PostType, post.Score, post.NumComments,
		post.CreatedUTC.UTC().Format(time.RFC3339), ingestedAt.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("upsert post %s: %w", post.RedditID, err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM posts WHERE reddit_id = ?`, post.RedditID).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolve post id %s: %w", post.RedditID, err)
	}
	return id, nil
}

// UpsertEntity inserts or matches an entity by (normalized_name, entity_type)
func (s *sqliteStore) UpsertEntity(ctx context.Context, entity models.Entity) (int64, error) {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO entities (name, normalized_name, entity_type, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(normalized_name, entity_type) DO UPDATE SET
	name = excluded.name`,
		entity.Name, entity.NormalizedName, entity.EntityType, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("upsert entity %s: %w", entity.NormalizedName, err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM entities WHERE normalized_name = ? AND entity_type = ?`,
		entity.NormalizedName, entity.EntityType).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolve entity id %s: %w", entity.NormalizedName, err)
	}
	return id, nil
}

// UpsertSentiment writes the verdict for one (post, entity) pair
func (s *sqliteStore) UpsertSentiment(ctx context.Context, record models.SentimentRecord) error {
	phrases := record.KeyPhrases
	if phrases == nil {
		phrases = []string{}
	}
	phrasesJSON, err := json.Marshal(phrases)
	if err != nil {
		return fmt.Errorf("marshal key phrases: %w", err)
	}

	analyzedAt := record.AnalyzedAt
	if analyzedAt.IsZero() {
		analyzedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO sentiment_analysis (post_id, entity_id, sentiment, confidence, sentiment_score, key_phrases, analyzed_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(post_id, entity_id) DO UPDATE SET
	sentiment = excluded.sentiment,
	confidence = excluded.confidence,
	sentiment_score = excluded.sentiment_score,
	key_phrases = excluded.key_phrases,
	analyzed_at = excluded.analyzed_at`,
		record.PostID, record.EntityID, record.Sentiment, record.Confidence,
		record.SentimentScore, string(phrasesJSON), analyzedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert sentiment (post %d, entity %d): %w", record.PostID, record.EntityID, err)
	}
	return nil
}

// statusRank orders job statuses so transitions only move forward
func statusRank(status string) int {
	switch status {
	case models.JobStatusPending:
		return 0
	case models.JobStatusProcessing:
		return 1
	case models.JobStatusCompleted, models.JobStatusFailed:
		return 2
	default:
		return -1
	}
}

// CreateJob persists a new ingestion job row
func (s *sqliteStore) CreateJob(ctx context.Context, job models.IngestionJob) error {
	startedAt := job.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO ingestion_jobs (id, url, status, posts_found, posts_analyzed, error_message, started_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.URL, job.Status, job.PostsFound, job.PostsAnalyzed,
		job.ErrorMessage, startedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("create job %s: %w", job.ID, err)
	}
	return nil
}

// UpdateJobStatus moves a job forward; backward transitions are rejected
func (s *sqliteStore) UpdateJobStatus(ctx context.Context, id, status, errorMessage string) error {
	if statusRank(status) < 0 {
		return fmt.Errorf("unknown job status %q", status)
	}

	job, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if statusRank(status) < statusRank(job.Status) {
		return fmt.Errorf("job %s: illegal transition %s -> %s", id, job.Status, status)
	}
	if statusRank(job.Status) == 2 && job.Status != status {
		return fmt.Errorf("job %s: already terminal as %s", id, job.Status)
	}

	var completedAt interface{}
	if status == models.JobStatusCompleted || status == models.JobStatusFailed {
		completedAt = time.Now().UTC().Format(time.RFC3339)
	}

	_, err = s.db.ExecContext(ctx, `
UPDATE ingestion_jobs SET status = ?, error_message = ?, completed_at = COALESCE(?, completed_at)
WHERE id = ?`,
		status, errorMessage, completedAt, id)
	if err != nil {
		return fmt.Errorf("update job %s status: %w", id, err)
	}
	return nil
}

// SetJobPostsFound records the fetch result size
func (s *sqliteStore) SetJobPostsFound(ctx context.Context, id string, postsFound int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE ingestion_jobs SET posts_found = ? WHERE id = ?`, postsFound, id)
	if err != nil {
		return fmt.Errorf("set posts_found for job %s: %w", id, err)
	}
	return nil
}

// SetJobPostsAnalyzed persists the progress counter. The MAX guard keeps
// the counter monotonic.
func (s *sqliteStore) SetJobPostsAnalyzed(ctx context.Context, id string, postsAnalyzed int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE ingestion_jobs SET posts_analyzed = MAX(posts_analyzed, ?) WHERE id = ?`, postsAnalyzed, id)
	if err != nil {
		return fmt.Errorf("set posts_analyzed for job %s: %w", id, err)
	}
	return nil
}

// GetJob loads a job by id
func (s *sqliteStore) GetJob(ctx context.Context, id string) (models.IngestionJob, error) {
	var job models.IngestionJob
	var errorMessage sql.NullString
	var startedAt string
	var completedAt sql.NullString

	err := s.db.QueryRowContext(ctx, `
SELECT id, url, status, posts_found, posts_analyzed, error_message, started_at, completed_at
FROM ingestion_jobs WHERE id = ?`, id).Scan(
		&job.ID, &job.URL, &job.Status, &job.PostsFound, &job.PostsAnalyzed,
		&errorMessage, &startedAt, &completedAt)
	if err != nil {
		return models.IngestionJob{}, fmt.Errorf("get job %s: %w", id, err)
	}

	job.ErrorMessage = errorMessage.String
	if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		job.StartedAt = t
	}
	if completedAt.Valid {
		if t, err := time.Parse(time.RFC3339, completedAt.String); err == nil {
			job.CompletedAt = &t
		}
	}
	return job, nil
}

// FailInterruptedJobs marks jobs abandoned by a previous process run as
// failed. Interrupted jobs are terminal; re-submission starts a new job.
func (s *sqliteStore) FailInterruptedJobs(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `
UPDATE ingestion_jobs
SET status = ?, error_message = 'Job interrupted by service restart', completed_at = ?
WHERE status IN (?, ?)`,
		models.JobStatusFailed, time.Now().UTC().Format(time.RFC3339),
		models.JobStatusPending, models.JobStatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("fail interrupted jobs: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count interrupted jobs: %w", err)
	}
	return int(n), nil
}

// RefreshSummary recomputes the per-entity aggregate from the sentiment
// records. Invalidate-and-recompute, never incremental, so the summary can
// always be re-derived and cannot drift.
func (s *sqliteStore) RefreshSummary(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin summary refresh: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sentiment_summary`); err != nil {
		return fmt.Errorf("clear summary: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO sentiment_summary (entity_id, entity_name, entity_type, total_mentions,
	positive_count, negative_count, neutral_count, mixed_count,
	avg_sentiment_score, avg_confidence, refreshed_at)
SELECT
	e.id,
	e.name,
	e.entity_type,
	COUNT(*),
	SUM(CASE WHEN sa.sentiment = 'positive' THEN 1 ELSE 0 END),
	SUM(CASE WHEN sa.sentiment = 'negative' THEN 1 ELSE 0 END),
	SUM(CASE WHEN sa.sentiment = 'neutral' THEN 1 ELSE 0 END),
	SUM(CASE WHEN sa.sentiment = 'mixed' THEN 1 ELSE 0 END),
	AVG(sa.sentiment_score),
	AVG(sa.confidence),
	?
FROM sentiment_analysis sa
JOIN entities e ON e.id = sa.entity_id
GROUP BY e.id, e.name, e.entity_type`,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recompute summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit summary refresh: %w", err)
	}

	logrus.Debug("Sentiment summary refreshed")
	return nil
}

// GetSummary reads the aggregate, optionally filtered
func (s *sqliteStore) GetSummary(ctx context.Context, entityType, entityName string) ([]models.SentimentSummary, error) {
	query := `
SELECT entity_id, entity_name, entity_type, total_mentions,
	positive_count, negative_count, neutral_count, mixed_count,
	avg_sentiment_score, avg_confidence
FROM sentiment_summary WHERE 1=1`
	var args []interface{}

	if entityType != "" {
		query += ` AND entity_type = ?`
		args = append(args, entityType)
	}
	if entityName != "" {
		query += ` AND entity_name LIKE ?`
		args = append(args, "%"+entityName+"%")
	}
	query += ` ORDER BY total_mentions DESC, entity_name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.SentimentSummary
	for rows.Next() {
		var sum models.SentimentSummary
		if err := rows.Scan(&sum.EntityID, &sum.EntityName, &sum.EntityType,
			&sum.TotalMentions, &sum.PositiveCount, &sum.NegativeCount,
			&sum.NeutralCount, &sum.MixedCount,
			&sum.AvgSentimentScore, &sum.AvgConfidence); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// RecentRecords returns the newest sentiment records with post and entity
// context. Selection is recency plus filter only, never semantic ranking.
func (s *sqliteStore) RecentRecords(ctx context.Context, limit int, entityType, entityName string) ([]models.RecordContext, error) {
	query := `
SELECT sa.id, sa.post_id, sa.entity_id, sa.sentiment, sa.confidence,
	sa.sentiment_score, sa.key_phrases, sa.analyzed_at,
	p.reddit_id, COALESCE(p.title, ''), COALESCE(p.body, ''),
	e.name, e.entity_type
FROM sentiment_analysis sa
JOIN posts p ON p.id = sa.post_id
JOIN entities e ON e.id = sa.entity_id
WHERE 1=1`
	var args []interface{}

	if entityType != "" {
		query += ` AND e.entity_type = ?`
		args = append(args, entityType)
	}
	if entityName != "" {
		query += ` AND e.name LIKE ?`
		args = append(args, "%"+entityName+"%")
	}
	query += ` ORDER BY sa.analyzed_at DESC, sa.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent records: %w", err)
	}
	defer rows.Close()

	var records []models.RecordContext
	for rows.Next() {
		var rc models.RecordContext
		var phrasesJSON string
		var analyzedAt string
		if err := rows.Scan(&rc.Record.ID, &rc.Record.PostID, &rc.Record.EntityID,
			&rc.Record.Sentiment, &rc.Record.Confidence, &rc.Record.SentimentScore,
			&phrasesJSON, &analyzedAt,
			&rc.PostID, &rc.PostTitle, &rc.PostBody,
			&rc.EntityName, &rc.EntityType); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		if err := json.Unmarshal([]byte(phrasesJSON), &rc.Record.KeyPhrases); err != nil {
			rc.Record.KeyPhrases = nil
		}
		if t, err := time.Parse(time.RFC3339Nano, analyzedAt); err == nil {
			rc.Record.AnalyzedAt = t
		}
		records = append(records, rc)
	}
	return records, rows.Err()
}

// InsertQueryLog appends a query to the log
func (s *sqliteStore) InsertQueryLog(ctx context.Context, question, answer string, responseTimeMs int64) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO nl_queries (question, answer, response_time_ms, created_at)
VALUES (?, ?, ?, ?)`,
		question, answer, responseTimeMs, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert query log: %w", err)
	}
	return nil
}
