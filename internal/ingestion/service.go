package ingestion

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"sync"
	"time"

	"github.com/burnbook/burnbook/internal/analysis"
	"github.com/burnbook/burnbook/internal/archive"
	"github.com/burnbook/burnbook/internal/models"
	"github.com/burnbook/burnbook/internal/reddit"
	"github.com/burnbook/burnbook/internal/store"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// Fetcher retrieves a Reddit listing as a flat ordered sequence of posts
type Fetcher interface {
	FetchPosts(ctx context.Context, url string) ([]models.Post, error)
}

// Notifier delivers a report after a job finishes
type Notifier interface {
	SendJobReport(job models.IngestionJob, results []models.IngestResult) error
}

// Service drives the ingestion pipeline: fetch, normalize, classify,
// extract, persist, aggregate. One job processes its posts sequentially;
// separate jobs may run concurrently.
type Service struct {
	store    store.Store
	fetcher  Fetcher
	analyzer analysis.Provider
	archive  archive.Archive // optional
	notifier Notifier        // optional

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	metrics Metrics
}

// Metrics holds ingestion counters exposed on /metrics
type Metrics struct {
	JobsRun            int            `json:"jobs_run"`
	JobsFailed         int            `json:"jobs_failed"`
	PostsAnalyzed      int            `json:"posts_analyzed"`
	LastRun            time.Time      `json:"last_run"`
	LastRunDuration    string         `json:"last_run_duration"`
	SentimentBreakdown map[string]int `json:"sentiment_breakdown"`
}

// NewService creates the orchestrator. archive and notifier may be nil.
func NewService(st store.Store, fetcher Fetcher, analyzer analysis.Provider, arch archive.Archive, notifier Notifier) *Service {
	return &Service{
		store:    st,
		fetcher:  fetcher,
		analyzer: analyzer,
		archive:  arch,
		notifier: notifier,
		entropy:  ulid.Monotonic(rand.Reader, 0),
		metrics:  Metrics{SentimentBreakdown: make(map[string]int)},
	}
}

func (s *Service) newJobID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Now(), s.entropy).String()
}

// Ingest runs one job over the given Reddit URL. The returned response is
// always structured; fetch-level failures surface in its Error field after
// being recorded on the job row.
func (s *Service) Ingest(ctx context.Context, url string) models.IngestResponse {
	start := time.Now()

	if err := reddit.ValidateURL(url); err != nil {
		return models.IngestResponse{Success: false, Error: err.Error()}
	}

	job := models.IngestionJob{
		ID:        s.newJobID(),
		URL:       url,
		Status:    models.JobStatusPending,
		StartedAt: time.Now().UTC(),
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		logrus.Errorf("Failed to create ingestion job: %v", err)
		return models.IngestResponse{Success: false, Error: "failed to create ingestion job"}
	}
	if err := s.store.UpdateJobStatus(ctx, job.ID, models.JobStatusProcessing, ""); err != nil {
		logrus.Errorf("Failed to mark job %s processing: %v", job.ID, err)
	}

	logrus.Infof("Job %s: ingesting %s", job.ID, url)

	posts, err := s.fetcher.FetchPosts(ctx, url)
	if err != nil {
		return s.failJob(ctx, job.ID, err.Error())
	}
	if len(posts) == 0 {
		return s.failJob(ctx, job.ID, "No posts found at the provided Reddit URL")
	}

	if err := s.store.SetJobPostsFound(ctx, job.ID, len(posts)); err != nil {
		logrus.Errorf("Job %s: failed to record posts_found: %v", job.ID, err)
	}
	s.archiveListing(job.ID, posts)

	analyzed := 0
	skipped := 0
	var results []models.IngestResult

	for _, post := range posts {
		if ctx.Err() != nil {
			logrus.Warnf("Job %s: cancelled after %d posts", job.ID, analyzed)
			return s.failJob(ctx, job.ID, "ingestion cancelled")
		}

		result, ok := s.analyzePost(ctx, post)
		if !ok {
			skipped++
			continue
		}

		analyzed++
		results = append(results, result)
		if err := s.store.SetJobPostsAnalyzed(ctx, job.ID, analyzed); err != nil {
			logrus.Errorf("Job %s: failed to record progress: %v", job.ID, err)
		}
	}

	if err := s.store.UpdateJobStatus(ctx, job.ID, models.JobStatusCompleted, ""); err != nil {
		logrus.Errorf("Job %s: failed to mark completed: %v", job.ID, err)
	}

	logrus.Infof("Job %s: completed in %v (%d found, %d analyzed, %d skipped)",
		job.ID, time.Since(start), len(posts), analyzed, skipped)

	// Summary refresh and notification are best-effort: their failure is
	// logged and never changes job status.
	if err := s.store.RefreshSummary(ctx); err != nil {
		logrus.Warnf("Job %s: summary refresh failed: %v", job.ID, err)
	}
	s.notify(ctx, job.ID, results)

	s.recordMetrics(results, time.Since(start), false)

	return models.IngestResponse{
		Success:       true,
		JobID:         job.ID,
		PostsFound:    len(posts),
		PostsAnalyzed: analyzed,
		Results:       results,
	}
}

// analyzePost runs one post through normalize, classify, extract, persist.
// Failures here are contained: a false return skips to the next post and
// never aborts the job.
func (s *Service) analyzePost(ctx context.Context, post models.Post) (models.IngestResult, bool) {
	text := analysis.AnalyzableText(post)
	if !analysis.IsAnalyzable(text) {
		logrus.Debugf("Skipping post %s: text too short", post.RedditID)
		return models.IngestResult{}, false
	}

	score, err := s.analyzer.Classify(ctx, text)
	if err != nil {
		logrus.Errorf("Failed to classify post %s: %v", post.RedditID, err)
		return models.IngestResult{}, false
	}

	entities, err := s.analyzer.Extract(ctx, text)
	if err != nil {
		// Extractor failure never blocks classification.
		logrus.Warnf("Entity extraction failed for post %s: %v", post.RedditID, err)
		entities = nil
	}

	postID, err := s.store.UpsertPost(ctx, post)
	if err != nil {
		logrus.Errorf("Failed to save post %s: %v", post.RedditID, err)
		return models.IngestResult{}, false
	}

	var entityNames []string
	for _, entity := range entities {
		entityNames = append(entityNames, entity.Name)

		normalized := analysis.NormalizeEntityName(entity.Name)
		if normalized == "" {
			logrus.Warnf("Skipping entity with empty normalized name: %q", entity.Name)
			continue
		}

		entityID, err := s.store.UpsertEntity(ctx, models.Entity{
			Name:           entity.Name,
			NormalizedName: normalized,
			EntityType:     entity.Type,
		})
		if err != nil {
			logrus.Errorf("Failed to save entity %s: %v", normalized, err)
			continue
		}

		if err := s.store.UpsertSentiment(ctx, models.SentimentRecord{
			PostID:         postID,
			EntityID:       entityID,
			Sentiment:      score.Sentiment,
			Confidence:     score.Confidence,
			SentimentScore: score.SentimentScore,
			KeyPhrases:     score.KeyPhrases,
		}); err != nil {
			logrus.Errorf("Failed to save sentiment for post %s entity %s: %v", post.RedditID, normalized, err)
			continue
		}
	}

	return models.IngestResult{
		PostID:     post.RedditID,
		Sentiment:  score.Sentiment,
		Confidence: score.Confidence,
		Entities:   entityNames,
	}, true
}

func (s *Service) failJob(ctx context.Context, jobID, message string) models.IngestResponse {
	// The terminal write must land even when the job's own context was
	// cancelled, otherwise the job sits in processing until the next restart.
	if err := s.store.UpdateJobStatus(context.WithoutCancel(ctx), jobID, models.JobStatusFailed, message); err != nil {
		logrus.Errorf("Job %s: failed to mark failed: %v", jobID, err)
	}
	s.recordMetrics(nil, 0, true)
	return models.IngestResponse{Success: false, JobID: jobID, Error: message}
}

// archiveListing stores the fetched posts as a JSON snapshot for audit
func (s *Service) archiveListing(jobID string, posts []models.Post) {
	if s.archive == nil {
		return
	}
	data, err := json.Marshal(posts)
	if err != nil {
		logrus.Warnf("Job %s: failed to marshal listing snapshot: %v", jobID, err)
		return
	}
	if err := s.archive.Store("listings/"+jobID+".json", data); err != nil {
		logrus.Warnf("Job %s: failed to archive listing snapshot: %v", jobID, err)
	}
}

func (s *Service) notify(ctx context.Context, jobID string, results []models.IngestResult) {
	if s.notifier == nil {
		return
	}
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		logrus.Warnf("Job %s: failed to load job for notification: %v", jobID, err)
		return
	}
	if err := s.notifier.SendJobReport(job, results); err != nil {
		logrus.Warnf("Job %s: failed to send notification: %v", jobID, err)
	}
}

func (s *Service) recordMetrics(results []models.IngestResult, duration time.Duration, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.JobsRun++
	if failed {
		s.metrics.JobsFailed++
	}
	s.metrics.PostsAnalyzed += len(results)
	s.metrics.LastRun = time.Now().UTC()
	s.metrics.LastRunDuration = duration.String()
	for _, r := range results {
		s.metrics.SentimentBreakdown[r.Sentiment]++
	}
}

// GetMetrics returns current ingestion metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}

// RecoverInterruptedJobs marks jobs abandoned by a previous process run as
// failed. Called once at startup; interrupted jobs are terminal and must be
// re-submitted.
func (s *Service) RecoverInterruptedJobs(ctx context.Context) error {
	n, err := s.store.FailInterruptedJobs(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logrus.Warnf("Marked %d interrupted ingestion jobs as failed", n)
	}
	return nil
}
