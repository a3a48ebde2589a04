package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/burnbook/burnbook/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *sqliteStore {
	t.Helper()

	st, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return st.(*sqliteStore)
}

func countRows(t *testing.T, s *sqliteStore, table string) int {
	t.Helper()

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestUpsertPost_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	post := models.Post{
		RedditID:  "abc",
		Subreddit: "ems",
		Title:     "First version",
		URL:       "https://reddit.com/r/ems/comments/abc",
		PostType:  "post",
	}

	id1, err := s.UpsertPost(ctx, post)
	require.NoError(t, err)

	post.Title = "Edited version"
	id2, err := s.UpsertPost(ctx, post)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, countRows(t, s, "posts"))

	var title string
	require.NoError(t, s.db.QueryRow("SELECT title FROM posts WHERE reddit_id = 'abc'").Scan(&title))
	assert.Equal(t, "Edited version", title)
}

func TestUpsertEntity_IdentityKey(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id1, err := s.UpsertEntity(ctx, models.Entity{
		Name: "Elite", NormalizedName: "elite", EntityType: models.EntityTypeProduct,
	})
	require.NoError(t, err)

	// Same identity key matches the existing row.
	id2, err := s.UpsertEntity(ctx, models.Entity{
		Name: "Elite", NormalizedName: "elite", EntityType: models.EntityTypeProduct,
	})
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	// Same normalized name with a different type is a different entity.
	id3, err := s.UpsertEntity(ctx, models.Entity{
		Name: "Elite", NormalizedName: "elite", EntityType: models.EntityTypeFeature,
	})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)

	assert.Equal(t, 2, countRows(t, s, "entities"))
}

func TestUpsertSentiment_OverwritesVerdict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	postID, err := s.UpsertPost(ctx, models.Post{RedditID: "abc", Subreddit: "ems", URL: "u"})
	require.NoError(t, err)
	entityID, err := s.UpsertEntity(ctx, models.Entity{
		Name: "Elite", NormalizedName: "elite", EntityType: models.EntityTypeProduct,
	})
	require.NoError(t, err)

	require.NoError(t, s.UpsertSentiment(ctx, models.SentimentRecord{
		PostID: postID, EntityID: entityID,
		Sentiment: models.SentimentPositive, Confidence: 0.9, SentimentScore: 0.8,
		KeyPhrases: []string{"great product"},
	}))
	require.NoError(t, s.UpsertSentiment(ctx, models.SentimentRecord{
		PostID: postID, EntityID: entityID,
		Sentiment: models.SentimentNegative, Confidence: 0.7, SentimentScore: -0.5,
	}))

	assert.Equal(t, 1, countRows(t, s, "sentiment_analysis"))

	var sentiment string
	require.NoError(t, s.db.QueryRow(
		"SELECT sentiment FROM sentiment_analysis WHERE post_id = ? AND entity_id = ?",
		postID, entityID).Scan(&sentiment))
	assert.Equal(t, models.SentimentNegative, sentiment)
}

func TestJobLifecycle_ForwardOnly(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	job := models.IngestionJob{
		ID: "01TESTJOB", URL: "https://reddit.com/r/ems",
		Status: models.JobStatusPending, StartedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateJob(ctx, job))

	require.NoError(t, s.UpdateJobStatus(ctx, job.ID, models.JobStatusProcessing, ""))
	require.NoError(t, s.UpdateJobStatus(ctx, job.ID, models.JobStatusCompleted, ""))

	// Backward and cross-terminal transitions are rejected.
	assert.Error(t, s.UpdateJobStatus(ctx, job.ID, models.JobStatusProcessing, ""))
	assert.Error(t, s.UpdateJobStatus(ctx, job.ID, models.JobStatusFailed, "nope"))
	assert.Error(t, s.UpdateJobStatus(ctx, job.ID, "bogus", ""))

	loaded, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, loaded.Status)
	require.NotNil(t, loaded.CompletedAt)
}

func TestJobCounters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	job := models.IngestionJob{ID: "01TESTJOB", URL: "u", Status: models.JobStatusProcessing}
	require.NoError(t, s.CreateJob(ctx, job))

	require.NoError(t, s.SetJobPostsFound(ctx, job.ID, 5))
	require.NoError(t, s.SetJobPostsAnalyzed(ctx, job.ID, 2))
	require.NoError(t, s.SetJobPostsAnalyzed(ctx, job.ID, 3))
	// A lower value must not move the counter backward.
	require.NoError(t, s.SetJobPostsAnalyzed(ctx, job.ID, 1))

	loaded, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.PostsFound)
	assert.Equal(t, 3, loaded.PostsAnalyzed)
	assert.LessOrEqual(t, loaded.PostsAnalyzed, loaded.PostsFound)
}

func TestFailInterruptedJobs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateJob(ctx, models.IngestionJob{ID: "j1", URL: "u", Status: models.JobStatusPending}))
	require.NoError(t, s.CreateJob(ctx, models.IngestionJob{ID: "j2", URL: "u", Status: models.JobStatusProcessing}))
	require.NoError(t, s.CreateJob(ctx, models.IngestionJob{ID: "j3", URL: "u", Status: models.JobStatusCompleted}))

	n, err := s.FailInterruptedJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	j1, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, j1.Status)
	assert.Contains(t, j1.ErrorMessage, "interrupted")

	j3, err := s.GetJob(ctx, "j3")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, j3.Status)
}

func seedRecords(t *testing.T, s *sqliteStore) {
	t.Helper()
	ctx := context.Background()

	eliteID, err := s.UpsertEntity(ctx, models.Entity{
		Name: "Elite", NormalizedName: "elite", EntityType: models.EntityTypeProduct,
	})
	require.NoError(t, err)
	appID, err := s.UpsertEntity(ctx, models.Entity{
		Name: "Mobile App", NormalizedName: "mobile_app", EntityType: models.EntityTypeFeature,
	})
	require.NoError(t, err)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sentiments := []string{
		models.SentimentPositive, models.SentimentPositive,
		models.SentimentNegative, models.SentimentNeutral,
	}
	for i, sentiment := range sentiments {
		postID, err := s.UpsertPost(ctx, models.Post{
			RedditID:  "post" + string(rune('a'+i)),
			Subreddit: "ems",
			Title:     "Post about Elite",
			Body:      "body text",
			URL:       "u",
		})
		require.NoError(t, err)

		entityID := eliteID
		if i == 3 {
			entityID = appID
		}
		require.NoError(t, s.UpsertSentiment(ctx, models.SentimentRecord{
			PostID: postID, EntityID: entityID,
			Sentiment: sentiment, Confidence: 0.8, SentimentScore: 0.5,
			AnalyzedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func TestRefreshSummary_Invariant(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seedRecords(t, s)
	require.NoError(t, s.RefreshSummary(ctx))

	summaries, err := s.GetSummary(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	for _, sum := range summaries {
		total := sum.PositiveCount + sum.NegativeCount + sum.NeutralCount + sum.MixedCount
		assert.Equal(t, sum.TotalMentions, total)
	}

	elite := summaries[0] // ordered by mentions desc
	assert.Equal(t, "Elite", elite.EntityName)
	assert.Equal(t, 3, elite.TotalMentions)
	assert.Equal(t, 2, elite.PositiveCount)
	assert.Equal(t, 1, elite.NegativeCount)
}

func TestRefreshSummary_Rederivable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seedRecords(t, s)
	require.NoError(t, s.RefreshSummary(ctx))

	// A second refresh replaces the previous materialization completely.
	require.NoError(t, s.RefreshSummary(ctx))

	summaries, err := s.GetSummary(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
}

func TestGetSummary_Filters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seedRecords(t, s)
	require.NoError(t, s.RefreshSummary(ctx))

	features, err := s.GetSummary(ctx, models.EntityTypeFeature, "")
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, "Mobile App", features[0].EntityName)

	byName, err := s.GetSummary(ctx, "", "lite")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Elite", byName[0].EntityName)

	none, err := s.GetSummary(ctx, models.EntityTypeCompany, "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecentRecords_OrderAndLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seedRecords(t, s)

	records, err := s.RecentRecords(ctx, 3, "", "")
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Newest first.
	for i := 1; i < len(records); i++ {
		assert.False(t, records[i].Record.AnalyzedAt.After(records[i-1].Record.AnalyzedAt))
	}
	assert.Equal(t, "postd", records[0].PostID)
	assert.Equal(t, "Mobile App", records[0].EntityName)

	filtered, err := s.RecentRecords(ctx, 10, models.EntityTypeProduct, "")
	require.NoError(t, err)
	assert.Len(t, filtered, 3)
}

func TestInsertQueryLog(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertQueryLog(ctx, "how do users feel?", "mostly positive", 42))
	assert.Equal(t, 1, countRows(t, s, "nl_queries"))
}
