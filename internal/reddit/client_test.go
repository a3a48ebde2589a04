package reddit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		valid bool
	}{
		{"Subreddit", "https://reddit.com/r/ems", true},
		{"Subreddit with www", "https://www.reddit.com/r/ems", true},
		{"Subreddit trailing slash", "https://reddit.com/r/ems/", true},
		{"Subreddit http", "http://reddit.com/r/golang", true},
		{"Thread", "https://reddit.com/r/ems/comments/abc123", true},
		{"Thread with slug", "https://www.reddit.com/r/ems/comments/abc123/some_post_title/", true},
		{"User page", "https://reddit.com/user/someone", true},
		{"User page with suffix", "https://www.reddit.com/user/someone/submitted", true},
		{"Wrong domain", "https://example.com/r/ems", false},
		{"Not a listing path", "https://reddit.com/about", false},
		{"Missing subreddit name", "https://reddit.com/r/", false},
		{"Comments without id", "https://reddit.com/r/ems/comments/", false},
		{"Plain text", "not a url", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidURL)
			}
		})
	}
}

func TestParseListings_SingleListing(t *testing.T) {
	body := `{"data":{"children":[
		{"kind":"t3","data":{"id":"p1","title":"First post","selftext":"body one","subreddit":"ems","permalink":"/r/ems/comments/p1/first/","created_utc":1700000000,"score":12,"num_comments":3,"author":"alice"}},
		{"kind":"t3","data":{"id":"p2","title":"Second post","selftext":"","subreddit":"ems"}}
	]}}`

	posts := parseListings([]byte(body))
	require.Len(t, posts, 2)

	assert.Equal(t, "p1", posts[0].RedditID)
	assert.Equal(t, "First post", posts[0].Title)
	assert.Equal(t, "body one", posts[0].Body)
	assert.Equal(t, "ems", posts[0].Subreddit)
	assert.Equal(t, "post", posts[0].PostType)
	assert.Equal(t, "alice", posts[0].Author)
	assert.Equal(t, 12, posts[0].Score)
	assert.Equal(t, "https://reddit.com/r/ems/comments/p1/first/", posts[0].URL)

	assert.Equal(t, "p2", posts[1].RedditID)
}

func TestParseListings_ThreadShape(t *testing.T) {
	body := `[
		{"data":{"children":[{"kind":"t3","data":{"id":"p1","title":"The post","selftext":"post body","subreddit":"ems"}}]}},
		{"data":{"children":[
			{"kind":"t1","data":{"id":"c1","body":"a comment","subreddit":"ems"}},
			{"kind":"more","data":{"id":"x"}},
			{"kind":"t1","data":{"id":"c2","body":"another comment","subreddit":"ems"}}
		]}}
	]`

	posts := parseListings([]byte(body))
	require.Len(t, posts, 3)

	assert.Equal(t, "p1", posts[0].RedditID)
	assert.Equal(t, "post", posts[0].PostType)
	assert.Equal(t, "c1", posts[1].RedditID)
	assert.Equal(t, "comment", posts[1].PostType)
	assert.Equal(t, "a comment", posts[1].Body)
	assert.Equal(t, "c2", posts[2].RedditID)
}

func TestParseListings_MalformedShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"Not JSON", "<html>oops</html>"},
		{"Empty object", "{}"},
		{"Empty array", "[]"},
		{"Wrong structure", `{"data":"nope"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, parseListings([]byte(tt.body)))
		})
	}
}

func TestFetchPosts_InvalidURL(t *testing.T) {
	client := NewClient()
	_, err := client.FetchPosts(context.Background(), "https://example.com/r/ems")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestFetchPosts_AppendsJSONSuffix(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"data":{"children":[]}}`))
	}))
	defer server.Close()

	client := NewClient().SetBaseURL(server.URL)
	posts, err := client.FetchPosts(context.Background(), "https://reddit.com/r/ems/")
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.Equal(t, "/r/ems.json", gotPath)
}

func TestFetchPosts_RateLimitExhaustsRetries(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient().SetBaseURL(server.URL).SetRetry(3, time.Millisecond)
	_, err := client.FetchPosts(context.Background(), "https://reddit.com/r/ems")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 4, requests) // initial attempt plus three retries
}

func TestFetchPosts_RecoversAfterThrottle(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"data":{"children":[{"kind":"t3","data":{"id":"p1","title":"hello","subreddit":"ems"}}]}}`))
	}))
	defer server.Close()

	client := NewClient().SetBaseURL(server.URL).SetRetry(3, time.Millisecond)
	posts, err := client.FetchPosts(context.Background(), "https://reddit.com/r/ems")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "p1", posts[0].RedditID)
	assert.Equal(t, 2, requests)
}

func TestFetchPosts_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient().SetBaseURL(server.URL)
	_, err := client.FetchPosts(context.Background(), "https://reddit.com/r/ems")

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusBadGateway, fetchErr.Status)
}
