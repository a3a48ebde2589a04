package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/burnbook/burnbook/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const userAgent = "BurnBook/1.0 (Sentiment Analysis Tool)"

// Sentinel errors for the fetch taxonomy. FetchError carries the HTTP
// status for every other non-success response.
var (
	ErrInvalidURL  = errors.New("invalid reddit url")
	ErrRateLimited = errors.New("reddit api rate limit exceeded, please try again later")
)

// FetchError reports a non-success, non-throttling response from Reddit
type FetchError struct {
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch reddit data: status %d", e.Status)
}

// Accepted URL shapes: community page, thread/comments page, user page.
var (
	subredditPattern = regexp.MustCompile(`^https?://(www\.)?reddit\.com/r/[A-Za-z0-9_]+/?$`)
	threadPattern    = regexp.MustCompile(`^https?://(www\.)?reddit\.com/r/[A-Za-z0-9_]+/comments/[A-Za-z0-9]+(/[^\s]*)?$`)
	userPattern      = regexp.MustCompile(`^https?://(www\.)?reddit\.com/user/[A-Za-z0-9_-]+(/[^\s]*)?$`)
)

// Client fetches Reddit listings through the public JSON endpoints
type Client struct {
	client     *resty.Client
	baseURL    string
	maxRetries int
	baseDelay  time.Duration
}

// NewClient creates a Reddit client with the default retry budget
func NewClient() *Client {
	return &Client{
		client:     resty.New().SetTimeout(30 * time.Second),
		baseURL:    "https://www.reddit.com",
		maxRetries: 3,
		baseDelay:  time.Second,
	}
}

// SetBaseURL points the client at a different host. Used in tests.
func (c *Client) SetBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

// SetRetry overrides the rate-limit retry budget. Used in tests.
func (c *Client) SetRetry(maxRetries int, baseDelay time.Duration) *Client {
	c.maxRetries = maxRetries
	c.baseDelay = baseDelay
	return c
}

// ValidateURL reports whether the URL matches one of the accepted shapes
func ValidateURL(rawURL string) error {
	url := strings.TrimSpace(rawURL)
	if subredditPattern.MatchString(url) || threadPattern.MatchString(url) || userPattern.MatchString(url) {
		return nil
	}
	return ErrInvalidURL
}

// jsonEndpoint converts a validated Reddit URL to its structured-data
// endpoint on the client's base host
func (c *Client) jsonEndpoint(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", ErrInvalidURL
	}
	path := strings.TrimSuffix(parsed.Path, "/")
	return c.baseURL + path + ".json", nil
}

// FetchPosts validates the URL, fetches the listing, and flattens it into
// an ordered sequence of posts. A successful fetch that yields zero posts
// returns an empty slice with no error; the caller decides whether that is
// fatal.
func (c *Client) FetchPosts(ctx context.Context, rawURL string) ([]models.Post, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}

	endpoint, err := c.jsonEndpoint(rawURL)
	if err != nil {
		return nil, err
	}

	var body []byte
	for attempt := 0; ; attempt++ {
		resp, err := c.client.R().
			SetContext(ctx).
			SetHeader("User-Agent", userAgent).
			Get(endpoint)
		if err != nil {
			return nil, fmt.Errorf("fetch reddit data: %w", err)
		}

		if resp.StatusCode() == http.StatusTooManyRequests {
			if attempt >= c.maxRetries {
				return nil, ErrRateLimited
			}
			delay := c.baseDelay * (1 << attempt)
			logrus.Warnf("Rate limited by Reddit API, retrying in %v", delay)
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if resp.StatusCode() != http.StatusOK {
			return nil, &FetchError{Status: resp.StatusCode()}
		}

		body = resp.Body()
		break
	}

	return parseListings(body), nil
}

type listing struct {
	Data struct {
		Children []struct {
			Kind string      `json:"kind"`
			Data redditThing `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditThing struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Body        string  `json:"body"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Permalink   string  `json:"permalink"`
	Created     float64 `json:"created_utc"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
}

// parseListings handles both response shapes: an array of listings for
// thread pages (the post listing plus its comment listing) and a single
// listing for community and user pages. Unknown shapes yield an empty
// sequence rather than an error.
func parseListings(body []byte) []models.Post {
	var posts []models.Post

	var listings []listing
	if err := json.Unmarshal(body, &listings); err == nil {
		for _, l := range listings {
			for _, child := range l.Data.Children {
				if child.Kind != "t3" && child.Kind != "t1" {
					continue
				}
				posts = append(posts, thingToPost(child.Kind, child.Data))
			}
		}
		return posts
	}

	var single listing
	if err := json.Unmarshal(body, &single); err != nil {
		logrus.Warn("Unrecognized Reddit listing shape, returning no posts")
		return nil
	}
	for _, child := range single.Data.Children {
		posts = append(posts, thingToPost(child.Kind, child.Data))
	}
	return posts
}

func thingToPost(kind string, t redditThing) models.Post {
	body := t.Selftext
	if body == "" {
		body = t.Body
	}

	postType := "post"
	if kind == "t1" || t.Title == "" {
		postType = "comment"
	}

	url := t.Permalink
	if url != "" {
		url = "https://reddit.com" + url
	} else {
		url = fmt.Sprintf("https://reddit.com/r/%s/comments/%s", t.Subreddit, t.ID)
	}

	return models.Post{
		RedditID:    t.ID,
		Subreddit:   t.Subreddit,
		Title:       t.Title,
		Body:        body,
		Author:      t.Author,
		URL:         url,
		PostType:    postType,
		Score:       t.Score,
		NumComments: t.NumComments,
		CreatedUTC:  time.Unix(int64(t.Created), 0).UTC(),
	}
}
