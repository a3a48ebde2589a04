package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/burnbook/burnbook/internal/config"
	"github.com/burnbook/burnbook/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service sends job-completion reports via the configured channels. It is
// entirely optional: with nothing configured every send is a no-op.
type Service struct {
	config *config.Config
	client *resty.Client
}

// TeamsMessage represents a Microsoft Teams message card
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	Facts         []TeamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendJobReport sends a summary of a finished ingestion job to every
// configured channel.
func (s *Service) SendJobReport(job models.IngestionJob, results []models.IngestResult) error {
	var errs []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(job, results); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errs = append(errs, fmt.Sprintf("Teams: %v", err))
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(job, results); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errs = append(errs, fmt.Sprintf("Email: %v", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func sentimentBreakdown(results []models.IngestResult) map[string]int {
	breakdown := make(map[string]int)
	for _, r := range results {
		breakdown[r.Sentiment]++
	}
	return breakdown
}

func (s *Service) sendToTeams(job models.IngestionJob, results []models.IngestResult) error {
	breakdown := sentimentBreakdown(results)

	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   "BurnBook Ingestion Report",
		Text:    fmt.Sprintf("Analyzed %d of %d posts from %s", job.PostsAnalyzed, job.PostsFound, job.URL),
		Sections: []TeamsSection{{
			ActivityTitle: fmt.Sprintf("Job %s (%s)", job.ID, job.Status),
			Facts: []TeamsFact{
				{Name: "Posts Found", Value: fmt.Sprintf("%d", job.PostsFound)},
				{Name: "Posts Analyzed", Value: fmt.Sprintf("%d", job.PostsAnalyzed)},
				{Name: "Positive", Value: fmt.Sprintf("%d", breakdown[models.SentimentPositive])},
				{Name: "Negative", Value: fmt.Sprintf("%d", breakdown[models.SentimentNegative])},
				{Name: "Neutral", Value: fmt.Sprintf("%d", breakdown[models.SentimentNeutral])},
				{Name: "Mixed", Value: fmt.Sprintf("%d", breakdown[models.SentimentMixed])},
			},
			Markdown: true,
		}},
	}

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)
	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

func (s *Service) sendEmail(job models.IngestionJob, results []models.IngestResult) error {
	breakdown := sentimentBreakdown(results)

	var body strings.Builder
	fmt.Fprintf(&body, "<h2>BurnBook Ingestion Report</h2>")
	fmt.Fprintf(&body, "<p>Job %s finished as <b>%s</b>.</p>", job.ID, job.Status)
	fmt.Fprintf(&body, "<ul>")
	fmt.Fprintf(&body, "<li>URL: %s</li>", job.URL)
	fmt.Fprintf(&body, "<li>Posts found: %d</li>", job.PostsFound)
	fmt.Fprintf(&body, "<li>Posts analyzed: %d</li>", job.PostsAnalyzed)
	fmt.Fprintf(&body, "<li>Positive: %d, Negative: %d, Neutral: %d, Mixed: %d</li>",
		breakdown[models.SentimentPositive], breakdown[models.SentimentNegative],
		breakdown[models.SentimentNeutral], breakdown[models.SentimentMixed])
	fmt.Fprintf(&body, "</ul>")

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", fmt.Sprintf("BurnBook ingestion report - job %s", job.ID))
	m.SetBody("text/html", body.String())

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
