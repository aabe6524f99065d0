package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tvrecs/internal/config"
)

const userAgent = "tvrecs/1"

// Pick is one recommended show in a summary.
type Pick struct {
	Label string
	Score float64
}

// Summary describes the picks of one user context.
type Summary struct {
	Context     string
	Library     []Pick
	Suggestions []Pick
}

// Service defines the notification surface used by the recommend run.
type Service interface {
	NotifyRecommendations(ctx context.Context, summary Summary) error
	NotifySonarr(ctx context.Context, added, updated, failed int) error
	NotifyTraktSync(ctx context.Context, episodes int) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds an ntfy-backed service, or a no-op one without a topic.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:        topic,
		client:          &http.Client{Timeout: timeout},
		recommendations: cfg.Notifications.Recommendations,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint        string
	client          *http.Client
	recommendations bool
}

func (n *ntfyService) NotifyRecommendations(ctx context.Context, summary Summary) error {
	if !n.recommendations || (len(summary.Library) == 0 && len(summary.Suggestions) == 0) {
		return nil
	}
	var b strings.Builder
	writePicks(&b, "From your library", summary.Library)
	writePicks(&b, "New to you", summary.Suggestions)
	title := "tvrecs - Recommendations"
	if c := strings.TrimSpace(summary.Context); c != "" {
		title += " for " + c
	}
	return n.send(ctx, payload{
		title:   title,
		message: strings.TrimRight(b.String(), "\n"),
		tags:    []string{"tvrecs", "tv"},
	})
}

func writePicks(b *strings.Builder, heading string, picks []Pick) {
	if len(picks) == 0 {
		return
	}
	b.WriteString(heading)
	b.WriteString(":\n")
	for i, p := range picks {
		if p.Score > 0 {
			fmt.Fprintf(b, "%d. %s (%.0f%%)\n", i+1, p.Label, p.Score*100)
			continue
		}
		fmt.Fprintf(b, "%d. %s\n", i+1, p.Label)
	}
}

func (n *ntfyService) NotifySonarr(ctx context.Context, added, updated, failed int) error {
	if added+updated+failed == 0 {
		return nil
	}
	message := fmt.Sprintf("Sonarr: %d added, %d updated", added, updated)
	data := payload{
		title: "tvrecs - Sonarr",
		tags:  []string{"tvrecs", "sonarr"},
	}
	if failed > 0 {
		message += fmt.Sprintf(", %d failed", failed)
		data.priority = "high"
	}
	data.message = message
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTraktSync(ctx context.Context, episodes int) error {
	if episodes == 0 {
		return nil
	}
	return n.send(ctx, payload{
		title:    "tvrecs - Trakt Sync",
		message:  fmt.Sprintf("Synced %d watched episodes to Trakt", episodes),
		tags:     []string{"tvrecs", "trakt", "sync"},
		priority: "low",
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" during ")
		builder.WriteString(contextLabel)
	}
	if err != nil {
		builder.WriteString(": ")
		builder.WriteString(err.Error())
	}
	return n.send(ctx, payload{
		title:    "tvrecs - Error",
		message:  builder.String(),
		tags:     []string{"tvrecs", "error"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "tvrecs - Test",
		message:  "Notification system test",
		tags:     []string{"tvrecs", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRecommendations(context.Context, Summary) error { return nil }
func (noopService) NotifySonarr(context.Context, int, int, int) error    { return nil }
func (noopService) NotifyTraktSync(context.Context, int) error           { return nil }
func (noopService) NotifyError(context.Context, error, string) error     { return nil }
func (noopService) TestNotification(context.Context) error               { return nil }
