package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"cardoff/internal/config"
)

const userAgent = "cardoff/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyCardDetected(ctx context.Context, device, mountPoint string) error
	NotifyRunStarted(ctx context.Context, profile string, files int, bytes int64) error
	NotifyRunCompleted(ctx context.Context, profile, route string, files int, bytes int64, duration time.Duration) error
	NotifyRunFailed(ctx context.Context, profile, kind, message string) error
	NotifyUnidentifiedCard(ctx context.Context, mountPoint string) error
	NotifyCleanupWarning(ctx context.Context, profile string, failed int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyCardDetected(ctx context.Context, device, mountPoint string) error {
	device = strings.TrimSpace(device)
	mountPoint = strings.TrimSpace(mountPoint)
	data := payload{
		title:   "Cardoff - Card Detected",
		message: fmt.Sprintf("Card detected: %s at %s", device, mountPoint),
		tags:    []string{"cardoff", "card", "detected"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, profile string, files int, bytes int64) error {
	profile = strings.TrimSpace(profile)
	data := payload{
		title:   "Cardoff - Import Started",
		message: fmt.Sprintf("Importing %s: %d files, %s", profile, files, humanize.IBytes(uint64(bytes))),
		tags:    []string{"cardoff", "import", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, profile, route string, files int, bytes int64, duration time.Duration) error {
	profile = strings.TrimSpace(profile)
	duration = duration.Round(time.Second)
	if duration <= 0 {
		duration = time.Second
	}

	message := fmt.Sprintf("Import complete: %s, %d files, %s in %s",
		profile, files, humanize.IBytes(uint64(bytes)), duration)
	if route == "staging" {
		message += "\nStore was unreachable; files are in local staging"
	}

	data := payload{
		title:    "Cardoff - Import Complete",
		message:  message,
		tags:     []string{"cardoff", "import", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, profile, kind, message string) error {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = "unknown card"
	}
	data := payload{
		title:    "Cardoff - Import Failed",
		message:  fmt.Sprintf("Import of %s failed (%s): %s", profile, kind, strings.TrimSpace(message)),
		tags:     []string{"cardoff", "import", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyUnidentifiedCard(ctx context.Context, mountPoint string) error {
	mountPoint = strings.TrimSpace(mountPoint)
	data := payload{
		title:   "Cardoff - Unidentified Card",
		message: fmt.Sprintf("Could not identify card at %s\nManual import required", mountPoint),
		tags:    []string{"cardoff", "unidentified", "review"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCleanupWarning(ctx context.Context, profile string, failed int) error {
	profile = strings.TrimSpace(profile)
	data := payload{
		title:    "Cardoff - Cleanup Incomplete",
		message:  fmt.Sprintf("Import of %s succeeded but %d source files could not be deleted", profile, failed),
		tags:     []string{"cardoff", "cleanup", "warning"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Cardoff - Test",
		message:  "Notification system test",
		tags:     []string{"cardoff", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
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

func (noopService) NotifyCardDetected(context.Context, string, string) error { return nil }
func (noopService) NotifyRunStarted(context.Context, string, int, int64) error {
	return nil
}
func (noopService) NotifyRunCompleted(context.Context, string, string, int, int64, time.Duration) error {
	return nil
}
func (noopService) NotifyRunFailed(context.Context, string, string, string) error { return nil }
func (noopService) NotifyUnidentifiedCard(context.Context, string) error          { return nil }
func (noopService) NotifyCleanupWarning(context.Context, string, int) error       { return nil }
func (noopService) TestNotification(context.Context) error                        { return nil }
