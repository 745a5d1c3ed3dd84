package notifications

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"murmur/internal/config"
	"murmur/internal/logging"
	"murmur/internal/operation"
)

const userAgent = "Murmur-Go/0.1.0"

// Sink receives every event after the observer has been scheduled. Delivery
// is fire-and-forget: Deliver never blocks the caller and never fails it.
type Sink interface {
	Deliver(Event)
	// TestNotification sends a probe message synchronously.
	TestNotification(ctx context.Context) error
	Close()
}

// NewSink builds an ntfy-backed sink when a topic is configured and a noop
// sink otherwise.
func NewSink(cfg *config.Config, logger *slog.Logger) Sink {
	if cfg == nil {
		return noopSink{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopSink{}
	}
	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	notifyOn := make(map[operation.Status]struct{}, len(cfg.Notifications.NotifyOn))
	for _, raw := range cfg.Notifications.NotifyOn {
		if status, ok := operation.ParseStatus(raw); ok {
			notifyOn[status] = struct{}{}
		}
	}
	buffer := cfg.Notifications.SinkBuffer
	if buffer <= 0 {
		buffer = 64
	}
	s := &ntfySink{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
		notifyOn: notifyOn,
		queue:    make(chan Event, buffer),
		done:     make(chan struct{}),
		logger:   logging.NewComponentLogger(logger, "ntfy"),
	}
	go s.run()
	return s
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfySink struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
	notifyOn map[operation.Status]struct{}
	logger   *slog.Logger

	mu      sync.Mutex
	closed  bool
	queue   chan Event
	done    chan struct{}
	dropped int
}

func (n *ntfySink) Deliver(ev Event) {
	if !ev.IsTransition() {
		return
	}
	if _, ok := n.notifyOn[ev.CurrentStatus]; !ok {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- ev:
	default:
		n.dropped++
		if n.dropped == 1 {
			logging.WarnWithContext(n.logger, "ntfy queue full; dropping notifications", "ntfy_backlog",
				logging.Int("buffer", cap(n.queue)),
				logging.String(logging.FieldErrorHint, "raise notifications.sink_buffer or check ntfy reachability"),
				logging.String(logging.FieldImpact, "some push notifications will not be sent"),
			)
		}
	}
}

func (n *ntfySink) run() {
	defer close(n.done)
	for ev := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		err := n.send(ctx, eventPayload(ev))
		cancel()
		if err != nil {
			logging.WarnWithContext(n.logger, "ntfy notification failed", "ntfy_failed",
				logging.String(logging.FieldOperationID, ev.OperationID),
				logging.String(logging.FieldStatus, string(ev.CurrentStatus)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			)
		}
	}
}

func (n *ntfySink) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Murmur - Test",
		message:  "Notification system test",
		tags:     []string{"murmur", "test"},
		priority: "low",
	})
}

// Close stops accepting events and waits for queued ones to be sent.
func (n *ntfySink) Close() {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()
	<-n.done
}

func eventPayload(ev Event) payload {
	label := logging.FormatSubject(string(ev.Type.Category), ev.Target, "")
	data := payload{
		title: fmt.Sprintf("Murmur - %s %s", categoryTitle(ev.Type.Category), ev.CurrentStatus),
		tags:  []string{"murmur", string(ev.Type.Category), string(ev.CurrentStatus)},
	}
	switch ev.CurrentStatus {
	case operation.StatusFailed:
		reason := strings.TrimSpace(ev.ErrorDescription)
		if reason == "" {
			reason = "unknown"
		}
		data.message = fmt.Sprintf("%s failed: %s", label, reason)
		data.priority = "high"
	case operation.StatusCancelled:
		data.message = fmt.Sprintf("%s was cancelled", label)
	case operation.StatusCompleted:
		data.message = fmt.Sprintf("%s completed", label)
	default:
		data.message = fmt.Sprintf("%s is %s", label, ev.CurrentStatus)
		data.priority = "low"
	}
	return data
}

var titleCaser = cases.Title(language.English)

func categoryTitle(c operation.Category) string {
	if c == "" {
		return "Operation"
	}
	return titleCaser.String(string(c))
}

func (n *ntfySink) send(ctx context.Context, data payload) error {
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

type noopSink struct{}

func (noopSink) Deliver(Event)                          {}
func (noopSink) TestNotification(context.Context) error { return nil }
func (noopSink) Close()                                 {}
