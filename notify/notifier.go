// Package notify implements the user-facing notification side-channel.
// Failures anywhere in the refresh pipeline are reported here instead of
// being returned to the caller.
package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"secanalytics/core"
	"secanalytics/metrics"
	"secanalytics/util"
	"secanalytics/util/goroutine"

	"go.uber.org/zap"
)

// Kind is the notification kind
type Kind string

const (
	KindError   Kind = "error"
	KindSuccess Kind = "success"
)

// ChannelType represents the type of outbound notification channel
type ChannelType string

const (
	ChannelWebhook ChannelType = "webhook"
	ChannelSlack   ChannelType = "slack"
)

// Notification is a single user-visible message
type Notification struct {
	Kind       Kind      `json:"kind"`
	Action     string    `json:"action"`
	ObjectName string    `json:"object_name"`
	Detail     string    `json:"detail,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Title renders the toast title, e.g. "Failed to retrieve findings"
func (n Notification) Title() string {
	if n.Kind == KindError {
		return fmt.Sprintf("Failed to %s %s", n.Action, n.ObjectName)
	}
	return fmt.Sprintf("Successfully %s %s", n.Action, n.ObjectName)
}

// ChannelConfig configures one outbound channel
type ChannelConfig struct {
	Enabled        bool              `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Type           ChannelType       `mapstructure:"type" json:"type" yaml:"type"`
	WebhookURL     string            `mapstructure:"webhook_url" json:"webhook_url" yaml:"webhook_url"`
	WebhookMethod  string            `mapstructure:"webhook_method" json:"webhook_method" yaml:"webhook_method"`
	WebhookHeaders map[string]string `mapstructure:"webhook_headers" json:"webhook_headers" yaml:"webhook_headers"`
	// ErrorsOnly suppresses success notifications on this channel
	ErrorsOnly bool `mapstructure:"errors_only" json:"errors_only" yaml:"errors_only"`
}

// Broadcaster pushes messages to live clients such as WebSocket subscribers
type Broadcaster interface {
	BroadcastMessage(msgType string, data interface{}) error
}

// Notifier logs every notification and forwards it to the configured channels
type Notifier struct {
	channels        []ChannelConfig
	logger          *zap.SugaredLogger
	httpClient      *http.Client
	circuitBreakers map[string]*core.CircuitBreaker
	cbMu            sync.Mutex
	broadcaster     Broadcaster
	bcMu            sync.RWMutex
	pending         sync.WaitGroup
}

// NewNotifier creates a new notifier instance
func NewNotifier(channels []ChannelConfig, logger *zap.SugaredLogger) *Notifier {
	return &Notifier{
		channels: channels,
		logger:   logger,
		httpClient: &http.Client{
			Timeout: core.HTTPClientTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		circuitBreakers: make(map[string]*core.CircuitBreaker),
	}
}

// SetBroadcaster attaches a live broadcaster. Passing nil detaches it.
func (n *Notifier) SetBroadcaster(b Broadcaster) {
	n.bcMu.Lock()
	defer n.bcMu.Unlock()
	n.broadcaster = b
}

// Notify reports a notification. It never blocks on outbound channels.
func (n *Notifier) Notify(kind Kind, action, objectName, detail string) {
	// details leave the process through webhooks and WebSocket clients
	detail = util.Truncate(util.SanitizeString(detail), core.MaxErrorMessageLength)
	note := Notification{
		Kind:       kind,
		Action:     action,
		ObjectName: objectName,
		Detail:     detail,
		Timestamp:  time.Now().UTC(),
	}
	metrics.NotificationsSent.WithLabelValues(string(kind)).Inc()

	if kind == KindError {
		n.logger.Warnw(note.Title(), "detail", detail)
	} else {
		n.logger.Infow(note.Title(), "detail", detail)
	}

	n.bcMu.RLock()
	b := n.broadcaster
	n.bcMu.RUnlock()
	if b != nil {
		if err := b.BroadcastMessage("notification", note); err != nil {
			n.logger.Debugf("Failed to broadcast notification: %v", err)
		}
	}

	for _, ch := range n.channels {
		if !ch.Enabled || (ch.ErrorsOnly && kind != KindError) {
			continue
		}
		n.pending.Add(1)
		goroutine.Go("notify-"+string(ch.Type), n.logger, func() {
			defer n.pending.Done()
			n.deliver(note, ch)
		})
	}
}

// Flush waits for in-flight channel deliveries or until ctx is done
func (n *Notifier) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) deliver(note Notification, ch ChannelConfig) {
	key := fmt.Sprintf("%s:%s", ch.Type, ch.WebhookURL)
	cb := n.getOrCreateCircuitBreaker(key)
	if err := cb.Allow(); err != nil {
		n.logger.Warnf("Circuit breaker open for %s notifications to %s: %v", ch.Type, ch.WebhookURL, err)
		return
	}

	var err error
	switch ch.Type {
	case ChannelSlack:
		err = n.send(ch, slackPayload(note))
	default:
		err = n.send(ch, note)
	}
	if err != nil {
		cb.RecordFailure()
		n.logger.Errorf("Failed to send %s notification: %v", ch.Type, err)
		return
	}
	cb.RecordSuccess()
}

func (n *Notifier) getOrCreateCircuitBreaker(key string) *core.CircuitBreaker {
	n.cbMu.Lock()
	defer n.cbMu.Unlock()

	if cb, ok := n.circuitBreakers[key]; ok {
		return cb
	}
	cb, err := core.NewCircuitBreaker(core.CircuitBreakerConfig{
		Name:                key,
		MaxFailures:         3,
		Timeout:             60 * time.Second,
		MaxHalfOpenRequests: 1,
	})
	if err != nil {
		// the config above is static, so this is unreachable
		panic(err)
	}
	n.circuitBreakers[key] = cb
	return cb
}

func (n *Notifier) send(ch ChannelConfig, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	method := ch.WebhookMethod
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequest(method, ch.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "secanalytics/1.0")
	for k, v := range ch.WebhookHeaders {
		req.Header.Set(k, v)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned non-2xx status: %d", resp.StatusCode)
	}
	return nil
}

func slackPayload(note Notification) map[string]interface{} {
	color := "#2e7d32"
	if note.Kind == KindError {
		color = "#d32f2f"
	}
	return map[string]interface{}{
		"text": note.Title(),
		"attachments": []map[string]interface{}{
			{
				"color":  color,
				"text":   note.Detail,
				"footer": "Security Analytics",
				"ts":     note.Timestamp.Unix(),
			},
		},
	}
}
