package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/pobradovic08/netdash/internal/model"
)

// Notifier delivers a newly raised alert to the rule's channels.
// Delivery failures are logged, never returned.
type Notifier interface {
	Notify(ctx context.Context, alert model.Alert, channels []string)
}

// Dispatcher fans an alert out to the log and an optional webhook.
type Dispatcher struct {
	webhookURL string
	client     *http.Client
	maxElapsed time.Duration
	logger     *slog.Logger
}

// NewDispatcher returns a Dispatcher. An empty webhookURL disables the
// webhook channel.
func NewDispatcher(webhookURL string, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
		maxElapsed: 3 * timeout,
		logger:     logger,
	}
}

// Notify implements Notifier.
func (d *Dispatcher) Notify(ctx context.Context, alert model.Alert, channels []string) {
	for _, ch := range channels {
		switch ch {
		case model.ChannelLog, model.ChannelConsole:
			d.logger.Log(ctx, severityLevel(alert.Severity), "alert raised",
				"severity", strings.ToUpper(string(alert.Severity)),
				"device_id", alert.DeviceID,
				"alert_id", alert.ID,
				"message", alert.Message,
			)
		case model.ChannelWebhook:
			if d.webhookURL == "" {
				d.logger.Warn("webhook channel selected but no webhook url configured", "alert_id", alert.ID)
				continue
			}
			if err := d.postWebhook(ctx, alert); err != nil {
				d.logger.Error("webhook delivery failed", "alert_id", alert.ID, "error", err)
			}
		case model.ChannelEmail:
			d.logger.Debug("email notifications are not supported", "alert_id", alert.ID)
		default:
			d.logger.Warn("unknown notification channel", "channel", ch, "alert_id", alert.ID)
		}
	}
}

func (d *Dispatcher) postWebhook(ctx context.Context, alert model.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	operation := func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(payload))
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := d.client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode < 300:
			return struct{}{}, nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return struct{}{}, fmt.Errorf("webhook returned %s", resp.Status)
		default:
			return struct{}{}, backoff.Permanent(fmt.Errorf("webhook returned %s", resp.Status))
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(3),
		backoff.WithMaxElapsedTime(d.maxElapsed),
	)
	return err
}

func severityLevel(s model.Severity) slog.Level {
	switch s {
	case model.SeverityCritical:
		return slog.LevelError
	case model.SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
