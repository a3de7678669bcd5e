package dump

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mysql-dump/internal/config"
	"mysql-dump/internal/logging"
)

// Notifier posts a JSON summary of a finished run to a webhook. Delivery
// failures are reported to the caller for logging and never change the
// run outcome.
type Notifier struct {
	config config.NotifyConfig
	logger *logging.Logger
	client *http.Client
}

// NewNotifier creates a notifier for the given webhook configuration.
func NewNotifier(cfg config.NotifyConfig, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Notifier{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// notificationPayload is the JSON document delivered to the webhook.
type notificationPayload struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Summary   *RunSummary `json:"summary"`
}

// Send delivers the run summary to the configured webhook. A disabled
// notifier returns nil without sending.
func (n *Notifier) Send(ctx context.Context, summary *RunSummary) error {
	if !n.config.Enabled {
		return nil
	}
	if n.config.URL == "" {
		return fmt.Errorf("webhook URL not configured")
	}

	payload, err := json.Marshal(notificationPayload{
		Event:     summaryEvent(summary),
		Timestamp: time.Now().UTC(),
		Summary:   summary,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	method := n.config.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, n.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned error status: %d", resp.StatusCode)
	}

	n.logger.WithFields(map[string]interface{}{
		"run_id": summary.RunID,
		"url":    n.config.URL,
		"status": resp.StatusCode,
	}).Info("Run notification sent")

	return nil
}

// summaryEvent classifies a run for the webhook event field.
func summaryEvent(summary *RunSummary) string {
	switch summary.ExitCode() {
	case 0:
		return "dump.succeeded"
	case 2:
		return "dump.partial"
	default:
		return "dump.failed"
	}
}
