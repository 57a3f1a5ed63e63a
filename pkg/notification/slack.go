package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"vigil/pkg/config"
	"vigil/pkg/interfaces"
	"vigil/pkg/logger"
)

// severityColors maps alert severity to Slack attachment colors
var severityColors = map[interfaces.Severity]string{
	interfaces.SeverityInfo:     "good",
	interfaces.SeverityWarning:  "warning",
	interfaces.SeverityCritical: "danger",
}

// SlackNotifier sends alerts to a Slack incoming webhook
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier creates a new Slack notifier
func NewSlackNotifier() *SlackNotifier {
	// Priority: config file > environment variable
	var webhookURL string
	if config.GlobalConfig != nil && config.GlobalConfig.Notification.SlackWebhookURL != "" {
		webhookURL = config.GlobalConfig.Notification.SlackWebhookURL
		logger.Info("Using Slack webhook URL from config file")
	} else {
		webhookURL = os.Getenv("SLACK_WEBHOOK_URL")
		if webhookURL != "" {
			logger.Info("Using Slack webhook URL from environment variable")
		}
	}

	if webhookURL == "" {
		logger.Warn("Slack webhook URL not configured (check config file or SLACK_WEBHOOK_URL env), Slack notifications will be disabled")
	}

	return &SlackNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Send delivers a single alert message to Slack. Each alert is attempted
// exactly once; callers must not retry on failure.
func (s *SlackNotifier) Send(ctx context.Context, message string, severity interfaces.Severity) error {
	if s.webhookURL == "" {
		logger.WarnCtx(ctx, "Slack webhook URL not configured, skipping notification")
		return nil
	}

	color, ok := severityColors[severity]
	if !ok {
		color = "warning"
	}

	payload, err := json.Marshal(map[string]interface{}{
		"attachments": []interface{}{
			map[string]interface{}{
				"color": color,
				"text":  message,
				"ts":    time.Now().Unix(),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal Slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Slack API returned status code: %d", resp.StatusCode)
	}

	logger.DebugCtx(ctx, "Slack notification sent (severity: %s)", severity)
	return nil
}
