// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package alarm

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/smtp"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cartographus/internal/apperr"
	"github.com/tomtom215/cartographus/internal/model"
)

// MultiNotifier dispatches by channel type, fanning each type out to its
// own transport. SMTP is the only channel with no HTTP-based ecosystem
// client in the dependency set; it is the one ambient spot this package
// reaches into net/smtp rather than a third-party library.
type MultiNotifier struct {
	HTTPClient *http.Client
	SMTPAddr   string
	SMTPFrom   string
	SMTPAuth   smtp.Auth
}

func NewMultiNotifier(smtpAddr, smtpFrom string, smtpAuth smtp.Auth) *MultiNotifier {
	return &MultiNotifier{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		SMTPAddr:   smtpAddr,
		SMTPFrom:   smtpFrom,
		SMTPAuth:   smtpAuth,
	}
}

func (n *MultiNotifier) Notify(ctx context.Context, ch model.NotificationChannel, a model.Alarm, event model.AlarmEvent) error {
	switch ch.Type {
	case model.ChannelEmail:
		return n.notifyEmail(ch, a, event)
	case model.ChannelSlack:
		return n.postJSON(ctx, ch.WebhookURL, slackPayload(a, event))
	case model.ChannelWebhook:
		return n.postJSON(ctx, ch.WebhookURL, genericPayload(a, event))
	case model.ChannelPagerDuty:
		return n.postJSON(ctx, "https://events.pagerduty.com/v2/enqueue", pagerDutyPayload(ch, a, event))
	case model.ChannelOpsGenie:
		return n.postOpsGenie(ctx, ch, a, event)
	default:
		return apperr.New(apperr.KindInvalidInput, "alarm.Notify", fmt.Sprintf("unsupported channel type %q", ch.Type))
	}
}

func (n *MultiNotifier) notifyEmail(ch model.NotificationChannel, a model.Alarm, event model.AlarmEvent) error {
	subject := fmt.Sprintf("Alarm triggered: %s", a.Name)
	body := fmt.Sprintf("Alarm %q matched %d events at %s (group=%q)", a.Name, event.MatchCount, event.Timestamp.Format(time.RFC3339), event.GroupKey)
	msg := fmt.Appendf(nil, "From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", n.SMTPFrom, ch.Dest, subject, body)
	return smtp.SendMail(n.SMTPAddr, n.SMTPAuth, n.SMTPFrom, []string{ch.Dest}, msg)
}

func (n *MultiNotifier) postJSON(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "alarm.postJSON", "marshal payload", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "alarm.postJSON", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.HTTPClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "alarm.postJSON", "dispatch notification", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return apperr.New(apperr.KindUnavailable, "alarm.postJSON", fmt.Sprintf("notification endpoint returned status %d", resp.StatusCode))
	}
	return nil
}

func (n *MultiNotifier) postOpsGenie(ctx context.Context, ch model.NotificationChannel, a model.Alarm, event model.AlarmEvent) error {
	body, err := json.Marshal(genericPayload(a, event))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "alarm.postOpsGenie", "marshal payload", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.opsgenie.com/v2/alerts", bytes.NewReader(body))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "alarm.postOpsGenie", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "GenieKey "+ch.APIKey)

	resp, err := n.HTTPClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "alarm.postOpsGenie", "dispatch notification", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return apperr.New(apperr.KindUnavailable, "alarm.postOpsGenie", fmt.Sprintf("opsgenie returned status %d", resp.StatusCode))
	}
	return nil
}

func slackPayload(a model.Alarm, event model.AlarmEvent) map[string]any {
	return map[string]any{
		"text": fmt.Sprintf(":rotating_light: *%s* matched %d events (group=%q)", a.Name, event.MatchCount, event.GroupKey),
	}
}

func genericPayload(a model.Alarm, event model.AlarmEvent) map[string]any {
	return map[string]any{
		"alarm":      a.Name,
		"alarmId":    a.ID,
		"matchCount": event.MatchCount,
		"groupKey":   event.GroupKey,
		"timestamp":  event.Timestamp,
	}
}

func pagerDutyPayload(ch model.NotificationChannel, a model.Alarm, event model.AlarmEvent) map[string]any {
	return map[string]any{
		"routing_key":  ch.RoutingKey,
		"event_action": "trigger",
		"dedup_key":    a.ID + "|" + event.GroupKey,
		"payload": map[string]any{
			"summary":  fmt.Sprintf("%s matched %d events", a.Name, event.MatchCount),
			"source":   "cartographus",
			"severity": "warning",
		},
	}
}
