// Package alerts dispatches budget alert events to an org's registered
// channels through pluggable drivers. The built-in drivers are webhook (HTTP
// POST with optional HMAC-SHA256 signing) and Slack.
//
// Alerting is fire-and-forget from the caller's point of view: a failed
// dispatch is logged per channel and never blocks or fails the mutation that
// triggered it.
package alerts

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"

	"github.com/crewplan/crewplan/internal/store"
	"github.com/crewplan/crewplan/pkg/models"
)

// EventType describes what happened to a project budget.
type EventType string

const (
	EventBudgetWarning  EventType = "budget_warning"  // >= 85% burn
	EventBudgetCritical EventType = "budget_critical" // >= 100% burn
)

const (
	warnBurn     = 0.85
	criticalBurn = 1.0
)

// Event is the alert payload sent to channels.
type Event struct {
	Type          EventType `json:"type"`
	OrgID         string    `json:"org_id"`
	ProjectID     string    `json:"project_id"`
	ProjectName   string    `json:"project_name"`
	Client        string    `json:"client,omitempty"`
	BudgetHours   float64   `json:"budget_hours"`
	ConsumedHours float64   `json:"consumed_hours"`
	Burn          float64   `json:"burn"`
	Timestamp     time.Time `json:"timestamp"`
}

// Text renders the event as a short human-readable line.
func (e Event) Text() string {
	verb := "is close to its budget"
	if e.Type == EventBudgetCritical {
		verb = "has exceeded its budget"
	}
	return fmt.Sprintf("%s %s: %.0fh of %.0fh used (%.0f%%)",
		e.ProjectName, verb, e.ConsumedHours, e.BudgetHours, e.Burn*100)
}

// Result is the outcome of dispatching one event to one channel.
type Result struct {
	Channel   string    `json:"channel"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ChannelDriver sends an event over one kind of channel.
type ChannelDriver interface {
	Kind() models.ChannelKind
	Send(ctx context.Context, channel *models.AlertChannel, event Event) error
}

// Service evaluates project burn and fans alert events out to channels.
type Service struct {
	store   store.Store
	drivers map[models.ChannelKind]ChannelDriver
	drvMu   sync.RWMutex
}

// NewService creates an alert service with the built-in webhook and Slack
// drivers registered.
func NewService(s store.Store) *Service {
	svc := &Service{
		store:   s,
		drivers: make(map[models.ChannelKind]ChannelDriver),
	}
	svc.RegisterDriver(&WebhookDriver{client: &http.Client{Timeout: 15 * time.Second}})
	svc.RegisterDriver(&SlackDriver{})
	return svc
}

// RegisterDriver adds or replaces the driver for a channel kind.
func (s *Service) RegisterDriver(driver ChannelDriver) {
	s.drvMu.Lock()
	defer s.drvMu.Unlock()
	s.drivers[driver.Kind()] = driver
	log.Info().Str("kind", string(driver.Kind())).Msg("registered alert channel driver")
}

func (s *Service) driver(kind models.ChannelKind) ChannelDriver {
	s.drvMu.RLock()
	defer s.drvMu.RUnlock()
	return s.drivers[kind]
}

// EventFor returns the alert event a project's burn warrants, or nil when the
// project is under the warning threshold or has no budget.
func EventFor(project *models.Project) *Event {
	if project.BudgetHours <= 0 {
		return nil
	}
	burn := project.ConsumedHours / project.BudgetHours
	var eventType EventType
	switch {
	case burn >= criticalBurn:
		eventType = EventBudgetCritical
	case burn >= warnBurn:
		eventType = EventBudgetWarning
	default:
		return nil
	}
	return &Event{
		Type:          eventType,
		OrgID:         project.OrgID,
		ProjectID:     project.ID,
		ProjectName:   project.Name,
		Client:        project.Client,
		BudgetHours:   project.BudgetHours,
		ConsumedHours: project.ConsumedHours,
		Burn:          burn,
		Timestamp:     time.Now().UTC(),
	}
}

// CheckProject dispatches a budget alert for the project if its burn crosses
// a threshold. Errors are logged per channel; the caller never sees them.
func (s *Service) CheckProject(ctx context.Context, project *models.Project) {
	event := EventFor(project)
	if event == nil {
		return
	}
	s.Dispatch(ctx, *event)
}

// Dispatch sends an event to every active channel of the event's org,
// concurrently. Per-channel results are returned for callers that care;
// failures are already logged.
func (s *Service) Dispatch(ctx context.Context, event Event) []Result {
	channels, err := s.store.ListChannels(ctx, event.OrgID)
	if err != nil {
		log.Warn().Err(err).Str("org", event.OrgID).Msg("failed to list alert channels")
		return nil
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []Result
	)
	for i := range channels {
		ch := channels[i]
		if !ch.Active {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := s.dispatchOne(ctx, &ch, event)
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

func (s *Service) dispatchOne(ctx context.Context, channel *models.AlertChannel, event Event) Result {
	result := Result{
		Channel:   fmt.Sprintf("%s/%s", channel.Kind, channel.Name),
		Timestamp: time.Now().UTC(),
	}
	driver := s.driver(channel.Kind)
	if driver == nil {
		result.Error = fmt.Sprintf("no driver registered for channel kind %s", channel.Kind)
		log.Warn().Str("kind", string(channel.Kind)).Str("channel", channel.Name).Msg("no alert channel driver")
		return result
	}
	if err := driver.Send(ctx, channel, event); err != nil {
		result.Error = err.Error()
		log.Warn().Err(err).
			Str("channel", channel.Name).
			Str("kind", string(channel.Kind)).
			Str("project", event.ProjectID).
			Msg("alert dispatch failed")
		return result
	}
	result.Success = true
	log.Info().
		Str("channel", channel.Name).
		Str("kind", string(channel.Kind)).
		Str("event", string(event.Type)).
		Str("project", event.ProjectID).
		Msg("alert dispatched")
	return result
}

// ── Webhook driver ──────────────────────────────────────────

// WebhookDriver posts the event as JSON to the channel URL, signing the body
// with HMAC-SHA256 when the channel has a secret.
type WebhookDriver struct {
	client *http.Client
}

func (d *WebhookDriver) Kind() models.ChannelKind { return models.ChannelWebhook }

func (d *WebhookDriver) Send(ctx context.Context, channel *models.AlertChannel, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, channel.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "CrewPlan-Alert/1.0")
	req.Header.Set("X-CrewPlan-Event", string(event.Type))

	if channel.Secret != "" {
		mac := hmac.New(sha256.New, []byte(channel.Secret))
		mac.Write(body)
		req.Header.Set("X-CrewPlan-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook HTTP %d from %s", resp.StatusCode, channel.URL)
	}
	return nil
}

// ── Slack driver ────────────────────────────────────────────

// SlackDriver posts the event text to a Slack channel using the channel's
// bot token and target channel ID.
type SlackDriver struct{}

func (d *SlackDriver) Kind() models.ChannelKind { return models.ChannelSlack }

func (d *SlackDriver) Send(ctx context.Context, channel *models.AlertChannel, event Event) error {
	if channel.Token == "" || channel.Target == "" {
		return fmt.Errorf("slack channel %s is missing token or target", channel.Name)
	}
	api := slack.New(channel.Token)
	_, _, err := api.PostMessageContext(ctx, channel.Target,
		slack.MsgOptionText(event.Text(), false))
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	return nil
}
