// Package models defines the shared data model for the CrewPlan control plane:
// organizations, people, projects, allocations, and the resource-wizard types
// (snapshots, action calls, insights, advisories, conversations).
package models

import (
	"time"
)

// DefaultWeeklyCapacity is the assumed weekly capacity in hours when a user
// carries no explicit override.
const DefaultWeeklyCapacity = 40.0

// ── Organization ────────────────────────────────────────────

// Organization is a tenant: one agency with its own users, projects and
// audit trail.
type Organization struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	HeadCount int       `json:"head_count" db:"head_count"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ── Users ───────────────────────────────────────────────────

// User is a plannable person: an employee or freelancer whose hours are
// allocated to projects week by week.
type User struct {
	ID             string    `json:"id" db:"id"`
	OrgID          string    `json:"org_id" db:"org_id"`
	Name           string    `json:"name" db:"name"`
	Role           string    `json:"role" db:"role"` // display title, e.g. "Senior Designer"
	WeeklyCapacity float64   `json:"weekly_capacity,omitempty" db:"weekly_capacity"` // 0 = DefaultWeeklyCapacity
	Freelance      bool      `json:"freelance" db:"freelance"`
	Location       string    `json:"location,omitempty" db:"location"`
	Specialties    string    `json:"specialties,omitempty" db:"specialties"` // free-text notes
	Active         bool      `json:"active" db:"active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Capacity returns the user's effective weekly capacity in hours.
func (u *User) Capacity() float64 {
	if u.WeeklyCapacity > 0 {
		return u.WeeklyCapacity
	}
	return DefaultWeeklyCapacity
}

// ── Projects ────────────────────────────────────────────────

// ProjectStatus tracks the lifecycle of a project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on_hold"
	ProjectCompleted ProjectStatus = "completed"
)

// Project is a client engagement with an hour budget.
type Project struct {
	ID            string        `json:"id" db:"id"`
	OrgID         string        `json:"org_id" db:"org_id"`
	Name          string        `json:"name" db:"name"`
	Client        string        `json:"client" db:"client"`
	BudgetHours   float64       `json:"budget_hours" db:"budget_hours"`
	ConsumedHours float64       `json:"consumed_hours" db:"consumed_hours"`
	Status        ProjectStatus `json:"status" db:"status"`
	Phases        []Phase       `json:"phases,omitempty"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// Phase is a sub-budget within a project (e.g. "Discovery", "Production").
type Phase struct {
	ID            string  `json:"id" db:"id"`
	ProjectID     string  `json:"project_id" db:"project_id"`
	Name          string  `json:"name" db:"name"`
	BudgetHours   float64 `json:"budget_hours" db:"budget_hours"`
	ConsumedHours float64 `json:"consumed_hours" db:"consumed_hours"`
}

// Burn returns consumed hours as a fraction of the budget (0 when no budget).
func (p *Project) Burn() float64 {
	if p.BudgetHours <= 0 {
		return 0
	}
	return p.ConsumedHours / p.BudgetHours
}

// ── Allocations & time off ──────────────────────────────────

// Allocation is planned hours for a (user, project, optional phase, week)
// tuple. WeekStart is always the Monday of the week, at midnight UTC.
type Allocation struct {
	ID        string    `json:"id" db:"id"`
	OrgID     string    `json:"org_id" db:"org_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	ProjectID string    `json:"project_id" db:"project_id"`
	PhaseID   string    `json:"phase_id,omitempty" db:"phase_id"`
	WeekStart time.Time `json:"week_start" db:"week_start"`
	Hours     float64   `json:"hours" db:"hours"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TimeOffEntry is one calendar day of PTO for a user. Ranges are stored as
// one entry per day, never as spans.
type TimeOffEntry struct {
	ID     string    `json:"id" db:"id"`
	OrgID  string    `json:"org_id" db:"org_id"`
	UserID string    `json:"user_id" db:"user_id"`
	Date   time.Time `json:"date" db:"date"`
}

// StartOfWeek returns the Monday of t's week at midnight UTC.
func StartOfWeek(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -offset)
}

// IsWeekStart reports whether t falls exactly on a Monday midnight UTC.
func IsWeekStart(t time.Time) bool {
	return t.UTC().Equal(StartOfWeek(t))
}

// ── Audit trail ─────────────────────────────────────────────

// AuditAction is the kind of mutation an audit entry records.
type AuditAction string

const (
	AuditCreate AuditAction = "create"
	AuditUpdate AuditAction = "update"
	AuditDelete AuditAction = "delete"
)

// AuditChange is the {old, new} payload of an audit entry. Either side may be
// nil (nil old for creates, nil new for deletes).
type AuditChange struct {
	Old any `json:"old,omitempty"`
	New any `json:"new,omitempty"`
}

// AuditEntry records one mutation. Entries are append-only: written once per
// successful state change, never edited or deleted. They are the system of
// record for "who changed what".
type AuditEntry struct {
	ID         string      `json:"id" db:"id"`
	OrgID      string      `json:"org_id" db:"org_id"`
	EntityType string      `json:"entity_type" db:"entity_type"` // e.g. "allocation"
	EntityID   string      `json:"entity_id" db:"entity_id"`
	Action     AuditAction `json:"action" db:"action"`
	ActorID    string      `json:"actor_id" db:"actor_id"`
	Change     AuditChange `json:"change"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

// AuditFilter provides query options for listing audit entries.
type AuditFilter struct {
	OrgID      string
	EntityType string
	EntityID   string
	ActorID    string
	Limit      int
}

// ── Snapshot views ──────────────────────────────────────────

// ChatTurn is one turn of wizard dialogue.
type ChatTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// AllocationView is an allocation as seen inside a snapshot, with display
// names resolved.
type AllocationView struct {
	ProjectID   string    `json:"project_id"`
	ProjectName string    `json:"project_name"`
	PhaseID     string    `json:"phase_id,omitempty"`
	PhaseName   string    `json:"phase_name,omitempty"`
	WeekStart   time.Time `json:"week_start"`
	Hours       float64   `json:"hours"`
}

// UserView is a user plus their allocations and time off within the snapshot
// window.
type UserView struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Role           string           `json:"role"`
	WeeklyCapacity float64          `json:"weekly_capacity"`
	Freelance      bool             `json:"freelance"`
	Location       string           `json:"location,omitempty"`
	Specialties    string           `json:"specialties,omitempty"`
	Allocations    []AllocationView `json:"allocations"`
	TimeOff        []time.Time      `json:"time_off,omitempty"`
}

// HoursByWeek groups the user's allocated hours per week. Overallocation
// analysis must always use this grouping; hours are never meaningful summed
// across weeks.
func (u *UserView) HoursByWeek() map[time.Time]float64 {
	byWeek := make(map[time.Time]float64, len(u.Allocations))
	for _, a := range u.Allocations {
		byWeek[a.WeekStart] += a.Hours
	}
	return byWeek
}

// ProjectView is a project as seen inside a snapshot.
type ProjectView struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Client        string        `json:"client"`
	BudgetHours   float64       `json:"budget_hours"`
	ConsumedHours float64       `json:"consumed_hours"`
	Status        ProjectStatus `json:"status"`
	Phases        []Phase       `json:"phases,omitempty"`
}

// OrgSnapshot is an immutable, point-in-time read of organizational state
// used for one wizard command's reasoning. It is never mutated; a stale
// snapshot is superseded by building a new one.
type OrgSnapshot struct {
	OrgID       string        `json:"org_id"`
	OrgName     string        `json:"org_name"`
	HeadCount   int           `json:"head_count"`
	WeekStart   time.Time     `json:"week_start"` // Monday of the current week
	WindowWeeks int           `json:"window_weeks"`
	Users       []UserView    `json:"users"`
	Projects    []ProjectView `json:"projects"`
	History     []ChatTurn    `json:"history,omitempty"`
}

// UserByID returns the snapshot's view of a user, or nil.
func (s *OrgSnapshot) UserByID(id string) *UserView {
	for i := range s.Users {
		if s.Users[i].ID == id {
			return &s.Users[i]
		}
	}
	return nil
}

// ProjectByID returns the snapshot's view of a project, or nil.
func (s *OrgSnapshot) ProjectByID(id string) *ProjectView {
	for i := range s.Projects {
		if s.Projects[i].ID == id {
			return &s.Projects[i]
		}
	}
	return nil
}

// ── Action calls & results ──────────────────────────────────

// ActionCall is a single proposed mutation or query, named and parameterized.
// Action calls are produced only by the command agent; the executor validates
// every parameter at the trust boundary; nothing model-supplied is passed to
// storage unchecked.
type ActionCall struct {
	Tool        string         `json:"tool"`
	Params      map[string]any `json:"params"`
	Description string         `json:"description,omitempty"`
}

// ActionResult is the outcome of executing one ActionCall. Results preserve
// the order of the submitted actions.
type ActionResult struct {
	Tool    string `json:"tool"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ExecutionOutcome aggregates per-action results into one response.
// Success is true only when every action succeeded.
type ExecutionOutcome struct {
	Success bool           `json:"success"`
	Results []ActionResult `json:"results"`
	Message string         `json:"message"`
}

// ── Insights ────────────────────────────────────────────────

// InsightType categorizes a proactive finding.
type InsightType string

const (
	InsightOverallocation   InsightType = "overallocation"
	InsightUnderutilization InsightType = "underutilization"
	InsightBudgetWarning    InsightType = "budget_warning"
	InsightCoverageGap      InsightType = "coverage_gap"
	InsightPattern          InsightType = "pattern"
)

// Severity ranks an insight. Sort order is critical > warning > info.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank returns a numeric weight for sorting (higher = more severe).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// Insight is one analytical finding over a snapshot. Insights are ephemeral:
// recomputed on every request, never persisted.
type Insight struct {
	Type        InsightType    `json:"type"`
	Severity    Severity       `json:"severity"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	UserIDs     []string       `json:"user_ids,omitempty"`
	ProjectIDs  []string       `json:"project_ids,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Suggestion  *ActionCall    `json:"suggestion,omitempty"`
}

// ── Advisory ────────────────────────────────────────────────

// Recommendation is the advisory engine's verdict on a proposed change.
type Recommendation string

const (
	RecommendProceed Recommendation = "proceed"
	RecommendCaution Recommendation = "caution"
	RecommendAvoid   Recommendation = "avoid"
)

// FactorScore tags one advisory factor.
type FactorScore string

const (
	FactorPositive FactorScore = "positive"
	FactorNeutral  FactorScore = "neutral"
	FactorNegative FactorScore = "negative"
)

// AdvisoryFactor is one scored dimension (capacity, budget, time off, skill
// match) feeding a recommendation.
type AdvisoryFactor struct {
	Name   string      `json:"name"`
	Score  FactorScore `json:"score"`
	Detail string      `json:"detail"`
}

// AdvisoryResponse is the advisory engine's full answer: recommendation,
// ordered reasoning, scored factors, and ready-to-execute alternatives.
// Ephemeral, computed on demand.
type AdvisoryResponse struct {
	Recommendation Recommendation   `json:"recommendation"`
	Reasoning      []string         `json:"reasoning"`
	Factors        []AdvisoryFactor `json:"factors"`
	Alternatives   []ActionCall     `json:"alternatives,omitempty"`
}

// ── Conversations ───────────────────────────────────────────

// Conversation is in-flight wizard dialogue state. It is owned exclusively by
// the conversation store; no other component may hold a reference across
// requests.
type Conversation struct {
	ID        string     `json:"id"`
	OrgID     string     `json:"org_id"`
	UserID    string     `json:"user_id"`
	Turns     []ChatTurn `json:"turns"`
	CreatedAt time.Time  `json:"created_at"`
}

// ── Alert channels ──────────────────────────────────────────

// ChannelKind identifies a notification channel driver.
type ChannelKind string

const (
	ChannelWebhook ChannelKind = "webhook"
	ChannelSlack   ChannelKind = "slack"
)

// AlertChannel is a registered destination for budget alerts.
type AlertChannel struct {
	ID        string      `json:"id" db:"id"`
	OrgID     string      `json:"org_id" db:"org_id"`
	Name      string      `json:"name" db:"name"`
	Kind      ChannelKind `json:"kind" db:"kind"`
	URL       string      `json:"url,omitempty" db:"url"`       // webhook endpoint
	Secret    string      `json:"secret,omitempty" db:"secret"` // HMAC signing secret
	Token     string      `json:"token,omitempty" db:"token"`   // Slack bot token
	Target    string      `json:"target,omitempty" db:"target"` // Slack channel ID
	Active    bool        `json:"active" db:"active"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}
