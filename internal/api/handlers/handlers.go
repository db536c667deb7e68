// Package handlers implements the HTTP handlers for the CrewPlan wizard API.
// Handlers stay thin: decode, resolve the org, call the pipeline, encode.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/crewplan/crewplan/internal/advisor"
	"github.com/crewplan/crewplan/internal/alerts"
	"github.com/crewplan/crewplan/internal/api/middleware"
	"github.com/crewplan/crewplan/internal/classifier"
	"github.com/crewplan/crewplan/internal/conversations"
	"github.com/crewplan/crewplan/internal/executor"
	"github.com/crewplan/crewplan/internal/insights"
	"github.com/crewplan/crewplan/internal/preview"
	"github.com/crewplan/crewplan/internal/snapshot"
	"github.com/crewplan/crewplan/internal/store"
	"github.com/crewplan/crewplan/internal/wizard"
	"github.com/crewplan/crewplan/pkg/models"
)

// Response types for POST /wizard/command.
const (
	// ResponseInfo means any proposed actions were query-only and have
	// already been executed; the message is the final answer.
	ResponseInfo = "info"

	// ResponseActionPlan means the actions mutate state and wait for an
	// explicit execute call, accompanied by a before/after preview.
	ResponseActionPlan = "action_plan"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Store         store.Store
	Snapshots     *snapshot.Builder
	Agent         *wizard.Agent
	Executor      *executor.Executor
	Conversations *conversations.Store
	Alerts        *alerts.Service
	WindowWeeks   int
}

// New creates a Handlers instance.
func New(s store.Store, agent *wizard.Agent, convs *conversations.Store, alertSvc *alerts.Service, windowWeeks int) *Handlers {
	return &Handlers{
		Store:         s,
		Snapshots:     snapshot.NewBuilder(s),
		Agent:         agent,
		Executor:      executor.New(s),
		Conversations: convs,
		Alerts:        alertSvc,
		WindowWeeks:   windowWeeks,
	}
}

// ── Wizard ──────────────────────────────────────────────────

type commandRequest struct {
	Text           string   `json:"text"`
	ProjectID      string   `json:"project_id,omitempty"`
	UserIDs        []string `json:"user_ids,omitempty"`
	ConversationID string   `json:"conversation_id,omitempty"`
	ActingUserID   string   `json:"acting_user_id,omitempty"`
}

type commandResponse struct {
	Type           string                `json:"type"`
	Message        string                `json:"message"`
	Actions        []models.ActionCall   `json:"actions,omitempty"`
	Preview        *preview.Projection   `json:"preview,omitempty"`
	Results        []models.ActionResult `json:"results,omitempty"`
	ConversationID string                `json:"conversation_id"`
}

// Command processes one free-text wizard command.
func (h *Handlers) Command(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrg(r.Context())

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	var history []models.ChatTurn
	if req.ConversationID != "" {
		if conv, ok := h.Conversations.Get(req.ConversationID); ok {
			history = conv.Turns
		}
	}

	hint := classifier.Classify(req.Text)

	snap, err := h.Snapshots.Build(r.Context(), snapshot.BuildRequest{
		OrgID:          org,
		WindowWeeks:    h.WindowWeeks,
		FocusProjectID: req.ProjectID,
		FocusUserIDs:   req.UserIDs,
		History:        history,
	})
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "organization not found")
			return
		}
		log.Error().Err(err).Str("org", org).Msg("snapshot build failed")
		respondError(w, http.StatusBadGateway, "could not load organization state")
		return
	}

	reply, err := h.Agent.Process(r.Context(), req.Text, snap, hint)
	if err != nil {
		log.Error().Err(err).Str("org", org).Msg("wizard turn failed")
		respondError(w, http.StatusBadGateway, "the assistant could not process this request")
		return
	}

	resp := commandResponse{Message: reply.Message}

	if reply.HasMutations() {
		resp.Type = ResponseActionPlan
		resp.Actions = reply.Actions
		resp.Preview = preview.Project(reply.Actions, snap)
	} else {
		resp.Type = ResponseInfo
		if len(reply.Actions) > 0 {
			outcome := h.Executor.Execute(r.Context(), org, req.ActingUserID, reply.Actions)
			resp.Results = outcome.Results
		}
	}

	resp.ConversationID = h.Conversations.Append(req.ConversationID, org, req.ActingUserID,
		models.ChatTurn{Role: "user", Content: req.Text},
		models.ChatTurn{Role: "assistant", Content: reply.Message},
	)
	respondJSON(w, http.StatusOK, resp)
}

type executeRequest struct {
	Actions        []models.ActionCall `json:"actions"`
	ConversationID string              `json:"conversation_id,omitempty"`
	ActingUserID   string              `json:"acting_user_id,omitempty"`
}

// Execute applies a confirmed action list.
func (h *Handlers) Execute(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrg(r.Context())

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Actions) == 0 {
		respondError(w, http.StatusBadRequest, "actions are required")
		return
	}

	outcome := h.Executor.Execute(r.Context(), org, req.ActingUserID, req.Actions)

	if req.ConversationID != "" {
		h.Conversations.Append(req.ConversationID, org, req.ActingUserID,
			models.ChatTurn{Role: "assistant", Content: outcome.Message})
	}

	h.checkBudgets(r.Context(), org, req.Actions)
	respondJSON(w, http.StatusOK, outcome)
}

// checkBudgets dispatches budget alerts for the projects a batch touched.
// Runs detached so alerting never delays or fails the response.
func (h *Handlers) checkBudgets(ctx context.Context, org string, actions []models.ActionCall) {
	if h.Alerts == nil {
		return
	}
	projectIDs := make(map[string]bool)
	for _, a := range actions {
		if !executor.IsMutating(a.Tool) {
			continue
		}
		if id, ok := a.Params["project_id"].(string); ok && id != "" {
			projectIDs[id] = true
		}
	}
	if len(projectIDs) == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		for id := range projectIDs {
			project, err := h.Store.GetProject(ctx, org, id)
			if err != nil {
				log.Warn().Err(err).Str("project", id).Msg("budget check skipped")
				continue
			}
			h.Alerts.CheckProject(ctx, project)
		}
	}()
}

// Insights recomputes and returns the org's current insight list.
func (h *Handlers) Insights(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrg(r.Context())

	snap, err := h.Snapshots.Build(r.Context(), snapshot.BuildRequest{OrgID: org, WindowWeeks: h.WindowWeeks})
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "organization not found")
			return
		}
		respondError(w, http.StatusBadGateway, "could not load organization state")
		return
	}

	result := insights.Analyze(snap)
	if result == nil {
		result = []models.Insight{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"insights": result})
}

type adviseRequest struct {
	UserID    string  `json:"user_id"`
	ProjectID string  `json:"project_id"`
	Hours     float64 `json:"hours"`
	WeekStart string  `json:"week_start,omitempty"` // YYYY-MM-DD Monday; empty = current week
}

// Advise evaluates one proposed allocation change.
func (h *Handlers) Advise(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrg(r.Context())

	var req adviseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" || req.ProjectID == "" || req.Hours <= 0 {
		respondError(w, http.StatusBadRequest, "user_id, project_id and positive hours are required")
		return
	}

	snap, err := h.Snapshots.Build(r.Context(), snapshot.BuildRequest{OrgID: org, WindowWeeks: h.WindowWeeks})
	if err != nil {
		respondError(w, http.StatusBadGateway, "could not load organization state")
		return
	}

	week := snap.WeekStart
	if req.WeekStart != "" {
		parsed, err := time.Parse("2006-01-02", req.WeekStart)
		if err != nil {
			respondError(w, http.StatusBadRequest, "week_start must be YYYY-MM-DD")
			return
		}
		week = parsed.UTC()
		if !models.IsWeekStart(week) {
			respondError(w, http.StatusBadRequest, "week_start must be a Monday")
			return
		}
	}

	resp := advisor.Evaluate(advisor.Request{
		UserID:    req.UserID,
		ProjectID: req.ProjectID,
		Hours:     req.Hours,
		WeekStart: week,
	}, snap)
	respondJSON(w, http.StatusOK, resp)
}

// ClearConversation drops a conversation's stored history.
func (h *Handlers) ClearConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	h.Conversations.Clear(id)
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// ── Directory reads ─────────────────────────────────────────

// SearchUsers matches users by name substring via the q parameter.
func (h *Handlers) SearchUsers(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrg(r.Context())
	users, err := h.Store.SearchUsers(r.Context(), org, r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if users == nil {
		users = []models.User{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": users})
}

// SearchProjects matches projects by name or client substring.
func (h *Handlers) SearchProjects(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrg(r.Context())
	projects, err := h.Store.SearchProjects(r.Context(), org, r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if projects == nil {
		projects = []models.Project{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// UserAvailability reports a user's free hours for a week.
func (h *Handlers) UserAvailability(w http.ResponseWriter, r *http.Request) {
	params := map[string]any{"user_id": chi.URLParam(r, "userID")}
	if week := r.URL.Query().Get("week_start"); week != "" {
		params["week_start"] = week
	}
	h.runQuery(w, r, models.ActionCall{Tool: executor.ToolAvailability, Params: params})
}

// UserAllocations lists a user's allocations over a date range.
func (h *Handlers) UserAllocations(w http.ResponseWriter, r *http.Request) {
	params := map[string]any{"user_id": chi.URLParam(r, "userID")}
	if from := r.URL.Query().Get("from"); from != "" {
		params["from"] = from
	}
	if to := r.URL.Query().Get("to"); to != "" {
		params["to"] = to
	}
	h.runQuery(w, r, models.ActionCall{Tool: executor.ToolUserAllocations, Params: params})
}

// ProjectStatus reports a project's budget burn and phase breakdown.
func (h *Handlers) ProjectStatus(w http.ResponseWriter, r *http.Request) {
	h.runQuery(w, r, models.ActionCall{
		Tool:   executor.ToolProjectStatus,
		Params: map[string]any{"project_id": chi.URLParam(r, "projectID")},
	})
}

// runQuery routes a read through the executor's query tools so the HTTP
// surface and the wizard share one implementation.
func (h *Handlers) runQuery(w http.ResponseWriter, r *http.Request, call models.ActionCall) {
	org := middleware.GetOrg(r.Context())
	outcome := h.Executor.Execute(r.Context(), org, "", []models.ActionCall{call})

	result := outcome.Results[0]
	if !result.Success {
		// The executor flattens errors to strings, so match on the
		// store's not-found message shape.
		status := http.StatusBadRequest
		if strings.Contains(result.Error, "not found") {
			status = http.StatusNotFound
		}
		respondError(w, status, result.Error)
		return
	}
	respondJSON(w, http.StatusOK, result.Data)
}

// ── Helpers ─────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
