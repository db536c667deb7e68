package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/crewplan/crewplan/internal/alerts"
	"github.com/crewplan/crewplan/internal/api/middleware"
	"github.com/crewplan/crewplan/internal/conversations"
	"github.com/crewplan/crewplan/internal/llm"
	"github.com/crewplan/crewplan/internal/store"
	"github.com/crewplan/crewplan/internal/wizard"
	"github.com/crewplan/crewplan/pkg/models"
)

type fakeProvider struct {
	resp *llm.ChatResponse
	err  error
}

func (f *fakeProvider) Chat(_ context.Context, _ *llm.ChatRequest) (*llm.ChatResponse, error) {
	return f.resp, f.err
}

var monday = time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

func newTestHandlers(t *testing.T, provider llm.Provider) (*Handlers, store.Store) {
	t.Helper()
	s := store.NewMemoryStore()
	ctx := context.Background()

	if err := s.CreateOrg(ctx, &models.Organization{ID: "default", Name: "Studio North", HeadCount: 2}); err != nil {
		t.Fatal(err)
	}
	users := []*models.User{
		{ID: "u-ryan", OrgID: "default", Name: "Ryan Chen", Role: "Designer", WeeklyCapacity: 40, Active: true},
		{ID: "u-sam", OrgID: "default", Name: "Sam Ortiz", Role: "Designer", WeeklyCapacity: 40, Active: true},
	}
	for _, u := range users {
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.CreateProject(ctx, &models.Project{
		ID: "p-acme", OrgID: "default", Name: "Acme Rebrand", Client: "Acme",
		BudgetHours: 400, Status: models.ProjectActive,
	}); err != nil {
		t.Fatal(err)
	}

	agent := wizard.NewAgent(provider, "gpt-4o")
	convs := conversations.NewStore(30 * time.Minute)
	return New(s, agent, convs, alerts.NewService(s), 4), s
}

// serve routes the request through the org extractor so handlers see a tenant.
func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	middleware.OrgExtractor(h).ServeHTTP(rec, req)
	return rec
}

func postJSON(path string, body any) *http.Request {
	buf, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestCommand_MutatingActionsReturnPlanWithPreview(t *testing.T) {
	provider := &fakeProvider{resp: &llm.ChatResponse{
		Content: "I'll put Ryan on Acme for 10 hours.",
		ToolCalls: []llm.ToolCall{{
			ID:   "call-1",
			Name: "add_allocation",
			Arguments: map[string]any{
				"user_id":    "u-ryan",
				"project_id": "p-acme",
				"week_start": monday.Format("2006-01-02"),
				"hours":      10.0,
			},
		}},
	}}
	h, s := newTestHandlers(t, provider)

	rec := serve(h.Command, postJSON("/api/v1/wizard/command", map[string]any{"text": "put ryan on acme for 10h"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp commandResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Type != ResponseActionPlan {
		t.Errorf("type = %q, want %q", resp.Type, ResponseActionPlan)
	}
	if len(resp.Actions) != 1 {
		t.Fatalf("actions = %d, want 1", len(resp.Actions))
	}
	if resp.Preview == nil {
		t.Error("preview missing from action plan")
	}
	if resp.ConversationID == "" {
		t.Error("conversation_id missing")
	}

	// Plan only: nothing is written until execute.
	allocs, err := s.ListAllocations(context.Background(), "default", nil, monday, monday.AddDate(0, 0, 7))
	if err != nil {
		t.Fatal(err)
	}
	if len(allocs) != 0 {
		t.Errorf("allocations written during planning: %d", len(allocs))
	}
}

func TestCommand_QueryActionsExecuteImmediately(t *testing.T) {
	provider := &fakeProvider{resp: &llm.ChatResponse{
		ToolCalls: []llm.ToolCall{{
			ID:   "call-1",
			Name: "check_availability",
			Arguments: map[string]any{
				"user_id":    "u-ryan",
				"week_start": monday.Format("2006-01-02"),
			},
		}},
	}}
	h, _ := newTestHandlers(t, provider)

	rec := serve(h.Command, postJSON("/api/v1/wizard/command", map[string]any{"text": "is ryan free next week?"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp commandResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Type != ResponseInfo {
		t.Errorf("type = %q, want %q", resp.Type, ResponseInfo)
	}
	if len(resp.Results) != 1 || !resp.Results[0].Success {
		t.Errorf("results = %+v, want one successful query result", resp.Results)
	}
	if resp.Preview != nil {
		t.Error("info response should carry no preview")
	}
}

func TestCommand_EmptyTextRejected(t *testing.T) {
	h, _ := newTestHandlers(t, &fakeProvider{resp: &llm.ChatResponse{Content: "hi"}})

	rec := serve(h.Command, postJSON("/api/v1/wizard/command", map[string]any{"text": ""}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCommand_ReusesConversation(t *testing.T) {
	provider := &fakeProvider{resp: &llm.ChatResponse{Content: "Sure."}}
	h, _ := newTestHandlers(t, provider)

	rec := serve(h.Command, postJSON("/api/v1/wizard/command", map[string]any{"text": "hello"}))
	var first commandResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatal(err)
	}

	rec = serve(h.Command, postJSON("/api/v1/wizard/command", map[string]any{
		"text":            "and one more thing",
		"conversation_id": first.ConversationID,
	}))
	var second commandResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatal(err)
	}
	if second.ConversationID != first.ConversationID {
		t.Errorf("conversation_id changed: %q -> %q", first.ConversationID, second.ConversationID)
	}

	conv, ok := h.Conversations.Get(first.ConversationID)
	if !ok {
		t.Fatal("conversation not stored")
	}
	if len(conv.Turns) != 4 {
		t.Errorf("turns = %d, want 4", len(conv.Turns))
	}
}

func TestExecute_AppliesActions(t *testing.T) {
	h, s := newTestHandlers(t, &fakeProvider{})

	rec := serve(h.Execute, postJSON("/api/v1/wizard/execute", map[string]any{
		"acting_user_id": "u-ryan",
		"actions": []map[string]any{{
			"tool": "add_allocation",
			"params": map[string]any{
				"user_id":    "u-ryan",
				"project_id": "p-acme",
				"week_start": monday.Format("2006-01-02"),
				"hours":      12.0,
			},
		}},
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var outcome models.ExecutionOutcome
	if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
		t.Fatal(err)
	}
	if !outcome.Success {
		t.Errorf("outcome.Success = false: %+v", outcome.Results)
	}

	alloc, err := s.GetAllocation(context.Background(), "default", "u-ryan", "p-acme", monday)
	if err != nil {
		t.Fatal(err)
	}
	if alloc.Hours != 12 {
		t.Errorf("hours = %v, want 12", alloc.Hours)
	}
}

func TestExecute_EmptyActionListRejected(t *testing.T) {
	h, _ := newTestHandlers(t, &fakeProvider{})

	rec := serve(h.Execute, postJSON("/api/v1/wizard/execute", map[string]any{"actions": []any{}}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAdvise_ValidatesInput(t *testing.T) {
	h, _ := newTestHandlers(t, &fakeProvider{})

	rec := serve(h.Advise, postJSON("/api/v1/wizard/advise", map[string]any{
		"user_id": "u-ryan", "project_id": "p-acme", "hours": -2,
	}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative hours: status = %d, want 400", rec.Code)
	}

	rec = serve(h.Advise, postJSON("/api/v1/wizard/advise", map[string]any{
		"user_id": "u-ryan", "project_id": "p-acme", "hours": 10,
		"week_start": "2026-09-01", // Tuesday
	}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-Monday week: status = %d, want 400", rec.Code)
	}
}

func TestAdvise_ReturnsRecommendation(t *testing.T) {
	h, _ := newTestHandlers(t, &fakeProvider{})

	rec := serve(h.Advise, postJSON("/api/v1/wizard/advise", map[string]any{
		"user_id": "u-ryan", "project_id": "p-acme", "hours": 10.0,
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp models.AdvisoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Recommendation != models.RecommendProceed {
		t.Errorf("recommendation = %q, want proceed", resp.Recommendation)
	}
	if len(resp.Factors) == 0 {
		t.Error("factors missing")
	}
}

func TestInsights_ReturnsList(t *testing.T) {
	h, _ := newTestHandlers(t, &fakeProvider{})

	rec := serve(h.Insights, httptest.NewRequest("GET", "/api/v1/wizard/insights", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Insights []models.Insight `json:"insights"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Insights == nil {
		t.Error("insights should be an empty list, not null")
	}
}

func TestSearchUsers_FiltersByQuery(t *testing.T) {
	h, _ := newTestHandlers(t, &fakeProvider{})

	rec := serve(h.SearchUsers, httptest.NewRequest("GET", "/api/v1/users?q=ryan", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Users []models.User `json:"users"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Users) != 1 || resp.Users[0].ID != "u-ryan" {
		t.Errorf("users = %+v, want only u-ryan", resp.Users)
	}
}

func TestCommand_UnknownOrgIs404(t *testing.T) {
	h, _ := newTestHandlers(t, &fakeProvider{resp: &llm.ChatResponse{Content: "hi"}})

	req := postJSON("/api/v1/wizard/command", map[string]any{"text": "hello"})
	req.Header.Set("X-Org", "no-such-org")
	rec := serve(h.Command, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
