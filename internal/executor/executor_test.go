package executor

import (
	"context"
	"testing"
	"time"

	"github.com/crewplan/crewplan/internal/store"
	"github.com/crewplan/crewplan/pkg/models"
)

const (
	testOrg   = "org-1"
	testActor = "actor-1"
)

var monday = time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC) // a Monday

func newTestExecutor(t *testing.T) (*Executor, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	ctx := context.Background()

	if err := s.CreateOrg(ctx, &models.Organization{ID: testOrg, Name: "Test Agency"}); err != nil {
		t.Fatal(err)
	}
	users := []models.User{
		{ID: "u-ryan", OrgID: testOrg, Name: "Ryan", Role: "Designer", Active: true},
		{ID: "u-sam", OrgID: testOrg, Name: "Sam", Role: "Designer", Active: true},
		{ID: "u-priya", OrgID: testOrg, Name: "Priya", Role: "Developer", Active: true},
	}
	for i := range users {
		if err := s.CreateUser(ctx, &users[i]); err != nil {
			t.Fatal(err)
		}
	}
	project := models.Project{
		ID: "p-acme", OrgID: testOrg, Name: "Acme Redesign", Client: "Acme",
		BudgetHours: 400, Status: models.ProjectActive,
	}
	if err := s.CreateProject(ctx, &project); err != nil {
		t.Fatal(err)
	}

	exec := NewAt(s, func() time.Time { return monday.Add(10 * time.Hour) })
	return exec, s
}

func addCall(userID string, hours float64) models.ActionCall {
	return models.ActionCall{
		Tool: ToolAddAllocation,
		Params: map[string]any{
			"user_id":    userID,
			"project_id": "p-acme",
			"week_start": monday.Format("2006-01-02"),
			"hours":      hours,
		},
	}
}

func TestExecute_AddTwiceMergesHours(t *testing.T) {
	exec, s := newTestExecutor(t)
	ctx := context.Background()

	out := exec.Execute(ctx, testOrg, testActor, []models.ActionCall{
		addCall("u-ryan", 10),
		addCall("u-ryan", 5),
	})
	if !out.Success {
		t.Fatalf("outcome not successful: %+v", out)
	}

	allocs, err := s.ListAllocations(ctx, testOrg, []string{"u-ryan"}, monday, monday.AddDate(0, 0, 7))
	if err != nil {
		t.Fatal(err)
	}
	if len(allocs) != 1 {
		t.Fatalf("got %d allocations, want 1 merged row", len(allocs))
	}
	if allocs[0].Hours != 15 {
		t.Errorf("Hours = %v, want 15", allocs[0].Hours)
	}
}

func TestExecute_AddThenRemoveLeavesAuditTrail(t *testing.T) {
	exec, s := newTestExecutor(t)
	ctx := context.Background()

	out := exec.Execute(ctx, testOrg, testActor, []models.ActionCall{
		addCall("u-ryan", 10),
		{
			Tool: ToolRemoveAllocation,
			Params: map[string]any{
				"user_id":    "u-ryan",
				"project_id": "p-acme",
				"week_start": monday.Format("2006-01-02"),
			},
		},
	})
	if !out.Success {
		t.Fatalf("outcome not successful: %+v", out)
	}

	allocs, err := s.ListAllocations(ctx, testOrg, nil, monday, monday.AddDate(0, 0, 7))
	if err != nil {
		t.Fatal(err)
	}
	if len(allocs) != 0 {
		t.Errorf("got %d allocations, want 0 after remove", len(allocs))
	}

	entries, err := s.ListAuditEntries(ctx, models.AuditFilter{OrgID: testOrg, EntityType: "allocation"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d audit entries, want exactly create + delete", len(entries))
	}
	// Newest first.
	if entries[0].Action != models.AuditDelete || entries[1].Action != models.AuditCreate {
		t.Errorf("audit actions = %s, %s; want delete, create", entries[0].Action, entries[1].Action)
	}
	if entries[0].ActorID != testActor {
		t.Errorf("ActorID = %q, want %q", entries[0].ActorID, testActor)
	}
}

func TestExecute_MoveFullHoursDeletesSource(t *testing.T) {
	exec, s := newTestExecutor(t)
	ctx := context.Background()

	out := exec.Execute(ctx, testOrg, testActor, []models.ActionCall{
		addCall("u-ryan", 8),
		{
			Tool: ToolMoveAllocation,
			Params: map[string]any{
				"from_user_id": "u-ryan",
				"to_user_id":   "u-sam",
				"project_id":   "p-acme",
				"week_start":   monday.Format("2006-01-02"),
				"hours":        8,
			},
		},
	})
	if !out.Success {
		t.Fatalf("outcome not successful: %+v", out)
	}

	if _, err := s.GetAllocation(ctx, testOrg, "u-ryan", "p-acme", monday); !store.IsNotFound(err) {
		t.Errorf("source allocation still present (err=%v), want deleted", err)
	}
	dest, err := s.GetAllocation(ctx, testOrg, "u-sam", "p-acme", monday)
	if err != nil {
		t.Fatal(err)
	}
	if dest.Hours != 8 {
		t.Errorf("destination Hours = %v, want 8", dest.Hours)
	}
}

func TestExecute_MovePartialHoursReducesSource(t *testing.T) {
	exec, s := newTestExecutor(t)
	ctx := context.Background()

	out := exec.Execute(ctx, testOrg, testActor, []models.ActionCall{
		addCall("u-ryan", 20),
		{
			Tool: ToolMoveAllocation,
			Params: map[string]any{
				"from_user_id": "u-ryan",
				"to_user_id":   "u-sam",
				"project_id":   "p-acme",
				"week_start":   monday.Format("2006-01-02"),
				"hours":        8,
			},
		},
	})
	if !out.Success {
		t.Fatalf("outcome not successful: %+v", out)
	}

	source, err := s.GetAllocation(ctx, testOrg, "u-ryan", "p-acme", monday)
	if err != nil {
		t.Fatal(err)
	}
	if source.Hours != 12 {
		t.Errorf("source Hours = %v, want 12", source.Hours)
	}
}

func TestExecute_MoveWithoutSourceAddsDestinationOnly(t *testing.T) {
	exec, s := newTestExecutor(t)
	ctx := context.Background()

	out := exec.Execute(ctx, testOrg, testActor, []models.ActionCall{
		{
			Tool: ToolMoveAllocation,
			Params: map[string]any{
				"from_user_id": "u-ryan",
				"to_user_id":   "u-sam",
				"project_id":   "p-acme",
				"week_start":   monday.Format("2006-01-02"),
				"hours":        6,
			},
		},
	})
	if !out.Success {
		t.Fatalf("outcome not successful: %+v", out)
	}

	dest, err := s.GetAllocation(ctx, testOrg, "u-sam", "p-acme", monday)
	if err != nil {
		t.Fatal(err)
	}
	if dest.Hours != 6 {
		t.Errorf("destination Hours = %v, want 6", dest.Hours)
	}
}

func TestExecute_MovePartialFailureKeepsSourceState(t *testing.T) {
	exec, s := newTestExecutor(t)
	ctx := context.Background()

	exec.Execute(ctx, testOrg, testActor, []models.ActionCall{addCall("u-ryan", 20)})

	// Destination user does not exist, so the add fails after the source
	// was already reduced. The result must still report the source state.
	out := exec.Execute(ctx, testOrg, testActor, []models.ActionCall{{
		Tool: ToolMoveAllocation,
		Params: map[string]any{
			"from_user_id": "u-ryan",
			"to_user_id":   "u-ghost",
			"project_id":   "p-acme",
			"week_start":   monday.Format("2006-01-02"),
			"hours":        8.0,
		},
	}})
	if out.Success {
		t.Fatal("outcome Success = true with a missing destination user")
	}

	result := out.Results[0]
	data, ok := result.Data.(map[string]any)
	if !ok {
		t.Fatalf("result data is %T, want map with partial state", result.Data)
	}
	if data["source_remaining"] != 12.0 {
		t.Errorf("source_remaining = %v, want 12", data["source_remaining"])
	}

	source, err := s.GetAllocation(ctx, testOrg, "u-ryan", "p-acme", monday)
	if err != nil {
		t.Fatal(err)
	}
	if source.Hours != 12 {
		t.Errorf("source Hours = %v, want 12", source.Hours)
	}
}

func TestExecute_BulkReportsAttemptedVsSucceeded(t *testing.T) {
	exec, s := newTestExecutor(t)
	ctx := context.Background()

	changes := []any{
		map[string]any{
			"op": "add", "user_id": "u-ryan", "project_id": "p-acme",
			"week_start": monday.Format("2006-01-02"), "hours": 10.0,
		},
		map[string]any{
			"op": "update", "user_id": "u-sam", "project_id": "p-acme",
			"week_start": monday.Format("2006-01-02"), "hours": 16.0,
		},
		map[string]any{
			// Not a Monday: must fail validation without stopping the rest.
			"op": "add", "user_id": "u-priya", "project_id": "p-acme",
			"week_start": monday.AddDate(0, 0, 2).Format("2006-01-02"), "hours": 4.0,
		},
	}
	out := exec.Execute(ctx, testOrg, testActor, []models.ActionCall{
		{Tool: ToolBulkUpdate, Params: map[string]any{"changes": changes}},
	})
	if out.Success {
		t.Fatal("outcome Success = true, want false with one invalid change")
	}

	result := out.Results[0]
	data, ok := result.Data.(map[string]any)
	if !ok {
		t.Fatalf("result data is %T, want map", result.Data)
	}
	if data["attempted"] != 3 {
		t.Errorf("attempted = %v, want 3", data["attempted"])
	}
	if data["succeeded"] != 2 {
		t.Errorf("succeeded = %v, want 2", data["succeeded"])
	}

	// The valid changes landed despite the invalid one.
	ryan, err := s.GetAllocation(ctx, testOrg, "u-ryan", "p-acme", monday)
	if err != nil {
		t.Fatal(err)
	}
	if ryan.Hours != 10 {
		t.Errorf("ryan Hours = %v, want 10", ryan.Hours)
	}
	sam, err := s.GetAllocation(ctx, testOrg, "u-sam", "p-acme", monday)
	if err != nil {
		t.Fatal(err)
	}
	if sam.Hours != 16 {
		t.Errorf("sam Hours = %v, want 16", sam.Hours)
	}
}

func TestExecute_BulkSetIsAbsoluteNotAdditive(t *testing.T) {
	exec, s := newTestExecutor(t)
	ctx := context.Background()

	exec.Execute(ctx, testOrg, testActor, []models.ActionCall{addCall("u-ryan", 30)})
	out := exec.Execute(ctx, testOrg, testActor, []models.ActionCall{
		{Tool: ToolBulkUpdate, Params: map[string]any{"changes": []any{
			map[string]any{
				"op": "update", "user_id": "u-ryan", "project_id": "p-acme",
				"week_start": monday.Format("2006-01-02"), "hours": 12.0,
			},
		}}},
	})
	if !out.Success {
		t.Fatalf("outcome not successful: %+v", out)
	}

	alloc, err := s.GetAllocation(ctx, testOrg, "u-ryan", "p-acme", monday)
	if err != nil {
		t.Fatal(err)
	}
	if alloc.Hours != 12 {
		t.Errorf("Hours = %v, want absolute 12 (not 42)", alloc.Hours)
	}
}

func TestExecute_NonMondayWeekStartRejected(t *testing.T) {
	exec, s := newTestExecutor(t)
	ctx := context.Background()

	call := addCall("u-ryan", 10)
	call.Params["week_start"] = monday.AddDate(0, 0, 3).Format("2006-01-02")
	out := exec.Execute(ctx, testOrg, testActor, []models.ActionCall{call})
	if out.Success {
		t.Fatal("outcome Success = true, want rejection")
	}
	if out.Results[0].Error == "" {
		t.Error("expected validation error message on result")
	}

	allocs, err := s.ListAllocations(ctx, testOrg, nil, monday, monday.AddDate(0, 0, 14))
	if err != nil {
		t.Fatal(err)
	}
	if len(allocs) != 0 {
		t.Errorf("got %d allocations, want none written", len(allocs))
	}
}

func TestExecute_FailedActionDoesNotStopRemaining(t *testing.T) {
	exec, s := newTestExecutor(t)
	ctx := context.Background()

	out := exec.Execute(ctx, testOrg, testActor, []models.ActionCall{
		addCall("u-nobody", 10), // unknown user
		addCall("u-sam", 10),
	})
	if out.Success {
		t.Fatal("outcome Success = true, want false")
	}
	if out.Results[0].Success {
		t.Error("first action succeeded, want failure")
	}
	if !out.Results[1].Success {
		t.Errorf("second action failed: %s", out.Results[1].Error)
	}

	if _, err := s.GetAllocation(ctx, testOrg, "u-sam", "p-acme", monday); err != nil {
		t.Errorf("sam's allocation missing: %v", err)
	}
}

func TestExecute_Availability(t *testing.T) {
	exec, _ := newTestExecutor(t)
	ctx := context.Background()

	exec.Execute(ctx, testOrg, testActor, []models.ActionCall{addCall("u-ryan", 32)})
	out := exec.Execute(ctx, testOrg, testActor, []models.ActionCall{
		{Tool: ToolAvailability, Params: map[string]any{"user_id": "u-ryan"}},
	})
	if !out.Success {
		t.Fatalf("outcome not successful: %+v", out)
	}
	data := out.Results[0].Data.(map[string]any)
	if data["allocated_hours"] != 32.0 {
		t.Errorf("allocated_hours = %v, want 32", data["allocated_hours"])
	}
	if data["available_hours"] != 8.0 {
		t.Errorf("available_hours = %v, want 8", data["available_hours"])
	}
}

func TestExecute_SuggestCoverageRanksRoleMatchFirst(t *testing.T) {
	exec, _ := newTestExecutor(t)
	ctx := context.Background()

	// Priya (Developer) has the most free hours, but Sam shares Ryan's role.
	exec.Execute(ctx, testOrg, testActor, []models.ActionCall{
		addCall("u-ryan", 24),
		addCall("u-sam", 10),
	})

	out := exec.Execute(ctx, testOrg, testActor, []models.ActionCall{
		{Tool: ToolSuggestCoverage, Params: map[string]any{
			"user_id":    "u-ryan",
			"week_start": monday.Format("2006-01-02"),
		}},
	})
	if !out.Success {
		t.Fatalf("outcome not successful: %+v", out)
	}
	data := out.Results[0].Data.(map[string]any)
	if data["hours_to_fill"] != 24.0 {
		t.Errorf("hours_to_fill = %v, want 24", data["hours_to_fill"])
	}
	candidates := data["candidates"].([]CoverageCandidate)
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}
	if candidates[0].UserID != "u-sam" {
		t.Errorf("first candidate = %s, want role-matching u-sam", candidates[0].UserID)
	}
	if candidates[1].UserID != "u-priya" {
		t.Errorf("second candidate = %s, want u-priya", candidates[1].UserID)
	}
}

func TestIsMutating(t *testing.T) {
	mutating := []string{ToolAddAllocation, ToolRemoveAllocation, ToolMoveAllocation, ToolBulkUpdate}
	for _, tool := range mutating {
		if !IsMutating(tool) {
			t.Errorf("IsMutating(%s) = false, want true", tool)
		}
	}
	queries := []string{ToolAvailability, ToolUserAllocations, ToolProjectStatus, ToolSuggestCoverage}
	for _, tool := range queries {
		if IsMutating(tool) {
			t.Errorf("IsMutating(%s) = true, want false", tool)
		}
	}
}
