package preview

import (
	"testing"
	"time"

	"github.com/crewplan/crewplan/pkg/models"
)

var monday = time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

func testSnapshot() *models.OrgSnapshot {
	return &models.OrgSnapshot{
		OrgID:     "org-1",
		WeekStart: monday,
		Users: []models.UserView{
			{
				ID: "u-ryan", Name: "Ryan", WeeklyCapacity: 40,
				Allocations: []models.AllocationView{
					{ProjectID: "p-acme", ProjectName: "Acme Redesign", WeekStart: monday, Hours: 20},
				},
			},
			{ID: "u-sam", Name: "Sam", WeeklyCapacity: 40, Allocations: []models.AllocationView{}},
		},
		Projects: []models.ProjectView{
			{ID: "p-acme", Name: "Acme Redesign", BudgetHours: 400},
		},
	}
}

func findWeek(t *testing.T, states []UserWeek, userID string) UserWeek {
	t.Helper()
	for _, s := range states {
		if s.UserID == userID {
			return s
		}
	}
	t.Fatalf("no state for %s in %+v", userID, states)
	return UserWeek{}
}

func TestProject_AddShowsBeforeAndAfter(t *testing.T) {
	proj := Project([]models.ActionCall{{
		Tool: "add_allocation",
		Params: map[string]any{
			"user_id": "u-ryan", "project_id": "p-acme",
			"week_start": monday.Format("2006-01-02"), "hours": 10.0,
		},
	}}, testSnapshot())

	before := findWeek(t, proj.Before, "u-ryan")
	if before.TotalHours != 20 {
		t.Errorf("before TotalHours = %v, want 20", before.TotalHours)
	}
	after := findWeek(t, proj.After, "u-ryan")
	if after.TotalHours != 30 {
		t.Errorf("after TotalHours = %v, want 30", after.TotalHours)
	}
	if after.Overallocated {
		t.Error("30h of 40h capacity flagged overallocated")
	}
	if proj.Note == "" {
		t.Error("projection missing divergence note")
	}
}

func TestProject_MoveShiftsHoursBetweenUsers(t *testing.T) {
	proj := Project([]models.ActionCall{{
		Tool: "move_allocation",
		Params: map[string]any{
			"from_user_id": "u-ryan", "to_user_id": "u-sam", "project_id": "p-acme",
			"week_start": monday.Format("2006-01-02"), "hours": 8.0,
		},
	}}, testSnapshot())

	ryanAfter := findWeek(t, proj.After, "u-ryan")
	if ryanAfter.TotalHours != 12 {
		t.Errorf("source after = %v, want 12", ryanAfter.TotalHours)
	}
	samAfter := findWeek(t, proj.After, "u-sam")
	if samAfter.TotalHours != 8 {
		t.Errorf("destination after = %v, want 8", samAfter.TotalHours)
	}
	samBefore := findWeek(t, proj.Before, "u-sam")
	if samBefore.TotalHours != 0 {
		t.Errorf("destination before = %v, want 0", samBefore.TotalHours)
	}
}

func TestProject_MoveFullHoursDropsSourceLine(t *testing.T) {
	proj := Project([]models.ActionCall{{
		Tool: "move_allocation",
		Params: map[string]any{
			"from_user_id": "u-ryan", "to_user_id": "u-sam", "project_id": "p-acme",
			"week_start": monday.Format("2006-01-02"), "hours": 20.0,
		},
	}}, testSnapshot())

	ryanAfter := findWeek(t, proj.After, "u-ryan")
	if len(ryanAfter.Lines) != 0 {
		t.Errorf("source still has %d lines, want 0", len(ryanAfter.Lines))
	}
}

func TestProject_FlagsProjectedOverallocation(t *testing.T) {
	proj := Project([]models.ActionCall{{
		Tool: "add_allocation",
		Params: map[string]any{
			"user_id": "u-ryan", "project_id": "p-acme",
			"week_start": monday.Format("2006-01-02"), "hours": 25.0,
		},
	}}, testSnapshot())

	after := findWeek(t, proj.After, "u-ryan")
	if !after.Overallocated {
		t.Errorf("45h of 40h capacity not flagged (total=%v)", after.TotalHours)
	}
}

func TestProject_QueryActionsContributeNothing(t *testing.T) {
	proj := Project([]models.ActionCall{{
		Tool:   "check_availability",
		Params: map[string]any{"user_id": "u-ryan"},
	}}, testSnapshot())

	if len(proj.Before) != 0 || len(proj.After) != 0 {
		t.Errorf("query action produced projection: before=%d after=%d", len(proj.Before), len(proj.After))
	}
}

func TestProject_InvalidActionSkipped(t *testing.T) {
	proj := Project([]models.ActionCall{{
		Tool: "add_allocation",
		Params: map[string]any{
			"user_id": "u-ryan", "project_id": "p-acme",
			"week_start": monday.AddDate(0, 0, 1).Format("2006-01-02"), // Tuesday
			"hours":      10.0,
		},
	}}, testSnapshot())

	if len(proj.After) != 0 {
		t.Errorf("invalid action produced projection entries: %d", len(proj.After))
	}
}
