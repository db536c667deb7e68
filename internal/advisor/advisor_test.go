package advisor

import (
	"testing"
	"time"

	"github.com/crewplan/crewplan/pkg/models"
)

var monday = time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

func testSnapshot(ryanTimeOff []time.Time) *models.OrgSnapshot {
	return &models.OrgSnapshot{
		OrgID:     "org-1",
		WeekStart: monday,
		Users: []models.UserView{
			{
				ID: "u-ryan", Name: "Ryan", Role: "Designer", WeeklyCapacity: 40,
				TimeOff: ryanTimeOff,
				Allocations: []models.AllocationView{
					{ProjectID: "p-acme", WeekStart: monday, Hours: 30},
				},
			},
			{ID: "u-sam", Name: "Sam", Role: "Designer", WeeklyCapacity: 40, Allocations: []models.AllocationView{}},
			{
				ID: "u-lee", Name: "Lee", Role: "Designer", WeeklyCapacity: 40,
				Allocations: []models.AllocationView{
					{ProjectID: "p-acme", WeekStart: monday, Hours: 20},
				},
			},
			{ID: "u-priya", Name: "Priya", Role: "Developer", WeeklyCapacity: 40, Allocations: []models.AllocationView{}},
		},
		Projects: []models.ProjectView{
			{ID: "p-acme", Name: "Acme Redesign", Client: "Acme", BudgetHours: 1000, ConsumedHours: 200},
		},
	}
}

func countNegatives(factors []models.AdvisoryFactor) int {
	n := 0
	for _, f := range factors {
		if f.Score == models.FactorNegative {
			n++
		}
	}
	return n
}

func TestEvaluate_OverCapacityWithTimeOffIsAvoid(t *testing.T) {
	// 30h + 20h = 50h against 40h capacity (125%), plus a PTO day that week.
	snap := testSnapshot([]time.Time{monday.AddDate(0, 0, 2)})
	resp := Evaluate(Request{UserID: "u-ryan", ProjectID: "p-acme", Hours: 20, WeekStart: monday}, snap)

	if resp.Recommendation != models.RecommendAvoid {
		t.Fatalf("Recommendation = %s, want avoid", resp.Recommendation)
	}
	if n := countNegatives(resp.Factors); n != 2 {
		t.Errorf("got %d negative factors, want 2: %+v", n, resp.Factors)
	}
}

func TestEvaluate_OverCapacityWithoutTimeOffIsCaution(t *testing.T) {
	snap := testSnapshot(nil)
	resp := Evaluate(Request{UserID: "u-ryan", ProjectID: "p-acme", Hours: 20, WeekStart: monday}, snap)

	if resp.Recommendation != models.RecommendCaution {
		t.Fatalf("Recommendation = %s, want caution", resp.Recommendation)
	}
	if n := countNegatives(resp.Factors); n != 1 {
		t.Errorf("got %d negative factors, want 1: %+v", n, resp.Factors)
	}
}

func TestEvaluate_FitsComfortablyIsProceed(t *testing.T) {
	snap := testSnapshot(nil)
	resp := Evaluate(Request{UserID: "u-sam", ProjectID: "p-acme", Hours: 10, WeekStart: monday}, snap)

	if resp.Recommendation != models.RecommendProceed {
		t.Fatalf("Recommendation = %s, want proceed: %+v", resp.Recommendation, resp.Factors)
	}
	if len(resp.Alternatives) != 0 {
		t.Errorf("proceed carries %d alternatives, want none", len(resp.Alternatives))
	}
}

func TestEvaluate_AlternativesShareRoleAndHaveRoom(t *testing.T) {
	snap := testSnapshot(nil)
	resp := Evaluate(Request{UserID: "u-ryan", ProjectID: "p-acme", Hours: 20, WeekStart: monday}, snap)

	if len(resp.Alternatives) != 2 {
		t.Fatalf("got %d alternatives, want 2 (Sam and Lee, not Priya)", len(resp.Alternatives))
	}
	// Ranked by free capacity: Sam (40h free) before Lee (20h free).
	if resp.Alternatives[0].Params["user_id"] != "u-sam" {
		t.Errorf("first alternative = %v, want u-sam", resp.Alternatives[0].Params["user_id"])
	}
	if resp.Alternatives[1].Params["user_id"] != "u-lee" {
		t.Errorf("second alternative = %v, want u-lee", resp.Alternatives[1].Params["user_id"])
	}
	for _, alt := range resp.Alternatives {
		if alt.Tool != "add_allocation" {
			t.Errorf("alternative tool = %s, want add_allocation", alt.Tool)
		}
		if alt.Params["hours"] != 20.0 {
			t.Errorf("alternative hours = %v, want 20", alt.Params["hours"])
		}
	}
}

func TestEvaluate_AlternativeWithTimeOffExcluded(t *testing.T) {
	snap := testSnapshot(nil)
	// Give Sam a PTO day in the target week.
	for i := range snap.Users {
		if snap.Users[i].ID == "u-sam" {
			snap.Users[i].TimeOff = []time.Time{monday.AddDate(0, 0, 3)}
		}
	}
	resp := Evaluate(Request{UserID: "u-ryan", ProjectID: "p-acme", Hours: 20, WeekStart: monday}, snap)

	if len(resp.Alternatives) != 1 {
		t.Fatalf("got %d alternatives, want 1 (only Lee)", len(resp.Alternatives))
	}
	if resp.Alternatives[0].Params["user_id"] != "u-lee" {
		t.Errorf("alternative = %v, want u-lee", resp.Alternatives[0].Params["user_id"])
	}
}

func TestEvaluate_BudgetBlownIsNegativeFactor(t *testing.T) {
	snap := testSnapshot(nil)
	snap.Projects[0].ConsumedHours = 995
	resp := Evaluate(Request{UserID: "u-sam", ProjectID: "p-acme", Hours: 10, WeekStart: monday}, snap)

	if resp.Recommendation != models.RecommendCaution {
		t.Fatalf("Recommendation = %s, want caution (budget is the one negative)", resp.Recommendation)
	}
	var budget models.AdvisoryFactor
	for _, f := range resp.Factors {
		if f.Name == "budget" {
			budget = f
		}
	}
	if budget.Score != models.FactorNegative {
		t.Errorf("budget factor = %s, want negative", budget.Score)
	}
}
