// Package advisor evaluates a single proposed allocation change against a
// snapshot and answers "should I do this?" with scored factors, a
// recommendation, and ready-to-execute alternatives. It is stateless and
// computed on demand.
package advisor

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/crewplan/crewplan/internal/executor"
	"github.com/crewplan/crewplan/pkg/models"
)

const (
	// capacityCautionRatio marks the band where a change fits but leaves no
	// slack.
	capacityCautionRatio = 0.85

	budgetWarnBurn     = 0.85
	budgetCriticalBurn = 1.0

	maxAlternatives = 3
)

// Request is one proposed allocation change to evaluate.
type Request struct {
	UserID    string
	ProjectID string
	Hours     float64
	WeekStart time.Time
}

// Evaluate scores the proposed change factor by factor. Two or more negative
// factors yield avoid, exactly one yields caution, none yields proceed. When
// the verdict is not proceed, up to three same-role alternatives with room
// for the hours and no time-off conflict are attached.
func Evaluate(req Request, snap *models.OrgSnapshot) *models.AdvisoryResponse {
	user := snap.UserByID(req.UserID)
	project := snap.ProjectByID(req.ProjectID)

	factors := []models.AdvisoryFactor{
		capacityFactor(req, user),
		budgetFactor(req, project),
		timeOffFactor(req, user),
		skillFactor(user, project),
	}

	negatives := 0
	for _, f := range factors {
		if f.Score == models.FactorNegative {
			negatives++
		}
	}

	var recommendation models.Recommendation
	switch {
	case negatives >= 2:
		recommendation = models.RecommendAvoid
	case negatives == 1:
		recommendation = models.RecommendCaution
	default:
		recommendation = models.RecommendProceed
	}

	resp := &models.AdvisoryResponse{
		Recommendation: recommendation,
		Factors:        factors,
	}
	for _, f := range factors {
		resp.Reasoning = append(resp.Reasoning, f.Detail)
	}
	if recommendation != models.RecommendProceed && user != nil {
		resp.Alternatives = alternatives(req, user, snap)
	}
	return resp
}

func capacityFactor(req Request, user *models.UserView) models.AdvisoryFactor {
	f := models.AdvisoryFactor{Name: "capacity"}
	if user == nil {
		f.Score = models.FactorNegative
		f.Detail = "The target user is not in the current snapshot."
		return f
	}
	current := user.HoursByWeek()[req.WeekStart]
	after := current + req.Hours
	ratio := after / user.WeeklyCapacity
	switch {
	case ratio > 1:
		f.Score = models.FactorNegative
		f.Detail = fmt.Sprintf("%s would be at %.0f%% of capacity that week (%.0fh of %.0fh).",
			user.Name, ratio*100, after, user.WeeklyCapacity)
	case ratio > capacityCautionRatio:
		f.Score = models.FactorNeutral
		f.Detail = fmt.Sprintf("%s would be at %.0f%% of capacity that week; it fits, but with no slack.",
			user.Name, ratio*100)
	default:
		f.Score = models.FactorPositive
		f.Detail = fmt.Sprintf("%s has room: %.0fh of %.0fh after the change.",
			user.Name, after, user.WeeklyCapacity)
	}
	return f
}

func budgetFactor(req Request, project *models.ProjectView) models.AdvisoryFactor {
	f := models.AdvisoryFactor{Name: "budget"}
	if project == nil {
		f.Score = models.FactorNeutral
		f.Detail = "The target project is not in the current snapshot."
		return f
	}
	if project.BudgetHours <= 0 {
		f.Score = models.FactorNeutral
		f.Detail = fmt.Sprintf("%s has no hour budget to check against.", project.Name)
		return f
	}
	burn := (project.ConsumedHours + req.Hours) / project.BudgetHours
	switch {
	case burn >= budgetCriticalBurn:
		f.Score = models.FactorNegative
		f.Detail = fmt.Sprintf("%s would be at %.0f%% of its budget after these hours.", project.Name, burn*100)
	case burn >= budgetWarnBurn:
		f.Score = models.FactorNeutral
		f.Detail = fmt.Sprintf("%s would be at %.0f%% of its budget, close to the line.", project.Name, burn*100)
	default:
		f.Score = models.FactorPositive
		f.Detail = fmt.Sprintf("%s has budget headroom (%.0f%% after the change).", project.Name, burn*100)
	}
	return f
}

func timeOffFactor(req Request, user *models.UserView) models.AdvisoryFactor {
	f := models.AdvisoryFactor{Name: "time_off"}
	if user == nil {
		f.Score = models.FactorNeutral
		f.Detail = "No time-off data for the target user."
		return f
	}
	weekEnd := req.WeekStart.AddDate(0, 0, 7)
	days := 0
	for _, d := range user.TimeOff {
		if !d.Before(req.WeekStart) && d.Before(weekEnd) {
			days++
		}
	}
	if days > 0 {
		f.Score = models.FactorNegative
		f.Detail = fmt.Sprintf("%s has %d day(s) off that week.", user.Name, days)
	} else {
		f.Score = models.FactorPositive
		f.Detail = fmt.Sprintf("%s has no time off that week.", user.Name)
	}
	return f
}

// skillFactor is a rough textual match between the user's role/specialties
// and the project's name and client. It never votes negative; absence of a
// match is not evidence of a mismatch.
func skillFactor(user *models.UserView, project *models.ProjectView) models.AdvisoryFactor {
	f := models.AdvisoryFactor{Name: "skill_match"}
	if user == nil || project == nil {
		f.Score = models.FactorNeutral
		f.Detail = "Not enough information for a skill match."
		return f
	}
	haystack := strings.ToLower(project.Name + " " + project.Client)
	for _, token := range strings.Fields(strings.ToLower(user.Specialties + " " + user.Role)) {
		if len(token) < 4 {
			continue
		}
		if strings.Contains(haystack, token) {
			f.Score = models.FactorPositive
			f.Detail = fmt.Sprintf("%s's background (%s) looks relevant to %s.", user.Name, token, project.Name)
			return f
		}
	}
	f.Score = models.FactorNeutral
	f.Detail = "No obvious specialty match, which is not necessarily a problem."
	return f
}

// alternatives finds other users with the same role, enough free capacity for
// the hours, and no time off that week, ranked by free capacity.
func alternatives(req Request, target *models.UserView, snap *models.OrgSnapshot) []models.ActionCall {
	weekEnd := req.WeekStart.AddDate(0, 0, 7)

	type option struct {
		user *models.UserView
		free float64
	}
	var options []option
	for i := range snap.Users {
		u := &snap.Users[i]
		if u.ID == target.ID || u.Role != target.Role {
			continue
		}
		conflict := false
		for _, d := range u.TimeOff {
			if !d.Before(req.WeekStart) && d.Before(weekEnd) {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}
		free := u.WeeklyCapacity - u.HoursByWeek()[req.WeekStart]
		if free < req.Hours {
			continue
		}
		options = append(options, option{user: u, free: free})
	}
	sort.SliceStable(options, func(i, j int) bool { return options[i].free > options[j].free })
	if len(options) > maxAlternatives {
		options = options[:maxAlternatives]
	}

	calls := make([]models.ActionCall, 0, len(options))
	for _, opt := range options {
		calls = append(calls, models.ActionCall{
			Tool: executor.ToolAddAllocation,
			Params: map[string]any{
				"user_id":    opt.user.ID,
				"project_id": req.ProjectID,
				"week_start": req.WeekStart.Format("2006-01-02"),
				"hours":      req.Hours,
			},
			Description: fmt.Sprintf("Assign %s instead (%.0fh free that week)", opt.user.Name, opt.free),
		})
	}
	return calls
}
