// Package insights contains stateless analyzers that surface planning
// problems from a snapshot: overallocation, underutilization, budget burn and
// PTO coverage gaps. Insights are recomputed on every request and never
// persisted.
package insights

import (
	"fmt"
	"sort"
	"time"

	"github.com/crewplan/crewplan/pkg/models"
)

const (
	// criticalOverageHours is the per-week overage beyond which an
	// overallocation escalates from warning to critical.
	criticalOverageHours = 8.0

	// underutilizationThreshold flags anyone below this fraction of capacity
	// in the current week.
	underutilizationThreshold = 0.5

	budgetWarnBurn     = 0.85
	budgetCriticalBurn = 1.0
)

// Analyze runs every analyzer over the snapshot and returns the combined
// findings ordered critical, warning, info (stable within each tier).
func Analyze(snap *models.OrgSnapshot) []models.Insight {
	var all []models.Insight
	all = append(all, Overallocation(snap)...)
	all = append(all, Underutilization(snap)...)
	all = append(all, BudgetWarnings(snap)...)
	all = append(all, CoverageGaps(snap)...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Severity.Rank() > all[j].Severity.Rank()
	})
	return all
}

// Overallocation flags users whose hours exceed capacity in any single week.
// Hours are compared strictly per week: a user at exactly capacity in every
// week of the window is fine no matter what the window total is. Each user
// triggers at most one insight per call, carrying the worst week in the
// description and every offending week in the data payload.
func Overallocation(snap *models.OrgSnapshot) []models.Insight {
	var result []models.Insight
	for i := range snap.Users {
		u := &snap.Users[i]
		byWeek := u.HoursByWeek()

		type overWeek struct {
			week    time.Time
			overage float64
		}
		var over []overWeek
		for week, hours := range byWeek {
			if hours > u.WeeklyCapacity {
				over = append(over, overWeek{week: week, overage: hours - u.WeeklyCapacity})
			}
		}
		if len(over) == 0 {
			continue
		}
		sort.Slice(over, func(a, b int) bool { return over[a].week.Before(over[b].week) })

		worst := over[0]
		for _, ow := range over[1:] {
			if ow.overage > worst.overage {
				worst = ow
			}
		}

		severity := models.SeverityWarning
		if worst.overage > criticalOverageHours {
			severity = models.SeverityCritical
		}

		weeks := make([]string, 0, len(over))
		overages := make(map[string]float64, len(over))
		for _, ow := range over {
			key := ow.week.Format("2006-01-02")
			weeks = append(weeks, key)
			overages[key] = ow.overage
		}

		result = append(result, models.Insight{
			Type:     models.InsightOverallocation,
			Severity: severity,
			Title:    fmt.Sprintf("%s is overallocated", u.Name),
			Description: fmt.Sprintf("%s is booked %.0fh over capacity in the week of %s.",
				u.Name, worst.overage, worst.week.Format("Jan 2")),
			UserIDs: []string{u.ID},
			Data: map[string]any{
				"weeks":         weeks,
				"overage_hours": overages,
				"capacity":      u.WeeklyCapacity,
			},
		})
	}
	return result
}

// Underutilization flags users below half capacity in the current week only.
// Freelancers are skipped (partial weeks are their normal state), as is
// anyone with time off in the window.
func Underutilization(snap *models.OrgSnapshot) []models.Insight {
	var result []models.Insight
	for i := range snap.Users {
		u := &snap.Users[i]
		if u.Freelance || len(u.TimeOff) > 0 {
			continue
		}
		hours := u.HoursByWeek()[snap.WeekStart]
		if u.WeeklyCapacity <= 0 {
			continue
		}
		utilization := hours / u.WeeklyCapacity
		if utilization >= underutilizationThreshold {
			continue
		}
		result = append(result, models.Insight{
			Type:     models.InsightUnderutilization,
			Severity: models.SeverityInfo,
			Title:    fmt.Sprintf("%s has spare capacity this week", u.Name),
			Description: fmt.Sprintf("%s is booked %.0fh of %.0fh (%.0f%%) this week.",
				u.Name, hours, u.WeeklyCapacity, utilization*100),
			UserIDs: []string{u.ID},
			Data: map[string]any{
				"allocated_hours": hours,
				"capacity":        u.WeeklyCapacity,
				"utilization":     utilization,
			},
		})
	}
	return result
}

// BudgetWarnings flags projects burning hot against their hour budget:
// warning at 85%, critical at 100%. Projects without a budget are skipped.
func BudgetWarnings(snap *models.OrgSnapshot) []models.Insight {
	var result []models.Insight
	for i := range snap.Projects {
		p := &snap.Projects[i]
		if p.BudgetHours <= 0 {
			continue
		}
		burn := p.ConsumedHours / p.BudgetHours
		var severity models.Severity
		switch {
		case burn >= budgetCriticalBurn:
			severity = models.SeverityCritical
		case burn >= budgetWarnBurn:
			severity = models.SeverityWarning
		default:
			continue
		}
		result = append(result, models.Insight{
			Type:     models.InsightBudgetWarning,
			Severity: severity,
			Title:    fmt.Sprintf("%s is at %.0f%% of budget", p.Name, burn*100),
			Description: fmt.Sprintf("%s has consumed %.0fh of its %.0fh budget.",
				p.Name, p.ConsumedHours, p.BudgetHours),
			ProjectIDs: []string{p.ID},
			Data: map[string]any{
				"burn":           burn,
				"budget_hours":   p.BudgetHours,
				"consumed_hours": p.ConsumedHours,
			},
		})
	}
	return result
}

// CoverageGaps flags users who have both time off and planned hours in the
// window: work is scheduled for days they will not be there, which needs a
// human to resolve.
func CoverageGaps(snap *models.OrgSnapshot) []models.Insight {
	var result []models.Insight
	for i := range snap.Users {
		u := &snap.Users[i]
		if len(u.TimeOff) == 0 {
			continue
		}
		var planned float64
		for _, a := range u.Allocations {
			planned += a.Hours
		}
		if planned <= 0 {
			continue
		}
		result = append(result, models.Insight{
			Type:     models.InsightCoverageGap,
			Severity: models.SeverityWarning,
			Title:    fmt.Sprintf("%s has time off during planned work", u.Name),
			Description: fmt.Sprintf("%s has %d day(s) off but %.0fh of planned allocations in the window.",
				u.Name, len(u.TimeOff), planned),
			UserIDs: []string{u.ID},
			Data: map[string]any{
				"time_off_days": len(u.TimeOff),
				"planned_hours": planned,
			},
		})
	}
	return result
}
