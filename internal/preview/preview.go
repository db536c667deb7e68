// Package preview projects the effect of proposed actions onto a snapshot so
// a human can review them before confirming. The projection is best-effort:
// it applies the actions' intended arithmetic to the snapshot in memory, but
// the store may have changed between snapshot and confirmation, so actual
// execution can diverge. It is review material, not a transactional dry run.
package preview

import (
	"sort"
	"time"

	"github.com/crewplan/crewplan/internal/executor"
	"github.com/crewplan/crewplan/pkg/models"
)

// DivergenceNote is attached to every projection so callers surface the
// non-guarantee to users.
const DivergenceNote = "Preview reflects the state at the time of the request; concurrent changes may cause actual results to differ."

// Line is one project's hours within a user-week.
type Line struct {
	ProjectID   string  `json:"project_id"`
	ProjectName string  `json:"project_name"`
	Hours       float64 `json:"hours"`
}

// UserWeek is the allocation state of one user in one week, before or after.
type UserWeek struct {
	UserID        string    `json:"user_id"`
	UserName      string    `json:"user_name"`
	WeekStart     time.Time `json:"week_start"`
	Lines         []Line    `json:"lines"`
	TotalHours    float64   `json:"total_hours"`
	Capacity      float64   `json:"capacity"`
	Overallocated bool      `json:"overallocated"`
}

// Projection is the before/after pair for the user-weeks the actions touch.
type Projection struct {
	Before []UserWeek `json:"before"`
	After  []UserWeek `json:"after"`
	Note   string     `json:"note"`
}

type userWeekKey struct {
	userID string
	week   time.Time
}

// Project computes the before/after projection for the given actions over the
// snapshot. Query actions and actions that fail validation contribute nothing
// to the projection; the executor reports those on its own.
func Project(actions []models.ActionCall, snap *models.OrgSnapshot) *Projection {
	// hours[key][projectID] = planned hours
	hours := make(map[userWeekKey]map[string]float64)
	touched := make(map[userWeekKey]bool)

	touch := func(userID string, week time.Time) userWeekKey {
		key := userWeekKey{userID: userID, week: week}
		if !touched[key] {
			touched[key] = true
			hours[key] = currentHours(snap, userID, week)
		}
		return key
	}

	// Mark every referenced user-week first so "before" shows pre-change state
	// even for tuples several actions touch.
	type mutation func()
	var mutations []mutation
	for _, call := range actions {
		action, err := executor.Decode(call)
		if err != nil {
			continue
		}
		switch a := action.(type) {
		case executor.AddAllocation:
			key := touch(a.UserID, a.WeekStart)
			mutations = append(mutations, func() { hours[key][a.ProjectID] += a.Hours })
		case executor.RemoveAllocation:
			key := touch(a.UserID, a.WeekStart)
			mutations = append(mutations, func() { delete(hours[key], a.ProjectID) })
		case executor.MoveAllocation:
			dstKey := touch(a.ToUserID, a.WeekStart)
			if a.FromUserID != "" {
				srcKey := touch(a.FromUserID, a.WeekStart)
				mutations = append(mutations, func() {
					remaining := hours[srcKey][a.ProjectID] - a.Hours
					if remaining > 0 {
						hours[srcKey][a.ProjectID] = remaining
					} else {
						delete(hours[srcKey], a.ProjectID)
					}
				})
			}
			mutations = append(mutations, func() { hours[dstKey][a.ProjectID] += a.Hours })
		case executor.BulkUpdate:
			for _, c := range a.Changes {
				if c.Invalid != "" {
					continue
				}
				key := touch(c.UserID, c.WeekStart)
				switch c.Op {
				case executor.BulkAdd:
					mutations = append(mutations, func() { hours[key][c.ProjectID] += c.Hours })
				case executor.BulkRemove:
					mutations = append(mutations, func() { delete(hours[key], c.ProjectID) })
				case executor.BulkSet:
					mutations = append(mutations, func() { hours[key][c.ProjectID] = c.Hours })
				}
			}
		}
	}

	before := render(snap, hours)

	for _, apply := range mutations {
		apply()
	}
	after := render(snap, hours)

	return &Projection{Before: before, After: after, Note: DivergenceNote}
}

// currentHours reads a user-week's per-project hours out of the snapshot.
func currentHours(snap *models.OrgSnapshot, userID string, week time.Time) map[string]float64 {
	byProject := make(map[string]float64)
	user := snap.UserByID(userID)
	if user == nil {
		return byProject
	}
	for _, a := range user.Allocations {
		if a.WeekStart.Equal(week) {
			byProject[a.ProjectID] += a.Hours
		}
	}
	return byProject
}

// render materializes the tracked user-weeks into a deterministic slice.
func render(snap *models.OrgSnapshot, hours map[userWeekKey]map[string]float64) []UserWeek {
	result := make([]UserWeek, 0, len(hours))
	for key, byProject := range hours {
		uw := UserWeek{
			UserID:    key.userID,
			UserName:  key.userID,
			WeekStart: key.week,
			Capacity:  models.DefaultWeeklyCapacity,
			Lines:     make([]Line, 0, len(byProject)),
		}
		if user := snap.UserByID(key.userID); user != nil {
			uw.UserName = user.Name
			uw.Capacity = user.WeeklyCapacity
			if uw.Capacity <= 0 {
				uw.Capacity = models.DefaultWeeklyCapacity
			}
		}
		for projectID, h := range byProject {
			name := projectID
			if p := snap.ProjectByID(projectID); p != nil {
				name = p.Name
			}
			uw.Lines = append(uw.Lines, Line{ProjectID: projectID, ProjectName: name, Hours: h})
			uw.TotalHours += h
		}
		sort.Slice(uw.Lines, func(i, j int) bool { return uw.Lines[i].ProjectID < uw.Lines[j].ProjectID })
		uw.Overallocated = uw.TotalHours > uw.Capacity
		result = append(result, uw)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UserID != result[j].UserID {
			return result[i].UserID < result[j].UserID
		}
		return result[i].WeekStart.Before(result[j].WeekStart)
	})
	return result
}
