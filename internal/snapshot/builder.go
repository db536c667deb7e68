// Package snapshot builds immutable point-in-time views of organizational
// state for the resource wizard. A snapshot is assembled from four logically
// independent reads (users, allocations, time off, projects) fanned out
// concurrently; it becomes visible to the rest of the pipeline only after
// every read has returned. Any read failure aborts the whole build; the
// pipeline never sees a partially-built snapshot.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/crewplan/crewplan/internal/store"
	"github.com/crewplan/crewplan/pkg/models"
	"golang.org/x/sync/errgroup"
)

// DefaultWindowWeeks is the planning horizon when the caller does not ask for
// a specific one.
const DefaultWindowWeeks = 4

// BuildRequest narrows and parameterizes a snapshot build.
type BuildRequest struct {
	OrgID          string
	WindowWeeks    int
	FocusProjectID string            // narrow projects to one, "" = all active
	FocusUserIDs   []string          // narrow users, nil = all active
	History        []models.ChatTurn // recent conversation turns to embed
}

// Builder reads organizational state and produces snapshots.
type Builder struct {
	store store.Store
	now   func() time.Time
}

// NewBuilder creates a snapshot builder.
func NewBuilder(s store.Store) *Builder {
	return &Builder{store: s, now: time.Now}
}

// NewBuilderAt creates a builder with a fixed clock, for tests.
func NewBuilderAt(s store.Store, now func() time.Time) *Builder {
	return &Builder{store: s, now: now}
}

// Build constructs an OrgSnapshot for the window
// [currentWeekStart, currentWeekStart + windowWeeks). The build is read-only
// and tolerates partial data: a user with no allocations still appears with
// an empty allocation list.
func (b *Builder) Build(ctx context.Context, req BuildRequest) (*models.OrgSnapshot, error) {
	windowWeeks := req.WindowWeeks
	if windowWeeks <= 0 {
		windowWeeks = DefaultWindowWeeks
	}
	weekStart := models.StartOfWeek(b.now())
	windowEnd := weekStart.AddDate(0, 0, 7*windowWeeks)

	org, err := b.store.GetOrg(ctx, req.OrgID)
	if err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}

	var (
		users       []models.User
		allocations []models.Allocation
		timeOff     []models.TimeOffEntry
		projects    []models.Project
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = b.store.ListActiveUsers(gctx, req.OrgID, req.FocusUserIDs)
		if err != nil {
			return fmt.Errorf("load users: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		allocations, err = b.store.ListAllocations(gctx, req.OrgID, req.FocusUserIDs, weekStart, windowEnd)
		if err != nil {
			return fmt.Errorf("load allocations: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		timeOff, err = b.store.ListTimeOff(gctx, req.OrgID, req.FocusUserIDs, weekStart, windowEnd)
		if err != nil {
			return fmt.Errorf("load time off: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		projects, err = b.store.ListActiveProjects(gctx, req.OrgID, req.FocusProjectID)
		if err != nil {
			return fmt.Errorf("load projects: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return assemble(org, weekStart, windowWeeks, users, allocations, timeOff, projects, req.History), nil
}

// assemble stitches the raw reads into the snapshot view. Pure function; the
// ordering of the input slices does not matter.
func assemble(org *models.Organization, weekStart time.Time, windowWeeks int,
	users []models.User, allocations []models.Allocation, timeOff []models.TimeOffEntry,
	projects []models.Project, history []models.ChatTurn) *models.OrgSnapshot {

	projectNames := make(map[string]string, len(projects))
	phaseNames := make(map[string]string)
	projectViews := make([]models.ProjectView, 0, len(projects))
	for _, p := range projects {
		projectNames[p.ID] = p.Name
		for _, ph := range p.Phases {
			phaseNames[ph.ID] = ph.Name
		}
		projectViews = append(projectViews, models.ProjectView{
			ID:            p.ID,
			Name:          p.Name,
			Client:        p.Client,
			BudgetHours:   p.BudgetHours,
			ConsumedHours: p.ConsumedHours,
			Status:        p.Status,
			Phases:        p.Phases,
		})
	}

	allocsByUser := make(map[string][]models.AllocationView)
	for _, a := range allocations {
		allocsByUser[a.UserID] = append(allocsByUser[a.UserID], models.AllocationView{
			ProjectID:   a.ProjectID,
			ProjectName: projectNames[a.ProjectID],
			PhaseID:     a.PhaseID,
			PhaseName:   phaseNames[a.PhaseID],
			WeekStart:   a.WeekStart,
			Hours:       a.Hours,
		})
	}

	timeOffByUser := make(map[string][]time.Time)
	for _, e := range timeOff {
		timeOffByUser[e.UserID] = append(timeOffByUser[e.UserID], e.Date)
	}

	userViews := make([]models.UserView, 0, len(users))
	for _, u := range users {
		allocs := allocsByUser[u.ID]
		if allocs == nil {
			allocs = []models.AllocationView{}
		}
		userViews = append(userViews, models.UserView{
			ID:             u.ID,
			Name:           u.Name,
			Role:           u.Role,
			WeeklyCapacity: u.Capacity(),
			Freelance:      u.Freelance,
			Location:       u.Location,
			Specialties:    u.Specialties,
			Allocations:    allocs,
			TimeOff:        timeOffByUser[u.ID],
		})
	}

	return &models.OrgSnapshot{
		OrgID:       org.ID,
		OrgName:     org.Name,
		HeadCount:   org.HeadCount,
		WeekStart:   weekStart,
		WindowWeeks: windowWeeks,
		Users:       userViews,
		Projects:    projectViews,
		History:     history,
	}
}
