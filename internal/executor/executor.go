// Package executor applies validated wizard actions to storage. Execution is
// strictly sequential in the submitted order; a failed action is recorded and
// the remaining actions still run. There is no cross-action transaction: a
// partially applied batch is reported as such, never rolled back.
package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crewplan/crewplan/internal/store"
	"github.com/crewplan/crewplan/pkg/models"
)

// coverageCandidateLimit caps how many replacement candidates a coverage
// suggestion returns.
const coverageCandidateLimit = 3

// Executor runs action calls against the store.
type Executor struct {
	store store.Store
	now   func() time.Time
}

// New creates an executor.
func New(s store.Store) *Executor {
	return &Executor{store: s, now: time.Now}
}

// NewAt creates an executor with a fixed clock, for tests.
func NewAt(s store.Store, now func() time.Time) *Executor {
	return &Executor{store: s, now: now}
}

// Execute runs the given action calls one at a time, in order. Each call is
// decoded and validated before it touches storage. The outcome's Success is
// true only when every action succeeded.
func (e *Executor) Execute(ctx context.Context, orgID, actorID string, calls []models.ActionCall) *models.ExecutionOutcome {
	outcome := &models.ExecutionOutcome{
		Success: true,
		Results: make([]models.ActionResult, 0, len(calls)),
	}
	for _, call := range calls {
		result := e.runOne(ctx, orgID, actorID, call)
		if !result.Success {
			outcome.Success = false
		}
		outcome.Results = append(outcome.Results, result)
	}
	outcome.Message = summarize(outcome.Results)
	return outcome
}

func (e *Executor) runOne(ctx context.Context, orgID, actorID string, call models.ActionCall) models.ActionResult {
	result := models.ActionResult{Tool: call.Tool}

	action, err := Decode(call)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	var data any
	switch a := action.(type) {
	case AddAllocation:
		data, err = e.addAllocation(ctx, orgID, actorID, a)
	case RemoveAllocation:
		data, err = e.removeAllocation(ctx, orgID, actorID, a)
	case MoveAllocation:
		data, err = e.moveAllocation(ctx, orgID, actorID, a)
	case BulkUpdate:
		data, err = e.bulkUpdate(ctx, orgID, actorID, a)
	case Availability:
		data, err = e.availability(ctx, orgID, a)
	case UserAllocations:
		data, err = e.userAllocations(ctx, orgID, a)
	case ProjectStatus:
		data, err = e.projectStatus(ctx, orgID, a)
	case SuggestCoverage:
		data, err = e.suggestCoverage(ctx, orgID, a)
	default:
		err = fmt.Errorf("unhandled action %T", action)
	}
	if err != nil {
		// Partial failures (bulk, move) still carry a data payload with
		// attempted/succeeded counts or notes; keep it with the error.
		result.Error = err.Error()
		result.Data = data
		return result
	}
	result.Success = true
	result.Data = data
	return result
}

// ── Mutations ───────────────────────────────────────────────

// addAllocation merges hours into an existing (user, project, week)
// allocation, or creates one. Adding twice is additive, never an overwrite.
func (e *Executor) addAllocation(ctx context.Context, orgID, actorID string, a AddAllocation) (any, error) {
	if _, err := e.store.GetUser(ctx, orgID, a.UserID); err != nil {
		return nil, err
	}
	if _, err := e.store.GetProject(ctx, orgID, a.ProjectID); err != nil {
		return nil, err
	}

	existing, err := e.store.GetAllocation(ctx, orgID, a.UserID, a.ProjectID, a.WeekStart)
	switch {
	case err == nil:
		old := *existing
		existing.Hours += a.Hours
		if a.PhaseID != "" {
			existing.PhaseID = a.PhaseID
		}
		existing.UpdatedAt = e.now()
		if err := e.store.UpdateAllocation(ctx, existing); err != nil {
			return nil, fmt.Errorf("update allocation: %w", err)
		}
		e.audit(ctx, orgID, actorID, existing.ID, models.AuditUpdate, &old, existing)
		return existing, nil
	case store.IsNotFound(err):
		alloc := &models.Allocation{
			ID:        uuid.NewString(),
			OrgID:     orgID,
			UserID:    a.UserID,
			ProjectID: a.ProjectID,
			PhaseID:   a.PhaseID,
			WeekStart: a.WeekStart,
			Hours:     a.Hours,
			CreatedAt: e.now(),
			UpdatedAt: e.now(),
		}
		if err := e.store.CreateAllocation(ctx, alloc); err != nil {
			return nil, fmt.Errorf("create allocation: %w", err)
		}
		e.audit(ctx, orgID, actorID, alloc.ID, models.AuditCreate, nil, alloc)
		return alloc, nil
	default:
		return nil, fmt.Errorf("lookup allocation: %w", err)
	}
}

func (e *Executor) removeAllocation(ctx context.Context, orgID, actorID string, a RemoveAllocation) (any, error) {
	existing, err := e.store.GetAllocation(ctx, orgID, a.UserID, a.ProjectID, a.WeekStart)
	if err != nil {
		return nil, err
	}
	if err := e.store.DeleteAllocation(ctx, orgID, existing.ID); err != nil {
		return nil, fmt.Errorf("delete allocation: %w", err)
	}
	e.audit(ctx, orgID, actorID, existing.ID, models.AuditDelete, existing, nil)
	return map[string]any{"deleted": existing.ID, "hours": existing.Hours}, nil
}

// moveAllocation shifts hours from one user to another on the same project
// and week: the source is reduced (deleted when fully drained), then the
// destination gains the hours. The two steps are not atomic; if the
// destination add fails after the source was changed, the partial state is
// reported. A missing source allocation is not fatal; the destination add
// still happens, with a note.
func (e *Executor) moveAllocation(ctx context.Context, orgID, actorID string, a MoveAllocation) (any, error) {
	data := map[string]any{"hours": a.Hours, "to_user_id": a.ToUserID}

	if a.FromUserID != "" {
		source, err := e.store.GetAllocation(ctx, orgID, a.FromUserID, a.ProjectID, a.WeekStart)
		switch {
		case err == nil:
			if source.Hours > a.Hours {
				old := *source
				source.Hours -= a.Hours
				source.UpdatedAt = e.now()
				if err := e.store.UpdateAllocation(ctx, source); err != nil {
					return nil, fmt.Errorf("reduce source allocation: %w", err)
				}
				e.audit(ctx, orgID, actorID, source.ID, models.AuditUpdate, &old, source)
				data["source_remaining"] = source.Hours
			} else {
				if err := e.store.DeleteAllocation(ctx, orgID, source.ID); err != nil {
					return nil, fmt.Errorf("delete source allocation: %w", err)
				}
				e.audit(ctx, orgID, actorID, source.ID, models.AuditDelete, source, nil)
				data["source_remaining"] = 0.0
			}
		case store.IsNotFound(err):
			data["note"] = fmt.Sprintf("no existing allocation for user %s on that project/week; added to destination only", a.FromUserID)
		default:
			return nil, fmt.Errorf("lookup source allocation: %w", err)
		}
	}

	dest, err := e.addAllocation(ctx, orgID, actorID, AddAllocation{
		UserID:    a.ToUserID,
		ProjectID: a.ProjectID,
		WeekStart: a.WeekStart,
		Hours:     a.Hours,
	})
	if err != nil {
		if _, touched := data["source_remaining"]; touched {
			return data, fmt.Errorf("source allocation was changed but destination add failed: %w", err)
		}
		return nil, err
	}
	data["destination"] = dest
	return data, nil
}

// bulkUpdate applies each change independently and reports attempted vs
// succeeded counts. The "update" op sets an absolute hour value.
func (e *Executor) bulkUpdate(ctx context.Context, orgID, actorID string, b BulkUpdate) (any, error) {
	attempted := len(b.Changes)
	succeeded := 0
	var failures []string

	for i, c := range b.Changes {
		if c.Invalid != "" {
			failures = append(failures, c.Invalid)
			continue
		}
		var err error
		switch c.Op {
		case BulkAdd:
			_, err = e.addAllocation(ctx, orgID, actorID, AddAllocation{
				UserID: c.UserID, ProjectID: c.ProjectID, WeekStart: c.WeekStart, Hours: c.Hours,
			})
		case BulkRemove:
			_, err = e.removeAllocation(ctx, orgID, actorID, RemoveAllocation{
				UserID: c.UserID, ProjectID: c.ProjectID, WeekStart: c.WeekStart,
			})
		case BulkSet:
			err = e.setAllocation(ctx, orgID, actorID, c)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("changes[%d]: %v", i, err))
			continue
		}
		succeeded++
	}

	data := map[string]any{"attempted": attempted, "succeeded": succeeded}
	if len(failures) > 0 {
		data["failures"] = failures
		return data, fmt.Errorf("%d of %d changes failed: %s", attempted-succeeded, attempted, strings.Join(failures, "; "))
	}
	return data, nil
}

// setAllocation writes an absolute hour value for a (user, project, week),
// creating the allocation when absent.
func (e *Executor) setAllocation(ctx context.Context, orgID, actorID string, c BulkChange) error {
	existing, err := e.store.GetAllocation(ctx, orgID, c.UserID, c.ProjectID, c.WeekStart)
	switch {
	case err == nil:
		old := *existing
		existing.Hours = c.Hours
		existing.UpdatedAt = e.now()
		if err := e.store.UpdateAllocation(ctx, existing); err != nil {
			return fmt.Errorf("update allocation: %w", err)
		}
		e.audit(ctx, orgID, actorID, existing.ID, models.AuditUpdate, &old, existing)
		return nil
	case store.IsNotFound(err):
		if _, err := e.store.GetUser(ctx, orgID, c.UserID); err != nil {
			return err
		}
		if _, err := e.store.GetProject(ctx, orgID, c.ProjectID); err != nil {
			return err
		}
		alloc := &models.Allocation{
			ID:        uuid.NewString(),
			OrgID:     orgID,
			UserID:    c.UserID,
			ProjectID: c.ProjectID,
			WeekStart: c.WeekStart,
			Hours:     c.Hours,
			CreatedAt: e.now(),
			UpdatedAt: e.now(),
		}
		if err := e.store.CreateAllocation(ctx, alloc); err != nil {
			return fmt.Errorf("create allocation: %w", err)
		}
		e.audit(ctx, orgID, actorID, alloc.ID, models.AuditCreate, nil, alloc)
		return nil
	default:
		return fmt.Errorf("lookup allocation: %w", err)
	}
}

// ── Queries ─────────────────────────────────────────────────

func (e *Executor) availability(ctx context.Context, orgID string, a Availability) (any, error) {
	user, err := e.store.GetUser(ctx, orgID, a.UserID)
	if err != nil {
		return nil, err
	}
	week := a.WeekStart
	if week.IsZero() {
		week = models.StartOfWeek(e.now())
	}
	allocated, err := e.allocatedHours(ctx, orgID, a.UserID, week)
	if err != nil {
		return nil, err
	}
	pto, err := e.store.ListTimeOff(ctx, orgID, []string{a.UserID}, week, week.AddDate(0, 0, 7))
	if err != nil {
		return nil, fmt.Errorf("load time off: %w", err)
	}
	return map[string]any{
		"user_id":         user.ID,
		"user_name":       user.Name,
		"week_start":      week.Format("2006-01-02"),
		"weekly_capacity": user.Capacity(),
		"allocated_hours": allocated,
		"available_hours": user.Capacity() - allocated,
		"time_off_days":   len(pto),
	}, nil
}

func (e *Executor) userAllocations(ctx context.Context, orgID string, a UserAllocations) (any, error) {
	user, err := e.store.GetUser(ctx, orgID, a.UserID)
	if err != nil {
		return nil, err
	}
	from := a.From
	if from.IsZero() {
		from = models.StartOfWeek(e.now())
	}
	to := a.To
	if to.IsZero() {
		to = from.AddDate(0, 0, 7*4)
	}
	allocs, err := e.store.ListAllocations(ctx, orgID, []string{a.UserID}, from, to)
	if err != nil {
		return nil, fmt.Errorf("load allocations: %w", err)
	}
	var total float64
	for _, al := range allocs {
		total += al.Hours
	}
	return map[string]any{
		"user_id":     user.ID,
		"user_name":   user.Name,
		"from":        from.Format("2006-01-02"),
		"to":          to.Format("2006-01-02"),
		"allocations": allocs,
		"total_hours": total,
	}, nil
}

func (e *Executor) projectStatus(ctx context.Context, orgID string, a ProjectStatus) (any, error) {
	project, err := e.store.GetProject(ctx, orgID, a.ProjectID)
	if err != nil {
		return nil, err
	}
	week := models.StartOfWeek(e.now())
	allocs, err := e.store.ListAllocations(ctx, orgID, nil, week, week.AddDate(0, 0, 7*4))
	if err != nil {
		return nil, fmt.Errorf("load allocations: %w", err)
	}
	var planned float64
	for _, al := range allocs {
		if al.ProjectID == a.ProjectID {
			planned += al.Hours
		}
	}
	return map[string]any{
		"project":             project,
		"burn":                project.Burn(),
		"planned_hours_ahead": planned,
	}, nil
}

// CoverageCandidate is one ranked replacement suggestion.
type CoverageCandidate struct {
	UserID    string  `json:"user_id"`
	Name      string  `json:"name"`
	Role      string  `json:"role"`
	Available float64 `json:"available_hours"`
	RoleMatch bool    `json:"role_match"`
}

// suggestCoverage ranks active users who could absorb an absent user's hours
// for a week: role matches come first, then higher free capacity; users with
// no free capacity are excluded, as is the absent user.
func (e *Executor) suggestCoverage(ctx context.Context, orgID string, a SuggestCoverage) (any, error) {
	absent, err := e.store.GetUser(ctx, orgID, a.UserID)
	if err != nil {
		return nil, err
	}
	users, err := e.store.ListActiveUsers(ctx, orgID, nil)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	allocs, err := e.store.ListAllocations(ctx, orgID, nil, a.WeekStart, a.WeekStart.AddDate(0, 0, 7))
	if err != nil {
		return nil, fmt.Errorf("load allocations: %w", err)
	}
	allocatedBy := make(map[string]float64, len(users))
	var absentHours float64
	for _, al := range allocs {
		allocatedBy[al.UserID] += al.Hours
		if al.UserID == a.UserID {
			absentHours += al.Hours
		}
	}

	var candidates []CoverageCandidate
	for _, u := range users {
		if u.ID == absent.ID {
			continue
		}
		free := u.Capacity() - allocatedBy[u.ID]
		if free <= 0 {
			continue
		}
		candidates = append(candidates, CoverageCandidate{
			UserID:    u.ID,
			Name:      u.Name,
			Role:      u.Role,
			Available: free,
			RoleMatch: u.Role == absent.Role,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].RoleMatch != candidates[j].RoleMatch {
			return candidates[i].RoleMatch
		}
		return candidates[i].Available > candidates[j].Available
	})
	if len(candidates) > coverageCandidateLimit {
		candidates = candidates[:coverageCandidateLimit]
	}
	return map[string]any{
		"absent_user":   absent.Name,
		"week_start":    a.WeekStart.Format("2006-01-02"),
		"hours_to_fill": absentHours,
		"candidates":    candidates,
	}, nil
}

func (e *Executor) allocatedHours(ctx context.Context, orgID, userID string, week time.Time) (float64, error) {
	allocs, err := e.store.ListAllocations(ctx, orgID, []string{userID}, week, week.AddDate(0, 0, 7))
	if err != nil {
		return 0, fmt.Errorf("load allocations: %w", err)
	}
	var total float64
	for _, al := range allocs {
		total += al.Hours
	}
	return total, nil
}

// ── Audit ───────────────────────────────────────────────────

// audit records one successful mutation. A failed audit write is logged and
// swallowed: the mutation already happened and is never rolled back over
// bookkeeping.
func (e *Executor) audit(ctx context.Context, orgID, actorID, entityID string, action models.AuditAction, before, after any) {
	entry := &models.AuditEntry{
		ID:         uuid.NewString(),
		OrgID:      orgID,
		EntityType: "allocation",
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		Change:     models.AuditChange{Old: before, New: after},
		CreatedAt:  e.now(),
	}
	if err := e.store.CreateAuditEntry(ctx, entry); err != nil {
		log.Warn().Err(err).
			Str("entity_id", entityID).
			Str("action", string(action)).
			Msg("audit write failed")
	}
}

func summarize(results []models.ActionResult) string {
	if len(results) == 0 {
		return "no actions to execute"
	}
	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
	}
	if ok == len(results) {
		if len(results) == 1 {
			return "action completed"
		}
		return fmt.Sprintf("all %d actions completed", len(results))
	}
	return fmt.Sprintf("%d of %d actions completed", ok, len(results))
}
