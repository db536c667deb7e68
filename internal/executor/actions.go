package executor

import (
	"fmt"
	"time"

	"github.com/crewplan/crewplan/pkg/models"
)

// Tool names form a closed set. The model proposes calls by name with loosely
// typed parameters; Decode turns each call into a validated variant exactly
// once, at the trust boundary between model output and storage.
const (
	ToolAddAllocation    = "add_allocation"
	ToolRemoveAllocation = "remove_allocation"
	ToolMoveAllocation   = "move_allocation"
	ToolBulkUpdate       = "bulk_update_allocations"
	ToolAvailability     = "check_availability"
	ToolUserAllocations  = "get_user_allocations"
	ToolProjectStatus    = "get_project_status"
	ToolSuggestCoverage  = "suggest_coverage"
)

// IsMutating reports whether a tool writes state. Query tools run without
// confirmation; mutating tools require an explicit execute call.
func IsMutating(tool string) bool {
	switch tool {
	case ToolAddAllocation, ToolRemoveAllocation, ToolMoveAllocation, ToolBulkUpdate:
		return true
	}
	return false
}

// IsKnownTool reports whether the tool name is part of the closed set.
func IsKnownTool(tool string) bool {
	switch tool {
	case ToolAddAllocation, ToolRemoveAllocation, ToolMoveAllocation, ToolBulkUpdate,
		ToolAvailability, ToolUserAllocations, ToolProjectStatus, ToolSuggestCoverage:
		return true
	}
	return false
}

// Action is the closed tagged-variant of decoded action kinds.
type Action interface {
	actionKind() string
}

// AddAllocation adds hours for a (user, project, week). If an allocation for
// the tuple already exists, its hours are increased: a merge, never an
// overwrite.
type AddAllocation struct {
	UserID    string
	ProjectID string
	PhaseID   string
	WeekStart time.Time
	Hours     float64
}

// RemoveAllocation deletes the allocation for a (user, project, week).
type RemoveAllocation struct {
	UserID    string
	ProjectID string
	WeekStart time.Time
}

// MoveAllocation shifts hours from one user to another on the same project
// and week. FromUserID may be empty, in which case only the destination add
// happens.
type MoveAllocation struct {
	FromUserID string
	ToUserID   string
	ProjectID  string
	WeekStart  time.Time
	Hours      float64
}

// BulkChangeOp is the kind of one sub-change inside a bulk update.
type BulkChangeOp string

const (
	BulkAdd    BulkChangeOp = "add"    // merge semantics, like AddAllocation
	BulkRemove BulkChangeOp = "remove" // like RemoveAllocation
	BulkSet    BulkChangeOp = "update" // absolute set, created if absent
)

// BulkChange is one sub-change of a bulk update. A change that failed
// validation carries the message in Invalid; it still counts as attempted,
// and the remaining changes run regardless.
type BulkChange struct {
	Op        BulkChangeOp
	UserID    string
	ProjectID string
	WeekStart time.Time
	Hours     float64
	Invalid   string
}

// BulkUpdate applies a list of sub-changes. An individual failure does not
// stop the remaining items.
type BulkUpdate struct {
	Changes []BulkChange
}

// Availability asks for a user's free hours in a week.
type Availability struct {
	UserID    string
	WeekStart time.Time // zero = current week
}

// UserAllocations asks for a user's allocations over a date range.
type UserAllocations struct {
	UserID string
	From   time.Time // zero = current week
	To     time.Time // zero = From + 4 weeks
}

// ProjectStatus asks for a project's budget and phase burn.
type ProjectStatus struct {
	ProjectID string
}

// SuggestCoverage asks who could cover for an absent user in a week.
type SuggestCoverage struct {
	UserID    string
	WeekStart time.Time
}

func (AddAllocation) actionKind() string    { return ToolAddAllocation }
func (RemoveAllocation) actionKind() string { return ToolRemoveAllocation }
func (MoveAllocation) actionKind() string   { return ToolMoveAllocation }
func (BulkUpdate) actionKind() string       { return ToolBulkUpdate }
func (Availability) actionKind() string     { return ToolAvailability }
func (UserAllocations) actionKind() string  { return ToolUserAllocations }
func (ProjectStatus) actionKind() string    { return ToolProjectStatus }
func (SuggestCoverage) actionKind() string  { return ToolSuggestCoverage }

// ValidationError is a rejected parameter set; reported verbatim to the
// caller, before any write.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Decode validates a model-proposed ActionCall and returns its typed variant.
// Every parameter the model supplied is checked here; storage never sees a
// raw parameter bag.
func Decode(call models.ActionCall) (Action, error) {
	p := call.Params
	switch call.Tool {
	case ToolAddAllocation:
		userID, err := requireString(p, "user_id")
		if err != nil {
			return nil, err
		}
		projectID, err := requireString(p, "project_id")
		if err != nil {
			return nil, err
		}
		week, err := requireWeekStart(p, "week_start")
		if err != nil {
			return nil, err
		}
		hours, err := requireHours(p, "hours")
		if err != nil {
			return nil, err
		}
		return AddAllocation{
			UserID:    userID,
			ProjectID: projectID,
			PhaseID:   optString(p, "phase_id"),
			WeekStart: week,
			Hours:     hours,
		}, nil

	case ToolRemoveAllocation:
		userID, err := requireString(p, "user_id")
		if err != nil {
			return nil, err
		}
		projectID, err := requireString(p, "project_id")
		if err != nil {
			return nil, err
		}
		week, err := requireWeekStart(p, "week_start")
		if err != nil {
			return nil, err
		}
		return RemoveAllocation{UserID: userID, ProjectID: projectID, WeekStart: week}, nil

	case ToolMoveAllocation:
		toUserID, err := requireString(p, "to_user_id")
		if err != nil {
			return nil, err
		}
		projectID, err := requireString(p, "project_id")
		if err != nil {
			return nil, err
		}
		week, err := requireWeekStart(p, "week_start")
		if err != nil {
			return nil, err
		}
		hours, err := requireHours(p, "hours")
		if err != nil {
			return nil, err
		}
		return MoveAllocation{
			FromUserID: optString(p, "from_user_id"),
			ToUserID:   toUserID,
			ProjectID:  projectID,
			WeekStart:  week,
			Hours:      hours,
		}, nil

	case ToolBulkUpdate:
		raw, ok := p["changes"].([]any)
		if !ok || len(raw) == 0 {
			return nil, validationf("bulk update requires a non-empty changes list")
		}
		bulk := BulkUpdate{Changes: make([]BulkChange, 0, len(raw))}
		for i, item := range raw {
			cm, ok := item.(map[string]any)
			if !ok {
				bulk.Changes = append(bulk.Changes, BulkChange{Invalid: fmt.Sprintf("changes[%d] is not an object", i)})
				continue
			}
			change, err := decodeBulkChange(cm)
			if err != nil {
				change = BulkChange{Invalid: fmt.Sprintf("changes[%d]: %v", i, err)}
			}
			bulk.Changes = append(bulk.Changes, change)
		}
		return bulk, nil

	case ToolAvailability:
		userID, err := requireString(p, "user_id")
		if err != nil {
			return nil, err
		}
		week, err := optWeekStart(p, "week_start")
		if err != nil {
			return nil, err
		}
		return Availability{UserID: userID, WeekStart: week}, nil

	case ToolUserAllocations:
		userID, err := requireString(p, "user_id")
		if err != nil {
			return nil, err
		}
		from, err := optDate(p, "from")
		if err != nil {
			return nil, err
		}
		to, err := optDate(p, "to")
		if err != nil {
			return nil, err
		}
		return UserAllocations{UserID: userID, From: from, To: to}, nil

	case ToolProjectStatus:
		projectID, err := requireString(p, "project_id")
		if err != nil {
			return nil, err
		}
		return ProjectStatus{ProjectID: projectID}, nil

	case ToolSuggestCoverage:
		userID, err := requireString(p, "user_id")
		if err != nil {
			return nil, err
		}
		week, err := requireWeekStart(p, "week_start")
		if err != nil {
			return nil, err
		}
		return SuggestCoverage{UserID: userID, WeekStart: week}, nil
	}
	return nil, validationf("unknown tool: %s", call.Tool)
}

// decodeBulkChange validates one bulk sub-change. Note that "update" sets an
// absolute hour value, unlike add's merge semantics.
func decodeBulkChange(p map[string]any) (BulkChange, error) {
	op := BulkChangeOp(optString(p, "op"))
	switch op {
	case BulkAdd, BulkRemove, BulkSet:
	default:
		return BulkChange{}, fmt.Errorf("op must be add, remove or update (got %q)", op)
	}
	userID, err := requireString(p, "user_id")
	if err != nil {
		return BulkChange{}, err
	}
	projectID, err := requireString(p, "project_id")
	if err != nil {
		return BulkChange{}, err
	}
	week, err := requireWeekStart(p, "week_start")
	if err != nil {
		return BulkChange{}, err
	}
	change := BulkChange{Op: op, UserID: userID, ProjectID: projectID, WeekStart: week}
	if op != BulkRemove {
		hours, err := requireHours(p, "hours")
		if err != nil {
			return BulkChange{}, err
		}
		change.Hours = hours
	}
	return change, nil
}

// ── Parameter helpers ───────────────────────────────────────

func requireString(p map[string]any, key string) (string, error) {
	v, ok := p[key].(string)
	if !ok || v == "" {
		return "", validationf("missing required parameter: %s", key)
	}
	return v, nil
}

func optString(p map[string]any, key string) string {
	v, _ := p[key].(string)
	return v
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func requireHours(p map[string]any, key string) (float64, error) {
	h, ok := asFloat(p[key])
	if !ok {
		return 0, validationf("missing required parameter: %s", key)
	}
	if h <= 0 {
		return 0, validationf("%s must be positive (got %v)", key, h)
	}
	return h, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, validationf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t.UTC(), nil
}

// requireWeekStart parses a date and rejects it when it does not fall on the
// first day of the work week (Monday). No silent correction.
func requireWeekStart(p map[string]any, key string) (time.Time, error) {
	s, ok := p[key].(string)
	if !ok || s == "" {
		return time.Time{}, validationf("missing required parameter: %s", key)
	}
	t, err := parseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	if !models.IsWeekStart(t) {
		return time.Time{}, validationf("%s %s is not a Monday; weeks start on Monday", key, s)
	}
	return t, nil
}

func optWeekStart(p map[string]any, key string) (time.Time, error) {
	if _, present := p[key]; !present {
		return time.Time{}, nil
	}
	if s, ok := p[key].(string); ok && s == "" {
		return time.Time{}, nil
	}
	return requireWeekStart(p, key)
}

func optDate(p map[string]any, key string) (time.Time, error) {
	s, ok := p[key].(string)
	if !ok || s == "" {
		return time.Time{}, nil
	}
	return parseDate(s)
}
