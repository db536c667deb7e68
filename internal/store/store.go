// Package store provides the storage interface and implementations for the
// CrewPlan control plane. The in-memory store backs tests and zero-config
// local development; PostgreSQL backs production.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/crewplan/crewplan/pkg/models"
)

// Store is the primary storage interface. All service code depends on this
// interface, making it easy to swap between in-memory (tests) and PostgreSQL
// (production) implementations.
type Store interface {
	OrgStore
	UserStore
	ProjectStore
	AllocationStore
	TimeOffStore
	AuditStore
	ChannelStore

	// Ping checks if the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error
}

// ── Organization Store ──────────────────────────────────────

type OrgStore interface {
	GetOrg(ctx context.Context, id string) (*models.Organization, error)
	CreateOrg(ctx context.Context, org *models.Organization) error
	ListOrgs(ctx context.Context) ([]models.Organization, error)
}

// ── User Store ──────────────────────────────────────────────

type UserStore interface {
	GetUser(ctx context.Context, orgID, id string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error

	// ListActiveUsers returns active users for an org. A non-empty ids slice
	// narrows the result to that focus set.
	ListActiveUsers(ctx context.Context, orgID string, ids []string) ([]models.User, error)

	// SearchUsers matches users by case-insensitive substring of the name.
	SearchUsers(ctx context.Context, orgID, query string) ([]models.User, error)
}

// ── Project Store ───────────────────────────────────────────

type ProjectStore interface {
	// GetProject returns a project with its phases populated.
	GetProject(ctx context.Context, orgID, id string) (*models.Project, error)
	CreateProject(ctx context.Context, project *models.Project) error
	UpdateProject(ctx context.Context, project *models.Project) error

	// ListActiveProjects returns active projects (phases populated) for an
	// org, optionally narrowed to a single focus project.
	ListActiveProjects(ctx context.Context, orgID, focusID string) ([]models.Project, error)

	// SearchProjects matches projects by case-insensitive substring of the
	// name or client.
	SearchProjects(ctx context.Context, orgID, query string) ([]models.Project, error)
}

// ── Allocation Store ────────────────────────────────────────

type AllocationStore interface {
	// GetAllocation locates the allocation for a (user, project, week) tuple.
	// Returns *ErrNotFound when absent.
	GetAllocation(ctx context.Context, orgID, userID, projectID string, weekStart time.Time) (*models.Allocation, error)

	CreateAllocation(ctx context.Context, alloc *models.Allocation) error
	UpdateAllocation(ctx context.Context, alloc *models.Allocation) error
	DeleteAllocation(ctx context.Context, orgID, id string) error

	// ListAllocations returns allocations for the given users (all users when
	// empty) with week_start in [from, to).
	ListAllocations(ctx context.Context, orgID string, userIDs []string, from, to time.Time) ([]models.Allocation, error)
}

// ── Time Off Store ──────────────────────────────────────────

type TimeOffStore interface {
	CreateTimeOff(ctx context.Context, entry *models.TimeOffEntry) error

	// ListTimeOff returns PTO dates for the given users (all users when
	// empty) with date in [from, to).
	ListTimeOff(ctx context.Context, orgID string, userIDs []string, from, to time.Time) ([]models.TimeOffEntry, error)
}

// ── Audit Store ─────────────────────────────────────────────

// AuditStore is append-only: entries are written once per successful
// mutation and never edited or deleted by application code.
type AuditStore interface {
	CreateAuditEntry(ctx context.Context, entry *models.AuditEntry) error
	ListAuditEntries(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, error)
}

// ── Alert Channel Store ─────────────────────────────────────

type ChannelStore interface {
	ListChannels(ctx context.Context, orgID string) ([]models.AlertChannel, error)
	CreateChannel(ctx context.Context, channel *models.AlertChannel) error
}

// ── Errors ──────────────────────────────────────────────────

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}

// IsNotFound reports whether err is or wraps a *ErrNotFound.
func IsNotFound(err error) bool {
	var notFound *ErrNotFound
	return errors.As(err, &notFound)
}
