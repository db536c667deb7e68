package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/crewplan/crewplan/pkg/models"
)

// MemoryStore implements Store with in-memory maps. Used in tests and
// zero-config local development; data does not survive restarts.
type MemoryStore struct {
	mu          sync.RWMutex
	orgs        map[string]*models.Organization // key: id
	users       map[string]*models.User         // key: org:id
	projects    map[string]*models.Project      // key: org:id
	allocations map[string]*models.Allocation   // key: org:id
	timeOff     map[string]*models.TimeOffEntry // key: org:id
	channels    map[string]*models.AlertChannel // key: org:id
	audit       []*models.AuditEntry            // append-only log
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orgs:        make(map[string]*models.Organization),
		users:       make(map[string]*models.User),
		projects:    make(map[string]*models.Project),
		allocations: make(map[string]*models.Allocation),
		timeOff:     make(map[string]*models.TimeOffEntry),
		channels:    make(map[string]*models.AlertChannel),
		audit:       make([]*models.AuditEntry, 0),
	}
}

func scopedKey(orgID, id string) string { return orgID + ":" + id }

// ── Organization Store ──────────────────────────────────────

func (m *MemoryStore) GetOrg(_ context.Context, id string) (*models.Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	org, ok := m.orgs[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "organization", Key: id}
	}
	cp := *org
	return &cp, nil
}

func (m *MemoryStore) CreateOrg(_ context.Context, org *models.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *org
	m.orgs[org.ID] = &cp
	return nil
}

func (m *MemoryStore) ListOrgs(_ context.Context) ([]models.Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]models.Organization, 0, len(m.orgs))
	for _, org := range m.orgs {
		result = append(result, *org)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ── User Store ──────────────────────────────────────────────

func (m *MemoryStore) GetUser(_ context.Context, orgID, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[scopedKey(orgID, id)]
	if !ok {
		return nil, &ErrNotFound{Entity: "user", Key: id}
	}
	cp := *user
	return &cp, nil
}

func (m *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.users[scopedKey(user.OrgID, user.ID)] = &cp
	return nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scopedKey(user.OrgID, user.ID)
	if _, ok := m.users[key]; !ok {
		return &ErrNotFound{Entity: "user", Key: user.ID}
	}
	cp := *user
	m.users[key] = &cp
	return nil
}

func (m *MemoryStore) ListActiveUsers(_ context.Context, orgID string, ids []string) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	focus := toSet(ids)
	var result []models.User
	for _, u := range m.users {
		if u.OrgID != orgID || !u.Active {
			continue
		}
		if focus != nil && !focus[u.ID] {
			continue
		}
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *MemoryStore) SearchUsers(_ context.Context, orgID, query string) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := strings.ToLower(query)
	var result []models.User
	for _, u := range m.users {
		if u.OrgID != orgID {
			continue
		}
		if q == "" || strings.Contains(strings.ToLower(u.Name), q) {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ── Project Store ───────────────────────────────────────────

func (m *MemoryStore) GetProject(_ context.Context, orgID, id string) (*models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	project, ok := m.projects[scopedKey(orgID, id)]
	if !ok {
		return nil, &ErrNotFound{Entity: "project", Key: id}
	}
	cp := *project
	cp.Phases = append([]models.Phase(nil), project.Phases...)
	return &cp, nil
}

func (m *MemoryStore) CreateProject(_ context.Context, project *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *project
	cp.Phases = append([]models.Phase(nil), project.Phases...)
	m.projects[scopedKey(project.OrgID, project.ID)] = &cp
	return nil
}

func (m *MemoryStore) UpdateProject(_ context.Context, project *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scopedKey(project.OrgID, project.ID)
	if _, ok := m.projects[key]; !ok {
		return &ErrNotFound{Entity: "project", Key: project.ID}
	}
	cp := *project
	cp.Phases = append([]models.Phase(nil), project.Phases...)
	m.projects[key] = &cp
	return nil
}

func (m *MemoryStore) ListActiveProjects(_ context.Context, orgID, focusID string) ([]models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.Project
	for _, p := range m.projects {
		if p.OrgID != orgID || p.Status != models.ProjectActive {
			continue
		}
		if focusID != "" && p.ID != focusID {
			continue
		}
		cp := *p
		cp.Phases = append([]models.Phase(nil), p.Phases...)
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *MemoryStore) SearchProjects(_ context.Context, orgID, query string) ([]models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := strings.ToLower(query)
	var result []models.Project
	for _, p := range m.projects {
		if p.OrgID != orgID {
			continue
		}
		if q == "" || strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Client), q) {
			cp := *p
			cp.Phases = append([]models.Phase(nil), p.Phases...)
			result = append(result, cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ── Allocation Store ────────────────────────────────────────

func (m *MemoryStore) GetAllocation(_ context.Context, orgID, userID, projectID string, weekStart time.Time) (*models.Allocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.allocations {
		if a.OrgID == orgID && a.UserID == userID && a.ProjectID == projectID && a.WeekStart.Equal(weekStart) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, &ErrNotFound{Entity: "allocation", Key: userID + "/" + projectID + "@" + weekStart.Format("2006-01-02")}
}

func (m *MemoryStore) CreateAllocation(_ context.Context, alloc *models.Allocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *alloc
	m.allocations[scopedKey(alloc.OrgID, alloc.ID)] = &cp
	return nil
}

func (m *MemoryStore) UpdateAllocation(_ context.Context, alloc *models.Allocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scopedKey(alloc.OrgID, alloc.ID)
	if _, ok := m.allocations[key]; !ok {
		return &ErrNotFound{Entity: "allocation", Key: alloc.ID}
	}
	cp := *alloc
	m.allocations[key] = &cp
	return nil
}

func (m *MemoryStore) DeleteAllocation(_ context.Context, orgID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scopedKey(orgID, id)
	if _, ok := m.allocations[key]; !ok {
		return &ErrNotFound{Entity: "allocation", Key: id}
	}
	delete(m.allocations, key)
	return nil
}

func (m *MemoryStore) ListAllocations(_ context.Context, orgID string, userIDs []string, from, to time.Time) ([]models.Allocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	focus := toSet(userIDs)
	var result []models.Allocation
	for _, a := range m.allocations {
		if a.OrgID != orgID {
			continue
		}
		if focus != nil && !focus[a.UserID] {
			continue
		}
		if a.WeekStart.Before(from) || !a.WeekStart.Before(to) {
			continue
		}
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].WeekStart.Equal(result[j].WeekStart) {
			return result[i].WeekStart.Before(result[j].WeekStart)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// ── Time Off Store ──────────────────────────────────────────

func (m *MemoryStore) CreateTimeOff(_ context.Context, entry *models.TimeOffEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.timeOff[scopedKey(entry.OrgID, entry.ID)] = &cp
	return nil
}

func (m *MemoryStore) ListTimeOff(_ context.Context, orgID string, userIDs []string, from, to time.Time) ([]models.TimeOffEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	focus := toSet(userIDs)
	var result []models.TimeOffEntry
	for _, e := range m.timeOff {
		if e.OrgID != orgID {
			continue
		}
		if focus != nil && !focus[e.UserID] {
			continue
		}
		if e.Date.Before(from) || !e.Date.Before(to) {
			continue
		}
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// ── Audit Store ─────────────────────────────────────────────

func (m *MemoryStore) CreateAuditEntry(_ context.Context, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.audit = append(m.audit, &cp)
	return nil
}

func (m *MemoryStore) ListAuditEntries(_ context.Context, filter models.AuditFilter) ([]models.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var result []models.AuditEntry
	// Newest first.
	for i := len(m.audit) - 1; i >= 0 && len(result) < limit; i-- {
		e := m.audit[i]
		if filter.OrgID != "" && e.OrgID != filter.OrgID {
			continue
		}
		if filter.EntityType != "" && e.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != "" && e.EntityID != filter.EntityID {
			continue
		}
		if filter.ActorID != "" && e.ActorID != filter.ActorID {
			continue
		}
		result = append(result, *e)
	}
	return result, nil
}

// ── Alert Channel Store ─────────────────────────────────────

func (m *MemoryStore) ListChannels(_ context.Context, orgID string) ([]models.AlertChannel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.AlertChannel
	for _, ch := range m.channels {
		if ch.OrgID == orgID {
			result = append(result, *ch)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *MemoryStore) CreateChannel(_ context.Context, channel *models.AlertChannel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *channel
	m.channels[scopedKey(channel.OrgID, channel.ID)] = &cp
	return nil
}

// ── Lifecycle ───────────────────────────────────────────────

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func toSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
