package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/crewplan/crewplan/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PostgresStore implements Store on a PostgreSQL database via pgxpool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to PostgreSQL and runs the embedded migration.
func NewPostgresStore(ctx context.Context, connURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}

	log.Info().Msg("PostgreSQL store initialized")
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS cp_orgs (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			head_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS cp_users (
			id              TEXT NOT NULL,
			org_id          TEXT NOT NULL,
			name            TEXT NOT NULL,
			role            TEXT NOT NULL DEFAULT '',
			weekly_capacity DOUBLE PRECISION NOT NULL DEFAULT 0,
			freelance       BOOLEAN NOT NULL DEFAULT FALSE,
			location        TEXT NOT NULL DEFAULT '',
			specialties     TEXT NOT NULL DEFAULT '',
			active          BOOLEAN NOT NULL DEFAULT TRUE,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (org_id, id)
		);

		CREATE TABLE IF NOT EXISTS cp_projects (
			id             TEXT NOT NULL,
			org_id         TEXT NOT NULL,
			name           TEXT NOT NULL,
			client         TEXT NOT NULL DEFAULT '',
			budget_hours   DOUBLE PRECISION NOT NULL DEFAULT 0,
			consumed_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
			status         TEXT NOT NULL DEFAULT 'active',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (org_id, id)
		);

		CREATE TABLE IF NOT EXISTS cp_phases (
			id             TEXT PRIMARY KEY,
			project_id     TEXT NOT NULL,
			org_id         TEXT NOT NULL,
			name           TEXT NOT NULL,
			budget_hours   DOUBLE PRECISION NOT NULL DEFAULT 0,
			consumed_hours DOUBLE PRECISION NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_cp_phases_project ON cp_phases (org_id, project_id);

		CREATE TABLE IF NOT EXISTS cp_allocations (
			id         TEXT NOT NULL,
			org_id     TEXT NOT NULL,
			user_id    TEXT NOT NULL,
			project_id TEXT NOT NULL,
			phase_id   TEXT NOT NULL DEFAULT '',
			week_start DATE NOT NULL,
			hours      DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (org_id, id),
			UNIQUE (org_id, user_id, project_id, week_start)
		);
		CREATE INDEX IF NOT EXISTS idx_cp_alloc_user_week ON cp_allocations (org_id, user_id, week_start);

		CREATE TABLE IF NOT EXISTS cp_time_off (
			id      TEXT NOT NULL,
			org_id  TEXT NOT NULL,
			user_id TEXT NOT NULL,
			day     DATE NOT NULL,
			PRIMARY KEY (org_id, id)
		);
		CREATE INDEX IF NOT EXISTS idx_cp_time_off_user ON cp_time_off (org_id, user_id, day);

		CREATE TABLE IF NOT EXISTS cp_audit_log (
			id          TEXT PRIMARY KEY,
			org_id      TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id   TEXT NOT NULL,
			action      TEXT NOT NULL,
			actor_id    TEXT NOT NULL,
			change      JSONB NOT NULL DEFAULT '{}',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_cp_audit_org ON cp_audit_log (org_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS cp_alert_channels (
			id         TEXT NOT NULL,
			org_id     TEXT NOT NULL,
			name       TEXT NOT NULL,
			kind       TEXT NOT NULL,
			url        TEXT NOT NULL DEFAULT '',
			secret     TEXT NOT NULL DEFAULT '',
			token      TEXT NOT NULL DEFAULT '',
			target     TEXT NOT NULL DEFAULT '',
			active     BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (org_id, id)
		);
	`
	_, err := s.pool.Exec(ctx, ddl)
	return err
}

// scanErr maps pgx's no-rows sentinel to ErrNotFound. Anything else (closed
// pool, connection failure) stays a real query error so outages never read
// as missing rows.
func scanErr(err error, entity, key string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &ErrNotFound{Entity: entity, Key: key}
	}
	return fmt.Errorf("query %s %s: %w", entity, key, err)
}

// ── Organization Store ──────────────────────────────────────

func (s *PostgresStore) GetOrg(ctx context.Context, id string) (*models.Organization, error) {
	var org models.Organization
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, head_count, created_at FROM cp_orgs WHERE id = $1`, id).
		Scan(&org.ID, &org.Name, &org.HeadCount, &org.CreatedAt)
	if err != nil {
		return nil, scanErr(err, "organization", id)
	}
	return &org, nil
}

func (s *PostgresStore) CreateOrg(ctx context.Context, org *models.Organization) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cp_orgs (id, name, head_count, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, head_count = EXCLUDED.head_count`,
		org.ID, org.Name, org.HeadCount, org.CreatedAt)
	return err
}

func (s *PostgresStore) ListOrgs(ctx context.Context) ([]models.Organization, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, head_count, created_at FROM cp_orgs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Organization
	for rows.Next() {
		var org models.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.HeadCount, &org.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, org)
	}
	return result, rows.Err()
}

// ── User Store ──────────────────────────────────────────────

const userColumns = `id, org_id, name, role, weekly_capacity, freelance, location, specialties, active, created_at`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.OrgID, &u.Name, &u.Role, &u.WeeklyCapacity,
		&u.Freelance, &u.Location, &u.Specialties, &u.Active, &u.CreatedAt)
	return u, err
}

func (s *PostgresStore) GetUser(ctx context.Context, orgID, id string) (*models.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM cp_users WHERE org_id = $1 AND id = $2`, orgID, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, scanErr(err, "user", id)
	}
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cp_users (id, org_id, name, role, weekly_capacity, freelance, location, specialties, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		user.ID, user.OrgID, user.Name, user.Role, user.WeeklyCapacity,
		user.Freelance, user.Location, user.Specialties, user.Active, user.CreatedAt)
	return err
}

func (s *PostgresStore) UpdateUser(ctx context.Context, user *models.User) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE cp_users SET name = $3, role = $4, weekly_capacity = $5, freelance = $6,
		 location = $7, specialties = $8, active = $9
		 WHERE org_id = $1 AND id = $2`,
		user.OrgID, user.ID, user.Name, user.Role, user.WeeklyCapacity,
		user.Freelance, user.Location, user.Specialties, user.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{Entity: "user", Key: user.ID}
	}
	return nil
}

func (s *PostgresStore) ListActiveUsers(ctx context.Context, orgID string, ids []string) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM cp_users WHERE org_id = $1 AND active`
	args := []any{orgID}
	if len(ids) > 0 {
		query += ` AND id = ANY($2)`
		args = append(args, ids)
	}
	query += ` ORDER BY name`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (s *PostgresStore) SearchUsers(ctx context.Context, orgID, query string) ([]models.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM cp_users WHERE org_id = $1 AND name ILIKE '%' || $2 || '%' ORDER BY name`,
		orgID, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// ── Project Store ───────────────────────────────────────────

func (s *PostgresStore) GetProject(ctx context.Context, orgID, id string) (*models.Project, error) {
	var p models.Project
	err := s.pool.QueryRow(ctx,
		`SELECT id, org_id, name, client, budget_hours, consumed_hours, status, created_at
		 FROM cp_projects WHERE org_id = $1 AND id = $2`, orgID, id).
		Scan(&p.ID, &p.OrgID, &p.Name, &p.Client, &p.BudgetHours, &p.ConsumedHours, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, scanErr(err, "project", id)
	}
	phases, err := s.listPhases(ctx, orgID, []string{id})
	if err != nil {
		return nil, err
	}
	p.Phases = phases[id]
	return &p, nil
}

func (s *PostgresStore) CreateProject(ctx context.Context, project *models.Project) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cp_projects (id, org_id, name, client, budget_hours, consumed_hours, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		project.ID, project.OrgID, project.Name, project.Client,
		project.BudgetHours, project.ConsumedHours, project.Status, project.CreatedAt)
	if err != nil {
		return err
	}
	for _, ph := range project.Phases {
		phaseID := ph.ID
		if phaseID == "" {
			phaseID = uuid.NewString()
		}
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO cp_phases (id, project_id, org_id, name, budget_hours, consumed_hours)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			phaseID, project.ID, project.OrgID, ph.Name, ph.BudgetHours, ph.ConsumedHours); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) UpdateProject(ctx context.Context, project *models.Project) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE cp_projects SET name = $3, client = $4, budget_hours = $5, consumed_hours = $6, status = $7
		 WHERE org_id = $1 AND id = $2`,
		project.OrgID, project.ID, project.Name, project.Client,
		project.BudgetHours, project.ConsumedHours, project.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{Entity: "project", Key: project.ID}
	}
	return nil
}

func (s *PostgresStore) ListActiveProjects(ctx context.Context, orgID, focusID string) ([]models.Project, error) {
	query := `SELECT id, org_id, name, client, budget_hours, consumed_hours, status, created_at
		FROM cp_projects WHERE org_id = $1 AND status = 'active'`
	args := []any{orgID}
	if focusID != "" {
		query += ` AND id = $2`
		args = append(args, focusID)
	}
	query += ` ORDER BY name`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Project
	var ids []string
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.OrgID, &p.Name, &p.Client, &p.BudgetHours, &p.ConsumedHours, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	phases, err := s.listPhases(ctx, orgID, ids)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Phases = phases[result[i].ID]
	}
	return result, nil
}

func (s *PostgresStore) SearchProjects(ctx context.Context, orgID, query string) ([]models.Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, org_id, name, client, budget_hours, consumed_hours, status, created_at
		 FROM cp_projects
		 WHERE org_id = $1 AND (name ILIKE '%' || $2 || '%' OR client ILIKE '%' || $2 || '%')
		 ORDER BY name`, orgID, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.OrgID, &p.Name, &p.Client, &p.BudgetHours, &p.ConsumedHours, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *PostgresStore) listPhases(ctx context.Context, orgID string, projectIDs []string) (map[string][]models.Phase, error) {
	result := make(map[string][]models.Phase)
	if len(projectIDs) == 0 {
		return result, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, name, budget_hours, consumed_hours
		 FROM cp_phases WHERE org_id = $1 AND project_id = ANY($2) ORDER BY name`,
		orgID, projectIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ph models.Phase
		if err := rows.Scan(&ph.ID, &ph.ProjectID, &ph.Name, &ph.BudgetHours, &ph.ConsumedHours); err != nil {
			return nil, err
		}
		result[ph.ProjectID] = append(result[ph.ProjectID], ph)
	}
	return result, rows.Err()
}

// ── Allocation Store ────────────────────────────────────────

const allocColumns = `id, org_id, user_id, project_id, phase_id, week_start, hours, created_at, updated_at`

func scanAllocation(row interface{ Scan(...any) error }) (models.Allocation, error) {
	var a models.Allocation
	err := row.Scan(&a.ID, &a.OrgID, &a.UserID, &a.ProjectID, &a.PhaseID,
		&a.WeekStart, &a.Hours, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (s *PostgresStore) GetAllocation(ctx context.Context, orgID, userID, projectID string, weekStart time.Time) (*models.Allocation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+allocColumns+` FROM cp_allocations
		 WHERE org_id = $1 AND user_id = $2 AND project_id = $3 AND week_start = $4`,
		orgID, userID, projectID, weekStart)
	a, err := scanAllocation(row)
	if err != nil {
		return nil, scanErr(err, "allocation", userID+"/"+projectID+"@"+weekStart.Format("2006-01-02"))
	}
	return &a, nil
}

func (s *PostgresStore) CreateAllocation(ctx context.Context, alloc *models.Allocation) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cp_allocations (id, org_id, user_id, project_id, phase_id, week_start, hours, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		alloc.ID, alloc.OrgID, alloc.UserID, alloc.ProjectID, alloc.PhaseID,
		alloc.WeekStart, alloc.Hours, alloc.CreatedAt, alloc.UpdatedAt)
	return err
}

func (s *PostgresStore) UpdateAllocation(ctx context.Context, alloc *models.Allocation) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE cp_allocations SET hours = $3, phase_id = $4, updated_at = $5
		 WHERE org_id = $1 AND id = $2`,
		alloc.OrgID, alloc.ID, alloc.Hours, alloc.PhaseID, alloc.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{Entity: "allocation", Key: alloc.ID}
	}
	return nil
}

func (s *PostgresStore) DeleteAllocation(ctx context.Context, orgID, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM cp_allocations WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{Entity: "allocation", Key: id}
	}
	return nil
}

func (s *PostgresStore) ListAllocations(ctx context.Context, orgID string, userIDs []string, from, to time.Time) ([]models.Allocation, error) {
	query := `SELECT ` + allocColumns + ` FROM cp_allocations
		WHERE org_id = $1 AND week_start >= $2 AND week_start < $3`
	args := []any{orgID, from, to}
	if len(userIDs) > 0 {
		query += ` AND user_id = ANY($4)`
		args = append(args, userIDs)
	}
	query += ` ORDER BY week_start, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// ── Time Off Store ──────────────────────────────────────────

func (s *PostgresStore) CreateTimeOff(ctx context.Context, entry *models.TimeOffEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cp_time_off (id, org_id, user_id, day) VALUES ($1, $2, $3, $4)`,
		entry.ID, entry.OrgID, entry.UserID, entry.Date)
	return err
}

func (s *PostgresStore) ListTimeOff(ctx context.Context, orgID string, userIDs []string, from, to time.Time) ([]models.TimeOffEntry, error) {
	query := `SELECT id, org_id, user_id, day FROM cp_time_off
		WHERE org_id = $1 AND day >= $2 AND day < $3`
	args := []any{orgID, from, to}
	if len(userIDs) > 0 {
		query += ` AND user_id = ANY($4)`
		args = append(args, userIDs)
	}
	query += ` ORDER BY day`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.TimeOffEntry
	for rows.Next() {
		var e models.TimeOffEntry
		if err := rows.Scan(&e.ID, &e.OrgID, &e.UserID, &e.Date); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// ── Audit Store ─────────────────────────────────────────────

func (s *PostgresStore) CreateAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	change, err := json.Marshal(entry.Change)
	if err != nil {
		return fmt.Errorf("marshal audit change: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO cp_audit_log (id, org_id, entity_type, entity_id, action, actor_id, change, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.OrgID, entry.EntityType, entry.EntityID, entry.Action,
		entry.ActorID, change, entry.CreatedAt)
	return err
}

func (s *PostgresStore) ListAuditEntries(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, org_id, entity_type, entity_id, action, actor_id, change, created_at
		FROM cp_audit_log WHERE org_id = $1`
	args := []any{filter.OrgID}
	idx := 2
	if filter.EntityType != "" {
		query += fmt.Sprintf(" AND entity_type = $%d", idx)
		args = append(args, filter.EntityType)
		idx++
	}
	if filter.EntityID != "" {
		query += fmt.Sprintf(" AND entity_id = $%d", idx)
		args = append(args, filter.EntityID)
		idx++
	}
	if filter.ActorID != "" {
		query += fmt.Sprintf(" AND actor_id = $%d", idx)
		args = append(args, filter.ActorID)
		idx++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var change []byte
		if err := rows.Scan(&e.ID, &e.OrgID, &e.EntityType, &e.EntityID, &e.Action, &e.ActorID, &change, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(change, &e.Change); err != nil {
			return nil, fmt.Errorf("unmarshal audit change: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// ── Alert Channel Store ─────────────────────────────────────

func (s *PostgresStore) ListChannels(ctx context.Context, orgID string) ([]models.AlertChannel, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, org_id, name, kind, url, secret, token, target, active, created_at
		 FROM cp_alert_channels WHERE org_id = $1 ORDER BY name`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.AlertChannel
	for rows.Next() {
		var ch models.AlertChannel
		if err := rows.Scan(&ch.ID, &ch.OrgID, &ch.Name, &ch.Kind, &ch.URL, &ch.Secret, &ch.Token, &ch.Target, &ch.Active, &ch.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, ch)
	}
	return result, rows.Err()
}

func (s *PostgresStore) CreateChannel(ctx context.Context, channel *models.AlertChannel) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cp_alert_channels (id, org_id, name, kind, url, secret, token, target, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		channel.ID, channel.OrgID, channel.Name, channel.Kind, channel.URL,
		channel.Secret, channel.Token, channel.Target, channel.Active, channel.CreatedAt)
	return err
}

// ── Lifecycle ───────────────────────────────────────────────

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
