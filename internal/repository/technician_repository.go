package repository

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TechnicianRepository reads technicians with their live workload counters.
type TechnicianRepository interface {
	GetTechnician(ctx context.Context, id string) (*domain.Technician, error)
	ListTechnicians(ctx context.Context) ([]domain.Technician, error)
}

type technicianRepository struct {
	db DB
}

// NewTechnicianRepository returns a Postgres-backed directory.
func NewTechnicianRepository(db DB) TechnicianRepository {
	return &technicianRepository{db: db}
}

// Workload is computed from tickets: assigned counts open work (assigned + in_progress).
const technicianSelect = `
        SELECT u.id, u.name, u.email, u.specialization, u.active,
               COUNT(t.id) FILTER (WHERE t.status IN ('assigned','in_progress')) AS assigned_count,
               COUNT(t.id) FILTER (WHERE t.status = 'in_progress') AS in_progress_count
        FROM users u
        LEFT JOIN tickets t ON t.technician_id = u.id
        WHERE u.role = 'technician'`

func (r *technicianRepository) GetTechnician(ctx context.Context, id string) (*domain.Technician, error) {
	query := technicianSelect + ` AND u.id=$1 GROUP BY u.id`
	return scanTechnician(r.db.QueryRow(ctx, query, id))
}

func (r *technicianRepository) ListTechnicians(ctx context.Context) ([]domain.Technician, error) {
	query := technicianSelect + ` GROUP BY u.id ORDER BY u.name ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Technician
	for rows.Next() {
		tech, err := scanTechnician(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *tech)
	}
	return result, rows.Err()
}

func scanTechnician(row pgx.Row) (*domain.Technician, error) {
	var tech domain.Technician
	if err := row.Scan(
		&tech.ID,
		&tech.Name,
		&tech.Email,
		&tech.Specialization,
		&tech.Active,
		&tech.Workload.AssignedCount,
		&tech.Workload.InProgressCount,
	); err != nil {
		return nil, err
	}
	return &tech, nil
}

type cachedTechnician struct {
	tech      domain.Technician
	fetchedAt time.Time
}

// CachedTechnicianDirectory keeps recently resolved technicians in an ARC cache.
// Listings always hit the backing directory so workload counters stay fresh.
type CachedTechnicianDirectory struct {
	next  TechnicianRepository
	cache *lru.ARCCache
	ttl   time.Duration
	now   func() time.Time
}

// NewCachedTechnicianDirectory wraps next with a bounded cache.
func NewCachedTechnicianDirectory(next TechnicianRepository, size int, ttl time.Duration) (*CachedTechnicianDirectory, error) {
	if size <= 0 {
		size = 256
	}
	cache, err := lru.NewARC(size)
	if err != nil {
		return nil, fmt.Errorf("create technician cache: %w", err)
	}
	return &CachedTechnicianDirectory{next: next, cache: cache, ttl: ttl, now: time.Now}, nil
}

func (d *CachedTechnicianDirectory) GetTechnician(ctx context.Context, id string) (*domain.Technician, error) {
	if value, ok := d.cache.Get(id); ok {
		entry := value.(cachedTechnician)
		if d.ttl <= 0 || d.now().Sub(entry.fetchedAt) < d.ttl {
			tech := entry.tech
			return &tech, nil
		}
		d.cache.Remove(id)
	}

	tech, err := d.next.GetTechnician(ctx, id)
	if err != nil {
		return nil, err
	}
	d.cache.Add(id, cachedTechnician{tech: *tech, fetchedAt: d.now()})
	return tech, nil
}

func (d *CachedTechnicianDirectory) ListTechnicians(ctx context.Context) ([]domain.Technician, error) {
	techs, err := d.next.ListTechnicians(ctx)
	if err != nil {
		return nil, err
	}
	now := d.now()
	for _, tech := range techs {
		d.cache.Add(tech.ID, cachedTechnician{tech: tech, fetchedAt: now})
	}
	return techs, nil
}

// Invalidate drops a technician so the next lookup reloads it.
func (d *CachedTechnicianDirectory) Invalidate(id string) {
	d.cache.Remove(id)
}
