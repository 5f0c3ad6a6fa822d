package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/journal-portal/backend/internal/domain"
)

type ProfileRepository struct {
	db dbtx
}

func NewProfileRepository(db dbtx) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `p.id, p.user_id, p.email, p.display_name, COALESCE(p.orcid, ''), p.affiliation, p.created_at, p.updated_at`

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	p := &domain.Profile{}
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Email,
		&p.DisplayName,
		&p.ORCID,
		&p.Affiliation,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProfileRepository) get(ctx context.Context, where string, arg any) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + profileColumns + ` FROM profiles p WHERE ` + where + ` ORDER BY p.created_at LIMIT 1`
	return scanProfile(r.db.QueryRow(ctx, query, arg))
}

func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	return r.get(ctx, `p.id = $1`, id)
}

func (r *ProfileRepository) GetByORCID(ctx context.Context, orcid string) (*domain.Profile, error) {
	return r.get(ctx, `p.orcid = $1`, orcid)
}

// GetByEmail ignores case, matching the LOWER(email) unique index on users.
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return r.get(ctx, `LOWER(p.email) = LOWER($1)`, email)
}

// CreateWithUser inserts both rows in a single statement.
func (r *ProfileRepository) CreateWithUser(ctx context.Context, user *domain.User, profile *domain.Profile) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		WITH u AS (
			INSERT INTO users (id, email, password_hash, is_staff, is_superuser, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
			RETURNING id
		)
		INSERT INTO profiles (id, user_id, email, display_name, orcid, affiliation, created_at, updated_at)
		SELECT $7, u.id, $2, $8, NULLIF($9, ''), $10, $6, $6 FROM u
	`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	profile.UserID = user.ID
	profile.Email = user.Email
	profile.CreatedAt, profile.UpdatedAt = now, now

	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.IsStaff,
		user.IsSuperuser,
		now,
		profile.ID,
		profile.DisplayName,
		profile.ORCID,
		profile.Affiliation,
	)
	return err
}

func (r *ProfileRepository) UpdateDisplayName(ctx context.Context, id uuid.UUID, name string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.Exec(ctx, `UPDATE profiles SET display_name = $2, updated_at = NOW() WHERE id = $1`, id, name)
	return err
}

func (r *ProfileRepository) FirstSuperuserProfile(ctx context.Context) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT ` + profileColumns + `
		FROM profiles p JOIN users u ON u.id = p.user_id
		WHERE u.is_superuser
		ORDER BY p.created_at LIMIT 1
	`
	return scanProfile(r.db.QueryRow(ctx, query))
}
