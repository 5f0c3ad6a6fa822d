package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsStaff      bool      `json:"is_staff"`
	IsSuperuser  bool      `json:"is_superuser"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CanEdit reports whether the user may run editorial operations such as
// OJS sync.
func (u *User) CanEdit() bool {
	return u.IsStaff || u.IsSuperuser
}

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// Profile is the public author identity attached to a user account.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	ORCID       string    `json:"orcid,omitempty"`
	Affiliation string    `json:"affiliation,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByORCID(ctx context.Context, orcid string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	// CreateWithUser inserts the user account and its profile together.
	CreateWithUser(ctx context.Context, user *User, profile *Profile) error
	UpdateDisplayName(ctx context.Context, id uuid.UUID, name string) error
	// FirstSuperuserProfile returns any superuser's profile, or nil.
	FirstSuperuserProfile(ctx context.Context) (*Profile, error)
}
