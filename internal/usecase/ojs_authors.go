package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/journal-portal/backend/internal/domain"
	"github.com/journal-portal/backend/pkg/ojs"
)

// unusablePasswordPrefix marks a hash no password can ever match.
const unusablePasswordPrefix = "!"

// linkAuthors resolves each remote author to a local profile, in seq order,
// and records the contributions. It returns the distinct profile ids in
// author order; their index is the contribution order, so duplicates leave
// no gaps.
func (u *ImportUsecase) linkAuthors(ctx context.Context, repos domain.Repositories, sub *domain.Submission, pub *ojs.Publication, locale string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for _, author := range pub.SortedAuthors() {
		profile, err := resolveAuthorProfile(ctx, repos.Profiles, &author, locale)
		if err != nil {
			return nil, fmt.Errorf("resolve author %d: %w", author.ID, err)
		}
		if seen[profile.ID] {
			continue
		}
		seen[profile.ID] = true

		order := len(ids)
		_, created, err := repos.Contributions.GetOrCreate(ctx, &domain.AuthorContribution{
			SubmissionID: sub.ID,
			ProfileID:    profile.ID,
			Order:        order,
		})
		if err != nil {
			return nil, fmt.Errorf("link author %d: %w", author.ID, err)
		}
		if created {
			u.logger.Debug("linked author", "submission_id", sub.ID, "profile_id", profile.ID, "order", order)
		}
		ids = append(ids, profile.ID)
	}
	return ids, nil
}

// resolveAuthorProfile matches by ORCID, then email, and otherwise creates a
// user that cannot log in until a password is set.
func resolveAuthorProfile(ctx context.Context, profiles domain.ProfileRepository, a *ojs.Author, locale string) (*domain.Profile, error) {
	name := a.FullName(locale)
	orcid := ojs.NormalizeORCID(a.ORCID)

	if orcid != "" {
		p, err := profiles.GetByORCID(ctx, orcid)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return backfillDisplayName(ctx, profiles, p, name)
		}
	}

	email := strings.ToLower(strings.TrimSpace(a.Email))
	if email == "" {
		email = fmt.Sprintf("ojs-author-%d@imported.invalid", a.ID)
	}
	p, err := profiles.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return backfillDisplayName(ctx, profiles, p, name)
	}

	hash, err := unusablePassword()
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = fmt.Sprintf("OJS author %d", a.ID)
	}
	user := &domain.User{Email: email, PasswordHash: hash}
	profile := &domain.Profile{
		Email:       email,
		DisplayName: name,
		ORCID:       orcid,
		Affiliation: a.Affiliation.Value(locale),
	}
	if err := profiles.CreateWithUser(ctx, user, profile); err != nil {
		return nil, fmt.Errorf("create user %s: %w", email, err)
	}
	return profile, nil
}

func backfillDisplayName(ctx context.Context, profiles domain.ProfileRepository, p *domain.Profile, name string) (*domain.Profile, error) {
	if p.DisplayName != "" || name == "" {
		return p, nil
	}
	if err := profiles.UpdateDisplayName(ctx, p.ID, name); err != nil {
		return nil, fmt.Errorf("backfill display name: %w", err)
	}
	p.DisplayName = name
	return p, nil
}

func unusablePassword() (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword(secret, bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return unusablePasswordPrefix + string(hash), nil
}
