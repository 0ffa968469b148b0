package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"projectflow/models"
)

// FindUserByEmail looks a user up by normalized email. Pass IncludeDeleted to
// see deactivated accounts too.
func (s *Store) FindUserByEmail(ctx context.Context, email string, opts ReadOptions) (*models.User, error) {
	var u models.User
	err := s.read(ctx, models.KindUser, opts).
		Where("email = ?", models.NormalizeEmail(email)).
		First(&u).Error
	if err != nil {
		return nil, translate("FindUserByEmail", models.KindUser, err)
	}
	return &u, nil
}

func (s *Store) FindUserByID(ctx context.Context, id uuid.UUID, opts ReadOptions) (*models.User, error) {
	var u models.User
	if err := s.load(ctx, "FindUserByID", &u, id, opts); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser registers an account; a taken email is a conflict.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = models.NormalizeEmail(u.Email)
	if u.Email == "" {
		return invalid("CreateUser", models.KindUser, "email is required")
	}
	return s.Begin(nil).Create(u).Commit(ctx)
}

// UpdateUser saves profile or password changes through the audited pipeline.
func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	u.Email = models.NormalizeEmail(u.Email)
	id := u.ID
	return s.Begin(&id).Update(u).Commit(ctx)
}

// SaveCredentials persists sign-in bookkeeping (counters, lockout, tokens,
// last login) without auditing it. Deactivated accounts are included.
func (s *Store) SaveCredentials(ctx context.Context, u *models.User) error {
	err := s.db.WithContext(ctx).Model(u).
		Select("password_hash", "email_confirmed", "access_failed_count", "lockout_end", "two_factor_enabled",
			"token_version", "confirm_token_hash", "confirm_expires_at", "reset_token_hash", "reset_expires_at",
			"last_login_at", "last_activity").
		Omit(clause.Associations).
		Updates(u).Error
	return translate("SaveCredentials", models.KindUser, err)
}

// DeactivateUser hides the account and drops its memberships, assignments and inbox.
// It is refused while the user still authors comments, attachments or time logs.
func (s *Store) DeactivateUser(ctx context.Context, actor, id uuid.UUID) error {
	return s.deleteByID(ctx, actor, models.KindUser, id)
}
