package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"projectflow/models"
)

// AddOwner grants a user a role on a project. A second record for the same
// pair is a conflict, whether or not the first one is still active.
func (s *Store) AddOwner(ctx context.Context, actor uuid.UUID, o *models.ProjectOwner) error {
	if o.Role == "" {
		o.Role = models.OwnerRoleViewer
	}
	if !o.Role.Valid() {
		return invalid("AddOwner", models.KindProjectOwner, "unknown role %q", o.Role)
	}
	o.IsActive = true
	o.RemovedAt = nil
	o.CanEdit, o.CanDelete, o.CanManageMembers, o.CanViewReports = false, false, false, false
	o.GrantDefaults()
	return s.Begin(&actor).Create(o).Commit(ctx)
}

// ListOwners returns the project's owners.
func (s *Store) ListOwners(ctx context.Context, projectID uuid.UUID, opts ReadOptions) ([]models.ProjectOwner, error) {
	var out []models.ProjectOwner
	err := s.read(ctx, models.KindProjectOwner, opts).
		Where("project_id = ?", projectID).
		Order("created_at").
		Find(&out).Error
	return out, translate("ListOwners", models.KindProjectOwner, err)
}

func (s *Store) findOwner(ctx context.Context, projectID, userID uuid.UUID) (*models.ProjectOwner, error) {
	var o models.ProjectOwner
	err := s.read(ctx, models.KindProjectOwner, ReadOptions{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&o).Error
	if err != nil {
		return nil, translate("findOwner", models.KindProjectOwner, err)
	}
	return &o, nil
}

// ChangeOwnerRole moves an owner to a new role, keeping at least one Owner on the project.
func (s *Store) ChangeOwnerRole(ctx context.Context, actor, projectID, userID uuid.UUID, role models.OwnerRole) error {
	if !role.Valid() {
		return invalid("ChangeOwnerRole", models.KindProjectOwner, "unknown role %q", role)
	}
	o, err := s.findOwner(ctx, projectID, userID)
	if err != nil {
		return err
	}
	o.Role = role
	o.CanEdit, o.CanDelete, o.CanManageMembers, o.CanViewReports = false, false, false, false
	o.GrantDefaults()
	return s.Begin(&actor).Update(o).Check(requireOwner(projectID)).Commit(ctx)
}

// RemoveOwner deactivates an ownership, keeping at least one Owner on the project.
func (s *Store) RemoveOwner(ctx context.Context, actor, projectID, userID uuid.UUID) error {
	o, err := s.findOwner(ctx, projectID, userID)
	if err != nil {
		return err
	}
	return s.Begin(&actor).Delete(o).Check(requireOwner(projectID)).Commit(ctx)
}

// requireOwner fails when the project would be left without an active Owner.
func requireOwner(projectID uuid.UUID) Check {
	return func(tx *gorm.DB) error {
		var n int64
		err := tx.Model(&models.ProjectOwner{}).
			Where("project_id = ? AND role = ? AND is_active = ?", projectID, models.OwnerRoleOwner, true).
			Count(&n).Error
		if err != nil {
			return translate("requireOwner", models.KindProjectOwner, err)
		}
		if n == 0 {
			return conflict("requireOwner", models.KindProjectOwner, "project must keep at least one active owner")
		}
		return nil
	}
}
