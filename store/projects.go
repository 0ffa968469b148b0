package store

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"projectflow/models"
)

var projectKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,9}$`)

// CreateProject stores a new project and makes actor its first owner.
func (s *Store) CreateProject(ctx context.Context, actor uuid.UUID, p *models.Project) error {
	const op = "CreateProject"
	p.Key = strings.ToUpper(strings.TrimSpace(p.Key))
	if !projectKeyPattern.MatchString(p.Key) {
		return invalid(op, models.KindProject, "key must be 2-10 letters or digits starting with a letter")
	}
	if strings.TrimSpace(p.Name) == "" {
		return invalid(op, models.KindProject, "name is required")
	}
	if p.Status == "" {
		p.Status = models.ProjectPlanning
	}
	if p.Priority == "" {
		p.Priority = models.PriorityMedium
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if err := validateProject(op, p); err != nil {
		return err
	}

	uow := s.Begin(&actor).Create(p)
	owner := &models.ProjectOwner{
		ProjectID:  p.ID,
		UserID:     actor,
		Role:       models.OwnerRoleOwner,
		Membership: models.Membership{IsActive: true},
	}
	owner.GrantDefaults()
	return uow.Create(owner).Commit(ctx)
}

func validateProject(op string, p *models.Project) error {
	if !p.Status.Valid() {
		return invalid(op, models.KindProject, "unknown status %q", p.Status)
	}
	if !p.Priority.Valid() {
		return invalid(op, models.KindProject, "unknown priority %q", p.Priority)
	}
	if !p.StartDate.IsZero() && !p.EndDate.IsZero() && p.EndDate.Before(p.StartDate) {
		return invalid(op, models.KindProject, "end date precedes start date")
	}
	return nil
}

// GetProject loads a project with its visible owners, sprints and tasks.
func (s *Store) GetProject(ctx context.Context, id uuid.UUID, opts ReadOptions) (*models.Project, error) {
	var p models.Project
	err := s.load(ctx, "GetProject", &p, id, opts,
		preloadVisible("Owners", models.KindProjectOwner, opts),
		preloadVisible("Sprints", models.KindSprint, opts, "start_date"),
		preloadVisible("Tasks", models.KindTask, opts, "created_at"),
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ProjectFilter narrows project listings
type ProjectFilter struct {
	MemberID *uuid.UUID
	Status   models.ProjectStatus
	ReadOptions
}

// ListProjects returns projects with their visible tasks loaded for progress figures.
func (s *Store) ListProjects(ctx context.Context, f ProjectFilter) ([]models.Project, error) {
	q := s.read(ctx, models.KindProject, f.ReadOptions).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return Visible(db, models.KindTask, f.ReadOptions) })
	if f.Status != "" {
		q = q.Where("projects.status = ?", f.Status)
	}
	if f.MemberID != nil {
		q = q.Where("projects.id IN (?)", s.db.Model(&models.ProjectOwner{}).
			Select("project_id").
			Where("user_id = ? AND is_active = ?", *f.MemberID, true))
	}
	var out []models.Project
	err := q.Order("projects.created_at DESC").Find(&out).Error
	return out, translate("ListProjects", models.KindProject, err)
}

// UpdateProject saves scalar changes; the key cannot change.
func (s *Store) UpdateProject(ctx context.Context, actor uuid.UUID, p *models.Project) error {
	if err := validateProject("UpdateProject", p); err != nil {
		return err
	}
	return s.Begin(&actor).Update(p).Commit(ctx)
}

// DeleteProject soft-deletes a project and cascades to its owned records.
func (s *Store) DeleteProject(ctx context.Context, actor, id uuid.UUID) error {
	return s.deleteByID(ctx, actor, models.KindProject, id)
}
