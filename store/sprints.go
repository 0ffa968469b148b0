package store

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"projectflow/models"
)

func validateSprint(op string, sp *models.Sprint) error {
	if strings.TrimSpace(sp.Name) == "" {
		return invalid(op, models.KindSprint, "name is required")
	}
	if sp.Status == "" {
		sp.Status = models.SprintPlanning
	}
	if !sp.Status.Valid() {
		return invalid(op, models.KindSprint, "unknown status %q", sp.Status)
	}
	if sp.EndDate.Before(sp.StartDate) {
		return invalid(op, models.KindSprint, "end date precedes start date")
	}
	if sp.CompletedStoryPoints < 0 || sp.TotalStoryPoints < 0 || sp.CompletedStoryPoints > sp.TotalStoryPoints {
		return invalid(op, models.KindSprint, "completed story points must be between 0 and the total")
	}
	return nil
}

func (s *Store) CreateSprint(ctx context.Context, actor uuid.UUID, sp *models.Sprint) error {
	if err := validateSprint("CreateSprint", sp); err != nil {
		return err
	}
	return s.Begin(&actor).Create(sp).Commit(ctx)
}

// GetSprint loads a sprint with its visible tasks.
func (s *Store) GetSprint(ctx context.Context, id uuid.UUID, opts ReadOptions) (*models.Sprint, error) {
	var sp models.Sprint
	if err := s.load(ctx, "GetSprint", &sp, id, opts, preloadVisible("Tasks", models.KindTask, opts, "created_at")); err != nil {
		return nil, err
	}
	return &sp, nil
}

func (s *Store) ListSprints(ctx context.Context, projectID uuid.UUID, opts ReadOptions) ([]models.Sprint, error) {
	var out []models.Sprint
	err := s.read(ctx, models.KindSprint, opts).
		Where("project_id = ?", projectID).
		Order("start_date").
		Find(&out).Error
	return out, translate("ListSprints", models.KindSprint, err)
}

func (s *Store) UpdateSprint(ctx context.Context, actor uuid.UUID, sp *models.Sprint) error {
	if err := validateSprint("UpdateSprint", sp); err != nil {
		return err
	}
	return s.Begin(&actor).Update(sp).Commit(ctx)
}

// DeleteSprint hides the sprint and detaches its tasks and subtasks.
func (s *Store) DeleteSprint(ctx context.Context, actor, id uuid.UUID) error {
	return s.deleteByID(ctx, actor, models.KindSprint, id)
}
