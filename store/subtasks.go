package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"projectflow/models"
)

func validateSubTask(op string, st *models.SubTask) error {
	if st.Status == "" {
		st.Status = models.TaskNotStarted
	}
	if st.Priority == "" {
		st.Priority = models.PriorityMedium
	}
	switch {
	case strings.TrimSpace(st.Title) == "":
		return invalid(op, models.KindSubTask, "title is required")
	case !st.Status.Valid():
		return invalid(op, models.KindSubTask, "unknown status %q", st.Status)
	case !st.Priority.Valid():
		return invalid(op, models.KindSubTask, "unknown priority %q", st.Priority)
	case st.Progress < 0 || st.Progress > 100:
		return invalid(op, models.KindSubTask, "progress must be between 0 and 100")
	case st.StartDate != nil && st.EndDate != nil && st.EndDate.Before(*st.StartDate):
		return invalid(op, models.KindSubTask, "end date precedes start date")
	}
	return nil
}

// subTaskPlacement checks that sprint and category belong to the parent task's project.
func subTaskPlacement(op string, st *models.SubTask) Check {
	return func(tx *gorm.DB) error {
		if st.SprintID == nil && st.CategoryID == nil {
			return nil
		}
		var projectID uuid.UUID
		if err := tx.Table("tasks").Select("project_id").Where("id = ?", st.TaskID).Row().Scan(&projectID); err != nil {
			return translate(op, models.KindSubTask, err)
		}
		if err := sameProject(tx, op, "sprints", st.SprintID, projectID); err != nil {
			return err
		}
		return sameProject(tx, op, "categories", st.CategoryID, projectID)
	}
}

func (s *Store) CreateSubTask(ctx context.Context, actor uuid.UUID, st *models.SubTask) error {
	const op = "CreateSubTask"
	if err := validateSubTask(op, st); err != nil {
		return err
	}
	st.SyncCompletion(s.now())
	return s.Begin(&actor).Create(st).Check(subTaskPlacement(op, st)).Commit(ctx)
}

func (s *Store) GetSubTask(ctx context.Context, id uuid.UUID, opts ReadOptions) (*models.SubTask, error) {
	var st models.SubTask
	err := s.load(ctx, "GetSubTask", &st, id, opts,
		preloadVisible("Assignments", models.KindSubTaskAssignment, opts),
		func(db *gorm.DB) *gorm.DB { return db.Preload("Tags.Tag") },
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ListSubTasks returns the subtasks of a visible task.
func (s *Store) ListSubTasks(ctx context.Context, taskID uuid.UUID, opts ReadOptions) ([]models.SubTask, error) {
	if !opts.IncludeDeleted {
		if err := s.requireVisible(ctx, "ListSubTasks", models.KindTask, taskID); err != nil {
			return nil, err
		}
	}
	var out []models.SubTask
	err := s.read(ctx, models.KindSubTask, opts).
		Where("task_id = ?", taskID).
		Order("created_at").
		Find(&out).Error
	return out, translate("ListSubTasks", models.KindSubTask, err)
}

// UpdateSubTask saves changes, stamping or clearing the completion time with the status.
func (s *Store) UpdateSubTask(ctx context.Context, actor uuid.UUID, st *models.SubTask) error {
	const op = "UpdateSubTask"
	if err := validateSubTask(op, st); err != nil {
		return err
	}
	st.SyncCompletion(s.now())
	return s.Begin(&actor).Update(st).Check(subTaskPlacement(op, st)).Commit(ctx)
}

func (s *Store) DeleteSubTask(ctx context.Context, actor, id uuid.UUID) error {
	return s.deleteByID(ctx, actor, models.KindSubTask, id)
}

func (s *Store) AssignSubTask(ctx context.Context, actor uuid.UUID, a *models.SubTaskAssignment) error {
	if a.Role == "" {
		a.Role = models.AssignmentDeveloper
	}
	if !a.Role.Valid() {
		return invalid("AssignSubTask", models.KindSubTaskAssignment, "unknown role %q", a.Role)
	}
	a.IsActive = true
	a.AssignedBy = &actor
	return s.Begin(&actor).Create(a).Commit(ctx)
}

func (s *Store) UnassignSubTask(ctx context.Context, actor, subTaskID, userID uuid.UUID) error {
	var a models.SubTaskAssignment
	err := s.read(ctx, models.KindSubTaskAssignment, ReadOptions{}).
		Where("subtask_id = ? AND user_id = ?", subTaskID, userID).
		First(&a).Error
	if err != nil {
		return translate("UnassignSubTask", models.KindSubTaskAssignment, err)
	}
	return s.Begin(&actor).Delete(&a).Commit(ctx)
}

// requireVisible fails with NotFound when the record is missing or hidden.
func (s *Store) requireVisible(ctx context.Context, op string, kind models.EntityKind, id uuid.UUID) error {
	ok, err := isVisible(s.db.WithContext(ctx), kind, id)
	if err != nil {
		return translate(op, kind, err)
	}
	if !ok {
		return notFound(op, kind)
	}
	return nil
}
