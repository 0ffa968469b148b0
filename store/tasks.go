package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"projectflow/models"
)

var taskKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,9}-[0-9]+$`)

// CreateTask stores a task, generating a PROJECT-n key when none is given.
func (s *Store) CreateTask(ctx context.Context, actor uuid.UUID, t *models.TaskItem) error {
	const op = "CreateTask"
	var project models.Project
	if err := s.load(ctx, op, &project, t.ProjectID, ReadOptions{}); err != nil {
		return err
	}
	applyTaskDefaults(t)
	if err := validateTask(op, t); err != nil {
		return err
	}
	if t.Status == models.TaskDone {
		t.ResolvedAt = ptrTime(s.now())
	}
	if t.Key != "" {
		t.Key = strings.ToUpper(strings.TrimSpace(t.Key))
		if !taskKeyPattern.MatchString(t.Key) {
			return invalid(op, models.KindTask, "key must look like %s-123", project.Key)
		}
		return s.Begin(&actor).Create(t).Check(taskPlacement(op, t)).Commit(ctx)
	}

	// Generated keys can race with a concurrent create; take the next number.
	after := 0
	var err error
	for attempt := 0; attempt < taskKeyAttempts; attempt++ {
		if t.Key, err = s.nextTaskKey(ctx, &project, after); err != nil {
			return err
		}
		err = s.Begin(&actor).Create(t).Check(taskPlacement(op, t)).Commit(ctx)
		if !errors.Is(err, ErrConflict) {
			break
		}
		after = taskKeyNumber(t.Key, project.Key)
	}
	if err != nil {
		t.Key = ""
	}
	return err
}

const taskKeyAttempts = 5

func applyTaskDefaults(t *models.TaskItem) {
	if t.Status == "" {
		t.Status = models.TaskNotStarted
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if t.Type == "" {
		t.Type = models.TaskTypeTask
	}
}

func validateTask(op string, t *models.TaskItem) error {
	switch {
	case strings.TrimSpace(t.Title) == "":
		return invalid(op, models.KindTask, "title is required")
	case !t.Status.Valid():
		return invalid(op, models.KindTask, "unknown status %q", t.Status)
	case !t.Priority.Valid():
		return invalid(op, models.KindTask, "unknown priority %q", t.Priority)
	case !t.Type.Valid():
		return invalid(op, models.KindTask, "unknown type %q", t.Type)
	case t.Progress < 0 || t.Progress > 100:
		return invalid(op, models.KindTask, "progress must be between 0 and 100")
	case t.StartDate != nil && t.EndDate != nil && t.EndDate.Before(*t.StartDate):
		return invalid(op, models.KindTask, "end date precedes start date")
	case t.ParentTaskID != nil && *t.ParentTaskID == t.ID:
		return invalid(op, models.KindTask, "a task cannot be its own parent")
	}
	return nil
}

// nextTaskKey numbers tasks per project, counting deleted ones so keys are
// never reused. The result is always above after.
func (s *Store) nextTaskKey(ctx context.Context, project *models.Project, after int) (string, error) {
	var keys []string
	err := s.db.WithContext(ctx).Model(&models.TaskItem{}).
		Where("project_id = ?", project.ID).
		Pluck("key", &keys).Error
	if err != nil {
		return "", translate("nextTaskKey", models.KindTask, err)
	}
	highest := after
	for _, k := range keys {
		if n := taskKeyNumber(k, project.Key); n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s-%d", project.Key, highest+1), nil
}

func taskKeyNumber(key, projectKey string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(key, projectKey+"-"))
	if err != nil {
		return 0
	}
	return n
}

// taskPlacement checks that sprint, category and parent live in the task's
// project and that the parent chain does not loop back to the task.
func taskPlacement(op string, t *models.TaskItem) Check {
	return func(tx *gorm.DB) error {
		if err := sameProject(tx, op, "sprints", t.SprintID, t.ProjectID); err != nil {
			return err
		}
		if err := sameProject(tx, op, "categories", t.CategoryID, t.ProjectID); err != nil {
			return err
		}
		if err := sameProject(tx, op, "tasks", t.ParentTaskID, t.ProjectID); err != nil {
			return err
		}
		return noParentCycle(tx, op, t.ID, t.ParentTaskID)
	}
}

func sameProject(tx *gorm.DB, op, table string, id *uuid.UUID, projectID uuid.UUID) error {
	if id == nil {
		return nil
	}
	var n int64
	if err := tx.Table(table).Where("id = ? AND project_id = ?", *id, projectID).Count(&n).Error; err != nil {
		return translate(op, models.KindTask, err)
	}
	if n == 0 {
		return invalid(op, models.KindTask, "%s entry belongs to another project", strings.TrimSuffix(table, "s"))
	}
	return nil
}

func noParentCycle(tx *gorm.DB, op string, taskID uuid.UUID, parentID *uuid.UUID) error {
	seen := map[uuid.UUID]bool{taskID: true}
	for parentID != nil {
		if seen[*parentID] {
			return invalid(op, models.KindTask, "parent task would create a cycle")
		}
		seen[*parentID] = true
		var next models.TaskItem
		err := tx.Select("id", "parent_task_id").First(&next, "id = ?", *parentID).Error
		if err != nil {
			return translate(op, models.KindTask, err)
		}
		parentID = next.ParentTaskID
	}
	return nil
}

// GetTask loads a task with its visible subtasks, children, assignments and tags.
func (s *Store) GetTask(ctx context.Context, id uuid.UUID, opts ReadOptions) (*models.TaskItem, error) {
	var t models.TaskItem
	err := s.load(ctx, "GetTask", &t, id, opts,
		preloadVisible("SubTasks", models.KindSubTask, opts, "created_at"),
		preloadVisible("Children", models.KindTask, opts, "created_at"),
		preloadVisible("Assignments", models.KindTaskAssignment, opts),
		func(db *gorm.DB) *gorm.DB { return db.Preload("Tags.Tag") },
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TaskFilter narrows task listings
type TaskFilter struct {
	ProjectID  uuid.UUID
	SprintID   *uuid.UUID
	AssigneeID *uuid.UUID
	Status     models.TaskStatus
	ReadOptions
}

func (s *Store) ListTasks(ctx context.Context, f TaskFilter) ([]models.TaskItem, error) {
	q := s.read(ctx, models.KindTask, f.ReadOptions).
		Preload("SubTasks", func(db *gorm.DB) *gorm.DB { return Visible(db, models.KindSubTask, f.ReadOptions) }).
		Where("tasks.project_id = ?", f.ProjectID)
	if f.SprintID != nil {
		q = q.Where("tasks.sprint_id = ?", *f.SprintID)
	}
	if f.Status != "" {
		q = q.Where("tasks.status = ?", f.Status)
	}
	if f.AssigneeID != nil {
		q = q.Where("tasks.id IN (?)", s.db.Model(&models.TaskAssignment{}).
			Select("task_id").
			Where("user_id = ? AND is_active = ?", *f.AssigneeID, true))
	}
	var out []models.TaskItem
	err := q.Order("tasks.created_at").Find(&out).Error
	return out, translate("ListTasks", models.KindTask, err)
}

// UpdateTask saves task changes, stamping the resolution time on completion.
func (s *Store) UpdateTask(ctx context.Context, actor uuid.UUID, t *models.TaskItem) error {
	const op = "UpdateTask"
	applyTaskDefaults(t)
	if err := validateTask(op, t); err != nil {
		return err
	}
	switch {
	case t.Status == models.TaskDone && t.ResolvedAt == nil:
		t.ResolvedAt = ptrTime(s.now())
	case t.Status != models.TaskDone:
		t.ResolvedAt = nil
	}
	return s.Begin(&actor).Update(t).Check(taskPlacement(op, t)).Commit(ctx)
}

// DeleteTask soft-deletes the task with its subtasks and child tasks. It is
// refused while visible comments, attachments or time logs point at the task.
func (s *Store) DeleteTask(ctx context.Context, actor, id uuid.UUID) error {
	return s.deleteByID(ctx, actor, models.KindTask, id)
}

// AssignTask puts a user on a task.
func (s *Store) AssignTask(ctx context.Context, actor uuid.UUID, a *models.TaskAssignment) error {
	if a.Role == "" {
		a.Role = models.AssignmentDeveloper
	}
	if !a.Role.Valid() {
		return invalid("AssignTask", models.KindTaskAssignment, "unknown role %q", a.Role)
	}
	a.IsActive = true
	a.AssignedBy = &actor
	return s.Begin(&actor).Create(a).Commit(ctx)
}

func (s *Store) UnassignTask(ctx context.Context, actor, taskID, userID uuid.UUID) error {
	var a models.TaskAssignment
	err := s.read(ctx, models.KindTaskAssignment, ReadOptions{}).
		Where("task_id = ? AND user_id = ?", taskID, userID).
		First(&a).Error
	if err != nil {
		return translate("UnassignTask", models.KindTaskAssignment, err)
	}
	return s.Begin(&actor).Delete(&a).Commit(ctx)
}
