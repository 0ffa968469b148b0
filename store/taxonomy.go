package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"projectflow/models"
)

func (s *Store) CreateCategory(ctx context.Context, actor uuid.UUID, c *models.Category) error {
	if strings.TrimSpace(c.Name) == "" {
		return invalid("CreateCategory", models.KindCategory, "name is required")
	}
	c.IsActive = true
	return s.Begin(&actor).Create(c).Commit(ctx)
}

func (s *Store) ListCategories(ctx context.Context, projectID uuid.UUID, opts ReadOptions) ([]models.Category, error) {
	var out []models.Category
	err := s.read(ctx, models.KindCategory, opts).
		Where("project_id = ?", projectID).
		Order("sort_order, name").
		Find(&out).Error
	return out, translate("ListCategories", models.KindCategory, err)
}

// DeleteCategory deactivates the category and clears it from tasks and subtasks.
func (s *Store) DeleteCategory(ctx context.Context, actor, id uuid.UUID) error {
	return s.deleteByID(ctx, actor, models.KindCategory, id)
}

func (s *Store) CreateTag(ctx context.Context, actor uuid.UUID, t *models.Tag) error {
	if strings.TrimSpace(t.Name) == "" {
		return invalid("CreateTag", models.KindTag, "name is required")
	}
	t.IsActive = true
	return s.Begin(&actor).Create(t).Commit(ctx)
}

func (s *Store) ListTags(ctx context.Context, projectID uuid.UUID, opts ReadOptions) ([]models.Tag, error) {
	var out []models.Tag
	err := s.read(ctx, models.KindTag, opts).
		Where("project_id = ?", projectID).
		Order("name").
		Find(&out).Error
	return out, translate("ListTags", models.KindTag, err)
}

// DeleteTag deactivates the tag and removes every tagging that uses it.
func (s *Store) DeleteTag(ctx context.Context, actor, id uuid.UUID) error {
	return s.deleteByID(ctx, actor, models.KindTag, id)
}

// TagTask links a tag of the task's project to the task.
func (s *Store) TagTask(ctx context.Context, actor, taskID, tagID uuid.UUID) (*models.TaskTag, error) {
	link := &models.TaskTag{TaskID: taskID, TagID: tagID, TaggedAt: s.now(), TaggedBy: &actor}
	err := s.Begin(&actor).Create(link).Check(sameProjectTag("TagTask", "tasks", taskID, tagID)).Commit(ctx)
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (s *Store) UntagTask(ctx context.Context, actor, taskID, tagID uuid.UUID) error {
	var link models.TaskTag
	err := s.db.WithContext(ctx).Where("task_id = ? AND tag_id = ?", taskID, tagID).First(&link).Error
	if err != nil {
		return translate("UntagTask", models.KindTaskTag, err)
	}
	return s.Begin(&actor).Delete(&link).Commit(ctx)
}

// TagSubTask links a tag of the parent task's project to the subtask.
func (s *Store) TagSubTask(ctx context.Context, actor, subTaskID, tagID uuid.UUID) (*models.SubTaskTag, error) {
	link := &models.SubTaskTag{SubTaskID: subTaskID, TagID: tagID, TaggedAt: s.now(), TaggedBy: &actor}
	err := s.Begin(&actor).Create(link).Check(func(tx *gorm.DB) error {
		var projectID uuid.UUID
		err := tx.Table("tasks").
			Select("tasks.project_id").
			Joins("JOIN subtasks ON subtasks.task_id = tasks.id").
			Where("subtasks.id = ?", subTaskID).
			Row().Scan(&projectID)
		if err != nil {
			return translate("TagSubTask", models.KindSubTaskTag, err)
		}
		return tagInProject(tx, "TagSubTask", projectID, tagID)
	}).Commit(ctx)
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (s *Store) UntagSubTask(ctx context.Context, actor, subTaskID, tagID uuid.UUID) error {
	var link models.SubTaskTag
	err := s.db.WithContext(ctx).Where("subtask_id = ? AND tag_id = ?", subTaskID, tagID).First(&link).Error
	if err != nil {
		return translate("UntagSubTask", models.KindSubTaskTag, err)
	}
	return s.Begin(&actor).Delete(&link).Commit(ctx)
}

func sameProjectTag(op, table string, id, tagID uuid.UUID) Check {
	return func(tx *gorm.DB) error {
		var projectID uuid.UUID
		if err := tx.Table(table).Select("project_id").Where("id = ?", id).Row().Scan(&projectID); err != nil {
			return translate(op, models.KindTag, err)
		}
		return tagInProject(tx, op, projectID, tagID)
	}
}

func tagInProject(tx *gorm.DB, op string, projectID, tagID uuid.UUID) error {
	var n int64
	if err := tx.Model(&models.Tag{}).Where("id = ? AND project_id = ?", tagID, projectID).Count(&n).Error; err != nil {
		return translate(op, models.KindTag, err)
	}
	if n == 0 {
		return invalid(op, models.KindTag, "tag belongs to another project")
	}
	return nil
}
