package models

import (
	"time"

	"github.com/google/uuid"
)

// Category groups tasks inside one project
type Category struct {
	Base

	ProjectID   uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Name        string    `gorm:"size:100;not null" json:"name" validate:"required,max=100"`
	Description string    `gorm:"size:500" json:"description"`
	Color       string    `gorm:"size:7" json:"color" validate:"omitempty,hexcolor"`
	Icon        string    `gorm:"size:50" json:"icon"`
	SortOrder   int       `json:"sort_order"`
	IsActive    bool      `gorm:"not null;index" json:"is_active"`
}

func (Category) TableName() string { return "categories" }
func (*Category) EntityKind() EntityKind { return KindCategory }
func (c *Category) MarkDeleted(time.Time) { c.IsActive = false }
func (c *Category) Hidden() bool { return !c.IsActive }

func (c *Category) References() []Ref { return []Ref{{Kind: KindProject, ID: c.ProjectID}} }

func (c *Category) AuditScope() (*uuid.UUID, *uuid.UUID) {
	id := c.ProjectID
	return &id, nil
}

// Tag is a free-form label scoped to a project
type Tag struct {
	Base

	ProjectID   uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Name        string    `gorm:"size:50;not null" json:"name" validate:"required,max=50"`
	Description string    `gorm:"size:200" json:"description"`
	Color       string    `gorm:"size:7" json:"color" validate:"omitempty,hexcolor"`
	IsActive    bool      `gorm:"not null;index" json:"is_active"`
}

func (Tag) TableName() string { return "tags" }
func (*Tag) EntityKind() EntityKind { return KindTag }
func (t *Tag) MarkDeleted(time.Time) { t.IsActive = false }
func (t *Tag) Hidden() bool { return !t.IsActive }

func (t *Tag) References() []Ref { return []Ref{{Kind: KindProject, ID: t.ProjectID}} }

func (t *Tag) AuditScope() (*uuid.UUID, *uuid.UUID) {
	id := t.ProjectID
	return &id, nil
}

// TaskTag links a tag to a task
type TaskTag struct {
	Base

	TaskID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_task_tag" json:"task_id"`
	TagID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_task_tag" json:"tag_id"`
	TaggedAt time.Time  `gorm:"not null" json:"tagged_at"`
	TaggedBy *uuid.UUID `gorm:"type:uuid" json:"tagged_by,omitempty"`

	Tag *Tag `gorm:"foreignKey:TagID" json:"tag,omitempty"`
}

func (TaskTag) TableName() string { return "task_tags" }
func (*TaskTag) EntityKind() EntityKind { return KindTaskTag }

func (t *TaskTag) References() []Ref {
	return refIf(KindUser, t.TaggedBy, []Ref{{Kind: KindTask, ID: t.TaskID}, {Kind: KindTag, ID: t.TagID}})
}

func (t *TaskTag) AuditScope() (*uuid.UUID, *uuid.UUID) {
	id := t.TaskID
	return nil, &id
}

// SubTaskTag links a tag to a subtask
type SubTaskTag struct {
	Base

	SubTaskID uuid.UUID  `gorm:"column:subtask_id;type:uuid;not null;uniqueIndex:idx_subtask_tag" json:"subtask_id"`
	TagID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_subtask_tag" json:"tag_id"`
	TaggedAt  time.Time  `gorm:"not null" json:"tagged_at"`
	TaggedBy  *uuid.UUID `gorm:"type:uuid" json:"tagged_by,omitempty"`

	Tag *Tag `gorm:"foreignKey:TagID" json:"tag,omitempty"`
}

func (SubTaskTag) TableName() string { return "subtask_tags" }
func (*SubTaskTag) EntityKind() EntityKind { return KindSubTaskTag }

func (t *SubTaskTag) References() []Ref {
	return refIf(KindUser, t.TaggedBy, []Ref{{Kind: KindSubTask, ID: t.SubTaskID}, {Kind: KindTag, ID: t.TagID}})
}
