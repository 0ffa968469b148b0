package models

import (
	"time"

	"github.com/google/uuid"
)

// SubTask is a smaller piece of work owned by one task
type SubTask struct {
	Base
	SoftDelete

	TaskID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"task_id"`
	SprintID   *uuid.UUID `gorm:"type:uuid;index" json:"sprint_id,omitempty"`
	CategoryID *uuid.UUID `gorm:"type:uuid;index" json:"category_id,omitempty"`

	Title          string        `gorm:"size:300;not null" json:"title" validate:"required,max=300"`
	Description    string        `gorm:"type:text" json:"description"`
	Status         TaskStatus    `gorm:"size:20;not null;index" json:"status"`
	Priority       PriorityLevel `gorm:"size:20;not null" json:"priority"`
	StartDate      *time.Time    `json:"start_date,omitempty"`
	EndDate        *time.Time    `json:"end_date,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	UpdatedAt      *time.Time    `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`
	EstimatedHours float64       `json:"estimated_hours"`
	ActualHours    float64       `json:"actual_hours"`
	StoryPoints    int           `json:"story_points"`
	Progress       int           `json:"progress" validate:"min=0,max=100"`

	Assignments []SubTaskAssignment `gorm:"foreignKey:SubTaskID" json:"assignments,omitempty"`
	Tags        []SubTaskTag        `gorm:"foreignKey:SubTaskID" json:"tags,omitempty"`
}

func (SubTask) TableName() string { return "subtasks" }
func (*SubTask) EntityKind() EntityKind { return KindSubTask }
func (s *SubTask) Touch(at time.Time, _ bool) { stamp(&s.UpdatedAt, at) }

func (s *SubTask) References() []Ref {
	refs := []Ref{{Kind: KindTask, ID: s.TaskID}}
	refs = refIf(KindSprint, s.SprintID, refs)
	return refIf(KindCategory, s.CategoryID, refs)
}

func (s *SubTask) AuditScope() (*uuid.UUID, *uuid.UUID) {
	id := s.TaskID
	return nil, &id
}

func (s *SubTask) IsOverdue(now time.Time) bool {
	return s.EndDate != nil && pastDue(*s.EndDate, now) && !s.Status.Terminal()
}

func (s *SubTask) IsCompleted() bool { return s.Status == TaskDone }

// SyncCompletion stamps or clears the completion time to match the status.
func (s *SubTask) SyncCompletion(now time.Time) {
	switch {
	case s.Status == TaskDone && s.CompletedAt == nil:
		stamp(&s.CompletedAt, now)
	case s.Status != TaskDone:
		s.CompletedAt = nil
	}
}

// SubTaskAssignment puts a user on a subtask
type SubTaskAssignment struct {
	Base
	Membership

	SubTaskID  uuid.UUID      `gorm:"column:subtask_id;type:uuid;not null;uniqueIndex:idx_subtask_user" json:"subtask_id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_subtask_user" json:"user_id"`
	Role       AssignmentRole `gorm:"size:20;not null" json:"role"`
	AssignedBy *uuid.UUID     `gorm:"type:uuid" json:"assigned_by,omitempty"`
}

func (SubTaskAssignment) TableName() string { return "subtask_assignments" }
func (*SubTaskAssignment) EntityKind() EntityKind { return KindSubTaskAssignment }

func (a *SubTaskAssignment) References() []Ref {
	return []Ref{{Kind: KindSubTask, ID: a.SubTaskID}, {Kind: KindUser, ID: a.UserID}}
}
