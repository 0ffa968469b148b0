package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskItem is a unit of work inside a project
type TaskItem struct {
	Base
	SoftDelete

	ProjectID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	SprintID     *uuid.UUID `gorm:"type:uuid;index" json:"sprint_id,omitempty"`
	CategoryID   *uuid.UUID `gorm:"type:uuid;index" json:"category_id,omitempty"`
	ParentTaskID *uuid.UUID `gorm:"type:uuid;index" json:"parent_task_id,omitempty"`

	Key         string        `gorm:"size:30;not null;uniqueIndex" json:"key"`
	Title       string        `gorm:"size:300;not null" json:"title" validate:"required,max=300"`
	Description string        `gorm:"type:text" json:"description"`
	Status      TaskStatus    `gorm:"size:20;not null;index" json:"status"`
	Priority    PriorityLevel `gorm:"size:20;not null" json:"priority"`
	Type        TaskType      `gorm:"size:20;not null" json:"type"`
	StartDate   *time.Time    `json:"start_date,omitempty"`
	EndDate     *time.Time    `json:"end_date,omitempty"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
	UpdatedAt   *time.Time    `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`

	// Effort
	EstimatedHours float64 `json:"estimated_hours"`
	ActualHours    float64 `json:"actual_hours"`
	OverTimeHours  float64 `json:"overtime_hours"`
	StoryPoints    int     `json:"story_points"`
	Progress       int     `json:"progress" validate:"min=0,max=100"`

	// Planning detail
	AcceptanceCriteria string `gorm:"type:text" json:"acceptance_criteria"`
	BusinessValue      int    `json:"business_value"`
	IsBlocked          bool   `gorm:"not null;default:false" json:"is_blocked"`
	BlockedReason      string `gorm:"size:500" json:"blocked_reason"`

	// Relations
	Children    []TaskItem       `gorm:"foreignKey:ParentTaskID" json:"children,omitempty"`
	SubTasks    []SubTask        `gorm:"foreignKey:TaskID" json:"subtasks,omitempty"`
	Assignments []TaskAssignment `gorm:"foreignKey:TaskID" json:"assignments,omitempty"`
	Tags        []TaskTag        `gorm:"foreignKey:TaskID" json:"tags,omitempty"`
}

func (TaskItem) TableName() string { return "tasks" }
func (*TaskItem) EntityKind() EntityKind { return KindTask }
func (t *TaskItem) NaturalKey() string { return t.Key }
func (t *TaskItem) Touch(at time.Time, _ bool) { stamp(&t.UpdatedAt, at) }

func (t *TaskItem) References() []Ref {
	refs := []Ref{{Kind: KindProject, ID: t.ProjectID}}
	refs = refIf(KindSprint, t.SprintID, refs)
	refs = refIf(KindCategory, t.CategoryID, refs)
	return refIf(KindTask, t.ParentTaskID, refs)
}

func (t *TaskItem) AuditScope() (*uuid.UUID, *uuid.UUID) {
	pid, tid := t.ProjectID, t.ID
	return &pid, &tid
}

// IsOverdue reports a past end date on a task that is neither done nor cancelled.
func (t *TaskItem) IsOverdue(now time.Time) bool {
	return t.EndDate != nil && pastDue(*t.EndDate, now) && !t.Status.Terminal()
}

func (t *TaskItem) IsEpic() bool { return t.Type == TaskTypeEpic }
func (t *TaskItem) IsStory() bool { return t.Type == TaskTypeStory }
func (t *TaskItem) IsBug() bool { return t.Type == TaskTypeBug }
func (t *TaskItem) IsCompleted() bool { return t.Status == TaskDone }
func (t *TaskItem) IsInProgress() bool { return t.Status == TaskInProgress }

func (t *TaskItem) TotalSubTasks() int { return len(t.SubTasks) }

func (t *TaskItem) CompletedSubTasks() int {
	n := 0
	for i := range t.SubTasks {
		if t.SubTasks[i].Status == TaskDone {
			n++
		}
	}
	return n
}

func (t *TaskItem) SubTaskCompletionRate() float64 {
	return percent(float64(t.CompletedSubTasks()), float64(t.TotalSubTasks()))
}

// ProgressPercentage prefers subtask completion and falls back to the manual progress value.
func (t *TaskItem) ProgressPercentage() float64 {
	if t.TotalSubTasks() > 0 {
		return t.SubTaskCompletionRate()
	}
	return percent(float64(t.Progress), 100)
}

// RemainingTime is the time left until the end date, zero when past or unset.
func (t *TaskItem) RemainingTime(now time.Time) time.Duration {
	if t.EndDate == nil || !t.EndDate.After(now) {
		return 0
	}
	return t.EndDate.Sub(now)
}

// TaskAssignment puts a user on a task
type TaskAssignment struct {
	Base
	Membership

	TaskID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_task_user" json:"task_id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_task_user" json:"user_id"`
	Role       AssignmentRole `gorm:"size:20;not null" json:"role"`
	AssignedBy *uuid.UUID     `gorm:"type:uuid" json:"assigned_by,omitempty"`
}

func (TaskAssignment) TableName() string { return "task_assignments" }
func (*TaskAssignment) EntityKind() EntityKind { return KindTaskAssignment }

func (a *TaskAssignment) References() []Ref {
	return []Ref{{Kind: KindTask, ID: a.TaskID}, {Kind: KindUser, ID: a.UserID}}
}

func (a *TaskAssignment) AuditScope() (*uuid.UUID, *uuid.UUID) {
	id := a.TaskID
	return nil, &id
}
