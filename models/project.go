package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is the root of the planning hierarchy
type Project struct {
	Base
	SoftDelete

	Name        string        `gorm:"size:200;not null" json:"name" validate:"required,max=200"`
	Description string        `gorm:"size:2000" json:"description" validate:"max=2000"`
	Key         string        `gorm:"size:20;not null;uniqueIndex" json:"key"`
	Status      ProjectStatus `gorm:"size:20;not null;index" json:"status"`
	Priority    PriorityLevel `gorm:"size:20;not null" json:"priority"`
	StartDate   time.Time     `json:"start_date"`
	EndDate     time.Time     `json:"end_date"`
	UpdatedAt   *time.Time    `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`

	// Effort and money
	EstimatedHours float64  `json:"estimated_hours"`
	ActualHours    float64  `json:"actual_hours"`
	OverTimeHours  float64  `json:"overtime_hours"`
	Budget         *float64 `json:"budget,omitempty"`
	ActualCost     *float64 `json:"actual_cost,omitempty"`
	Currency       string   `gorm:"size:3" json:"currency"`

	// Access
	IsPublic         bool `gorm:"not null;default:false" json:"is_public"`
	AllowGuestAccess bool `gorm:"not null;default:false" json:"allow_guest_access"`
	IsArchived       bool `gorm:"not null;default:false" json:"is_archived"`

	// Relations
	Owners     []ProjectOwner `gorm:"foreignKey:ProjectID" json:"owners,omitempty"`
	Sprints    []Sprint       `gorm:"foreignKey:ProjectID" json:"sprints,omitempty"`
	Tasks      []TaskItem     `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
	Categories []Category     `gorm:"foreignKey:ProjectID" json:"categories,omitempty"`
	Tags       []Tag          `gorm:"foreignKey:ProjectID" json:"tags,omitempty"`
}

func (Project) TableName() string { return "projects" }
func (*Project) EntityKind() EntityKind { return KindProject }
func (p *Project) NaturalKey() string { return p.Key }
func (p *Project) Touch(at time.Time, _ bool) { stamp(&p.UpdatedAt, at) }

func (p *Project) AuditScope() (*uuid.UUID, *uuid.UUID) {
	id := p.ID
	return &id, nil
}

// TotalTasks counts the loaded tasks.
func (p *Project) TotalTasks() int { return len(p.Tasks) }

func (p *Project) CompletedTasks() int {
	n := 0
	for i := range p.Tasks {
		if p.Tasks[i].Status == TaskDone {
			n++
		}
	}
	return n
}

// CompletionRate is the share of done tasks in percent, 0 for an empty project.
func (p *Project) CompletionRate() float64 {
	return percent(float64(p.CompletedTasks()), float64(p.TotalTasks()))
}

// IsOverdue reports a past end date on a project that is still open.
// A zero end date means no deadline.
func (p *Project) IsOverdue(now time.Time) bool {
	return pastDue(p.EndDate, now) && !p.Status.Terminal()
}

// BudgetVariance is budget minus actual cost, zero when either is unknown.
func (p *Project) BudgetVariance() float64 {
	if p.Budget == nil || p.ActualCost == nil {
		return 0
	}
	return *p.Budget - *p.ActualCost
}

// ProjectOwner grants a user a role on a project
type ProjectOwner struct {
	Base
	Membership

	ProjectID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_project_owner" json:"project_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_project_owner" json:"user_id"`
	Role      OwnerRole `gorm:"size:20;not null" json:"role"`

	// Permissions
	CanEdit          bool `gorm:"not null;default:false" json:"can_edit"`
	CanDelete        bool `gorm:"not null;default:false" json:"can_delete"`
	CanManageMembers bool `gorm:"not null;default:false" json:"can_manage_members"`
	CanViewReports   bool `gorm:"not null;default:false" json:"can_view_reports"`
}

func (ProjectOwner) TableName() string { return "project_owners" }
func (*ProjectOwner) EntityKind() EntityKind { return KindProjectOwner }

func (o *ProjectOwner) References() []Ref {
	return []Ref{{Kind: KindProject, ID: o.ProjectID}, {Kind: KindUser, ID: o.UserID}}
}

func (o *ProjectOwner) AuditScope() (*uuid.UUID, *uuid.UUID) {
	id := o.ProjectID
	return &id, nil
}

// GrantDefaults sets the permission flags that come with the role.
func (o *ProjectOwner) GrantDefaults() {
	switch o.Role {
	case OwnerRoleOwner, OwnerRoleCoOwner:
		o.CanEdit, o.CanDelete, o.CanManageMembers, o.CanViewReports = true, true, true, true
	case OwnerRoleManager:
		o.CanEdit, o.CanManageMembers, o.CanViewReports = true, true, true
	case OwnerRoleViewer:
		o.CanViewReports = true
	}
}

// ProjectRight is one of the permission flags an owner record carries
type ProjectRight int

const (
	RightMember ProjectRight = iota
	RightEdit
	RightDelete
	RightManageMembers
	RightViewReports
)

// Allows reports whether an active owner record grants the right.
func (o *ProjectOwner) Allows(r ProjectRight) bool {
	if !o.IsActive {
		return false
	}
	switch r {
	case RightEdit:
		return o.CanEdit
	case RightDelete:
		return o.CanDelete
	case RightManageMembers:
		return o.CanManageMembers
	case RightViewReports:
		return o.CanViewReports
	}
	return true
}

func percent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	r := part / whole * 100
	if r > 100 {
		return 100
	}
	if r < 0 {
		return 0
	}
	return r
}

func pastDue(end, now time.Time) bool {
	return !end.IsZero() && end.Before(now)
}
