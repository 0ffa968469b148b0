package models

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind names a persisted record type
type EntityKind string

const (
	KindProject           EntityKind = "Project"
	KindProjectOwner      EntityKind = "ProjectOwner"
	KindSprint            EntityKind = "Sprint"
	KindCategory          EntityKind = "Category"
	KindTag               EntityKind = "Tag"
	KindTask              EntityKind = "TaskItem"
	KindTaskAssignment    EntityKind = "TaskAssignment"
	KindTaskTag           EntityKind = "TaskTag"
	KindSubTask           EntityKind = "SubTask"
	KindSubTaskAssignment EntityKind = "SubTaskAssignment"
	KindSubTaskTag        EntityKind = "SubTaskTag"
	KindComment           EntityKind = "Comment"
	KindAttachment        EntityKind = "Attachment"
	KindTimeLog           EntityKind = "TimeLog"
	KindNotification      EntityKind = "Notification"
	KindActivityLog       EntityKind = "ActivityLog"
	KindUser              EntityKind = "User"
)

// Entity is a record handled by the store's write pipeline.
type Entity interface {
	EntityKind() EntityKind
	base() *Base
}

// BaseOf exposes the identity columns of any entity.
func BaseOf(e Entity) *Base { return e.base() }

// Base carries the identifier and creation time every record has
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false" json:"created_at"`
}

func (b *Base) base() *Base { return b }

// EntityID returns the record identifier.
func (b *Base) EntityID() uuid.UUID { return b.ID }

// AssignID gives the record an identifier if it has none yet.
func (b *Base) AssignID() uuid.UUID {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return b.ID
}

// SoftDelete marks records that are flagged deleted instead of removed.
type SoftDelete struct {
	IsDeleted bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func (s *SoftDelete) MarkDeleted(at time.Time) {
	s.IsDeleted = true
	s.DeletedAt = &at
}

func (s *SoftDelete) Hidden() bool { return s.IsDeleted }

// Membership marks link records that are deactivated instead of removed.
type Membership struct {
	IsActive  bool       `gorm:"not null;index" json:"is_active"`
	RemovedAt *time.Time `json:"removed_at,omitempty"`
}

func (m *Membership) MarkDeleted(at time.Time) {
	m.IsActive = false
	m.RemovedAt = &at
}

func (m *Membership) Hidden() bool { return !m.IsActive }

// Deletable is implemented by records that stay in storage after deletion.
type Deletable interface {
	Entity
	MarkDeleted(at time.Time)
	Hidden() bool
}

// Stamped records carry a last-modified time owned by the store.
type Stamped interface {
	Entity
	Touch(at time.Time, deleting bool)
}

// Ref points at a record another record depends on.
type Ref struct {
	Kind EntityKind
	ID   uuid.UUID
}

// Referencer lists the records that must be visible for a write to succeed.
type Referencer interface {
	References() []Ref
}

// Keyed records have a human-readable key that cannot change after creation.
type Keyed interface {
	NaturalKey() string
}

// Scoped records report the project and task they belong to for the audit trail.
type Scoped interface {
	AuditScope() (projectID, taskID *uuid.UUID)
}

func refIf(kind EntityKind, id *uuid.UUID, refs []Ref) []Ref {
	if id == nil || *id == uuid.Nil {
		return refs
	}
	return append(refs, Ref{Kind: kind, ID: *id})
}

func stamp(field **time.Time, at time.Time) {
	t := at
	*field = &t
}
