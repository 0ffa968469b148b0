package models

import (
	"errors"

	"github.com/google/uuid"
)

// TargetKind identifies which container a comment, attachment or time log hangs off
type TargetKind string

const (
	TargetProject TargetKind = "Project"
	TargetTask    TargetKind = "Task"
	TargetSubTask TargetKind = "SubTask"
)

var ErrInvalidTarget = errors.New("target must reference exactly one project, task or subtask")

// Target is the single parent of a comment, attachment or time log.
// Embed it with `gorm:"embedded;embeddedPrefix:target_"`.
type Target struct {
	Kind TargetKind `gorm:"size:16;not null;index" json:"kind"`
	ID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"id"`
}

func OnProject(id uuid.UUID) Target { return Target{Kind: TargetProject, ID: id} }
func OnTask(id uuid.UUID) Target { return Target{Kind: TargetTask, ID: id} }
func OnSubTask(id uuid.UUID) Target { return Target{Kind: TargetSubTask, ID: id} }

// Valid reports whether the target names exactly one known container.
func (t Target) Valid() bool {
	if t.ID == uuid.Nil {
		return false
	}
	switch t.Kind {
	case TargetProject, TargetTask, TargetSubTask:
		return true
	}
	return false
}

// EntityKind maps the target to the record kind it points at.
func (t Target) EntityKind() EntityKind {
	switch t.Kind {
	case TargetProject:
		return KindProject
	case TargetTask:
		return KindTask
	case TargetSubTask:
		return KindSubTask
	}
	return ""
}

func (t Target) Ref() Ref { return Ref{Kind: t.EntityKind(), ID: t.ID} }

func (t Target) scope() (projectID, taskID *uuid.UUID) {
	id := t.ID
	switch t.Kind {
	case TargetProject:
		return &id, nil
	case TargetTask:
		return nil, &id
	}
	return nil, nil
}
