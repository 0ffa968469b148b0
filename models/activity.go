package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ActivityLog is an append-only audit record of a structural change
type ActivityLog struct {
	Base

	Action      ActivityType   `gorm:"size:20;not null" json:"action"`
	EntityType  EntityKind     `gorm:"size:50;not null;index:idx_activity_entity" json:"entity_type"`
	EntityID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_activity_entity" json:"entity_id"`
	Description string         `gorm:"size:500" json:"description"`
	OldValues   datatypes.JSON `json:"old_values,omitempty"`
	NewValues   datatypes.JSON `json:"new_values,omitempty"`

	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	ProjectID *uuid.UUID `gorm:"type:uuid;index" json:"project_id,omitempty"`
	TaskID    *uuid.UUID `gorm:"type:uuid;index" json:"task_id,omitempty"`
}

func (ActivityLog) TableName() string { return "activity_logs" }
func (*ActivityLog) EntityKind() EntityKind { return KindActivityLog }
