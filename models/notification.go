package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an in-app message for one user
type Notification struct {
	Base
	SoftDelete

	UserID   uuid.UUID            `gorm:"type:uuid;not null;index" json:"user_id"`
	Title    string               `gorm:"size:200;not null" json:"title" validate:"required,max=200"`
	Message  string               `gorm:"size:1000;not null" json:"message" validate:"required,max=1000"`
	Type     NotificationType     `gorm:"size:30;not null" json:"type"`
	Priority NotificationPriority `gorm:"size:20;not null" json:"priority"`
	IsRead   bool                 `gorm:"not null;default:false;index" json:"is_read"`
	ReadAt   *time.Time           `json:"read_at,omitempty"`

	// Related entity
	EntityType string     `gorm:"size:50" json:"entity_type,omitempty"`
	EntityID   *uuid.UUID `gorm:"type:uuid" json:"entity_id,omitempty"`
	ActionURL  string     `gorm:"size:500" json:"action_url,omitempty"`

	// Delivery
	IsEmailSent bool       `gorm:"not null;default:false" json:"is_email_sent"`
	EmailSentAt *time.Time `json:"email_sent_at,omitempty"`
	IsPushSent  bool       `gorm:"not null;default:false" json:"is_push_sent"`
	PushSentAt  *time.Time `json:"push_sent_at,omitempty"`
}

func (Notification) TableName() string { return "notifications" }
func (*Notification) EntityKind() EntityKind { return KindNotification }

func (n *Notification) References() []Ref { return []Ref{{Kind: KindUser, ID: n.UserID}} }

func (n *Notification) IsUnread() bool { return !n.IsRead }

// MarkRead flips the notification to read once; it reports whether anything changed.
func (n *Notification) MarkRead(at time.Time) bool {
	if n.IsRead {
		return false
	}
	n.IsRead = true
	stamp(&n.ReadAt, at)
	return true
}

func (n *Notification) Age(now time.Time) time.Duration {
	if now.Before(n.CreatedAt) {
		return 0
	}
	return now.Sub(n.CreatedAt)
}
