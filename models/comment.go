package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment is a threaded remark on a project, task or subtask
type Comment struct {
	Base
	SoftDelete

	Target          Target     `gorm:"embedded;embeddedPrefix:target_" json:"target"`
	AuthorID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"author_id"`
	ParentCommentID *uuid.UUID `gorm:"type:uuid;index" json:"parent_comment_id,omitempty"`
	Content         string     `gorm:"type:text;not null" json:"content" validate:"required,max=5000"`
	IsEdited        bool       `gorm:"not null;default:false" json:"is_edited"`
	IsPinned        bool       `gorm:"not null;default:false" json:"is_pinned"`
	MentionedUsers  string     `gorm:"size:1000" json:"mentioned_users,omitempty"`
	UpdatedAt       *time.Time `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`

	Replies []Comment `gorm:"foreignKey:ParentCommentID" json:"replies,omitempty"`
}

func (Comment) TableName() string { return "comments" }
func (*Comment) EntityKind() EntityKind { return KindComment }

// Touch refreshes the modification time; any change other than deletion counts as an edit.
func (c *Comment) Touch(at time.Time, deleting bool) {
	stamp(&c.UpdatedAt, at)
	if !deleting {
		c.IsEdited = true
	}
}

func (c *Comment) References() []Ref {
	refs := []Ref{c.Target.Ref(), {Kind: KindUser, ID: c.AuthorID}}
	return refIf(KindComment, c.ParentCommentID, refs)
}

func (c *Comment) AuditScope() (*uuid.UUID, *uuid.UUID) { return c.Target.scope() }

func (c *Comment) IsReply() bool { return c.ParentCommentID != nil }

// ReplyCount counts the loaded replies that are still visible.
func (c *Comment) ReplyCount() int {
	n := 0
	for i := range c.Replies {
		if !c.Replies[i].IsDeleted {
			n++
		}
	}
	return n
}
