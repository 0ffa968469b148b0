package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"projectflow/models"
)

// AddComment posts a comment or a reply. Replies must sit on the same target as their parent.
func (s *Store) AddComment(ctx context.Context, actor uuid.UUID, c *models.Comment) error {
	const op = "AddComment"
	if !c.Target.Valid() {
		return newError(op, models.KindComment, ErrInvalidInput, models.ErrInvalidTarget.Error())
	}
	if strings.TrimSpace(c.Content) == "" {
		return invalid(op, models.KindComment, "content is required")
	}
	c.AuthorID = actor
	c.IsEdited = false
	uow := s.Begin(&actor).Create(c)
	if c.ParentCommentID != nil {
		parent, target := *c.ParentCommentID, c.Target
		uow.Check(func(tx *gorm.DB) error {
			var n int64
			err := tx.Model(&models.Comment{}).
				Where("id = ? AND target_kind = ? AND target_id = ?", parent, target.Kind, target.ID).
				Count(&n).Error
			if err != nil {
				return translate(op, models.KindComment, err)
			}
			if n == 0 {
				return invalid(op, models.KindComment, "reply must be on the same target as its parent")
			}
			return nil
		})
	}
	return uow.Commit(ctx)
}

// EditComment replaces the content; the pipeline marks the comment edited.
func (s *Store) EditComment(ctx context.Context, actor, id uuid.UUID, content string) (*models.Comment, error) {
	const op = "EditComment"
	if strings.TrimSpace(content) == "" {
		return nil, invalid(op, models.KindComment, "content is required")
	}
	var c models.Comment
	if err := s.load(ctx, op, &c, id, ReadOptions{}); err != nil {
		return nil, err
	}
	c.Content = content
	if err := s.Begin(&actor).Update(&c).Commit(ctx); err != nil {
		return nil, err
	}
	return &c, nil
}

// PinComment toggles the pinned flag.
func (s *Store) PinComment(ctx context.Context, actor, id uuid.UUID, pinned bool) error {
	var c models.Comment
	if err := s.load(ctx, "PinComment", &c, id, ReadOptions{}); err != nil {
		return err
	}
	c.IsPinned = pinned
	return s.Begin(&actor).Update(&c).Commit(ctx)
}

// DeleteComment soft-deletes a comment. A comment with visible replies cannot be deleted.
func (s *Store) DeleteComment(ctx context.Context, actor, id uuid.UUID) error {
	return s.deleteByID(ctx, actor, models.KindComment, id)
}

// GetComment loads one comment with its visible replies.
func (s *Store) GetComment(ctx context.Context, id uuid.UUID, opts ReadOptions) (*models.Comment, error) {
	var c models.Comment
	if err := s.load(ctx, "GetComment", &c, id, opts, preloadVisible("Replies", models.KindComment, opts, "created_at")); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComments returns the top-level comments on a target with their replies,
// pinned first. Default reads require the target itself to be visible.
func (s *Store) ListComments(ctx context.Context, target models.Target, opts ReadOptions) ([]models.Comment, error) {
	const op = "ListComments"
	if err := s.requireTarget(ctx, op, target, opts); err != nil {
		return nil, err
	}
	var out []models.Comment
	err := s.read(ctx, models.KindComment, opts).
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return Visible(db, models.KindComment, opts).Order("created_at")
		}).
		Where("target_kind = ? AND target_id = ? AND parent_comment_id IS NULL", target.Kind, target.ID).
		Order("is_pinned DESC, created_at").
		Find(&out).Error
	return out, translate(op, models.KindComment, err)
}

func (s *Store) requireTarget(ctx context.Context, op string, target models.Target, opts ReadOptions) error {
	if !target.Valid() {
		return newError(op, target.EntityKind(), ErrInvalidInput, models.ErrInvalidTarget.Error())
	}
	if opts.IncludeDeleted {
		return nil
	}
	return s.requireVisible(ctx, op, target.EntityKind(), target.ID)
}
