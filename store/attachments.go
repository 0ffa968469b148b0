package store

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"projectflow/models"
)

// AddAttachment records file metadata uploaded by actor.
func (s *Store) AddAttachment(ctx context.Context, actor uuid.UUID, a *models.Attachment) error {
	const op = "AddAttachment"
	if !a.Target.Valid() {
		return newError(op, models.KindAttachment, ErrInvalidInput, models.ErrInvalidTarget.Error())
	}
	if strings.TrimSpace(a.FileName) == "" || strings.TrimSpace(a.FilePath) == "" {
		return invalid(op, models.KindAttachment, "file name and path are required")
	}
	if a.FileSize < 0 {
		return invalid(op, models.KindAttachment, "file size cannot be negative")
	}
	a.UploadedBy = actor
	return s.Begin(&actor).Create(a).Commit(ctx)
}

func (s *Store) DeleteAttachment(ctx context.Context, actor, id uuid.UUID) error {
	return s.deleteByID(ctx, actor, models.KindAttachment, id)
}

// ListAttachments returns the attachments on a target, newest first.
func (s *Store) ListAttachments(ctx context.Context, target models.Target, opts ReadOptions) ([]models.Attachment, error) {
	const op = "ListAttachments"
	if err := s.requireTarget(ctx, op, target, opts); err != nil {
		return nil, err
	}
	var out []models.Attachment
	err := s.read(ctx, models.KindAttachment, opts).
		Where("target_kind = ? AND target_id = ?", target.Kind, target.ID).
		Order("created_at DESC").
		Find(&out).Error
	return out, translate(op, models.KindAttachment, err)
}

// FindDuplicateAttachments lists attachments sharing a content hash. The hash
// is for detection only; duplicates are allowed.
func (s *Store) FindDuplicateAttachments(ctx context.Context, hash string, opts ReadOptions) ([]models.Attachment, error) {
	if hash == "" {
		return nil, invalid("FindDuplicateAttachments", models.KindAttachment, "hash is required")
	}
	var out []models.Attachment
	err := s.read(ctx, models.KindAttachment, opts).
		Where("file_hash = ?", hash).
		Order("created_at").
		Find(&out).Error
	return out, translate("FindDuplicateAttachments", models.KindAttachment, err)
}
