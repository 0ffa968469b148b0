package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"projectflow/models"
	"projectflow/utils"
)

// AuditWriter appends activity records outside the business transaction
type AuditWriter interface {
	Append(ctx context.Context, entry *models.ActivityLog) error
}

type dbAuditWriter struct {
	db *gorm.DB
}

// Append writes the record directly; it never passes through the pipeline.
func (w *dbAuditWriter) Append(ctx context.Context, entry *models.ActivityLog) error {
	return w.db.WithContext(ctx).Create(entry).Error
}

type auditRecord struct {
	action    models.ActivityType
	kind      models.EntityKind
	id        uuid.UUID
	before    []byte
	after     []byte
	projectID *uuid.UUID
	taskID    *uuid.UUID
}

func newAuditRecord(c *Change, before []byte) auditRecord {
	r := auditRecord{
		action: models.ActivityType(c.Op),
		kind:   c.Entity.EntityKind(),
		id:     models.BaseOf(c.Entity).ID,
		before: before,
		after:  snapshot(c.Entity),
	}
	if s, ok := c.Entity.(models.Scoped); ok {
		r.projectID, r.taskID = s.AuditScope()
	}
	return r
}

func snapshot(e models.Entity) []byte {
	var b []byte
	var err error
	if s, ok := e.(models.StoredJSON); ok {
		b, err = s.StoredJSON()
	} else {
		b, err = json.Marshal(e)
	}
	if err != nil {
		return nil
	}
	return b
}

// emitAudit appends one activity record per audited change. Failures are
// logged and never reach the caller.
func (s *Store) emitAudit(ctx context.Context, actor *uuid.UUID, records []auditRecord, at time.Time) {
	for _, r := range records {
		entry := &models.ActivityLog{
			Base:        models.Base{ID: uuid.New(), CreatedAt: at},
			Action:      r.action,
			EntityType:  r.kind,
			EntityID:    r.id,
			Description: fmt.Sprintf("%s %s", r.kind, r.action),
			UserID:      actor,
			ProjectID:   r.projectID,
			TaskID:      r.taskID,
		}
		if r.before != nil {
			entry.OldValues = datatypes.JSON(r.before)
		}
		if r.after != nil {
			entry.NewValues = datatypes.JSON(r.after)
		}
		if err := s.audit.Append(ctx, entry); err != nil {
			utils.LogError("audit_append_failed", err, map[string]interface{}{
				"entity_type": r.kind,
				"entity_id":   r.id.String(),
				"action":      r.action,
			})
		}
	}
}

// ActivityFilter narrows activity log reads
type ActivityFilter struct {
	ProjectID  *uuid.UUID
	TaskID     *uuid.UUID
	EntityType models.EntityKind
	EntityID   *uuid.UUID
	Limit      int
}

// ListActivity returns activity records newest first.
func (s *Store) ListActivity(ctx context.Context, f ActivityFilter) ([]models.ActivityLog, error) {
	q := s.db.WithContext(ctx).Model(&models.ActivityLog{})
	if f.ProjectID != nil {
		q = q.Where("project_id = ?", *f.ProjectID)
	}
	if f.TaskID != nil {
		q = q.Where("task_id = ?", *f.TaskID)
	}
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != nil {
		q = q.Where("entity_id = ?", *f.EntityID)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []models.ActivityLog
	err := q.Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, translate("ListActivity", models.KindActivityLog, err)
}
