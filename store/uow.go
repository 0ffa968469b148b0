package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"projectflow/models"
)

// Op is a structural change kind
type Op string

const (
	OpCreate Op = "Created"
	OpUpdate Op = "Updated"
	OpDelete Op = "Deleted"
)

// Change is one queued mutation
type Change struct {
	Op     Op
	Entity models.Entity
}

// Check is an invariant evaluated inside the transaction after all changes are written.
type Check func(tx *gorm.DB) error

// UnitOfWork collects changes and applies them atomically on Commit
type UnitOfWork struct {
	store   *Store
	actor   *uuid.UUID
	changes []Change
	checks  []Check
}

// Begin starts a unit of work on behalf of actor; nil means the system.
func (s *Store) Begin(actor *uuid.UUID) *UnitOfWork {
	return &UnitOfWork{store: s, actor: actor}
}

// Create queues an insert. The identifier is assigned immediately so later
// changes in the same unit can reference it.
func (u *UnitOfWork) Create(e models.Entity) *UnitOfWork {
	models.BaseOf(e).AssignID()
	u.changes = append(u.changes, Change{Op: OpCreate, Entity: e})
	return u
}

func (u *UnitOfWork) Update(e models.Entity) *UnitOfWork {
	u.changes = append(u.changes, Change{Op: OpUpdate, Entity: e})
	return u
}

// Delete queues a deletion; only the identifier of e needs to be set.
func (u *UnitOfWork) Delete(e models.Entity) *UnitOfWork {
	u.changes = append(u.changes, Change{Op: OpDelete, Entity: e})
	return u
}

func (u *UnitOfWork) Check(c Check) *UnitOfWork {
	u.checks = append(u.checks, c)
	return u
}

// Commit runs the pipeline in one transaction and emits audit records after it commits.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if len(u.changes) == 0 {
		return nil
	}
	now := u.store.now()
	var records []auditRecord
	err := u.store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		records, err = runPipeline(tx, u.changes, u.checks, now)
		return err
	})
	if err != nil {
		return translate("commit", u.changes[0].Entity.EntityKind(), err)
	}
	u.store.emitAudit(ctx, u.actor, records, now)
	return nil
}

// runPipeline applies visibility, referential actions, stamping and persistence
// for each change in order. It performs no I/O outside tx.
func runPipeline(tx *gorm.DB, changes []Change, checks []Check, now time.Time) ([]auditRecord, error) {
	records := make([]auditRecord, 0, len(changes))
	for i := range changes {
		c := &changes[i]
		kind := c.Entity.EntityKind()
		op := string(c.Op) + " " + string(kind)
		info, err := infoFor(kind)
		if err != nil {
			return nil, err
		}

		// 1. visibility
		var before models.Entity
		var snapshotBefore []byte
		if c.Op != OpCreate {
			before = info.newRow()
			id := models.BaseOf(c.Entity).ID
			if err := hideDeleted(tx, kind).First(before, info.table+".id = ?", id).Error; err != nil {
				return nil, translate(op, kind, err)
			}
			snapshotBefore = snapshot(before)
		}
		if c.Op != OpDelete {
			if err := checkWritable(tx, op, c, before); err != nil {
				return nil, err
			}
		}

		// 2. referential actions
		var plan *deletePlan
		if c.Op == OpDelete {
			if info.delete == appendOnly {
				return nil, invalid(op, kind, "records of this kind cannot be deleted")
			}
			id := models.BaseOf(before).ID
			if err := checkRestrict(tx, op, kind, id); err != nil {
				return nil, err
			}
			if plan, err = planDelete(tx, kind, id); err != nil {
				return nil, translate(op, kind, err)
			}
			// the stored row is what gets deleted and audited
			c.Entity = before
		}

		// 3. stamping
		stampChange(c, now)

		// 4. persistence
		if err := write(tx, c, info); err != nil {
			return nil, translate(op, kind, err)
		}
		var cascaded []auditRecord
		if plan != nil {
			if cascaded, err = plan.cascadedAudit(tx, kind, models.BaseOf(c.Entity).ID, now); err != nil {
				return nil, translate(op, kind, err)
			}
			if err := plan.apply(tx, c.Entity, now); err != nil {
				return nil, translate(op, kind, err)
			}
		}

		if info.audited {
			records = append(records, newAuditRecord(c, snapshotBefore))
		}
		records = append(records, cascaded...)
	}
	for _, check := range checks {
		if err := check(tx); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// checkWritable validates a create or update against the stored state.
func checkWritable(tx *gorm.DB, op string, c *Change, before models.Entity) error {
	kind := c.Entity.EntityKind()
	if d, ok := c.Entity.(models.Deletable); ok && d.Hidden() && c.Op == OpUpdate {
		return invalid(op, kind, "use delete to hide a record")
	}
	if before != nil {
		if k, ok := c.Entity.(models.Keyed); ok && k.NaturalKey() != before.(models.Keyed).NaturalKey() {
			return invalid(op, kind, "key is immutable")
		}
		models.BaseOf(c.Entity).CreatedAt = models.BaseOf(before).CreatedAt
	}
	if r, ok := c.Entity.(models.Referencer); ok {
		for _, ref := range r.References() {
			if ref.Kind == "" {
				return invalid(op, kind, "reference must name exactly one container")
			}
			ok, err := isVisible(tx, ref.Kind, ref.ID)
			if err != nil {
				return translate(op, kind, err)
			}
			if !ok {
				return newError(op, ref.Kind, ErrNotFound, "referenced "+string(ref.Kind)+" does not exist")
			}
		}
	}
	return nil
}

func stampChange(c *Change, now time.Time) {
	b := models.BaseOf(c.Entity)
	if c.Op == OpCreate && b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if d, ok := c.Entity.(models.Deletable); ok && c.Op == OpDelete {
		d.MarkDeleted(now)
	}
	if s, ok := c.Entity.(models.Stamped); ok && c.Op != OpCreate {
		s.Touch(now, c.Op == OpDelete)
	}
}

func write(tx *gorm.DB, c *Change, info kindInfo) error {
	if c.Op == OpDelete && info.delete == hardDelete {
		return tx.Delete(c.Entity).Error
	}
	return persist(tx, c.Op, c.Entity)
}
