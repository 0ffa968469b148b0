package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"projectflow/models"
)

type deleteMode int

const (
	softFlag   deleteMode = iota // is_deleted + deleted_at
	deactivate                   // is_active = false
	hardDelete
	appendOnly
)

type kindInfo struct {
	table     string
	newRow    func() models.Entity
	delete    deleteMode
	removedAt bool // deactivation also stamps removed_at
	stamped   bool // carries updated_at owned by the pipeline
	audited   bool
}

var kinds = map[models.EntityKind]kindInfo{
	models.KindProject:           {table: "projects", newRow: func() models.Entity { return &models.Project{} }, delete: softFlag, stamped: true, audited: true},
	models.KindProjectOwner:      {table: "project_owners", newRow: func() models.Entity { return &models.ProjectOwner{} }, delete: deactivate, removedAt: true, audited: true},
	models.KindSprint:            {table: "sprints", newRow: func() models.Entity { return &models.Sprint{} }, delete: softFlag, audited: true},
	models.KindCategory:          {table: "categories", newRow: func() models.Entity { return &models.Category{} }, delete: deactivate, audited: true},
	models.KindTag:               {table: "tags", newRow: func() models.Entity { return &models.Tag{} }, delete: deactivate, audited: true},
	models.KindTask:              {table: "tasks", newRow: func() models.Entity { return &models.TaskItem{} }, delete: softFlag, stamped: true, audited: true},
	models.KindTaskAssignment:    {table: "task_assignments", newRow: func() models.Entity { return &models.TaskAssignment{} }, delete: deactivate, removedAt: true, audited: true},
	models.KindTaskTag:           {table: "task_tags", newRow: func() models.Entity { return &models.TaskTag{} }, delete: hardDelete},
	models.KindSubTask:           {table: "subtasks", newRow: func() models.Entity { return &models.SubTask{} }, delete: softFlag, stamped: true, audited: true},
	models.KindSubTaskAssignment: {table: "subtask_assignments", newRow: func() models.Entity { return &models.SubTaskAssignment{} }, delete: deactivate, removedAt: true},
	models.KindSubTaskTag:        {table: "subtask_tags", newRow: func() models.Entity { return &models.SubTaskTag{} }, delete: hardDelete},
	models.KindComment:           {table: "comments", newRow: func() models.Entity { return &models.Comment{} }, delete: softFlag, stamped: true, audited: true},
	models.KindAttachment:        {table: "attachments", newRow: func() models.Entity { return &models.Attachment{} }, delete: softFlag, audited: true},
	models.KindTimeLog:           {table: "time_logs", newRow: func() models.Entity { return &models.TimeLog{} }, delete: softFlag, stamped: true, audited: true},
	models.KindNotification:      {table: "notifications", newRow: func() models.Entity { return &models.Notification{} }, delete: softFlag},
	models.KindActivityLog:       {table: "activity_logs", newRow: func() models.Entity { return &models.ActivityLog{} }, delete: appendOnly},
	models.KindUser:              {table: "users", newRow: func() models.Entity { return &models.User{} }, delete: deactivate, audited: true},
}

func infoFor(kind models.EntityKind) (kindInfo, error) {
	info, ok := kinds[kind]
	if !ok {
		return kindInfo{}, invalid("lookup", kind, "unknown entity kind")
	}
	return info, nil
}

// RefAction is what happens to a dependent when the record it points at is deleted
type RefAction int

const (
	Restrict RefAction = iota
	Cascade
	SetNull
)

func (a RefAction) String() string {
	switch a {
	case Cascade:
		return "cascade"
	case SetNull:
		return "set-null"
	}
	return "restrict"
}

// Edge declares one referential rule between a parent kind and a dependent column
type Edge struct {
	Parent models.EntityKind
	Child  models.EntityKind
	Column string
	// Target restricts polymorphic columns to one container kind.
	Target models.TargetKind
	Action RefAction
}

// Edges is the complete referential rule set applied on deletion.
var Edges = []Edge{
	// A project exclusively owns its planning records.
	{Parent: models.KindProject, Child: models.KindProjectOwner, Column: "project_id", Action: Cascade},
	{Parent: models.KindProject, Child: models.KindSprint, Column: "project_id", Action: Cascade},
	{Parent: models.KindProject, Child: models.KindTask, Column: "project_id", Action: Cascade},
	{Parent: models.KindProject, Child: models.KindCategory, Column: "project_id", Action: Cascade},
	{Parent: models.KindProject, Child: models.KindTag, Column: "project_id", Action: Cascade},
	{Parent: models.KindProject, Child: models.KindComment, Column: "target_id", Target: models.TargetProject, Action: Restrict},
	{Parent: models.KindProject, Child: models.KindAttachment, Column: "target_id", Target: models.TargetProject, Action: Restrict},

	{Parent: models.KindSprint, Child: models.KindTask, Column: "sprint_id", Action: SetNull},
	{Parent: models.KindSprint, Child: models.KindSubTask, Column: "sprint_id", Action: SetNull},
	{Parent: models.KindCategory, Child: models.KindTask, Column: "category_id", Action: SetNull},
	{Parent: models.KindCategory, Child: models.KindSubTask, Column: "category_id", Action: SetNull},
	{Parent: models.KindTag, Child: models.KindTaskTag, Column: "tag_id", Action: Cascade},
	{Parent: models.KindTag, Child: models.KindSubTaskTag, Column: "tag_id", Action: Cascade},

	{Parent: models.KindTask, Child: models.KindSubTask, Column: "task_id", Action: Cascade},
	{Parent: models.KindTask, Child: models.KindTask, Column: "parent_task_id", Action: Cascade},
	{Parent: models.KindTask, Child: models.KindTaskAssignment, Column: "task_id", Action: Cascade},
	{Parent: models.KindTask, Child: models.KindTaskTag, Column: "task_id", Action: Cascade},
	{Parent: models.KindTask, Child: models.KindComment, Column: "target_id", Target: models.TargetTask, Action: Restrict},
	{Parent: models.KindTask, Child: models.KindAttachment, Column: "target_id", Target: models.TargetTask, Action: Restrict},
	{Parent: models.KindTask, Child: models.KindTimeLog, Column: "target_id", Target: models.TargetTask, Action: Restrict},

	{Parent: models.KindSubTask, Child: models.KindSubTaskAssignment, Column: "subtask_id", Action: Cascade},
	{Parent: models.KindSubTask, Child: models.KindSubTaskTag, Column: "subtask_id", Action: Cascade},
	{Parent: models.KindSubTask, Child: models.KindComment, Column: "target_id", Target: models.TargetSubTask, Action: Restrict},
	{Parent: models.KindSubTask, Child: models.KindAttachment, Column: "target_id", Target: models.TargetSubTask, Action: Restrict},
	{Parent: models.KindSubTask, Child: models.KindTimeLog, Column: "target_id", Target: models.TargetSubTask, Action: Restrict},

	{Parent: models.KindComment, Child: models.KindComment, Column: "parent_comment_id", Action: Restrict},

	// Users cascade only into assignments, memberships, subtask tagging and their inbox.
	{Parent: models.KindUser, Child: models.KindProjectOwner, Column: "user_id", Action: Cascade},
	{Parent: models.KindUser, Child: models.KindTaskAssignment, Column: "user_id", Action: Cascade},
	{Parent: models.KindUser, Child: models.KindSubTaskAssignment, Column: "user_id", Action: Cascade},
	{Parent: models.KindUser, Child: models.KindSubTaskTag, Column: "tagged_by", Action: Cascade},
	{Parent: models.KindUser, Child: models.KindTaskTag, Column: "tagged_by", Action: SetNull},
	{Parent: models.KindUser, Child: models.KindNotification, Column: "user_id", Action: Cascade},
	{Parent: models.KindUser, Child: models.KindComment, Column: "author_id", Action: Restrict},
	{Parent: models.KindUser, Child: models.KindAttachment, Column: "uploaded_by", Action: Restrict},
	{Parent: models.KindUser, Child: models.KindTimeLog, Column: "user_id", Action: Restrict},
}

// ReadOptions controls the visibility filter on reads
type ReadOptions struct {
	IncludeDeleted bool
}

// Visible applies the default visibility filter for kind unless the caller asked for deleted rows.
func Visible(db *gorm.DB, kind models.EntityKind, opts ReadOptions) *gorm.DB {
	if opts.IncludeDeleted {
		return db
	}
	return hideDeleted(db, kind)
}

func hideDeleted(db *gorm.DB, kind models.EntityKind) *gorm.DB {
	info := kinds[kind]
	switch info.delete {
	case softFlag:
		return db.Where(info.table+".is_deleted = ?", false)
	case deactivate:
		return db.Where(info.table+".is_active = ?", true)
	}
	return db
}

// isVisible reports whether a row of kind with id passes the default filter.
func isVisible(tx *gorm.DB, kind models.EntityKind, id uuid.UUID) (bool, error) {
	info, err := infoFor(kind)
	if err != nil {
		return false, err
	}
	var n int64
	err = hideDeleted(tx.Table(info.table), kind).Where(info.table+".id = ?", id).Count(&n).Error
	return n > 0, err
}

// deletePlan is the set of dependent changes a deletion implies
type deletePlan struct {
	removed map[models.EntityKind]map[uuid.UUID]struct{}
	order   []models.EntityKind
	nulls   []nullify
}

type nullify struct {
	edge      Edge
	parentIDs []uuid.UUID
}

func (p *deletePlan) add(kind models.EntityKind, id uuid.UUID) bool {
	set, ok := p.removed[kind]
	if !ok {
		set = map[uuid.UUID]struct{}{}
		p.removed[kind] = set
		p.order = append(p.order, kind)
	}
	if _, seen := set[id]; seen {
		return false
	}
	set[id] = struct{}{}
	return true
}

func (p *deletePlan) ids(kind models.EntityKind) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(p.removed[kind]))
	for id := range p.removed[kind] {
		out = append(out, id)
	}
	return out
}

// checkRestrict fails when a restrict edge still has visible dependents of the root.
// Restrict edges are only consulted for the record the caller deletes; records
// reached through cascades keep their restricted dependents, which stay readable
// through the include-deleted path.
func checkRestrict(tx *gorm.DB, op string, kind models.EntityKind, id uuid.UUID) error {
	for _, e := range Edges {
		if e.Parent != kind || e.Action != Restrict {
			continue
		}
		n, err := countDependents(tx, e, []uuid.UUID{id})
		if err != nil {
			return translate(op, kind, err)
		}
		if n > 0 {
			return &Error{
				Op:     op,
				Entity: kind,
				Err:    ErrRestricted,
				Detail: fmt.Sprintf("%d %s record(s) still reference it", n, e.Child),
			}
		}
	}
	return nil
}

func dependents(tx *gorm.DB, e Edge, parentIDs []uuid.UUID) *gorm.DB {
	info := kinds[e.Child]
	q := hideDeleted(tx.Table(info.table), e.Child).Where(info.table+"."+e.Column+" IN ?", parentIDs)
	if e.Target != "" {
		q = q.Where(info.table+".target_kind = ?", e.Target)
	}
	return q
}

func countDependents(tx *gorm.DB, e Edge, parentIDs []uuid.UUID) (int64, error) {
	var n int64
	err := dependents(tx, e, parentIDs).Count(&n).Error
	return n, err
}

// planDelete walks cascade edges breadth-first from the root and collects
// set-null work along the way.
func planDelete(tx *gorm.DB, kind models.EntityKind, id uuid.UUID) (*deletePlan, error) {
	plan := &deletePlan{removed: map[models.EntityKind]map[uuid.UUID]struct{}{}}
	plan.add(kind, id)

	type frontier struct {
		kind models.EntityKind
		ids  []uuid.UUID
	}
	queue := []frontier{{kind: kind, ids: []uuid.UUID{id}}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range Edges {
			if e.Parent != cur.kind {
				continue
			}
			switch e.Action {
			case SetNull:
				plan.nulls = append(plan.nulls, nullify{edge: e, parentIDs: cur.ids})
			case Cascade:
				var childIDs []uuid.UUID
				info := kinds[e.Child]
				if err := dependents(tx, e, cur.ids).Pluck(info.table+".id", &childIDs).Error; err != nil {
					return nil, err
				}
				var fresh []uuid.UUID
				for _, cid := range childIDs {
					if plan.add(e.Child, cid) {
						fresh = append(fresh, cid)
					}
				}
				if len(fresh) > 0 {
					queue = append(queue, frontier{kind: e.Child, ids: fresh})
				}
			}
		}
	}
	return plan, nil
}

// cascadedAudit loads every audited record the plan removes besides the root
// and returns one Deleted record per row with its before and after image.
func (p *deletePlan) cascadedAudit(tx *gorm.DB, rootKind models.EntityKind, rootID uuid.UUID, at time.Time) ([]auditRecord, error) {
	var records []auditRecord
	for _, kind := range p.order {
		info := kinds[kind]
		if !info.audited {
			continue
		}
		for _, id := range p.ids(kind) {
			if kind == rootKind && id == rootID {
				continue
			}
			row := info.newRow()
			if err := tx.First(row, info.table+".id = ?", id).Error; err != nil {
				return nil, err
			}
			before := snapshot(row)
			c := &Change{Op: OpDelete, Entity: row}
			stampChange(c, at)
			records = append(records, newAuditRecord(c, before))
		}
	}
	return records, nil
}

// apply performs every dependent change except the root's own deletion.
func (p *deletePlan) apply(tx *gorm.DB, root models.Entity, at time.Time) error {
	rootKind, rootID := root.EntityKind(), models.BaseOf(root).ID
	for _, n := range p.nulls {
		info := kinds[n.edge.Child]
		updates := map[string]interface{}{n.edge.Column: nil}
		if info.stamped {
			updates["updated_at"] = at
		}
		q := dependents(tx, n.edge, n.parentIDs)
		if skip := p.ids(n.edge.Child); len(skip) > 0 {
			q = q.Where(info.table+".id NOT IN ?", skip)
		}
		if err := q.Updates(updates).Error; err != nil {
			return err
		}
	}
	for _, kind := range p.order {
		ids := p.ids(kind)
		if kind == rootKind {
			ids = without(ids, rootID)
		}
		if len(ids) == 0 {
			continue
		}
		if err := removeRows(tx, kind, ids, at); err != nil {
			return err
		}
	}
	return nil
}

func removeRows(tx *gorm.DB, kind models.EntityKind, ids []uuid.UUID, at time.Time) error {
	info := kinds[kind]
	q := tx.Table(info.table).Where("id IN ?", ids)
	switch info.delete {
	case softFlag:
		updates := map[string]interface{}{"is_deleted": true, "deleted_at": at}
		if info.stamped {
			updates["updated_at"] = at
		}
		return q.Updates(updates).Error
	case deactivate:
		updates := map[string]interface{}{"is_active": false}
		if info.removedAt {
			updates["removed_at"] = at
		}
		return q.Updates(updates).Error
	case hardDelete:
		return tx.Where("id IN ?", ids).Delete(info.newRow()).Error
	}
	return invalid("delete", kind, "records of this kind cannot be deleted")
}

func without(ids []uuid.UUID, drop uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}
