package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"projectflow/models"
)

// Permission is what a caller needs on the project a record belongs to
type Permission int

const (
	// PermView allows reads; public projects grant it to everyone.
	PermView Permission = iota
	// PermContribute allows comments, attachments and time entries.
	PermContribute
	PermEdit
	PermDelete
	PermManageMembers
	PermViewReports
	// PermAuthorOrEdit is held by the record's author and by owners who can edit.
	PermAuthorOrEdit
)

func (p Permission) String() string {
	switch p {
	case PermView:
		return "view"
	case PermContribute:
		return "contribute"
	case PermEdit:
		return "edit"
	case PermDelete:
		return "delete"
	case PermManageMembers:
		return "manage members"
	case PermViewReports:
		return "view reports"
	case PermAuthorOrEdit:
		return "author or edit"
	}
	return "unknown"
}

// location is the project a record belongs to and, for authored records, its author.
type location struct {
	projectID uuid.UUID
	public    bool
	authorID  *uuid.UUID
}

var authorColumn = map[models.EntityKind]string{
	models.KindComment:    "author_id",
	models.KindAttachment: "uploaded_by",
	models.KindTimeLog:    "user_id",
}

// Authorize checks that userID holds perm on the project owning the record
// kind/id. Missing or hidden records are ErrNotFound; missing rights are ErrForbidden.
func (s *Store) Authorize(ctx context.Context, userID uuid.UUID, kind models.EntityKind, id uuid.UUID, perm Permission) error {
	const op = "Authorize"
	loc, err := s.locate(ctx, kind, id)
	if err != nil {
		return err
	}
	if perm == PermView && loc.public {
		return nil
	}
	if perm == PermAuthorOrEdit && loc.authorID != nil && *loc.authorID == userID {
		return nil
	}

	owner, err := s.findOwner(ctx, loc.projectID, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return forbidden(op, kind, "not a member of this project")
		}
		return err
	}
	if !owner.Allows(permFlag(perm)) {
		return forbidden(op, kind, "%s permission required", perm)
	}
	return nil
}

func permFlag(p Permission) models.ProjectRight {
	switch p {
	case PermEdit, PermAuthorOrEdit:
		return models.RightEdit
	case PermDelete:
		return models.RightDelete
	case PermManageMembers:
		return models.RightManageMembers
	case PermViewReports:
		return models.RightViewReports
	}
	return models.RightMember
}

func (s *Store) locate(ctx context.Context, kind models.EntityKind, id uuid.UUID) (location, error) {
	const op = "locate"
	info, err := infoFor(kind)
	if err != nil {
		return location{}, err
	}
	db := hideDeleted(s.db.WithContext(ctx).Table(info.table), kind).Where(info.table+".id = ?", id)

	switch kind {
	case models.KindProject:
		var row struct{ IsPublic bool }
		res := db.Select("is_public").Limit(1).Scan(&row)
		if res.Error != nil {
			return location{}, translate(op, kind, res.Error)
		}
		if res.RowsAffected == 0 {
			return location{}, notFound(op, kind)
		}
		return location{projectID: id, public: row.IsPublic}, nil

	case models.KindSprint, models.KindCategory, models.KindTag, models.KindTask:
		var row struct{ ProjectID uuid.UUID }
		res := db.Select("project_id").Limit(1).Scan(&row)
		if res.Error != nil {
			return location{}, translate(op, kind, res.Error)
		}
		if res.RowsAffected == 0 {
			return location{}, notFound(op, kind)
		}
		return s.locate(ctx, models.KindProject, row.ProjectID)

	case models.KindSubTask:
		var row struct{ TaskID uuid.UUID }
		res := db.Select("task_id").Limit(1).Scan(&row)
		if res.Error != nil {
			return location{}, translate(op, kind, res.Error)
		}
		if res.RowsAffected == 0 {
			return location{}, notFound(op, kind)
		}
		return s.locate(ctx, models.KindTask, row.TaskID)

	case models.KindComment, models.KindAttachment, models.KindTimeLog:
		var row struct {
			TargetKind models.TargetKind
			TargetID   uuid.UUID
			AuthorID   uuid.UUID
		}
		res := db.Select("target_kind, target_id, " + authorColumn[kind] + " AS author_id").Limit(1).Scan(&row)
		if res.Error != nil {
			return location{}, translate(op, kind, res.Error)
		}
		if res.RowsAffected == 0 {
			return location{}, notFound(op, kind)
		}
		target := models.Target{Kind: row.TargetKind, ID: row.TargetID}
		loc, err := s.locate(ctx, target.EntityKind(), target.ID)
		if err != nil {
			return location{}, err
		}
		author := row.AuthorID
		loc.authorID = &author
		return loc, nil
	}
	return location{}, invalid(op, kind, "records of this kind do not belong to a project")
}
