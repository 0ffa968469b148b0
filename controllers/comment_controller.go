package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"projectflow/middleware"
	"projectflow/models"
	"projectflow/store"
	"projectflow/utils"
)

// CommentController serves comments and attachments. Both hang off a
// project, task or subtask, so the list and create handlers are built per target kind.
type CommentController struct {
	Store *store.Store
}

func NewCommentController(s *store.Store) *CommentController {
	return &CommentController{Store: s}
}

type commentInput struct {
	Content         string     `json:"content" validate:"required,max=5000"`
	ParentCommentID *uuid.UUID `json:"parent_comment_id"`
	MentionedUsers  string     `json:"mentioned_users"`
}

type pinInput struct {
	Pinned bool `json:"pinned"`
}

func (cc *CommentController) ListComments(kind models.TargetKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		target, err := targetParam(c, kind)
		if err != nil {
			return badRequest(c, err.Error())
		}
		comments, err := cc.Store.ListComments(c.UserContext(), target, readOptions(c))
		if err != nil {
			return storeFailure(c, err)
		}
		return ok(c, "", comments)
	}
}

func (cc *CommentController) AddComment(kind models.TargetKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		target, err := targetParam(c, kind)
		if err != nil {
			return badRequest(c, err.Error())
		}
		var input commentInput
		if err := c.BodyParser(&input); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if errs := utils.ValidateStruct(input); len(errs) > 0 {
			return badRequest(c, "Validation failed", errs...)
		}
		comment := models.Comment{
			Target:          target,
			ParentCommentID: input.ParentCommentID,
			Content:         input.Content,
			MentionedUsers:  input.MentionedUsers,
		}
		if err := cc.Store.AddComment(c.UserContext(), middleware.CurrentUserID(c), &comment); err != nil {
			return storeFailure(c, err)
		}
		return created(c, "Comment added successfully", comment)
	}
}

func (cc *CommentController) GetComment(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	comment, err := cc.Store.GetComment(c.UserContext(), id, readOptions(c))
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "", comment)
}

func (cc *CommentController) EditComment(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var input commentInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if errs := utils.ValidateStruct(input); len(errs) > 0 {
		return badRequest(c, "Validation failed", errs...)
	}
	comment, err := cc.Store.EditComment(c.UserContext(), middleware.CurrentUserID(c), id, input.Content)
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Comment updated successfully", comment)
}

func (cc *CommentController) PinComment(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var input pinInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := cc.Store.PinComment(c.UserContext(), middleware.CurrentUserID(c), id, input.Pinned); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Comment updated successfully", nil)
}

func (cc *CommentController) DeleteComment(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := cc.Store.DeleteComment(c.UserContext(), middleware.CurrentUserID(c), id); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Comment deleted successfully", nil)
}

func (cc *CommentController) ListAttachments(kind models.TargetKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		target, err := targetParam(c, kind)
		if err != nil {
			return badRequest(c, err.Error())
		}
		attachments, err := cc.Store.ListAttachments(c.UserContext(), target, readOptions(c))
		if err != nil {
			return storeFailure(c, err)
		}
		return ok(c, "", attachments)
	}
}

// AddAttachment records metadata for a file that was already uploaded elsewhere.
func (cc *CommentController) AddAttachment(kind models.TargetKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		target, err := targetParam(c, kind)
		if err != nil {
			return badRequest(c, err.Error())
		}
		var a models.Attachment
		if err := c.BodyParser(&a); err != nil {
			return badRequest(c, "Invalid request body")
		}
		restoreBase(&a, models.Base{})
		a.Target = target
		if errs := utils.ValidateStruct(a); len(errs) > 0 {
			return badRequest(c, "Validation failed", errs...)
		}
		if err := cc.Store.AddAttachment(c.UserContext(), middleware.CurrentUserID(c), &a); err != nil {
			return storeFailure(c, err)
		}
		return created(c, "Attachment added successfully", a)
	}
}

// FindDuplicates lists visible attachments sharing ?hash.
func (cc *CommentController) FindDuplicates(c *fiber.Ctx) error {
	hash := c.Query("hash")
	if hash == "" {
		return badRequest(c, "hash is required")
	}
	attachments, err := cc.Store.FindDuplicateAttachments(c.UserContext(), hash, readOptions(c))
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "", attachments)
}

func (cc *CommentController) DeleteAttachment(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := cc.Store.DeleteAttachment(c.UserContext(), middleware.CurrentUserID(c), id); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Attachment deleted successfully", nil)
}
