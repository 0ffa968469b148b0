package controller

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"projectflow/middleware"
	"projectflow/models"
	"projectflow/store"
	"projectflow/utils"
)

type ProjectController struct {
	Store *store.Store
}

func NewProjectController(s *store.Store) *ProjectController {
	return &ProjectController{Store: s}
}

// CreateProject creates a project owned by the caller
func (pc *ProjectController) CreateProject(c *fiber.Ctx) error {
	var p models.Project
	if err := c.BodyParser(&p); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if errs := utils.ValidateStruct(p); len(errs) > 0 {
		return badRequest(c, "Validation failed", errs...)
	}
	restoreBase(&p, models.Base{})
	if err := pc.Store.CreateProject(c.UserContext(), middleware.CurrentUserID(c), &p); err != nil {
		return storeFailure(c, err)
	}
	return created(c, "Project created successfully", p)
}

// ListProjects lists the caller's projects; ?all=true lists every project for administrators.
func (pc *ProjectController) ListProjects(c *fiber.Ctx) error {
	f := store.ProjectFilter{
		Status:      models.ProjectStatus(c.Query("status")),
		ReadOptions: readOptions(c),
	}
	all, _ := strconv.ParseBool(c.Query("all"))
	if user := middleware.CurrentUser(c); !all || user == nil || user.Role != models.AdminRole {
		id := middleware.CurrentUserID(c)
		f.MemberID = &id
	}
	projects, err := pc.Store.ListProjects(c.UserContext(), f)
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "", projects)
}

func (pc *ProjectController) GetProject(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	p, err := pc.Store.GetProject(c.UserContext(), id, readOptions(c))
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "", p)
}

func (pc *ProjectController) UpdateProject(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	p, err := pc.Store.GetProject(c.UserContext(), id, store.ReadOptions{})
	if err != nil {
		return storeFailure(c, err)
	}
	base := p.Base
	if err := c.BodyParser(p); err != nil {
		return badRequest(c, "Invalid request body")
	}
	restoreBase(p, base)
	if errs := utils.ValidateStruct(p); len(errs) > 0 {
		return badRequest(c, "Validation failed", errs...)
	}
	if err := pc.Store.UpdateProject(c.UserContext(), middleware.CurrentUserID(c), p); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Project updated successfully", p)
}

func (pc *ProjectController) DeleteProject(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := pc.Store.DeleteProject(c.UserContext(), middleware.CurrentUserID(c), id); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Project deleted successfully", nil)
}

func (pc *ProjectController) ListOwners(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	owners, err := pc.Store.ListOwners(c.UserContext(), id, readOptions(c))
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "", owners)
}

func (pc *ProjectController) AddOwner(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var o models.ProjectOwner
	if err := c.BodyParser(&o); err != nil {
		return badRequest(c, "Invalid request body")
	}
	restoreBase(&o, models.Base{})
	o.ProjectID = id
	if err := pc.canGrant(c, id, o.Role); err != nil {
		return storeFailure(c, err)
	}
	if err := pc.Store.AddOwner(c.UserContext(), middleware.CurrentUserID(c), &o); err != nil {
		return storeFailure(c, err)
	}
	return created(c, "Owner added successfully", o)
}

func (pc *ProjectController) ChangeOwnerRole(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	userID, err := utils.ParseUUIDParam(c, "userId")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var input struct {
		Role models.OwnerRole `json:"role"`
	}
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := pc.canGrant(c, id, input.Role); err != nil {
		return storeFailure(c, err)
	}
	if err := pc.Store.ChangeOwnerRole(c.UserContext(), middleware.CurrentUserID(c), id, userID, input.Role); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Owner role updated successfully", nil)
}

// canGrant lets only owner-level members hand out owner-level roles.
func (pc *ProjectController) canGrant(c *fiber.Ctx, projectID uuid.UUID, role models.OwnerRole) error {
	if role != models.OwnerRoleOwner && role != models.OwnerRoleCoOwner {
		return nil
	}
	if user := middleware.CurrentUser(c); user != nil && user.Role == models.AdminRole {
		return nil
	}
	return pc.Store.Authorize(c.UserContext(), middleware.CurrentUserID(c), models.KindProject, projectID, store.PermDelete)
}

func (pc *ProjectController) RemoveOwner(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	userID, err := utils.ParseUUIDParam(c, "userId")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := pc.Store.RemoveOwner(c.UserContext(), middleware.CurrentUserID(c), id, userID); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Owner removed successfully", nil)
}

func (pc *ProjectController) CreateSprint(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var sp models.Sprint
	if err := c.BodyParser(&sp); err != nil {
		return badRequest(c, "Invalid request body")
	}
	restoreBase(&sp, models.Base{})
	sp.ProjectID = id
	if errs := utils.ValidateStruct(sp); len(errs) > 0 {
		return badRequest(c, "Validation failed", errs...)
	}
	if err := pc.Store.CreateSprint(c.UserContext(), middleware.CurrentUserID(c), &sp); err != nil {
		return storeFailure(c, err)
	}
	return created(c, "Sprint created successfully", sp)
}

func (pc *ProjectController) ListSprints(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	sprints, err := pc.Store.ListSprints(c.UserContext(), id, readOptions(c))
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "", sprints)
}

func (pc *ProjectController) GetSprint(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	sp, err := pc.Store.GetSprint(c.UserContext(), id, readOptions(c))
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "", sp)
}

func (pc *ProjectController) UpdateSprint(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	sp, err := pc.Store.GetSprint(c.UserContext(), id, store.ReadOptions{})
	if err != nil {
		return storeFailure(c, err)
	}
	base, projectID := sp.Base, sp.ProjectID
	if err := c.BodyParser(sp); err != nil {
		return badRequest(c, "Invalid request body")
	}
	restoreBase(sp, base)
	sp.ProjectID = projectID
	if errs := utils.ValidateStruct(sp); len(errs) > 0 {
		return badRequest(c, "Validation failed", errs...)
	}
	if err := pc.Store.UpdateSprint(c.UserContext(), middleware.CurrentUserID(c), sp); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Sprint updated successfully", sp)
}

func (pc *ProjectController) DeleteSprint(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := pc.Store.DeleteSprint(c.UserContext(), middleware.CurrentUserID(c), id); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Sprint deleted successfully", nil)
}

func (pc *ProjectController) CreateCategory(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var cat models.Category
	if err := c.BodyParser(&cat); err != nil {
		return badRequest(c, "Invalid request body")
	}
	restoreBase(&cat, models.Base{})
	cat.ProjectID = id
	if errs := utils.ValidateStruct(cat); len(errs) > 0 {
		return badRequest(c, "Validation failed", errs...)
	}
	if err := pc.Store.CreateCategory(c.UserContext(), middleware.CurrentUserID(c), &cat); err != nil {
		return storeFailure(c, err)
	}
	return created(c, "Category created successfully", cat)
}

func (pc *ProjectController) ListCategories(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	cats, err := pc.Store.ListCategories(c.UserContext(), id, readOptions(c))
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "", cats)
}

func (pc *ProjectController) DeleteCategory(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := pc.Store.DeleteCategory(c.UserContext(), middleware.CurrentUserID(c), id); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Category deleted successfully", nil)
}

func (pc *ProjectController) CreateTag(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var tag models.Tag
	if err := c.BodyParser(&tag); err != nil {
		return badRequest(c, "Invalid request body")
	}
	restoreBase(&tag, models.Base{})
	tag.ProjectID = id
	if errs := utils.ValidateStruct(tag); len(errs) > 0 {
		return badRequest(c, "Validation failed", errs...)
	}
	if err := pc.Store.CreateTag(c.UserContext(), middleware.CurrentUserID(c), &tag); err != nil {
		return storeFailure(c, err)
	}
	return created(c, "Tag created successfully", tag)
}

func (pc *ProjectController) ListTags(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	tags, err := pc.Store.ListTags(c.UserContext(), id, readOptions(c))
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "", tags)
}

func (pc *ProjectController) DeleteTag(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := pc.Store.DeleteTag(c.UserContext(), middleware.CurrentUserID(c), id); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Tag deleted successfully", nil)
}

// ListActivity returns the project's audit trail, newest first
func (pc *ProjectController) ListActivity(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	logs, err := pc.Store.ListActivity(c.UserContext(), store.ActivityFilter{
		ProjectID:  &id,
		EntityType: models.EntityKind(c.Query("entity_type")),
		Limit:      c.QueryInt("limit", 100),
	})
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "", logs)
}
