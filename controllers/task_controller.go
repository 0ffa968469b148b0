package controller

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"projectflow/middleware"
	"projectflow/models"
	"projectflow/store"
	"projectflow/utils"
)

type TaskController struct {
	Store *store.Store
}

func NewTaskController(s *store.Store) *TaskController {
	return &TaskController{Store: s}
}

type assignInput struct {
	UserID uuid.UUID             `json:"user_id"`
	Role   models.AssignmentRole `json:"role"`
}

type timerInput struct {
	Description string `json:"description"`
}

// CreateTask adds a task to the project in the path. The key is generated.
func (tc *TaskController) CreateTask(c *fiber.Ctx) error {
	projectID, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var t models.TaskItem
	if err := c.BodyParser(&t); err != nil {
		return badRequest(c, "Invalid request body")
	}
	restoreBase(&t, models.Base{})
	t.ProjectID = projectID
	t.Key = ""
	if errs := utils.ValidateStruct(t); len(errs) > 0 {
		return badRequest(c, "Validation failed", errs...)
	}
	if err := tc.Store.CreateTask(c.UserContext(), middleware.CurrentUserID(c), &t); err != nil {
		return storeFailure(c, err)
	}
	return created(c, "Task created successfully", t)
}

// ListTasks filters by ?sprint_id, ?assignee_id (or ?mine=true) and ?status.
func (tc *TaskController) ListTasks(c *fiber.Ctx) error {
	projectID, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	f := store.TaskFilter{
		ProjectID:   projectID,
		Status:      models.TaskStatus(c.Query("status")),
		ReadOptions: readOptions(c),
	}
	if f.SprintID, err = utils.ParseUUIDQuery(c, "sprint_id"); err != nil {
		return badRequest(c, err.Error())
	}
	if f.AssigneeID, err = utils.ParseUUIDQuery(c, "assignee_id"); err != nil {
		return badRequest(c, err.Error())
	}
	if c.QueryBool("mine") {
		f.AssigneeID = utils.Pointer(middleware.CurrentUserID(c))
	}
	tasks, err := tc.Store.ListTasks(c.UserContext(), f)
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "", tasks)
}

func (tc *TaskController) GetTask(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	t, err := tc.Store.GetTask(c.UserContext(), id, readOptions(c))
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "", t)
}

func (tc *TaskController) UpdateTask(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	t, err := tc.Store.GetTask(c.UserContext(), id, store.ReadOptions{})
	if err != nil {
		return storeFailure(c, err)
	}
	base, projectID := t.Base, t.ProjectID
	if err := c.BodyParser(t); err != nil {
		return badRequest(c, "Invalid request body")
	}
	restoreBase(t, base)
	t.ProjectID = projectID
	// Relations are managed through their own endpoints.
	t.Children, t.SubTasks, t.Assignments, t.Tags = nil, nil, nil, nil
	if errs := utils.ValidateStruct(t); len(errs) > 0 {
		return badRequest(c, "Validation failed", errs...)
	}
	if err := tc.Store.UpdateTask(c.UserContext(), middleware.CurrentUserID(c), t); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Task updated successfully", t)
}

func (tc *TaskController) DeleteTask(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := tc.Store.DeleteTask(c.UserContext(), middleware.CurrentUserID(c), id); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Task deleted successfully", nil)
}

func (tc *TaskController) AssignTask(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var input assignInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}
	a := models.TaskAssignment{TaskID: id, UserID: input.UserID, Role: input.Role}
	if err := tc.Store.AssignTask(c.UserContext(), middleware.CurrentUserID(c), &a); err != nil {
		return storeFailure(c, err)
	}
	tc.notifyAssignee(c, a.UserID, "Task", id)
	return created(c, "User assigned successfully", a)
}

func (tc *TaskController) UnassignTask(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	userID, err := utils.ParseUUIDParam(c, "userId")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := tc.Store.UnassignTask(c.UserContext(), middleware.CurrentUserID(c), id, userID); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "User unassigned successfully", nil)
}

func (tc *TaskController) TagTask(c *fiber.Ctx) error {
	id, tagID, err := idAndTag(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	tt, err := tc.Store.TagTask(c.UserContext(), middleware.CurrentUserID(c), id, tagID)
	if err != nil {
		return storeFailure(c, err)
	}
	return created(c, "Tag added successfully", tt)
}

func (tc *TaskController) UntagTask(c *fiber.Ctx) error {
	id, tagID, err := idAndTag(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := tc.Store.UntagTask(c.UserContext(), middleware.CurrentUserID(c), id, tagID); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Tag removed successfully", nil)
}

func (tc *TaskController) CreateSubTask(c *fiber.Ctx) error {
	taskID, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var st models.SubTask
	if err := c.BodyParser(&st); err != nil {
		return badRequest(c, "Invalid request body")
	}
	restoreBase(&st, models.Base{})
	st.TaskID = taskID
	if errs := utils.ValidateStruct(st); len(errs) > 0 {
		return badRequest(c, "Validation failed", errs...)
	}
	if err := tc.Store.CreateSubTask(c.UserContext(), middleware.CurrentUserID(c), &st); err != nil {
		return storeFailure(c, err)
	}
	return created(c, "Subtask created successfully", st)
}

func (tc *TaskController) ListSubTasks(c *fiber.Ctx) error {
	taskID, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	subtasks, err := tc.Store.ListSubTasks(c.UserContext(), taskID, readOptions(c))
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "", subtasks)
}

func (tc *TaskController) GetSubTask(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	st, err := tc.Store.GetSubTask(c.UserContext(), id, readOptions(c))
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "", st)
}

func (tc *TaskController) UpdateSubTask(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	st, err := tc.Store.GetSubTask(c.UserContext(), id, store.ReadOptions{})
	if err != nil {
		return storeFailure(c, err)
	}
	base, taskID := st.Base, st.TaskID
	if err := c.BodyParser(st); err != nil {
		return badRequest(c, "Invalid request body")
	}
	restoreBase(st, base)
	st.TaskID = taskID
	st.Assignments, st.Tags = nil, nil
	if errs := utils.ValidateStruct(st); len(errs) > 0 {
		return badRequest(c, "Validation failed", errs...)
	}
	if err := tc.Store.UpdateSubTask(c.UserContext(), middleware.CurrentUserID(c), st); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Subtask updated successfully", st)
}

func (tc *TaskController) DeleteSubTask(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := tc.Store.DeleteSubTask(c.UserContext(), middleware.CurrentUserID(c), id); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Subtask deleted successfully", nil)
}

func (tc *TaskController) AssignSubTask(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var input assignInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}
	a := models.SubTaskAssignment{SubTaskID: id, UserID: input.UserID, Role: input.Role}
	if err := tc.Store.AssignSubTask(c.UserContext(), middleware.CurrentUserID(c), &a); err != nil {
		return storeFailure(c, err)
	}
	tc.notifyAssignee(c, a.UserID, "SubTask", id)
	return created(c, "User assigned successfully", a)
}

func (tc *TaskController) UnassignSubTask(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	userID, err := utils.ParseUUIDParam(c, "userId")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := tc.Store.UnassignSubTask(c.UserContext(), middleware.CurrentUserID(c), id, userID); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "User unassigned successfully", nil)
}

func (tc *TaskController) TagSubTask(c *fiber.Ctx) error {
	id, tagID, err := idAndTag(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	st, err := tc.Store.TagSubTask(c.UserContext(), middleware.CurrentUserID(c), id, tagID)
	if err != nil {
		return storeFailure(c, err)
	}
	return created(c, "Tag added successfully", st)
}

func (tc *TaskController) UntagSubTask(c *fiber.Ctx) error {
	id, tagID, err := idAndTag(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := tc.Store.UntagSubTask(c.UserContext(), middleware.CurrentUserID(c), id, tagID); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Tag removed successfully", nil)
}

// ListTimeLogs returns the time logs of a task or subtask.
func (tc *TaskController) ListTimeLogs(kind models.TargetKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		target, err := targetParam(c, kind)
		if err != nil {
			return badRequest(c, err.Error())
		}
		logs, err := tc.Store.ListTimeLogs(c.UserContext(), target, readOptions(c))
		if err != nil {
			return storeFailure(c, err)
		}
		return ok(c, "", logs)
	}
}

// LogTime records a manual time entry for the caller.
func (tc *TaskController) LogTime(kind models.TargetKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		target, err := targetParam(c, kind)
		if err != nil {
			return badRequest(c, err.Error())
		}
		var l models.TimeLog
		if err := c.BodyParser(&l); err != nil {
			return badRequest(c, "Invalid request body")
		}
		restoreBase(&l, models.Base{})
		l.Target = target
		l.IsApproved, l.ApprovedBy, l.ApprovedAt = false, nil, nil
		if errs := utils.ValidateStruct(l); len(errs) > 0 {
			return badRequest(c, "Validation failed", errs...)
		}
		if err := tc.Store.LogTime(c.UserContext(), middleware.CurrentUserID(c), &l); err != nil {
			return storeFailure(c, err)
		}
		return created(c, "Time logged successfully", l)
	}
}

func (tc *TaskController) StartTimer(kind models.TargetKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		target, err := targetParam(c, kind)
		if err != nil {
			return badRequest(c, err.Error())
		}
		var input timerInput
		_ = c.BodyParser(&input)
		l, err := tc.Store.StartTimer(c.UserContext(), middleware.CurrentUserID(c), target, input.Description)
		if err != nil {
			return storeFailure(c, err)
		}
		return created(c, "Timer started", l)
	}
}

func (tc *TaskController) StopTimer(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	l, err := tc.Store.StopTimer(c.UserContext(), middleware.CurrentUserID(c), id)
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Timer stopped", l)
}

// UpdateTimeLog edits description, hours and billing details. Ownership and approval stay.
func (tc *TaskController) UpdateTimeLog(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	current, err := tc.Store.GetTimeLog(c.UserContext(), id, store.ReadOptions{})
	if err != nil {
		return storeFailure(c, err)
	}
	l := *current
	if err := c.BodyParser(&l); err != nil {
		return badRequest(c, "Invalid request body")
	}
	restoreBase(&l, current.Base)
	l.Target, l.UserID = current.Target, current.UserID
	l.IsApproved, l.ApprovedBy, l.ApprovedAt = current.IsApproved, current.ApprovedBy, current.ApprovedAt
	if errs := utils.ValidateStruct(l); len(errs) > 0 {
		return badRequest(c, "Validation failed", errs...)
	}
	if err := tc.Store.UpdateTimeLog(c.UserContext(), middleware.CurrentUserID(c), &l); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Time log updated successfully", l)
}

func (tc *TaskController) GetTimeLog(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	l, err := tc.Store.GetTimeLog(c.UserContext(), id, readOptions(c))
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "", l)
}

func (tc *TaskController) ApproveTimeLog(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	l, err := tc.Store.ApproveTimeLog(c.UserContext(), middleware.CurrentUserID(c), id)
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Time log approved", l)
}

func (tc *TaskController) DeleteTimeLog(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := tc.Store.DeleteTimeLog(c.UserContext(), middleware.CurrentUserID(c), id); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Time log deleted successfully", nil)
}

// notifyAssignee tells a user about a new assignment. Failures are only logged.
func (tc *TaskController) notifyAssignee(c *fiber.Ctx, userID uuid.UUID, entityType string, entityID uuid.UUID) {
	if userID == middleware.CurrentUserID(c) {
		return
	}
	n := models.Notification{
		UserID:     userID,
		Title:      "New assignment",
		Message:    fmt.Sprintf("You have been assigned to a %s", strings.ToLower(entityType)),
		Type:       models.NotifyTaskAssigned,
		EntityType: entityType,
		EntityID:   &entityID,
	}
	if err := tc.Store.Notify(c.UserContext(), &n); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id":   userID,
			"entity_id": entityID,
		}).Warn("Failed to create assignment notification")
	}
}

func idAndTag(c *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	tagID, err := utils.ParseUUIDParam(c, "tagId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return id, tagID, nil
}

func targetParam(c *fiber.Ctx, kind models.TargetKind) (models.Target, error) {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return models.Target{}, err
	}
	return models.Target{Kind: kind, ID: id}, nil
}
