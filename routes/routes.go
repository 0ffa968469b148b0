package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"

	"projectflow/config"
	controller "projectflow/controllers"
	"projectflow/middleware"
	"projectflow/models"
	"projectflow/services"
	"projectflow/store"
)

const logFormat = "[${time}] ${status} - ${latency} ${method} ${path}\n"

// Deps is everything the HTTP surface needs.
type Deps struct {
	Store          *store.Store
	Auth           *services.AuthService
	JWTSecret      string
	SecureCookie   bool
	LoginRateLimit int
	// RateLimitStore backs the auth limiters; nil falls back to the redis
	// settings in config.
	RateLimitStore fiber.Storage
}

func SetupRoutes(app *fiber.App, deps Deps) {
	SetupAuthRoutes(app, deps)
	SetupAPIRoutes(app, deps)
}

func SetupAuthRoutes(app *fiber.App, deps Deps) {
	authController := controller.NewAuthController(deps.Auth, deps.Store, deps.JWTSecret, deps.SecureCookie)
	limit := deps.LoginRateLimit
	if limit <= 0 {
		limit = 10
	}
	limits := deps.RateLimitStore
	if limits == nil {
		limits = middleware.RateLimitStorage(config.AppConfig.Redis)
	}

	auth := app.Group("/auth", logger.New(logger.Config{Format: logFormat}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", authController.Register)
	auth.Post("/login", middleware.AuthRateLimiter(limit, time.Minute, limits), authController.Login)
	auth.Post("/forgot-password", middleware.AuthRateLimiter(limit, time.Minute, limits), authController.ForgotPassword)
	auth.Post("/reset-password", authController.ResetPassword)
	auth.Get("/confirm-email", authController.ConfirmEmail)
	auth.Post("/confirm-email", authController.ConfirmEmail)
	auth.Post("/resend-confirmation", middleware.AuthRateLimiter(limit, time.Minute, limits), authController.ResendConfirmation)
	auth.Post("/refresh", authController.RefreshToken)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected(deps.Store))
	protectedAuth.Post("/logout", authController.Logout)
	protectedAuth.Post("/change-password", authController.ChangePassword)
	protectedAuth.Get("/me", authController.GetCurrentUser)
	protectedAuth.Put("/profile", authController.UpdateProfile)

	logrus.Info("Authentication routes initialized")
}

func SetupAPIRoutes(app *fiber.App, deps Deps) {
	projectController := controller.NewProjectController(deps.Store)
	taskController := controller.NewTaskController(deps.Store)
	commentController := controller.NewCommentController(deps.Store)
	notificationController := controller.NewNotificationController(deps.Store)
	userController := controller.NewUserController(deps.Store)

	api := app.Group("/api/v1", middleware.Protected(deps.Store), logger.New(logger.Config{Format: logFormat}))

	// can guards a route by the caller's rights on the project owning :id
	can := func(kind models.EntityKind, perm store.Permission) fiber.Handler {
		return middleware.RequireProjectPermission(deps.Store, kind, perm)
	}

	// Project routes
	project := api.Group("/projects")
	project.Post("/", projectController.CreateProject)
	project.Get("/", projectController.ListProjects)
	project.Get("/:id", can(models.KindProject, store.PermView), projectController.GetProject)
	project.Put("/:id", can(models.KindProject, store.PermEdit), projectController.UpdateProject)
	project.Delete("/:id", can(models.KindProject, store.PermDelete), projectController.DeleteProject)
	project.Get("/:id/activity", can(models.KindProject, store.PermViewReports), projectController.ListActivity)

	project.Get("/:id/owners", can(models.KindProject, store.PermView), projectController.ListOwners)
	project.Post("/:id/owners", can(models.KindProject, store.PermManageMembers), projectController.AddOwner)
	project.Put("/:id/owners/:userId", can(models.KindProject, store.PermManageMembers), projectController.ChangeOwnerRole)
	project.Delete("/:id/owners/:userId", can(models.KindProject, store.PermManageMembers), projectController.RemoveOwner)

	project.Get("/:id/sprints", can(models.KindProject, store.PermView), projectController.ListSprints)
	project.Post("/:id/sprints", can(models.KindProject, store.PermEdit), projectController.CreateSprint)
	project.Get("/:id/categories", can(models.KindProject, store.PermView), projectController.ListCategories)
	project.Post("/:id/categories", can(models.KindProject, store.PermEdit), projectController.CreateCategory)
	project.Get("/:id/tags", can(models.KindProject, store.PermView), projectController.ListTags)
	project.Post("/:id/tags", can(models.KindProject, store.PermEdit), projectController.CreateTag)

	project.Get("/:id/tasks", can(models.KindProject, store.PermView), taskController.ListTasks)
	project.Post("/:id/tasks", can(models.KindProject, store.PermEdit), taskController.CreateTask)
	project.Get("/:id/comments", can(models.KindProject, store.PermView), commentController.ListComments(models.TargetProject))
	project.Post("/:id/comments", can(models.KindProject, store.PermContribute), commentController.AddComment(models.TargetProject))
	project.Get("/:id/attachments", can(models.KindProject, store.PermView), commentController.ListAttachments(models.TargetProject))
	project.Post("/:id/attachments", can(models.KindProject, store.PermContribute), commentController.AddAttachment(models.TargetProject))

	// Sprint, category and tag routes
	api.Get("/sprints/:id", can(models.KindSprint, store.PermView), projectController.GetSprint)
	api.Put("/sprints/:id", can(models.KindSprint, store.PermEdit), projectController.UpdateSprint)
	api.Delete("/sprints/:id", can(models.KindSprint, store.PermDelete), projectController.DeleteSprint)
	api.Delete("/categories/:id", can(models.KindCategory, store.PermDelete), projectController.DeleteCategory)
	api.Delete("/tags/:id", can(models.KindTag, store.PermDelete), projectController.DeleteTag)

	// Task routes
	task := api.Group("/tasks")
	task.Get("/:id", can(models.KindTask, store.PermView), taskController.GetTask)
	task.Put("/:id", can(models.KindTask, store.PermEdit), taskController.UpdateTask)
	task.Delete("/:id", can(models.KindTask, store.PermDelete), taskController.DeleteTask)
	task.Post("/:id/assignees", can(models.KindTask, store.PermEdit), taskController.AssignTask)
	task.Delete("/:id/assignees/:userId", can(models.KindTask, store.PermEdit), taskController.UnassignTask)
	task.Post("/:id/tags/:tagId", can(models.KindTask, store.PermEdit), taskController.TagTask)
	task.Delete("/:id/tags/:tagId", can(models.KindTask, store.PermEdit), taskController.UntagTask)
	task.Get("/:id/subtasks", can(models.KindTask, store.PermView), taskController.ListSubTasks)
	task.Post("/:id/subtasks", can(models.KindTask, store.PermEdit), taskController.CreateSubTask)
	task.Get("/:id/comments", can(models.KindTask, store.PermView), commentController.ListComments(models.TargetTask))
	task.Post("/:id/comments", can(models.KindTask, store.PermContribute), commentController.AddComment(models.TargetTask))
	task.Get("/:id/attachments", can(models.KindTask, store.PermView), commentController.ListAttachments(models.TargetTask))
	task.Post("/:id/attachments", can(models.KindTask, store.PermContribute), commentController.AddAttachment(models.TargetTask))
	task.Get("/:id/timelogs", can(models.KindTask, store.PermView), taskController.ListTimeLogs(models.TargetTask))
	task.Post("/:id/timelogs", can(models.KindTask, store.PermContribute), taskController.LogTime(models.TargetTask))
	task.Post("/:id/timer", can(models.KindTask, store.PermContribute), taskController.StartTimer(models.TargetTask))

	// Subtask routes
	subtask := api.Group("/subtasks")
	subtask.Get("/:id", can(models.KindSubTask, store.PermView), taskController.GetSubTask)
	subtask.Put("/:id", can(models.KindSubTask, store.PermEdit), taskController.UpdateSubTask)
	subtask.Delete("/:id", can(models.KindSubTask, store.PermDelete), taskController.DeleteSubTask)
	subtask.Post("/:id/assignees", can(models.KindSubTask, store.PermEdit), taskController.AssignSubTask)
	subtask.Delete("/:id/assignees/:userId", can(models.KindSubTask, store.PermEdit), taskController.UnassignSubTask)
	subtask.Post("/:id/tags/:tagId", can(models.KindSubTask, store.PermEdit), taskController.TagSubTask)
	subtask.Delete("/:id/tags/:tagId", can(models.KindSubTask, store.PermEdit), taskController.UntagSubTask)
	subtask.Get("/:id/comments", can(models.KindSubTask, store.PermView), commentController.ListComments(models.TargetSubTask))
	subtask.Post("/:id/comments", can(models.KindSubTask, store.PermContribute), commentController.AddComment(models.TargetSubTask))
	subtask.Get("/:id/attachments", can(models.KindSubTask, store.PermView), commentController.ListAttachments(models.TargetSubTask))
	subtask.Post("/:id/attachments", can(models.KindSubTask, store.PermContribute), commentController.AddAttachment(models.TargetSubTask))
	subtask.Get("/:id/timelogs", can(models.KindSubTask, store.PermView), taskController.ListTimeLogs(models.TargetSubTask))
	subtask.Post("/:id/timelogs", can(models.KindSubTask, store.PermContribute), taskController.LogTime(models.TargetSubTask))
	subtask.Post("/:id/timer", can(models.KindSubTask, store.PermContribute), taskController.StartTimer(models.TargetSubTask))

	// Comment routes: authors manage their own comments, editors manage all
	comment := api.Group("/comments")
	comment.Get("/:id", can(models.KindComment, store.PermView), commentController.GetComment)
	comment.Put("/:id", can(models.KindComment, store.PermAuthorOrEdit), commentController.EditComment)
	comment.Put("/:id/pin", can(models.KindComment, store.PermEdit), commentController.PinComment)
	comment.Delete("/:id", can(models.KindComment, store.PermAuthorOrEdit), commentController.DeleteComment)

	// Attachment routes
	api.Get("/attachments/duplicates", middleware.RequireRole(models.AdminRole), commentController.FindDuplicates)
	api.Delete("/attachments/:id", can(models.KindAttachment, store.PermAuthorOrEdit), commentController.DeleteAttachment)

	// Time log routes
	timelog := api.Group("/timelogs")
	timelog.Get("/:id", can(models.KindTimeLog, store.PermView), taskController.GetTimeLog)
	timelog.Put("/:id", can(models.KindTimeLog, store.PermAuthorOrEdit), taskController.UpdateTimeLog)
	timelog.Post("/:id/stop", can(models.KindTimeLog, store.PermAuthorOrEdit), taskController.StopTimer)
	timelog.Post("/:id/approve", can(models.KindTimeLog, store.PermEdit), taskController.ApproveTimeLog)
	timelog.Delete("/:id", can(models.KindTimeLog, store.PermAuthorOrEdit), taskController.DeleteTimeLog)

	// Notification routes
	notification := api.Group("/notifications")
	notification.Get("/", notificationController.ListNotifications)
	notification.Put("/read-all", notificationController.MarkAllRead)
	notification.Put("/:id/read", notificationController.MarkRead)
	notification.Delete("/:id", notificationController.DeleteNotification)

	// Admin routes
	admin := api.Group("/users", middleware.RequireRole(models.AdminRole))
	admin.Get("/:id", userController.GetUser)
	admin.Get("/:id/activity", userController.ListUserActivity)
	admin.Delete("/:id", userController.DeactivateUser)

	logrus.Info("API routes initialized")
}
