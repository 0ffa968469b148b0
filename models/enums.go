package models

type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "Planning"
	ProjectActive    ProjectStatus = "Active"
	ProjectOnHold    ProjectStatus = "OnHold"
	ProjectCompleted ProjectStatus = "Completed"
	ProjectCancelled ProjectStatus = "Cancelled"
)

// Terminal reports whether no further work is expected.
func (s ProjectStatus) Terminal() bool {
	return s == ProjectCompleted || s == ProjectCancelled
}

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskNotStarted TaskStatus = "NotStarted"
	TaskToDo       TaskStatus = "ToDo"
	TaskInProgress TaskStatus = "InProgress"
	TaskReview     TaskStatus = "Review"
	TaskTesting    TaskStatus = "Testing"
	TaskDone       TaskStatus = "Done"
	TaskBlocked    TaskStatus = "Blocked"
	TaskCancelled  TaskStatus = "Cancelled"
)

func (s TaskStatus) Terminal() bool {
	return s == TaskDone || s == TaskCancelled
}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskNotStarted, TaskToDo, TaskInProgress, TaskReview, TaskTesting, TaskDone, TaskBlocked, TaskCancelled:
		return true
	}
	return false
}

type PriorityLevel string

const (
	PriorityLow      PriorityLevel = "Low"
	PriorityMedium   PriorityLevel = "Medium"
	PriorityHigh     PriorityLevel = "High"
	PriorityCritical PriorityLevel = "Critical"
)

func (p PriorityLevel) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

type TaskType string

const (
	TaskTypeTask  TaskType = "Task"
	TaskTypeStory TaskType = "Story"
	TaskTypeBug   TaskType = "Bug"
	TaskTypeEpic  TaskType = "Epic"
)

func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeTask, TaskTypeStory, TaskTypeBug, TaskTypeEpic:
		return true
	}
	return false
}

type SprintStatus string

const (
	SprintPlanning  SprintStatus = "Planning"
	SprintActive    SprintStatus = "Active"
	SprintCompleted SprintStatus = "Completed"
	SprintCancelled SprintStatus = "Cancelled"
)

func (s SprintStatus) Valid() bool {
	switch s {
	case SprintPlanning, SprintActive, SprintCompleted, SprintCancelled:
		return true
	}
	return false
}

type OwnerRole string

const (
	OwnerRoleOwner   OwnerRole = "Owner"
	OwnerRoleCoOwner OwnerRole = "CoOwner"
	OwnerRoleManager OwnerRole = "Manager"
	OwnerRoleViewer  OwnerRole = "Viewer"
)

func (r OwnerRole) Valid() bool {
	switch r {
	case OwnerRoleOwner, OwnerRoleCoOwner, OwnerRoleManager, OwnerRoleViewer:
		return true
	}
	return false
}

type AssignmentRole string

const (
	AssignmentDeveloper AssignmentRole = "Developer"
	AssignmentReviewer  AssignmentRole = "Reviewer"
	AssignmentTester    AssignmentRole = "Tester"
	AssignmentLead      AssignmentRole = "Lead"
)

func (r AssignmentRole) Valid() bool {
	switch r {
	case AssignmentDeveloper, AssignmentReviewer, AssignmentTester, AssignmentLead:
		return true
	}
	return false
}

type NotificationType string

const (
	NotifyTaskAssigned    NotificationType = "TaskAssigned"
	NotifyTaskCompleted   NotificationType = "TaskCompleted"
	NotifyTaskOverdue     NotificationType = "TaskOverdue"
	NotifyCommentAdded    NotificationType = "CommentAdded"
	NotifyMentioned       NotificationType = "Mentioned"
	NotifyProjectUpdated  NotificationType = "ProjectUpdated"
	NotifySprintStarted   NotificationType = "SprintStarted"
	NotifySprintCompleted NotificationType = "SprintCompleted"
	NotifyDeadlineSoon    NotificationType = "DeadlineApproaching"
	NotifySystem          NotificationType = "SystemMessage"
)

type NotificationPriority string

const (
	NotificationLow    NotificationPriority = "Low"
	NotificationNormal NotificationPriority = "Normal"
	NotificationHigh   NotificationPriority = "High"
	NotificationUrgent NotificationPriority = "Urgent"
)

type ActivityType string

const (
	ActivityCreated ActivityType = "Created"
	ActivityUpdated ActivityType = "Updated"
	ActivityDeleted ActivityType = "Deleted"
)
