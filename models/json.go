package models

import (
	"encoding/json"
	"time"
)

// Clock supplies the instant used for time-relative values in API output.
var Clock = time.Now

// StoredJSON is implemented by records whose API encoding carries computed
// values; it returns the persisted columns only.
type StoredJSON interface {
	StoredJSON() ([]byte, error)
}

type (
	projectFields    Project
	sprintFields     Sprint
	taskFields       TaskItem
	subTaskFields    SubTask
	timeLogFields    TimeLog
	attachmentFields Attachment
	commentFields    Comment
	notifyFields     Notification
	userFields       User
)

func (p Project) MarshalJSON() ([]byte, error) {
	now := Clock()
	return json.Marshal(struct {
		projectFields
		TotalTasks     int     `json:"total_tasks"`
		CompletedTasks int     `json:"completed_tasks"`
		CompletionRate float64 `json:"completion_rate"`
		IsOverdue      bool    `json:"is_overdue"`
		BudgetVariance float64 `json:"budget_variance"`
	}{
		projectFields:  projectFields(p),
		TotalTasks:     p.TotalTasks(),
		CompletedTasks: p.CompletedTasks(),
		CompletionRate: p.CompletionRate(),
		IsOverdue:      p.IsOverdue(now),
		BudgetVariance: p.BudgetVariance(),
	})
}

func (p Project) StoredJSON() ([]byte, error) { return json.Marshal(projectFields(p)) }

func (s Sprint) MarshalJSON() ([]byte, error) {
	now := Clock()
	return json.Marshal(struct {
		sprintFields
		IsActive           bool    `json:"is_active"`
		IsOverdue          bool    `json:"is_overdue"`
		ProgressPercentage float64 `json:"progress_percentage"`
		TotalDays          int     `json:"total_days"`
		DaysRemaining      int     `json:"days_remaining"`
		Velocity           float64 `json:"velocity"`
	}{
		sprintFields:       sprintFields(s),
		IsActive:           s.IsActive(),
		IsOverdue:          s.IsOverdue(now),
		ProgressPercentage: s.ProgressPercentage(),
		TotalDays:          s.TotalDays(),
		DaysRemaining:      s.DaysRemaining(now),
		Velocity:           s.Velocity(),
	})
}

func (s Sprint) StoredJSON() ([]byte, error) { return json.Marshal(sprintFields(s)) }

func (t TaskItem) MarshalJSON() ([]byte, error) {
	now := Clock()
	return json.Marshal(struct {
		taskFields
		IsOverdue             bool    `json:"is_overdue"`
		IsCompleted           bool    `json:"is_completed"`
		TotalSubTasks         int     `json:"total_subtasks"`
		CompletedSubTasks     int     `json:"completed_subtasks"`
		SubTaskCompletionRate float64 `json:"subtask_completion_rate"`
		ProgressPercentage    float64 `json:"progress_percentage"`
		RemainingHours        float64 `json:"remaining_hours"`
	}{
		taskFields:            taskFields(t),
		IsOverdue:             t.IsOverdue(now),
		IsCompleted:           t.IsCompleted(),
		TotalSubTasks:         t.TotalSubTasks(),
		CompletedSubTasks:     t.CompletedSubTasks(),
		SubTaskCompletionRate: t.SubTaskCompletionRate(),
		ProgressPercentage:    t.ProgressPercentage(),
		RemainingHours:        roundTo(t.RemainingTime(now).Hours(), 2),
	})
}

func (t TaskItem) StoredJSON() ([]byte, error) { return json.Marshal(taskFields(t)) }

func (s SubTask) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		subTaskFields
		IsOverdue   bool `json:"is_overdue"`
		IsCompleted bool `json:"is_completed"`
	}{
		subTaskFields: subTaskFields(s),
		IsOverdue:     s.IsOverdue(Clock()),
		IsCompleted:   s.IsCompleted(),
	})
}

func (s SubTask) StoredJSON() ([]byte, error) { return json.Marshal(subTaskFields(s)) }

func (l TimeLog) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		timeLogFields
		IsCurrentlyRunning bool    `json:"is_currently_running"`
		CalculatedHours    float64 `json:"calculated_hours"`
		CalculatedCost     float64 `json:"calculated_cost"`
	}{
		timeLogFields:      timeLogFields(l),
		IsCurrentlyRunning: l.IsCurrentlyRunning(),
		CalculatedHours:    l.CalculatedHours(),
		CalculatedCost:     l.CalculatedCost(),
	})
}

func (l TimeLog) StoredJSON() ([]byte, error) { return json.Marshal(timeLogFields(l)) }

func (a Attachment) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		attachmentFields
		FileExtension     string `json:"file_extension"`
		FileSizeFormatted string `json:"file_size_formatted"`
		IsImage           bool   `json:"is_image"`
		IsDocument        bool   `json:"is_document"`
		IsArchive         bool   `json:"is_archive"`
	}{
		attachmentFields:  attachmentFields(a),
		FileExtension:     a.FileExtension(),
		FileSizeFormatted: a.FileSizeFormatted(),
		IsImage:           a.IsImage(),
		IsDocument:        a.IsDocument(),
		IsArchive:         a.IsArchive(),
	})
}

func (a Attachment) StoredJSON() ([]byte, error) { return json.Marshal(attachmentFields(a)) }

func (c Comment) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		commentFields
		IsReply    bool `json:"is_reply"`
		ReplyCount int  `json:"reply_count"`
	}{
		commentFields: commentFields(c),
		IsReply:       c.IsReply(),
		ReplyCount:    c.ReplyCount(),
	})
}

func (c Comment) StoredJSON() ([]byte, error) { return json.Marshal(commentFields(c)) }

func (n Notification) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		notifyFields
		IsUnread   bool  `json:"is_unread"`
		AgeSeconds int64 `json:"age_seconds"`
	}{
		notifyFields: notifyFields(n),
		IsUnread:     n.IsUnread(),
		AgeSeconds:   int64(n.Age(Clock()) / time.Second),
	})
}

func (u User) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		userFields
		FullName string `json:"full_name"`
		Initials string `json:"initials"`
	}{
		userFields: userFields(u),
		FullName:   u.FullName(),
		Initials:   u.Initials(),
	})
}

func (u User) StoredJSON() ([]byte, error) { return json.Marshal(userFields(u)) }
