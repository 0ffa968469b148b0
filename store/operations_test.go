package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectflow/models"
)

func TestProjectKeyIsUniqueAndImmutable(t *testing.T) {
	f := newFixture(t)
	u := f.user("owner@example.com")
	p := f.project(u.ID, "web")
	assert.Equal(t, "WEB", p.Key)
	assert.Equal(t, models.ProjectPlanning, p.Status)
	assert.Equal(t, models.PriorityMedium, p.Priority)

	err := f.store.CreateProject(f.ctx, u.ID, &models.Project{Name: "dup", Key: "WEB"})
	assert.ErrorIs(t, err, ErrConflict)

	err = f.store.CreateProject(f.ctx, u.ID, &models.Project{Name: "bad", Key: "1X"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	p.Key = "WEB2"
	err = f.store.UpdateProject(f.ctx, u.ID, p)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListProjectsByMember(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice@example.com")
	bob := f.user("bob@example.com")
	a := f.project(alice.ID, "AAA")
	f.project(bob.ID, "BBB")
	f.task(alice.ID, a.ID, "one")

	got, err := f.store.ListProjects(f.ctx, ProjectFilter{MemberID: &alice.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, 1, got[0].TotalTasks())
	assert.Zero(t, got[0].CompletionRate())
}

func TestOwnershipPairIsUnique(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner@example.com")
	dev := f.user("dev@example.com")
	p := f.project(owner.ID, "OWN")

	require.NoError(t, f.store.AddOwner(f.ctx, owner.ID, &models.ProjectOwner{ProjectID: p.ID, UserID: dev.ID}))
	err := f.store.AddOwner(f.ctx, owner.ID, &models.ProjectOwner{ProjectID: p.ID, UserID: dev.ID, Role: models.OwnerRoleManager})
	assert.ErrorIs(t, err, ErrConflict)

	// The pair stays taken after the membership ends.
	require.NoError(t, f.store.RemoveOwner(f.ctx, owner.ID, p.ID, dev.ID))
	err = f.store.AddOwner(f.ctx, owner.ID, &models.ProjectOwner{ProjectID: p.ID, UserID: dev.ID})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestProjectKeepsAnOwner(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner@example.com")
	co := f.user("co@example.com")
	p := f.project(owner.ID, "KEEP")

	err := f.store.RemoveOwner(f.ctx, owner.ID, p.ID, owner.ID)
	require.ErrorIs(t, err, ErrConflict)
	err = f.store.ChangeOwnerRole(f.ctx, owner.ID, p.ID, owner.ID, models.OwnerRoleViewer)
	require.ErrorIs(t, err, ErrConflict)

	require.NoError(t, f.store.AddOwner(f.ctx, owner.ID, &models.ProjectOwner{ProjectID: p.ID, UserID: co.ID, Role: models.OwnerRoleOwner}))
	require.NoError(t, f.store.RemoveOwner(f.ctx, co.ID, p.ID, owner.ID))

	owners, err := f.store.ListOwners(f.ctx, p.ID, ReadOptions{})
	require.NoError(t, err)
	require.Len(t, owners, 1)
	assert.Equal(t, co.ID, owners[0].UserID)

	all, err := f.store.ListOwners(f.ctx, p.ID, ReadOptions{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTaskKeysAreGeneratedPerProject(t *testing.T) {
	f := newFixture(t)
	u := f.user("owner@example.com")
	p := f.project(u.ID, "KEY")

	first := f.task(u.ID, p.ID, "first")
	second := f.task(u.ID, p.ID, "second")
	assert.Equal(t, "KEY-1", first.Key)
	assert.Equal(t, "KEY-2", second.Key)

	require.NoError(t, f.store.DeleteTask(f.ctx, u.ID, second.ID))
	third := f.task(u.ID, p.ID, "third")
	assert.Equal(t, "KEY-3", third.Key)

	err := f.store.CreateTask(f.ctx, u.ID, &models.TaskItem{ProjectID: p.ID, Title: "dup", Key: "KEY-1"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGeneratedTaskKeySkipsTakenKeys(t *testing.T) {
	f := newFixture(t)
	u := f.user("owner@example.com")
	p := f.project(u.ID, "KEY")
	other := f.project(u.ID, "OTH")

	// A manual key elsewhere already holds the next generated one.
	squatter := &models.TaskItem{ProjectID: other.ID, Title: "squatter", Key: "KEY-1"}
	require.NoError(t, f.store.CreateTask(f.ctx, u.ID, squatter))

	task := f.task(u.ID, p.ID, "first")
	assert.Equal(t, "KEY-2", task.Key)
	assert.Equal(t, "KEY-3", f.task(u.ID, p.ID, "second").Key)
}

func TestTaskStatusStampsResolution(t *testing.T) {
	f := newFixture(t)
	u := f.user("owner@example.com")
	p := f.project(u.ID, "RES")
	task := f.task(u.ID, p.ID, "ship")
	assert.Equal(t, models.TaskNotStarted, task.Status)

	task.Status = models.TaskDone
	require.NoError(t, f.store.UpdateTask(f.ctx, u.ID, task))
	require.NotNil(t, task.ResolvedAt)

	task.Status = models.TaskInProgress
	require.NoError(t, f.store.UpdateTask(f.ctx, u.ID, task))
	assert.Nil(t, task.ResolvedAt)

	task.Status = "Shipped"
	assert.ErrorIs(t, f.store.UpdateTask(f.ctx, u.ID, task), ErrInvalidInput)
}

func TestTaskParentMustNotLoop(t *testing.T) {
	f := newFixture(t)
	u := f.user("owner@example.com")
	p := f.project(u.ID, "LOOP")
	epic := f.task(u.ID, p.ID, "epic")
	story := &models.TaskItem{ProjectID: p.ID, Title: "story", ParentTaskID: &epic.ID}
	require.NoError(t, f.store.CreateTask(f.ctx, u.ID, story))

	epic.ParentTaskID = &story.ID
	err := f.store.UpdateTask(f.ctx, u.ID, epic)
	assert.ErrorIs(t, err, ErrInvalidInput)

	other := f.project(u.ID, "ELSE")
	stray := &models.TaskItem{ProjectID: other.ID, Title: "stray", ParentTaskID: &story.ID}
	assert.ErrorIs(t, f.store.CreateTask(f.ctx, u.ID, stray), ErrInvalidInput)
}

func TestListTasksByAssignee(t *testing.T) {
	f := newFixture(t)
	u := f.user("owner@example.com")
	dev := f.user("dev@example.com")
	p := f.project(u.ID, "ASG")
	mine := f.task(u.ID, p.ID, "mine")
	f.task(u.ID, p.ID, "not mine")
	require.NoError(t, f.store.AssignTask(f.ctx, u.ID, &models.TaskAssignment{TaskID: mine.ID, UserID: dev.ID}))

	err := f.store.AssignTask(f.ctx, u.ID, &models.TaskAssignment{TaskID: mine.ID, UserID: dev.ID})
	assert.ErrorIs(t, err, ErrConflict)

	got, err := f.store.ListTasks(f.ctx, TaskFilter{ProjectID: p.ID, AssigneeID: &dev.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, mine.ID, got[0].ID)

	require.NoError(t, f.store.UnassignTask(f.ctx, u.ID, mine.ID, dev.ID))
	got, err = f.store.ListTasks(f.ctx, TaskFilter{ProjectID: p.ID, AssigneeID: &dev.ID})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSubTaskCompletionFollowsStatus(t *testing.T) {
	f := newFixture(t)
	u := f.user("owner@example.com")
	p := f.project(u.ID, "SUB")
	task := f.task(u.ID, p.ID, "parent")
	st := f.subTask(u.ID, task.ID, "child")
	assert.Nil(t, st.CompletedAt)

	st.Status = models.TaskDone
	require.NoError(t, f.store.UpdateSubTask(f.ctx, u.ID, st))
	require.NotNil(t, st.CompletedAt)

	got, err := f.store.GetTask(f.ctx, task.ID, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalSubTasks())
	assert.Equal(t, 1, got.CompletedSubTasks())
	assert.Equal(t, 100.0, got.SubTaskCompletionRate())

	subs, err := f.store.ListSubTasks(f.ctx, task.ID, ReadOptions{})
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestCommentEditAndDelete(t *testing.T) {
	f := newFixture(t)
	u := f.user("owner@example.com")
	p := f.project(u.ID, "CMT")
	task := f.task(u.ID, p.ID, "discuss")

	c := &models.Comment{Target: models.OnTask(task.ID), Content: "first draft"}
	require.NoError(t, f.store.AddComment(f.ctx, u.ID, c))
	assert.False(t, c.IsEdited)
	assert.Nil(t, c.UpdatedAt)
	assert.Equal(t, u.ID, c.AuthorID)

	f.clock.Advance(time.Minute)
	edited, err := f.store.EditComment(f.ctx, u.ID, c.ID, "second draft")
	require.NoError(t, err)
	assert.True(t, edited.IsEdited)
	require.NotNil(t, edited.UpdatedAt)
	assert.True(t, edited.UpdatedAt.Equal(f.clock.Now()))

	d := &models.Comment{Target: models.OnTask(task.ID), Content: "to be removed"}
	require.NoError(t, f.store.AddComment(f.ctx, u.ID, d))
	f.clock.Advance(time.Minute)
	require.NoError(t, f.store.DeleteComment(f.ctx, u.ID, d.ID))

	gone, err := f.store.GetComment(f.ctx, d.ID, ReadOptions{IncludeDeleted: true})
	require.NoError(t, err)
	assert.True(t, gone.IsDeleted)
	assert.False(t, gone.IsEdited)
	require.NotNil(t, gone.UpdatedAt)

	visible, err := f.store.ListComments(f.ctx, models.OnTask(task.ID), ReadOptions{})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, c.ID, visible[0].ID)
}

func TestCommentRepliesStayOnTheirTarget(t *testing.T) {
	f := newFixture(t)
	u := f.user("owner@example.com")
	p := f.project(u.ID, "RPL")
	a := f.task(u.ID, p.ID, "a")
	b := f.task(u.ID, p.ID, "b")

	root := &models.Comment{Target: models.OnTask(a.ID), Content: "question"}
	require.NoError(t, f.store.AddComment(f.ctx, u.ID, root))
	reply := &models.Comment{Target: models.OnTask(a.ID), Content: "answer", ParentCommentID: &root.ID}
	require.NoError(t, f.store.AddComment(f.ctx, u.ID, reply))

	stray := &models.Comment{Target: models.OnTask(b.ID), Content: "elsewhere", ParentCommentID: &root.ID}
	assert.ErrorIs(t, f.store.AddComment(f.ctx, u.ID, stray), ErrInvalidInput)

	threads, err := f.store.ListComments(f.ctx, models.OnTask(a.ID), ReadOptions{})
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, 1, threads[0].ReplyCount())
	assert.True(t, threads[0].Replies[0].IsReply())

	// A comment with live replies cannot go.
	assert.ErrorIs(t, f.store.DeleteComment(f.ctx, u.ID, root.ID), ErrRestricted)

	assert.ErrorIs(t, f.store.AddComment(f.ctx, u.ID, &models.Comment{Content: "nowhere"}), ErrInvalidInput)
}

func TestAttachmentsAndDuplicates(t *testing.T) {
	f := newFixture(t)
	u := f.user("owner@example.com")
	p := f.project(u.ID, "ATT")

	first := &models.Attachment{Target: models.OnProject(p.ID), FileName: "logo.png", FilePath: "/a/logo.png", FileHash: "abc", FileSize: 1536}
	second := &models.Attachment{Target: models.OnProject(p.ID), FileName: "logo-copy.png", FilePath: "/b/logo.png", FileHash: "abc", FileSize: 1536}
	require.NoError(t, f.store.AddAttachment(f.ctx, u.ID, first))
	require.NoError(t, f.store.AddAttachment(f.ctx, u.ID, second))
	assert.Equal(t, "1.5 KB", first.FileSizeFormatted())
	assert.True(t, first.IsImage())

	dups, err := f.store.FindDuplicateAttachments(f.ctx, "abc", ReadOptions{})
	require.NoError(t, err)
	assert.Len(t, dups, 2)

	require.NoError(t, f.store.DeleteAttachment(f.ctx, u.ID, second.ID))
	list, err := f.store.ListAttachments(f.ctx, models.OnProject(p.ID), ReadOptions{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)

	bad := &models.Attachment{Target: models.OnProject(p.ID), FileName: "x", FilePath: "/x", FileSize: -1}
	assert.ErrorIs(t, f.store.AddAttachment(f.ctx, u.ID, bad), ErrInvalidInput)
}

func TestTimerLifecycle(t *testing.T) {
	f := newFixture(t)
	u := f.user("owner@example.com")
	p := f.project(u.ID, "TIME")
	task := f.task(u.ID, p.ID, "track")

	_, err := f.store.StartTimer(f.ctx, u.ID, models.OnProject(p.ID), "wrong target")
	assert.ErrorIs(t, err, ErrInvalidInput)

	running, err := f.store.StartTimer(f.ctx, u.ID, models.OnTask(task.ID), "coding")
	require.NoError(t, err)
	assert.True(t, running.IsCurrentlyRunning())

	_, err = f.store.StartTimer(f.ctx, u.ID, models.OnTask(task.ID), "again")
	assert.ErrorIs(t, err, ErrConflict)

	f.clock.Advance(90 * time.Minute)
	stopped, err := f.store.StopTimer(f.ctx, u.ID, running.ID)
	require.NoError(t, err)
	assert.False(t, stopped.IsCurrentlyRunning())
	assert.Equal(t, 1.5, stopped.HoursWorked)

	_, err = f.store.StopTimer(f.ctx, u.ID, running.ID)
	assert.ErrorIs(t, err, ErrConflict)

	rate := 50.0
	manual := &models.TimeLog{Target: models.OnTask(task.ID), HoursWorked: 4, HourlyRate: &rate}
	require.NoError(t, f.store.LogTime(f.ctx, u.ID, manual))
	assert.True(t, manual.IsManualEntry)
	assert.Equal(t, 200.0, manual.CalculatedCost())

	approved, err := f.store.ApproveTimeLog(f.ctx, u.ID, manual.ID)
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)

	logs, err := f.store.ListTimeLogs(f.ctx, models.OnTask(task.ID), ReadOptions{})
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	// Time logs restrict deleting their task.
	assert.ErrorIs(t, f.store.DeleteTask(f.ctx, u.ID, task.ID), ErrRestricted)

	tooMuch := &models.TimeLog{Target: models.OnTask(task.ID), HoursWorked: 25}
	assert.ErrorIs(t, f.store.LogTime(f.ctx, u.ID, tooMuch), ErrInvalidInput)
}

func TestUpdateCannotRestartAStoppedTimer(t *testing.T) {
	f := newFixture(t)
	u := f.user("owner@example.com")
	p := f.project(u.ID, "RST")
	task := f.task(u.ID, p.ID, "track")

	running, err := f.store.StartTimer(f.ctx, u.ID, models.OnTask(task.ID), "coding")
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	stopped, err := f.store.StopTimer(f.ctx, u.ID, running.ID)
	require.NoError(t, err)

	edit := *stopped
	edit.IsRunning, edit.EndTime = true, nil
	assert.ErrorIs(t, f.store.UpdateTimeLog(f.ctx, u.ID, &edit), ErrInvalidInput)

	stored, err := f.store.GetTimeLog(f.ctx, stopped.ID, ReadOptions{})
	require.NoError(t, err)
	assert.False(t, stored.IsRunning)
	assert.NotNil(t, stored.EndTime)

	edit = *stopped
	edit.WorkDescription = "pairing on the parser"
	require.NoError(t, f.store.UpdateTimeLog(f.ctx, u.ID, &edit))
}

func TestNotificationsReadOnce(t *testing.T) {
	f := newFixture(t)
	u := f.user("reader@example.com")
	n := &models.Notification{UserID: u.ID, Title: "Assigned", Message: "You have a task", Type: models.NotifyTaskAssigned}
	require.NoError(t, f.store.Notify(f.ctx, n))
	require.NoError(t, f.store.Notify(f.ctx, &models.Notification{UserID: u.ID, Title: "Other", Message: "Second"}))

	f.clock.Advance(time.Minute)
	read, err := f.store.MarkRead(f.ctx, u.ID, n.ID)
	require.NoError(t, err)
	require.NotNil(t, read.ReadAt)
	firstRead := *read.ReadAt

	f.clock.Advance(time.Minute)
	again, err := f.store.MarkRead(f.ctx, u.ID, n.ID)
	require.NoError(t, err)
	assert.True(t, again.ReadAt.Equal(firstRead))

	_, err = f.store.MarkRead(f.ctx, uuid.New(), n.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	unread, err := f.store.ListNotifications(f.ctx, u.ID, true, ReadOptions{})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, models.NotifySystem, unread[0].Type)

	changed, err := f.store.MarkAllRead(f.ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, changed)

	require.NoError(t, f.store.DeleteNotification(f.ctx, u.ID, n.ID))
	all, err := f.store.ListNotifications(f.ctx, u.ID, false, ReadOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUserEmailIsUniqueAndNormalized(t *testing.T) {
	f := newFixture(t)
	u := f.user("Someone@Example.com ")
	assert.Equal(t, "someone@example.com", u.Email)

	dup := &models.User{Email: "SOMEONE@example.com", IsActive: true}
	assert.ErrorIs(t, f.store.CreateUser(f.ctx, dup), ErrConflict)

	u.Credentials.RegisterFailure(f.clock.Now(), 5, time.Minute)
	require.NoError(t, f.store.SaveCredentials(f.ctx, u))
	got, err := f.store.FindUserByID(f.ctx, u.ID, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Credentials.AccessFailedCount)
}
