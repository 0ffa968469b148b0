package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectflow/models"
)

func TestDeleteProjectCascadesAndKeepsRestrictedDependents(t *testing.T) {
	f := newFixture(t)
	u := f.user("owner@example.com")
	p := f.project(u.ID, "CASC")
	sp := &models.Sprint{ProjectID: p.ID, Name: "Sprint 1"}
	require.NoError(t, f.store.CreateSprint(f.ctx, u.ID, sp))
	task := f.task(u.ID, p.ID, "design")
	st := f.subTask(u.ID, task.ID, "sketch")

	comment := &models.Comment{Target: models.OnTask(task.ID), Content: "looks good"}
	require.NoError(t, f.store.AddComment(f.ctx, u.ID, comment))
	att := &models.Attachment{Target: models.OnTask(task.ID), FileName: "design.pdf", FilePath: "/files/design.pdf", FileSize: 2048}
	require.NoError(t, f.store.AddAttachment(f.ctx, u.ID, att))

	f.clock.Advance(time.Hour)
	require.NoError(t, f.store.DeleteProject(f.ctx, u.ID, p.ID))

	_, err := f.store.GetProject(f.ctx, p.ID, ReadOptions{})
	assert.ErrorIs(t, err, ErrNotFound)

	deleted, err := f.store.GetProject(f.ctx, p.ID, ReadOptions{IncludeDeleted: true})
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	require.NotNil(t, deleted.DeletedAt)
	assert.True(t, deleted.DeletedAt.Equal(f.clock.Now()))

	_, err = f.store.GetTask(f.ctx, task.ID, ReadOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.store.GetSprint(f.ctx, sp.ID, ReadOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.store.GetSubTask(f.ctx, st.ID, ReadOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
	owners, err := f.store.ListOwners(f.ctx, p.ID, ReadOptions{})
	require.NoError(t, err)
	assert.Empty(t, owners)

	// The task's comments and attachments stay reachable on the administrative path.
	_, err = f.store.ListComments(f.ctx, models.OnTask(task.ID), ReadOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
	comments, err := f.store.ListComments(f.ctx, models.OnTask(task.ID), ReadOptions{IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.False(t, comments[0].IsDeleted)
	atts, err := f.store.ListAttachments(f.ctx, models.OnTask(task.ID), ReadOptions{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, atts, 1)

	assert.Equal(t, []models.ActivityType{models.ActivityCreated, models.ActivityDeleted}, f.audit.actions(models.KindProject))
}

func TestDeleteProjectAuditsCascadedRecords(t *testing.T) {
	f := newFixture(t)
	u := f.user("owner@example.com")
	p := f.project(u.ID, "AUDC")
	sp := &models.Sprint{ProjectID: p.ID, Name: "Sprint 1"}
	require.NoError(t, f.store.CreateSprint(f.ctx, u.ID, sp))
	task := f.task(u.ID, p.ID, "design")
	st := f.subTask(u.ID, task.ID, "sketch")

	f.clock.Advance(time.Hour)
	require.NoError(t, f.store.DeleteProject(f.ctx, u.ID, p.ID))

	deleted := []models.ActivityType{models.ActivityCreated, models.ActivityDeleted}
	for _, kind := range []models.EntityKind{models.KindTask, models.KindSubTask, models.KindSprint, models.KindProjectOwner} {
		assert.Equal(t, deleted, f.audit.actions(kind), kind)
	}

	entry := f.audit.last(models.KindSubTask)
	require.NotNil(t, entry)
	assert.Equal(t, st.ID, entry.EntityID)
	assert.Contains(t, string(entry.OldValues), `"is_deleted":false`)
	assert.Contains(t, string(entry.NewValues), `"is_deleted":true`)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, u.ID, *entry.UserID)
}

func TestDeleteProjectRestrictedByDirectComment(t *testing.T) {
	f := newFixture(t)
	u := f.user("owner@example.com")
	p := f.project(u.ID, "RST")
	c := &models.Comment{Target: models.OnProject(p.ID), Content: "kickoff notes"}
	require.NoError(t, f.store.AddComment(f.ctx, u.ID, c))

	err := f.store.DeleteProject(f.ctx, u.ID, p.ID)
	require.ErrorIs(t, err, ErrRestricted)
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, f.store.DeleteComment(f.ctx, u.ID, c.ID))
	assert.NoError(t, f.store.DeleteProject(f.ctx, u.ID, p.ID))
}

func TestDeleteTaskRestrictedThenCascadesToSubTasks(t *testing.T) {
	f := newFixture(t)
	u := f.user("owner@example.com")
	p := f.project(u.ID, "TSK")
	task := f.task(u.ID, p.ID, "build")
	st := f.subTask(u.ID, task.ID, "wire")
	require.NoError(t, f.store.AssignSubTask(f.ctx, u.ID, &models.SubTaskAssignment{SubTaskID: st.ID, UserID: u.ID}))

	att := &models.Attachment{Target: models.OnTask(task.ID), FileName: "a.png", FilePath: "/a.png", FileSize: 10}
	require.NoError(t, f.store.AddAttachment(f.ctx, u.ID, att))

	err := f.store.DeleteTask(f.ctx, u.ID, task.ID)
	require.ErrorIs(t, err, ErrRestricted)
	assert.Contains(t, Detail(err), "Attachment")

	// Still intact after the refused delete.
	_, err = f.store.GetSubTask(f.ctx, st.ID, ReadOptions{})
	require.NoError(t, err)

	require.NoError(t, f.store.DeleteAttachment(f.ctx, u.ID, att.ID))
	require.NoError(t, f.store.DeleteTask(f.ctx, u.ID, task.ID))

	_, err = f.store.GetSubTask(f.ctx, st.ID, ReadOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
	hidden, err := f.store.GetSubTask(f.ctx, st.ID, ReadOptions{IncludeDeleted: true})
	require.NoError(t, err)
	assert.True(t, hidden.IsDeleted)
	require.NotNil(t, hidden.UpdatedAt)

	var active int64
	require.NoError(t, f.store.DB().Model(&models.SubTaskAssignment{}).Where("is_active = ?", true).Count(&active).Error)
	assert.Zero(t, active)
}

func TestDeleteSprintAndCategorySetNull(t *testing.T) {
	f := newFixture(t)
	u := f.user("owner@example.com")
	p := f.project(u.ID, "NUL")
	sp := &models.Sprint{ProjectID: p.ID, Name: "Sprint 1"}
	require.NoError(t, f.store.CreateSprint(f.ctx, u.ID, sp))
	cat := &models.Category{ProjectID: p.ID, Name: "Backend"}
	require.NoError(t, f.store.CreateCategory(f.ctx, u.ID, cat))

	task := &models.TaskItem{ProjectID: p.ID, Title: "api", SprintID: &sp.ID, CategoryID: &cat.ID}
	require.NoError(t, f.store.CreateTask(f.ctx, u.ID, task))

	f.clock.Advance(time.Minute)
	require.NoError(t, f.store.DeleteSprint(f.ctx, u.ID, sp.ID))
	require.NoError(t, f.store.DeleteCategory(f.ctx, u.ID, cat.ID))

	got, err := f.store.GetTask(f.ctx, task.ID, ReadOptions{})
	require.NoError(t, err)
	assert.Nil(t, got.SprintID)
	assert.Nil(t, got.CategoryID)
	require.NotNil(t, got.UpdatedAt)
	assert.True(t, got.UpdatedAt.Equal(f.clock.Now()))

	cats, err := f.store.ListCategories(f.ctx, p.ID, ReadOptions{})
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestDeleteTagRemovesTaggings(t *testing.T) {
	f := newFixture(t)
	u := f.user("owner@example.com")
	p := f.project(u.ID, "TAG")
	task := f.task(u.ID, p.ID, "label me")
	tag := &models.Tag{ProjectID: p.ID, Name: "urgent"}
	require.NoError(t, f.store.CreateTag(f.ctx, u.ID, tag))

	_, err := f.store.TagTask(f.ctx, u.ID, task.ID, tag.ID)
	require.NoError(t, err)
	_, err = f.store.TagTask(f.ctx, u.ID, task.ID, tag.ID)
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, f.store.DeleteTag(f.ctx, u.ID, tag.ID))
	var n int64
	require.NoError(t, f.store.DB().Model(&models.TaskTag{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestTagFromAnotherProjectIsRejected(t *testing.T) {
	f := newFixture(t)
	u := f.user("owner@example.com")
	a := f.project(u.ID, "ONE")
	b := f.project(u.ID, "TWO")
	task := f.task(u.ID, a.ID, "t")
	tag := &models.Tag{ProjectID: b.ID, Name: "foreign"}
	require.NoError(t, f.store.CreateTag(f.ctx, u.ID, tag))

	_, err := f.store.TagTask(f.ctx, u.ID, task.ID, tag.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeactivateUserCascadesNarrowly(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner@example.com")
	dev := f.user("dev@example.com")
	p := f.project(owner.ID, "USR")
	task := f.task(owner.ID, p.ID, "t")
	require.NoError(t, f.store.AssignTask(f.ctx, owner.ID, &models.TaskAssignment{TaskID: task.ID, UserID: dev.ID}))
	require.NoError(t, f.store.AddOwner(f.ctx, owner.ID, &models.ProjectOwner{ProjectID: p.ID, UserID: dev.ID}))
	require.NoError(t, f.store.Notify(f.ctx, &models.Notification{UserID: dev.ID, Title: "hi", Message: "welcome"}))

	require.NoError(t, f.store.DeactivateUser(f.ctx, owner.ID, dev.ID))

	_, err := f.store.FindUserByID(f.ctx, dev.ID, ReadOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
	inactive, err := f.store.FindUserByEmail(f.ctx, "DEV@example.com", ReadOptions{IncludeDeleted: true})
	require.NoError(t, err)
	assert.False(t, inactive.IsActive)

	got, err := f.store.GetTask(f.ctx, task.ID, ReadOptions{})
	require.NoError(t, err)
	assert.Empty(t, got.Assignments)
	owners, err := f.store.ListOwners(f.ctx, p.ID, ReadOptions{})
	require.NoError(t, err)
	require.Len(t, owners, 1)
	assert.Equal(t, owner.ID, owners[0].UserID)
	inbox, err := f.store.ListNotifications(f.ctx, dev.ID, false, ReadOptions{})
	require.NoError(t, err)
	assert.Empty(t, inbox)

	// Authors keep their content, so deactivation is refused.
	c := &models.Comment{Target: models.OnTask(task.ID), Content: "mine"}
	require.NoError(t, f.store.AddComment(f.ctx, owner.ID, c))
	other := f.user("admin@example.com")
	err = f.store.DeactivateUser(f.ctx, other.ID, owner.ID)
	assert.ErrorIs(t, err, ErrRestricted)
}

func TestEdgesOnlyNameKnownKinds(t *testing.T) {
	for _, e := range Edges {
		_, err := infoFor(e.Parent)
		require.NoError(t, err, "parent %s", e.Parent)
		_, err = infoFor(e.Child)
		require.NoError(t, err, "child %s", e.Child)
		assert.NotEmpty(t, e.Column)
	}
}
