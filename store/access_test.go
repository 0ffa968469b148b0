package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectflow/models"
)

func TestAuthorize(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner@example.com")
	viewer := f.user("viewer@example.com")
	outsider := f.user("outsider@example.com")
	p := f.project(owner.ID, "ACL")
	require.NoError(t, f.store.AddOwner(f.ctx, owner.ID, &models.ProjectOwner{ProjectID: p.ID, UserID: viewer.ID, Role: models.OwnerRoleViewer}))

	task := f.task(owner.ID, p.ID, "guarded")
	st := f.subTask(owner.ID, task.ID, "nested")
	c := &models.Comment{Target: models.OnSubTask(st.ID), Content: "from the viewer"}
	require.NoError(t, f.store.AddComment(f.ctx, viewer.ID, c))

	for _, tc := range []struct {
		name string
		user uuid.UUID
		kind models.EntityKind
		id   uuid.UUID
		perm Permission
		want error
	}{
		{"owner deletes project", owner.ID, models.KindProject, p.ID, PermDelete, nil},
		{"viewer reads task", viewer.ID, models.KindTask, task.ID, PermView, nil},
		{"viewer comments on subtask", viewer.ID, models.KindSubTask, st.ID, PermContribute, nil},
		{"viewer cannot edit task", viewer.ID, models.KindTask, task.ID, PermEdit, ErrForbidden},
		{"viewer cannot manage members", viewer.ID, models.KindProject, p.ID, PermManageMembers, ErrForbidden},
		{"author edits own comment", viewer.ID, models.KindComment, c.ID, PermAuthorOrEdit, nil},
		{"editor edits any comment", owner.ID, models.KindComment, c.ID, PermAuthorOrEdit, nil},
		{"outsider cannot read", outsider.ID, models.KindSubTask, st.ID, PermView, ErrForbidden},
		{"unknown record", owner.ID, models.KindTask, uuid.New(), PermView, ErrNotFound},
		{"kind without project", owner.ID, models.KindNotification, uuid.New(), PermView, ErrInvalidInput},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := f.store.Authorize(f.ctx, tc.user, tc.kind, tc.id, tc.perm)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAuthorizePublicProjectAndRemovedOwner(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner@example.com")
	member := f.user("member@example.com")
	outsider := f.user("outsider@example.com")
	p := f.project(owner.ID, "PUB")
	require.NoError(t, f.store.AddOwner(f.ctx, owner.ID, &models.ProjectOwner{ProjectID: p.ID, UserID: member.ID, Role: models.OwnerRoleManager}))

	p.IsPublic = true
	require.NoError(t, f.store.UpdateProject(f.ctx, owner.ID, p))
	assert.NoError(t, f.store.Authorize(f.ctx, outsider.ID, models.KindProject, p.ID, PermView))
	assert.ErrorIs(t, f.store.Authorize(f.ctx, outsider.ID, models.KindProject, p.ID, PermContribute), ErrForbidden)

	require.NoError(t, f.store.Authorize(f.ctx, member.ID, models.KindProject, p.ID, PermEdit))
	require.NoError(t, f.store.RemoveOwner(f.ctx, owner.ID, p.ID, member.ID))
	assert.ErrorIs(t, f.store.Authorize(f.ctx, member.ID, models.KindProject, p.ID, PermEdit), ErrForbidden)
}

func TestAddOwnerIgnoresRequestedFlags(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner@example.com")
	viewer := f.user("viewer@example.com")
	p := f.project(owner.ID, "FLAG")

	o := &models.ProjectOwner{ProjectID: p.ID, UserID: viewer.ID, Role: models.OwnerRoleViewer, CanDelete: true, CanManageMembers: true}
	require.NoError(t, f.store.AddOwner(f.ctx, owner.ID, o))
	assert.False(t, o.CanDelete)
	assert.False(t, o.CanManageMembers)
	assert.True(t, o.CanViewReports)
}
