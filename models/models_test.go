package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func TestProjectCompletionRate(t *testing.T) {
	p := &Project{}
	assert.Equal(t, 0.0, p.CompletionRate(), "empty project")

	p.Tasks = []TaskItem{{Status: TaskDone}, {Status: TaskInProgress}, {Status: TaskDone}, {Status: TaskCancelled}}
	assert.Equal(t, 4, p.TotalTasks())
	assert.Equal(t, 2, p.CompletedTasks())
	assert.Equal(t, 50.0, p.CompletionRate())

	p.Tasks = []TaskItem{{Status: TaskDone}}
	assert.Equal(t, 100.0, p.CompletionRate())
}

func TestProjectIsOverdue(t *testing.T) {
	tests := []struct {
		name   string
		end    time.Time
		status ProjectStatus
		want   bool
	}{
		{"past and active", now.Add(-time.Hour), ProjectActive, true},
		{"past and completed", now.Add(-time.Hour), ProjectCompleted, false},
		{"past and cancelled", now.Add(-time.Hour), ProjectCancelled, false},
		{"future", now.Add(time.Hour), ProjectActive, false},
		{"no end date", time.Time{}, ProjectActive, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Project{EndDate: tt.end, Status: tt.status}
			assert.Equal(t, tt.want, p.IsOverdue(now))
		})
	}
}

func TestProjectBudgetVariance(t *testing.T) {
	p := &Project{Budget: ptr(1000.0)}
	assert.Equal(t, 0.0, p.BudgetVariance())
	p.ActualCost = ptr(250.0)
	assert.Equal(t, 750.0, p.BudgetVariance())
}

func TestTaskIsOverdue(t *testing.T) {
	past, future := now.Add(-24*time.Hour), now.Add(24*time.Hour)
	for _, status := range []TaskStatus{TaskNotStarted, TaskToDo, TaskInProgress, TaskReview, TaskTesting, TaskBlocked} {
		assert.True(t, (&TaskItem{EndDate: &past, Status: status}).IsOverdue(now), status)
		assert.True(t, (&SubTask{EndDate: &past, Status: status}).IsOverdue(now), status)
	}
	for _, status := range []TaskStatus{TaskDone, TaskCancelled} {
		assert.False(t, (&TaskItem{EndDate: &past, Status: status}).IsOverdue(now), status)
		assert.False(t, (&SubTask{EndDate: &past, Status: status}).IsOverdue(now), status)
	}
	assert.False(t, (&TaskItem{EndDate: &future, Status: TaskInProgress}).IsOverdue(now))
	assert.False(t, (&TaskItem{Status: TaskInProgress}).IsOverdue(now))
}

func TestTaskProgress(t *testing.T) {
	task := &TaskItem{Progress: 40}
	assert.Equal(t, 0.0, task.SubTaskCompletionRate())
	assert.Equal(t, 40.0, task.ProgressPercentage())

	task.SubTasks = []SubTask{{Status: TaskDone}, {Status: TaskToDo}, {Status: TaskDone}, {Status: TaskDone}}
	assert.Equal(t, 3, task.CompletedSubTasks())
	assert.Equal(t, 75.0, task.ProgressPercentage())

	end := now.Add(90 * time.Minute)
	task.EndDate = &end
	assert.Equal(t, 90*time.Minute, task.RemainingTime(now))
	assert.Zero(t, task.RemainingTime(end.Add(time.Second)))
}

func TestSprintDerivedValues(t *testing.T) {
	s := &Sprint{
		StartDate:            now.Add(-10 * 24 * time.Hour),
		EndDate:              now,
		Status:               SprintCompleted,
		TotalStoryPoints:     40,
		CompletedStoryPoints: 30,
	}
	assert.Equal(t, 10, s.TotalDays())
	assert.Equal(t, 3.0, s.Velocity())
	assert.Equal(t, 75.0, s.ProgressPercentage())
	assert.False(t, s.IsOverdue(now.Add(time.Hour)), "completed sprints are never overdue")

	s.Status = SprintActive
	assert.Equal(t, 0.0, s.Velocity())
	assert.True(t, s.IsOverdue(now.Add(time.Hour)))
	assert.Equal(t, 2, s.DaysRemaining(now.Add(-36*time.Hour)))
	assert.Equal(t, 0, s.DaysRemaining(now.Add(time.Hour)))

	assert.Equal(t, 0.0, (&Sprint{}).ProgressPercentage())
}

func TestTimeLogCost(t *testing.T) {
	l := &TimeLog{HoursWorked: 4, HourlyRate: ptr(50.0)}
	assert.Equal(t, 200.0, l.CalculatedCost())

	l.HourlyRate = nil
	assert.Equal(t, 0.0, l.CalculatedCost())
}

func TestTimeLogTimer(t *testing.T) {
	start := now.Add(-150 * time.Minute)
	l := &TimeLog{StartTime: &start, IsRunning: true}
	assert.True(t, l.IsCurrentlyRunning())
	assert.Equal(t, 0.0, l.CalculatedHours(), "no end time yet")

	l.Stop(now)
	assert.False(t, l.IsCurrentlyRunning())
	assert.Equal(t, 2.5, l.CalculatedHours())
	assert.Equal(t, 2.5, l.HoursWorked)
}

func TestTimeLogTargets(t *testing.T) {
	id := uuid.New()
	assert.True(t, (&TimeLog{Target: OnTask(id)}).ValidTarget())
	assert.True(t, (&TimeLog{Target: OnSubTask(id)}).ValidTarget())
	assert.False(t, (&TimeLog{Target: OnProject(id)}).ValidTarget())
	assert.False(t, (&TimeLog{Target: OnTask(uuid.Nil)}).ValidTarget())
	assert.False(t, Target{Kind: "Sprint", ID: id}.Valid())
}

func TestCommentTouch(t *testing.T) {
	c := &Comment{}
	c.Touch(now, true)
	assert.False(t, c.IsEdited, "deletion is not an edit")
	require.NotNil(t, c.UpdatedAt)

	later := now.Add(time.Minute)
	c.Touch(later, false)
	assert.True(t, c.IsEdited)
	assert.Equal(t, later, *c.UpdatedAt)
}

func TestCommentReplies(t *testing.T) {
	parent := uuid.New()
	c := &Comment{Replies: []Comment{{ParentCommentID: &parent}, {SoftDelete: SoftDelete{IsDeleted: true}}}}
	assert.False(t, c.IsReply())
	assert.True(t, c.Replies[0].IsReply())
	assert.Equal(t, 1, c.ReplyCount())
}

func TestFormatFileSize(t *testing.T) {
	tests := map[int64]string{
		0:       "0 B",
		512:     "512 B",
		1024:    "1 KB",
		1536:    "1.5 KB",
		1234567: "1.18 MB",
		5 << 30: "5 GB",
		3 << 40: "3 TB",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatFileSize(in), in)
	}
}

func TestAttachmentKinds(t *testing.T) {
	a := &Attachment{FileName: "Report.PDF"}
	assert.Equal(t, ".pdf", a.FileExtension())
	assert.True(t, a.IsDocument())
	assert.False(t, a.IsImage())

	assert.True(t, (&Attachment{FileName: "logo", ContentType: "image/png"}).IsImage())
	assert.True(t, (&Attachment{FileName: "src.tar"}).IsArchive())
}

func TestNotificationMarkReadIsMonotonic(t *testing.T) {
	n := &Notification{Base: Base{CreatedAt: now}}
	assert.True(t, n.IsUnread())
	assert.True(t, n.MarkRead(now.Add(time.Minute)))
	first := *n.ReadAt

	assert.False(t, n.MarkRead(now.Add(time.Hour)))
	assert.Equal(t, first, *n.ReadAt)
	assert.False(t, n.IsUnread())
	assert.Equal(t, time.Hour, n.Age(now.Add(time.Hour)))
}

func TestCredentialsLockout(t *testing.T) {
	var c Credentials
	for i := 0; i < 4; i++ {
		assert.False(t, c.RegisterFailure(now, 5, 30*time.Minute))
	}
	assert.True(t, c.RegisterFailure(now, 5, 30*time.Minute))
	assert.Equal(t, 0, c.AccessFailedCount)
	assert.True(t, c.IsLockedOut(now.Add(29*time.Minute)))
	assert.False(t, c.IsLockedOut(now.Add(30*time.Minute)))

	c.RegisterSuccess()
	assert.Nil(t, c.LockoutEnd)
}

func TestCredentialsTokens(t *testing.T) {
	var c Credentials
	assert.False(t, c.ResetTokenMatches("abc", now))

	c.SetResetToken("abc", now.Add(time.Hour))
	assert.True(t, c.ResetTokenMatches("abc", now))
	assert.False(t, c.ResetTokenMatches("abd", now))
	assert.False(t, c.ResetTokenMatches("abc", now.Add(2*time.Hour)))

	c.ClearResetToken()
	assert.False(t, c.ResetTokenMatches("abc", now))

	c.SetPassword("hash")
	assert.Equal(t, 1, c.TokenVersion)
}

func TestUserProfile(t *testing.T) {
	u := &User{Email: "ada@example.com", Profile: Profile{FirstName: "ada", LastName: "Lovelace"}}
	var p Profileable = u
	var a Authenticatable = u

	assert.Equal(t, "ada Lovelace", p.FullName())
	assert.Equal(t, "AL", p.Initials())
	assert.Equal(t, "ada@example.com", a.LoginEmail())
	assert.Equal(t, "ada@example.com", (&User{Email: "ada@example.com"}).DisplayName())
	assert.Equal(t, "ada@example.com", NormalizeEmail("  Ada@Example.COM "))
}

func TestOwnerDefaults(t *testing.T) {
	o := &ProjectOwner{Role: OwnerRoleViewer}
	o.GrantDefaults()
	want := ProjectOwner{Role: OwnerRoleViewer, CanViewReports: true}
	if diff := cmp.Diff(want, *o); diff != "" {
		t.Errorf("viewer permissions (-want +got):\n%s", diff)
	}
}

func TestReferences(t *testing.T) {
	project, sprint := uuid.New(), uuid.New()
	task := &TaskItem{ProjectID: project, SprintID: &sprint}
	want := []Ref{{Kind: KindProject, ID: project}, {Kind: KindSprint, ID: sprint}}
	if diff := cmp.Diff(want, task.References()); diff != "" {
		t.Errorf("task references (-want +got):\n%s", diff)
	}

	c := &Comment{Target: OnSubTask(sprint), AuthorID: project}
	assert.Equal(t, []Ref{{Kind: KindSubTask, ID: sprint}, {Kind: KindUser, ID: project}}, c.References())
}

func TestDerivedValuesInJSON(t *testing.T) {
	saved := Clock
	Clock = func() time.Time { return now }
	t.Cleanup(func() { Clock = saved })

	decode := func(v interface{}) map[string]interface{} {
		t.Helper()
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &out))
		return out
	}

	p := decode(Project{
		Name:    "Apollo",
		Status:  ProjectActive,
		EndDate: now.Add(-time.Hour),
		Tasks:   []TaskItem{{Status: TaskDone}, {Status: TaskToDo}},
	})
	assert.Equal(t, "Apollo", p["name"])
	assert.Equal(t, 50.0, p["completion_rate"])
	assert.Equal(t, 2.0, p["total_tasks"])
	assert.Equal(t, true, p["is_overdue"])
	tasks := p["tasks"].([]interface{})
	assert.Contains(t, tasks[0], "progress_percentage", "nested tasks carry their own values")

	task := decode(&TaskItem{Status: TaskDone, Progress: 40})
	assert.Equal(t, 40.0, task["progress"])
	assert.Equal(t, 40.0, task["progress_percentage"])
	assert.Equal(t, true, task["is_completed"])

	l := decode(TimeLog{HoursWorked: 2.5, HourlyRate: ptr(40.0)})
	assert.Equal(t, 100.0, l["calculated_cost"])
	assert.Equal(t, false, l["is_currently_running"])

	a := decode(Attachment{FileName: "scan.PNG", FileSize: 2048})
	assert.Equal(t, "2 KB", a["file_size_formatted"])
	assert.Equal(t, true, a["is_image"])

	u := decode(User{Email: "ada@example.com", Profile: Profile{FirstName: "Ada", LastName: "Lovelace"}})
	assert.Equal(t, "Ada Lovelace", u["full_name"])
	assert.Equal(t, "AL", u["initials"])
}

func TestStoredJSONOmitsDerivedValues(t *testing.T) {
	raw, err := TaskItem{Title: "Write docs"}.StoredJSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"title":"Write docs"`)
	assert.NotContains(t, string(raw), "progress_percentage")
}
