package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"projectflow/models"
)

func timeLogTarget(op string, l *models.TimeLog) error {
	if !l.ValidTarget() {
		return invalid(op, models.KindTimeLog, "time logs attach to a task or subtask")
	}
	return nil
}

// StartTimer opens a running time log. A user runs at most one timer at a time.
func (s *Store) StartTimer(ctx context.Context, actor uuid.UUID, target models.Target, description string) (*models.TimeLog, error) {
	const op = "StartTimer"
	now := s.now()
	l := &models.TimeLog{
		Target:      target,
		UserID:      actor,
		Description: description,
		LogDate:     now,
		StartTime:   &now,
		IsRunning:   true,
	}
	if err := timeLogTarget(op, l); err != nil {
		return nil, err
	}
	err := s.Begin(&actor).Create(l).Check(func(tx *gorm.DB) error {
		var n int64
		err := hideDeleted(tx.Model(&models.TimeLog{}), models.KindTimeLog).
			Where("user_id = ? AND is_running = ?", actor, true).
			Count(&n).Error
		if err != nil {
			return translate(op, models.KindTimeLog, err)
		}
		if n > 1 {
			return conflict(op, models.KindTimeLog, "a timer is already running")
		}
		return nil
	}).Commit(ctx)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// StopTimer closes a running timer and records the hours worked.
func (s *Store) StopTimer(ctx context.Context, actor, id uuid.UUID) (*models.TimeLog, error) {
	const op = "StopTimer"
	var l models.TimeLog
	if err := s.load(ctx, op, &l, id, ReadOptions{}); err != nil {
		return nil, err
	}
	if !l.IsCurrentlyRunning() {
		return nil, conflict(op, models.KindTimeLog, "timer is not running")
	}
	l.Stop(s.now())
	if err := s.Begin(&actor).Update(&l).Commit(ctx); err != nil {
		return nil, err
	}
	return &l, nil
}

// LogTime records a manual entry.
func (s *Store) LogTime(ctx context.Context, actor uuid.UUID, l *models.TimeLog) error {
	const op = "LogTime"
	if err := timeLogTarget(op, l); err != nil {
		return err
	}
	if l.StartTime != nil && l.EndTime != nil {
		l.HoursWorked = l.CalculatedHours()
	}
	if l.HoursWorked <= 0 || l.HoursWorked > 24 {
		return invalid(op, models.KindTimeLog, "hours worked must be between 0 and 24")
	}
	if l.HourlyRate != nil && *l.HourlyRate < 0 {
		return invalid(op, models.KindTimeLog, "hourly rate cannot be negative")
	}
	if l.LogDate.IsZero() {
		l.LogDate = s.now()
	}
	l.UserID = actor
	l.IsManualEntry = true
	l.IsRunning = false
	return s.Begin(&actor).Create(l).Commit(ctx)
}

func (s *Store) UpdateTimeLog(ctx context.Context, actor uuid.UUID, l *models.TimeLog) error {
	const op = "UpdateTimeLog"
	if err := timeLogTarget(op, l); err != nil {
		return err
	}
	if l.IsRunning && l.EndTime != nil {
		return invalid(op, models.KindTimeLog, "a running timer has no end time")
	}
	var stored models.TimeLog
	if err := s.load(ctx, op, &stored, l.ID, ReadOptions{}); err != nil {
		return err
	}
	if l.IsRunning && !stored.IsRunning {
		return invalid(op, models.KindTimeLog, "a stopped time log cannot be restarted")
	}
	return s.Begin(&actor).Update(l).Commit(ctx)
}

// ApproveTimeLog marks an entry approved by actor.
func (s *Store) ApproveTimeLog(ctx context.Context, actor, id uuid.UUID) (*models.TimeLog, error) {
	var l models.TimeLog
	if err := s.load(ctx, "ApproveTimeLog", &l, id, ReadOptions{}); err != nil {
		return nil, err
	}
	l.IsApproved = true
	l.ApprovedBy = &actor
	l.ApprovedAt = ptrTime(s.now())
	if err := s.Begin(&actor).Update(&l).Commit(ctx); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) GetTimeLog(ctx context.Context, id uuid.UUID, opts ReadOptions) (*models.TimeLog, error) {
	var l models.TimeLog
	if err := s.load(ctx, "GetTimeLog", &l, id, opts); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) DeleteTimeLog(ctx context.Context, actor, id uuid.UUID) error {
	return s.deleteByID(ctx, actor, models.KindTimeLog, id)
}

func (s *Store) ListTimeLogs(ctx context.Context, target models.Target, opts ReadOptions) ([]models.TimeLog, error) {
	const op = "ListTimeLogs"
	if err := s.requireTarget(ctx, op, target, opts); err != nil {
		return nil, err
	}
	var out []models.TimeLog
	err := s.read(ctx, models.KindTimeLog, opts).
		Where("target_kind = ? AND target_id = ?", target.Kind, target.ID).
		Order("log_date DESC").
		Find(&out).Error
	return out, translate(op, models.KindTimeLog, err)
}
