package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// TimeLog records hours spent by a user on a task or subtask
type TimeLog struct {
	Base
	SoftDelete

	Target          Target     `gorm:"embedded;embeddedPrefix:target_" json:"target"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Description     string     `gorm:"size:1000" json:"description"`
	WorkDescription string     `gorm:"size:2000" json:"work_description"`
	LogDate         time.Time  `gorm:"not null;index" json:"log_date"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	HoursWorked     float64    `gorm:"not null" json:"hours_worked" validate:"min=0,max=24"`
	IsRunning       bool       `gorm:"not null;default:false;index" json:"is_running"`
	UpdatedAt       *time.Time `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`

	// Billing
	IsBillable      bool     `gorm:"not null;default:false" json:"is_billable"`
	HourlyRate      *float64 `json:"hourly_rate,omitempty" validate:"omitempty,min=0"`
	BillingCategory string   `gorm:"size:50" json:"billing_category"`
	IsManualEntry   bool     `gorm:"not null;default:false" json:"is_manual_entry"`

	// Approval
	IsApproved bool       `gorm:"not null;default:false" json:"is_approved"`
	ApprovedBy *uuid.UUID `gorm:"type:uuid" json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

func (TimeLog) TableName() string { return "time_logs" }
func (*TimeLog) EntityKind() EntityKind { return KindTimeLog }
func (l *TimeLog) Touch(at time.Time, _ bool) { stamp(&l.UpdatedAt, at) }

func (l *TimeLog) References() []Ref {
	return []Ref{l.Target.Ref(), {Kind: KindUser, ID: l.UserID}}
}

func (l *TimeLog) AuditScope() (*uuid.UUID, *uuid.UUID) { return l.Target.scope() }

// ValidTarget reports whether the log hangs off a task or subtask.
func (l *TimeLog) ValidTarget() bool {
	return l.Target.Valid() && l.Target.Kind != TargetProject
}

// IsCurrentlyRunning is true while the timer has no end time.
func (l *TimeLog) IsCurrentlyRunning() bool {
	return l.IsRunning && l.EndTime == nil
}

// CalculatedHours derives the duration from start and end, zero without an end time.
func (l *TimeLog) CalculatedHours() float64 {
	if l.StartTime == nil || l.EndTime == nil || l.EndTime.Before(*l.StartTime) {
		return 0
	}
	return roundTo(l.EndTime.Sub(*l.StartTime).Hours(), 2)
}

// CalculatedCost is hours worked times the rate, zero without a rate.
func (l *TimeLog) CalculatedCost() float64 {
	if l.HourlyRate == nil {
		return 0
	}
	return l.HoursWorked * *l.HourlyRate
}

// Stop ends a running timer and records the worked hours.
func (l *TimeLog) Stop(at time.Time) {
	stamp(&l.EndTime, at)
	l.IsRunning = false
	l.HoursWorked = l.CalculatedHours()
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
