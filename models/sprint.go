package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Sprint is a time box inside a project
type Sprint struct {
	Base
	SoftDelete

	ProjectID uuid.UUID    `gorm:"type:uuid;not null;index" json:"project_id"`
	Name      string       `gorm:"size:100;not null" json:"name" validate:"required,max=100"`
	Goal      string       `gorm:"size:1000" json:"goal" validate:"max=1000"`
	StartDate time.Time    `gorm:"not null" json:"start_date"`
	EndDate   time.Time    `gorm:"not null" json:"end_date"`
	Status    SprintStatus `gorm:"size:20;not null" json:"status"`

	// Planning
	PlannedVelocity      int `json:"planned_velocity"`
	ActualVelocity       int `json:"actual_velocity"`
	TotalStoryPoints     int `json:"total_story_points"`
	CompletedStoryPoints int `json:"completed_story_points"`

	Tasks []TaskItem `gorm:"foreignKey:SprintID" json:"tasks,omitempty"`
}

func (Sprint) TableName() string { return "sprints" }
func (*Sprint) EntityKind() EntityKind { return KindSprint }

func (s *Sprint) References() []Ref { return []Ref{{Kind: KindProject, ID: s.ProjectID}} }

func (s *Sprint) AuditScope() (*uuid.UUID, *uuid.UUID) {
	id := s.ProjectID
	return &id, nil
}

func (s *Sprint) IsActive() bool { return s.Status == SprintActive }

// IsOverdue is only meaningful for a running sprint.
func (s *Sprint) IsOverdue(now time.Time) bool {
	return s.IsActive() && pastDue(s.EndDate, now)
}

func (s *Sprint) ProgressPercentage() float64 {
	return percent(float64(s.CompletedStoryPoints), float64(s.TotalStoryPoints))
}

// TotalDays is the sprint length in whole days.
func (s *Sprint) TotalDays() int {
	if s.EndDate.Before(s.StartDate) {
		return 0
	}
	return int(s.EndDate.Sub(s.StartDate).Hours() / 24)
}

// DaysRemaining never goes below zero.
func (s *Sprint) DaysRemaining(now time.Time) int {
	if !s.EndDate.After(now) {
		return 0
	}
	return int(math.Ceil(s.EndDate.Sub(now).Hours() / 24))
}

// Velocity is completed story points per day, reported once the sprint is completed.
func (s *Sprint) Velocity() float64 {
	days := s.TotalDays()
	if s.Status != SprintCompleted || days == 0 {
		return 0
	}
	return float64(s.CompletedStoryPoints) / float64(days)
}
