// internal/repository/interfaces.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"robot-service/internal/model"
)

// ErrNotFound is returned when a journal entry does not exist
var ErrNotFound = errors.New("record not found")

// CommandRepository persists the command journal
type CommandRepository interface {
	Create(ctx context.Context, record *model.CommandRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.CommandRecord, error)
	List(ctx context.Context, filter *CommandFilter) ([]*model.CommandRecord, int, error)
	GetStats(ctx context.Context, since *time.Time) (*CommandStats, error)
	DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error)
}

// CommandFilter represents journal listing filters
type CommandFilter struct {
	MotorID       *int                 `json:"motor_id,omitempty"`
	OperationType *model.OperationType `json:"operation_type,omitempty"`
	Status        *model.CommandStatus `json:"status,omitempty"`
	Since         *time.Time           `json:"since,omitempty"`
	Limit         int                  `json:"limit"`
	Offset        int                  `json:"offset"`
}

// Normalize clamps paging to sane bounds
func (f *CommandFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// Matches reports whether record passes the filter
func (f *CommandFilter) Matches(record *model.CommandRecord) bool {
	if f.MotorID != nil && (record.MotorID == nil || *record.MotorID != *f.MotorID) {
		return false
	}
	if f.OperationType != nil && record.OperationType != *f.OperationType {
		return false
	}
	if f.Status != nil && record.Status != *f.Status {
		return false
	}
	if f.Since != nil && record.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// CommandStats summarizes the journal
type CommandStats struct {
	Total       int                         `json:"total"`
	Successful  int                         `json:"successful"`
	Failed      int                         `json:"failed"`
	AvgDuration time.Duration               `json:"average_duration"`
	ByType      map[model.OperationType]int `json:"by_type"`
	ByStatus    map[model.CommandStatus]int `json:"by_status"`
}

func newCommandStats() *CommandStats {
	return &CommandStats{
		ByType:   make(map[model.OperationType]int),
		ByStatus: make(map[model.CommandStatus]int),
	}
}
