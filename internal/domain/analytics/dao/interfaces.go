package dao

import (
	"context"
	"time"

	"github.com/maksim/chatpulse/internal/domain/analytics/entity"
)

// ListOptions contains pagination options for report history
type ListOptions struct {
	Limit  int
	Offset int
}

// ReportRepository defines the interface for persisted analytics runs
type ReportRepository interface {
	// Create inserts a finished report
	Create(ctx context.Context, report *entity.Report) error

	// GetByID retrieves a report by its ID; (nil, nil) when absent
	GetByID(ctx context.Context, id string) (*entity.Report, error)

	// List retrieves reports newest-first
	List(ctx context.Context, opts ListOptions) ([]entity.Report, error)

	// Delete removes a report by ID
	Delete(ctx context.Context, id string) error
}

// ScheduleRepository defines the interface for recurring report definitions
type ScheduleRepository interface {
	// Create inserts a new schedule
	Create(ctx context.Context, schedule *entity.Schedule) error

	// GetByID retrieves a schedule by its ID; (nil, nil) when absent
	GetByID(ctx context.Context, id string) (*entity.Schedule, error)

	// List retrieves all schedules
	List(ctx context.Context) ([]entity.Schedule, error)

	// Update updates an existing schedule
	Update(ctx context.Context, schedule *entity.Schedule) error

	// Delete removes a schedule by ID
	Delete(ctx context.Context, id string) error

	// ListDue retrieves schedules whose next run is at or before now
	ListDue(ctx context.Context, now time.Time) ([]entity.Schedule, error)

	// MarkRun advances a schedule's next run time after a completed run
	MarkRun(ctx context.Context, id string, nextRunAt time.Time) error
}
