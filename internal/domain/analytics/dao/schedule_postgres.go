package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maksim/chatpulse/internal/domain/analytics/entity"
)

// SchedulePostgres implements ScheduleRepository for PostgreSQL
type SchedulePostgres struct {
	pool *pgxpool.Pool
}

// NewSchedulePostgres creates a new PostgreSQL schedule repository
func NewSchedulePostgres(pool *pgxpool.Pool) *SchedulePostgres {
	return &SchedulePostgres{pool: pool}
}

// Create inserts a new schedule. The interval is stored in seconds.
func (r *SchedulePostgres) Create(ctx context.Context, schedule *entity.Schedule) error {
	query := `
		INSERT INTO schedules (id, name, chat_ids, window_days, interval_seconds, next_run_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		schedule.ID,
		schedule.Name,
		schedule.ChatIDs,
		schedule.WindowDays,
		int64(schedule.Interval/time.Second),
		schedule.NextRunAt,
		schedule.CreatedAt,
		schedule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting schedule: %w", err)
	}

	return nil
}

// GetByID retrieves a schedule by ID
func (r *SchedulePostgres) GetByID(ctx context.Context, id string) (*entity.Schedule, error) {
	query := `
		SELECT id, name, chat_ids, window_days, interval_seconds, next_run_at, created_at, updated_at
		FROM schedules
		WHERE id = $1
	`

	schedule, err := scanSchedule(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning schedule: %w", err)
	}

	return schedule, nil
}

// List retrieves all schedules
func (r *SchedulePostgres) List(ctx context.Context) ([]entity.Schedule, error) {
	query := `
		SELECT id, name, chat_ids, window_days, interval_seconds, next_run_at, created_at, updated_at
		FROM schedules
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying schedules: %w", err)
	}
	defer rows.Close()

	return collectSchedules(rows)
}

// Update updates an existing schedule
func (r *SchedulePostgres) Update(ctx context.Context, schedule *entity.Schedule) error {
	query := `
		UPDATE schedules
		SET name = $2, chat_ids = $3, window_days = $4, interval_seconds = $5, next_run_at = $6, updated_at = $7
		WHERE id = $1
	`

	_, err := r.pool.Exec(ctx, query,
		schedule.ID,
		schedule.Name,
		schedule.ChatIDs,
		schedule.WindowDays,
		int64(schedule.Interval/time.Second),
		schedule.NextRunAt,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("updating schedule: %w", err)
	}

	return nil
}

// Delete removes a schedule
func (r *SchedulePostgres) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM schedules WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting schedule: %w", err)
	}
	return nil
}

// ListDue retrieves schedules whose next run is at or before now
func (r *SchedulePostgres) ListDue(ctx context.Context, now time.Time) ([]entity.Schedule, error) {
	query := `
		SELECT id, name, chat_ids, window_days, interval_seconds, next_run_at, created_at, updated_at
		FROM schedules
		WHERE next_run_at <= $1
		ORDER BY next_run_at ASC
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("querying due schedules: %w", err)
	}
	defer rows.Close()

	return collectSchedules(rows)
}

// MarkRun advances the next run time after a completed run
func (r *SchedulePostgres) MarkRun(ctx context.Context, id string, nextRunAt time.Time) error {
	query := `
		UPDATE schedules
		SET next_run_at = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.pool.Exec(ctx, query, id, nextRunAt, time.Now())
	if err != nil {
		return fmt.Errorf("marking schedule run: %w", err)
	}

	return nil
}

func scanSchedule(row pgx.Row) (*entity.Schedule, error) {
	var schedule entity.Schedule
	var intervalSeconds int64

	err := row.Scan(
		&schedule.ID,
		&schedule.Name,
		&schedule.ChatIDs,
		&schedule.WindowDays,
		&intervalSeconds,
		&schedule.NextRunAt,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	schedule.Interval = time.Duration(intervalSeconds) * time.Second
	return &schedule, nil
}

func collectSchedules(rows pgx.Rows) ([]entity.Schedule, error) {
	var schedules []entity.Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		schedules = append(schedules, *schedule)
	}
	return schedules, nil
}
