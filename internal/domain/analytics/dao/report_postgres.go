package dao

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maksim/chatpulse/internal/domain/analytics/entity"
)

// ReportPostgres implements ReportRepository for PostgreSQL
type ReportPostgres struct {
	pool *pgxpool.Pool
}

// NewReportPostgres creates a new PostgreSQL report repository
func NewReportPostgres(pool *pgxpool.Pool) *ReportPostgres {
	return &ReportPostgres{pool: pool}
}

// Create inserts a finished report. The computed result is stored as JSONB so
// history reads never recompute anything.
func (r *ReportPostgres) Create(ctx context.Context, report *entity.Report) error {
	result, err := json.Marshal(report.Result)
	if err != nil {
		return fmt.Errorf("encoding report result: %w", err)
	}

	query := `
		INSERT INTO reports (id, kind, chat_ids, message_ids, range_from, range_to, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.pool.Exec(ctx, query,
		report.ID,
		report.Kind,
		report.ChatIDs,
		report.MessageIDs,
		report.DateRange.From,
		report.DateRange.To,
		result,
		report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting report: %w", err)
	}

	return nil
}

// GetByID retrieves a report by ID
func (r *ReportPostgres) GetByID(ctx context.Context, id string) (*entity.Report, error) {
	query := `
		SELECT id, kind, chat_ids, message_ids, range_from, range_to, result, created_at
		FROM reports
		WHERE id = $1
	`

	report, err := scanReport(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning report: %w", err)
	}

	return report, nil
}

// List retrieves reports newest-first
func (r *ReportPostgres) List(ctx context.Context, opts ListOptions) ([]entity.Report, error) {
	query := `
		SELECT id, kind, chat_ids, message_ids, range_from, range_to, result, created_at
		FROM reports
		ORDER BY created_at DESC
	`
	args := []interface{}{}
	argNum := 1

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, opts.Limit)
		argNum++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, opts.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	var reports []entity.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		reports = append(reports, *report)
	}

	return reports, nil
}

// Delete removes a report
func (r *ReportPostgres) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM reports WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting report: %w", err)
	}
	return nil
}

func scanReport(row pgx.Row) (*entity.Report, error) {
	var report entity.Report
	var result []byte

	err := row.Scan(
		&report.ID,
		&report.Kind,
		&report.ChatIDs,
		&report.MessageIDs,
		&report.DateRange.From,
		&report.DateRange.To,
		&result,
		&report.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(result, &report.Result); err != nil {
		return nil, fmt.Errorf("decoding report result: %w", err)
	}

	return &report, nil
}
