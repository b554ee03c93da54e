package policy

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/maksim/chatpulse/internal/domain/analytics/dao"
	"github.com/maksim/chatpulse/internal/domain/analytics/entity"
	"github.com/maksim/chatpulse/internal/domain/analytics/service"
	"github.com/maksim/chatpulse/internal/export"
)

// AnalyticsService defines the interface for running analytics computations.
// This interface is defined here (consumer) not in the service package (provider)
type AnalyticsService interface {
	RunAnalytics(ctx context.Context, chatIDs []int64, rng entity.DateRange, onProgress service.ProgressFunc) (*entity.AnalyticsResult, error)
	RunAnalyticsForMessages(ctx context.Context, messageIDs []int64) (*entity.AnalyticsResult, error)
	RunComparison(ctx context.Context, current *entity.AnalyticsResult, chatIDs []int64, rng entity.DateRange, onProgress service.ProgressFunc) (*entity.AnalyticsResult, error)
}

// ResultCache caches finished results keyed by chats and range
type ResultCache interface {
	GetResult(ctx context.Context, chatIDs []int64, rng entity.DateRange) (*entity.AnalyticsResult, error)
	SetResult(ctx context.Context, chatIDs []int64, rng entity.DateRange, result *entity.AnalyticsResult) error
}

// ExportStorage uploads generated export files
type ExportStorage interface {
	Upload(ctx context.Context, in StorageUploadInput) (*StorageUploadOutput, error)
}

// StorageUploadInput represents input for uploading an export
type StorageUploadInput struct {
	Body        *bytes.Buffer
	ContentType string
	Filename    string
}

// StorageUploadOutput represents output from uploading an export
type StorageUploadOutput struct {
	Key string
	URL string
}

// Policy orchestrates analytics use-cases
type Policy struct {
	svc       AnalyticsService
	reports   dao.ReportRepository
	schedules dao.ScheduleRepository
	cache     ResultCache
	storage   ExportStorage
	logger    *slog.Logger
}

// New creates a new analytics policy
func New(svc AnalyticsService, reports dao.ReportRepository, schedules dao.ScheduleRepository, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{
		svc:       svc,
		reports:   reports,
		schedules: schedules,
		logger:    logger,
	}
}

// WithCache attaches a result cache. Without one every run recomputes.
func (p *Policy) WithCache(cache ResultCache) *Policy {
	p.cache = cache
	return p
}

// WithExportStorage attaches export upload storage. Without one exports are
// download-only.
func (p *Policy) WithExportStorage(storage ExportStorage) *Policy {
	p.storage = storage
	return p
}

// RunAnalyticsInput represents input for a chat-range analytics run
type RunAnalyticsInput struct {
	ChatIDs    []int64
	DateRange  entity.DateRange
	OnProgress service.ProgressFunc
}

// RunAnalyticsOutput represents output from an analytics run
type RunAnalyticsOutput struct {
	ReportID string
	Result   *entity.AnalyticsResult
	Cached   bool
}

// RunAnalytics runs the engagement computation over chats and a range, serves
// a cached result when one exists, and persists every fresh run as a report.
func (p *Policy) RunAnalytics(ctx context.Context, in RunAnalyticsInput) (*RunAnalyticsOutput, error) {
	if p.cache != nil {
		cached, err := p.cache.GetResult(ctx, in.ChatIDs, in.DateRange)
		if err != nil {
			p.logger.Warn("cache read failed", "error", err)
		}
		if cached != nil {
			return &RunAnalyticsOutput{Result: cached, Cached: true}, nil
		}
	}

	result, err := p.svc.RunAnalytics(ctx, in.ChatIDs, in.DateRange, in.OnProgress)
	if err != nil {
		return nil, err
	}

	reportID, err := p.persistReport(ctx, entity.ReportKindChats, in.ChatIDs, nil, in.DateRange, result)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if err := p.cache.SetResult(ctx, in.ChatIDs, in.DateRange, result); err != nil {
			p.logger.Warn("cache write failed", "error", err)
		}
	}

	return &RunAnalyticsOutput{ReportID: reportID, Result: result}, nil
}

// RunForMessagesInput represents input for a message-set analytics run
type RunForMessagesInput struct {
	MessageIDs []int64
}

// RunForMessages runs the computation over an explicit message set. These
// runs are never cached; the set has no stable range key.
func (p *Policy) RunForMessages(ctx context.Context, in RunForMessagesInput) (*RunAnalyticsOutput, error) {
	result, err := p.svc.RunAnalyticsForMessages(ctx, in.MessageIDs)
	if err != nil {
		return nil, err
	}

	reportID, err := p.persistReport(ctx, entity.ReportKindMessages, nil, in.MessageIDs, entity.DateRange{}, result)
	if err != nil {
		return nil, err
	}

	return &RunAnalyticsOutput{ReportID: reportID, Result: result}, nil
}

// CompareInput represents input for a period comparison run
type CompareInput struct {
	ChatIDs      []int64
	DateRange    entity.DateRange
	CompareRange entity.DateRange
	OnProgress   service.ProgressFunc
}

// Compare runs the primary range and a comparison range and returns the
// primary result with deltas attached.
func (p *Policy) Compare(ctx context.Context, in CompareInput) (*RunAnalyticsOutput, error) {
	if in.CompareRange.From.After(in.CompareRange.To) {
		return nil, entity.ErrInvalidDateRange
	}

	current, err := p.svc.RunAnalytics(ctx, in.ChatIDs, in.DateRange, in.OnProgress)
	if err != nil {
		return nil, err
	}

	result, err := p.svc.RunComparison(ctx, current, in.ChatIDs, in.CompareRange, nil)
	if err != nil {
		return nil, err
	}

	reportID, err := p.persistReport(ctx, entity.ReportKindChats, in.ChatIDs, nil, in.DateRange, result)
	if err != nil {
		return nil, err
	}

	return &RunAnalyticsOutput{ReportID: reportID, Result: result}, nil
}

// Report retrieves a persisted report by ID.
func (p *Policy) Report(ctx context.Context, id string) (*entity.Report, error) {
	report, err := p.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, entity.ErrReportNotFound
	}
	return report, nil
}

// ReportsInput represents input for listing report history
type ReportsInput struct {
	Limit  int
	Offset int
}

// Reports lists persisted reports newest-first.
func (p *Policy) Reports(ctx context.Context, in ReportsInput) ([]entity.Report, error) {
	if in.Limit <= 0 || in.Limit > 100 {
		in.Limit = 20
	}
	return p.reports.List(ctx, dao.ListOptions{Limit: in.Limit, Offset: in.Offset})
}

// DeleteReport removes a persisted report.
func (p *Policy) DeleteReport(ctx context.Context, id string) error {
	report, err := p.reports.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if report == nil {
		return entity.ErrReportNotFound
	}
	return p.reports.Delete(ctx, id)
}

// ExportOutput represents a generated export file
type ExportOutput struct {
	Filename    string
	ContentType string
	Body        *bytes.Buffer
	URL         string // set when export storage is configured
}

// ExportReport renders a persisted report as an xlsx workbook and, when
// storage is configured, uploads it and returns the public URL.
func (p *Policy) ExportReport(ctx context.Context, id string) (*ExportOutput, error) {
	report, err := p.Report(ctx, id)
	if err != nil {
		return nil, err
	}

	buf, err := export.BuildWorkbook(&report.Result)
	if err != nil {
		return nil, err
	}

	out := &ExportOutput{
		Filename:    export.FileName(time.Now()),
		ContentType: export.ContentType,
		Body:        buf,
	}

	if p.storage != nil {
		uploaded, err := p.storage.Upload(ctx, StorageUploadInput{
			Body:        bytes.NewBuffer(buf.Bytes()),
			ContentType: export.ContentType,
			Filename:    out.Filename,
		})
		if err != nil {
			return nil, err
		}
		out.URL = uploaded.URL
	}

	return out, nil
}

// CreateScheduleInput represents input for creating a recurring report
type CreateScheduleInput struct {
	Name       string
	ChatIDs    []int64
	WindowDays int
	Interval   time.Duration
}

// CreateSchedule registers a recurring analytics run.
func (p *Policy) CreateSchedule(ctx context.Context, in CreateScheduleInput) (*entity.Schedule, error) {
	now := time.Now()
	schedule := &entity.Schedule{
		ID:         uuid.New().String(),
		Name:       in.Name,
		ChatIDs:    in.ChatIDs,
		WindowDays: in.WindowDays,
		Interval:   in.Interval,
		NextRunAt:  now.Add(in.Interval),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	if err := p.schedules.Create(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// Schedule retrieves a schedule by ID.
func (p *Policy) Schedule(ctx context.Context, id string) (*entity.Schedule, error) {
	schedule, err := p.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, entity.ErrScheduleNotFound
	}
	return schedule, nil
}

// Schedules lists all registered schedules.
func (p *Policy) Schedules(ctx context.Context) ([]entity.Schedule, error) {
	return p.schedules.List(ctx)
}

// DeleteSchedule removes a schedule.
func (p *Policy) DeleteSchedule(ctx context.Context, id string) error {
	schedule, err := p.schedules.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if schedule == nil {
		return entity.ErrScheduleNotFound
	}
	return p.schedules.Delete(ctx, id)
}

// ProcessDueSchedules runs every schedule whose next run has arrived. Each
// run covers the schedule's sliding window ending today. A failing run is
// logged and the schedule is still advanced so one broken chat cannot wedge
// the queue.
func (p *Policy) ProcessDueSchedules(ctx context.Context) error {
	now := time.Now()
	due, err := p.schedules.ListDue(ctx, now)
	if err != nil {
		return err
	}

	for _, schedule := range due {
		rng := entity.DateRange{
			From: now.AddDate(0, 0, -(schedule.WindowDays - 1)),
			To:   now,
		}
		if _, err := p.RunAnalytics(ctx, RunAnalyticsInput{ChatIDs: schedule.ChatIDs, DateRange: rng}); err != nil {
			p.logger.Error("scheduled run failed", "schedule_id", schedule.ID, "error", err)
		}
		if err := p.schedules.MarkRun(ctx, schedule.ID, now.Add(schedule.Interval)); err != nil {
			return err
		}
	}

	return nil
}

func (p *Policy) persistReport(ctx context.Context, kind entity.ReportKind, chatIDs, messageIDs []int64, rng entity.DateRange, result *entity.AnalyticsResult) (string, error) {
	report := &entity.Report{
		ID:         uuid.New().String(),
		Kind:       kind,
		ChatIDs:    chatIDs,
		MessageIDs: messageIDs,
		DateRange:  rng,
		Result:     *result,
		CreatedAt:  time.Now(),
	}
	if err := p.reports.Create(ctx, report); err != nil {
		return "", err
	}
	return report.ID, nil
}
