package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clover-lab/clover-api/internal/models"
	"github.com/clover-lab/clover-api/internal/stats"
	appErrors "github.com/clover-lab/clover-api/pkg/errors"
	"github.com/clover-lab/clover-api/pkg/export"
	"github.com/clover-lab/clover-api/pkg/jobs"
	"github.com/clover-lab/clover-api/pkg/storage"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	FindByID(ctx context.Context, id string) (*models.ReportJob, error)
	UpdateStatus(ctx context.Context, id string, status models.ReportStatus) error
	MarkFinished(ctx context.Context, id, resultURL string) error
	MarkFailed(ctx context.Context, id, errMessage string) error
	ListByCreator(ctx context.Context, createdBy string, limit int) ([]models.ReportJob, error)
}

type reportEventSource interface {
	ListForStats(ctx context.Context, filter models.ActivityLogFilter) ([]models.ActivityLog, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// ReportRequest describes a report generation request.
type ReportRequest struct {
	Type    models.ReportType   `json:"type"`
	Format  models.ReportFormat `json:"format"`
	UserID  *string             `json:"user_id,omitempty"`
	ClassID *string             `json:"class_id,omitempty"`
	From    *time.Time          `json:"from,omitempty"`
	To      *time.Time          `json:"to,omitempty"`
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// ReportServiceConfig governs export retention and failure handling.
// MaxAttempts must match the worker queue's retry limit so a job is only
// marked FAILED once the queue will no longer retry it.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxAttempts     int
}

// ReportService orchestrates asynchronous report generation: jobs are
// persisted, enqueued onto the in-memory worker pool, rendered to CSV or
// PDF, and served back through signed download URLs.
type ReportService struct {
	repo    reportJobStore
	events  reportEventSource
	queue   jobDispatcher
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	store   *storage.LocalStorage
	signer  *storage.SignedURLSigner
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ReportServiceConfig
}

// NewReportService constructs the report service.
func NewReportService(repo reportJobStore, events reportEventSource, queue jobDispatcher, store *storage.LocalStorage, signer *storage.SignedURLSigner, metrics *MetricsService, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &ReportService{
		repo:    repo,
		events:  events,
		queue:   queue,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		store:   store,
		signer:  signer,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// CreateJob validates the request, persists the job, and enqueues processing.
func (s *ReportService) CreateJob(ctx context.Context, req ReportRequest, actorID string) (*models.ReportJob, error) {
	if req.Type != models.ReportTypeUsage && req.Type != models.ReportTypeProgress {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report type")
	}
	if req.Format != models.ReportFormatCSV && req.Format != models.ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}

	job := &models.ReportJob{
		Type:      req.Type,
		Params:    models.ReportJobParams{UserID: req.UserID, ClassID: req.ClassID, From: req.From, To: req.To, Format: req.Format},
		Status:    models.ReportStatusQueued,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		if markErr := s.repo.MarkFailed(ctx, job.ID, "failed to enqueue job"); markErr != nil {
			s.logger.Warn("failed to mark unqueued job", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return job, nil
}

// GetStatus exposes job metadata to clients, enforcing ownership for
// non-admin callers.
func (s *ReportService) GetStatus(ctx context.Context, id, actorID string, role models.UserRole) (*models.ReportJob, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if role != models.RoleAdmin && job.CreatedBy != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not the job owner")
	}
	return job, nil
}

// ListJobs returns recent jobs created by the actor.
func (s *ReportService) ListJobs(ctx context.Context, actorID string, limit int) ([]models.ReportJob, error) {
	jobsList, err := s.repo.ListByCreator(ctx, actorID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report jobs")
	}
	return jobsList, nil
}

// ResolveDownload validates the signed token and opens the stored file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed, err := s.store.CleanupOlderThan(s.cfg.ResultTTL); err != nil {
					s.logger.Warn("export cleanup failed", zap.Error(err))
				} else if len(removed) > 0 {
					s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
				}
			}
		}
	}()
}

// Handle processes one queued report job. It is the handler wired into the
// worker pool; retries are driven by the queue itself.
func (s *ReportService) Handle(ctx context.Context, job jobs.Job) error {
	record, err := s.repo.FindByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, job.ID, models.ReportStatusProcessing); err != nil {
		return err
	}

	resultURL, err := s.generate(ctx, record)
	if err != nil {
		// the queue retries while attempts remain; FAILED is terminal,
		// so a job headed for another attempt goes back to QUEUED
		if job.Attempt >= s.cfg.MaxAttempts {
			if markErr := s.repo.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
				s.logger.Warn("failed to mark job failed", zap.String("job_id", job.ID), zap.Error(markErr))
			}
			s.metrics.RecordReportJob(string(record.Type), string(models.ReportStatusFailed))
		} else if reqErr := s.repo.UpdateStatus(ctx, job.ID, models.ReportStatusQueued); reqErr != nil {
			s.logger.Warn("failed to requeue job status", zap.String("job_id", job.ID), zap.Error(reqErr))
		}
		return err
	}

	if err := s.repo.MarkFinished(ctx, job.ID, resultURL); err != nil {
		s.logger.Warn("failed to mark job finished", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	s.metrics.RecordReportJob(string(record.Type), string(models.ReportStatusFinished))
	return nil
}

func (s *ReportService) generate(ctx context.Context, job *models.ReportJob) (string, error) {
	filter := models.ActivityLogFilter{From: job.Params.From, To: job.Params.To}
	if job.Params.UserID != nil {
		filter.UserID = *job.Params.UserID
	}
	if job.Params.ClassID != nil {
		filter.ClassID = *job.Params.ClassID
	}

	events, err := s.events.ListForStats(ctx, filter)
	if err != nil {
		return "", fmt.Errorf("load events for report: %w", err)
	}

	var dataset export.Dataset
	var title string
	switch job.Type {
	case models.ReportTypeUsage:
		dataset = usageDataset(events)
		title = "Suggestion Usage Report"
	case models.ReportTypeProgress:
		dataset = progressDataset(events)
		title = "Progress Report"
	default:
		return "", fmt.Errorf("unsupported report type %q", job.Type)
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		return "", fmt.Errorf("unsupported report format %q", job.Params.Format)
	}
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	filename := fmt.Sprintf("%s-%s.%s", job.Type, job.ID, job.Params.Format)
	relPath, err := s.store.Save(filename, payload)
	if err != nil {
		return "", fmt.Errorf("store report: %w", err)
	}

	token, _, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return "", fmt.Errorf("sign report url: %w", err)
	}
	return "/api/v1/reports/download/" + token, nil
}

// usageDataset lists raw events, one row per interaction.
func usageDataset(events []models.ActivityLog) export.Dataset {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		classID := ""
		if e.ClassID != nil {
			classID = *e.ClassID
		}
		hasBug := "false"
		if e.KnownBug() {
			hasBug = "true"
		}
		rows = append(rows, []string{
			e.CreatedAt.UTC().Format(time.RFC3339),
			e.UserID,
			string(e.Event),
			string(e.Mode),
			hasBug,
			classID,
			strconv.Itoa(e.DurationMS),
		})
	}
	return export.Dataset{
		Headers: []string{"created_at", "user_id", "event", "mode", "has_bug", "class_id", "duration_ms"},
		Rows:    rows,
	}
}

// progressDataset renders the acceptance summary plus a weekly breakdown.
func progressDataset(events []models.ActivityLog) export.Dataset {
	summary := stats.Summarize(events)
	points := stats.Bucketize(events, stats.GranularityWeek, stats.RangeFull, time.Now().UTC())

	rows := [][]string{
		{"TOTAL", strconv.Itoa(summary.TotalInteractions), strconv.Itoa(summary.CorrectSuggestions), strconv.FormatFloat(summary.AccuracyPercentage, 'f', 2, 64)},
	}
	for _, p := range points {
		accuracy := ""
		if p.Total > 0 {
			accuracy = strconv.FormatFloat(float64(p.Correct)/float64(p.Total)*100, 'f', 2, 64)
		}
		rows = append(rows, []string{p.BucketKey, strconv.Itoa(p.Total), strconv.Itoa(p.Correct), accuracy})
	}
	return export.Dataset{
		Headers: []string{"week", "interactions", "correct", "accuracy_pct"},
		Rows:    rows,
	}
}
