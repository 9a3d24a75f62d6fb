package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/andile-m/brightclass-api/internal/models"
	appErrors "github.com/andile-m/brightclass-api/pkg/errors"
	"github.com/andile-m/brightclass-api/pkg/export"
)

type liveClassRepository interface {
	Create(ctx context.Context, class *models.LiveClass) error
	FindDetailByID(ctx context.Context, id string) (*models.LiveClassDetail, error)
	ListUpcomingForStudent(ctx context.Context, studentID string, now time.Time) ([]models.LiveClassDetail, error)
	ListUpcomingForInstructor(ctx context.Context, instructorID string, now time.Time) ([]models.LiveClassDetail, error)
	Update(ctx context.Context, class *models.LiveClass, replaceRoster bool) error
	Delete(ctx context.Context, id string) error
}

// CreateLiveClassRequest describes the payload for scheduling a live class.
// The instructor is always the authenticated caller, never a body field.
type CreateLiveClassRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"startTime" validate:"required"`
	EndTime     time.Time `json:"endTime" validate:"required"`
	MeetingLink string    `json:"meetingLink" validate:"required,url"`
	StudentIDs  []string  `json:"students" validate:"required,min=1,dive,required"`
}

// UpdateLiveClassRequest carries a sparse patch. Nil fields were not supplied
// and leave the stored value untouched; description may be supplied empty to
// clear it, while title, meetingLink and students must be non-empty when
// present.
type UpdateLiveClassRequest struct {
	ClassID     string     `json:"classId" validate:"required"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	MeetingLink *string    `json:"meetingLink"`
	StudentIDs  []string   `json:"students"`
}

// ExportFormat selects the rendering of a schedule export.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ScheduleExport is a rendered schedule document.
type ScheduleExport struct {
	Content     []byte
	ContentType string
	Filename    string
}

const cacheKeyPrefix = "liveclass"

// LiveClassService owns the scheduling rules for live classes: input
// validation, instructor ownership on mutation, roster membership on reads
// and time-window filtering of listings.
type LiveClassService struct {
	repo      liveClassRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
}

// NewLiveClassService instantiates LiveClassService.
func NewLiveClassService(repo liveClassRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *LiveClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveClassService{
		repo:      repo,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
	}
}

// Create schedules a new live class owned by the calling instructor. The
// class starts out Scheduled; nothing in the API transitions the status.
func (s *LiveClassService) Create(ctx context.Context, claims *models.JWTClaims, req CreateLiveClassRequest) (*models.LiveClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "all required fields must be filled, including at least one student")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	if !req.StartTime.Before(req.EndTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}

	class := models.LiveClass{
		Title:        title,
		Description:  strings.TrimSpace(req.Description),
		StartTime:    req.StartTime.UTC(),
		EndTime:      req.EndTime.UTC(),
		InstructorID: claims.UserID,
		MeetingLink:  req.MeetingLink,
		Status:       models.LiveClassScheduled,
		StudentIDs:   req.StudentIDs,
	}

	if err := s.repo.Create(ctx, &class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create live class")
	}

	s.invalidateCache(ctx)
	return &class, nil
}

// ListUpcomingForStudent returns the classes the caller is enrolled in that
// have not yet ended, ordered by start time. An empty list is a valid result.
func (s *LiveClassService) ListUpcomingForStudent(ctx context.Context, claims *models.JWTClaims) ([]models.LiveClassDetail, error) {
	key := fmt.Sprintf("%s:student:%s", cacheKeyPrefix, claims.UserID)
	var cached []models.LiveClassDetail
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	start := time.Now()
	classes, err := s.repo.ListUpcomingForStudent(ctx, claims.UserID, time.Now().UTC())
	s.metrics.ObserveDBQuery("liveclass_upcoming_student", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list upcoming live classes")
	}

	s.cache.Set(ctx, key, classes)
	return classes, nil
}

// ListForInstructor returns the caller's own classes that have not yet ended,
// ordered by start time. Past classes are intentionally excluded; there is no
// separate history query.
func (s *LiveClassService) ListForInstructor(ctx context.Context, claims *models.JWTClaims) ([]models.LiveClassDetail, error) {
	key := fmt.Sprintf("%s:teacher:%s", cacheKeyPrefix, claims.UserID)
	var cached []models.LiveClassDetail
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	start := time.Now()
	classes, err := s.repo.ListUpcomingForInstructor(ctx, claims.UserID, time.Now().UTC())
	s.metrics.ObserveDBQuery("liveclass_upcoming_instructor", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructor live classes")
	}

	s.cache.Set(ctx, key, classes)
	return classes, nil
}

// GetByID returns the full class detail for joining. The caller must be on
// the roster or be the owning instructor.
func (s *LiveClassService) GetByID(ctx context.Context, claims *models.JWTClaims, id string) (*models.LiveClassDetail, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classId is required in query parameters")
	}

	detail, err := s.loadDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.canAccess(claims, detail) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not enrolled in this class")
	}
	return detail, nil
}

// Update applies a sparse patch to a class owned by the caller. The effective
// start/end pair is re-validated after the patch is applied.
func (s *LiveClassService) Update(ctx context.Context, claims *models.JWTClaims, req UpdateLiveClassRequest) (*models.LiveClassDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "classId is required in body")
	}

	existing, err := s.findDetail(ctx, req.ClassID)
	if err != nil {
		return nil, err
	}
	if existing.InstructorID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not authorized to update this class")
	}

	updated := existing.LiveClass
	replaceRoster := false

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "title must not be empty")
		}
		updated.Title = title
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.StartTime != nil {
		updated.StartTime = req.StartTime.UTC()
	}
	if req.EndTime != nil {
		updated.EndTime = req.EndTime.UTC()
	}
	if req.MeetingLink != nil {
		link := strings.TrimSpace(*req.MeetingLink)
		if link == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "meetingLink must not be empty")
		}
		updated.MeetingLink = link
	}
	if req.StudentIDs != nil {
		if len(req.StudentIDs) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "at least one student must be assigned")
		}
		updated.StudentIDs = req.StudentIDs
		replaceRoster = true
	}

	if !updated.StartTime.Before(updated.EndTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}

	if err := s.repo.Update(ctx, &updated, replaceRoster); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update live class")
	}

	s.invalidateCache(ctx)
	return &models.LiveClassDetail{LiveClass: updated, Instructor: existing.Instructor}, nil
}

// Delete permanently removes a class owned by the caller.
func (s *LiveClassService) Delete(ctx context.Context, claims *models.JWTClaims, id string) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "classId is required")
	}

	existing, err := s.findDetail(ctx, id)
	if err != nil {
		return err
	}
	if existing.InstructorID != claims.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "you are not authorized to delete this class")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete live class")
	}

	s.invalidateCache(ctx)
	return nil
}

// ExportSchedule renders the caller's upcoming classes as a CSV or PDF table.
func (s *LiveClassService) ExportSchedule(ctx context.Context, claims *models.JWTClaims, format ExportFormat) (*ScheduleExport, error) {
	classes, err := s.repo.ListUpcomingForInstructor(ctx, claims.UserID, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor schedule")
	}

	dataset := export.Dataset{
		Headers: []string{"Title", "Starts", "Ends", "Students", "Meeting Link", "Status"},
	}
	for _, class := range classes {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Title":        class.Title,
			"Starts":       class.StartTime.UTC().Format("2006-01-02 15:04"),
			"Ends":         class.EndTime.UTC().Format("2006-01-02 15:04"),
			"Students":     strconv.Itoa(len(class.StudentIDs)),
			"Meeting Link": class.MeetingLink,
			"Status":       string(class.Status),
		})
	}

	stamp := time.Now().UTC().Format("20060102")
	switch format {
	case ExportCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule export")
		}
		return &ScheduleExport{Content: content, ContentType: "text/csv", Filename: fmt.Sprintf("schedule-%s.csv", stamp)}, nil
	case ExportPDF:
		content, err := s.pdf.Render(dataset, "Upcoming Live Classes")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule export")
		}
		return &ScheduleExport{Content: content, ContentType: "application/pdf", Filename: fmt.Sprintf("schedule-%s.pdf", stamp)}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func (s *LiveClassService) canAccess(claims *models.JWTClaims, detail *models.LiveClassDetail) bool {
	if claims.UserID == detail.InstructorID {
		return true
	}
	for _, studentID := range detail.StudentIDs {
		if studentID == claims.UserID {
			return true
		}
	}
	return false
}

// loadDetail reads through the cache; findDetail always hits the store.
func (s *LiveClassService) loadDetail(ctx context.Context, id string) (*models.LiveClassDetail, error) {
	key := fmt.Sprintf("%s:detail:%s", cacheKeyPrefix, id)
	var cached models.LiveClassDetail
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	detail, err := s.findDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, key, detail)
	return detail, nil
}

func (s *LiveClassService) findDetail(ctx context.Context, id string) (*models.LiveClassDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "live class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load live class")
	}
	return detail, nil
}

func (s *LiveClassService) invalidateCache(ctx context.Context) {
	s.cache.Invalidate(ctx, cacheKeyPrefix+":*")
}
