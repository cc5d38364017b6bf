package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ecolehub/vie-scolaire-api/internal/models"
	appErrors "github.com/ecolehub/vie-scolaire-api/pkg/errors"
)

type justificationRepository interface {
	Insert(ctx context.Context, j *models.Justification) error
	FindByID(ctx context.Context, id string) (*models.Justification, error)
	List(ctx context.Context, filter models.JustificationFilter) ([]models.Justification, error)
	MarkReviewed(ctx context.Context, id string, status models.JustificationStatus, reviewerID string, reviewedAt time.Time) (bool, error)
}

type entryExcuser interface {
	FindByID(ctx context.Context, id string) (*models.AttendanceEntry, error)
	ApplyExcusal(ctx context.Context, entryID, text string, providedAt time.Time) error
}

// JustificationService runs the review workflow for absence justifications.
//
// Review is a two-step write: the justification row is marked first, then the
// attendance entry is reclassified. When step two fails after an approval the
// caller gets ErrExcusalPending and RetryExcusal finishes the job; ApplyExcusal
// is idempotent so retries are safe.
type JustificationService struct {
	justifications justificationRepository
	entries        entryExcuser
	notifier       changeNotifier
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewJustificationService constructs the justification service.
func NewJustificationService(justifications justificationRepository, entries entryExcuser, notifier changeNotifier, validate *validator.Validate, logger *zap.Logger) *JustificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JustificationService{justifications: justifications, entries: entries, notifier: notifier, validator: validate, logger: logger}
}

// SubmitJustificationRequest is the payload for filing a justification.
type SubmitJustificationRequest struct {
	EntryID   string  `json:"entry_id" validate:"required"`
	StudentID string  `json:"student_id" validate:"required"`
	ParentID  *string `json:"parent_id"`
	Text      string  `json:"text" validate:"required,min=3"`
}

// ReviewRequest carries a reviewer's decision.
type ReviewRequest struct {
	Decision   string `json:"decision" validate:"required,oneof=approved rejected"`
	ReviewerID string `json:"-"`
}

// Submit files a new justification against an attendance entry. Duplicates
// for the same entry are allowed; each is reviewed on its own.
func (s *JustificationService) Submit(ctx context.Context, req SubmitJustificationRequest) (*models.Justification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "entry, student and text are required")
	}
	entry, err := s.entries.FindByID(ctx, req.EntryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load attendance entry")
	}
	if entry.StudentID != req.StudentID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "entry does not belong to this student")
	}

	justification := &models.Justification{
		EntryID:   req.EntryID,
		StudentID: req.StudentID,
		ParentID:  req.ParentID,
		Text:      req.Text,
	}
	if err := s.justifications.Insert(ctx, justification); err != nil {
		s.logger.Error("insert justification failed", zap.String("entry_id", req.EntryID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to submit justification")
	}
	s.publish(ctx, "attendance_justifications", "insert")
	return justification, nil
}

// Review applies a decision to a pending justification. Approval reclassifies
// the underlying entry as excused and stamps the justification text onto it.
func (s *JustificationService) Review(ctx context.Context, justificationID string, req ReviewRequest) (*models.Justification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "decision must be approved or rejected")
	}
	justification, err := s.justifications.FindByID(ctx, justificationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "justification not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load justification")
	}
	if justification.Status.Terminal() {
		return nil, appErrors.ErrReviewed
	}

	status := models.JustificationStatus(req.Decision)
	reviewedAt := time.Now().UTC()
	updated, err := s.justifications.MarkReviewed(ctx, justificationID, status, req.ReviewerID, reviewedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to record review")
	}
	if !updated {
		// Lost the race against a concurrent reviewer.
		return nil, appErrors.ErrReviewed
	}

	justification.Status = status
	justification.ReviewedBy = &req.ReviewerID
	justification.ReviewedAt = &reviewedAt

	if status == models.JustificationApproved {
		if err := s.entries.ApplyExcusal(ctx, justification.EntryID, justification.Text, reviewedAt); err != nil {
			s.logger.Error("excusal step failed after approval",
				zap.String("justification_id", justificationID),
				zap.String("entry_id", justification.EntryID),
				zap.Error(err))
			return justification, appErrors.Wrap(err, appErrors.ErrExcusalPending.Code, appErrors.ErrExcusalPending.Status, appErrors.ErrExcusalPending.Message)
		}
		s.publish(ctx, "attendance_entries", "update")
	}
	s.publish(ctx, "attendance_justifications", "update")
	return justification, nil
}

// RetryExcusal re-runs the entry reclassification for an already approved
// justification whose first excusal attempt failed.
func (s *JustificationService) RetryExcusal(ctx context.Context, justificationID string) error {
	justification, err := s.justifications.FindByID(ctx, justificationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "justification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load justification")
	}
	if justification.Status != models.JustificationApproved {
		return appErrors.Clone(appErrors.ErrConflict, "only approved justifications can be excused")
	}
	providedAt := time.Now().UTC()
	if justification.ReviewedAt != nil {
		providedAt = *justification.ReviewedAt
	}
	if err := s.entries.ApplyExcusal(ctx, justification.EntryID, justification.Text, providedAt); err != nil {
		return appErrors.Wrap(err, appErrors.ErrExcusalPending.Code, appErrors.ErrExcusalPending.Status, appErrors.ErrExcusalPending.Message)
	}
	s.publish(ctx, "attendance_entries", "update")
	return nil
}

// Get returns a single justification.
func (s *JustificationService) Get(ctx context.Context, id string) (*models.Justification, error) {
	justification, err := s.justifications.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "justification not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load justification")
	}
	return justification, nil
}

// List returns justifications matching the filter.
func (s *JustificationService) List(ctx context.Context, filter models.JustificationFilter) ([]models.Justification, error) {
	list, err := s.justifications.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to list justifications")
	}
	return list, nil
}

func (s *JustificationService) publish(ctx context.Context, table, eventType string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ctx, table, eventType)
}
