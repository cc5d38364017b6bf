package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ecolehub/vie-scolaire-api/internal/aggregate"
	"github.com/ecolehub/vie-scolaire-api/internal/models"
	appErrors "github.com/ecolehub/vie-scolaire-api/pkg/errors"
)

type curriculumRepository interface {
	ListSubjects(ctx context.Context, classID string) ([]models.CurriculumSubject, error)
	ListTopics(ctx context.Context, subjectID string) ([]models.CurriculumTopic, error)
	CountTopics(ctx context.Context, subjectID, classID string) (total int, completed int, err error)
	UpsertProgress(ctx context.Context, progress *models.TopicProgress) error
}

// CurriculumService tracks what has been taught to each class.
type CurriculumService struct {
	curriculum curriculumRepository
	notifier   changeNotifier
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewCurriculumService constructs the curriculum service.
func NewCurriculumService(curriculum curriculumRepository, notifier changeNotifier, validate *validator.Validate, logger *zap.Logger) *CurriculumService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CurriculumService{curriculum: curriculum, notifier: notifier, validator: validate, logger: logger}
}

// SetProgressRequest marks a topic done or not done for a class.
type SetProgressRequest struct {
	TopicID   string `json:"topic_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
	Completed bool   `json:"completed"`
}

// Subjects returns the subjects taught to a class.
func (s *CurriculumService) Subjects(ctx context.Context, classID string) ([]models.CurriculumSubject, error) {
	subjects, err := s.curriculum.ListSubjects(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to list subjects")
	}
	return subjects, nil
}

// Topics returns a subject's topics in teaching order.
func (s *CurriculumService) Topics(ctx context.Context, subjectID string) ([]models.CurriculumTopic, error) {
	topics, err := s.curriculum.ListTopics(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to list topics")
	}
	return topics, nil
}

// Completion reports how much of a subject has been covered for a class.
// A subject without topics reports 0%, not an error.
func (s *CurriculumService) Completion(ctx context.Context, subjectID, classID string) (*models.SubjectCompletion, error) {
	total, completed, err := s.curriculum.CountTopics(ctx, subjectID, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to count topics")
	}
	return &models.SubjectCompletion{
		SubjectID:       subjectID,
		ClassID:         classID,
		TotalTopics:     total,
		CompletedTopics: completed,
		Percentage:      aggregate.CompletionPercentage(completed, total),
	}, nil
}

// SetProgress upserts the completion flag for a (topic, class) pair.
func (s *CurriculumService) SetProgress(ctx context.Context, req SetProgressRequest) (*models.TopicProgress, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "topic and class are required")
	}
	progress := &models.TopicProgress{
		TopicID:   req.TopicID,
		ClassID:   req.ClassID,
		Completed: req.Completed,
	}
	if req.Completed {
		now := time.Now().UTC()
		progress.CompletedAt = &now
	}
	if err := s.curriculum.UpsertProgress(ctx, progress); err != nil {
		s.logger.Error("upsert topic progress failed", zap.String("topic_id", req.TopicID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to save topic progress")
	}
	if s.notifier != nil {
		s.notifier.Publish(ctx, "curriculum_progress", "upsert")
	}
	return progress, nil
}
