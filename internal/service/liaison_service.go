package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ecolehub/vie-scolaire-api/internal/models"
	appErrors "github.com/ecolehub/vie-scolaire-api/pkg/errors"
)

type liaisonRepository interface {
	Insert(ctx context.Context, entry *models.LiaisonEntry) error
	FindByID(ctx context.Context, id string) (*models.LiaisonEntry, error)
	ListByClass(ctx context.Context, classID string) ([]models.LiaisonEntry, error)
	Sign(ctx context.Context, signature *models.LiaisonSignature) (bool, error)
	ListSignatures(ctx context.Context, entryID string) ([]models.LiaisonSignature, error)
}

// LiaisonService manages the class liaison notebook and parent sign-offs.
type LiaisonService struct {
	liaison   liaisonRepository
	notifier  changeNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLiaisonService constructs the liaison service.
func NewLiaisonService(liaison liaisonRepository, notifier changeNotifier, validate *validator.Validate, logger *zap.Logger) *LiaisonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiaisonService{liaison: liaison, notifier: notifier, validator: validate, logger: logger}
}

// CreateLiaisonRequest is the payload for a new notebook entry.
type CreateLiaisonRequest struct {
	ClassID           string `json:"class_id" validate:"required"`
	AuthorID          string `json:"-"`
	Title             string `json:"title" validate:"required"`
	Body              string `json:"body" validate:"required"`
	Category          string `json:"category" validate:"required,oneof=information discipline sortie sante autre"`
	RequiresSignature bool   `json:"requires_signature"`
}

// Create posts a new liaison entry for a class.
func (s *LiaisonService) Create(ctx context.Context, req CreateLiaisonRequest) (*models.LiaisonEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "class, title, body and category are required")
	}
	entry := &models.LiaisonEntry{
		ClassID:           req.ClassID,
		AuthorID:          req.AuthorID,
		Title:             req.Title,
		Body:              req.Body,
		Category:          req.Category,
		RequiresSignature: req.RequiresSignature,
	}
	if err := s.liaison.Insert(ctx, entry); err != nil {
		s.logger.Error("insert liaison entry failed", zap.String("class_id", req.ClassID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to create liaison entry")
	}
	if s.notifier != nil {
		s.notifier.Publish(ctx, "liaison_entries", "insert")
	}
	return entry, nil
}

// ListByClass returns a class's liaison entries, newest first.
func (s *LiaisonService) ListByClass(ctx context.Context, classID string) ([]models.LiaisonEntry, error) {
	entries, err := s.liaison.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to list liaison entries")
	}
	return entries, nil
}

// Sign records a parent's acknowledgement of an entry. Signing twice is not
// an error: the second attempt reports the already-signed state.
func (s *LiaisonService) Sign(ctx context.Context, entryID, parentID string) (alreadySigned bool, err error) {
	entry, err := s.liaison.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotFound, "liaison entry not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load liaison entry")
	}
	if !entry.RequiresSignature {
		return false, appErrors.Clone(appErrors.ErrValidation, "entry does not require a signature")
	}
	signed, err := s.liaison.Sign(ctx, &models.LiaisonSignature{EntryID: entryID, ParentID: parentID})
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to record signature")
	}
	if signed && s.notifier != nil {
		s.notifier.Publish(ctx, "liaison_entries", "update")
	}
	return !signed, nil
}

// Signatures lists who has signed an entry.
func (s *LiaisonService) Signatures(ctx context.Context, entryID string) ([]models.LiaisonSignature, error) {
	signatures, err := s.liaison.ListSignatures(ctx, entryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to list signatures")
	}
	return signatures, nil
}
