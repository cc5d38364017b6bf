package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecolehub/vie-scolaire-api/internal/middleware"
	"github.com/ecolehub/vie-scolaire-api/internal/models"
	"github.com/ecolehub/vie-scolaire-api/internal/service"
	appErrors "github.com/ecolehub/vie-scolaire-api/pkg/errors"
)

type justificationServiceMock struct {
	submitResp   *models.Justification
	submitErr    error
	reviewResp   *models.Justification
	reviewErr    error
	retryErr     error
	getResp      *models.Justification
	getErr       error
	listResp     []models.Justification
	listErr      error
	lastReview   service.ReviewRequest
	submitCalled bool
	reviewCalled bool
	retryCalled  bool
}

func (m *justificationServiceMock) Submit(_ context.Context, _ service.SubmitJustificationRequest) (*models.Justification, error) {
	m.submitCalled = true
	return m.submitResp, m.submitErr
}

func (m *justificationServiceMock) Review(_ context.Context, _ string, req service.ReviewRequest) (*models.Justification, error) {
	m.reviewCalled = true
	m.lastReview = req
	return m.reviewResp, m.reviewErr
}

func (m *justificationServiceMock) RetryExcusal(_ context.Context, _ string) error {
	m.retryCalled = true
	return m.retryErr
}

func (m *justificationServiceMock) Get(_ context.Context, _ string) (*models.Justification, error) {
	return m.getResp, m.getErr
}

func (m *justificationServiceMock) List(_ context.Context, _ models.JustificationFilter) ([]models.Justification, error) {
	return m.listResp, m.listErr
}

func TestJustificationHandlerReviewStampsReviewer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &justificationServiceMock{
		reviewResp: &models.Justification{ID: "j1", Status: models.JustificationApproved},
	}
	handler := NewJustificationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/justifications/j1/review", bytes.NewBufferString(`{"decision":"approved"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "j1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "cpe1", Role: models.RoleAdmin})

	handler.Review(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.reviewCalled)
	assert.Equal(t, "cpe1", mockSvc.lastReview.ReviewerID)
}

func TestJustificationHandlerReviewConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &justificationServiceMock{reviewErr: appErrors.ErrReviewed}
	handler := NewJustificationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/justifications/j1/review", bytes.NewBufferString(`{"decision":"rejected"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "j1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "cpe1", Role: models.RoleAdmin})

	handler.Review(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestJustificationHandlerSubmitInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &justificationServiceMock{}
	handler := NewJustificationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/justifications", bytes.NewBufferString(`{"entry_id":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "parent1", Role: models.RoleParent})

	handler.Submit(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.submitCalled)
}

func TestJustificationHandlerRetryExcusal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &justificationServiceMock{}
	handler := NewJustificationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/justifications/j1/excusal", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "j1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.RetryExcusal(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, mockSvc.retryCalled)
}
