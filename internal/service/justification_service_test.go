package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecolehub/vie-scolaire-api/internal/models"
	appErrors "github.com/ecolehub/vie-scolaire-api/pkg/errors"
)

type fakeJustificationRepo struct {
	byID     map[string]*models.Justification
	inserted []*models.Justification
}

func (f *fakeJustificationRepo) Insert(_ context.Context, j *models.Justification) error {
	j.ID = "j-new"
	j.Status = models.JustificationPending
	f.inserted = append(f.inserted, j)
	f.byID[j.ID] = j
	return nil
}

func (f *fakeJustificationRepo) FindByID(_ context.Context, id string) (*models.Justification, error) {
	j, ok := f.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *j
	return &copied, nil
}

func (f *fakeJustificationRepo) List(_ context.Context, filter models.JustificationFilter) ([]models.Justification, error) {
	var out []models.Justification
	for _, j := range f.byID {
		if filter.EntryID != "" && j.EntryID != filter.EntryID {
			continue
		}
		out = append(out, *j)
	}
	return out, nil
}

func (f *fakeJustificationRepo) MarkReviewed(_ context.Context, id string, status models.JustificationStatus, reviewerID string, reviewedAt time.Time) (bool, error) {
	j, ok := f.byID[id]
	if !ok || j.Status != models.JustificationPending {
		return false, nil
	}
	j.Status = status
	j.ReviewedBy = &reviewerID
	j.ReviewedAt = &reviewedAt
	return true, nil
}

type fakeExcuser struct {
	entries map[string]*models.AttendanceEntry
	err     error
	applied int
}

func (f *fakeExcuser) FindByID(_ context.Context, id string) (*models.AttendanceEntry, error) {
	entry, ok := f.entries[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return entry, nil
}

func (f *fakeExcuser) ApplyExcusal(_ context.Context, entryID, text string, providedAt time.Time) error {
	if f.err != nil {
		return f.err
	}
	entry, ok := f.entries[entryID]
	if !ok {
		return sql.ErrNoRows
	}
	f.applied++
	entry.Status = models.EntryStatusExcused
	entry.Justification = &text
	entry.JustificationProvidedAt = &providedAt
	return nil
}

func newJustificationFixture() (*JustificationService, *fakeJustificationRepo, *fakeExcuser, *fakeNotifier) {
	justifications := &fakeJustificationRepo{byID: map[string]*models.Justification{
		"j1": {ID: "j1", EntryID: "entry1", StudentID: "stu1", Text: "rendez-vous medical", Status: models.JustificationPending},
	}}
	entries := &fakeExcuser{entries: map[string]*models.AttendanceEntry{
		"entry1": {ID: "entry1", RecordID: "rec1", StudentID: "stu1", Status: models.EntryStatusAbsent},
	}}
	notifier := &fakeNotifier{}
	svc := NewJustificationService(justifications, entries, notifier, nil, nil)
	return svc, justifications, entries, notifier
}

func TestSubmitRequiresExistingEntry(t *testing.T) {
	svc, _, _, _ := newJustificationFixture()

	_, err := svc.Submit(context.Background(), SubmitJustificationRequest{
		EntryID: "ghost", StudentID: "stu1", Text: "absent pour maladie",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSubmitAllowsDuplicatesForSameEntry(t *testing.T) {
	svc, justifications, _, _ := newJustificationFixture()

	first, err := svc.Submit(context.Background(), SubmitJustificationRequest{
		EntryID: "entry1", StudentID: "stu1", Text: "premiere version",
	})
	require.NoError(t, err)
	assert.Equal(t, models.JustificationPending, first.Status)

	_, err = svc.Submit(context.Background(), SubmitJustificationRequest{
		EntryID: "entry1", StudentID: "stu1", Text: "seconde version",
	})
	require.NoError(t, err)
	assert.Len(t, justifications.inserted, 2)
}

func TestReviewApprovalExcusesEntry(t *testing.T) {
	svc, _, entries, notifier := newJustificationFixture()

	reviewed, err := svc.Review(context.Background(), "j1", ReviewRequest{Decision: "approved", ReviewerID: "cpe1"})
	require.NoError(t, err)
	assert.Equal(t, models.JustificationApproved, reviewed.Status)

	entry := entries.entries["entry1"]
	assert.Equal(t, models.EntryStatusExcused, entry.Status)
	require.NotNil(t, entry.Justification)
	assert.Equal(t, "rendez-vous medical", *entry.Justification)
	assert.NotNil(t, entry.JustificationProvidedAt)
	assert.Contains(t, notifier.published, "attendance_entries:update")
}

func TestReviewRejectionLeavesEntryUntouched(t *testing.T) {
	svc, _, entries, _ := newJustificationFixture()

	reviewed, err := svc.Review(context.Background(), "j1", ReviewRequest{Decision: "rejected", ReviewerID: "cpe1"})
	require.NoError(t, err)
	assert.Equal(t, models.JustificationRejected, reviewed.Status)

	entry := entries.entries["entry1"]
	assert.Equal(t, models.EntryStatusAbsent, entry.Status)
	assert.Nil(t, entry.Justification)
	assert.Zero(t, entries.applied)
}

func TestReviewTerminalIsConflict(t *testing.T) {
	svc, _, _, _ := newJustificationFixture()

	_, err := svc.Review(context.Background(), "j1", ReviewRequest{Decision: "approved", ReviewerID: "cpe1"})
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), "j1", ReviewRequest{Decision: "rejected", ReviewerID: "cpe2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReviewed.Code, appErrors.FromError(err).Code)
}

func TestReviewExcusalFailureIsRetryable(t *testing.T) {
	svc, justifications, entries, _ := newJustificationFixture()
	entries.err = assert.AnError

	reviewed, err := svc.Review(context.Background(), "j1", ReviewRequest{Decision: "approved", ReviewerID: "cpe1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrExcusalPending.Code, appErrors.FromError(err).Code)
	// The review decision itself is committed even though the entry update failed.
	require.NotNil(t, reviewed)
	assert.Equal(t, models.JustificationApproved, justifications.byID["j1"].Status)
	assert.Equal(t, models.EntryStatusAbsent, entries.entries["entry1"].Status)

	entries.err = nil
	require.NoError(t, svc.RetryExcusal(context.Background(), "j1"))
	assert.Equal(t, models.EntryStatusExcused, entries.entries["entry1"].Status)
}

func TestRetryExcusalRequiresApproval(t *testing.T) {
	svc, _, _, _ := newJustificationFixture()

	err := svc.RetryExcusal(context.Background(), "j1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
