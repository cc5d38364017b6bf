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

type fakeLiaisonRepo struct {
	byID       map[string]*models.LiaisonEntry
	signatures map[string]map[string]bool
}

func (f *fakeLiaisonRepo) Insert(_ context.Context, entry *models.LiaisonEntry) error {
	entry.ID = "liaison-new"
	f.byID[entry.ID] = entry
	return nil
}

func (f *fakeLiaisonRepo) FindByID(_ context.Context, id string) (*models.LiaisonEntry, error) {
	entry, ok := f.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return entry, nil
}

func (f *fakeLiaisonRepo) ListByClass(_ context.Context, classID string) ([]models.LiaisonEntry, error) {
	var out []models.LiaisonEntry
	for _, entry := range f.byID {
		if entry.ClassID == classID {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (f *fakeLiaisonRepo) Sign(_ context.Context, signature *models.LiaisonSignature) (bool, error) {
	if f.signatures[signature.EntryID] == nil {
		f.signatures[signature.EntryID] = map[string]bool{}
	}
	if f.signatures[signature.EntryID][signature.ParentID] {
		return false, nil
	}
	f.signatures[signature.EntryID][signature.ParentID] = true
	return true, nil
}

func (f *fakeLiaisonRepo) ListSignatures(_ context.Context, entryID string) ([]models.LiaisonSignature, error) {
	var out []models.LiaisonSignature
	for parentID := range f.signatures[entryID] {
		out = append(out, models.LiaisonSignature{EntryID: entryID, ParentID: parentID, SignedAt: time.Now()})
	}
	return out, nil
}

func newLiaisonFixture() (*LiaisonService, *fakeLiaisonRepo) {
	repo := &fakeLiaisonRepo{
		byID: map[string]*models.LiaisonEntry{
			"l1": {ID: "l1", ClassID: "class1", Title: "Sortie musee", Category: "sortie", RequiresSignature: true},
			"l2": {ID: "l2", ClassID: "class1", Title: "Info cantine", Category: "information", RequiresSignature: false},
		},
		signatures: map[string]map[string]bool{},
	}
	return NewLiaisonService(repo, nil, nil, nil), repo
}

func TestSignRecordsFirstSignature(t *testing.T) {
	svc, repo := newLiaisonFixture()

	alreadySigned, err := svc.Sign(context.Background(), "l1", "parent1")
	require.NoError(t, err)
	assert.False(t, alreadySigned)
	assert.True(t, repo.signatures["l1"]["parent1"])
}

func TestSignTwiceReportsAlreadySigned(t *testing.T) {
	svc, _ := newLiaisonFixture()

	_, err := svc.Sign(context.Background(), "l1", "parent1")
	require.NoError(t, err)

	alreadySigned, err := svc.Sign(context.Background(), "l1", "parent1")
	require.NoError(t, err)
	assert.True(t, alreadySigned)
}

func TestSignRejectedWhenNotRequired(t *testing.T) {
	svc, _ := newLiaisonFixture()

	_, err := svc.Sign(context.Background(), "l2", "parent1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateValidatesCategory(t *testing.T) {
	svc, _ := newLiaisonFixture()

	_, err := svc.Create(context.Background(), CreateLiaisonRequest{
		ClassID: "class1", AuthorID: "teacher1", Title: "Divers", Body: "corps", Category: "spam",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
