package application

import (
	"context"
	"errors"
	"testing"

	"github.com/dfryer1193/apodcache/apod/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fetchBoth(t *testing.T, f *fixture) (*domain.ImageRecord, *domain.ImageRecord) {
	t.Helper()
	svc := f.service(nil)
	t.Cleanup(func() { svc.Close() })

	orion, err := svc.Fetch(context.Background(), mustDate(t, "2024-01-15"), nil)
	require.NoError(t, err)
	crab, err := svc.Fetch(context.Background(), mustDate(t, "2024-01-16"), nil)
	require.NoError(t, err)
	return orion, crab
}

func TestLibrary_RenameThenList(t *testing.T) {
	f := newFixture(t)
	orion, crab := fetchBoth(t, f)
	lib := NewLibrary(f.repo, f.cache)
	ctx := context.Background()

	renamed, err := lib.Rename(ctx, orion.ID, "  My Favorite ")
	require.NoError(t, err)
	assert.Equal(t, "My Favorite", renamed.DisplayName())

	saved, err := lib.ListSaved(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 2)

	byID := map[string]*domain.ImageRecord{}
	for _, rec := range saved {
		byID[rec.ID] = rec
	}
	assert.Equal(t, "My Favorite", byID[orion.ID].DisplayName())
	assert.Equal(t, "Crab Nebula", byID[crab.ID].DisplayName())
	assert.Equal(t, orion.FileRef, byID[orion.ID].FileRef)
}

func TestLibrary_RenameMissing(t *testing.T) {
	f := newFixture(t)
	lib := NewLibrary(f.repo, f.cache)

	_, err := lib.Rename(context.Background(), "nope", "name")
	assert.ErrorIs(t, err, domain.ErrImageNotFound)
}

func TestLibrary_DeleteAndRestore(t *testing.T) {
	f := newFixture(t)
	orion, _ := fetchBoth(t, f)
	lib := NewLibrary(f.repo, f.cache)
	ctx := context.Background()

	deleted, err := lib.Delete(ctx, orion.ID)
	require.NoError(t, err)
	assert.Equal(t, orion.ID, deleted.ID)
	assert.True(t, f.cache.Exists(orion.FileRef), "delete must keep the cached file")

	has, err := lib.HasDate(ctx, orion.CatalogDate)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = lib.Delete(ctx, orion.ID)
	assert.ErrorIs(t, err, domain.ErrImageNotFound)

	require.NoError(t, lib.Restore(ctx, deleted))
	assert.ErrorIs(t, lib.Restore(ctx, deleted), domain.ErrImageExists)

	saved, err := lib.ListSaved(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 2)

	restored, err := lib.Get(ctx, orion.ID)
	require.NoError(t, err)
	assert.Equal(t, orion.Title, restored.Title)

	has, err = lib.HasDate(ctx, orion.CatalogDate)
	require.NoError(t, err)
	assert.True(t, has)
}

// brokenLookupRepo fails every Get and counts Save calls
type brokenLookupRepo struct {
	domain.ImageRepository
	saves int
}

func (r *brokenLookupRepo) Get(ctx context.Context, id string) (*domain.ImageRecord, error) {
	return nil, errors.New("database is locked")
}

func (r *brokenLookupRepo) Save(ctx context.Context, rec *domain.ImageRecord) error {
	r.saves++
	return r.ImageRepository.Save(ctx, rec)
}

func TestLibrary_RestoreStopsOnLookupFailure(t *testing.T) {
	f := newFixture(t)
	repo := &brokenLookupRepo{ImageRepository: f.repo}
	lib := NewLibrary(repo, f.cache)

	rec := &domain.ImageRecord{ID: "gone", Title: "Orion Nebula", FileRef: "Orion Nebula.png"}
	err := lib.Restore(context.Background(), rec)
	require.Error(t, err)
	assert.ErrorContains(t, err, "database is locked")
	assert.NotErrorIs(t, err, domain.ErrImageExists)
	assert.Equal(t, 0, repo.saves)
}

func TestLibrary_RestoreRejectsBadFileRef(t *testing.T) {
	f := newFixture(t)
	lib := NewLibrary(f.repo, f.cache)

	rec := &domain.ImageRecord{ID: "x", Title: "Scan", FileRef: "scan.bmp"}
	err := lib.Restore(context.Background(), rec)
	assert.ErrorIs(t, err, domain.ErrUnsupportedExtension)
}

func TestLibrary_ReadFile(t *testing.T) {
	f := newFixture(t)
	orion, _ := fetchBoth(t, f)
	lib := NewLibrary(f.repo, f.cache)
	ctx := context.Background()

	rec, data, err := lib.ReadFile(ctx, orion.ID)
	require.NoError(t, err)
	assert.Equal(t, orion.ID, rec.ID)
	assert.Equal(t, pngBytes, data)

	_, _, err = lib.ReadFile(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrImageNotFound)
}
