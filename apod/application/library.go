package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dfryer1193/apodcache/apod/domain"
	"github.com/rs/zerolog/log"
)

// Library is the read and edit side of the saved image collection.
type Library struct {
	repo  domain.ImageRepository
	store domain.ImageStore
}

func NewLibrary(repo domain.ImageRepository, store domain.ImageStore) *Library {
	return &Library{
		repo:  repo,
		store: store,
	}
}

// ListSaved returns every saved record in insertion order
func (l *Library) ListSaved(ctx context.Context) ([]*domain.ImageRecord, error) {
	return l.repo.List(ctx)
}

func (l *Library) Get(ctx context.Context, id string) (*domain.ImageRecord, error) {
	return l.repo.Get(ctx, id)
}

// HasDate reports whether a record for catalogDate has already been saved
func (l *Library) HasDate(ctx context.Context, catalogDate domain.DateKey) (bool, error) {
	return l.repo.ExistsForDate(ctx, catalogDate)
}

// ReadFile returns the record for id along with its cached bytes
func (l *Library) ReadFile(ctx context.Context, id string) (*domain.ImageRecord, []byte, error) {
	rec, err := l.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	data, err := l.store.Read(rec.FileRef)
	if err != nil {
		return nil, nil, err
	}
	return rec, data, nil
}

// Rename sets the display name for id. A blank name clears it so the title
// is shown again.
func (l *Library) Rename(ctx context.Context, id string, name string) (*domain.ImageRecord, error) {
	name = strings.TrimSpace(name)
	if err := l.repo.Rename(ctx, id, name); err != nil {
		return nil, err
	}

	rec, err := l.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	log.Info().Str("id", id).Str("name", rec.DisplayName()).Msg("Renamed image")
	return rec, nil
}

// Delete removes the record for id and returns it so the caller can offer an
// undo through Restore. The cached file is kept.
func (l *Library) Delete(ctx context.Context, id string) (*domain.ImageRecord, error) {
	rec, err := l.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := l.repo.Delete(ctx, id); err != nil {
		return nil, err
	}

	log.Info().Str("id", id).Str("fileRef", rec.FileRef).Msg("Deleted image record")
	return rec, nil
}

// Restore saves a previously deleted record again under its original ID
func (l *Library) Restore(ctx context.Context, rec *domain.ImageRecord) error {
	if rec == nil {
		return fmt.Errorf("image cannot be nil")
	}

	ref, err := domain.NormalizeFileRef(rec.FileRef)
	if err != nil {
		return err
	}
	rec.FileRef = ref

	if rec.ID != "" {
		_, err := l.repo.Get(ctx, rec.ID)
		if err == nil {
			return fmt.Errorf("%w: %s", domain.ErrImageExists, rec.ID)
		}
		if !errors.Is(err, domain.ErrImageNotFound) {
			return fmt.Errorf("failed to check image %s before restore: %w", rec.ID, err)
		}
	}

	if err := l.repo.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to restore image %s: %w", rec.ID, err)
	}

	log.Info().Str("id", rec.ID).Msg("Restored image record")
	return nil
}
