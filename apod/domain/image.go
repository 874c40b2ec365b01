package domain

import (
	"context"
)

// ImageRecord is the stored metadata for one cached picture of the day.
// FileRef names the cached bytes; deleting a record never removes the file.
type ImageRecord struct {
	ID           string
	Name         string
	Title        string
	DownloadedAt DateKey
	CatalogDate  DateKey
	FileRef      string
}

// NewImageRecord builds a record with no display name and no ID.
// The repository assigns the ID on first save.
func NewImageRecord(title string, downloadedAt, catalogDate DateKey, fileRef string) (*ImageRecord, error) {
	ref, err := NormalizeFileRef(fileRef)
	if err != nil {
		return nil, err
	}

	return &ImageRecord{
		Title:        title,
		DownloadedAt: downloadedAt,
		CatalogDate:  catalogDate,
		FileRef:      ref,
	}, nil
}

// DisplayName returns the user-supplied name, falling back to the catalog title.
func (r *ImageRecord) DisplayName() string {
	if r.Name == "" {
		return r.Title
	}
	return r.Name
}

type ImageRepository interface {
	// List returns every record in insertion order
	List(ctx context.Context) ([]*ImageRecord, error)

	Get(ctx context.Context, id string) (*ImageRecord, error)

	// ExistsForDate reports whether any record was fetched for catalogDate
	ExistsForDate(ctx context.Context, catalogDate DateKey) (bool, error)

	// Save inserts a record, assigning an ID if it has none
	Save(ctx context.Context, rec *ImageRecord) error

	Rename(ctx context.Context, id string, name string) error

	// Delete removes the metadata row only
	Delete(ctx context.Context, id string) error
}

// ImageStore holds raw image bytes keyed by FileRef.
type ImageStore interface {
	Exists(fileRef string) bool
	Read(fileRef string) ([]byte, error)
	Write(fileRef string, data []byte) error
}
