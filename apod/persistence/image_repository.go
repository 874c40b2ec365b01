package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dfryer1193/apodcache/apod/domain"
	"github.com/dfryer1193/apodcache/shared/db"
	"github.com/google/uuid"
)

var _ domain.ImageRepository = (*SQLiteImageRepository)(nil)

// SQLiteImageRepository implements domain.ImageRepository using SQL database (SQLite)
type SQLiteImageRepository struct {
	db *sql.DB
}

// NewImageRepository creates a new SQLiteImageRepository from a standard sql.DB
func NewImageRepository(sqlDB *sql.DB) *SQLiteImageRepository {
	return &SQLiteImageRepository{
		db: sqlDB,
	}
}

const listImagesQuery = `
	SELECT id, display_name, title, catalog_date, downloaded_at, file_ref
	FROM images
	ORDER BY rowid
`

// List returns all records in insertion order
func (r *SQLiteImageRepository) List(ctx context.Context) ([]*domain.ImageRecord, error) {
	rows, err := db.ExecutorFor(ctx, r.db).QueryContext(ctx, listImagesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	images := make([]*domain.ImageRecord, 0)
	for rows.Next() {
		var row imageRow
		if err := row.scan(rows); err != nil {
			return nil, fmt.Errorf("failed to scan image row: %w", err)
		}

		img, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating image rows: %w", err)
	}

	return images, nil
}

const getImageQuery = `
	SELECT id, display_name, title, catalog_date, downloaded_at, file_ref
	FROM images
	WHERE id = ?
`

// Get retrieves a single record by id
func (r *SQLiteImageRepository) Get(ctx context.Context, id string) (*domain.ImageRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("image ID cannot be empty")
	}

	var row imageRow
	err := row.scan(db.ExecutorFor(ctx, r.db).QueryRowContext(ctx, getImageQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrImageNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	return row.toDomain()
}

const existsForDateQuery = `
	SELECT EXISTS(SELECT 1 FROM images WHERE catalog_date = ?)
`

// ExistsForDate reports whether any stored record has the given catalog date
func (r *SQLiteImageRepository) ExistsForDate(ctx context.Context, catalogDate domain.DateKey) (bool, error) {
	var exists bool
	err := db.ExecutorFor(ctx, r.db).QueryRowContext(ctx, existsForDateQuery, catalogDate.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check images for %s: %w", catalogDate, err)
	}
	return exists, nil
}

const insertImageQuery = `
	INSERT INTO images (id, display_name, title, catalog_date, downloaded_at, file_ref)
	VALUES (?, ?, ?, ?, ?, ?)
`

// Save inserts rec. A record without an ID gets a new UUIDv7; a record that
// keeps the ID of a deleted row is restored under that ID.
func (r *SQLiteImageRepository) Save(ctx context.Context, rec *domain.ImageRecord) error {
	if rec == nil {
		return fmt.Errorf("image cannot be nil")
	}

	if rec.FileRef == "" {
		return fmt.Errorf("image file reference cannot be empty")
	}

	id := rec.ID
	if id == "" {
		generated, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate image ID: %w", err)
		}
		id = generated.String()
	}

	_, err := db.ExecutorFor(ctx, r.db).ExecContext(ctx, insertImageQuery, newImageRow(id, rec).args()...)
	if err != nil {
		return fmt.Errorf("failed to insert image record: %w", err)
	}

	rec.ID = id
	return nil
}

const updateImageQuery = `
	UPDATE images
	SET display_name = ?, title = ?, catalog_date = ?, downloaded_at = ?, file_ref = ?
	WHERE id = ?
`

// Rename rewrites the row for id with a new display name
func (r *SQLiteImageRepository) Rename(ctx context.Context, id string, name string) error {
	if id == "" {
		return fmt.Errorf("image ID cannot be empty")
	}

	return db.RunInTx(ctx, r.db, func(txCtx context.Context) error {
		current, err := r.Get(txCtx, id)
		if err != nil {
			return err
		}
		current.Name = name

		row := newImageRow(id, current)
		_, err = db.ExecutorFor(txCtx, r.db).ExecContext(txCtx, updateImageQuery,
			row.DisplayName,
			row.Title,
			row.CatalogDate,
			row.DownloadedAt,
			row.FileRef,
			row.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update image record: %w", err)
		}
		return nil
	})
}

const deleteImageQuery = `
	DELETE FROM images WHERE id = ?
`

// Delete removes the metadata row for id. The cached file is left in place.
func (r *SQLiteImageRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("image ID cannot be empty")
	}

	res, err := db.ExecutorFor(ctx, r.db).ExecContext(ctx, deleteImageQuery, id)
	if err != nil {
		return fmt.Errorf("failed to delete image record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrImageNotFound, id)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// imageRow mirrors one row of the images table
type imageRow struct {
	ID           string         `db:"id"`
	DisplayName  sql.NullString `db:"display_name"`
	Title        string         `db:"title"`
	CatalogDate  string         `db:"catalog_date"`
	DownloadedAt string         `db:"downloaded_at"`
	FileRef      string         `db:"file_ref"`
}

func newImageRow(id string, rec *domain.ImageRecord) imageRow {
	return imageRow{
		ID:           id,
		DisplayName:  sql.NullString{String: rec.Name, Valid: rec.Name != ""},
		Title:        rec.Title,
		CatalogDate:  rec.CatalogDate.String(),
		DownloadedAt: rec.DownloadedAt.String(),
		FileRef:      rec.FileRef,
	}
}

func (ir *imageRow) scan(s rowScanner) error {
	return s.Scan(
		&ir.ID,
		&ir.DisplayName,
		&ir.Title,
		&ir.CatalogDate,
		&ir.DownloadedAt,
		&ir.FileRef,
	)
}

func (ir imageRow) args() []any {
	return []any{ir.ID, ir.DisplayName, ir.Title, ir.CatalogDate, ir.DownloadedAt, ir.FileRef}
}

// toDomain converts an imageRow to a domain.ImageRecord
func (ir *imageRow) toDomain() (*domain.ImageRecord, error) {
	catalogDate, err := domain.ParseDateKey(ir.CatalogDate)
	if err != nil {
		return nil, fmt.Errorf("image %s has corrupt catalog date: %w", ir.ID, err)
	}
	downloadedAt, err := domain.ParseDateKey(ir.DownloadedAt)
	if err != nil {
		return nil, fmt.Errorf("image %s has corrupt download date: %w", ir.ID, err)
	}

	return &domain.ImageRecord{
		ID:           ir.ID,
		Name:         ir.DisplayName.String,
		Title:        ir.Title,
		CatalogDate:  catalogDate,
		DownloadedAt: downloadedAt,
		FileRef:      ir.FileRef,
	}, nil
}
