package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDate          = errors.New("invalid date")
	ErrImageNotFound        = errors.New("image not found")
	ErrImageExists          = errors.New("image already exists")
	ErrFileNotFound         = errors.New("cached file not found")
	ErrUnsupportedExtension = errors.New("unsupported image extension")
	ErrInvalidFileRef       = errors.New("invalid file reference")
)

// InvalidDateError describes why a requested date was rejected.
// Input is set when the date came from a string that could not be parsed.
type InvalidDateError struct {
	Year   int
	Month  int
	Day    int
	Input  string
	Reason string
}

func (e *InvalidDateError) Error() string {
	if e.Input != "" {
		return fmt.Sprintf("invalid date %q: %s", e.Input, e.Reason)
	}
	return fmt.Sprintf("invalid date %04d-%02d-%02d: %s", e.Year, e.Month, e.Day, e.Reason)
}

func (e *InvalidDateError) Is(target error) bool {
	return target == ErrInvalidDate
}

type CatalogErrorKind string

const (
	CatalogNetwork     CatalogErrorKind = "network"
	CatalogBadResponse CatalogErrorKind = "bad_response"
	CatalogNotFound    CatalogErrorKind = "not_found"
)

// CatalogError is returned when catalog metadata could not be resolved.
type CatalogError struct {
	Kind       CatalogErrorKind
	Op         string
	StatusCode int
	Err        error
}

func (e *CatalogError) Error() string {
	msg := fmt.Sprintf("catalog %s: %s", e.Kind, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CatalogError) Unwrap() error { return e.Err }

// DownloadError is returned when raw image bytes could not be fetched.
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("image download from %s failed with status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("image download from %s failed: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

type FetchErrorKind string

const (
	FetchInvalidDate   FetchErrorKind = "invalid_date"
	FetchCatalog       FetchErrorKind = "catalog"
	FetchImageDownload FetchErrorKind = "image_download"
	FetchStorage       FetchErrorKind = "storage"
	FetchPersistence   FetchErrorKind = "persistence"
	FetchCanceled      FetchErrorKind = "canceled"
)

// FetchError is the single error type returned by the fetch pipeline.
// Phase is the last phase that completed before the failure.
type FetchError struct {
	Kind  FetchErrorKind
	Phase Phase
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed (%s) after %s: %v", e.Kind, e.Phase, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether re-running the same fetch may succeed.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case FetchImageDownload:
		return true
	case FetchCatalog:
		var ce *CatalogError
		if errors.As(e.Err, &ce) {
			return ce.Kind != CatalogNotFound
		}
		return true
	}
	return false
}
