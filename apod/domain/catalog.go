package domain

import (
	"context"
)

// CatalogEntry is the catalog's description of one day's picture.
type CatalogEntry struct {
	Date        DateKey
	Title       string
	URL         string
	HDURL       string
	MediaType   string
	Copyright   string
	Explanation string
}

// Catalog resolves a day to its catalog entry.
type Catalog interface {
	FetchMetadata(ctx context.Context, date DateKey) (*CatalogEntry, error)
}

// Downloader fetches raw image bytes from a remote location.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Phase is a fetch pipeline milestone. Its value is the progress percentage.
type Phase int

const (
	PhaseStart           Phase = 0
	PhaseCatalogResolved Phase = 25
	PhaseCacheDecision   Phase = 50
	PhaseBytesAcquired   Phase = 75
	PhaseRecordPersisted Phase = 100
)

// Percent returns the advisory progress value for the phase.
func (p Phase) Percent() int { return int(p) }

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseCatalogResolved:
		return "catalog_resolved"
	case PhaseCacheDecision:
		return "cache_decision"
	case PhaseBytesAcquired:
		return "bytes_acquired"
	case PhaseRecordPersisted:
		return "record_persisted"
	}
	return "unknown"
}
