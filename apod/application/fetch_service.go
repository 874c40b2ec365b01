package application

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/dfryer1193/apodcache/apod/domain"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// maxFetchEvents is every progress phase plus the terminal event, so a
// worker never blocks on a reader that went away.
const maxFetchEvents = 6

type EventType string

const (
	EventProgress EventType = "progress"
	EventDone     EventType = "done"
	EventFailed   EventType = "failed"
)

// FetchEvent is one message on the channel returned by Start.
// Record and Entry are set for EventDone and Err for EventFailed.
type FetchEvent struct {
	Type   EventType
	Phase  domain.Phase
	Record *domain.ImageRecord
	Entry  *domain.CatalogEntry
	Err    error
}

type FetchService struct {
	catalog    domain.Catalog
	downloader domain.Downloader
	store      domain.ImageStore
	repo       domain.ImageRepository
	validator  *domain.Validator
	metrics    *FetchMetrics

	// Service lifecycle context - cancelled when Close() is called
	ctx    context.Context
	cancel context.CancelFunc
	wg     *sync.WaitGroup
}

func NewFetchService(
	catalog domain.Catalog,
	downloader domain.Downloader,
	store domain.ImageStore,
	repo domain.ImageRepository,
	validator *domain.Validator,
	metrics *FetchMetrics,
) *FetchService {
	if validator == nil {
		validator = domain.NewValidator()
	}
	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}
	return &FetchService{
		catalog:    catalog,
		downloader: downloader,
		store:      store,
		repo:       repo,
		validator:  validator,
		metrics:    metrics,
		ctx:        ctx,
		cancel:     cancel,
		wg:         &wg,
	}
}

// Close cancels in-flight fetches started with Start and waits for them to finish
func (s *FetchService) Close() error {
	s.cancel()
	s.wg.Wait()

	return nil
}

// RequestDate validates a requested day against the catalog's range
func (s *FetchService) RequestDate(year, month, day int) (domain.DateKey, error) {
	return s.validator.Validate(year, month, day)
}

// Start runs Fetch in the background. The returned channel carries progress
// events in phase order followed by exactly one EventDone or EventFailed, and
// is then closed. Cancelling ctx or closing the service cancels the fetch.
func (s *FetchService) Start(ctx context.Context, date domain.DateKey) <-chan FetchEvent {
	events := make(chan FetchEvent, maxFetchEvents)

	runCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)

	s.wg.Go(func() {
		defer close(events)
		defer cancel()
		defer stop()

		rec, entry, err := s.fetch(runCtx, date, func(p domain.Phase) {
			events <- FetchEvent{Type: EventProgress, Phase: p}
		})
		if err != nil {
			log.Error().Err(err).Str("date", date.String()).Msg("Fetch failed")
			evt := FetchEvent{Type: EventFailed, Err: err}
			var fe *domain.FetchError
			if errors.As(err, &fe) {
				evt.Phase = fe.Phase
			}
			events <- evt
			return
		}

		events <- FetchEvent{Type: EventDone, Phase: domain.PhaseRecordPersisted, Record: rec, Entry: entry}
	})

	return events
}

// Fetch resolves date through the catalog, reuses or downloads the image bytes
// and records the result. onProgress, if not nil, is called once per completed
// phase. Bytes are durable before metadata is written, and a failure never
// removes what earlier phases wrote.
func (s *FetchService) Fetch(ctx context.Context, date domain.DateKey, onProgress func(domain.Phase)) (*domain.ImageRecord, error) {
	rec, _, err := s.fetch(ctx, date, onProgress)
	return rec, err
}

// fetch is Fetch that also returns the catalog entry the record came from
func (s *FetchService) fetch(ctx context.Context, date domain.DateKey, onProgress func(domain.Phase)) (*domain.ImageRecord, *domain.CatalogEntry, error) {
	progress := func(p domain.Phase) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	if _, err := s.validator.Validate(date.Year(), date.Month(), date.Day()); err != nil {
		return nil, nil, s.fail(domain.FetchInvalidDate, domain.PhaseStart, err)
	}
	progress(domain.PhaseStart)

	if err := ctx.Err(); err != nil {
		return nil, nil, s.fail(domain.FetchCanceled, domain.PhaseStart, err)
	}

	entry, err := s.catalog.FetchMetadata(ctx, date)
	if err != nil {
		return nil, nil, s.failUnlessCanceled(ctx, domain.FetchCatalog, domain.PhaseStart, err)
	}
	progress(domain.PhaseCatalogResolved)

	fileRef := domain.FileRefFromTitle(entry.Title, entry.URL)
	cached := s.store.Exists(fileRef)
	s.metrics.RecordCacheDecision(cached)
	progress(domain.PhaseCacheDecision)

	if err := ctx.Err(); err != nil {
		return nil, nil, s.fail(domain.FetchCanceled, domain.PhaseCacheDecision, err)
	}

	if cached {
		// the bytes are not needed, only proof that the cached file is readable
		if _, err := s.store.Read(fileRef); err != nil {
			return nil, nil, s.fail(domain.FetchStorage, domain.PhaseCacheDecision, err)
		}
	} else {
		data, err := s.downloader.Download(ctx, entry.URL)
		if err != nil {
			return nil, nil, s.failUnlessCanceled(ctx, domain.FetchImageDownload, domain.PhaseCacheDecision, err)
		}
		s.metrics.RecordDownload(len(data))
		warnIfNotImage(data, entry.URL)

		if err := ctx.Err(); err != nil {
			return nil, nil, s.fail(domain.FetchCanceled, domain.PhaseCacheDecision, err)
		}

		if err := s.store.Write(fileRef, data); err != nil {
			return nil, nil, s.fail(domain.FetchStorage, domain.PhaseCacheDecision, err)
		}
	}
	progress(domain.PhaseBytesAcquired)

	if err := ctx.Err(); err != nil {
		return nil, nil, s.fail(domain.FetchCanceled, domain.PhaseBytesAcquired, err)
	}

	rec, err := domain.NewImageRecord(entry.Title, s.validator.Today(), date, fileRef)
	if err != nil {
		return nil, nil, s.fail(domain.FetchPersistence, domain.PhaseBytesAcquired, err)
	}

	if err := s.repo.Save(ctx, rec); err != nil {
		log.Warn().Err(err).Str("fileRef", fileRef).Msg("Image cached without a metadata record")
		return nil, nil, s.failUnlessCanceled(ctx, domain.FetchPersistence, domain.PhaseBytesAcquired, err)
	}
	progress(domain.PhaseRecordPersisted)

	s.metrics.RecordSuccess()
	log.Info().
		Str("date", date.String()).
		Str("id", rec.ID).
		Str("fileRef", fileRef).
		Bool("cacheHit", cached).
		Str("copyright", entry.Copyright).
		Msg("Fetched picture of the day")

	return rec, entry, nil
}

func (s *FetchService) fail(kind domain.FetchErrorKind, phase domain.Phase, err error) error {
	s.metrics.RecordFailure(kind)
	return &domain.FetchError{Kind: kind, Phase: phase, Err: err}
}

// failUnlessCanceled reports a cancelled context as FetchCanceled rather than
// as the failure of the call it interrupted.
func (s *FetchService) failUnlessCanceled(ctx context.Context, kind domain.FetchErrorKind, phase domain.Phase, err error) error {
	if ctx.Err() != nil {
		kind = domain.FetchCanceled
	}
	return s.fail(kind, phase, err)
}

// warnIfNotImage logs when downloaded bytes do not look like an image.
// Empty bodies are tolerated and cached as empty files.
func warnIfNotImage(data []byte, url string) {
	if len(data) == 0 {
		log.Warn().Str("url", url).Msg("Downloaded image is empty")
		return
	}
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		log.Warn().Str("url", url).Str("contentType", mtype.String()).Msg("Downloaded bytes are not an image")
	}
}
