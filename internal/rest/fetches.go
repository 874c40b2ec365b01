package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dfryer1193/apodcache/api"
	"github.com/dfryer1193/apodcache/apod/application"
	"github.com/dfryer1193/apodcache/apod/domain"
	"github.com/gin-gonic/gin"
)

type FetchHandler struct {
	fetches Fetcher
}

func NewFetchHandler(fetches Fetcher) *FetchHandler {
	return &FetchHandler{fetches: fetches}
}

// GetDate validates a year/month/day triple and returns its canonical form
func (h *FetchHandler) GetDate(c *gin.Context) {
	parts := make([]int, 0, 3)
	for _, name := range []string{"year", "month", "day"} {
		n, err := strconv.Atoi(c.Param(name))
		if err != nil {
			badRequest(c, name+" must be a number")
			return
		}
		parts = append(parts, n)
	}

	date, err := h.fetches.RequestDate(parts[0], parts[1], parts[2])
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.Date{Date: date.String()})
}

// PostFetch runs the fetch pipeline for the requested date and streams its
// progress as server-sent events. The stream ends after a "done" or "failed"
// event. Dropping the connection cancels the fetch.
func (h *FetchHandler) PostFetch(c *gin.Context) {
	req := &api.FetchRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, err.Error())
		return
	}

	parsed, err := domain.ParseDateKey(req.Date)
	if err != nil {
		writeError(c, err)
		return
	}
	date, err := h.fetches.RequestDate(parsed.Year(), parsed.Month(), parsed.Day())
	if err != nil {
		writeError(c, err)
		return
	}

	events := h.fetches.Start(c.Request.Context(), date)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	for evt := range events {
		c.SSEvent(string(evt.Type), eventPayload(evt))
		c.Writer.Flush()
	}
}

func eventPayload(evt application.FetchEvent) any {
	switch evt.Type {
	case application.EventDone:
		done := api.FetchedImage{Image: toAPIImage(evt.Record)}
		if evt.Entry != nil {
			done.Copyright = evt.Entry.Copyright
			done.Explanation = evt.Entry.Explanation
		}
		return done
	case application.EventFailed:
		failure := api.FetchFailure{
			Error: evt.Err.Error(),
			Phase: evt.Phase.String(),
		}
		var fe *domain.FetchError
		if errors.As(evt.Err, &fe) {
			failure.Kind = string(fe.Kind)
			failure.Retryable = fe.Retryable()
		}
		return failure
	}
	return api.FetchProgress{Phase: evt.Phase.String(), Percent: evt.Phase.Percent()}
}
