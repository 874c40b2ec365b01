package rest

import (
	"errors"
	"net/http"

	"github.com/dfryer1193/apodcache/api"
	"github.com/dfryer1193/apodcache/apod/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// statusFor maps a domain error onto an HTTP status
func statusFor(err error) int {
	var fe *domain.FetchError
	if errors.As(err, &fe) {
		switch fe.Kind {
		case domain.FetchInvalidDate:
			return http.StatusBadRequest
		case domain.FetchCatalog, domain.FetchImageDownload:
			return http.StatusBadGateway
		case domain.FetchCanceled:
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	}

	var ce *domain.CatalogError
	var de *domain.DownloadError
	switch {
	case errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrUnsupportedExtension),
		errors.Is(err, domain.ErrInvalidFileRef):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrImageNotFound), errors.Is(err, domain.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrImageExists):
		return http.StatusConflict
	case errors.As(err, &ce), errors.As(err, &de):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError responds with the status for err. Internal failures are logged
// and their details kept out of the response.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		msg = http.StatusText(status)
	}
	c.Error(err)
	c.AbortWithStatusJSON(status, api.Error{Error: msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, api.Error{Error: msg})
}
