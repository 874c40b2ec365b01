package rest

import (
	"context"
	"net/http"

	"github.com/dfryer1193/apodcache/apod/application"
	"github.com/dfryer1193/apodcache/apod/domain"
	"github.com/gin-gonic/gin"
)

// Fetcher starts fetches and validates requested days
type Fetcher interface {
	RequestDate(year, month, day int) (domain.DateKey, error)
	Start(ctx context.Context, date domain.DateKey) <-chan application.FetchEvent
}

// ImageLibrary is the saved image collection
type ImageLibrary interface {
	ListSaved(ctx context.Context) ([]*domain.ImageRecord, error)
	Get(ctx context.Context, id string) (*domain.ImageRecord, error)
	ReadFile(ctx context.Context, id string) (*domain.ImageRecord, []byte, error)
	HasDate(ctx context.Context, catalogDate domain.DateKey) (bool, error)
	Rename(ctx context.Context, id string, name string) (*domain.ImageRecord, error)
	Delete(ctx context.Context, id string) (*domain.ImageRecord, error)
	Restore(ctx context.Context, rec *domain.ImageRecord) error
}

type Dependencies struct {
	Fetches Fetcher
	Library ImageLibrary

	// Ping reports whether the metadata store is reachable. Optional.
	Ping func(ctx context.Context) error

	// Metrics serves the Prometheus exposition format. Optional.
	Metrics http.Handler
}

func NewApi(router *gin.Engine, deps Dependencies) {
	fetches := NewFetchHandler(deps.Fetches)
	images := NewImageHandler(deps.Library)

	v1 := router.Group("api/v1")
	{
		v1.GET("/dates/:year/:month/:day", fetches.GetDate)
		v1.POST("/fetches", fetches.PostFetch)

		v1.GET("/images", images.ListImages)
		v1.POST("/images", images.RestoreImage)
		v1.GET("/images/exists", images.DateExists)
		v1.GET("/images/:id", images.GetImage)
		v1.GET("/images/:id/file", images.GetImageFile)
		v1.PATCH("/images/:id", images.RenameImage)
		v1.DELETE("/images/:id", images.DeleteImage)
	}

	router.GET("/healthz", healthCheck(deps.Ping))
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}
}

func healthCheck(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			if err := ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
