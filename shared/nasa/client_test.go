package nasa

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dfryer1193/apodcache/apod/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orionJSON = `{
	"date": "2024-01-15",
	"title": "Orion Nebula",
	"url": "https://apod.example/image/orion.png",
	"hdurl": "https://apod.example/image/orion_hd.png",
	"media_type": "image",
	"copyright": " Someone \n",
	"explanation": "A stellar nursery."
}`

func testConfig(baseURL string) *Config {
	return &Config{
		BaseURL:           baseURL,
		APIKey:            "TEST_KEY",
		RequestTimeout:    5 * time.Second,
		RateLimit:         0,
		RateBurst:         1,
		MetadataCacheSize: 16,
		MaxImageBytes:     1024,
	}
}

func mustDate(t *testing.T, s string) domain.DateKey {
	t.Helper()
	d, err := domain.ParseDateKey(s)
	require.NoError(t, err)
	return d
}

func newTestClient(t *testing.T, cfg *Config) *Client {
	t.Helper()
	c, err := NewClient(cfg, nil)
	require.NoError(t, err)
	return c
}

func TestFetchMetadata_Success(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"api_key": r.URL.Query().Get("api_key"),
			"date":    r.URL.Query().Get("date"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(orionJSON))
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig(srv.URL))
	entry, err := c.FetchMetadata(context.Background(), mustDate(t, "2024-01-15"))
	require.NoError(t, err)

	assert.Equal(t, "TEST_KEY", gotQuery["api_key"])
	assert.Equal(t, "2024-01-15", gotQuery["date"])
	assert.Equal(t, "Orion Nebula", entry.Title)
	assert.Equal(t, "https://apod.example/image/orion.png", entry.URL)
	assert.Equal(t, "https://apod.example/image/orion_hd.png", entry.HDURL)
	assert.Equal(t, "Someone", entry.Copyright)
	assert.Equal(t, "2024-01-15", entry.Date.String())
}

func TestFetchMetadata_PreferHD(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(orionJSON))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.PreferHD = true
	c := newTestClient(t, cfg)

	entry, err := c.FetchMetadata(context.Background(), mustDate(t, "2024-01-15"))
	require.NoError(t, err)
	assert.Equal(t, "https://apod.example/image/orion_hd.png", entry.URL)
}

func TestFetchMetadata_Memoised(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(orionJSON))
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig(srv.URL))
	date := mustDate(t, "2024-01-15")

	first, err := c.FetchMetadata(context.Background(), date)
	require.NoError(t, err)
	first.Title = "mutated by caller"

	second, err := c.FetchMetadata(context.Background(), date)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "Orion Nebula", second.Title)
}

func TestFetchMetadata_FailuresNotMemoised(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(orionJSON))
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig(srv.URL))
	date := mustDate(t, "2024-01-15")

	_, err := c.FetchMetadata(context.Background(), date)
	require.Error(t, err)

	entry, err := c.FetchMetadata(context.Background(), date)
	require.NoError(t, err)
	assert.Equal(t, "Orion Nebula", entry.Title)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchMetadata_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   domain.CatalogErrorKind
		wantStatus int
	}{
		{
			name:       "not found",
			status:     http.StatusNotFound,
			body:       `{"code":404,"msg":"No data available for date: 2024-01-15"}`,
			wantKind:   domain.CatalogNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "server error",
			status:     http.StatusInternalServerError,
			body:       `oops`,
			wantKind:   domain.CatalogBadResponse,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "rate limited",
			status:     http.StatusTooManyRequests,
			body:       `{"error":{"code":"OVER_RATE_LIMIT","message":"You have exceeded your rate limit."}}`,
			wantKind:   domain.CatalogBadResponse,
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "invalid json",
			status:     http.StatusOK,
			body:       `{not json`,
			wantKind:   domain.CatalogBadResponse,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing url",
			status:     http.StatusOK,
			body:       `{"title":"Orion Nebula","media_type":"image"}`,
			wantKind:   domain.CatalogBadResponse,
			wantStatus: http.StatusOK,
		},
		{
			name:     "video day",
			status:   http.StatusOK,
			body:     `{"title":"Launch","url":"https://youtube.example/embed/x","media_type":"video"}`,
			wantKind: domain.CatalogNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestClient(t, testConfig(srv.URL))
			_, err := c.FetchMetadata(context.Background(), mustDate(t, "2024-01-15"))

			var ce *domain.CatalogError
			require.True(t, errors.As(err, &ce), "error %v is not a CatalogError", err)
			assert.Equal(t, tt.wantKind, ce.Kind)
			assert.Equal(t, tt.wantStatus, ce.StatusCode)
			assert.Contains(t, ce.Error(), "fetching entry for 2024-01-15")
		})
	}
}

func TestFetchMetadata_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := newTestClient(t, testConfig(srv.URL))
	_, err := c.FetchMetadata(context.Background(), mustDate(t, "2024-01-15"))

	var ce *domain.CatalogError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, domain.CatalogNetwork, ce.Kind)
}

func TestFetchMetadata_Canceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(orionJSON))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, testConfig(srv.URL))
	_, err := c.FetchMetadata(ctx, mustDate(t, "2024-01-15"))

	var ce *domain.CatalogError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, domain.CatalogNetwork, ce.Kind)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDownload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("\x89PNG\r\n\x1a\nbytes"))
	})
	mux.HandleFunc("/empty.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/huge.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	})
	mux.HandleFunc("/moved.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, testConfig(srv.URL))
	ctx := context.Background()

	data, err := c.Download(ctx, srv.URL+"/ok.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\nbytes"), data)

	data, err = c.Download(ctx, srv.URL+"/empty.jpg")
	require.NoError(t, err)
	assert.Empty(t, data)

	_, err = c.Download(ctx, srv.URL+"/missing.jpg")
	var de *domain.DownloadError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, http.StatusNotFound, de.StatusCode)

	_, err = c.Download(ctx, srv.URL+"/moved.jpg")
	require.True(t, errors.As(err, &de))
	assert.Equal(t, http.StatusNoContent, de.StatusCode)

	_, err = c.Download(ctx, srv.URL+"/huge.jpg")
	require.True(t, errors.As(err, &de))
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, err = c.Download(ctx, "http://[::1]:namedport/x.jpg")
	require.True(t, errors.As(err, &de))
}

func TestNewConfig(t *testing.T) {
	for _, key := range []string{"APOD_BASE_URL", "APOD_MAX_IMAGE_BYTES", "APOD_REQUEST_TIMEOUT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("APOD_API_KEY", "abc123")
	t.Setenv("APOD_RATE_LIMIT", "2.5")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://api.nasa.gov/planetary/apod", cfg.BaseURL)
	assert.Equal(t, "abc123", cfg.APIKey)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, int64(64<<20), cfg.MaxImageBytes)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestNewClient_RejectsEmptyBaseURL(t *testing.T) {
	_, err := NewClient(&Config{}, nil)
	assert.Error(t, err)
}
