package nasa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dfryer1193/apodcache/apod/domain"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// ErrImageTooLarge is wrapped by a DownloadError when the body exceeds MaxImageBytes.
var ErrImageTooLarge = errors.New("image exceeds size limit")

// maxMetadataBytes bounds catalog responses, which are small JSON documents.
const maxMetadataBytes = 1 << 20

type Config struct {
	BaseURL           string        `env:"APOD_BASE_URL" envDefault:"https://api.nasa.gov/planetary/apod"`
	APIKey            string        `env:"APOD_API_KEY" envDefault:"DEMO_KEY"`
	PreferHD          bool          `env:"APOD_PREFER_HD" envDefault:"false"`
	RequestTimeout    time.Duration `env:"APOD_REQUEST_TIMEOUT" envDefault:"30s"`
	RateLimit         float64       `env:"APOD_RATE_LIMIT" envDefault:"1"`
	RateBurst         int           `env:"APOD_RATE_BURST" envDefault:"5"`
	MetadataCacheSize int           `env:"APOD_METADATA_CACHE_SIZE" envDefault:"128"`
	MaxImageBytes     int64         `env:"APOD_MAX_IMAGE_BYTES" envDefault:"67108864"`
}

// NewConfig reads the catalog client settings from the environment
func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse nasa config: %w", err)
	}
	return cfg, nil
}

var (
	_ domain.Catalog    = (*Client)(nil)
	_ domain.Downloader = (*Client)(nil)
)

// Client talks to the APOD catalog API and downloads the images it points at.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	preferHD      bool
	maxImageBytes int64
	limiter       *rate.Limiter
	memo          *lru.Cache[domain.DateKey, domain.CatalogEntry]
}

// NewClient builds a Client from cfg. A nil httpClient gets a default one
// with cfg.RequestTimeout.
func NewClient(cfg *Config, httpClient *http.Client) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("nasa: base URL cannot be empty")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("nasa: invalid base URL: %w", err)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		httpClient:    httpClient,
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		preferHD:      cfg.PreferHD,
		maxImageBytes: cfg.MaxImageBytes,
		limiter:       rate.NewLimiter(limit, burst),
	}

	if cfg.MetadataCacheSize > 0 {
		memo, err := lru.New[domain.DateKey, domain.CatalogEntry](cfg.MetadataCacheSize)
		if err != nil {
			return nil, fmt.Errorf("nasa: failed to create metadata cache: %w", err)
		}
		c.memo = memo
	}

	return c, nil
}

// apodResponse is the subset of the APOD JSON document the client reads
type apodResponse struct {
	Date        string `json:"date"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	HDURL       string `json:"hdurl"`
	MediaType   string `json:"media_type"`
	Copyright   string `json:"copyright"`
	Explanation string `json:"explanation"`
}

// apiErrorResponse covers both error shapes the API gateway returns
type apiErrorResponse struct {
	Msg   string `json:"msg"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FetchMetadata resolves date to its catalog entry. Successful lookups are
// memoised; failures are not.
func (c *Client) FetchMetadata(ctx context.Context, date domain.DateKey) (*domain.CatalogEntry, error) {
	op := fmt.Sprintf("fetching entry for %s", date)

	if c.memo != nil {
		if entry, ok := c.memo.Get(date); ok {
			return &entry, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, handleCatalogError(op, domain.CatalogNetwork, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.entryURL(date), nil)
	if err != nil {
		return nil, handleCatalogError(op, domain.CatalogNetwork, 0, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, handleCatalogError(op, domain.CatalogNetwork, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes))
	if err != nil {
		return nil, handleCatalogError(op, domain.CatalogNetwork, resp.StatusCode, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, handleCatalogError(op, domain.CatalogNotFound, resp.StatusCode, apiError(body))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, handleCatalogError(op, domain.CatalogBadResponse, resp.StatusCode, apiError(body))
	}

	var payload apodResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, handleCatalogError(op, domain.CatalogBadResponse, resp.StatusCode, fmt.Errorf("invalid JSON: %w", err))
	}

	if payload.Title == "" || payload.URL == "" {
		return nil, handleCatalogError(op, domain.CatalogBadResponse, resp.StatusCode, errors.New("response is missing title or url"))
	}

	// Some days publish a video or an interactive page instead of a picture
	if payload.MediaType != "" && payload.MediaType != "image" {
		return nil, handleCatalogError(op, domain.CatalogNotFound, 0, fmt.Errorf("entry is a %s, not an image", payload.MediaType))
	}

	entry := domain.CatalogEntry{
		Date:        date,
		Title:       payload.Title,
		URL:         payload.URL,
		HDURL:       payload.HDURL,
		MediaType:   payload.MediaType,
		Copyright:   strings.TrimSpace(payload.Copyright),
		Explanation: payload.Explanation,
	}
	if c.preferHD && payload.HDURL != "" {
		entry.URL = payload.HDURL
	}

	if c.memo != nil {
		c.memo.Add(date, entry)
	}

	return &entry, nil
}

// Download fetches the bytes at rawURL. Only HTTP 200 is accepted. An empty
// body is returned as an empty slice.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &domain.DownloadError{URL: rawURL, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.DownloadError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxMetadataBytes))
		return nil, &domain.DownloadError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	reader := io.Reader(resp.Body)
	if c.maxImageBytes > 0 {
		reader = io.LimitReader(resp.Body, c.maxImageBytes+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, &domain.DownloadError{URL: rawURL, Err: err}
	}
	if c.maxImageBytes > 0 && int64(len(data)) > c.maxImageBytes {
		return nil, &domain.DownloadError{URL: rawURL, Err: fmt.Errorf("%w of %d bytes", ErrImageTooLarge, c.maxImageBytes)}
	}

	return data, nil
}

func (c *Client) entryURL(date domain.DateKey) string {
	u, _ := url.Parse(c.baseURL)
	q := u.Query()
	q.Set("api_key", c.apiKey)
	q.Set("date", date.String())
	u.RawQuery = q.Encode()
	return u.String()
}

// apiError extracts the gateway's message from an error body, if it has one
func apiError(body []byte) error {
	var resp apiErrorResponse
	if err := json.Unmarshal(body, &resp); err == nil {
		if resp.Msg != "" {
			return errors.New(resp.Msg)
		}
		if resp.Error.Message != "" {
			return fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Message)
		}
	}
	return nil
}

// handleCatalogError wraps a failed catalog call in a structured domain error.
func handleCatalogError(op string, kind domain.CatalogErrorKind, status int, err error) error {
	return &domain.CatalogError{
		Kind:       kind,
		Op:         "nasa: " + op,
		StatusCode: status,
		Err:        err,
	}
}
