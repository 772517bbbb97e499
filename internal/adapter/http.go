package adapter

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/go-delta-sync/internal/config"
	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/internal/utils"
	"github.com/MKhiriev/go-delta-sync/models"
)

// gzipThreshold is the body size from which uploads are compressed.
const gzipThreshold = 1 << 10

type httpServerAdapter struct {
	client  *utils.HTTPClient
	baseURL string

	mu    sync.RWMutex
	token string

	logger *logger.Logger
}

// NewHTTPServerAdapter constructs the HTTP implementation of
// [ServerAdapter]. cfg.ServerURL is normalised ("localhost:4100" becomes
// "http://localhost:4100"); cfg.Retries and cfg.RetryWait drive the backoff
// for transient failures.
func NewHTTPServerAdapter(cfg config.ClientConfig, logger *logger.Logger) (ServerAdapter, error) {
	baseURL, err := normalizeBaseURL(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}

	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}

	client := utils.NewHTTPClient(utils.HTTPClientOptions{
		BaseURL:      baseURL,
		RetryCount:   retries,
		RetryWait:    cfg.RetryWait,
		RetryMaxWait: 8 * cfg.RetryWait,
		RetryIf:      retryTransient,
	})
	client.OnError(func(req *resty.Request, err error) {
		logger.Debug().Err(err).
			Str("func", "httpServerAdapter").
			Str("url", req.URL).
			Int("attempt", req.Attempt).
			Msg("request failed")
	})

	a := &httpServerAdapter{client: client, baseURL: baseURL, logger: logger}
	a.SetToken(cfg.Token)
	return a, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// SetToken implements [ServerAdapter].
func (h *httpServerAdapter) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

// Token implements [ServerAdapter].
func (h *httpServerAdapter) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// Upload implements [ServerAdapter]. Bodies above a kilobyte are sent
// gzip-compressed.
func (h *httpServerAdapter) Upload(ctx context.Context, env models.Envelope) (models.UploadResponse, error) {
	body, err := json.Marshal(models.UploadRequest{
		Cursor:           env.Cursor,
		Deltas:           env.Deltas,
		EncryptedPayload: env.EncryptedPayload,
		Signature:        env.Signature,
		JWTUsed:          env.JWTUsed,
	})
	if err != nil {
		return models.UploadResponse{}, fmt.Errorf("encode upload request: %w", err)
	}

	req := h.authedRequest(ctx).SetHeader("Content-Type", "application/json")
	if len(body) >= gzipThreshold {
		if body, err = gzipBytes(body); err != nil {
			return models.UploadResponse{}, fmt.Errorf("compress upload request: %w", err)
		}
		req.SetHeader("Content-Encoding", "gzip")
	}

	resp, err := req.SetBody(body).Post("/sync/upload")
	if err != nil {
		return models.UploadResponse{}, wrapRequestError("upload request", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.UploadResponse{}, err
	}

	var out models.UploadResponse
	if err = json.Unmarshal(resp.Body(), &out); err != nil {
		return models.UploadResponse{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return out, nil
}

// Download implements [ServerAdapter].
func (h *httpServerAdapter) Download(ctx context.Context, cursor string) (models.DownloadResponse, error) {
	req := h.authedRequest(ctx)
	if cursor != "" {
		req.SetQueryParam("cursor", cursor)
	}

	resp, err := req.Get("/sync/download")
	if err != nil {
		return models.DownloadResponse{}, wrapRequestError("download request", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.DownloadResponse{}, err
	}

	var out models.DownloadResponse
	if err = json.Unmarshal(resp.Body(), &out); err != nil {
		return models.DownloadResponse{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return out, nil
}

// Health implements [ServerAdapter].
func (h *httpServerAdapter) Health(ctx context.Context) (models.HealthResponse, error) {
	resp, err := h.client.R().SetContext(ctx).Get("/health")
	if err != nil {
		return models.HealthResponse{}, wrapRequestError("health request", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.HealthResponse{}, err
	}

	var out models.HealthResponse
	if err = json.Unmarshal(resp.Body(), &out); err != nil {
		return models.HealthResponse{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return out, nil
}

func (h *httpServerAdapter) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetAuthToken(token)
	}
	return req
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
