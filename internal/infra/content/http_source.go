// Package content implements the service.ContentSource interface against the
// content platform's HTTP API.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"beacon/config"
	"beacon/internal/domain/service"

	"github.com/pkg/errors"
)

const defaultRequestTimeout = 10 * time.Second

type contextKey string

// keyForwardedAuth carries the caller's Authorization header so permission
// checks run as the original request principal.
const keyForwardedAuth contextKey = "forwarded_auth"

// WithForwardedAuth returns a context carrying the caller's Authorization
// header value.
func WithForwardedAuth(ctx context.Context, header string) context.Context {
	if header == "" {
		return ctx
	}

	return context.WithValue(ctx, keyForwardedAuth, header)
}

func forwardedAuth(ctx context.Context) string {
	if header, ok := ctx.Value(keyForwardedAuth).(string); ok {
		return header
	}

	return ""
}

// httpContentSource implements ContentSource over the platform's HTTP API.
type httpContentSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPContentSource creates a content-source client from configuration.
func NewHTTPContentSource(cfg *config.ContentSourceConfig) service.ContentSource {
	timeout := defaultRequestTimeout
	if cfg != nil && cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}

	baseURL := ""
	if cfg != nil {
		baseURL = cfg.BaseURL
	}

	return &httpContentSource{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// EntityTypes returns the platform's content-type vocabulary.
func (s *httpContentSource) EntityTypes(ctx context.Context) (map[string]string, error) {
	var payload struct {
		Types map[string]string `json:"types"`
	}

	if err := s.get(ctx, "/api/entity-types", &payload); err != nil {
		return nil, errors.Wrap(err, "failed to fetch entity types")
	}

	return payload.Types, nil
}

// Content returns the entity for a (type, id) pair, or nil when absent.
func (s *httpContentSource) Content(ctx context.Context, typeTag string, id int64) (*service.Content, error) {
	var payload struct {
		Title    string `json:"title"`
		URL      string `json:"url"`
		ImageURL string `json:"image_url"`
	}

	path := fmt.Sprintf("/api/content/%s/%d", typeTag, id)
	if err := s.get(ctx, path, &payload); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}

		return nil, errors.Wrap(err, "failed to fetch content")
	}

	return &service.Content{
		Type:     typeTag,
		ID:       id,
		Title:    payload.Title,
		URL:      payload.URL,
		ImageURL: payload.ImageURL,
	}, nil
}

// CurrentUserCan reports whether the request principal may perform action on
// the given content.
func (s *httpContentSource) CurrentUserCan(ctx context.Context, action, typeTag string, id int64) (bool, error) {
	var payload struct {
		Allowed bool `json:"allowed"`
	}

	path := fmt.Sprintf("/api/permissions/%s/%s/%d", action, typeTag, id)
	if err := s.get(ctx, path, &payload); err != nil {
		if errors.Is(err, errNotFound) {
			return false, nil
		}

		return false, errors.Wrap(err, "failed to check permission")
	}

	return payload.Allowed, nil
}

var errNotFound = errors.New("content source: not found")

func (s *httpContentSource) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")
	if auth := forwardedAuth(ctx); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return errors.Errorf("content source returned status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.WithStack(err)
	}

	return nil
}
