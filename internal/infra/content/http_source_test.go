package content

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"beacon/config"
	"beacon/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSourceAgainst(t *testing.T, handler http.HandlerFunc) service.ContentSource {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewHTTPContentSource(&config.ContentSourceConfig{BaseURL: server.URL})
}

func TestHTTPContentSource_EntityTypes(t *testing.T) {
	source := newSourceAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/entity-types", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"types": {"post": "Post", "comment": "Comment"}}`))
	})

	types, err := source.EntityTypes(context.Background())

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"post": "Post", "comment": "Comment"}, types)
}

func TestHTTPContentSource_Content(t *testing.T) {
	source := newSourceAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/content/post/12", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title": "A post", "url": "https://example.com/post/12", "image_url": "https://example.com/post/12.jpg"}`))
	})

	content, err := source.Content(context.Background(), "post", 12)

	require.NoError(t, err)
	require.NotNil(t, content)
	assert.Equal(t, "post", content.Type)
	assert.Equal(t, int64(12), content.ID)
	assert.Equal(t, "A post", content.Title)
	assert.Equal(t, "https://example.com/post/12", content.URL)
}

func TestHTTPContentSource_ContentAbsent(t *testing.T) {
	source := newSourceAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	content, err := source.Content(context.Background(), "post", 999)

	// Absence is a normal answer, not an error.
	require.NoError(t, err)
	assert.Nil(t, content)
}

func TestHTTPContentSource_CurrentUserCan_ForwardsCallerAuth(t *testing.T) {
	var seenAuth string
	source := newSourceAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/permissions/read/post/12", r.URL.Path)
		seenAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"allowed": true}`))
	})

	ctx := WithForwardedAuth(context.Background(), "Bearer caller-token")
	allowed, err := source.CurrentUserCan(ctx, service.ActionRead, "post", 12)

	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, "Bearer caller-token", seenAuth)
}

func TestHTTPContentSource_CurrentUserCan_DeniedAnswer(t *testing.T) {
	source := newSourceAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"allowed": false}`))
	})

	allowed, err := source.CurrentUserCan(context.Background(), service.ActionRead, "post", 12)

	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestHTTPContentSource_CurrentUserCan_AbsentContentIsDenied(t *testing.T) {
	source := newSourceAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	allowed, err := source.CurrentUserCan(context.Background(), service.ActionRead, "post", 999)

	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestHTTPContentSource_ServerErrorSurfaces(t *testing.T) {
	source := newSourceAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := source.EntityTypes(context.Background())
	assert.Error(t, err)

	_, err = source.Content(context.Background(), "post", 12)
	assert.Error(t, err)
}
