package pubsub

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"beacon/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPublisherTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLocalHTTPPublisher_PublishQueueEvent(t *testing.T) {
	var received PubSubPushMessage
	var requestIDHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestIDHeader = r.Header.Get("X-Request-Id")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	publisher := NewLocalHTTPPublisher(server.URL, newPublisherTestLogger())
	defer publisher.Close()

	event := &service.QueueEvent{RequestID: "req-1", EntryID: 17, Targets: 2}
	require.NoError(t, publisher.PublishQueueEvent(context.Background(), event))

	assert.Equal(t, "req-1", requestIDHeader)
	assert.Equal(t, "projects/local/subscriptions/push-queue-sub", received.Subscription)
	assert.Equal(t, "17", received.Message.MessageID)
	assert.Equal(t, "17", received.Message.Attributes["entry_id"])
	assert.Equal(t, "req-1", received.Message.Attributes["request_id"])

	// The data field round-trips the event the way a push subscription would
	// deliver it.
	data, err := base64.StdEncoding.DecodeString(received.Message.Data)
	require.NoError(t, err)
	var decoded service.QueueEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *event, decoded)
}

func TestLocalHTTPPublisher_WorkerFailureSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	publisher := NewLocalHTTPPublisher(server.URL, newPublisherTestLogger())
	defer publisher.Close()

	err := publisher.PublishQueueEvent(context.Background(), &service.QueueEvent{EntryID: 1})
	assert.Error(t, err)
}

func TestNoopPublisher_AcceptsEverything(t *testing.T) {
	publisher := &noopPublisher{logger: newPublisherTestLogger()}

	assert.NoError(t, publisher.PublishQueueEvent(context.Background(), &service.QueueEvent{EntryID: 1}))
	assert.NoError(t, publisher.Close())
}
