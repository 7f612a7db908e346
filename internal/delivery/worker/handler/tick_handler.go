// Package handler contains the echo handlers of the worker surface.
package handler

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"beacon/config"
	deliverycontext "beacon/internal/delivery/context"
	"beacon/internal/domain/constants"
	"beacon/internal/domain/service"
	"beacon/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"google.golang.org/api/idtoken"
)

// PubSubMessage represents the structure of a Pub/Sub push message
type PubSubMessage struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// TickHandler handles the worker's inbound triggers: Pub/Sub wake events and
// manual tick requests. Both funnel into the same queue pass, so a duplicate
// or spurious trigger costs one empty claim at worst.
type TickHandler struct {
	verifyPushAuth bool
	logger         *slog.Logger
	workerUC       usecase.WorkerUsecase
}

// TickHandlerParams holds dependencies for the TickHandler
type TickHandlerParams struct {
	fx.In

	Config   *config.Config
	Logger   *slog.Logger
	WorkerUC usecase.WorkerUsecase
}

// NewTickHandler creates a new worker trigger handler
func NewTickHandler(params TickHandlerParams) *TickHandler {
	// Pub/Sub push requests carry a Google-signed token outside development
	verifyPushAuth := params.Config.PubSub != nil &&
		params.Config.PubSub.Provider == constants.PubSubProviderGoogle &&
		params.Config.Env.Env != constants.EnvDevelop

	return &TickHandler{
		verifyPushAuth: verifyPushAuth,
		logger:         params.Logger,
		workerUC:       params.WorkerUC,
	}
}

// HandleTick runs one queue pass on demand. Wired for cron-style schedulers.
func (h *TickHandler) HandleTick(c echo.Context) error {
	report, err := h.workerUC.Tick(c.Request().Context())
	if err != nil {
		h.logger.Error("[Worker] Manual tick failed", slog.Any("error", err))

		return c.NoContent(http.StatusInternalServerError)
	}

	return c.JSON(http.StatusOK, report)
}

// HandlePush handles incoming Pub/Sub wake events
func (h *TickHandler) HandlePush(c echo.Context) error {
	ctx := c.Request().Context()

	if h.verifyPushAuth {
		if err := verifyPubSubToken(c.Request()); err != nil {
			h.logger.Warn("[Worker] Invalid Pub/Sub token", slog.Any("error", err))

			return c.NoContent(http.StatusUnauthorized)
		}
	}

	var pushMsg PubSubMessage
	if err := c.Bind(&pushMsg); err != nil {
		h.logger.Error("[Worker] Failed to parse push message", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	data, err := base64.StdEncoding.DecodeString(pushMsg.Message.Data)
	if err != nil {
		h.logger.Error("[Worker] Failed to decode message data", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	var event service.QueueEvent
	if err := json.Unmarshal(data, &event); err != nil {
		h.logger.Error("[Worker] Failed to parse queue event", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	requestID := h.extractRequestID(c, &pushMsg, &event)
	reqLogger := h.logger.With(slog.String("request_id", requestID))
	ctx = deliverycontext.WithRequestID(ctx, requestID)
	ctx = deliverycontext.WithLogger(ctx, reqLogger)

	reqLogger.Info("[Worker] Processing queue wake event",
		slog.Int64("entry_id", event.EntryID),
		slog.Int("target_count", event.Targets),
	)

	// The wake event carries no authoritative state; the tick claims
	// whatever is pending, which includes the event's entry.
	report, err := h.workerUC.Tick(ctx)
	if err != nil {
		reqLogger.Error("[Worker] Failed to process queue wake event", slog.Any("error", err))

		// 503 asks Pub/Sub to redeliver; the claim discipline makes the
		// retry harmless.
		return c.NoContent(http.StatusServiceUnavailable)
	}

	reqLogger.Info("[Worker] Queue wake event processed",
		slog.Int64("entry_id", event.EntryID),
		slog.Int("completed", report.Completed),
		slog.Int("sent", report.Sent),
	)

	return c.NoContent(http.StatusOK)
}

// extractRequestID extracts request_id from message attributes, event, or generates a new one
func (h *TickHandler) extractRequestID(c echo.Context, pushMsg *PubSubMessage, event *service.QueueEvent) string {
	if requestID, ok := pushMsg.Message.Attributes["request_id"]; ok && requestID != "" {
		return requestID
	}

	if event.RequestID != "" {
		return event.RequestID
	}

	if requestID := deliverycontext.GetRequestIDFromContext(c.Request().Context()); requestID != "" {
		return requestID
	}

	return uuid.New().String()
}

// verifyPubSubToken verifies the JWT token from Google Pub/Sub push requests
// Reference: https://cloud.google.com/pubsub/docs/push#authenticating_standard_push_requests
func verifyPubSubToken(req *http.Request) error {
	authHeader := req.Header.Get("Authorization")
	if authHeader == "" {
		return errors.New("missing authorization header")
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return errors.New("invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, bearerPrefix)

	// The audience is the URL of this push endpoint
	scheme := "https"
	if req.TLS == nil {
		scheme = "http" // For local development
	}
	audience := fmt.Sprintf("%s://%s%s", scheme, req.Host, req.URL.Path)

	payload, err := idtoken.Validate(req.Context(), token, audience)
	if err != nil {
		return errors.Wrap(err, "failed to validate token")
	}

	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return errors.Errorf("invalid issuer: %s", payload.Issuer)
	}

	if emailVerified, ok := payload.Claims["email_verified"].(bool); ok && !emailVerified {
		return errors.New("email not verified")
	}

	return nil
}
