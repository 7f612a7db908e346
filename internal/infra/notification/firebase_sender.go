// Package notification implements the push transport behind the
// service.NotificationSender interface.
package notification

import (
	"context"
	"fmt"

	"beacon/config"
	"beacon/internal/domain/entity"
	"beacon/internal/domain/service"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Firebase caps multicast requests at 500 tokens.
const multicastChunkSize = 500

type firebaseSender struct {
	client *messaging.Client
}

// NewFirebaseSender creates a push sender backed by Firebase Cloud Messaging.
// FCM fronts all three transports here: APNs and Web Push registrations are
// exchanged for FCM registration tokens client-side.
func NewFirebaseSender(ctx context.Context, cfg *config.FirebaseConfig) (service.NotificationSender, error) {
	opts := []option.ClientOption{}
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	return &firebaseSender{
		client: client,
	}, nil
}

// Send delivers the message to every address, chunked to the multicast limit.
func (s *firebaseSender) Send(ctx context.Context, addrs []service.PushAddress, msg entity.PushMessage, data map[string]string) (*service.SendResult, error) {
	result := &service.SendResult{}
	if len(addrs) == 0 {
		return result, nil
	}

	tokens := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		tokens = append(tokens, addr.Token)
	}

	for start := 0; start < len(tokens); start += multicastChunkSize {
		end := min(start+multicastChunkSize, len(tokens))

		chunkResult, err := s.sendChunk(ctx, tokens[start:end], msg, data)
		if err != nil {
			return nil, err
		}

		result.Sent += chunkResult.Sent
		result.Failed += chunkResult.Failed
		result.InvalidTokens = append(result.InvalidTokens, chunkResult.InvalidTokens...)
	}

	return result, nil
}

func (s *firebaseSender) sendChunk(ctx context.Context, tokens []string, msg entity.PushMessage, data map[string]string) (*service.SendResult, error) {
	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title:    msg.Title,
			Body:     msg.Body,
			ImageURL: msg.ImageURL,
		},
		Data: data,
	}

	response, err := s.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("failed to send multicast notification: %w", err)
	}

	result := &service.SendResult{
		Sent:   response.SuccessCount,
		Failed: response.FailureCount,
	}

	// Collect tokens the transport reports as dead so callers can purge them.
	for idx, sendResponse := range response.Responses {
		if sendResponse.Error == nil {
			continue
		}
		if messaging.IsInvalidArgument(sendResponse.Error) ||
			messaging.IsUnregistered(sendResponse.Error) {
			result.InvalidTokens = append(result.InvalidTokens, tokens[idx])
		}
	}

	return result, nil
}
