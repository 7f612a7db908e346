package impl

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"beacon/config"
	"beacon/internal/domain/entity"
	"beacon/internal/domain/repository"
	"beacon/internal/domain/service"
	"beacon/internal/infra/metrics"
	"beacon/internal/usecase"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
)

// Per-entry dispatch retry policy. Retries beyond this window are handled by
// the stale-claim sweep on a later tick.
const (
	dispatchInitialInterval = 500 * time.Millisecond
	dispatchMaxInterval     = 5 * time.Second
	dispatchMaxElapsedTime  = 15 * time.Second
)

const defaultWorkerConcurrency = 8

type entryOutcome int

const (
	outcomeCompleted entryOutcome = iota
	outcomeDropped
	outcomeRetained
)

type entryResult struct {
	outcome entryOutcome
	sent    int
	failed  int
}

type queueWorkerService struct {
	queueRepo repository.QueueRepository
	tokenRepo repository.TokenRepository
	sender    service.NotificationSender
	logger    *slog.Logger
	pool      pond.Pool

	batchSize    int
	claimTimeout time.Duration
	maxAttempts  int
}

// NewQueueWorkerService creates a new queue worker service instance
func NewQueueWorkerService(
	queueRepo repository.QueueRepository,
	tokenRepo repository.TokenRepository,
	sender service.NotificationSender,
	logger *slog.Logger,
	queueCfg config.QueueConfig,
) usecase.WorkerUsecase {
	return &queueWorkerService{
		queueRepo:    queueRepo,
		tokenRepo:    tokenRepo,
		sender:       sender,
		logger:       logger,
		pool:         pond.NewPool(defaultWorkerConcurrency),
		batchSize:    queueCfg.BatchSize,
		claimTimeout: queueCfg.ClaimTimeout,
		maxAttempts:  queueCfg.MaxAttempts,
	}
}

// Tick performs one full worker pass. Claiming is atomic at the store level,
// so any number of workers can tick concurrently without double delivery.
func (s *queueWorkerService) Tick(ctx context.Context) (*usecase.TickReport, error) {
	started := time.Now()
	defer func() {
		metrics.ObserveTickDuration(time.Since(started))
	}()

	report := &usecase.TickReport{}

	// Recover entries whose worker died mid-delivery before claiming new
	// work, so abandoned entries rejoin this very batch.
	reclaimed, err := s.queueRepo.ReclaimStale(ctx, s.claimTimeout)
	if err != nil {
		return nil, err
	}
	report.Reclaimed = reclaimed
	if reclaimed > 0 {
		metrics.AddEntriesReclaimed(reclaimed)
		s.logger.Info("reclaimed stale queue entries", slog.Int64("count", reclaimed))
	}

	entries, err := s.queueRepo.ClaimBatch(ctx, s.batchSize)
	if err != nil {
		return nil, err
	}
	report.Claimed = len(entries)
	if len(entries) == 0 {
		return report, nil
	}

	var mu sync.Mutex
	group := s.pool.NewGroup()
	for _, entry := range entries {
		group.Submit(func() {
			result := s.processEntry(ctx, entry)

			mu.Lock()
			defer mu.Unlock()
			switch result.outcome {
			case outcomeCompleted:
				report.Completed++
				metrics.IncrementEntriesProcessed(metrics.OutcomeCompleted)
			case outcomeDropped:
				report.Dropped++
				metrics.IncrementEntriesProcessed(metrics.OutcomeDropped)
			case outcomeRetained:
				report.Retained++
				metrics.IncrementEntriesProcessed(metrics.OutcomeRetained)
			}
			report.Sent += result.sent
			report.Failed += result.failed
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("queue tick finished",
		slog.Int64("reclaimed", report.Reclaimed),
		slog.Int("claimed", report.Claimed),
		slog.Int("completed", report.Completed),
		slog.Int("dropped", report.Dropped),
		slog.Int("retained", report.Retained),
		slog.Int("sent", report.Sent),
		slog.Int("failed", report.Failed),
	)

	return report, nil
}

// processEntry delivers one claimed entry. Completed and dropped entries
// leave the queue; a retained entry stays claimed until the stale sweep
// returns it to pending for another attempt.
func (s *queueWorkerService) processEntry(ctx context.Context, entry *entity.QueueEntry) entryResult {
	if s.maxAttempts > 0 && entry.Attempts > s.maxAttempts {
		s.logger.Warn("dropping queue entry after too many attempts",
			slog.Int64("entry_id", entry.ID),
			slog.Int("attempts", entry.Attempts),
		)

		return s.finishEntry(ctx, entry, outcomeDropped, 0, 0)
	}

	payload, err := entity.DecodeNotificationPayload(entry.Payload)
	if err != nil {
		s.logger.Error("dropping undecodable queue entry",
			slog.Int64("entry_id", entry.ID),
			slog.String("error", err.Error()),
		)

		return s.finishEntry(ctx, entry, outcomeDropped, 0, 0)
	}

	tokens, err := s.tokenRepo.FindTokensForTargets(ctx, payload.Targets, payload.ExcludeIdentity())
	if err != nil {
		s.logger.Error("failed to resolve recipients, retaining entry",
			slog.Int64("entry_id", entry.ID),
			slog.String("error", err.Error()),
		)

		return entryResult{outcome: outcomeRetained}
	}

	// No recipients is a normal terminal state, not a failure.
	if len(tokens) == 0 {
		return s.finishEntry(ctx, entry, outcomeCompleted, 0, 0)
	}

	addrs := make([]service.PushAddress, 0, len(tokens))
	for _, token := range tokens {
		addrs = append(addrs, service.PushAddress{
			Service: token.Service,
			Token:   token.Token,
		})
	}

	result, err := s.dispatch(ctx, entry.ID, addrs, payload)
	if err != nil {
		s.logger.Error("dispatch failed, retaining entry",
			slog.Int64("entry_id", entry.ID),
			slog.String("error", err.Error()),
		)
		metrics.AddNotificationsDispatched(metrics.StatusFailed, len(addrs))

		return entryResult{outcome: outcomeRetained, failed: len(addrs)}
	}

	metrics.AddNotificationsDispatched(metrics.StatusSent, result.Sent)
	metrics.AddNotificationsDispatched(metrics.StatusFailed, result.Failed)
	metrics.AddNotificationsDispatched(metrics.StatusInvalidToken, len(result.InvalidTokens))

	s.cleanupAfterDispatch(ctx, tokens, result)

	return s.finishEntry(ctx, entry, outcomeCompleted, result.Sent, result.Failed)
}

// dispatch sends the message with a short in-tick retry window.
func (s *queueWorkerService) dispatch(ctx context.Context, entryID int64, addrs []service.PushAddress, payload *entity.NotificationPayload) (*service.SendResult, error) {
	primary := payload.Targets[0]
	data := map[string]string{
		"object_type": primary.ObjectType,
		"object_id":   strconv.FormatInt(primary.ObjectID, 10),
	}
	if payload.Message.URL != "" {
		data["url"] = payload.Message.URL
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = dispatchInitialInterval
	policy.MaxInterval = dispatchMaxInterval
	policy.MaxElapsedTime = dispatchMaxElapsedTime

	var result *service.SendResult
	operation := func() error {
		var sendErr error
		result, sendErr = s.sender.Send(ctx, addrs, payload.Message, data)

		return sendErr
	}
	notify := func(err error, next time.Duration) {
		s.logger.Warn("push dispatch failed, retrying",
			slog.Int64("entry_id", entryID),
			slog.String("error", err.Error()),
			slog.Duration("next_retry_in", next),
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		return nil, err
	}

	return result, nil
}

// cleanupAfterDispatch refreshes the activity timestamps of reachable tokens
// and purges the ones the transport reported as dead. Both are best effort.
func (s *queueWorkerService) cleanupAfterDispatch(ctx context.Context, tokens []*entity.DeviceToken, result *service.SendResult) {
	invalid := make(map[string]struct{}, len(result.InvalidTokens))
	for _, token := range result.InvalidTokens {
		invalid[token] = struct{}{}
	}

	liveIDs := make([]int64, 0, len(tokens))
	for _, token := range tokens {
		if _, dead := invalid[token.Token]; !dead {
			liveIDs = append(liveIDs, token.ID)
		}
	}

	if err := s.tokenRepo.TouchTokens(ctx, liveIDs, time.Now()); err != nil {
		s.logger.Warn("failed to touch tokens", slog.String("error", err.Error()))
	}

	if len(result.InvalidTokens) > 0 {
		removed, err := s.tokenRepo.DeleteTokensByValue(ctx, result.InvalidTokens)
		if err != nil {
			s.logger.Warn("failed to delete invalid tokens", slog.String("error", err.Error()))
		} else if removed > 0 {
			s.logger.Info("deleted invalid tokens", slog.Int64("count", removed))
		}
	}
}

// finishEntry removes the entry from the queue for both terminal outcomes.
// A removal failure downgrades the outcome to retained so the stale sweep
// can try again; delivery stays at-least-once either way.
func (s *queueWorkerService) finishEntry(ctx context.Context, entry *entity.QueueEntry, outcome entryOutcome, sent, failed int) entryResult {
	if err := s.queueRepo.Complete(ctx, entry.ID); err != nil {
		s.logger.Error("failed to complete queue entry",
			slog.Int64("entry_id", entry.ID),
			slog.String("error", err.Error()),
		)

		return entryResult{outcome: outcomeRetained, sent: sent, failed: failed}
	}

	return entryResult{outcome: outcome, sent: sent, failed: failed}
}
