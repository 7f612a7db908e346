package impl

import (
	"context"

	domainerrors "beacon/internal/domain/errors"
	"beacon/internal/domain/repository"
	"beacon/internal/usecase"
)

type migrationService struct {
	txManager repository.TransactionManager
}

// NewMigrationService creates a new migration service instance
func NewMigrationService(txManager repository.TransactionManager) usecase.MigrationUsecase {
	return &migrationService{
		txManager: txManager,
	}
}

// MigrateGuest reassigns all tokens and subscriptions of a guest session to a
// user inside one transaction, so a failure leaves both stores untouched.
// Rows the user already holds win on conflict. A guest with nothing to move
// yields a zero report, which makes re-running a finished migration harmless.
func (s *migrationService) MigrateGuest(ctx context.Context, guestID string, userID int64) (*usecase.MigrationReport, error) {
	if guestID == "" || userID <= 0 {
		return nil, domainerrors.ErrInvalidIdentity
	}

	report := &usecase.MigrationReport{}

	err := s.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		tokenRepo := repoFactory.NewTokenRepository()
		subscriptionRepo := repoFactory.NewSubscriptionRepository()

		tokens, err := tokenRepo.MigrateGuestTokens(ctx, guestID, userID)
		if err != nil {
			return err
		}

		subscriptions, err := subscriptionRepo.MigrateGuestSubscriptions(ctx, guestID, userID)
		if err != nil {
			return err
		}

		report.TokensMigrated = tokens
		report.SubscriptionsMigrated = subscriptions

		return nil
	})
	if err != nil {
		return nil, domainerrors.NewMigrationFailedError(err)
	}

	return report, nil
}

// PurgeGuest erases all state of a guest session. Both stores are cleared in
// one transaction so a partial purge never survives a failure.
func (s *migrationService) PurgeGuest(ctx context.Context, guestID string) (*usecase.PurgeReport, error) {
	if guestID == "" {
		return nil, domainerrors.ErrInvalidIdentity
	}

	report := &usecase.PurgeReport{}

	err := s.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		tokens, err := repoFactory.NewTokenRepository().DeleteTokensByGuest(ctx, guestID)
		if err != nil {
			return err
		}

		subscriptions, err := repoFactory.NewSubscriptionRepository().DeleteSubscriptionsByGuest(ctx, guestID)
		if err != nil {
			return err
		}

		report.TokensDeleted = tokens
		report.SubscriptionsDeleted = subscriptions

		return nil
	})
	if err != nil {
		return nil, domainerrors.NewStorageWriteError(err, "failed to purge guest state")
	}

	return report, nil
}
