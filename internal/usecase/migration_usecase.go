package usecase

import "context"

// MigrationReport summarizes one guest-to-user migration.
type MigrationReport struct {
	TokensMigrated        int64 `json:"tokens_migrated"`
	SubscriptionsMigrated int64 `json:"subscriptions_migrated"`
}

// PurgeReport summarizes the removal of a guest session's state.
type PurgeReport struct {
	TokensDeleted        int64 `json:"tokens_deleted"`
	SubscriptionsDeleted int64 `json:"subscriptions_deleted"`
}

// MigrationUsecase defines the interface for identity migration use cases
type MigrationUsecase interface {
	// MigrateGuest reassigns all state of a guest session to a user in one
	// transaction. Rows the user already holds win on conflict; the guest
	// duplicates are discarded. Re-running a finished migration is a no-op.
	MigrateGuest(ctx context.Context, guestID string, userID int64) (*MigrationReport, error)

	// PurgeGuest deletes all tokens and subscriptions of a guest session
	// that ends without an account, in one transaction.
	PurgeGuest(ctx context.Context, guestID string) (*PurgeReport, error)
}
