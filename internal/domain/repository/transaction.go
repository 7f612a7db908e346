package repository

import "context"

// TransactionManager defines the interface for managing database transactions.
// The use case layer depends on it instead of a specific DB driver; the
// guest-to-user migration is the one multi-row write that requires a
// transaction boundary.
type TransactionManager interface {
	// Execute runs a function within a database transaction. If the
	// function returns an error the transaction is rolled back, otherwise
	// it is committed. Repository instances obtained from the factory are
	// bound to the same transaction.
	Execute(ctx context.Context, fn func(txRepoFactory RepositoryFactory) error) error
}

// RepositoryFactory provides repository instances bound to one transaction.
type RepositoryFactory interface {
	// NewTokenRepository returns a TokenRepository bound to the current transaction.
	NewTokenRepository() TokenRepository

	// NewSubscriptionRepository returns a SubscriptionRepository bound to the current transaction.
	NewSubscriptionRepository() SubscriptionRepository
}
