// Package impl contains the concrete implementations of the use case layer.
package impl

import (
	"context"
	"fmt"
	"time"

	"beacon/internal/domain/entity"
	domainerrors "beacon/internal/domain/errors"
	"beacon/internal/domain/repository"
	"beacon/internal/errors"
	"beacon/internal/usecase"

	"github.com/google/uuid"
)

// ErrEmptyProviderToken is returned when a registration carries no token.
var ErrEmptyProviderToken = errors.New("provider token must not be empty")

type tokenService struct {
	tokenRepo       repository.TokenRepository
	tokenCapPerUser int
}

// NewTokenService creates a new token service instance
func NewTokenService(tokenRepo repository.TokenRepository, tokenCapPerUser int) usecase.TokenUsecase {
	return &tokenService{
		tokenRepo:       tokenRepo,
		tokenCapPerUser: tokenCapPerUser,
	}
}

// RegisterToken registers a device token or rebinds an existing one.
// The (service, token) pair identifies at most one row; a re-registration
// moves the row to the new owner and keeps its client-facing UUID.
func (s *tokenService) RegisterToken(ctx context.Context, owner entity.Identity, registration *usecase.TokenRegistration) (uuid.UUID, error) {
	if !owner.Valid() {
		return uuid.Nil, domainerrors.ErrInvalidIdentity
	}
	if !registration.Service.IsValid() {
		return uuid.Nil, domainerrors.ErrUnknownPushService
	}
	if registration.Token == "" {
		return uuid.Nil, ErrEmptyProviderToken
	}

	now := time.Now()

	id, err := s.upsertToken(ctx, owner, registration, now)
	if err != nil {
		return uuid.Nil, err
	}

	// The per-user cap is soft: one oldest-first eviction per registration
	// keeps a user's token count bounded without racing other writers.
	if userID, ok := owner.UserID(); ok && s.tokenCapPerUser > 0 {
		count, err := s.tokenRepo.CountTokensByUser(ctx, userID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to count tokens by user: %w", err)
		}
		if count > int64(s.tokenCapPerUser) {
			if err := s.tokenRepo.DeleteOldestTokenByUser(ctx, userID); err != nil {
				return uuid.Nil, fmt.Errorf("failed to evict oldest token: %w", err)
			}
		}
	}

	return id, nil
}

func (s *tokenService) upsertToken(ctx context.Context, owner entity.Identity, registration *usecase.TokenRegistration, now time.Time) (uuid.UUID, error) {
	existing, err := s.tokenRepo.FindTokenByProviderToken(ctx, registration.Service, registration.Token)
	switch {
	case err == nil:
		if err := s.tokenRepo.RebindToken(ctx, existing.ID, owner, now); err != nil {
			return uuid.Nil, fmt.Errorf("failed to rebind token: %w", err)
		}

		return existing.UUID, nil

	case errors.Is(err, repository.ErrTokenNotFound):
		id := registration.UUID
		if id == uuid.Nil {
			id = uuid.New()
		}
		token := &entity.DeviceToken{
			UUID:         id,
			Owner:        owner,
			Service:      registration.Service,
			Token:        registration.Token,
			LastActiveAt: now,
		}

		createErr := s.tokenRepo.CreateToken(ctx, token)
		if createErr == nil {
			return token.UUID, nil
		}

		// A concurrent registration of the same provider token won the
		// insert; fall back to rebinding the winner's row.
		if errors.Is(createErr, repository.ErrDuplicateToken) {
			winner, findErr := s.tokenRepo.FindTokenByProviderToken(ctx, registration.Service, registration.Token)
			if findErr != nil {
				return uuid.Nil, fmt.Errorf("failed to resolve duplicate token: %w", findErr)
			}
			if err := s.tokenRepo.RebindToken(ctx, winner.ID, owner, now); err != nil {
				return uuid.Nil, fmt.Errorf("failed to rebind token: %w", err)
			}

			return winner.UUID, nil
		}

		return uuid.Nil, fmt.Errorf("failed to create token: %w", createErr)

	default:
		return uuid.Nil, fmt.Errorf("failed to find token by provider token: %w", err)
	}
}

// DeleteToken removes the token when owner holds it. Deleting an absent or
// foreign token is a silent no-op so the operation is idempotent.
func (s *tokenService) DeleteToken(ctx context.Context, owner entity.Identity, id uuid.UUID) error {
	if !owner.Valid() {
		return domainerrors.ErrInvalidIdentity
	}

	if _, err := s.tokenRepo.DeleteTokenByUUID(ctx, id, owner); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	return nil
}
