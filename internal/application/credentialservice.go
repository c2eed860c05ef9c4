package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/authgateway/internal/domain/model"
	"github.com/ericfisherdev/authgateway/internal/domain/port/driven"
)

// CredentialService verifies, saves, checks and deletes user credentials.
// Persistence is delegated to the CredentialStore; the stored form of each
// password is produced and checked by the PasswordHasher, so plaintext
// passwords never leave this service.
type CredentialService struct {
	store  driven.CredentialStore
	hasher driven.PasswordHasher
	logger *slog.Logger
}

// NewCredentialService creates a new CredentialService with the required dependencies.
func NewCredentialService(store driven.CredentialStore, hasher driven.PasswordHasher, logger *slog.Logger) *CredentialService {
	return &CredentialService{
		store:  store,
		hasher: hasher,
		logger: logger,
	}
}

// Verify checks password against the stored credential for id. It returns
// ErrUnauthorized when the id is unknown or the password does not match.
func (s *CredentialService) Verify(ctx context.Context, id, password string) error {
	cred, err := s.store.Get(ctx, id)
	if errors.Is(err, driven.ErrNotFound) {
		return ErrUnauthorized
	}
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(cred.Password, password)
	if err != nil {
		// An unreadable stored value can never match; treat it like a mismatch.
		s.logger.Warn("stored credential could not be verified", "id", id, "error", err)
		return ErrUnauthorized
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// Save stores password for id, replacing any existing credential.
func (s *CredentialService) Save(ctx context.Context, id, password string) error {
	stored, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.store.Save(ctx, model.Credential{ID: id, Password: stored})
}

// Exists reports whether a credential is stored for id. Only an explicit
// not-found from the store yields false; any other store response counts as
// present. Transport failures are returned as errors.
func (s *CredentialService) Exists(ctx context.Context, id string) (bool, error) {
	return s.store.Has(ctx, id)
}

// Delete removes the credential for id.
func (s *CredentialService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
