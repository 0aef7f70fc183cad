package services

import (
	"fmt"

	"tokoauth/internal/models"
	"tokoauth/internal/repositories"

	"github.com/rs/zerolog"
)

// SuperAdminAccount describes the privileged account the Seeder guarantees.
type SuperAdminAccount struct {
	Email    string
	Password string
	Name     string
	Phone    string
	ID       uint // preferred id, used when free
}

// Seeder makes sure the super-admin account exists.
type Seeder struct {
	repo    repositories.UserRepository
	hasher  *PasswordHasher
	account SuperAdminAccount
	events  EventPublisher
	log     zerolog.Logger
}

// NewSeeder creates a Seeder. events may be nil.
func NewSeeder(repo repositories.UserRepository, hasher *PasswordHasher, account SuperAdminAccount,
	events EventPublisher, log zerolog.Logger) *Seeder {
	account.Email = models.NormalizeEmail(account.Email)
	return &Seeder{
		repo:    repo,
		hasher:  hasher,
		account: account,
		events:  events,
		log:     log,
	}
}

// Seed creates the user collection if needed and inserts the super-admin when
// it is missing. An existing super-admin is left untouched, so running Seed
// repeatedly is safe. It reports whether the account was created.
func (s *Seeder) Seed() (bool, error) {
	if err := s.repo.EnsureSchema(); err != nil {
		return false, err
	}

	if existing, err := s.repo.FindByEmail(s.account.Email); err == nil {
		s.log.Info().Uint("user_id", existing.ID).Msg("super-admin already exists")
		return false, nil
	} else if !IsNotFound(err) {
		return false, fmt.Errorf("failed to look up super-admin: %w", err)
	}

	user, err := s.newSuperAdmin()
	if err != nil {
		return false, err
	}
	// The email may have been registered since the lookup; the store decides.
	created, err := s.repo.InsertIfAbsent(user)
	if err != nil {
		return false, fmt.Errorf("failed to seed super-admin: %w", err)
	}
	if created {
		s.log.Info().Uint("user_id", user.ID).Str("email", user.Email).Msg("super-admin created")
	}
	return created, nil
}

// Reset removes the super-admin and recreates it with the default password.
// It returns the account credentials.
func (s *Seeder) Reset() (SuperAdminAccount, error) {
	user, err := s.newSuperAdmin()
	if err != nil {
		return SuperAdminAccount{}, err
	}
	if err := s.repo.ReplaceByEmail(user); err != nil {
		return SuperAdminAccount{}, fmt.Errorf("failed to reset super-admin: %w", err)
	}

	publish(s.events, s.log, EventSuperAdminReset, map[string]interface{}{
		"userId": user.ID,
		"email":  user.Email,
	})
	s.log.Warn().Uint("user_id", user.ID).Str("email", user.Email).Msg("super-admin reset to default password")

	account := s.account
	account.ID = user.ID
	return account, nil
}

func (s *Seeder) newSuperAdmin() (*models.User, error) {
	hash, err := s.hasher.Hash(s.account.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash super-admin password: %w", err)
	}
	return &models.User{
		ID:           s.account.ID,
		Email:        s.account.Email,
		PasswordHash: hash,
		Name:         s.account.Name,
		Phone:        s.account.Phone,
		Role:         models.RoleAdmin,
	}, nil
}
