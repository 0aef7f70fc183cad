package services

import (
	"errors"
	"fmt"
	"strings"

	"tokoauth/internal/models"
	"tokoauth/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// UserService backs the generic CRUD routes of the user collection.
// Role policy is enforced by the caller-facing middleware; the checks here
// repeat the ownership and super-admin rules so the service is safe on its own.
type UserService struct {
	repo     repositories.UserRepository
	auth     *AuthService
	hasher   *PasswordHasher
	events   EventPublisher
	validate *validator.Validate
	log      zerolog.Logger
}

// NewUserService creates a new UserService. events may be nil.
func NewUserService(repo repositories.UserRepository, auth *AuthService, hasher *PasswordHasher,
	events EventPublisher, log zerolog.Logger) *UserService {
	return &UserService{
		repo:     repo,
		auth:     auth,
		hasher:   hasher,
		events:   events,
		validate: newValidator(),
		log:      log,
	}
}

// UserInput is the body of a create or update on the user collection.
type UserInput struct {
	ProfileUpdateInput
	Role *models.Role `json:"role"`
}

// List returns the users matching filter.
func (s *UserService) List(filter models.UserFilter) ([]models.UserResponse, error) {
	users, err := s.repo.List(filter)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, s.auth.Project(&users[i]))
	}
	return out, nil
}

// Get returns a single user.
func (s *UserService) Get(id uint) (models.UserResponse, error) {
	user, err := s.repo.FindByID(id)
	if err != nil {
		return models.UserResponse{}, err
	}
	return s.auth.Project(user), nil
}

// Create inserts a user with the supplied role.
func (s *UserService) Create(caller *models.User, in RegisterInput) (models.UserResponse, error) {
	in.Email = models.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return models.UserResponse{}, validationError(err)
	}
	if err := checkName(in.Name); err != nil {
		return models.UserResponse{}, err
	}

	role := in.Role
	if role == "" {
		role = models.RoleCustomer
	}
	if !role.Valid() {
		return models.UserResponse{}, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	if role != models.RoleCustomer && !s.auth.IsSuperAdmin(caller) {
		return models.UserResponse{}, fmt.Errorf("%w: only the super-admin may assign role %s", ErrForbidden, role)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.UserResponse{}, err
	}
	user := &models.User{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Phone:        in.Phone,
		Role:         role,
	}
	if err := s.repo.Insert(user); err != nil {
		return models.UserResponse{}, fmt.Errorf("failed to create user: %w", err)
	}

	publish(s.events, s.log, EventUserRegistered, map[string]interface{}{
		"userId": user.ID,
		"email":  user.Email,
		"role":   user.Role,
	})
	return s.auth.Project(user), nil
}

// Update modifies the user with the given id. The caller must own the
// record or be the super-admin, and only the super-admin may raise a role.
func (s *UserService) Update(caller *models.User, id uint, in UserInput) (models.UserResponse, error) {
	if caller == nil {
		return models.UserResponse{}, ErrUnauthenticated
	}
	superAdmin := s.auth.IsSuperAdmin(caller)
	if caller.ID != id && !superAdmin {
		return models.UserResponse{}, fmt.Errorf("%w: cannot modify user %d", ErrForbidden, id)
	}

	target, err := s.repo.FindByID(id)
	if err != nil {
		return models.UserResponse{}, err
	}
	patch, err := buildPatch(s.validate, s.hasher, in.ProfileUpdateInput)
	if err != nil {
		return models.UserResponse{}, err
	}
	if err := s.auth.checkEmailChange(target, patch); err != nil {
		return models.UserResponse{}, err
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return models.UserResponse{}, fmt.Errorf("%w: unknown role %q", ErrValidation, *in.Role)
		}
		if *in.Role != models.RoleCustomer && !superAdmin {
			return models.UserResponse{}, fmt.Errorf("%w: only the super-admin may assign role %s", ErrForbidden, *in.Role)
		}
		patch.Role = in.Role
	}

	updated, err := s.repo.Update(id, patch)
	if err != nil {
		return models.UserResponse{}, err
	}

	publish(s.events, s.log, EventUserUpdated, map[string]interface{}{
		"userId": updated.ID,
		"email":  updated.Email,
		"role":   updated.Role,
	})
	return s.auth.Project(updated), nil
}

// Delete hard-deletes the user with the given id. Only the super-admin may
// delete users, and never its own account.
func (s *UserService) Delete(caller *models.User, id uint) error {
	if !s.auth.IsSuperAdmin(caller) {
		return fmt.Errorf("%w: only the super-admin may delete users", ErrForbidden)
	}
	user, err := s.repo.FindByID(id)
	if err != nil {
		return err
	}
	if s.auth.IsSuperAdmin(user) {
		return fmt.Errorf("%w: the super-admin account cannot be deleted", ErrForbidden)
	}
	removed, err := s.repo.Remove(user.Email)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("user %d: %w", id, repositories.ErrUserNotFound)
	}

	publish(s.events, s.log, EventUserDeleted, map[string]interface{}{
		"userId":    user.ID,
		"email":     user.Email,
		"deletedBy": caller.ID,
	})
	s.log.Info().Uint("user_id", user.ID).Uint("deleted_by", caller.ID).Msg("user deleted")
	return nil
}

// IsNotFound reports whether err means the requested user does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, repositories.ErrUserNotFound)
}
