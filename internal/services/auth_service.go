package services

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"tokoauth/internal/models"
	"tokoauth/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo        repositories.UserRepository
	hasher          *PasswordHasher
	tokens          TokenCodec
	superAdminEmail string
	events          EventPublisher
	validate        *validator.Validate
	log             zerolog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new AuthService. events may be nil.
func NewAuthService(userRepo repositories.UserRepository, hasher *PasswordHasher, tokens TokenCodec,
	superAdminEmail string, events EventPublisher, log zerolog.Logger) *AuthService {
	return &AuthService{
		userRepo:        userRepo,
		hasher:          hasher,
		tokens:          tokens,
		superAdminEmail: models.NormalizeEmail(superAdminEmail),
		events:          events,
		validate:        newValidator(),
		log:             log,
	}
}

// LoginInput is the request body of a login.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterInput is the request body of a registration.
type RegisterInput struct {
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required"`
	Name     string      `json:"name" validate:"required,max=100"`
	Phone    string      `json:"phone" validate:"omitempty,max=50"`
	Role     models.Role `json:"role"`
}

// ProfileUpdateInput is the request body of a profile update. It has no id
// or role field, so those keys in a request body are dropped.
type ProfileUpdateInput struct {
	Email          *string `json:"email" validate:"omitempty,email"`
	Password       *string `json:"password"`
	Name           *string `json:"name" validate:"omitempty,max=100"`
	Phone          *string `json:"phone" validate:"omitempty,max=50"`
	Image          *string `json:"image"`
	ProfilePicture *string `json:"profilePicture"`
	Address        *string `json:"address"`
}

// AuthResult is returned by a successful login or registration.
type AuthResult struct {
	AccessToken string
	User        models.UserResponse
}

// SuperAdminEmail returns the normalized super-admin address.
func (s *AuthService) SuperAdminEmail() string {
	return s.superAdminEmail
}

// IsSuperAdmin reports whether u is the super-admin account.
func (s *AuthService) IsSuperAdmin(u *models.User) bool {
	return u != nil && u.Email == s.superAdminEmail
}

// Project returns the client-facing view of u.
func (s *AuthService) Project(u *models.User) models.UserResponse {
	return models.NewUserResponse(u, s.superAdminEmail)
}

// Authenticate resolves a bearer token to the user it names.
func (s *AuthService) Authenticate(token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrUnknownSubject, claims.UserID)
		}
		return nil, fmt.Errorf("failed to resolve token subject: %w", err)
	}
	return user, nil
}

// Login checks the credentials and issues a token. Unknown emails and wrong
// passwords produce the same ErrInvalidCredentials.
func (s *AuthService) Login(in LoginInput) (*AuthResult, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	user, err := s.userRepo.FindByEmail(in.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			// Spend the same bcrypt work as a known email.
			s.hasher.Verify(in.Password, s.missHash())
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{AccessToken: token, User: s.Project(user)}, nil
}

// Register creates a customer account. A requested role above customer is
// honored only when bearer resolves to the super-admin; otherwise it is
// downgraded and the attempt logged.
func (s *AuthService) Register(in RegisterInput, bearer string) (*AuthResult, error) {
	in.Email = models.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if err := checkName(in.Name); err != nil {
		return nil, err
	}

	role, err := s.grantedRole(in.Role, bearer, in.Email)
	if err != nil {
		return nil, err
	}

	if _, err := s.userRepo.FindByEmail(in.Email); err == nil {
		return nil, fmt.Errorf("email %s: %w", in.Email, ErrDuplicateEmail)
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Phone:        in.Phone,
		Role:         role,
	}
	if err := s.userRepo.Insert(user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	publish(s.events, s.log, EventUserRegistered, map[string]interface{}{
		"userId": user.ID,
		"email":  user.Email,
		"role":   user.Role,
	})
	s.log.Info().Uint("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")

	resp := s.Project(user)
	resp.IsSuperAdmin = false
	return &AuthResult{AccessToken: token, User: resp}, nil
}

func (s *AuthService) grantedRole(requested models.Role, bearer, email string) (models.Role, error) {
	if requested == "" || requested == models.RoleCustomer {
		return models.RoleCustomer, nil
	}

	caller, err := s.Authenticate(bearer)
	if err != nil || !s.IsSuperAdmin(caller) {
		s.log.Warn().
			Str("email", email).
			Str("requested_role", string(requested)).
			Msg("role elevation on registration denied, using customer")
		return models.RoleCustomer, nil
	}
	if !requested.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, requested)
	}
	return requested, nil
}

// missHash returns the stand-in hash checked when a login email is unknown.
func (s *AuthService) missHash() string {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("no-such-account"), s.hasher.cost)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to prepare login hash")
			return
		}
		s.dummyHash = string(hash)
	})
	return s.dummyHash
}

// checkEmailChange refuses patches that would move the super-admin address:
// the super-admin may not change its own email and no other user may take it.
func (s *AuthService) checkEmailChange(target *models.User, patch models.UserPatch) error {
	if patch.Email == nil {
		return nil
	}
	email := models.NormalizeEmail(*patch.Email)
	if email == target.Email {
		return nil
	}
	if s.IsSuperAdmin(target) {
		return fmt.Errorf("%w: the super-admin email cannot be changed", ErrForbidden)
	}
	if email == s.superAdminEmail {
		return fmt.Errorf("%w: email %s is reserved", ErrForbidden, email)
	}
	return nil
}

// Profile returns the user that bearer resolves to.
func (s *AuthService) Profile(bearer string) (models.UserResponse, error) {
	user, err := s.Authenticate(bearer)
	if err != nil {
		return models.UserResponse{}, err
	}
	return s.Project(user), nil
}

// UpdateProfile applies a self-service update to the user that bearer
// resolves to. An empty password leaves the stored hash untouched.
func (s *AuthService) UpdateProfile(bearer string, in ProfileUpdateInput) (models.UserResponse, error) {
	user, err := s.Authenticate(bearer)
	if err != nil {
		return models.UserResponse{}, err
	}
	return s.UpdateOwnProfile(user, in)
}

// UpdateOwnProfile applies a self-service update to an authenticated user.
func (s *AuthService) UpdateOwnProfile(user *models.User, in ProfileUpdateInput) (models.UserResponse, error) {
	patch, err := buildPatch(s.validate, s.hasher, in)
	if err != nil {
		return models.UserResponse{}, err
	}
	if patch.Empty() {
		return s.Project(user), nil
	}
	if err := s.checkEmailChange(user, patch); err != nil {
		return models.UserResponse{}, err
	}

	updated, err := s.userRepo.Update(user.ID, patch)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.UserResponse{}, fmt.Errorf("%w: id %d", ErrUnknownSubject, user.ID)
		}
		return models.UserResponse{}, fmt.Errorf("failed to update profile: %w", err)
	}

	publish(s.events, s.log, EventUserUpdated, map[string]interface{}{
		"userId": updated.ID,
		"email":  updated.Email,
	})
	return s.Project(updated), nil
}

// buildPatch validates a profile update and turns it into a store patch,
// hashing a non-empty password.
func buildPatch(v *validator.Validate, hasher *PasswordHasher, in ProfileUpdateInput) (models.UserPatch, error) {
	if err := v.Struct(in); err != nil {
		return models.UserPatch{}, validationError(err)
	}

	patch := models.UserPatch{
		Email:          in.Email,
		Phone:          in.Phone,
		Image:          in.Image,
		ProfilePicture: in.ProfilePicture,
		Address:        in.Address,
	}
	if in.Name != nil {
		if err := checkName(*in.Name); err != nil {
			return models.UserPatch{}, err
		}
		name := strings.TrimSpace(*in.Name)
		patch.Name = &name
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := hasher.Hash(*in.Password)
		if err != nil {
			return models.UserPatch{}, err
		}
		patch.PasswordHash = &hash
	}
	return patch, nil
}
