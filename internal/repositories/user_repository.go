package repositories

import (
	"errors"

	"tokoauth/internal/models"
)

var (
	// ErrUserNotFound is returned when no user matches a lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when an email is already taken, ignoring case.
	ErrDuplicateEmail = errors.New("email already exists")
)

// UserRepository defines the interface for user data access.
//
// Implementations serialize every write behind a single writer lock so that
// id assignment and insertion happen as one step. Emails are compared in
// their normalized form.
type UserRepository interface {
	EnsureSchema() error
	FindByEmail(email string) (*models.User, error)
	FindByID(id uint) (*models.User, error)
	ListAll() ([]models.User, error)
	List(filter models.UserFilter) ([]models.User, error)
	Insert(user *models.User) error
	InsertIfAbsent(user *models.User) (bool, error)
	ReplaceByEmail(user *models.User) error
	Update(id uint, patch models.UserPatch) (*models.User, error)
	Remove(email string) (bool, error)
}
