package repositories

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"tokoauth/internal/models"
)

// MockUserRepository is an in-memory implementation of UserRepository.
type MockUserRepository struct {
	users map[uint]models.User
	mu    sync.RWMutex
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[uint]models.User),
	}
}

// EnsureSchema is a no-op; the map always exists.
func (r *MockUserRepository) EnsureSchema() error {
	return nil
}

// FindByEmail returns a user by email, ignoring case.
func (r *MockUserRepository) FindByEmail(email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byEmail(email)
	if !ok {
		return nil, fmt.Errorf("user %s: %w", models.NormalizeEmail(email), ErrUserNotFound)
	}
	return &user, nil
}

// FindByID returns a user by its ID.
func (r *MockUserRepository) FindByID(id uint) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrUserNotFound)
	}
	return &user, nil
}

// ListAll returns all users ordered by ID.
func (r *MockUserRepository) ListAll() ([]models.User, error) {
	return r.List(models.UserFilter{})
}

// List returns the users matching filter ordered by ID.
func (r *MockUserRepository) List(filter models.UserFilter) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userList := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		if filter.Match(u) {
			userList = append(userList, u)
		}
	}
	sort.Slice(userList, func(i, j int) bool { return userList[i].ID < userList[j].ID })
	return userList, nil
}

// Insert adds a new user, assigning its ID.
func (r *MockUserRepository) Insert(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.insert(user)
}

// InsertIfAbsent adds user unless its email is already taken.
func (r *MockUserRepository) InsertIfAbsent(user *models.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail(user.Email); ok {
		return false, nil
	}
	if err := r.insert(user); err != nil {
		return false, err
	}
	return true, nil
}

// ReplaceByEmail removes the holder of user.Email and inserts user.
func (r *MockUserRepository) ReplaceByEmail(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byEmail(user.Email); ok {
		delete(r.users, existing.ID)
	}
	return r.insert(user)
}

// Update modifies an existing user.
func (r *MockUserRepository) Update(id uint, patch models.UserPatch) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrUserNotFound)
	}
	if patch.Email != nil {
		if other, taken := r.byEmail(*patch.Email); taken && other.ID != id {
			return nil, fmt.Errorf("email %s: %w", models.NormalizeEmail(*patch.Email), ErrDuplicateEmail)
		}
	}
	patch.Apply(&user)
	r.users[id] = user
	return &user, nil
}

// Remove deletes the user with the given email.
func (r *MockUserRepository) Remove(email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byEmail(email)
	if !ok {
		return false, nil
	}
	delete(r.users, user.ID)
	return true, nil
}

func (r *MockUserRepository) byEmail(email string) (models.User, bool) {
	normalized := models.NormalizeEmail(email)
	for _, u := range r.users {
		if u.Email == normalized {
			return u, true
		}
	}
	return models.User{}, false
}

func (r *MockUserRepository) insert(user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	if _, ok := r.byEmail(user.Email); ok {
		return fmt.Errorf("email %s: %w", user.Email, ErrDuplicateEmail)
	}

	if _, taken := r.users[user.ID]; user.ID == 0 || taken {
		var maxID uint
		for id := range r.users {
			if id > maxID {
				maxID = id
			}
		}
		user.ID = maxID + 1
	}
	if user.Role == "" {
		user.Role = models.RoleCustomer
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	r.users[user.ID] = *user
	return nil
}
