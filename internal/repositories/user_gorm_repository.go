package repositories

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"tokoauth/internal/models"

	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
	mu sync.RWMutex // serializes writers; readers never see half-applied writes
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// EnsureSchema creates the users table if it does not exist yet.
func (r *GORMUserRepository) EnsureSchema() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.AutoMigrate(&models.User{}); err != nil {
		return fmt.Errorf("failed to migrate users: %w", err)
	}
	return nil
}

// FindByEmail retrieves a user by their email, ignoring case.
func (r *GORMUserRepository) FindByEmail(email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return findUser(r.db, "LOWER(email) = ?", models.NormalizeEmail(email))
}

// FindByID retrieves a user by their ID.
func (r *GORMUserRepository) FindByID(id uint) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return findUser(r.db, "id = ?", id)
}

// ListAll retrieves every user ordered by ID.
func (r *GORMUserRepository) ListAll() ([]models.User, error) {
	return r.List(models.UserFilter{})
}

// List retrieves the users matching filter ordered by ID.
func (r *GORMUserRepository) List(filter models.UserFilter) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := r.db.Model(&models.User{})
	if filter.ID != 0 {
		query = query.Where("id = ?", filter.ID)
	}
	if filter.Email != "" {
		query = query.Where("LOWER(email) = ?", models.NormalizeEmail(filter.Email))
	}
	if filter.Name != "" {
		query = query.Where("name = ?", filter.Name)
	}
	if filter.Phone != "" {
		query = query.Where("phone = ?", filter.Phone)
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}

	users := []models.User{}
	if err := query.Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Insert stores a new user and assigns its ID. A preset ID is kept when no
// other user holds it; otherwise the user gets the highest existing ID + 1.
func (r *GORMUserRepository) Insert(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.db.Transaction(func(tx *gorm.DB) error {
		return insertUser(tx, user)
	})
}

// InsertIfAbsent inserts user unless a user with the same email exists.
// It reports whether the user was inserted.
func (r *GORMUserRepository) InsertIfAbsent(user *models.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inserted := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		exists, err := emailTaken(tx, user.Email, 0)
		if err != nil || exists {
			return err
		}
		if err := insertUser(tx, user); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	return inserted, err
}

// ReplaceByEmail removes any user holding user.Email and inserts user in its
// place as a single step.
func (r *GORMUserRepository) ReplaceByEmail(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.db.Transaction(func(tx *gorm.DB) error {
		email := models.NormalizeEmail(user.Email)
		if err := tx.Where("LOWER(email) = ?", email).Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("failed to remove user %s: %w", email, err)
		}
		return insertUser(tx, user)
	})
}

// Update applies patch to the user with the given ID and returns the result.
func (r *GORMUserRepository) Update(id uint, patch models.UserPatch) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated *models.User
	err := r.db.Transaction(func(tx *gorm.DB) error {
		user, err := findUser(tx, "id = ?", id)
		if err != nil {
			return err
		}
		if patch.Email != nil {
			taken, err := emailTaken(tx, *patch.Email, id)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("email %s: %w", models.NormalizeEmail(*patch.Email), ErrDuplicateEmail)
			}
		}
		patch.Apply(user)
		if err := tx.Save(user).Error; err != nil {
			return fmt.Errorf("failed to update user %d: %w", id, err)
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Remove hard-deletes the user with the given email. It reports whether a
// user was removed.
func (r *GORMUserRepository) Remove(email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := r.db.Where("LOWER(email) = ?", models.NormalizeEmail(email)).Delete(&models.User{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete user: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func findUser(db *gorm.DB, query string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := db.First(&user, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %v: %w", arg, ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to get user %v: %w", arg, err)
	}
	return &user, nil
}

// emailTaken reports whether a user other than exceptID holds email.
func emailTaken(tx *gorm.DB, email string, exceptID uint) (bool, error) {
	var count int64
	query := tx.Model(&models.User{}).Where("LOWER(email) = ?", models.NormalizeEmail(email))
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return count > 0, nil
}

// insertUser must run inside a transaction while the writer lock is held.
func insertUser(tx *gorm.DB, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)

	taken, err := emailTaken(tx, user.Email, 0)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("email %s: %w", user.Email, ErrDuplicateEmail)
	}

	if user.ID != 0 {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check user id: %w", err)
		}
		if count > 0 {
			user.ID = 0
		}
	}
	if user.ID == 0 {
		var maxID uint
		if err := tx.Model(&models.User{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
			return fmt.Errorf("failed to compute next user id: %w", err)
		}
		user.ID = maxID + 1
	}

	if user.Role == "" {
		user.Role = models.RoleCustomer
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	if err := tx.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}
