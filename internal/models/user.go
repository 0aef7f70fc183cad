package models

import (
	"strings"
	"time"
)

// Role is the authorization level of a user.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RoleManager:
		return true
	}
	return false
}

// Elevated reports whether r grants more than customer access.
func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RoleManager
}

// User represents an account of the store.
type User struct {
	ID             uint      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Email          string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	PasswordHash   string    `json:"-" gorm:"column:password_hash;type:varchar(255);not null"` // Never serialized
	Name           string    `json:"name" gorm:"type:varchar(100);not null"`
	Phone          string    `json:"phone,omitempty" gorm:"type:varchar(50)"`
	Role           Role      `json:"role" gorm:"type:varchar(20);not null;default:customer"`
	Image          string    `json:"image,omitempty"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	Address        string    `json:"address,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// UserPatch carries a partial update. Nil fields are left untouched.
type UserPatch struct {
	Email          *string
	PasswordHash   *string
	Name           *string
	Phone          *string
	Role           *Role
	Image          *string
	ProfilePicture *string
	Address        *string
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Email == nil && p.PasswordHash == nil && p.Name == nil && p.Phone == nil &&
		p.Role == nil && p.Image == nil && p.ProfilePicture == nil && p.Address == nil
}

// Apply copies the set fields of p onto u.
func (p UserPatch) Apply(u *User) {
	if p.Email != nil {
		u.Email = NormalizeEmail(*p.Email)
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Image != nil {
		u.Image = *p.Image
	}
	if p.ProfilePicture != nil {
		u.ProfilePicture = *p.ProfilePicture
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
}

// UserFilter selects users by exact field match. Zero values match everything.
type UserFilter struct {
	ID    uint
	Email string
	Name  string
	Phone string
	Role  Role
}

// Match reports whether u satisfies the filter.
func (f UserFilter) Match(u User) bool {
	if f.ID != 0 && u.ID != f.ID {
		return false
	}
	if f.Email != "" && u.Email != NormalizeEmail(f.Email) {
		return false
	}
	if f.Name != "" && u.Name != f.Name {
		return false
	}
	if f.Phone != "" && u.Phone != f.Phone {
		return false
	}
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	return true
}

// NormalizeEmail returns the canonical, case-insensitive form of an email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserResponse is the client-facing projection of a User.
type UserResponse struct {
	ID             uint      `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	Role           Role      `json:"role"`
	IsAdmin        bool      `json:"isAdmin"`
	IsSuperAdmin   bool      `json:"isSuperAdmin"`
	Image          string    `json:"image,omitempty"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	Address        string    `json:"address,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewUserResponse builds the projection of u. superAdminEmail is the
// configured address of the super-admin account.
func NewUserResponse(u *User, superAdminEmail string) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Phone:          u.Phone,
		Role:           u.Role,
		IsAdmin:        u.Role.Elevated(),
		IsSuperAdmin:   superAdminEmail != "" && u.Email == NormalizeEmail(superAdminEmail),
		Image:          u.Image,
		ProfilePicture: u.ProfilePicture,
		Address:        u.Address,
		CreatedAt:      u.CreatedAt,
	}
}
