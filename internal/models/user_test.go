package models_test

import (
	"encoding/json"
	"testing"

	"tokoauth/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole(t *testing.T) {
	assert.True(t, models.RoleCustomer.Valid())
	assert.True(t, models.RoleAdmin.Valid())
	assert.True(t, models.RoleManager.Valid())
	assert.False(t, models.Role("root").Valid())
	assert.False(t, models.Role("Admin").Valid())

	assert.False(t, models.RoleCustomer.Elevated())
	assert.True(t, models.RoleAdmin.Elevated())
	assert.True(t, models.RoleManager.Elevated())
}

func TestUserPatch(t *testing.T) {
	assert.True(t, models.UserPatch{}.Empty())

	email := " New@X.com "
	name := "Annie"
	u := models.User{ID: 3, Email: "a@x.com", Name: "Ann", PasswordHash: "hash", Role: models.RoleCustomer}
	patch := models.UserPatch{Email: &email, Name: &name}
	require.False(t, patch.Empty())

	patch.Apply(&u)
	assert.Equal(t, "new@x.com", u.Email)
	assert.Equal(t, "Annie", u.Name)
	assert.Equal(t, "hash", u.PasswordHash)
	assert.Equal(t, uint(3), u.ID)
}

func TestUserFilter_Match(t *testing.T) {
	u := models.User{ID: 2, Email: "a@x.com", Name: "Ann", Phone: "555", Role: models.RoleCustomer}

	assert.True(t, models.UserFilter{}.Match(u))
	assert.True(t, models.UserFilter{Email: "A@X.COM"}.Match(u))
	assert.True(t, models.UserFilter{ID: 2, Role: models.RoleCustomer}.Match(u))
	assert.False(t, models.UserFilter{ID: 3}.Match(u))
	assert.False(t, models.UserFilter{Name: "ann"}.Match(u))
	assert.False(t, models.UserFilter{Phone: "556"}.Match(u))
	assert.False(t, models.UserFilter{Role: models.RoleAdmin}.Match(u))
}

func TestNewUserResponse(t *testing.T) {
	admin := &models.User{ID: 1, Email: "root@x.com", Role: models.RoleAdmin, PasswordHash: "secret-hash"}
	manager := &models.User{ID: 2, Email: "m@x.com", Role: models.RoleManager}
	customer := &models.User{ID: 3, Email: "c@x.com", Role: models.RoleCustomer}

	r := models.NewUserResponse(admin, "Root@X.com")
	assert.True(t, r.IsAdmin)
	assert.True(t, r.IsSuperAdmin)

	r = models.NewUserResponse(manager, "Root@X.com")
	assert.True(t, r.IsAdmin)
	assert.False(t, r.IsSuperAdmin)

	r = models.NewUserResponse(customer, "Root@X.com")
	assert.False(t, r.IsAdmin)
	assert.False(t, r.IsSuperAdmin)

	assert.False(t, models.NewUserResponse(&models.User{}, "").IsSuperAdmin)
}

func TestUser_JSONHidesPasswordHash(t *testing.T) {
	raw, err := json.Marshal(models.User{ID: 1, Email: "a@x.com", PasswordHash: "secret-hash"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-hash")
	assert.NotContains(t, string(raw), "password")
}
