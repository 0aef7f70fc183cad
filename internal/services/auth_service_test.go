package services_test

import (
	"fmt"
	"testing"
	"time"

	"tokoauth/internal/models"
	"tokoauth/internal/repositories"
	"tokoauth/internal/services"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSuperAdminEmail    = "Root@Store.test"
	testSuperAdminPassword = "123456789"
)

// MockEventPublisher is a mock implementation of services.EventPublisher.
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishUserEvent(event string, payload map[string]interface{}) error {
	args := m.Called(event, payload)
	return args.Error(0)
}

type authFixture struct {
	repo       *repositories.MockUserRepository
	hasher     *services.PasswordHasher
	tokens     *services.LegacyTokenCodec
	events     *MockEventPublisher
	auth       *services.AuthService
	superAdmin *models.User
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		repo:   repositories.NewMockUserRepository(),
		hasher: services.NewPasswordHasher(bcrypt.MinCost),
		tokens: services.NewLegacyTokenCodec(),
		events: new(MockEventPublisher),
	}
	f.events.On("PublishUserEvent", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.auth = services.NewAuthService(f.repo, f.hasher, f.tokens, testSuperAdminEmail, f.events, zerolog.Nop())

	hash, err := f.hasher.Hash(testSuperAdminPassword)
	require.NoError(t, err)
	f.superAdmin = &models.User{ID: 1, Email: testSuperAdminEmail, PasswordHash: hash, Name: "Root", Role: models.RoleAdmin}
	require.NoError(t, f.repo.Insert(f.superAdmin))
	return f
}

func (f *authFixture) tokenFor(t *testing.T, id uint) string {
	t.Helper()
	token, err := f.tokens.Issue(id)
	require.NoError(t, err)
	return token
}

func (f *authFixture) register(t *testing.T, email, password, name string) *services.AuthResult {
	t.Helper()
	result, err := f.auth.Register(services.RegisterInput{Email: email, Password: password, Name: name}, "")
	require.NoError(t, err)
	return result
}

func TestAuthService_Register(t *testing.T) {
	f := newAuthFixture(t)

	result, err := f.auth.Register(services.RegisterInput{
		Email:    "A@X.com",
		Password: "secret1",
		Name:     "  Ann ",
		Phone:    "0123",
	}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, uint(2), result.User.ID)
	assert.Equal(t, "a@x.com", result.User.Email)
	assert.Equal(t, "Ann", result.User.Name)
	assert.Equal(t, models.RoleCustomer, result.User.Role)
	assert.False(t, result.User.IsAdmin)
	assert.False(t, result.User.IsSuperAdmin)

	stored, err := f.repo.FindByEmail("a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.True(t, f.hasher.Verify("secret1", stored.PasswordHash))
	assert.False(t, stored.CreatedAt.IsZero())

	f.events.AssertCalled(t, "PublishUserEvent", services.EventUserRegistered, mock.Anything)
}

func TestAuthService_Register_DuplicateEmailIgnoresCase(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "a@x.com", "secret1", "Ann")

	_, err := f.auth.Register(services.RegisterInput{Email: "A@X.COM", Password: "secret2", Name: "Other"}, "")
	assert.ErrorIs(t, err, services.ErrDuplicateEmail)

	users, err := f.repo.ListAll()
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestAuthService_Register_Validation(t *testing.T) {
	f := newAuthFixture(t)

	cases := []services.RegisterInput{
		{Password: "secret1", Name: "Ann"},
		{Email: "a@x.com", Name: "Ann"},
		{Email: "a@x.com", Password: "secret1"},
		{Email: "a@x.com", Password: "secret1", Name: "  A  "},
		{Email: "a@x.com", Password: "12345", Name: "Ann"},
		{Email: "not-an-email", Password: "secret1", Name: "Ann"},
	}
	for i, in := range cases {
		_, err := f.auth.Register(in, "")
		assert.ErrorIs(t, err, services.ErrValidation, "case %d", i)
	}

	users, err := f.repo.ListAll()
	require.NoError(t, err)
	assert.Len(t, users, 1, "failed registrations must not store anything")
}

func TestAuthService_Register_RoleElevation(t *testing.T) {
	f := newAuthFixture(t)
	customer := f.register(t, "c@x.com", "secret1", "Cus")

	// Anonymous and non-super-admin callers are silently downgraded.
	for i, bearer := range []string{"", "garbage", f.tokenFor(t, customer.User.ID), "token_999_1"} {
		result, err := f.auth.Register(services.RegisterInput{
			Email:    fmt.Sprintf("u%d@x.com", i),
			Password: "secret1",
			Name:     "User",
			Role:     models.RoleAdmin,
		}, bearer)
		require.NoError(t, err)
		assert.Equal(t, models.RoleCustomer, result.User.Role, "bearer %q", bearer)
	}

	// The super-admin may assign any known role.
	superToken := f.tokenFor(t, f.superAdmin.ID)
	result, err := f.auth.Register(services.RegisterInput{
		Email: "m@x.com", Password: "secret1", Name: "Manager", Role: models.RoleManager,
	}, superToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleManager, result.User.Role)
	assert.True(t, result.User.IsAdmin)
	assert.False(t, result.User.IsSuperAdmin)

	_, err = f.auth.Register(services.RegisterInput{
		Email: "z@x.com", Password: "secret1", Name: "Zed", Role: "owner",
	}, superToken)
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestAuthService_Register_AssignsIncreasingIDs(t *testing.T) {
	f := newAuthFixture(t)

	var last uint = f.superAdmin.ID
	for i := 0; i < 5; i++ {
		result := f.register(t, fmt.Sprintf("user%d@x.com", i), "secret1", "User")
		assert.Greater(t, result.User.ID, last)
		last = result.User.ID
	}
}

func TestAuthService_Login(t *testing.T) {
	f := newAuthFixture(t)
	registered := f.register(t, "a@x.com", "secret1", "Ann")

	result, err := f.auth.Login(services.LoginInput{Email: "A@x.COM", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, registered.User.ID, result.User.ID)

	user, err := f.auth.Authenticate(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
}

func TestAuthService_Login_GenericFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "a@x.com", "secret1", "Ann")

	_, wrongPassword := f.auth.Login(services.LoginInput{Email: "a@x.com", Password: "wrong-password"})
	_, unknownEmail := f.auth.Login(services.LoginInput{Email: "nobody@x.com", Password: "secret1"})

	assert.ErrorIs(t, wrongPassword, services.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, services.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestAuthService_Login_UnknownEmailCostsAHashCheck(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	hasher := services.NewPasswordHasher(bcrypt.DefaultCost)
	auth := services.NewAuthService(repo, hasher, services.NewLegacyTokenCodec(), testSuperAdminEmail, nil, zerolog.Nop())
	_, err := auth.Register(services.RegisterInput{Email: "a@x.com", Password: "secret1", Name: "Ann"}, "")
	require.NoError(t, err)

	timed := func(email string) time.Duration {
		start := time.Now()
		_, err := auth.Login(services.LoginInput{Email: email, Password: "wrong-password"})
		assert.ErrorIs(t, err, services.ErrInvalidCredentials)
		return time.Since(start)
	}

	timed("nobody@x.com") // prepares the stand-in hash
	known := timed("a@x.com")
	unknown := timed("nobody@x.com")
	assert.Greater(t, unknown, known/3, "known %v, unknown %v", known, unknown)
}

func TestAuthService_Login_MissingFields(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.auth.Login(services.LoginInput{Email: "a@x.com"})
	assert.ErrorIs(t, err, services.ErrValidation)
	_, err = f.auth.Login(services.LoginInput{Password: "secret1"})
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestAuthService_Login_SuperAdminFlags(t *testing.T) {
	f := newAuthFixture(t)

	result, err := f.auth.Login(services.LoginInput{Email: "root@store.test", Password: testSuperAdminPassword})
	require.NoError(t, err)
	assert.True(t, result.User.IsAdmin)
	assert.True(t, result.User.IsSuperAdmin)
}

func TestAuthService_Authenticate(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.auth.Authenticate("")
	assert.ErrorIs(t, err, services.ErrUnauthenticated)

	_, err = f.auth.Authenticate("not-a-token")
	assert.ErrorIs(t, err, services.ErrMalformedToken)

	_, err = f.auth.Authenticate(f.tokenFor(t, 404))
	assert.ErrorIs(t, err, services.ErrUnknownSubject)

	user, err := f.auth.Authenticate(f.tokenFor(t, f.superAdmin.ID))
	require.NoError(t, err)
	assert.True(t, f.auth.IsSuperAdmin(user))
}

func TestAuthService_UpdateProfile(t *testing.T) {
	f := newAuthFixture(t)
	registered := f.register(t, "a@x.com", "secret1", "Ann")
	token := registered.AccessToken

	name := "Annie"
	address := "1 Main St"
	updated, err := f.auth.UpdateProfile(token, services.ProfileUpdateInput{Name: &name, Address: &address})
	require.NoError(t, err)
	assert.Equal(t, "Annie", updated.Name)
	assert.Equal(t, "1 Main St", updated.Address)
	assert.Equal(t, models.RoleCustomer, updated.Role)
	assert.Equal(t, registered.User.ID, updated.ID)

	before, err := f.repo.FindByID(registered.User.ID)
	require.NoError(t, err)

	// An empty password leaves the hash alone.
	empty := ""
	_, err = f.auth.UpdateProfile(token, services.ProfileUpdateInput{Password: &empty})
	require.NoError(t, err)
	after, err := f.repo.FindByID(registered.User.ID)
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)

	// A new password is hashed and replaces the old one.
	newPassword := "secret2"
	_, err = f.auth.UpdateProfile(token, services.ProfileUpdateInput{Password: &newPassword})
	require.NoError(t, err)
	_, err = f.auth.Login(services.LoginInput{Email: "a@x.com", Password: "secret2"})
	assert.NoError(t, err)
	_, err = f.auth.Login(services.LoginInput{Email: "a@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestAuthService_UpdateProfile_Errors(t *testing.T) {
	f := newAuthFixture(t)
	registered := f.register(t, "a@x.com", "secret1", "Ann")
	f.register(t, "b@x.com", "secret1", "Bob")

	short := "123"
	_, err := f.auth.UpdateProfile(registered.AccessToken, services.ProfileUpdateInput{Password: &short})
	assert.ErrorIs(t, err, services.ErrValidation)

	tiny := " A "
	_, err = f.auth.UpdateProfile(registered.AccessToken, services.ProfileUpdateInput{Name: &tiny})
	assert.ErrorIs(t, err, services.ErrValidation)

	taken := "B@X.com"
	_, err = f.auth.UpdateProfile(registered.AccessToken, services.ProfileUpdateInput{Email: &taken})
	assert.ErrorIs(t, err, services.ErrDuplicateEmail)

	name := "Nobody"
	_, err = f.auth.UpdateProfile("", services.ProfileUpdateInput{Name: &name})
	assert.ErrorIs(t, err, services.ErrUnauthenticated)
	_, err = f.auth.UpdateProfile(f.tokenFor(t, 99), services.ProfileUpdateInput{Name: &name})
	assert.ErrorIs(t, err, services.ErrUnknownSubject)
}

func TestAuthService_Profile(t *testing.T) {
	f := newAuthFixture(t)
	registered := f.register(t, "a@x.com", "secret1", "Ann")

	profile, err := f.auth.Profile(registered.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, profile.ID)
	assert.Equal(t, "Ann", profile.Name)

	_, err = f.auth.Profile("token_1")
	assert.ErrorIs(t, err, services.ErrMalformedToken)
}

func TestAuthService_UpdateProfile_SuperAdminEmailIsFixed(t *testing.T) {
	f := newAuthFixture(t)
	customer := f.register(t, "a@x.com", "secret1", "Ann")
	superToken := f.tokenFor(t, f.superAdmin.ID)

	moved := "elsewhere@x.com"
	_, err := f.auth.UpdateProfile(superToken, services.ProfileUpdateInput{Email: &moved})
	assert.ErrorIs(t, err, services.ErrForbidden)

	sameAddress := "ROOT@store.test"
	profile, err := f.auth.UpdateProfile(superToken, services.ProfileUpdateInput{Email: &sameAddress})
	require.NoError(t, err)
	assert.True(t, profile.IsSuperAdmin)

	for _, reserved := range []string{"root@store.test", " Root@Store.TEST "} {
		reserved := reserved
		_, err = f.auth.UpdateProfile(customer.AccessToken, services.ProfileUpdateInput{Email: &reserved})
		assert.ErrorIs(t, err, services.ErrForbidden, reserved)
	}

	stored, err := f.repo.FindByID(customer.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", stored.Email)
	admin, err := f.repo.FindByID(f.superAdmin.ID)
	require.NoError(t, err)
	assert.True(t, f.auth.IsSuperAdmin(admin))
}
