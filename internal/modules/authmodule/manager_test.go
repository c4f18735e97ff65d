package authmodule

import (
	"fmt"
	"testing"

	"github.com/filmsearch/filmsearch/internal/config"
	"github.com/filmsearch/filmsearch/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	config.SetForTesting(config.Default())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&database.User{},
		&database.UserProfile{},
		&database.Genre{},
	))
	return db
}

func validRequest(username string) RegisterRequest {
	return RegisterRequest{
		Username:        username,
		Email:           username + "@example.com",
		Password:        "sturdy1pass!",
		PasswordConfirm: "sturdy1pass!",
	}
}

func TestValidateRegistrationUsername(t *testing.T) {
	db := openTestDB(t)
	manager := NewManager(db)

	req := validRequest("ab")
	assert.Contains(t, manager.ValidateRegistration(req).ErrorMap(), "username")

	req = validRequest("way.too.long.username.that.keeps.going")
	assert.Contains(t, manager.ValidateRegistration(req).ErrorMap(), "username")

	req = validRequest("bad name")
	assert.Contains(t, manager.ValidateRegistration(req).ErrorMap(), "username")

	// Dots, @, + and - are all allowed
	req = validRequest("jo.hn+test@x-1")
	assert.True(t, manager.ValidateRegistration(req).OK())
}

func TestValidateRegistrationDuplicates(t *testing.T) {
	db := openTestDB(t)
	manager := NewManager(db)

	_, err := manager.RegisterUser(validRequest("taken"))
	require.NoError(t, err)

	req := validRequest("taken")
	req.Email = "fresh@example.com"
	assert.Contains(t, manager.ValidateRegistration(req).ErrorMap(), "username")

	req = validRequest("fresh")
	req.Email = "taken@example.com"
	assert.Contains(t, manager.ValidateRegistration(req).ErrorMap(), "email")
}

func TestValidateRegistrationEmail(t *testing.T) {
	db := openTestDB(t)
	manager := NewManager(db)

	req := validRequest("someone")
	req.Email = "not-an-email"
	assert.Contains(t, manager.ValidateRegistration(req).ErrorMap(), "email")
}

func TestValidateRegistrationPasswordConfirm(t *testing.T) {
	db := openTestDB(t)
	manager := NewManager(db)

	req := validRequest("someone")
	req.PasswordConfirm = "different1pass!"
	assert.Contains(t, manager.ValidateRegistration(req).ErrorMap(), "password_confirm")
}

func TestPasswordProblems(t *testing.T) {
	assert.NotEmpty(t, passwordProblems("sh0rt!"))
	assert.NotEmpty(t, passwordProblems("12345678!"))  // no letter
	assert.NotEmpty(t, passwordProblems("password!!")) // no digit
	assert.NotEmpty(t, passwordProblems("password12")) // no special
	assert.Empty(t, passwordProblems("password12!"))
}

func TestRegisterAndAuthenticate(t *testing.T) {
	db := openTestDB(t)
	manager := NewManager(db)

	user, err := manager.RegisterUser(validRequest("alice"))
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "sturdy1pass!", user.PasswordHash)

	// A profile is created alongside the account
	var profile database.UserProfile
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&profile).Error)

	authed, err := manager.Authenticate("alice", "sturdy1pass!")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)
	assert.NotNil(t, authed.LastLogin)

	_, err = manager.Authenticate("alice", "wrongpass1!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = manager.Authenticate("nobody", "sturdy1pass!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	db := openTestDB(t)
	manager := NewManager(db)

	user, err := manager.RegisterUser(validRequest("dormant"))
	require.NoError(t, err)
	require.NoError(t, manager.SetActive(user.ID, false))

	_, err = manager.Authenticate("dormant", "sturdy1pass!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokenRoundtrip(t *testing.T) {
	db := openTestDB(t)
	manager := NewManager(db)

	user, err := manager.RegisterUser(validRequest("tokenuser"))
	require.NoError(t, err)

	token, err := manager.IssueToken(user)
	require.NoError(t, err)

	parsed, claims, err := manager.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, parsed.ID)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "tokenuser", claims.Username)
	assert.NotEmpty(t, claims.ID)

	_, _, err = manager.ParseToken(token + "tampered")
	assert.Error(t, err)
}

func TestRevokedTokenRejected(t *testing.T) {
	db := openTestDB(t)
	manager := NewManager(db)

	user, err := manager.RegisterUser(validRequest("revoked"))
	require.NoError(t, err)
	token, err := manager.IssueToken(user)
	require.NoError(t, err)

	_, claims, err := manager.ParseToken(token)
	require.NoError(t, err)
	manager.RevokeToken(claims)

	_, _, err = manager.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenDeactivatedUser(t *testing.T) {
	db := openTestDB(t)
	manager := NewManager(db)

	user, err := manager.RegisterUser(validRequest("fading"))
	require.NoError(t, err)
	token, err := manager.IssueToken(user)
	require.NoError(t, err)

	require.NoError(t, manager.SetActive(user.ID, false))
	_, _, err = manager.ParseToken(token)
	assert.Error(t, err)
}

func TestSetStaffSuperuserGuard(t *testing.T) {
	db := openTestDB(t)
	manager := NewManager(db)

	user, err := manager.RegisterUser(validRequest("boss"))
	require.NoError(t, err)
	require.NoError(t, db.Model(user).Updates(map[string]interface{}{
		"is_staff": true, "is_superuser": true,
	}).Error)

	assert.ErrorIs(t, manager.SetStaff(user.ID, false), ErrSuperuserDemotion)
	assert.NoError(t, manager.SetStaff(user.ID, true))

	plain, err := manager.RegisterUser(validRequest("plain"))
	require.NoError(t, err)
	require.NoError(t, manager.SetStaff(plain.ID, true))
	require.NoError(t, manager.SetStaff(plain.ID, false))
}

func TestUpdateAccount(t *testing.T) {
	db := openTestDB(t)
	manager := NewManager(db)

	user, err := manager.RegisterUser(validRequest("mover"))
	require.NoError(t, err)
	_, err = manager.RegisterUser(validRequest("squatter"))
	require.NoError(t, err)

	first := "Ada"
	email := "new.mover@example.com"
	updated, err := manager.UpdateAccount(user.ID, &first, nil, &email)
	require.NoError(t, err)
	assert.Equal(t, "Ada", updated.FirstName)
	assert.Equal(t, email, updated.Email)

	var stored database.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.Equal(t, "Ada", stored.FirstName)
	assert.Equal(t, email, stored.Email)

	taken := "squatter@example.com"
	_, err = manager.UpdateAccount(user.ID, nil, nil, &taken)
	assert.Error(t, err)

	bad := "not-an-email"
	_, err = manager.UpdateAccount(user.ID, nil, nil, &bad)
	assert.Error(t, err)
}

func TestSetPreferredGenres(t *testing.T) {
	db := openTestDB(t)
	manager := NewManager(db)

	user, err := manager.RegisterUser(validRequest("tastes"))
	require.NoError(t, err)

	drama := database.Genre{Name: "Drama"}
	comedy := database.Genre{Name: "Comedy"}
	require.NoError(t, db.Create(&drama).Error)
	require.NoError(t, db.Create(&comedy).Error)

	profile, err := manager.SetPreferredGenres(user.ID, []uint{drama.ID, comedy.ID})
	require.NoError(t, err)
	assert.Len(t, profile.PreferredGenres, 2)

	profile, err = manager.SetPreferredGenres(user.ID, []uint{comedy.ID})
	require.NoError(t, err)
	require.Len(t, profile.PreferredGenres, 1)
	assert.Equal(t, "Comedy", profile.PreferredGenres[0].Name)

	_, err = manager.SetPreferredGenres(user.ID, []uint{9999})
	assert.Error(t, err)
}

func TestIsPrivileged(t *testing.T) {
	assert.False(t, IsPrivileged(nil))
	assert.False(t, IsPrivileged(&database.User{}))
	assert.True(t, IsPrivileged(&database.User{IsStaff: true}))
	assert.True(t, IsPrivileged(&database.User{IsSuperuser: true}))
}
