package authmodule

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/filmsearch/filmsearch/internal/config"
	"github.com/filmsearch/filmsearch/internal/database"
	"github.com/filmsearch/filmsearch/internal/logger"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// ErrInvalidCredentials is returned when login fails, without saying which
// part of the credential pair was wrong.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrSuperuserDemotion guards the staff flag: superusers keep staff access
var ErrSuperuserDemotion = errors.New("cannot revoke staff from a superuser")

// Claims is the JWT payload issued at login
type Claims struct {
	UserID   uint   `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager handles accounts, credentials, and token lifecycle
type Manager struct {
	db      *gorm.DB
	secret  []byte
	ttl     time.Duration
	revoked *revokedTokens
}

// NewManager creates an auth manager
func NewManager(db *gorm.DB) *Manager {
	cfg := config.Get()
	return &Manager{
		db:      db,
		secret:  []byte(cfg.Auth.JWTSecret),
		ttl:     cfg.Auth.TokenTTL,
		revoked: newRevokedTokens(),
	}
}

// RegisterRequest carries the fields of a signup attempt
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
}

// ValidateRegistration checks a signup request without writing anything
func (m *Manager) ValidateRegistration(req RegisterRequest) database.ValidationResult {
	var result database.ValidationResult

	username := strings.TrimSpace(req.Username)
	if len(username) < 3 || len(username) > 30 {
		result.Add("username", "username must be between 3 and 30 characters")
	} else if !usernamePattern.MatchString(username) {
		result.Add("username", "username may only contain letters, digits and .@+-")
	} else {
		var count int64
		m.db.Model(&database.User{}).Where("username = ?", username).Count(&count)
		if count > 0 {
			result.Add("username", "username is already taken")
		}
	}

	if !database.IsValidEmail(req.Email) {
		result.Add("email", "enter a valid email address")
	} else {
		var count int64
		m.db.Model(&database.User{}).Where("email = ?", req.Email).Count(&count)
		if count > 0 {
			result.Add("email", "email is already registered")
		}
	}

	for _, msg := range passwordProblems(req.Password) {
		result.Add("password", msg)
	}
	if req.PasswordConfirm != req.Password {
		result.Add("password_confirm", "passwords do not match")
	}

	return result
}

func passwordProblems(password string) []string {
	var problems []string
	if len(password) < 8 {
		problems = append(problems, "password must be at least 8 characters")
	}
	var hasLetter, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if !hasLetter {
		problems = append(problems, "password must contain at least one letter")
	}
	if !hasDigit {
		problems = append(problems, "password must contain at least one digit")
	}
	if !hasSpecial {
		problems = append(problems, "password must contain at least one special character")
	}
	return problems
}

// RegisterUser creates an account and its profile. The caller must run
// ValidateRegistration first; this only hashes and persists.
func (m *Manager) RegisterUser(req RegisterRequest) (*database.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := database.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		IsActive:     true,
	}

	err = m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&database.UserProfile{UserID: user.ID}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Info("User registered: %s (id=%d)", user.Username, user.ID)
	return &user, nil
}

// Authenticate verifies credentials and stamps last_login on success
func (m *Manager) Authenticate(username, password string) (*database.User, error) {
	var user database.User
	if err := m.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	user.LastLogin = &now
	if err := m.db.Model(&user).Update("last_login", now).Error; err != nil {
		logger.Warn("Failed to update last_login for %s: %v", user.Username, err)
	}
	return &user, nil
}

// IssueToken mints a signed JWT for the user
func (m *Manager) IssueToken(user *database.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        newTokenID(),
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a JWT and resolves it to an active user
func (m *Manager) ParseToken(tokenString string) (*database.User, *Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, nil, errors.New("invalid or expired token")
	}
	if m.revoked.contains(claims.ID) {
		return nil, nil, errors.New("token has been revoked")
	}

	var user database.User
	if err := m.db.First(&user, claims.UserID).Error; err != nil {
		return nil, nil, errors.New("token user no longer exists")
	}
	if !user.IsActive {
		return nil, nil, errors.New("account is deactivated")
	}
	return &user, claims, nil
}

// RevokeToken invalidates a token by its ID until the process restarts.
// Expiry bounds how long a revoked ID has to be remembered.
func (m *Manager) RevokeToken(claims *Claims) {
	m.revoked.add(claims.ID, claims.ExpiresAt.Time)
}

// GetUser fetches a user by ID
func (m *Manager) GetUser(id uint) (*database.User, error) {
	var user database.User
	if err := m.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns all accounts, newest first
func (m *Manager) ListUsers() ([]database.User, error) {
	var users []database.User
	err := m.db.Order("date_joined DESC").Find(&users).Error
	return users, err
}

// SetActive toggles an account's active flag
func (m *Manager) SetActive(userID uint, active bool) error {
	result := m.db.Model(&database.User{}).Where("id = ?", userID).Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// SetStaff toggles an account's staff flag. Revoking staff from a superuser
// is refused; demote the superuser flag first.
func (m *Manager) SetStaff(userID uint, staff bool) error {
	if !staff {
		var user database.User
		if err := m.db.First(&user, userID).Error; err != nil {
			return err
		}
		if user.IsSuperuser {
			return ErrSuperuserDemotion
		}
	}
	result := m.db.Model(&database.User{}).Where("id = ?", userID).Update("is_staff", staff)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// UpdateAccount applies partial changes to the account's contact fields
func (m *Manager) UpdateAccount(userID uint, firstName, lastName, email *string) (*database.User, error) {
	user, err := m.GetUser(userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if firstName != nil {
		updates["first_name"] = *firstName
		user.FirstName = *firstName
	}
	if lastName != nil {
		updates["last_name"] = *lastName
		user.LastName = *lastName
	}
	if email != nil {
		if !database.IsValidEmail(*email) {
			return nil, errors.New("enter a valid email address")
		}
		var count int64
		m.db.Model(&database.User{}).Where("email = ? AND id <> ?", *email, userID).Count(&count)
		if count > 0 {
			return nil, errors.New("email is already registered")
		}
		updates["email"] = *email
		user.Email = *email
	}

	if len(updates) > 0 {
		if err := m.db.Model(&database.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update account: %w", err)
		}
	}
	return user, nil
}

// ActivityCounts returns the user's rating and review counts
func (m *Manager) ActivityCounts(userID uint) (int64, int64, error) {
	var ratings, reviews int64
	if err := m.db.Model(&database.Rating{}).Where("user_id = ?", userID).Count(&ratings).Error; err != nil {
		return 0, 0, err
	}
	if err := m.db.Model(&database.Review{}).Where("user_id = ?", userID).Count(&reviews).Error; err != nil {
		return 0, 0, err
	}
	return ratings, reviews, nil
}

// GetProfile loads a user's profile with preferred genres
func (m *Manager) GetProfile(userID uint) (*database.UserProfile, error) {
	var profile database.UserProfile
	err := m.db.Preload("PreferredGenres").Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, database.ErrNotFound) {
		profile = database.UserProfile{UserID: userID}
		if err := m.db.Create(&profile).Error; err != nil {
			return nil, err
		}
		return &profile, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// SetPreferredGenres replaces the profile's preferred genre set
func (m *Manager) SetPreferredGenres(userID uint, genreIDs []uint) (*database.UserProfile, error) {
	profile, err := m.GetProfile(userID)
	if err != nil {
		return nil, err
	}

	var genres []database.Genre
	if len(genreIDs) > 0 {
		if err := m.db.Where("id IN ?", genreIDs).Find(&genres).Error; err != nil {
			return nil, err
		}
		if len(genres) != len(genreIDs) {
			return nil, fmt.Errorf("unknown genre in preference list")
		}
	}

	if err := m.db.Model(profile).Association("PreferredGenres").Replace(genres); err != nil {
		return nil, err
	}
	profile.PreferredGenres = genres
	return profile, nil
}

// IsPrivileged reports whether the user may perform moderation and catalog writes
func IsPrivileged(user *database.User) bool {
	return user != nil && (user.IsStaff || user.IsSuperuser)
}
