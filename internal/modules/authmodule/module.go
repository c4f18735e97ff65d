package authmodule

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/filmsearch/filmsearch/internal/apiroutes"
	"github.com/filmsearch/filmsearch/internal/database"
	"github.com/filmsearch/filmsearch/internal/logger"
	"github.com/filmsearch/filmsearch/internal/modules/modulemanager"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Auto-register the module when imported
func init() {
	Register()
}

const (
	// ModuleID is the unique identifier for the auth module
	ModuleID = "system.auth"

	// ModuleName is the display name for the auth module
	ModuleName = "Accounts & Authentication"
)

// Module implements accounts, sessions, and access control
type Module struct {
	db          *gorm.DB
	manager     *Manager
	initialized bool
}

// Register registers the auth module with the module system
func Register() {
	modulemanager.Register(&Module{})
}

// ID returns the unique module identifier
func (m *Module) ID() string {
	return ModuleID
}

// Name returns the module display name
func (m *Module) Name() string {
	return ModuleName
}

// Core returns whether this is a core module
func (m *Module) Core() bool {
	return true
}

// Migrate performs database migrations
func (m *Module) Migrate(db *gorm.DB) error {
	logger.Info("Migrating auth database schema")
	if err := db.AutoMigrate(&database.User{}, &database.UserProfile{}); err != nil {
		return fmt.Errorf("failed to migrate auth models: %w", err)
	}
	return nil
}

// Init initializes the auth module
func (m *Module) Init() error {
	logger.Info("Initializing auth module")

	if m.db == nil {
		m.db = database.GetDB()
	}
	m.manager = NewManager(m.db)
	m.initialized = true
	return nil
}

// GetManager returns the global auth manager instance
func GetManager() *Manager {
	if module, exists := modulemanager.GetModule(ModuleID); exists {
		if authModule, ok := module.(*Module); ok && authModule.initialized {
			return authModule.manager
		}
	}
	return nil
}

// RegisterRoutes registers HTTP routes
func (m *Module) RegisterRoutes(router *gin.Engine) {
	logger.Info("Registering auth module routes")

	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/register", m.register)
		auth.POST("/login", m.login)
		auth.POST("/logout", RequireAuth(), m.logout)
		auth.GET("/me", RequireAuth(), m.me)
	}

	users := router.Group("/api/v1/users")
	{
		users.GET("/profile", RequireAuth(), m.getProfile)
		users.PUT("/profile", RequireAuth(), m.updateProfile)
		users.GET("", RequireAuth(), RequirePrivileged(), m.listUsers)
		users.GET("/:id", RequireAuth(), RequirePrivileged(), m.getUser)
		users.PUT("/:id/active", RequireAuth(), RequireSuperuser(), m.setActive)
		users.PUT("/:id/staff", RequireAuth(), RequireSuperuser(), m.setStaff)
	}

	apiroutes.Register("/api/v1/auth", "POST", "Account registration, login, and session management.")
	apiroutes.Register("/api/v1/users", "GET", "User accounts, profiles, and access flags.")
}

// userResponse shapes a user for API payloads
func userResponse(user *database.User) gin.H {
	return gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"email":        user.Email,
		"first_name":   user.FirstName,
		"last_name":    user.LastName,
		"is_staff":     user.IsStaff,
		"is_superuser": user.IsSuperuser,
		"is_active":    user.IsActive,
		"date_joined":  user.DateJoined,
		"last_login":   user.LastLogin,
	}
}

func (m *Module) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
		return
	}

	if result := m.manager.ValidateRegistration(req); !result.OK() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": result.ErrorMap()})
		return
	}

	user, err := m.manager.RegisterUser(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create account"})
		return
	}

	token, err := m.manager.IssueToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "user": userResponse(user), "token": token})
}

func (m *Module) login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
		return
	}

	user, err := m.manager.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": ErrInvalidCredentials.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Login failed"})
		return
	}

	token, err := m.manager.IssueToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": userResponse(user), "token": token})
}

func (m *Module) logout(c *gin.Context) {
	if claims, ok := CurrentClaims(c); ok {
		m.manager.RevokeToken(claims)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

func (m *Module) me(c *gin.Context) {
	user, _ := CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "user": userResponse(user)})
}

func (m *Module) getProfile(c *gin.Context) {
	user, _ := CurrentUser(c)
	profile, err := m.manager.GetProfile(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load profile"})
		return
	}
	ratings, reviews, err := m.manager.ActivityCounts(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load activity"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"user":          userResponse(user),
		"profile":       profile,
		"ratings_count": ratings,
		"reviews_count": reviews,
	})
}

func (m *Module) updateProfile(c *gin.Context) {
	user, _ := CurrentUser(c)

	var req struct {
		FirstName         *string `json:"first_name"`
		LastName          *string `json:"last_name"`
		Email             *string `json:"email"`
		PreferredGenreIDs []uint  `json:"preferred_genre_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
		return
	}

	user, err := m.manager.UpdateAccount(user.ID, req.FirstName, req.LastName, req.Email)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	profile, err := m.manager.SetPreferredGenres(user.ID, req.PreferredGenreIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": userResponse(user), "profile": profile})
}

func (m *Module) listUsers(c *gin.Context) {
	users, err := m.manager.ListUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to list users"})
		return
	}
	payload := make([]gin.H, 0, len(users))
	for i := range users {
		payload = append(payload, userResponse(&users[i]))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": payload, "total": len(payload)})
}

func (m *Module) getUser(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid user ID"})
		return
	}

	user, err := m.manager.GetUser(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": userResponse(user)})
}

func (m *Module) setActive(c *gin.Context) {
	m.setFlag(c, m.manager.SetActive)
}

func (m *Module) setStaff(c *gin.Context) {
	m.setFlag(c, m.manager.SetStaff)
}

func (m *Module) setFlag(c *gin.Context, apply func(uint, bool) error) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid user ID"})
		return
	}

	var req struct {
		Value *bool `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Value == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing boolean value"})
		return
	}

	if err := apply(id, *req.Value); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "User not found"})
			return
		}
		if errors.Is(err, ErrSuperuserDemotion) {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": ErrSuperuserDemotion.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func parseUintParam(c *gin.Context, name string) (uint, error) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}
