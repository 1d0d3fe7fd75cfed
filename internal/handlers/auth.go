package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/emilythestrangee/blog/backend/internal/auth"
	"github.com/emilythestrangee/blog/backend/internal/middleware"
	"github.com/emilythestrangee/blog/backend/internal/models"
	"github.com/emilythestrangee/blog/backend/internal/repository"
)

var errBadCredentials = errors.New("invalid credentials")

type AuthHandler struct {
	users         repository.UserRepository
	tokens        *auth.Tokens
	secureCookies bool
	logger        *slog.Logger
}

func NewAuthHandler(d Deps) *AuthHandler {
	return &AuthHandler{
		users:         d.Users,
		tokens:        d.Tokens,
		secureCookies: d.SecureCookies,
		logger:        d.Logger,
	}
}

// authenticate accepts either a username or an email as login.
func authenticate(ctx context.Context, users repository.UserRepository, login, password string) (*models.User, error) {
	user, err := users.GetByLogin(ctx, strings.TrimSpace(login))
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, errBadCredentials
	}
	return user, nil
}

func setSessionCookie(c *gin.Context, token string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, token, int(auth.TokenTTL.Seconds()), "/", "", secure, true)
}

func clearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", secure, true)
}

// Register creates an account and logs it in.
func (h *AuthHandler) Register(c *gin.Context) {
	var input models.RegisterRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		if fields, ok := fieldErrors(err); ok {
			c.JSON(http.StatusBadRequest, gin.H{"errors": fields})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	ctx := c.Request.Context()
	taken, err := h.users.Exists(ctx, input.Username, input.Email)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to check existing user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "Username or email already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := models.User{
		Username: input.Username,
		Email:    input.Email,
		Password: string(hash),
	}
	if err := h.users.Create(ctx, &user); err != nil {
		h.logger.ErrorContext(ctx, "failed to create user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	h.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	setSessionCookie(c, token, h.secureCookies)
	c.JSON(http.StatusCreated, models.AuthResponse{
		Token:   token,
		User:    user,
		Message: "User registered successfully",
	})
}

// Login checks credentials and returns a token.
func (h *AuthHandler) Login(c *gin.Context) {
	var input models.LoginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	ctx := c.Request.Context()
	user, err := authenticate(ctx, h.users, input.Username, input.Password)
	if errors.Is(err, errBadCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "login failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	setSessionCookie(c, token, h.secureCookies)
	c.JSON(http.StatusOK, models.AuthResponse{
		Token:   token,
		User:    *user,
		Message: "Login successful",
	})
}

// GetMe returns the current authenticated user
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}
