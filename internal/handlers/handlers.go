package handlers

import (
	"log/slog"

	"github.com/emilythestrangee/blog/backend/internal/auth"
	"github.com/emilythestrangee/blog/backend/internal/repository"
	"github.com/emilythestrangee/blog/backend/internal/service"
)

// Deps are the collaborators shared by every handler.
type Deps struct {
	Posts         *service.PostService
	Users         repository.UserRepository
	Tokens        *auth.Tokens
	SecureCookies bool
	Logger        *slog.Logger
}

// Handler combines all handler types
type Handler struct {
	Auth *AuthHandler
	Post *PostHandler
	Page *PageHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(d Deps) *Handler {
	return &Handler{
		Auth: NewAuthHandler(d),
		Post: NewPostHandler(d.Posts, d.Logger),
		Page: NewPageHandler(d),
	}
}
