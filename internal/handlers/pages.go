package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/blog/backend/internal/auth"
	"github.com/emilythestrangee/blog/backend/internal/middleware"
	"github.com/emilythestrangee/blog/backend/internal/models"
	"github.com/emilythestrangee/blog/backend/internal/repository"
	"github.com/emilythestrangee/blog/backend/internal/service"
)

// PageHandler serves the server-rendered HTML pages.
type PageHandler struct {
	posts         *service.PostService
	users         repository.UserRepository
	tokens        *auth.Tokens
	secureCookies bool
	logger        *slog.Logger
}

func NewPageHandler(d Deps) *PageHandler {
	return &PageHandler{
		posts:         d.Posts,
		users:         d.Users,
		tokens:        d.Tokens,
		secureCookies: d.SecureCookies,
		logger:        d.Logger,
	}
}

type postView struct {
	ID        uint
	Title     string
	Content   string
	Author    string
	CreatedAt time.Time
	ImageURL  string
}

func (h *PageHandler) view(p *models.Post) postView {
	return postView{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		Author:    p.Author.Username,
		CreatedAt: p.CreatedAt,
		ImageURL:  h.posts.ImageURL(p),
	}
}

func (h *PageHandler) render(c *gin.Context, status int, name, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["title"] = title
	data["view"] = name[:len(name)-len(".html")]
	if id, ok := middleware.CurrentUserID(c); ok {
		data["user_id"] = id
	}
	c.HTML(status, name, data)
}

func (h *PageHandler) notFound(c *gin.Context) {
	h.render(c, http.StatusNotFound, "not_found.html", "Not found", gin.H{"message": "Post not found."})
}

func (h *PageHandler) serverError(c *gin.Context, message string) {
	h.render(c, http.StatusInternalServerError, "error.html", "Error", gin.H{"message": message})
}

// PostList renders every post.
func (h *PageHandler) PostList(c *gin.Context) {
	posts, err := h.posts.List(c.Request.Context())
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "failed to list posts", "error", err)
		h.serverError(c, "Posts could not be loaded. Please try again.")
		return
	}

	views := make([]postView, 0, len(posts))
	for i := range posts {
		views = append(views, h.view(&posts[i]))
	}
	h.render(c, http.StatusOK, "post_list.html", "Posts", gin.H{"posts": views})
}

// PostDetail renders one post, or the not-found page.
func (h *PageHandler) PostDetail(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.notFound(c)
		return
	}

	post, err := h.posts.Get(c.Request.Context(), id)
	if errors.Is(err, repository.ErrPostNotFound) {
		h.notFound(c)
		return
	}
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "failed to load post", "post_id", id, "error", err)
		h.serverError(c, "The post could not be loaded. Please try again.")
		return
	}
	h.render(c, http.StatusOK, "post_detail.html", post.Title, gin.H{"post": h.view(post)})
}

// CreatePostForm renders an empty form.
func (h *PageHandler) CreatePostForm(c *gin.Context) {
	h.renderForm(c, http.StatusOK, models.CreatePostRequest{}, nil, "")
}

func (h *PageHandler) renderForm(c *gin.Context, status int, form models.CreatePostRequest, errs map[string]string, formError string) {
	if errs == nil {
		errs = map[string]string{}
	}
	h.render(c, status, "create_post.html", "New post", gin.H{
		"form":       form,
		"errors":     errs,
		"form_error": formError,
	})
}

// CreatePost validates the submission and redirects to the new post.
func (h *PageHandler) CreatePost(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login?next=/create")
		return
	}

	var form models.CreatePostRequest
	if err := c.ShouldBind(&form); err != nil {
		if bodyTooLarge(err) {
			h.renderForm(c, http.StatusBadRequest, form, h.posts.ImageTooLarge().Fields, "")
			return
		}
		fields, ok := fieldErrors(err)
		if !ok {
			h.renderForm(c, http.StatusBadRequest, form, nil, "The form could not be read. Please try again.")
			return
		}
		h.renderForm(c, http.StatusBadRequest, form, fields, "")
		return
	}

	image, err := readImage(c, h.posts.MaxUploadBytes())
	if bodyTooLarge(err) {
		h.renderForm(c, http.StatusBadRequest, form, h.posts.ImageTooLarge().Fields, "")
		return
	}
	if err != nil {
		h.renderForm(c, http.StatusBadRequest, form, map[string]string{"image": "The submitted data was not a file."}, "")
		return
	}

	post, err := h.posts.Create(c.Request.Context(), service.CreatePostInput{
		Title:    form.Title,
		Content:  form.Content,
		AuthorID: userID,
		Image:    image,
	})
	if verr, ok := service.IsValidation(err); ok {
		h.renderForm(c, http.StatusBadRequest, form, verr.Fields, "")
		return
	}
	if err != nil {
		h.renderForm(c, http.StatusInternalServerError, form, nil, service.GenericCreateError)
		return
	}

	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/posts/%d", post.ID))
}

// LoginForm renders the login page.
func (h *PageHandler) LoginForm(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", "Log in", gin.H{"next": safeNext(c.Query("next"))})
}

// Login starts a cookie session and redirects to next.
func (h *PageHandler) Login(c *gin.Context) {
	next := safeNext(c.PostForm("next"))

	var form models.LoginRequest
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, "login.html", "Log in", gin.H{
			"next":       next,
			"username":   form.Username,
			"form_error": "Please enter a correct username and password.",
		})
		return
	}

	user, err := authenticate(c.Request.Context(), h.users, form.Username, form.Password)
	if err != nil {
		if !errors.Is(err, errBadCredentials) {
			h.logger.ErrorContext(c.Request.Context(), "login failed", "error", err)
		}
		h.render(c, http.StatusUnauthorized, "login.html", "Log in", gin.H{
			"next":       next,
			"username":   form.Username,
			"form_error": "Please enter a correct username and password.",
		})
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Username)
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "failed to issue token", "error", err)
		h.serverError(c, "Login failed. Please try again.")
		return
	}

	setSessionCookie(c, token, h.secureCookies)
	c.Redirect(http.StatusSeeOther, next)
}

// Logout clears the session cookie.
func (h *PageHandler) Logout(c *gin.Context) {
	clearSessionCookie(c, h.secureCookies)
	c.Redirect(http.StatusSeeOther, "/")
}
