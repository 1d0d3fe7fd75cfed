package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/blog/backend/internal/middleware"
	"github.com/emilythestrangee/blog/backend/internal/models"
	"github.com/emilythestrangee/blog/backend/internal/repository"
	"github.com/emilythestrangee/blog/backend/internal/service"
)

type PostHandler struct {
	posts  *service.PostService
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

func (h *PostHandler) postJSON(p *models.Post) gin.H {
	var image any
	if url := h.posts.ImageURL(p); url != "" {
		image = url
	}
	return gin.H{
		"id":         p.ID,
		"title":      p.Title,
		"content":    p.Content,
		"author_id":  p.AuthorID,
		"author":     p.Author.Username,
		"image":      image,
		"created_at": p.CreatedAt,
	}
}

func (h *PostHandler) listJSON(posts []models.Post) []gin.H {
	// Always an array, never null
	out := make([]gin.H, 0, len(posts))
	for i := range posts {
		out = append(out, h.postJSON(&posts[i]))
	}
	return out
}

// GetPosts returns every post.
func (h *PostHandler) GetPosts(c *gin.Context) {
	posts, err := h.posts.List(c.Request.Context())
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "failed to list posts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}
	c.JSON(http.StatusOK, h.listJSON(posts))
}

// GetPost returns a single post by ID
func (h *PostHandler) GetPost(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	post, err := h.posts.Get(c.Request.Context(), id)
	if errors.Is(err, repository.ErrPostNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "failed to load post", "post_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch post"})
		return
	}
	c.JSON(http.StatusOK, h.postJSON(post))
}

// SearchPosts matches ?q= against titles and contents.
func (h *PostHandler) SearchPosts(c *gin.Context) {
	posts, err := h.posts.Search(c.Request.Context(), c.Query("q"))
	if verr, ok := service.IsValidation(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"errors": verr.Fields})
		return
	}
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "failed to search posts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search posts"})
		return
	}
	c.JSON(http.StatusOK, h.listJSON(posts))
}

// CreatePost creates a new post (PROTECTED - requires authentication).
// Accepts JSON, or multipart with an optional "image" file.
func (h *PostHandler) CreatePost(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.CreatePostRequest
	if err := c.ShouldBind(&req); err != nil {
		if bodyTooLarge(err) {
			c.JSON(http.StatusBadRequest, gin.H{"errors": h.posts.ImageTooLarge().Fields})
			return
		}
		if fields, ok := fieldErrors(err); ok {
			c.JSON(http.StatusBadRequest, gin.H{"errors": fields})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	image, err := readImage(c, h.posts.MaxUploadBytes())
	if bodyTooLarge(err) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": h.posts.ImageTooLarge().Fields})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{"image": "The submitted data was not a file."}})
		return
	}

	post, err := h.posts.Create(c.Request.Context(), service.CreatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		AuthorID: userID,
		Image:    image,
	})
	if verr, ok := service.IsValidation(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"errors": verr.Fields})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": service.GenericCreateError})
		return
	}

	c.Header("Location", fmt.Sprintf("/api/posts/%d", post.ID))
	c.JSON(http.StatusCreated, h.postJSON(post))
}
