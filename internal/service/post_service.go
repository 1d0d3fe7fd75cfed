// Package service holds the post workflows shared by the HTML and JSON handlers.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/emilythestrangee/blog/backend/internal/metrics"
	"github.com/emilythestrangee/blog/backend/internal/models"
	"github.com/emilythestrangee/blog/backend/internal/monitoring"
	"github.com/emilythestrangee/blog/backend/internal/repository"
	"github.com/emilythestrangee/blog/backend/internal/storage"
)

// GenericCreateError is the only failure detail shown to people submitting posts.
const GenericCreateError = "An error occurred creating the post. Please try again."

// ValidationError carries field-level messages keyed by lower-case field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// LogTargets names the CloudWatch group and streams post events go to.
type LogTargets struct {
	Group        string
	CreateStream string
	ErrorStream  string
}

// CreatePostInput is a validated submission plus the caller's identity.
type CreatePostInput struct {
	Title    string
	Content  string
	AuthorID uint
	Image    *ImageUpload
}

// PostService creates and reads posts.
type PostService struct {
	repo           repository.PostRepository
	store          storage.BlobStore
	sink           monitoring.Sink
	targets        LogTargets
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewPostService(
	repo repository.PostRepository,
	store storage.BlobStore,
	sink monitoring.Sink,
	targets LogTargets,
	maxUploadBytes int64,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		repo:           repo,
		store:          store,
		sink:           sink,
		targets:        targets,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Create stores the optional image and persists the post. Validation problems
// come back as *ValidationError; any other error means the write failed and has
// already been reported to the log sink.
func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	post := &models.Post{
		Title:    in.Title,
		Content:  in.Content,
		AuthorID: in.AuthorID,
	}

	if in.Image != nil {
		key, contentType, err := s.prepareImage(in.Image)
		if err != nil {
			return nil, err
		}
		if err := s.store.Save(ctx, key, contentType, bytes.NewReader(in.Image.Data)); err != nil {
			return nil, s.createFailed(ctx, fmt.Errorf("store image: %w", err))
		}
		post.Image = &key
	}

	if err := s.repo.Create(ctx, post); err != nil {
		return nil, s.createFailed(ctx, err)
	}

	msg := fmt.Sprintf("New post created: %s", post.Title)
	s.sink.Log(ctx, msg, s.targets.Group, s.targets.CreateStream)
	s.logger.InfoContext(ctx, msg, "post_id", post.ID, "author_id", post.AuthorID)
	metrics.PostsCreated.Inc()

	return post, nil
}

func (s *PostService) prepareImage(img *ImageUpload) (key, contentType string, err error) {
	if len(img.Data) == 0 {
		return "", "", &ValidationError{Fields: map[string]string{"image": "The submitted file is empty."}}
	}
	if s.maxUploadBytes > 0 && int64(len(img.Data)) > s.maxUploadBytes {
		return "", "", s.ImageTooLarge()
	}

	ext, contentType, err := inspectImage(img.Data)
	if err != nil {
		return "", "", &ValidationError{Fields: map[string]string{
			"image": "Upload a valid image. The file you uploaded was either not an image or a corrupted image.",
		}}
	}
	return imageKey(ext), contentType, nil
}

func (s *PostService) createFailed(ctx context.Context, err error) error {
	msg := fmt.Sprintf("Error creating post: %v", err)
	s.sink.Log(ctx, msg, s.targets.Group, s.targets.ErrorStream)
	s.logger.ErrorContext(ctx, msg)
	metrics.PostCreateFailures.Inc()
	return fmt.Errorf("create post: %w", err)
}

// MaxUploadBytes is the largest accepted image, 0 meaning unlimited.
func (s *PostService) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// ImageTooLarge is the field error for an upload over MaxUploadBytes.
func (s *PostService) ImageTooLarge() *ValidationError {
	return &ValidationError{Fields: map[string]string{
		"image": fmt.Sprintf("File too large (max %dMB).", s.maxUploadBytes/(1024*1024)),
	}}
}

// List returns all posts.
func (s *PostService) List(ctx context.Context) ([]models.Post, error) {
	return s.repo.List(ctx)
}

// Get returns one post or repository.ErrPostNotFound.
func (s *PostService) Get(ctx context.Context, id uint) (*models.Post, error) {
	return s.repo.GetByID(ctx, id)
}

// Search returns posts whose title or content contains query.
func (s *PostService) Search(ctx context.Context, query string) ([]models.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &ValidationError{Fields: map[string]string{"q": "This field is required."}}
	}
	return s.repo.Search(ctx, query)
}

// ImageURL resolves the public URL of a post's image, or "".
func (s *PostService) ImageURL(p *models.Post) string {
	if !p.HasImage() {
		return ""
	}
	return s.store.URL(*p.Image)
}

// IsValidation reports whether err is a *ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
