// Package repository provides data access for posts and users.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/emilythestrangee/blog/backend/internal/cache"
	"github.com/emilythestrangee/blog/backend/internal/models"
)

var (
	// ErrPostNotFound is returned when no post has the requested id.
	ErrPostNotFound = errors.New("post not found")
	// ErrAuthorNotFound is returned when a post references a missing user.
	ErrAuthorNotFound = errors.New("author not found")
)

const pgForeignKeyViolation = "23503"

// PostRepository defines the post data operations.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context) ([]models.Post, error)
	Search(ctx context.Context, query string) ([]models.Post, error)
}

type postRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewPostRepository creates a post repository. c may be nil.
func NewPostRepository(db *gorm.DB, c *cache.Cache) PostRepository {
	return &postRepository{db: db, cache: c}
}

// Create inserts post and loads its author in one transaction, so an error
// always means nothing was stored.
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author").Create(post).Error; err != nil {
			return err
		}
		return tx.First(&post.Author, post.AuthorID).Error
	})
	if err != nil {
		post.ID = 0
		return classify(err)
	}
	r.cache.Invalidate(ctx, cache.PostsListKey)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.cache.Aside(ctx, cache.PostKey(id), &post, cache.PostDetailTTL, func() error {
		return r.db.WithContext(ctx).Preload("Author").First(&post, id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	return &post, nil
}

// List returns every post in the store's natural order.
func (r *postRepository) List(ctx context.Context) ([]models.Post, error) {
	posts := []models.Post{}
	err := r.cache.Aside(ctx, cache.PostsListKey, &posts, cache.PostTTL, func() error {
		return r.db.WithContext(ctx).Preload("Author").Find(&posts).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// Search matches title or content case-insensitively, newest first.
func (r *postRepository) Search(ctx context.Context, query string) ([]models.Post, error) {
	like := "%" + strings.ToLower(query) + "%"

	posts := []models.Post{}
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", like, like).
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	return posts, nil
}

func classify(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAuthorNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return fmt.Errorf("%w: %s", ErrAuthorNotFound, pgErr.ConstraintName)
	}
	return err
}
