package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/blog/backend/internal/models"
	"github.com/emilythestrangee/blog/backend/internal/repository"
	"github.com/emilythestrangee/blog/backend/internal/storage"
	"github.com/emilythestrangee/blog/backend/internal/testutil"
)

var targets = LogTargets{Group: "BlogLogs", CreateStream: "PostCreation", ErrorStream: "PostCreationError"}

type fixture struct {
	svc   *PostService
	sink  *testutil.RecordingSink
	root  string
	user  *models.User
	count func() int64
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	root := t.TempDir()
	store, err := storage.NewLocalStore(root, "/media/")
	require.NoError(t, err)

	sink := &testutil.RecordingSink{}
	svc := NewPostService(repository.NewPostRepository(db, nil), store, sink, targets, 1024*1024, testutil.Logger())

	return &fixture{
		svc:  svc,
		sink: sink,
		root: root,
		user: testutil.CreateUser(t, db, "alice"),
		count: func() int64 {
			var n int64
			db.Model(&models.Post{}).Count(&n)
			return n
		},
	}
}

func TestPostService_CreateWithoutImage(t *testing.T) {
	f := setup(t)

	post, err := f.svc.Create(context.Background(), CreatePostInput{
		Title:    "Test Post",
		Content:  "This is a test.",
		AuthorID: f.user.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, "Test Post", post.Title)
	assert.Equal(t, f.user.ID, post.AuthorID)
	assert.Nil(t, post.Image)
	assert.Equal(t, "", f.svc.ImageURL(post))
	assert.Equal(t, int64(1), f.count())

	assert.Equal(t, []testutil.LogEntry{
		{Message: "New post created: Test Post", Group: "BlogLogs", Stream: "PostCreation"},
	}, f.sink.Entries())
}

func TestPostService_CreateWithImage(t *testing.T) {
	f := setup(t)

	post, err := f.svc.Create(context.Background(), CreatePostInput{
		Title:    "Pictured",
		Content:  "See attached.",
		AuthorID: f.user.ID,
		Image:    &ImageUpload{Filename: "photo.bin", Data: testutil.PNG(t)},
	})
	require.NoError(t, err)
	require.NotNil(t, post.Image)

	key := *post.Image
	assert.True(t, strings.HasPrefix(key, "blog_images/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Equal(t, "/media/"+key, f.svc.ImageURL(post))

	_, err = os.Stat(filepath.Join(f.root, filepath.FromSlash(key)))
	assert.NoError(t, err)
}

func TestPostService_CreateRejectsBadImages(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not an image", []byte("%PDF-1.7 definitely not a picture")},
		{"too large", make([]byte, 2*1024*1024)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)

			_, err := f.svc.Create(context.Background(), CreatePostInput{
				Title:    "Bad",
				Content:  "x",
				AuthorID: f.user.ID,
				Image:    &ImageUpload{Filename: "x.png", Data: tt.data},
			})

			verr, ok := IsValidation(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Contains(t, verr.Fields, "image")
			assert.Zero(t, f.count())
			assert.Empty(t, f.sink.Entries())
		})
	}
}

type failingRepo struct {
	repository.PostRepository
	err error
}

func (r failingRepo) Create(context.Context, *models.Post) error { return r.err }

func TestPostService_CreatePersistenceFailure(t *testing.T) {
	sink := &testutil.RecordingSink{}
	store, err := storage.NewLocalStore(t.TempDir(), "/media/")
	require.NoError(t, err)
	boom := errors.New("connection reset by peer")
	svc := NewPostService(failingRepo{err: boom}, store, sink, targets, 0, testutil.Logger())

	post, err := svc.Create(context.Background(), CreatePostInput{Title: "Doomed", Content: "x", AuthorID: 1})
	assert.Nil(t, post)
	assert.ErrorIs(t, err, boom)
	_, isValidation := IsValidation(err)
	assert.False(t, isValidation)

	assert.Equal(t, []testutil.LogEntry{
		{Message: "Error creating post: connection reset by peer", Group: "BlogLogs", Stream: "PostCreationError"},
	}, sink.Entries())
}

type brokenStore struct{ storage.BlobStore }

func (brokenStore) Save(context.Context, string, string, io.Reader) error {
	return errors.New("disk full")
}

func TestPostService_CreateImageStoreFailure(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "bob")
	sink := &testutil.RecordingSink{}
	svc := NewPostService(repository.NewPostRepository(db, nil), brokenStore{}, sink, targets, 0, testutil.Logger())

	_, err := svc.Create(context.Background(), CreatePostInput{
		Title:    "No room",
		Content:  "x",
		AuthorID: user.ID,
		Image:    &ImageUpload{Filename: "a.png", Data: testutil.PNG(t)},
	})
	require.Error(t, err)
	_, isValidation := IsValidation(err)
	assert.False(t, isValidation)

	var n int64
	db.Model(&models.Post{}).Count(&n)
	assert.Zero(t, n)

	entries := sink.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "PostCreationError", entries[0].Stream)
	assert.Contains(t, entries[0].Message, "disk full")
}

func TestPostService_SearchRequiresQuery(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Search(context.Background(), "   ")
	verr, ok := IsValidation(err)
	require.True(t, ok)
	assert.Contains(t, verr.Fields, "q")
}

func TestPostService_GetMissing(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Get(context.Background(), 12345)
	assert.ErrorIs(t, err, repository.ErrPostNotFound)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"title": "required", "content": "required"}}
	assert.Equal(t, "validation failed: content: required; title: required", err.Error())
}
