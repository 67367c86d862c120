package storage

import (
	"context"
	"errors"

	"github.com/ButyrinIA/postboard/internal/models"
	"github.com/ButyrinIA/postboard/internal/query"
)

// ErrNotFound is returned (possibly wrapped) when a post or author does not exist.
var ErrNotFound = errors.New("not found")

type Storage interface {
	// ListPosts returns up to take posts matching filter, ordered by id
	// descending, after skipping the first skip matches.
	ListPosts(ctx context.Context, filter query.Filter, skip, take int) ([]models.Post, error)
	CountPosts(ctx context.Context, filter query.Filter) (int, error)
	GetPost(ctx context.Context, id int) (*models.Post, error)
	// CreatePost persists post and assigns its ID.
	CreatePost(ctx context.Context, post *models.Post) error
	// UpdatePost overwrites title and body of an existing post.
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id int) error
	DeleteAllPosts(ctx context.Context) (int, error)
	// ReplacePosts removes every post and inserts posts with their given IDs.
	ReplacePosts(ctx context.Context, posts []models.Post) (int, error)

	GetAuthor(ctx context.Context, id int) (*models.Author, error)
	// GetAuthors returns the authors that exist among ids, keyed by id.
	GetAuthors(ctx context.Context, ids []int) (map[int]models.Author, error)
	ListAuthors(ctx context.Context) ([]models.Author, error)
	UpsertAuthors(ctx context.Context, authors []models.Author) error

	Close() error
}
