package posts

import (
	"context"

	"github.com/ButyrinIA/postboard/internal/models"
	"github.com/ButyrinIA/postboard/internal/query"
	"github.com/stretchr/testify/mock"
)

// мок для интерфейса storage.Storage
type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) ListPosts(ctx context.Context, filter query.Filter, skip, take int) ([]models.Post, error) {
	args := m.Called(ctx, filter, skip, take)
	posts, _ := args.Get(0).([]models.Post)
	return posts, args.Error(1)
}

func (m *mockStorage) CountPosts(ctx context.Context, filter query.Filter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *mockStorage) GetPost(ctx context.Context, id int) (*models.Post, error) {
	args := m.Called(ctx, id)
	post, _ := args.Get(0).(*models.Post)
	return post, args.Error(1)
}

func (m *mockStorage) CreatePost(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *mockStorage) UpdatePost(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *mockStorage) DeletePost(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockStorage) DeleteAllPosts(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockStorage) ReplacePosts(ctx context.Context, posts []models.Post) (int, error) {
	args := m.Called(ctx, posts)
	return args.Int(0), args.Error(1)
}

func (m *mockStorage) GetAuthor(ctx context.Context, id int) (*models.Author, error) {
	args := m.Called(ctx, id)
	author, _ := args.Get(0).(*models.Author)
	return author, args.Error(1)
}

func (m *mockStorage) GetAuthors(ctx context.Context, ids []int) (map[int]models.Author, error) {
	args := m.Called(ctx, ids)
	authors, _ := args.Get(0).(map[int]models.Author)
	return authors, args.Error(1)
}

func (m *mockStorage) ListAuthors(ctx context.Context) ([]models.Author, error) {
	args := m.Called(ctx)
	authors, _ := args.Get(0).([]models.Author)
	return authors, args.Error(1)
}

func (m *mockStorage) UpsertAuthors(ctx context.Context, authors []models.Author) error {
	args := m.Called(ctx, authors)
	return args.Error(0)
}

func (m *mockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}
