package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ButyrinIA/postboard/internal/models"
	"github.com/ButyrinIA/postboard/internal/query"
	"github.com/ButyrinIA/postboard/internal/storage"
)

type MemoryStorage struct {
	posts   map[int]models.Post
	authors map[int]models.Author
	nextID  int
	mu      sync.RWMutex
}

func New() *MemoryStorage {
	return &MemoryStorage{
		posts:   make(map[int]models.Post),
		authors: make(map[int]models.Author),
		nextID:  1,
	}
}

// sortedPosts returns matching posts, newest id first. Caller holds mu.
func (s *MemoryStorage) sortedPosts(filter query.Filter) []models.Post {
	posts := make([]models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if filter.Matches(p.UserID) {
			posts = append(posts, p)
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID > posts[j].ID })
	return posts
}

func (s *MemoryStorage) ListPosts(ctx context.Context, filter query.Filter, skip, take int) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := s.sortedPosts(filter)

	startIdx := max(skip, 0)
	if startIdx > len(posts) {
		startIdx = len(posts)
	}
	endIdx := startIdx + max(take, 0)
	if endIdx > len(posts) || endIdx < startIdx {
		endIdx = len(posts)
	}

	result := make([]models.Post, endIdx-startIdx)
	copy(result, posts[startIdx:endIdx])
	return result, nil
}

func (s *MemoryStorage) CountPosts(ctx context.Context, filter query.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if filter.UserID == nil {
		return len(s.posts), nil
	}
	count := 0
	for _, p := range s.posts {
		if filter.Matches(p.UserID) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStorage) GetPost(ctx context.Context, id int) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, exists := s.posts[id]
	if !exists {
		return nil, fmt.Errorf("post %d: %w", id, storage.ErrNotFound)
	}
	return &post, nil
}

func (s *MemoryStorage) CreatePost(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post.ID = s.nextID
	s.nextID++
	s.posts[post.ID] = *post
	return nil
}

func (s *MemoryStorage) UpdatePost(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.posts[post.ID]
	if !exists {
		return fmt.Errorf("post %d: %w", post.ID, storage.ErrNotFound)
	}
	existing.Title = post.Title
	existing.Body = post.Body
	s.posts[post.ID] = existing
	*post = existing
	return nil
}

func (s *MemoryStorage) DeletePost(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.posts[id]; !exists {
		return fmt.Errorf("post %d: %w", id, storage.ErrNotFound)
	}
	delete(s.posts, id)
	return nil
}

func (s *MemoryStorage) DeleteAllPosts(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.posts)
	s.posts = make(map[int]models.Post)
	return count, nil
}

func (s *MemoryStorage) ReplacePosts(ctx context.Context, posts []models.Post) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.posts = make(map[int]models.Post, len(posts))
	s.nextID = 1
	for _, p := range posts {
		s.posts[p.ID] = p
		if p.ID >= s.nextID {
			s.nextID = p.ID + 1
		}
	}
	return len(posts), nil
}

func (s *MemoryStorage) GetAuthor(ctx context.Context, id int) (*models.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	author, exists := s.authors[id]
	if !exists {
		return nil, fmt.Errorf("author %d: %w", id, storage.ErrNotFound)
	}
	return &author, nil
}

func (s *MemoryStorage) GetAuthors(ctx context.Context, ids []int) (map[int]models.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[int]models.Author, len(ids))
	for _, id := range ids {
		if a, ok := s.authors[id]; ok {
			result[id] = a
		}
	}
	return result, nil
}

func (s *MemoryStorage) ListAuthors(ctx context.Context) ([]models.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	authors := make([]models.Author, 0, len(s.authors))
	for _, a := range s.authors {
		authors = append(authors, a)
	}
	sort.Slice(authors, func(i, j int) bool { return authors[i].ID < authors[j].ID })
	return authors, nil
}

func (s *MemoryStorage) UpsertAuthors(ctx context.Context, authors []models.Author) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range authors {
		s.authors[a.ID] = a
	}
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
