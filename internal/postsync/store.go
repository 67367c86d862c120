// Package postsync keeps a client-side view of the post collection in step
// with the API: paged loading for infinite scroll and optimistic mutations
// that roll back when the server rejects them.
package postsync

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/ButyrinIA/postboard/internal/client"
	"github.com/ButyrinIA/postboard/internal/models"
	"github.com/ButyrinIA/postboard/internal/validation"
)

// API is the subset of the HTTP client the store talks to.
type API interface {
	ListPosts(ctx context.Context, opts client.ListOptions) (*models.PaginatedPosts, error)
	CreatePost(ctx context.Context, input models.CreatePostInput) (*models.PostWithAuthor, error)
	UpdatePost(ctx context.Context, id int, input models.EditPostInput) (*models.PostWithAuthor, error)
	DeletePost(ctx context.Context, id int) (string, error)
	ListUsers(ctx context.Context) ([]models.Author, error)
}

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusLoadingMore
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusLoadingMore:
		return "loading_more"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Item is one post held by the store.
type Item struct {
	Key  Key
	Post models.PostWithAuthor
	// Deleting is set while a delete request for the item is in flight.
	Deleting bool
}

// Pending reports whether the server has not yet confirmed the item.
func (i Item) Pending() bool {
	_, ok := i.Key.(PendingID)
	return ok
}

// Snapshot is a copy of the store state.
type Snapshot struct {
	Status  Status
	Items   []Item
	Page    int
	Total   int
	HasMore bool
	UserID  *int
	Err     error
	Authors []models.Author
}

type Store struct {
	api      API
	monitor  *Monitor
	pageSize int
	logger   *slog.Logger

	// mu guards the fields below and is never held across an API call.
	mu          sync.Mutex
	status      Status
	items       []Item
	page        int
	total       int
	hasMore     bool
	userID      *int
	err         error
	authors     []models.Author
	loadingMore bool
}

type Option func(*Store)

// WithMonitor makes mutations fail fast while the monitor reports offline.
func WithMonitor(m *Monitor) Option {
	return func(s *Store) { s.monitor = m }
}

func WithPageSize(n int) Option {
	return func(s *Store) { s.pageSize = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func NewStore(api API, opts ...Option) *Store {
	s := &Store{
		api:      api,
		pageSize: 10,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Status:  s.status,
		Items:   append([]Item(nil), s.items...),
		Page:    s.page,
		Total:   s.total,
		HasMore: s.hasMore,
		Err:     s.err,
		Authors: append([]models.Author(nil), s.authors...),
	}
	if s.userID != nil {
		id := *s.userID
		snap.UserID = &id
	}
	return snap
}

// Load fetches the first page for the current filter and replaces the
// collection. A load already in flight is not cancelled; whichever response
// arrives last wins.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.status = StatusLoading
	s.err = nil
	userID := s.userID
	s.mu.Unlock()

	page, err := s.api.ListPosts(ctx, client.ListOptions{Page: 1, Limit: s.pageSize, UserID: userID})
	s.report(err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status = StatusErrored
		s.err = err
		return err
	}
	s.items = toItems(page.Data)
	s.page = 1
	s.total = page.Pagination.Total
	s.hasMore = page.Pagination.HasMore
	s.status = StatusReady
	return nil
}

// SetFilter restricts the collection to one author (nil for all) and reloads.
func (s *Store) SetFilter(ctx context.Context, userID *int) error {
	s.mu.Lock()
	if userID != nil {
		id := *userID
		userID = &id
	}
	s.userID = userID
	s.mu.Unlock()

	return s.Load(ctx)
}

// Retry reloads after a failed fetch. It does nothing unless the store is errored.
func (s *Store) Retry(ctx context.Context) error {
	s.mu.Lock()
	errored := s.status == StatusErrored
	s.mu.Unlock()

	if !errored {
		return nil
	}
	return s.Load(ctx)
}

// LoadMore appends the next page. It reports false without calling the API
// when there is nothing more to load or another append is in flight.
func (s *Store) LoadMore(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.loadingMore || !s.hasMore || s.status != StatusReady {
		s.mu.Unlock()
		return false, nil
	}
	s.loadingMore = true
	s.status = StatusLoadingMore
	next := s.page + 1
	userID := s.userID
	s.mu.Unlock()

	page, err := s.api.ListPosts(ctx, client.ListOptions{Page: next, Limit: s.pageSize, UserID: userID})
	s.report(err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadingMore = false
	if err != nil {
		s.status = StatusErrored
		s.err = err
		return true, err
	}

	held := make(map[Key]bool, len(s.items))
	for _, it := range s.items {
		held[it.Key] = true
	}
	for _, it := range toItems(page.Data) {
		if !held[it.Key] {
			s.items = append(s.items, it)
			held[it.Key] = true
		}
	}
	s.page = next
	s.total = page.Pagination.Total
	s.hasMore = page.Pagination.HasMore
	s.status = StatusReady
	return true, nil
}

// LoadAuthors fetches the author directory used for filters and forms.
func (s *Store) LoadAuthors(ctx context.Context) ([]models.Author, error) {
	authors, err := s.api.ListUsers(ctx)
	s.report(err)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.authors = append([]models.Author(nil), authors...)
	s.mu.Unlock()
	return authors, nil
}

// Create shows the post at the head of the collection right away and
// replaces it with the server's record once confirmed. On failure the
// placeholder is removed and the error returned.
func (s *Store) Create(ctx context.Context, input models.CreatePostInput) (*models.PostWithAuthor, error) {
	if err := s.checkOnline(); err != nil {
		return nil, err
	}
	input, err := validation.CreatePost.Validate(map[string]any{
		"title":  input.Title,
		"body":   input.Body,
		"userId": input.UserID,
	})
	if err != nil {
		return nil, localValidationError(err)
	}

	key := NewPendingID()
	s.mu.Lock()
	placeholder := Item{
		Key: key,
		Post: models.PostWithAuthor{
			Post:   models.Post{UserID: input.UserID, Title: input.Title, Body: input.Body},
			Author: s.authorRef(input.UserID),
		},
	}
	s.items = append([]Item{placeholder}, s.items...)
	s.mu.Unlock()

	post, err := s.api.CreatePost(ctx, input)
	s.report(err)

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(key)
	if err != nil {
		if i >= 0 {
			s.items = append(s.items[:i], s.items[i+1:]...)
		}
		s.logger.Debug("optimistic create rolled back", "key", key.String(), "error", err)
		return nil, err
	}

	// A reload may have replaced the collection while the request was in flight.
	if i >= 0 {
		s.items[i] = Item{Key: PersistedID(post.ID), Post: *post}
		if dup := s.indexOfFrom(PersistedID(post.ID), i+1); dup >= 0 {
			s.items = append(s.items[:dup], s.items[dup+1:]...)
		} else {
			s.total++
		}
	}
	return post, nil
}

// Edit applies the new title and body locally, then reconciles with the
// server. On failure the item is restored exactly as it was.
func (s *Store) Edit(ctx context.Context, id int, input models.EditPostInput) (*models.PostWithAuthor, error) {
	if err := s.checkOnline(); err != nil {
		return nil, err
	}
	input, err := validation.EditPost.Validate(map[string]any{
		"title": input.Title,
		"body":  input.Body,
	})
	if err != nil {
		return nil, localValidationError(err)
	}

	key := PersistedID(id)
	s.mu.Lock()
	var (
		before Item
		held   bool
	)
	if i := s.indexOf(key); i >= 0 {
		before, held = s.items[i], true
		s.items[i].Post.Title = input.Title
		s.items[i].Post.Body = input.Body
	}
	s.mu.Unlock()

	post, err := s.api.UpdatePost(ctx, id, input)
	s.report(err)

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(key)
	if err != nil {
		if held && i >= 0 {
			s.items[i] = before
		}
		s.logger.Debug("optimistic edit rolled back", "id", id, "error", err)
		return nil, err
	}
	if i >= 0 {
		s.items[i] = Item{Key: key, Post: *post, Deleting: s.items[i].Deleting}
	}
	return post, nil
}

// Delete marks the item as deleting and removes it once the server confirms.
// On failure only the mark is cleared.
func (s *Store) Delete(ctx context.Context, id int) error {
	if err := s.checkOnline(); err != nil {
		return err
	}

	key := PersistedID(id)
	s.mu.Lock()
	if i := s.indexOf(key); i >= 0 {
		s.items[i].Deleting = true
	}
	s.mu.Unlock()

	_, err := s.api.DeletePost(ctx, id)
	s.report(err)

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(key)
	if err != nil {
		if i >= 0 {
			s.items[i].Deleting = false
		}
		return err
	}
	if i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
		if s.total > 0 {
			s.total--
		}
	}
	return nil
}

func (s *Store) checkOnline() error {
	if s.monitor != nil && s.monitor.Offline() {
		return client.ErrOffline
	}
	return nil
}

// report feeds call outcomes to the monitor. Any HTTP response, even an
// error status, proves the API is reachable.
func (s *Store) report(err error) {
	if s.monitor == nil {
		return
	}
	if err != nil && client.IsKind(err, client.KindNetwork) {
		s.monitor.ReportFailure()
		return
	}
	s.monitor.ReportSuccess()
}

// authorRef looks up a cached author. Caller holds mu.
func (s *Store) authorRef(userID int) models.AuthorRef {
	for _, a := range s.authors {
		if a.ID == userID {
			return models.AuthorRef{Name: a.Name, Username: a.Username}
		}
	}
	return models.AuthorRef{}
}

// indexOf returns the position of key or -1. Caller holds mu.
func (s *Store) indexOf(key Key) int {
	return s.indexOfFrom(key, 0)
}

func (s *Store) indexOfFrom(key Key, from int) int {
	for i := from; i < len(s.items); i++ {
		if s.items[i].Key == key {
			return i
		}
	}
	return -1
}

func toItems(posts []models.PostWithAuthor) []Item {
	items := make([]Item, len(posts))
	for i, p := range posts {
		items[i] = Item{Key: PersistedID(p.ID), Post: p}
	}
	return items
}

func localValidationError(err error) error {
	var fields validation.Errors
	if errors.As(err, &fields) {
		return &client.Error{Kind: client.KindValidation, Message: "Validation failed", Fields: fields, Err: err}
	}
	return err
}
