// Package posts implements the post collection use cases: the paginated
// listing with author projection and the validated create, edit and delete
// mutations.
package posts

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ButyrinIA/postboard/internal/models"
	"github.com/ButyrinIA/postboard/internal/query"
	"github.com/ButyrinIA/postboard/internal/seed"
	"github.com/ButyrinIA/postboard/internal/storage"
	"github.com/ButyrinIA/postboard/internal/validation"
	"github.com/graph-gophers/dataloader/v7"
	"golang.org/x/sync/errgroup"
)

// Publisher receives an event after each committed mutation.
type Publisher interface {
	Publish(event models.PostEvent)
}

type Service struct {
	store         storage.Storage
	logger        *slog.Logger
	throttleDelay time.Duration
	publisher     Publisher
}

type Option func(*Service)

// WithThrottleDelay sets the pause applied to list requests that ask to be throttled.
func WithThrottleDelay(d time.Duration) Option {
	return func(s *Service) { s.throttleDelay = d }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func NewService(store storage.Storage, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{store: store, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns one page of posts, newest first, with their authors.
func (s *Service) List(ctx context.Context, params query.Params) (*models.PaginatedPosts, error) {
	plan, err := query.NewPlan(params)
	if err != nil {
		return nil, &Error{Kind: KindBadQuery, Message: err.Error(), Err: err}
	}

	if plan.Throttle && s.throttleDelay > 0 {
		timer := time.NewTimer(s.throttleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, storeError(msgFetchPosts, ctx.Err())
		case <-timer.C:
		}
	}

	var (
		page  []models.Post
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page, err = s.store.ListPosts(gctx, plan.Filter, plan.Skip(), plan.Take())
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.CountPosts(gctx, plan.Filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeError(msgFetchPosts, err)
	}

	data, err := s.withAuthors(ctx, page)
	if err != nil {
		return nil, storeError(msgFetchPosts, err)
	}

	return &models.PaginatedPosts{
		Data:       data,
		Pagination: plan.Paginate(total, len(page)),
	}, nil
}

// withAuthors attaches author snapshots to posts, loading each distinct
// author once.
func (s *Service) withAuthors(ctx context.Context, page []models.Post) ([]models.PostWithAuthor, error) {
	data := make([]models.PostWithAuthor, 0, len(page))
	if len(page) == 0 {
		return data, nil
	}

	var ids []int
	seen := make(map[int]bool, len(page))
	for _, p := range page {
		if !seen[p.UserID] {
			seen[p.UserID] = true
			ids = append(ids, p.UserID)
		}
	}

	loader := s.authorLoader()
	authors, errs := loader.LoadMany(ctx, ids)()
	byID := make(map[int]models.Author, len(ids))
	for i, id := range ids {
		if i < len(errs) && errs[i] != nil {
			if errors.Is(errs[i], storage.ErrNotFound) {
				s.logger.Warn("post author missing", "user_id", id)
				continue
			}
			return nil, errs[i]
		}
		byID[id] = authors[i]
	}

	for _, p := range page {
		data = append(data, models.NewPostWithAuthor(p, byID[p.UserID]))
	}
	return data, nil
}

func (s *Service) authorLoader() *dataloader.Loader[int, models.Author] {
	batch := func(ctx context.Context, ids []int) []*dataloader.Result[models.Author] {
		results := make([]*dataloader.Result[models.Author], len(ids))
		found, err := s.store.GetAuthors(ctx, ids)
		for i, id := range ids {
			switch a, ok := found[id]; {
			case err != nil:
				results[i] = &dataloader.Result[models.Author]{Error: err}
			case !ok:
				results[i] = &dataloader.Result[models.Author]{Error: storage.ErrNotFound}
			default:
				results[i] = &dataloader.Result[models.Author]{Data: a}
			}
		}
		return results
	}
	return dataloader.NewBatchedLoader(batch,
		dataloader.WithWait[int, models.Author](time.Millisecond),
	)
}

// Create validates raw input and persists a new post for an existing author.
func (s *Service) Create(ctx context.Context, raw map[string]any) (*models.PostWithAuthor, error) {
	input, err := validation.CreatePost.Validate(raw)
	if err != nil {
		return nil, validationError(err)
	}

	author, err := s.store.GetAuthor(ctx, input.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &Error{
			Kind:    KindNotFound,
			Message: msgUserNotFound,
			Fields:  map[string]string{"userId": msgAuthorGone},
			Err:     err,
		}
	}
	if err != nil {
		return nil, storeError(msgCreatePost, err)
	}

	post := &models.Post{UserID: input.UserID, Title: input.Title, Body: input.Body}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, storeError(msgCreatePost, err)
	}

	result := models.NewPostWithAuthor(*post, *author)
	s.publish(models.PostEvent{Type: models.EventCreated, ID: post.ID, Post: &result})
	return &result, nil
}

// Edit replaces the title and body of an existing post. The author never changes.
func (s *Service) Edit(ctx context.Context, rawID string, raw map[string]any) (*models.PostWithAuthor, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	input, err := validation.EditPost.Validate(raw)
	if err != nil {
		return nil, validationError(err)
	}

	if _, err := s.store.GetPost(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, postNotFound(err)
		}
		return nil, storeError(msgUpdatePost, err)
	}

	post := &models.Post{ID: id, Title: input.Title, Body: input.Body}
	if err := s.store.UpdatePost(ctx, post); err != nil {
		// deleted between lookup and update
		if errors.Is(err, storage.ErrNotFound) {
			return nil, postNotFound(err)
		}
		return nil, storeError(msgUpdatePost, err)
	}

	var ref models.Author
	author, err := s.store.GetAuthor(ctx, post.UserID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.logger.Warn("post author missing", "post_id", id, "user_id", post.UserID)
	case err != nil:
		return nil, storeError(msgUpdatePost, err)
	default:
		ref = *author
	}

	result := models.NewPostWithAuthor(*post, ref)
	s.publish(models.PostEvent{Type: models.EventUpdated, ID: id, Post: &result})
	return &result, nil
}

// Delete removes a post and returns the acknowledgement message.
func (s *Service) Delete(ctx context.Context, rawID string) (string, error) {
	id, err := parseID(rawID)
	if err != nil {
		return "", err
	}

	if _, err := s.store.GetPost(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", postNotFound(err)
		}
		return "", storeError(msgDeletePost, err)
	}

	if err := s.store.DeletePost(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", postNotFound(err)
		}
		return "", storeError(msgDeletePost, err)
	}

	s.publish(models.PostEvent{Type: models.EventDeleted, ID: id})
	return msgPostDeleted, nil
}

// Authors lists the author directory ordered by id.
func (s *Service) Authors(ctx context.Context) ([]models.Author, error) {
	authors, err := s.store.ListAuthors(ctx)
	if err != nil {
		return nil, storeError(msgFetchUsers, err)
	}
	return authors, nil
}

// ClearPosts removes every post.
func (s *Service) ClearPosts(ctx context.Context) (*models.BulkResult, error) {
	n, err := s.store.DeleteAllPosts(ctx)
	if err != nil {
		return nil, storeError(msgClearPosts, err)
	}
	s.publish(models.PostEvent{Type: models.EventCleared, Count: n})
	return &models.BulkResult{Message: msgPostsClear, Count: n}, nil
}

// Reseed replaces all posts with the bundled sample data, making sure the
// sample authors exist first.
func (s *Service) Reseed(ctx context.Context) (*models.BulkResult, error) {
	authors, err := seed.Authors()
	if err != nil {
		return nil, storeError(msgSeedPosts, err)
	}
	samples, err := seed.Posts()
	if err != nil {
		return nil, storeError(msgSeedPosts, err)
	}

	if err := s.store.UpsertAuthors(ctx, authors); err != nil {
		return nil, storeError(msgSeedPosts, err)
	}
	n, err := s.store.ReplacePosts(ctx, samples)
	if err != nil {
		return nil, storeError(msgSeedPosts, err)
	}

	s.publish(models.PostEvent{Type: models.EventSeeded, Count: n})
	return &models.BulkResult{Message: msgSeeded, Count: n}, nil
}

// SeedIfEmpty loads the sample data when the store has no authors yet.
func (s *Service) SeedIfEmpty(ctx context.Context) (bool, error) {
	authors, err := s.store.ListAuthors(ctx)
	if err != nil {
		return false, storeError(msgSeedPosts, err)
	}
	if len(authors) > 0 {
		return false, nil
	}
	if _, err := s.Reseed(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) publish(event models.PostEvent) {
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id < 1 {
		return 0, &Error{Kind: KindMalformedID, Message: msgInvalidPostID, Err: err}
	}
	return id, nil
}

func validationError(err error) *Error {
	var fields validation.Errors
	if errors.As(err, &fields) {
		return &Error{Kind: KindValidation, Message: msgValidationFailed, Fields: fields, Err: err}
	}
	return &Error{Kind: KindValidation, Message: msgValidationFailed, Err: err}
}
