package postsync

import (
	"context"
	"sort"
	"sync"

	"github.com/ButyrinIA/postboard/internal/client"
	"github.com/ButyrinIA/postboard/internal/models"
	"github.com/ButyrinIA/postboard/internal/query"
)

// fakeAPI is an in-process stand-in for the HTTP API. hook, when set, runs
// inside every call before it returns, which lets tests observe the store
// while a request is in flight.
type fakeAPI struct {
	mu      sync.Mutex
	posts   map[int]models.Post
	authors []models.Author
	nextID  int
	calls   map[string]int

	failWith map[string]error
	hook     func(method string)
}

func newFakeAPI(n int) *fakeAPI {
	api := &fakeAPI{
		posts: make(map[int]models.Post),
		authors: []models.Author{
			{ID: 1, Name: "Leanne Graham", Username: "Bret"},
			{ID: 2, Name: "Ervin Howell", Username: "Antonette"},
		},
		nextID:   1,
		calls:    make(map[string]int),
		failWith: make(map[string]error),
	}
	for i := 0; i < n; i++ {
		id := api.nextID
		api.nextID++
		api.posts[id] = models.Post{ID: id, UserID: 1 + i%2, Title: "Post title", Body: "Post body text"}
	}
	return api
}

func (f *fakeAPI) enter(method string) error {
	f.mu.Lock()
	f.calls[method]++
	err := f.failWith[method]
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(method)
	}
	return err
}

func (f *fakeAPI) fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith[method] = err
}

func (f *fakeAPI) setHook(hook func(method string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hook = hook
}

func (f *fakeAPI) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeAPI) project(p models.Post) models.PostWithAuthor {
	for _, a := range f.authors {
		if a.ID == p.UserID {
			return models.NewPostWithAuthor(p, a)
		}
	}
	return models.PostWithAuthor{Post: p}
}

func (f *fakeAPI) ListPosts(ctx context.Context, opts client.ListOptions) (*models.PaginatedPosts, error) {
	if err := f.enter("ListPosts"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	plan := query.Plan{Page: opts.Page, Limit: opts.Limit, Filter: query.Filter{UserID: opts.UserID}}
	var matching []models.Post
	for _, p := range f.posts {
		if plan.Filter.Matches(p.UserID) {
			matching = append(matching, p)
		}
	}
	sort.Slice(matching, func(i, j int) bool { return matching[i].ID > matching[j].ID })

	data := []models.PostWithAuthor{}
	for i := plan.Skip(); i < len(matching) && i < plan.Skip()+plan.Take(); i++ {
		data = append(data, f.project(matching[i]))
	}
	return &models.PaginatedPosts{Data: data, Pagination: plan.Paginate(len(matching), len(data))}, nil
}

func (f *fakeAPI) CreatePost(ctx context.Context, input models.CreatePostInput) (*models.PostWithAuthor, error) {
	if err := f.enter("CreatePost"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	p := models.Post{ID: f.nextID, UserID: input.UserID, Title: input.Title, Body: input.Body}
	f.nextID++
	f.posts[p.ID] = p
	result := f.project(p)
	return &result, nil
}

func (f *fakeAPI) UpdatePost(ctx context.Context, id int, input models.EditPostInput) (*models.PostWithAuthor, error) {
	if err := f.enter("UpdatePost"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.posts[id]
	if !ok {
		return nil, &client.Error{Kind: client.KindNotFound, Status: 404, Message: "Post not found"}
	}
	p.Title, p.Body = input.Title, input.Body
	f.posts[id] = p
	result := f.project(p)
	return &result, nil
}

func (f *fakeAPI) DeletePost(ctx context.Context, id int) (string, error) {
	if err := f.enter("DeletePost"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.posts[id]; !ok {
		return "", &client.Error{Kind: client.KindNotFound, Status: 404, Message: "Post not found"}
	}
	delete(f.posts, id)
	return "Post deleted successfully", nil
}

func (f *fakeAPI) ListUsers(ctx context.Context) ([]models.Author, error) {
	if err := f.enter("ListUsers"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Author(nil), f.authors...), nil
}

func (f *fakeAPI) Health(ctx context.Context) error {
	return f.enter("Health")
}
