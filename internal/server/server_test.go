package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ButyrinIA/postboard/internal/config"
	"github.com/ButyrinIA/postboard/internal/models"
	"github.com/ButyrinIA/postboard/internal/posts"
	"github.com/ButyrinIA/postboard/internal/query"
	"github.com/ButyrinIA/postboard/internal/storage"
	"github.com/ButyrinIA/postboard/internal/storage/memory"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockStorage overrides the list reads; everything else falls through to
// the embedded store.
type mockStorage struct {
	mock.Mock
	storage.Storage
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

type testEnv struct {
	server *Server
	hub    *Hub
	store  storage.Storage
	http   *httptest.Server
}

func newTestEnv(t *testing.T, store storage.Storage, devEnabled bool) *testEnv {
	t.Helper()
	require.NoError(t, store.UpsertAuthors(context.Background(), []models.Author{
		{ID: 1, Name: "Leanne Graham", Username: "Bret", Email: "Sincere@april.biz"},
		{ID: 2, Name: "Ervin Howell", Username: "Antonette", Email: "Shanna@melissa.tv"},
	}))

	cfg := config.Default()
	cfg.Dev.Enabled = devEnabled
	logger := slog.New(slog.DiscardHandler)
	hub := NewHub(logger)
	svc := posts.NewService(store, logger, posts.WithPublisher(hub))
	srv := New(cfg, svc, hub, logger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		hub.Close()
		ts.Close()
	})
	return &testEnv{server: srv, hub: hub, store: store, http: ts}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.http.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(bytes.TrimSpace(data)) > 0 && data[0] == '{' {
		require.NoError(t, json.Unmarshal(data, &decoded), "body: %s", data)
	}
	return resp.StatusCode, decoded
}

func (e *testEnv) createPost(t *testing.T, userID int, title string) int {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"title": title, "body": "Body text long enough", "userId": userID})
	status, resp := e.do(t, http.MethodPost, "/posts", string(body))
	require.Equal(t, http.StatusCreated, status, "response: %v", resp)
	return int(resp["id"].(float64))
}

func TestCreatePost(t *testing.T) {
	env := newTestEnv(t, memory.New(), false)

	status, resp := env.do(t, http.MethodPost, "/posts",
		`{"title":"  Hello world  ","body":"This is the post body","userId":1}`)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, float64(1), resp["id"])
	assert.Equal(t, "Hello world", resp["title"])
	assert.Equal(t, float64(1), resp["userId"])
	author := resp["author"].(map[string]any)
	assert.Equal(t, "Bret", author["username"])
	assert.Equal(t, "Leanne Graham", author["name"])
}

func TestCreatePostValidation(t *testing.T) {
	env := newTestEnv(t, memory.New(), false)

	status, resp := env.do(t, http.MethodPost, "/posts", `{"title":"ab","body":"","userId":0}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", resp["error"])
	assert.Equal(t, map[string]any{
		"title":  "Title must be at least 3 characters",
		"body":   "Body is required",
		"userId": "Invalid author selected",
	}, resp["errors"])
}

func TestCreatePostUnknownAuthor(t *testing.T) {
	env := newTestEnv(t, memory.New(), false)

	status, resp := env.do(t, http.MethodPost, "/posts",
		`{"title":"Hello","body":"This is the post body","userId":42}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "User not found", resp["error"])
	assert.Equal(t, map[string]any{"userId": "Selected author does not exist"}, resp["errors"])
}

func TestInvalidRequestBody(t *testing.T) {
	env := newTestEnv(t, memory.New(), false)

	for _, body := range []string{`{"title":`, `[1,2]`, `null`, `{"title":"x"} {}`} {
		status, resp := env.do(t, http.MethodPost, "/posts", body)
		assert.Equal(t, http.StatusBadRequest, status, body)
		assert.Equal(t, "Invalid request body", resp["error"], body)
	}

	env.createPost(t, 1, "Existing")
	status, resp := env.do(t, http.MethodPut, "/posts/1", `not json`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid request body", resp["error"])
}

func TestUpdatePost(t *testing.T) {
	env := newTestEnv(t, memory.New(), false)
	id := env.createPost(t, 2, "Original title")

	status, resp := env.do(t, http.MethodPut, "/posts/1",
		`{"title":"Updated title","body":"Updated body text","userId":1}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(id), resp["id"])
	assert.Equal(t, "Updated title", resp["title"])
	assert.Equal(t, float64(2), resp["userId"], "author must not change")
	assert.Equal(t, "Antonette", resp["author"].(map[string]any)["username"])
}

func TestUpdatePostErrors(t *testing.T) {
	env := newTestEnv(t, memory.New(), false)
	valid := `{"title":"Updated title","body":"Updated body text"}`

	status, resp := env.do(t, http.MethodPut, "/posts/999", valid)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, map[string]any{"error": "Post not found"}, resp)

	status, resp = env.do(t, http.MethodPut, "/posts/abc", valid)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid post id", resp["error"])

	env.createPost(t, 1, "Some title")
	status, resp = env.do(t, http.MethodPut, "/posts/1", `{"title":"   ","body":"short"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", resp["error"])
	assert.Equal(t, map[string]any{
		"title": "Title is required",
		"body":  "Body must be at least 10 characters",
	}, resp["errors"])
}

func TestDeletePost(t *testing.T) {
	env := newTestEnv(t, memory.New(), false)
	env.createPost(t, 1, "To be deleted")

	status, resp := env.do(t, http.MethodDelete, "/posts/1", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Post deleted successfully", resp["message"])

	status, resp = env.do(t, http.MethodDelete, "/posts/1", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Post not found", resp["error"])

	status, resp = env.do(t, http.MethodDelete, "/posts/x1", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid post id", resp["error"])
}

func TestListPosts(t *testing.T) {
	env := newTestEnv(t, memory.New(), false)
	for i := 0; i < 5; i++ {
		env.createPost(t, 1+i%2, "Post title")
	}

	status, resp := env.do(t, http.MethodGet, "/posts?userId=1", "")
	require.Equal(t, http.StatusOK, status)
	data := resp["data"].([]any)
	require.Len(t, data, 3)
	var ids []float64
	for _, item := range data {
		post := item.(map[string]any)
		assert.Equal(t, float64(1), post["userId"])
		assert.Equal(t, "Bret", post["author"].(map[string]any)["username"])
		ids = append(ids, post["id"].(float64))
	}
	assert.Equal(t, []float64{5, 3, 1}, ids)
	assert.Equal(t, map[string]any{
		"page": float64(1), "limit": float64(10), "total": float64(3),
		"totalPages": float64(1), "hasMore": false,
	}, resp["pagination"])

	status, resp = env.do(t, http.MethodGet, "/posts?page=2&limit=2", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, resp["data"].([]any), 2)
	pagination := resp["pagination"].(map[string]any)
	assert.Equal(t, true, pagination["hasMore"])
	assert.Equal(t, float64(3), pagination["totalPages"])
}

func TestListPostsEmptyDataIsArray(t *testing.T) {
	env := newTestEnv(t, memory.New(), false)

	resp, err := http.Get(env.http.URL + "/posts")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"data":[]`)
}

func TestListPostsBadQuery(t *testing.T) {
	env := newTestEnv(t, memory.New(), false)

	tests := map[string]string{
		"/posts?page=0":       "Invalid page parameter",
		"/posts?limit=101":    "Invalid limit parameter (must be 1-100)",
		"/posts?limit=abc":    "Invalid limit parameter (must be 1-100)",
		"/posts?userId=alice": "Invalid userId parameter",
	}
	for path, message := range tests {
		status, resp := env.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, status, path)
		assert.Equal(t, message, resp["error"], path)
	}
}

func TestListPostsStoreFailure(t *testing.T) {
	store := &mockStorage{Storage: memory.New()}
	store.On("ListPosts", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("pq: connection refused"))
	store.On("CountPosts", mock.Anything, mock.Anything).Return(0, nil).Maybe()
	env := newTestEnv(t, store, false)

	status, resp := env.do(t, http.MethodGet, "/posts", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, map[string]any{"error": "Failed to fetch posts"}, resp, "cause must not leak")
}

func TestListUsersAndHealth(t *testing.T) {
	env := newTestEnv(t, memory.New(), false)

	resp, err := http.Get(env.http.URL + "/users")
	require.NoError(t, err)
	defer resp.Body.Close()
	var users []models.Author
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&users))
	require.Len(t, users, 2)
	assert.Equal(t, "Bret", users[0].Username)
	assert.Equal(t, "Sincere@april.biz", users[0].Email)

	status, body := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestDevRoutes(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		env := newTestEnv(t, memory.New(), true)

		status, resp := env.do(t, http.MethodPost, "/dev/seed", "")
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Database seeded successfully", resp["message"])
		seeded := resp["count"].(float64)
		assert.Positive(t, seeded)

		status, resp = env.do(t, http.MethodDelete, "/dev/clear", "")
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "All posts cleared", resp["message"])
		assert.Equal(t, seeded, resp["count"])
	})

	t.Run("disabled", func(t *testing.T) {
		env := newTestEnv(t, memory.New(), false)

		status, _ := env.do(t, http.MethodPost, "/dev/seed", "")
		assert.Equal(t, http.StatusNotFound, status)
		status, _ = env.do(t, http.MethodDelete, "/dev/clear", "")
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestMiddleware(t *testing.T) {
	env := newTestEnv(t, memory.New(), false)

	resp, err := http.Get(env.http.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))

	req, _ := http.NewRequest(http.MethodGet, env.http.URL+"/health", nil)
	req.Header.Set(requestIDHeader, "fixed-id")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "fixed-id", resp.Header.Get(requestIDHeader))

	resp, err = http.Get(env.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `http_requests_total{method="GET",route="GET /health",status="200"} 2`)
	assert.Contains(t, string(body), "http_request_duration_seconds")
	assert.Contains(t, string(body), "post_events_subscribers 0")
}

func TestEventsStream(t *testing.T) {
	env := newTestEnv(t, memory.New(), false)

	wsURL := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/posts/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	id := env.createPost(t, 1, "Streamed post")
	env.do(t, http.MethodDelete, "/posts/1", "")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var created models.PostEvent
	require.NoError(t, conn.ReadJSON(&created))
	assert.Equal(t, models.EventCreated, created.Type)
	assert.Equal(t, id, created.ID)
	require.NotNil(t, created.Post)
	assert.Equal(t, "Bret", created.Post.Author.Username)

	var deleted models.PostEvent
	require.NoError(t, conn.ReadJSON(&deleted))
	assert.Equal(t, models.PostEvent{Type: models.EventDeleted, ID: id}, deleted)

	env.hub.Close()
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)
	assert.Zero(t, env.hub.Subscribers())
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(posts.KindValidation))
	assert.Equal(t, http.StatusBadRequest, statusFor(posts.KindMalformedID))
	assert.Equal(t, http.StatusBadRequest, statusFor(posts.KindBadQuery))
	assert.Equal(t, http.StatusNotFound, statusFor(posts.KindNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusFor(posts.KindStore))
}
