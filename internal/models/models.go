package models

// Post is a single authored item as persisted by the store.
type Post struct {
	ID     int    `json:"id"`
	UserID int    `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Author is a user that can own posts. Owned by the author directory.
type Author struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// AuthorRef is the denormalized author snapshot attached to a post in responses.
type AuthorRef struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

// PostWithAuthor is a read-model projection; never persisted.
type PostWithAuthor struct {
	Post
	Author AuthorRef `json:"author"`
}

// NewPostWithAuthor projects a post and its author into a response value.
func NewPostWithAuthor(p Post, a Author) PostWithAuthor {
	return PostWithAuthor{
		Post:   p,
		Author: AuthorRef{Name: a.Name, Username: a.Username},
	}
}

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

type PaginatedPosts struct {
	Data       []PostWithAuthor `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

// CreatePostInput is the normalized payload of a create request.
type CreatePostInput struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	UserID int    `json:"userId"`
}

// EditPostInput is the normalized payload of an edit request.
type EditPostInput struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// BulkResult is returned by the dev clear/seed operations.
type BulkResult struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
	EventCleared EventType = "cleared"
	EventSeeded  EventType = "seeded"
)

// PostEvent describes a committed change to the post collection.
type PostEvent struct {
	Type  EventType       `json:"type"`
	ID    int             `json:"id,omitempty"`
	Post  *PostWithAuthor `json:"post,omitempty"`
	Count int             `json:"count,omitempty"`
}
