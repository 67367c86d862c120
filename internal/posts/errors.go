package posts

// Kind classifies a service failure so the transport can pick a status code.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindMalformedID
	KindBadQuery
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindMalformedID:
		return "malformed_id"
	case KindBadQuery:
		return "bad_query"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Error is returned by every Service operation. Message is safe to show to
// callers; Err holds the underlying cause and is never exposed.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

const (
	msgValidationFailed = "Validation failed"
	msgUserNotFound     = "User not found"
	msgPostNotFound     = "Post not found"
	msgInvalidPostID    = "Invalid post id"

	msgFetchPosts  = "Failed to fetch posts"
	msgCreatePost  = "Failed to create post"
	msgUpdatePost  = "Failed to update post"
	msgDeletePost  = "Failed to delete post"
	msgFetchUsers  = "Failed to fetch users"
	msgClearPosts  = "Failed to clear posts"
	msgSeedPosts   = "Failed to seed database"
	msgAuthorGone  = "Selected author does not exist"
	msgPostDeleted = "Post deleted successfully"
	msgPostsClear  = "All posts cleared"
	msgSeeded      = "Database seeded successfully"
)

func storeError(message string, err error) *Error {
	return &Error{Kind: KindStore, Message: message, Err: err}
}

func postNotFound(err error) *Error {
	return &Error{Kind: KindNotFound, Message: msgPostNotFound, Err: err}
}
