package validation

import (
	"fmt"

	"github.com/ButyrinIA/postboard/internal/models"
)

const (
	TitleMinLength = 3
	TitleMaxLength = 200
	BodyMinLength  = 10
	BodyMaxLength  = 10000
)

func titleField() Field {
	return String("title",
		Required("Title is required"),
		MinLength(TitleMinLength, fmt.Sprintf("Title must be at least %d characters", TitleMinLength)),
		MaxLength(TitleMaxLength, fmt.Sprintf("Title must be no more than %d characters", TitleMaxLength)),
	)
}

func bodyField() Field {
	return String("body",
		Required("Body is required"),
		MinLength(BodyMinLength, fmt.Sprintf("Body must be at least %d characters", BodyMinLength)),
		MaxLength(BodyMaxLength, fmt.Sprintf("Body must be no more than %d characters", BodyMaxLength)),
	)
}

// CreatePost validates {title, body, userId} for new posts.
var CreatePost = NewSchema(
	func(v Values) models.CreatePostInput {
		return models.CreatePostInput{
			Title:  v.String("title"),
			Body:   v.String("body"),
			UserID: v.Int("userId"),
		}
	},
	titleField(),
	bodyField(),
	Integer("userId",
		Required("Author is required"),
		PositiveInteger("Invalid author selected"),
	),
)

// EditPost validates {title, body}; authorship cannot change on edit.
var EditPost = NewSchema(
	func(v Values) models.EditPostInput {
		return models.EditPostInput{
			Title: v.String("title"),
			Body:  v.String("body"),
		}
	},
	titleField(),
	bodyField(),
)
