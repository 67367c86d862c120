// Package seed ships the sample authors and posts used by the dev seed
// endpoint and by seed_on_start.
package seed

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/ButyrinIA/postboard/internal/models"
)

//go:embed data/*.json
var files embed.FS

// Authors returns the sample author directory.
func Authors() ([]models.Author, error) {
	var authors []models.Author
	if err := load("data/users.json", &authors); err != nil {
		return nil, err
	}
	return authors, nil
}

// Posts returns the sample posts with their fixed IDs.
func Posts() ([]models.Post, error) {
	var posts []models.Post
	if err := load("data/posts.json", &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func load(name string, v any) error {
	data, err := files.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
