// Package sqlite implements storage.Storage on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ButyrinIA/postboard/internal/models"
	"github.com/ButyrinIA/postboard/internal/query"
	"github.com/ButyrinIA/postboard/internal/storage"
	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		body TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_posts_user_id ON posts(user_id);
`

type SQLiteStorage struct {
	db *sql.DB
}

// New opens (creating if needed) the database file at path.
func New(ctx context.Context, path string) (*SQLiteStorage, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) ListPosts(ctx context.Context, filter query.Filter, skip, take int) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, body
		FROM posts
		WHERE (?1 IS NULL OR user_id = ?1)
		ORDER BY id DESC
		LIMIT ?2 OFFSET ?3`,
		nullableInt(filter.UserID), take, skip)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := make([]models.Post, 0, take)
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Body); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

func (s *SQLiteStorage) CountPosts(ctx context.Context, filter query.Filter) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM posts WHERE (?1 IS NULL OR user_id = ?1)`,
		nullableInt(filter.UserID)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return total, nil
}

func (s *SQLiteStorage) GetPost(ctx context.Context, id int) (*models.Post, error) {
	var p models.Post
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, body FROM posts WHERE id = ?`, id).
		Scan(&p.ID, &p.UserID, &p.Title, &p.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	return &p, nil
}

func (s *SQLiteStorage) CreatePost(ctx context.Context, post *models.Post) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (user_id, title, body) VALUES (?, ?, ?)`,
		post.UserID, post.Title, post.Body)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	post.ID = int(id)
	return nil
}

func (s *SQLiteStorage) UpdatePost(ctx context.Context, post *models.Post) error {
	err := s.db.QueryRowContext(ctx, `
		UPDATE posts SET title = ?2, body = ?3
		WHERE id = ?1
		RETURNING user_id`,
		post.ID, post.Title, post.Body).Scan(&post.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("post %d: %w", post.ID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update post %d: %w", post.ID, err)
	}
	return nil
}

func (s *SQLiteStorage) DeletePost(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("post %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStorage) DeleteAllPosts(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts`)
	if err != nil {
		return 0, fmt.Errorf("delete posts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStorage) ReplacePosts(ctx context.Context, posts []models.Post) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM posts`); err != nil {
		return 0, fmt.Errorf("delete posts: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO posts (id, user_id, title, body) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range posts {
		if _, err := stmt.ExecContext(ctx, p.ID, p.UserID, p.Title, p.Body); err != nil {
			return 0, fmt.Errorf("insert post %d: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return len(posts), nil
}

func (s *SQLiteStorage) GetAuthor(ctx context.Context, id int) (*models.Author, error) {
	var a models.Author
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, username, email FROM users WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.Username, &a.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("author %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get author %d: %w", id, err)
	}
	return &a, nil
}

func (s *SQLiteStorage) GetAuthors(ctx context.Context, ids []int) (map[int]models.Author, error) {
	authors := make(map[int]models.Author, len(ids))
	if len(ids) == 0 {
		return authors, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, username, email FROM users WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query authors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a models.Author
		if err := rows.Scan(&a.ID, &a.Name, &a.Username, &a.Email); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		authors[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate authors: %w", err)
	}
	return authors, nil
}

func (s *SQLiteStorage) ListAuthors(ctx context.Context) ([]models.Author, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, username, email FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query authors: %w", err)
	}
	defer rows.Close()

	authors := []models.Author{}
	for rows.Next() {
		var a models.Author
		if err := rows.Scan(&a.ID, &a.Name, &a.Username, &a.Email); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		authors = append(authors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate authors: %w", err)
	}
	return authors, nil
}

func (s *SQLiteStorage) UpsertAuthors(ctx context.Context, authors []models.Author) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, a := range authors {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, name, username, email) VALUES (?1, ?2, ?3, ?4)
			ON CONFLICT (id) DO UPDATE SET name = ?2, username = ?3, email = ?4`,
			a.ID, a.Name, a.Username, a.Email)
		if err != nil {
			return fmt.Errorf("upsert author %d: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
