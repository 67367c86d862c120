package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ButyrinIA/postboard/internal/models"
	"github.com/ButyrinIA/postboard/internal/query"
	"github.com/ButyrinIA/postboard/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS posts (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		body TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_posts_user_id ON posts(user_id);
`

type PostgresStorage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*PostgresStorage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 20
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &PostgresStorage{pool: pool}, nil
}

func (s *PostgresStorage) ListPosts(ctx context.Context, filter query.Filter, skip, take int) ([]models.Post, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, title, body
		FROM posts
		WHERE ($1::INTEGER IS NULL OR user_id = $1)
		ORDER BY id DESC
		LIMIT $2 OFFSET $3`,
		filter.UserID, take, skip)
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

func (s *PostgresStorage) CountPosts(ctx context.Context, filter query.Filter) (int, error) {
	var total int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM posts
		WHERE ($1::INTEGER IS NULL OR user_id = $1)`,
		filter.UserID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return total, nil
}

func (s *PostgresStorage) GetPost(ctx context.Context, id int) (*models.Post, error) {
	var p models.Post
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, title, body
		FROM posts
		WHERE id = $1`, id).Scan(&p.ID, &p.UserID, &p.Title, &p.Body)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("post %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	return &p, nil
}

func (s *PostgresStorage) CreatePost(ctx context.Context, post *models.Post) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO posts (user_id, title, body)
		VALUES ($1, $2, $3)
		RETURNING id`,
		post.UserID, post.Title, post.Body).Scan(&post.ID)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (s *PostgresStorage) UpdatePost(ctx context.Context, post *models.Post) error {
	err := s.pool.QueryRow(ctx, `
		UPDATE posts SET title = $2, body = $3
		WHERE id = $1
		RETURNING user_id`,
		post.ID, post.Title, post.Body).Scan(&post.UserID)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("post %d: %w", post.ID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update post %d: %w", post.ID, err)
	}
	return nil
}

func (s *PostgresStorage) DeletePost(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("post %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *PostgresStorage) DeleteAllPosts(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM posts`)
	if err != nil {
		return 0, fmt.Errorf("delete posts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStorage) ReplacePosts(ctx context.Context, posts []models.Post) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM posts`); err != nil {
		return 0, fmt.Errorf("delete posts: %w", err)
	}

	batch := &pgx.Batch{}
	for _, p := range posts {
		batch.Queue(`INSERT INTO posts (id, user_id, title, body) VALUES ($1, $2, $3, $4)`,
			p.ID, p.UserID, p.Title, p.Body)
	}
	br := tx.SendBatch(ctx, batch)
	for range posts {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return 0, fmt.Errorf("batch insert posts: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("batch close: %w", err)
	}

	// Явные ID не продвигают последовательность
	if _, err := tx.Exec(ctx, `
		SELECT setval(pg_get_serial_sequence('posts', 'id'), COALESCE(MAX(id), 0) + 1, false)
		FROM posts`); err != nil {
		return 0, fmt.Errorf("reset posts sequence: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return len(posts), nil
}

func (s *PostgresStorage) GetAuthor(ctx context.Context, id int) (*models.Author, error) {
	var a models.Author
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, username, email
		FROM users
		WHERE id = $1`, id).Scan(&a.ID, &a.Name, &a.Username, &a.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("author %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get author %d: %w", id, err)
	}
	return &a, nil
}

func (s *PostgresStorage) GetAuthors(ctx context.Context, ids []int) (map[int]models.Author, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, username, email
		FROM users
		WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query authors: %w", err)
	}
	defer rows.Close()

	authors := make(map[int]models.Author, len(ids))
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

func (s *PostgresStorage) ListAuthors(ctx context.Context) ([]models.Author, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, username, email FROM users ORDER BY id`)
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

func (s *PostgresStorage) UpsertAuthors(ctx context.Context, authors []models.Author) error {
	batch := &pgx.Batch{}
	for _, a := range authors {
		batch.Queue(`
			INSERT INTO users (id, name, username, email)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET name = $2, username = $3, email = $4`,
			a.ID, a.Name, a.Username, a.Email)
	}
	br := s.pool.SendBatch(ctx, batch)
	for range authors {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("upsert author: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("batch close: %w", err)
	}

	_, err := s.pool.Exec(ctx, `
		SELECT setval(pg_get_serial_sequence('users', 'id'), COALESCE(MAX(id), 0) + 1, false)
		FROM users`)
	if err != nil {
		return fmt.Errorf("reset users sequence: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}
