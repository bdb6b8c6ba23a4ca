package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dfryer1193/postboard/blog/domain"
	"github.com/dfryer1193/postboard/shared/db"
)

var _ domain.PostRepository = (*SQLitePostRepository)(nil)

// ErrPostNotFound is returned when no stored row exists for an ID
var ErrPostNotFound = errors.New("post not found")

// SQLitePostRepository implements domain.PostRepository using SQL database (SQLite)
type SQLitePostRepository struct {
	db *sql.DB
}

// NewPostRepository creates a new SQLitePostRepository from a standard sql.DB
func NewPostRepository(db *sql.DB) *SQLitePostRepository {
	return &SQLitePostRepository{
		db: db,
	}
}

const upsertPostQuery = `
	INSERT INTO posts (id, title, content, author, is_banned, likes, dislikes)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		content = excluded.content,
		is_banned = excluded.is_banned,
		likes = excluded.likes,
		dislikes = excluded.dislikes
`

const getAuthorQuery = `
	SELECT author FROM posts WHERE id = ?
`

// SavePost upserts a post. The author column is written once and never changes.
func (r *SQLitePostRepository) SavePost(ctx context.Context, p *domain.Post) error {
	if p == nil {
		return fmt.Errorf("post cannot be nil")
	}

	if p.ID < 0 {
		return fmt.Errorf("post ID cannot be negative: %d", p.ID)
	}

	return db.InTx(ctx, r.db, nil, func(txCtx context.Context) error {
		executor := db.ExecutorFor(txCtx, r.db)

		var author string
		err := executor.QueryRowContext(txCtx, getAuthorQuery, p.ID).Scan(&author)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to read post author: %w", err)
		}
		if err == nil && author != string(p.Author) {
			return fmt.Errorf("post %d author mismatch: stored %q, got %q", p.ID, author, p.Author)
		}

		_, err = executor.ExecContext(txCtx, upsertPostQuery,
			p.ID,
			p.Title,
			p.Content,
			string(p.Author),
			p.IsBanned,
			int64(p.Likes),
			int64(p.Dislikes),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert post: %w", err)
		}

		return nil
	})
}

const getPostQuery = `
		SELECT id, title, content, author, is_banned, likes, dislikes
		FROM posts
		WHERE id = ?
`

// GetPost retrieves a single post by ID
func (r *SQLitePostRepository) GetPost(ctx context.Context, id int) (*domain.Post, error) {
	var row postRow
	err := r.db.QueryRowContext(ctx, getPostQuery, id).Scan(
		&row.ID,
		&row.Title,
		&row.Content,
		&row.Author,
		&row.IsBanned,
		&row.Likes,
		&row.Dislikes,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrPostNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return row.toDomain(), nil
}

const listPostsQuery = `
	SELECT id, title, content, author, is_banned, likes, dislikes
	FROM posts
	ORDER BY id ASC
`

// ListPosts retrieves every post ordered by ID
func (r *SQLitePostRepository) ListPosts(ctx context.Context) ([]*domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, listPostsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*domain.Post, 0)
	for rows.Next() {
		var row postRow
		err := rows.Scan(
			&row.ID,
			&row.Title,
			&row.Content,
			&row.Author,
			&row.IsBanned,
			&row.Likes,
			&row.Dislikes,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, row.toDomain())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}

// postRow is a private struct used to scan database rows
type postRow struct {
	ID       int    `db:"id"`
	Title    string `db:"title"`
	Content  string `db:"content"`
	Author   string `db:"author"`
	IsBanned bool   `db:"is_banned"`
	Likes    int64  `db:"likes"`
	Dislikes int64  `db:"dislikes"`
}

// toDomain converts a postRow to a domain.Post
func (pr *postRow) toDomain() *domain.Post {
	return &domain.Post{
		ID:       pr.ID,
		Title:    pr.Title,
		Content:  pr.Content,
		Author:   domain.Identity(pr.Author),
		IsBanned: pr.IsBanned,
		Likes:    uint64(pr.Likes),
		Dislikes: uint64(pr.Dislikes),
	}
}
