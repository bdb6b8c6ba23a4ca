package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/dfryer1193/postboard/blog/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ domain.PostRepository = (*PostgresPostRepository)(nil)

// PostgresPostRepository implements domain.PostRepository on a pgx pool
type PostgresPostRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresPostRepository(pool *pgxpool.Pool) *PostgresPostRepository {
	return &PostgresPostRepository{
		pool: pool,
	}
}

// The WHERE clause keeps the author column immutable: a conflicting author
// updates zero rows and SavePost reports it.
const pgUpsertPostQuery = `
	INSERT INTO posts (id, title, content, author, is_banned, likes, dislikes)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		content = EXCLUDED.content,
		is_banned = EXCLUDED.is_banned,
		likes = EXCLUDED.likes,
		dislikes = EXCLUDED.dislikes
	WHERE posts.author = EXCLUDED.author
`

func (r *PostgresPostRepository) SavePost(ctx context.Context, p *domain.Post) error {
	if p == nil {
		return fmt.Errorf("post cannot be nil")
	}

	if p.ID < 0 {
		return fmt.Errorf("post ID cannot be negative: %d", p.ID)
	}

	tag, err := r.pool.Exec(ctx, pgUpsertPostQuery,
		int64(p.ID),
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

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("post %d author mismatch: refusing to overwrite %q", p.ID, p.Author)
	}

	return nil
}

const pgGetPostQuery = `
	SELECT id, title, content, author, is_banned, likes, dislikes
	FROM posts
	WHERE id = $1
`

func (r *PostgresPostRepository) GetPost(ctx context.Context, id int) (*domain.Post, error) {
	row, err := scanPgPost(r.pool.QueryRow(ctx, pgGetPostQuery, int64(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrPostNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return row.toDomain(), nil
}

const pgListPostsQuery = `
	SELECT id, title, content, author, is_banned, likes, dislikes
	FROM posts
	ORDER BY id ASC
`

func (r *PostgresPostRepository) ListPosts(ctx context.Context) ([]*domain.Post, error) {
	rows, err := r.pool.Query(ctx, pgListPostsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*domain.Post, 0)
	for rows.Next() {
		row, err := scanPgPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, row.toDomain())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}

func scanPgPost(row pgx.Row) (*postRow, error) {
	var (
		pr postRow
		id int64
	)
	err := row.Scan(
		&id,
		&pr.Title,
		&pr.Content,
		&pr.Author,
		&pr.IsBanned,
		&pr.Likes,
		&pr.Dislikes,
	)
	if err != nil {
		return nil, err
	}
	pr.ID = int(id)
	return &pr, nil
}
