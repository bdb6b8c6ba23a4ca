package domain

import (
	"context"
)

// Identity is the stable caller identifier supplied by the authentication layer.
type Identity string

// Post represents a single stored content record.
// ID equals the post's position in creation order and never changes meaning.
// Author is fixed at creation. IsBanned only ever moves from false to true.
type Post struct {
	ID       int
	Title    string
	Content  string
	Author   Identity
	IsBanned bool
	Likes    uint64
	Dislikes uint64
}

// PostRepository is the durability mirror for the in-memory post collection.
type PostRepository interface {
	// SavePost inserts or fully overwrites the row for p.ID
	SavePost(ctx context.Context, p *Post) error
	GetPost(ctx context.Context, id int) (*Post, error)
	// ListPosts returns every stored post ordered by ID ascending
	ListPosts(ctx context.Context) ([]*Post, error)
}
