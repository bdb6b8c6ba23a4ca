package api

import "github.com/dfryer1193/postboard/blog/domain"

type Post struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Author   string `json:"author"`
	IsBanned bool   `json:"is_banned"`
	Likes    uint64 `json:"likes"`
	Dislikes uint64 `json:"dislikes"`
}

// PostProto is the body of create and update calls. Empty strings are valid,
// absent fields are not.
type PostProto struct {
	Title   *string `json:"title" binding:"required"`
	Content *string `json:"content" binding:"required"`
}

type CreatedPost struct {
	ID int `json:"id"`
}

type Error struct {
	Error string `json:"error"`
}

// Event is the wire form of a domain event. IsLike is only set for PostLikedDisliked.
type Event struct {
	Kind   string `json:"kind"`
	PostID int    `json:"post_id"`
	Actor  string `json:"actor"`
	IsLike *bool  `json:"is_like,omitempty"`
}

func PostFromDomain(p domain.Post) Post {
	return Post{
		ID:       p.ID,
		Title:    p.Title,
		Content:  p.Content,
		Author:   string(p.Author),
		IsBanned: p.IsBanned,
		Likes:    p.Likes,
		Dislikes: p.Dislikes,
	}
}

func PostsFromDomain(posts []domain.Post) []Post {
	out := make([]Post, len(posts))
	for i, p := range posts {
		out[i] = PostFromDomain(p)
	}
	return out
}

func EventFromDomain(evt domain.Event) Event {
	out := Event{
		Kind:   string(evt.Kind),
		PostID: evt.PostID,
		Actor:  string(evt.Actor),
	}
	if evt.Kind == domain.EventPostLikedDisliked {
		isLike := evt.IsLike
		out.IsLike = &isLike
	}
	return out
}
