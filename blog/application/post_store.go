package application

import (
	"fmt"
	"sync"

	"github.com/dfryer1193/postboard/blog/domain"
)

const (
	opUpdatePost = "updatePost"
	opBanPost    = "banPost"
)

// PostStore owns the append-only post collection and the administrator identity.
// Every method runs to completion under a single lock, so callers never observe
// a partially applied operation.
type PostStore struct {
	mu        sync.Mutex
	posts     []domain.Post
	admin     domain.Identity
	publisher domain.EventPublisher
}

// NewPostStore creates an empty store. admin is the only identity allowed to ban
// posts. publisher may be nil, in which case no notifications are delivered.
func NewPostStore(admin domain.Identity, publisher domain.EventPublisher) *PostStore {
	return &PostStore{
		posts:     make([]domain.Post, 0),
		admin:     admin,
		publisher: publisher,
	}
}

// Admin returns the administrator identity fixed at construction.
func (s *PostStore) Admin() domain.Identity {
	return s.admin
}

// Len returns the number of posts ever created.
func (s *PostStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts)
}

// CreatePost appends a new post authored by caller and returns its ID.
func (s *PostStore) CreatePost(caller domain.Identity, title, content string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := len(s.posts)
	s.posts = append(s.posts, domain.Post{
		ID:      id,
		Title:   title,
		Content: content,
		Author:  caller,
	})

	s.emit(domain.Event{Kind: domain.EventPostCreated, PostID: id, Actor: caller})
	return id
}

// GetPost returns a copy of the post at id.
func (s *PostStore) GetPost(id int) (domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIndex(id); err != nil {
		return domain.Post{}, err
	}
	return s.posts[id], nil
}

// GetPosts returns copies of all posts in creation order.
func (s *PostStore) GetPosts() []domain.Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts := make([]domain.Post, len(s.posts))
	copy(posts, s.posts)
	return posts
}

// UpdatePost overwrites the title and content of a post. Only the author may do this.
func (s *PostStore) UpdatePost(caller domain.Identity, id int, title, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIndex(id); err != nil {
		return err
	}

	p := &s.posts[id]
	if p.Author != caller {
		return &domain.UnauthorizedError{
			Op:     opUpdatePost,
			Caller: caller,
			Reason: "only the author can update the post",
		}
	}

	p.Title = title
	p.Content = content

	s.emit(domain.Event{Kind: domain.EventPostUpdated, PostID: id, Actor: p.Author})
	return nil
}

// BanPost flags a post as banned. Only the administrator may do this; banning
// an already banned post succeeds without changing anything.
func (s *PostStore) BanPost(caller domain.Identity, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIndex(id); err != nil {
		return err
	}

	if caller != s.admin {
		return &domain.UnauthorizedError{
			Op:     opBanPost,
			Caller: caller,
			Reason: "only the administrator can ban posts",
		}
	}

	s.posts[id].IsBanned = true
	return nil
}

// LikePost increments the like counter of a post.
func (s *PostStore) LikePost(caller domain.Identity, id int) error {
	return s.vote(caller, id, true)
}

// DislikePost increments the dislike counter of a post.
func (s *PostStore) DislikePost(caller domain.Identity, id int) error {
	return s.vote(caller, id, false)
}

func (s *PostStore) vote(caller domain.Identity, id int, isLike bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIndex(id); err != nil {
		return err
	}

	if isLike {
		s.posts[id].Likes++
	} else {
		s.posts[id].Dislikes++
	}

	s.emit(domain.Event{Kind: domain.EventPostLikedDisliked, PostID: id, Actor: caller, IsLike: isLike})
	return nil
}

// Restore seeds an empty store from a durable snapshot. The snapshot must hold
// posts with IDs 0..n-1 in order. No events are emitted.
func (s *PostStore) Restore(posts []domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.posts) != 0 {
		return fmt.Errorf("%w: store already holds %d posts", domain.ErrInvalidSnapshot, len(s.posts))
	}

	for i, p := range posts {
		if p.ID != i {
			return fmt.Errorf("%w: post at position %d has id %d", domain.ErrInvalidSnapshot, i, p.ID)
		}
	}

	restored := make([]domain.Post, len(posts))
	copy(restored, posts)
	s.posts = restored
	return nil
}

// checkIndex must be called with s.mu held.
func (s *PostStore) checkIndex(id int) error {
	if id < 0 || id >= len(s.posts) {
		return fmt.Errorf("%w: no post with id %d (have %d)", domain.ErrOutOfRange, id, len(s.posts))
	}
	return nil
}

// emit must be called with s.mu held.
func (s *PostStore) emit(evt domain.Event) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(evt)
}
