package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dfryer1193/postboard/blog/domain"
	"github.com/rs/zerolog/log"
)

// PostService fronts a PostStore and mirrors every successful mutation into a
// PostRepository. The in-memory store is authoritative; persistence failures are
// logged and never fail the call. Posts whose write failed stay pending and are
// retried on every later write and on Close.
type PostService struct {
	store *PostStore
	repo  domain.PostRepository

	// mu serializes store mutation and the matching write so the stored row never regresses
	mu sync.Mutex
	// pending holds ids whose latest state has not reached the repository
	pending map[int]struct{}

	// Service lifecycle context - cancelled when Close() is called
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPostService creates a PostService. repo may be nil to run without durability.
func NewPostService(store *PostStore, repo domain.PostRepository) *PostService {
	ctx, cancel := context.WithCancel(context.Background())
	return &PostService{
		store:   store,
		repo:    repo,
		pending: make(map[int]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Close retries any pending writes, then cancels in-flight persistence work.
func (s *PostService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.cancel()

	if s.repo == nil || len(s.pending) == 0 {
		return nil
	}
	if err := s.flush(); err != nil {
		return fmt.Errorf("failed to persist %d pending posts: %w", len(s.pending), err)
	}
	return nil
}

// Load restores the store from the repository. It must run before the service
// accepts calls.
func (s *PostService) Load() error {
	if s.repo == nil {
		return nil
	}

	stored, err := s.repo.ListPosts(s.ctx)
	if err != nil {
		return fmt.Errorf("failed to list stored posts: %w", err)
	}

	posts := make([]domain.Post, 0, len(stored))
	for _, p := range stored {
		posts = append(posts, *p)
	}

	if err := s.store.Restore(posts); err != nil {
		return fmt.Errorf("failed to restore posts: %w", err)
	}

	log.Info().Int("posts", len(posts)).Msg("Restored posts from repository")
	return nil
}

// Admin returns the administrator identity of the underlying store.
func (s *PostService) Admin() domain.Identity {
	return s.store.Admin()
}

func (s *PostService) CreatePost(caller domain.Identity, title, content string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.store.CreatePost(caller, title, content)
	s.persist(id)
	return id
}

func (s *PostService) GetPost(id int) (domain.Post, error) {
	return s.store.GetPost(id)
}

func (s *PostService) GetPosts() []domain.Post {
	return s.store.GetPosts()
}

func (s *PostService) UpdatePost(caller domain.Identity, id int, title, content string) error {
	return s.mutate(id, func() error {
		return s.store.UpdatePost(caller, id, title, content)
	})
}

func (s *PostService) BanPost(caller domain.Identity, id int) error {
	return s.mutate(id, func() error {
		return s.store.BanPost(caller, id)
	})
}

func (s *PostService) LikePost(caller domain.Identity, id int) error {
	return s.mutate(id, func() error {
		return s.store.LikePost(caller, id)
	})
}

func (s *PostService) DislikePost(caller domain.Identity, id int) error {
	return s.mutate(id, func() error {
		return s.store.DislikePost(caller, id)
	})
}

func (s *PostService) mutate(id int, op func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := op(); err != nil {
		return err
	}

	s.persist(id)
	return nil
}

// persist marks id as pending and writes every pending post. It must be called
// with s.mu held.
func (s *PostService) persist(id int) {
	if s.repo == nil {
		return
	}

	s.pending[id] = struct{}{}
	_ = s.flush()
}

// flush writes pending posts in id order, keeping the ones that fail.
func (s *PostService) flush() error {
	ids := make([]int, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var errs []error
	for _, id := range ids {
		post, err := s.store.GetPost(id)
		if err != nil {
			log.Error().Err(err).Int("postID", id).Msg("Failed to read post for persistence")
			delete(s.pending, id)
			continue
		}

		if err := s.repo.SavePost(s.ctx, &post); err != nil {
			log.Error().Err(err).Int("postID", id).Msg("Failed to persist post, will retry")
			errs = append(errs, fmt.Errorf("post %d: %w", id, err))
			continue
		}
		delete(s.pending, id)
	}
	return errors.Join(errs...)
}
