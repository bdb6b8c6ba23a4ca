package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dfryer1193/postboard/api"
	"github.com/dfryer1193/postboard/blog/domain"
	"github.com/dfryer1193/postboard/internal/middleware"
	"github.com/gin-gonic/gin"
)

// PostService is the post API consumed by the HTTP layer.
type PostService interface {
	CreatePost(caller domain.Identity, title, content string) int
	GetPost(id int) (domain.Post, error)
	GetPosts() []domain.Post
	UpdatePost(caller domain.Identity, id int, title, content string) error
	BanPost(caller domain.Identity, id int) error
	LikePost(caller domain.Identity, id int) error
	DislikePost(caller domain.Identity, id int) error
}

type PostsHandler struct {
	posts PostService
}

func NewPostsHandler(posts PostService) *PostsHandler {
	return &PostsHandler{
		posts: posts,
	}
}

func (h *PostsHandler) GetPosts(c *gin.Context) {
	c.JSON(http.StatusOK, api.PostsFromDomain(h.posts.GetPosts()))
}

func (h *PostsHandler) GetPost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	post, err := h.posts.GetPost(id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.PostFromDomain(post))
}

func (h *PostsHandler) CreatePost(c *gin.Context) {
	proto := &api.PostProto{}
	if err := c.ShouldBindJSON(proto); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, api.Error{Error: err.Error()})
		return
	}

	id := h.posts.CreatePost(middleware.Caller(c), *proto.Title, *proto.Content)
	c.JSON(http.StatusCreated, api.CreatedPost{ID: id})
}

func (h *PostsHandler) UpdatePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	proto := &api.PostProto{}
	if err := c.ShouldBindJSON(proto); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, api.Error{Error: err.Error()})
		return
	}

	if err := h.posts.UpdatePost(middleware.Caller(c), id, *proto.Title, *proto.Content); err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *PostsHandler) BanPost(c *gin.Context) {
	h.apply(c, h.posts.BanPost)
}

func (h *PostsHandler) LikePost(c *gin.Context) {
	h.apply(c, h.posts.LikePost)
}

func (h *PostsHandler) DislikePost(c *gin.Context) {
	h.apply(c, h.posts.DislikePost)
}

// apply runs a body-less mutation against the post named in the path.
func (h *PostsHandler) apply(c *gin.Context, op func(caller domain.Identity, id int) error) {
	id, ok := postID(c)
	if !ok {
		return
	}

	if err := op(middleware.Caller(c), id); err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func postID(c *gin.Context) (int, bool) {
	raw := c.Param("postId")
	id, err := strconv.Atoi(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, api.Error{Error: fmt.Sprintf("invalid post id %q", raw)})
		return 0, false
	}
	return id, true
}

func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrOutOfRange):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, api.Error{Error: err.Error()})
}
