package rest

import (
	"github.com/dfryer1193/postboard/blog/events"
	"github.com/dfryer1193/postboard/internal/middleware"
	"github.com/gin-gonic/gin"
)

func NewApi(router *gin.Engine, posts PostService, broadcaster *events.Broadcaster) {
	postsHandler := NewPostsHandler(posts)
	postsV1 := router.Group("posts/v1")
	{
		postsV1.GET("/", postsHandler.GetPosts)
		postsV1.GET("/:postId", postsHandler.GetPost)

		authed := postsV1.Group("", middleware.RequireCaller())
		authed.POST("/", postsHandler.CreatePost)
		authed.PUT("/:postId", postsHandler.UpdatePost)
		authed.POST("/:postId/ban", postsHandler.BanPost)
		authed.POST("/:postId/like", postsHandler.LikePost)
		authed.POST("/:postId/dislike", postsHandler.DislikePost)
	}

	eventsHandler := NewEventsHandler(broadcaster)
	eventsV1 := router.Group("events/v1")
	{
		eventsV1.GET("/stream", eventsHandler.Stream)
	}
}
