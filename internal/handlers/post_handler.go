package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/raite-app/backend/internal/models"
	"github.com/raite-app/backend/internal/repositories"
	"github.com/raite-app/backend/internal/services"
)

const defaultFeedPageSize = 20

// PostHandler handles feed post HTTP requests
type PostHandler struct {
	postRepo repositories.PostRepository
	notifier *services.NotificationService
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(postRepo repositories.PostRepository, notifier *services.NotificationService) *PostHandler {
	return &PostHandler{postRepo: postRepo, notifier: notifier}
}

// RegisterPostRoutes registers post routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts", h.GetFeed)
	g.GET("/posts/:id", h.GetPost)
	g.DELETE("/posts/:id", h.DeletePost)
	g.POST("/posts/:id/like", h.LikePost)
	g.POST("/posts/:id/comments", h.CommentPost)
	g.GET("/posts/:id/comments", h.GetComments)
}

// CreatePost creates a new feed post
func (h *PostHandler) CreatePost(c echo.Context) error {
	uid := c.Get("firebaseUID").(string)

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	post := &models.Post{
		UserID:    uid,
		Content:   req.Content,
		ImageURLs: req.ImageURLs,
	}
	if err := h.postRepo.CreatePost(c.Request().Context(), post); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": echo.Map{"post": post}})
}

// GetFeed returns a page of posts, newest first
func (h *PostHandler) GetFeed(c echo.Context) error {
	skip, _ := strconv.ParseInt(c.QueryParam("skip"), 10, 64)
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 100 {
		limit = defaultFeedPageSize
	}

	posts, err := h.postRepo.GetAllPosts(c.Request().Context(), skip, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"posts": posts}})
}

// GetPost returns a single post by ID
func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.postRepo.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"post": post}})
}

// DeletePost removes the caller's own post
func (h *PostHandler) DeletePost(c echo.Context) error {
	uid := c.Get("firebaseUID").(string)
	postID := c.Param("id")

	post, err := h.postRepo.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if post.UserID != uid {
		return echo.NewHTTPError(http.StatusForbidden, "You can only delete your own posts")
	}

	if err := h.postRepo.DeletePost(c.Request().Context(), postID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true}})
}

// LikePost bumps the like counter and notifies the post author
func (h *PostHandler) LikePost(c echo.Context) error {
	uid := c.Get("firebaseUID").(string)
	postID := c.Param("id")
	ctx := c.Request().Context()

	post, err := h.postRepo.GetPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.postRepo.IncrementLikesCount(ctx, postID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.notifier.Notify(ctx, models.TypePostLike, uid, post.UserID, postID, "", post.Content)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true}})
}

// CommentPost stores a comment and notifies the post author
func (h *PostHandler) CommentPost(c echo.Context) error {
	uid := c.Get("firebaseUID").(string)
	postID := c.Param("id")
	ctx := c.Request().Context()

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	post, err := h.postRepo.GetPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	comment := &models.PostComment{
		PostID: postID,
		UserID: uid,
		Text:   req.Text,
	}
	if err := h.postRepo.AddComment(ctx, comment); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.notifier.Notify(ctx, models.TypePostComment, uid, post.UserID, postID, comment.ID.Hex(), req.Text)

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": echo.Map{"comment": comment}})
}

// GetComments returns the comments of a post, oldest first
func (h *PostHandler) GetComments(c echo.Context) error {
	comments, err := h.postRepo.GetComments(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"comments": comments}})
}
