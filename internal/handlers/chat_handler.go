package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/raite-app/backend/internal/models"
	"github.com/raite-app/backend/internal/repositories"
	"github.com/raite-app/backend/internal/services"
)

// ChatHandler handles mentoring chat HTTP requests
type ChatHandler struct {
	chatService *services.ChatService
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// RegisterChatRoutes registers chat routes
func (h *ChatHandler) RegisterChatRoutes(g *echo.Group) {
	g.POST("/chat/sessions", h.StartSession)
	g.GET("/chat/sessions", h.ListSessions)
	g.GET("/chat/sessions/stream", h.StreamSessions)
	g.POST("/chat/sessions/:id/messages", h.SendMessage)
	g.PUT("/chat/sessions/:id/read", h.MarkRead)
	g.GET("/chat/sessions/:id/messages", h.ListMessages)
	g.GET("/chat/sessions/:id/messages/stream", h.StreamMessages)
}

// StartSession opens (or reuses) the thread with a mentor, seeded with the
// student's first message
func (h *ChatHandler) StartSession(c echo.Context) error {
	uid := c.Get("firebaseUID").(string)

	var req models.StartSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	sessionID, err := h.chatService.StartOrReuseSession(c.Request().Context(), uid, req.MentorID, req.Message)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Message must not be empty")
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": echo.Map{"session_id": sessionID}})
}

// ListSessions returns the caller's sessions for one role
func (h *ChatHandler) ListSessions(c echo.Context) error {
	uid := c.Get("firebaseUID").(string)
	role, err := roleFromQuery(c)
	if err != nil {
		return err
	}

	sessions, err := h.chatService.ListSessions(c.Request().Context(), uid, role)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"sessions": sessions}})
}

// StreamSessions streams the caller's session list over Server-Sent Events
func (h *ChatHandler) StreamSessions(c echo.Context) error {
	uid := c.Get("firebaseUID").(string)
	role, err := roleFromQuery(c)
	if err != nil {
		return err
	}

	ch, dispose, err := h.chatService.SubscribeSessions(c.Request().Context(), uid, role)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return streamSSE(c, ch, dispose)
}

// SendMessage appends a message to an existing session
func (h *ChatHandler) SendMessage(c echo.Context) error {
	uid := c.Get("firebaseUID").(string)
	sessionID := c.Param("id")

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	messageID, err := h.chatService.SendMessage(c.Request().Context(), sessionID, uid, req.Text)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Chat session not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if messageID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Message must not be empty")
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": echo.Map{"message_id": messageID}})
}

// MarkRead flags the other participant's messages as read and clears the
// caller's unread counter
func (h *ChatHandler) MarkRead(c echo.Context) error {
	uid := c.Get("firebaseUID").(string)
	sessionID := c.Param("id")

	if err := h.chatService.MarkMessagesAsRead(c.Request().Context(), sessionID, uid); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Chat session not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true}})
}

// ListMessages returns the most recent messages of a session
func (h *ChatHandler) ListMessages(c echo.Context) error {
	sessionID := c.Param("id")

	messages, err := h.chatService.ListMessages(c.Request().Context(), sessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"messages": messages}})
}

// StreamMessages streams a session's recent messages over Server-Sent Events
func (h *ChatHandler) StreamMessages(c echo.Context) error {
	sessionID := c.Param("id")

	ch, dispose, err := h.chatService.SubscribeMessages(c.Request().Context(), sessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return streamSSE(c, ch, dispose)
}

func roleFromQuery(c echo.Context) (models.Role, error) {
	switch role := models.Role(c.QueryParam("role")); role {
	case models.RoleMentor, models.RoleStudent:
		return role, nil
	default:
		return "", echo.NewHTTPError(http.StatusBadRequest, "Query parameter 'role' must be 'mentor' or 'student'")
	}
}
