package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/raite-app/backend/internal/models"
	"github.com/raite-app/backend/internal/repositories"
	"github.com/raite-app/backend/internal/services"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetFeed)
	g.GET("/notifications/stream", h.StreamFeed)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.POST("/notifications", h.CreateNotification)
}

// GetFeed returns the merged notification feed once
func (h *NotificationHandler) GetFeed(c echo.Context) error {
	uid := c.Get("firebaseUID").(string)

	update, err := h.notificationService.Snapshot(c.Request().Context(), uid)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"feed": update},
	})
}

// StreamFeed streams feed updates over Server-Sent Events until the client
// disconnects
func (h *NotificationHandler) StreamFeed(c echo.Context) error {
	uid := c.Get("firebaseUID").(string)

	ch, dispose, err := h.notificationService.Subscribe(c.Request().Context(), uid)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return streamSSE(c, ch, dispose)
}

// MarkAllAsRead clears the unread state of both notification sources
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	uid := c.Get("firebaseUID").(string)

	if err := h.notificationService.MarkAllAsRead(c.Request().Context(), uid); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true}})
}

// MarkAsRead marks a single notification as read
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	notifID := c.Param("id")
	if notifID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid notification ID")
	}

	if err := h.notificationService.MarkAsRead(c.Request().Context(), notifID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Notification not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true}})
}

// CreateNotification appends a new notification event from the current user
func (h *NotificationHandler) CreateNotification(c echo.Context) error {
	uid := c.Get("firebaseUID").(string)

	var req models.CreateNotificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	event, err := h.notificationService.CreateForSender(c.Request().Context(), uid, req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": event})
}
