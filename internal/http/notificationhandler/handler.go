package notificationhandler

import (
	"net/http"

	"liveauction/internal/http/auctionhandler"
	"liveauction/internal/http/middleware"
	"liveauction/internal/services/notification"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc notification.INotificationService
}

func New(svc notification.INotificationService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRoutes) {
	auth := middleware.RequireActor()

	r.GET("/notifications", auth, h.list)
	r.POST("/notifications/:id/read", auth, h.markRead)
}

// @Summary		List notifications
// @Description	Returns the caller's 50 most recent notifications, newest first.
// @Tags			Notifications
// @Success		200	{array}		models.Notification
// @Failure		401	{object}	auctionhandler.ErrorResponse
// @Router			/notifications [get]
func (h *Handler) list(c *gin.Context) {
	userID, _ := middleware.ActorID(c)
	out, err := h.svc.List(c.Request.Context(), userID)
	if err != nil {
		auctionhandler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary		Mark a notification read
// @Tags			Notifications
// @Param			id	path	string	true	"Notification ID"
// @Success		200
// @Failure		404	{object}	auctionhandler.ErrorResponse
// @Router			/notifications/{id}/read [post]
func (h *Handler) markRead(c *gin.Context) {
	userID, _ := middleware.ActorID(c)
	if err := h.svc.MarkRead(c.Request.Context(), c.Param("id"), userID); err != nil {
		auctionhandler.Fail(c, err)
		return
	}
	c.Status(http.StatusOK)
}
