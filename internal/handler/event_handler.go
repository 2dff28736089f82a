package handler

import (
	"net/http"

	"go-gin-supper-club/internal/model"
	"go-gin-supper-club/internal/service"

	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	service  service.EventService
	bookings service.BookingService
}

func NewEventHandler(service service.EventService, bookings service.BookingService) *EventHandler {
	return &EventHandler{service: service, bookings: bookings}
}

func (h *EventHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("events", h.List)
		router.POST("events", h.Publish)
		router.GET("events/:id", h.GetByEventID)
		router.POST("events/:id/cancel", h.Cancel)
		router.GET("events/:id/bookings", h.ListBookings)
		router.GET("events/:id/revenue", h.Revenue)
	}
}

// CancelEventRequest 取消活動請求
type CancelEventRequest struct {
	Reason *string `json:"reason"`
}

func (h *EventHandler) List(c *gin.Context) {
	events, err := h.service.List(c)
	if err != nil {
		handleError(c, err, "ListEvents")
		return
	}
	handleSuccess(c, events, http.StatusOK)
}

func (h *EventHandler) Publish(c *gin.Context) {
	var req model.PublishEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	event, err := h.service.Publish(c, req)
	if err != nil {
		handleError(c, err, "PublishEvent")
		return
	}
	handleSuccess(c, event, http.StatusCreated)
}

func (h *EventHandler) GetByEventID(c *gin.Context) {
	eventID, ok := bindID(c)
	if !ok {
		return
	}
	event, err := h.service.GetByEventID(c, eventID)
	if err != nil {
		handleError(c, err, "GetEvent")
		return
	}
	handleSuccess(c, event, http.StatusOK)
}

func (h *EventHandler) Cancel(c *gin.Context) {
	eventID, ok := bindID(c)
	if !ok {
		return
	}
	var req CancelEventRequest
	// body 可省略
	if c.Request.ContentLength > 0 {
		if err := BindJson(c, &req); err != nil {
			return
		}
	}
	event, err := h.service.Cancel(c, eventID, req.Reason)
	if err != nil {
		handleError(c, err, "CancelEvent")
		return
	}
	handleSuccess(c, event, http.StatusOK)
}

func (h *EventHandler) ListBookings(c *gin.Context) {
	eventID, ok := bindID(c)
	if !ok {
		return
	}
	var query statusQuery
	if err := BindQuery(c, &query); err != nil {
		return
	}
	statuses := make([]model.BookingStatus, 0, len(query.Status))
	for _, raw := range query.Status {
		status := model.BookingStatus(raw)
		if !status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking status", "status": raw})
			return
		}
		statuses = append(statuses, status)
	}
	bookings, err := h.bookings.ListByEvent(c, eventID, statuses...)
	if err != nil {
		handleError(c, err, "ListEventBookings")
		return
	}
	handleSuccess(c, bookings, http.StatusOK)
}

func (h *EventHandler) Revenue(c *gin.Context) {
	eventID, ok := bindID(c)
	if !ok {
		return
	}
	revenue, err := h.service.Revenue(c, eventID)
	if err != nil {
		handleError(c, err, "EventRevenue")
		return
	}
	handleSuccess(c, revenue, http.StatusOK)
}
