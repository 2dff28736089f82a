package handler

import (
	"net/http"

	"go-gin-supper-club/internal/model"
	"go-gin-supper-club/internal/service"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service service.BookingService
}

func NewBookingHandler(service service.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("bookings", h.Create)
		router.GET("bookings/:id", h.GetBooking)
		router.POST("bookings/:id/transitions", h.Transition)
		router.GET("bookings/:id/transactions", h.ListTransactions)
	}
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req model.CreateBookingRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	booking, err := h.service.Create(c, req)
	if err != nil {
		handleError(c, err, "CreateBooking")
		return
	}
	handleSuccess(c, booking, http.StatusCreated)
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	booking, err := h.service.GetBooking(c, id)
	if err != nil {
		handleError(c, err, "GetBooking")
		return
	}
	handleSuccess(c, booking, http.StatusOK)
}

// Transition 套用 approve / decline / cancel / complete / noShow
func (h *BookingHandler) Transition(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	var req model.TransitionBookingRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	booking, err := h.service.Transition(c, id, req)
	if err != nil {
		handleError(c, err, "TransitionBooking")
		return
	}
	handleSuccess(c, booking, http.StatusOK)
}

func (h *BookingHandler) ListTransactions(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	transactions, err := h.service.ListTransactions(c, id)
	if err != nil {
		handleError(c, err, "ListBookingTransactions")
		return
	}
	handleSuccess(c, transactions, http.StatusOK)
}
