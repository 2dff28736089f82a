package handler

import (
	"net/http"

	"go-gin-supper-club/internal/model"
	"go-gin-supper-club/internal/service"

	"github.com/gin-gonic/gin"
)

type WaitlistHandler struct {
	service service.WaitlistService
}

func NewWaitlistHandler(service service.WaitlistService) *WaitlistHandler {
	return &WaitlistHandler{service: service}
}

func (h *WaitlistHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("events/:id/waitlist", h.Join)
		router.GET("events/:id/waitlist", h.ListByEvent)
		router.GET("waitlist/:id", h.GetEntry)
		router.POST("waitlist/:id/claim", h.Claim)
		router.POST("waitlist/:id/withdraw", h.Withdraw)
	}
}

func (h *WaitlistHandler) Join(c *gin.Context) {
	eventID, ok := bindID(c)
	if !ok {
		return
	}
	var req model.JoinWaitlistRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	req.EventID = eventID
	entry, err := h.service.Join(c, req)
	if err != nil {
		handleError(c, err, "JoinWaitlist")
		return
	}
	handleSuccess(c, entry, http.StatusCreated)
}

func (h *WaitlistHandler) ListByEvent(c *gin.Context) {
	eventID, ok := bindID(c)
	if !ok {
		return
	}
	var query statusQuery
	if err := BindQuery(c, &query); err != nil {
		return
	}
	statuses := make([]model.WaitlistStatus, 0, len(query.Status))
	for _, raw := range query.Status {
		status := model.WaitlistStatus(raw)
		if !status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid waitlist status", "status": raw})
			return
		}
		statuses = append(statuses, status)
	}
	entries, err := h.service.ListByEvent(c, eventID, statuses...)
	if err != nil {
		handleError(c, err, "ListWaitlist")
		return
	}
	handleSuccess(c, entries, http.StatusOK)
}

func (h *WaitlistHandler) GetEntry(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	entry, err := h.service.GetEntry(c, id)
	if err != nil {
		handleError(c, err, "GetWaitlistEntry")
		return
	}
	handleSuccess(c, entry, http.StatusOK)
}

// Claim 把有效的 offer 轉成 booking
func (h *WaitlistHandler) Claim(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	booking, err := h.service.Claim(c, id)
	if err != nil {
		handleError(c, err, "ClaimWaitlistOffer")
		return
	}
	handleSuccess(c, booking, http.StatusCreated)
}

func (h *WaitlistHandler) Withdraw(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	entry, err := h.service.Withdraw(c, id)
	if err != nil {
		handleError(c, err, "WithdrawWaitlist")
		return
	}
	handleSuccess(c, entry, http.StatusOK)
}
