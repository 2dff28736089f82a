package handler

import (
	"errors"
	"net/http"

	apperrors "go-gin-supper-club/pkg/app_errors"
	"go-gin-supper-club/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

func BindQuery(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindQuery(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

func BindUri(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindUri(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

type idUri struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// bindID parses the :id path parameter. It writes the 400 itself.
func bindID(c *gin.Context) (uuid.UUID, bool) {
	var uri idUri
	if err := BindUri(c, &uri); err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(uri.ID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

type statusQuery struct {
	Status []string `form:"status"`
}

func handleSuccess(c *gin.Context, data interface{}, statusCode int) {
	if data != nil {
		c.JSON(statusCode, data)
	} else {
		c.Status(statusCode)
	}
}

// handleError maps the error taxonomy onto HTTP status codes.
func handleError(c *gin.Context, err error, operation string) {
	requestID, _ := c.Get(requestIDKey)
	log := logger.WithComponent("handler").With(
		zap.String("operation", operation),
		zap.Any("request_id", requestID),
		zap.Error(err),
	)

	switch {
	case errors.Is(err, apperrors.ErrCapacityExceeded):
		log.Warn("Capacity exceeded")
		c.JSON(http.StatusConflict, gin.H{"error": "Capacity exceeded"})
	case errors.Is(err, apperrors.ErrInvalidTransition):
		log.Warn("Invalid transition")
		c.JSON(http.StatusConflict, gin.H{"error": "Invalid transition", "detail": err.Error()})
	case errors.Is(err, apperrors.ErrEventClosed):
		log.Warn("Event closed")
		c.JSON(http.StatusConflict, gin.H{"error": "Event is not open for booking"})
	case errors.Is(err, apperrors.ErrAlreadyOnWaitlist):
		log.Warn("Already on waitlist")
		c.JSON(http.StatusConflict, gin.H{"error": "Already on waitlist"})
	case errors.Is(err, apperrors.ErrOfferExpired):
		log.Warn("Offer expired")
		c.JSON(http.StatusGone, gin.H{"error": "Waitlist offer expired"})
	case errors.Is(err, apperrors.ErrPaymentFailed):
		log.Warn("Payment failed")
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "Payment failed"})
	case errors.Is(err, apperrors.ErrInvalidArgument):
		log.Warn("Invalid argument")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid argument", "detail": err.Error()})
	case errors.Is(err, apperrors.ErrEventNotFound):
		log.Warn("Event not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
	case errors.Is(err, apperrors.ErrBookingNotFound):
		log.Warn("Booking not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
	case errors.Is(err, apperrors.ErrWaitlistEntryNotFound):
		log.Warn("Waitlist entry not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Waitlist entry not found"})
	case errors.Is(err, apperrors.ErrTransactionNotFound):
		log.Warn("Transaction not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
