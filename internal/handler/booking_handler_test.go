package handler_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-gin-supper-club/internal/model"
	apperrors "go-gin-supper-club/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateBooking(t *testing.T) {
	eventID := uuid.New()
	body := model.CreateBookingRequest{EventID: eventID, GuestID: "guest-1", TicketCount: 2}

	t.Run("Success", func(t *testing.T) {
		router, mocks := setupTestRouter()
		mocks.bookings.On("Create", mock.Anything, body).Return(&model.Booking{
			ID:          uuid.New(),
			EventID:     eventID,
			GuestID:     "guest-1",
			TicketCount: 2,
			Status:      model.BookingStatusPending,
		}, nil).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest("POST", "/api/v1/bookings", body))

		assert.Equal(t, http.StatusCreated, w.Code)
		var got model.Booking
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, model.BookingStatusPending, got.Status)
		mocks.bookings.AssertExpectations(t)
	})

	t.Run("Failed - CapacityExceeded", func(t *testing.T) {
		router, mocks := setupTestRouter()
		mocks.bookings.On("Create", mock.Anything, body).Return(nil, apperrors.ErrCapacityExceeded).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest("POST", "/api/v1/bookings", body))

		assert.Equal(t, http.StatusConflict, w.Code)
		mocks.bookings.AssertExpectations(t)
	})

	t.Run("Failed - BindingError", func(t *testing.T) {
		router, mocks := setupTestRouter()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest("POST", "/api/v1/bookings", InvalidJSON))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mocks.bookings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Failed - ZeroTickets", func(t *testing.T) {
		router, mocks := setupTestRouter()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest("POST", "/api/v1/bookings",
			model.CreateBookingRequest{EventID: eventID, GuestID: "guest-1"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mocks.bookings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestTransitionBooking(t *testing.T) {
	bookingID := uuid.New()
	url := fmt.Sprintf("/api/v1/bookings/%s/transitions", bookingID)

	t.Run("Success", func(t *testing.T) {
		router, mocks := setupTestRouter()
		req := model.TransitionBookingRequest{Action: model.BookingActionApprove}
		mocks.bookings.On("Transition", mock.Anything, bookingID, req).Return(&model.Booking{
			ID:     bookingID,
			Status: model.BookingStatusApproved,
		}, nil).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest("POST", url, req))

		assert.Equal(t, http.StatusOK, w.Code)
		mocks.bookings.AssertExpectations(t)
	})

	t.Run("Failed - UnknownAction", func(t *testing.T) {
		router, mocks := setupTestRouter()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest("POST", url, map[string]string{"action": "refund"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mocks.bookings.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Failed - PaymentFailed", func(t *testing.T) {
		router, mocks := setupTestRouter()
		req := model.TransitionBookingRequest{Action: model.BookingActionApprove}
		mocks.bookings.On("Transition", mock.Anything, bookingID, req).
			Return(nil, fmt.Errorf("%w: card declined", apperrors.ErrPaymentFailed)).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest("POST", url, req))

		assert.Equal(t, http.StatusPaymentRequired, w.Code)
		mocks.bookings.AssertExpectations(t)
	})
}

func TestGetBooking_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"NotFound", apperrors.ErrBookingNotFound, http.StatusNotFound},
		{"InvalidTransition", fmt.Errorf("%w: CANCELLED -> APPROVED", apperrors.ErrInvalidTransition), http.StatusConflict},
		{"EventClosed", apperrors.ErrEventClosed, http.StatusConflict},
		{"OfferExpired", apperrors.ErrOfferExpired, http.StatusGone},
		{"InvalidArgument", apperrors.ErrInvalidArgument, http.StatusBadRequest},
		{"Unexpected", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router, mocks := setupTestRouter()
			bookingID := uuid.New()
			mocks.bookings.On("GetBooking", mock.Anything, bookingID).Return(nil, tc.err).Once()

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/bookings/"+bookingID.String(), nil))

			assert.Equal(t, tc.code, w.Code)
			mocks.bookings.AssertExpectations(t)
		})
	}
}

func TestGetBooking_InvalidID(t *testing.T) {
	router, mocks := setupTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/bookings/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mocks.bookings.AssertNotCalled(t, "GetBooking", mock.Anything, mock.Anything)
}

func TestListBookingTransactions(t *testing.T) {
	router, mocks := setupTestRouter()
	bookingID := uuid.New()
	mocks.bookings.On("ListTransactions", mock.Anything, bookingID).Return([]*model.Transaction{
		{ID: uuid.New(), BookingID: bookingID, Type: model.TransactionTypeCharge, Amount: 11000, Status: model.TransactionStatusCompleted},
	}, nil).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/bookings/"+bookingID.String()+"/transactions", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var got []model.Transaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 1)
	mocks.bookings.AssertExpectations(t)
}
