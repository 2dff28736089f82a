package handler_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-gin-supper-club/internal/model"
	apperrors "go-gin-supper-club/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestJoinWaitlist(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, mocks := setupTestRouter()
		eventID := uuid.New()
		expected := model.JoinWaitlistRequest{
			EventID:       eventID,
			Contact:       model.Contact{Email: "ada@example.com", Name: "Ada"},
			TicketsWanted: 2,
		}
		mocks.waitlist.On("Join", mock.Anything, expected).Return(&model.WaitlistEntry{
			ID:            uuid.New(),
			EventID:       eventID,
			Contact:       expected.Contact,
			TicketsWanted: 2,
			Status:        model.WaitlistStatusWaiting,
			Position:      3,
		}, nil).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest("POST", "/api/v1/events/"+eventID.String()+"/waitlist",
			map[string]interface{}{
				"contact":        map[string]string{"email": "ada@example.com", "name": "Ada"},
				"tickets_wanted": 2,
			}))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"position":3`)
		mocks.waitlist.AssertExpectations(t)
	})

	t.Run("Failed - AlreadyOnWaitlist", func(t *testing.T) {
		router, mocks := setupTestRouter()
		eventID := uuid.New()
		mocks.waitlist.On("Join", mock.Anything, mock.Anything).Return(nil, apperrors.ErrAlreadyOnWaitlist).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest("POST", "/api/v1/events/"+eventID.String()+"/waitlist",
			map[string]interface{}{
				"contact":        map[string]string{"email": "ada@example.com"},
				"tickets_wanted": 1,
			}))

		assert.Equal(t, http.StatusConflict, w.Code)
		mocks.waitlist.AssertExpectations(t)
	})
}

func TestClaimWaitlistOffer(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, mocks := setupTestRouter()
		entryID := uuid.New()
		mocks.waitlist.On("Claim", mock.Anything, entryID).Return(&model.Booking{
			ID:     uuid.New(),
			Status: model.BookingStatusApproved,
			Source: model.BookingSourceWaitlist,
		}, nil).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", fmt.Sprintf("/api/v1/waitlist/%s/claim", entryID), nil))

		assert.Equal(t, http.StatusCreated, w.Code)
		mocks.waitlist.AssertExpectations(t)
	})

	t.Run("Failed - OfferExpired", func(t *testing.T) {
		router, mocks := setupTestRouter()
		entryID := uuid.New()
		mocks.waitlist.On("Claim", mock.Anything, entryID).Return(nil, apperrors.ErrOfferExpired).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", fmt.Sprintf("/api/v1/waitlist/%s/claim", entryID), nil))

		assert.Equal(t, http.StatusGone, w.Code)
		mocks.waitlist.AssertExpectations(t)
	})
}

func TestWithdrawWaitlistEntry(t *testing.T) {
	router, mocks := setupTestRouter()
	entryID := uuid.New()
	mocks.waitlist.On("Withdraw", mock.Anything, entryID).Return(&model.WaitlistEntry{
		ID:     entryID,
		Status: model.WaitlistStatusWithdrawn,
	}, nil).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", fmt.Sprintf("/api/v1/waitlist/%s/withdraw", entryID), nil))

	assert.Equal(t, http.StatusOK, w.Code)
	mocks.waitlist.AssertExpectations(t)
}

func TestListWaitlist(t *testing.T) {
	router, mocks := setupTestRouter()
	eventID := uuid.New()
	mocks.waitlist.On("ListByEvent", mock.Anything, eventID, []model.WaitlistStatus{}).
		Return([]*model.WaitlistEntry{}, nil).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/events/"+eventID.String()+"/waitlist", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	mocks.waitlist.AssertExpectations(t)
}
