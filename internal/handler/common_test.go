package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"

	"go-gin-supper-club/config"
	"go-gin-supper-club/internal/handler"
	"go-gin-supper-club/internal/mocks/services"

	"github.com/gin-gonic/gin"
)

var (
	InvalidJSON = `{"invalid": json}`
)

type mockSet struct {
	events   *services.EventServiceMock
	bookings *services.BookingServiceMock
	waitlist *services.WaitlistServiceMock
}

func setupTestRouter() (*gin.Engine, *mockSet) {
	gin.SetMode(gin.TestMode)
	mocks := &mockSet{
		events:   services.NewEventServiceMock(),
		bookings: services.NewBookingServiceMock(),
		waitlist: services.NewWaitlistServiceMock(),
	}
	cfg := config.LoadTestConfig().App
	router := handler.NewRouter(&cfg,
		handler.NewEventHandler(mocks.events, mocks.bookings),
		handler.NewBookingHandler(mocks.bookings),
		handler.NewWaitlistHandler(mocks.waitlist),
	)
	return router, mocks
}

// create JSON request body
func createJSONRequest(data interface{}) *bytes.Buffer {
	if raw, ok := data.(string); ok {
		return bytes.NewBufferString(raw)
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return bytes.NewBuffer([]byte(""))
	}
	return bytes.NewBuffer(jsonData)
}

// create HTTP request with JSON body
func createJSONHTTPRequest(method, url string, data interface{}) *http.Request {
	req, err := http.NewRequest(method, url, createJSONRequest(data))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}
