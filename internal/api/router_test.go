package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/auth"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/availability"
	availabilityHttp "github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/availability/http"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/booking"
	bookingHttp "github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/booking/http"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/event"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/keylock"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/response"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/professional"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/reservation"
)

type testServer struct {
	router *gin.Engine
	jwt    *auth.JWTManager
	events *event.Recorder
}

func newTestServer(t *testing.T, pros ...professional.Professional) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	professionals := professional.NewMemoryRepository()
	for _, p := range pros {
		professionals.Add(p)
	}
	slots := availability.NewMemoryRepository()
	bookings := booking.NewMemoryRepository()
	slots.OnDelete(bookings.DetachSlot)
	events := &event.Recorder{}

	slotService := availability.NewService(slots, keylock.NewLocal(), logger)
	coordinator := reservation.NewCoordinator(slots, logger)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)

	router := NewRouter(Config{
		Logger:         logger,
		SlotService:    slotService,
		BookingService: booking.NewService(bookings, slotService, professionals, coordinator, events, logger, time.UTC),
		BookingQueries: booking.NewQueryService(bookings),
		Professionals:  professionals,
		JWTManager:     jwtManager,
	})

	return &testServer{router: router, jwt: jwtManager, events: events}
}

func (s *testServer) token(t *testing.T, id string, role auth.Role) string {
	t.Helper()
	token, err := s.jwt.GenerateAccessToken(auth.Actor{ID: id, Role: role})
	require.NoError(t, err)
	return token
}

func (s *testServer) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req, _ := http.NewRequest(method, path, bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	w := s.do("GET", "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthz_Unavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(Config{
		JWTManager: auth.NewJWTManager("x", time.Hour),
		Health:     func(context.Context) error { return errors.New("db down") },
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/healthz", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSlotAndBookingFlow(t *testing.T) {
	pro := professional.Professional{ID: uuid.NewString(), UserID: uuid.NewString()}
	s := newTestServer(t, pro)

	proToken := s.token(t, pro.UserID, auth.RoleProfessional)
	clientID := uuid.NewString()
	clientToken := s.token(t, clientID, auth.RoleClient)
	otherClientToken := s.token(t, uuid.NewString(), auth.RoleClient)

	date := time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02")
	var slot availabilityHttp.SlotResponse
	var bk bookingHttp.BookingResponse

	t.Run("Unauthenticated", func(t *testing.T) {
		w := s.do("POST", "/v1/slots", gin.H{"date": date, "start_time": "10:00", "end_time": "11:00"}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Client Cannot Create Slot", func(t *testing.T) {
		w := s.do("POST", "/v1/slots", gin.H{"date": date, "start_time": "10:00", "end_time": "11:00"}, clientToken)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Professional Creates Slot", func(t *testing.T) {
		w := s.do("POST", "/v1/slots", gin.H{"date": date, "start_time": "10:00", "end_time": "11:00"}, proToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		slot = decode[availabilityHttp.SlotResponse](t, w)
		assert.Equal(t, "open", slot.Status)
		assert.Equal(t, pro.ID, slot.ProfessionalID)
	})

	t.Run("Overlapping Slot Rejected", func(t *testing.T) {
		w := s.do("POST", "/v1/slots", gin.H{"date": date, "start_time": "10:30", "end_time": "11:30"}, proToken)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Inverted Range Rejected", func(t *testing.T) {
		w := s.do("POST", "/v1/slots", gin.H{"date": date, "start_time": "14:00", "end_time": "13:00"}, proToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Client Books Slot", func(t *testing.T) {
		w := s.do("POST", "/v1/bookings", gin.H{
			"professional_id": pro.ID,
			"slot_id":         slot.ID,
			"service_details": "haircut",
		}, clientToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		bk = decode[bookingHttp.BookingResponse](t, w)
		assert.Equal(t, "pending", bk.Status)
		assert.Equal(t, clientID, bk.ClientID)
		assert.Equal(t, date, bk.BookingDate)
	})

	t.Run("Second Booking Conflicts", func(t *testing.T) {
		w := s.do("POST", "/v1/bookings", gin.H{"professional_id": pro.ID, "slot_id": slot.ID}, otherClientToken)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Booked Slot Cannot Be Deleted", func(t *testing.T) {
		w := s.do("DELETE", "/v1/slots/"+slot.ID, nil, proToken)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Stranger Cannot Read Booking", func(t *testing.T) {
		w := s.do("GET", "/v1/bookings/"+bk.ID, nil, otherClientToken)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Client Cannot Confirm", func(t *testing.T) {
		w := s.do("PATCH", "/v1/bookings/"+bk.ID+"/status", gin.H{"status": "confirmed"}, clientToken)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Professional Confirms", func(t *testing.T) {
		w := s.do("PATCH", "/v1/bookings/"+bk.ID+"/status", gin.H{"status": "confirmed"}, proToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "confirmed", decode[bookingHttp.BookingResponse](t, w).Status)

		w = s.do("GET", "/v1/slots/"+slot.ID+"/booked", nil, clientToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decode[map[string]any](t, w)["booked"])
	})

	t.Run("Client Cancels", func(t *testing.T) {
		w := s.do("POST", "/v1/bookings/"+bk.ID+"/cancel", nil, clientToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "cancelled", decode[bookingHttp.BookingResponse](t, w).Status)

		w = s.do("GET", "/v1/slots/"+slot.ID, nil, clientToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "open", decode[availabilityHttp.SlotResponse](t, w).Status)
	})

	t.Run("Cancelled Is Terminal", func(t *testing.T) {
		w := s.do("PATCH", "/v1/bookings/"+bk.ID+"/status", gin.H{"status": "confirmed"}, proToken)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("List Mine", func(t *testing.T) {
		w := s.do("GET", "/v1/bookings/mine?status=cancelled", nil, clientToken)
		require.Equal(t, http.StatusOK, w.Code)
		page := decode[response.PageResponse[bookingHttp.BookingResponse]](t, w)
		assert.Equal(t, 1, page.Total)
		require.Len(t, page.Items, 1)
		assert.Equal(t, bk.ID, page.Items[0].ID)
	})

	t.Run("Open Slots Visible Again", func(t *testing.T) {
		w := s.do("GET", "/v1/professionals/"+pro.ID+"/slots/open?from="+date+"&to="+date, nil, clientToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		list := decode[response.ListResponse[availabilityHttp.SlotResponse]](t, w)
		require.Len(t, list.Items, 1)
		assert.Equal(t, slot.ID, list.Items[0].ID)
	})

	t.Run("Slot With Booking History Can Be Deleted", func(t *testing.T) {
		w := s.do("DELETE", "/v1/slots/"+slot.ID, nil, proToken)
		require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

		w = s.do("GET", "/v1/slots/"+slot.ID, nil, proToken)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = s.do("GET", "/v1/bookings/"+bk.ID, nil, clientToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		got := decode[bookingHttp.BookingResponse](t, w)
		assert.Empty(t, got.SlotID)
		assert.Equal(t, date, got.BookingDate)
		assert.Equal(t, "cancelled", got.Status)
	})

	assert.Len(t, s.events.Events(), 3)
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name  string
		actor *auth.Actor
		want  int
	}{
		{name: "no actor", actor: nil, want: http.StatusUnauthorized},
		{name: "wrong role", actor: &auth.Actor{ID: "u1", Role: auth.RoleClient}, want: http.StatusForbidden},
		{name: "allowed", actor: &auth.Actor{ID: "u1", Role: auth.RoleAdmin}, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", func(c *gin.Context) {
				if tt.actor != nil {
					auth.SetActor(c, *tt.actor)
				}
				c.Next()
			}, RequireRole(auth.RoleProfessional, auth.RoleAdmin), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/x", nil)
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
