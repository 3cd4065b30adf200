package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tourhub/config"
	"tourhub/internal/cache"
	"tourhub/internal/domain"
	"tourhub/internal/models"
	"tourhub/internal/testutil"
	"tourhub/internal/ws"
	"tourhub/pkg/cloudinary"
	"tourhub/pkg/mailer"
	"tourhub/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	gw     *payment.StubGateway
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	cfg := &config.Config{
		Server: config.ServerConfig{Env: "test"},
		JWT: config.JWTConfig{
			AccessSecret:  "access",
			RefreshSecret: "refresh",
			ResetSecret:   "reset",
			AccessExpiry:  time.Hour,
			RefreshExpiry: 24 * time.Hour,
			ResetExpiry:   10 * time.Minute,
			Issuer:        "tourhub-test",
		},
		Cloudinary: config.CloudinaryConfig{Folder: "tourhub"},
		Payment: config.PaymentConfig{
			Provider:          "stub",
			Currency:          "usd",
			SuccessURL:        "http://localhost:3000/payment/success",
			CancelURL:         "http://localhost:3000/payment/cancel",
			SessionExpiry:     30 * time.Minute,
			SettlementTimeout: 5 * time.Second,
		},
		Payout: config.PayoutConfig{MinimumCents: 5000, MaxAttempts: 3},
		App:    config.AppConfig{Name: "TourHub", FrontendURL: "http://localhost:3000"},
	}
	gw := payment.NewStubGateway("whsec_test")
	deps := Deps{
		Cloud:   cloudinary.Disabled{},
		Gateway: gw,
		Mailer:  &mailer.Recorder{},
		Locker:  cache.NewMemoryLocker(),
		Hub:     ws.NewHub(),
	}
	return &testServer{engine: Setup(cfg, NewServices(cfg, db, deps), deps), db: db, gw: gw}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": testutil.Password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.AccessToken)
	return data.AccessToken
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
}

func TestLoginAndMe(t *testing.T) {
	s := newTestServer(t)
	user, _ := testutil.CreateTourist(t, s.db)

	w, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": user.Email, "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)

	token := s.login(t, user.Email)
	w, env = s.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var me models.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, user.Email, me.Email)
	assert.Equal(t, domain.RoleTourist, me.Role)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodGet, "/api/v1/bookings/my-bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "You are not authorized", env.Message)

	w, _ = s.do(t, http.MethodGet, "/api/v1/bookings/my-bookings", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleGuards(t *testing.T) {
	s := newTestServer(t)
	user, _ := testutil.CreateTourist(t, s.db)
	token := s.login(t, user.Email)

	w, _ := s.do(t, http.MethodGet, "/api/v1/payments/payouts", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := s.do(t, http.MethodGet, "/api/v1/users", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Admin access required", env.Message)
}

func TestWebhookRejectsUnsignedEvents(t *testing.T) {
	s := newTestServer(t)
	body := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stub", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stub", bytes.NewReader(body))
	req.Header.Set(s.gw.SignatureHeader(), "deadbeef")
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid webhook signature")
}

func TestWebhookRejectsOversizedBody(t *testing.T) {
	s := newTestServer(t)
	body := bytes.Repeat([]byte("x"), 1<<20+1)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stub", bytes.NewReader(body))
	req.Header.Set(s.gw.SignatureHeader(), s.gw.Sign(body))
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "Webhook payload too large")
}

func TestBookingPaidThroughWebhook(t *testing.T) {
	s := newTestServer(t)
	_, host := testutil.CreateHost(t, s.db)
	tourist, _ := testutil.CreateTourist(t, s.db)
	tour := testutil.CreateTour(t, s.db, host.ID, 5000, 2)
	token := s.login(t, tourist.Email)

	w, env := s.do(t, http.MethodPost, "/api/v1/bookings", token, gin.H{
		"tour_id": tour.ID, "number_of_people": 2, "total_amount": 100.0, "payment_method": "ONLINE",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var booking models.Booking
	require.NoError(t, json.Unmarshal(env.Data, &booking))
	assert.Equal(t, domain.BookingPending, booking.Status)

	w, env = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/initiate-payment", booking.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var co struct {
		SessionID string `json:"session_id"`
		URL       string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &co))
	require.NotEmpty(t, co.SessionID)

	sess, err := s.gw.GetCheckoutSession(context.Background(), co.SessionID)
	require.NoError(t, err)
	sess.Status = payment.SessionComplete
	sess.PaymentStatus = payment.PaymentStatusPaid
	sess.PaymentIntentID = "pi_http"
	body, sig, err := s.gw.SignedEvent("evt_http", payment.EventCheckoutCompleted, sess)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stub", bytes.NewReader(body))
	req.Header.Set(s.gw.SignatureHeader(), sig)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())

	w, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d", booking.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &booking))
	assert.Equal(t, domain.BookingConfirmed, booking.Status)
	assert.Equal(t, domain.PaymentCompleted, booking.PaymentStatus)

	other, _ := testutil.CreateTourist(t, s.db)
	w, env = s.do(t, http.MethodPost, "/api/v1/bookings", s.login(t, other.Email), gin.H{
		"tour_id": tour.ID, "number_of_people": 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Only 0 spots available for this tour", env.Message)
}

func TestPublicTourListing(t *testing.T) {
	s := newTestServer(t)
	_, host := testutil.CreateHost(t, s.db)
	testutil.CreateTour(t, s.db, host.ID, 5000, 2)

	w, env := s.do(t, http.MethodGet, "/api/v1/tour?limit=5", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tours []models.Tour
	require.NoError(t, json.Unmarshal(env.Data, &tours))
	assert.Len(t, tours, 1)
}
