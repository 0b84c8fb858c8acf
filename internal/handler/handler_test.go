package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/rental-booking/internal/booking"
	"github.com/iliyamo/rental-booking/internal/config"
	"github.com/iliyamo/rental-booking/internal/handler"
	"github.com/iliyamo/rental-booking/internal/ledger"
	"github.com/iliyamo/rental-booking/internal/model"
	"github.com/iliyamo/rental-booking/internal/repository/memory"
	"github.com/iliyamo/rental-booking/internal/router"
	"github.com/iliyamo/rental-booking/internal/utils"
)

const password = "s3cret-pass"

var today = time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)

type api struct {
	t     *testing.T
	e     *echo.Echo
	store *memory.Store
}

func newAPI(t *testing.T) *api {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)

	st := memory.New()
	users := []model.User{
		{ID: 1, Email: "tenant@example.com", Role: model.RoleTenant, ApprovalStatus: model.ApprovalActive},
		{ID: 2, Email: "owner@example.com", Role: model.RoleOwner, ApprovalStatus: model.ApprovalActive},
		{ID: 3, Email: "admin@example.com", Role: model.RoleAdmin, ApprovalStatus: model.ApprovalActive},
		{ID: 4, Email: "pending@example.com", Role: model.RoleOwner, ApprovalStatus: model.ApprovalPending},
	}
	for _, u := range users {
		u.PasswordHash = hash
		st.PutUser(u)
	}
	st.PutProperty(model.Property{
		ID:      10,
		OwnerID: 2,
		Title:   "Two room flat",
		Rent:    decimal.NewFromInt(25000),
		Deposit: decimal.NewFromInt(50000),
		Status:  model.PropertyActive,
	})

	clock := func() time.Time { return today }
	l := ledger.New(ledger.DefaultTariff, decimal.RequireFromString("0.01"), ledger.WithClock(clock))
	svc := booking.NewService(st, st, l, booking.WithClock(clock))
	cfg := config.Config{JWTSecret: "handler-test", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: bcrypt.MinCost}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, st, st), cfg.JWTSecret, router.Middleware{})
	router.RegisterRental(e, router.Handlers{
		Bookings: handler.NewBookingHandler(svc),
		Payments: handler.NewPaymentHandler(svc),
	}, cfg.JWTSecret, router.Middleware{})
	return &api{t: t, e: e, store: st}
}

func (a *api) do(method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	a.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	var out map[string]any
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func (a *api) login(email string) (access, refresh string) {
	a.t.Helper()
	rec, out := a.do(http.MethodPost, "/v1/auth/login", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	return out["access"].(map[string]any)["token"].(string), out["refresh"].(map[string]any)["token"].(string)
}

const application = `{
	"property_id": 10,
	"full_name": "Sita Sharma",
	"email": "sita@example.com",
	"phone": "9800000000",
	"current_address": "Lalitpur",
	"occupation": "Engineer",
	"monthly_income": "120000",
	"emergency_contact_name": "Ram Sharma",
	"emergency_contact_phone": "9811111111",
	"move_in_date": "2024-02-01",
	"family_size": 3
}`

func TestHealth(t *testing.T) {
	rec, _ := newAPI(t).do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestLogin(t *testing.T) {
	a := newAPI(t)

	rec, out := a.do(http.MethodPost, "/v1/auth/login", "", `{"email":"tenant@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", out["error"])

	rec, _ = a.do(http.MethodPost, "/v1/auth/login", "", `{"email":"nobody@example.com","password":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, out = a.do(http.MethodPost, "/v1/auth/login", "", `{"email":"pending@example.com","password":"`+password+`"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "authorization_error", out["error"])

	rec, _ = a.do(http.MethodPost, "/v1/auth/login", "", `{"email":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	access, _ := a.login(" Tenant@Example.com ")
	rec, out = a.do(http.MethodGet, "/v1/me", access, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "TENANT", out["user"].(map[string]any)["role"])
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	a := newAPI(t)
	access, refresh := a.login("owner@example.com")

	rec, out := a.do(http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+refresh+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	next := out["refresh"].(map[string]any)["token"].(string)
	assert.NotEqual(t, refresh, next)

	rec, _ = a.do(http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+refresh+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = a.do(http.MethodPost, "/v1/auth/logout", access, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = a.do(http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+next+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t)
	tenant, _ := a.login("tenant@example.com")
	owner, _ := a.login("owner@example.com")
	admin, _ := a.login("admin@example.com")

	rec, out := a.do(http.MethodPost, "/v1/bookings", tenant, application)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Pending Owner Approval", out["status"])
	base := "/v1/bookings/" + jsonID(out)
	ownerBase := "/v1/owner" + strings.TrimPrefix(base, "/v1")

	// tenants cannot reach owner routes at all
	rec, _ = a.do(http.MethodPut, ownerBase+"/approve", tenant, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, out = a.do(http.MethodPut, ownerBase+"/approve", owner, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Approved", out["status"])

	rec, out = a.do(http.MethodPut, ownerBase+"/approve", owner, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state", out["error"])

	rec, out = a.do(http.MethodPut, base+"/lease-terms", tenant, `{"lease_duration":"abc years","lease_start_date":"2024-02-01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", out["error"])

	rec, out = a.do(http.MethodPut, base+"/lease-terms", tenant, `{"lease_duration":"1 year","lease_start_date":"2024-02-01"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Lease Terms Submitted", out["status"])
	assert.True(t, strings.HasPrefix(out["lease_end_date"].(string), "2025-02-01"))

	rec, _ = a.do(http.MethodPut, ownerBase+"/approve-lease", owner, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec, _ = a.do(http.MethodPost, base+"/agreement", tenant, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec, out = a.do(http.MethodPut, base+"/approve-agreement", tenant, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Agreement Approved", out["status"])

	id := jsonID(out)
	rec, out = a.do(http.MethodPost, "/v1/payments/security-deposit", tenant, `{"booking_id":`+id+`,"amount":49000,"payment_method":"eSewa"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", out["error"])

	rec, out = a.do(http.MethodPost, "/v1/payments/security-deposit", tenant, `{"booking_id":`+id+`,"amount":50000,"payment_method":"eSewa","transaction_ref":"TXN-DEP-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Payment Completed", out["booking"].(map[string]any)["status"])
	assert.Equal(t, "Completed", out["payment"].(map[string]any)["status"])

	rec, out = a.do(http.MethodPost, "/v1/payments/security-deposit", tenant, `{"booking_id":`+id+`,"amount":50000,"payment_method":"eSewa","transaction_ref":"TXN-DEP-1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, out = a.do(http.MethodPost, "/v1/payments/monthly-rent", tenant, `{"booking_id":`+id+`,"electricity_units":"123.45","payment_method":"Khalti"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Active", out["booking"].(map[string]any)["status"])
	assert.Equal(t, "28481.4", out["payment"].(map[string]any)["amount"])

	rec, out = a.do(http.MethodGet, base+"/payments", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, out["count"])

	rec, out = a.do(http.MethodGet, "/v1/my-bookings", tenant, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, out["count"])

	rec, out = a.do(http.MethodPut, "/v1/admin/bookings/"+id+"/terminate", admin, `{"reason":"lease breach"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Terminated", out["status"])
}

func TestErrorsOverHTTP(t *testing.T) {
	a := newAPI(t)
	tenant, _ := a.login("tenant@example.com")
	owner, _ := a.login("owner@example.com")

	rec, _ := a.do(http.MethodGet, "/v1/my-bookings", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, out := a.do(http.MethodPost, "/v1/bookings", tenant, `{"property_id":10,"full_name":"Sita"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, out["message"], "phone")

	rec, out = a.do(http.MethodGet, "/v1/bookings/999", tenant, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", out["error"])

	rec, _ = a.do(http.MethodGet, "/v1/bookings/abc", tenant, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out = a.do(http.MethodPost, "/v1/bookings", tenant, application)
	require.Equal(t, http.StatusCreated, rec.Code)
	ownerPath := "/v1/owner/bookings/" + jsonID(out) + "/reject"

	rec, out = a.do(http.MethodPut, ownerPath, owner, `{"reason":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", out["error"])

	rec, out = a.do(http.MethodPut, ownerPath, owner, `{"reason":"income too low"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Rejected", out["status"])
	assert.Equal(t, "income too low", out["rejection_reason"])

	rec, _ = a.do(http.MethodGet, "/v1/payments/tariff", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"electricity_unit_rate":"12","water_charge":"1500","garbage_charge":"500"}`, rec.Body.String())
}

func jsonID(out map[string]any) string {
	return decimal.NewFromFloat(out["id"].(float64)).String()
}
