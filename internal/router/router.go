// Package router wires handlers and middleware onto Echo routes.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-booking/internal/handler"
	"github.com/iliyamo/rental-booking/internal/middleware"
	"github.com/iliyamo/rental-booking/internal/model"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Auth     *handler.AuthHandler
	Bookings *handler.BookingHandler
	Payments *handler.PaymentHandler
}

// Middleware carries the optional Redis backed middleware. Nil entries
// are skipped. Cache is applied to per-user listings, so it must key on
// the caller.
type Middleware struct {
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// RegisterRoutes registers unauthenticated routes.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the token endpoints under /v1/auth and /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, mw Middleware) {
	g := e.Group("/v1/auth", use(mw.RateLimit)...)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.JWTAuth(jwtSecret))

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterRental registers the booking and payment API. Every route needs
// a valid access token; role groups narrow who may call what and the
// service enforces ownership.
func RegisterRental(e *echo.Echo, h Handlers, jwtSecret string, mw Middleware) {
	auth := middleware.JWTAuth(jwtSecret)
	roles := func(r ...model.Role) []echo.MiddlewareFunc {
		return append(append([]echo.MiddlewareFunc{auth}, use(mw.RateLimit)...), middleware.RequireRole(r...))
	}
	listing := use(mw.Cache)

	shared := e.Group("/v1", roles(model.RoleTenant, model.RoleOwner, model.RoleAdmin)...)
	shared.GET("/payments/tariff", h.Payments.Tariff, listing...)
	shared.GET("/bookings/:id", h.Bookings.Get)
	shared.GET("/bookings/:id/payments", h.Payments.ForBooking)

	tenant := e.Group("/v1", roles(model.RoleTenant)...)
	tenant.POST("/bookings", h.Bookings.Submit)
	tenant.PUT("/bookings/:id/lease-terms", h.Bookings.SubmitLeaseTerms)
	tenant.POST("/bookings/:id/agreement", h.Bookings.PresentAgreement)
	tenant.PUT("/bookings/:id/approve-agreement", h.Bookings.ApproveAgreement)
	tenant.PUT("/bookings/:id/decline-agreement", h.Bookings.DeclineAgreement)
	tenant.POST("/payments/security-deposit", h.Payments.SecurityDeposit)
	tenant.POST("/payments/monthly-rent", h.Payments.MonthlyRent)
	tenant.GET("/my-bookings", h.Bookings.List, listing...)
	tenant.GET("/my-payments", h.Payments.List, listing...)

	owner := e.Group("/v1/owner", roles(model.RoleOwner)...)
	owner.PUT("/bookings/:id/approve", h.Bookings.OwnerApprove)
	owner.PUT("/bookings/:id/reject", h.Bookings.OwnerReject)
	owner.PUT("/bookings/:id/approve-lease", h.Bookings.OwnerApproveLease)
	owner.PUT("/bookings/:id/reject-lease", h.Bookings.OwnerRejectLease)
	owner.GET("/bookings", h.Bookings.List, listing...)
	owner.GET("/payments", h.Payments.List, listing...)

	admin := e.Group("/v1/admin", roles(model.RoleAdmin)...)
	admin.GET("/bookings", h.Bookings.List, listing...)
	admin.GET("/payments", h.Payments.List, listing...)
	admin.PUT("/bookings/:id/reject", h.Bookings.AdminReject)
	admin.PUT("/bookings/:id/terminate", h.Bookings.AdminTerminate)
	admin.PUT("/payments/:id/status", h.Payments.UpdateStatus)
}

func use(mw echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if mw == nil {
		return nil
	}
	return []echo.MiddlewareFunc{mw}
}
