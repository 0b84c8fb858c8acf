package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/rental-booking/internal/authz"
	"github.com/iliyamo/rental-booking/internal/booking"
	"github.com/iliyamo/rental-booking/internal/model"
)

// BookingHandler exposes the booking lifecycle to tenants, owners and
// admins. Role gating happens in the router; ownership checks happen in
// the service.
type BookingHandler struct {
	Svc *booking.Service
}

func NewBookingHandler(svc *booking.Service) *BookingHandler {
	return &BookingHandler{Svc: svc}
}

type applicationReq struct {
	PropertyID            uint64          `json:"property_id"`
	FullName              string          `json:"full_name"`
	Email                 string          `json:"email"`
	Phone                 string          `json:"phone"`
	CurrentAddress        string          `json:"current_address"`
	Occupation            string          `json:"occupation"`
	MonthlyIncome         decimal.Decimal `json:"monthly_income"`
	EmergencyContactName  string          `json:"emergency_contact_name"`
	EmergencyContactPhone string          `json:"emergency_contact_phone"`
	MoveInDate            date            `json:"move_in_date"`
	FamilySize            int             `json:"family_size"`
	HasChildren           bool            `json:"has_children"`
	HasPets               bool            `json:"has_pets"`
	AdditionalNotes       string          `json:"additional_notes"`
	IDDocument            string          `json:"id_document"`
}

func (r applicationReq) details() model.ApplicantDetails {
	return model.ApplicantDetails{
		FullName:              r.FullName,
		Email:                 r.Email,
		Phone:                 r.Phone,
		CurrentAddress:        r.CurrentAddress,
		Occupation:            r.Occupation,
		MonthlyIncome:         r.MonthlyIncome,
		EmergencyContactName:  r.EmergencyContactName,
		EmergencyContactPhone: r.EmergencyContactPhone,
		MoveInDate:            r.MoveInDate.Time,
		FamilySize:            r.FamilySize,
		HasChildren:           r.HasChildren,
		HasPets:               r.HasPets,
		AdditionalNotes:       r.AdditionalNotes,
		IDDocument:            r.IDDocument,
	}
}

type leaseTermsReq struct {
	LeaseDuration   string `json:"lease_duration"`
	LeaseStartDate  date   `json:"lease_start_date"`
	AdditionalTerms string `json:"additional_terms"`
}

type reasonReq struct {
	Reason string `json:"reason"`
}

// Submit handles POST /v1/bookings.
func (h *BookingHandler) Submit(c echo.Context) error {
	var req applicationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.PropertyID == 0 {
		return badRequest(c, "property_id is required")
	}
	ctx, cancel, actor, ok := call(c)
	defer cancel()
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	b, err := h.Svc.SubmitApplication(ctx, actor, req.PropertyID, req.details())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// SubmitLeaseTerms handles PUT /v1/bookings/:id/lease-terms.
func (h *BookingHandler) SubmitLeaseTerms(c echo.Context) error {
	var req leaseTermsReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	return h.transition(c, func(svc *booking.Service, ctx context.Context, actor authz.Actor, id uint64) (*model.Booking, error) {
		return svc.SubmitLeaseTerms(ctx, actor, id, booking.LeaseTerms{
			Duration:        req.LeaseDuration,
			StartDate:       req.LeaseStartDate.Time,
			AdditionalTerms: req.AdditionalTerms,
		})
	})
}

// PresentAgreement handles POST /v1/bookings/:id/agreement.
func (h *BookingHandler) PresentAgreement(c echo.Context) error {
	return h.transition(c, (*booking.Service).PresentAgreement)
}

// ApproveAgreement handles PUT /v1/bookings/:id/approve-agreement.
func (h *BookingHandler) ApproveAgreement(c echo.Context) error {
	return h.transition(c, (*booking.Service).ApproveAgreement)
}

// DeclineAgreement handles PUT /v1/bookings/:id/decline-agreement. The
// reason is optional.
func (h *BookingHandler) DeclineAgreement(c echo.Context) error {
	return h.withReason(c, (*booking.Service).DeclineAgreement)
}

// OwnerApprove handles PUT /v1/owner/bookings/:id/approve.
func (h *BookingHandler) OwnerApprove(c echo.Context) error {
	return h.transition(c, (*booking.Service).OwnerApprove)
}

// OwnerReject handles PUT /v1/owner/bookings/:id/reject.
func (h *BookingHandler) OwnerReject(c echo.Context) error {
	return h.withReason(c, (*booking.Service).OwnerReject)
}

// OwnerApproveLease handles PUT /v1/owner/bookings/:id/approve-lease.
func (h *BookingHandler) OwnerApproveLease(c echo.Context) error {
	return h.transition(c, (*booking.Service).OwnerApproveLease)
}

// OwnerRejectLease handles PUT /v1/owner/bookings/:id/reject-lease.
func (h *BookingHandler) OwnerRejectLease(c echo.Context) error {
	return h.withReason(c, (*booking.Service).OwnerRejectLease)
}

// AdminReject handles PUT /v1/admin/bookings/:id/reject.
func (h *BookingHandler) AdminReject(c echo.Context) error {
	return h.withReason(c, (*booking.Service).AdminReject)
}

// AdminTerminate handles PUT /v1/admin/bookings/:id/terminate.
func (h *BookingHandler) AdminTerminate(c echo.Context) error {
	return h.withReason(c, (*booking.Service).AdminTerminate)
}

// Get handles GET /v1/bookings/:id for any party to the booking.
func (h *BookingHandler) Get(c echo.Context) error {
	return h.transition(c, (*booking.Service).GetBooking)
}

// List handles the role scoped listings: /v1/my-bookings,
// /v1/owner/bookings and /v1/admin/bookings.
func (h *BookingHandler) List(c echo.Context) error {
	ctx, cancel, actor, ok := call(c)
	defer cancel()
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	list, err := h.Svc.ListBookings(ctx, actor)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list, "count": len(list)})
}

func (h *BookingHandler) withReason(c echo.Context, op func(*booking.Service, context.Context, authz.Actor, uint64, string) (*model.Booking, error)) error {
	var req reasonReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	return h.transition(c, func(svc *booking.Service, ctx context.Context, actor authz.Actor, id uint64) (*model.Booking, error) {
		return op(svc, ctx, actor, id, req.Reason)
	})
}

func (h *BookingHandler) transition(c echo.Context, op func(*booking.Service, context.Context, authz.Actor, uint64) (*model.Booking, error)) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel, actor, ok := call(c)
	defer cancel()
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	b, err := op(h.Svc, ctx, actor, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}
