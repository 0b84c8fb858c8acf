package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/rental-booking/internal/booking"
	"github.com/iliyamo/rental-booking/internal/model"
)

// PaymentHandler records deposits and rent and serves payment listings.
type PaymentHandler struct {
	Svc *booking.Service
}

func NewPaymentHandler(svc *booking.Service) *PaymentHandler {
	return &PaymentHandler{Svc: svc}
}

type depositReq struct {
	BookingID      uint64              `json:"booking_id"`
	Amount         decimal.Decimal     `json:"amount"`
	PaymentMethod  model.PaymentMethod `json:"payment_method"`
	TransactionRef string              `json:"transaction_ref"`
}

type rentReq struct {
	BookingID        uint64              `json:"booking_id"`
	ElectricityUnits decimal.Decimal     `json:"electricity_units"`
	PaymentMethod    model.PaymentMethod `json:"payment_method"`
	TransactionRef   string              `json:"transaction_ref"`
	DueDate          *date               `json:"due_date"`
}

type statusReq struct {
	Status model.PaymentStatus `json:"status"`
}

// Tariff handles GET /v1/payments/tariff.
func (h *PaymentHandler) Tariff(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Svc.Tariff())
}

// SecurityDeposit handles POST /v1/payments/security-deposit.
func (h *PaymentHandler) SecurityDeposit(c echo.Context) error {
	var req depositReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.BookingID == 0 {
		return badRequest(c, "booking_id is required")
	}
	ctx, cancel, actor, ok := call(c)
	defer cancel()
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	res, err := h.Svc.RecordSecurityDeposit(ctx, actor, booking.DepositRequest{
		BookingID:      req.BookingID,
		Amount:         req.Amount,
		Method:         req.PaymentMethod,
		TransactionRef: req.TransactionRef,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// MonthlyRent handles POST /v1/payments/monthly-rent.
func (h *PaymentHandler) MonthlyRent(c echo.Context) error {
	var req rentReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.BookingID == 0 {
		return badRequest(c, "booking_id is required")
	}
	ctx, cancel, actor, ok := call(c)
	defer cancel()
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	res, err := h.Svc.RecordMonthlyRent(ctx, actor, booking.RentRequest{
		BookingID:        req.BookingID,
		ElectricityUnits: req.ElectricityUnits,
		Method:           req.PaymentMethod,
		TransactionRef:   req.TransactionRef,
		DueDate:          req.DueDate.ptr(),
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// UpdateStatus handles PUT /v1/admin/payments/:id/status.
func (h *PaymentHandler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel, actor, ok := call(c)
	defer cancel()
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	p, err := h.Svc.UpdatePaymentStatus(ctx, actor, id, req.Status)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// ForBooking handles GET /v1/bookings/:id/payments.
func (h *PaymentHandler) ForBooking(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel, actor, ok := call(c)
	defer cancel()
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	list, err := h.Svc.BookingPayments(ctx, actor, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": list, "count": len(list)})
}

// List handles /v1/my-payments, /v1/owner/payments and /v1/admin/payments.
func (h *PaymentHandler) List(c echo.Context) error {
	ctx, cancel, actor, ok := call(c)
	defer cancel()
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	list, err := h.Svc.ListPayments(ctx, actor)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": list, "count": len(list)})
}
