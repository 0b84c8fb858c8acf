// Package handler contains the Echo HTTP handlers. Handlers decode the
// request, call the booking service and translate typed errors into
// status codes; they hold no business rules of their own.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-booking/internal/apperr"
	"github.com/iliyamo/rental-booking/internal/authz"
	"github.com/iliyamo/rental-booking/internal/middleware"
)

const requestTimeout = 5 * time.Second

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:    http.StatusBadRequest,
	apperr.KindInvalidState:  http.StatusConflict,
	apperr.KindAuthorization: http.StatusForbidden,
	apperr.KindNotFound:      http.StatusNotFound,
	apperr.KindConflict:      http.StatusConflict,
	apperr.KindInternal:      http.StatusInternalServerError,
}

// fail writes err as {"error": kind, "message": text}.
func fail(c echo.Context, err error) error {
	kind := apperr.KindOf(err)
	if errors.Is(err, context.DeadlineExceeded) {
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "timeout", "message": "request timed out"})
	}
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, echo.Map{"error": kind, "message": apperr.MessageOf(err)})
}

func badRequest(c echo.Context, msg string) error {
	return fail(c, apperr.Validation("%s", msg))
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": msg})
}

func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid %s", name)
	}
	return id, nil
}

// call prepares a bounded context and the authenticated actor for a
// service call.
func call(c echo.Context) (context.Context, context.CancelFunc, authz.Actor, bool) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	actor, ok := middleware.ActorFrom(c)
	return ctx, cancel, actor, ok
}

// date accepts "2006-01-02" or RFC 3339 in JSON bodies. An RFC 3339 value
// keeps the calendar day of its own offset and is stored as midnight UTC.
type date struct{ time.Time }

func (d *date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return apperr.Validation("invalid date %q", s)
	}
	y, m, day := t.Date()
	d.Time = time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	return nil
}

func (d *date) ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}
