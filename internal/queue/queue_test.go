package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/rental-booking/internal/booking"
	"github.com/iliyamo/rental-booking/internal/model"
)

func TestHandleMessageAppendsAuditLine(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audit")
	c := NewConsumer("", "booking.status_changed", dir, zap.NewNop())

	ev := EventFromChange(booking.StatusChange{
		BookingID:  42,
		PropertyID: 10,
		TenantID:   1,
		From:       model.StatusAgreementApproved,
		To:         model.StatusPaymentCompleted,
		Event:      booking.EventDepositPaid,
		ActorID:    1,
		ActorRole:  model.RoleTenant,
		PaymentID:  7,
		OccurredAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, c.handleMessage(body))
	require.NoError(t, c.handleMessage(body))

	data, err := os.ReadFile(filepath.Join(dir, "booking.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t,
		`[2024-03-01T10:00:00Z] Booking status changed | booking_id=42 | property_id=10 | tenant_id=1 | from="Agreement Approved" | to="Payment Completed" | actor=TENANT:1 | payment_id=7`,
		lines[0])
}

func TestHandleMessageRejectsBadPayloads(t *testing.T) {
	c := NewConsumer("", "q", t.TempDir(), zap.NewNop())
	assert.Error(t, c.handleMessage([]byte("not json")))
	assert.Error(t, c.handleMessage([]byte(`{"booking_id":0,"to":"Active"}`)))
}

func TestEventFromNewApplication(t *testing.T) {
	ev := EventFromChange(booking.StatusChange{BookingID: 1, To: model.StatusPendingOwnerApproval})
	body, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.NotContains(t, string(body), `"from"`)
}
