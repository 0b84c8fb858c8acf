package booking

import (
	"github.com/iliyamo/rental-booking/internal/apperr"
	"github.com/iliyamo/rental-booking/internal/model"
)

// Event is an input to the booking state machine.
type Event string

const (
	EventOwnerApprove      Event = "owner_approve"
	EventOwnerReject       Event = "owner_reject"
	EventSubmitLeaseTerms  Event = "submit_lease_terms"
	EventOwnerApproveLease Event = "owner_approve_lease"
	EventOwnerRejectLease  Event = "owner_reject_lease"
	EventPresentAgreement  Event = "present_agreement"
	EventApproveAgreement  Event = "approve_agreement"
	EventDeclineAgreement  Event = "decline_agreement"
	EventDepositPaid       Event = "deposit_paid"
	EventRentPaid          Event = "rent_paid"
	EventAdminReject       Event = "admin_reject"
	EventAdminTerminate    Event = "admin_terminate"
)

// transitions is the complete edge set. Any (status, event) pair absent
// here is an invalid transition.
var transitions = map[model.BookingStatus]map[Event]model.BookingStatus{
	model.StatusPendingOwnerApproval: {
		EventOwnerApprove: model.StatusApproved,
		EventOwnerReject:  model.StatusRejected,
		EventAdminReject:  model.StatusRejected,
	},
	model.StatusApproved: {
		EventSubmitLeaseTerms: model.StatusLeaseTermsSubmitted,
		EventAdminReject:      model.StatusRejected,
	},
	model.StatusLeaseTermsSubmitted: {
		EventOwnerApproveLease: model.StatusLeaseTermsApproved,
		EventOwnerRejectLease:  model.StatusRejected,
		EventAdminReject:       model.StatusRejected,
	},
	model.StatusLeaseTermsApproved: {
		EventPresentAgreement: model.StatusAgreementPending,
		EventApproveAgreement: model.StatusAgreementApproved,
		EventDeclineAgreement: model.StatusAgreementDeclined,
		EventAdminReject:      model.StatusRejected,
	},
	model.StatusAgreementPending: {
		EventApproveAgreement: model.StatusAgreementApproved,
		EventDeclineAgreement: model.StatusAgreementDeclined,
		EventAdminReject:      model.StatusRejected,
	},
	model.StatusAgreementApproved: {
		EventDepositPaid: model.StatusPaymentCompleted,
		EventAdminReject: model.StatusRejected,
	},
	model.StatusPaymentCompleted: {
		EventRentPaid:       model.StatusActive,
		EventAdminTerminate: model.StatusTerminated,
	},
	model.StatusActive: {
		EventRentPaid:       model.StatusActive,
		EventAdminTerminate: model.StatusTerminated,
	},
}

// Next returns the status reached by applying ev in from, or an
// invalid_state error if the edge does not exist.
func Next(from model.BookingStatus, ev Event) (model.BookingStatus, error) {
	if to, ok := transitions[from][ev]; ok {
		return to, nil
	}
	return "", apperr.InvalidState("cannot %s a booking in status %q", ev.verb(), from)
}

// CanApply reports whether ev is defined in status from.
func CanApply(from model.BookingStatus, ev Event) bool {
	_, ok := transitions[from][ev]
	return ok
}

// Events lists the events accepted in status s.
func Events(s model.BookingStatus) []Event {
	out := make([]Event, 0, len(transitions[s]))
	for _, ev := range allEvents {
		if CanApply(s, ev) {
			out = append(out, ev)
		}
	}
	return out
}

var allEvents = []Event{
	EventOwnerApprove, EventOwnerReject, EventSubmitLeaseTerms,
	EventOwnerApproveLease, EventOwnerRejectLease, EventPresentAgreement,
	EventApproveAgreement, EventDeclineAgreement, EventDepositPaid,
	EventRentPaid, EventAdminReject, EventAdminTerminate,
}

func (e Event) verb() string {
	switch e {
	case EventOwnerApprove:
		return "approve"
	case EventOwnerReject, EventAdminReject:
		return "reject"
	case EventSubmitLeaseTerms:
		return "submit lease terms for"
	case EventOwnerApproveLease:
		return "approve lease terms of"
	case EventOwnerRejectLease:
		return "reject lease terms of"
	case EventPresentAgreement:
		return "present the agreement of"
	case EventApproveAgreement:
		return "approve the agreement of"
	case EventDeclineAgreement:
		return "decline the agreement of"
	case EventDepositPaid:
		return "record a security deposit for"
	case EventRentPaid:
		return "record monthly rent for"
	case EventAdminTerminate:
		return "terminate"
	}
	return string(e)
}
