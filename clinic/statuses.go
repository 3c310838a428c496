package clinic

import (
	"fmt"

	"github.com/rowguard/rowguard"
)

// Status value sets. Membership is the only constraint: any declared value
// may be written at any time, and no transition order is enforced.

// Appointment statuses. scheduled -> {confirmed, cancelled} ->
// {completed, no-show} is the intended flow, but only membership is
// checked, not transition order.
const (
	AppointmentScheduled = "scheduled"
	AppointmentConfirmed = "confirmed"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
	AppointmentNoShow    = "no-show"
)

// Invoice statuses. This stored column is independent of the derived
// payment_status computed by the balance projection.
const (
	InvoicePending       = "pending"
	InvoicePartiallyPaid = "partially_paid"
	InvoicePaid          = "paid"
	InvoiceOverdue       = "overdue"
	InvoiceCancelled     = "cancelled"
)

var appointmentStatuses = map[string]bool{
	AppointmentScheduled: true,
	AppointmentConfirmed: true,
	AppointmentCompleted: true,
	AppointmentCancelled: true,
	AppointmentNoShow:    true,
}

var invoiceStatuses = map[string]bool{
	InvoicePending:       true,
	InvoicePartiallyPaid: true,
	InvoicePaid:          true,
	InvoiceOverdue:       true,
	InvoiceCancelled:     true,
}

// ValidStatus reports whether value belongs to the declared set for the
// relation. Relations without a status column accept nothing.
func ValidStatus(relation rowguard.Relation, value string) bool {
	switch relation {
	case RelAppointments:
		return appointmentStatuses[value]
	case RelInvoices:
		return invoiceStatuses[value]
	}
	return false
}

// CheckStatus is ValidStatus as an error, for use in write paths.
func CheckStatus(relation rowguard.Relation, value string) error {
	if !ValidStatus(relation, value) {
		return fmt.Errorf("%w: %q is not a valid %s status",
			rowguard.ErrConstraintViolation, value, relation)
	}
	return nil
}
