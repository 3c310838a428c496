package clinic

import (
	"fmt"
	"time"

	"github.com/rowguard/rowguard"
)

// Cross-field checks mirror the schema's CHECK constraints. They run on
// every write of the affected relation, against the post-write field
// values, so a partial update cannot slip an inverted range past them.

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

// CheckRow applies the relation's cross-field constraints to row. Fields
// that are absent are skipped; a constraint fires only when both of its
// operands are present and parse.
func CheckRow(row rowguard.Row) error {
	switch row.Relation {
	case RelAppointments:
		if err := checkOrder(row, "start_time", "end_time", timeLayout, false); err != nil {
			return err
		}
		if s, ok := row.Field("status"); ok {
			return CheckStatus(RelAppointments, s)
		}
	case RelInvoices:
		if err := checkOrder(row, "issued_date", "due_date", dateLayout, true); err != nil {
			return err
		}
		if s, ok := row.Field("status"); ok {
			return CheckStatus(RelInvoices, s)
		}
	case RelInsurance:
		if err := checkOrder(row, "coverage_start_date", "coverage_end_date", dateLayout, true); err != nil {
			return err
		}
		return checkOrder(row, "issued_date", "expiry_date", dateLayout, false)
	}
	return nil
}

// checkOrder enforces before < after, or before <= after when orEqual is
// set. Unparseable values fail closed as constraint violations rather than
// passing unexamined.
func checkOrder(row rowguard.Row, before, after, layout string, orEqual bool) error {
	bv, bok := row.Field(before)
	av, aok := row.Field(after)
	if !bok || !aok {
		return nil
	}
	bt, err := time.Parse(layout, bv)
	if err != nil {
		return fmt.Errorf("%w: %s %q is not a valid timestamp", rowguard.ErrConstraintViolation, before, bv)
	}
	at, err := time.Parse(layout, av)
	if err != nil {
		return fmt.Errorf("%w: %s %q is not a valid timestamp", rowguard.ErrConstraintViolation, after, av)
	}
	if orEqual {
		if at.Before(bt) {
			return fmt.Errorf("%w: %s must not precede %s", rowguard.ErrConstraintViolation, after, before)
		}
		return nil
	}
	if !at.After(bt) {
		return fmt.Errorf("%w: %s must follow %s", rowguard.ErrConstraintViolation, after, before)
	}
	return nil
}
