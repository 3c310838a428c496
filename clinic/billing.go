package clinic

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rowguard/rowguard"
)

// Derived payment_status values. Computed, never stored; the invoice's
// stored status column is a separate free-form field.
const (
	PaymentStatusPaid    = "paid"
	PaymentStatusPartial = "partial"
	PaymentStatusOverdue = "overdue"
	PaymentStatusUnknown = "unknown"
)

// Cents is a money amount in integer cents. All arithmetic in the balance
// projection is integral; the decimal point exists only at parse and
// format time.
type Cents int64

// ParseCents reads a decimal amount such as "100.00" or "0.5" or "250".
// More than two fractional digits is rejected.
func ParseCents(s string) (Cents, error) {
	whole, frac, _ := strings.Cut(s, ".")
	neg := strings.HasPrefix(whole, "-")
	whole = strings.TrimPrefix(whole, "-")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("parse amount %q: empty", s)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("parse amount %q: more than two fractional digits", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	var total Cents
	for _, part := range []string{whole, frac} {
		for _, r := range part {
			if r < '0' || r > '9' {
				return 0, fmt.Errorf("parse amount %q: invalid character %q", s, r)
			}
			total = total*10 + Cents(r-'0')
		}
	}
	if neg {
		total = -total
	}
	return total, nil
}

// String renders the amount with two decimal places.
func (c Cents) String() string {
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// BalanceRow is one entry of the outstanding_balances projection.
type BalanceRow struct {
	InvoiceID     string `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
	PatientID     string `json:"patient_id"`
	PatientName   string `json:"patient_name"`
	TotalAmount   Cents  `json:"total_amount"`
	AmountPaid    Cents  `json:"amount_paid"`
	BalanceDue    Cents  `json:"balance_due"`
	DueDate       string `json:"due_date"`
	PaymentStatus string `json:"payment_status"`
}

// PaymentStatus classifies a balance. Overdue requires an outstanding
// amount, so a fully paid invoice reads paid no matter how late it was
// settled. The unknown branch is only reachable on an overpayment.
func PaymentStatus(totalAmount, amountPaid Cents, dueDate string, today time.Time) string {
	balance := totalAmount - amountPaid
	if balance > 0 && pastDue(dueDate, today) {
		return PaymentStatusOverdue
	}
	switch {
	case balance == 0:
		return PaymentStatusPaid
	case balance > 0:
		return PaymentStatusPartial
	}
	return PaymentStatusUnknown
}

func pastDue(dueDate string, today time.Time) bool {
	due, err := time.Parse(dateLayout, dueDate)
	if err != nil {
		return false
	}
	day := today.UTC().Truncate(24 * time.Hour)
	return due.Before(day)
}

// OutstandingBalance computes one projection entry from an invoice row,
// the payments posted against it, and the patient's display name.
func OutstandingBalance(invoice rowguard.Row, payments []rowguard.Row, patientName string, today time.Time) (BalanceRow, error) {
	totalField, _ := invoice.Field("total_amount")
	total, err := ParseCents(totalField)
	if err != nil {
		return BalanceRow{}, fmt.Errorf("invoice %s: %w", invoice.ID, err)
	}
	var paid Cents
	for _, p := range payments {
		amountField, ok := p.Field("amount_paid")
		if !ok {
			continue
		}
		amount, err := ParseCents(amountField)
		if err != nil {
			return BalanceRow{}, fmt.Errorf("payment %s: %w", p.ID, err)
		}
		paid += amount
	}
	number, _ := invoice.Field("invoice_number")
	patientID, _ := invoice.Field("patient_id")
	dueDate, _ := invoice.Field("due_date")
	return BalanceRow{
		InvoiceID:     invoice.ID,
		InvoiceNumber: number,
		PatientID:     patientID,
		PatientName:   patientName,
		TotalAmount:   total,
		AmountPaid:    paid,
		BalanceDue:    total - paid,
		DueDate:       dueDate,
		PaymentStatus: PaymentStatus(total, paid, dueDate, today),
	}, nil
}

// Ledger is the read surface the projection scans. *memstore.Tx satisfies
// it, so balances can be computed inside the same transaction as the
// writes they reflect.
type Ledger interface {
	List(relation rowguard.Relation) []rowguard.Row
}

// OutstandingBalances materializes the projection over every invoice in
// the ledger, ordered by invoice number. Payments whose invoice_id points
// nowhere are ignored, matching a view over an inner join.
func OutstandingBalances(ledger Ledger, today time.Time) ([]BalanceRow, error) {
	byInvoice := make(map[string][]rowguard.Row)
	for _, p := range ledger.List(RelPayments) {
		if id, ok := p.Field("invoice_id"); ok {
			byInvoice[id] = append(byInvoice[id], p)
		}
	}
	names := make(map[string]string)
	for _, p := range ledger.List(RelPatients) {
		name, _ := p.Field("name")
		names[p.ID] = name
	}

	var out []BalanceRow
	for _, inv := range ledger.List(RelInvoices) {
		patientID, _ := inv.Field("patient_id")
		row, err := OutstandingBalance(inv, byInvoice[inv.ID], names[patientID], today)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvoiceNumber < out[j].InvoiceNumber })
	return out, nil
}
