package clinic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowguard/rowguard"
)

func TestParseCents(t *testing.T) {
	cases := []struct {
		in      string
		want    Cents
		wantErr bool
	}{
		{in: "100.00", want: 10000},
		{in: "100", want: 10000},
		{in: "0.5", want: 50},
		{in: "0.05", want: 5},
		{in: ".99", want: 99},
		{in: "-12.34", want: -1234},
		{in: "100.001", wantErr: true},
		{in: "12.3x", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseCents(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
	assert.Equal(t, "60.00", Cents(6000).String())
	assert.Equal(t, "-0.05", Cents(-5).String())
}

func TestPaymentStatusClassification(t *testing.T) {
	today := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	yesterday, tomorrow := "2026-03-13", "2026-03-15"

	cases := []struct {
		name        string
		total, paid Cents
		dueDate     string
		want        string
	}{
		{name: "unpaid past due", total: 10000, paid: 0, dueDate: yesterday, want: PaymentStatusOverdue},
		{name: "settled late", total: 10000, paid: 10000, dueDate: yesterday, want: PaymentStatusPaid},
		{name: "partial before due", total: 10000, paid: 4000, dueDate: tomorrow, want: PaymentStatusPartial},
		{name: "partial past due", total: 10000, paid: 4000, dueDate: yesterday, want: PaymentStatusOverdue},
		{name: "due today is not overdue", total: 10000, paid: 0, dueDate: "2026-03-14", want: PaymentStatusPartial},
		{name: "overpaid", total: 10000, paid: 12000, dueDate: tomorrow, want: PaymentStatusUnknown},
		{name: "zero invoice", total: 0, paid: 0, dueDate: yesterday, want: PaymentStatusPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PaymentStatus(tc.total, tc.paid, tc.dueDate, today))
		})
	}
}

func TestOutstandingBalanceRow(t *testing.T) {
	invoice := rowguard.Row{
		Relation: RelInvoices, ID: "i-9",
		Fields: map[string]string{
			"invoice_number": "2026-000009", "patient_id": "p-9",
			"total_amount": "100.00", "due_date": "2026-03-13",
		},
	}
	payments := []rowguard.Row{
		{Relation: RelPayments, ID: "pay-a", Fields: map[string]string{"invoice_id": "i-9", "amount_paid": "25.00"}},
		{Relation: RelPayments, ID: "pay-b", Fields: map[string]string{"invoice_id": "i-9", "amount_paid": "15.00"}},
	}
	today := time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)

	row, err := OutstandingBalance(invoice, payments, "Nia Botha", today)
	require.NoError(t, err)
	assert.Equal(t, Cents(10000), row.TotalAmount)
	assert.Equal(t, Cents(4000), row.AmountPaid)
	assert.Equal(t, Cents(6000), row.BalanceDue)
	assert.Equal(t, "Nia Botha", row.PatientName)
	assert.Equal(t, PaymentStatusOverdue, row.PaymentStatus)

	// No payments at all reads as zero paid, full balance.
	row, err = OutstandingBalance(invoice, nil, "Nia Botha", today)
	require.NoError(t, err)
	assert.Equal(t, Cents(0), row.AmountPaid)
	assert.Equal(t, Cents(10000), row.BalanceDue)

	invoice.Fields["total_amount"] = "not-money"
	_, err = OutstandingBalance(invoice, nil, "Nia Botha", today)
	assert.Error(t, err)
}

func TestOutstandingBalancesVisibility(t *testing.T) {
	svc, store := newFixture(t)
	ctx := context.Background()

	// A second invoice for the other patient.
	require.NoError(t, store.Insert(ctx, rowguard.Row{
		Relation: RelInvoices, ID: "i-2", Fields: map[string]string{
			"patient_id": "p-2", "invoice_number": "2026-000002",
			"total_amount": "50.00", "issued_date": "2026-03-01", "due_date": "2026-03-10",
			"status": InvoicePending,
		},
	}))

	// Billing sees the whole projection, ordered by invoice number.
	rows, err := svc.OutstandingBalances(ctx, billing)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2026-000001", rows[0].InvoiceNumber)
	assert.Equal(t, "Ada Osei", rows[0].PatientName)
	assert.Equal(t, Cents(6000), rows[0].BalanceDue)
	assert.Equal(t, PaymentStatusPartial, rows[0].PaymentStatus)
	assert.Equal(t, "2026-000002", rows[1].InvoiceNumber)
	assert.Equal(t, PaymentStatusOverdue, rows[1].PaymentStatus)

	// A patient sees only their own entries.
	rows, err = svc.OutstandingBalances(ctx, patient)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2026-000001", rows[0].InvoiceNumber)
}
