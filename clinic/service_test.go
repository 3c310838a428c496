package clinic

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowguard/rowguard"
	"github.com/rowguard/rowguard/businesskey"
)

func TestCreateStampsTimestamps(t *testing.T) {
	svc, _ := newFixture(t)

	created, err := svc.Create(context.Background(), frontDesk, rowguard.Row{
		Relation: RelPatients,
		Fields:   map[string]string{"name": "Co Nguyen", "registered_by": "u-fd"},
	})
	require.NoError(t, err)

	createdAt, ok := created.Field("created_at")
	require.True(t, ok)
	updatedAt, _ := created.Field("updated_at")
	assert.Equal(t, "2026-03-14T10:30:00Z", createdAt)
	assert.Equal(t, createdAt, updatedAt)

	// Caller-supplied stamps are overwritten, never trusted.
	forged, err := svc.Create(context.Background(), frontDesk, rowguard.Row{
		Relation: RelPatients,
		Fields:   map[string]string{"name": "Y", "created_at": "1999-01-01T00:00:00Z"},
	})
	require.NoError(t, err)
	createdAt, _ = forged.Field("created_at")
	assert.Equal(t, "2026-03-14T10:30:00Z", createdAt)
}

func TestModifyRefreshesUpdatedAtOnly(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, frontDesk, rowguard.Row{
		Relation: RelPatients,
		Fields:   map[string]string{"name": "Co Nguyen"},
	})
	require.NoError(t, err)

	later := fixedNow.Add(2 * time.Hour)
	svc.WithClock(func() time.Time { return later })

	updated, err := svc.Modify(ctx, frontDesk, RelPatients, created.ID,
		map[string]string{"name": "Co Nguyen-Berg", "created_at": "1999-01-01T00:00:00Z"})
	require.NoError(t, err)

	createdAt, _ := updated.Field("created_at")
	updatedAt, _ := updated.Field("updated_at")
	assert.Equal(t, "2026-03-14T10:30:00Z", createdAt)
	assert.Equal(t, "2026-03-14T12:30:00Z", updatedAt)
	name, _ := updated.Field("name")
	assert.Equal(t, "Co Nguyen-Berg", name)
}

func TestCrossFieldConstraints(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	// start_time must be strictly before end_time.
	_, err := svc.Create(ctx, frontDesk, rowguard.Row{
		Relation: RelAppointments,
		Fields: map[string]string{
			"patient_id": "p-1", "doctor_id": "c-doc", "status": AppointmentScheduled,
			"start_time": "2026-03-20T10:00:00Z", "end_time": "2026-03-20T10:00:00Z",
		},
	})
	assert.True(t, rowguard.IsConstraintViolation(err))

	// due_date may equal issued_date but not precede it.
	_, err = svc.Create(ctx, billing, rowguard.Row{
		Relation: RelInvoices,
		Fields: map[string]string{
			"patient_id": "p-1", "total_amount": "10.00", "status": InvoicePending,
			"issued_date": "2026-03-14", "due_date": "2026-03-13",
		},
	})
	assert.True(t, rowguard.IsConstraintViolation(err))

	// expiry_date must be strictly after issued_date.
	_, err = svc.Create(ctx, frontDesk, rowguard.Row{
		Relation: RelInsurance,
		Fields: map[string]string{
			"patient_id": "p-1", "provider": "AcmeCare",
			"issued_date": "2026-01-01", "expiry_date": "2026-01-01",
			"coverage_start_date": "2026-01-01", "coverage_end_date": "2026-12-31",
		},
	})
	assert.True(t, rowguard.IsConstraintViolation(err))

	// A modify that inverts a range on the merged row is caught too.
	_, err = svc.Modify(ctx, admin, RelAppointments, "a-1",
		map[string]string{"end_time": "2026-03-20T08:00:00Z"})
	assert.True(t, rowguard.IsConstraintViolation(err))
}

func TestReferentialIntegrityOnWrite(t *testing.T) {
	svc, _ := newFixture(t)

	_, err := svc.Create(context.Background(), billing, rowguard.Row{
		Relation: RelInvoices,
		Fields: map[string]string{
			"patient_id": "p-1", "appointment_id": "a-404",
			"total_amount": "10.00", "status": InvoicePending,
			"issued_date": "2026-03-14", "due_date": "2026-03-28",
		},
	})
	assert.True(t, rowguard.IsReferentialIntegrity(err))
}

func TestAppointmentCodeGenerated(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, frontDesk, rowguard.Row{
		Relation: RelAppointments,
		Fields: map[string]string{
			"patient_id": "p-1", "doctor_id": "c-doc", "status": AppointmentScheduled,
			"start_time": "2026-03-21T09:00:00Z", "end_time": "2026-03-21T09:30:00Z",
		},
	})
	require.NoError(t, err)
	code, _ := created.Field("appointment_code")
	assert.Regexp(t, regexp.MustCompile(`^APT-20260314-\d{4}$`), code)

	// A supplied code that collides surfaces as a constraint violation for
	// the caller to retry.
	_, err = svc.Create(ctx, frontDesk, rowguard.Row{
		Relation: RelAppointments,
		Fields: map[string]string{
			"patient_id": "p-1", "doctor_id": "c-doc", "status": AppointmentScheduled,
			"appointment_code": "APT-20260314-0001",
			"start_time":       "2026-03-22T09:00:00Z", "end_time": "2026-03-22T09:30:00Z",
		},
	})
	assert.True(t, rowguard.IsConstraintViolation(err))
}

func TestCreateLeavesCallerFieldsUntouched(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	// One shared map resubmitted across attempts, the shape
	// RetryOnConflict depends on. A losing attempt must not leave the
	// generated code or the stamps behind in the caller's map, or every
	// retry would resubmit the same code.
	fields := map[string]string{
		"patient_id": "p-1", "doctor_id": "c-doc", "status": AppointmentScheduled,
		"start_time": "2026-03-23T09:00:00Z", "end_time": "2026-03-23T09:30:00Z",
	}
	var created rowguard.Row
	err := businesskey.RetryOnConflict(3, func() error {
		var err error
		created, err = svc.Create(ctx, frontDesk, rowguard.Row{Relation: RelAppointments, Fields: fields})
		return err
	})
	require.NoError(t, err)

	code, _ := created.Field("appointment_code")
	assert.Regexp(t, regexp.MustCompile(`^APT-20260314-\d{4}$`), code)

	assert.NotContains(t, fields, "appointment_code", "generated code leaked into the caller's map")
	assert.NotContains(t, fields, "created_at")
	assert.NotContains(t, fields, "updated_at")
	assert.Len(t, fields, 5)
}

func TestInvoiceNumberSequence(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	// The fixture already holds 2026-000001.
	fields := map[string]string{
		"patient_id": "p-1", "total_amount": "10.00", "status": InvoicePending,
		"issued_date": "2026-03-14", "due_date": "2026-03-28",
	}
	first, err := svc.Create(ctx, billing, rowguard.Row{Relation: RelInvoices, Fields: fields})
	require.NoError(t, err)
	second, err := svc.Create(ctx, billing, rowguard.Row{Relation: RelInvoices, Fields: fields})
	require.NoError(t, err)

	n1, _ := first.Field("invoice_number")
	n2, _ := second.Field("invoice_number")
	assert.Equal(t, "2026-000002", n1)
	assert.Equal(t, "2026-000003", n2)
}

func TestConcurrentSerializedInvoiceCreation(t *testing.T) {
	svc, store := newFixture(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateInvoiceSerialized(ctx, billing, rowguard.Row{
				Relation: RelInvoices,
				Fields: map[string]string{
					"patient_id": "p-1", "total_amount": "10.00", "status": InvoicePending,
					"issued_date": "2026-03-14", "due_date": "2026-03-28",
				},
			})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "worker %d", i)
	}

	// Gapless: the fixture's 2026-000001 plus workers consecutive numbers.
	seen := make(map[string]bool)
	for _, inv := range store.List(ctx, RelInvoices) {
		n, _ := inv.Field("invoice_number")
		require.False(t, seen[n], "duplicate %s", n)
		seen[n] = true
	}
	for i := 1; i <= workers+1; i++ {
		assert.True(t, seen[businesskey.FormatInvoiceNumber(2026, i)], "missing sequence %d", i)
	}
}
