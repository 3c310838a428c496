package clinic

import (
	"context"
	"fmt"
	"time"

	"github.com/rowguard/rowguard"
	"github.com/rowguard/rowguard/businesskey"
	"github.com/rowguard/rowguard/memstore"
)

// Service runs guarded operations against a memstore. Every mutation is a
// single transaction containing both the policy decision and the write, so
// the rows a decision reads cannot move before the write lands.
//
// Lookup failures and policy denials are reported identically as access
// denied. A caller probing ids cannot distinguish a row it may not touch
// from a row that does not exist.
type Service struct {
	store     *memstore.Store
	rules     *rowguard.RuleSet
	paths     *rowguard.PathSet
	allocator *businesskey.Allocator
	now       Clock
}

// NewService validates the clinic model, declares its constraints on the
// store, and returns a service bound to it.
func NewService(store *memstore.Store) (*Service, error) {
	rules, paths := Rules(), Paths()
	if err := rowguard.Validate(rules, paths); err != nil {
		return nil, fmt.Errorf("clinic model: %w", err)
	}
	DeclareSchema(store)
	return &Service{
		store:     store,
		rules:     rules,
		paths:     paths,
		allocator: businesskey.NewAllocator(),
		now:       time.Now,
	}, nil
}

// WithClock replaces the service's time source. Tests pin it.
func (s *Service) WithClock(clock Clock) *Service {
	s.now = clock
	return s
}

// DeclareSchema registers the clinic's unique and referential constraints
// on a store. Paths traverse only declared references.
func DeclareSchema(store *memstore.Store) {
	store.DeclareUnique(RelAppointments, "appointment_code")
	store.DeclareUnique(RelInvoices, "invoice_number")

	store.DeclareRef(RelClinicians, "department_id", RelDepartments)
	store.DeclareRef(RelMedicalRecords, "patient_id", RelPatients)
	store.DeclareRef(RelAppointments, "patient_id", RelPatients)
	store.DeclareRef(RelAppointments, "doctor_id", RelClinicians)
	store.DeclareRef(RelInvoices, "patient_id", RelPatients)
	store.DeclareRef(RelInvoices, "appointment_id", RelAppointments)
	store.DeclareRef(RelPayments, "invoice_id", RelInvoices)
	store.DeclareRef(RelInsurance, "patient_id", RelPatients)
}

// engine builds a decision engine whose relationship lookups read from the
// given store, typically the transaction the guarded write runs in.
func (s *Service) engine(store rowguard.Store) *rowguard.Engine {
	return rowguard.NewEngine(s.rules, s.paths, store)
}

// Read fetches a row the principal is permitted to see.
func (s *Service) Read(ctx context.Context, principal rowguard.Principal, relation rowguard.Relation, id string) (rowguard.Row, error) {
	row, ok, err := s.store.Lookup(ctx, relation, id)
	if err != nil {
		return rowguard.Row{}, err
	}
	if !ok {
		return rowguard.Row{}, rowguard.ErrAccessDenied
	}
	if err := s.engine(s.store).Authorize(ctx, principal, relation, rowguard.OpRead, row); err != nil {
		return rowguard.Row{}, rowguard.Redact(err)
	}
	return row, nil
}

// Create inserts a row after stamping audit timestamps, filling any
// missing business key, checking cross-field constraints, and passing the
// create policy. The returned row carries the generated id and key.
//
// The caller's field map is never written to: stamps and generated keys
// land on a copy, so an appointment code collision surfaces as a
// constraint violation and a retry through businesskey.RetryOnConflict
// draws a fresh code instead of resubmitting the losing one.
func (s *Service) Create(ctx context.Context, principal rowguard.Principal, row rowguard.Row) (rowguard.Row, error) {
	if row.ID == "" {
		row.ID = memstore.NewRowID()
	}
	row = StampCreate(row, s.now())

	err := s.store.WithinTx(ctx, func(tx *memstore.Tx) error {
		if err := s.fillBusinessKey(&row, tx); err != nil {
			return err
		}
		if err := CheckRow(row); err != nil {
			return err
		}
		if err := s.engine(tx).Authorize(ctx, principal, row.Relation, rowguard.OpCreate, row); err != nil {
			return rowguard.Redact(err)
		}
		return tx.Insert(row)
	})
	if err != nil {
		return rowguard.Row{}, err
	}
	return row, nil
}

// fillBusinessKey generates the relation's business key when the caller
// did not supply one. Invoice numbers scan the transaction's own view of
// the year, so two transactions racing on the same year collide on the
// unique constraint rather than silently duplicating.
func (s *Service) fillBusinessKey(row *rowguard.Row, tx *memstore.Tx) error {
	today := s.now()
	switch row.Relation {
	case RelAppointments:
		if _, ok := row.Field("appointment_code"); !ok {
			row.Fields["appointment_code"] = businesskey.NextAppointmentCode(today, nil)
		}
	case RelInvoices:
		if _, ok := row.Field("invoice_number"); !ok {
			var existing []string
			for _, inv := range tx.List(RelInvoices) {
				if n, ok := inv.Field("invoice_number"); ok {
					existing = append(existing, n)
				}
			}
			row.Fields["invoice_number"] = businesskey.NextInvoiceNumber(today, existing)
		}
	}
	return nil
}

// CreateInvoiceSerialized is Create for invoices with same-year creations
// serialized through the service's allocator, trading throughput for
// gapless numbering. Plain Create plus RetryOnConflict is the optimistic
// alternative.
func (s *Service) CreateInvoiceSerialized(ctx context.Context, principal rowguard.Principal, row rowguard.Row) (rowguard.Row, error) {
	var created rowguard.Row
	err := s.allocator.SerializeYear(s.now().Year(), func() error {
		var err error
		created, err = s.Create(ctx, principal, row)
		return err
	})
	return created, err
}

// Modify authorizes against the stored row, merges the caller's fields,
// refreshes updated_at, and re-checks cross-field constraints on the
// merged result.
func (s *Service) Modify(ctx context.Context, principal rowguard.Principal, relation rowguard.Relation, id string, fields map[string]string) (rowguard.Row, error) {
	var updated rowguard.Row
	err := s.store.WithinTx(ctx, func(tx *memstore.Tx) error {
		current, ok, err := tx.Lookup(ctx, relation, id)
		if err != nil {
			return err
		}
		if !ok {
			return rowguard.ErrAccessDenied
		}
		if err := s.engine(tx).Authorize(ctx, principal, relation, rowguard.OpModify, current); err != nil {
			return rowguard.Redact(err)
		}
		updated = current
		for k, v := range StampModify(fields, s.now()) {
			updated.Fields[k] = v
		}
		if err := CheckRow(updated); err != nil {
			return err
		}
		return tx.Update(updated)
	})
	if err != nil {
		return rowguard.Row{}, err
	}
	return updated, nil
}

// Delete removes a row the principal's delete policy permits.
func (s *Service) Delete(ctx context.Context, principal rowguard.Principal, relation rowguard.Relation, id string) error {
	return s.store.WithinTx(ctx, func(tx *memstore.Tx) error {
		current, ok, err := tx.Lookup(ctx, relation, id)
		if err != nil {
			return err
		}
		if !ok {
			return rowguard.ErrAccessDenied
		}
		if err := s.engine(tx).Authorize(ctx, principal, relation, rowguard.OpDelete, current); err != nil {
			return rowguard.Redact(err)
		}
		return tx.Delete(relation, id)
	})
}

// OutstandingBalances returns the balance projection filtered to the
// invoices the principal may read. Billing and admin see everything; a
// patient sees only their own entries.
func (s *Service) OutstandingBalances(ctx context.Context, principal rowguard.Principal) ([]BalanceRow, error) {
	var visible []BalanceRow
	err := s.store.WithinTx(ctx, func(tx *memstore.Tx) error {
		rows, err := OutstandingBalances(tx, s.now())
		if err != nil {
			return err
		}
		engine := s.engine(tx)
		for _, balance := range rows {
			inv, ok, err := tx.Lookup(ctx, RelInvoices, balance.InvoiceID)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			decision, err := engine.Decide(ctx, principal, RelInvoices, rowguard.OpRead, inv)
			if err != nil {
				return err
			}
			if decision == rowguard.DecisionAllow {
				visible = append(visible, balance)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return visible, nil
}
