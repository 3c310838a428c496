// Package clinic is the reference access-control model for a
// multi-department record-keeping deployment: clinical, billing, and
// administrative relations with row-level policies attached to each.
//
// The package declares the static tables the engine consumes - roles,
// relationship paths, and the per-(relation, operation) rule set - plus the
// derived-value collaborators specified alongside them: business-key
// generation (see businesskey), timestamp maintenance, status value sets,
// and the outstanding-balances projection.
//
// The policy shape throughout is "privileged role or ownership": a cheap
// role check that short-circuits the relationship lookup. Delete is the
// most restrictive operation on every relation - admin only, with no
// ownership alternative.
package clinic

import (
	"github.com/rowguard/rowguard"
)

// Roles. Each principal holds exactly one.
const (
	RoleAdmin     rowguard.Role = "admin"
	RoleDoctor    rowguard.Role = "doctor"
	RoleNurse     rowguard.Role = "nurse"
	RoleFrontDesk rowguard.Role = "front_desk"
	RoleBilling   rowguard.Role = "billing"
	// RoleAuthenticated is the fallback for a valid identity with no staff
	// assignment - typically a patient using the portal. It grants nothing
	// by itself; relationship paths do the work.
	RoleAuthenticated rowguard.Role = "authenticated"
)

// Relations.
const (
	RelDepartments    rowguard.Relation = "departments"
	RelClinicians     rowguard.Relation = "clinicians"
	RelPatients       rowguard.Relation = "patients"
	RelMedicalRecords rowguard.Relation = "medical_records"
	RelAppointments   rowguard.Relation = "appointments"
	RelInvoices       rowguard.Relation = "invoices"
	RelPayments       rowguard.Relation = "payments"
	RelInsurance      rowguard.Relation = "insurance_details"
)

// staff is every clinical or administrative role, excluding the
// authenticated fallback.
var staff = []rowguard.Role{RoleAdmin, RoleDoctor, RoleNurse, RoleFrontDesk, RoleBilling}

// Paths returns the relationship path table. Every path terminates at a
// principal-bearing column: user_id on clinicians and patients, or a
// creator column stored directly on the row. The deepest path is three
// hops (payment -> invoice -> appointment -> clinician).
func Paths() *rowguard.PathSet {
	ps := rowguard.NewPathSet()

	// Direct owner columns.
	ps.MustDeclare("clinician-self", RelClinicians, rowguard.Path{IdentityColumn: "user_id"})
	ps.MustDeclare("patient-self", RelPatients, rowguard.Path{IdentityColumn: "user_id"})
	ps.MustDeclare("patient-registrar", RelPatients, rowguard.Path{IdentityColumn: "registered_by"})
	ps.MustDeclare("record-author", RelMedicalRecords, rowguard.Path{IdentityColumn: "created_by"})

	// One hop.
	ps.MustDeclare("record-patient", RelMedicalRecords, rowguard.Path{
		Edges:          []rowguard.Edge{{FKColumn: "patient_id", Target: RelPatients}},
		IdentityColumn: "user_id",
	})
	ps.MustDeclare("appointment-doctor", RelAppointments, rowguard.Path{
		Edges:          []rowguard.Edge{{FKColumn: "doctor_id", Target: RelClinicians}},
		IdentityColumn: "user_id",
	})
	ps.MustDeclare("appointment-patient", RelAppointments, rowguard.Path{
		Edges:          []rowguard.Edge{{FKColumn: "patient_id", Target: RelPatients}},
		IdentityColumn: "user_id",
	})
	ps.MustDeclare("invoice-patient", RelInvoices, rowguard.Path{
		Edges:          []rowguard.Edge{{FKColumn: "patient_id", Target: RelPatients}},
		IdentityColumn: "user_id",
	})
	ps.MustDeclare("insurance-patient", RelInsurance, rowguard.Path{
		Edges:          []rowguard.Edge{{FKColumn: "patient_id", Target: RelPatients}},
		IdentityColumn: "user_id",
	})

	// Two hops.
	ps.MustDeclare("invoice-doctor", RelInvoices, rowguard.Path{
		Edges: []rowguard.Edge{
			{FKColumn: "appointment_id", Target: RelAppointments},
			{FKColumn: "doctor_id", Target: RelClinicians},
		},
		IdentityColumn: "user_id",
	})
	ps.MustDeclare("payment-patient", RelPayments, rowguard.Path{
		Edges: []rowguard.Edge{
			{FKColumn: "invoice_id", Target: RelInvoices},
			{FKColumn: "patient_id", Target: RelPatients},
		},
		IdentityColumn: "user_id",
	})

	// Three hops: who treated the visit this payment settles.
	ps.MustDeclare("payment-doctor", RelPayments, rowguard.Path{
		Edges: []rowguard.Edge{
			{FKColumn: "invoice_id", Target: RelInvoices},
			{FKColumn: "appointment_id", Target: RelAppointments},
			{FKColumn: "doctor_id", Target: RelClinicians},
		},
		IdentityColumn: "user_id",
	})

	return ps
}

// Rules returns the policy table. Pairs not declared here - and there are
// none for the eight relations - would be always-deny.
func Rules() *rowguard.RuleSet {
	rs := rowguard.NewRuleSet()

	everyone := append(append([]rowguard.Role{}, staff...), RoleAuthenticated)

	// departments: reference data, readable by any authenticated principal,
	// managed by admin.
	rs.MustDeclare(RelDepartments, rowguard.OpRead, rowguard.Grant(everyone...))
	rs.MustDeclare(RelDepartments, rowguard.OpCreate, rowguard.Grant(RoleAdmin))
	rs.MustDeclare(RelDepartments, rowguard.OpModify, rowguard.Grant(RoleAdmin))
	rs.MustDeclare(RelDepartments, rowguard.OpDelete, rowguard.Grant(RoleAdmin))

	// clinicians: staff directory. Clinicians may touch up their own entry.
	rs.MustDeclare(RelClinicians, rowguard.OpRead, rowguard.Grant(staff...))
	rs.MustDeclare(RelClinicians, rowguard.OpCreate, rowguard.Grant(RoleAdmin))
	rs.MustDeclare(RelClinicians, rowguard.OpModify, rowguard.Grant(RoleAdmin).OrOwned("clinician-self"))
	rs.MustDeclare(RelClinicians, rowguard.OpDelete, rowguard.Grant(RoleAdmin))

	// patients: front desk registers and maintains; patients see themselves.
	rs.MustDeclare(RelPatients, rowguard.OpRead, rowguard.Grant(staff...).OrOwned("patient-self"))
	rs.MustDeclare(RelPatients, rowguard.OpCreate, rowguard.Grant(RoleAdmin, RoleFrontDesk))
	rs.MustDeclare(RelPatients, rowguard.OpModify, rowguard.Grant(RoleAdmin, RoleFrontDesk).OrOwned("patient-registrar"))
	rs.MustDeclare(RelPatients, rowguard.OpDelete, rowguard.Grant(RoleAdmin))

	// medical_records: authored by doctors; the record's patient can read it.
	rs.MustDeclare(RelMedicalRecords, rowguard.OpRead, rowguard.Or{
		rowguard.RoleIn{RoleAdmin, RoleNurse},
		rowguard.RelationshipHolds("record-author"),
		rowguard.RelationshipHolds("record-patient"),
	})
	rs.MustDeclare(RelMedicalRecords, rowguard.OpCreate, rowguard.Grant(RoleAdmin, RoleDoctor))
	rs.MustDeclare(RelMedicalRecords, rowguard.OpModify, rowguard.Grant(RoleAdmin).OrOwned("record-author"))
	rs.MustDeclare(RelMedicalRecords, rowguard.OpDelete, rowguard.Grant(RoleAdmin))

	// appointments: front desk schedules; the treating doctor and the
	// patient see theirs; only the treating doctor (or front desk) amends.
	rs.MustDeclare(RelAppointments, rowguard.OpRead, rowguard.Or{
		rowguard.RoleIn{RoleAdmin, RoleFrontDesk},
		rowguard.RelationshipHolds("appointment-doctor"),
		rowguard.RelationshipHolds("appointment-patient"),
	})
	rs.MustDeclare(RelAppointments, rowguard.OpCreate, rowguard.Grant(RoleAdmin, RoleFrontDesk))
	rs.MustDeclare(RelAppointments, rowguard.OpModify, rowguard.Or{
		rowguard.RoleIn{RoleAdmin, RoleFrontDesk},
		rowguard.RelationshipHolds("appointment-doctor"),
	})
	rs.MustDeclare(RelAppointments, rowguard.OpDelete, rowguard.Grant(RoleAdmin))

	// invoices: billing owns the lifecycle regardless of patient
	// relationship; the treating doctor and the billed patient can read.
	rs.MustDeclare(RelInvoices, rowguard.OpRead, rowguard.Or{
		rowguard.RoleIn{RoleAdmin, RoleBilling},
		rowguard.RelationshipHolds("invoice-doctor"),
		rowguard.RelationshipHolds("invoice-patient"),
	})
	rs.MustDeclare(RelInvoices, rowguard.OpCreate, rowguard.Grant(RoleAdmin, RoleBilling))
	rs.MustDeclare(RelInvoices, rowguard.OpModify, rowguard.Grant(RoleAdmin, RoleBilling))
	rs.MustDeclare(RelInvoices, rowguard.OpDelete, rowguard.Grant(RoleAdmin))

	// payments: billing posts and amends; the payer and the treating
	// doctor can read.
	rs.MustDeclare(RelPayments, rowguard.OpRead, rowguard.Or{
		rowguard.RoleIn{RoleAdmin, RoleBilling},
		rowguard.RelationshipHolds("payment-doctor"),
		rowguard.RelationshipHolds("payment-patient"),
	})
	rs.MustDeclare(RelPayments, rowguard.OpCreate, rowguard.Grant(RoleAdmin, RoleBilling))
	rs.MustDeclare(RelPayments, rowguard.OpModify, rowguard.Grant(RoleAdmin, RoleBilling))
	rs.MustDeclare(RelPayments, rowguard.OpDelete, rowguard.Grant(RoleAdmin))

	// insurance_details: front desk captures coverage; billing reads it;
	// the covered patient reads their own.
	rs.MustDeclare(RelInsurance, rowguard.OpRead, rowguard.Or{
		rowguard.RoleIn{RoleAdmin, RoleFrontDesk, RoleBilling},
		rowguard.RelationshipHolds("insurance-patient"),
	})
	rs.MustDeclare(RelInsurance, rowguard.OpCreate, rowguard.Grant(RoleAdmin, RoleFrontDesk))
	rs.MustDeclare(RelInsurance, rowguard.OpModify, rowguard.Grant(RoleAdmin, RoleFrontDesk))
	rs.MustDeclare(RelInsurance, rowguard.OpDelete, rowguard.Grant(RoleAdmin))

	return rs
}
