package clinic

import (
	"github.com/rowguard/rowguard/sqlstore"
)

// Tables maps the clinic's relations onto their backing SQL tables. The
// column lists cover every column a relationship path traverses plus the
// fields the balance projection and constraint checks read.
func Tables() sqlstore.TableMap {
	return sqlstore.TableMap{
		RelDepartments: {Name: "departments", IDColumn: "id",
			Columns: []string{"name"}},
		RelClinicians: {Name: "clinicians", IDColumn: "id",
			Columns: []string{"user_id", "department_id", "name"}},
		RelPatients: {Name: "patients", IDColumn: "id",
			Columns: []string{"user_id", "registered_by", "name"}},
		RelMedicalRecords: {Name: "medical_records", IDColumn: "id",
			Columns: []string{"patient_id", "created_by"}},
		RelAppointments: {Name: "appointments", IDColumn: "id",
			Columns: []string{"patient_id", "doctor_id", "appointment_code", "status", "start_time", "end_time"}},
		RelInvoices: {Name: "invoices", IDColumn: "id",
			Columns: []string{"appointment_id", "patient_id", "invoice_number", "total_amount", "issued_date", "due_date", "status"}},
		RelPayments: {Name: "payments", IDColumn: "id",
			Columns: []string{"invoice_id", "amount_paid", "payment_date"}},
		RelInsurance: {Name: "insurance_details", IDColumn: "id",
			Columns: []string{"patient_id", "provider", "coverage_start_date", "coverage_end_date", "issued_date", "expiry_date"}},
	}
}
