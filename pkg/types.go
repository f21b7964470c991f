package pkg

import (
	"encoding/json"
	"strings"
	"time"
)

// PatientInfo carries the demographic and history fields collected once at
// the start of a consultation. All fields are free text; empty values are
// treated as unknown/none. Allergies and CurrentMedications are
// comma-separated lists.
type PatientInfo struct {
	Name               string `json:"name,omitempty"`
	Age                string `json:"age,omitempty"`
	Gender             string `json:"gender,omitempty"`
	MedicalHistory     string `json:"medical_history,omitempty"`
	Allergies          string `json:"allergies,omitempty"`
	CurrentMedications string `json:"current_medications,omitempty"`
}

// splitList turns a comma-separated free-text field into trimmed entries,
// dropping empties and the "none" placeholder.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		p := strings.TrimSpace(part)
		if p == "" || strings.EqualFold(p, "none") {
			continue
		}
		out = append(out, p)
	}
	return out
}

// AllergyList returns the allergies field as individual entries.
func (p PatientInfo) AllergyList() []string { return splitList(p.Allergies) }

// MedicationList returns the current medications as individual entries.
func (p PatientInfo) MedicationList() []string { return splitList(p.CurrentMedications) }

// SoapNote is the structured clinical note produced from a consultation
// transcript. Either all clinical fields are populated and Error is empty,
// or Error carries the failure message and every other field holds its zero
// value. Callers branch on Failed().
type SoapNote struct {
	Subjective           string    `json:"subjective"`
	Objective            string    `json:"objective"`
	Assessment           string    `json:"assessment"`
	Plan                 string    `json:"plan"`
	ChiefComplaint       string    `json:"chief_complaint"`
	PreliminaryDiagnosis []string  `json:"preliminary_diagnosis"`
	GeneratedAt          time.Time `json:"generated_at,omitempty"`
	Error                string    `json:"error,omitempty"`
}

// Failed reports whether the note is the degraded error variant.
func (n SoapNote) Failed() bool { return n.Error != "" }

// Empty reports whether the note carries no clinical content at all.
func (n SoapNote) Empty() bool {
	return n.Subjective == "" && n.Objective == "" && n.Assessment == "" &&
		n.Plan == "" && n.ChiefComplaint == "" && len(n.PreliminaryDiagnosis) == 0
}

// Examination is a single recommended diagnostic examination. The model
// shapes each item; beyond being a JSON object nothing is validated, so the
// fields stay a loose map.
type Examination map[string]any

// ExaminationList is the result of the examination recommendation
// operation. Items is model-shaped; only "list of items" is guaranteed.
type ExaminationList struct {
	Items []Examination `json:"examinations"`
	Error string        `json:"error,omitempty"`
}

// Failed reports whether the list is the degraded error variant.
func (l ExaminationList) Failed() bool { return l.Error != "" }

// Severity tiers for a drug conflict report.
const (
	SeverityHigh    = "high"
	SeverityMedium  = "medium"
	SeverityLow     = "low"
	SeverityNone    = "none"
	SeverityUnknown = "unknown"
)

// DrugInteraction describes one drug-drug interaction flagged by the model.
// The model sometimes returns a bare string instead of an object; both
// decode into this type.
type DrugInteraction struct {
	Drugs       string `json:"drugs"`
	Description string `json:"description"`
}

// UnmarshalJSON accepts either {"drugs": ..., "description": ...} or a
// plain string.
func (d *DrugInteraction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		d.Drugs = ""
		d.Description = s
		return nil
	}
	type alias DrugInteraction
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*d = DrugInteraction(a)
	return nil
}

// DrugConflictReport is the outcome of screening prescribed drugs against
// the patient's allergies, current medications and history. The error
// variant mirrors SoapNote: Error non-empty, HasConflicts false, lists
// empty, Severity "unknown".
type DrugConflictReport struct {
	HasConflicts      bool              `json:"has_conflicts"`
	AllergyWarnings   []string          `json:"allergy_warnings"`
	DrugInteractions  []DrugInteraction `json:"drug_interactions"`
	Contraindications []string          `json:"contraindications"`
	DosageWarnings    []string          `json:"dosage_warnings"`
	Recommendations   []string          `json:"recommendations"`
	Severity          string            `json:"severity"`
	Error             string            `json:"error,omitempty"`
}

// Failed reports whether the report is the degraded error variant.
func (r DrugConflictReport) Failed() bool { return r.Error != "" }

// GenerateSoapRequest is the body of POST /api/generate-soap.
type GenerateSoapRequest struct {
	Transcript  string      `json:"transcript"`
	PatientInfo PatientInfo `json:"patient_info"`
}

// RecommendExamsRequest is the body of POST /api/recommend-examinations.
type RecommendExamsRequest struct {
	SoapData   SoapNote `json:"soap_data"`
	Transcript string   `json:"transcript"`
}

// CheckConflictsRequest is the body of POST /api/check-drug-conflicts.
type CheckConflictsRequest struct {
	PlanText    string      `json:"plan_text"`
	PatientInfo PatientInfo `json:"patient_info"`
}

// SaveReportRequest is the body of POST /api/save-report.
type SaveReportRequest struct {
	Content string `json:"content"`
}
