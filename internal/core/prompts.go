package core

import (
	"fmt"
	"strings"

	"ehr-scribe/pkg"
)

// prompts.go holds the instruction templates for the four model-backed
// operations. Keeping them in one file makes them easy to tweak without
// touching the rest of the code.

const soapPromptTemplate = `You are an experienced clinician. Based on the consultation record below, produce a complete clinical note in SOAP format.
%s
Consultation record:
%s

Write the note following the SOAP structure:
1. S (Subjective): chief complaint, history of present illness, past history, personal history
2. O (Objective): physical examination findings, vital signs
3. A (Assessment): preliminary diagnosis, differential diagnoses
4. P (Plan): treatment plan, examination plan, medication plan, follow-up plan

Respond with a single JSON object containing exactly these fields:
- subjective: subjective findings
- objective: objective findings
- assessment: assessment
- plan: plan
- chief_complaint: brief chief complaint
- preliminary_diagnosis: array of preliminary diagnoses

Keep the content professional, accurate and complete.`

const patientContextTemplate = `
Patient information:
- Name: %s
- Age: %s
- Gender: %s
- Medical history: %s
- Allergies: %s
`

const examPromptTemplate = `You are an experienced clinician. Based on the SOAP note and consultation record below, recommend follow-up diagnostic examinations.

SOAP note:
- Chief complaint: %s
- Assessment: %s
- Plan: %s

Consultation record:
%s

Respond with a single JSON object containing an "examinations" array. Each element is an object with:
- name: examination name
- purpose: what the examination is meant to establish or rule out
- priority: one of "high", "medium", "low"
- notes: preparation or other remarks

Recommend only examinations justified by the clinical picture.`

const extractDrugsPromptTemplate = `Extract every drug name mentioned in the treatment plan below.

Treatment plan:
%s

Respond with a single JSON object containing a "drugs" array, each element a plain drug name. Only include actual drugs; exclude examinations, procedures and other non-drug items.`

const conflictPromptTemplate = `You are an experienced clinical pharmacist. Review the safety of the prescription below.

Prescribed drugs:
%s

Patient information:
- Allergies: %s
- Current medications: %s
- Medical history: %s

Check the following:
1. Allergy risk: do any prescribed drugs conflict with the patient's allergies
2. Drug-drug interactions among the prescribed drugs
3. Conflicts between prescribed drugs and current medications
4. Contraindications given the patient's medical history
5. Dosage reasonableness

Respond with a single JSON object containing:
- has_conflicts: boolean
- allergy_warnings: array of allergy warnings
- drug_interactions: array of objects with "drugs" (the pair) and "description"
- contraindications: array of contraindications
- dosage_warnings: array of dosage warnings
- recommendations: array of recommendations
- severity: overall severity, one of "high", "medium", "low", "none"`

// patientContext renders the patient block embedded in the SOAP prompt.
// A zero-value PatientInfo yields an empty block.
func patientContext(p pkg.PatientInfo) string {
	if p == (pkg.PatientInfo{}) {
		return ""
	}
	return fmt.Sprintf(patientContextTemplate,
		orDefault(p.Name, "unknown"),
		orDefault(p.Age, "unknown"),
		orDefault(p.Gender, "unknown"),
		orDefault(p.MedicalHistory, "none"),
		orDefault(p.Allergies, "none"))
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
